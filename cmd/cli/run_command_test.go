package cli_test

import (
	"encoding/json"
	"errors"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/agentready/cmd/cli"
)

func TestRunCommandPrintsChildOutput(testInstance *testing.T) {
	requireExecutable(testInstance, "echo")
	isolateConfiguration(testInstance)
	repositoryPath := initializeRepository(testInstance)

	outcome := executeApplication(testInstance, "", "run", "--workdir", repositoryPath, "--", "echo", "hello", "world")

	require.NoError(testInstance, outcome.executionError)
	require.Equal(testInstance, "hello world\n", outcome.standardOutput)
}

func TestRunCommandPropagatesExitStatus(testInstance *testing.T) {
	requireExecutable(testInstance, "false")
	isolateConfiguration(testInstance)

	outcome := executeApplication(testInstance, "", "run", "false")

	exitStatusError := cli.ExitStatusError{}
	require.True(testInstance, errors.As(outcome.executionError, &exitStatusError))
	require.Equal(testInstance, 1, exitStatusError.Code)
	require.Equal(testInstance, 1, cli.ExitCode(outcome.executionError))
	require.Empty(testInstance, cli.ErrorMessage(outcome.executionError))
}

func TestRunCommandRequireSuccessReportsFailure(testInstance *testing.T) {
	requireExecutable(testInstance, "false")
	isolateConfiguration(testInstance)

	outcome := executeApplication(testInstance, "", "run", "--require-success", "yes", "false")

	require.Equal(testInstance, 1, cli.ExitCode(outcome.executionError))
	require.Contains(testInstance, cli.ErrorMessage(outcome.executionError), "exit code 1")
}

func TestRunCommandRefusesShellInterpreters(testInstance *testing.T) {
	isolateConfiguration(testInstance)

	outcome := executeApplication(testInstance, "", "run", "--", "bash", "-c", "echo hi")

	require.Error(testInstance, outcome.executionError)
	require.Equal(testInstance, cli.ExitCodeSecurityRefusal, cli.ExitCode(outcome.executionError))
	require.Contains(testInstance, cli.ErrorMessage(outcome.executionError), "shell interpreter not allowed")
	require.Empty(testInstance, outcome.standardOutput)
}

func TestRunCommandAllowShellFlag(testInstance *testing.T) {
	requireExecutable(testInstance, "sh")
	isolateConfiguration(testInstance)

	outcome := executeApplication(testInstance, "", "--allow-shell", "yes", "run", "--", "sh", "-c", "printf allowed")

	require.NoError(testInstance, outcome.executionError)
	require.Equal(testInstance, "allowed", outcome.standardOutput)
}

func TestRunCommandMapsSignaledChildToFailure(testInstance *testing.T) {
	if runtime.GOOS == "windows" {
		testInstance.Skip("signals are unix specific")
	}
	requireExecutable(testInstance, "sh")
	isolateConfiguration(testInstance)

	outcome := executeApplication(testInstance, "", "--allow-shell", "yes", "run", "--", "sh", "-c", "kill -9 $$")

	require.Error(testInstance, outcome.executionError)
	require.Equal(testInstance, cli.ExitCodeFailure, cli.ExitCode(outcome.executionError))
}

func TestRunCommandRefusesNonRepositoryDirectory(testInstance *testing.T) {
	requireExecutable(testInstance, "pwd")
	isolateConfiguration(testInstance)
	plainDirectory := testInstance.TempDir()

	outcome := executeApplication(testInstance, "", "run", "--workdir", plainDirectory, "--", "pwd")

	require.Equal(testInstance, cli.ExitCodeSecurityRefusal, cli.ExitCode(outcome.executionError))
	require.Contains(testInstance, cli.ErrorMessage(outcome.executionError), "not a git repository")
}

func TestRunCommandForwardsEnvironmentAndInput(testInstance *testing.T) {
	requireExecutable(testInstance, "printenv")
	requireExecutable(testInstance, "cat")
	isolateConfiguration(testInstance)

	environmentOutcome := executeApplication(testInstance, "", "run", "--env", "GREETING=hi", "--", "printenv", "GREETING")
	require.NoError(testInstance, environmentOutcome.executionError)
	require.Equal(testInstance, "hi\n", environmentOutcome.standardOutput)

	inputOutcome := executeApplication(testInstance, "piped text", "run", "--stdin", "--", "cat")
	require.NoError(testInstance, inputOutcome.executionError)
	require.Equal(testInstance, "piped text", inputOutcome.standardOutput)
}

func TestRunCommandRejectsMalformedEnvironment(testInstance *testing.T) {
	isolateConfiguration(testInstance)

	outcome := executeApplication(testInstance, "", "run", "--env", "BROKEN", "--", "true")

	require.Error(testInstance, outcome.executionError)
	require.Equal(testInstance, cli.ExitCodeFailure, cli.ExitCode(outcome.executionError))
	require.Contains(testInstance, outcome.executionError.Error(), "expected KEY=VALUE")
}

func TestRunCommandRendersJSON(testInstance *testing.T) {
	requireExecutable(testInstance, "echo")
	isolateConfiguration(testInstance)

	outcome := executeApplication(testInstance, "", "run", "--output", "json", "--", "echo", "structured")
	require.NoError(testInstance, outcome.executionError)

	decoded := struct {
		Command      []string `json:"command"`
		Stdout       string   `json:"stdout"`
		ExitCode     int      `json:"exit_code"`
		InvocationID string   `json:"invocation_id"`
	}{}
	require.NoError(testInstance, json.Unmarshal([]byte(outcome.standardOutput), &decoded))
	require.Equal(testInstance, []string{"echo", "structured"}, decoded.Command)
	require.Equal(testInstance, "structured\n", decoded.Stdout)
	require.Zero(testInstance, decoded.ExitCode)
	require.NotEmpty(testInstance, decoded.InvocationID)
}

func TestRunCommandReportsTimeout(testInstance *testing.T) {
	requireExecutable(testInstance, "sleep")
	isolateConfiguration(testInstance)

	outcome := executeApplication(testInstance, "", "--timeout", "200ms", "run", "--", "sleep", "5")

	require.Error(testInstance, outcome.executionError)
	require.Equal(testInstance, cli.ExitCodeTimeout, cli.ExitCode(outcome.executionError))
}
