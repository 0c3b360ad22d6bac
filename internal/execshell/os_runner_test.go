package execshell_test

import (
	"context"
	"os/exec"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/agentready/internal/execshell"
)

func requireExecutable(testInstance *testing.T, executableName string) string {
	testInstance.Helper()
	if runtime.GOOS == "windows" {
		testInstance.Skip("posix utilities required")
	}
	executablePath, lookupError := exec.LookPath(executableName)
	if lookupError != nil {
		testInstance.Skipf("%s not available: %v", executableName, lookupError)
	}
	return executablePath
}

func TestOSCommandRunnerCapturesOutputAndExitCode(testInstance *testing.T) {
	requireExecutable(testInstance, "sh")
	requireExecutable(testInstance, "echo")

	testCases := []struct {
		name             string
		command          execshell.ShellCommand
		expectedOutput   string
		expectedExitCode int
	}{
		{
			name:             "echo",
			command:          execshell.ShellCommand{Name: "echo", Details: execshell.CommandDetails{Arguments: []string{"hello", "$(whoami)"}}},
			expectedOutput:   "hello $(whoami)\n",
			expectedExitCode: 0,
		},
		{
			name:             "non_zero_exit",
			command:          execshell.ShellCommand{Name: "sh", Details: execshell.CommandDetails{Arguments: []string{"-c", "exit 3"}}},
			expectedExitCode: 3,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			runner := execshell.NewOSCommandRunner()
			executionResult, runError := runner.Run(context.Background(), testCase.command)
			require.NoError(testInstance, runError)
			require.Equal(testInstance, testCase.expectedExitCode, executionResult.ExitCode)
			require.Equal(testInstance, testCase.expectedOutput, executionResult.StandardOutput)
		})
	}
}

func TestOSCommandRunnerRejectsEmptyName(testInstance *testing.T) {
	runner := execshell.NewOSCommandRunner()
	_, runError := runner.Run(context.Background(), execshell.ShellCommand{})
	require.ErrorIs(testInstance, runError, execshell.ErrCommandNameNotConfigured)
}

func TestOSCommandRunnerReportsMissingExecutable(testInstance *testing.T) {
	runner := execshell.NewOSCommandRunner()
	_, runError := runner.Run(context.Background(), execshell.ShellCommand{Name: "agentready-definitely-missing-binary"})
	require.Error(testInstance, runError)
}

func TestOSCommandRunnerTruncatesOutput(testInstance *testing.T) {
	requireExecutable(testInstance, "sh")

	runner := execshell.NewOSCommandRunner()
	executionResult, runError := runner.Run(context.Background(), execshell.ShellCommand{
		Name: "sh",
		Details: execshell.CommandDetails{
			Arguments:      []string{"-c", "printf 0123456789abcdef"},
			MaxOutputBytes: 4,
		},
	})
	require.NoError(testInstance, runError)
	require.Equal(testInstance, "0123", executionResult.StandardOutput)
	require.True(testInstance, executionResult.Truncated)
}

func TestOSCommandRunnerPassesStandardInputAndEnvironment(testInstance *testing.T) {
	requireExecutable(testInstance, "sh")

	runner := execshell.NewOSCommandRunner()
	executionResult, runError := runner.Run(context.Background(), execshell.ShellCommand{
		Name: "sh",
		Details: execshell.CommandDetails{
			Arguments:            []string{"-c", "read line; printf '%s-%s' \"$line\" \"$AGENTREADY_TEST_VALUE\""},
			StandardInput:        []byte("input\n"),
			EnvironmentVariables: map[string]string{"AGENTREADY_TEST_VALUE": "env"},
		},
	})
	require.NoError(testInstance, runError)
	require.Equal(testInstance, "input-env", executionResult.StandardOutput)
}

func TestOSCommandRunnerIsolatesEnvironment(testInstance *testing.T) {
	requireExecutable(testInstance, "env")
	testInstance.Setenv("AGENTREADY_LEAKED_VALUE", "leaked")

	executablePath := requireExecutable(testInstance, "env")
	runner := execshell.NewOSCommandRunner()
	executionResult, runError := runner.Run(context.Background(), execshell.ShellCommand{
		Name: execshell.CommandName(executablePath),
		Details: execshell.CommandDetails{
			IsolateEnvironment:   true,
			EnvironmentVariables: map[string]string{"KEPT": "1"},
		},
	})
	require.NoError(testInstance, runError)
	require.NotContains(testInstance, executionResult.StandardOutput, "AGENTREADY_LEAKED_VALUE")
	require.Equal(testInstance, "KEPT=1", strings.TrimSpace(executionResult.StandardOutput))
}

func TestOSCommandRunnerKillsProcessGroupOnTimeout(testInstance *testing.T) {
	requireExecutable(testInstance, "sh")
	requireExecutable(testInstance, "sleep")

	runner := execshell.NewOSCommandRunner()
	executionContext, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	startedAt := time.Now()
	executionResult, runError := runner.Run(executionContext, execshell.ShellCommand{
		Name:    "sh",
		Details: execshell.CommandDetails{Arguments: []string{"-c", "sleep 30 & sleep 30"}},
	})
	require.ErrorIs(testInstance, runError, context.DeadlineExceeded)
	require.Equal(testInstance, -1, executionResult.ExitCode)
	require.Less(testInstance, time.Since(startedAt), 10*time.Second)
}
