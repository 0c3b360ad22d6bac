package cli_test

import (
	"bytes"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/require"

	"github.com/temirov/agentready/cmd/cli"
)

type applicationOutcome struct {
	standardOutput string
	standardError  string
	executionError error
}

// isolateConfiguration keeps user level configuration and AGENTREADY variables out of a test.
func isolateConfiguration(testInstance *testing.T) string {
	testInstance.Helper()
	homeDirectory := testInstance.TempDir()
	testInstance.Setenv("HOME", homeDirectory)
	testInstance.Setenv("XDG_CONFIG_HOME", filepath.Join(homeDirectory, ".config"))
	return homeDirectory
}

func executeApplication(testInstance *testing.T, standardInput string, arguments ...string) applicationOutcome {
	testInstance.Helper()
	application := cli.NewApplication()

	standardOutput := &bytes.Buffer{}
	standardError := &bytes.Buffer{}
	rootCommand := application.RootCommand()
	rootCommand.SetOut(standardOutput)
	rootCommand.SetErr(standardError)
	rootCommand.SetIn(strings.NewReader(standardInput))

	executionError := application.ExecuteWithArguments(arguments)
	return applicationOutcome{
		standardOutput: standardOutput.String(),
		standardError:  standardError.String(),
		executionError: executionError,
	}
}

func initializeRepository(testInstance *testing.T) string {
	testInstance.Helper()
	repositoryPath := filepath.Join(testInstance.TempDir(), "project")
	_, initError := git.PlainInit(repositoryPath, false)
	require.NoError(testInstance, initError)
	resolvedPath, resolveError := filepath.EvalSymlinks(repositoryPath)
	require.NoError(testInstance, resolveError)
	return resolvedPath
}

func requireExecutable(testInstance *testing.T, executableName string) {
	testInstance.Helper()
	if runtime.GOOS == "windows" {
		testInstance.Skip("posix utilities required")
	}
	if _, lookupError := exec.LookPath(executableName); lookupError != nil {
		testInstance.Skipf("%s not available: %v", executableName, lookupError)
	}
}
