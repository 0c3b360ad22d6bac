package subprocess_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/require"

	"github.com/temirov/agentready/internal/execshell"
)

type recordingCommandRunner struct {
	mutex            sync.Mutex
	executionResult  execshell.ExecutionResult
	executionError   error
	recordedCommands []execshell.ShellCommand
}

func (runner *recordingCommandRunner) Run(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	runner.mutex.Lock()
	defer runner.mutex.Unlock()
	runner.recordedCommands = append(runner.recordedCommands, command)
	return runner.executionResult, runner.executionError
}

func (runner *recordingCommandRunner) commands() []execshell.ShellCommand {
	runner.mutex.Lock()
	defer runner.mutex.Unlock()
	return append([]execshell.ShellCommand{}, runner.recordedCommands...)
}

func initializeRepository(testInstance *testing.T, parentDirectory string, name string) string {
	testInstance.Helper()
	repositoryPath := filepath.Join(parentDirectory, name)
	require.NoError(testInstance, os.MkdirAll(repositoryPath, 0o755))
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

func staticHome(homeDirectory string) func() (string, error) {
	return func() (string, error) {
		return homeDirectory, nil
	}
}
