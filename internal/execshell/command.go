package execshell

import (
	"context"
	"time"
)

// CommandName identifies the executable of a shell command.
type CommandName string

// CommandDetails describes the arguments and environment of a command invocation.
type CommandDetails struct {
	Arguments            []string
	WorkingDirectory     string
	EnvironmentVariables map[string]string
	StandardInput        []byte
	// IsolateEnvironment starts from an empty environment instead of os.Environ.
	IsolateEnvironment bool
	// MaxOutputBytes caps each captured stream. Zero disables the cap.
	MaxOutputBytes int
}

// ShellCommand combines an executable name with its invocation details.
type ShellCommand struct {
	Name    CommandName
	Details CommandDetails
}

// ExecutionResult captures the observable results of executing a command.
type ExecutionResult struct {
	StandardOutput string
	StandardError  string
	ExitCode       int
	Duration       time.Duration
	Truncated      bool
}

// CommandRunner represents the ability to run shell commands.
type CommandRunner interface {
	Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error)
}
