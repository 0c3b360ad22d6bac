package execshell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"time"
)

const (
	environmentAssignmentSeparatorConstant = "="
	environmentAssignmentTemplateConstant  = "%s%s%s"
	processWaitDelayConstant               = 2 * time.Second
	unknownExitCodeConstant                = -1
)

// OSCommandRunner executes commands using the operating system facilities.
// The executable receives its arguments as discrete tokens; no shell is involved.
type OSCommandRunner struct{}

// NewOSCommandRunner constructs a runner backed by os/exec.
func NewOSCommandRunner() *OSCommandRunner {
	return &OSCommandRunner{}
}

// Run executes the supplied command using os/exec.
//
// When executionContext ends before the process exits, the process and its
// children are killed and reaped, and the context error is returned along with
// any output captured so far.
func (runner *OSCommandRunner) Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	if len(command.Name) == 0 {
		return ExecutionResult{}, ErrCommandNameNotConfigured
	}

	commandArguments := append([]string{}, command.Details.Arguments...)
	executable := exec.CommandContext(executionContext, string(command.Name), commandArguments...)
	configureProcessTermination(executable)
	executable.WaitDelay = processWaitDelayConstant

	if len(command.Details.WorkingDirectory) > 0 {
		executable.Dir = command.Details.WorkingDirectory
	}

	executable.Env = buildEnvironment(command.Details)

	standardOutputBuffer := newLimitedBuffer(command.Details.MaxOutputBytes)
	standardErrorBuffer := newLimitedBuffer(command.Details.MaxOutputBytes)
	executable.Stdout = standardOutputBuffer
	executable.Stderr = standardErrorBuffer

	if len(command.Details.StandardInput) > 0 {
		executable.Stdin = bytes.NewReader(command.Details.StandardInput)
	}

	startedAt := time.Now()
	runError := executable.Run()
	result := ExecutionResult{
		StandardOutput: standardOutputBuffer.String(),
		StandardError:  standardErrorBuffer.String(),
		Duration:       time.Since(startedAt),
		Truncated:      standardOutputBuffer.Truncated() || standardErrorBuffer.Truncated(),
	}

	if contextError := executionContext.Err(); contextError != nil {
		result.ExitCode = unknownExitCodeConstant
		return result, contextError
	}

	if runError != nil {
		exitError := &exec.ExitError{}
		if errors.As(runError, &exitError) {
			result.ExitCode = exitError.ExitCode()
			return result, nil
		}
		return ExecutionResult{}, runError
	}

	return result, nil
}

// buildEnvironment returns nil to inherit the parent environment unchanged.
func buildEnvironment(details CommandDetails) []string {
	if len(details.EnvironmentVariables) == 0 && !details.IsolateEnvironment {
		return nil
	}

	mergedEnvironment := []string{}
	if !details.IsolateEnvironment {
		mergedEnvironment = append(mergedEnvironment, os.Environ()...)
	}

	environmentKeys := make([]string, 0, len(details.EnvironmentVariables))
	for environmentKey := range details.EnvironmentVariables {
		environmentKeys = append(environmentKeys, environmentKey)
	}
	sort.Strings(environmentKeys)

	for _, environmentKey := range environmentKeys {
		mergedEnvironment = append(mergedEnvironment, fmt.Sprintf(environmentAssignmentTemplateConstant, environmentKey, environmentAssignmentSeparatorConstant, details.EnvironmentVariables[environmentKey]))
	}
	return mergedEnvironment
}
