package execshell

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	commandFailedErrorTemplateConstant         = "%s failed with exit code %d%s"
	commandExecutionErrorTemplateConstant      = "%s failed: %s"
	commandTimeoutErrorTemplateConstant        = "%s timed out after %s"
	commandCanceledErrorTemplateConstant       = "%s canceled: %s"
	loggerNotConfiguredMessageConstant         = "logger not configured"
	commandRunnerNotConfiguredMessageConstant  = "command runner not configured"
	commandFailedSentinelMessageConstant       = "command exited with non-zero status"
	commandExecutionSentinelMessageConstant    = "command execution failed"
	commandTimeoutSentinelMessageConstant      = "command timeout"
	commandNameNotConfiguredMessageConstant    = "command name not configured"
	errorStandardErrorSuffixTemplateConstant   = ": %s"
	errorUnknownFailureMessageConstant         = "unknown error"
	errorCommandLabelArgumentSeparatorConstant = " "
	errorCommandLabelUnknownExecutableConstant = "command"
)

var (
	// ErrLoggerNotConfigured indicates that a ShellExecutor was constructed without a logger.
	ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)
	// ErrCommandRunnerNotConfigured indicates that a ShellExecutor was constructed without a runner.
	ErrCommandRunnerNotConfigured = errors.New(commandRunnerNotConfiguredMessageConstant)
	// ErrCommandNameNotConfigured indicates that a command was submitted without an executable.
	ErrCommandNameNotConfigured = errors.New(commandNameNotConfiguredMessageConstant)
	// ErrCommandFailed matches CommandFailedError values.
	ErrCommandFailed = errors.New(commandFailedSentinelMessageConstant)
	// ErrCommandExecution matches CommandExecutionError values.
	ErrCommandExecution = errors.New(commandExecutionSentinelMessageConstant)
	// ErrCommandTimeout matches CommandTimeoutError values.
	ErrCommandTimeout = errors.New(commandTimeoutSentinelMessageConstant)
)

// MessageSanitizer rewrites diagnostic text before it leaves the executor.
type MessageSanitizer func(message string) string

// CommandFailedError reports a command that completed with a non-zero exit code.
type CommandFailedError struct {
	Command ShellCommand
	Result  ExecutionResult
	message string
}

// Error describes the failure including the trimmed standard error output.
func (failure CommandFailedError) Error() string {
	if len(failure.message) > 0 {
		return failure.message
	}
	return fmt.Sprintf(commandFailedErrorTemplateConstant, describeCommand(failure.Command), failure.Result.ExitCode, standardErrorSuffix(failure.Result.StandardError))
}

// Is reports whether target is ErrCommandFailed.
func (failure CommandFailedError) Is(target error) bool {
	return target == ErrCommandFailed
}

// CommandExecutionError reports a command that could not produce an execution result.
type CommandExecutionError struct {
	Command ShellCommand
	Cause   error
	message string
}

// Error describes the execution failure.
func (failure CommandExecutionError) Error() string {
	if len(failure.message) > 0 {
		return failure.message
	}
	return fmt.Sprintf(commandExecutionErrorTemplateConstant, describeCommand(failure.Command), describeCause(failure.Cause))
}

// Is reports whether target is ErrCommandExecution.
func (failure CommandExecutionError) Is(target error) bool {
	return target == ErrCommandExecution
}

// Unwrap exposes the underlying runner failure.
func (failure CommandExecutionError) Unwrap() error {
	return failure.Cause
}

// CommandTimeoutError reports a command that was terminated after exceeding its time budget
// or whose caller abandoned the execution context.
type CommandTimeoutError struct {
	Command  ShellCommand
	Timeout  time.Duration
	Canceled bool
	Cause    error
	// Result holds whatever output the command produced before it was killed.
	Result  ExecutionResult
	message string
}

// Error describes the timeout.
func (failure CommandTimeoutError) Error() string {
	if len(failure.message) > 0 {
		return failure.message
	}
	if failure.Canceled {
		return fmt.Sprintf(commandCanceledErrorTemplateConstant, describeCommand(failure.Command), describeCause(failure.Cause))
	}
	return fmt.Sprintf(commandTimeoutErrorTemplateConstant, describeCommand(failure.Command), failure.Timeout)
}

// Is reports whether target is ErrCommandTimeout.
func (failure CommandTimeoutError) Is(target error) bool {
	return target == ErrCommandTimeout
}

// Unwrap exposes the context error that ended the command.
func (failure CommandTimeoutError) Unwrap() error {
	return failure.Cause
}

func describeCommand(command ShellCommand) string {
	executable := strings.TrimSpace(string(command.Name))
	if len(executable) == 0 {
		return errorCommandLabelUnknownExecutableConstant
	}
	commandParts := append([]string{executable}, command.Details.Arguments...)
	return strings.Join(commandParts, errorCommandLabelArgumentSeparatorConstant)
}

func describeCause(cause error) string {
	if cause == nil {
		return errorUnknownFailureMessageConstant
	}
	return cause.Error()
}

func standardErrorSuffix(standardError string) string {
	trimmedStandardError := strings.TrimSpace(standardError)
	if len(trimmedStandardError) == 0 {
		return ""
	}
	return fmt.Sprintf(errorStandardErrorSuffixTemplateConstant, trimmedStandardError)
}
