package execshell

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const (
	logFieldExitCodeConstant        = "exit_code"
	logFieldDurationConstant        = "duration"
	logFieldTimeoutConstant         = "timeout"
	logFieldTruncatedConstant       = "output_truncated"
	processSlotWaitFailureTemplate  = "waiting for a process slot: %w"
	defaultExecutorTimeoutConstant  = 2 * time.Minute
	defaultProcessSlotCountConstant = 8
)

// ShellExecutorOption customizes a ShellExecutor during construction.
type ShellExecutorOption func(*ShellExecutor)

// WithCommandEventObserver registers an observer notified about every command lifecycle event.
func WithCommandEventObserver(observer CommandEventObserver) ShellExecutorOption {
	return func(executor *ShellExecutor) {
		if observer == nil {
			return
		}
		executor.observers = append(executor.observers, observer)
	}
}

// WithCommandMessageSanitizer installs a factory producing the sanitizer for each command,
// so that command specific values such as the working directory can be scrubbed.
func WithCommandMessageSanitizer(factory func(command ShellCommand) MessageSanitizer) ShellExecutorOption {
	return func(executor *ShellExecutor) {
		executor.sanitizerFactory = factory
	}
}

// WithDefaultTimeout sets the time budget used when a caller does not supply one.
func WithDefaultTimeout(timeout time.Duration) ShellExecutorOption {
	return func(executor *ShellExecutor) {
		if timeout > 0 {
			executor.defaultTimeout = timeout
		}
	}
}

// WithMaxConcurrentProcesses bounds the number of child processes running at once.
func WithMaxConcurrentProcesses(processCount int) ShellExecutorOption {
	return func(executor *ShellExecutor) {
		if processCount > 0 {
			executor.processSlots = semaphore.NewWeighted(int64(processCount))
		}
	}
}

// ShellExecutor runs commands through a CommandRunner with logging, timeouts and process slot limits.
type ShellExecutor struct {
	logger           *zap.Logger
	runner           CommandRunner
	observers        compositeCommandEventObserver
	sanitizerFactory func(command ShellCommand) MessageSanitizer
	processSlots     *semaphore.Weighted
	defaultTimeout   time.Duration
}

// NewShellExecutor constructs a ShellExecutor around the provided logger and runner.
func NewShellExecutor(logger *zap.Logger, runner CommandRunner, options ...ShellExecutorOption) (*ShellExecutor, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if runner == nil {
		return nil, ErrCommandRunnerNotConfigured
	}

	executor := &ShellExecutor{
		logger:         logger,
		runner:         runner,
		processSlots:   semaphore.NewWeighted(defaultProcessSlotCountConstant),
		defaultTimeout: defaultExecutorTimeoutConstant,
	}
	for _, option := range options {
		if option != nil {
			option(executor)
		}
	}
	return executor, nil
}

// Execute runs the command within the executor's default timeout.
func (executor *ShellExecutor) Execute(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	return executor.ExecuteWithTimeout(executionContext, command, executor.defaultTimeout)
}

// ExecuteWithTimeout runs the command and terminates it once timeout elapses.
//
// A non-zero exit code yields the execution result together with a
// CommandFailedError. Exceeding the timeout or abandoning executionContext
// yields a CommandTimeoutError; runner failures yield a CommandExecutionError.
func (executor *ShellExecutor) ExecuteWithTimeout(executionContext context.Context, command ShellCommand, timeout time.Duration) (ExecutionResult, error) {
	if executionContext == nil {
		executionContext = context.Background()
	}
	if timeout <= 0 {
		timeout = executor.defaultTimeout
	}

	timeoutContext, cancel := context.WithTimeout(executionContext, timeout)
	defer cancel()

	formatter := CommandMessageFormatter{Sanitizer: executor.sanitizerFor(command)}

	executor.observers.CommandStarted(command)
	executor.logger.Debug(formatter.BuildStartedMessage(command))

	if acquireError := executor.processSlots.Acquire(timeoutContext, 1); acquireError != nil {
		timeoutError := newTimeoutError(formatter, command, timeout, timeoutContext, fmt.Errorf(processSlotWaitFailureTemplate, acquireError))
		executor.reportExecutionFailure(formatter, command, timeoutError)
		return ExecutionResult{}, timeoutError
	}
	defer executor.processSlots.Release(1)

	executionResult, runError := executor.runner.Run(timeoutContext, command)
	if timeoutContext.Err() != nil {
		timeoutError := newTimeoutError(formatter, command, timeout, timeoutContext, timeoutContext.Err())
		timeoutError.Result = executionResult
		executor.reportExecutionFailure(formatter, command, timeoutError)
		return executionResult, timeoutError
	}

	if runError != nil {
		executionError := CommandExecutionError{Command: command, Cause: runError}
		executionError.message = formatter.sanitize(executionError.Error())
		executor.reportExecutionFailure(formatter, command, executionError)
		return ExecutionResult{}, executionError
	}

	executor.observers.CommandCompleted(command, executionResult)

	if executionResult.ExitCode != 0 {
		executor.logger.Warn(
			formatter.BuildFailureMessage(command, executionResult),
			zap.Int(logFieldExitCodeConstant, executionResult.ExitCode),
			zap.Duration(logFieldDurationConstant, executionResult.Duration),
			zap.Bool(logFieldTruncatedConstant, executionResult.Truncated),
		)
		failedError := CommandFailedError{Command: command, Result: executionResult}
		failedError.message = formatter.sanitize(failedError.Error())
		return executionResult, failedError
	}

	executor.logger.Info(
		formatter.BuildSuccessMessage(command),
		zap.Duration(logFieldDurationConstant, executionResult.Duration),
		zap.Bool(logFieldTruncatedConstant, executionResult.Truncated),
	)

	return executionResult, nil
}

func newTimeoutError(formatter CommandMessageFormatter, command ShellCommand, timeout time.Duration, timeoutContext context.Context, cause error) CommandTimeoutError {
	timeoutError := CommandTimeoutError{
		Command:  command,
		Timeout:  timeout,
		Canceled: errors.Is(timeoutContext.Err(), context.Canceled),
		Cause:    cause,
	}
	timeoutError.message = formatter.sanitize(timeoutError.Error())
	return timeoutError
}

func (executor *ShellExecutor) reportExecutionFailure(formatter CommandMessageFormatter, command ShellCommand, failure error) {
	executor.observers.CommandExecutionFailed(command, failure)

	fields := []zap.Field{}
	timeoutError := CommandTimeoutError{}
	if errors.As(failure, &timeoutError) {
		fields = append(fields, zap.Duration(logFieldTimeoutConstant, timeoutError.Timeout))
	}
	executor.logger.Error(formatter.BuildExecutionFailureMessage(command, failure), fields...)
}

func (executor *ShellExecutor) sanitizerFor(command ShellCommand) MessageSanitizer {
	if executor.sanitizerFactory == nil {
		return nil
	}
	return executor.sanitizerFactory(command)
}
