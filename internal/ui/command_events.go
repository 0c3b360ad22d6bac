package ui

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/temirov/agentready/internal/execshell"
)

const (
	commandTimedOutMessageTemplateConstant = "%s timed out after %s"
	commandCanceledMessageTemplateConstant = "%s was canceled"
	truncatedOutputSuffixConstant          = " (output truncated)"
)

// ConsoleCommandEventLogger renders command lifecycle events using a zap logger configured for human-readable output.
type ConsoleCommandEventLogger struct {
	logger    *zap.Logger
	formatter execshell.CommandMessageFormatter
}

// NewConsoleCommandEventLogger constructs a console event logger backed by the provided zap logger.
// Every rendered message passes through sanitizer when it is not nil.
func NewConsoleCommandEventLogger(logger *zap.Logger, sanitizer execshell.MessageSanitizer) *ConsoleCommandEventLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleCommandEventLogger{logger: logger, formatter: execshell.CommandMessageFormatter{Sanitizer: sanitizer}}
}

// CommandStarted implements execshell.CommandEventObserver by logging command start notifications.
func (eventLogger *ConsoleCommandEventLogger) CommandStarted(command execshell.ShellCommand) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Info(eventLogger.formatter.BuildStartedMessage(command))
}

// CommandCompleted implements execshell.CommandEventObserver by logging command completion notifications.
func (eventLogger *ConsoleCommandEventLogger) CommandCompleted(command execshell.ShellCommand, result execshell.ExecutionResult) {
	if eventLogger == nil {
		return
	}
	suffix := ""
	if result.Truncated {
		suffix = truncatedOutputSuffixConstant
	}
	if result.ExitCode == 0 {
		eventLogger.logger.Info(eventLogger.formatter.BuildSuccessMessage(command) + suffix)
		return
	}
	eventLogger.logger.Warn(eventLogger.formatter.BuildFailureMessage(command, result) + suffix)
}

// CommandExecutionFailed implements execshell.CommandEventObserver.
// Timeouts and cancellations get their own wording; other failures include the cause.
func (eventLogger *ConsoleCommandEventLogger) CommandExecutionFailed(command execshell.ShellCommand, failure error) {
	if eventLogger == nil {
		return
	}

	timeoutError := execshell.CommandTimeoutError{}
	if errors.As(failure, &timeoutError) {
		commandLabel := eventLogger.formatter.BuildCommandLabel(command)
		if timeoutError.Canceled {
			eventLogger.logger.Warn(fmt.Sprintf(commandCanceledMessageTemplateConstant, commandLabel))
			return
		}
		eventLogger.logger.Error(fmt.Sprintf(commandTimedOutMessageTemplateConstant, commandLabel, timeoutError.Timeout))
		return
	}

	eventLogger.logger.Error(eventLogger.formatter.BuildExecutionFailureMessage(command, failure))
}
