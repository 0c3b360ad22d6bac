package subprocess

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/temirov/agentready/internal/execshell"
	pathutils "github.com/temirov/agentready/internal/utils/path"
)

const (
	tracerNameConstant              = "github.com/temirov/agentready/pkg/subprocess"
	runSpanNameConstant             = "subprocess.run"
	logFieldInvocationIDConstant    = "invocation_id"
	logFieldExecutableConstant      = "executable"
	logFieldExitCodeConstant        = "exit_code"
	logFieldDurationConstant        = "duration"
	logFieldReasonConstant          = "reason"
	logFieldTruncatedConstant       = "output_truncated"
	securityRejectionMessage        = "subprocess refused"
	runFinishedMessage              = "subprocess finished"
	runFailedMessage                = "subprocess failed"
	spanAttributeInvocationConstant = "agentready.invocation_id"
	spanAttributeExecutableConstant = "agentready.executable"
	spanAttributeExitCodeConstant   = "agentready.exit_code"
	spanAttributeTimeoutConstant    = "agentready.timeout"
)

// Invocation describes one process to run.
type Invocation struct {
	// Command holds the executable followed by its arguments. Each element reaches the process unchanged.
	Command []string
	// WorkingDirectory is validated as a repository path unless the execution policy skips validation.
	WorkingDirectory string
	// EnvironmentVariables are added to, and take precedence over, the inherited environment.
	EnvironmentVariables map[string]string
	StandardInput        []byte
	// Timeout overrides the configured timeout when positive.
	Timeout time.Duration
	// RequireSuccess turns a non-zero exit code into an error wrapping ErrCommandFailed.
	RequireSuccess bool
}

// Result captures a finished process.
type Result struct {
	Command          []string      `json:"command" yaml:"command"`
	WorkingDirectory string        `json:"working_directory,omitempty" yaml:"working_directory,omitempty"`
	StandardOutput   string        `json:"stdout" yaml:"stdout"`
	StandardError    string        `json:"stderr" yaml:"stderr"`
	ExitCode         int           `json:"exit_code" yaml:"exit_code"`
	Duration         time.Duration `json:"duration" yaml:"duration"`
	Truncated        bool          `json:"truncated" yaml:"truncated"`
	InvocationID     string        `json:"invocation_id" yaml:"invocation_id"`
}

// FacadeOption customizes a Facade during construction.
type FacadeOption func(*facadeSettings)

type facadeSettings struct {
	logger                *zap.Logger
	runner                execshell.CommandRunner
	observers             []execshell.CommandEventObserver
	tracerProvider        trace.TracerProvider
	homeDirectoryProvider pathutils.HomeDirectoryProvider
}

// WithLogger sets the logger receiving execution events. The default discards them.
func WithLogger(logger *zap.Logger) FacadeOption {
	return func(settings *facadeSettings) {
		settings.logger = logger
	}
}

// WithCommandRunner replaces the operating system runner.
func WithCommandRunner(runner execshell.CommandRunner) FacadeOption {
	return func(settings *facadeSettings) {
		settings.runner = runner
	}
}

// WithCommandEventObserver registers an observer for process lifecycle events.
func WithCommandEventObserver(observer execshell.CommandEventObserver) FacadeOption {
	return func(settings *facadeSettings) {
		settings.observers = append(settings.observers, observer)
	}
}

// WithTracerProvider sets the provider used for run spans. The default is the global provider.
func WithTracerProvider(tracerProvider trace.TracerProvider) FacadeOption {
	return func(settings *facadeSettings) {
		settings.tracerProvider = tracerProvider
	}
}

// WithHomeDirectoryProvider overrides the home directory lookup used for ~ expansion and sanitization.
func WithHomeDirectoryProvider(provider pathutils.HomeDirectoryProvider) FacadeOption {
	return func(settings *facadeSettings) {
		settings.homeDirectoryProvider = provider
	}
}

// Facade runs processes under a fixed Configuration. It is safe for concurrent use.
type Facade struct {
	configuration Configuration
	logger        *zap.Logger
	executor      *execshell.ShellExecutor
	sanitizer     *Sanitizer
	validator     repositoryValidator
	policy        commandPolicy
	homeExpander  *pathutils.HomeExpander
	tracer        trace.Tracer
}

// NewFacade validates configuration and constructs a Facade.
func NewFacade(configuration Configuration, options ...FacadeOption) (*Facade, error) {
	settings := facadeSettings{}
	for _, option := range options {
		if option != nil {
			option(&settings)
		}
	}
	if settings.logger == nil {
		settings.logger = zap.NewNop()
	}
	if settings.runner == nil {
		settings.runner = execshell.NewOSCommandRunner()
	}
	if settings.tracerProvider == nil {
		settings.tracerProvider = otel.GetTracerProvider()
	}

	normalizedConfiguration := configuration.normalized()
	homeExpander := pathutils.NewHomeExpanderWithProvider(settings.homeDirectoryProvider)

	sanitizer, sanitizerError := NewSanitizer(normalizedConfiguration.Sanitization, homeExpander)
	if sanitizerError != nil {
		return nil, sanitizerError
	}

	executorOptions := []execshell.ShellExecutorOption{
		execshell.WithCommandMessageSanitizer(func(command execshell.ShellCommand) execshell.MessageSanitizer {
			return func(message string) string {
				return sanitizer.SanitizeMessage(message, command.Details.WorkingDirectory)
			}
		}),
		execshell.WithDefaultTimeout(normalizedConfiguration.Execution.Timeout),
		execshell.WithMaxConcurrentProcesses(normalizedConfiguration.Execution.MaxConcurrentProcesses),
	}
	for _, observer := range settings.observers {
		executorOptions = append(executorOptions, execshell.WithCommandEventObserver(observer))
	}

	executor, executorError := execshell.NewShellExecutor(settings.logger, settings.runner, executorOptions...)
	if executorError != nil {
		return nil, newInvalidConfigurationError(executorError)
	}

	return &Facade{
		configuration: normalizedConfiguration,
		logger:        settings.logger,
		executor:      executor,
		sanitizer:     sanitizer,
		validator:     newRepositoryValidator(normalizedConfiguration.Repository, homeExpander, sanitizer),
		policy:        newCommandPolicy(normalizedConfiguration.Execution),
		homeExpander:  homeExpander,
		tracer:        settings.tracerProvider.Tracer(tracerNameConstant),
	}, nil
}

// Configuration returns the normalized configuration the Facade enforces.
func (facade *Facade) Configuration() Configuration {
	return facade.configuration.normalized()
}

// Timeout returns the time budget applied to invocations without their own.
func (facade *Facade) Timeout() time.Duration {
	return facade.configuration.Execution.Timeout
}

// ValidateRepositoryPath checks that path names an accessible repository directory
// outside sensitive system locations and inside the allowed roots, and returns it
// resolved to an absolute path without symbolic links. It never spawns a process.
func (facade *Facade) ValidateRepositoryPath(path string) (string, error) {
	return facade.validator.validate(path)
}

// SanitizeError returns the text of failure with repository paths, the home
// directory, credentials and control characters scrubbed.
func (facade *Facade) SanitizeError(failure error, repositoryPaths ...string) string {
	return facade.sanitizer.SanitizeError(failure, repositoryPaths...)
}

// SanitizeMessage scrubs free-form diagnostic text the same way SanitizeError does.
func (facade *Facade) SanitizeMessage(message string, repositoryPaths ...string) string {
	return facade.sanitizer.SanitizeMessage(message, repositoryPaths...)
}

// Run executes invocation without a shell.
//
// Security checks run first and fail with a SecurityError before any process
// exists. The process is killed together with its process group when the
// timeout elapses or executionContext ends, and the returned error then wraps
// ErrTimeout. A non-zero exit code is reported through Result.ExitCode and only
// becomes an error when RequireSuccess is set. Every returned error carries sanitized text.
func (facade *Facade) Run(executionContext context.Context, invocation Invocation) (Result, error) {
	if executionContext == nil {
		executionContext = context.Background()
	}

	invocationID := uuid.NewString()
	result := Result{
		Command:      append([]string{}, invocation.Command...),
		InvocationID: invocationID,
	}
	executableName := ""
	if len(invocation.Command) > 0 {
		executableName = executableBaseName(invocation.Command[0])
	}

	timeout := invocation.Timeout
	if timeout <= 0 {
		timeout = facade.configuration.Execution.Timeout
	}

	spanContext, span := facade.tracer.Start(executionContext, runSpanNameConstant, trace.WithAttributes(
		attribute.String(spanAttributeInvocationConstant, invocationID),
		attribute.String(spanAttributeExecutableConstant, facade.sanitizer.SanitizeMessage(executableName)),
		attribute.String(spanAttributeTimeoutConstant, timeout.String()),
	))
	defer span.End()

	logger := facade.logger.With(
		zap.String(logFieldInvocationIDConstant, invocationID),
		zap.String(logFieldExecutableConstant, facade.sanitizer.SanitizeMessage(executableName)),
	)

	workingDirectory, preparationError := facade.prepare(invocation)
	if preparationError != nil {
		securityError := SecurityError{}
		if errors.As(preparationError, &securityError) {
			logger.Warn(securityRejectionMessage, zap.String(logFieldReasonConstant, string(securityError.Reason)))
		}
		recordSpanError(span, preparationError)
		return result, preparationError
	}
	result.WorkingDirectory = workingDirectory

	command := execshell.ShellCommand{
		Name: execshell.CommandName(invocation.Command[0]),
		Details: execshell.CommandDetails{
			Arguments:            append([]string{}, invocation.Command[1:]...),
			WorkingDirectory:     workingDirectory,
			EnvironmentVariables: facade.buildEnvironment(invocation.EnvironmentVariables),
			StandardInput:        invocation.StandardInput,
			IsolateEnvironment:   facade.configuration.Execution.IsolateEnvironment,
			MaxOutputBytes:       facade.configuration.Execution.MaxOutputBytes,
		},
	}

	executionResult, executionError := facade.executor.ExecuteWithTimeout(spanContext, command, timeout)
	result.StandardOutput = executionResult.StandardOutput
	result.StandardError = executionResult.StandardError
	result.ExitCode = executionResult.ExitCode
	result.Duration = executionResult.Duration
	result.Truncated = executionResult.Truncated
	span.SetAttributes(attribute.Int(spanAttributeExitCodeConstant, result.ExitCode))

	if executionError != nil && errors.Is(executionError, ErrCommandFailed) && !invocation.RequireSuccess {
		executionError = nil
	}
	if executionError != nil {
		sanitized := sanitizedError{
			message: facade.sanitizer.SanitizeError(executionError, workingDirectory),
			cause:   executionError,
		}
		logger.Debug(runFailedMessage, zap.String(logFieldReasonConstant, sanitized.message))
		recordSpanError(span, sanitized)
		return result, sanitized
	}

	logger.Debug(runFinishedMessage,
		zap.Int(logFieldExitCodeConstant, result.ExitCode),
		zap.Duration(logFieldDurationConstant, result.Duration),
		zap.Bool(logFieldTruncatedConstant, result.Truncated),
	)
	return result, nil
}

// prepare runs every security check and returns the working directory to use.
func (facade *Facade) prepare(invocation Invocation) (string, error) {
	if reason, subject := facade.policy.check(invocation.Command, invocation.EnvironmentVariables); len(reason) > 0 {
		return "", SecurityError{
			Operation: OperationRun,
			Reason:    reason,
			Subject:   facade.sanitizer.SanitizeMessage(subject, invocation.WorkingDirectory),
		}
	}

	if len(invocation.WorkingDirectory) == 0 {
		return "", nil
	}
	if facade.configuration.Execution.SkipWorkingDirectoryValidation {
		return pathutils.CanonicalizePath(facade.homeExpander.Expand(invocation.WorkingDirectory)), nil
	}

	validatedDirectory, validationError := facade.validator.validate(invocation.WorkingDirectory)
	if validationError != nil {
		return "", validationError
	}
	return validatedDirectory, nil
}

// buildEnvironment returns the variables layered over the inherited or isolated environment.
func (facade *Facade) buildEnvironment(invocationVariables map[string]string) map[string]string {
	environment := map[string]string{}
	if facade.configuration.Execution.IsolateEnvironment {
		passthroughNames := append(append([]string{}, defaultEnvironmentPassthrough...), facade.configuration.Execution.EnvironmentPassthrough...)
		for _, variableName := range passthroughNames {
			if variableValue, isSet := os.LookupEnv(variableName); isSet {
				environment[variableName] = variableValue
			}
		}
	}
	for variableName, variableValue := range invocationVariables {
		environment[variableName] = variableValue
	}
	if len(environment) == 0 {
		return nil
	}
	return environment
}

func recordSpanError(span trace.Span, failure error) {
	span.RecordError(failure)
	span.SetStatus(codes.Error, failure.Error())
}
