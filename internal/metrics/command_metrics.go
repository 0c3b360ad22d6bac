package metrics

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/temirov/agentready/internal/execshell"
)

const (
	metricsNamespaceConstant           = "agentready"
	metricsSubsystemConstant           = "subprocess"
	executableLabelConstant            = "executable"
	outcomeLabelConstant               = "outcome"
	outcomeSuccessConstant             = "success"
	outcomeNonZeroExitConstant         = "non_zero_exit"
	outcomeTimeoutConstant             = "timeout"
	outcomeCanceledConstant            = "canceled"
	outcomeErrorConstant               = "error"
	unknownExecutableLabelConstant     = "unknown"
	writeTextfileErrorTemplateConstant = "write metrics textfile: %w"
)

// ErrTextfilePathNotConfigured indicates WriteTextfile was called without a destination.
var ErrTextfilePathNotConfigured = errors.New("metrics textfile path not configured")

// CommandMetrics counts subprocess executions by executable and outcome.
type CommandMetrics struct {
	registry         *prometheus.Registry
	startedTotal     *prometheus.CounterVec
	finishedTotal    *prometheus.CounterVec
	truncatedTotal   *prometheus.CounterVec
	durationSeconds  *prometheus.HistogramVec
	runningProcesses prometheus.Gauge
}

// NewCommandMetrics registers the subprocess metrics on a fresh registry.
func NewCommandMetrics() *CommandMetrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &CommandMetrics{
		registry: registry,
		startedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespaceConstant,
			Subsystem: metricsSubsystemConstant,
			Name:      "started_total",
			Help:      "Subprocess executions submitted.",
		}, []string{executableLabelConstant}),
		finishedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespaceConstant,
			Subsystem: metricsSubsystemConstant,
			Name:      "finished_total",
			Help:      "Subprocess executions finished, by outcome.",
		}, []string{executableLabelConstant, outcomeLabelConstant}),
		truncatedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespaceConstant,
			Subsystem: metricsSubsystemConstant,
			Name:      "output_truncated_total",
			Help:      "Subprocess executions whose captured output exceeded the cap.",
		}, []string{executableLabelConstant}),
		durationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespaceConstant,
			Subsystem: metricsSubsystemConstant,
			Name:      "duration_seconds",
			Help:      "Wall clock duration of completed subprocess executions.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 4, 9),
		}, []string{executableLabelConstant}),
		runningProcesses: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespaceConstant,
			Subsystem: metricsSubsystemConstant,
			Name:      "running",
			Help:      "Subprocess executions currently in flight.",
		}),
	}
}

// Registry exposes the registry holding the subprocess metrics.
func (commandMetrics *CommandMetrics) Registry() *prometheus.Registry {
	return commandMetrics.registry
}

// CommandStarted records a submitted command.
func (commandMetrics *CommandMetrics) CommandStarted(command execshell.ShellCommand) {
	commandMetrics.startedTotal.WithLabelValues(executableLabel(command)).Inc()
	commandMetrics.runningProcesses.Inc()
}

// CommandCompleted records a command that produced an exit code.
func (commandMetrics *CommandMetrics) CommandCompleted(command execshell.ShellCommand, result execshell.ExecutionResult) {
	executable := executableLabel(command)
	commandMetrics.runningProcesses.Dec()

	outcome := outcomeSuccessConstant
	if result.ExitCode != 0 {
		outcome = outcomeNonZeroExitConstant
	}
	commandMetrics.finishedTotal.WithLabelValues(executable, outcome).Inc()
	commandMetrics.durationSeconds.WithLabelValues(executable).Observe(result.Duration.Seconds())
	if result.Truncated {
		commandMetrics.truncatedTotal.WithLabelValues(executable).Inc()
	}
}

// CommandExecutionFailed records a command that timed out, was canceled or could not start.
func (commandMetrics *CommandMetrics) CommandExecutionFailed(command execshell.ShellCommand, failure error) {
	commandMetrics.runningProcesses.Dec()
	commandMetrics.finishedTotal.WithLabelValues(executableLabel(command), failureOutcome(failure)).Inc()
}

// WriteTextfile atomically writes the current metric values in the text exposition format.
func (commandMetrics *CommandMetrics) WriteTextfile(textfilePath string) error {
	if len(textfilePath) == 0 {
		return ErrTextfilePathNotConfigured
	}
	if writeError := prometheus.WriteToTextfile(textfilePath, commandMetrics.registry); writeError != nil {
		return fmt.Errorf(writeTextfileErrorTemplateConstant, writeError)
	}
	return nil
}

func failureOutcome(failure error) string {
	timeoutError := execshell.CommandTimeoutError{}
	if errors.As(failure, &timeoutError) {
		if timeoutError.Canceled {
			return outcomeCanceledConstant
		}
		return outcomeTimeoutConstant
	}
	return outcomeErrorConstant
}

func executableLabel(command execshell.ShellCommand) string {
	executable := filepath.Base(string(command.Name))
	if len(command.Name) == 0 || executable == "." || executable == string(filepath.Separator) {
		return unknownExecutableLabelConstant
	}
	return executable
}
