package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/temirov/agentready/internal/metrics"
	"github.com/temirov/agentready/internal/ui"
	"github.com/temirov/agentready/internal/utils"
	flagutils "github.com/temirov/agentready/internal/utils/flags"
	"github.com/temirov/agentready/pkg/subprocess"
)

const (
	applicationNameConstant                 = "agentready"
	applicationShortDescriptionConstant     = "Run external processes behind repository and command safety checks"
	applicationLongDescriptionConstant      = "agentready validates repository paths, refuses shell-dependent commands, bounds process run time and sanitizes every diagnostic it prints."
	configFileFlagNameConstant              = "config"
	configFileFlagUsageConstant             = "Optional path to a configuration file (YAML or JSON)."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagUsageConstant               = "Override the configured log level."
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagUsageConstant              = "Override the configured log format (structured or console)."
	metricsFileFlagNameConstant             = "metrics-file"
	metricsFileFlagUsageConstant            = "Write process metrics in Prometheus text format to this file on exit."
	environmentPrefixConstant               = "AGENTREADY"
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	configurationOverridesFieldConstant     = "environment_overrides"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
	facadeCreationErrorTemplateConstant     = "unable to configure subprocess policy: %w"
	metricsWriteErrorTemplateConstant       = "unable to write metrics: %w"
	facadeNotInitializedMessageConstant     = "subprocess facade not initialized"
	defaultConfigurationSearchPathConstant  = "."
	userConfigurationDirectoryNameConstant  = "agentready"
)

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common ApplicationCommonConfiguration `mapstructure:"common" yaml:"common"`
	Policy subprocess.Configuration       `mapstructure:",squash" yaml:",inline"`
}

// ApplicationCommonConfiguration stores logging and metrics settings shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel    string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat   string `mapstructure:"log_format" yaml:"log_format"`
	MetricsFile string `mapstructure:"metrics_file" yaml:"metrics_file"`
}

// Application wires the Cobra root command, configuration loader, structured logger and subprocess facade.
type Application struct {
	rootCommand            *cobra.Command
	configurationLoader    *utils.ConfigurationLoader
	loggerFactory          *utils.LoggerFactory
	logger                 *zap.Logger
	configuration          ApplicationConfiguration
	configurationMetadata  utils.LoadedConfiguration
	configurationFilePath  string
	logLevelFlagValue      string
	logFormatFlagValue     string
	metricsFileFlagValue   string
	policyFlags            *flagutils.PolicyFlagValues
	commandContextAccessor utils.CommandContextAccessor
	commandMetrics         *metrics.CommandMetrics
	facade                 *subprocess.Facade
	facadeOptions          []subprocess.FacadeOption
}

// ApplicationOption customizes an Application during construction.
type ApplicationOption func(*Application)

// WithFacadeOptions appends options applied whenever the subprocess facade is built.
func WithFacadeOptions(options ...subprocess.FacadeOption) ApplicationOption {
	return func(application *Application) {
		application.facadeOptions = append(application.facadeOptions, options...)
	}
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication(options ...ApplicationOption) *Application {
	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		configurationSearchPaths(),
	)
	configurationLoader.SetEmbeddedConfiguration(EmbeddedDefaultConfiguration())

	application := &Application{
		configurationLoader:    configurationLoader,
		loggerFactory:          utils.NewLoggerFactory(),
		logger:                 zap.NewNop(),
		commandContextAccessor: utils.NewCommandContextAccessor(),
	}
	for _, option := range options {
		if option != nil {
			option(application)
		}
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}

	cobraCommand.SetContext(context.Background())
	cobraCommand.PersistentFlags().StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", logLevelFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, "", logFormatFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.metricsFileFlagValue, metricsFileFlagNameConstant, "", metricsFileFlagUsageConstant)
	application.policyFlags = flagutils.BindPolicyFlags(cobraCommand)

	runBuilder := RunCommandBuilder{FacadeProvider: application.resolveFacade}
	validateBuilder := ValidatePathCommandBuilder{FacadeProvider: application.resolveFacade}
	sanitizeBuilder := SanitizeCommandBuilder{FacadeProvider: application.resolveFacade}
	configBuilder := ConfigCommandBuilder{
		ConfigurationProvider: application.effectiveConfiguration,
		ContextAccessor: application.commandContextAccessor,
	}
	cobraCommand.AddCommand(runBuilder.Build(), validateBuilder.Build(), sanitizeBuilder.Build(), configBuilder.Build())

	application.rootCommand = cobraCommand

	return application
}

// Execute runs the configured Cobra command hierarchy, then writes metrics and flushes the logger.
func (application *Application) Execute() error {
	return application.ExecuteWithArguments(os.Args[1:])
}

// ExecuteWithArguments runs the command hierarchy with explicit arguments.
// Toggle flags accept a separate yes/no value, as in "--allow-shell no".
func (application *Application) ExecuteWithArguments(arguments []string) error {
	normalizedArguments := flagutils.NormalizeToggleArguments(arguments)
	if normalizedArguments == nil {
		normalizedArguments = []string{}
	}
	application.rootCommand.SetArgs(normalizedArguments)
	executionError := application.rootCommand.Execute()

	if metricsError := application.writeMetrics(); metricsError != nil && executionError == nil {
		executionError = fmt.Errorf(metricsWriteErrorTemplateConstant, metricsError)
	}
	if syncError := application.flushLogger(); syncError != nil && executionError == nil {
		executionError = fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// RootCommand exposes the root cobra command, mainly for tests and documentation generation.
func (application *Application) RootCommand() *cobra.Command {
	return application.rootCommand
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	return NewApplication().Execute()
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(application.configurationFilePath, nil, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}
	application.configurationMetadata = loadedConfiguration

	if application.persistentFlagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}
	if application.persistentFlagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.logFormatFlagValue
	}
	if application.persistentFlagChanged(command, metricsFileFlagNameConstant) {
		application.configuration.Common.MetricsFile = application.metricsFileFlagValue
	}
	application.policyFlags.Apply(command, &application.configuration.Policy)

	logger, loggerCreationError := application.loggerFactory.CreateLoggerWithWriter(
		utils.LogLevel(application.configuration.Common.LogLevel),
		utils.LogFormat(application.configuration.Common.LogFormat),
		command.ErrOrStderr(),
	)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}
	application.logger = logger

	application.logger.Debug(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
		zap.Strings(configurationOverridesFieldConstant, application.configurationMetadata.EnvironmentOverrides),
	)

	if facadeError := application.buildFacade(); facadeError != nil {
		return facadeError
	}

	updatedContext := application.commandContextAccessor.WithLoadedConfiguration(command.Context(), application.configurationMetadata)
	command.SetContext(updatedContext)
	if rootCommand := command.Root(); rootCommand != nil {
		rootCommand.SetContext(updatedContext)
	}

	return nil
}

// buildFacade wires the facade with metrics and, for console logging, a human readable event logger
// that replaces the executor's own structured entries.
func (application *Application) buildFacade() error {
	application.commandMetrics = metrics.NewCommandMetrics()

	facadeOptions := []subprocess.FacadeOption{
		subprocess.WithCommandEventObserver(application.commandMetrics),
	}
	if application.humanReadableLoggingEnabled() {
		facadeOptions = append(facadeOptions, subprocess.WithCommandEventObserver(ui.NewConsoleCommandEventLogger(application.logger, application.sanitizeForConsole)))
	} else {
		facadeOptions = append(facadeOptions, subprocess.WithLogger(application.logger))
	}
	facadeOptions = append(facadeOptions, application.facadeOptions...)

	facade, facadeError := subprocess.NewFacade(application.configuration.Policy, facadeOptions...)
	if facadeError != nil {
		return fmt.Errorf(facadeCreationErrorTemplateConstant, facadeError)
	}
	application.facade = facade
	return nil
}

func (application *Application) sanitizeForConsole(message string) string {
	if application.facade == nil {
		return message
	}
	return application.facade.SanitizeMessage(message)
}

func (application *Application) resolveFacade() (*subprocess.Facade, error) {
	if application.facade == nil {
		return nil, errors.New(facadeNotInitializedMessageConstant)
	}
	return application.facade, nil
}

// effectiveConfiguration reports the policy with package defaults filled in.
func (application *Application) effectiveConfiguration() ApplicationConfiguration {
	effective := application.configuration
	if application.facade != nil {
		effective.Policy = application.facade.Configuration()
	}
	return effective
}

func (application *Application) humanReadableLoggingEnabled() bool {
	logFormatValue := strings.TrimSpace(application.configuration.Common.LogFormat)
	return strings.EqualFold(logFormatValue, string(utils.LogFormatConsole))
}

func (application *Application) writeMetrics() error {
	metricsFile := strings.TrimSpace(application.configuration.Common.MetricsFile)
	if application.commandMetrics == nil || len(metricsFile) == 0 {
		return nil
	}
	return application.commandMetrics.WriteTextfile(metricsFile)
}

func (application *Application) flushLogger() error {
	if application.logger == nil {
		return nil
	}

	syncError := application.logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	case errors.Is(syncError, syscall.ENOTTY):
		return nil
	default:
		return syncError
	}
}

func (application *Application) persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	flagSetsToInspect := []*pflag.FlagSet{
		command.PersistentFlags(),
		command.InheritedFlags(),
	}
	if rootCommand := command.Root(); rootCommand != nil {
		flagSetsToInspect = append(flagSetsToInspect, rootCommand.PersistentFlags())
	}

	for _, flagSet := range flagSetsToInspect {
		if flagSet != nil && flagSet.Changed(flagName) {
			return true
		}
	}
	return false
}

func configurationSearchPaths() []string {
	searchPaths := []string{defaultConfigurationSearchPathConstant}
	if userConfigurationDirectory, directoryError := os.UserConfigDir(); directoryError == nil {
		searchPaths = append(searchPaths, filepath.Join(userConfigurationDirectory, userConfigurationDirectoryNameConstant))
	}
	return searchPaths
}
