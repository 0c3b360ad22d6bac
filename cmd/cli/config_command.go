package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/temirov/agentready/internal/utils"
	flagutils "github.com/temirov/agentready/internal/utils/flags"
)

const (
	configUseConstant              = "config"
	configShortDescription         = "Print the effective configuration"
	configLongDescription          = "config prints the configuration after defaults, configuration files, environment variables and flags are merged."
	configDefaultsFlagName         = "defaults"
	configDefaultsDescription      = "Print the embedded default configuration instead"
	configFileCommentTemplate      = "# configuration file: %s\n"
	configOverridesCommentTemplate = "# environment overrides: %s\n"
	configEmbeddedFileDescription  = "embedded defaults"
	configOverridesSeparator       = ", "
)

// ConfigurationProvider yields the effective application configuration.
type ConfigurationProvider func() ApplicationConfiguration

// ConfigCommandBuilder assembles the config command.
type ConfigCommandBuilder struct {
	ConfigurationProvider ConfigurationProvider
	ContextAccessor       utils.CommandContextAccessor
}

// Build constructs the config command.
func (builder *ConfigCommandBuilder) Build() *cobra.Command {
	command := &cobra.Command{
		Use:   configUseConstant,
		Short: configShortDescription,
		Long:  configLongDescription,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}

	var printDefaults bool
	flagutils.AddToggleFlag(command.Flags(), &printDefaults, configDefaultsFlagName, "", false, configDefaultsDescription)

	return command
}

func (builder *ConfigCommandBuilder) run(command *cobra.Command, arguments []string) error {
	printDefaults, _ := command.Flags().GetBool(configDefaultsFlagName)
	writer := command.OutOrStdout()

	if printDefaults {
		embeddedConfiguration, _ := EmbeddedDefaultConfiguration()
		_, writeError := writer.Write(embeddedConfiguration)
		return writeError
	}

	if loadedConfiguration, found := builder.ContextAccessor.LoadedConfiguration(command.Context()); found {
		if headerError := writeConfigurationHeader(writer, loadedConfiguration); headerError != nil {
			return headerError
		}
	}
	return encodeYAML(writer, builder.ConfigurationProvider())
}

func writeConfigurationHeader(writer io.Writer, loadedConfiguration utils.LoadedConfiguration) error {
	configurationFile := loadedConfiguration.ConfigFileUsed
	if len(configurationFile) == 0 {
		configurationFile = configEmbeddedFileDescription
	}
	if _, writeError := fmt.Fprintf(writer, configFileCommentTemplate, configurationFile); writeError != nil {
		return writeError
	}
	if len(loadedConfiguration.EnvironmentOverrides) == 0 {
		return nil
	}
	_, writeError := fmt.Fprintf(writer, configOverridesCommentTemplate, strings.Join(loadedConfiguration.EnvironmentOverrides, configOverridesSeparator))
	return writeError
}
