package utils

import "context"

const (
	configurationFilePathContextKeyConstant = commandContextKey("configurationFilePath")
	environmentOverridesContextKeyConstant  = commandContextKey("environmentOverrides")
)

type commandContextKey string

// CommandContextAccessor stores configuration metadata in command contexts.
type CommandContextAccessor struct{}

// NewCommandContextAccessor constructs a CommandContextAccessor instance.
func NewCommandContextAccessor() CommandContextAccessor {
	return CommandContextAccessor{}
}

// WithLoadedConfiguration attaches the configuration file path and environment overrides to parentContext.
func (accessor CommandContextAccessor) WithLoadedConfiguration(parentContext context.Context, loadedConfiguration LoadedConfiguration) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	updatedContext := context.WithValue(parentContext, configurationFilePathContextKeyConstant, loadedConfiguration.ConfigFileUsed)
	return context.WithValue(updatedContext, environmentOverridesContextKeyConstant, append([]string{}, loadedConfiguration.EnvironmentOverrides...))
}

// LoadedConfiguration extracts the metadata stored by WithLoadedConfiguration.
func (accessor CommandContextAccessor) LoadedConfiguration(executionContext context.Context) (LoadedConfiguration, bool) {
	if executionContext == nil {
		return LoadedConfiguration{}, false
	}
	configurationFilePath, configurationFilePathAvailable := executionContext.Value(configurationFilePathContextKeyConstant).(string)
	if !configurationFilePathAvailable {
		return LoadedConfiguration{}, false
	}
	environmentOverrides, _ := executionContext.Value(environmentOverridesContextKeyConstant).([]string)
	return LoadedConfiguration{ConfigFileUsed: configurationFilePath, EnvironmentOverrides: environmentOverrides}, true
}
