package utils_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/agentready/internal/utils"
)

const (
	testEnvironmentPrefixConstant               = "TESTAGENTREADY"
	testConfigurationNameConstant               = "config"
	testConfigurationTypeConstant               = "yaml"
	testConfigurationFileNameConstant           = "config.yaml"
	testUserConfigurationDirectoryNameConstant  = ".agentready"
	testMaxMessageLengthKeyConstant             = "sanitization.max_message_length"
	testMaxMessageLengthVariableNameConstant    = testEnvironmentPrefixConstant + "_SANITIZATION_MAX_MESSAGE_LENGTH"
	testTimeoutVariableNameConstant             = testEnvironmentPrefixConstant + "_SUBPROCESS_TIMEOUT"
	testAllowedExecutablesVariableNameConstant  = testEnvironmentPrefixConstant + "_SUBPROCESS_ALLOWED_EXECUTABLES"
	testIsolateEnvironmentVariableNameConstant  = testEnvironmentPrefixConstant + "_SUBPROCESS_ISOLATE_ENVIRONMENT"
	testEmbeddedPolicyConfigurationConstant     = "subprocess:\n  timeout: 2m\n  allowed_executables: []\n  isolate_environment: false\nsanitization:\n  max_message_length: 500\n"
	testRepositoryPolicyConfigurationConstant   = "repository:\n  allowed_roots:\n    - /srv/checkouts\n  allow_nested_directories: true\n"
	testPolicyFileTimeoutConfigurationConstant  = "subprocess:\n  timeout: 45s\n"
	testPolicyFileMessageConfigurationConstant  = "sanitization:\n  max_message_length: 300\n"
	testPolicyFileExecutableAllowlistConstant   = "subprocess:\n  allowed_executables:\n    - git\n    - make\n"
	testMissingConfigurationFileNameConstant    = "missing.yaml"
	testMalformedConfigurationContentConstant   = "subprocess: [unterminated\n"
	testConfigurationReadFailurePrefixConstant  = "failed to read configuration"
	testConfigurationParseFailurePrefixConstant = "failed to parse configuration"
)

type policyFixture struct {
	Subprocess struct {
		Timeout            time.Duration `mapstructure:"timeout"`
		AllowedExecutables []string      `mapstructure:"allowed_executables"`
		IsolateEnvironment bool          `mapstructure:"isolate_environment"`
	} `mapstructure:"subprocess"`
	Repository struct {
		AllowedRoots           []string `mapstructure:"allowed_roots"`
		AllowNestedDirectories bool     `mapstructure:"allow_nested_directories"`
	} `mapstructure:"repository"`
	Sanitization struct {
		MaxMessageLength int `mapstructure:"max_message_length"`
	} `mapstructure:"sanitization"`
}

func newPolicyLoader(searchPaths ...string) *utils.ConfigurationLoader {
	configurationLoader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, searchPaths)
	configurationLoader.SetEmbeddedConfiguration([]byte(testEmbeddedPolicyConfigurationConstant), testConfigurationTypeConstant)
	return configurationLoader
}

func writePolicyFile(testInstance *testing.T, directoryPath string, content string) string {
	testInstance.Helper()
	require.NoError(testInstance, os.MkdirAll(directoryPath, 0o755))
	configurationFilePath := filepath.Join(directoryPath, testConfigurationFileNameConstant)
	require.NoError(testInstance, os.WriteFile(configurationFilePath, []byte(content), 0o600))
	return configurationFilePath
}

func TestConfigurationLoaderLayersPolicySources(testInstance *testing.T) {
	testCases := []struct {
		name                     string
		fileContent              string
		defaultValues            map[string]any
		environment              map[string]string
		expectedTimeout          time.Duration
		expectedMaxMessageLength int
		expectedOverrides        []string
	}{
		{
			name:                     "embedded_policy",
			expectedTimeout:          2 * time.Minute,
			expectedMaxMessageLength: 500,
			expectedOverrides:        []string{},
		},
		{
			name:                     "embedded_over_default_values",
			defaultValues:            map[string]any{testMaxMessageLengthKeyConstant: 250},
			expectedTimeout:          2 * time.Minute,
			expectedMaxMessageLength: 500,
			expectedOverrides:        []string{},
		},
		{
			name:                     "file_over_defaults",
			fileContent:              testPolicyFileTimeoutConfigurationConstant + testPolicyFileMessageConfigurationConstant,
			defaultValues:            map[string]any{testMaxMessageLengthKeyConstant: 250},
			expectedTimeout:          45 * time.Second,
			expectedMaxMessageLength: 300,
			expectedOverrides:        []string{},
		},
		{
			name:                     "environment_over_file",
			fileContent:              testPolicyFileTimeoutConfigurationConstant + testPolicyFileMessageConfigurationConstant,
			environment:              map[string]string{testMaxMessageLengthVariableNameConstant: "80", testTimeoutVariableNameConstant: "5s"},
			expectedTimeout:          5 * time.Second,
			expectedMaxMessageLength: 80,
			expectedOverrides:        []string{testMaxMessageLengthVariableNameConstant, testTimeoutVariableNameConstant},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			for variableName, variableValue := range testCase.environment {
				testInstance.Setenv(variableName, variableValue)
			}

			configurationFilePath := ""
			if len(testCase.fileContent) > 0 {
				configurationFilePath = writePolicyFile(testInstance, testInstance.TempDir(), testCase.fileContent)
			}

			loadedConfiguration := policyFixture{}
			metadata, loadError := newPolicyLoader().LoadConfiguration(configurationFilePath, testCase.defaultValues, &loadedConfiguration)
			require.NoError(testInstance, loadError)

			require.Equal(testInstance, testCase.expectedTimeout, loadedConfiguration.Subprocess.Timeout)
			require.Equal(testInstance, testCase.expectedMaxMessageLength, loadedConfiguration.Sanitization.MaxMessageLength)
			require.Equal(testInstance, configurationFilePath, metadata.ConfigFileUsed)
			require.Equal(testInstance, testCase.expectedOverrides, metadata.EnvironmentOverrides)
		})
	}
}

func TestConfigurationLoaderFindsPolicyFileInSearchPaths(testInstance *testing.T) {
	testCases := []struct {
		name            string
		selectDirectory func(workingDirectoryPath string, userConfigurationDirectoryPath string) string
	}{
		{
			name: "working_directory",
			selectDirectory: func(workingDirectoryPath string, _ string) string {
				return workingDirectoryPath
			},
		},
		{
			name: "user_configuration_directory",
			selectDirectory: func(_ string, userConfigurationDirectoryPath string) string {
				return userConfigurationDirectoryPath
			},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			workingDirectoryPath := testInstance.TempDir()
			homeDirectoryPath := testInstance.TempDir()
			testInstance.Setenv("HOME", homeDirectoryPath)
			testInstance.Setenv("XDG_CONFIG_HOME", filepath.Join(homeDirectoryPath, "config"))

			userConfigurationBaseDirectoryPath, userConfigurationDirectoryError := os.UserConfigDir()
			require.NoError(testInstance, userConfigurationDirectoryError)
			userConfigurationDirectoryPath := filepath.Join(userConfigurationBaseDirectoryPath, testUserConfigurationDirectoryNameConstant)

			configurationFilePath := writePolicyFile(testInstance, testCase.selectDirectory(workingDirectoryPath, userConfigurationDirectoryPath), testRepositoryPolicyConfigurationConstant)

			loadedConfiguration := policyFixture{}
			metadata, loadError := newPolicyLoader(workingDirectoryPath, userConfigurationDirectoryPath).LoadConfiguration("", nil, &loadedConfiguration)
			require.NoError(testInstance, loadError)

			require.Equal(testInstance, configurationFilePath, metadata.ConfigFileUsed)
			require.Equal(testInstance, []string{"/srv/checkouts"}, loadedConfiguration.Repository.AllowedRoots)
			require.True(testInstance, loadedConfiguration.Repository.AllowNestedDirectories)
			require.Equal(testInstance, 500, loadedConfiguration.Sanitization.MaxMessageLength)
		})
	}
}

func TestConfigurationLoaderWithoutPolicyFileUsesEmbeddedPolicy(testInstance *testing.T) {
	loadedConfiguration := policyFixture{}
	metadata, loadError := newPolicyLoader(testInstance.TempDir()).LoadConfiguration("", nil, &loadedConfiguration)
	require.NoError(testInstance, loadError)

	require.Empty(testInstance, metadata.ConfigFileUsed)
	require.Empty(testInstance, loadedConfiguration.Subprocess.AllowedExecutables)
	require.False(testInstance, loadedConfiguration.Subprocess.IsolateEnvironment)
}

func TestConfigurationLoaderDecodesExecutableAllowlists(testInstance *testing.T) {
	testInstance.Run("file_list", func(testInstance *testing.T) {
		configurationFilePath := writePolicyFile(testInstance, testInstance.TempDir(), testPolicyFileExecutableAllowlistConstant)

		loadedConfiguration := policyFixture{}
		_, loadError := newPolicyLoader().LoadConfiguration(configurationFilePath, nil, &loadedConfiguration)
		require.NoError(testInstance, loadError)
		require.Equal(testInstance, []string{"git", "make"}, loadedConfiguration.Subprocess.AllowedExecutables)
	})

	testInstance.Run("comma_separated_environment", func(testInstance *testing.T) {
		testInstance.Setenv(testAllowedExecutablesVariableNameConstant, "git,go")
		testInstance.Setenv(testIsolateEnvironmentVariableNameConstant, "true")

		loadedConfiguration := policyFixture{}
		metadata, loadError := newPolicyLoader().LoadConfiguration("", nil, &loadedConfiguration)
		require.NoError(testInstance, loadError)

		require.Equal(testInstance, []string{"git", "go"}, loadedConfiguration.Subprocess.AllowedExecutables)
		require.True(testInstance, loadedConfiguration.Subprocess.IsolateEnvironment)
		require.Equal(testInstance, []string{testAllowedExecutablesVariableNameConstant, testIsolateEnvironmentVariableNameConstant}, metadata.EnvironmentOverrides)
	})
}

func TestConfigurationLoaderReportsUnusablePolicyFiles(testInstance *testing.T) {
	testCases := []struct {
		name           string
		prepare        func(testInstance *testing.T) string
		expectedPrefix string
	}{
		{
			name: "missing_explicit_file",
			prepare: func(testInstance *testing.T) string {
				return filepath.Join(testInstance.TempDir(), testMissingConfigurationFileNameConstant)
			},
			expectedPrefix: testConfigurationReadFailurePrefixConstant,
		},
		{
			name: "malformed_file",
			prepare: func(testInstance *testing.T) string {
				return writePolicyFile(testInstance, testInstance.TempDir(), testMalformedConfigurationContentConstant)
			},
			expectedPrefix: testConfigurationReadFailurePrefixConstant,
		},
		{
			name: "invalid_timeout",
			prepare: func(testInstance *testing.T) string {
				return writePolicyFile(testInstance, testInstance.TempDir(), "subprocess:\n  timeout: soon\n")
			},
			expectedPrefix: testConfigurationParseFailurePrefixConstant,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			loadedConfiguration := policyFixture{}
			_, loadError := newPolicyLoader().LoadConfiguration(testCase.prepare(testInstance), nil, &loadedConfiguration)
			require.Error(testInstance, loadError)
			require.Contains(testInstance, loadError.Error(), testCase.expectedPrefix)
		})
	}
}
