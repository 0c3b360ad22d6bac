package cli_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/require"

	"github.com/temirov/agentready/cmd/cli"
)

func TestValidatePathCommandReportsEachPath(testInstance *testing.T) {
	isolateConfiguration(testInstance)
	repositoryPath := initializeRepository(testInstance)

	testCases := []struct {
		name             string
		arguments        []string
		expectedOutput   string
		expectedExitCode int
	}{
		{
			name:             "repository_accepted",
			arguments:        []string{"validate-path", repositoryPath},
			expectedOutput:   "ok\t" + repositoryPath + "\t-\n",
			expectedExitCode: cli.ExitCodeSuccess,
		},
		{
			name:             "sensitive_location_refused",
			arguments:        []string{"validate-path", repositoryPath, "/etc"},
			expectedOutput:   "ok\t" + repositoryPath + "\t-\nrefused\t/etc\t",
			expectedExitCode: cli.ExitCodeSecurityRefusal,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			outcome := executeApplication(testInstance, "", testCase.arguments...)
			require.Equal(testInstance, testCase.expectedExitCode, cli.ExitCode(outcome.executionError))
			require.Contains(testInstance, outcome.standardOutput, testCase.expectedOutput)
		})
	}
}

func TestValidatePathCommandRendersJSON(testInstance *testing.T) {
	isolateConfiguration(testInstance)
	repositoryPath := initializeRepository(testInstance)
	plainDirectory := testInstance.TempDir()

	outcome := executeApplication(testInstance, "", "validate-path", "--output", "json", repositoryPath, plainDirectory)
	require.Equal(testInstance, cli.ExitCodeSecurityRefusal, cli.ExitCode(outcome.executionError))
	require.Empty(testInstance, cli.ErrorMessage(outcome.executionError))

	reports := []cli.PathValidationReport{}
	require.NoError(testInstance, json.Unmarshal([]byte(outcome.standardOutput), &reports))
	require.Len(testInstance, reports, 2)

	require.True(testInstance, reports[0].Valid)
	require.True(testInstance, reports[0].Repository)
	require.Equal(testInstance, repositoryPath, reports[0].ResolvedPath)

	require.False(testInstance, reports[1].Valid)
	require.Contains(testInstance, reports[1].Error, "not a git repository")
}

func TestValidatePathCommandAcceptsPlainDirectoryWhenAllowed(testInstance *testing.T) {
	isolateConfiguration(testInstance)
	plainDirectory := testInstance.TempDir()

	outcome := executeApplication(testInstance, "", "--allow-non-repository", "validate-path", "--output", "yaml", plainDirectory)

	require.NoError(testInstance, outcome.executionError)
	require.Contains(testInstance, outcome.standardOutput, "valid: true")
	require.Contains(testInstance, outcome.standardOutput, "repository: false")
}

func TestValidatePathCommandDiscoversRepositories(testInstance *testing.T) {
	isolateConfiguration(testInstance)
	firstRepository := initializeRepository(testInstance)
	searchRoot := filepath.Dir(firstRepository)
	secondRepository := filepath.Join(searchRoot, "group", "tool")
	_, initError := git.PlainInit(secondRepository, false)
	require.NoError(testInstance, initError)

	outcome := executeApplication(testInstance, "", "validate-path", "--discover", "--output", "json", searchRoot)
	require.NoError(testInstance, outcome.executionError)

	reports := []cli.PathValidationReport{}
	require.NoError(testInstance, json.Unmarshal([]byte(outcome.standardOutput), &reports))
	resolvedPaths := []string{}
	for _, report := range reports {
		require.True(testInstance, report.Valid)
		resolvedPaths = append(resolvedPaths, report.ResolvedPath)
	}
	require.Equal(testInstance, []string{secondRepository, firstRepository}, resolvedPaths)
}
