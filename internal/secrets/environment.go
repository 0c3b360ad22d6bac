package secrets

import (
	"os"
	"sort"
	"strings"
)

const minimumCredentialValueLengthConstant = 8

// Environment variables whose values are credentials.
const (
	EnvGitHubCLIToken         = "GH_TOKEN"
	EnvGitHubToken            = "GITHUB_TOKEN"
	EnvGitHubAPIToken         = "GITHUB_API_TOKEN"
	EnvGitLabToken            = "GITLAB_TOKEN"
	EnvNPMToken               = "NPM_TOKEN"
	EnvAWSSecretAccessKey     = "AWS_SECRET_ACCESS_KEY"
	EnvAWSSessionToken        = "AWS_SESSION_TOKEN"
	EnvAnthropicAPIKey        = "ANTHROPIC_API_KEY"
	EnvOpenAIAPIKey           = "OPENAI_API_KEY"
	EnvHuggingFaceAccessToken = "HF_TOKEN"
)

var credentialVariableNames = []string{
	EnvGitHubCLIToken,
	EnvGitHubToken,
	EnvGitHubAPIToken,
	EnvGitLabToken,
	EnvNPMToken,
	EnvAWSSecretAccessKey,
	EnvAWSSessionToken,
	EnvAnthropicAPIKey,
	EnvOpenAIAPIKey,
	EnvHuggingFaceAccessToken,
}

// CredentialValues returns the distinct credential values set in environment or in the
// process environment, longest first. Values shorter than eight characters are ignored
// because replacing them would mangle ordinary text.
func CredentialValues(environment map[string]string) []string {
	seenValues := map[string]struct{}{}
	values := []string{}
	addValue := func(value string) {
		trimmedValue := strings.TrimSpace(value)
		if len(trimmedValue) < minimumCredentialValueLengthConstant {
			return
		}
		if _, seen := seenValues[trimmedValue]; seen {
			return
		}
		seenValues[trimmedValue] = struct{}{}
		values = append(values, trimmedValue)
	}

	for _, variableName := range credentialVariableNames {
		if value, found := environment[variableName]; found {
			addValue(value)
		}
		if value, found := os.LookupEnv(variableName); found {
			addValue(value)
		}
	}

	sort.SliceStable(values, func(first int, second int) bool {
		return len(values[first]) > len(values[second])
	})
	return values
}
