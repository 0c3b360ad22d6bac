package subprocess

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/temirov/agentready/internal/secrets"
	pathutils "github.com/temirov/agentready/internal/utils/path"
)

const (
	redactedMarkerConstant              = "<redacted>"
	repositoryMarkerConstant            = "<repo>"
	truncationSuffixConstant            = "... (truncated)"
	controlCharacterReplacementConstant = "?"
	emptyErrorMessageConstant           = ""
	gitUserInfoConstant                 = "git"
	redactionPatternErrorTemplate       = "redaction pattern %q: %w"
)

var (
	ansiEscapeSequencePattern   = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)
	urlUserInfoPattern          = regexp.MustCompile(`([A-Za-z][A-Za-z0-9+.\-]*://)([^\s/@:]+)(?::([^\s/@]*))?@`)
	privateKeyBlockPattern      = regexp.MustCompile(`(?s)-----BEGIN [A-Z0-9 ]*PRIVATE KEY-----.*?(?:-----END [A-Z0-9 ]*PRIVATE KEY-----|$)`)
	authorizationPattern        = regexp.MustCompile(`(?i)(authorization\s*[:=]\s*)(bearer|basic|token)\s+[^\s"',;]+`)
	bearerTokenPattern          = regexp.MustCompile(`(?i)\b(bearer)\s+[A-Za-z0-9._~+/\-]{8,}=*`)
	credentialAssignmentPattern = regexp.MustCompile(`(?i)\b([a-z0-9_.\-]*?(?:password|passwd|pwd|token|secret|api[_\-]?key|access[_\-]?key|auth|credential)s?)(["']?\s*[:=]\s*)("[^"]*"|'[^']*'|[^\s,;&"'}]+)`)
	credentialFlagPattern       = regexp.MustCompile(`(?i)((?:^|\s)--?[a-z0-9_\-]*?(?:password|passwd|pwd|token|secret|api[_\-]?key|access[_\-]?key|credential)s?)(\s+)("[^"]*"|'[^']*'|[^\s"'\-][^\s"']*)`)
	userCredentialFlagPattern   = regexp.MustCompile(`((?:^|\s)(?:-u|--user)(?:\s+|=))("?)([^\s:"']+):([^\s"']+)`)
	tokenPrefixPatterns         = []*regexp.Regexp{
		regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{20,}`),
		regexp.MustCompile(`\bgithub_pat_[A-Za-z0-9_]{20,}`),
		regexp.MustCompile(`\bglpat-[A-Za-z0-9_\-]{20,}`),
		regexp.MustCompile(`\bxox[baprs]-[A-Za-z0-9\-]{10,}`),
		regexp.MustCompile(`\b(?:AKIA|ASIA)[A-Z0-9]{16}\b`),
	}
)

// Sanitizer scrubs diagnostic text before it leaves the package.
// It never fails; every step degrades to leaving text unchanged.
// Unless secret detection is disabled, the values of credential environment
// variables present when the Sanitizer is built are redacted wherever they appear.
type Sanitizer struct {
	homeExpander      *pathutils.HomeExpander
	secretDetector    *secrets.Detector
	credentialValues  []string
	redactionPatterns []*regexp.Regexp
	maxMessageLength  int
}

// NewSanitizer compiles the sanitization policy.
func NewSanitizer(policy SanitizationPolicy, homeExpander *pathutils.HomeExpander) (*Sanitizer, error) {
	if homeExpander == nil {
		homeExpander = pathutils.NewHomeExpander()
	}

	compiledPatterns := make([]*regexp.Regexp, 0, len(policy.RedactionPatterns))
	for _, pattern := range policy.RedactionPatterns {
		compiledPattern, compileError := regexp.Compile(pattern)
		if compileError != nil {
			return nil, newInvalidConfigurationError(fmt.Errorf(redactionPatternErrorTemplate, pattern, compileError))
		}
		compiledPatterns = append(compiledPatterns, compiledPattern)
	}

	maxMessageLength := policy.MaxMessageLength
	if maxMessageLength <= 0 {
		maxMessageLength = MaxMessageLength
	}

	sanitizer := &Sanitizer{
		homeExpander:      homeExpander,
		redactionPatterns: compiledPatterns,
		maxMessageLength:  maxMessageLength,
	}
	if !policy.DisableSecretDetection {
		sanitizer.secretDetector = secrets.NewDetector()
		sanitizer.credentialValues = secrets.CredentialValues(nil)
	}
	return sanitizer, nil
}

// SanitizeError returns the sanitized text of failure. A nil error yields an empty string.
func (sanitizer *Sanitizer) SanitizeError(failure error, repositoryPaths ...string) string {
	if failure == nil {
		return emptyErrorMessageConstant
	}
	return sanitizer.SanitizeMessage(failure.Error(), repositoryPaths...)
}

// SanitizeMessage replaces repository and home paths with placeholders, redacts
// credentials, neutralizes control characters and truncates the result.
func (sanitizer *Sanitizer) SanitizeMessage(message string, repositoryPaths ...string) string {
	sanitized := strings.ToValidUTF8(message, controlCharacterReplacementConstant)
	sanitized = ansiEscapeSequencePattern.ReplaceAllString(sanitized, "")
	sanitized = sanitizer.replacePaths(sanitized, repositoryPaths)
	sanitized = redactCredentials(sanitized)
	for _, credentialValue := range sanitizer.credentialValues {
		sanitized = strings.ReplaceAll(sanitized, credentialValue, redactedMarkerConstant)
	}
	for _, redactionPattern := range sanitizer.redactionPatterns {
		sanitized = redactionPattern.ReplaceAllString(sanitized, redactedMarkerConstant)
	}
	sanitized = sanitizer.redactDetectedSecrets(sanitized)
	sanitized = replaceControlCharacters(sanitized)
	return truncateMessage(sanitized, sanitizer.maxMessageLength)
}

func (sanitizer *Sanitizer) replacePaths(message string, repositoryPaths []string) string {
	candidatePaths := []string{}
	for _, repositoryPath := range repositoryPaths {
		candidatePaths = append(candidatePaths, pathVariants(repositoryPath)...)
	}
	sort.SliceStable(candidatePaths, func(first int, second int) bool {
		return len(candidatePaths[first]) > len(candidatePaths[second])
	})
	for _, candidatePath := range candidatePaths {
		message = pathutils.ReplacePathOccurrences(message, candidatePath, repositoryMarkerConstant)
	}
	return sanitizer.homeExpander.Contract(message)
}

func (sanitizer *Sanitizer) redactDetectedSecrets(message string) string {
	if sanitizer.secretDetector == nil {
		return message
	}
	detectedSecrets, detectError := sanitizer.secretDetector.Find(message)
	if detectError != nil {
		return message
	}
	for _, detectedSecret := range detectedSecrets {
		if detectedSecret == redactedMarkerConstant {
			continue
		}
		message = strings.ReplaceAll(message, detectedSecret, redactedMarkerConstant)
	}
	return message
}

// pathVariants lists the spellings of path that may appear in diagnostics:
// as given, canonical, and with symbolic links resolved.
func pathVariants(path string) []string {
	trimmedPath := strings.TrimSpace(path)
	if len(trimmedPath) == 0 {
		return nil
	}
	variants := []string{}
	seenVariants := map[string]struct{}{}
	addVariant := func(variant string) {
		if len(variant) == 0 || pathutils.IsFilesystemRoot(variant) {
			return
		}
		if _, seen := seenVariants[variant]; seen {
			return
		}
		seenVariants[variant] = struct{}{}
		variants = append(variants, variant)
	}
	addVariant(trimmedPath)
	addVariant(pathutils.CanonicalizePath(trimmedPath))
	if resolvedPath, resolveError := pathutils.ResolvePath(trimmedPath); resolveError == nil {
		addVariant(resolvedPath)
	}
	return variants
}

func redactCredentials(message string) string {
	redacted := privateKeyBlockPattern.ReplaceAllString(message, redactedMarkerConstant)
	redacted = urlUserInfoPattern.ReplaceAllStringFunc(redacted, redactURLUserInfo)
	redacted = authorizationPattern.ReplaceAllString(redacted, "${1}${2} "+redactedMarkerConstant)
	redacted = bearerTokenPattern.ReplaceAllString(redacted, "${1} "+redactedMarkerConstant)
	redacted = credentialAssignmentPattern.ReplaceAllStringFunc(redacted, redactAssignment)
	redacted = credentialFlagPattern.ReplaceAllStringFunc(redacted, redactFlagValue)
	redacted = userCredentialFlagPattern.ReplaceAllString(redacted, "${1}${2}${3}:"+redactedMarkerConstant)
	for _, tokenPattern := range tokenPrefixPatterns {
		redacted = tokenPattern.ReplaceAllString(redacted, redactedMarkerConstant)
	}
	return redacted
}

// redactURLUserInfo keeps the user name when a password follows it and keeps the conventional "git" user.
func redactURLUserInfo(match string) string {
	submatches := urlUserInfoPattern.FindStringSubmatch(match)
	scheme, user, password := submatches[1], submatches[2], submatches[3]
	if len(password) > 0 {
		return scheme + user + ":" + redactedMarkerConstant + "@"
	}
	if user == gitUserInfoConstant {
		return match
	}
	return scheme + redactedMarkerConstant + "@"
}

func redactAssignment(match string) string {
	submatches := credentialAssignmentPattern.FindStringSubmatch(match)
	return submatches[1] + submatches[2] + redactedValue(submatches[3])
}

func redactFlagValue(match string) string {
	submatches := credentialFlagPattern.FindStringSubmatch(match)
	return submatches[1] + submatches[2] + redactedValue(submatches[3])
}

// redactedValue keeps the quotes around a quoted value.
func redactedValue(value string) string {
	if len(value) >= 2 && (value[0] == '"' || value[0] == '\'') && value[len(value)-1] == value[0] {
		return value[:1] + redactedMarkerConstant + value[:1]
	}
	return redactedMarkerConstant
}

func replaceControlCharacters(message string) string {
	return strings.Map(func(character rune) rune {
		if character == '\n' || character == '\t' {
			return character
		}
		if unicode.IsControl(character) || character == utf8.RuneError {
			return '?'
		}
		return character
	}, message)
}

func truncateMessage(message string, maxMessageLength int) string {
	if utf8.RuneCountInString(message) <= maxMessageLength {
		return message
	}
	runes := []rune(message)
	return string(runes[:maxMessageLength]) + truncationSuffixConstant
}
