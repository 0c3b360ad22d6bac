package subprocess

import (
	"path/filepath"
	"runtime"
	"strings"
	"unicode"
)

const (
	shellMetacharactersConstant        = ";&|<>$`(){}[]*?!'\"\\"
	windowsShellMetacharactersConstant = ";&|<>$`(){}[]*?!'\"%^"
	commandSubstitutionPrefixConstant  = "$("
	backtickConstant                   = "`"
	nullByteConstant                   = "\x00"
	windowsExecutableSuffixConstant    = ".exe"
	environmentKeyForbiddenConstant    = "=\x00"
)

// commandPolicy performs the checks that must pass before a process is spawned.
type commandPolicy struct {
	allowedExecutables     map[string]struct{}
	shellInterpreters      map[string]struct{}
	executableWrappers     map[string]struct{}
	allowShellInterpreters bool
	allowShellSubstitution bool
}

func newCommandPolicy(policy ExecutionPolicy) commandPolicy {
	checker := commandPolicy{
		shellInterpreters:      map[string]struct{}{},
		executableWrappers:     map[string]struct{}{},
		allowShellInterpreters: policy.AllowShellInterpreters,
		allowShellSubstitution: policy.AllowShellSubstitution,
	}
	for _, interpreterName := range shellInterpreterNames {
		checker.shellInterpreters[interpreterName] = struct{}{}
	}
	for _, wrapperName := range executableWrapperNames {
		checker.executableWrappers[wrapperName] = struct{}{}
	}
	if len(policy.AllowedExecutables) > 0 {
		checker.allowedExecutables = map[string]struct{}{}
		for _, executableName := range policy.AllowedExecutables {
			checker.allowedExecutables[executableBaseName(executableName)] = struct{}{}
		}
	}
	return checker
}

// check returns the reason command is refused and the offending value, or an empty reason.
func (checker commandPolicy) check(command []string, environmentVariables map[string]string) (SecurityReason, string) {
	if len(command) == 0 || len(strings.TrimSpace(command[0])) == 0 {
		return ReasonEmptyCommand, ""
	}

	executable := command[0]
	if strings.ContainsAny(executable, executableForbiddenCharacters()) || strings.IndexFunc(executable, isWhitespaceOrControl) >= 0 {
		return ReasonInvalidExecutable, executable
	}

	baseName := executableBaseName(executable)
	if !checker.allowShellInterpreters {
		if _, isInterpreter := checker.shellInterpreters[baseName]; isInterpreter {
			return ReasonShellInterpreter, baseName
		}
		if interpreterName, launchesInterpreter := checker.wrappedInterpreter(baseName, command[1:]); launchesInterpreter {
			return ReasonShellInterpreter, interpreterName
		}
	}
	if checker.allowedExecutables != nil {
		if _, isAllowed := checker.allowedExecutables[baseName]; !isAllowed {
			return ReasonExecutableNotAllowed, baseName
		}
	}

	for _, argument := range command[1:] {
		if strings.Contains(argument, nullByteConstant) {
			return ReasonUnsafeArgument, argument
		}
		if checker.allowShellSubstitution {
			continue
		}
		if strings.Contains(argument, commandSubstitutionPrefixConstant) || strings.Contains(argument, backtickConstant) {
			return ReasonUnsafeArgument, argument
		}
	}

	for environmentKey, environmentValue := range environmentVariables {
		if len(environmentKey) == 0 || strings.ContainsAny(environmentKey, environmentKeyForbiddenConstant) || strings.Contains(environmentValue, nullByteConstant) {
			return ReasonInvalidEnvironmentKey, environmentKey
		}
	}

	return "", ""
}

// wrappedInterpreter reports a shell interpreter started through an exec wrapper
// such as env or nice. Every argument of a wrapper is inspected, including the
// first word of arguments the wrapper splits itself (env -S "sh -c ...").
func (checker commandPolicy) wrappedInterpreter(baseName string, arguments []string) (string, bool) {
	if _, isWrapper := checker.executableWrappers[baseName]; !isWrapper {
		return "", false
	}
	for _, argument := range arguments {
		argumentFields := strings.Fields(argument)
		if len(argumentFields) == 0 {
			continue
		}
		argumentBaseName := executableBaseName(argumentFields[0])
		if _, isInterpreter := checker.shellInterpreters[argumentBaseName]; isInterpreter {
			return argumentBaseName, true
		}
	}
	return "", false
}

func executableForbiddenCharacters() string {
	if runtime.GOOS == "windows" {
		return windowsShellMetacharactersConstant
	}
	return shellMetacharactersConstant
}

func isWhitespaceOrControl(character rune) bool {
	return unicode.IsSpace(character) || unicode.IsControl(character)
}

// executableBaseName returns the base name of executable. On Windows the name is
// lower-cased and the .exe suffix removed.
func executableBaseName(executable string) string {
	baseName := filepath.Base(strings.TrimSpace(executable))
	if runtime.GOOS == "windows" {
		baseName = strings.ToLower(baseName)
		baseName = strings.TrimSuffix(baseName, windowsExecutableSuffixConstant)
	}
	return baseName
}
