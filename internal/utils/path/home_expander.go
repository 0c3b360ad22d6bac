package pathutils

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	tildeSymbolConstant             = "~"
	tildeForwardSlashPrefixConstant = "~/"
)

var tildeWithPathSeparatorPrefix = tildeSymbolConstant + string(os.PathSeparator)

// HomeDirectoryProvider resolves the current user's home directory path.
type HomeDirectoryProvider func() (string, error)

// HomeExpander converts between user home shortcuts and absolute paths.
// The home directory is looked up once and cached.
type HomeExpander struct {
	homeDirectoryProvider HomeDirectoryProvider
	homeDirectory         string
	homeDirectoryError    error
	initializationGuard   sync.Once
}

// NewHomeExpander constructs a HomeExpander using the operating system lookup.
func NewHomeExpander() *HomeExpander {
	return NewHomeExpanderWithProvider(os.UserHomeDir)
}

// NewHomeExpanderWithProvider constructs a HomeExpander with a custom provider.
func NewHomeExpanderWithProvider(provider HomeDirectoryProvider) *HomeExpander {
	if provider == nil {
		provider = os.UserHomeDir
	}
	return &HomeExpander{homeDirectoryProvider: provider}
}

// HomeDirectory returns the cleaned home directory, or an empty string when it cannot be resolved.
func (expander *HomeExpander) HomeDirectory() string {
	if expander == nil {
		return ""
	}
	return expander.resolveHomeDirectory()
}

// Expand resolves a leading tilde to the user's home directory.
// Forms such as ~otheruser are returned unchanged.
func (expander *HomeExpander) Expand(candidatePath string) string {
	if expander == nil || !strings.HasPrefix(candidatePath, tildeSymbolConstant) {
		return candidatePath
	}

	resolvedHomeDirectory := expander.resolveHomeDirectory()
	if len(resolvedHomeDirectory) == 0 {
		return candidatePath
	}

	switch {
	case candidatePath == tildeSymbolConstant:
		return resolvedHomeDirectory
	case strings.HasPrefix(candidatePath, tildeForwardSlashPrefixConstant):
		return filepath.Join(resolvedHomeDirectory, strings.TrimPrefix(candidatePath, tildeForwardSlashPrefixConstant))
	case strings.HasPrefix(candidatePath, tildeWithPathSeparatorPrefix):
		return filepath.Join(resolvedHomeDirectory, strings.TrimPrefix(candidatePath, tildeWithPathSeparatorPrefix))
	}

	return candidatePath
}

// Contract replaces every occurrence of the home directory inside text with a tilde,
// both as configured and with symbolic links resolved. Longer names sharing the
// prefix, such as /home/user2 for /home/user, are contracted too so that no
// spelling of the home directory survives. The filesystem root is never treated
// as a home directory.
func (expander *HomeExpander) Contract(text string) string {
	if expander == nil {
		return text
	}
	resolvedHomeDirectory := expander.resolveHomeDirectory()
	if len(resolvedHomeDirectory) == 0 || IsFilesystemRoot(resolvedHomeDirectory) {
		return text
	}

	homeSpellings := []string{resolvedHomeDirectory}
	if linkFreeHomeDirectory, resolveError := ResolvePath(resolvedHomeDirectory); resolveError == nil && linkFreeHomeDirectory != resolvedHomeDirectory {
		homeSpellings = append(homeSpellings, linkFreeHomeDirectory)
		if len(linkFreeHomeDirectory) > len(resolvedHomeDirectory) {
			homeSpellings[0], homeSpellings[1] = homeSpellings[1], homeSpellings[0]
		}
	}
	for _, homeSpelling := range homeSpellings {
		text = replaceAllPathOccurrences(text, homeSpelling, tildeSymbolConstant)
	}
	return text
}

func (expander *HomeExpander) resolveHomeDirectory() string {
	expander.initializationGuard.Do(func() {
		expander.homeDirectory, expander.homeDirectoryError = expander.homeDirectoryProvider()
		if expander.homeDirectoryError == nil && len(strings.TrimSpace(expander.homeDirectory)) > 0 {
			expander.homeDirectory = filepath.Clean(expander.homeDirectory)
		} else {
			expander.homeDirectory = ""
		}
	})
	return expander.homeDirectory
}
