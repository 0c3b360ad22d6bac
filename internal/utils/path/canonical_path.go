package pathutils

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// CanonicalizePath returns the cleaned absolute form of path without touching the filesystem.
func CanonicalizePath(path string) string {
	cleanedPath := filepath.Clean(path)
	absolutePath, absoluteError := filepath.Abs(cleanedPath)
	if absoluteError == nil {
		return filepath.Clean(absolutePath)
	}
	return cleanedPath
}

// ResolvePath canonicalizes path and resolves every symbolic link along it.
// The error from filepath.EvalSymlinks is returned untouched so callers can test for fs.ErrNotExist.
func ResolvePath(path string) (string, error) {
	resolvedPath, resolveError := filepath.EvalSymlinks(CanonicalizePath(path))
	if resolveError != nil {
		return "", resolveError
	}
	return filepath.Clean(resolvedPath), nil
}

// ComparisonPath returns the form of path used for equality and prefix checks.
func ComparisonPath(path string) string {
	comparison := filepath.Clean(path)
	if runtime.GOOS == "windows" {
		comparison = strings.ToLower(comparison)
	}
	return comparison
}

// IsNestedPath reports whether candidate equals parent or lies beneath it.
// Sibling paths sharing a string prefix, such as /repo and /repository, are not nested.
func IsNestedPath(parent string, candidate string) bool {
	parentClean := ComparisonPath(parent)
	candidateClean := ComparisonPath(candidate)

	if candidateClean == parentClean {
		return true
	}
	if len(candidateClean) <= len(parentClean) || !strings.HasPrefix(candidateClean, parentClean) {
		return false
	}
	if parentClean[len(parentClean)-1] == os.PathSeparator {
		return true
	}
	return candidateClean[len(parentClean)] == os.PathSeparator
}

// IsFilesystemRoot reports whether path is a filesystem or volume root.
func IsFilesystemRoot(path string) bool {
	cleanedPath := filepath.Clean(path)
	return filepath.Dir(cleanedPath) == cleanedPath
}

// ContainsPathComponent reports whether any element of path equals one of the component names.
func ContainsPathComponent(path string, componentNames []string) (string, bool) {
	for _, pathComponent := range strings.Split(ComparisonPath(path), string(os.PathSeparator)) {
		for _, componentName := range componentNames {
			if len(componentName) > 0 && pathComponent == ComparisonPath(componentName) {
				return pathComponent, true
			}
		}
	}
	return "", false
}

// ReplacePathOccurrences replaces every occurrence of path inside text that ends at a path boundary.
// A boundary is the end of text or any character that cannot continue a file name.
// A period continues a file name only when a name character follows it, so a path
// ending a sentence is still replaced.
func ReplacePathOccurrences(text string, path string, replacement string) string {
	if len(path) == 0 || IsFilesystemRoot(path) {
		return text
	}

	var builder strings.Builder
	remaining := text
	for {
		matchIndex := strings.Index(remaining, path)
		if matchIndex < 0 {
			builder.WriteString(remaining)
			return builder.String()
		}
		matchEnd := matchIndex + len(path)
		builder.WriteString(remaining[:matchIndex])
		if endsAtPathBoundary(remaining, matchEnd) {
			builder.WriteString(replacement)
		} else {
			builder.WriteString(path)
		}
		remaining = remaining[matchEnd:]
	}
}

// replaceAllPathOccurrences replaces every occurrence of path inside text, including
// occurrences that continue into a longer name such as /home/user2 for /home/user.
func replaceAllPathOccurrences(text string, path string, replacement string) string {
	if len(path) == 0 || IsFilesystemRoot(path) {
		return text
	}
	return strings.ReplaceAll(text, path, replacement)
}

func endsAtPathBoundary(text string, index int) bool {
	if index >= len(text) {
		return true
	}
	if text[index] == '.' {
		return index+1 == len(text) || !isFileNameCharacter(text[index+1])
	}
	return !isFileNameCharacter(text[index])
}

func isFileNameCharacter(character byte) bool {
	switch {
	case character >= 'a' && character <= 'z':
		return true
	case character >= 'A' && character <= 'Z':
		return true
	case character >= '0' && character <= '9':
		return true
	case character == '_' || character == '-' || character == '.':
		return true
	}
	return character >= 0x80
}
