package pathutils_test

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	pathutils "github.com/temirov/agentready/internal/utils/path"
)

const (
	testHomeDirectoryConstant         = "/home/tester"
	testTildeRelativePathConstant     = "Projects/example"
	testNestedCaseNameConstant        = "nested"
	testSameCaseNameConstant          = "same"
	testSiblingPrefixCaseNameConstant = "sibling_prefix"
	testParentCaseNameConstant        = "parent"
)

func staticHomeProvider(homeDirectory string, providerError error) pathutils.HomeDirectoryProvider {
	return func() (string, error) {
		return homeDirectory, providerError
	}
}

func TestHomeExpanderExpand(testInstance *testing.T) {
	expander := pathutils.NewHomeExpanderWithProvider(staticHomeProvider(testHomeDirectoryConstant, nil))

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "bare_tilde", input: "~", expected: testHomeDirectoryConstant},
		{name: "tilde_relative", input: "~/" + testTildeRelativePathConstant, expected: filepath.Join(testHomeDirectoryConstant, testTildeRelativePathConstant)},
		{name: "other_user", input: "~root/data", expected: "~root/data"},
		{name: "absolute", input: "/srv/repo", expected: "/srv/repo"},
		{name: "empty", input: "", expected: ""},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expected, expander.Expand(testCase.input))
		})
	}
}

func TestHomeExpanderContract(testInstance *testing.T) {
	expander := pathutils.NewHomeExpanderWithProvider(staticHomeProvider(testHomeDirectoryConstant+"/", nil))
	require.Equal(testInstance, "open ~/.ssh/id_rsa: denied", expander.Contract("open /home/tester/.ssh/id_rsa: denied"))

	rootExpander := pathutils.NewHomeExpanderWithProvider(staticHomeProvider("/", nil))
	require.Equal(testInstance, "/etc/passwd", rootExpander.Contract("/etc/passwd"))

	failingExpander := pathutils.NewHomeExpanderWithProvider(staticHomeProvider("", errors.New("no home")))
	require.Equal(testInstance, "~/x", failingExpander.Expand("~/x"))
	require.Empty(testInstance, failingExpander.HomeDirectory())
}

func TestIsNestedPath(testInstance *testing.T) {
	testCases := []struct {
		name      string
		parent    string
		candidate string
		expected  bool
	}{
		{name: testNestedCaseNameConstant, parent: "/srv/repos", candidate: "/srv/repos/project", expected: true},
		{name: testSameCaseNameConstant, parent: "/srv/repos", candidate: "/srv/repos/", expected: true},
		{name: testSiblingPrefixCaseNameConstant, parent: "/srv/repo", candidate: "/srv/repository", expected: false},
		{name: testParentCaseNameConstant, parent: "/srv/repos/project", candidate: "/srv/repos", expected: false},
		{name: "root_parent", parent: "/", candidate: "/srv", expected: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expected, pathutils.IsNestedPath(testCase.parent, testCase.candidate))
		})
	}
}

func TestContainsPathComponent(testInstance *testing.T) {
	component, found := pathutils.ContainsPathComponent("/home/tester/.ssh/keys", []string{".aws", ".ssh"})
	require.True(testInstance, found)
	require.Equal(testInstance, ".ssh", component)

	_, found = pathutils.ContainsPathComponent("/home/tester/.sshx", []string{".ssh"})
	require.False(testInstance, found)
}

func TestIsFilesystemRoot(testInstance *testing.T) {
	require.True(testInstance, pathutils.IsFilesystemRoot("/"))
	require.False(testInstance, pathutils.IsFilesystemRoot("/srv"))
}

func TestResolvePathFollowsSymlinks(testInstance *testing.T) {
	temporaryDirectory := testInstance.TempDir()
	targetDirectory := filepath.Join(temporaryDirectory, "target")
	require.NoError(testInstance, os.Mkdir(targetDirectory, 0o755))
	linkPath := filepath.Join(temporaryDirectory, "link")
	if symlinkError := os.Symlink(targetDirectory, linkPath); symlinkError != nil {
		testInstance.Skipf("symlinks unavailable: %v", symlinkError)
	}

	resolvedPath, resolveError := pathutils.ResolvePath(linkPath)
	require.NoError(testInstance, resolveError)
	expectedPath, expectedError := filepath.EvalSymlinks(targetDirectory)
	require.NoError(testInstance, expectedError)
	require.Equal(testInstance, expectedPath, resolvedPath)

	_, missingError := pathutils.ResolvePath(filepath.Join(temporaryDirectory, "missing"))
	require.ErrorIs(testInstance, missingError, fs.ErrNotExist)
}

func TestReplacePathOccurrences(testInstance *testing.T) {
	testCases := []struct {
		name     string
		text     string
		path     string
		expected string
	}{
		{name: "separator_boundary", text: "open /srv/repo/file: denied", path: "/srv/repo", expected: "open <repo>/file: denied"},
		{name: "end_of_text", text: "cd /srv/repo", path: "/srv/repo", expected: "cd <repo>"},
		{name: "quoted", text: "'/srv/repo' missing", path: "/srv/repo", expected: "'<repo>' missing"},
		{name: "longer_sibling", text: "/srv/repository and /srv/repo.old", path: "/srv/repo", expected: "/srv/repository and /srv/repo.old"},
		{name: "multiple", text: "/srv/repo:/srv/repo", path: "/srv/repo", expected: "<repo>:<repo>"},
		{name: "sentence_period", text: "cannot read /srv/repo.", path: "/srv/repo", expected: "cannot read <repo>."},
		{name: "period_before_space", text: "at /srv/repo. Retry", path: "/srv/repo", expected: "at <repo>. Retry"},
		{name: "ellipsis", text: "scanning /srv/repo...", path: "/srv/repo", expected: "scanning <repo>..."},
		{name: "period_before_quote", text: `"/srv/repo."`, path: "/srv/repo", expected: `"<repo>."`},
		{name: "root_ignored", text: "/etc/passwd", path: "/", expected: "/etc/passwd"},
		{name: "empty_path", text: "unchanged", path: "", expected: "unchanged"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expected, pathutils.ReplacePathOccurrences(testCase.text, testCase.path, "<repo>"))
		})
	}

	expander := pathutils.NewHomeExpanderWithProvider(staticHomeProvider(testHomeDirectoryConstant, nil))
	require.Equal(testInstance, "~/a and ~2/b", expander.Contract("/home/tester/a and /home/tester2/b"))
	require.Equal(testInstance, "permission denied: ~.", expander.Contract("permission denied: /home/tester."))
	require.Equal(testInstance, "~-old/x ~_bak", expander.Contract("/home/tester-old/x /home/tester_bak"))
}
