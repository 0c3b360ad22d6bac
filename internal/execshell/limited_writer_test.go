package execshell

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLimitedBufferWrites(testInstance *testing.T) {
	testCases := []struct {
		name              string
		limit             int
		writes            []string
		expectedContent   string
		expectedTruncated bool
	}{
		{name: "unlimited", limit: 0, writes: []string{"abc", "def"}, expectedContent: "abcdef"},
		{name: "within_limit", limit: 6, writes: []string{"abc", "def"}, expectedContent: "abcdef"},
		{name: "split_write", limit: 4, writes: []string{"abc", "def"}, expectedContent: "abcd", expectedTruncated: true},
		{name: "after_limit", limit: 3, writes: []string{"abc", "def"}, expectedContent: "abc", expectedTruncated: true},
		{name: "empty_write_after_limit", limit: 3, writes: []string{"abc", ""}, expectedContent: "abc"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			buffer := newLimitedBuffer(testCase.limit)
			for _, chunk := range testCase.writes {
				written, writeError := buffer.Write([]byte(chunk))
				require.NoError(testInstance, writeError)
				require.Equal(testInstance, len(chunk), written)
			}
			require.Equal(testInstance, testCase.expectedContent, buffer.String())
			require.Equal(testInstance, testCase.expectedTruncated, buffer.Truncated())
		})
	}
}
