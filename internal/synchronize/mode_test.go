package synchronize

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	testCases := []struct {
		input        string
		expectedMode Mode
		expectError  bool
	}{
		{input: "pull", expectedMode: ModePull},
		{input: " RESET ", expectedMode: ModeReset},
		{input: "rebase", expectError: true},
		{input: "", expectError: true},
	}

	for _, testCase := range testCases {
		t.Run(testCase.input, func(t *testing.T) {
			mode, parseError := ParseMode(testCase.input)
			if testCase.expectError {
				require.ErrorIs(t, parseError, ErrUnsupportedMode)
				return
			}
			require.NoError(t, parseError)
			require.Equal(t, testCase.expectedMode, mode)
		})
	}
}

func TestConfigurationOptions(t *testing.T) {
	options, optionsError := Configuration{
		Path:  " /config ",
		URL:   "git@github.com:example/config.git",
		Mode:  "Reset",
		Prune: true,
	}.Options()
	require.NoError(t, optionsError)
	require.Equal(t, Options{
		WorkTree:   "/config",
		RemoteURL:  "git@github.com:example/config.git",
		RemoteName: "origin",
		Mode:       ModeReset,
		Prune:      true,
	}, options)

	_, missingURLError := Configuration{Path: "/config", Mode: "pull"}.Options()
	require.ErrorIs(t, missingURLError, ErrRemoteURLRequired)
}
