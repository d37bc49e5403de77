package pathutils_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	pathutils "github.com/temirov/gitpull/internal/utils/path"
)

func TestHomeExpanderExpand(testInstance *testing.T) {
	homeDirectory := filepath.Join(string(filepath.Separator), "root")
	expander := pathutils.NewHomeExpanderWithProvider(func() (string, error) {
		return homeDirectory, nil
	})

	testCases := []struct {
		name         string
		input        string
		expectedPath string
	}{
		{name: "bare_tilde", input: "~", expectedPath: homeDirectory},
		{name: "ssh_directory", input: "~/.ssh", expectedPath: filepath.Join(homeDirectory, ".ssh")},
		{name: "absolute_path", input: "/tmp/backups", expectedPath: "/tmp/backups"},
		{name: "empty_path", input: "", expectedPath: ""},
		{name: "other_user", input: "~hass/.ssh", expectedPath: "~hass/.ssh"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expectedPath, expander.Expand(testCase.input))
		})
	}
}

func TestHomeExpanderKeepsPathWhenHomeUnavailable(testInstance *testing.T) {
	expander := pathutils.NewHomeExpanderWithProvider(func() (string, error) {
		return "", errors.New("no home")
	})
	require.Equal(testInstance, "~/.ssh", expander.Expand("~/.ssh"))
}

func TestHomeExpanderExpandClean(testInstance *testing.T) {
	expander := pathutils.NewHomeExpanderWithProvider(func() (string, error) {
		return "/root", nil
	})
	require.Equal(testInstance, "/root/.ssh", expander.ExpandClean("  ~/.ssh/ "))
	require.Equal(testInstance, "/config", expander.ExpandClean("/config/./"))
	require.Empty(testInstance, expander.ExpandClean("   "))
}
