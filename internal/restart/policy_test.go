package restart_test

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/temirov/gitpull/internal/restart"
)

const (
	testWorkTreeConstant       = "/config"
	testPreviousCommitConstant = "aaaaaaa"
	testNewCommitConstant      = "bbbbbbb"
)

func newMemoryWorkTree(t *testing.T, directories ...string) afero.Fs {
	t.Helper()
	fileSystem := afero.NewMemMapFs()
	require.NoError(t, fileSystem.MkdirAll(testWorkTreeConstant, 0o755))
	for _, directory := range directories {
		require.NoError(t, fileSystem.MkdirAll(testWorkTreeConstant+"/"+directory, 0o755))
	}
	return fileSystem
}

func TestShouldRestartScenarios(t *testing.T) {
	fileSystem := newMemoryWorkTree(t, "www", ".storage")

	testCases := []struct {
		name            string
		previousCommit  string
		newCommit       string
		changedFiles    []string
		ignorePatterns  []string
		autoRestart     bool
		expectedRestart bool
	}{
		{
			name:            "only_ignored_file_changed",
			previousCommit:  testPreviousCommitConstant,
			newCommit:       testNewCommitConstant,
			changedFiles:    []string{"secrets.yaml"},
			ignorePatterns:  []string{"secrets.yaml"},
			autoRestart:     true,
			expectedRestart: false,
		},
		{
			name:            "tracked_file_changed_alongside_ignored",
			previousCommit:  testPreviousCommitConstant,
			newCommit:       testNewCommitConstant,
			changedFiles:    []string{"secrets.yaml", "automations.yaml"},
			ignorePatterns:  []string{"secrets.yaml"},
			autoRestart:     true,
			expectedRestart: true,
		},
		{
			name:            "file_inside_ignored_directory",
			previousCommit:  testPreviousCommitConstant,
			newCommit:       testNewCommitConstant,
			changedFiles:    []string{"cache/tmp.db"},
			ignorePatterns:  []string{"cache/"},
			autoRestart:     true,
			expectedRestart: false,
		},
		{
			name:            "existing_directory_without_trailing_slash",
			previousCommit:  testPreviousCommitConstant,
			newCommit:       testNewCommitConstant,
			changedFiles:    []string{"www/card.js", ".storage/auth"},
			ignorePatterns:  []string{"www", ".storage"},
			autoRestart:     true,
			expectedRestart: false,
		},
		{
			name:            "directory_prefix_does_not_match_sibling",
			previousCommit:  testPreviousCommitConstant,
			newCommit:       testNewCommitConstant,
			changedFiles:    []string{"www-old/card.js"},
			ignorePatterns:  []string{"www/"},
			autoRestart:     true,
			expectedRestart: true,
		},
		{
			name:            "file_entry_is_exact",
			previousCommit:  testPreviousCommitConstant,
			newCommit:       testNewCommitConstant,
			changedFiles:    []string{"secrets.yaml.bak"},
			ignorePatterns:  []string{"secrets.yaml"},
			autoRestart:     true,
			expectedRestart: true,
		},
		{
			name:            "equal_commits_never_restart",
			previousCommit:  testNewCommitConstant,
			newCommit:       testNewCommitConstant,
			changedFiles:    []string{"configuration.yaml"},
			autoRestart:     true,
			expectedRestart: false,
		},
		{
			name:            "auto_restart_disabled",
			previousCommit:  testPreviousCommitConstant,
			newCommit:       testNewCommitConstant,
			changedFiles:    []string{"configuration.yaml"},
			autoRestart:     false,
			expectedRestart: false,
		},
		{
			name:            "empty_ignore_list_restarts_on_any_change",
			previousCommit:  testPreviousCommitConstant,
			newCommit:       testNewCommitConstant,
			changedFiles:    []string{},
			autoRestart:     true,
			expectedRestart: true,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			ignoreList := restart.NewIgnoreList(fileSystem, testWorkTreeConstant, testCase.ignorePatterns)
			restartRequired := restart.ShouldRestart(testCase.previousCommit, testCase.newCommit, testCase.changedFiles, ignoreList, testCase.autoRestart)
			require.Equal(t, testCase.expectedRestart, restartRequired)
		})
	}
}

func TestEvaluateListsEveryFile(t *testing.T) {
	fileSystem := newMemoryWorkTree(t)
	ignoreList := restart.NewIgnoreList(fileSystem, testWorkTreeConstant, []string{"secrets.yaml", "www/"})

	decision := restart.Evaluate(restart.Input{
		PreviousCommit: testPreviousCommitConstant,
		NewCommit:      testNewCommitConstant,
		ChangedFiles:   []string{"automations.yaml", "scripts.yaml", "secrets.yaml", "www/card.js"},
		IgnoreList:     ignoreList,
		AutoRestart:    true,
	})

	require.True(t, decision.Restart)
	require.Equal(t, restart.ReasonTrackedFilesChanged, decision.Reason)
	require.Equal(t, []string{"automations.yaml", "scripts.yaml"}, decision.RestartRequiredFiles)
	require.Equal(t, []string{"secrets.yaml", "www/card.js"}, decision.IgnoredFiles)
}

func TestEvaluateReasons(t *testing.T) {
	fileSystem := newMemoryWorkTree(t)
	ignoreList := restart.NewIgnoreList(fileSystem, testWorkTreeConstant, []string{"secrets.yaml"})

	testCases := []struct {
		name           string
		input          restart.Input
		expectedReason restart.Reason
	}{
		{
			name:           "unchanged",
			input:          restart.Input{PreviousCommit: testNewCommitConstant, NewCommit: testNewCommitConstant, AutoRestart: true, IgnoreList: ignoreList},
			expectedReason: restart.ReasonCommitsUnchanged,
		},
		{
			name:           "disabled",
			input:          restart.Input{PreviousCommit: testPreviousCommitConstant, NewCommit: testNewCommitConstant, ChangedFiles: []string{"configuration.yaml"}, IgnoreList: ignoreList},
			expectedReason: restart.ReasonAutoRestartDisabled,
		},
		{
			name:           "no_ignore_list",
			input:          restart.Input{PreviousCommit: testPreviousCommitConstant, NewCommit: testNewCommitConstant, AutoRestart: true},
			expectedReason: restart.ReasonNoIgnoreList,
		},
		{
			name:           "only_ignored",
			input:          restart.Input{PreviousCommit: testPreviousCommitConstant, NewCommit: testNewCommitConstant, ChangedFiles: []string{"secrets.yaml"}, AutoRestart: true, IgnoreList: ignoreList},
			expectedReason: restart.ReasonOnlyIgnoredChanged,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			require.Equal(t, testCase.expectedReason, restart.Evaluate(testCase.input).Reason)
		})
	}
}

func TestNewIgnoreListClassifiesEntries(t *testing.T) {
	fileSystem := newMemoryWorkTree(t, "custom_components/hacs")
	require.NoError(t, afero.WriteFile(fileSystem, testWorkTreeConstant+"/secrets.yaml", []byte("key: value\n"), 0o600))

	ignoreList := restart.NewIgnoreList(fileSystem, testWorkTreeConstant, []string{
		" secrets.yaml ",
		"./custom_components/hacs",
		"tts/",
		"not-there",
		"",
		"tts/",
		"/www//",
	})

	require.Equal(t, []restart.IgnoreEntry{
		{Path: "secrets.yaml", Kind: restart.IgnoreEntryFile},
		{Path: "custom_components/hacs", Kind: restart.IgnoreEntryDirectory},
		{Path: "tts", Kind: restart.IgnoreEntryDirectory},
		{Path: "not-there", Kind: restart.IgnoreEntryFile},
		{Path: "www", Kind: restart.IgnoreEntryDirectory},
	}, ignoreList.Entries())

	require.True(t, ignoreList.Matches("custom_components/hacs/manifest.json"))
	require.True(t, ignoreList.Matches("tts"))
	require.False(t, ignoreList.Matches("not-there/child"))
	require.Equal(t, "directory", restart.IgnoreEntryDirectory.String())
	require.True(t, restart.NewIgnoreList(fileSystem, testWorkTreeConstant, nil).Empty())
}

func TestConfigurationSanitizeDropsBlankPatterns(t *testing.T) {
	sanitized := restart.Configuration{Auto: true, Ignore: []string{" secrets.yaml", "", "  "}}.Sanitize()
	require.True(t, sanitized.Auto)
	require.Equal(t, []string{"secrets.yaml"}, sanitized.Ignore)
}
