package flags

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestFormatChoiceUsage(t *testing.T) {
	testCases := []struct {
		name           string
		defaultChoice  string
		choices        []string
		description    string
		expectedOutput string
	}{
		{
			name:           "default_first_choice",
			defaultChoice:  "pull",
			choices:        []string{"pull", "reset"},
			description:    "Update the working tree with a merge pull or a hard reset.",
			expectedOutput: "`<PULL|reset>` Update the working tree with a merge pull or a hard reset.",
		},
		{
			name:           "default_second_choice",
			defaultChoice:  "console",
			choices:        []string{"structured", "console"},
			description:    "Select the log encoding.",
			expectedOutput: "`<structured|CONSOLE>` Select the log encoding.",
		},
		{
			name:           "empty_description",
			defaultChoice:  "ha",
			choices:        []string{"ha", "yaml", "none"},
			description:    "",
			expectedOutput: "`<HA|yaml|none>`",
		},
		{
			name:           "duplicate_choices_ignored",
			defaultChoice:  "reset",
			choices:        []string{"reset", "reset", "pull", "pull"},
			description:    "Select between options.",
			expectedOutput: "`<RESET|pull>` Select between options.",
		},
		{
			name:           "whitespace_trimmed",
			defaultChoice:  "pull",
			choices:        []string{" pull ", " reset "},
			description:    "Pick a mode.",
			expectedOutput: "`<PULL|reset>` Pick a mode.",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			actual := FormatChoiceUsage(testCase.defaultChoice, testCase.choices, testCase.description)
			require.Equal(t, testCase.expectedOutput, actual)
		})
	}
}

func TestChoiceValueWithFlagSet(t *testing.T) {
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	modeValue := NewChoiceValue("pull", "reset")
	flagSet.Var(modeValue, "mode", "mode")

	require.Empty(t, modeValue.String())
	require.NoError(t, flagSet.Parse([]string{"--mode", "RESET"}))
	require.Equal(t, "reset", modeValue.String())

	require.Error(t, flagSet.Parse([]string{"--mode", "rebase"}))
	require.Equal(t, "reset", modeValue.String())
	require.Equal(t, "choice", modeValue.Type())
}
