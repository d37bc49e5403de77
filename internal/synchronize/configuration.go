package synchronize

import "strings"

const (
	defaultRemoteNameConstant = "origin"
	defaultModeConstant       = string(ModePull)
)

// Configuration holds the repository section of the gitpull configuration.
type Configuration struct {
	Path       string `mapstructure:"path"`
	URL        string `mapstructure:"url"`
	RemoteName string `mapstructure:"remote"`
	BranchName string `mapstructure:"branch"`
	Mode       string `mapstructure:"mode"`
	Prune      bool   `mapstructure:"prune"`
}

// DefaultConfigurationValues returns viper defaults for the repository section rooted at prefix.
func DefaultConfigurationValues(prefix string) map[string]any {
	return map[string]any{
		prefix + ".path":   "/config",
		prefix + ".remote": defaultRemoteNameConstant,
		prefix + ".mode":   defaultModeConstant,
		prefix + ".prune":  false,
	}
}

// Options converts the configuration into validated synchronization options.
func (configuration Configuration) Options() (Options, error) {
	mode, modeError := ParseMode(configuration.Mode)
	if modeError != nil {
		return Options{}, modeError
	}
	options := Options{
		WorkTree:   strings.TrimSpace(configuration.Path),
		RemoteURL:  strings.TrimSpace(configuration.URL),
		RemoteName: strings.TrimSpace(configuration.RemoteName),
		BranchName: strings.TrimSpace(configuration.BranchName),
		Mode:       mode,
		Prune:      configuration.Prune,
	}
	if len(options.RemoteName) == 0 {
		options.RemoteName = defaultRemoteNameConstant
	}
	return options, options.Validate()
}
