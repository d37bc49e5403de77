package metrics

import "strings"

// Configuration holds the metrics section of the gitpull configuration.
type Configuration struct {
	// ListenAddress enables the /metrics endpoint when set, e.g. ":9110".
	ListenAddress string `mapstructure:"listen_address"`
}

// DefaultConfigurationValues returns viper defaults for the metrics section rooted at prefix.
func DefaultConfigurationValues(prefix string) map[string]any {
	return map[string]any{
		prefix + ".listen_address": "",
	}
}

// Enabled reports whether an endpoint should be served.
func (configuration Configuration) Enabled() bool {
	return len(strings.TrimSpace(configuration.ListenAddress)) > 0
}
