package restart

import "strings"

// Configuration holds the restart section of the gitpull configuration.
type Configuration struct {
	Auto   bool     `mapstructure:"auto"`
	Ignore []string `mapstructure:"ignore"`
}

// DefaultConfigurationValues returns viper defaults for the restart section rooted at prefix.
func DefaultConfigurationValues(prefix string) map[string]any {
	return map[string]any{
		prefix + ".auto":   false,
		prefix + ".ignore": []string{},
	}
}

// Sanitize drops blank ignore patterns.
func (configuration Configuration) Sanitize() Configuration {
	sanitized := configuration
	sanitized.Ignore = make([]string, 0, len(configuration.Ignore))
	for _, pattern := range configuration.Ignore {
		if trimmedPattern := strings.TrimSpace(pattern); len(trimmedPattern) > 0 {
			sanitized.Ignore = append(sanitized.Ignore, trimmedPattern)
		}
	}
	return sanitized
}
