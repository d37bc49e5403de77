package homeassistant

const defaultValidationModeConstant = string(ValidationModeHomeAssistant)

// Configuration holds the validation section of the gitpull configuration.
type Configuration struct {
	Mode string `mapstructure:"mode"`
}

// DefaultConfigurationValues returns viper defaults for the validation section rooted at prefix.
func DefaultConfigurationValues(prefix string) map[string]any {
	return map[string]any{
		prefix + ".mode": defaultValidationModeConstant,
	}
}
