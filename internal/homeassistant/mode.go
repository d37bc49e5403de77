package homeassistant

import (
	"fmt"
	"strings"
)

const unsupportedModeTemplateConstant = "%w: %q (expected one of %s)"

// ValidationMode selects how the configuration is checked after a sync.
type ValidationMode string

// Supported validation modes.
const (
	ValidationModeHomeAssistant ValidationMode = "ha"
	ValidationModeYAML          ValidationMode = "yaml"
	ValidationModeNone          ValidationMode = "none"
)

// ValidationModes lists the supported modes in display order.
func ValidationModes() []string {
	return []string{string(ValidationModeHomeAssistant), string(ValidationModeYAML), string(ValidationModeNone)}
}

// ParseValidationMode converts user input into a ValidationMode.
func ParseValidationMode(value string) (ValidationMode, error) {
	normalizedValue := ValidationMode(strings.ToLower(strings.TrimSpace(value)))
	switch normalizedValue {
	case ValidationModeHomeAssistant, ValidationModeYAML, ValidationModeNone:
		return normalizedValue, nil
	default:
		return "", fmt.Errorf(unsupportedModeTemplateConstant, ErrUnsupportedValidationMode, value, strings.Join(ValidationModes(), ", "))
	}
}
