package synchronize

import (
	"fmt"
	"strings"
)

const unsupportedModeTemplateConstant = "%w: %q"

// Mode selects how the working tree is moved to the remote branch tip.
type Mode string

// Supported modes.
const (
	// ModePull merges the remote branch into the checked out branch.
	ModePull Mode = "pull"
	// ModeReset discards local commits and changes with a hard reset to the remote branch.
	ModeReset Mode = "reset"
)

// Modes lists the supported modes in display order.
func Modes() []string {
	return []string{string(ModePull), string(ModeReset)}
}

// ParseMode accepts "pull" or "reset" in any letter case.
func ParseMode(candidate string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(candidate))) {
	case ModePull:
		return ModePull, nil
	case ModeReset:
		return ModeReset, nil
	default:
		return "", fmt.Errorf(unsupportedModeTemplateConstant, ErrUnsupportedMode, candidate)
	}
}
