package orchestrator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	defaultRepeatIntervalSecondsConstant = 300
	invalidIntervalMessageConstant       = "repeat interval must be positive"
	invalidScheduleTemplateConstant      = "invalid repeat schedule %q: %w"
)

// ErrInvalidRepeatInterval indicates a non-positive interval for an active repeat.
var ErrInvalidRepeatInterval = errors.New(invalidIntervalMessageConstant)

// RepeatConfiguration holds the repeat section of the gitpull configuration.
type RepeatConfiguration struct {
	Active bool `mapstructure:"active"`
	// Interval is the number of seconds between iterations when Schedule is empty.
	Interval int `mapstructure:"interval"`
	// Schedule is a standard five-field cron expression and takes precedence over Interval.
	Schedule string `mapstructure:"schedule"`
}

// DefaultRepeatConfigurationValues returns viper defaults for the repeat section rooted at prefix.
func DefaultRepeatConfigurationValues(prefix string) map[string]any {
	return map[string]any{
		prefix + ".active":   false,
		prefix + ".interval": defaultRepeatIntervalSecondsConstant,
		prefix + ".schedule": "",
	}
}

// Options converts the configuration into RepeatOptions.
func (configuration RepeatConfiguration) Options() (RepeatOptions, error) {
	if !configuration.Active {
		return RepeatOptions{}, nil
	}
	if expression := strings.TrimSpace(configuration.Schedule); len(expression) > 0 {
		schedule, parseError := cron.ParseStandard(expression)
		if parseError != nil {
			return RepeatOptions{}, fmt.Errorf(invalidScheduleTemplateConstant, expression, parseError)
		}
		return RepeatOptions{Active: true, Schedule: schedule}, nil
	}
	if configuration.Interval <= 0 {
		return RepeatOptions{}, ErrInvalidRepeatInterval
	}
	return RepeatOptions{Active: true, Schedule: cron.Every(time.Duration(configuration.Interval) * time.Second)}, nil
}
