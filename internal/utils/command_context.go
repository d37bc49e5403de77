package utils

import "context"

const (
	configurationFilePathContextKeyConstant = commandContextKey("configurationFilePath")
	environmentFilePathContextKeyConstant   = commandContextKey("environmentFilePath")
)

type commandContextKey string

// CommandContextAccessor stores invocation metadata on command contexts.
type CommandContextAccessor struct{}

// NewCommandContextAccessor constructs a CommandContextAccessor instance.
func NewCommandContextAccessor() CommandContextAccessor {
	return CommandContextAccessor{}
}

// WithConfigurationFilePath attaches the resolved configuration file path.
func (accessor CommandContextAccessor) WithConfigurationFilePath(parentContext context.Context, configurationFilePath string) context.Context {
	return accessor.withValue(parentContext, configurationFilePathContextKeyConstant, configurationFilePath)
}

// ConfigurationFilePath extracts the configuration file path.
func (accessor CommandContextAccessor) ConfigurationFilePath(executionContext context.Context) (string, bool) {
	return accessor.stringValue(executionContext, configurationFilePathContextKeyConstant)
}

// WithEnvironmentFilePath attaches the path of the environment file loaded before configuration.
func (accessor CommandContextAccessor) WithEnvironmentFilePath(parentContext context.Context, environmentFilePath string) context.Context {
	return accessor.withValue(parentContext, environmentFilePathContextKeyConstant, environmentFilePath)
}

// EnvironmentFilePath extracts the environment file path.
func (accessor CommandContextAccessor) EnvironmentFilePath(executionContext context.Context) (string, bool) {
	return accessor.stringValue(executionContext, environmentFilePathContextKeyConstant)
}

func (accessor CommandContextAccessor) withValue(parentContext context.Context, key commandContextKey, value string) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	return context.WithValue(parentContext, key, value)
}

func (accessor CommandContextAccessor) stringValue(executionContext context.Context, key commandContextKey) (string, bool) {
	if executionContext == nil {
		return "", false
	}
	value, available := executionContext.Value(key).(string)
	if !available || len(value) == 0 {
		return "", false
	}
	return value, true
}
