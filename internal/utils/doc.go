// Package utils holds the CLI plumbing shared by every gitpull command.
//
// ConfigurationLoader layers embedded defaults, an optional file and GITPULL_
// environment variables through Viper; LoggerFactory builds the zap loggers.
package utils
