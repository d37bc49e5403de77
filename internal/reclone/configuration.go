package reclone

import "strings"

const (
	defaultBackupDirectoryConstant = "/backup"
	defaultRestoreFileConstant     = "secrets.yaml"
)

// Configuration holds the reclone section of the gitpull configuration.
type Configuration struct {
	BackupDirectory string   `mapstructure:"backup_directory"`
	Restore         []string `mapstructure:"restore"`
}

// DefaultConfigurationValues returns viper defaults for the reclone section rooted at prefix.
func DefaultConfigurationValues(prefix string) map[string]any {
	return map[string]any{
		prefix + ".backup_directory": defaultBackupDirectoryConstant,
		prefix + ".restore":          []string{defaultRestoreFileConstant},
	}
}

// Options converts the configuration into service options. A blank backup directory falls back to the default.
func (configuration Configuration) Options() Options {
	restoreFiles := make([]string, 0, len(configuration.Restore))
	for _, restoreFile := range configuration.Restore {
		if trimmed := strings.TrimSpace(restoreFile); len(trimmed) > 0 {
			restoreFiles = append(restoreFiles, trimmed)
		}
	}
	backupDirectory := strings.TrimSpace(configuration.BackupDirectory)
	if len(backupDirectory) == 0 {
		backupDirectory = defaultBackupDirectoryConstant
	}
	return Options{
		BackupDirectory: backupDirectory,
		RestoreFiles:    restoreFiles,
	}
}
