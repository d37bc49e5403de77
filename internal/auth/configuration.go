package auth

import (
	"strings"

	pathutils "github.com/temirov/gitpull/internal/utils/path"
)

const (
	defaultSSHDirectoryConstant    = "~/.ssh"
	defaultCredentialStoreConstant = "~/.git-credentials"
)

// Configuration holds the auth section of the gitpull configuration.
type Configuration struct {
	DeploymentKey         string `mapstructure:"deployment_key"`
	DeploymentKeyFile     string `mapstructure:"deployment_key_file"`
	DeploymentKeyProtocol string `mapstructure:"deployment_key_protocol"`
	DeploymentUser        string `mapstructure:"deployment_user"`
	DeploymentPassword    string `mapstructure:"deployment_password"`
	SSHDirectory          string `mapstructure:"ssh_directory"`
	CredentialStore       string `mapstructure:"credential_store"`
}

// DefaultConfigurationValues returns viper defaults for the auth section rooted at prefix.
func DefaultConfigurationValues(prefix string) map[string]any {
	return map[string]any{
		prefix + ".deployment_key_protocol": defaultKeyProtocolConstant,
		prefix + ".ssh_directory":           defaultSSHDirectoryConstant,
		prefix + ".credential_store":        defaultCredentialStoreConstant,
	}
}

// Options converts the configuration into service options with "~" expanded in every path.
func (configuration Configuration) Options(expander *pathutils.HomeExpander) Options {
	sshDirectory := configuration.SSHDirectory
	if len(strings.TrimSpace(sshDirectory)) == 0 {
		sshDirectory = defaultSSHDirectoryConstant
	}
	credentialStore := configuration.CredentialStore
	if len(strings.TrimSpace(credentialStore)) == 0 {
		credentialStore = defaultCredentialStoreConstant
	}
	return Options{
		DeploymentKey:         configuration.DeploymentKey,
		DeploymentKeyFile:     expander.ExpandClean(configuration.DeploymentKeyFile),
		DeploymentKeyProtocol: strings.TrimSpace(configuration.DeploymentKeyProtocol),
		DeploymentUser:        strings.TrimSpace(configuration.DeploymentUser),
		DeploymentPassword:    configuration.DeploymentPassword,
		SSHDirectory:          expander.ExpandClean(sshDirectory),
		CredentialStore:       expander.ExpandClean(credentialStore),
	}
}
