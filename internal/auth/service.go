package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"

	"github.com/temirov/gitpull/internal/execshell"
	"github.com/temirov/gitpull/internal/gitrepo"
)

const (
	authSetupFailedMessageConstant        = "authentication setup failed"
	executorMissingMessageConstant        = "auth executor not configured"
	fileSystemMissingMessageConstant      = "auth file system not configured"
	stepDetailFailureTemplateConstant     = "%w: %s: %w"
	parseRemoteStepConstant               = "parse remote"
	readKeyFileStepConstant               = "read deployment key file"
	parseKeyStepConstant                  = "parse deployment key"
	writeKeyStepConstant                  = "write deployment key"
	writeSSHConfigStepConstant            = "write ssh config"
	configureHelperStepConstant           = "configure credential helper"
	storeCredentialStepConstant           = "store credential"
	sshTestFlagConstant                   = "-T"
	sshOptionFlagConstant                 = "-o"
	sshPortFlagConstant                   = "-p"
	sshStrictHostKeyOptionConstant        = "StrictHostKeyChecking=no"
	sshBatchModeOptionConstant            = "BatchMode=yes"
	sshSuccessfulAuthenticationConstant   = "successfully authenticated"
	defaultKeyProtocolConstant            = "rsa"
	keyFilePrefixConstant                 = "id_"
	sshConfigFileNameConstant             = "config"
	sshConfigTemplateConstant             = "Host *\n    StrictHostKeyChecking no\n    IdentityFile %s\n"
	sshDirectoryPermissionsConstant       = 0o700
	privateFilePermissionsConstant        = 0o600
	gitConfigSubcommandConstant           = "config"
	gitGlobalFlagConstant                 = "--global"
	gitCredentialHelperKeyConstant        = "credential.helper"
	gitCredentialHelperTemplateConstant   = "store --file=%s"
	gitCredentialSubcommandConstant       = "credential"
	gitCredentialApproveConstant          = "approve"
	credentialInputTemplateConstant       = "protocol=%s\nhost=%s\nusername=%s\npassword=%s\n\n"
	hostPortSeparatorConstant             = ":"
	sshAccessConfirmedMessageConstant     = "ssh access confirmed"
	sshAccessUnavailableMessageConstant   = "ssh access check failed, installing deployment key"
	deploymentKeyInstalledMessageConstant = "deployment key installed"
	keyIgnoredMessageConstant             = "deployment key ignored for non-ssh remote"
	credentialsIgnoredMessageConstant     = "deployment credentials ignored for ssh remote"
	credentialsStoredMessageConstant      = "deployment credentials stored"
	noCredentialsMessageConstant          = "no deployment credentials configured"
	remoteHostFieldConstant               = "host"
	keyPathFieldConstant                  = "key_path"
	fingerprintFieldConstant              = "fingerprint"
	credentialStoreFieldConstant          = "credential_store"
)

// ErrAuthSetupFailed wraps every failure to prepare credentials for the remote.
var ErrAuthSetupFailed = errors.New(authSetupFailedMessageConstant)

// Dependency validation errors.
var (
	ErrExecutorNotConfigured   = errors.New(executorMissingMessageConstant)
	ErrFileSystemNotConfigured = errors.New(fileSystemMissingMessageConstant)
)

// Executor runs the git and ssh clients.
type Executor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
	ExecuteSSH(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Dependencies enumerates the collaborators used for authentication setup.
type Dependencies struct {
	Executor   Executor
	FileSystem afero.Fs
	Logger     *zap.Logger
}

// Options holds the deployment credentials. Paths are expected to be absolute and expanded.
type Options struct {
	DeploymentKey         string
	DeploymentKeyFile     string
	DeploymentKeyProtocol string
	DeploymentUser        string
	DeploymentPassword    string
	SSHDirectory          string
	CredentialStore       string
}

// HasDeploymentKey reports whether an inline key or key file is configured.
func (options Options) HasDeploymentKey() bool {
	return len(strings.TrimSpace(options.DeploymentKey)) > 0 || len(strings.TrimSpace(options.DeploymentKeyFile)) > 0
}

// HasDeploymentCredentials reports whether a user and password are configured.
func (options Options) HasDeploymentCredentials() bool {
	return len(strings.TrimSpace(options.DeploymentUser)) > 0 && len(options.DeploymentPassword) > 0
}

// Service prepares SSH keys or stored HTTP credentials before git talks to the remote.
type Service struct {
	executor   Executor
	fileSystem afero.Fs
	logger     *zap.Logger
	options    Options
}

// NewService validates dependencies and constructs a Service.
func NewService(dependencies Dependencies, options Options) (*Service, error) {
	if dependencies.Executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	if dependencies.FileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(strings.TrimSpace(options.DeploymentKeyProtocol)) == 0 {
		options.DeploymentKeyProtocol = defaultKeyProtocolConstant
	}
	return &Service{
		executor:   dependencies.Executor,
		fileSystem: dependencies.FileSystem,
		logger:     logger,
		options:    options,
	}, nil
}

// EnsureAuth installs the deployment key for SSH remotes whose access check fails,
// and stores deployment credentials for HTTP remotes.
func (service *Service) EnsureAuth(executionContext context.Context, remoteURL string) error {
	endpoint, parseError := gitrepo.ParseRemoteEndpoint(remoteURL)
	if parseError != nil {
		return fmt.Errorf(stepDetailFailureTemplateConstant, ErrAuthSetupFailed, parseRemoteStepConstant, parseError)
	}

	switch {
	case endpoint.IsSSH() && service.options.HasDeploymentKey():
		return service.ensureSSHAccess(executionContext, endpoint)
	case !endpoint.IsSSH() && service.options.HasDeploymentCredentials():
		return service.storeCredentials(executionContext, endpoint)
	case service.options.HasDeploymentKey():
		service.logger.Warn(keyIgnoredMessageConstant, zap.String(remoteHostFieldConstant, endpoint.Host))
	case service.options.HasDeploymentCredentials():
		service.logger.Warn(credentialsIgnoredMessageConstant, zap.String(remoteHostFieldConstant, endpoint.Host))
	default:
		service.logger.Debug(noCredentialsMessageConstant, zap.String(remoteHostFieldConstant, endpoint.Host))
	}
	return nil
}

func (service *Service) ensureSSHAccess(executionContext context.Context, endpoint gitrepo.RemoteEndpoint) error {
	if service.checkSSHAccess(executionContext, endpoint) {
		service.logger.Info(sshAccessConfirmedMessageConstant, zap.String(remoteHostFieldConstant, endpoint.Host))
		return nil
	}
	service.logger.Info(sshAccessUnavailableMessageConstant, zap.String(remoteHostFieldConstant, endpoint.Host))

	keyMaterial, keyError := service.loadKeyMaterial()
	if keyError != nil {
		return fmt.Errorf(stepDetailFailureTemplateConstant, ErrAuthSetupFailed, readKeyFileStepConstant, keyError)
	}
	fingerprint, fingerprintError := Fingerprint(keyMaterial)
	if fingerprintError != nil {
		return fmt.Errorf(stepDetailFailureTemplateConstant, ErrAuthSetupFailed, parseKeyStepConstant, fingerprintError)
	}

	sshDirectory := filepath.Clean(service.options.SSHDirectory)
	keyPath := filepath.Join(sshDirectory, keyFilePrefixConstant+strings.TrimSpace(service.options.DeploymentKeyProtocol))
	if writeError := service.writePrivateFile(keyPath, keyMaterial); writeError != nil {
		return fmt.Errorf(stepDetailFailureTemplateConstant, ErrAuthSetupFailed, writeKeyStepConstant, writeError)
	}
	sshConfiguration := []byte(fmt.Sprintf(sshConfigTemplateConstant, keyPath))
	if writeError := service.writePrivateFile(filepath.Join(sshDirectory, sshConfigFileNameConstant), sshConfiguration); writeError != nil {
		return fmt.Errorf(stepDetailFailureTemplateConstant, ErrAuthSetupFailed, writeSSHConfigStepConstant, writeError)
	}

	service.logger.Info(
		deploymentKeyInstalledMessageConstant,
		zap.String(keyPathFieldConstant, keyPath),
		zap.String(fingerprintFieldConstant, fingerprint),
	)
	return nil
}

// checkSSHAccess treats a clean exit, or GitHub's exit code 1 greeting, as working access.
func (service *Service) checkSSHAccess(executionContext context.Context, endpoint gitrepo.RemoteEndpoint) bool {
	arguments := []string{
		sshTestFlagConstant,
		sshOptionFlagConstant, sshStrictHostKeyOptionConstant,
		sshOptionFlagConstant, sshBatchModeOptionConstant,
	}
	if len(endpoint.Port) > 0 {
		arguments = append(arguments, sshPortFlagConstant, endpoint.Port)
	}
	arguments = append(arguments, endpoint.SSHDestination())

	_, checkError := service.executor.ExecuteSSH(executionContext, execshell.CommandDetails{Arguments: arguments})
	if checkError == nil {
		return true
	}
	var commandFailure execshell.CommandFailedError
	if !errors.As(checkError, &commandFailure) {
		return false
	}
	combinedOutput := strings.ToLower(commandFailure.Result.StandardError + commandFailure.Result.StandardOutput)
	return strings.Contains(combinedOutput, sshSuccessfulAuthenticationConstant)
}

func (service *Service) loadKeyMaterial() ([]byte, error) {
	inlineKey := strings.TrimSpace(service.options.DeploymentKey)
	if len(inlineKey) > 0 {
		return []byte(inlineKey + "\n"), nil
	}
	fileContents, readError := afero.ReadFile(service.fileSystem, strings.TrimSpace(service.options.DeploymentKeyFile))
	if readError != nil {
		return nil, readError
	}
	return []byte(strings.TrimSpace(string(fileContents)) + "\n"), nil
}

func (service *Service) writePrivateFile(filePath string, contents []byte) error {
	if mkdirError := service.fileSystem.MkdirAll(filepath.Dir(filePath), sshDirectoryPermissionsConstant); mkdirError != nil {
		return mkdirError
	}
	if writeError := afero.WriteFile(service.fileSystem, filePath, contents, privateFilePermissionsConstant); writeError != nil {
		return writeError
	}
	return service.fileSystem.Chmod(filePath, os.FileMode(privateFilePermissionsConstant))
}

func (service *Service) storeCredentials(executionContext context.Context, endpoint gitrepo.RemoteEndpoint) error {
	credentialStore := filepath.Clean(service.options.CredentialStore)
	helper := fmt.Sprintf(gitCredentialHelperTemplateConstant, credentialStore)
	if _, configError := service.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments: []string{gitConfigSubcommandConstant, gitGlobalFlagConstant, gitCredentialHelperKeyConstant, helper},
	}); configError != nil {
		return fmt.Errorf(stepDetailFailureTemplateConstant, ErrAuthSetupFailed, configureHelperStepConstant, configError)
	}

	host := endpoint.Host
	if len(endpoint.Port) > 0 {
		host += hostPortSeparatorConstant + endpoint.Port
	}
	credentialInput := fmt.Sprintf(credentialInputTemplateConstant, endpoint.Protocol, host, strings.TrimSpace(service.options.DeploymentUser), service.options.DeploymentPassword)
	if _, approveError := service.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:     []string{gitCredentialSubcommandConstant, gitCredentialApproveConstant},
		StandardInput: []byte(credentialInput),
	}); approveError != nil {
		return fmt.Errorf(stepDetailFailureTemplateConstant, ErrAuthSetupFailed, storeCredentialStepConstant, approveError)
	}

	service.logger.Info(credentialsStoredMessageConstant, zap.String(remoteHostFieldConstant, host), zap.String(credentialStoreFieldConstant, credentialStore))
	return nil
}

// Fingerprint parses an unencrypted private key and returns the SHA256 fingerprint of its public half.
func Fingerprint(privateKey []byte) (string, error) {
	signer, parseError := ssh.ParsePrivateKey(privateKey)
	if parseError != nil {
		return "", parseError
	}
	return ssh.FingerprintSHA256(signer.PublicKey()), nil
}
