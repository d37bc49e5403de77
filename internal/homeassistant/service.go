package homeassistant

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/temirov/gitpull/internal/execshell"
)

const (
	configInvalidMessageConstant         = "home assistant configuration is invalid"
	restartFailedMessageConstant         = "home assistant restart failed"
	unsupportedValidationMessageConstant = "unsupported validation mode"
	executorMissingMessageConstant       = "home assistant executor not configured"
	fileSystemMissingMessageConstant     = "home assistant file system not configured"
	coreSubcommandConstant               = "core"
	checkSubcommandConstant              = "check"
	restartSubcommandConstant            = "restart"
	gitDirectoryNameConstant             = ".git"
	yamlExtensionConstant                = ".yaml"
	ymlExtensionConstant                 = ".yml"
	commandInvalidTemplateConstant       = "%w: %w"
	fileInvalidTemplateConstant          = "%w: %s: %w"
	walkFailureTemplateConstant          = "walk %s: %w"
	restartFailureTemplateConstant       = "%w: %w"
	validationSkippedMessageConstant     = "configuration validation disabled"
	configurationValidMessageConstant    = "configuration is valid"
	restartRequestedMessageConstant      = "home assistant restart requested"
	validationModeFieldConstant          = "validation_mode"
	validatedFilesFieldConstant          = "validated_files"
)

// ErrConfigInvalid marks a configuration that failed validation.
var ErrConfigInvalid = errors.New(configInvalidMessageConstant)

// ErrRestartFailed marks a failed restart request.
var ErrRestartFailed = errors.New(restartFailedMessageConstant)

// ErrUnsupportedValidationMode indicates an unknown validation mode.
var ErrUnsupportedValidationMode = errors.New(unsupportedValidationMessageConstant)

// Dependency validation errors.
var (
	ErrExecutorNotConfigured   = errors.New(executorMissingMessageConstant)
	ErrFileSystemNotConfigured = errors.New(fileSystemMissingMessageConstant)
)

// Executor runs the Home Assistant CLI.
type Executor interface {
	ExecuteHomeAssistant(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Dependencies enumerates the collaborators of the Home Assistant service.
type Dependencies struct {
	Executor   Executor
	FileSystem afero.Fs
	Logger     *zap.Logger
}

// Service validates the synchronized configuration and restarts Home Assistant.
type Service struct {
	executor   Executor
	fileSystem afero.Fs
	logger     *zap.Logger
	mode       ValidationMode
}

// NewService validates dependencies and constructs a Service.
func NewService(dependencies Dependencies, mode ValidationMode) (*Service, error) {
	if dependencies.Executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	if dependencies.FileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}
	parsedMode, modeError := ParseValidationMode(string(mode))
	if modeError != nil {
		return nil, modeError
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		executor:   dependencies.Executor,
		fileSystem: dependencies.FileSystem,
		logger:     logger,
		mode:       parsedMode,
	}, nil
}

// ValidateConfiguration returns nil for a valid configuration and an error wrapping
// ErrConfigInvalid when the configured check rejects it.
func (service *Service) ValidateConfiguration(executionContext context.Context, workTree string) error {
	switch service.mode {
	case ValidationModeNone:
		service.logger.Debug(validationSkippedMessageConstant)
		return nil
	case ValidationModeYAML:
		validatedFiles, validationError := service.validateYAML(workTree)
		if validationError != nil {
			return validationError
		}
		service.logger.Info(configurationValidMessageConstant, zap.String(validationModeFieldConstant, string(service.mode)), zap.Int(validatedFilesFieldConstant, validatedFiles))
		return nil
	default:
		if _, checkError := service.executor.ExecuteHomeAssistant(executionContext, execshell.CommandDetails{
			Arguments:        []string{coreSubcommandConstant, checkSubcommandConstant},
			WorkingDirectory: workTree,
		}); checkError != nil {
			return fmt.Errorf(commandInvalidTemplateConstant, ErrConfigInvalid, checkError)
		}
		service.logger.Info(configurationValidMessageConstant, zap.String(validationModeFieldConstant, string(service.mode)))
		return nil
	}
}

// RestartService asks the supervisor to restart Home Assistant core.
func (service *Service) RestartService(executionContext context.Context) error {
	service.logger.Info(restartRequestedMessageConstant)
	if _, restartError := service.executor.ExecuteHomeAssistant(executionContext, execshell.CommandDetails{
		Arguments: []string{coreSubcommandConstant, restartSubcommandConstant},
	}); restartError != nil {
		return fmt.Errorf(restartFailureTemplateConstant, ErrRestartFailed, restartError)
	}
	return nil
}

// validateYAML parses every YAML file outside .git. Decoding into yaml.Node keeps
// Home Assistant tags such as !secret and !include unresolved.
func (service *Service) validateYAML(workTree string) (int, error) {
	validatedFiles := 0
	walkError := afero.Walk(service.fileSystem, workTree, func(currentPath string, info os.FileInfo, walkError error) error {
		if walkError != nil {
			return walkError
		}
		if info.IsDir() {
			if info.Name() == gitDirectoryNameConstant {
				return filepath.SkipDir
			}
			return nil
		}
		extension := strings.ToLower(filepath.Ext(currentPath))
		if extension != yamlExtensionConstant && extension != ymlExtensionConstant {
			return nil
		}
		if parseError := service.parseYAMLFile(currentPath); parseError != nil {
			relativePath, relativeError := filepath.Rel(workTree, currentPath)
			if relativeError != nil {
				relativePath = currentPath
			}
			return fmt.Errorf(fileInvalidTemplateConstant, ErrConfigInvalid, relativePath, parseError)
		}
		validatedFiles++
		return nil
	})
	if walkError != nil {
		if errors.Is(walkError, ErrConfigInvalid) {
			return validatedFiles, walkError
		}
		return validatedFiles, fmt.Errorf(walkFailureTemplateConstant, workTree, walkError)
	}
	return validatedFiles, nil
}

func (service *Service) parseYAMLFile(filePath string) error {
	contents, readError := afero.ReadFile(service.fileSystem, filePath)
	if readError != nil {
		return readError
	}
	decoder := yaml.NewDecoder(bytes.NewReader(contents))
	for {
		var document yaml.Node
		decodeError := decoder.Decode(&document)
		if errors.Is(decodeError, io.EOF) {
			return nil
		}
		if decodeError != nil {
			return decodeError
		}
	}
}
