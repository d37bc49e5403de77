package cli

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/temirov/gitpull/internal/auth"
	"github.com/temirov/gitpull/internal/gitrepo"
	"github.com/temirov/gitpull/internal/homeassistant"
	"github.com/temirov/gitpull/internal/metrics"
	"github.com/temirov/gitpull/internal/orchestrator"
	"github.com/temirov/gitpull/internal/reclone"
	"github.com/temirov/gitpull/internal/restart"
	"github.com/temirov/gitpull/internal/synchronize"
	"github.com/temirov/gitpull/internal/utils"
	pathutils "github.com/temirov/gitpull/internal/utils/path"
)

const (
	applicationNameConstant                 = "gitpull"
	applicationShortDescriptionConstant     = "Keep a Home Assistant configuration directory in sync with git"
	applicationLongDescriptionConstant      = "gitpull synchronizes a Home Assistant configuration directory with its git remote, validates the result and restarts Home Assistant when tracked files changed."
	configFileFlagNameConstant              = "config"
	configFileFlagUsageConstant             = "Optional path to a configuration file (YAML or JSON)."
	environmentFileFlagNameConstant         = "env-file"
	environmentFileFlagUsageConstant        = "Optional dotenv file loaded into the environment before configuration."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagUsageConstant               = "Override the configured log level."
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagUsageConstant              = "Override the configured log format (structured, console or auto)."
	commonConfigurationKeyConstant          = "common"
	commonLogLevelConfigKeyConstant         = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant        = commonConfigurationKeyConstant + ".log_format"
	commonLogFileConfigKeyConstant          = commonConfigurationKeyConstant + ".log_file"
	commonLogFilePathConfigKeyConstant      = commonLogFileConfigKeyConstant + ".path"
	commonLogFileMaxSizeConfigKeyConstant   = commonLogFileConfigKeyConstant + ".max_size"
	commonLogFileBackupsConfigKeyConstant   = commonLogFileConfigKeyConstant + ".max_backups"
	commonLogFileMaxAgeConfigKeyConstant    = commonLogFileConfigKeyConstant + ".max_age"
	defaultLogFileMaxSizeConstant           = 10
	defaultLogFileMaxBackupsConstant        = 3
	defaultLogFileMaxAgeConstant            = 28
	repositoryConfigurationKeyConstant      = "repository"
	authConfigurationKeyConstant            = "auth"
	restartConfigurationKeyConstant         = "restart"
	validationConfigurationKeyConstant      = "validation"
	recloneConfigurationKeyConstant         = "reclone"
	repeatConfigurationKeyConstant          = "repeat"
	metricsConfigurationKeyConstant         = "metrics"
	environmentPrefixConstant               = "GITPULL"
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	logFileFieldConstant                    = "log_file"
	environmentFileFieldConstant            = "env_file"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	environmentFileErrorTemplateConstant    = "unable to load environment file %s: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
	rootCommandDebugMessageConstant         = "gitpull CLI diagnostics"
	logFieldCommandNameConstant             = "command_name"
	logFieldArgumentsConstant               = "arguments"
	loggerNotInitializedMessageConstant     = "logger not initialized"
	defaultConfigurationSearchPathConstant  = "."
	homeAssistantConfigurationPathConstant  = "/config"
	versionTemplateConstant                 = "gitpull version: {{.Version}}\n"
	developmentVersionConstant              = "dev"
	buildInfoDevelopmentVersionConstant     = "(devel)"
)

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common                            ApplicationCommonConfiguration `mapstructure:"common"`
	orchestrator.CommandConfiguration `mapstructure:",squash"`
}

// ApplicationCommonConfiguration stores logging configuration shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string                          `mapstructure:"log_level"`
	LogFormat string                          `mapstructure:"log_format"`
	LogFile   ApplicationLogFileConfiguration `mapstructure:"log_file"`
}

// ApplicationLogFileConfiguration describes the optional rotating log file.
type ApplicationLogFileConfiguration struct {
	Path       string `mapstructure:"path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

func (configuration ApplicationLogFileConfiguration) options(expander *pathutils.HomeExpander) utils.LogFileOptions {
	return utils.LogFileOptions{
		Path:             expander.ExpandClean(configuration.Path),
		MaxSizeMegabytes: configuration.MaxSize,
		MaxBackups:       configuration.MaxBackups,
		MaxAgeDays:       configuration.MaxAge,
	}
}

// VersionResolver reports the version printed by --version.
type VersionResolver func() string

// Application wires the Cobra root command, configuration loader, and structured logger.
type Application struct {
	rootCommand            *cobra.Command
	configurationLoader    *utils.ConfigurationLoader
	loggerFactory          *utils.LoggerFactory
	logger                 *zap.Logger
	consoleLogger          *zap.Logger
	configuration          ApplicationConfiguration
	configurationMetadata  utils.LoadedConfiguration
	configurationFilePath  string
	environmentFilePath    string
	logLevelFlagValue      string
	logFormatFlagValue     string
	commandContextAccessor utils.CommandContextAccessor
	versionResolver        VersionResolver
}

//go:embed default_config.yaml
var defaultConfigurationDocument []byte

// DefaultConfiguration returns a private copy of the bundled YAML defaults and their viper config type.
func DefaultConfiguration() ([]byte, string) {
	return bytes.Clone(defaultConfigurationDocument), configurationTypeConstant
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		[]string{defaultConfigurationSearchPathConstant, homeAssistantConfigurationPathConstant},
	)
	configurationLoader.SetEmbeddedConfiguration(DefaultConfiguration())

	application := &Application{
		configurationLoader:    configurationLoader,
		loggerFactory:          utils.NewLoggerFactory(),
		logger:                 zap.NewNop(),
		commandContextAccessor: utils.NewCommandContextAccessor(),
		versionResolver:        resolveBuildVersion,
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		Version:       developmentVersionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return application.runRootCommand(command, arguments)
		},
	}

	cobraCommand.SetContext(context.Background())
	cobraCommand.SetVersionTemplate(versionTemplateConstant)
	cobraCommand.PersistentFlags().StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.environmentFilePath, environmentFileFlagNameConstant, "", environmentFileFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", logLevelFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, "", logFormatFlagUsageConstant)

	runBuilder := orchestrator.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		ConsoleLoggerProvider: func() *zap.Logger {
			return application.consoleLogger
		},
		ConfigurationProvider: func() orchestrator.CommandConfiguration {
			return application.configuration.CommandConfiguration
		},
	}
	runCommand, runBuildError := runBuilder.Build()
	if runBuildError == nil {
		cobraCommand.AddCommand(runCommand)
	}

	restartCheckBuilder := restart.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		ConfigurationProvider: func() restart.CommandConfiguration {
			return restart.CommandConfiguration{
				WorkTree: application.configuration.Repository.Path,
				Restart:  application.configuration.Restart,
			}
		},
		ChangeReader: gitrepo.NewInspector(),
	}
	restartCheckCommand, restartCheckBuildError := restartCheckBuilder.Build()
	if restartCheckBuildError == nil {
		cobraCommand.AddCommand(restartCheckCommand)
	}

	application.rootCommand = cobraCommand

	return application
}

// Execute runs the configured Cobra command hierarchy and ensures logger flushing.
func (application *Application) Execute() error {
	if application.versionResolver != nil {
		application.rootCommand.Version = application.versionResolver()
	}
	executionError := application.rootCommand.Execute()
	if syncError := application.flushLogger(); syncError != nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	return NewApplication().Execute()
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	environmentFilePath := strings.TrimSpace(application.environmentFilePath)
	if len(environmentFilePath) > 0 {
		if loadError := godotenv.Load(environmentFilePath); loadError != nil {
			return fmt.Errorf(environmentFileErrorTemplateConstant, environmentFilePath, loadError)
		}
	}

	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(application.configurationFilePath, defaultConfigurationValues(), &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}

	application.configurationMetadata = loadedConfiguration

	if application.persistentFlagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}

	if application.persistentFlagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.logFormatFlagValue
	}

	logFileOptions := application.configuration.Common.LogFile.options(pathutils.NewHomeExpander())
	loggerOutputs, loggerCreationError := application.loggerFactory.WithLogFile(logFileOptions).CreateLoggerOutputs(
		utils.LogLevel(application.configuration.Common.LogLevel),
		utils.LogFormat(application.configuration.Common.LogFormat),
	)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}

	application.logger = loggerOutputs.DiagnosticLogger
	application.consoleLogger = loggerOutputs.ConsoleLogger

	application.logger.Info(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, string(loggerOutputs.Format)),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
		zap.String(logFileFieldConstant, logFileOptions.Path),
		zap.String(environmentFileFieldConstant, environmentFilePath),
	)

	if command != nil {
		updatedContext := application.commandContextAccessor.WithConfigurationFilePath(
			command.Context(),
			application.configurationMetadata.ConfigFileUsed,
		)
		updatedContext = application.commandContextAccessor.WithEnvironmentFilePath(updatedContext, environmentFilePath)
		command.SetContext(updatedContext)
		if rootCommand := command.Root(); rootCommand != nil {
			rootCommand.SetContext(updatedContext)
		}
	}

	return nil
}

func defaultConfigurationValues() map[string]any {
	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:       string(utils.LogLevelInfo),
		commonLogFormatConfigKeyConstant:      string(utils.LogFormatAuto),
		commonLogFilePathConfigKeyConstant:    "",
		commonLogFileMaxSizeConfigKeyConstant: defaultLogFileMaxSizeConstant,
		commonLogFileBackupsConfigKeyConstant: defaultLogFileMaxBackupsConstant,
		commonLogFileMaxAgeConfigKeyConstant:  defaultLogFileMaxAgeConstant,
	}
	sections := []map[string]any{
		synchronize.DefaultConfigurationValues(repositoryConfigurationKeyConstant),
		auth.DefaultConfigurationValues(authConfigurationKeyConstant),
		restart.DefaultConfigurationValues(restartConfigurationKeyConstant),
		homeassistant.DefaultConfigurationValues(validationConfigurationKeyConstant),
		reclone.DefaultConfigurationValues(recloneConfigurationKeyConstant),
		orchestrator.DefaultRepeatConfigurationValues(repeatConfigurationKeyConstant),
		metrics.DefaultConfigurationValues(metricsConfigurationKeyConstant),
	}
	for _, section := range sections {
		for configurationKey, configurationValue := range section {
			defaultValues[configurationKey] = configurationValue
		}
	}
	return defaultValues
}

func (application *Application) runRootCommand(command *cobra.Command, arguments []string) error {
	if application.logger == nil {
		return errors.New(loggerNotInitializedMessageConstant)
	}

	application.logger.Debug(
		rootCommandDebugMessageConstant,
		zap.String(logFieldCommandNameConstant, command.Name()),
		zap.Strings(logFieldArgumentsConstant, arguments),
	)

	return command.Help()
}

func (application *Application) flushLogger() error {
	if syncError := application.syncLoggerInstance(application.logger); syncError != nil {
		return syncError
	}
	return application.syncLoggerInstance(application.consoleLogger)
}

func (application *Application) syncLoggerInstance(logger *zap.Logger) error {
	if logger == nil {
		return nil
	}

	syncError := logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	default:
		return syncError
	}
}

func (application *Application) persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	flagSetsToInspect := []*pflag.FlagSet{
		command.PersistentFlags(),
		command.InheritedFlags(),
	}

	rootCommand := command.Root()
	if rootCommand != nil {
		flagSetsToInspect = append(flagSetsToInspect, rootCommand.PersistentFlags())
	}

	for _, flagSet := range flagSetsToInspect {
		if flagSet == nil {
			continue
		}

		if flagSet.Changed(flagName) {
			return true
		}
	}

	return false
}

func resolveBuildVersion() string {
	buildInfo, available := debug.ReadBuildInfo()
	if !available {
		return developmentVersionConstant
	}
	version := strings.TrimSpace(buildInfo.Main.Version)
	if len(version) == 0 || version == buildInfoDevelopmentVersionConstant {
		return developmentVersionConstant
	}
	return version
}
