package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/gitpull/internal/auth"
	"github.com/temirov/gitpull/internal/execshell"
	"github.com/temirov/gitpull/internal/gitrepo"
	"github.com/temirov/gitpull/internal/homeassistant"
	"github.com/temirov/gitpull/internal/metrics"
	"github.com/temirov/gitpull/internal/reclone"
	"github.com/temirov/gitpull/internal/restart"
	"github.com/temirov/gitpull/internal/synchronize"
	"github.com/temirov/gitpull/internal/ui"
	"github.com/temirov/gitpull/internal/utils"
	"github.com/temirov/gitpull/internal/utils/flags"
	pathutils "github.com/temirov/gitpull/internal/utils/path"
)

const (
	commandUseConstant                    = "run"
	commandShortDescriptionConstant       = "Synchronize the configuration directory with its git remote"
	commandLongDescriptionConstant        = "run prepares credentials, synchronizes the working tree with the configured remote, validates the configuration and restarts Home Assistant when tracked files changed. It repeats on the configured schedule unless --once is given."
	commandExecutionErrorTemplateConstant = "synchronization failed: %w"
	unexpectedArgumentsMessageConstant    = "run does not accept positional arguments"
	flagOnceNameConstant                  = "once"
	flagOnceDescriptionConstant           = "Run a single iteration and exit"
	flagModeNameConstant                  = "mode"
	flagModeDescriptionConstant           = "Override the configured synchronization mode"
	flagBranchNameConstant                = "branch"
	flagBranchDescriptionConstant         = "Override the configured branch"
	metricsServerFailedMessageConstant    = "metrics endpoint failed"
	configurationSourcesMessageConstant   = "configuration sources"
	configurationFileFieldConstant        = "config_file"
	environmentFileFieldConstant          = "env_file"
)

var errUnexpectedArguments = errors.New(unexpectedArgumentsMessageConstant)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandConfiguration gathers every configuration section the run command needs.
type CommandConfiguration struct {
	Repository synchronize.Configuration   `mapstructure:"repository"`
	Auth       auth.Configuration          `mapstructure:"auth"`
	Restart    restart.Configuration       `mapstructure:"restart"`
	Validation homeassistant.Configuration `mapstructure:"validation"`
	Reclone    reclone.Configuration       `mapstructure:"reclone"`
	Repeat     RepeatConfiguration         `mapstructure:"repeat"`
	Metrics    metrics.Configuration       `mapstructure:"metrics"`
}

// ConfigurationProvider supplies the current command configuration.
type ConfigurationProvider func() CommandConfiguration

// CommandExecutor runs the external tools used during an iteration.
type CommandExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
	ExecuteSSH(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
	ExecuteHomeAssistant(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// CommandBuilder assembles the run command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	// ConsoleLoggerProvider returns the human-readable logger, or nil when console output is off.
	ConsoleLoggerProvider LoggerProvider
	ConfigurationProvider ConfigurationProvider
	Executor              CommandExecutor
	FileSystem            afero.Fs
	Waiter                Waiter
}

// Build constructs the run command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.run,
	}

	command.Flags().Bool(flagOnceNameConstant, false, flagOnceDescriptionConstant)
	command.Flags().Var(flags.NewChoiceValue(synchronize.Modes()...), flagModeNameConstant, flags.FormatChoiceUsage("", synchronize.Modes(), flagModeDescriptionConstant))
	command.Flags().String(flagBranchNameConstant, "", flagBranchDescriptionConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errUnexpectedArguments
	}

	configuration := builder.resolveConfiguration()
	if modeFlag := command.Flags().Lookup(flagModeNameConstant); modeFlag != nil && modeFlag.Changed {
		configuration.Repository.Mode = modeFlag.Value.String()
	}
	if command.Flags().Changed(flagBranchNameConstant) {
		configuration.Repository.BranchName, _ = command.Flags().GetString(flagBranchNameConstant)
	}

	syncOptions, syncOptionsError := configuration.Repository.Options()
	if syncOptionsError != nil {
		return syncOptionsError
	}
	repeatOptions, repeatOptionsError := configuration.Repeat.Options()
	if repeatOptionsError != nil {
		return repeatOptionsError
	}
	if once, _ := command.Flags().GetBool(flagOnceNameConstant); once {
		repeatOptions = RepeatOptions{}
	}
	validationMode, validationModeError := homeassistant.ParseValidationMode(configuration.Validation.Mode)
	if validationModeError != nil {
		return validationModeError
	}

	logger := builder.resolveLogger()
	logConfigurationSources(command.Context(), logger)
	collector := metrics.NewCollector(nil)
	executor, executorError := builder.resolveExecutor(logger, collector)
	if executorError != nil {
		return executorError
	}
	fileSystem := builder.resolveFileSystem()
	inspector := gitrepo.NewInspector()

	recloneService, recloneError := reclone.NewService(reclone.Dependencies{
		FileSystem:  fileSystem,
		GitExecutor: executor,
		HeadReader:  inspector,
		Logger:      logger,
	}, configuration.Reclone.Options())
	if recloneError != nil {
		return recloneError
	}
	syncService, syncError := synchronize.NewService(synchronize.Dependencies{
		GitExecutor:         executor,
		RepositoryInspector: inspector,
		Recloner:            recloneService,
	})
	if syncError != nil {
		return syncError
	}
	authService, authError := auth.NewService(auth.Dependencies{
		Executor:   executor,
		FileSystem: fileSystem,
		Logger:     logger,
	}, configuration.Auth.Options(pathutils.NewHomeExpander()))
	if authError != nil {
		return authError
	}
	homeAssistantService, homeAssistantError := homeassistant.NewService(homeassistant.Dependencies{
		Executor:   executor,
		FileSystem: fileSystem,
		Logger:     logger,
	}, validationMode)
	if homeAssistantError != nil {
		return homeAssistantError
	}

	loopService, loopError := NewService(Dependencies{
		Authenticator: authService,
		Synchronizer:  syncService,
		Validator:     homeAssistantService,
		Restarter:     homeAssistantService,
		ChangeReader:  inspector,
		FileSystem:    fileSystem,
		Metrics:       collector,
		Logger:        logger,
		Waiter:        builder.Waiter,
	})
	if loopError != nil {
		return loopError
	}

	executionContext, stopSignals := signal.NotifyContext(command.Context(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	stopMetrics, metricsError := startMetricsServer(executionContext, configuration.Metrics, collector, logger)
	if metricsError != nil {
		return metricsError
	}
	defer stopMetrics()

	restartConfiguration := configuration.Restart.Sanitize()
	runError := loopService.Run(executionContext, Options{
		Sync:           syncOptions,
		IgnorePatterns: restartConfiguration.Ignore,
		AutoRestart:    restartConfiguration.Auto,
		Repeat:         repeatOptions,
	})
	if runError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, runError)
	}
	return nil
}

// logConfigurationSources reports the files the root command resolved before run started.
func logConfigurationSources(executionContext context.Context, logger *zap.Logger) {
	accessor := utils.NewCommandContextAccessor()
	fields := make([]zap.Field, 0, 2)
	if configurationFilePath, available := accessor.ConfigurationFilePath(executionContext); available {
		fields = append(fields, zap.String(configurationFileFieldConstant, configurationFilePath))
	}
	if environmentFilePath, available := accessor.EnvironmentFilePath(executionContext); available {
		fields = append(fields, zap.String(environmentFileFieldConstant, environmentFilePath))
	}
	if len(fields) == 0 {
		return
	}
	logger.Info(configurationSourcesMessageConstant, fields...)
}

func startMetricsServer(executionContext context.Context, configuration metrics.Configuration, collector *metrics.Collector, logger *zap.Logger) (func(), error) {
	if !configuration.Enabled() {
		return func() {}, nil
	}
	server := metrics.NewServer(collector, configuration.ListenAddress, logger)
	listener, listenError := server.Listen()
	if listenError != nil {
		return nil, listenError
	}

	serverContext, cancel := context.WithCancel(executionContext)
	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		if serveError := server.Serve(serverContext, listener); serveError != nil {
			logger.Error(metricsServerFailedMessageConstant, zap.Error(serveError))
		}
	}()
	return func() {
		cancel()
		<-serverDone
	}, nil
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return CommandConfiguration{}
	}
	return builder.ConfigurationProvider()
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) resolveExecutor(logger *zap.Logger, collector *metrics.Collector) (CommandExecutor, error) {
	if builder.Executor != nil {
		return builder.Executor, nil
	}

	shellExecutor, creationError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner())
	if creationError != nil {
		return nil, creationError
	}

	var consoleObserver execshell.CommandEventObserver
	if builder.ConsoleLoggerProvider != nil {
		if consoleLogger := builder.ConsoleLoggerProvider(); consoleLogger != nil {
			consoleObserver = ui.NewConsoleCommandEventLogger(consoleLogger)
		}
	}
	return shellExecutor.WithObserver(execshell.CombineObservers(collector, consoleObserver)), nil
}

func (builder *CommandBuilder) resolveFileSystem() afero.Fs {
	if builder.FileSystem != nil {
		return builder.FileSystem
	}
	return afero.NewOsFs()
}
