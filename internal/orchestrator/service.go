package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/temirov/gitpull/internal/metrics"
	"github.com/temirov/gitpull/internal/restart"
	"github.com/temirov/gitpull/internal/synchronize"
)

const (
	synchronizerMissingMessageConstant   = "orchestrator synchronizer not configured"
	authenticatorMissingMessageConstant  = "orchestrator authenticator not configured"
	validatorMissingMessageConstant      = "orchestrator validator not configured"
	restarterMissingMessageConstant      = "orchestrator restarter not configured"
	changeReaderMissingMessageConstant   = "orchestrator change reader not configured"
	scheduleMissingMessageConstant       = "repeat is active but no schedule is configured"
	changeSetUnavailableMessageConstant  = "change set unavailable"
	changeSetFailureTemplateConstant     = "%w: %w"
	iterationStartedMessageConstant      = "synchronization iteration started"
	iterationCompletedMessageConstant    = "synchronization iteration completed"
	authFailedMessageConstant            = "authentication setup failed, skipping synchronization"
	syncFailedMessageConstant            = "synchronization failed"
	remoteMismatchMessageConstant        = "configured remote does not match the repository, stopping"
	repositoryReclonedMessageConstant    = "repository recloned"
	repositoryUpdatedMessageConstant     = "repository updated"
	repositoryUnchangedMessageConstant   = "repository already up to date"
	configurationInvalidMessageConstant  = "configuration validation failed, restart suppressed"
	changeSetFailedMessageConstant       = "unable to read changed files, restart skipped"
	restartRequiredFileMessageConstant   = "restart-required file changed"
	restartRequiredManualMessageConstant = "restart required to apply changes, automatic restart disabled"
	restartSkippedMessageConstant        = "restart not required"
	restartFailedMessageConstant         = "home assistant restart failed"
	restartTriggeredMessageConstant      = "home assistant restarted"
	nextIterationMessageConstant         = "waiting for next iteration"
	loopStoppedMessageConstant           = "synchronization loop stopped"
	stateTransitionMessageConstant       = "orchestrator state changed"
	iterationIdentifierFieldConstant     = "iteration_id"
	workTreeFieldConstant                = "work_tree"
	previousCommitFieldConstant          = "previous_commit"
	newCommitFieldConstant               = "new_commit"
	branchFieldConstant                  = "branch"
	changedFileFieldConstant             = "file"
	changedFileCountFieldConstant        = "changed_files"
	ignoredFileCountFieldConstant        = "ignored_files"
	reasonFieldConstant                  = "reason"
	outcomeFieldConstant                 = "outcome"
	durationFieldConstant                = "duration"
	nextRunFieldConstant                 = "next_run"
	stateFieldConstant                   = "state"
)

// Dependency validation errors.
var (
	ErrSynchronizerNotConfigured  = errors.New(synchronizerMissingMessageConstant)
	ErrAuthenticatorNotConfigured = errors.New(authenticatorMissingMessageConstant)
	ErrValidatorNotConfigured     = errors.New(validatorMissingMessageConstant)
	ErrRestarterNotConfigured     = errors.New(restarterMissingMessageConstant)
	ErrChangeReaderNotConfigured  = errors.New(changeReaderMissingMessageConstant)
	ErrScheduleRequired           = errors.New(scheduleMissingMessageConstant)
)

// ErrChangeSetUnavailable marks an iteration whose changed files could not be listed.
var ErrChangeSetUnavailable = errors.New(changeSetUnavailableMessageConstant)

// State is the lifecycle position of the loop.
type State string

// Loop states.
const (
	StateIdle       State = "idle"
	StateSyncing    State = "syncing"
	StateValidating State = "validating"
	StateTerminated State = "terminated"
)

// Authenticator prepares credentials for the remote.
type Authenticator interface {
	EnsureAuth(executionContext context.Context, remoteURL string) error
}

// Synchronizer moves the working tree to the remote branch tip.
type Synchronizer interface {
	Synchronize(executionContext context.Context, options synchronize.Options) (synchronize.Result, error)
}

// Validator checks the synchronized configuration.
type Validator interface {
	ValidateConfiguration(executionContext context.Context, workTree string) error
}

// Restarter restarts the dependent service.
type Restarter interface {
	RestartService(executionContext context.Context) error
}

// ChangeReader lists files changed between two commits.
type ChangeReader interface {
	ChangedFiles(workTree string, fromCommit string, toCommit string) ([]string, error)
}

// MetricsRecorder receives iteration outcomes.
type MetricsRecorder interface {
	RecordIteration(outcome string, duration time.Duration, finishedAt time.Time)
	RecordRestart()
}

// Waiter blocks for delay or until the context ends.
type Waiter func(executionContext context.Context, delay time.Duration) error

// Dependencies enumerates the collaborators of the loop.
type Dependencies struct {
	Authenticator Authenticator
	Synchronizer  Synchronizer
	Validator     Validator
	Restarter     Restarter
	ChangeReader  ChangeReader
	// FileSystem is used to classify ignore entries; defaults to the OS file system.
	FileSystem    afero.Fs
	Metrics       MetricsRecorder
	Logger        *zap.Logger
	Clock         func() time.Time
	Waiter        Waiter
	IDGenerator   func() string
	StateListener func(State)
}

// RepeatOptions controls whether and when iterations repeat.
type RepeatOptions struct {
	Active   bool
	Schedule cron.Schedule
}

// Options configures a loop run.
type Options struct {
	Sync           synchronize.Options
	IgnorePatterns []string
	AutoRestart    bool
	Repeat         RepeatOptions
}

// Service runs synchronization iterations one after another.
type Service struct {
	authenticator Authenticator
	synchronizer  Synchronizer
	validator     Validator
	restarter     Restarter
	changeReader  ChangeReader
	fileSystem    afero.Fs
	metrics       MetricsRecorder
	logger        *zap.Logger
	clock         func() time.Time
	waiter        Waiter
	idGenerator   func() string
	stateListener func(State)
}

// NewService validates dependencies and constructs a Service.
func NewService(dependencies Dependencies) (*Service, error) {
	switch {
	case dependencies.Synchronizer == nil:
		return nil, ErrSynchronizerNotConfigured
	case dependencies.Authenticator == nil:
		return nil, ErrAuthenticatorNotConfigured
	case dependencies.Validator == nil:
		return nil, ErrValidatorNotConfigured
	case dependencies.Restarter == nil:
		return nil, ErrRestarterNotConfigured
	case dependencies.ChangeReader == nil:
		return nil, ErrChangeReaderNotConfigured
	}

	service := &Service{
		authenticator: dependencies.Authenticator,
		synchronizer:  dependencies.Synchronizer,
		validator:     dependencies.Validator,
		restarter:     dependencies.Restarter,
		changeReader:  dependencies.ChangeReader,
		fileSystem:    dependencies.FileSystem,
		metrics:       dependencies.Metrics,
		logger:        dependencies.Logger,
		clock:         dependencies.Clock,
		waiter:        dependencies.Waiter,
		idGenerator:   dependencies.IDGenerator,
		stateListener: dependencies.StateListener,
	}
	if service.fileSystem == nil {
		service.fileSystem = afero.NewOsFs()
	}
	if service.metrics == nil {
		service.metrics = noopMetricsRecorder{}
	}
	if service.logger == nil {
		service.logger = zap.NewNop()
	}
	if service.clock == nil {
		service.clock = time.Now
	}
	if service.waiter == nil {
		service.waiter = waitWithTimer
	}
	if service.idGenerator == nil {
		service.idGenerator = uuid.NewString
	}
	return service, nil
}

// Run executes iterations until repeat is inactive, the remote mismatches, or the context ends.
// With repeat inactive it returns the error of the single iteration. A cancelled context ends the loop without error.
// Ignore patterns are classified once against the working tree as it is when Run starts.
func (service *Service) Run(executionContext context.Context, options Options) error {
	if validationError := options.Sync.Validate(); validationError != nil {
		return validationError
	}
	if options.Repeat.Active && options.Repeat.Schedule == nil {
		return ErrScheduleRequired
	}
	defer service.transition(StateTerminated)
	defer service.logger.Info(loopStoppedMessageConstant)

	ignoreList := restart.NewIgnoreList(service.fileSystem, options.Sync.WorkTree, options.IgnorePatterns)

	for {
		if executionContext.Err() != nil {
			return nil
		}

		iterationError := service.runIteration(executionContext, options, ignoreList)
		if errors.Is(iterationError, synchronize.ErrRemoteMismatch) {
			return iterationError
		}
		if executionContext.Err() != nil {
			return nil
		}
		if !options.Repeat.Active {
			return iterationError
		}

		service.transition(StateIdle)
		now := service.clock()
		nextRun := options.Repeat.Schedule.Next(now)
		service.logger.Info(nextIterationMessageConstant, zap.Time(nextRunFieldConstant, nextRun))
		if waitError := service.waiter(executionContext, nextRun.Sub(now)); waitError != nil {
			return nil
		}
	}
}

// RunOnce executes a single iteration regardless of repeat settings.
func (service *Service) RunOnce(executionContext context.Context, options Options) error {
	options.Repeat = RepeatOptions{}
	return service.Run(executionContext, options)
}

func (service *Service) runIteration(executionContext context.Context, options Options, ignoreList restart.IgnoreList) error {
	startedAt := service.clock()
	iterationLogger := service.logger.With(zap.String(iterationIdentifierFieldConstant, service.idGenerator()))
	iterationLogger.Info(iterationStartedMessageConstant, zap.String(workTreeFieldConstant, options.Sync.WorkTree))

	outcome, iterationError := service.iterate(executionContext, iterationLogger, options, ignoreList)

	finishedAt := service.clock()
	duration := finishedAt.Sub(startedAt)
	service.metrics.RecordIteration(outcome, duration, finishedAt)
	iterationLogger.Info(iterationCompletedMessageConstant, zap.String(outcomeFieldConstant, outcome), zap.Duration(durationFieldConstant, duration))
	return iterationError
}

func (service *Service) iterate(executionContext context.Context, logger *zap.Logger, options Options, ignoreList restart.IgnoreList) (string, error) {
	service.transition(StateSyncing)

	if authError := service.authenticator.EnsureAuth(executionContext, options.Sync.RemoteURL); authError != nil {
		logger.Error(authFailedMessageConstant, zap.Error(authError))
		return metrics.OutcomeAuthFailed, authError
	}

	result, syncError := service.synchronizer.Synchronize(executionContext, options.Sync)
	if syncError != nil {
		if errors.Is(syncError, synchronize.ErrRemoteMismatch) {
			logger.Error(remoteMismatchMessageConstant, zap.Error(syncError))
			return metrics.OutcomeFatal, syncError
		}
		logger.Error(syncFailedMessageConstant, zap.Error(syncError))
		return metrics.OutcomeSyncFailed, syncError
	}
	logSyncResult(logger, result)

	service.transition(StateValidating)
	if validationError := service.validator.ValidateConfiguration(executionContext, options.Sync.WorkTree); validationError != nil {
		logger.Error(configurationInvalidMessageConstant, zap.Error(validationError))
		return metrics.OutcomeConfigurationInvalid, validationError
	}

	if !result.Changed() {
		return metrics.OutcomeSuccess, nil
	}

	changedFiles, changedFilesError := service.changeReader.ChangedFiles(options.Sync.WorkTree, result.PreviousCommit, result.NewCommit)
	if changedFilesError != nil && !options.AutoRestart {
		logger.Warn(changeSetFailedMessageConstant, zap.Error(changedFilesError))
		return metrics.OutcomeSuccess, nil
	}
	if changedFilesError != nil {
		logger.Error(changeSetFailedMessageConstant, zap.Error(changedFilesError))
		return metrics.OutcomeRestartFailed, fmt.Errorf(changeSetFailureTemplateConstant, ErrChangeSetUnavailable, changedFilesError)
	}

	decision := restart.Evaluate(restart.Input{
		PreviousCommit: result.PreviousCommit,
		NewCommit:      result.NewCommit,
		ChangedFiles:   changedFiles,
		IgnoreList:     ignoreList,
		AutoRestart:    options.AutoRestart,
	})
	for _, restartRequiredFile := range decision.RestartRequiredFiles {
		logger.Info(restartRequiredFileMessageConstant, zap.String(changedFileFieldConstant, restartRequiredFile))
	}

	if !decision.Restart {
		if decision.Reason == restart.ReasonAutoRestartDisabled && len(decision.RestartRequiredFiles) > 0 {
			logger.Info(restartRequiredManualMessageConstant, zap.Int(changedFileCountFieldConstant, len(decision.RestartRequiredFiles)))
		} else {
			logger.Info(restartSkippedMessageConstant, zap.String(reasonFieldConstant, string(decision.Reason)), zap.Int(ignoredFileCountFieldConstant, len(decision.IgnoredFiles)))
		}
		return metrics.OutcomeSuccess, nil
	}

	if restartError := service.restarter.RestartService(executionContext); restartError != nil {
		logger.Error(restartFailedMessageConstant, zap.Error(restartError))
		return metrics.OutcomeRestartFailed, restartError
	}
	service.metrics.RecordRestart()
	logger.Info(restartTriggeredMessageConstant, zap.String(reasonFieldConstant, string(decision.Reason)))
	return metrics.OutcomeSuccess, nil
}

func logSyncResult(logger *zap.Logger, result synchronize.Result) {
	fields := []zap.Field{
		zap.String(previousCommitFieldConstant, result.PreviousCommit),
		zap.String(newCommitFieldConstant, result.NewCommit),
		zap.String(branchFieldConstant, result.CurrentBranch),
	}
	switch {
	case result.Recloned:
		logger.Info(repositoryReclonedMessageConstant, fields...)
	case result.Changed():
		logger.Info(repositoryUpdatedMessageConstant, fields...)
	default:
		logger.Info(repositoryUnchangedMessageConstant, fields...)
	}
}

func (service *Service) transition(state State) {
	service.logger.Debug(stateTransitionMessageConstant, zap.String(stateFieldConstant, string(state)))
	if service.stateListener != nil {
		service.stateListener(state)
	}
}

func waitWithTimer(executionContext context.Context, delay time.Duration) error {
	if delay <= 0 {
		return executionContext.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-executionContext.Done():
		return executionContext.Err()
	case <-timer.C:
		return nil
	}
}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) RecordIteration(string, time.Duration, time.Time) {}

func (noopMetricsRecorder) RecordRestart() {}
