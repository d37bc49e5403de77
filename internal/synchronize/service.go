package synchronize

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/temirov/gitpull/internal/execshell"
	"github.com/temirov/gitpull/internal/gitrepo"
)

const (
	gitFetchSubcommandConstant           = "fetch"
	gitRemoteSubcommandConstant          = "remote"
	gitRemotePruneSubcommandConstant     = "prune"
	gitCheckoutSubcommandConstant        = "checkout"
	gitPullSubcommandConstant            = "pull"
	gitResetSubcommandConstant           = "reset"
	gitResetHardFlagConstant             = "--hard"
	remoteBranchSeparatorConstant        = "/"
	stepFailureTemplateConstant          = "%w: %w"
	remoteMismatchTemplateConstant       = "%w: expected %q, found %q"
	checkoutFailureTemplateConstant      = "%w: branch %q: %w"
	postSyncStateFailureTemplateConstant = "%w: read HEAD after sync: %w"
)

// GitExecutor runs git subcommands.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// RepositoryInspector reads the state of a working tree.
type RepositoryInspector interface {
	ReadState(workTree string, remoteName string) (gitrepo.RepositoryState, error)
}

// Recloner replaces a working tree with a fresh clone and returns its HEAD commit.
type Recloner interface {
	BackupAndReclone(executionContext context.Context, workTree string, remoteURL string, branchName string) (string, error)
}

// Dependencies enumerates the collaborators required for synchronization.
type Dependencies struct {
	GitExecutor         GitExecutor
	RepositoryInspector RepositoryInspector
	Recloner            Recloner
}

// Options configures a single synchronization.
type Options struct {
	WorkTree   string
	RemoteURL  string
	RemoteName string
	// BranchName may be empty to keep the checked out branch.
	BranchName string
	Mode       Mode
	Prune      bool
}

// Validate checks required fields and the mode.
func (options Options) Validate() error {
	if len(strings.TrimSpace(options.WorkTree)) == 0 {
		return ErrWorkTreeRequired
	}
	if len(strings.TrimSpace(options.RemoteURL)) == 0 {
		return ErrRemoteURLRequired
	}
	if _, modeError := ParseMode(string(options.Mode)); modeError != nil {
		return modeError
	}
	return nil
}

// Result reports the commits before and after a synchronization.
type Result struct {
	PreviousCommit string
	NewCommit      string
	CurrentBranch  string
	// Recloned is set when the working tree had no repository; PreviousCommit then equals NewCommit.
	Recloned bool
}

// Changed reports whether HEAD moved.
func (result Result) Changed() bool {
	return result.PreviousCommit != result.NewCommit
}

// Service moves a working tree to the tip of its remote branch.
type Service struct {
	executor  GitExecutor
	inspector RepositoryInspector
	recloner  Recloner
}

// NewService constructs a Service from the provided dependencies.
func NewService(dependencies Dependencies) (*Service, error) {
	if dependencies.GitExecutor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	if dependencies.RepositoryInspector == nil {
		return nil, ErrInspectorNotConfigured
	}
	if dependencies.Recloner == nil {
		return nil, ErrReclonerNotConfigured
	}
	return &Service{
		executor:  dependencies.GitExecutor,
		inspector: dependencies.RepositoryInspector,
		recloner:  dependencies.Recloner,
	}, nil
}

// Synchronize reclones a missing repository, refuses a foreign remote, and otherwise
// fetches and then pulls or hard-resets the configured branch.
func (service *Service) Synchronize(executionContext context.Context, options Options) (Result, error) {
	if validationError := options.Validate(); validationError != nil {
		return Result{}, validationError
	}

	workTree := strings.TrimSpace(options.WorkTree)
	remoteURL := strings.TrimSpace(options.RemoteURL)
	remoteName := strings.TrimSpace(options.RemoteName)
	if len(remoteName) == 0 {
		remoteName = defaultRemoteNameConstant
	}
	branchName := strings.TrimSpace(options.BranchName)
	mode, _ := ParseMode(string(options.Mode))

	state, stateError := service.inspector.ReadState(workTree, remoteName)
	if stateError != nil {
		if errors.Is(stateError, gitrepo.ErrRepositoryNotFound) {
			return service.reclone(executionContext, workTree, remoteURL, remoteName, branchName)
		}
		return Result{}, fmt.Errorf(stepFailureTemplateConstant, ErrStateUnavailable, stateError)
	}

	if configuredRemote := strings.TrimSpace(state.RemoteURL); configuredRemote != remoteURL {
		return Result{}, fmt.Errorf(remoteMismatchTemplateConstant, ErrRemoteMismatch, remoteURL, configuredRemote)
	}

	fetchArguments := []string{gitFetchSubcommandConstant, remoteName}
	if len(branchName) > 0 {
		fetchArguments = append(fetchArguments, branchName)
	}
	if fetchError := service.executeGit(executionContext, workTree, fetchArguments...); fetchError != nil {
		return Result{}, fmt.Errorf(stepFailureTemplateConstant, ErrFetchFailed, fetchError)
	}

	if options.Prune {
		if pruneError := service.executeGit(executionContext, workTree, gitRemoteSubcommandConstant, gitRemotePruneSubcommandConstant, remoteName); pruneError != nil {
			return Result{}, fmt.Errorf(stepFailureTemplateConstant, ErrFetchFailed, pruneError)
		}
	}

	targetBranch := state.Branch
	if len(branchName) > 0 && branchName != state.Branch {
		if checkoutError := service.executeGit(executionContext, workTree, gitCheckoutSubcommandConstant, branchName); checkoutError != nil {
			return Result{}, fmt.Errorf(checkoutFailureTemplateConstant, ErrCheckoutFailed, branchName, checkoutError)
		}
		targetBranch = branchName
	}

	switch mode {
	case ModeReset:
		if resetError := service.executeGit(executionContext, workTree, gitResetSubcommandConstant, gitResetHardFlagConstant, remoteName+remoteBranchSeparatorConstant+targetBranch); resetError != nil {
			return Result{}, fmt.Errorf(stepFailureTemplateConstant, ErrResetFailed, resetError)
		}
	default:
		if pullError := service.executeGit(executionContext, workTree, gitPullSubcommandConstant, remoteName, targetBranch); pullError != nil {
			return Result{}, fmt.Errorf(stepFailureTemplateConstant, ErrPullFailed, pullError)
		}
	}

	updatedState, updatedStateError := service.inspector.ReadState(workTree, remoteName)
	if updatedStateError != nil {
		return Result{}, fmt.Errorf(postSyncStateFailureTemplateConstant, ErrStateUnavailable, updatedStateError)
	}

	return Result{
		PreviousCommit: state.Commit,
		NewCommit:      updatedState.Commit,
		CurrentBranch:  updatedState.Branch,
	}, nil
}

func (service *Service) reclone(executionContext context.Context, workTree string, remoteURL string, remoteName string, branchName string) (Result, error) {
	headCommit, recloneError := service.recloner.BackupAndReclone(executionContext, workTree, remoteURL, branchName)
	if recloneError != nil {
		return Result{}, fmt.Errorf(stepFailureTemplateConstant, ErrRecloneFailed, recloneError)
	}

	currentBranch := branchName
	if clonedState, clonedStateError := service.inspector.ReadState(workTree, remoteName); clonedStateError == nil {
		currentBranch = clonedState.Branch
	}

	return Result{
		PreviousCommit: headCommit,
		NewCommit:      headCommit,
		CurrentBranch:  currentBranch,
		Recloned:       true,
	}, nil
}

func (service *Service) executeGit(executionContext context.Context, workTree string, arguments ...string) error {
	_, executionError := service.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        arguments,
		WorkingDirectory: workTree,
	})
	return executionError
}
