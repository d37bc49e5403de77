package synchronize

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gitpull/internal/execshell"
	"github.com/temirov/gitpull/internal/gitrepo"
)

const (
	testWorkTreeConstant        = "/config"
	testRemoteURLConstant       = "git@github.com:example/home-assistant-config.git"
	testRemoteNameConstant      = "origin"
	testPreviousCommitConstant  = "1111111111111111111111111111111111111111"
	testUpdatedCommitConstant   = "2222222222222222222222222222222222222222"
	testRecloneCommitConstant   = "3333333333333333333333333333333333333333"
	testCurrentBranchConstant   = "main"
	testRequestedBranchConstant = "production"
)

type stubGitExecutor struct {
	failures         map[string]error
	recordedCommands [][]string
}

func (executor *stubGitExecutor) ExecuteGit(_ context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recordedCommands = append(executor.recordedCommands, details.Arguments)
	if len(details.Arguments) > 0 {
		if failure, exists := executor.failures[details.Arguments[0]]; exists {
			return execshell.ExecutionResult{}, failure
		}
	}
	return execshell.ExecutionResult{}, nil
}

type stubRepositoryInspector struct {
	states     []gitrepo.RepositoryState
	stateError error
	reads      int
}

func (inspector *stubRepositoryInspector) ReadState(string, string) (gitrepo.RepositoryState, error) {
	inspector.reads++
	if inspector.stateError != nil {
		return gitrepo.RepositoryState{}, inspector.stateError
	}
	stateIndex := inspector.reads - 1
	if stateIndex >= len(inspector.states) {
		stateIndex = len(inspector.states) - 1
	}
	return inspector.states[stateIndex], nil
}

type stubRecloner struct {
	headCommit     string
	recloneError   error
	recordedBranch string
	invocations    int
}

func (recloner *stubRecloner) BackupAndReclone(_ context.Context, _ string, _ string, branchName string) (string, error) {
	recloner.invocations++
	recloner.recordedBranch = branchName
	return recloner.headCommit, recloner.recloneError
}

func newTestService(t *testing.T, executor *stubGitExecutor, inspector *stubRepositoryInspector, recloner *stubRecloner) *Service {
	t.Helper()
	service, creationError := NewService(Dependencies{GitExecutor: executor, RepositoryInspector: inspector, Recloner: recloner})
	require.NoError(t, creationError)
	return service
}

func defaultOptions(mode Mode) Options {
	return Options{
		WorkTree:   testWorkTreeConstant,
		RemoteURL:  testRemoteURLConstant,
		RemoteName: testRemoteNameConstant,
		Mode:       mode,
	}
}

func TestNewServiceValidatesDependencies(t *testing.T) {
	testCases := []struct {
		name         string
		dependencies Dependencies
		expectedErr  error
	}{
		{
			name:         "missing_git_executor",
			dependencies: Dependencies{RepositoryInspector: &stubRepositoryInspector{}, Recloner: &stubRecloner{}},
			expectedErr:  ErrGitExecutorNotConfigured,
		},
		{
			name:         "missing_inspector",
			dependencies: Dependencies{GitExecutor: &stubGitExecutor{}, Recloner: &stubRecloner{}},
			expectedErr:  ErrInspectorNotConfigured,
		},
		{
			name:         "missing_recloner",
			dependencies: Dependencies{GitExecutor: &stubGitExecutor{}, RepositoryInspector: &stubRepositoryInspector{}},
			expectedErr:  ErrReclonerNotConfigured,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			service, creationError := NewService(testCase.dependencies)
			require.ErrorIs(t, creationError, testCase.expectedErr)
			require.Nil(t, service)
		})
	}
}

func TestSynchronizeRunsGitCommandsPerMode(t *testing.T) {
	testCases := []struct {
		name             string
		options          Options
		expectedCommands [][]string
	}{
		{
			name:    "pull_current_branch",
			options: defaultOptions(ModePull),
			expectedCommands: [][]string{
				{"fetch", "origin"},
				{"pull", "origin", "main"},
			},
		},
		{
			name:    "reset_current_branch",
			options: defaultOptions(ModeReset),
			expectedCommands: [][]string{
				{"fetch", "origin"},
				{"reset", "--hard", "origin/main"},
			},
		},
		{
			name: "pull_other_branch_with_prune",
			options: func() Options {
				options := defaultOptions(ModePull)
				options.BranchName = testRequestedBranchConstant
				options.Prune = true
				return options
			}(),
			expectedCommands: [][]string{
				{"fetch", "origin", "production"},
				{"remote", "prune", "origin"},
				{"checkout", "production"},
				{"pull", "origin", "production"},
			},
		},
		{
			name: "reset_same_branch_skips_checkout",
			options: func() Options {
				options := defaultOptions(ModeReset)
				options.BranchName = testCurrentBranchConstant
				return options
			}(),
			expectedCommands: [][]string{
				{"fetch", "origin", "main"},
				{"reset", "--hard", "origin/main"},
			},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			executor := &stubGitExecutor{}
			inspector := &stubRepositoryInspector{states: []gitrepo.RepositoryState{
				{Commit: testPreviousCommitConstant, Branch: testCurrentBranchConstant, RemoteURL: testRemoteURLConstant},
				{Commit: testUpdatedCommitConstant, Branch: testCurrentBranchConstant, RemoteURL: testRemoteURLConstant},
			}}
			service := newTestService(t, executor, inspector, &stubRecloner{})

			result, syncError := service.Synchronize(context.Background(), testCase.options)
			require.NoError(t, syncError)
			require.Equal(t, testCase.expectedCommands, executor.recordedCommands)
			require.Equal(t, testPreviousCommitConstant, result.PreviousCommit)
			require.Equal(t, testUpdatedCommitConstant, result.NewCommit)
			require.True(t, result.Changed())
			require.False(t, result.Recloned)
		})
	}
}

func TestSynchronizeDetectsRemoteMismatch(t *testing.T) {
	testCases := []struct {
		name           string
		repositoryURL  string
		configuredURL  string
		expectMismatch bool
	}{
		{name: "different_url", repositoryURL: "git@github.com:someone-else/config.git", configuredURL: testRemoteURLConstant, expectMismatch: true},
		{name: "missing_remote", repositoryURL: "", configuredURL: testRemoteURLConstant, expectMismatch: true},
		{name: "same_url_after_trimming", repositoryURL: testRemoteURLConstant + "\n", configuredURL: "  " + testRemoteURLConstant, expectMismatch: false},
		{name: "scheme_variant_is_different", repositoryURL: "ssh://git@github.com/example/home-assistant-config.git", configuredURL: testRemoteURLConstant, expectMismatch: true},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			executor := &stubGitExecutor{}
			inspector := &stubRepositoryInspector{states: []gitrepo.RepositoryState{
				{Commit: testPreviousCommitConstant, Branch: testCurrentBranchConstant, RemoteURL: testCase.repositoryURL},
			}}
			service := newTestService(t, executor, inspector, &stubRecloner{})

			options := defaultOptions(ModePull)
			options.RemoteURL = testCase.configuredURL
			_, syncError := service.Synchronize(context.Background(), options)
			if testCase.expectMismatch {
				require.ErrorIs(t, syncError, ErrRemoteMismatch)
				require.Empty(t, executor.recordedCommands)
				return
			}
			require.NoError(t, syncError)
		})
	}
}

func TestSynchronizeReclonesMissingRepository(t *testing.T) {
	executor := &stubGitExecutor{}
	inspector := &stubRepositoryInspector{stateError: gitrepo.ErrRepositoryNotFound}
	recloner := &stubRecloner{headCommit: testRecloneCommitConstant}
	service := newTestService(t, executor, inspector, recloner)

	options := defaultOptions(ModeReset)
	options.BranchName = testRequestedBranchConstant
	result, syncError := service.Synchronize(context.Background(), options)
	require.NoError(t, syncError)
	require.True(t, result.Recloned)
	require.Equal(t, testRecloneCommitConstant, result.PreviousCommit)
	require.Equal(t, testRecloneCommitConstant, result.NewCommit)
	require.False(t, result.Changed())
	require.Equal(t, testRequestedBranchConstant, result.CurrentBranch)
	require.Equal(t, 1, recloner.invocations)
	require.Equal(t, testRequestedBranchConstant, recloner.recordedBranch)
	require.Empty(t, executor.recordedCommands)
}

func TestSynchronizeWrapsFailureKinds(t *testing.T) {
	commandFailure := execshell.CommandFailedError{Result: execshell.ExecutionResult{ExitCode: 1}}
	testCases := []struct {
		name          string
		mode          Mode
		branchName    string
		prune         bool
		failures      map[string]error
		stateError    error
		recloneError  error
		expectedError error
	}{
		{name: "fetch", mode: ModePull, failures: map[string]error{"fetch": commandFailure}, expectedError: ErrFetchFailed},
		{name: "prune", mode: ModePull, prune: true, failures: map[string]error{"remote": commandFailure}, expectedError: ErrFetchFailed},
		{name: "checkout", mode: ModePull, branchName: testRequestedBranchConstant, failures: map[string]error{"checkout": commandFailure}, expectedError: ErrCheckoutFailed},
		{name: "pull", mode: ModePull, failures: map[string]error{"pull": commandFailure}, expectedError: ErrPullFailed},
		{name: "reset", mode: ModeReset, failures: map[string]error{"reset": commandFailure}, expectedError: ErrResetFailed},
		{name: "reclone", mode: ModePull, stateError: gitrepo.ErrRepositoryNotFound, recloneError: errors.New("clone refused"), expectedError: ErrRecloneFailed},
		{name: "unreadable_state", mode: ModePull, stateError: errors.New("corrupt index"), expectedError: ErrStateUnavailable},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			executor := &stubGitExecutor{failures: testCase.failures}
			inspector := &stubRepositoryInspector{
				states:     []gitrepo.RepositoryState{{Commit: testPreviousCommitConstant, Branch: testCurrentBranchConstant, RemoteURL: testRemoteURLConstant}},
				stateError: testCase.stateError,
			}
			recloner := &stubRecloner{recloneError: testCase.recloneError}
			service := newTestService(t, executor, inspector, recloner)

			options := defaultOptions(testCase.mode)
			options.BranchName = testCase.branchName
			options.Prune = testCase.prune
			_, syncError := service.Synchronize(context.Background(), options)
			require.ErrorIs(t, syncError, testCase.expectedError)
			if len(testCase.failures) > 0 {
				require.ErrorAs(t, syncError, &execshell.CommandFailedError{})
			}
		})
	}
}

func TestSynchronizeIsIdempotentWithoutRemoteChanges(t *testing.T) {
	unchangedState := gitrepo.RepositoryState{Commit: testPreviousCommitConstant, Branch: testCurrentBranchConstant, RemoteURL: testRemoteURLConstant}
	inspector := &stubRepositoryInspector{states: []gitrepo.RepositoryState{unchangedState}}
	service := newTestService(t, &stubGitExecutor{}, inspector, &stubRecloner{})

	firstResult, firstError := service.Synchronize(context.Background(), defaultOptions(ModeReset))
	require.NoError(t, firstError)
	secondResult, secondError := service.Synchronize(context.Background(), defaultOptions(ModeReset))
	require.NoError(t, secondError)

	require.Equal(t, firstResult.NewCommit, secondResult.NewCommit)
	require.False(t, secondResult.Changed())
}

func TestSynchronizeValidatesOptions(t *testing.T) {
	service := newTestService(t, &stubGitExecutor{}, &stubRepositoryInspector{}, &stubRecloner{})

	testCases := []struct {
		name          string
		options       Options
		expectedError error
	}{
		{name: "missing_work_tree", options: Options{RemoteURL: testRemoteURLConstant, Mode: ModePull}, expectedError: ErrWorkTreeRequired},
		{name: "missing_remote_url", options: Options{WorkTree: testWorkTreeConstant, Mode: ModePull}, expectedError: ErrRemoteURLRequired},
		{name: "unsupported_mode", options: Options{WorkTree: testWorkTreeConstant, RemoteURL: testRemoteURLConstant, Mode: "rebase"}, expectedError: ErrUnsupportedMode},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, syncError := service.Synchronize(context.Background(), testCase.options)
			require.ErrorIs(t, syncError, testCase.expectedError)
		})
	}
}
