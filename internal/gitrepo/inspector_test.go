package gitrepo_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"github.com/temirov/gitpull/internal/gitrepo"
)

const (
	testRemoteNameConstant = "origin"
	testRemoteURLConstant  = "git@github.com:example/home-assistant-config.git"
	testBranchNameConstant = "master"
)

type repositoryFixture struct {
	testInstance *testing.T
	workTree     string
	repository   *gogit.Repository
}

func newRepositoryFixture(testInstance *testing.T) *repositoryFixture {
	testInstance.Helper()
	workTree := testInstance.TempDir()
	repository, initError := gogit.PlainInit(workTree, false)
	require.NoError(testInstance, initError)
	return &repositoryFixture{testInstance: testInstance, workTree: workTree, repository: repository}
}

func (fixture *repositoryFixture) writeFile(relativePath string, content string) {
	fixture.testInstance.Helper()
	absolutePath := filepath.Join(fixture.workTree, relativePath)
	require.NoError(fixture.testInstance, os.MkdirAll(filepath.Dir(absolutePath), 0o755))
	require.NoError(fixture.testInstance, os.WriteFile(absolutePath, []byte(content), 0o644))
}

func (fixture *repositoryFixture) commitAll(message string) string {
	fixture.testInstance.Helper()
	worktree, worktreeError := fixture.repository.Worktree()
	require.NoError(fixture.testInstance, worktreeError)
	require.NoError(fixture.testInstance, worktree.AddWithOptions(&gogit.AddOptions{All: true}))
	commitHash, commitError := worktree.Commit(message, &gogit.CommitOptions{
		All:    true,
		Author: &object.Signature{Name: "Home Assistant", Email: "ha@example.com", When: time.Unix(1700000000, 0)},
	})
	require.NoError(fixture.testInstance, commitError)
	return commitHash.String()
}

func (fixture *repositoryFixture) addRemote(name string, remoteURL string) {
	fixture.testInstance.Helper()
	_, remoteError := fixture.repository.CreateRemote(&config.RemoteConfig{Name: name, URLs: []string{remoteURL}})
	require.NoError(fixture.testInstance, remoteError)
}

func TestInspectorReadStateReportsCommitBranchAndRemote(testInstance *testing.T) {
	fixture := newRepositoryFixture(testInstance)
	fixture.writeFile("configuration.yaml", "homeassistant:\n")
	commit := fixture.commitAll("initial")
	fixture.addRemote(testRemoteNameConstant, testRemoteURLConstant)

	inspector := gitrepo.NewInspector()

	state, stateError := inspector.ReadState(fixture.workTree, testRemoteNameConstant)
	require.NoError(testInstance, stateError)
	require.Equal(testInstance, gitrepo.RepositoryState{Commit: commit, Branch: testBranchNameConstant, RemoteURL: testRemoteURLConstant}, state)

	headCommit, headError := inspector.HeadCommit(fixture.workTree)
	require.NoError(testInstance, headError)
	require.Equal(testInstance, commit, headCommit)
}

func TestInspectorReportsMissingRepository(testInstance *testing.T) {
	inspector := gitrepo.NewInspector()
	emptyDirectory := testInstance.TempDir()

	_, stateError := inspector.ReadState(emptyDirectory, testRemoteNameConstant)
	require.ErrorIs(testInstance, stateError, gitrepo.ErrRepositoryNotFound)

	_, missingDirectoryError := inspector.HeadCommit(filepath.Join(emptyDirectory, "absent"))
	require.ErrorIs(testInstance, missingDirectoryError, gitrepo.ErrRepositoryNotFound)
}

func TestInspectorReadStateLeavesMissingRemoteEmpty(testInstance *testing.T) {
	fixture := newRepositoryFixture(testInstance)
	fixture.writeFile("configuration.yaml", "homeassistant:\n")
	commit := fixture.commitAll("initial")

	inspector := gitrepo.NewInspector()
	state, stateError := inspector.ReadState(fixture.workTree, testRemoteNameConstant)
	require.NoError(testInstance, stateError)
	require.Empty(testInstance, state.RemoteURL)
	require.Equal(testInstance, commit, state.Commit)
}

func TestInspectorHandlesUnbornAndDetachedHead(testInstance *testing.T) {
	fixture := newRepositoryFixture(testInstance)
	inspector := gitrepo.NewInspector()

	unbornState, unbornError := inspector.ReadState(fixture.workTree, testRemoteNameConstant)
	require.NoError(testInstance, unbornError)
	require.Empty(testInstance, unbornState.Commit)
	require.Equal(testInstance, testBranchNameConstant, unbornState.Branch)

	fixture.writeFile("configuration.yaml", "homeassistant:\n")
	commit := fixture.commitAll("initial")
	require.NoError(testInstance, fixture.repository.Storer.SetReference(plumbing.NewHashReference(plumbing.HEAD, plumbing.NewHash(commit))))

	detachedState, detachedError := inspector.ReadState(fixture.workTree, testRemoteNameConstant)
	require.NoError(testInstance, detachedError)
	require.Equal(testInstance, "HEAD", detachedState.Branch)
	require.Equal(testInstance, commit, detachedState.Commit)
}

func TestInspectorChangedFiles(testInstance *testing.T) {
	fixture := newRepositoryFixture(testInstance)
	fixture.writeFile("configuration.yaml", "homeassistant:\n")
	fixture.writeFile("secrets.yaml", "api_key: one\n")
	fixture.writeFile("www/card.js", "console.log(1)\n")
	firstCommit := fixture.commitAll("initial")

	fixture.writeFile("secrets.yaml", "api_key: two\n")
	fixture.writeFile("automations.yaml", "[]\n")
	require.NoError(testInstance, os.Rename(filepath.Join(fixture.workTree, "www/card.js"), filepath.Join(fixture.workTree, "www/card-v2.js")))
	secondCommit := fixture.commitAll("update")

	inspector := gitrepo.NewInspector()

	testCases := []struct {
		name          string
		fromCommit    string
		toCommit      string
		expectedFiles []string
	}{
		{
			name:          "modified_added_and_renamed",
			fromCommit:    firstCommit,
			toCommit:      secondCommit,
			expectedFiles: []string{"automations.yaml", "secrets.yaml", "www/card-v2.js", "www/card.js"},
		},
		{
			name:          "reverse_direction",
			fromCommit:    secondCommit,
			toCommit:      firstCommit,
			expectedFiles: []string{"automations.yaml", "secrets.yaml", "www/card-v2.js", "www/card.js"},
		},
		{
			name:          "same_commit",
			fromCommit:    secondCommit,
			toCommit:      secondCommit,
			expectedFiles: []string{},
		},
		{
			name:          "from_empty_tree",
			fromCommit:    "",
			toCommit:      firstCommit,
			expectedFiles: []string{"configuration.yaml", "secrets.yaml", "www/card.js"},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			changedFiles, changedError := inspector.ChangedFiles(fixture.workTree, testCase.fromCommit, testCase.toCommit)
			require.NoError(testInstance, changedError)
			require.Equal(testInstance, testCase.expectedFiles, changedFiles)
		})
	}

	_, unknownError := inspector.ChangedFiles(fixture.workTree, firstCommit, "0000000000000000000000000000000000000001")
	require.ErrorIs(testInstance, unknownError, gitrepo.ErrCommitNotFound)
}
