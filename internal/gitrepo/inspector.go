package gitrepo

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const (
	detachedHeadBranchNameConstant      = "HEAD"
	repositoryNotFoundMessageConstant   = "git repository not found"
	remoteNotFoundMessageConstant       = "git remote not found"
	commitNotFoundMessageConstant       = "git commit not found"
	repositoryOpenErrorTemplateConstant = "open repository %s: %w"
	headReadErrorTemplateConstant       = "read HEAD of %s: %w"
	remoteReadErrorTemplateConstant     = "read remote %s of %s: %w"
	commitReadErrorTemplateConstant     = "read commit %s in %s: %w"
	treeReadErrorTemplateConstant       = "read tree of commit %s in %s: %w"
	treeDiffErrorTemplateConstant       = "diff commits %s..%s in %s: %w"
	notFoundErrorTemplateConstant       = "%w: %s"
)

// ErrRepositoryNotFound indicates the working tree holds no git repository.
var ErrRepositoryNotFound = errors.New(repositoryNotFoundMessageConstant)

// errRemoteNotFound indicates the requested remote is not configured.
var errRemoteNotFound = errors.New(remoteNotFoundMessageConstant)

// ErrCommitNotFound indicates a commit identifier does not resolve in the repository.
var ErrCommitNotFound = errors.New(commitNotFoundMessageConstant)

// RepositoryState is a snapshot of the checked out commit, branch and remote of a working tree.
type RepositoryState struct {
	Commit    string
	Branch    string
	RemoteURL string
}

// Inspector reads repository state directly from the .git directory without spawning git.
type Inspector struct{}

// NewInspector constructs an Inspector.
func NewInspector() *Inspector {
	return &Inspector{}
}

// ReadState returns commit, branch and the URL of remoteName. A missing remote leaves RemoteURL empty.
func (inspector *Inspector) ReadState(workTree string, remoteName string) (RepositoryState, error) {
	repository, openError := inspector.open(workTree)
	if openError != nil {
		return RepositoryState{}, openError
	}

	commit, branch, headError := readHead(repository)
	if headError != nil {
		return RepositoryState{}, fmt.Errorf(headReadErrorTemplateConstant, workTree, headError)
	}

	remoteURL, remoteError := readRemoteURL(repository, remoteName)
	if remoteError != nil && !errors.Is(remoteError, errRemoteNotFound) {
		return RepositoryState{}, fmt.Errorf(remoteReadErrorTemplateConstant, remoteName, workTree, remoteError)
	}

	return RepositoryState{Commit: commit, Branch: branch, RemoteURL: remoteURL}, nil
}

// HeadCommit returns the full hash of HEAD, or an empty string for a repository without commits.
func (inspector *Inspector) HeadCommit(workTree string) (string, error) {
	state, stateError := inspector.ReadState(workTree, "")
	if stateError != nil {
		return "", stateError
	}
	return state.Commit, nil
}

// ChangedFiles lists the paths that differ between two commits, sorted and de-duplicated.
// Renames contribute both the old and the new path. An empty fromCommit compares against an empty tree.
func (inspector *Inspector) ChangedFiles(workTree string, fromCommit string, toCommit string) ([]string, error) {
	if fromCommit == toCommit {
		return []string{}, nil
	}

	repository, openError := inspector.open(workTree)
	if openError != nil {
		return nil, openError
	}

	var fromTree *object.Tree
	if len(strings.TrimSpace(fromCommit)) > 0 {
		resolvedTree, treeError := readTree(repository, workTree, fromCommit)
		if treeError != nil {
			return nil, treeError
		}
		fromTree = resolvedTree
	}

	toTree, treeError := readTree(repository, workTree, toCommit)
	if treeError != nil {
		return nil, treeError
	}

	changes, diffError := object.DiffTree(fromTree, toTree)
	if diffError != nil {
		return nil, fmt.Errorf(treeDiffErrorTemplateConstant, fromCommit, toCommit, workTree, diffError)
	}

	uniquePaths := make(map[string]struct{}, len(changes))
	for _, change := range changes {
		for _, changedPath := range []string{change.From.Name, change.To.Name} {
			if len(changedPath) > 0 {
				uniquePaths[changedPath] = struct{}{}
			}
		}
	}

	changedFiles := make([]string, 0, len(uniquePaths))
	for changedPath := range uniquePaths {
		changedFiles = append(changedFiles, changedPath)
	}
	sort.Strings(changedFiles)
	return changedFiles, nil
}

func (inspector *Inspector) open(workTree string) (*gogit.Repository, error) {
	repository, openError := gogit.PlainOpen(workTree)
	if openError != nil {
		if errors.Is(openError, gogit.ErrRepositoryNotExists) {
			return nil, fmt.Errorf(notFoundErrorTemplateConstant, ErrRepositoryNotFound, workTree)
		}
		return nil, fmt.Errorf(repositoryOpenErrorTemplateConstant, workTree, openError)
	}
	return repository, nil
}

func readHead(repository *gogit.Repository) (string, string, error) {
	headReference, headError := repository.Head()
	if headError == nil {
		if headReference.Name() == plumbing.HEAD {
			return headReference.Hash().String(), detachedHeadBranchNameConstant, nil
		}
		return headReference.Hash().String(), headReference.Name().Short(), nil
	}
	if !errors.Is(headError, plumbing.ErrReferenceNotFound) {
		return "", "", headError
	}

	symbolicHead, symbolicError := repository.Reference(plumbing.HEAD, false)
	if symbolicError != nil {
		return "", "", symbolicError
	}
	return "", symbolicHead.Target().Short(), nil
}

func readRemoteURL(repository *gogit.Repository, remoteName string) (string, error) {
	if len(strings.TrimSpace(remoteName)) == 0 {
		return "", errRemoteNotFound
	}
	remote, remoteError := repository.Remote(remoteName)
	if remoteError != nil {
		if errors.Is(remoteError, gogit.ErrRemoteNotFound) {
			return "", errRemoteNotFound
		}
		return "", remoteError
	}
	remoteURLs := remote.Config().URLs
	if len(remoteURLs) == 0 {
		return "", errRemoteNotFound
	}
	return remoteURLs[0], nil
}

func readTree(repository *gogit.Repository, workTree string, commitIdentifier string) (*object.Tree, error) {
	commitHash, resolveError := repository.ResolveRevision(plumbing.Revision(commitIdentifier))
	if resolveError != nil {
		return nil, fmt.Errorf(notFoundErrorTemplateConstant, ErrCommitNotFound, commitIdentifier)
	}
	commit, commitError := repository.CommitObject(*commitHash)
	if commitError != nil {
		return nil, fmt.Errorf(commitReadErrorTemplateConstant, commitIdentifier, workTree, commitError)
	}
	tree, treeError := commit.Tree()
	if treeError != nil {
		return nil, fmt.Errorf(treeReadErrorTemplateConstant, commitIdentifier, workTree, treeError)
	}
	return tree, nil
}
