package reclone

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/temirov/gitpull/internal/execshell"
)

const (
	backupDirectoryPrefixConstant         = "config-"
	backupTimestampLayoutConstant         = "2006-01-02_15-04-05"
	gitCloneSubcommandConstant            = "clone"
	gitBranchFlagConstant                 = "--branch"
	directoryPermissionsConstant          = 0o755
	backupFailureTemplateConstant         = "back up %s to %s: %w"
	clearFailureTemplateConstant          = "clear %s: %w"
	cloneFailureTemplateConstant          = "clone %s into %s: %w"
	restoreFailureTemplateConstant        = "restore %s from %s: %w"
	headFailureTemplateConstant           = "read HEAD of %s: %w"
	backupInsideWorkTreeTemplateConstant  = "%w: %s is inside %s"
	backupCreatedMessageConstant          = "working tree backed up"
	workTreeClearedMessageConstant        = "working tree cleared"
	fileRestoredMessageConstant           = "file restored from backup"
	recloneCompletedMessageConstant       = "repository recloned"
	workTreeFieldConstant                 = "work_tree"
	backupPathFieldConstant               = "backup_path"
	restoredFileFieldConstant             = "file"
	commitFieldConstant                   = "commit"
	fileSystemMissingMessageConstant      = "reclone file system not configured"
	gitExecutorMissingMessageConstant     = "reclone git executor not configured"
	headReaderMissingMessageConstant      = "reclone head reader not configured"
	backupDirectoryMissingMessageConstant = "backup directory must be provided"
	workTreeMissingMessageConstant        = "working tree path must be provided"
	backupInsideWorkTreeMessageConstant   = "backup directory must be outside the working tree"
)

// Validation errors.
var (
	ErrFileSystemNotConfigured  = errors.New(fileSystemMissingMessageConstant)
	ErrGitExecutorNotConfigured = errors.New(gitExecutorMissingMessageConstant)
	ErrHeadReaderNotConfigured  = errors.New(headReaderMissingMessageConstant)
	ErrBackupDirectoryRequired  = errors.New(backupDirectoryMissingMessageConstant)
	ErrWorkTreeRequired         = errors.New(workTreeMissingMessageConstant)
	ErrBackupInsideWorkTree     = errors.New(backupInsideWorkTreeMessageConstant)
)

// GitExecutor runs git subcommands.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// HeadReader resolves the HEAD commit of a working tree.
type HeadReader interface {
	HeadCommit(workTree string) (string, error)
}

// Clock returns the current time.
type Clock func() time.Time

// Dependencies enumerates the collaborators required for recloning.
type Dependencies struct {
	FileSystem  afero.Fs
	GitExecutor GitExecutor
	HeadReader  HeadReader
	Logger      *zap.Logger
	Clock       Clock
}

// Options configures where backups go and which files survive a reclone.
type Options struct {
	BackupDirectory string
	// RestoreFiles are paths relative to the working tree copied back from the backup when the clone lacks them.
	RestoreFiles []string
}

// Service backs up a working tree, clears it and clones the remote in its place.
// The steps are not atomic. A failure after the backup leaves the working tree partially
// cleared or cloned and the backup directory is kept for manual recovery.
type Service struct {
	fileSystem afero.Fs
	executor   GitExecutor
	headReader HeadReader
	logger     *zap.Logger
	clock      Clock
	options    Options
}

// NewService validates dependencies and constructs a Service.
func NewService(dependencies Dependencies, options Options) (*Service, error) {
	if dependencies.FileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}
	if dependencies.GitExecutor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	if dependencies.HeadReader == nil {
		return nil, ErrHeadReaderNotConfigured
	}
	options.BackupDirectory = strings.TrimSpace(options.BackupDirectory)
	if len(options.BackupDirectory) == 0 {
		return nil, ErrBackupDirectoryRequired
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := dependencies.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Service{
		fileSystem: dependencies.FileSystem,
		executor:   dependencies.GitExecutor,
		headReader: dependencies.HeadReader,
		logger:     logger,
		clock:      clock,
		options:    options,
	}, nil
}

// BackupAndReclone replaces workTree with a fresh clone of remoteURL and returns the new HEAD.
func (service *Service) BackupAndReclone(executionContext context.Context, workTree string, remoteURL string, branchName string) (string, error) {
	workTree = filepath.Clean(strings.TrimSpace(workTree))
	if len(workTree) == 0 || workTree == "." {
		return "", ErrWorkTreeRequired
	}
	backupDirectory := filepath.Clean(service.options.BackupDirectory)
	if isWithin(backupDirectory, workTree) {
		return "", fmt.Errorf(backupInsideWorkTreeTemplateConstant, ErrBackupInsideWorkTree, backupDirectory, workTree)
	}

	backupPath := filepath.Join(backupDirectory, backupDirectoryPrefixConstant+service.clock().Format(backupTimestampLayoutConstant))
	if copyError := service.copyTree(workTree, backupPath); copyError != nil {
		return "", fmt.Errorf(backupFailureTemplateConstant, workTree, backupPath, copyError)
	}
	service.logger.Info(backupCreatedMessageConstant, zap.String(workTreeFieldConstant, workTree), zap.String(backupPathFieldConstant, backupPath))

	if clearError := service.clearDirectory(workTree); clearError != nil {
		return "", fmt.Errorf(clearFailureTemplateConstant, workTree, clearError)
	}
	service.logger.Info(workTreeClearedMessageConstant, zap.String(workTreeFieldConstant, workTree))

	cloneArguments := []string{gitCloneSubcommandConstant}
	if trimmedBranch := strings.TrimSpace(branchName); len(trimmedBranch) > 0 {
		cloneArguments = append(cloneArguments, gitBranchFlagConstant, trimmedBranch)
	}
	cloneArguments = append(cloneArguments, strings.TrimSpace(remoteURL), workTree)
	if _, cloneError := service.executor.ExecuteGit(executionContext, execshell.CommandDetails{Arguments: cloneArguments}); cloneError != nil {
		return "", fmt.Errorf(cloneFailureTemplateConstant, remoteURL, workTree, cloneError)
	}

	if restoreError := service.restoreFiles(workTree, backupPath); restoreError != nil {
		return "", restoreError
	}

	headCommit, headError := service.headReader.HeadCommit(workTree)
	if headError != nil {
		return "", fmt.Errorf(headFailureTemplateConstant, workTree, headError)
	}

	service.logger.Info(recloneCompletedMessageConstant, zap.String(workTreeFieldConstant, workTree), zap.String(commitFieldConstant, headCommit))
	return headCommit, nil
}

// copyTree copies every file and directory under source into destination.
// A missing source produces an empty backup directory.
func (service *Service) copyTree(source string, destination string) error {
	if mkdirError := service.fileSystem.MkdirAll(destination, directoryPermissionsConstant); mkdirError != nil {
		return mkdirError
	}
	exists, existsError := afero.DirExists(service.fileSystem, source)
	if existsError != nil {
		return existsError
	}
	if !exists {
		return nil
	}

	return afero.Walk(service.fileSystem, source, func(currentPath string, info os.FileInfo, walkError error) error {
		if walkError != nil {
			return walkError
		}
		relativePath, relativeError := filepath.Rel(source, currentPath)
		if relativeError != nil {
			return relativeError
		}
		targetPath := filepath.Join(destination, relativePath)
		if info.IsDir() {
			return service.fileSystem.MkdirAll(targetPath, info.Mode().Perm()|0o700)
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		return service.copyFile(currentPath, targetPath, info.Mode().Perm())
	})
}

func (service *Service) copyFile(source string, destination string, permissions os.FileMode) error {
	if mkdirError := service.fileSystem.MkdirAll(filepath.Dir(destination), directoryPermissionsConstant); mkdirError != nil {
		return mkdirError
	}
	sourceFile, openError := service.fileSystem.Open(source)
	if openError != nil {
		return openError
	}
	defer func() {
		_ = sourceFile.Close()
	}()

	destinationFile, createError := service.fileSystem.OpenFile(destination, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, permissions)
	if createError != nil {
		return createError
	}
	if _, copyError := io.Copy(destinationFile, sourceFile); copyError != nil {
		_ = destinationFile.Close()
		return copyError
	}
	return destinationFile.Close()
}

// clearDirectory removes the contents of directory and keeps the directory itself.
func (service *Service) clearDirectory(directory string) error {
	if mkdirError := service.fileSystem.MkdirAll(directory, directoryPermissionsConstant); mkdirError != nil {
		return mkdirError
	}
	entries, readError := afero.ReadDir(service.fileSystem, directory)
	if readError != nil {
		return readError
	}
	for _, entry := range entries {
		if removeError := service.fileSystem.RemoveAll(filepath.Join(directory, entry.Name())); removeError != nil {
			return removeError
		}
	}
	return nil
}

func (service *Service) restoreFiles(workTree string, backupPath string) error {
	for _, restoreFile := range service.options.RestoreFiles {
		relativePath := filepath.Clean(strings.TrimSpace(restoreFile))
		if len(relativePath) == 0 || relativePath == "." || filepath.IsAbs(relativePath) || escapesDirectory(relativePath) {
			continue
		}
		targetPath := filepath.Join(workTree, relativePath)
		if present, _ := afero.Exists(service.fileSystem, targetPath); present {
			continue
		}
		backupFile := filepath.Join(backupPath, relativePath)
		info, statError := service.fileSystem.Stat(backupFile)
		if statError != nil || info.IsDir() {
			continue
		}
		if copyError := service.copyFile(backupFile, targetPath, info.Mode().Perm()); copyError != nil {
			return fmt.Errorf(restoreFailureTemplateConstant, relativePath, backupPath, copyError)
		}
		service.logger.Info(fileRestoredMessageConstant, zap.String(restoredFileFieldConstant, relativePath), zap.String(backupPathFieldConstant, backupPath))
	}
	return nil
}

func isWithin(candidate string, directory string) bool {
	relativePath, relativeError := filepath.Rel(directory, candidate)
	if relativeError != nil {
		return false
	}
	return relativePath == "." || !escapesDirectory(relativePath)
}

func escapesDirectory(relativePath string) bool {
	return relativePath == ".." || strings.HasPrefix(relativePath, ".."+string(filepath.Separator))
}
