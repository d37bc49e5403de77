package restart

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

const (
	directorySuffixConstant              = "/"
	currentDirectoryPrefixConstant       = "./"
	ignoreEntryKindFileNameConstant      = "file"
	ignoreEntryKindDirectoryNameConstant = "directory"
)

// IgnoreEntryKind distinguishes exact file entries from directory prefix entries.
type IgnoreEntryKind int

// Supported entry kinds.
const (
	IgnoreEntryFile IgnoreEntryKind = iota
	IgnoreEntryDirectory
)

// String names the entry kind for logs.
func (kind IgnoreEntryKind) String() string {
	if kind == IgnoreEntryDirectory {
		return ignoreEntryKindDirectoryNameConstant
	}
	return ignoreEntryKindFileNameConstant
}

// IgnoreEntry is a single classified ignore pattern, stored relative to the working tree without a trailing slash.
type IgnoreEntry struct {
	Path string
	Kind IgnoreEntryKind
}

// IgnoreList holds the paths whose changes never require a restart.
type IgnoreList struct {
	entries []IgnoreEntry
}

// NewIgnoreList classifies each pattern once. Patterns ending in "/" or naming an existing directory
// under workTree become directory entries; everything else, including paths that do not exist, is a file entry.
func NewIgnoreList(fileSystem afero.Fs, workTree string, patterns []string) IgnoreList {
	entries := make([]IgnoreEntry, 0, len(patterns))
	seen := make(map[IgnoreEntry]struct{}, len(patterns))
	for _, pattern := range patterns {
		normalizedPattern := strings.TrimSpace(filepath.ToSlash(pattern))
		for strings.HasPrefix(normalizedPattern, currentDirectoryPrefixConstant) {
			normalizedPattern = strings.TrimPrefix(normalizedPattern, currentDirectoryPrefixConstant)
		}
		normalizedPattern = strings.TrimLeft(normalizedPattern, directorySuffixConstant)

		explicitDirectory := strings.HasSuffix(normalizedPattern, directorySuffixConstant)
		normalizedPattern = strings.TrimRight(normalizedPattern, directorySuffixConstant)
		if len(normalizedPattern) == 0 {
			continue
		}
		normalizedPattern = path.Clean(normalizedPattern)

		entry := IgnoreEntry{Path: normalizedPattern, Kind: IgnoreEntryFile}
		if explicitDirectory || isDirectory(fileSystem, filepath.Join(workTree, filepath.FromSlash(normalizedPattern))) {
			entry.Kind = IgnoreEntryDirectory
		}
		if _, duplicate := seen[entry]; duplicate {
			continue
		}
		seen[entry] = struct{}{}
		entries = append(entries, entry)
	}
	return IgnoreList{entries: entries}
}

// Entries returns a copy of the classified entries in input order.
func (ignoreList IgnoreList) Entries() []IgnoreEntry {
	return append([]IgnoreEntry{}, ignoreList.entries...)
}

// Empty reports whether the list has no entries.
func (ignoreList IgnoreList) Empty() bool {
	return len(ignoreList.entries) == 0
}

// Matches reports whether a changed path is covered by the list.
// File entries match exactly; directory entries match the directory itself and anything below it.
func (ignoreList IgnoreList) Matches(changedPath string) bool {
	normalizedPath := strings.TrimPrefix(filepath.ToSlash(strings.TrimSpace(changedPath)), currentDirectoryPrefixConstant)
	for _, entry := range ignoreList.entries {
		switch entry.Kind {
		case IgnoreEntryDirectory:
			if normalizedPath == entry.Path || strings.HasPrefix(normalizedPath, entry.Path+directorySuffixConstant) {
				return true
			}
		default:
			if normalizedPath == entry.Path {
				return true
			}
		}
	}
	return false
}

func isDirectory(fileSystem afero.Fs, candidatePath string) bool {
	if fileSystem == nil {
		return false
	}
	directory, statError := afero.IsDir(fileSystem, candidatePath)
	return statError == nil && directory
}
