// Package gitrepo reads repository state for the synchronized working tree.
//
// Inspector opens the repository with go-git to report the repository state
// and the files changed between two commits. ParseRemoteEndpoint splits remote
// URLs into transport, user, host and path using go-git's endpoint parser.
package gitrepo
