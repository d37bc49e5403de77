// Package auth prepares access to the git remote: it installs a deployment key
// for SSH remotes when the access check fails and stores deployment credentials
// for HTTP remotes through git's credential store.
package auth
