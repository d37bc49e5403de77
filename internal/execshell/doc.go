// Package execshell runs the external tools gitpull depends on.
//
// ShellExecutor wraps a CommandRunner (OSCommandRunner by default) with zap
// lifecycle logging, typed failures and observer notifications so that git,
// ssh and the Home Assistant CLI can be driven and stubbed the same way.
package execshell
