// Package orchestrator runs the synchronization loop. Each iteration prepares
// credentials, synchronizes the working tree, validates the configuration and
// restarts Home Assistant when the restart policy asks for it. Iterations repeat
// on a fixed interval or cron schedule until the context is cancelled or the
// configured remote no longer matches the repository.
package orchestrator
