// Package cli constructs the gitpull command-line interface. It wires the
// Cobra command hierarchy, the layered configuration loader and the zap
// loggers, and registers the run and restart-check commands.
package cli
