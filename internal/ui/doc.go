// Package ui turns command lifecycle events into short console sentences.
//
// The console logger is attached to the shell executor only when logs are
// rendered for a human; structured output keeps the detailed zap fields.
package ui
