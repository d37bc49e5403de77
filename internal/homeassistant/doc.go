// Package homeassistant checks a synchronized configuration with the Home
// Assistant CLI or a YAML parse and restarts Home Assistant core.
package homeassistant
