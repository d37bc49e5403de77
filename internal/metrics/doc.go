// Package metrics records synchronization outcomes, restarts and external
// command results in Prometheus metrics and optionally serves them over HTTP.
package metrics
