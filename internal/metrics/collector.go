package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/temirov/gitpull/internal/execshell"
)

const (
	namespaceConstant             = "gitpull"
	iterationsMetricNameConstant  = "iterations_total"
	iterationsMetricHelpConstant  = "Synchronization iterations by outcome."
	durationMetricNameConstant    = "iteration_duration_seconds"
	durationMetricHelpConstant    = "Duration of synchronization iterations."
	restartsMetricNameConstant    = "restarts_total"
	restartsMetricHelpConstant    = "Home Assistant restarts requested."
	lastSuccessMetricNameConstant = "last_success_timestamp_seconds"
	lastSuccessMetricHelpConstant = "Unix time of the last successful iteration."
	commandsMetricNameConstant    = "commands_total"
	commandsMetricHelpConstant    = "External commands by executable and result."
	outcomeLabelConstant          = "outcome"
	commandLabelConstant          = "command"
	resultLabelConstant           = "result"
	commandResultSuccessConstant  = "success"
	commandResultFailureConstant  = "failure"
	commandResultErrorConstant    = "error"
)

// Iteration outcomes recorded under the outcome label.
const (
	OutcomeSuccess              = "success"
	OutcomeAuthFailed           = "auth_failed"
	OutcomeSyncFailed           = "sync_failed"
	OutcomeConfigurationInvalid = "configuration_invalid"
	OutcomeRestartFailed        = "restart_failed"
	OutcomeFatal                = "fatal"
)

var iterationDurationBuckets = []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300}

// Collector owns the gitpull metrics on a private registry.
type Collector struct {
	registry          *prometheus.Registry
	iterations        *prometheus.CounterVec
	iterationDuration prometheus.Histogram
	restarts          prometheus.Counter
	lastSuccess       prometheus.Gauge
	commands          *prometheus.CounterVec
}

// NewCollector registers the gitpull metrics. A nil registry creates a private one.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	collector := &Collector{
		registry: registry,
		iterations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceConstant,
			Name:      iterationsMetricNameConstant,
			Help:      iterationsMetricHelpConstant,
		}, []string{outcomeLabelConstant}),
		iterationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespaceConstant,
			Name:      durationMetricNameConstant,
			Help:      durationMetricHelpConstant,
			Buckets:   iterationDurationBuckets,
		}),
		restarts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespaceConstant,
			Name:      restartsMetricNameConstant,
			Help:      restartsMetricHelpConstant,
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespaceConstant,
			Name:      lastSuccessMetricNameConstant,
			Help:      lastSuccessMetricHelpConstant,
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceConstant,
			Name:      commandsMetricNameConstant,
			Help:      commandsMetricHelpConstant,
		}, []string{commandLabelConstant, resultLabelConstant}),
	}

	registry.MustRegister(
		collector.iterations,
		collector.iterationDuration,
		collector.restarts,
		collector.lastSuccess,
		collector.commands,
	)
	return collector
}

// RecordIteration counts a finished iteration and, for successful ones, stamps the last success time.
func (collector *Collector) RecordIteration(outcome string, duration time.Duration, finishedAt time.Time) {
	if collector == nil {
		return
	}
	collector.iterations.WithLabelValues(outcome).Inc()
	collector.iterationDuration.Observe(duration.Seconds())
	if outcome == OutcomeSuccess {
		collector.lastSuccess.Set(float64(finishedAt.Unix()))
	}
}

// RecordRestart counts a restart request.
func (collector *Collector) RecordRestart() {
	if collector == nil {
		return
	}
	collector.restarts.Inc()
}

// CommandStarted satisfies execshell.CommandEventObserver.
func (collector *Collector) CommandStarted(execshell.ShellCommand) {}

// CommandCompleted counts a command by exit status.
func (collector *Collector) CommandCompleted(command execshell.ShellCommand, result execshell.ExecutionResult) {
	if collector == nil {
		return
	}
	commandResult := commandResultSuccessConstant
	if result.ExitCode != 0 {
		commandResult = commandResultFailureConstant
	}
	collector.commands.WithLabelValues(string(command.Name), commandResult).Inc()
}

// CommandExecutionFailed counts a command that could not run.
func (collector *Collector) CommandExecutionFailed(command execshell.ShellCommand, _ error) {
	if collector == nil {
		return
	}
	collector.commands.WithLabelValues(string(command.Name), commandResultErrorConstant).Inc()
}

// Registry exposes the underlying registry.
func (collector *Collector) Registry() *prometheus.Registry {
	return collector.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (collector *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(collector.registry, promhttp.HandlerOpts{ErrorHandling: promhttp.ContinueOnError})
}
