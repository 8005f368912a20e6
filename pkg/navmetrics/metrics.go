// Package navmetrics exports router and dev-session measurements to
// Prometheus.
package navmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/vroute/pkg/navrouter"
)

// Config configures the Prometheus recorder.
type Config struct {
	// Namespace is the metrics namespace (default: "vroute").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for navigation duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the Prometheus recorder.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "vroute",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Recorder implements navrouter.Recorder on Prometheus collectors.
// Create one per registry; registering twice on the same registry panics.
type Recorder struct {
	navigationsTotal    *prometheus.CounterVec
	navigationDuration  *prometheus.HistogramVec
	pluginFailures      *prometheus.CounterVec
	transitionFallbacks *prometheus.CounterVec
	interceptDecisions  *prometheus.CounterVec
	activeSessions      prometheus.Gauge
	wsErrors            *prometheus.CounterVec
}

var _ navrouter.Recorder = (*Recorder)(nil)

// New registers the vroute metrics and returns a recorder for them.
//
// Metrics collected:
//   - vroute_navigations_total: Counter of handling sequences by route, trigger and outcome
//   - vroute_navigation_duration_seconds: Histogram of handling sequence duration
//   - vroute_plugin_failures_total: Counter of failed plugin hooks by route and plugin
//   - vroute_transition_fallbacks_total: Counter of view transitions that fell back to a direct commit
//   - vroute_intercept_decisions_total: Counter of navigate events by interception decision
//   - vroute_active_sessions: Gauge of connected dev-server sessions
//   - vroute_websocket_errors_total: Counter of dev-server WebSocket errors
//
// Example:
//
//	rec := navmetrics.New(navmetrics.WithNamespace("shop"))
//	r := navrouter.New(env, routes, navrouter.WithRecorder(rec))
//
//	http.Handle("/metrics", promhttp.Handler())
func New(opts ...Option) *Recorder {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	return &Recorder{
		navigationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "navigations_total",
			Help:        "Total number of navigation-handling sequences",
			ConstLabels: config.ConstLabels,
		}, []string{"route", "trigger", "outcome"}),

		navigationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "navigation_duration_seconds",
			Help:        "Navigation-handling sequence duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"route", "trigger"}),

		pluginFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "plugin_failures_total",
			Help:        "Total number of failed plugin hooks",
			ConstLabels: config.ConstLabels,
		}, []string{"route", "plugin"}),

		transitionFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "transition_fallbacks_total",
			Help:        "Total number of view transitions that fell back to a direct commit",
			ConstLabels: config.ConstLabels,
		}, []string{"route"}),

		interceptDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "intercept_decisions_total",
			Help:        "Total number of observed navigate events by decision",
			ConstLabels: config.ConstLabels,
		}, []string{"decision"}),

		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "active_sessions",
			Help:        "Number of connected dev-server sessions",
			ConstLabels: config.ConstLabels,
		}),

		wsErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "websocket_errors_total",
			Help:        "Total dev-server WebSocket errors by type",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),
	}
}

// NavigationCompleted implements navrouter.Recorder.
func (r *Recorder) NavigationCompleted(route string, trigger navrouter.Trigger, d time.Duration, committed bool) {
	outcome := "committed"
	if !committed {
		outcome = "aborted"
	}
	r.navigationsTotal.WithLabelValues(route, string(trigger), outcome).Inc()
	r.navigationDuration.WithLabelValues(route, string(trigger)).Observe(d.Seconds())
}

// PluginFailed implements navrouter.Recorder.
func (r *Recorder) PluginFailed(route, plugin string) {
	r.pluginFailures.WithLabelValues(route, plugin).Inc()
}

// TransitionFallback implements navrouter.Recorder.
func (r *Recorder) TransitionFallback(route string) {
	r.transitionFallbacks.WithLabelValues(route).Inc()
}

// InterceptDecision implements navrouter.Recorder.
func (r *Recorder) InterceptDecision(decision string) {
	r.interceptDecisions.WithLabelValues(decision).Inc()
}

// SessionOpened records a new dev-server session.
func (r *Recorder) SessionOpened() {
	r.activeSessions.Inc()
}

// SessionClosed records the end of a dev-server session.
func (r *Recorder) SessionClosed() {
	r.activeSessions.Dec()
}

// WebSocketError records a dev-server WebSocket error.
// errorType should be a small fixed set ("upgrade", "read", "write", "protocol").
func (r *Recorder) WebSocketError(errorType string) {
	r.wsErrors.WithLabelValues(errorType).Inc()
}
