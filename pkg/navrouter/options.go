package navrouter

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// Option configures a Router.
type Option func(*Router)

// WithPlugins appends global plugins. Global plugins run before route
// plugins on every navigation, in the order given.
func WithPlugins(plugins ...Plugin) Option {
	return func(r *Router) {
		r.plugins = append(r.plugins, plugins...)
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(rec Recorder) Option {
	return func(r *Router) {
		if rec != nil {
			r.recorder = rec
		}
	}
}

// WithTracer sets the tracer used for navigation spans.
// Defaults to the "vroute" tracer of the global OpenTelemetry provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(r *Router) {
		if tracer != nil {
			r.tracer = tracer
		}
	}
}

// WithFailClosedPlugins makes a failed plugin abort its navigation: the
// title is not applied, the route is not committed and the PluginError is
// returned to the caller. By default failures are reported and skipped.
func WithFailClosedPlugins() Option {
	return func(r *Router) {
		r.failClosed = true
	}
}
