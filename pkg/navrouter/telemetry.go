package navrouter

import (
	"context"
	"time"
)

// Recorder receives navigation measurements. pkg/navmetrics provides a
// Prometheus implementation.
type Recorder interface {
	// NavigationCompleted is called once per handling sequence.
	// committed is false when the sequence stopped before the state commit.
	NavigationCompleted(route string, trigger Trigger, d time.Duration, committed bool)

	// PluginFailed is called once per failed plugin hook.
	PluginFailed(route, plugin string)

	// TransitionFallback is called when a view transition could not start
	// or finish and the route was committed directly.
	TransitionFallback(route string)

	// InterceptDecision is called for every observed navigate event with
	// "intercepted" or the reason it was left to the environment.
	InterceptDecision(decision string)
}

type nopRecorder struct{}

func (nopRecorder) NavigationCompleted(string, Trigger, time.Duration, bool) {}
func (nopRecorder) PluginFailed(string, string)                              {}
func (nopRecorder) TransitionFallback(string)                                {}
func (nopRecorder) InterceptDecision(string)                                 {}

// Intercept decisions.
const (
	DecisionIntercepted      = "intercepted"
	DecisionCrossOrigin      = "cross_origin"
	DecisionDownload         = "download"
	DecisionFormSubmission   = "form_submission"
	DecisionNotInterceptable = "not_interceptable"
	DecisionUnmatched        = "unmatched"
)

type navigationIDKey struct{}

// NavigationID returns the id of the navigation-handling sequence running
// with ctx. Plugins can use it to correlate their own logs.
func NavigationID(ctx context.Context) string {
	id, _ := ctx.Value(navigationIDKey{}).(string)
	return id
}

func withNavigationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, navigationIDKey{}, id)
}
