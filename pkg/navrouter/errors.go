package navrouter

import (
	"errors"
	"fmt"

	vrerrors "github.com/vango-dev/vroute/internal/errors"
)

// Error is the structured error type returned for invalid routes and
// failed navigations. Use errors.As to inspect its Code.
type Error = vrerrors.RouteError

var (
	// ErrNotInitialized is returned by Navigate before Init has run.
	ErrNotInitialized = errors.New("vroute: router not initialized")

	// ErrClosed is returned once the router has been closed.
	ErrClosed = errors.New("vroute: router closed")

	// ErrNilEnvironment is returned by Init when New was given no environment.
	ErrNilEnvironment = errors.New("vroute: nil environment")
)

// PluginError reports a failed plugin hook. It is returned from Navigate
// and Init only when the router was built with WithFailClosedPlugins.
type PluginError struct {
	Plugin Plugin
	Route  *Route
	Err    error
}

// Error implements the error interface.
func (e *PluginError) Error() string {
	return fmt.Sprintf("vroute: plugin %q failed before %q: %v", pluginName(e.Plugin), e.Route.Path, e.Err)
}

// Unwrap returns an R001 Error wrapping the plugin's own error, so both
// errors.As to *Error and errors.Is on the plugin's error see through.
func (e *PluginError) Unwrap() error {
	return vrerrors.New("R001").
		WithDetailf("plugin %q before route %q", pluginName(e.Plugin), e.Route.Path).
		Wrap(e.Err)
}
