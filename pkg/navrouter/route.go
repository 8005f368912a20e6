package navrouter

import (
	"context"

	"github.com/vango-dev/vroute/pkg/pattern"
)

// RenderFunc produces the view for a route.
type RenderFunc func() any

// Route maps a path pattern to a title and a renderer.
// Routes are identified by Path and must not be modified once passed to New.
type Route struct {
	// Path is the pattern (e.g., "/user/:id").
	Path string

	// Title is applied to the document on navigation when non-empty.
	Title string

	// Render returns the route's view.
	Render RenderFunc

	// Plugins run after the router's global plugins, in order.
	Plugins []Plugin
}

// Plugin runs before a navigation's visible effects are committed.
type Plugin interface {
	// Name identifies the plugin in logs, metrics and error events.
	Name() string

	// BeforeNavigation runs before the route to is committed. A returned
	// error is reported through the router's error listeners.
	BeforeNavigation(ctx context.Context, to *Route) error
}

// PluginFunc is a function adapter for an anonymous Plugin.
type PluginFunc func(ctx context.Context, to *Route) error

// Name implements Plugin.
func (f PluginFunc) Name() string {
	return ""
}

// BeforeNavigation implements Plugin.
func (f PluginFunc) BeforeNavigation(ctx context.Context, to *Route) error {
	if f == nil {
		return nil
	}
	return f(ctx, to)
}

type namedPlugin struct {
	name string
	fn   PluginFunc
}

// NamedPlugin creates a plugin with a name. fn may be nil, in which case
// the plugin does nothing.
func NamedPlugin(name string, fn PluginFunc) Plugin {
	return &namedPlugin{name: name, fn: fn}
}

func (p *namedPlugin) Name() string {
	return p.name
}

func (p *namedPlugin) BeforeNavigation(ctx context.Context, to *Route) error {
	return p.fn.BeforeNavigation(ctx, to)
}

// pluginName returns a printable name for p.
func pluginName(p Plugin) string {
	if name := p.Name(); name != "" {
		return name
	}
	return "anonymous"
}

// Match is a route together with the params captured from a pathname.
type Match struct {
	Route  *Route
	Params pattern.Params
}
