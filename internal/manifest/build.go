package manifest

import (
	"context"
	"html/template"
	"io"
	"log/slog"

	"github.com/vango-dev/vroute/internal/errors"
	"github.com/vango-dev/vroute/pkg/lazy"
	"github.com/vango-dev/vroute/pkg/navrouter"
	"github.com/vango-dev/vroute/pkg/pattern"
)

// View is the render output of a manifest route.
type View struct {
	Route string
	tmpl  *template.Template
}

// Execute writes the view with the route params as template data.
func (v *View) Execute(w io.Writer, params pattern.Params) error {
	if params == nil {
		params = pattern.Params{}
	}
	return v.tmpl.Execute(w, map[string]string(params))
}

// Deps are the collaborators plugins are built with.
type Deps struct {
	// Loader serves lazy plugins. Required when the manifest uses them.
	Loader lazy.Loader

	// Cache is shared by all lazy plugins. A new cache is used when nil.
	Cache *lazy.Cache

	// Logger is used by plugins. Defaults to slog.Default().
	Logger *slog.Logger
}

// Build turns the manifest into routes and global plugins.
func (m *Manifest) Build(deps Deps) ([]navrouter.Route, []navrouter.Plugin, error) {
	if deps.Cache == nil {
		deps.Cache = lazy.NewCache()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	global, err := buildPlugins(m.Plugins, deps)
	if err != nil {
		return nil, nil, err
	}

	routes := make([]navrouter.Route, len(m.Routes))
	for i, spec := range m.Routes {
		tmpl, err := template.New(spec.Path).Parse(spec.View)
		if err != nil {
			return nil, nil, errors.New("R004").WithDetailf("view of route %q", spec.Path).Wrap(err)
		}
		plugins, err := buildPlugins(spec.Plugins, deps)
		if err != nil {
			return nil, nil, err
		}

		view := &View{Route: spec.Path, tmpl: tmpl}
		routes[i] = navrouter.Route{
			Path:    spec.Path,
			Title:   spec.Title,
			Render:  func() any { return view },
			Plugins: plugins,
		}
	}
	return routes, global, nil
}

func buildPlugins(specs []PluginSpec, deps Deps) ([]navrouter.Plugin, error) {
	plugins := make([]navrouter.Plugin, 0, len(specs))
	for _, spec := range specs {
		switch spec.Type {
		case PluginLazy:
			if deps.Loader == nil {
				return nil, errors.New("R004").
					WithDetailf("lazy plugin for %q needs a module loader", spec.Module).
					WithSuggestion("Configure modules in vroute.json")
			}
			plugins = append(plugins, lazy.New(spec.Module, deps.Loader,
				lazy.WithCache(deps.Cache),
				lazy.WithLogger(deps.Logger),
			))
		case PluginLog:
			plugins = append(plugins, logPlugin(spec.Name, deps.Logger))
		default:
			return nil, errors.New("R004").WithDetailf("unknown plugin type %q", spec.Type)
		}
	}
	return plugins, nil
}

// logPlugin logs every navigation it sees.
func logPlugin(name string, logger *slog.Logger) navrouter.Plugin {
	if name == "" {
		name = PluginLog
	}
	return navrouter.NamedPlugin(name, func(ctx context.Context, to *navrouter.Route) error {
		logger.InfoContext(ctx, "navigating",
			"route", to.Path,
			"title", to.Title,
			"navigation_id", navrouter.NavigationID(ctx),
		)
		return nil
	})
}
