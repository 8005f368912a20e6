package navrouter

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/vroute/pkg/pattern"
)

// navigation is one run of the navigation-handling sequence.
type navigation struct {
	route          *Route
	params         pattern.Params
	trigger        Trigger
	skipTransition bool
}

// handleNavigation waits for any in-flight sequence and runs nav.
func (r *Router) handleNavigation(ctx context.Context, nav navigation) error {
	if err := r.acquire(ctx); err != nil {
		return err
	}
	defer r.release()
	return r.runSequence(ctx, nav)
}

// runSequence runs plugins, applies the title and commits nav.route.
// The caller must hold the sequence token.
func (r *Router) runSequence(ctx context.Context, nav navigation) (err error) {
	route := nav.route
	id := uuid.NewString()
	ctx = withNavigationID(ctx, id)

	ctx, span := r.tracer.Start(ctx, "vroute.navigation",
		trace.WithAttributes(
			attribute.String("vroute.route", route.Path),
			attribute.String("vroute.trigger", string(nav.trigger)),
			attribute.String("vroute.navigation_id", id),
		),
	)
	logger := r.logger.With("navigation_id", id, "route", route.Path, "trigger", string(nav.trigger))

	start := time.Now()
	committed := false
	defer func() {
		r.recorder.NavigationCompleted(route.Path, nav.trigger, time.Since(start), committed)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	plugins := make([]Plugin, 0, len(r.plugins)+len(route.Plugins))
	plugins = append(plugins, r.plugins...)
	plugins = append(plugins, route.Plugins...)

	for _, p := range plugins {
		if err := ctx.Err(); err != nil {
			logger.Debug("navigation cancelled", "error", err)
			return err
		}
		if perr := r.runPlugin(ctx, p, route); perr != nil {
			name := pluginName(p)
			logger.Error("plugin failed", "plugin", name, "error", perr)
			r.recorder.PluginFailed(route.Path, name)
			r.errors.emit(ErrorEvent{Err: perr, Plugin: p, Route: route})
			if r.failClosed {
				return &PluginError{Plugin: p, Route: route, Err: perr}
			}
		}
	}

	if err := ctx.Err(); err != nil {
		logger.Debug("navigation cancelled", "error", err)
		return err
	}

	if route.Title != "" {
		r.env.SetTitle(route.Title)
	}

	r.transitionFor(route, nav.skipTransition, logger).apply(ctx, func() {
		r.commit(nav)
		committed = true
	})

	span.AddEvent("vroute.committed")
	logger.Debug("route committed", "duration", time.Since(start))
	return nil
}

// runPlugin calls one hook in its own span. A panicking hook counts as a
// failed one.
func (r *Router) runPlugin(ctx context.Context, p Plugin, route *Route) (err error) {
	ctx, span := r.tracer.Start(ctx, "vroute.plugin",
		trace.WithAttributes(attribute.String("vroute.plugin", pluginName(p))),
	)
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("plugin panicked: %v", rec)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	return p.BeforeNavigation(ctx, route)
}
