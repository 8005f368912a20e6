package navrouter

import (
	"context"
	"log/slog"
	"sync"
)

// transitionStrategy applies a state commit, animated or not.
type transitionStrategy interface {
	apply(ctx context.Context, commit func())
}

// directTransition commits synchronously.
type directTransition struct{}

func (directTransition) apply(_ context.Context, commit func()) {
	commit()
}

// viewTransition commits inside an environment view transition. The commit
// runs exactly once whether or not the transition succeeds.
type viewTransition struct {
	transitioner Transitioner
	logger       *slog.Logger
	onFallback   func()
}

func (v viewTransition) apply(ctx context.Context, commit func()) {
	var once sync.Once
	update := func() { once.Do(commit) }

	t, err := v.transitioner.StartTransition(update)
	if err != nil {
		v.logger.Warn("view transition failed to start, committing directly", "error", err)
		v.onFallback()
		update()
		return
	}

	if err := t.Finished(ctx); err != nil {
		v.logger.Warn("view transition failed, committing directly", "error", err)
		v.onFallback()
	}
	update()
}

// transitionFor probes the environment once per sequence.
func (r *Router) transitionFor(route *Route, skip bool, logger *slog.Logger) transitionStrategy {
	if skip {
		return directTransition{}
	}
	provider, ok := r.env.(TransitionProvider)
	if !ok {
		return directTransition{}
	}
	t := provider.ViewTransitions()
	if t == nil {
		return directTransition{}
	}
	return viewTransition{
		transitioner: t,
		logger:       logger,
		onFallback:   func() { r.recorder.TransitionFallback(route.Path) },
	}
}
