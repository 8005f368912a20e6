package navrouter

import (
	"context"
	"net/url"

	vrerrors "github.com/vango-dev/vroute/internal/errors"
)

// navigateOptions configures a programmatic navigation.
type navigateOptions struct {
	state        any
	replace      bool
	noTransition bool
}

// NavigateOption is a functional option for Navigate.
type NavigateOption func(*navigateOptions)

// WithState attaches state to the new history entry. Read it back with
// NavigationState.
func WithState(state any) NavigateOption {
	return func(o *navigateOptions) {
		o.state = state
	}
}

// WithReplace replaces the current history entry instead of pushing.
func WithReplace() NavigateOption {
	return func(o *navigateOptions) {
		o.replace = true
	}
}

// WithoutTransition commits the route change without a view transition.
func WithoutTransition() NavigateOption {
	return func(o *navigateOptions) {
		o.noTransition = true
	}
}

// Navigate navigates to target, a path or absolute URL resolved against
// the current location. It returns once the navigation has finished, so
// when target matches a route the route-changed listeners have already run.
func (r *Router) Navigate(ctx context.Context, target string, opts ...NavigateOption) error {
	if r.env == nil {
		return ErrNilEnvironment
	}
	dest, err := r.env.Location().Parse(target)
	if err != nil {
		return vrerrors.New("R003").
			WithDetailf("invalid navigation target %q", target).
			Wrap(err)
	}
	return r.NavigateURL(ctx, dest, opts...)
}

// NavigateURL is like Navigate for an already parsed URL. A relative URL
// is resolved against the current location.
func (r *Router) NavigateURL(ctx context.Context, dest *url.URL, opts ...NavigateOption) error {
	if dest == nil {
		return vrerrors.New("R003").WithDetail("nil navigation target")
	}

	r.mu.RLock()
	initialized, closed := r.initialized, r.closed
	r.mu.RUnlock()
	switch {
	case closed:
		return ErrClosed
	case !initialized:
		return ErrNotInitialized
	}

	if !dest.IsAbs() {
		dest = r.env.Location().ResolveReference(dest)
	}

	var o navigateOptions
	for _, opt := range opts {
		opt(&o)
	}

	req := NavigateRequest{
		History: HistoryPush,
		Info:    NavigationInfo{Transition: !o.noTransition},
		State:   o.state,
	}
	if o.replace {
		req.History = HistoryReplace
	}

	finished := r.env.Navigate(ctx, dest, req)
	select {
	case err := <-finished:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NavigationState returns the raw state of the current history entry.
func (r *Router) NavigationState() any {
	if r.env == nil {
		return nil
	}
	return r.env.CurrentEntryState()
}

// NavigationState returns the current history entry's state as a T.
// It reports false when no state was set or the state is not a T.
func NavigationState[T any](r *Router) (T, bool) {
	v, ok := r.NavigationState().(T)
	return v, ok
}
