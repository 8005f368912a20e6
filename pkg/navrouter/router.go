package navrouter

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	vrerrors "github.com/vango-dev/vroute/internal/errors"
	"github.com/vango-dev/vroute/pkg/pattern"
)

// TracerName is the instrumentation name used for the default tracer.
const TracerName = "github.com/vango-dev/vroute/pkg/navrouter"

// Router matches paths to routes and drives navigations for one Environment.
type Router struct {
	env        Environment
	routes     []Route
	plugins    []Plugin
	logger     *slog.Logger
	recorder   Recorder
	tracer     trace.Tracer
	failClosed bool

	initOnce sync.Once
	initErr  error

	mu            sync.RWMutex
	table         *pattern.Table
	current       *Route
	currentParams pattern.Params
	initialized   bool
	closed        bool
	unsubscribe   []func()
	baseCtx       context.Context
	cancel        context.CancelFunc

	// seq holds a token while a navigation-handling sequence runs.
	seq chan struct{}

	routeChanged listeners[RouteChangedEvent]
	errors       listeners[ErrorEvent]
}

// New creates a router for env. It only stores its configuration: nothing
// is compiled and no listener is registered until Init.
func New(env Environment, routes []Route, opts ...Option) *Router {
	r := &Router{
		env:      env,
		routes:   append([]Route(nil), routes...),
		logger:   slog.Default(),
		recorder: nopRecorder{},
		tracer:   otel.Tracer(TracerName),
		seq:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Init compiles the route table, subscribes to the environment and handles
// the current location. Only the first call does anything; later calls
// return the first call's result.
func (r *Router) Init(ctx context.Context) error {
	r.initOnce.Do(func() {
		r.initErr = r.init(ctx)
	})
	return r.initErr
}

func (r *Router) init(ctx context.Context) error {
	if r.env == nil {
		return ErrNilEnvironment
	}

	paths := make([]string, len(r.routes))
	for i, route := range r.routes {
		if route.Render == nil {
			return vrerrors.New("R002").
				WithDetailf("route %q has no Render function", route.Path)
		}
		paths[i] = route.Path
	}

	table, err := pattern.NewTable(paths)
	if err != nil {
		return vrerrors.New("R002").
			WithSuggestion("Use /static, /:param, /:param? (last) or /*rest (last) segments").
			Wrap(err)
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	r.table = table
	r.baseCtx, r.cancel = context.WithCancel(context.Background())
	r.mu.Unlock()

	initial, params, matched := r.lookup(r.env.Location().EscapedPath())

	unsubNavigate := r.env.OnNavigate(r.onNavigate)
	unsubPopState := r.env.OnPopState(r.onPopState)

	r.mu.Lock()
	r.unsubscribe = append(r.unsubscribe, unsubNavigate, unsubPopState)
	r.initialized = true
	r.mu.Unlock()

	r.logger.Debug("router initialized", "routes", len(r.routes), "matched", matched)

	if !matched {
		return nil
	}
	return r.handleNavigation(ctx, navigation{
		route:   initial,
		params:  params,
		trigger: TriggerInit,
	})
}

// Close releases the environment subscriptions. It is safe to call more
// than once; navigations observed afterwards are left to the environment.
func (r *Router) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	unsubscribe := r.unsubscribe
	r.unsubscribe = nil
	cancel := r.cancel
	r.mu.Unlock()

	for _, fn := range unsubscribe {
		fn()
	}
	if cancel != nil {
		cancel()
	}
	return nil
}

// lookup returns the first route whose pattern matches pathname.
func (r *Router) lookup(pathname string) (*Route, pattern.Params, bool) {
	r.mu.RLock()
	table := r.table
	r.mu.RUnlock()

	if table == nil {
		return nil, nil, false
	}
	i, params, ok := table.Lookup(pathname)
	if !ok {
		return nil, nil, false
	}
	return &r.routes[i], params, true
}

// MatchRoute returns the first route, in declaration order, whose pattern
// matches pathname. It never matches before Init.
func (r *Router) MatchRoute(pathname string) (*Route, bool) {
	route, _, ok := r.lookup(pathname)
	return route, ok
}

// Match is like MatchRoute but also returns the captured params.
func (r *Router) Match(pathname string) (*Match, bool) {
	route, params, ok := r.lookup(pathname)
	if !ok {
		return nil, false
	}
	return &Match{Route: route, Params: params}, true
}

// CurrentRoute returns the committed route, or nil when the current
// location matches none. The returned route must not be modified.
func (r *Router) CurrentRoute() *Route {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// CurrentMatch returns the committed route and the params it was matched
// with, or nil.
func (r *Router) CurrentMatch() *Match {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.current == nil {
		return nil
	}
	return &Match{Route: r.current, Params: r.currentParams}
}

// Render returns the current route's view, or nil when no route is current.
func (r *Router) Render() any {
	route := r.CurrentRoute()
	if route == nil {
		return nil
	}
	return route.Render()
}

// Routes returns a copy of the declared routes.
func (r *Router) Routes() []Route {
	return append([]Route(nil), r.routes...)
}

// onNavigate applies the interception policy to one navigate event.
func (r *Router) onNavigate(ev NavigateEvent) {
	dest := ev.Destination()

	decision := DecisionIntercepted
	switch {
	case dest == nil || !sameOrigin(dest, r.env.Location()):
		decision = DecisionCrossOrigin
	case ev.IsDownload():
		decision = DecisionDownload
	case ev.IsFormSubmission():
		decision = DecisionFormSubmission
	case !ev.CanIntercept():
		decision = DecisionNotInterceptable
	}

	var (
		route  *Route
		params pattern.Params
	)
	if decision == DecisionIntercepted {
		var ok bool
		route, params, ok = r.lookup(dest.EscapedPath())
		if !ok {
			decision = DecisionUnmatched
		}
	}

	r.recorder.InterceptDecision(decision)
	if decision != DecisionIntercepted {
		r.logger.Debug("navigation left to environment", "decision", decision, "destination", urlString(dest))
		return
	}

	nav := navigation{
		route:          route,
		params:         params,
		trigger:        TriggerIntercept,
		skipTransition: skipTransition(ev.Info()),
	}
	ev.Intercept(InterceptOptions{
		FocusReset: FocusResetManual,
		Scroll:     ScrollManual,
		Handler: func(ctx context.Context) error {
			return r.handleNavigation(ctx, nav)
		},
	})
}

// onPopState handles history movement the navigate event did not cover.
func (r *Router) onPopState() {
	route, params, ok := r.lookup(r.env.Location().EscapedPath())
	if !ok {
		return
	}

	ctx := r.backgroundContext()
	if err := r.acquire(ctx); err != nil {
		return
	}
	defer r.release()

	if current := r.CurrentRoute(); current != nil && current.Path == route.Path {
		return
	}
	if err := r.runSequence(ctx, navigation{route: route, params: params, trigger: TriggerPopState}); err != nil {
		r.logger.Warn("popstate navigation failed", "route", route.Path, "error", err)
	}
}

func (r *Router) backgroundContext() context.Context {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.baseCtx == nil {
		return context.Background()
	}
	return r.baseCtx
}

// acquire waits for the sequence token.
func (r *Router) acquire(ctx context.Context) error {
	select {
	case r.seq <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Router) release() {
	<-r.seq
}

// commit makes route current and notifies listeners.
func (r *Router) commit(nav navigation) {
	r.mu.Lock()
	r.current = nav.route
	r.currentParams = nav.params
	r.mu.Unlock()

	r.routeChanged.emit(RouteChangedEvent{
		Route:   nav.route,
		Params:  nav.params,
		Trigger: nav.trigger,
	})
}

// skipTransition reports whether a navigation's info opts out of a view
// transition. Navigations without router info keep the transition.
func skipTransition(info any) bool {
	switch v := info.(type) {
	case NavigationInfo:
		return !v.Transition
	case *NavigationInfo:
		return v != nil && !v.Transition
	}
	return false
}

func sameOrigin(a, b *url.URL) bool {
	if a == nil || b == nil {
		return false
	}
	return strings.EqualFold(a.Scheme, b.Scheme) && strings.EqualFold(a.Host, b.Host)
}

func urlString(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.String()
}
