package navrouter

import (
	"context"
	"net/url"
)

// NavigationType describes how a navigation moves through history.
type NavigationType string

const (
	NavigationPush     NavigationType = "push"
	NavigationReplace  NavigationType = "replace"
	NavigationReload   NavigationType = "reload"
	NavigationTraverse NavigationType = "traverse"
)

// HistoryMode selects how a programmatic navigation updates history.
type HistoryMode string

const (
	HistoryAuto    HistoryMode = "auto"
	HistoryPush    HistoryMode = "push"
	HistoryReplace HistoryMode = "replace"
)

// FocusReset controls focus handling after an intercepted navigation.
type FocusReset string

const (
	FocusResetAfterTransition FocusReset = "after-transition"
	FocusResetManual          FocusReset = "manual"
)

// ScrollBehavior controls scroll restoration after an intercepted navigation.
type ScrollBehavior string

const (
	ScrollAfterTransition ScrollBehavior = "after-transition"
	ScrollManual          ScrollBehavior = "manual"
)

// NavigateEvent is one attempted navigation, as reported by the environment.
type NavigateEvent interface {
	// Destination is the absolute URL being navigated to.
	Destination() *url.URL

	// NavigationType reports push, replace, reload or traverse.
	NavigationType() NavigationType

	// CanIntercept is false when the environment cannot convert this
	// navigation into a same-document one.
	CanIntercept() bool

	// IsDownload reports a navigation triggered by a download link.
	IsDownload() bool

	// IsFormSubmission reports a navigation carrying form data.
	IsFormSubmission() bool

	// Info is the caller-supplied info of a programmatic navigation, if any.
	Info() any

	// Intercept claims the navigation. The environment commits the new URL
	// and runs opts.Handler; the navigation finishes when the handler returns.
	Intercept(opts InterceptOptions)
}

// InterceptOptions configures an intercepted navigation.
type InterceptOptions struct {
	FocusReset FocusReset
	Scroll     ScrollBehavior
	Handler    func(ctx context.Context) error
}

// NavigateRequest configures a programmatic navigation.
type NavigateRequest struct {
	History HistoryMode
	Info    any
	State   any
}

// NavigationInfo is the info payload the router attaches to its own
// programmatic navigations.
type NavigationInfo struct {
	// Transition is the caller's intent to animate the route change.
	Transition bool
}

// Locator exposes the current document location.
type Locator interface {
	Location() *url.URL
}

// NavigationObserver reports navigation attempts.
type NavigationObserver interface {
	// OnNavigate subscribes fn and returns a function that unsubscribes it.
	OnNavigate(fn func(NavigateEvent)) (unsubscribe func())
}

// HistoryNotifier reports back/forward movement through session history.
type HistoryNotifier interface {
	// OnPopState subscribes fn and returns a function that unsubscribes it.
	OnPopState(fn func()) (unsubscribe func())
}

// Navigator starts programmatic navigations.
type Navigator interface {
	// Navigate starts a navigation to dest. The returned channel receives
	// exactly one value once the navigation has finished: nil on success or
	// the error that made it fail.
	Navigate(ctx context.Context, dest *url.URL, req NavigateRequest) (finished <-chan error)

	// CurrentEntryState returns the state of the current history entry.
	CurrentEntryState() any
}

// Document exposes the document title.
type Document interface {
	SetTitle(title string)
}

// Environment is everything a Router consumes from its host.
type Environment interface {
	Locator
	NavigationObserver
	HistoryNotifier
	Navigator
	Document
}

// Transition is a running view transition.
type Transition interface {
	// Finished blocks until the transition animation has completed.
	Finished(ctx context.Context) error
}

// Transitioner starts view transitions.
type Transitioner interface {
	// StartTransition snapshots the current view, calls update to change
	// it, and animates between the two.
	StartTransition(update func()) (Transition, error)
}

// TransitionProvider is implemented by environments that may support view
// transitions. ViewTransitions returns nil when they are unavailable.
type TransitionProvider interface {
	ViewTransitions() Transitioner
}
