package navrouter

import (
	"sync"

	"github.com/vango-dev/vroute/pkg/pattern"
)

// Trigger identifies what started a navigation-handling sequence.
type Trigger string

const (
	TriggerInit      Trigger = "init"
	TriggerIntercept Trigger = "intercept"
	TriggerPopState  Trigger = "popstate"
)

// RouteChangedEvent is delivered after every committed route change.
type RouteChangedEvent struct {
	Route   *Route
	Params  pattern.Params
	Trigger Trigger
}

// ErrorEvent is delivered once per failed plugin hook.
type ErrorEvent struct {
	Err    error
	Plugin Plugin
	Route  *Route
}

// listeners is an ordered set of callbacks. Emit delivers synchronously in
// registration order to a snapshot taken at emit time.
type listeners[E any] struct {
	mu      sync.Mutex
	nextID  uint64
	entries []listenerEntry[E]
}

type listenerEntry[E any] struct {
	id uint64
	fn func(E)
}

func (l *listeners[E]) add(fn func(E)) func() {
	l.mu.Lock()
	l.nextID++
	id := l.nextID
	l.entries = append(l.entries, listenerEntry[E]{id: id, fn: fn})
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { l.remove(id) })
	}
}

func (l *listeners[E]) remove(id uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, e := range l.entries {
		if e.id == id {
			l.entries = append(l.entries[:i:i], l.entries[i+1:]...)
			return
		}
	}
}

func (l *listeners[E]) emit(event E) {
	l.mu.Lock()
	snapshot := make([]listenerEntry[E], len(l.entries))
	copy(snapshot, l.entries)
	l.mu.Unlock()

	for _, e := range snapshot {
		e.fn(event)
	}
}

// OnRouteChanged registers fn to run after every committed route change,
// including the initial one during Init. It returns a function that
// removes the listener.
func (r *Router) OnRouteChanged(fn func(RouteChangedEvent)) (unsubscribe func()) {
	return r.routeChanged.add(fn)
}

// OnError registers fn to run once per failed plugin hook. It returns a
// function that removes the listener.
func (r *Router) OnError(fn func(ErrorEvent)) (unsubscribe func()) {
	return r.errors.add(fn)
}
