package memenv

import (
	"context"
	"net/url"
	"sync"

	"github.com/vango-dev/vroute/pkg/navrouter"
)

// navigateEvent implements navrouter.NavigateEvent.
type navigateEvent struct {
	dest         *url.URL
	typ          navrouter.NavigationType
	canIntercept bool
	download     bool
	formData     bool
	info         any
	browser      *Browser

	mu       sync.Mutex
	closed   bool
	handlers []func(context.Context) error
}

func (e *navigateEvent) Destination() *url.URL                    { return cloneURL(e.dest) }
func (e *navigateEvent) NavigationType() navrouter.NavigationType { return e.typ }
func (e *navigateEvent) CanIntercept() bool                       { return e.canIntercept }
func (e *navigateEvent) IsDownload() bool                         { return e.download }
func (e *navigateEvent) IsFormSubmission() bool                   { return e.formData }
func (e *navigateEvent) Info() any                                { return e.info }

// Intercept records a handler. Calls on an event that cannot be
// intercepted, or after dispatch has finished, are ignored.
func (e *navigateEvent) Intercept(opts navrouter.InterceptOptions) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.canIntercept || e.closed {
		return
	}
	// An intercept without handler still converts the navigation.
	handler := opts.Handler
	if handler == nil {
		handler = func(context.Context) error { return nil }
	}
	e.handlers = append(e.handlers, handler)

	e.browser.mu.Lock()
	o := opts
	e.browser.lastIntercept = &o
	e.browser.mu.Unlock()
}

func (e *navigateEvent) close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
}

func (e *navigateEvent) interceptHandlers() []func(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]func(context.Context) error(nil), e.handlers...)
}

// callbacks is an ordered, concurrency-safe subscriber list.
type callbacks[E any] struct {
	mu     sync.Mutex
	nextID int
	fns    []callback[E]
}

type callback[E any] struct {
	id int
	fn func(E)
}

func (c *callbacks[E]) add(fn func(E)) func() {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.fns = append(c.fns, callback[E]{id: id, fn: fn})
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, cb := range c.fns {
			if cb.id == id {
				c.fns = append(c.fns[:i:i], c.fns[i+1:]...)
				return
			}
		}
	}
}

func (c *callbacks[E]) emit(event E) {
	c.mu.Lock()
	fns := append([]callback[E](nil), c.fns...)
	c.mu.Unlock()

	for _, cb := range fns {
		cb.fn(event)
	}
}

func (c *callbacks[E]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.fns)
}
