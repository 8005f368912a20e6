// Package memenv is an in-memory browser implementing navrouter.Environment.
//
// It keeps a session history stack with per-entry state, dispatches navigate
// events to subscribers, commits intercepted navigations as same-document
// ones and records the rest as full document loads. Navigations are
// dispatched one at a time, like a browser's single event loop.
//
// Listener callbacks run while the browser is dispatching, so they must not
// start another navigation synchronously.
package memenv

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/vango-dev/vroute/pkg/navrouter"
)

// ErrRelativeURL is returned by New when the start URL is not absolute.
var ErrRelativeURL = errors.New("memenv: start URL must be absolute")

// Entry is one session history entry.
type Entry struct {
	Key   string
	URL   *url.URL
	State any
}

// HistoryChange describes a change of the current history entry.
type HistoryChange struct {
	URL  *url.URL
	Type navrouter.NavigationType

	// User is set for changes caused by Click, Submit, Download, Back,
	// Forward, Go and PopTo, and unset for Navigate and PushState.
	User bool
}

// Option configures a Browser.
type Option func(*options)

type options struct {
	viewTransitions     bool
	transitionStartErr  error
	transitionFinishErr error
	legacyTraversal     bool
	onTitle             func(string)
	onHistory           func(HistoryChange)
}

// WithViewTransitions makes the browser offer view transitions.
func WithViewTransitions() Option {
	return func(o *options) {
		o.viewTransitions = true
	}
}

// WithTransitionStartError makes every view transition fail to start.
// It implies WithViewTransitions.
func WithTransitionStartError(err error) Option {
	return func(o *options) {
		o.viewTransitions = true
		o.transitionStartErr = err
	}
}

// WithTransitionFinishError makes every view transition fail after its
// update callback ran. It implies WithViewTransitions.
func WithTransitionFinishError(err error) Option {
	return func(o *options) {
		o.viewTransitions = true
		o.transitionFinishErr = err
	}
}

// WithLegacyTraversal makes Back, Forward and Go skip the navigate event
// and only fire popstate, like a browser without the Navigation API.
func WithLegacyTraversal() Option {
	return func(o *options) {
		o.legacyTraversal = true
	}
}

// WithTitleHook calls fn whenever the document title is set.
func WithTitleHook(fn func(title string)) Option {
	return func(o *options) {
		o.onTitle = fn
	}
}

// WithHistoryHook calls fn whenever the current history entry changes.
func WithHistoryHook(fn func(HistoryChange)) Option {
	return func(o *options) {
		o.onHistory = fn
	}
}

// Browser is an in-memory browsing context.
type Browser struct {
	opts options

	// dispatch serializes navigations.
	dispatch sync.Mutex

	mu            sync.Mutex
	entries       []*Entry
	index         int
	nextKey       int
	title         string
	documentLoads []*url.URL
	transitions   int
	lastIntercept *navrouter.InterceptOptions

	navigateListeners callbacks[navrouter.NavigateEvent]
	popStateListeners callbacks[struct{}]
}

// New creates a browser whose only history entry is startURL.
func New(startURL string, opts ...Option) (*Browser, error) {
	u, err := url.Parse(startURL)
	if err != nil {
		return nil, fmt.Errorf("memenv: parse start URL: %w", err)
	}
	if !u.IsAbs() {
		return nil, ErrRelativeURL
	}

	b := &Browser{}
	for _, opt := range opts {
		opt(&b.opts)
	}
	b.entries = []*Entry{b.newEntry(u, nil)}
	return b, nil
}

// MustNew is like New but panics on error.
func MustNew(startURL string, opts ...Option) *Browser {
	b, err := New(startURL, opts...)
	if err != nil {
		panic(err)
	}
	return b
}

// newEntry must be called with b.mu held or before b is shared.
func (b *Browser) newEntry(u *url.URL, state any) *Entry {
	b.nextKey++
	return &Entry{Key: strconv.Itoa(b.nextKey), URL: cloneURL(u), State: state}
}

// Location implements navrouter.Locator.
func (b *Browser) Location() *url.URL {
	b.mu.Lock()
	defer b.mu.Unlock()
	return cloneURL(b.entries[b.index].URL)
}

// OnNavigate implements navrouter.NavigationObserver.
func (b *Browser) OnNavigate(fn func(navrouter.NavigateEvent)) func() {
	return b.navigateListeners.add(fn)
}

// OnPopState implements navrouter.HistoryNotifier.
func (b *Browser) OnPopState(fn func()) func() {
	return b.popStateListeners.add(func(struct{}) { fn() })
}

// CurrentEntryState implements navrouter.Navigator.
func (b *Browser) CurrentEntryState() any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.entries[b.index].State
}

// SetTitle implements navrouter.Document.
func (b *Browser) SetTitle(title string) {
	b.mu.Lock()
	b.title = title
	hook := b.opts.onTitle
	b.mu.Unlock()

	if hook != nil {
		hook(title)
	}
}

// Navigate implements navrouter.Navigator. The navigation runs to
// completion before Navigate returns; the channel is already filled.
func (b *Browser) Navigate(ctx context.Context, dest *url.URL, req navrouter.NavigateRequest) <-chan error {
	finished := make(chan error, 1)

	typ := navrouter.NavigationPush
	switch req.History {
	case navrouter.HistoryReplace:
		typ = navrouter.NavigationReplace
	case navrouter.HistoryAuto, "":
		if dest.String() == b.Location().String() {
			typ = navrouter.NavigationReplace
		}
	}

	_, err := b.navigate(ctx, request{dest: dest, typ: typ, info: req.Info, state: req.State})
	finished <- err
	return finished
}

// Click follows a same-window link to href, resolved against the current
// location. It reports whether a subscriber intercepted the navigation.
func (b *Browser) Click(ctx context.Context, href string) (bool, error) {
	dest, err := b.resolve(href)
	if err != nil {
		return false, err
	}
	return b.navigate(ctx, request{dest: dest, typ: navrouter.NavigationPush, user: true})
}

// Submit submits a form whose action is href.
func (b *Browser) Submit(ctx context.Context, href string) (bool, error) {
	dest, err := b.resolve(href)
	if err != nil {
		return false, err
	}
	return b.navigate(ctx, request{dest: dest, typ: navrouter.NavigationPush, formData: true, user: true})
}

// Download follows a download link to href.
func (b *Browser) Download(ctx context.Context, href string) (bool, error) {
	dest, err := b.resolve(href)
	if err != nil {
		return false, err
	}
	return b.navigate(ctx, request{dest: dest, typ: navrouter.NavigationPush, download: true, user: true})
}

// PushState adds a history entry without dispatching any event, like
// history.pushState.
func (b *Browser) PushState(href string, state any) error {
	dest, err := b.resolve(href)
	if err != nil {
		return err
	}

	b.dispatch.Lock()
	defer b.dispatch.Unlock()
	b.commit(request{dest: dest, typ: navrouter.NavigationPush, state: state})
	return nil
}

// Back traverses one entry back.
func (b *Browser) Back(ctx context.Context) error {
	return b.Go(ctx, -1)
}

// Forward traverses one entry forward.
func (b *Browser) Forward(ctx context.Context) error {
	return b.Go(ctx, 1)
}

// Go traverses delta entries. Out of range traversals do nothing.
func (b *Browser) Go(ctx context.Context, delta int) error {
	b.dispatch.Lock()
	defer b.dispatch.Unlock()

	b.mu.Lock()
	target := b.index + delta
	if delta == 0 || target < 0 || target >= len(b.entries) {
		b.mu.Unlock()
		return nil
	}
	dest := cloneURL(b.entries[target].URL)
	b.mu.Unlock()

	if b.opts.legacyTraversal {
		b.moveTo(target)
		b.popStateListeners.emit(struct{}{})
		return nil
	}

	ev := b.dispatchEvent(request{dest: dest, typ: navrouter.NavigationTraverse, user: true})
	b.moveTo(target)

	handlers := ev.interceptHandlers()
	if len(handlers) == 0 {
		b.recordDocumentLoad(dest)
		return nil
	}
	err := runHandlers(ctx, handlers)
	b.popStateListeners.emit(struct{}{})
	return err
}

// PopTo makes the entry for href current and fires popstate without a
// navigate event. An unknown href replaces the current entry.
func (b *Browser) PopTo(href string) error {
	dest, err := b.resolve(href)
	if err != nil {
		return err
	}

	b.dispatch.Lock()
	defer b.dispatch.Unlock()

	b.mu.Lock()
	target := -1
	for i, e := range b.entries {
		if e.URL.String() == dest.String() {
			target = i
			if i == b.index {
				break
			}
		}
	}
	b.mu.Unlock()

	if target >= 0 {
		b.moveTo(target)
	} else {
		b.commit(request{dest: dest, typ: navrouter.NavigationReplace, user: true})
	}
	b.popStateListeners.emit(struct{}{})
	return nil
}

// request is one navigation attempt.
type request struct {
	dest     *url.URL
	typ      navrouter.NavigationType
	download bool
	formData bool
	info     any
	state    any
	user     bool
}

// navigate dispatches the navigate event for req and either runs the
// intercept handlers or records a document load.
func (b *Browser) navigate(ctx context.Context, req request) (bool, error) {
	b.dispatch.Lock()
	defer b.dispatch.Unlock()

	ev := b.dispatchEvent(req)
	b.commit(req)

	handlers := ev.interceptHandlers()
	if len(handlers) == 0 {
		b.recordDocumentLoad(req.dest)
		return false, nil
	}
	return true, runHandlers(ctx, handlers)
}

func (b *Browser) dispatchEvent(req request) *navigateEvent {
	ev := &navigateEvent{
		dest:         cloneURL(req.dest),
		typ:          req.typ,
		canIntercept: sameOrigin(req.dest, b.Location()),
		download:     req.download,
		formData:     req.formData,
		info:         req.info,
		browser:      b,
	}
	b.navigateListeners.emit(ev)
	ev.close()
	return ev
}

func runHandlers(ctx context.Context, handlers []func(context.Context) error) error {
	for _, h := range handlers {
		if err := h(ctx); err != nil {
			return err
		}
	}
	return nil
}

// commit applies a push or replace to the history stack.
func (b *Browser) commit(req request) {
	b.mu.Lock()
	switch req.typ {
	case navrouter.NavigationReplace, navrouter.NavigationReload:
		b.entries[b.index] = b.newEntry(req.dest, req.state)
	default:
		b.entries = append(b.entries[:b.index+1], b.newEntry(req.dest, req.state))
		b.index = len(b.entries) - 1
	}
	hook := b.opts.onHistory
	b.mu.Unlock()

	if hook != nil {
		hook(HistoryChange{URL: cloneURL(req.dest), Type: req.typ, User: req.user})
	}
}

func (b *Browser) moveTo(index int) {
	b.mu.Lock()
	b.index = index
	u := cloneURL(b.entries[index].URL)
	hook := b.opts.onHistory
	b.mu.Unlock()

	if hook != nil {
		hook(HistoryChange{URL: u, Type: navrouter.NavigationTraverse, User: true})
	}
}

func (b *Browser) recordDocumentLoad(u *url.URL) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.documentLoads = append(b.documentLoads, cloneURL(u))
}

func (b *Browser) resolve(href string) (*url.URL, error) {
	u, err := b.Location().Parse(href)
	if err != nil {
		return nil, fmt.Errorf("memenv: resolve %q: %w", href, err)
	}
	return u, nil
}

// Title returns the document title.
func (b *Browser) Title() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.title
}

// Entries returns a copy of the session history.
func (b *Browser) Entries() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Entry, len(b.entries))
	for i, e := range b.entries {
		out[i] = Entry{Key: e.Key, URL: cloneURL(e.URL), State: e.State}
	}
	return out
}

// Index returns the position of the current entry in Entries.
func (b *Browser) Index() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.index
}

// DocumentLoads returns the URLs of navigations nobody intercepted.
func (b *Browser) DocumentLoads() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.documentLoads))
	for i, u := range b.documentLoads {
		out[i] = u.String()
	}
	return out
}

// TransitionCount returns how many view transitions have started.
func (b *Browser) TransitionCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.transitions
}

// LastIntercept returns the options of the most recent interception.
func (b *Browser) LastIntercept() (navrouter.InterceptOptions, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lastIntercept == nil {
		return navrouter.InterceptOptions{}, false
	}
	return *b.lastIntercept, true
}

// ListenerCounts returns the number of navigate and popstate subscribers.
func (b *Browser) ListenerCounts() (navigate, popState int) {
	return b.navigateListeners.len(), b.popStateListeners.len()
}

func sameOrigin(a, b *url.URL) bool {
	return strings.EqualFold(a.Scheme, b.Scheme) && strings.EqualFold(a.Host, b.Host)
}

func cloneURL(u *url.URL) *url.URL {
	if u == nil {
		return nil
	}
	c := *u
	if u.User != nil {
		user := *u.User
		c.User = &user
	}
	return &c
}
