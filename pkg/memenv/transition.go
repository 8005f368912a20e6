package memenv

import (
	"context"

	"github.com/vango-dev/vroute/pkg/navrouter"
)

// ViewTransitions implements navrouter.TransitionProvider. It returns nil
// unless the browser was created with a view transition option.
func (b *Browser) ViewTransitions() navrouter.Transitioner {
	if !b.opts.viewTransitions {
		return nil
	}
	return transitioner{browser: b}
}

type transitioner struct {
	browser *Browser
}

// StartTransition runs update immediately; the returned transition is
// already finished.
func (t transitioner) StartTransition(update func()) (navrouter.Transition, error) {
	if err := t.browser.opts.transitionStartErr; err != nil {
		return nil, err
	}

	t.browser.mu.Lock()
	t.browser.transitions++
	t.browser.mu.Unlock()

	update()
	return finishedTransition{err: t.browser.opts.transitionFinishErr}, nil
}

type finishedTransition struct {
	err error
}

func (f finishedTransition) Finished(ctx context.Context) error {
	if f.err != nil {
		return f.err
	}
	return ctx.Err()
}

var (
	_ navrouter.Environment        = (*Browser)(nil)
	_ navrouter.TransitionProvider = (*Browser)(nil)
)
