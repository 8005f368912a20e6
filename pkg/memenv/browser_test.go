package memenv

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/vango-dev/vroute/pkg/navrouter"
)

func TestNewRequiresAbsoluteURL(t *testing.T) {
	if _, err := New("/relative"); !errors.Is(err, ErrRelativeURL) {
		t.Errorf("New(/relative) error = %v, want ErrRelativeURL", err)
	}
	if _, err := New("http://[::1"); err == nil {
		t.Error("New() should fail for a malformed URL")
	}

	b := MustNew("https://app.test/start")
	if got := b.Location().String(); got != "https://app.test/start" {
		t.Errorf("Location() = %q", got)
	}
	if len(b.Entries()) != 1 || b.Index() != 0 {
		t.Errorf("Entries() = %v, Index() = %d", b.Entries(), b.Index())
	}
}

func TestLocationIsACopy(t *testing.T) {
	b := MustNew("https://app.test/a")
	b.Location().Path = "/mutated"
	if b.Location().Path != "/a" {
		t.Error("mutating Location() changed the browser")
	}
}

func TestUninterceptedNavigationLoadsDocument(t *testing.T) {
	b := MustNew("https://app.test/")

	intercepted, err := b.Click(context.Background(), "/next")
	if err != nil || intercepted {
		t.Fatalf("Click() = %v, %v; want false, nil", intercepted, err)
	}
	if loads := b.DocumentLoads(); len(loads) != 1 || loads[0] != "https://app.test/next" {
		t.Errorf("DocumentLoads() = %v", loads)
	}
	if b.Location().Path != "/next" || len(b.Entries()) != 2 {
		t.Errorf("history not pushed: %v", b.Entries())
	}
}

func TestInterceptRunsHandler(t *testing.T) {
	b := MustNew("https://app.test/")
	ran := false

	var seen navrouter.NavigateEvent
	b.OnNavigate(func(ev navrouter.NavigateEvent) {
		seen = ev
		ev.Intercept(navrouter.InterceptOptions{
			FocusReset: navrouter.FocusResetManual,
			Handler: func(context.Context) error {
				ran = true
				return nil
			},
		})
	})

	intercepted, err := b.Click(context.Background(), "/next?q=1")
	if err != nil || !intercepted {
		t.Fatalf("Click() = %v, %v; want true, nil", intercepted, err)
	}
	if !ran {
		t.Error("intercept handler did not run")
	}
	if len(b.DocumentLoads()) != 0 {
		t.Errorf("DocumentLoads() = %v, want none", b.DocumentLoads())
	}
	if seen.Destination().RawQuery != "q=1" || seen.NavigationType() != navrouter.NavigationPush {
		t.Errorf("event = %v %v", seen.Destination(), seen.NavigationType())
	}
	if opts, ok := b.LastIntercept(); !ok || opts.FocusReset != navrouter.FocusResetManual {
		t.Errorf("LastIntercept() = %+v, %v", opts, ok)
	}

	// Intercepting after dispatch has no effect.
	seen.Intercept(navrouter.InterceptOptions{Handler: func(context.Context) error {
		t.Error("late handler ran")
		return nil
	}})
}

func TestHandlerErrorIsReturned(t *testing.T) {
	b := MustNew("https://app.test/")
	boom := errors.New("boom")
	b.OnNavigate(func(ev navrouter.NavigateEvent) {
		ev.Intercept(navrouter.InterceptOptions{Handler: func(context.Context) error { return boom }})
	})

	finished := b.Navigate(context.Background(), b.Location().ResolveReference(mustURL(t, "/x")), navrouter.NavigateRequest{})
	if err := <-finished; !errors.Is(err, boom) {
		t.Errorf("finished = %v, want boom", err)
	}
}

func TestCrossOriginCannotBeIntercepted(t *testing.T) {
	b := MustNew("https://app.test/")
	b.OnNavigate(func(ev navrouter.NavigateEvent) {
		if ev.CanIntercept() {
			t.Error("cross-origin event reports CanIntercept")
		}
		ev.Intercept(navrouter.InterceptOptions{})
	})

	intercepted, _ := b.Click(context.Background(), "https://other.test/")
	if intercepted {
		t.Error("cross-origin navigation was intercepted")
	}
}

func TestEventFlags(t *testing.T) {
	ctx := context.Background()
	b := MustNew("https://app.test/")

	var forms, downloads int
	b.OnNavigate(func(ev navrouter.NavigateEvent) {
		if ev.IsFormSubmission() {
			forms++
		}
		if ev.IsDownload() {
			downloads++
		}
	})

	b.Submit(ctx, "/form")
	b.Download(ctx, "/file.zip")
	b.Click(ctx, "/plain")

	if forms != 1 || downloads != 1 {
		t.Errorf("forms = %d, downloads = %d; want 1, 1", forms, downloads)
	}
}

func TestNavigateHistoryModes(t *testing.T) {
	ctx := context.Background()
	b := MustNew("https://app.test/")

	tests := []struct {
		target  string
		mode    navrouter.HistoryMode
		entries int
	}{
		{"/a", navrouter.HistoryPush, 2},
		{"/b", navrouter.HistoryReplace, 2},
		{"/b", navrouter.HistoryAuto, 2},
		{"/c", navrouter.HistoryAuto, 3},
	}

	for _, tt := range tests {
		dest := b.Location().ResolveReference(mustURL(t, tt.target))
		if err := <-b.Navigate(ctx, dest, navrouter.NavigateRequest{History: tt.mode, State: tt.target}); err != nil {
			t.Fatal(err)
		}
		if n := len(b.Entries()); n != tt.entries {
			t.Errorf("%s %s: len(Entries()) = %d, want %d", tt.mode, tt.target, n, tt.entries)
		}
		if b.CurrentEntryState() != tt.target {
			t.Errorf("CurrentEntryState() = %v, want %v", b.CurrentEntryState(), tt.target)
		}
	}
}

func TestPushTruncatesForwardHistory(t *testing.T) {
	ctx := context.Background()
	b := MustNew("https://app.test/")
	b.PushState("/a", nil)
	b.PushState("/b", nil)

	if err := b.Back(ctx); err != nil {
		t.Fatal(err)
	}
	b.Click(ctx, "/c")

	entries := b.Entries()
	if len(entries) != 3 || entries[2].URL.Path != "/c" {
		t.Errorf("Entries() = %v", entries)
	}
}

func TestTraversal(t *testing.T) {
	ctx := context.Background()
	b := MustNew("https://app.test/")
	b.PushState("/a", "state-a")
	b.PushState("/b", nil)

	var types []navrouter.NavigationType
	b.OnNavigate(func(ev navrouter.NavigateEvent) {
		types = append(types, ev.NavigationType())
		ev.Intercept(navrouter.InterceptOptions{})
	})
	pops := 0
	b.OnPopState(func() { pops++ })

	if err := b.Back(ctx); err != nil {
		t.Fatal(err)
	}
	if b.Location().Path != "/a" || b.CurrentEntryState() != "state-a" {
		t.Errorf("after Back: %v %v", b.Location(), b.CurrentEntryState())
	}
	if err := b.Go(ctx, 5); err != nil {
		t.Fatal(err)
	}
	if b.Location().Path != "/a" {
		t.Error("out of range Go moved the history")
	}
	if err := b.Forward(ctx); err != nil {
		t.Fatal(err)
	}

	if len(types) != 2 || types[0] != navrouter.NavigationTraverse {
		t.Errorf("event types = %v", types)
	}
	if pops != 2 {
		t.Errorf("popstate fired %d times, want 2", pops)
	}
}

func TestLegacyTraversalOnlyFiresPopState(t *testing.T) {
	b := MustNew("https://app.test/", WithLegacyTraversal())
	b.PushState("/a", nil)

	events, pops := 0, 0
	b.OnNavigate(func(navrouter.NavigateEvent) { events++ })
	b.OnPopState(func() { pops++ })

	if err := b.Back(context.Background()); err != nil {
		t.Fatal(err)
	}
	if events != 0 || pops != 1 {
		t.Errorf("events = %d, pops = %d; want 0, 1", events, pops)
	}
}

func TestPopTo(t *testing.T) {
	b := MustNew("https://app.test/")
	b.PushState("/a", nil)
	pops := 0
	b.OnPopState(func() { pops++ })

	if err := b.PopTo("/"); err != nil {
		t.Fatal(err)
	}
	if b.Index() != 0 {
		t.Errorf("Index() = %d, want 0", b.Index())
	}
	if err := b.PopTo("/unknown"); err != nil {
		t.Fatal(err)
	}
	if b.Location().Path != "/unknown" || len(b.Entries()) != 2 {
		t.Errorf("PopTo(unknown) = %v, %d entries", b.Location(), len(b.Entries()))
	}
	if pops != 2 {
		t.Errorf("popstate fired %d times, want 2", pops)
	}
}

func TestHooks(t *testing.T) {
	var titles []string
	var changes []HistoryChange
	b := MustNew("https://app.test/",
		WithTitleHook(func(title string) { titles = append(titles, title) }),
		WithHistoryHook(func(c HistoryChange) { changes = append(changes, c) }),
	)

	b.SetTitle("Home")
	b.PushState("/a", nil)
	b.Back(context.Background())

	if len(titles) != 1 || titles[0] != "Home" || b.Title() != "Home" {
		t.Errorf("titles = %v", titles)
	}
	if len(changes) != 2 || changes[0].Type != navrouter.NavigationPush || changes[1].Type != navrouter.NavigationTraverse {
		t.Errorf("changes = %+v", changes)
	}
	if len(changes) == 2 && (changes[0].User || !changes[1].User) {
		t.Errorf("User flags = %v, %v; want false, true", changes[0].User, changes[1].User)
	}
}

func TestListenerUnsubscribe(t *testing.T) {
	b := MustNew("https://app.test/")
	offNav := b.OnNavigate(func(navrouter.NavigateEvent) {})
	offPop := b.OnPopState(func() {})

	if nav, pop := b.ListenerCounts(); nav != 1 || pop != 1 {
		t.Fatalf("ListenerCounts() = %d, %d", nav, pop)
	}
	offNav()
	offPop()
	if nav, pop := b.ListenerCounts(); nav != 0 || pop != 0 {
		t.Errorf("ListenerCounts() = %d, %d after unsubscribe", nav, pop)
	}
}

func TestViewTransitions(t *testing.T) {
	if MustNew("https://app.test/").ViewTransitions() != nil {
		t.Error("ViewTransitions() should be nil by default")
	}

	b := MustNew("https://app.test/", WithViewTransitions())
	ran := false
	tr, err := b.ViewTransitions().StartTransition(func() { ran = true })
	if err != nil || !ran {
		t.Fatalf("StartTransition() = %v, ran %v", err, ran)
	}
	if err := tr.Finished(context.Background()); err != nil {
		t.Errorf("Finished() = %v", err)
	}
	if b.TransitionCount() != 1 {
		t.Errorf("TransitionCount() = %d", b.TransitionCount())
	}

	startErr := errors.New("no start")
	b = MustNew("https://app.test/", WithTransitionStartError(startErr))
	if _, err := b.ViewTransitions().StartTransition(func() {}); !errors.Is(err, startErr) {
		t.Errorf("StartTransition() = %v, want %v", err, startErr)
	}
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	return u
}
