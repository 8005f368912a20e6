package navrouter

import (
	"context"
	"errors"
	"net/url"
	"testing"
)

// stubEnv is the smallest Environment: it never dispatches events.
type stubEnv struct {
	loc   *url.URL
	title string
}

func (s *stubEnv) Location() *url.URL                    { u := *s.loc; return &u }
func (s *stubEnv) OnNavigate(func(NavigateEvent)) func() { return func() {} }
func (s *stubEnv) OnPopState(func()) func()              { return func() {} }
func (s *stubEnv) CurrentEntryState() any                { return nil }
func (s *stubEnv) SetTitle(title string)                 { s.title = title }
func (s *stubEnv) Navigate(context.Context, *url.URL, NavigateRequest) <-chan error {
	ch := make(chan error, 1)
	ch <- nil
	return ch
}

func TestAcquireHonorsContext(t *testing.T) {
	r := New(&stubEnv{loc: &url.URL{Scheme: "https", Host: "app.test", Path: "/"}}, nil)

	if err := r.acquire(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer r.release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("acquire() while held = %v, want context.Canceled", err)
	}
}

func TestRunSequenceWithoutTransitionProvider(t *testing.T) {
	env := &stubEnv{loc: &url.URL{Scheme: "https", Host: "app.test", Path: "/"}}
	routes := []Route{{Path: "/", Title: "Home", Render: func() any { return "home" }}}
	r := New(env, routes)

	if err := r.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	if env.title != "Home" {
		t.Errorf("title = %q, want Home", env.title)
	}
	if r.Render() != "home" {
		t.Errorf("Render() = %v", r.Render())
	}
}

func TestSkipTransition(t *testing.T) {
	tests := []struct {
		info any
		want bool
	}{
		{nil, false},
		{"other", false},
		{NavigationInfo{Transition: true}, false},
		{NavigationInfo{}, true},
		{&NavigationInfo{}, true},
		{(*NavigationInfo)(nil), false},
	}

	for _, tt := range tests {
		if got := skipTransition(tt.info); got != tt.want {
			t.Errorf("skipTransition(%#v) = %v, want %v", tt.info, got, tt.want)
		}
	}
}

func TestPluginName(t *testing.T) {
	if got := pluginName(PluginFunc(nil)); got != "anonymous" {
		t.Errorf("pluginName(PluginFunc) = %q", got)
	}
	if got := pluginName(NamedPlugin("auth", nil)); got != "auth" {
		t.Errorf("pluginName(NamedPlugin) = %q", got)
	}
	if err := NamedPlugin("noop", nil).BeforeNavigation(context.Background(), nil); err != nil {
		t.Errorf("nil plugin func returned %v", err)
	}
}
