package pattern

import (
	"errors"
	"reflect"
	"testing"
)

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"empty", ""},
		{"relative", "about"},
		{"empty param name", "/user/:"},
		{"bad param name", "/user/:1d"},
		{"duplicate param", "/a/:id/b/:id"},
		{"catch-all not last", "/files/*path/meta"},
		{"optional not last", "/docs/:page?/edit"},
		{"modifier in static", "/a:b"},
		{"bad catch-all name", "/files/*a-b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.path)
			if err == nil {
				t.Fatalf("Compile(%q) succeeded, want error", tt.path)
			}
			if !errors.Is(err, ErrInvalidPattern) {
				t.Errorf("error %v does not wrap ErrInvalidPattern", err)
			}
		})
	}
}

func TestMustCompilePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustCompile should panic on an invalid pattern")
		}
	}()
	MustCompile("/user/:")
}

func TestExec(t *testing.T) {
	tests := []struct {
		pattern  string
		pathname string
		want     Params
		ok       bool
	}{
		{"/", "/", Params{}, true},
		{"/", "", Params{}, true},
		{"/", "/about", nil, false},
		{"/about", "/about", Params{}, true},
		{"/about", "/about/", Params{}, true},
		{"/about", "/About", nil, false},
		{"/about", "/about/team", nil, false},
		{"/café", "/caf%C3%A9", Params{}, true},
		{"/café", "/café", Params{}, true},
		{"/caf%C3%A9", "/café", Params{}, true},
		{"/about us", "/about%20us", Params{}, true},
		{"/about us", "/about%2", nil, false},
		{"/100%", "/100%", Params{}, true},
		{"/user/:id", "/user/123", Params{"id": "123"}, true},
		{"/user/:id", "/user", nil, false},
		{"/user/:id", "/user/123/posts", nil, false},
		{"/user/:id", "/user/john%20doe", Params{"id": "john doe"}, true},
		{"/user/:id", "/user/%zz", nil, false},
		{"/post/:id/comment/:commentId", "/post/7/comment/42", Params{"id": "7", "commentId": "42"}, true},
		{"/post/:id/comment/:commentId", "/post/7/comment", nil, false},
		{"/docs/:page?", "/docs", Params{}, true},
		{"/docs/:page?", "/docs/intro", Params{"page": "intro"}, true},
		{"/docs/:page?", "/docs/intro/more", nil, false},
		{"/files/*path", "/files/a/b/c", Params{"path": "a/b/c"}, true},
		{"/files/*path", "/files/", Params{"path": ""}, true},
		{"/files/*path", "/files", nil, false},
		{"/*", "/", Params{"0": ""}, true},
		{"/files/*path", "/other/a", nil, false},
		{"/assets/*", "/assets/css/site.css", Params{"0": "css/site.css"}, true},
		{"/*", "/anything/at/all", Params{"0": "anything/at/all"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.pathname, func(t *testing.T) {
			p := MustCompile(tt.pattern)
			got, ok := p.Exec(tt.pathname)
			if ok != tt.ok {
				t.Fatalf("Exec(%q) ok = %v, want %v", tt.pathname, ok, tt.ok)
			}
			if !ok {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Exec(%q) = %v, want %v", tt.pathname, got, tt.want)
			}
			if p.Test(tt.pathname) != tt.ok {
				t.Errorf("Test(%q) disagrees with Exec", tt.pathname)
			}
		})
	}
}

func TestNamesAndString(t *testing.T) {
	p := MustCompile("/post/:id/comment/:commentId")
	if p.String() != "/post/:id/comment/:commentId" {
		t.Errorf("String() = %q", p.String())
	}
	if got := p.Names(); !reflect.DeepEqual(got, []string{"id", "commentId"}) {
		t.Errorf("Names() = %v", got)
	}
}

func TestTableFirstMatchWins(t *testing.T) {
	table, err := NewTable([]string{"/user/new", "/user/:id", "/*"})
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}
	if table.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", table.Len())
	}

	tests := []struct {
		pathname string
		index    int
	}{
		{"/user/new", 0},
		{"/user/42", 1},
		{"/elsewhere", 2},
	}
	for _, tt := range tests {
		i, _, ok := table.Lookup(tt.pathname)
		if !ok || i != tt.index {
			t.Errorf("Lookup(%q) = %d, %v; want %d", tt.pathname, i, ok, tt.index)
		}
	}

	if table.Pattern(1).String() != "/user/:id" {
		t.Errorf("Pattern(1) = %q", table.Pattern(1))
	}
}

func TestTableNoMatch(t *testing.T) {
	table, err := NewTable([]string{"/", "/about"})
	if err != nil {
		t.Fatal(err)
	}
	if i, params, ok := table.Lookup("/nonexistent"); ok || i != -1 || params != nil {
		t.Errorf("Lookup(/nonexistent) = %d, %v, %v", i, params, ok)
	}
}

func TestNewTableInvalid(t *testing.T) {
	if _, err := NewTable([]string{"/ok", "/bad/:"}); !errors.Is(err, ErrInvalidPattern) {
		t.Errorf("NewTable() error = %v, want ErrInvalidPattern", err)
	}
}
