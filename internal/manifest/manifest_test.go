package manifest

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vango-dev/vroute/internal/errors"
	"github.com/vango-dev/vroute/pkg/lazy"
	"github.com/vango-dev/vroute/pkg/memenv"
	"github.com/vango-dev/vroute/pkg/navrouter"
	"github.com/vango-dev/vroute/pkg/pattern"
)

const shopYAML = `
plugins:
  - type: log
    name: audit
routes:
  - path: /
    title: Home
    view: <h1>Home</h1>
  - path: /user/:id
    title: User
    view: <h1>User {{.id}}</h1>
    plugins:
      - type: lazy
        module: user.js
`

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestParseYAML(t *testing.T) {
	m, err := Parse([]byte(shopYAML), FormatYAML)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if len(m.Routes) != 2 || m.Routes[1].Path != "/user/:id" {
		t.Fatalf("Routes = %+v", m.Routes)
	}
	if len(m.Plugins) != 1 || m.Plugins[0].Name != "audit" {
		t.Errorf("Plugins = %+v", m.Plugins)
	}
	if p := m.Routes[1].Plugins; len(p) != 1 || p[0].Module != "user.js" {
		t.Errorf("route plugins = %+v", p)
	}
}

func TestParseJSON(t *testing.T) {
	data := `{"routes": [{"path": "/", "title": "Home", "view": "home"}]}`
	m, err := Parse([]byte(data), FormatJSON)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if m.Routes[0].Title != "Home" {
		t.Errorf("Routes = %+v", m.Routes)
	}
}

func TestParseExpandsEnvironment(t *testing.T) {
	t.Setenv("SHOP_TITLE", "Storefront")

	m, err := Parse([]byte("routes:\n  - path: /\n    title: $SHOP_TITLE\n"), FormatYAML)
	if err != nil {
		t.Fatal(err)
	}
	if m.Routes[0].Title != "Storefront" {
		t.Errorf("Title = %q, want Storefront", m.Routes[0].Title)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format Format
		errSub string
	}{
		{"unknown field yaml", "routes:\n  - path: /\n    colour: red\n", FormatYAML, "invalid YAML"},
		{"unknown field json", `{"routes": [{"path": "/", "colour": "red"}]}`, FormatJSON, "invalid JSON"},
		{"no routes", "plugins: []\n", FormatYAML, "no routes"},
		{"empty path", "routes:\n  - title: x\n", FormatYAML, "path is required"},
		{"duplicate path", "routes:\n  - path: /a\n  - path: /a\n", FormatYAML, "duplicate path"},
		{"bad pattern", "routes:\n  - path: /a/*rest/b\n", FormatYAML, "routes[0]"},
		{"unknown plugin", "routes:\n  - path: /\n    plugins:\n      - type: magic\n", FormatYAML, "unknown plugin type"},
		{"lazy without module", "plugins:\n  - type: lazy\nroutes:\n  - path: /\n", FormatYAML, "requires a module"},
		{"unknown format", "routes: []", Format("toml"), "unknown format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), tt.format)
			if !errors.HasCode(err, "R004") {
				t.Fatalf("Parse() error = %v, want R004", err)
			}
			if !strings.Contains(err.Error(), tt.errSub) {
				t.Errorf("Parse() error = %q, want it to mention %q", err.Error(), tt.errSub)
			}
		})
	}
}

func TestLoadAndSave(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "routes.yaml")
	if err := os.WriteFile(yamlPath, []byte(shopYAML), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(yamlPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if m.Path() != yamlPath {
		t.Errorf("Path() = %q", m.Path())
	}

	jsonPath := filepath.Join(dir, "routes.json")
	if err := m.Save(jsonPath); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	again, err := Load(jsonPath)
	if err != nil {
		t.Fatalf("Load(json) error = %v", err)
	}
	if len(again.Routes) != len(m.Routes) || again.Routes[1].View != m.Routes[1].View {
		t.Errorf("round trip = %+v", again.Routes)
	}

	if _, err := Load(filepath.Join(dir, "routes.toml")); !errors.HasCode(err, "R004") {
		t.Errorf("Load(.toml) error = %v, want R004", err)
	}
	if _, err := Load(filepath.Join(dir, "missing.yaml")); !errors.HasCode(err, "R004") {
		t.Errorf("Load(missing) error = %v, want R004", err)
	}
}

func TestBuild(t *testing.T) {
	m, err := Parse([]byte(shopYAML), FormatYAML)
	if err != nil {
		t.Fatal(err)
	}

	if _, _, err := m.Build(Deps{Logger: quiet}); !errors.HasCode(err, "R004") {
		t.Errorf("Build() without loader error = %v, want R004", err)
	}

	loader := lazy.LoaderFunc(func(_ context.Context, module string) ([]byte, error) {
		return []byte("// " + module), nil
	})
	cache := lazy.NewCache()
	routes, global, err := m.Build(Deps{Loader: loader, Cache: cache, Logger: quiet})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if len(global) != 1 || global[0].Name() != "audit" {
		t.Errorf("global plugins = %v", global)
	}
	if len(routes[1].Plugins) != 1 || routes[1].Plugins[0].Name() != "lazy:user.js" {
		t.Errorf("route plugins = %v", routes[1].Plugins)
	}

	view, ok := routes[1].Render().(*View)
	if !ok {
		t.Fatalf("Render() = %T, want *View", routes[1].Render())
	}
	var buf bytes.Buffer
	if err := view.Execute(&buf, pattern.Params{"id": "<42>"}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "<h1>User &lt;42&gt;</h1>" {
		t.Errorf("Execute() = %q", buf.String())
	}
}

func TestBuildBadTemplate(t *testing.T) {
	m := &Manifest{Routes: []RouteSpec{{Path: "/", View: "{{.id"}}}
	if _, _, err := m.Build(Deps{}); !errors.HasCode(err, "R004") {
		t.Errorf("Build() error = %v, want R004", err)
	}
}

func TestBuiltRoutesDriveRouter(t *testing.T) {
	m, err := Parse([]byte(shopYAML), FormatYAML)
	if err != nil {
		t.Fatal(err)
	}
	cache := lazy.NewCache()
	loader := lazy.LoaderFunc(func(context.Context, string) ([]byte, error) {
		return []byte("x"), nil
	})
	routes, global, err := m.Build(Deps{Loader: loader, Cache: cache, Logger: quiet})
	if err != nil {
		t.Fatal(err)
	}

	b := memenv.MustNew("https://shop.test/")
	r := navrouter.New(b, routes, navrouter.WithPlugins(global...), navrouter.WithLogger(quiet))
	defer r.Close()
	if err := r.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(cache.Modules()) != 0 {
		t.Errorf("modules loaded before navigation: %v", cache.Modules())
	}

	if err := r.Navigate(context.Background(), "/user/7"); err != nil {
		t.Fatal(err)
	}
	if got := cache.Modules(); len(got) != 1 || got[0] != "user.js" {
		t.Errorf("Modules() = %v, want [user.js]", got)
	}
	if b.Title() != "User" {
		t.Errorf("Title() = %q", b.Title())
	}

	var buf bytes.Buffer
	r.Render().(*View).Execute(&buf, r.CurrentMatch().Params)
	if buf.String() != "<h1>User 7</h1>" {
		t.Errorf("rendered = %q", buf.String())
	}
}
