package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vango-dev/vroute/internal/config"
	"github.com/vango-dev/vroute/internal/errors"
	"github.com/vango-dev/vroute/pkg/lazy"
)

const testManifest = `
routes:
  - path: /
    title: Home
    view: <h1>Home</h1>
  - path: /about
    title: About
    view: <h1>About</h1>
  - path: /user/:id
    title: User
    view: <h1>User {{.id}}</h1>
    plugins:
      - type: lazy
        module: user.js
`

func newTestProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "routes.yaml"), []byte(testManifest), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "modules"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "modules", "user.js"), []byte("export {}"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := config.New().SaveTo(filepath.Join(dir, config.ConfigFileName)); err != nil {
		t.Fatal(err)
	}
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestMatch(t *testing.T) {
	dir := newTestProject(t)

	out, err := run(t, "--dir", dir, "match", "/user/7?tab=1", "/nowhere")
	if err != nil {
		t.Fatalf("match error = %v", err)
	}
	if !strings.Contains(out, "/user/:id  {id=7}") {
		t.Errorf("match output missing user route:\n%s", out)
	}
	if !strings.Contains(out, "/nowhere  no matching route") {
		t.Errorf("match output missing unmatched path:\n%s", out)
	}

	if _, err := run(t, "--dir", dir, "match", "--strict", "/nowhere"); err == nil {
		t.Error("match --strict should fail for an unmatched path")
	}
}

func TestMatchWithoutProject(t *testing.T) {
	_, err := run(t, "--dir", t.TempDir(), "match", "/")
	if !errors.HasCode(err, "R007") {
		t.Errorf("match without vroute.json = %v, want R007", err)
	}

	manifest := filepath.Join(newTestProject(t), "routes.yaml")
	out, err := run(t, "--dir", t.TempDir(), "--manifest", manifest, "match", "/about")
	if err != nil {
		t.Fatalf("match --manifest error = %v", err)
	}
	if !strings.Contains(out, "/about  /about") {
		t.Errorf("match output:\n%s", out)
	}
}

func TestSimulate(t *testing.T) {
	dir := newTestProject(t)

	out, err := run(t, "--dir", dir, "simulate", "--render", "/about", "/user/7", "back", "/external", "nav:/")
	if err != nil {
		t.Fatalf("simulate error = %v", err)
	}

	for _, want := range []string{
		`init      /  "Home"`,
		`intercept /about  "About"`,
		`intercept /user/:id  {id=7}  "User"`,
		"<h1>User 7</h1>",
		"document load https://app.local/external",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("simulate output missing %q:\n%s", want, out)
		}
	}
	if got := strings.Count(out, `/about  "About"`); got != 2 {
		t.Errorf("/about committed %d times, want 2 (click and back)", got)
	}
}

func TestSimulateBadStep(t *testing.T) {
	dir := newTestProject(t)
	if _, err := run(t, "--dir", dir, "simulate", "go:x"); err == nil {
		t.Error("simulate go:x should fail")
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version", "--short")
	if err != nil || strings.TrimSpace(out) != version {
		t.Errorf("version --short = %q, %v", out, err)
	}

	out, _ = run(t, "version")
	if !strings.Contains(out, "Go version:") {
		t.Errorf("version output:\n%s", out)
	}
}

func TestModuleLoader(t *testing.T) {
	cfg := config.New()
	if _, ok := moduleLoader(cfg).(*lazy.FSLoader); !ok {
		t.Errorf("fs source loader = %T", moduleLoader(cfg))
	}

	cfg.Modules.Source = config.ModulesS3
	cfg.Modules.Bucket = "modules"
	cfg.Modules.Region = "us-east-1"
	if _, ok := moduleLoader(cfg).(*lazy.S3Loader); !ok {
		t.Errorf("s3 source loader = %T", moduleLoader(cfg))
	}
}

func TestLogLevelFlag(t *testing.T) {
	dir := newTestProject(t)
	if _, err := run(t, "--dir", dir, "--log-level", "verbose", "match", "/"); !errors.HasCode(err, "R006") {
		t.Errorf("bad --log-level = %v, want R006", err)
	}
}
