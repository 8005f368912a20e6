package devserver

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vango-dev/vroute/internal/manifest"
	"github.com/vango-dev/vroute/pkg/pattern"
	"github.com/vango-dev/vroute/pkg/wsenv"
)

// DefaultDebounce is the quiet period Watch waits for before reloading.
const DefaultDebounce = 300 * time.Millisecond

// load reads and builds the manifest and swaps it in.
func (s *Server) load() error {
	m, err := manifest.Load(s.cfg.ManifestPath())
	if err != nil {
		return err
	}
	routes, global, err := m.Build(manifest.Deps{Loader: s.loader, Cache: s.cache, Logger: s.logger})
	if err != nil {
		return err
	}

	paths := make([]string, len(routes))
	for i, route := range routes {
		paths[i] = route.Path
	}
	table, err := pattern.NewTable(paths)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.manifest = m
	s.routes = routes
	s.global = global
	s.table = table
	s.mu.Unlock()
	return nil
}

// Reload reloads the manifest and rebuilds every session's router on the
// new routes. On failure the previous routes stay and sessions are sent
// the error.
func (s *Server) Reload(ctx context.Context) error {
	if err := s.load(); err != nil {
		s.logger.Error("manifest reload failed", "path", s.cfg.ManifestPath(), "error", err)
		s.broadcast(wsenv.Message{Type: wsenv.TypeError, Error: err.Error()})
		return err
	}

	sessions := s.snapshot()
	for _, sess := range sessions {
		// Rebuild on the session's own goroutine so the old router is never
		// closed in the middle of a replayed navigation.
		var err error
		if derr := sess.ws.Do(ctx, func() { err = s.attach(ctx, sess) }); derr != nil {
			sess.logger.Debug("session not rebuilt", "error", derr)
			continue
		}
		if err != nil {
			sess.logger.Error("session rebuild failed", "error", err)
			sess.ws.Send(wsenv.Message{Type: wsenv.TypeError, Error: err.Error()})
		}
	}
	s.logger.Info("manifest reloaded", "sessions", len(sessions))
	return nil
}

// Watch reloads the manifest when it changes and asks clients to reload
// when the shell changes. It blocks until ctx is done.
func (s *Server) Watch(ctx context.Context, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("devserver: create watcher: %w", err)
	}
	defer watcher.Close()

	manifestPath, err := filepath.Abs(s.cfg.ManifestPath())
	if err != nil {
		return fmt.Errorf("devserver: %w", err)
	}
	shellPath, err := filepath.Abs(s.cfg.ShellPath())
	if err != nil {
		return fmt.Errorf("devserver: %w", err)
	}

	// Watch directories; editors replace files rather than write them.
	dirs := map[string]bool{filepath.Dir(manifestPath): true, filepath.Dir(shellPath): true}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			if dir == filepath.Dir(manifestPath) {
				return fmt.Errorf("devserver: watch %s: %w", dir, err)
			}
			s.logger.Warn("shell directory not watched", "dir", dir, "error", err)
		}
	}
	s.logger.Info("watching for changes", "manifest", manifestPath, "shell", shellPath)

	var (
		timer                     *time.Timer
		manifestDirty, shellDirty bool
		fire                      = make(chan struct{}, 1)
	)
	schedule := func() {
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(debounce, func() {
			select {
			case fire <- struct{}{}:
			default:
			}
		})
	}
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			name, _ := filepath.Abs(event.Name)
			switch name {
			case manifestPath:
				s.logger.Debug("manifest changed", "op", event.Op.String())
				manifestDirty = true
				schedule()
			case shellPath:
				s.logger.Debug("shell changed", "op", event.Op.String())
				shellDirty = true
				schedule()
			}

		case <-fire:
			if manifestDirty {
				s.Reload(ctx)
			}
			if shellDirty {
				s.broadcast(wsenv.Message{Type: wsenv.TypeReload})
			}
			manifestDirty, shellDirty = false, false

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}
