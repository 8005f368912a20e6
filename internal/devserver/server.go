// Package devserver serves a vroute manifest to real browsers.
//
// Every document request for a manifest route gets the HTML shell with the
// wsenv client injected. The client opens a WebSocket, and the server runs
// one navrouter per connection against the session's in-memory browser,
// rendering manifest views into the page as routes change. The manifest
// can be reloaded at runtime; live sessions are rebuilt on the new routes.
package devserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/vroute/internal/config"
	"github.com/vango-dev/vroute/internal/manifest"
	"github.com/vango-dev/vroute/pkg/lazy"
	"github.com/vango-dev/vroute/pkg/navmetrics"
	"github.com/vango-dev/vroute/pkg/navrouter"
	"github.com/vango-dev/vroute/pkg/pattern"
)

// TracerName is the instrumentation name of HTTP request spans.
const TracerName = "github.com/vango-dev/vroute/internal/devserver"

// RoutesPath lists the loaded manifest routes as JSON.
const RoutesPath = "/_vroute/routes"

// Options configures a Server.
type Options struct {
	// Config is the project configuration. Required.
	Config *config.Config

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Recorder receives navigation and session metrics. Optional.
	Recorder *navmetrics.Recorder

	// Gatherer backs the metrics endpoint. Defaults to
	// prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer

	// Loader serves lazy modules. Defaults to the configured modules
	// directory.
	Loader lazy.Loader

	// Tracer defaults to the global provider's tracer.
	Tracer trace.Tracer
}

// Server is the development server.
type Server struct {
	cfg      *config.Config
	logger   *slog.Logger
	recorder *navmetrics.Recorder
	gatherer prometheus.Gatherer
	loader   lazy.Loader
	cache    *lazy.Cache
	tracer   trace.Tracer
	upgrader websocket.Upgrader
	handler  http.Handler

	mu       sync.RWMutex
	manifest *manifest.Manifest
	routes   []navrouter.Route
	global   []navrouter.Plugin
	table    *pattern.Table
	sessions map[string]*session

	httpServer *http.Server
}

// New loads the manifest and builds the server. A manifest that fails to
// load is an error here; later reload failures keep the previous routes.
func New(opts Options) (*Server, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("devserver: config is required")
	}

	s := &Server{
		cfg:      opts.Config,
		logger:   opts.Logger,
		recorder: opts.Recorder,
		gatherer: opts.Gatherer,
		loader:   opts.Loader,
		cache:    lazy.NewCache(),
		tracer:   opts.Tracer,
		sessions: make(map[string]*session),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins in dev
			},
		},
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}
	if s.loader == nil {
		s.loader = lazy.NewFSLoader(os.DirFS(s.cfg.ModulesPath()))
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(TracerName)
	}

	if err := s.load(); err != nil {
		return nil, err
	}
	s.handler = s.routesHandler()
	return s, nil
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Cache returns the lazy module cache shared by all sessions.
func (s *Server) Cache() *lazy.Cache {
	return s.cache
}

func (s *Server) routesHandler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.traceRequests)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	if path := s.cfg.Server.MetricsPath; path != "" {
		r.Handle(path, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	prefix := s.cfg.Static.Prefix
	r.Handle(prefix+"*", http.StripPrefix(prefix, http.FileServer(http.Dir(s.cfg.StaticPath()))))

	r.Get(RoutesPath, s.handleRoutes)
	r.Get(s.cfg.Server.WebSocketPath, s.handleWebSocket)

	// Everything else is a candidate document request.
	r.NotFound(s.handleDocument)
	r.MethodNotAllowed(s.handleDocument)

	return r
}

// RouteInfo is one entry of the routes listing.
type RouteInfo struct {
	Path    string   `json:"path"`
	Title   string   `json:"title,omitempty"`
	Params  []string `json:"params,omitempty"`
	Plugins []string `json:"plugins,omitempty"`
}

func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	m, table := s.manifest, s.table
	s.mu.RUnlock()

	infos := make([]RouteInfo, len(m.Routes))
	for i, spec := range m.Routes {
		info := RouteInfo{Path: spec.Path, Title: spec.Title, Params: table.Pattern(i).Names()}
		for _, p := range spec.Plugins {
			info.Plugins = append(info.Plugins, pluginLabel(p))
		}
		infos[i] = info
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(infos); err != nil {
		s.logger.Warn("routes listing not written", "error", err)
	}
}

func pluginLabel(p manifest.PluginSpec) string {
	switch {
	case p.Module != "":
		return p.Type + ":" + p.Module
	case p.Name != "":
		return p.Type + ":" + p.Name
	default:
		return p.Type
	}
}

// Start listens on the configured address. It blocks until the server
// stops; http.ErrServerClosed is not returned.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:         s.cfg.Address(),
		Handler:      s.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	s.logger.Info("dev server listening", "url", s.cfg.URL(), "manifest", s.cfg.ManifestPath())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("devserver: %w", err)
	}
	return nil
}

// Shutdown closes every session and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, sess := range s.snapshot() {
		sess.close()
	}

	s.mu.RLock()
	srv := s.httpServer
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// SessionCount returns the number of connected sessions.
func (s *Server) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
