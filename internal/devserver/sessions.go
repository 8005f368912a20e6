package devserver

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/vango-dev/vroute/internal/manifest"
	"github.com/vango-dev/vroute/pkg/navrouter"
	"github.com/vango-dev/vroute/pkg/wsenv"
)

// session is one connected client and the router driving it.
type session struct {
	id     string
	ws     *wsenv.Session
	logger *slog.Logger

	mu     sync.Mutex
	router *navrouter.Router
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied.
		s.logger.Debug("websocket upgrade failed", "error", err)
		s.websocketError("upgrade")
		return
	}

	id := uuid.NewString()
	logger := s.logger.With("session_id", id)

	ws, err := wsenv.Accept(conn, wsenv.WithLogger(logger))
	if err != nil {
		logger.Warn("session rejected", "error", err)
		s.websocketError("hello")
		conn.Close()
		return
	}

	sess := &session{id: id, ws: ws, logger: logger}
	if err := s.attach(r.Context(), sess); err != nil {
		logger.Error("session router failed", "error", err)
		ws.Send(wsenv.Message{Type: wsenv.TypeError, Error: err.Error()})
		ws.Close()
		return
	}

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()
	if s.recorder != nil {
		s.recorder.SessionOpened()
	}
	logger.Info("session opened", "url", ws.Browser().Location().String())

	defer func() {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		sess.close()
		if s.recorder != nil {
			s.recorder.SessionClosed()
		}
		logger.Info("session closed")
	}()

	if err := ws.Serve(r.Context()); err != nil {
		logger.Warn("session ended", "error", err)
		s.websocketError("read")
	}
}

// attach gives sess a new router on the current routes. Any previous
// router is closed first so only one router observes the browser.
func (s *Server) attach(ctx context.Context, sess *session) error {
	s.mu.RLock()
	routes, global := s.routes, s.global
	s.mu.RUnlock()

	opts := []navrouter.Option{
		navrouter.WithPlugins(global...),
		navrouter.WithLogger(sess.logger),
	}
	if s.recorder != nil {
		opts = append(opts, navrouter.WithRecorder(s.recorder))
	}
	if s.cfg.Router.FailClosedPlugins {
		opts = append(opts, navrouter.WithFailClosedPlugins())
	}

	router := navrouter.New(sess.ws.Browser(), routes, opts...)
	router.OnRouteChanged(sess.render)
	router.OnError(sess.reportError)

	sess.mu.Lock()
	old := sess.router
	sess.router = router
	sess.mu.Unlock()
	if old != nil {
		old.Close()
	}

	if err := router.Init(ctx); err != nil {
		router.Close()
		return err
	}
	return nil
}

func (sess *session) render(ev navrouter.RouteChangedEvent) {
	msg := wsenv.Message{Type: wsenv.TypeRender, Route: ev.Route.Path}

	if view, ok := ev.Route.Render().(*manifest.View); ok {
		var buf bytes.Buffer
		if err := view.Execute(&buf, ev.Params); err != nil {
			sess.logger.Error("view failed", "route", ev.Route.Path, "error", err)
			msg = wsenv.Message{Type: wsenv.TypeError, Route: ev.Route.Path, Error: err.Error()}
		} else {
			msg.HTML = buf.String()
		}
	}

	if err := sess.ws.Send(msg); err != nil {
		sess.logger.Debug("render not sent", "error", err)
	}
}

func (sess *session) reportError(ev navrouter.ErrorEvent) {
	msg := wsenv.Message{Type: wsenv.TypeError, Error: ev.Err.Error()}
	if ev.Route != nil {
		msg.Route = ev.Route.Path
	}
	if err := sess.ws.Send(msg); err != nil {
		sess.logger.Debug("error not sent", "error", err)
	}
}

func (sess *session) close() {
	sess.mu.Lock()
	router := sess.router
	sess.mu.Unlock()
	if router != nil {
		router.Close()
	}
	sess.ws.Close()
}

func (s *Server) websocketError(kind string) {
	if s.recorder != nil {
		s.recorder.WebSocketError(kind)
	}
}

// broadcast sends msg to every session.
func (s *Server) broadcast(msg wsenv.Message) {
	for _, sess := range s.snapshot() {
		if err := sess.ws.Send(msg); err != nil {
			sess.logger.Debug("broadcast not sent", "type", msg.Type, "error", err)
		}
	}
}

func (s *Server) snapshot() []*session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessions := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	return sessions
}
