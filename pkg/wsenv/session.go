// Package wsenv drives a navrouter over a WebSocket connection to a thin
// browser client.
//
// The client reports link clicks, form submissions, downloads and
// back/forward movement; the session replays them on an in-memory browser
// (pkg/memenv) that serves as the router's Environment, and mirrors title
// and history changes back to the client. See ClientScript for the client
// side of the protocol.
package wsenv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/vroute/pkg/memenv"
)

// ErrBadHello is returned by Accept when the first message is not a valid
// hello.
var ErrBadHello = errors.New("wsenv: expected hello with an absolute URL")

// ErrClosed is returned by Do once the session is closed.
var ErrClosed = errors.New("wsenv: session closed")

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithHelloTimeout bounds the wait for the hello message. Default 10s.
func WithHelloTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.helloTimeout = d
	}
}

// WithWriteTimeout bounds every write. Default 5s.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.writeTimeout = d
	}
}

// WithBrowserOptions passes options to the session's memenv.Browser.
func WithBrowserOptions(opts ...memenv.Option) Option {
	return func(s *Session) {
		s.browserOpts = append(s.browserOpts, opts...)
	}
}

// Session is one connected client.
type Session struct {
	conn         *websocket.Conn
	logger       *slog.Logger
	helloTimeout time.Duration
	writeTimeout time.Duration
	browserOpts  []memenv.Option

	browser *memenv.Browser

	// calls carries Do requests to the Serve goroutine.
	calls  chan call
	closed chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
}

type call struct {
	fn   func()
	done chan error
}

// Accept waits for the client's hello and creates the session's browser
// at the hello URL.
func Accept(conn *websocket.Conn, opts ...Option) (*Session, error) {
	s := &Session{
		conn:         conn,
		logger:       slog.Default(),
		helloTimeout: 10 * time.Second,
		writeTimeout: 5 * time.Second,
		calls:        make(chan call),
		closed:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.helloTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(s.helloTimeout))
	}
	var hello Message
	if err := conn.ReadJSON(&hello); err != nil {
		return nil, fmt.Errorf("wsenv: read hello: %w", err)
	}
	conn.SetReadDeadline(time.Time{})

	u, err := url.Parse(hello.URL)
	if hello.Type != TypeHello || err != nil || !u.IsAbs() {
		s.Send(Message{Type: TypeError, Error: ErrBadHello.Error()})
		return nil, ErrBadHello
	}

	browserOpts := append([]memenv.Option{
		memenv.WithTitleHook(s.onTitle),
		memenv.WithHistoryHook(s.onHistory),
	}, s.browserOpts...)
	s.browser, err = memenv.New(u.String(), browserOpts...)
	if err != nil {
		return nil, err
	}

	s.logger = s.logger.With("session_url", u.String())
	return s, nil
}

// Browser returns the environment to give to the session's router.
func (s *Session) Browser() *memenv.Browser {
	return s.browser
}

// Send writes msg to the client. It is safe for concurrent use.
func (s *Session) Send(msg Message) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.writeTimeout > 0 {
		s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	return s.conn.WriteJSON(msg)
}

// Serve replays client messages until the connection closes or ctx is
// done. A normal close returns nil. The session is closed when Serve
// returns.
func (s *Session) Serve(ctx context.Context) error {
	defer s.Close()

	msgs := make(chan Message)
	readErr := make(chan error, 1)
	go s.read(msgs, readErr)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.closed:
			return nil

		case err := <-readErr:
			if s.isClosed() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("wsenv: read: %w", err)

		case c := <-s.calls:
			if s.isClosed() {
				c.done <- ErrClosed
				return nil
			}
			c.fn()
			c.done <- nil

		case msg := <-msgs:
			if err := s.handle(ctx, msg); err != nil {
				s.logger.Warn("client message failed", "type", msg.Type, "url", msg.URL, "error", err)
				if werr := s.Send(Message{Type: TypeError, URL: msg.URL, Error: err.Error()}); werr != nil {
					return fmt.Errorf("wsenv: write: %w", werr)
				}
			}
		}
	}
}

// read feeds client messages to Serve until the connection fails.
func (s *Session) read(msgs chan<- Message, errs chan<- error) {
	for {
		var msg Message
		if err := s.conn.ReadJSON(&msg); err != nil {
			errs <- err
			return
		}
		select {
		case msgs <- msg:
		case <-s.closed:
			return
		}
	}
}

// Do runs fn on the Serve goroutine between two client messages and
// waits for it to return, so fn never overlaps a replayed navigation.
// It returns ErrClosed if the session closes before fn starts.
func (s *Session) Do(ctx context.Context, fn func()) error {
	if s.isClosed() {
		return ErrClosed
	}
	c := call{fn: fn, done: make(chan error, 1)}
	select {
	case s.calls <- c:
	case <-s.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-c.done
}

func (s *Session) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

func (s *Session) handle(ctx context.Context, msg Message) error {
	switch msg.Type {
	case TypeNavigate:
		var (
			intercepted bool
			err         error
		)
		switch msg.Kind {
		case KindForm:
			intercepted, err = s.browser.Submit(ctx, msg.URL)
		case KindDownload:
			intercepted, err = s.browser.Download(ctx, msg.URL)
		case KindLink, "":
			intercepted, err = s.browser.Click(ctx, msg.URL)
		default:
			return fmt.Errorf("unknown navigation kind %q", msg.Kind)
		}
		if err != nil {
			return err
		}

		reply := Message{Type: TypeDecline, URL: s.browser.Location().String()}
		if intercepted {
			reply.Type = TypeIntercept
		}
		s.logger.Debug("navigation replayed", "url", msg.URL, "intercepted", intercepted)
		return s.Send(reply)

	case TypePopState:
		return s.browser.PopTo(msg.URL)

	default:
		return fmt.Errorf("unexpected message type %q", msg.Type)
	}
}

func (s *Session) onTitle(title string) {
	if err := s.Send(Message{Type: TypeTitle, Title: title}); err != nil {
		s.logger.Debug("title not sent", "error", err)
	}
}

// onHistory mirrors server-side history changes. The client already
// applied the ones it reported.
func (s *Session) onHistory(change memenv.HistoryChange) {
	if change.User {
		return
	}
	msg := Message{Type: TypeHistory, URL: change.URL.String(), Mode: string(change.Type)}
	if err := s.Send(msg); err != nil {
		s.logger.Debug("history change not sent", "error", err)
	}
}

// Close sends a close frame and closes the connection.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		s.writeMu.Lock()
		s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	return err
}
