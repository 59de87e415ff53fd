package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tarkov-dev/site/internal/dispatcher"
	"github.com/tarkov-dev/site/internal/logging"
	"github.com/tarkov-dev/site/internal/mapview"
	"github.com/tarkov-dev/site/pkg/streaming"
)

const (
	maxMessageSize = 64 * 1024
	writeTimeout   = 10 * time.Second
)

// session is one live map view. It owns a controller for the lifetime of the connection.
type session struct {
	id     uint64
	conn   *websocket.Conn
	ctrl   *mapview.Controller
	log    *slog.Logger
	server *Server

	// current map id, read by the log handler without taking the controller lock
	mapID atomic.Value
}

func (s *Server) handleLiveView(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		http.Error(w, "server closing", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	sess := &session{id: s.nextSession.Add(1), conn: conn, server: s}
	sess.mapID.Store("")
	sess.log = slog.New(logging.NewContextHandler(
		s.log.Handler().WithAttrs([]slog.Attr{
			slog.Uint64("session", sess.id),
			slog.String("remote", r.RemoteAddr),
		}),
		func() []slog.Attr {
			return []slog.Attr{slog.String("map", sess.mapID.Load().(string))}
		},
	))

	sess.ctrl, err = s.newController(sess.log)
	if err != nil {
		sess.log.Error("failed to create map view", "error", err)
		_ = conn.Close()
		return
	}

	if !s.track(sess) {
		_ = sess.ctrl.Close()
		_ = conn.Close()
		return
	}
	defer s.untrack(sess)

	sess.log.Info("live view connected")
	if id := r.URL.Query().Get("map"); id != "" {
		payload, _ := json.Marshal(streaming.NavigatePayload{MapID: id})
		sess.handle(streaming.Envelope{Type: streaming.TypeNavigate, Payload: payload})
	}
	sess.readLoop()
}

func (s *Server) track(sess *session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.sessions[sess] = struct{}{}
	s.sessionsWG.Add(1)
	return true
}

func (s *Server) untrack(sess *session) {
	if err := sess.ctrl.Close(); err != nil {
		sess.log.Warn("failed to dispose map view", "error", err)
	}
	_ = sess.conn.Close()

	s.mu.Lock()
	delete(s.sessions, sess)
	s.mu.Unlock()

	sess.log.Info("live view disconnected")
	s.sessionsWG.Done()
}

// closeSessions closes every live connection; their read loops then unwind.
func (s *Server) closeSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sess := range s.sessions {
		_ = sess.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		_ = sess.conn.Close()
	}
}

func (sess *session) readLoop() {
	sess.conn.SetReadLimit(maxMessageSize)
	for {
		_, data, err := sess.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				sess.log.Debug("live view read error", "error", err)
			}
			return
		}

		var env streaming.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			sess.log.Debug("discarding malformed message", "error", err)
			if !sess.sendError("", fmt.Errorf("malformed message: %w", err)) {
				return
			}
			continue
		}
		if !sess.handle(env) {
			return
		}
	}
}

// handle runs one command and writes the reply. It reports false once the connection is
// unusable.
func (sess *session) handle(env streaming.Envelope) bool {
	result, err := sess.server.commands.Dispatch(sess, dispatcher.Event{
		Command: env.Type,
		Payload: env.Payload,
	})
	if err != nil {
		return sess.sendError(env.Type, err)
	}
	view, ok := result.(mapview.View)
	if !ok {
		return true
	}
	return sess.send(streaming.TypeView, view)
}

func (sess *session) sendError(command string, err error) bool {
	return sess.send(streaming.TypeError, streaming.ErrorPayload{Command: command, Message: err.Error()})
}

func (sess *session) send(msgType string, payload any) bool {
	env, err := streaming.NewEnvelope(msgType, payload)
	if err != nil {
		sess.log.Error("failed to encode reply", "type", msgType, "error", err)
		return true
	}
	_ = sess.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := sess.conn.WriteJSON(env); err != nil {
		if !errors.Is(err, websocket.ErrCloseSent) {
			sess.log.Debug("live view write failed", "error", err)
		}
		return false
	}
	return true
}
