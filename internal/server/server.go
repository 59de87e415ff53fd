// Package server exposes the map views, the catalog and the quest store over HTTP, and
// streams live map views over WebSocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tarkov-dev/site/internal/dispatcher"
	"github.com/tarkov-dev/site/internal/logging"
	"github.com/tarkov-dev/site/internal/mapview"
	"github.com/tarkov-dev/site/internal/quests"
	"github.com/tarkov-dev/site/pkg/core"
)

// Source tags passed to the view recorder.
const (
	SourceHTTP = "http"
	SourceWS   = "ws"
)

const (
	commandRefresh        = "refresh"
	defaultRefreshTimeout = 30 * time.Second
	refreshQueueSize      = 4
	shutdownTimeout       = 10 * time.Second
)

// Catalog lists and resolves maps.
type Catalog interface {
	mapview.Catalog
	IDs() []string
}

// ViewRecorder counts rendered map views.
type ViewRecorder interface {
	RecordMapView(ctx context.Context, mapID, state, source string)
}

// Dependencies holds all dependencies for a Server.
type Dependencies struct {
	Catalog     Catalog
	Annotations core.Annotations
	Quests      *quests.Store
	Engines     mapview.EngineFactory
	Views       ViewRecorder
	Logger      *slog.Logger
}

// Options configures a Server.
type Options struct {
	Address        string
	View           mapview.Options
	RefreshTimeout time.Duration
	// AllowedOrigin restricts WebSocket upgrades; empty accepts any origin.
	AllowedOrigin string
}

// Server is the HTTP front of the site.
type Server struct {
	deps Dependencies
	opts Options
	log  *slog.Logger
	mux  *http.ServeMux
	// handler is mux behind the request tagging middleware
	handler http.Handler

	upgrader websocket.Upgrader
	commands *dispatcher.Dispatcher[*session]
	tasks    *dispatcher.Dispatcher[*quests.Store]

	nextSession atomic.Uint64
	mu          sync.Mutex
	sessions    map[*session]struct{}
	sessionsWG  sync.WaitGroup
	closed      bool

	httpServer *http.Server
}

// New creates a server and registers its routes.
func New(deps Dependencies, opts Options) (*Server, error) {
	if deps.Catalog == nil {
		return nil, errors.New("server: catalog is required")
	}
	if deps.Quests == nil {
		deps.Quests = quests.New(nil, deps.Logger)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = defaultRefreshTimeout
	}

	s := &Server{
		deps:     deps,
		opts:     opts,
		log:      deps.Logger,
		mux:      http.NewServeMux(),
		sessions: make(map[*session]struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}

	var err error
	s.commands, err = dispatcher.New[*session](s.log)
	if err != nil {
		return nil, fmt.Errorf("creating command dispatcher: %w", err)
	}
	s.registerCommands()

	s.tasks, err = dispatcher.New[*quests.Store](s.log)
	if err != nil {
		_ = s.commands.Close()
		return nil, fmt.Errorf("creating task dispatcher: %w", err)
	}
	s.tasks.Register(commandRefresh, s.refreshQuests, dispatcher.Buffered(refreshQueueSize), dispatcher.Logged())

	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthcheck", s.handleHealthcheck)
	s.mux.HandleFunc("GET /maps/{id}", s.handleMapPage)
	s.mux.HandleFunc("GET /api/maps", s.handleMapList)
	s.mux.HandleFunc("GET /api/maps/{id}", s.handleMapView)
	s.mux.HandleFunc("GET /api/quests", s.handleQuests)
	s.mux.HandleFunc("POST /api/quests/refresh", s.handleQuestRefresh)
	s.mux.HandleFunc("GET /ws/maps", s.handleLiveView)
	s.handler = tagRequests(s.mux)
}

// tagRequests adds the request method and path to the log context of each request.
func tagRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.ContextWith(r.Context(),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Address)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.opts.Address, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	srv := s.httpServer
	s.mu.Unlock()

	s.log.Info("server listening", "address", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	// hijacked websocket connections are not tracked by Shutdown
	s.closeSessions()
	err := srv.Shutdown(shutdownCtx)
	<-errCh
	return err
}

// Close disconnects live sessions and drains queued tasks.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.closeSessions()
	s.sessionsWG.Wait()
	return errors.Join(s.tasks.Close(), s.commands.Close())
}

// RefreshQuests queues a quest refresh.
func (s *Server) RefreshQuests() error {
	_, err := s.tasks.Dispatch(s.deps.Quests, dispatcher.Event{Command: commandRefresh})
	return err
}

func (s *Server) refreshQuests(store *quests.Store, _ dispatcher.Event) (any, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.RefreshTimeout)
	defer cancel()
	if err := store.Fetch(ctx); err != nil {
		return nil, err
	}
	return store.Version(), nil
}

func (s *Server) newController(logger *slog.Logger) (*mapview.Controller, error) {
	return mapview.New(mapview.Dependencies{
		Catalog:     s.deps.Catalog,
		Annotations: s.deps.Annotations,
		Engines:     s.deps.Engines,
		Logger:      logger,
	}, s.opts.View)
}

func (s *Server) recordView(ctx context.Context, mapID string, state mapview.State, source string) {
	if s.deps.Views == nil {
		return
	}
	s.deps.Views.RecordMapView(ctx, mapID, state.String(), source)
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if s.opts.AllowedOrigin == "" {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || origin == s.opts.AllowedOrigin
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to encode", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
