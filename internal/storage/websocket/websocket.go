package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tarkov-dev/site/internal/config"
	"github.com/tarkov-dev/site/pkg/streaming"
)

// Mirror pushes snapshot documents over WebSocket to a remote mirror server.
// It implements storage.Writer but not storage.Backend.
type Mirror struct {
	conn *connection
	cfg  config.MirrorConfig
}

// New creates a new WebSocket mirror.
func New(cfg config.MirrorConfig, logger *slog.Logger) *Mirror {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mirror{
		conn: newConnection(logger),
		cfg:  cfg,
	}
}

// Init connects to the WebSocket server.
func (m *Mirror) Init() error {
	return m.conn.dial(m.cfg.URL, m.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (m *Mirror) Close() error {
	return m.conn.close()
}

// WriteDocument sends the document and waits for the mirror to acknowledge it. Without a
// deadline on ctx the wait is bounded by ackTimeout. Concurrent writes are safe.
func (m *Mirror) WriteDocument(ctx context.Context, name string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	env, err := streaming.NewEnvelope(streaming.TypeDocument, streaming.DocumentPayload{Name: name, Body: body})
	if err != nil {
		return err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", name, err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ackTimeout)
		defer cancel()
	}

	err = m.conn.deliver(ctx, name, data)
	if err != nil {
		return fmt.Errorf("mirror %s: %w", name, err)
	}
	return nil
}
