// Package postgres implements the storage.Backend interface on PostgreSQL.
// When Postgres is unreachable the database manager falls back to an
// in-memory SQLite database so the cache job can still complete.
package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rs/zerolog"

	"github.com/tarkov-dev/site/internal/config"
	"github.com/tarkov-dev/site/internal/database"
	gormstorage "github.com/tarkov-dev/site/internal/storage/gorm"
)

// Dependencies holds all dependencies for the Postgres storage backend.
type Dependencies struct {
	Config   config.DatabaseConfig
	DBLogger zerolog.Logger
	Logger   *slog.Logger
}

// Backend wraps the GORM backend with a managed Postgres connection.
type Backend struct {
	*gormstorage.Backend
	manager *database.Manager
	deps    Dependencies
}

// New creates a new Postgres storage backend. The connection is made in Init.
func New(deps Dependencies) *Backend {
	return &Backend{
		manager: database.NewManager(deps.DBLogger),
		deps:    deps,
	}
}

// Init connects, migrates and prepares the embedded GORM backend.
func (b *Backend) Init() error {
	if err := b.manager.Connect(context.Background(), b.deps.Config); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	if err := b.manager.Migrate(&gormstorage.Document{}); err != nil {
		return err
	}
	b.Backend = gormstorage.New(gormstorage.Dependencies{DB: b.manager.DB(), Logger: b.deps.Logger})
	return nil
}

// Close closes the managed connection.
func (b *Backend) Close() error {
	return b.manager.Close()
}

// Local reports whether the backend fell back to in-memory SQLite.
func (b *Backend) Local() bool {
	return b.manager.Fallback()
}
