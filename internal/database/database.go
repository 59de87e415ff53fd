// Package database opens the GORM connections behind the relational snapshot backends.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tarkov-dev/site/internal/config"
)

// MemoryDSN is the shared-cache in-memory SQLite database.
const MemoryDSN = "file::memory:?cache=shared"

const (
	pingTimeout  = 10 * time.Second
	maxOpenConns = 10
)

// Manager holds one connection, to Postgres or to the in-memory SQLite fallback.
type Manager struct {
	db       *gorm.DB
	sqlDB    *sql.DB
	fallback bool
	log      zerolog.Logger
}

func NewManager(log zerolog.Logger) *Manager {
	return &Manager{log: log}
}

// Connect opens and pings Postgres. When that fails it falls back to in-memory SQLite
// so a cache run can still complete; Fallback reports which one is in use.
func (m *Manager) Connect(ctx context.Context, cfg config.DatabaseConfig) error {
	m.log.Debug().Str("host", cfg.Host).Str("database", cfg.Database).Msg("Connecting to Postgres")

	err := m.use(OpenPostgres(cfg))
	if err == nil {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err = m.sqlDB.PingContext(pingCtx)
		cancel()
	}
	if err == nil {
		m.sqlDB.SetMaxOpenConns(maxOpenConns)
		m.log.Info().Str("host", cfg.Host).Msg("Connected to Postgres")
		return nil
	}

	m.log.Error().Err(err).Msg("Postgres unavailable, falling back to in-memory SQLite")
	if m.sqlDB != nil {
		_ = m.sqlDB.Close()
	}
	if err := m.use(OpenSQLite("")); err != nil {
		return fmt.Errorf("failed to open fallback SQLite: %w", err)
	}
	m.fallback = true
	return nil
}

func (m *Manager) use(db *gorm.DB, err error) error {
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	m.db, m.sqlDB = db, sqlDB
	return nil
}

// Migrate creates or updates the tables of models.
func (m *Manager) Migrate(models ...any) error {
	if m.db == nil {
		return errors.New("database not connected")
	}
	if err := m.db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	m.log.Debug().Int("models", len(models)).Msg("Schema migrated")
	return nil
}

// DB returns the connection, nil before Connect.
func (m *Manager) DB() *gorm.DB {
	return m.db
}

// Fallback reports whether Connect fell back to in-memory SQLite.
func (m *Manager) Fallback() bool {
	return m.fallback
}

func (m *Manager) Close() error {
	if m.sqlDB == nil {
		return nil
	}
	err := m.sqlDB.Close()
	m.db, m.sqlDB = nil, nil
	return err
}

func gormConfig(prepare bool) *gorm.Config {
	return &gorm.Config{
		PrepareStmt:            prepare,
		SkipDefaultTransaction: true,
		CreateBatchSize:        1000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	}
}

// OpenPostgres connects to Postgres without pinging it.
func OpenPostgres(cfg config.DatabaseConfig) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: true,
	}), gormConfig(false))
}

// OpenSQLite opens the SQLite database at path, or the shared in-memory one when path is
// empty. File databases use WAL so readers are not blocked by a cache run.
func OpenSQLite(path string) (*gorm.DB, error) {
	dsn := path
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	if dsn == "" {
		dsn = MemoryDSN
		pragmas = []string{
			"PRAGMA journal_mode = MEMORY",
			"PRAGMA synchronous = OFF",
		}
	}
	pragmas = append(pragmas, "PRAGMA cache_size = -32000", "PRAGMA temp_store = MEMORY")

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(true))
	if err != nil {
		return nil, err
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return db, nil
}

// OpenSQLiteFile opens an existing SQLite file as is, keeping its journal mode.
func OpenSQLiteFile(path string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Open(path), gormConfig(false))
}

// VacuumInto writes a compacted copy of db to path. The copy is built next to path and
// renamed over it, so readers of path never see a partial file.
func VacuumInto(db *gorm.DB, path string) error {
	if path == "" {
		return errors.New("sqlite file path not set")
	}
	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp")
	_ = os.Remove(tmp)

	quoted := strings.ReplaceAll(tmp, "'", "''")
	if err := db.Exec("VACUUM INTO 'file:" + quoted + "'").Error; err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to vacuum into %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
