package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tarkov-dev/site/internal/config"
	"github.com/tarkov-dev/site/internal/storage"
	filestorage "github.com/tarkov-dev/site/internal/storage/file"
	"github.com/tarkov-dev/site/internal/storage/memory"
	pgstorage "github.com/tarkov-dev/site/internal/storage/postgres"
	sqlitestorage "github.com/tarkov-dev/site/internal/storage/sqlite"
	wsstorage "github.com/tarkov-dev/site/internal/storage/websocket"
)

// openStorage creates and initializes the configured snapshot backend.
func openStorage(cfg config.StorageConfig, dbCfg config.DatabaseConfig, dbLog zerolog.Logger, logger *slog.Logger) (storage.Backend, error) {
	backend, err := createStorageBackend(cfg, dbCfg, dbLog, logger)
	if err != nil {
		logger.Error("Failed to create storage backend", "error", err)
		return nil, err
	}
	if err := backend.Init(); err != nil {
		logger.Error("Failed to initialize storage backend", "type", cfg.Type, "error", err)
		return nil, err
	}
	return backend, nil
}

func createStorageBackend(cfg config.StorageConfig, dbCfg config.DatabaseConfig, dbLog zerolog.Logger, logger *slog.Logger) (storage.Backend, error) {
	switch cfg.Type {
	case "postgres":
		logger.Info("Postgres storage backend initialized", "host", dbCfg.Host, "database", dbCfg.Database)
		return pgstorage.New(pgstorage.Dependencies{
			Config:   dbCfg,
			DBLogger: dbLog,
			Logger:   logger,
		}), nil

	case "sqlite":
		backend, err := sqlitestorage.New(cfg.SQLite, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		logger.Info("SQLite storage backend initialized", "path", cfg.SQLite.Path, "dumpPath", cfg.SQLite.DumpPath)
		return backend, nil

	case "memory":
		logger.Info("Memory storage backend initialized")
		return memory.New(), nil

	case "file", "":
		logger.Info("File storage backend initialized", "dir", cfg.File.Dir, "compress", cfg.File.Compress)
		return filestorage.New(cfg.File), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

// newMirror returns the websocket mirror writer, or nil when no mirror is configured.
func newMirror(cfg config.MirrorConfig, logger *slog.Logger) storage.Writer {
	if cfg.URL == "" {
		return nil
	}
	cfg.URL = httpToWS(cfg.URL)
	logger.Info("WebSocket mirror initialized", "url", cfg.URL)
	return wsstorage.New(cfg, logger)
}

// httpToWS converts an HTTP(S) URL to a WebSocket URL.
func httpToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}
