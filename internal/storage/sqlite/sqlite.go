// Package sqlitestorage stores snapshot documents in SQLite. With a path the database is a
// file. Without one it lives in memory, is restored from the dump file on Init and is
// written back to it periodically and on Close.
package sqlitestorage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tarkov-dev/site/internal/config"
	"github.com/tarkov-dev/site/internal/database"
	gormstorage "github.com/tarkov-dev/site/internal/storage/gorm"
)

type Backend struct {
	*gormstorage.Backend
	db  *gorm.DB
	cfg config.SQLiteStorageConfig
	log *slog.Logger

	stop      context.CancelFunc
	loop      sync.WaitGroup
	closeOnce sync.Once
}

func New(cfg config.SQLiteStorageConfig, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := database.OpenSQLite(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite DB: %w", err)
	}
	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{DB: db, Logger: logger}),
		db:      db,
		cfg:     cfg,
		log:     logger,
		stop:    func() {},
	}, nil
}

// Init migrates the table, restores the last dump of an in-memory database and starts
// the dump loop.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}
	if !b.inMemory() {
		return nil
	}

	n, err := b.restore()
	if err != nil {
		return err
	}
	if n > 0 {
		b.log.Info("Restored SQLite dump", "path", b.cfg.DumpPath, "documents", n)
	}

	if b.cfg.DumpInterval > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		b.stop = cancel
		b.loop.Add(1)
		go b.dumpEvery(ctx, b.cfg.DumpInterval)
	}
	return nil
}

// Close stops the dump loop, writes a final dump and closes the database.
func (b *Backend) Close() error {
	var err error
	b.closeOnce.Do(func() {
		b.stop()
		b.loop.Wait()
		if b.inMemory() {
			if dumpErr := b.dump(); dumpErr != nil {
				err = dumpErr
			}
		}
		err = errors.Join(err, b.Backend.Close())
	})
	return err
}

func (b *Backend) inMemory() bool {
	return b.cfg.Path == "" && b.cfg.DumpPath != ""
}

// restore copies the documents of the dump file into the in-memory database.
func (b *Backend) restore() (int, error) {
	if _, err := os.Stat(b.cfg.DumpPath); errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	src, err := database.OpenSQLiteFile(b.cfg.DumpPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open dump %s: %w", b.cfg.DumpPath, err)
	}
	defer func() {
		if sqlDB, err := src.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	if !src.Migrator().HasTable(&gormstorage.Document{}) {
		return 0, nil
	}
	var docs []gormstorage.Document
	if err := src.Find(&docs).Error; err != nil {
		return 0, fmt.Errorf("failed to read dump %s: %w", b.cfg.DumpPath, err)
	}
	if len(docs) == 0 {
		return 0, nil
	}
	if err := b.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&docs).Error; err != nil {
		return 0, fmt.Errorf("failed to restore dump: %w", err)
	}
	return len(docs), nil
}

func (b *Backend) dumpEvery(ctx context.Context, every time.Duration) {
	defer b.loop.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := b.dump(); err != nil {
				b.log.Error("Failed to dump SQLite DB", "path", b.cfg.DumpPath, "error", err)
			}
		}
	}
}

func (b *Backend) dump() error {
	start := time.Now()
	if err := database.VacuumInto(b.db, b.cfg.DumpPath); err != nil {
		return err
	}
	b.log.Debug("Dumped SQLite DB", "path", b.cfg.DumpPath, "duration", time.Since(start))
	return nil
}
