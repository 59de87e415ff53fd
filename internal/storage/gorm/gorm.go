// Package gormstorage implements the storage.Backend interface on top of GORM.
// The sqlite and postgres backends embed it and only differ in how the
// *gorm.DB is opened.
package gormstorage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tarkov-dev/site/internal/storage"
)

// Document is one snapshot document row.
type Document struct {
	Name      string         `gorm:"primaryKey;size:128"`
	Body      datatypes.JSON `gorm:"not null"`
	Size      int64
	UpdatedAt time.Time
}

// TableName overrides the GORM default.
func (Document) TableName() string {
	return "snapshot_documents"
}

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB     *gorm.DB
	Logger *slog.Logger
}

// Backend stores snapshot documents as JSON rows.
type Backend struct {
	db  *gorm.DB
	log *slog.Logger
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Backend{db: deps.DB, log: log}
}

// Init migrates the document table.
func (b *Backend) Init() error {
	if b.db == nil {
		return errors.New("gorm storage: no database")
	}
	if err := b.db.AutoMigrate(&Document{}); err != nil {
		return fmt.Errorf("failed to migrate snapshot_documents: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// DB exposes the underlying connection for dialect specific wrappers.
func (b *Backend) DB() *gorm.DB {
	return b.db
}

// WriteDocument upserts the named document.
func (b *Backend) WriteDocument(ctx context.Context, name string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}

	doc := Document{
		Name:      name,
		Body:      datatypes.JSON(body),
		Size:      int64(len(body)),
		UpdatedAt: time.Now().UTC(),
	}
	err = b.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"body", "size", "updated_at"}),
	}).Create(&doc).Error
	if err != nil {
		return fmt.Errorf("upsert %s: %w", name, err)
	}

	b.log.Debug("Stored snapshot document", "name", name, "size", doc.Size)
	return nil
}

func (b *Backend) ReadDocument(ctx context.Context, name string, v any) error {
	var doc Document
	err := b.db.WithContext(ctx).Where("name = ?", name).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", name, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("select %s: %w", name, err)
	}
	if err := json.Unmarshal(doc.Body, v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", name, err)
	}
	return nil
}

func (b *Backend) Documents(ctx context.Context) ([]storage.DocumentInfo, error) {
	var docs []Document
	err := b.db.WithContext(ctx).
		Select("name", "size", "updated_at").
		Order("name").
		Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	infos := make([]storage.DocumentInfo, 0, len(docs))
	for _, d := range docs {
		infos = append(infos, storage.DocumentInfo{Name: d.Name, Size: d.Size, UpdatedAt: d.UpdatedAt})
	}
	return infos, nil
}
