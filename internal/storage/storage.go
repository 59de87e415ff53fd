// internal/storage/storage.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a document has never been written.
var ErrNotFound = errors.New("document not found")

// Snapshot document names written by the data cache job.
const (
	DocItems         = "items"
	DocItemsLocale   = "items_locale"
	DocBarters       = "barters"
	DocCrafts        = "crafts"
	DocTraders       = "traders"
	DocTradersLocale = "traders_locale"
	DocMaps          = "maps_cached"
	DocQuests        = "quests"
)

// DocumentInfo describes a stored document.
type DocumentInfo struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Writer is the interface every snapshot sink must satisfy
type Writer interface {
	// Lifecycle
	Init() error
	Close() error

	// WriteDocument replaces the named document with the JSON encoding of v.
	WriteDocument(ctx context.Context, name string, v any) error
}

// Backend is a snapshot sink that can also serve documents back.
type Backend interface {
	Writer

	// ReadDocument decodes the named document into v.
	ReadDocument(ctx context.Context, name string, v any) error
	// Documents lists the stored documents ordered by name.
	Documents(ctx context.Context) ([]DocumentInfo, error)
}

// Fanout writes every document to all of its writers.
type Fanout struct {
	writers []Writer
}

// NewFanout combines writers, skipping nil ones.
func NewFanout(writers ...Writer) *Fanout {
	f := &Fanout{}
	for _, w := range writers {
		if w != nil {
			f.writers = append(f.writers, w)
		}
	}
	return f
}

// Init initializes every writer, stopping at the first failure.
func (f *Fanout) Init() error {
	for _, w := range f.writers {
		if err := w.Init(); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every writer and joins their errors.
func (f *Fanout) Close() error {
	var errs []error
	for _, w := range f.writers {
		errs = append(errs, w.Close())
	}
	return errors.Join(errs...)
}

// WriteDocument writes to every writer even when one fails.
func (f *Fanout) WriteDocument(ctx context.Context, name string, v any) error {
	var errs []error
	for _, w := range f.writers {
		if err := w.WriteDocument(ctx, name, v); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", w, err))
		}
	}
	return errors.Join(errs...)
}
