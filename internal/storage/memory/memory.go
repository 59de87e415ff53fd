// internal/storage/memory/memory.go
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tarkov-dev/site/internal/storage"
)

type document struct {
	body      json.RawMessage
	updatedAt time.Time
}

// Backend keeps snapshot documents in memory. Contents are lost on Close.
type Backend struct {
	docs map[string]document
	now  func() time.Time
	mu   sync.RWMutex
}

// New creates a new memory backend
func New() *Backend {
	return &Backend{
		docs: make(map[string]document),
		now:  time.Now,
	}
}

// Init is a no-op; the backend is ready after New.
func (b *Backend) Init() error {
	return nil
}

// Close drops every stored document.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.docs = make(map[string]document)
	return nil
}

func (b *Backend) WriteDocument(_ context.Context, name string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.docs[name] = document{body: body, updatedAt: b.now()}
	return nil
}

func (b *Backend) ReadDocument(_ context.Context, name string, v any) error {
	b.mu.RLock()
	doc, ok := b.docs[name]
	b.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%s: %w", name, storage.ErrNotFound)
	}
	if err := json.Unmarshal(doc.body, v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", name, err)
	}
	return nil
}

func (b *Backend) Documents(_ context.Context) ([]storage.DocumentInfo, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	infos := make([]storage.DocumentInfo, 0, len(b.docs))
	for name, doc := range b.docs {
		infos = append(infos, storage.DocumentInfo{
			Name:      name,
			Size:      int64(len(doc.body)),
			UpdatedAt: doc.updatedAt,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}
