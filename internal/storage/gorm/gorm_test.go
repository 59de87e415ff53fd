package gormstorage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarkov-dev/site/internal/database"
	"github.com/tarkov-dev/site/internal/storage"
	"github.com/tarkov-dev/site/pkg/core"
)

// newTestBackend creates a Backend over a file-backed SQLite database.
func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)

	b := New(Dependencies{DB: db})
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

func TestInit_NoDB(t *testing.T) {
	b := New(Dependencies{})
	require.Error(t, b.Init())
	assert.NoError(t, b.Close())
}

func TestInit_CreatesTable(t *testing.T) {
	b := newTestBackend(t)
	assert.True(t, b.DB().Migrator().HasTable(&Document{}))
	assert.True(t, b.DB().Migrator().HasTable("snapshot_documents"))
}

func TestWriteReadDocument(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	barters := []core.Barter{{
		ID:     "b1",
		Trader: core.TraderRef{ID: "t1", Name: "Prapor"},
		Level:  1,
		RewardItems: []core.ContainedItem{
			{Item: core.Item{ID: "i1", Name: "AK-74N"}, Count: 1},
		},
		Cached: true,
	}}
	require.NoError(t, b.WriteDocument(ctx, storage.DocBarters, barters))

	var got []core.Barter
	require.NoError(t, b.ReadDocument(ctx, storage.DocBarters, &got))
	assert.Equal(t, barters, got)
}

func TestWriteDocument_Upserts(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, b.WriteDocument(ctx, storage.DocItemsLocale, map[string]string{"a": "1"}))
	require.NoError(t, b.WriteDocument(ctx, storage.DocItemsLocale, map[string]string{"b": "2"}))

	var got map[string]string
	require.NoError(t, b.ReadDocument(ctx, storage.DocItemsLocale, &got))
	assert.Equal(t, map[string]string{"b": "2"}, got)

	var count int64
	require.NoError(t, b.DB().Model(&Document{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestReadDocument_NotFound(t *testing.T) {
	b := newTestBackend(t)

	var v any
	err := b.ReadDocument(context.Background(), storage.DocQuests, &v)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDocuments(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, b.WriteDocument(ctx, storage.DocTraders, []string{"prapor", "therapist"}))
	require.NoError(t, b.WriteDocument(ctx, storage.DocCrafts, []string{}))

	docs, err := b.Documents(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, storage.DocCrafts, docs[0].Name)
	assert.Equal(t, int64(2), docs[0].Size)
	assert.Equal(t, storage.DocTraders, docs[1].Name)
	assert.Equal(t, int64(len(`["prapor","therapist"]`)), docs[1].Size)
	assert.False(t, docs[1].UpdatedAt.IsZero())
}
