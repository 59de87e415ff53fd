package main

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarkov-dev/site/internal/config"
	"github.com/tarkov-dev/site/internal/storage"
	filestorage "github.com/tarkov-dev/site/internal/storage/file"
	"github.com/tarkov-dev/site/internal/storage/memory"
	pgstorage "github.com/tarkov-dev/site/internal/storage/postgres"
	sqlitestorage "github.com/tarkov-dev/site/internal/storage/sqlite"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestHttpToWS(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"http://localhost:5000", "ws://localhost:5000"},
		{"https://mirror.tarkov.dev/", "wss://mirror.tarkov.dev"},
		{"ws://already", "ws://already"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, httpToWS(tt.in), tt.in)
	}
}

func TestCreateStorageBackend_Types(t *testing.T) {
	dir := t.TempDir()
	cfg := config.StorageConfig{
		File:   config.FileStorageConfig{Dir: dir},
		SQLite: config.SQLiteStorageConfig{Path: filepath.Join(dir, "cache.db")},
	}

	tests := []struct {
		typ  string
		want any
	}{
		{"", &filestorage.Backend{}},
		{"file", &filestorage.Backend{}},
		{"memory", &memory.Backend{}},
		{"sqlite", &sqlitestorage.Backend{}},
		{"postgres", &pgstorage.Backend{}},
	}
	for _, tt := range tests {
		cfg.Type = tt.typ
		b, err := createStorageBackend(cfg, config.DatabaseConfig{}, zerolog.Nop(), discard)
		require.NoError(t, err, tt.typ)
		assert.IsType(t, tt.want, b, tt.typ)
		if closer, ok := b.(*sqlitestorage.Backend); ok {
			require.NoError(t, closer.Close())
		}
	}
}

func TestCreateStorageBackend_Unknown(t *testing.T) {
	_, err := createStorageBackend(config.StorageConfig{Type: "s3"}, config.DatabaseConfig{}, zerolog.Nop(), discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown storage type "s3"`)
}

func TestOpenStorage_FileRoundTrip(t *testing.T) {
	b, err := openStorage(config.StorageConfig{Type: "file", File: config.FileStorageConfig{Dir: t.TempDir()}},
		config.DatabaseConfig{}, zerolog.Nop(), discard)
	require.NoError(t, err)
	defer b.Close()

	ctx := context.Background()
	require.NoError(t, b.WriteDocument(ctx, storage.DocMaps, []string{"customs"}))
	var got []string
	require.NoError(t, b.ReadDocument(ctx, storage.DocMaps, &got))
	assert.Equal(t, []string{"customs"}, got)
}

func TestNewMirror_DisabledWithoutURL(t *testing.T) {
	assert.Nil(t, newMirror(config.MirrorConfig{}, discard))
	assert.NotNil(t, newMirror(config.MirrorConfig{URL: "http://localhost:1"}, discard))
}
