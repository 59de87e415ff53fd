// internal/storage/storage_test.go
package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarkov-dev/site/internal/storage"
)

type recordingWriter struct {
	inits, closes int
	written       []string
	err           error
}

func (w *recordingWriter) Init() error  { w.inits++; return w.err }
func (w *recordingWriter) Close() error { w.closes++; return w.err }
func (w *recordingWriter) WriteDocument(_ context.Context, name string, _ any) error {
	w.written = append(w.written, name)
	return w.err
}

var _ storage.Writer = (*storage.Fanout)(nil)

func TestFanout_WritesToAll(t *testing.T) {
	a, b := &recordingWriter{}, &recordingWriter{}
	f := storage.NewFanout(a, nil, b)

	require.NoError(t, f.Init())
	require.NoError(t, f.WriteDocument(context.Background(), storage.DocItems, []int{1}))
	require.NoError(t, f.Close())

	for _, w := range []*recordingWriter{a, b} {
		assert.Equal(t, 1, w.inits)
		assert.Equal(t, 1, w.closes)
		assert.Equal(t, []string{storage.DocItems}, w.written)
	}
}

func TestFanout_ContinuesPastFailure(t *testing.T) {
	boom := errors.New("boom")
	bad, good := &recordingWriter{err: boom}, &recordingWriter{}
	f := storage.NewFanout(bad, good)

	err := f.WriteDocument(context.Background(), storage.DocMaps, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{storage.DocMaps}, good.written)

	assert.ErrorIs(t, f.Close(), boom)
	assert.Equal(t, 1, good.closes)
}

func TestFanout_InitStopsAtFirstFailure(t *testing.T) {
	bad, good := &recordingWriter{err: errors.New("dial")}, &recordingWriter{}
	f := storage.NewFanout(bad, good)

	require.Error(t, f.Init())
	assert.Zero(t, good.inits)
}
