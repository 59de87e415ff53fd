package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/tarkov-dev/site/internal/storage"
	"github.com/tarkov-dev/site/pkg/core"
)

// DocumentReader reads cached snapshot documents.
type DocumentReader interface {
	ReadDocument(ctx context.Context, name string, v any) error
}

// LoadLiveMaps reads the map records written by the data cache job. A store that has no
// cached maps yet yields an empty slice.
func LoadLiveMaps(ctx context.Context, r DocumentReader) ([]core.MapData, error) {
	var maps []core.MapData
	err := r.ReadDocument(ctx, storage.DocMaps, &maps)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cached maps: %w", err)
	}
	return maps, nil
}
