// Package catalog holds the immutable map catalog and the annotation data injected into
// map view controllers.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/tarkov-dev/site/pkg/core"
)

// ErrDuplicateMap is returned when two descriptors share an identifier.
var ErrDuplicateMap = errors.New("duplicate map identifier")

// Catalog maps identifiers to descriptors. It is never modified after construction.
type Catalog struct {
	byID  map[string]core.MapDescriptor
	order []string
}

// New builds a catalog keyed by each descriptor's normalized name.
func New(descriptors ...core.MapDescriptor) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]core.MapDescriptor, len(descriptors))}
	for _, d := range descriptors {
		if err := c.add(d.Info().NormalizedName, d); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) add(id string, d core.MapDescriptor) error {
	if _, ok := c.byID[id]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateMap, id)
	}
	c.byID[id] = d
	c.order = append(c.order, id)
	return nil
}

// FromRecords converts wire records into a catalog. Invalid and duplicate records are
// logged and skipped. Records are keyed by their key, falling back to the normalized name.
func FromRecords(records []core.MapRecord, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Catalog{byID: make(map[string]core.MapDescriptor, len(records))}
	for i, r := range records {
		d, err := r.Descriptor()
		if err != nil {
			logger.Warn("skipping invalid map record", "index", i, "key", r.Key, "error", err)
			continue
		}
		id := r.Key
		if id == "" {
			id = d.Info().NormalizedName
		}
		if err := c.add(id, d); err != nil {
			logger.Warn("skipping map record", "index", i, "error", err)
		}
	}
	return c
}

// LoadFile reads a JSON array of map records.
func LoadFile(path string, logger *slog.Logger) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read map catalog: %w", err)
	}
	var records []core.MapRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse map catalog %s: %w", path, err)
	}
	return FromRecords(records, logger), nil
}

// Lookup resolves an identifier.
func (c *Catalog) Lookup(id string) (core.MapDescriptor, bool) {
	if c == nil {
		return nil, false
	}
	d, ok := c.byID[id]
	return d, ok
}

// IDs returns the identifiers in load order.
func (c *Catalog) IDs() []string {
	if c == nil {
		return nil
	}
	return slices.Clone(c.order)
}

// All returns the descriptors in load order.
func (c *Catalog) All() []core.MapDescriptor {
	if c == nil {
		return nil
	}
	out := make([]core.MapDescriptor, len(c.order))
	for i, id := range c.order {
		out[i] = c.byID[id]
	}
	return out
}

// Len returns the number of maps.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.order)
}

// WithBosses returns a copy of the catalog where every map without boss data takes the
// bosses of the live map record with the same normalized name.
func (c *Catalog) WithBosses(live []core.MapData) *Catalog {
	bosses := make(map[string][]core.Boss, len(live))
	for _, m := range live {
		if len(m.Bosses) > 0 {
			bosses[m.NormalizedName] = m.Bosses
		}
	}

	out := &Catalog{byID: make(map[string]core.MapDescriptor, len(c.byID)), order: slices.Clone(c.order)}
	for id, d := range c.byID {
		info := d.Info()
		if b, ok := bosses[info.NormalizedName]; ok && len(info.Bosses) == 0 {
			info.Bosses = slices.Clone(b)
			d = withInfo(d, info)
		}
		out.byID[id] = d
	}
	return out
}

func withInfo(d core.MapDescriptor, info core.MapInfo) core.MapDescriptor {
	switch m := d.(type) {
	case core.StaticMap:
		m.MapInfo = info
		return m
	case core.InteractiveMap:
		m.MapInfo = info
		return m
	}
	return d
}
