// pkg/core/maps.go
package core

import (
	"errors"
	"fmt"
)

// ErrInvalidDescriptor is returned when a map record cannot form a valid descriptor.
var ErrInvalidDescriptor = errors.New("invalid map descriptor")

// ProjectionKind selects how a map is rendered.
type ProjectionKind string

const (
	ProjectionStatic      ProjectionKind = "static"
	ProjectionInteractive ProjectionKind = "interactive"
)

// SpawnLocation is a named spawn zone a boss can appear in.
type SpawnLocation struct {
	SpawnKey string  `json:"spawnKey"`
	Chance   float64 `json:"chance"`
}

// Boss represents a boss encounter on a map
type Boss struct {
	Name           string          `json:"name"`
	SpawnLocations []SpawnLocation `json:"spawnLocations"`
}

// SpawnsAt reports whether any of the boss spawn locations uses the given zone key.
func (b Boss) SpawnsAt(zoneName string) bool {
	for _, sl := range b.SpawnLocations {
		if sl.SpawnKey == zoneName {
			return true
		}
	}
	return false
}

// Layer is an auxiliary tile layer drawn on top of the base map.
type Layer struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Show bool   `json:"show"`
}

// MapInfo holds the fields shared by every descriptor variant.
type MapInfo struct {
	NormalizedName string `json:"normalizedName"`
	DisplayText    string `json:"displayText"`
	Description    string `json:"description,omitempty"`
	ImageThumb     string `json:"imageThumb,omitempty"`
	Duration       string `json:"duration,omitempty"`
	Players        string `json:"players,omitempty"`
	Author         string `json:"author,omitempty"`
	AuthorLink     string `json:"authorLink,omitempty"`
	Bosses         []Boss `json:"bosses,omitempty"`
}

// MapDescriptor is the static metadata describing one renderable map.
// It is implemented by StaticMap and InteractiveMap only.
type MapDescriptor interface {
	Info() MapInfo
	Kind() ProjectionKind
	descriptor()
}

// StaticMap is rendered as a single image inside a pan/zoom wrapper.
type StaticMap struct {
	MapInfo
	ImagePath string `json:"image"`
}

// NewStaticMap validates and builds a static descriptor.
func NewStaticMap(info MapInfo, imagePath string) (StaticMap, error) {
	if info.NormalizedName == "" {
		return StaticMap{}, fmt.Errorf("%w: missing normalized name", ErrInvalidDescriptor)
	}
	if imagePath == "" {
		return StaticMap{}, fmt.Errorf("%w: static map %q has no image", ErrInvalidDescriptor, info.NormalizedName)
	}
	return StaticMap{MapInfo: info, ImagePath: imagePath}, nil
}

func (m StaticMap) Info() MapInfo        { return m.MapInfo }
func (m StaticMap) Kind() ProjectionKind { return ProjectionStatic }
func (StaticMap) descriptor()            {}

// InteractiveMap is rendered as a tiled map by the browser-side renderer.
type InteractiveMap struct {
	MapInfo
	TileSize           int         `json:"tileSize"`
	MinZoom            int         `json:"minZoom"`
	MaxZoom            int         `json:"maxZoom"`
	Transform          *[4]float64 `json:"transform,omitempty"`
	CoordinateRotation float64     `json:"coordinateRotation,omitempty"`
	// TilePath is an explicit tile URL template; empty selects the default asset path.
	TilePath string  `json:"mapPath,omitempty"`
	Layers   []Layer `json:"layers,omitempty"`
}

// InteractiveOptions carries the tiled-map specific fields of a descriptor.
type InteractiveOptions struct {
	TileSize           int
	MinZoom            int
	MaxZoom            int
	Transform          *[4]float64
	CoordinateRotation float64
	TilePath           string
	Layers             []Layer
}

// NewInteractiveMap validates and builds an interactive descriptor.
func NewInteractiveMap(info MapInfo, opts InteractiveOptions) (InteractiveMap, error) {
	if info.NormalizedName == "" {
		return InteractiveMap{}, fmt.Errorf("%w: missing normalized name", ErrInvalidDescriptor)
	}
	if opts.TileSize <= 0 {
		return InteractiveMap{}, fmt.Errorf("%w: interactive map %q has no tile size", ErrInvalidDescriptor, info.NormalizedName)
	}
	if opts.MinZoom > opts.MaxZoom {
		return InteractiveMap{}, fmt.Errorf("%w: interactive map %q has minZoom %d > maxZoom %d",
			ErrInvalidDescriptor, info.NormalizedName, opts.MinZoom, opts.MaxZoom)
	}
	layers := make([]Layer, len(opts.Layers))
	copy(layers, opts.Layers)
	var transform *[4]float64
	if opts.Transform != nil {
		t := *opts.Transform
		if t[0] == 0 || t[2] == 0 {
			return InteractiveMap{}, fmt.Errorf("%w: interactive map %q has a zero transform scale",
				ErrInvalidDescriptor, info.NormalizedName)
		}
		transform = &t
	}
	return InteractiveMap{
		MapInfo:            info,
		TileSize:           opts.TileSize,
		MinZoom:            opts.MinZoom,
		MaxZoom:            opts.MaxZoom,
		Transform:          transform,
		CoordinateRotation: opts.CoordinateRotation,
		TilePath:           opts.TilePath,
		Layers:             layers,
	}, nil
}

func (m InteractiveMap) Info() MapInfo        { return m.MapInfo }
func (m InteractiveMap) Kind() ProjectionKind { return ProjectionInteractive }
func (InteractiveMap) descriptor()            {}

// MapRecord is the flat wire shape of a map as served by the API and cached to disk.
type MapRecord struct {
	MapInfo
	Key                string    `json:"key,omitempty"`
	Projection         string    `json:"projection"`
	Image              string    `json:"image,omitempty"`
	TileSize           int       `json:"tileSize,omitempty"`
	MinZoom            int       `json:"minZoom,omitempty"`
	MaxZoom            int       `json:"maxZoom,omitempty"`
	Transform          []float64 `json:"transform,omitempty"`
	CoordinateRotation float64   `json:"coordinateRotation,omitempty"`
	MapPath            string    `json:"mapPath,omitempty"`
	Layers             []Layer   `json:"layers,omitempty"`
}

// Descriptor converts the record into its typed variant.
func (r MapRecord) Descriptor() (MapDescriptor, error) {
	info := r.MapInfo
	if info.NormalizedName == "" {
		info.NormalizedName = r.Key
	}

	switch ProjectionKind(r.Projection) {
	case ProjectionInteractive:
		opts := InteractiveOptions{
			TileSize:           r.TileSize,
			MinZoom:            r.MinZoom,
			MaxZoom:            r.MaxZoom,
			CoordinateRotation: r.CoordinateRotation,
			TilePath:           r.MapPath,
			Layers:             r.Layers,
		}
		if len(r.Transform) > 0 {
			if len(r.Transform) != 4 {
				return nil, fmt.Errorf("%w: map %q transform has %d values, want 4",
					ErrInvalidDescriptor, info.NormalizedName, len(r.Transform))
			}
			opts.Transform = &[4]float64{r.Transform[0], r.Transform[1], r.Transform[2], r.Transform[3]}
		}
		return NewInteractiveMap(info, opts)
	default:
		// anything that is not explicitly interactive renders as a static image
		return NewStaticMap(info, r.Image)
	}
}
