package mapview

import (
	"github.com/tarkov-dev/site/internal/geo"
	"github.com/tarkov-dev/site/internal/overlay"
)

// DefaultMount is the element id the tile renderer attaches to.
const DefaultMount = "leaflet-map"

// EngineOptions configures a new map-engine instance.
type EngineOptions struct {
	CRS             geo.PlanarCRS
	Center          [2]float64
	Zoom            int
	ScrollWheelZoom bool
}

// Engine is a live tile-renderer instance bound to a mount point.
type Engine interface {
	SetZoomBounds(min, max int)
	AddTileLayer(url string, tileSize int)
	AddOverlays(groups []overlay.Group)
	// SetOverlayVisible toggles an overlay group and reports whether the label exists.
	SetOverlayVisible(label string, visible bool) bool
	PanTo(row, col float64)
	Remove() error
}

// EngineFactory creates engines.
type EngineFactory interface {
	NewEngine(mount string, opts EngineOptions) (Engine, error)
}

// EngineFactoryFunc adapts a function to EngineFactory.
type EngineFactoryFunc func(mount string, opts EngineOptions) (Engine, error)

// NewEngine calls f.
func (f EngineFactoryFunc) NewEngine(mount string, opts EngineOptions) (Engine, error) {
	return f(mount, opts)
}
