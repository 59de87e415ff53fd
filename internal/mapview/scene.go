package mapview

import (
	"errors"
	"sync"

	"github.com/tarkov-dev/site/internal/geo"
	"github.com/tarkov-dev/site/internal/overlay"
)

// ErrEngineRemoved is returned when a removed scene engine is removed again.
var ErrEngineRemoved = errors.New("engine already removed")

// TileLayer is a base tile layer of a scene.
type TileLayer struct {
	URL      string `json:"url"`
	TileSize int    `json:"tileSize"`
}

// LegendEntry is one toggleable overlay of the layer legend.
type LegendEntry struct {
	overlay.Group
	Visible bool `json:"shown"`
}

// Legend is the layer-toggle control.
type Legend struct {
	Position string        `json:"position"`
	Overlays []LegendEntry `json:"overlays"`
}

// Scene is the document the browser-side renderer draws. It is what a SceneEngine
// accumulates while the controller configures it.
type Scene struct {
	Mount              string        `json:"mount"`
	CRS                geo.PlanarCRS `json:"crs"`
	Center             [2]float64    `json:"center"`
	Zoom               int           `json:"zoom"`
	MinZoom            int           `json:"minZoom"`
	MaxZoom            int           `json:"maxZoom"`
	ScrollWheelZoom    bool          `json:"scrollWheelZoom"`
	AttributionControl bool          `json:"attributionControl"`
	BaseLayers         []TileLayer   `json:"baseLayers"`
	Legend             Legend        `json:"legend"`
}

// SceneProvider is implemented by engines that can describe what they render.
type SceneProvider interface {
	Scene() Scene
}

// SceneEngine is the server-side engine: it records the scene for the browser renderer.
type SceneEngine struct {
	mu      sync.Mutex
	scene   Scene
	removed bool
}

// NewSceneEngine creates a scene engine for a mount point.
func NewSceneEngine(mount string, opts EngineOptions) *SceneEngine {
	return &SceneEngine{scene: Scene{
		Mount:           mount,
		CRS:             opts.CRS,
		Center:          opts.Center,
		Zoom:            opts.Zoom,
		ScrollWheelZoom: opts.ScrollWheelZoom,
		Legend:          Legend{Position: "topleft"},
	}}
}

// SceneFactory creates SceneEngines.
type SceneFactory struct{}

// NewEngine implements EngineFactory.
func (SceneFactory) NewEngine(mount string, opts EngineOptions) (Engine, error) {
	return NewSceneEngine(mount, opts), nil
}

func (e *SceneEngine) SetZoomBounds(min, max int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return
	}
	e.scene.MinZoom = min
	e.scene.MaxZoom = max
	// keep the current zoom inside the new bounds
	e.scene.Zoom = clamp(e.scene.Zoom, min, max)
}

func (e *SceneEngine) AddTileLayer(url string, tileSize int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return
	}
	e.scene.BaseLayers = append(e.scene.BaseLayers, TileLayer{URL: url, TileSize: tileSize})
}

func (e *SceneEngine) AddOverlays(groups []overlay.Group) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return
	}
	for _, g := range groups {
		e.scene.Legend.Overlays = append(e.scene.Legend.Overlays, LegendEntry{Group: g, Visible: g.VisibleByDefault})
	}
}

func (e *SceneEngine) SetOverlayVisible(label string, visible bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return false
	}
	for i := range e.scene.Legend.Overlays {
		if e.scene.Legend.Overlays[i].Label == label {
			e.scene.Legend.Overlays[i].Visible = visible
			return true
		}
	}
	return false
}

func (e *SceneEngine) PanTo(row, col float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return
	}
	e.scene.Center = [2]float64{row, col}
}

// Remove marks the engine as disposed. Further mutations are ignored.
func (e *SceneEngine) Remove() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return ErrEngineRemoved
	}
	e.removed = true
	return nil
}

// Removed reports whether Remove has been called.
func (e *SceneEngine) Removed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.removed
}

// Scene returns a copy of the recorded scene.
func (e *SceneEngine) Scene() Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.scene
	s.BaseLayers = append([]TileLayer(nil), e.scene.BaseLayers...)
	s.Legend.Overlays = append([]LegendEntry(nil), e.scene.Legend.Overlays...)
	return s
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
