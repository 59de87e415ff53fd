// Package mapview resolves map identifiers to renderable views and owns the lifecycle of the
// tile-renderer engine behind an interactive view.
package mapview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/tarkov-dev/site/internal/geo"
	"github.com/tarkov-dev/site/internal/overlay"
	"github.com/tarkov-dev/site/pkg/core"
)

// ErrUnresolvedMap is recorded on the fallback view when no catalog entry matches.
var ErrUnresolvedMap = errors.New("unresolved map")

// ErrNoInteractiveView is returned by operations that need a live engine.
var ErrNoInteractiveView = errors.New("no interactive view")

// ErrNoStaticView is returned by pan/zoom updates outside of a static view.
var ErrNoStaticView = errors.New("no static view")

// ErrUnknownOverlay is returned when toggling a label the legend does not have.
var ErrUnknownOverlay = errors.New("unknown overlay")

// Game and site names used in page titles.
const (
	GameTitle = "Escape from Tarkov"
	SiteTitle = "Tarkov.dev"
)

// Initial view of an interactive map.
const (
	initialZoom = 2
	wheelStep   = 0.1
)

// State is the view state of a controller.
type State int

const (
	NoMap State = iota
	StaticView
	InteractiveView
)

func (s State) String() string {
	switch s {
	case StaticView:
		return "static"
	case InteractiveView:
		return "interactive"
	default:
		return "none"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "static":
		*s = StaticView
	case "interactive":
		*s = InteractiveView
	case "none":
		*s = NoMap
	default:
		return fmt.Errorf("unknown view state %q", text)
	}
	return nil
}

// Catalog resolves map identifiers.
type Catalog interface {
	Lookup(id string) (core.MapDescriptor, bool)
}

// Dependencies holds all dependencies for a controller.
type Dependencies struct {
	Catalog     Catalog
	Annotations core.Annotations
	Engines     EngineFactory
	Logger      *slog.Logger
}

// Options configures how views are built.
type Options struct {
	Resolver        overlay.Resolver
	PublicURL       string
	SiteOrigin      string
	ShowAnnotations bool
	MarkersVisible  bool
	Mount           string
}

// Metadata is the title/description block of a view.
type Metadata struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	Card        string `json:"card"`
	DisplayText string `json:"displayText"`
	Duration    string `json:"duration,omitempty"`
	Players     string `json:"players,omitempty"`
	Author      string `json:"author,omitempty"`
	AuthorLink  string `json:"authorLink,omitempty"`
}

// StaticImage is the pan/zoom wrapped image of a static view.
type StaticImage struct {
	URL          string  `json:"url"`
	Alt          string  `json:"alt"`
	InitialScale float64 `json:"initialScale"`
	CenterOnInit bool    `json:"centerOnInit"`
	WheelStep    float64 `json:"wheelStep"`
}

// View is the render output of a controller.
type View struct {
	State    State         `json:"state"`
	Error    string        `json:"error,omitempty"`
	Meta     *Metadata     `json:"meta,omitempty"`
	Static   *StaticImage  `json:"static,omitempty"`
	Scene    *Scene        `json:"scene,omitempty"`
	Viewport ViewportState `json:"viewport"`
}

// JSON encodes the view.
func (v View) JSON() ([]byte, error) {
	return json.Marshal(v)
}

// Controller is the map view state machine. Each Navigate re-enters a state from scratch.
type Controller struct {
	mu sync.Mutex

	deps Dependencies
	opts Options
	log  *slog.Logger

	state    State
	resolved core.MapDescriptor
	failure  error
	viewport ViewportState
	slot     *Slot

	navigations     metric.Int64Counter
	enginesCreated  metric.Int64Counter
	enginesDisposed metric.Int64Counter
}

// New creates a controller in the NoMap state.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(deps Dependencies, opts Options) (*Controller, error) {
	if deps.Catalog == nil {
		return nil, errors.New("mapview: catalog is required")
	}
	if deps.Engines == nil {
		deps.Engines = SceneFactory{}
	}
	if opts.Mount == "" {
		opts.Mount = DefaultMount
	}

	c := &Controller{
		deps: deps,
		opts: opts,
		log:  deps.Logger,
	}
	if c.log == nil {
		c.log = slog.Default()
	}

	m := meter()
	var err error
	c.navigations, err = m.Int64Counter(
		"mapview.navigations",
		metric.WithDescription("Total map navigations by resulting view state"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating navigations counter: %w", err)
	}
	c.enginesCreated, err = m.Int64Counter(
		"mapview.engines.created",
		metric.WithDescription("Total map engines created"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating engines created counter: %w", err)
	}
	c.enginesDisposed, err = m.Int64Counter(
		"mapview.engines.disposed",
		metric.WithDescription("Total map engines disposed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating engines disposed counter: %w", err)
	}

	c.slot = NewSlot(opts.Mount, SlotHooks{
		OnAcquire: func(Engine) {
			c.enginesCreated.Add(context.Background(), 1)
		},
		OnDispose: func(_ Engine, err error) {
			c.enginesDisposed.Add(context.Background(), 1)
			if err != nil {
				c.log.Warn("engine removal failed", "mount", opts.Mount, "error", err)
			}
		},
	})

	return c, nil
}

// State returns the current view state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Engine returns the live engine of an interactive view, or nil.
func (c *Controller) Engine() Engine {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slot.Engine()
}

// Navigate resolves id against the catalog and enters the matching state. An unresolved id
// yields the fallback view, not an error; errors come only from engine creation.
func (c *Controller) Navigate(id string) (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	height := c.viewport.Height
	c.viewport = ViewportState{MapID: id, Height: height, PanZoom: InitialPanZoom}
	c.resolved = nil
	c.failure = nil

	descriptor, ok := c.deps.Catalog.Lookup(id)
	if !ok {
		c.disposeLocked()
		c.enter(NoMap)
		c.log.Debug("map not found", "map", id)
		return c.viewLocked(), nil
	}
	c.resolved = descriptor

	switch d := descriptor.(type) {
	case core.InteractiveMap:
		if err := c.enterInteractive(d); err != nil {
			c.resolved = nil
			c.failure = err
			c.enter(NoMap)
			return c.viewLocked(), err
		}
		c.enter(InteractiveView)
	case core.StaticMap:
		c.disposeLocked()
		c.enter(StaticView)
	default:
		c.disposeLocked()
		c.resolved = nil
		c.enter(NoMap)
		c.log.Warn("unsupported descriptor", "map", id, "type", fmt.Sprintf("%T", descriptor))
	}

	return c.viewLocked(), nil
}

func (c *Controller) enter(s State) {
	c.state = s
	c.navigations.Add(context.Background(), 1, metric.WithAttributes(attribute.String("state", s.String())))
}

func (c *Controller) enterInteractive(m core.InteractiveMap) error {
	engine, err := c.slot.Acquire(c.deps.Engines, EngineOptions{
		CRS:             geo.BuildProjection(m),
		Center:          [2]float64{0, 0},
		Zoom:            initialZoom,
		ScrollWheelZoom: true,
	})
	if err != nil {
		return fmt.Errorf("map %q: %w", m.NormalizedName, err)
	}

	engine.SetZoomBounds(m.MinZoom, m.MaxZoom)
	engine.AddTileLayer(c.opts.Resolver.BaseTiles(m), m.TileSize)

	groups := overlay.Build(m, c.deps.Annotations.For(m.NormalizedName),
		overlay.WithAnnotations(c.opts.ShowAnnotations),
		overlay.WithMarkersVisible(c.opts.MarkersVisible),
		overlay.WithResolver(c.opts.Resolver),
	)
	engine.AddOverlays(groups)

	c.viewport.Overlays = make(map[string]bool, len(groups))
	for _, g := range groups {
		c.viewport.Overlays[g.Label] = g.VisibleByDefault
	}

	// world origin
	row, col := geo.ToDisplay(0, 0, m.CoordinateRotation)
	engine.PanTo(row, col)

	c.log.Debug("interactive view ready", "map", m.NormalizedName, "overlays", len(groups))
	return nil
}

// Resize recomputes the map pane height from the window and navigation bar heights.
func (c *Controller) Resize(windowHeight, navBarHeight int) View {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.viewport.Height = ViewableHeight(windowHeight, navBarHeight)
	return c.viewLocked()
}

// Toggle shows or hides an overlay group of the interactive view.
func (c *Controller) Toggle(label string, visible bool) (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	engine := c.slot.Engine()
	if c.state != InteractiveView || engine == nil {
		return c.viewLocked(), ErrNoInteractiveView
	}
	if !engine.SetOverlayVisible(label, visible) {
		return c.viewLocked(), fmt.Errorf("%w: %q", ErrUnknownOverlay, label)
	}
	c.viewport.Overlays[label] = visible
	return c.viewLocked(), nil
}

// SetPanZoom records the pan/zoom transform of the static view.
func (c *Controller) SetPanZoom(pz PanZoom) (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StaticView {
		return c.viewLocked(), ErrNoStaticView
	}
	if pz.Scale <= 0 {
		return c.viewLocked(), fmt.Errorf("invalid scale %v", pz.Scale)
	}
	c.viewport.PanZoom = pz
	return c.viewLocked(), nil
}

// View returns the current render output.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Close disposes the engine and resets the viewport. The controller can navigate again
// afterwards.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.disposeLocked()
	c.state = NoMap
	c.resolved = nil
	c.failure = nil
	c.viewport = ViewportState{}
	return err
}

func (c *Controller) disposeLocked() error {
	return c.slot.Dispose()
}

func (c *Controller) viewLocked() View {
	v := View{State: c.state, Viewport: c.viewport}
	v.Viewport.Overlays = copyOverlays(c.viewport.Overlays)

	if c.resolved == nil {
		v.State = NoMap
		v.Error = ErrUnresolvedMap.Error()
		if c.failure != nil {
			v.Error = c.failure.Error()
		}
		return v
	}

	meta := c.metadata(c.resolved.Info())
	v.Meta = &meta

	switch d := c.resolved.(type) {
	case core.StaticMap:
		v.Static = &StaticImage{
			URL:          c.opts.PublicURL + d.ImagePath,
			Alt:          d.DisplayText + " Map",
			InitialScale: InitialPanZoom.Scale,
			CenterOnInit: true,
			WheelStep:    wheelStep,
		}
	case core.InteractiveMap:
		if sp, ok := c.slot.Engine().(SceneProvider); ok {
			scene := sp.Scene()
			v.Scene = &scene
		}
	}
	return v
}

func (c *Controller) metadata(info core.MapInfo) Metadata {
	meta := Metadata{
		Title:       fmt.Sprintf("%s - %s - %s", info.DisplayText, GameTitle, SiteTitle),
		Description: info.Description,
		Card:        "summary_large_image",
		DisplayText: info.DisplayText,
		Duration:    info.Duration,
		Players:     info.Players,
		Author:      info.Author,
		AuthorLink:  info.AuthorLink,
	}
	if info.ImageThumb != "" {
		meta.Image = c.opts.SiteOrigin + c.opts.PublicURL + info.ImageThumb
	}
	return meta
}

func copyOverlays(in map[string]bool) map[string]bool {
	if in == nil {
		return nil
	}
	out := make(map[string]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
