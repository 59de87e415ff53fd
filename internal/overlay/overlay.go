// Package overlay builds the toggleable annotation groups drawn over an interactive map.
package overlay

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/tarkov-dev/site/internal/geo"
	"github.com/tarkov-dev/site/pkg/core"
)

// Group labels.
const (
	LabelMarkers = "Markers"
	LabelSpawns  = "Spawns"
)

// Spawn colors.
const (
	ColorDefault = "#3388ff"
	ColorHostile = "#ff3333"
	ColorBoss    = "#eb33ff"

	// ColorShared is applied to spawns used by all factions. Empty keeps the color picked
	// by the faction and boss rules.
	ColorShared = ""
)

// SpawnRadius is the radius of a spawn circle in world units.
const SpawnRadius = 5

// ItemKind is the kind of renderer object an item becomes.
type ItemKind string

const (
	KindMarker ItemKind = "marker"
	KindCircle ItemKind = "circle"
	KindTiles  ItemKind = "tiles"
)

// Item is one visual annotation inside a group.
type Item struct {
	Kind     ItemKind
	Point    geom.Point
	Popup    string
	Color    string
	Radius   float64
	URL      string
	TileSize int
}

type itemJSON struct {
	Kind     ItemKind    `json:"kind"`
	LatLng   *[2]float64 `json:"latlng,omitempty"`
	Popup    string      `json:"popup,omitempty"`
	Color    string      `json:"color,omitempty"`
	Radius   float64     `json:"radius,omitempty"`
	URL      string      `json:"url,omitempty"`
	TileSize int         `json:"tileSize,omitempty"`
}

// MarshalJSON encodes the item with its point as a renderer [row, col] pair.
func (i Item) MarshalJSON() ([]byte, error) {
	v := itemJSON{
		Kind:     i.Kind,
		Popup:    i.Popup,
		Color:    i.Color,
		Radius:   i.Radius,
		URL:      i.URL,
		TileSize: i.TileSize,
	}
	if !i.Point.IsEmpty() {
		row, col := geo.RowCol(i.Point)
		v.LatLng = &[2]float64{row, col}
	}
	return json.Marshal(v)
}

// Group is a named, independently toggleable set of items.
type Group struct {
	Label            string `json:"label"`
	VisibleByDefault bool   `json:"visible"`
	Items            []Item `json:"items"`
}

// Option configures Build.
type Option func(*config)

type config struct {
	annotations    bool
	markersVisible bool
	resolver       Resolver
}

// WithAnnotations enables or disables the marker and spawn groups.
func WithAnnotations(enabled bool) Option {
	return func(c *config) {
		c.annotations = enabled
	}
}

// WithMarkersVisible shows the marker group when the map is first drawn.
func WithMarkersVisible(visible bool) Option {
	return func(c *config) {
		c.markersVisible = visible
	}
}

// WithResolver sets the resolver used for auxiliary layer URLs.
func WithResolver(r Resolver) Option {
	return func(c *config) {
		c.resolver = r
	}
}

// Build returns the overlay groups of a map: markers, spawns, then auxiliary layers in
// declared order. Groups without items are left out.
func Build(m core.InteractiveMap, set core.AnnotationSet, opts ...Option) []Group {
	cfg := &config{annotations: true}
	for _, opt := range opts {
		opt(cfg)
	}

	var groups []Group

	if cfg.annotations {
		if g := markerGroup(m, set.Markers, cfg.markersVisible); len(g.Items) > 0 {
			groups = append(groups, g)
		}
		if g := spawnGroup(m, set.Spawns); len(g.Items) > 0 {
			groups = append(groups, g)
		}
	}

	for _, layer := range m.Layers {
		groups = append(groups, Group{
			Label:            layer.Name,
			VisibleByDefault: layer.Show,
			Items: []Item{{
				Kind:     KindTiles,
				URL:      cfg.resolver.Resolve(layer.Path),
				TileSize: m.TileSize,
			}},
		})
	}

	return groups
}

func markerGroup(m core.InteractiveMap, markers []core.Marker, visible bool) Group {
	g := Group{Label: LabelMarkers, VisibleByDefault: visible}
	for _, marker := range markers {
		g.Items = append(g.Items, Item{
			Kind:  KindMarker,
			Point: geo.DisplayPoint(marker.Position, m.CoordinateRotation),
			Popup: markerPopup(marker),
		})
	}
	return g
}

func markerPopup(marker core.Marker) string {
	pos, err := json.Marshal(marker.Position)
	if err != nil {
		pos = []byte(fmt.Sprintf("%v", marker.Position))
	}
	return html.EscapeString(marker.Name) + "<br>" + html.EscapeString(string(pos))
}

func spawnGroup(m core.InteractiveMap, spawns []core.SpawnPoint) Group {
	g := Group{Label: LabelSpawns, VisibleByDefault: true}
	for _, spawn := range spawns {
		color, bosses := SpawnColor(spawn, m.Bosses)
		g.Items = append(g.Items, Item{
			Kind:   KindCircle,
			Point:  geo.DisplayPoint(spawn.Position, m.CoordinateRotation),
			Popup:  spawnPopup(spawn, bosses),
			Color:  color,
			Radius: SpawnRadius,
		})
	}
	return g
}

// SpawnColor picks the circle color of a spawn and returns the bosses that use its zone.
// Boss spawns take precedence over hostile-only spawns.
func SpawnColor(spawn core.SpawnPoint, bosses []core.Boss) (string, []core.Boss) {
	color := ColorDefault
	if !spawn.HasSide(core.SideFriendly) && spawn.HasSide(core.SideHostile) {
		color = ColorHostile
	}

	var matched []core.Boss
	if spawn.IsBoss() {
		for _, boss := range bosses {
			if boss.SpawnsAt(spawn.ZoneName) {
				matched = append(matched, boss)
			}
		}
		if len(matched) > 0 {
			color = ColorBoss
		}
	}

	if spawn.HasSide(core.SideAll) && ColorShared != "" {
		color = ColorShared
	}

	return color, matched
}

func spawnPopup(spawn core.SpawnPoint, bosses []core.Boss) string {
	names := make([]string, len(bosses))
	for i, boss := range bosses {
		names[i] = boss.Name
	}
	parts := []string{
		spawn.ZoneName,
		strings.Join(names, ", "),
		strings.Join(spawn.Sides, ", "),
		strings.Join(spawn.Categories, ", "),
	}
	for i, p := range parts {
		parts[i] = html.EscapeString(p)
	}
	return strings.Join(parts, "<br>")
}
