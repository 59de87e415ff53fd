// pkg/core/annotations.go
package core

import "slices"

// Position3D represents a 3D position in game engine units.
type Position3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Faction and category tags used by spawn annotations.
const (
	SideFriendly = "pmc"
	SideHostile  = "scav"
	SideAll      = "all"

	CategoryBoss = "boss"
)

// Marker is a named point of interest.
type Marker struct {
	Name     string     `json:"name"`
	Position Position3D `json:"position"`
}

// SpawnPoint is a spawn zone with the factions and categories that use it.
type SpawnPoint struct {
	ZoneName   string     `json:"zoneName"`
	Position   Position3D `json:"position"`
	Sides      []string   `json:"sides"`
	Categories []string   `json:"categories"`
}

// IsBoss reports whether the spawn is tagged as a boss spawn.
func (s SpawnPoint) IsBoss() bool {
	return slices.Contains(s.Categories, CategoryBoss)
}

// HasSide reports whether the spawn is used by the given faction tag.
func (s SpawnPoint) HasSide(side string) bool {
	return slices.Contains(s.Sides, side)
}

// AnnotationSet holds the markers and spawns annotated on one map.
type AnnotationSet struct {
	Markers []Marker     `json:"markers,omitempty"`
	Spawns  []SpawnPoint `json:"spawns,omitempty"`
}

// Empty reports whether the set carries no annotations at all.
func (a AnnotationSet) Empty() bool {
	return len(a.Markers) == 0 && len(a.Spawns) == 0
}

// Annotations maps normalized map names to their annotation set.
type Annotations map[string]AnnotationSet

// For returns the annotation set of a map; absent maps yield an empty set.
func (a Annotations) For(normalizedName string) AnnotationSet {
	if a == nil {
		return AnnotationSet{}
	}
	return a[normalizedName]
}
