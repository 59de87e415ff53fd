// pkg/core/mapdata.go
package core

// MapData is the live map record returned by the API. It carries the boss
// encounters and spawn zones that the static map catalog does not.
type MapData struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	NormalizedName string       `json:"normalizedName"`
	Description    string       `json:"description,omitempty"`
	RaidDuration   int          `json:"raidDuration,omitempty"`
	Players        string       `json:"players,omitempty"`
	Bosses         []Boss       `json:"bosses,omitempty"`
	Spawns         []SpawnPoint `json:"spawns,omitempty"`
	Extracts       []Marker     `json:"extracts,omitempty"`
}

// AnnotationSet returns the markers and spawns carried by the record.
func (m MapData) AnnotationSet() AnnotationSet {
	return AnnotationSet{Markers: m.Extracts, Spawns: m.Spawns}
}
