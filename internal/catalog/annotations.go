package catalog

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tarkov-dev/site/pkg/core"
)

// LoadAnnotations reads a JSON object keyed by normalized map name. A missing path yields an
// empty set so maps simply render without annotations.
func LoadAnnotations(path string) (core.Annotations, error) {
	if path == "" {
		return core.Annotations{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read annotations: %w", err)
	}
	var a core.Annotations
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to parse annotations %s: %w", path, err)
	}
	if a == nil {
		a = core.Annotations{}
	}
	return a, nil
}

// AnnotationsFromMaps builds annotations from live map records. Maps without spawns or
// extracts are left out.
func AnnotationsFromMaps(maps []core.MapData) core.Annotations {
	a := make(core.Annotations, len(maps))
	for _, m := range maps {
		set := m.AnnotationSet()
		if set.Empty() {
			continue
		}
		a[m.NormalizedName] = set
	}
	return a
}

// MergeAnnotations combines annotation sources; for each map the first source that has
// an entry wins.
func MergeAnnotations(sources ...core.Annotations) core.Annotations {
	out := core.Annotations{}
	for _, src := range sources {
		for name, set := range src {
			if _, ok := out[name]; !ok {
				out[name] = set
			}
		}
	}
	return out
}
