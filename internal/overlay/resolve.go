package overlay

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/tarkov-dev/site/pkg/core"
)

// DefaultAssetOrigin serves map tiles and images.
const DefaultAssetOrigin = "https://assets.tarkov.dev"

// Resolver turns asset paths into absolute URLs.
type Resolver struct {
	AssetOrigin string
}

// Resolve returns path unchanged when it is already absolute, otherwise joins it to the
// asset origin.
func (r Resolver) Resolve(path string) string {
	if path == "" {
		return ""
	}
	if u, err := url.Parse(path); err == nil && u.IsAbs() {
		return path
	}
	return r.origin() + "/" + strings.TrimLeft(path, "/")
}

// BaseTiles returns the base tile URL template of a map. The template keeps the {z}, {x}
// and {y} placeholders for the renderer.
func (r Resolver) BaseTiles(m core.InteractiveMap) string {
	if m.TilePath != "" {
		return r.Resolve(m.TilePath)
	}
	return fmt.Sprintf("%s/maps/%s/{z}/{x}/{y}.png", r.origin(), m.NormalizedName)
}

func (r Resolver) origin() string {
	if r.AssetOrigin == "" {
		return DefaultAssetOrigin
	}
	return strings.TrimRight(r.AssetOrigin, "/")
}
