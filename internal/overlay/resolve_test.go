package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tarkov-dev/site/pkg/core"
)

func TestResolver_BaseTilesDefaultTemplate(t *testing.T) {
	r := Resolver{}
	m := core.InteractiveMap{MapInfo: core.MapInfo{NormalizedName: "woods"}}

	assert.Equal(t, "https://assets.tarkov.dev/maps/woods/{z}/{x}/{y}.png", r.BaseTiles(m))
}

func TestResolver_BaseTilesExplicitPath(t *testing.T) {
	r := Resolver{AssetOrigin: "https://assets.example.com"}
	m := core.InteractiveMap{
		MapInfo:  core.MapInfo{NormalizedName: "woods"},
		TilePath: "https://tiles.example.com/woods/{z}/{x}/{y}.png",
	}

	assert.Equal(t, "https://tiles.example.com/woods/{z}/{x}/{y}.png", r.BaseTiles(m))
}

func TestResolver_Resolve(t *testing.T) {
	r := Resolver{AssetOrigin: "https://assets.example.com/"}

	assert.Equal(t, "", r.Resolve(""))
	assert.Equal(t, "https://assets.example.com/maps/a.png", r.Resolve("/maps/a.png"))
	assert.Equal(t, "https://assets.example.com/maps/a.png", r.Resolve("maps/a.png"))
	assert.Equal(t, "http://other/x.png", r.Resolve("http://other/x.png"))
}
