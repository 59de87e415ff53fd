package geo

import (
	"encoding/json"
	"math"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/tarkov-dev/site/pkg/core"
)

// PlanarCRS is a flat, linear coordinate reference system. The tile renderer defaults to a
// spherical web projection, which distorts game maps, so tiled maps use this instead.
type PlanarCRS struct {
	ScaleX  float64
	MarginX float64
	ScaleY  float64
	MarginY float64
}

// BuildProjection builds the planar CRS of an interactive map from its transform.
// The transform is [scaleX, marginX, scaleY, marginY] in engine orientation; the vertical
// scale is negated because the display plane's vertical axis points down.
func BuildProjection(m core.InteractiveMap) PlanarCRS {
	return projectionFromTransform(m.Transform)
}

func projectionFromTransform(transform *[4]float64) PlanarCRS {
	crs := PlanarCRS{ScaleX: 1, ScaleY: 1}
	if transform == nil {
		return crs
	}
	crs.ScaleX = transform[0]
	crs.MarginX = transform[1]
	crs.ScaleY = transform[2] * -1
	crs.MarginY = transform[3]
	return crs
}

// Transform maps a world point to pixel space at the given zoom scale.
func (c PlanarCRS) Transform(p geom.XY, scale float64) geom.XY {
	return geom.XY{
		X: scale * (c.ScaleX*p.X + c.MarginX),
		Y: scale * (c.ScaleY*p.Y + c.MarginY),
	}
}

// Untransform is the inverse of Transform.
func (c PlanarCRS) Untransform(p geom.XY, scale float64) geom.XY {
	return geom.XY{
		X: (p.X/scale - c.MarginX) / c.ScaleX,
		Y: (p.Y/scale - c.MarginY) / c.ScaleY,
	}
}

// Project maps a display (row, col) to pixel space at a zoom level.
// The simple CRS treats col as x and row as y with a zoom scale of 2^zoom.
func (c PlanarCRS) Project(row, col float64, zoom int) geom.XY {
	return c.Transform(geom.XY{X: col, Y: row}, ZoomScale(zoom))
}

// ZoomScale returns the pixel scale factor of a zoom level.
func ZoomScale(zoom int) float64 {
	return math.Pow(2, float64(zoom))
}

// Transformation returns the coefficients in renderer order (a, b, c, d).
func (c PlanarCRS) Transformation() [4]float64 {
	return [4]float64{c.ScaleX, c.MarginX, c.ScaleY, c.MarginY}
}

type crsJSON struct {
	Code           string     `json:"code"`
	Transformation [4]float64 `json:"transformation"`
}

// MarshalJSON encodes the CRS in the shape the browser renderer expects.
func (c PlanarCRS) MarshalJSON() ([]byte, error) {
	return json.Marshal(crsJSON{Code: "simple", Transformation: c.Transformation()})
}

// UnmarshalJSON decodes a CRS produced by MarshalJSON.
func (c *PlanarCRS) UnmarshalJSON(data []byte) error {
	var v crsJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	c.ScaleX, c.MarginX, c.ScaleY, c.MarginY = v.Transformation[0], v.Transformation[1], v.Transformation[2], v.Transformation[3]
	return nil
}
