package geo

import (
	"math"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/tarkov-dev/site/pkg/core"
)

// DISPLAY COORDINATES
// The game engine places the ground plane on (x, z) with y pointing up. The display plane of
// the tile renderer is addressed as (row, col), so every engine position is axis swapped and,
// for maps whose tiles were rendered rotated, rotated counter-clockwise first.

// ToDisplay converts engine (x, z) to display (row, col), rotating by rotationDegrees first
// when it is non-zero.
func ToDisplay(x, z, rotationDegrees float64) (row, col float64) {
	if rotationDegrees == 0 {
		return z, x
	}
	theta := rotationDegrees * math.Pi / 180
	sin, cos := math.Sincos(theta)

	rotatedX := x*cos - z*sin
	rotatedZ := x*sin + z*cos
	return rotatedZ, rotatedX
}

// DisplayPoint converts an engine position to a display point (X = col, Y = row). A
// non-finite position yields an empty point.
func DisplayPoint(pos core.Position3D, rotationDegrees float64) geom.Point {
	row, col := ToDisplay(pos.X, pos.Z, rotationDegrees)
	p, err := geom.XY{X: col, Y: row}.AsPoint()
	if err != nil {
		return geom.Point{}
	}
	return p
}

// RowCol extracts (row, col) from a display point. Empty points yield the origin.
func RowCol(p geom.Point) (row, col float64) {
	xy, ok := p.XY()
	if !ok {
		return 0, 0
	}
	return xy.Y, xy.X
}
