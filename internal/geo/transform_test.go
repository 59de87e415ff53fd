package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarkov-dev/site/pkg/core"
)

const tolerance = 1e-9

func TestToDisplay_NoRotationSwapsAxes(t *testing.T) {
	cases := []struct{ x, z float64 }{
		{0, 0},
		{100.5, -200.25},
		{-13, 42},
		{1e6, -1e-6},
	}
	for _, tc := range cases {
		row, col := ToDisplay(tc.x, tc.z, 0)
		assert.Equal(t, tc.z, row)
		assert.Equal(t, tc.x, col)
	}
}

func TestToDisplay_QuarterTurn(t *testing.T) {
	// (1, 0) rotated 90° counter-clockwise is (0, 1)
	row, col := ToDisplay(1, 0, 90)
	assert.InDelta(t, 1, row, tolerance)
	assert.InDelta(t, 0, col, tolerance)
}

func TestToDisplay_HalfTurn(t *testing.T) {
	row, col := ToDisplay(3, 4, 180)
	assert.InDelta(t, -4, row, tolerance)
	assert.InDelta(t, -3, col, tolerance)
}

func TestToDisplay_RotationRoundTrip(t *testing.T) {
	angles := []float64{15, 45, 90, 180, 270, -33.3, 359}
	points := []struct{ x, z float64 }{
		{0, 0},
		{12.5, -7},
		{-450, 380.25},
		{1, 1},
	}
	for _, theta := range angles {
		for _, p := range points {
			row, col := ToDisplay(p.x, p.z, theta)
			backRow, backCol := ToDisplay(col, row, -theta)
			assert.InDelta(t, p.z, backRow, 1e-6, "row, theta=%v", theta)
			assert.InDelta(t, p.x, backCol, 1e-6, "col, theta=%v", theta)
		}
	}
}

func TestToDisplay_Deterministic(t *testing.T) {
	row1, col1 := ToDisplay(123.4, -56.7, 33)
	row2, col2 := ToDisplay(123.4, -56.7, 33)
	assert.Equal(t, row1, row2)
	assert.Equal(t, col1, col2)
}

func TestDisplayPoint(t *testing.T) {
	p := DisplayPoint(core.Position3D{X: 10, Y: 99, Z: -20}, 0)

	xy, ok := p.XY()
	require.True(t, ok)
	assert.Equal(t, 10.0, xy.X, "X carries the display column")
	assert.Equal(t, -20.0, xy.Y, "Y carries the display row")

	row, col := RowCol(p)
	assert.Equal(t, -20.0, row)
	assert.Equal(t, 10.0, col)
}

func TestDisplayPoint_NonFiniteIsEmpty(t *testing.T) {
	p := DisplayPoint(core.Position3D{X: math.NaN(), Z: 5}, 0)
	assert.True(t, p.IsEmpty())

	row, col := RowCol(p)
	assert.Zero(t, row)
	assert.Zero(t, col)
}
