package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapRecord_DescriptorInteractive(t *testing.T) {
	d, err := MapRecord{
		MapInfo:    MapInfo{NormalizedName: "customs"},
		Projection: "interactive",
		TileSize:   256,
		Transform:  []float64{0.239, 168.65, 0.239, 136.35},
	}.Descriptor()
	require.NoError(t, err)

	m, ok := d.(InteractiveMap)
	require.True(t, ok)
	assert.Equal(t, [4]float64{0.239, 168.65, 0.239, 136.35}, *m.Transform)
}

func TestMapRecord_DescriptorRejectsZeroScale(t *testing.T) {
	for _, transform := range [][]float64{
		{0, 168.65, 0.239, 136.35},
		{0.239, 168.65, 0, 136.35},
	} {
		_, err := MapRecord{
			MapInfo:    MapInfo{NormalizedName: "lighthouse"},
			Projection: "interactive",
			TileSize:   256,
			Transform:  transform,
		}.Descriptor()
		require.ErrorIs(t, err, ErrInvalidDescriptor, "%v", transform)
		assert.Contains(t, err.Error(), "zero transform scale")
	}
}

func TestNewInteractiveMap_NilTransform(t *testing.T) {
	m, err := NewInteractiveMap(MapInfo{NormalizedName: "woods"}, InteractiveOptions{TileSize: 256})
	require.NoError(t, err)
	assert.Nil(t, m.Transform)
}
