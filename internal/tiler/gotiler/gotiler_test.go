package gotiler

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/fra-atlas/internal/tiler"
)

func parcel() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	f := geojson.NewFeature(orb.Polygon{{
		{77.90, 23.40}, {78.00, 23.40}, {78.00, 23.50}, {77.90, 23.50}, {77.90, 23.40},
	}})
	f.Properties["claim_id"] = "MP-001"
	fc.Append(f)
	return fc
}

func TestTileContainsFeature(t *testing.T) {
	tile := maptile.At(orb.Point{77.95, 23.45}, 10)
	data, err := New().Tile("claims", parcel(), tile)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	layers, err := mvt.UnmarshalGzipped(data)
	require.NoError(t, err)
	require.Len(t, layers, 1)
	assert.Equal(t, "claims", layers[0].Name)
	require.Len(t, layers[0].Features, 1)
	assert.Equal(t, "MP-001", layers[0].Features[0].Properties["claim_id"])
}

func TestTileEmpty(t *testing.T) {
	tile := maptile.At(orb.Point{0, 0}, 10)
	data, err := New().Tile("claims", parcel(), tile)
	require.NoError(t, err)
	assert.Nil(t, data)

	data, err = New().Tile("claims", nil, tile)
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestTileDoesNotMutateSource(t *testing.T) {
	fc := parcel()
	before := orb.Clone(fc.Features[0].Geometry)
	tile := maptile.At(orb.Point{77.95, 23.45}, 12)

	_, err := New().Tile("claims", fc, tile)
	require.NoError(t, err)
	assert.Equal(t, before, fc.Features[0].Geometry)
}

func TestIntersects(t *testing.T) {
	bound := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}}
	big := orb.Polygon{{{-5, -5}, {5, -5}, {5, 5}, {-5, 5}, {-5, -5}}}

	assert.True(t, intersects(orb.Point{0.5, 0.5}, bound))
	assert.False(t, intersects(orb.Point{2, 2}, bound))
	assert.True(t, intersects(big, bound), "polygon covering the tile")
	assert.True(t, intersects(orb.MultiPolygon{big}, bound))
}

func TestTilePolygonCrossingTile(t *testing.T) {
	tile := maptile.New(700, 450, 10)
	b := tile.Bound()
	w, h := b.Max[0]-b.Min[0], b.Max[1]-b.Min[1]

	// A strip spanning the tile with no vertex inside it and covering
	// neither a corner nor the centre.
	y0, y1 := b.Min[1]+0.24*h, b.Min[1]+0.26*h
	strip := orb.Polygon{{
		{b.Min[0] - w, y0}, {b.Max[0] + w, y0}, {b.Max[0] + w, y1}, {b.Min[0] - w, y1}, {b.Min[0] - w, y0},
	}}
	fc := geojson.NewFeatureCollection()
	f := geojson.NewFeature(strip)
	f.Properties["claim_id"] = "TR-010"
	fc.Append(f)

	data, err := New().Tile("claims", fc, tile)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	layers, err := mvt.UnmarshalGzipped(data)
	require.NoError(t, err)
	require.Len(t, layers, 1)
	require.Len(t, layers[0].Features, 1)
	assert.Equal(t, "TR-010", layers[0].Features[0].Properties["claim_id"])
}

func TestCacheRendersOnce(t *testing.T) {
	c := tiler.NewCache(New(), 10, nil)
	tile := maptile.At(orb.Point{77.95, 23.45}, 10)

	calls := 0
	fc := func() *geojson.FeatureCollection {
		calls++
		return parcel()
	}
	a, err := c.Tile("claims", fc, tile)
	require.NoError(t, err)
	b, err := c.Tile("claims", fc, tile)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, 1, calls)
	hits, renders := c.Stats()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, renders)

	c.Forget("claims")
	_, err = c.Tile("claims", fc, tile)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}
