// Package tiler renders overlay layers as Mapbox vector tiles on demand.
package tiler

import (
	"errors"
	"fmt"
	"sync"

	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
	"go.uber.org/zap"
)

// MaxZoom is the deepest zoom a tile may be requested at.
const MaxZoom = 22

// ErrInvalidTile is returned for coordinates outside the tile pyramid.
var ErrInvalidTile = errors.New("invalid tile")

// Tiler renders one tile of a feature collection. An empty tile is returned as
// nil bytes and no error.
type Tiler interface {
	Name() string
	Tile(layer string, fc *geojson.FeatureCollection, t maptile.Tile) ([]byte, error)
}

// ParseTile validates z/x/y and returns the tile.
func ParseTile(z, x, y int) (maptile.Tile, error) {
	if z < 0 || z > MaxZoom {
		return maptile.Tile{}, fmt.Errorf("%w: zoom %d", ErrInvalidTile, z)
	}
	n := 1 << z
	if x < 0 || x >= n || y < 0 || y >= n {
		return maptile.Tile{}, fmt.Errorf("%w: %d/%d/%d", ErrInvalidTile, z, x, y)
	}
	return maptile.New(uint32(x), uint32(y), maptile.Zoom(z)), nil
}

type cacheKey struct {
	layer string
	tile  maptile.Tile
}

// Cache memoizes tiles per layer. Layers never change after upload, so entries
// stay valid until the layer is forgotten.
type Cache struct {
	mu      sync.Mutex
	tiler   Tiler
	tiles   map[cacheKey][]byte
	max     int
	log     *zap.Logger
	hits    int
	renders int
}

// NewCache wraps t, keeping at most max tiles. When full the cache is reset.
func NewCache(t Tiler, max int, log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{tiler: t, tiles: map[cacheKey][]byte{}, max: max, log: log}
}

// Tile returns the cached tile or renders it. fc is only called on a miss.
func (c *Cache) Tile(layer string, fc func() *geojson.FeatureCollection, t maptile.Tile) ([]byte, error) {
	key := cacheKey{layer: layer, tile: t}

	c.mu.Lock()
	if data, ok := c.tiles[key]; ok {
		c.hits++
		c.mu.Unlock()
		return data, nil
	}
	c.mu.Unlock()

	data, err := c.tiler.Tile(layer, fc(), t)
	if err != nil {
		return nil, fmt.Errorf("rendering %s tile %d/%d/%d: %w", layer, t.Z, t.X, t.Y, err)
	}

	c.mu.Lock()
	if c.max > 0 && len(c.tiles) >= c.max {
		c.log.Debug("tile cache reset", zap.Int("entries", len(c.tiles)))
		c.tiles = map[cacheKey][]byte{}
	}
	c.tiles[key] = data
	c.renders++
	c.mu.Unlock()
	return data, nil
}

// Forget drops every cached tile of layer.
func (c *Cache) Forget(layer string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.tiles {
		if k.layer == layer {
			delete(c.tiles, k)
		}
	}
}

// Stats reports cache hits and renders so far.
func (c *Cache) Stats() (hits, renders int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.renders
}
