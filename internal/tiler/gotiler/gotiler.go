// Package gotiler renders vector tiles in pure Go with paulmach/orb.
//
// Overlays are small hand-uploaded files, so tiles are cut on request from the
// in-memory collection instead of being baked into an archive ahead of time.
package gotiler

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/orb/simplify"

	"github.com/joeblew999/fra-atlas/internal/tiler"
)

// GoTiler implements tiler.Tiler using orb's mvt encoder.
type GoTiler struct{}

// New creates a new GoTiler.
func New() *GoTiler {
	return &GoTiler{}
}

// Name returns the engine name.
func (g *GoTiler) Name() string {
	return "go"
}

// Tile encodes the features of fc that touch t as a gzipped MVT with a single
// layer named layer.
func (g *GoTiler) Tile(layer string, fc *geojson.FeatureCollection, t maptile.Tile) ([]byte, error) {
	if fc == nil {
		return nil, nil
	}
	bound := t.Bound()

	clipped := geojson.NewFeatureCollection()
	for _, f := range fc.Features {
		if f.Geometry == nil || !intersects(f.Geometry, bound) {
			continue
		}
		// Clip and ProjectToTile mutate in place.
		geom := orb.Clone(f.Geometry)
		if geom == nil {
			continue
		}
		out := geojson.NewFeature(geom)
		out.ID = f.ID
		for k, v := range f.Properties {
			out.Properties[k] = v
		}
		clipped.Append(out)
	}
	if len(clipped.Features) == 0 {
		return nil, nil
	}

	l := mvt.NewLayer(layer, clipped)
	if eps := simplifyEpsilon(t.Z); eps > 0 {
		l.Simplify(simplify.DouglasPeucker(eps))
	}
	l.Clip(bound)
	l.ProjectToTile(t)
	l.RemoveEmpty(0.5, 0.5)
	if len(l.Features) == 0 {
		return nil, nil
	}

	data, err := mvt.MarshalGzipped(mvt.Layers{l})
	if err != nil {
		return nil, fmt.Errorf("encoding mvt: %w", err)
	}
	return data, nil
}

// intersects refines the bounding box test for point geometries.
func intersects(geom orb.Geometry, bound orb.Bound) bool {
	if !geom.Bound().Intersects(bound) {
		return false
	}

	switch g := geom.(type) {
	case orb.Point:
		return bound.Contains(g)

	case orb.MultiPoint:
		for _, p := range g {
			if bound.Contains(p) {
				return true
			}
		}
		return false

	case orb.MultiLineString:
		for _, ls := range g {
			if intersects(ls, bound) {
				return true
			}
		}
		return false

	case orb.Collection:
		for _, c := range g {
			if intersects(c, bound) {
				return true
			}
		}
		return false

	default:
		// Polygons and lines can cross a tile with no vertex inside it.
		// Clip and RemoveEmpty drop whatever ends up outside.
		return true
	}
}

// simplifyEpsilon is the Douglas-Peucker tolerance in degrees for a zoom.
// Claim parcels are small, so tolerances stay well under a parcel's width.
func simplifyEpsilon(zoom maptile.Zoom) float64 {
	switch {
	case zoom >= 14:
		return 0
	case zoom >= 10:
		return 0.00001
	case zoom >= 6:
		return 0.0001
	case zoom >= 4:
		return 0.0005
	default:
		return 0.001
	}
}

var _ tiler.Tiler = (*GoTiler)(nil)
