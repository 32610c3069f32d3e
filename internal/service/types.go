// Package service contains the in-memory state of the atlas: the layer store,
// the map view and the Smart Help panel selection.
package service

import (
	"time"

	"github.com/joeblew999/fra-atlas/internal/geo"
	"github.com/joeblew999/fra-atlas/internal/rules"
)

// LatLng is a [latitude, longitude] pair, the order Leaflet expects.
type LatLng [2]float64

// Layer is an uploaded overlay. Data is never mutated after the layer is
// created; replacing a layer means adding a new one and removing the old.
type Layer struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	FileName  string          `json:"fileName"`
	Color     string          `json:"color"`
	CreatedAt time.Time       `json:"createdAt"`
	Data      *geo.Collection `json:"-"`
}

// Input adapts the layer for the smart rules.
func (l Layer) Input() *rules.Input {
	return &rules.Input{Name: l.Name, Data: l.Data}
}

// Info summarizes the layer without its features.
func (l Layer) Info() LayerInfo {
	info := LayerInfo{
		ID:        l.ID,
		Name:      l.Name,
		FileName:  l.FileName,
		Color:     l.Color,
		Features:  l.Data.Len(),
		CreatedAt: l.CreatedAt,
	}
	if b, ok := l.Data.Bound(); ok {
		info.Bounds = &[2]LatLng{{b.Min.Lat(), b.Min.Lon()}, {b.Max.Lat(), b.Max.Lon()}}
	}
	return info
}

// LayerInfo is the API view of a Layer.
type LayerInfo struct {
	ID        string     `json:"id" doc:"Unique layer identifier" example:"claims.geojson-1718000000000" card:"id"`
	Name      string     `json:"name" doc:"Display name, file name without .geojson" example:"claims" card:"title"`
	FileName  string     `json:"fileName" doc:"Uploaded file name" example:"claims.geojson" card:"meta"`
	Color     string     `json:"color" doc:"Overlay color (CSS)" example:"hsl(152 70% 45%)"`
	Features  int        `json:"features" doc:"Number of features" card:"badge"`
	CreatedAt time.Time  `json:"createdAt" doc:"Upload time"`
	Bounds    *[2]LatLng `json:"bounds,omitempty" doc:"South-west and north-east corners of decodable geometries"`
}

// FocusRegion is a fixed, named area the map can be centered on.
type FocusRegion struct {
	Name   string     `json:"name" doc:"Region name" example:"Odisha"`
	Center LatLng     `json:"center" doc:"Center as [lat, lng]"`
	Zoom   *int       `json:"zoom,omitempty" doc:"Preferred zoom; the default zoom applies when absent"`
	Bounds *[2]LatLng `json:"bounds,omitempty" doc:"Bounding box; takes precedence over center and zoom"`
}

// View is the map viewport.
type View struct {
	Center  LatLng     `json:"center" doc:"Center as [lat, lng]"`
	Zoom    int        `json:"zoom" doc:"Zoom level"`
	Bounds  *[2]LatLng `json:"bounds,omitempty" doc:"Bounds to fit when fit is true"`
	Fit     bool       `json:"fit" doc:"Fit the viewport to bounds instead of center and zoom"`
	Animate bool       `json:"animate" doc:"Use a smooth transition"`
	Region  string     `json:"region,omitempty" doc:"Focus region the view came from"`
}

// Basemap is a selectable base tile layer.
type Basemap struct {
	Name        string `json:"name" doc:"Basemap name" example:"OSM"`
	URL         string `json:"url" doc:"Tile URL template"`
	Attribution string `json:"attribution,omitempty" doc:"Attribution HTML"`
}

// OverlayStyle is the Leaflet path style of an overlay.
type OverlayStyle struct {
	Color       string  `json:"color"`
	Weight      int     `json:"weight"`
	FillOpacity float64 `json:"fillOpacity"`
}

// Overlay describes how one layer is drawn. Overlays are keyed by layer ID.
type Overlay struct {
	LayerInfo
	Tooltip  string       `json:"tooltip" doc:"Hover label"`
	Style    OverlayStyle `json:"style"`
	GeoJSON  string       `json:"geojson" doc:"GeoJSON URL"`
	TilesURL string       `json:"tilesUrl" doc:"Vector tile URL template"`
}
