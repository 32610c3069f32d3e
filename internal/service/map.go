package service

import (
	"errors"
	"fmt"
	"net/url"
	"sync"
)

var (
	// ErrUnknownRegion is returned by FocusOn for a name outside the fixed set.
	ErrUnknownRegion = errors.New("unknown region")
	// ErrUnknownBasemap is returned by SetBasemap for an unknown basemap.
	ErrUnknownBasemap = errors.New("unknown basemap")
)

const (
	// DefaultZoom applies when a focus region has no preferred zoom.
	DefaultZoom = 7
	// InitialZoom is the zoom of a fresh map.
	InitialZoom = 5
)

// InitialCenter is roughly the centroid of India.
var InitialCenter = LatLng{22.9734, 78.6569}

func zoom(z int) *int { return &z }

// FocusRegions is the fixed set of focus states, in display order.
var FocusRegions = []FocusRegion{
	{Name: "Madhya Pradesh", Center: LatLng{23.4733, 77.9470}, Zoom: zoom(6)},
	{Name: "Tripura", Center: LatLng{23.9408, 91.9882}, Zoom: zoom(8)},
	{Name: "Odisha", Center: LatLng{20.9517, 85.0985}, Zoom: zoom(7)},
	{Name: "Telangana", Center: LatLng{18.1124, 79.0193}, Zoom: zoom(7)},
}

// Basemaps are the selectable base tile layers. The first is the default.
var Basemaps = []Basemap{
	{
		Name:        "OSM",
		URL:         "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
		Attribution: `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`,
	},
	{Name: "Topo", URL: "https://{s}.tile.opentopomap.org/{z}/{x}/{y}.png"},
	{Name: "Imagery", URL: "https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/{z}/{y}/{x}"},
}

// MapService holds the map viewport and base layer choice.
type MapService struct {
	mu      sync.RWMutex
	view    View
	basemap Basemap
	regions map[string]FocusRegion
	bus     *EventBus
}

// NewMapService creates a map centered on InitialCenter.
func NewMapService(bus *EventBus) *MapService {
	regions := make(map[string]FocusRegion, len(FocusRegions))
	for _, r := range FocusRegions {
		regions[r.Name] = r
	}
	return &MapService{
		view:    View{Center: InitialCenter, Zoom: InitialZoom},
		basemap: Basemaps[0],
		regions: regions,
		bus:     bus,
	}
}

// Regions returns the focus regions in display order.
func (m *MapService) Regions() []FocusRegion {
	return append([]FocusRegion(nil), FocusRegions...)
}

// Region looks up a focus region by name.
func (m *MapService) Region(name string) (FocusRegion, bool) {
	r, ok := m.regions[name]
	return r, ok
}

// View returns the current viewport.
func (m *MapService) View() View {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view
}

// FocusOn moves the view to a focus region. Bounds take precedence over
// center and zoom. An unknown name leaves the view unchanged.
func (m *MapService) FocusOn(name string) (View, error) {
	r, ok := m.regions[name]
	if !ok {
		return View{}, fmt.Errorf("%w: %q", ErrUnknownRegion, name)
	}

	v := View{Center: r.Center, Zoom: DefaultZoom, Animate: true, Region: r.Name}
	if r.Zoom != nil {
		v.Zoom = *r.Zoom
	}
	if r.Bounds != nil {
		b := *r.Bounds
		v.Bounds = &b
		v.Fit = true
		v.Animate = false
	}

	m.mu.Lock()
	m.view = v
	m.mu.Unlock()

	m.bus.Publish(Event{Resource: ResourceMap, Action: ActionFocused, ID: r.Name})
	return v, nil
}

// Basemap returns the current base layer.
func (m *MapService) Basemap() Basemap {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.basemap
}

// SetBasemap switches the base layer by name.
func (m *MapService) SetBasemap(name string) (Basemap, error) {
	for _, b := range Basemaps {
		if b.Name != name {
			continue
		}
		m.mu.Lock()
		m.basemap = b
		m.mu.Unlock()
		m.bus.Publish(Event{Resource: ResourceMap, Action: ActionUpdated, ID: b.Name})
		return b, nil
	}
	return Basemap{}, fmt.Errorf("%w: %q", ErrUnknownBasemap, name)
}

// Overlays describes every layer for drawing. A layer with no features still
// yields an (empty) overlay.
func (m *MapService) Overlays(layers []Layer) []Overlay {
	out := make([]Overlay, 0, len(layers))
	for _, l := range layers {
		base := "/api/v1/layers/" + url.PathEscape(l.ID)
		out = append(out, Overlay{
			LayerInfo: l.Info(),
			Tooltip:   l.Name,
			Style:     OverlayStyle{Color: l.Color, Weight: 2, FillOpacity: 0.2},
			GeoJSON:   base + "/geojson",
			TilesURL:  base + "/tiles/{z}/{x}/{y}",
		})
	}
	return out
}
