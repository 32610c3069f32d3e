package service

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/joeblew999/fra-atlas/internal/geo"
)

const geojsonExt = ".geojson"

// LayerStore holds the ordered overlays. Every change swaps in a new slice, so a
// slice returned by List is a stable snapshot.
type LayerStore struct {
	mu      sync.RWMutex
	layers  []Layer
	version uint64
	issued  map[string]struct{}

	bus     *EventBus
	palette Palette
	now     func() time.Time
	log     *zap.Logger
}

// LayerStoreOption configures a LayerStore.
type LayerStoreOption func(*LayerStore)

// WithPalette sets the color palette.
func WithPalette(p Palette) LayerStoreOption {
	return func(s *LayerStore) { s.palette = p }
}

// WithClock sets the time source used for layer IDs.
func WithClock(now func() time.Time) LayerStoreOption {
	return func(s *LayerStore) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) LayerStoreOption {
	return func(s *LayerStore) { s.log = l }
}

// NewLayerStore creates an empty store publishing to bus.
func NewLayerStore(bus *EventBus, opts ...LayerStoreOption) *LayerStore {
	s := &LayerStore{
		bus:     bus,
		issued:  map[string]struct{}{},
		palette: NewRandomPalette(uint64(time.Now().UnixNano())),
		now:     time.Now,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the current snapshot in insertion order. Callers must not
// modify it.
func (s *LayerStore) List() []Layer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.layers
}

// Version increases on every add and every effective remove.
func (s *LayerStore) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Len returns the number of layers.
func (s *LayerStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.layers)
}

// Get returns a layer by ID.
func (s *LayerStore) Get(id string) (Layer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.layers {
		if l.ID == id {
			return l, true
		}
	}
	return Layer{}, false
}

// Add parses raw as a feature collection and appends it as a new layer.
// On a parse error the store is left untouched and the error wraps
// geo.ErrMalformedInput.
func (s *LayerStore) Add(fileName string, raw []byte) (Layer, error) {
	fileName = filepath.Base(fileName)
	data, err := geo.Parse(raw)
	if err != nil {
		return Layer{}, fmt.Errorf("adding layer %q: %w", fileName, err)
	}

	s.mu.Lock()
	now := s.now()
	layer := Layer{
		ID:        s.uniqueID(fileName, now),
		Name:      LayerName(fileName),
		FileName:  fileName,
		Color:     s.palette.Next(),
		CreatedAt: now,
		Data:      data,
	}
	next := make([]Layer, len(s.layers), len(s.layers)+1)
	copy(next, s.layers)
	s.layers = append(next, layer)
	s.version++
	s.mu.Unlock()

	s.log.Debug("layer added",
		zap.String("id", layer.ID),
		zap.String("name", layer.Name),
		zap.Int("features", data.Len()))
	s.bus.Publish(Event{Resource: ResourceLayers, Action: ActionCreated, ID: layer.ID})
	return layer, nil
}

// Remove deletes the layer with id. Unknown IDs are a no-op. Subscribers are
// notified either way. It reports whether a layer was removed.
func (s *LayerStore) Remove(id string) bool {
	s.mu.Lock()
	idx := -1
	for i, l := range s.layers {
		if l.ID == id {
			idx = i
			break
		}
	}
	if idx >= 0 {
		next := make([]Layer, 0, len(s.layers)-1)
		next = append(next, s.layers[:idx]...)
		s.layers = append(next, s.layers[idx+1:]...)
		s.version++
	}
	s.mu.Unlock()

	if idx >= 0 {
		s.log.Debug("layer removed", zap.String("id", id))
	}
	s.bus.Publish(Event{Resource: ResourceLayers, Action: ActionDeleted, ID: id})
	return idx >= 0
}

// uniqueID derives "<file>-<unix millis>", bumping the millis until the ID has
// never been issued by this store. Must be called with s.mu held.
func (s *LayerStore) uniqueID(fileName string, now time.Time) string {
	ms := now.UnixMilli()
	for {
		id := fmt.Sprintf("%s-%d", fileName, ms)
		if _, taken := s.issued[id]; !taken {
			s.issued[id] = struct{}{}
			return id
		}
		ms++
	}
}

// LayerName strips a trailing ".geojson", ignoring case.
func LayerName(fileName string) string {
	if n := len(fileName) - len(geojsonExt); n >= 0 && strings.EqualFold(fileName[n:], geojsonExt) {
		return fileName[:n]
	}
	return fileName
}
