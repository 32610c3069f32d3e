package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/joeblew999/fra-atlas/internal/geo"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const twoFeatures = `{"type":"FeatureCollection","features":[
	{"type":"Feature","id":"a","geometry":{"type":"Point","coordinates":[78.1,22.5]},"properties":{"land_use":"Forest"}},
	{"type":"Feature","id":"b","geometry":{"type":"Point","coordinates":[79.0,23.0]},"properties":{"land_use":"Water"}}
]}`

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestStore(bus *EventBus) *LayerStore {
	return NewLayerStore(bus,
		WithPalette(&CyclePalette{}),
		WithClock(fixedClock(time.UnixMilli(1718000000000))))
}

func TestLayerStoreAdd(t *testing.T) {
	s := newTestStore(nil)

	l, err := s.Add("claims.geojson", []byte(twoFeatures))
	require.NoError(t, err)

	assert.Equal(t, "claims.geojson-1718000000000", l.ID)
	assert.Equal(t, "claims", l.Name)
	assert.Equal(t, "claims.geojson", l.FileName)
	assert.Equal(t, "hsl(152 70% 45%)", l.Color)
	assert.Equal(t, 2, l.Data.Len())
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, uint64(1), s.Version())

	got, ok := s.Get(l.ID)
	require.True(t, ok)
	assert.Equal(t, l.ID, got.ID)
}

func TestLayerStoreAddGrowsByOneWithUniqueIDs(t *testing.T) {
	s := newTestStore(nil)

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		before := s.Len()
		l, err := s.Add("same.geojson", []byte(twoFeatures))
		require.NoError(t, err)
		assert.Equal(t, before+1, s.Len())
		assert.False(t, seen[l.ID], "duplicate id %q", l.ID)
		seen[l.ID] = true
	}

	ids := make([]string, 0, s.Len())
	for _, l := range s.List() {
		ids = append(ids, l.ID)
	}
	assert.Equal(t, []string{
		"same.geojson-1718000000000",
		"same.geojson-1718000000001",
		"same.geojson-1718000000002",
		"same.geojson-1718000000003",
		"same.geojson-1718000000004",
	}, ids)
}

func TestLayerStoreIDsNotReusedAfterRemove(t *testing.T) {
	s := newTestStore(nil)

	first, err := s.Add("a.geojson", []byte(twoFeatures))
	require.NoError(t, err)
	require.True(t, s.Remove(first.ID))

	second, err := s.Add("a.geojson", []byte(twoFeatures))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestLayerStoreAddMalformed(t *testing.T) {
	s := newTestStore(nil)
	_, err := s.Add("ok.geojson", []byte(twoFeatures))
	require.NoError(t, err)
	before := s.List()

	for _, raw := range []string{
		`not json`,
		`{"type":"Feature"}`,
		`[]`,
	} {
		_, err := s.Add("bad.geojson", []byte(raw))
		require.Error(t, err, raw)
		assert.True(t, errors.Is(err, geo.ErrMalformedInput), raw)
	}
	assert.Equal(t, before, s.List())
	assert.Equal(t, uint64(1), s.Version())
}

func TestLayerStoreRemoveUnknownIsNoop(t *testing.T) {
	bus := NewEventBus()
	s := newTestStore(bus)
	_, err := s.Add("a.geojson", []byte(twoFeatures))
	require.NoError(t, err)
	before := s.List()

	ch := bus.Subscribe()
	defer bus.Unsubscribe(ch)

	assert.False(t, s.Remove("missing"))
	assert.Equal(t, before, s.List())
	assert.Equal(t, uint64(1), s.Version())

	select {
	case ev := <-ch:
		assert.Equal(t, Event{Resource: ResourceLayers, Action: ActionDeleted, ID: "missing"}, ev)
	default:
		t.Fatal("expected a deleted event")
	}
}

func TestLayerStoreListIsSnapshot(t *testing.T) {
	s := newTestStore(nil)
	a, err := s.Add("a.geojson", []byte(twoFeatures))
	require.NoError(t, err)

	snap := s.List()
	_, err = s.Add("b.geojson", []byte(twoFeatures))
	require.NoError(t, err)
	s.Remove(a.ID)

	require.Len(t, snap, 1)
	assert.Equal(t, a.ID, snap[0].ID)
	require.Len(t, s.List(), 1)
	assert.NotEqual(t, a.ID, s.List()[0].ID)
}

func TestLayerStorePublishesCreated(t *testing.T) {
	bus := NewEventBus()
	s := newTestStore(bus)
	ch := bus.Subscribe()
	defer bus.Unsubscribe(ch)

	l, err := s.Add("a.geojson", []byte(twoFeatures))
	require.NoError(t, err)

	ev := <-ch
	assert.Equal(t, Event{Resource: ResourceLayers, Action: ActionCreated, ID: l.ID}, ev)
}

func TestLayerStoreAddStripsDirectory(t *testing.T) {
	s := newTestStore(nil)
	l, err := s.Add("/tmp/uploads/odisha.GeoJSON", []byte(twoFeatures))
	require.NoError(t, err)
	assert.Equal(t, "odisha.GeoJSON", l.FileName)
	assert.Equal(t, "odisha", l.Name)
}

func TestLayerName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"claims.geojson", "claims"},
		{"claims.GEOJSON", "claims"},
		{"claims.json", "claims.json"},
		{"geojson", "geojson"},
		{".geojson", ""},
		{"a.geojson.geojson", "a.geojson"},
	}
	for _, tt := range tests {
		if got := LayerName(tt.in); got != tt.want {
			t.Errorf("LayerName(%q)=%q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLayerInfo(t *testing.T) {
	s := newTestStore(nil)
	l, err := s.Add("a.geojson", []byte(twoFeatures))
	require.NoError(t, err)

	info := l.Info()
	assert.Equal(t, 2, info.Features)
	require.NotNil(t, info.Bounds)
	assert.Equal(t, [2]LatLng{{22.5, 78.1}, {23.0, 79.0}}, *info.Bounds)
}

func TestLayerInfoNoGeometry(t *testing.T) {
	s := newTestStore(nil)
	l, err := s.Add("empty.geojson", []byte(`{"type":"FeatureCollection","features":[]}`))
	require.NoError(t, err)
	assert.Nil(t, l.Info().Bounds)
	assert.Equal(t, 0, l.Info().Features)
}
