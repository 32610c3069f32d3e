package geo

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ErrMalformedInput is returned when an upload is not valid JSON or not a
// recognizable feature collection.
var ErrMalformedInput = errors.New("malformed input")

const featureCollectionType = "FeatureCollection"

// Feature is one read-only feature of a Collection.
type Feature struct {
	id       Value
	geometry json.RawMessage
	props    Properties
}

// NewFeature builds a feature from Go values. A nil geometry is encoded as null.
func NewFeature(id Value, props Properties, g orb.Geometry) Feature {
	f := Feature{id: id, props: props.Clone()}
	if g != nil {
		if raw, err := json.Marshal(geojson.NewGeometry(g)); err == nil {
			f.geometry = raw
		}
	}
	return f
}

// ID is the feature-level identifier member, Absent when the feature has none.
func (f Feature) ID() Value { return f.id }

// Property returns a single property value.
func (f Feature) Property(key string) Value { return f.props.Get(key) }

// Properties returns a copy of the property bag.
func (f Feature) Properties() Properties { return f.props.Clone() }

// Keys returns the property names in sorted order.
func (f Feature) Keys() []string {
	keys := make([]string, 0, len(f.props))
	for k := range f.props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GeometryJSON returns a copy of the raw geometry member.
func (f Feature) GeometryJSON() json.RawMessage {
	if len(f.geometry) == 0 {
		return nil
	}
	return append(json.RawMessage(nil), f.geometry...)
}

// Geometry decodes the geometry member. Malformed geometries are not rejected at
// upload; they only fail here.
func (f Feature) Geometry() (orb.Geometry, error) {
	if len(f.geometry) == 0 || bytes.Equal(f.geometry, []byte("null")) {
		return nil, nil
	}
	g, err := geojson.UnmarshalGeometry(f.geometry)
	if err != nil {
		return nil, err
	}
	return g.Geometry(), nil
}

// Collection is an immutable, ordered feature collection.
type Collection struct {
	features []Feature
}

// NewCollection wraps features in a Collection.
func NewCollection(features ...Feature) *Collection {
	return &Collection{features: append([]Feature(nil), features...)}
}

// Len returns the number of features.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.features)
}

// Feature returns the i-th feature.
func (c *Collection) Feature(i int) Feature { return c.features[i] }

// Features returns a copy of the feature slice.
func (c *Collection) Features() []Feature {
	if c == nil {
		return nil
	}
	return append([]Feature(nil), c.features...)
}

// Bound is the union of every decodable geometry's bounds.
func (c *Collection) Bound() (orb.Bound, bool) {
	var (
		bound orb.Bound
		found bool
	)
	for _, f := range c.Features() {
		g, err := f.Geometry()
		if err != nil || g == nil {
			continue
		}
		if !found {
			bound, found = g.Bound(), true
			continue
		}
		bound = bound.Union(g.Bound())
	}
	return bound, found
}

// FeatureCollection converts c for orb-based rendering. Features whose geometry
// does not decode are skipped, the way a map renderer would drop them.
func (c *Collection) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, f := range c.Features() {
		g, err := f.Geometry()
		if err != nil || g == nil {
			continue
		}
		out := geojson.NewFeature(g)
		if f.id.Present() {
			out.ID = f.id.Any()
		}
		for k, v := range f.props {
			out.Properties[k] = v.Any()
		}
		fc.Append(out)
	}
	return fc
}

type rawFeature struct {
	Type       string                     `json:"type,omitempty"`
	ID         json.RawMessage            `json:"id,omitempty"`
	Geometry   json.RawMessage            `json:"geometry"`
	Properties json.RawMessage `json:"properties"`
}

// properties decodes a feature's properties member. Anything but an object
// counts as no properties.
func (rf *rawFeature) properties() (map[string]json.RawMessage, error) {
	raw := bytes.TrimSpace(rf.Properties)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

type rawCollection struct {
	Type     string        `json:"type"`
	Features []*rawFeature `json:"features"`
}

// Parse decodes a GeoJSON FeatureCollection document. Only JSON well-formedness
// and the collection shape are checked; geometries are kept as written.
func Parse(raw []byte) (*Collection, error) {
	var doc rawCollection
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if doc.Type != featureCollectionType {
		return nil, fmt.Errorf("%w: type %q is not %s", ErrMalformedInput, doc.Type, featureCollectionType)
	}

	features := make([]Feature, 0, len(doc.Features))
	for i, rf := range doc.Features {
		if rf == nil {
			return nil, fmt.Errorf("%w: feature %d is null", ErrMalformedInput, i)
		}
		id, err := ValueFromJSON(rf.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: feature %d id: %v", ErrMalformedInput, i, err)
		}
		rawProps, err := rf.properties()
		if err != nil {
			return nil, fmt.Errorf("%w: feature %d properties: %v", ErrMalformedInput, i, err)
		}
		props := make(Properties, len(rawProps))
		for k, rv := range rawProps {
			v, err := ValueFromJSON(rv)
			if err != nil {
				return nil, fmt.Errorf("%w: feature %d property %q: %v", ErrMalformedInput, i, k, err)
			}
			props[k] = v
		}
		var geometry json.RawMessage
		if len(rf.Geometry) > 0 {
			var buf bytes.Buffer
			if err := json.Compact(&buf, rf.Geometry); err != nil {
				return nil, fmt.Errorf("%w: feature %d geometry: %v", ErrMalformedInput, i, err)
			}
			geometry = buf.Bytes()
		}
		features = append(features, Feature{id: id, geometry: geometry, props: props})
	}
	return &Collection{features: features}, nil
}

// MarshalJSON re-emits the collection as GeoJSON with geometries as uploaded.
func (c *Collection) MarshalJSON() ([]byte, error) {
	doc := rawCollection{Type: featureCollectionType, Features: make([]*rawFeature, 0, c.Len())}
	for _, f := range c.Features() {
		rf := &rawFeature{Type: "Feature", Geometry: f.geometry}
		if rf.Geometry == nil {
			rf.Geometry = json.RawMessage("null")
		}
		if f.id.Kind() != Absent {
			id, err := f.id.MarshalJSON()
			if err != nil {
				return nil, err
			}
			rf.ID = id
		}
		props := make(map[string]json.RawMessage, len(f.props))
		for k, v := range f.props {
			b, err := v.MarshalJSON()
			if err != nil {
				return nil, err
			}
			props[k] = b
		}
		raw, err := json.Marshal(props)
		if err != nil {
			return nil, err
		}
		rf.Properties = raw
		doc.Features = append(doc.Features, rf)
	}
	return json.Marshal(doc)
}
