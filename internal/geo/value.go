// Package geo holds the feature-collection model shared by the layer store,
// the map overlays and the smart rules.
package geo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind tags the dynamic type carried by a Value.
type Kind uint8

const (
	Absent Kind = iota
	Null
	String
	Number
	Bool
	Nested
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case String:
		return "string"
	case Number:
		return "number"
	case Bool:
		return "bool"
	case Nested:
		return "nested"
	default:
		return "absent"
	}
}

// Value is one entry of a feature's loosely typed property bag.
//
// Nested objects and arrays keep their compact source JSON, so two nested
// values are equal only when they were written identically.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
}

// AbsentValue is the zero Value and marks a missing property.
var AbsentValue = Value{}

func NullValue() Value             { return Value{kind: Null} }
func StringValue(s string) Value   { return Value{kind: String, str: s} }
func NumberValue(f float64) Value  { return Value{kind: Number, num: f} }
func BoolValue(b bool) Value       { return Value{kind: Bool, b: b} }
func nestedValue(raw string) Value { return Value{kind: Nested, str: raw} }

// Kind reports the tag of v.
func (v Value) Kind() Kind { return v.kind }

// Present is false for Absent and Null, the two "no value" states.
func (v Value) Present() bool { return v.kind != Absent && v.kind != Null }

// String renders v for reports. Absent renders as "undefined" and Null as "null".
func (v Value) String() string {
	switch v.kind {
	case Null:
		return "null"
	case String, Nested:
		return v.str
	case Number:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case Bool:
		return strconv.FormatBool(v.b)
	default:
		return "undefined"
	}
}

// Equal is exact value equality: same kind and same payload.
// A number never equals a string, even when both render the same.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case String, Nested:
		return v.str == o.str
	case Number:
		return v.num == o.num
	case Bool:
		return v.b == o.b
	default:
		return true
	}
}

// Any converts v back into the encoding/json data model.
func (v Value) Any() any {
	switch v.kind {
	case String:
		return v.str
	case Number:
		return v.num
	case Bool:
		return v.b
	case Nested:
		var out any
		if err := json.Unmarshal([]byte(v.str), &out); err != nil {
			return v.str
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON encodes v; Absent encodes as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case String:
		return json.Marshal(v.str)
	case Number:
		return json.Marshal(v.num)
	case Bool:
		return json.Marshal(v.b)
	case Nested:
		return []byte(v.str), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON classifies a raw JSON value by its first byte.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := ValueFromJSON(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ValueFromJSON decodes a single raw JSON value into a Value.
func ValueFromJSON(raw []byte) (Value, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return AbsentValue, nil
	}
	switch raw[0] {
	case 'n':
		if string(raw) != "null" {
			return AbsentValue, fmt.Errorf("invalid literal %q", raw)
		}
		return NullValue(), nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return AbsentValue, err
		}
		return BoolValue(b), nil
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return AbsentValue, err
		}
		return StringValue(s), nil
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return AbsentValue, err
		}
		return nestedValue(buf.String()), nil
	default:
		f, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			return AbsentValue, err
		}
		return NumberValue(f), nil
	}
}

// ValueOf converts a value from the encoding/json data model.
func ValueOf(x any) Value {
	switch t := x.(type) {
	case nil:
		return NullValue()
	case Value:
		return t
	case string:
		return StringValue(t)
	case bool:
		return BoolValue(t)
	case float64:
		return NumberValue(t)
	case float32:
		return NumberValue(float64(t))
	case int:
		return NumberValue(float64(t))
	case int64:
		return NumberValue(float64(t))
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return StringValue(t.String())
		}
		return NumberValue(f)
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return AbsentValue
		}
		return nestedValue(string(raw))
	}
}

// Properties is a feature's property bag.
type Properties map[string]Value

// Get returns the value for key, or AbsentValue.
func (p Properties) Get(key string) Value {
	if v, ok := p[key]; ok {
		return v
	}
	return AbsentValue
}

// First returns the first present value among keys, in order.
func (p Properties) First(keys ...string) (Value, bool) {
	for _, k := range keys {
		if v := p.Get(k); v.Present() {
			return v, true
		}
	}
	return AbsentValue, false
}

// Clone returns a shallow copy; Values are immutable so this is a full copy.
func (p Properties) Clone() Properties {
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
