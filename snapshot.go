package landkeeper

import (
	"encoding/json"
	"fmt"
	"sort"
)

// ValueKind distinguishes the variants of SnapshotValue.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindBool
	KindInt
	KindDouble
	KindString
	KindArray
	KindObject
)

// SnapshotValue is a JSON-like sum type used for both full snapshots and
// individual patch values. It round-trips through encoding/json directly
// (bare JSON), and also accepts the legacy tagged {"type":...,"value":...}
// shape on decode for backward compatibility with older recordings. A
// double with an integral value encodes as a bare integer and so decodes
// back as an int.
type SnapshotValue struct {
	kind ValueKind
	b    bool
	i    int64
	d    float64
	s    string
	arr  []SnapshotValue
	obj  map[string]SnapshotValue
	keys []string // insertion order for deterministic re-encoding
}

// SnapshotNull constructs a null value.
func SnapshotNull() SnapshotValue { return SnapshotValue{kind: KindNull} }

// SnapshotBool constructs a boolean value.
func SnapshotBool(v bool) SnapshotValue { return SnapshotValue{kind: KindBool, b: v} }

// SnapshotInt constructs an integer value.
func SnapshotInt(v int64) SnapshotValue { return SnapshotValue{kind: KindInt, i: v} }

// SnapshotDouble constructs a floating point value.
func SnapshotDouble(v float64) SnapshotValue { return SnapshotValue{kind: KindDouble, d: v} }

// SnapshotString constructs a string value.
func SnapshotString(v string) SnapshotValue { return SnapshotValue{kind: KindString, s: v} }

// SnapshotArray constructs an array value.
func SnapshotArray(items ...SnapshotValue) SnapshotValue {
	return SnapshotValue{kind: KindArray, arr: items}
}

// SnapshotObject constructs an empty object value. Use Set to populate it
// in deterministic insertion order.
func SnapshotObject() SnapshotValue {
	return SnapshotValue{kind: KindObject, obj: make(map[string]SnapshotValue)}
}

// Set inserts or replaces a key in an object value, preserving first-seen
// insertion order for deterministic re-marshaling. Panics if v is not an
// object.
func (v *SnapshotValue) Set(key string, val SnapshotValue) {
	if v.kind != KindObject {
		panic("landkeeper: Set called on non-object SnapshotValue")
	}
	if _, exists := v.obj[key]; !exists {
		v.keys = append(v.keys, key)
	}
	v.obj[key] = val
}

// Kind reports which variant this value is.
func (v SnapshotValue) Kind() ValueKind { return v.kind }

// IsNull reports whether the value is null.
func (v SnapshotValue) IsNull() bool { return v.kind == KindNull }

// Bool returns the boolean value, or false if not a bool.
func (v SnapshotValue) Bool() bool { return v.b }

// Int returns the integer value, or 0 if not an int.
func (v SnapshotValue) Int() int64 { return v.i }

// Double returns the float value, or 0 if not a double.
func (v SnapshotValue) Double() float64 { return v.d }

// String returns the string value, or "" if not a string.
func (v SnapshotValue) String() string { return v.s }

// Array returns the backing slice for an array value, or nil.
func (v SnapshotValue) Array() []SnapshotValue { return v.arr }

// Object returns the key list (in insertion order) and lookup map for an
// object value.
func (v SnapshotValue) Object() (keys []string, fields map[string]SnapshotValue) {
	return v.keys, v.obj
}

// Equal reports deep structural equality, used by diffing to decide
// whether a field actually changed value (beyond its dirty bit).
func (v SnapshotValue) Equal(other SnapshotValue) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindInt:
		return v.i == other.i
	case KindDouble:
		return v.d == other.d
	case KindString:
		return v.s == other.s
	case KindArray:
		if len(v.arr) != len(other.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(other.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.keys) != len(other.keys) {
			return false
		}
		for _, k := range v.keys {
			ov, ok := other.obj[k]
			if !ok || !v.obj[k].Equal(ov) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// MarshalJSON emits bare JSON, never the legacy tagged shape.
func (v SnapshotValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		if v.b {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case KindInt:
		return json.Marshal(v.i)
	case KindDouble:
		return json.Marshal(v.d)
	case KindString:
		return json.Marshal(v.s)
	case KindArray:
		return json.Marshal(v.arr)
	case KindObject:
		buf := []byte{'{'}
		for idx, k := range v.keys {
			if idx > 0 {
				buf = append(buf, ',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			buf = append(buf, kb...)
			buf = append(buf, ':')
			vb, err := v.obj[k].MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf = append(buf, vb...)
		}
		buf = append(buf, '}')
		return buf, nil
	default:
		return nil, fmt.Errorf("landkeeper: unknown SnapshotValue kind %d", v.kind)
	}
}

// legacyTagged is the {"type":...,"value":...} shape accepted for
// backward compatibility with recordings made before the bare-JSON wire
// format was adopted.
type legacyTagged struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// UnmarshalJSON accepts either bare JSON or the legacy tagged shape.
func (v *SnapshotValue) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err == nil {
		if typeRaw, hasType := probe["type"]; hasType {
			if _, hasValue := probe["value"]; hasValue && len(probe) == 2 {
				var tagType string
				if err := json.Unmarshal(typeRaw, &tagType); err == nil {
					return v.unmarshalLegacy(tagType, probe["value"])
				}
			}
		}
	}
	return v.unmarshalBare(data)
}

func (v *SnapshotValue) unmarshalLegacy(tagType string, raw json.RawMessage) error {
	switch tagType {
	case "null":
		*v = SnapshotNull()
		return nil
	case "bool":
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return err
		}
		*v = SnapshotBool(b)
		return nil
	case "int":
		var i int64
		if err := json.Unmarshal(raw, &i); err != nil {
			return err
		}
		*v = SnapshotInt(i)
		return nil
	case "double":
		var d float64
		if err := json.Unmarshal(raw, &d); err != nil {
			return err
		}
		*v = SnapshotDouble(d)
		return nil
	case "string":
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		*v = SnapshotString(s)
		return nil
	default:
		return v.unmarshalBare(raw)
	}
}

func (v *SnapshotValue) unmarshalBare(data []byte) error {
	var anyVal interface{}
	if err := json.Unmarshal(data, &anyVal); err != nil {
		return err
	}
	*v = fromAny(anyVal)
	return nil
}

func fromAny(val interface{}) SnapshotValue {
	switch t := val.(type) {
	case nil:
		return SnapshotNull()
	case bool:
		return SnapshotBool(t)
	case float64:
		if t == float64(int64(t)) {
			return SnapshotInt(int64(t))
		}
		return SnapshotDouble(t)
	case string:
		return SnapshotString(t)
	case []interface{}:
		items := make([]SnapshotValue, len(t))
		for i, e := range t {
			items[i] = fromAny(e)
		}
		return SnapshotArray(items...)
	case map[string]interface{}:
		obj := SnapshotObject()
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			obj.Set(k, fromAny(t[k]))
		}
		return obj
	default:
		return SnapshotNull()
	}
}

// StateSnapshot is the full, observer-specific projection of a land's
// state tree at a single tick, used for FirstSync.
type StateSnapshot struct {
	Tick  uint64        `json:"tick"`
	State SnapshotValue `json:"state"`
}
