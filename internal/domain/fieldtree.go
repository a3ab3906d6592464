package domain

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// PathSeparator splits a dotted field path into keys.
const PathSeparator = "."

// FieldKind tags the variant held by a FieldValue.
type FieldKind uint8

const (
	KindNull FieldKind = iota
	KindString
	KindNumber
	KindBool
	KindMap
	KindList
)

func (k FieldKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindMap:
		return "map"
	case KindList:
		return "list"
	default:
		return "null"
	}
}

// FieldValue is a node of a document field tree: a scalar, a list or a nested
// FieldMap. The zero value is null.
type FieldValue struct {
	kind FieldKind
	str  string
	num  decimal.Decimal
	b    bool
	m    FieldMap
	list []FieldValue
}

// FieldMap is a nested mapping of keys to field values.
type FieldMap map[string]FieldValue

func Null() FieldValue                         { return FieldValue{} }
func StringValue(s string) FieldValue          { return FieldValue{kind: KindString, str: s} }
func NumberValue(d decimal.Decimal) FieldValue { return FieldValue{kind: KindNumber, num: d} }
func BoolValue(b bool) FieldValue              { return FieldValue{kind: KindBool, b: b} }

// MapValue wraps m as a nested node. A nil map becomes an empty one.
func MapValue(m FieldMap) FieldValue {
	if m == nil {
		m = FieldMap{}
	}
	return FieldValue{kind: KindMap, m: m}
}

// ListValue wraps items as a list node. Lists are leaves for paths: they
// are replaced whole and never walked into.
func ListValue(items []FieldValue) FieldValue {
	if items == nil {
		items = []FieldValue{}
	}
	return FieldValue{kind: KindList, list: items}
}

func (v FieldValue) Kind() FieldKind { return v.kind }
func (v FieldValue) IsNull() bool    { return v.kind == KindNull }

func (v FieldValue) AsString() (string, bool) {
	return v.str, v.kind == KindString
}

func (v FieldValue) AsNumber() (decimal.Decimal, bool) {
	return v.num, v.kind == KindNumber
}

func (v FieldValue) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

func (v FieldValue) AsMap() (FieldMap, bool) {
	return v.m, v.kind == KindMap
}

func (v FieldValue) AsList() ([]FieldValue, bool) {
	return v.list, v.kind == KindList
}

// Clone returns a deep copy so mutations of the copy never reach v.
func (v FieldValue) Clone() FieldValue {
	switch v.kind {
	case KindMap:
		return MapValue(v.m.Clone())
	case KindList:
		items := make([]FieldValue, len(v.list))
		for i, item := range v.list {
			items[i] = item.Clone()
		}
		return ListValue(items)
	default:
		return v
	}
}

// Equal compares two values structurally. Numbers compare by value, so 1 equals 1.00.
func (v FieldValue) Equal(o FieldValue) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num.Equal(o.num)
	case KindBool:
		return v.b == o.b
	case KindMap:
		if len(v.m) != len(o.m) {
			return false
		}
		for k, child := range v.m {
			other, ok := o.m[k]
			if !ok || !child.Equal(other) {
				return false
			}
		}
		return true
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// String renders scalars as plain text; maps and lists render as JSON.
func (v FieldValue) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num.String()
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindMap, KindList:
		b, _ := v.MarshalJSON()
		return string(b)
	default:
		return ""
	}
}

func (v FieldValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		// Bare number literal, not decimal's default quoted form.
		return []byte(v.num.String()), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindMap:
		return json.Marshal(v.m)
	case KindList:
		return json.Marshal(v.list)
	default:
		return []byte("null"), nil
	}
}

func (v *FieldValue) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := FieldValueFromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// FieldValueFromAny converts a decoded JSON value into a FieldValue. Numbers are
// accepted as json.Number, float64, int variants, or decimal.Decimal.
func FieldValueFromAny(raw interface{}) (FieldValue, error) {
	switch t := raw.(type) {
	case nil:
		return Null(), nil
	case string:
		return StringValue(t), nil
	case bool:
		return BoolValue(t), nil
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		if err != nil {
			return Null(), fmt.Errorf("parsing number %q: %w", t.String(), err)
		}
		return NumberValue(d), nil
	case float64:
		return NumberValue(decimal.NewFromFloat(t)), nil
	case int:
		return NumberValue(decimal.NewFromInt(int64(t))), nil
	case int64:
		return NumberValue(decimal.NewFromInt(t)), nil
	case decimal.Decimal:
		return NumberValue(t), nil
	case FieldValue:
		return t.Clone(), nil
	case map[string]interface{}:
		m := make(FieldMap, len(t))
		for k, child := range t {
			fv, err := FieldValueFromAny(child)
			if err != nil {
				return Null(), err
			}
			m[k] = fv
		}
		return MapValue(m), nil
	case []interface{}:
		items := make([]FieldValue, len(t))
		for i, child := range t {
			fv, err := FieldValueFromAny(child)
			if err != nil {
				return Null(), err
			}
			items[i] = fv
		}
		return ListValue(items), nil
	case []FieldValue:
		return ListValue(t).Clone(), nil
	default:
		return Null(), fmt.Errorf("unsupported field value type %T", raw)
	}
}

// Value implements driver.Valuer so a single value can be stored as JSONB.
func (v FieldValue) Value() (driver.Value, error) {
	return v.MarshalJSON()
}

// Scan implements sql.Scanner for JSONB columns.
func (v *FieldValue) Scan(src interface{}) error {
	switch t := src.(type) {
	case nil:
		*v = Null()
		return nil
	case []byte:
		return v.UnmarshalJSON(t)
	case string:
		return v.UnmarshalJSON([]byte(t))
	default:
		return fmt.Errorf("FieldValue.Scan: unsupported source %T", src)
	}
}

// Path is a parsed dotted field path.
type Path []string

// ParsePath splits s on PathSeparator. Empty paths and empty keys are rejected.
func ParsePath(s string) (Path, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	keys := strings.Split(s, PathSeparator)
	for _, k := range keys {
		if k == "" {
			return nil, fmt.Errorf("%w: %q has an empty key", ErrInvalidPath, s)
		}
	}
	return Path(keys), nil
}

// MustParsePath is ParsePath for compile-time constant paths.
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Path) String() string { return strings.Join(p, PathSeparator) }

// Clone returns a deep copy of the tree.
func (m FieldMap) Clone() FieldMap {
	if m == nil {
		return nil
	}
	out := make(FieldMap, len(m))
	for k, v := range m {
		out[k] = v.Clone()
	}
	return out
}

// Get walks the tree key by key and returns the node at path.
func (m FieldMap) Get(path Path) (FieldValue, bool) {
	if len(path) == 0 {
		return Null(), false
	}
	cur := m
	for i, key := range path {
		v, ok := cur[key]
		if !ok {
			return Null(), false
		}
		if i == len(path)-1 {
			return v, true
		}
		next, isMap := v.AsMap()
		if !isMap {
			return Null(), false
		}
		cur = next
	}
	return Null(), false
}

// Set writes v at path, creating intermediate maps that do not exist yet (or
// hold null). It returns the previous leaf value, if any. Walking through a
// non-null scalar fails with ErrInvalidPath.
func (m FieldMap) Set(path Path, v FieldValue) (FieldValue, bool, error) {
	if len(path) == 0 {
		return Null(), false, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	cur := m
	for i, key := range path[:len(path)-1] {
		child, ok := cur[key]
		if !ok || child.IsNull() {
			next := FieldMap{}
			cur[key] = MapValue(next)
			cur = next
			continue
		}
		next, isMap := child.AsMap()
		if !isMap {
			return Null(), false, fmt.Errorf("%w: %q is a %s, not a map",
				ErrInvalidPath, path[:i+1].String(), child.Kind())
		}
		cur = next
	}
	leaf := path[len(path)-1]
	old, existed := cur[leaf]
	cur[leaf] = v
	return old, existed, nil
}

// PathValue pairs a leaf path with its value.
type PathValue struct {
	Path  string
	Value FieldValue
}

// Flatten lists every leaf of the tree ordered by path. Lists are leaves;
// empty maps are omitted.
func (m FieldMap) Flatten() []PathValue {
	var out []PathValue
	var walk func(prefix string, node FieldMap)
	walk = func(prefix string, node FieldMap) {
		for k, v := range node {
			p := k
			if prefix != "" {
				p = prefix + PathSeparator + k
			}
			if child, ok := v.AsMap(); ok {
				walk(p, child)
				continue
			}
			out = append(out, PathValue{Path: p, Value: v})
		}
	}
	walk("", m)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Value implements driver.Valuer; a nil tree is stored as an empty object.
func (m FieldMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for JSONB columns.
func (m *FieldMap) Scan(src interface{}) error {
	var data []byte
	switch t := src.(type) {
	case nil:
		*m = FieldMap{}
		return nil
	case []byte:
		data = t
	case string:
		data = []byte(t)
	default:
		return fmt.Errorf("FieldMap.Scan: unsupported source %T", src)
	}
	out := FieldMap{}
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("FieldMap.Scan: %w", err)
	}
	*m = out
	return nil
}
