package config

import (
	"sort"
)

// Kind identifies the variant stored in a Value.
//
// Scalar coercion happens once, at parse time. Carrying the kind
// explicitly avoids re-guessing types downstream (a version string like
// "2.0" must stay whatever the document said it was).
type Kind int

const (
	KindBool Kind = iota
	KindInt
	KindFloat
	KindString
	KindMapping
)

// String returns the string representation of a Kind.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindMapping:
		return "mapping"
	default:
		return "unknown"
	}
}

// Value is a tagged union holding either a scalar or a nested Tree.
// Exactly one payload field is meaningful, selected by Kind.
type Value struct {
	Kind  Kind
	Bool  bool
	Int   int64
	Float float64
	Str   string
	Map   *Tree
}

// BoolValue creates a boolean Value.
func BoolValue(v bool) Value {
	return Value{Kind: KindBool, Bool: v}
}

// IntValue creates an integer Value.
func IntValue(v int64) Value {
	return Value{Kind: KindInt, Int: v}
}

// FloatValue creates a float Value.
func FloatValue(v float64) Value {
	return Value{Kind: KindFloat, Float: v}
}

// StringValue creates a string Value.
func StringValue(v string) Value {
	return Value{Kind: KindString, Str: v}
}

// MapValue creates a mapping Value wrapping the given Tree.
func MapValue(t *Tree) Value {
	return Value{Kind: KindMapping, Map: t}
}

// IsMapping returns true if the Value holds a nested Tree.
func (v Value) IsMapping() bool {
	return v.Kind == KindMapping
}

// Equal reports structural equality of two Values.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindBool:
		return v.Bool == other.Bool
	case KindInt:
		return v.Int == other.Int
	case KindFloat:
		return v.Float == other.Float
	case KindString:
		return v.Str == other.Str
	case KindMapping:
		return v.Map.Equal(other.Map)
	default:
		return false
	}
}

// clone returns a deep copy of the Value.
func (v Value) clone() Value {
	if v.Kind == KindMapping {
		return MapValue(v.Map.Clone())
	}
	return v
}

// Tree is a nested string-keyed mapping of configuration values.
// Keys are unique within a node; insertion order carries no meaning.
// Trees are produced fresh by the parser and are never back-referenced,
// so they contain no cycles.
type Tree struct {
	entries map[string]Value
}

// NewTree creates an empty Tree.
func NewTree() *Tree {
	return &Tree{entries: make(map[string]Value)}
}

// Set stores a value under the given key, replacing any previous value.
func (t *Tree) Set(key string, v Value) {
	t.entries[key] = v
}

// Get returns the value stored under key, and whether it exists.
func (t *Tree) Get(key string) (Value, bool) {
	v, ok := t.entries[key]
	return v, ok
}

// Has returns true if the key exists in this node.
func (t *Tree) Has(key string) bool {
	_, ok := t.entries[key]
	return ok
}

// Len returns the number of keys in this node.
func (t *Tree) Len() int {
	return len(t.entries)
}

// Keys returns the keys of this node in sorted order.
// Sorting keeps serialization and iteration deterministic.
func (t *Tree) Keys() []string {
	keys := make([]string, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy of the Tree.
func (t *Tree) Clone() *Tree {
	out := NewTree()
	for k, v := range t.entries {
		out.entries[k] = v.clone()
	}
	return out
}

// Equal reports structural equality of two Trees.
func (t *Tree) Equal(other *Tree) bool {
	if t == nil || other == nil {
		return t == other
	}
	if len(t.entries) != len(other.entries) {
		return false
	}
	for k, v := range t.entries {
		ov, ok := other.entries[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Version returns the string value stored under the "version" key at
// this node, or "" when the key is absent or not a string. Documents
// are expected to quote versions; an unquoted numeric-looking version
// coerces to int or float, so those kinds are stringified too.
func (t *Tree) Version() string {
	v, ok := t.Get("version")
	if !ok {
		return ""
	}
	switch v.Kind {
	case KindString:
		return v.Str
	case KindInt, KindFloat:
		return formatScalar(v)
	default:
		return ""
	}
}
