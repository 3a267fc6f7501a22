// Package rtbtypes provides shared type definitions used across the RTB
// template engine packages. This package exists to break import cycles
// between store, resolver, and processor. Types in this package should be
// foundational data structures with no complex dependencies.
package rtbtypes

import (
	"fmt"
	"sort"
	"strings"
)

// Kind identifies the dynamic type of a ConfigValue.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// String returns the lowercase kind name used in structural keys and
// diagnostics.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ConfigValue is a closed sum over the value types a template parameter can
// hold: null, boolean, number, string, array, object. Keeping the set
// closed lets merge-strategy logic branch exhaustively instead of relying
// on runtime type switches over interface{}.
type ConfigValue struct {
	kind Kind
	b    bool
	n    float64
	s    string
	arr  []ConfigValue
	obj  map[string]ConfigValue
}

// Null returns the null value.
func Null() ConfigValue {
	return ConfigValue{kind: KindNull}
}

// Bool wraps a boolean.
func Bool(b bool) ConfigValue {
	return ConfigValue{kind: KindBool, b: b}
}

// Number wraps a float64. Integers round-trip exactly up to 2^53, which
// covers every RAN parameter range in practice.
func Number(n float64) ConfigValue {
	return ConfigValue{kind: KindNumber, n: n}
}

// Int wraps an integer as a number value.
func Int(n int) ConfigValue {
	return Number(float64(n))
}

// String wraps a string.
func String(s string) ConfigValue {
	return ConfigValue{kind: KindString, s: s}
}

// Array wraps a list of values. The slice is not copied.
func Array(items ...ConfigValue) ConfigValue {
	return ConfigValue{kind: KindArray, arr: items}
}

// Object wraps a key/value map. The map is not copied.
func Object(m map[string]ConfigValue) ConfigValue {
	if m == nil {
		m = map[string]ConfigValue{}
	}
	return ConfigValue{kind: KindObject, obj: m}
}

// Kind returns the dynamic type tag.
func (v ConfigValue) Kind() Kind { return v.kind }

// IsNull reports whether the value is null.
func (v ConfigValue) IsNull() bool { return v.kind == KindNull }

// BoolVal returns the boolean payload (false for non-bools).
func (v ConfigValue) BoolVal() bool { return v.b }

// NumberVal returns the numeric payload (0 for non-numbers).
func (v ConfigValue) NumberVal() float64 { return v.n }

// StringVal returns the string payload ("" for non-strings).
func (v ConfigValue) StringVal() string { return v.s }

// ArrayVal returns the array payload (nil for non-arrays).
func (v ConfigValue) ArrayVal() []ConfigValue { return v.arr }

// ObjectVal returns the object payload (nil for non-objects).
func (v ConfigValue) ObjectVal() map[string]ConfigValue { return v.obj }

// Equal reports deep structural equality.
func (v ConfigValue) Equal(o ConfigValue) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.n == o.n
	case KindString:
		return v.s == o.s
	case KindArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.obj) != len(o.obj) {
			return false
		}
		for k, vv := range v.obj {
			ov, ok := o.obj[k]
			if !ok || !vv.Equal(ov) {
				return false
			}
		}
		return true
	}
	return false
}

// StructuralKey groups values for conflict detection. Two values with the
// same key are considered the "same shape" even when their contents differ:
// null/boolean/number collapse to their type, strings keep a 50-rune prefix,
// arrays group by length and objects by key count.
func (v ConfigValue) StructuralKey() string {
	switch v.kind {
	case KindNull, KindBool, KindNumber:
		return v.kind.String()
	case KindString:
		s := v.s
		if len(s) > 50 {
			s = s[:50]
		}
		return "string:" + s
	case KindArray:
		return fmt.Sprintf("array:%d", len(v.arr))
	case KindObject:
		return fmt.Sprintf("object:%d", len(v.obj))
	}
	return "unknown"
}

// Clone returns a deep copy. Arrays and objects are copied recursively so
// callers can mutate the result without aliasing store-owned data.
func (v ConfigValue) Clone() ConfigValue {
	switch v.kind {
	case KindArray:
		items := make([]ConfigValue, len(v.arr))
		for i, it := range v.arr {
			items[i] = it.Clone()
		}
		return ConfigValue{kind: KindArray, arr: items}
	case KindObject:
		m := make(map[string]ConfigValue, len(v.obj))
		for k, it := range v.obj {
			m[k] = it.Clone()
		}
		return ConfigValue{kind: KindObject, obj: m}
	default:
		return v
	}
}

// Canonical renders a deterministic string form with sorted object keys.
// Used for cache keys and array dedupe, never shown to users.
func (v ConfigValue) Canonical() string {
	var b strings.Builder
	v.writeCanonical(&b)
	return b.String()
}

func (v ConfigValue) writeCanonical(b *strings.Builder) {
	switch v.kind {
	case KindNull:
		b.WriteString("null")
	case KindBool:
		fmt.Fprintf(b, "%t", v.b)
	case KindNumber:
		fmt.Fprintf(b, "%g", v.n)
	case KindString:
		fmt.Fprintf(b, "%q", v.s)
	case KindArray:
		b.WriteByte('[')
		for i, it := range v.arr {
			if i > 0 {
				b.WriteByte(',')
			}
			it.writeCanonical(b)
		}
		b.WriteByte(']')
	case KindObject:
		keys := make([]string, 0, len(v.obj))
		for k := range v.obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			fmt.Fprintf(b, "%q:", k)
			it := v.obj[k]
			it.writeCanonical(b)
		}
		b.WriteByte('}')
	}
}

// CanonicalConfig renders a whole configuration map deterministically.
func CanonicalConfig(cfg map[string]ConfigValue) string {
	return Object(cfg).Canonical()
}
