package value

import (
	"errors"
	"fmt"
)

// ErrUnsupportedType is returned when a dynamic value cannot be represented
// as one of the store's bin value variants.
var ErrUnsupportedType = errors.New("unsupported value type")

// Value is a sealed interface representing the store's bin value variants.
// Only Null, Int, Double, String, Bytes, List, and Map implement it.
//
// The variant set is closed on purpose: conversion from the dynamic model
// is an exhaustive type switch, and anything outside the set is a
// reportable parameter error rather than a best-effort coercion.
type Value interface {
	value() // Sealed - only these types implement it
}

// Null represents the null bin value.
// Using an explicit type ensures all Values satisfy the sealed interface.
type Null struct{}

func (Null) value() {}

// Int represents an integer bin value. Always int64.
type Int int64

func (Int) value() {}

// Double represents a floating-point bin value. Always float64.
type Double float64

func (Double) value() {}

// String represents a string bin value.
type String string

func (String) value() {}

// Bytes represents an opaque byte-sequence bin value.
// The underlying slice is owned by the Value; conversions copy.
type Bytes []byte

func (Bytes) value() {}

// List represents an ordered sequence of Values.
type List []Value

func (List) value() {}

// Map represents a mapping of string keys to Values.
type Map map[string]Value

func (Map) value() {}

// FromAny converts a dynamic value into a Value.
//
// Accepted dynamic types: nil, all signed/unsigned integer widths
// (uint64 must fit in int64), float32/float64, string, []byte, []any,
// and map[string]any. Lists and maps convert recursively with no fixed
// depth limit; nesting depth is bounded only by available memory.
//
// Anything else fails with ErrUnsupportedType. Malformed input is a
// reportable error, never a panic.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint:
		if uint64(val) > maxInt64 {
			return nil, fmt.Errorf("%w: uint %d overflows int64", ErrUnsupportedType, val)
		}
		return Int(val), nil
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint64:
		if val > maxInt64 {
			return nil, fmt.Errorf("%w: uint64 %d overflows int64", ErrUnsupportedType, val)
		}
		return Int(val), nil
	case float32:
		return Double(val), nil
	case float64:
		return Double(val), nil
	case string:
		return String(val), nil
	case []byte:
		b := make(Bytes, len(val))
		copy(b, val)
		return b, nil
	case []any:
		list := make(List, len(val))
		for i, elem := range val {
			conv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("list[%d]: %w", i, err)
			}
			list[i] = conv
		}
		return list, nil
	case map[string]any:
		m := make(Map, len(val))
		for k, elem := range val {
			conv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("map[%q]: %w", k, err)
			}
			m[k] = conv
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedType, v)
	}
}

const maxInt64 = 1<<63 - 1

// ToAny converts a Value back into the dynamic model.
//
// Int becomes int64, Double float64, String string, Bytes a fresh
// []byte copy, List []any, Map map[string]any, and Null nil. Recursion
// mirrors FromAny: unbounded depth, bounded only by memory.
func ToAny(v Value) any {
	switch val := v.(type) {
	case Null:
		return nil
	case Int:
		return int64(val)
	case Double:
		return float64(val)
	case String:
		return string(val)
	case Bytes:
		b := make([]byte, len(val))
		copy(b, val)
		return b
	case List:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToAny(elem)
		}
		return out
	case Map:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = ToAny(elem)
		}
		return out
	default:
		// Unreachable for sealed variants; nil keeps callers total.
		return nil
	}
}

// Clone returns a deep copy of v. Scalars share no mutable state, so
// only Bytes, List, and Map allocate.
func Clone(v Value) Value {
	switch val := v.(type) {
	case Bytes:
		b := make(Bytes, len(val))
		copy(b, val)
		return b
	case List:
		out := make(List, len(val))
		for i, elem := range val {
			out[i] = Clone(elem)
		}
		return out
	case Map:
		out := make(Map, len(val))
		for k, elem := range val {
			out[k] = Clone(elem)
		}
		return out
	default:
		return val
	}
}
