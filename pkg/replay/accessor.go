package replay

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// ArrayIdx formats an array index the way field paths spell it ("0007").
func ArrayIdx(i int) string {
	return fmt.Sprintf("%04d", i)
}

// Path substitutes the first %i placeholder with the formatted index.
// Without an index the path is returned untouched.
func Path(path string, idx ...int) string {
	if len(idx) == 0 {
		return path
	}
	return strings.Replace(path, "%i", ArrayIdx(idx[0]), 1)
}

func lookup(e Entity, path string, idx ...int) (any, bool) {
	if e == nil {
		return nil, false
	}
	v, ok := e.Property(Path(path, idx...))
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Int resolves an integer property. Integral floats are accepted; anything
// else is reported as absent.
func Int(e Entity, path string, idx ...int) (int, bool) {
	v, ok := Int64(e, path, idx...)
	if !ok {
		return 0, false
	}
	return int(v), true
}

// Int64 resolves a 64-bit integer property.
func Int64(e Entity, path string, idx ...int) (int64, bool) {
	v, ok := lookup(e, path, idx...)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt(f)
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func floatToInt(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}

// Float resolves a floating point property. Integers are widened.
func Float(e Entity, path string, idx ...int) (float32, bool) {
	v, ok := lookup(e, path, idx...)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float32:
		return n, true
	case float64:
		return float32(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return float32(f), true
	}
	if i, ok := Int64(e, path, idx...); ok {
		return float32(i), true
	}
	return 0, false
}

// Bool resolves a boolean property. Integer 0/1 encodings are accepted.
func Bool(e Entity, path string, idx ...int) (bool, bool) {
	v, ok := lookup(e, path, idx...)
	if !ok {
		return false, false
	}
	if b, ok := v.(bool); ok {
		return b, true
	}
	i, ok := Int64(e, path, idx...)
	if !ok {
		return false, false
	}
	return i != 0, true
}

// String resolves a string property.
func String(e Entity, path string, idx ...int) (string, bool) {
	v, ok := lookup(e, path, idx...)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Ptr lifts a (value, ok) lookup into an optional field value.
func Ptr[T any](v T, ok bool) *T {
	if !ok {
		return nil
	}
	return &v
}
