package models

import (
	"encoding/json"
	"math"
	"sort"
)

// Parameters is a name -> value mapping for one strategy. Values decoded from
// JSON arrive as float64, string, bool or []any; the typed getters normalize.
type Parameters map[string]any

// Clone returns a shallow copy (slices are copied one level deep).
func (p Parameters) Clone() Parameters {
	if p == nil {
		return Parameters{}
	}
	out := make(Parameters, len(p))
	for k, v := range p {
		switch vv := v.(type) {
		case []string:
			out[k] = append([]string(nil), vv...)
		case []any:
			out[k] = append([]any(nil), vv...)
		default:
			out[k] = v
		}
	}
	return out
}

// Merge returns a copy of p overlaid with the keys of o.
func (p Parameters) Merge(o Parameters) Parameters {
	out := p.Clone()
	for k, v := range o {
		out[k] = v
	}
	return out
}

// Keys returns the parameter names in sorted order.
func (p Parameters) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Float returns the named value as float64, or def when absent or not numeric.
func (p Parameters) Float(name string, def float64) float64 {
	if f, ok := AsFloat(p[name]); ok {
		return f
	}
	return def
}

// Int returns the named value as int, or def when absent or not numeric.
func (p Parameters) Int(name string, def int) int {
	if f, ok := AsFloat(p[name]); ok {
		return int(math.Round(f))
	}
	return def
}

// Bool returns the named value as bool, or def.
func (p Parameters) Bool(name string, def bool) bool {
	if b, ok := p[name].(bool); ok {
		return b
	}
	return def
}

// String returns the named value as string, or def.
func (p Parameters) String(name string, def string) string {
	if s, ok := p[name].(string); ok {
		return s
	}
	return def
}

// Strings returns the named value as a string list, or def.
func (p Parameters) Strings(name string, def []string) []string {
	if s, ok := AsStrings(p[name]); ok {
		return s
	}
	return def
}

// AsFloat converts the numeric kinds produced by JSON/YAML decoding.
func AsFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// AsStrings converts []string or []any of strings.
func AsStrings(v any) ([]string, bool) {
	switch s := v.(type) {
	case []string:
		return append([]string(nil), s...), true
	case []any:
		out := make([]string, 0, len(s))
		for _, e := range s {
			str, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, str)
		}
		return out, true
	default:
		return nil, false
	}
}
