package fields

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Type is a declared field type tag.
type Type string

const (
	TypeAny     Type = "any"
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeBoolean Type = "boolean"
	TypeDate    Type = "date"
	TypeStrings Type = "string[]"
)

// KnownTypes lists every accepted tag (the empty tag means TypeAny).
var KnownTypes = []Type{TypeAny, TypeString, TypeNumber, TypeBoolean, TypeDate, TypeStrings}

// Known reports whether t is a supported tag.
func (t Type) Known() bool {
	if t == "" {
		return true
	}
	for _, k := range KnownTypes {
		if t == k {
			return true
		}
	}
	return false
}

// Coerce converts v to the canonical Go representation of t. ok is false when
// v cannot represent a value of t.
func (t Type) Coerce(v any) (any, bool) {
	switch t {
	case "", TypeAny:
		return v, true
	case TypeString:
		return coerceString(v)
	case TypeNumber:
		return coerceNumber(v)
	case TypeBoolean:
		return coerceBool(v)
	case TypeDate:
		return coerceDate(v)
	case TypeStrings:
		return coerceStrings(v)
	default:
		return nil, false
	}
}

func coerceString(v any) (any, bool) {
	switch vv := v.(type) {
	case string:
		return vv, true
	case bool, int, int64, uint64, float64:
		return fmt.Sprint(vv), true
	case time.Time:
		return vv.UTC().Format(time.RFC3339), true
	default:
		return nil, false
	}
}

// coerceNumber keeps integers exact as int64 and everything else as float64.
func coerceNumber(v any) (any, bool) {
	switch vv := v.(type) {
	case int:
		return int64(vv), true
	case int64:
		return vv, true
	case uint64:
		if vv > math.MaxInt64 {
			return float64(vv), true
		}
		return int64(vv), true
	case float64:
		if math.IsNaN(vv) || math.IsInf(vv, 0) {
			return nil, false
		}
		return vv, true
	case string:
		s := strings.TrimSpace(vv)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, false
		}
		return f, true
	default:
		return nil, false
	}
}

func coerceBool(v any) (any, bool) {
	switch vv := v.(type) {
	case bool:
		return vv, true
	case string:
		switch strings.ToLower(strings.TrimSpace(vv)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return nil, false
}

var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

func coerceDate(v any) (any, bool) {
	switch vv := v.(type) {
	case time.Time:
		return vv.UTC(), true
	case string:
		s := strings.TrimSpace(vv)
		for _, layout := range dateLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts.UTC(), true
			}
		}
	}
	return nil, false
}

func coerceStrings(v any) (any, bool) {
	switch vv := v.(type) {
	case []string:
		return append([]string(nil), vv...), true
	case string:
		return []string{vv}, true
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			s, ok := coerceString(item)
			if !ok {
				return nil, false
			}
			out = append(out, s.(string))
		}
		return out, true
	default:
		return nil, false
	}
}
