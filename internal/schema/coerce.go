// ABOUTME: Recursive argument coercion against the schema subset.
// ABOUTME: Lenient on numeric strings, strict on structure; collects field errors.

package schema

import (
	"math"
	"strconv"
	"strings"
)

// FieldError describes a single coercion or validation failure at a dotted
// path (array elements use [index] suffixes).
type FieldError struct {
	Path     string `json:"path"`
	Expected string `json:"expected"`
	Got      string `json:"got"`
}

// Coerce walks the schema against a decoded JSON value and returns the
// coerced value plus any accumulated field errors. Coercion rules, in order:
// nulls are accepted only when the type set allows null; numeric strings
// coerce to numbers; numbers coerce to strings; strings are trimmed and
// enum-checked; arrays and objects recurse. Unknown object fields pass
// through unless additionalProperties is false, in which case they are
// dropped silently. A non-empty error list means validation failed.
func Coerce(s *Schema, value any) (any, []FieldError) {
	return coerce(s, value, "")
}

func coerce(s *Schema, value any, path string) (any, []FieldError) {
	if value == nil {
		if s.Allows(TypeNull) {
			return nil, nil
		}
		return nil, []FieldError{{Path: path, Expected: expected(s), Got: TypeNull}}
	}

	if str, ok := value.(string); ok && s.Allows(TypeNumber) {
		trimmed := strings.TrimSpace(str)
		if trimmed != "" {
			if n, err := strconv.ParseFloat(trimmed, 64); err == nil && !math.IsInf(n, 0) && !math.IsNaN(n) {
				return n, nil
			}
		}
	}

	if n, ok := asNumber(value); ok {
		if s.Allows(TypeNumber) {
			if math.IsInf(n, 0) || math.IsNaN(n) {
				return nil, []FieldError{{Path: path, Expected: expected(s), Got: "non-finite number"}}
			}
			return n, nil
		}
		if s.Allows(TypeString) {
			return strconv.FormatFloat(n, 'f', -1, 64), nil
		}
	}

	if str, ok := value.(string); ok && s.Allows(TypeString) {
		trimmed := strings.TrimSpace(str)
		if len(s.Enum) > 0 && !contains(s.Enum, trimmed) {
			return nil, []FieldError{{
				Path:     path,
				Expected: "one of [" + strings.Join(s.Enum, ", ") + "]",
				Got:      strconv.Quote(trimmed),
			}}
		}
		return trimmed, nil
	}

	if b, ok := value.(bool); ok && s.Allows(TypeBoolean) {
		return b, nil
	}

	if arr, ok := value.([]any); ok && s.Allows(TypeArray) {
		return coerceArray(s, arr, path)
	}

	if obj, ok := value.(map[string]any); ok && s.Allows(TypeObject) {
		return coerceObject(s, obj, path)
	}

	return nil, []FieldError{{Path: path, Expected: expected(s), Got: DescribeType(value)}}
}

func coerceArray(s *Schema, arr []any, path string) (any, []FieldError) {
	if s.Items == nil {
		return arr, nil
	}
	var errs []FieldError
	out := make([]any, len(arr))
	for i, elem := range arr {
		v, elemErrs := coerce(s.Items, elem, path+"["+strconv.Itoa(i)+"]")
		out[i] = v
		errs = append(errs, elemErrs...)
	}
	return out, errs
}

func coerceObject(s *Schema, obj map[string]any, path string) (any, []FieldError) {
	var errs []FieldError
	out := make(map[string]any, len(obj))

	for _, name := range s.Required {
		if _, present := obj[name]; !present {
			errs = append(errs, FieldError{
				Path:     childPath(path, name),
				Expected: "required",
				Got:      "missing",
			})
		}
	}

	for name, raw := range obj {
		child, known := s.Properties[name]
		if !known {
			// Unknown fields pass through unless the object is closed,
			// in which case they are dropped without an error.
			if s.AdditionalProperties == nil || *s.AdditionalProperties {
				out[name] = raw
			}
			continue
		}
		v, childErrs := coerce(child, raw, childPath(path, name))
		if len(childErrs) == 0 {
			out[name] = v
		}
		errs = append(errs, childErrs...)
	}

	return out, errs
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func expected(s *Schema) string {
	return strings.Join(s.Types, "|")
}

func childPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
