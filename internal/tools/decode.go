// ABOUTME: Post-coercion DTO decoding: coerced argument maps into typed structs.
// ABOUTME: Reflective required/enum tag checks produce VALIDATION_ERROR field entries.

package tools

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/macrolog/macro-gateway/internal/schema"
)

// Decode maps a coerced argument map into a typed DTO and runs the stricter
// entity-specific validation pass: struct fields tagged `required:"true"`
// must be set, and string fields tagged `enum:"a,b,c"` must hold one of the
// listed values when non-empty. Failures return a VALIDATION_ERROR whose
// field entries use dotted paths.
func Decode(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  out,
	})
	if err != nil {
		return &Error{Kind: KindInternal, Message: "building argument decoder: " + err.Error()}
	}
	if err := dec.Decode(args); err != nil {
		return ValidationError("arguments do not match the expected shape: "+err.Error(), nil)
	}
	if fields := checkConstraints(reflect.ValueOf(out).Elem(), ""); len(fields) > 0 {
		return ValidationError("invalid arguments", fields)
	}
	return nil
}

// checkConstraints walks a DTO struct collecting required/enum violations.
// Nested structs flatten into dotted paths; pointer fields count as set when
// non-nil.
func checkConstraints(v reflect.Value, prefix string) []schema.FieldError {
	var out []schema.FieldError
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		value := v.Field(i)
		path := childPath(prefix, fieldName(field))

		if field.Tag.Get("required") == "true" && isZero(value) {
			out = append(out, schema.FieldError{Path: path, Expected: "required", Got: "missing"})
			continue
		}

		if enum := field.Tag.Get("enum"); enum != "" {
			if s, ok := stringValue(value); ok && s != "" && !inList(enum, s) {
				out = append(out, schema.FieldError{
					Path:     path,
					Expected: "one of [" + strings.ReplaceAll(enum, ",", ", ") + "]",
					Got:      strconv.Quote(s),
				})
			}
		}

		nested := value
		if nested.Kind() == reflect.Pointer && !nested.IsNil() {
			nested = nested.Elem()
		}
		if nested.Kind() == reflect.Struct {
			out = append(out, checkConstraints(nested, path)...)
		}
	}
	return out
}

func fieldName(field reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "" || tag == "-" {
		return field.Name
	}
	if idx := strings.Index(tag, ","); idx >= 0 {
		tag = tag[:idx]
	}
	if tag == "" {
		return field.Name
	}
	return tag
}

func isZero(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map:
		return v.IsNil()
	case reflect.String:
		return strings.TrimSpace(v.String()) == ""
	default:
		return v.IsZero()
	}
}

func stringValue(v reflect.Value) (string, bool) {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return "", false
		}
		v = v.Elem()
	}
	if v.Kind() == reflect.String {
		return v.String(), true
	}
	return "", false
}

func inList(csv, s string) bool {
	for _, item := range strings.Split(csv, ",") {
		if item == s {
			return true
		}
	}
	return false
}

func childPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
