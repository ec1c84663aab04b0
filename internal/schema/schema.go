// ABOUTME: Minimal JSON Schema subset used to describe tool arguments.
// ABOUTME: Tagged recursive type with JSON Schema wire marshaling for tools/list.

package schema

import (
	"encoding/json"
	"fmt"
)

// Scalar type names understood by the coercer.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeObject  = "object"
	TypeArray   = "array"
	TypeNull    = "null"
)

// Schema describes one node of a tool's argument shape. Only the subset
// needed for tool arguments is modeled: scalar type unions (including null),
// enums, object properties with required fields and an additionalProperties
// flag, and homogeneous arrays.
type Schema struct {
	Types                []string
	Description          string
	Properties           map[string]*Schema
	Items                *Schema
	Required             []string
	AdditionalProperties *bool // nil means true
	Enum                 []string
}

// Allows reports whether the schema's type set contains t.
func (s *Schema) Allows(t string) bool {
	for _, st := range s.Types {
		if st == t {
			return true
		}
	}
	return false
}

// MarshalJSON renders the node as standard JSON Schema so tool catalogs can
// be serialized for tools/list. A single-element type set marshals as a bare
// string, matching what MCP clients expect.
func (s *Schema) MarshalJSON() ([]byte, error) {
	out := make(map[string]any)

	switch len(s.Types) {
	case 0:
	case 1:
		out["type"] = s.Types[0]
	default:
		out["type"] = s.Types
	}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if len(s.Properties) > 0 {
		out["properties"] = s.Properties
	}
	if s.Items != nil {
		out["items"] = s.Items
	}
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	if s.AdditionalProperties != nil {
		out["additionalProperties"] = *s.AdditionalProperties
	}
	if len(s.Enum) > 0 {
		out["enum"] = s.Enum
	}
	return json.Marshal(out)
}

// Builders keep tool catalog construction readable.

// String returns a string schema.
func String(description string) *Schema {
	return &Schema{Types: []string{TypeString}, Description: description}
}

// Number returns a number schema.
func Number(description string) *Schema {
	return &Schema{Types: []string{TypeNumber}, Description: description}
}

// Boolean returns a boolean schema.
func Boolean(description string) *Schema {
	return &Schema{Types: []string{TypeBoolean}, Description: description}
}

// Enum returns a string schema restricted to the given values.
func Enum(description string, values ...string) *Schema {
	s := String(description)
	s.Enum = values
	return s
}

// Array returns an array schema with the given element schema.
func Array(description string, items *Schema) *Schema {
	return &Schema{Types: []string{TypeArray}, Description: description, Items: items}
}

// Object returns an object schema. Required fields are listed by name and
// must exist in properties.
func Object(properties map[string]*Schema, required ...string) *Schema {
	return &Schema{
		Types:      []string{TypeObject},
		Properties: properties,
		Required:   required,
	}
}

// Nullable widens the schema's type set with null.
func Nullable(s *Schema) *Schema {
	if !s.Allows(TypeNull) {
		s.Types = append(s.Types, TypeNull)
	}
	return s
}

// Closed sets additionalProperties to false on an object schema.
func Closed(s *Schema) *Schema {
	f := false
	s.AdditionalProperties = &f
	return s
}

// DescribeType names a decoded JSON value's type for error messages.
func DescribeType(v any) string {
	switch v.(type) {
	case nil:
		return TypeNull
	case string:
		return TypeString
	case bool:
		return TypeBoolean
	case float64, int, int64:
		return TypeNumber
	case []any:
		return TypeArray
	case map[string]any:
		return TypeObject
	default:
		return fmt.Sprintf("%T", v)
	}
}
