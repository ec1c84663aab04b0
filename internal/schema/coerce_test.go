// ABOUTME: Tests for the recursive argument coercer.
// ABOUTME: Covers numeric-string leniency, enum, required, nested paths, nulls.

package schema

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerce_NumericStringLeniency(t *testing.T) {
	s := Object(map[string]*Schema{"heightCm": Number("")})

	got, errs := Coerce(s, map[string]any{"heightCm": "168"})
	require.Empty(t, errs)
	assert.Equal(t, 168.0, got.(map[string]any)["heightCm"])
}

func TestCoerce_UnparseableNumericString(t *testing.T) {
	s := Object(map[string]*Schema{"kcal100": Number("")})

	_, errs := Coerce(s, map[string]any{"kcal100": "abc"})
	require.Len(t, errs, 1)
	assert.Equal(t, "kcal100", errs[0].Path)
	assert.Equal(t, "number", errs[0].Expected)
	assert.Equal(t, "string", errs[0].Got)
}

func TestCoerce_NumberToString(t *testing.T) {
	s := Object(map[string]*Schema{"title": String("")})

	got, errs := Coerce(s, map[string]any{"title": 42.0})
	require.Empty(t, errs)
	assert.Equal(t, "42", got.(map[string]any)["title"])
}

func TestCoerce_StringTrimAndEnum(t *testing.T) {
	s := Object(map[string]*Schema{
		"goal": Enum("", "LOSE", "MAINTAIN", "GAIN"),
		"name": String(""),
	})

	got, errs := Coerce(s, map[string]any{"goal": " LOSE ", "name": "  pasta  "})
	require.Empty(t, errs)
	obj := got.(map[string]any)
	assert.Equal(t, "LOSE", obj["goal"])
	assert.Equal(t, "pasta", obj["name"])

	_, errs = Coerce(s, map[string]any{"goal": "BULK"})
	require.Len(t, errs, 1)
	assert.Equal(t, "one of [LOSE, MAINTAIN, GAIN]", errs[0].Expected)
}

func TestCoerce_NullHandling(t *testing.T) {
	s := Object(map[string]*Schema{
		"servings": Nullable(Number("")),
		"title":    String(""),
	})

	got, errs := Coerce(s, map[string]any{"servings": nil})
	require.Empty(t, errs)
	v, present := got.(map[string]any)["servings"]
	assert.True(t, present)
	assert.Nil(t, v)

	_, errs = Coerce(s, map[string]any{"title": nil})
	require.Len(t, errs, 1)
	assert.Equal(t, "null", errs[0].Got)
}

func TestCoerce_RequiredFields(t *testing.T) {
	s := Object(map[string]*Schema{"title": String("")}, "title")

	_, errs := Coerce(s, map[string]any{})
	require.Len(t, errs, 1)
	assert.Equal(t, FieldError{Path: "title", Expected: "required", Got: "missing"}, errs[0])
}

func TestCoerce_ClosedObjectDropsUnknownFields(t *testing.T) {
	s := Closed(Object(map[string]*Schema{"title": String("")}))

	got, errs := Coerce(s, map[string]any{"title": "ok", "bogus": 1.0})
	require.Empty(t, errs)
	obj := got.(map[string]any)
	assert.Equal(t, "ok", obj["title"])
	assert.NotContains(t, obj, "bogus")
}

func TestCoerce_OpenObjectKeepsUnknownFields(t *testing.T) {
	s := Object(map[string]*Schema{"title": String("")})

	got, errs := Coerce(s, map[string]any{"title": "ok", "extra": true})
	require.Empty(t, errs)
	assert.Equal(t, true, got.(map[string]any)["extra"])
}

func TestCoerce_ArrayElementPaths(t *testing.T) {
	s := Object(map[string]*Schema{
		"steps": Array("", Object(map[string]*Schema{"text": String("")}, "text")),
	})

	_, errs := Coerce(s, map[string]any{
		"steps": []any{
			map[string]any{"text": "boil water"},
			map[string]any{},
		},
	})
	require.Len(t, errs, 1)
	assert.Equal(t, "steps[1].text", errs[0].Path)
}

func TestCoerce_NonFiniteNumberRejected(t *testing.T) {
	s := Object(map[string]*Schema{"amount": Number("")})

	_, errs := Coerce(s, map[string]any{"amount": math.Inf(1)})
	require.Len(t, errs, 1)
	assert.Equal(t, "non-finite number", errs[0].Got)
}

func TestCoerce_TypeMismatch(t *testing.T) {
	s := Object(map[string]*Schema{"flag": Boolean("")})

	_, errs := Coerce(s, map[string]any{"flag": "yes"})
	require.Len(t, errs, 1)
	assert.Equal(t, "boolean", errs[0].Expected)
	assert.Equal(t, "string", errs[0].Got)
}

func TestSchema_MarshalsAsStandardJSONSchema(t *testing.T) {
	s := Object(map[string]*Schema{"title": String("Recipe title")}, "title")

	data, err := s.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "object",
		"properties": {"title": {"type": "string", "description": "Recipe title"}},
		"required": ["title"]
	}`, string(data))
}
