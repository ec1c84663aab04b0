// ABOUTME: Domain-specific argument normalization applied after schema coercion.
// ABOUTME: Unit synonym mapping, name trimming, result-set size clamping.

package tools

import "strings"

// maxResultLimit caps requested result-set sizes across list/search tools.
const maxResultLimit = 50

// unitSynonyms maps localized and long-form unit spellings onto the
// canonical codes the nutrition aggregator understands.
var unitSynonyms = map[string]string{
	"г":      "g",
	"гр":     "g",
	"грамм":  "g",
	"gram":   "g",
	"grams":  "g",
	"кг":     "kg",
	"мл":     "ml",
	"л":      "l",
	"шт":     "pcs",
	"штук":   "pcs",
	"piece":  "pcs",
	"pieces": "pcs",
}

// CanonicalUnit maps a unit spelling to its canonical code; unrecognized
// spellings pass through lowercased (the aggregator skips what it does not
// know).
func CanonicalUnit(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))
	if canonical, ok := unitSynonyms[u]; ok {
		return canonical
	}
	return u
}

// normalizeUnitArg rewrites a string unit argument in place.
func normalizeUnitArg(args map[string]any, field string) {
	if raw, ok := args[field].(string); ok {
		args[field] = CanonicalUnit(raw)
	}
}

// clampLimitArg caps a numeric limit argument at maxResultLimit.
func clampLimitArg(args map[string]any, field string) {
	if raw, ok := args[field].(float64); ok && raw > maxResultLimit {
		args[field] = float64(maxResultLimit)
	}
}
