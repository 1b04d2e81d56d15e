package intake

import (
	"encoding/json"
	"html"
	"math"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Upper bound on strip passes, markup can only be nested so deep after unescaping
const maxSanitizePasses = 8

var strictPolicy = bluemonday.StrictPolicy()

func stripTags(s string) string {
	for range maxSanitizePasses {
		stripped := html.UnescapeString(strictPolicy.Sanitize(s))
		if stripped == s {
			break
		}
		s = stripped
	}

	return s
}

// Plain single line text: no markup, no line breaks, single spaces, trimmed
func SanitizeText(s string) string {
	return strings.Join(strings.Fields(stripTags(s)), " ")
}

// Multi line text: no markup, each line trimmed and collapsed, line breaks kept
func SanitizeTextarea(s string) string {
	lines := strings.Split(strings.ReplaceAll(stripTags(s), "\r\n", "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Non-negative integer from a JSON value. Negative, fractional garbage and unparsable
// input becomes 0, fractional numbers are truncated.
func SanitizeUint(raw json.RawMessage) uint64 {
	f, ok := numberFromJSON(raw)
	if !ok || f < 0 {
		return 0
	}
	if f >= math.MaxUint64 {
		return math.MaxUint64
	}

	return uint64(f)
}

// Float from a JSON value, unparsable or non finite input becomes 0
func SanitizeFloat(raw json.RawMessage) float64 {
	f, ok := numberFromJSON(raw)
	if !ok {
		return 0
	}

	return f
}

// Text from a JSON value, numbers and booleans are kept in their literal form
func SanitizeTextJSON(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return SanitizeText(s)
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}

	switch v.(type) {
	case float64, bool:
		return SanitizeText(strings.TrimSpace(string(raw)))
	default:
		return ""
	}
}

func numberFromJSON(raw json.RawMessage) (float64, bool) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}

	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case bool:
		if val {
			f = 1
		}
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}

	return f, true
}
