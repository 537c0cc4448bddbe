package assistant

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const riskAssessmentSchema = `{
  "type": "object",
  "properties": {
    "location": {"type": "string"},
    "riskLevel": {"type": "string", "enum": ["Alto", "Medio", "Bajo"]},
    "keyFactors": {"type": "array", "items": {"type": "string"}, "minItems": 1},
    "recommendations": {"type": "array", "items": {"type": "string"}, "minItems": 1}
  },
  "required": ["location", "riskLevel", "keyFactors", "recommendations"],
  "additionalProperties": false
}`

const unknown = "sin dato"

func pct(v float64) string {
	if v == 0 {
		return unknown
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func orUnknown(s string) string {
	return orDefault(s, unknown)
}

func intOrUnknown(n int) string {
	if n <= 0 {
		return unknown
	}
	return strconv.Itoa(n)
}

func listOrUnknown(items []string) string {
	if len(items) == 0 {
		return unknown
	}
	return strings.Join(items, ", ")
}

func optionalLine(label, value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	return label + ": " + value + "\n"
}

// formatValue renders loosely typed request fields: arrays are joined with
// commas and everything else is printed as is.
func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return unknown
	case string:
		return orUnknown(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(t)
	}
}

func jsonValue(v any) string {
	if v == nil {
		return unknown
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
