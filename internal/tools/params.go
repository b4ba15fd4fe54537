package tools

import (
	"encoding/json"
	"strings"
	"time"
)

// decode unmarshals tool parameters, mapping malformed JSON to a
// validation error.
func decode[T any](params json.RawMessage, out *T) *ToolError {
	if err := json.Unmarshal(params, out); err != nil {
		return validationErr(CodeValidation, "malformed parameters: %v", err)
	}
	return nil
}

// parseUTCInstant parses a time-bearing field. The tool contract requires
// ISO-8601 UTC strings ending in Z.
func parseUTCInstant(value, field string) (time.Time, *ToolError) {
	if value == "" {
		return time.Time{}, validationErr(CodeValidation, "%s is required", field)
	}
	if !strings.HasSuffix(value, "Z") {
		return time.Time{}, validationErr(CodeValidation, "%s must be an ISO-8601 UTC string ending in Z, got %q", field, value)
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, validationErr(CodeValidation, "%s is not a valid timestamp: %v", field, err)
	}
	return t.UTC(), nil
}

// parseOptionalDate accepts a date-only or full timestamp string, or
// empty for none.
func parseOptionalDate(value, field string) (*time.Time, *ToolError) {
	if value == "" || strings.EqualFold(value, "null") {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, validationErr(CodeValidation, "%s is not a valid date: %q", field, value)
}
