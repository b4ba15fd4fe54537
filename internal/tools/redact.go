package tools

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// freeTextFields are the parameter fields that may carry user-authored
// content. FailedOperation records keep the structural parameters for
// triage but reduce these to length-only placeholders.
var freeTextFields = []string{"text", "title", "body", "query", "response_text"}

// RedactParams replaces free-text parameter values with length-only
// placeholders, leaving ids, timestamps, and enums intact. Input that is
// not a JSON object is replaced wholesale.
func RedactParams(params []byte) string {
	if !gjson.ValidBytes(params) || !gjson.ParseBytes(params).IsObject() {
		return fmt.Sprintf(`{"_redacted":"non-object params, %d bytes"}`, len(params))
	}

	out := string(params)
	for _, field := range freeTextFields {
		v := gjson.Get(out, field)
		if !v.Exists() || v.Type != gjson.String {
			continue
		}
		redacted, err := sjson.Set(out, field, fmt.Sprintf("<redacted:%d chars>", len(v.Str)))
		if err != nil {
			continue
		}
		out = redacted
	}
	return out
}
