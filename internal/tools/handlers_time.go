package tools

import (
	"context"
	"encoding/json"
	"time"

	"cadence/internal/timeparse"
)

type timeParseParams struct {
	Text            string `json:"text"`
	Timezone        string `json:"timezone"`
	Reference       string `json:"reference,omitempty"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
}

func (e *Executor) handleTimeParse(ctx context.Context, params json.RawMessage) (map[string]any, error) {
	var p timeParseParams
	if terr := decode(params, &p); terr != nil {
		return nil, terr
	}
	if p.Text == "" {
		return nil, validationErr(CodeValidation, "text is required")
	}

	opts := timeparse.Options{Reference: e.now()}
	if p.Reference != "" {
		ref, terr := parseUTCInstant(p.Reference, "reference")
		if terr != nil {
			return nil, terr
		}
		opts.Reference = ref
	}
	if p.DurationMinutes > 0 {
		opts.DefaultDuration = time.Duration(p.DurationMinutes) * time.Minute
	}

	result, err := timeparse.Parse(p.Text, p.Timezone, opts)
	if err != nil {
		// Timezone problems are caught by the executor precondition;
		// reaching here means a handler-level validation failure.
		return nil, validationErr(CodeValidation, "%v", err)
	}

	data := map[string]any{
		"success":             result.Success,
		"confidence":          result.Confidence,
		"needsDisambiguation": result.NeedsDisambiguation,
	}
	if result.Success {
		data["start"] = result.Start.Format(time.RFC3339)
		data["end"] = result.End.Format(time.RFC3339)
	}
	if result.Code != timeparse.CodeNone {
		data["code"] = string(result.Code)
	}
	if len(result.Candidates) > 0 {
		candidates := make([]map[string]any, 0, len(result.Candidates))
		for _, c := range result.Candidates {
			candidates = append(candidates, map[string]any{
				"start": c.Start.Format(time.RFC3339),
				"end":   c.End.Format(time.RFC3339),
				"label": c.Label,
			})
		}
		data["candidates"] = candidates
	}
	return data, nil
}
