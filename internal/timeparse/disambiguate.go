package timeparse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cadence/internal/llm"
)

const disambiguateSystemPrompt = `You resolve ambiguous date/time references in chat messages.
You are given the original message and a numbered list of candidate interpretations.
Pick the candidate the author most likely meant.

Respond with ONLY a JSON object:
{"choice": <candidate number>, "confidence": <0.0-1.0>}

Rules:
- choice must be one of the listed candidate numbers.
- Social and school events usually happen in the afternoon or evening.
- Work meetings usually happen during business hours.`

type disambiguateOutput struct {
	Choice     int     `json:"choice"`
	Confidence float64 `json:"confidence"`
}

// Disambiguate asks the model to pick between candidates from a parse that
// returned NeedsDisambiguation. The chosen candidate is returned as a
// successful Result with the model's confidence attached. On any provider
// or output failure the first candidate is returned at low confidence so
// callers always get a usable value.
func Disambiguate(ctx context.Context, client llm.Client, text string, candidates []Candidate) (*Result, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no candidates to disambiguate")
	}
	if len(candidates) == 1 {
		return chosen(candidates[0], 0.9), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Message: %q\n\nCandidates:\n", text)
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, c.Label, c.Start.Format(time.RFC3339))
	}

	resp, err := client.Generate(ctx, llm.GenerateRequest{
		Task:         llm.TaskDisambiguate,
		SystemPrompt: disambiguateSystemPrompt,
		UserPrompt:   b.String(),
	})
	if err != nil {
		return chosen(candidates[0], 0.3), nil
	}

	out, err := llm.ExtractJSON[disambiguateOutput](resp.Text, func(o disambiguateOutput) error {
		if o.Choice < 1 || o.Choice > len(candidates) {
			return fmt.Errorf("choice %d out of range", o.Choice)
		}
		if o.Confidence < 0 || o.Confidence > 1 {
			return fmt.Errorf("confidence %f out of range", o.Confidence)
		}
		return nil
	})
	if err != nil {
		return chosen(candidates[0], 0.3), nil
	}

	return chosen(candidates[out.Choice-1], out.Confidence), nil
}

func chosen(c Candidate, confidence float64) *Result {
	return &Result{
		Success:    true,
		Start:      c.Start,
		End:        c.End,
		Confidence: confidence,
	}
}
