// Package classify is the staged intent pipeline: a cheap gating
// classifier in front, with specialized urgency, task-extraction, and
// RSVP interpreters behind it. Every stage degrades to a safe "do
// nothing" result when the model is unavailable.
package classify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"cadence/internal/domain"
	"cadence/internal/llm"
)

// ProcessingThreshold is the minimum gating confidence for downstream
// processing to proceed.
const ProcessingThreshold = 0.6

// GatingResult is the first-stage classification of a message.
type GatingResult struct {
	Task       domain.TaskCategory
	Confidence float64
	Model      string
	LatencyMs  int64
}

// ShouldProcess reports whether downstream stages should run.
func (r GatingResult) ShouldProcess() bool {
	return r.Task != domain.CategoryNone && r.Confidence >= ProcessingThreshold
}

// GatingClassifier routes every incoming message through one structured
// low-cost model call.
type GatingClassifier struct {
	client llm.Client
	logger *zap.Logger
}

func NewGatingClassifier(client llm.Client, logger *zap.Logger) *GatingClassifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GatingClassifier{client: client, logger: logger}
}

type gatingOutput struct {
	Task       string  `json:"task"`
	Confidence float64 `json:"confidence"`
}

// Classify returns the task category for a message. On any provider or
// output failure it returns the safe {none, 0} result instead of an
// error; the pipeline always degrades to doing nothing.
func (c *GatingClassifier) Classify(ctx context.Context, text string) GatingResult {
	fallback := GatingResult{Task: domain.CategoryNone, Confidence: 0}

	resp, err := c.client.Generate(ctx, llm.GenerateRequest{
		Task:         llm.TaskGating,
		SystemPrompt: gatingSystemPrompt,
		UserPrompt:   text,
	})
	if err != nil {
		c.logger.Warn("gating classifier unavailable, returning none",
			zap.Error(err))
		return fallback
	}

	out, err := llm.ExtractJSON[gatingOutput](resp.Text, validateGatingOutput)
	if err != nil {
		c.logger.Warn("gating classifier produced invalid output, returning none",
			zap.Error(err))
		return fallback
	}

	return GatingResult{
		Task:       domain.TaskCategory(out.Task),
		Confidence: out.Confidence,
		Model:      resp.Model,
		LatencyMs:  resp.LatencyMs,
	}
}

func validateGatingOutput(o gatingOutput) error {
	if !domain.ValidTaskCategories[o.Task] {
		return fmt.Errorf("unknown task category: %q", o.Task)
	}
	if o.Confidence < 0 || o.Confidence > 1 {
		return fmt.Errorf("confidence must be in [0,1], got %f", o.Confidence)
	}
	return nil
}
