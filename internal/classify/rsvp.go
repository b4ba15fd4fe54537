package classify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"cadence/internal/domain"
	"cadence/internal/llm"
)

const (
	// ambiguityConfidenceCap bounds the confidence of any message that
	// contains a hedging phrase, regardless of what the model says.
	ambiguityConfidenceCap = 0.6

	autoRecordThreshold = 0.7
)

// ambiguityPhrases mark a response as noncommittal. Detection is
// independent of the model so a confidently wrong model output cannot
// auto-record a "maybe".
var ambiguityPhrases = []string{
	"maybe", "might", "probably", "not sure", "possibly", "we'll see",
	"depends", "i think", "should be able", "tentative",
}

// RSVPResult is the interpretation of an invite reply.
type RSVPResult struct {
	Response         domain.RSVPResponse
	Confidence       float64
	HasAmbiguity     bool
	ShouldAutoRecord bool
}

// RSVPInterpreter classifies invite replies as accept/decline/unclear.
type RSVPInterpreter struct {
	client llm.Client
	logger *zap.Logger
}

func NewRSVPInterpreter(client llm.Client, logger *zap.Logger) *RSVPInterpreter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RSVPInterpreter{client: client, logger: logger}
}

type rsvpOutput struct {
	Response   string  `json:"response"`
	Confidence float64 `json:"confidence"`
}

// Interpret classifies the reply. ShouldAutoRecord is true only when the
// confidence clears the threshold, no ambiguity phrase is present, and
// the response is a definite accept or decline. Provider failures return
// an unclear result.
func (i *RSVPInterpreter) Interpret(ctx context.Context, text string) RSVPResult {
	result := RSVPResult{
		Response:     domain.RSVPUnclear,
		HasAmbiguity: hasAmbiguityPhrase(text),
	}

	resp, err := i.client.Generate(ctx, llm.GenerateRequest{
		Task:         llm.TaskRSVP,
		SystemPrompt: rsvpSystemPrompt,
		UserPrompt:   text,
	})
	if err != nil {
		i.logger.Warn("rsvp interpretation unavailable", zap.Error(err))
		return result
	}

	out, err := llm.ExtractJSON[rsvpOutput](resp.Text, validateRSVPOutput)
	if err != nil {
		i.logger.Warn("rsvp interpretation produced invalid output", zap.Error(err))
		return result
	}

	result.Response = domain.RSVPResponse(out.Response)
	result.Confidence = out.Confidence
	if result.HasAmbiguity && result.Confidence > ambiguityConfidenceCap {
		result.Confidence = ambiguityConfidenceCap
	}

	result.ShouldAutoRecord = result.Confidence >= autoRecordThreshold &&
		!result.HasAmbiguity &&
		result.Response != domain.RSVPUnclear
	return result
}

func hasAmbiguityPhrase(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range ambiguityPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func validateRSVPOutput(o rsvpOutput) error {
	switch domain.RSVPResponse(o.Response) {
	case domain.RSVPAccept, domain.RSVPDecline, domain.RSVPUnclear:
	default:
		return fmt.Errorf("unknown rsvp response: %q", o.Response)
	}
	if o.Confidence < 0 || o.Confidence > 1 {
		return fmt.Errorf("confidence must be in [0,1], got %f", o.Confidence)
	}
	return nil
}
