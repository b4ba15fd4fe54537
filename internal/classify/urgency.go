package classify

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"cadence/internal/llm"
)

// Urgency thresholds. ShouldNotify gates push delivery and is held to a
// higher bar than the badge-level IsUrgent.
const (
	urgentThreshold = 0.70
	notifyThreshold = 0.85

	// Keyword confidence inside this band triggers one model validation
	// call; below it we trust the negative, above it the positive.
	validationBandLow  = 0.50
	validationBandHigh = 0.85

	keywordWeight = 0.6
	modelWeight   = 0.4

	hedgingPenalty = 0.25
)

// UrgencyResult is the two-tier urgency assessment of a message.
type UrgencyResult struct {
	IsUrgent           bool
	ShouldNotify       bool
	Confidence         float64
	KeywordConfidence  float64
	MatchedCategories  []string
	UsedModelValidator bool
}

// urgencyKeywords maps a category name to trigger phrases and the
// confidence the category contributes. Precision over recall: every
// phrase here is an unambiguous urgency signal on its own.
var urgencyKeywords = []struct {
	category   string
	confidence float64
	phrases    []string
}{
	{"explicit", 0.90, []string{"urgent", "asap", "emergency", "immediately", "right away", "right now"}},
	{"cancellation", 0.85, []string{"cancel", "cancelled", "canceled", "can't make it", "cannot make it", "won't make it", "calling off"}},
	{"reschedule", 0.70, []string{"reschedule", "postpone", "push back", "move the", "running late"}},
	{"deadline", 0.65, []string{"due today", "due tonight", "due tomorrow", "overdue", "last minute"}},
}

var hedgingPhrases = []string{
	"maybe", "if possible", "might", "perhaps", "no rush", "whenever",
	"at some point", "eventually",
}

// UrgencyClassifier runs deterministic keyword matching first, escalating
// to one model validation call only when the keyword score is ambiguous.
type UrgencyClassifier struct {
	client llm.Client
	logger *zap.Logger
}

func NewUrgencyClassifier(client llm.Client, logger *zap.Logger) *UrgencyClassifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UrgencyClassifier{client: client, logger: logger}
}

type urgencyValidation struct {
	IsUrgent   bool    `json:"is_urgent"`
	Confidence float64 `json:"confidence"`
}

// Assess scores the message's urgency. Zero keyword matches skips the
// model entirely and returns a non-urgent result.
func (c *UrgencyClassifier) Assess(ctx context.Context, text string) UrgencyResult {
	keywordConf, categories := keywordConfidence(text)
	result := UrgencyResult{
		KeywordConfidence: keywordConf,
		MatchedCategories: categories,
		Confidence:        keywordConf,
	}

	if len(categories) == 0 {
		return result
	}

	if keywordConf >= validationBandLow && keywordConf <= validationBandHigh {
		if modelConf, ok := c.validate(ctx, text); ok {
			result.UsedModelValidator = true
			result.Confidence = keywordWeight*keywordConf + modelWeight*modelConf
		}
	}

	result.IsUrgent = result.Confidence >= urgentThreshold
	result.ShouldNotify = result.Confidence >= notifyThreshold
	return result
}

func (c *UrgencyClassifier) validate(ctx context.Context, text string) (float64, bool) {
	resp, err := c.client.Generate(ctx, llm.GenerateRequest{
		Task:         llm.TaskUrgency,
		SystemPrompt: urgencyValidationSystemPrompt,
		UserPrompt:   text,
	})
	if err != nil {
		c.logger.Warn("urgency validation unavailable, keeping keyword score",
			zap.Error(err))
		return 0, false
	}

	out, err := llm.ExtractJSON[urgencyValidation](resp.Text, nil)
	if err != nil {
		c.logger.Warn("urgency validation produced invalid output, keeping keyword score",
			zap.Error(err))
		return 0, false
	}

	if !out.IsUrgent {
		return 0, true
	}
	return out.Confidence, true
}

// keywordConfidence returns the highest matching category confidence,
// reduced when hedging phrases co-occur, plus the matched category names.
func keywordConfidence(text string) (float64, []string) {
	lower := strings.ToLower(text)

	var conf float64
	var categories []string
	for _, kw := range urgencyKeywords {
		for _, phrase := range kw.phrases {
			if strings.Contains(lower, phrase) {
				categories = append(categories, kw.category)
				if kw.confidence > conf {
					conf = kw.confidence
				}
				break
			}
		}
	}
	if conf == 0 {
		return 0, nil
	}

	for _, phrase := range hedgingPhrases {
		if strings.Contains(lower, phrase) {
			conf -= hedgingPenalty
			break
		}
	}
	if conf < 0 {
		conf = 0
	}
	return conf, categories
}
