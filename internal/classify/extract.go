package classify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"cadence/internal/llm"
)

// taskVocabulary is the fast pre-filter: only messages containing at
// least one of these words are sent to the extraction model.
var taskVocabulary = []string{
	"homework", "assignment", "test", "quiz", "exam", "project",
	"reading", "essay", "worksheet", "chapter", "study", "deadline",
	"due", "submit", "turn in",
}

// TaskExtraction is the structured result of task/deadline extraction.
// A found-but-dateless task is valid; DueDate stays nil.
type TaskExtraction struct {
	Found      bool
	Title      string
	DueDate    *time.Time
	TaskType   string
	Confidence float64
}

// TaskExtractor pulls task/deadline details out of messages that pass
// the keyword pre-filter.
type TaskExtractor struct {
	client llm.Client
	logger *zap.Logger
}

func NewTaskExtractor(client llm.Client, logger *zap.Logger) *TaskExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskExtractor{client: client, logger: logger}
}

type extractOutput struct {
	Found      bool    `json:"found"`
	Title      string  `json:"title"`
	DueDate    *string `json:"due_date"`
	TaskType   string  `json:"task_type"`
	Confidence float64 `json:"confidence"`
}

// Extract returns the task mentioned in the text, if any. Messages with
// no task vocabulary are rejected without a model call. Provider failures
// degrade to a not-found result.
func (e *TaskExtractor) Extract(ctx context.Context, text string) TaskExtraction {
	if !HasTaskVocabulary(text) {
		return TaskExtraction{}
	}

	resp, err := e.client.Generate(ctx, llm.GenerateRequest{
		Task:         llm.TaskExtract,
		SystemPrompt: extractSystemPrompt,
		UserPrompt:   text,
	})
	if err != nil {
		e.logger.Warn("task extraction unavailable", zap.Error(err))
		return TaskExtraction{}
	}

	out, err := llm.ExtractJSON[extractOutput](resp.Text, validateExtractOutput)
	if err != nil {
		e.logger.Warn("task extraction produced invalid output", zap.Error(err))
		return TaskExtraction{}
	}
	if !out.Found {
		return TaskExtraction{}
	}

	result := TaskExtraction{
		Found:      true,
		Title:      strings.TrimSpace(out.Title),
		TaskType:   out.TaskType,
		Confidence: out.Confidence,
	}
	if out.DueDate != nil {
		if due, ok := parseDueDate(*out.DueDate); ok {
			result.DueDate = &due
		}
	}
	return result
}

// HasTaskVocabulary reports whether the text passes the keyword
// pre-filter.
func HasTaskVocabulary(text string) bool {
	lower := strings.ToLower(text)
	for _, word := range taskVocabulary {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

func validateExtractOutput(o extractOutput) error {
	if o.Confidence < 0 || o.Confidence > 1 {
		return fmt.Errorf("confidence must be in [0,1], got %f", o.Confidence)
	}
	if o.Found && strings.TrimSpace(o.Title) == "" {
		return fmt.Errorf("found task must have a title")
	}
	return nil
}

func parseDueDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
