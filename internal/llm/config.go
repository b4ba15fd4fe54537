package llm

import (
	"os"
	"strconv"
)

// TaskType identifies the kind of LLM task being performed.
type TaskType string

const (
	TaskGating       TaskType = "gating"
	TaskUrgency      TaskType = "urgency"
	TaskExtract      TaskType = "task_extract"
	TaskRSVP         TaskType = "rsvp"
	TaskDisambiguate TaskType = "disambiguate"
	TaskOrchestrate  TaskType = "orchestrate"
)

// TaskConfig holds per-task LLM parameters.
type TaskConfig struct {
	Temperature float64
	MaxTokens   int
	TimeoutMs   int // overrides global if > 0
}

// Config holds all configuration for the LLM subsystem.
type Config struct {
	Provider   string // "ollama" or "openai"
	LogCalls   bool
	Endpoint   string
	APIKey     string
	Model      string
	TimeoutMs  int
	MaxRetries int
	Tasks      map[TaskType]TaskConfig
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider:   "ollama",
		LogCalls:   false,
		Endpoint:   "http://localhost:11434",
		Model:      "llama3.2",
		TimeoutMs:  10000,
		MaxRetries: 1,
		Tasks: map[TaskType]TaskConfig{
			TaskGating:       {Temperature: 0.0, MaxTokens: 256, TimeoutMs: 8000},
			TaskUrgency:      {Temperature: 0.0, MaxTokens: 256, TimeoutMs: 8000},
			TaskExtract:      {Temperature: 0.1, MaxTokens: 512, TimeoutMs: 10000},
			TaskRSVP:         {Temperature: 0.0, MaxTokens: 256, TimeoutMs: 8000},
			TaskDisambiguate: {Temperature: 0.0, MaxTokens: 128, TimeoutMs: 6000},
			TaskOrchestrate:  {Temperature: 0.2, MaxTokens: 1024, TimeoutMs: 20000},
		},
	}
}

// LoadConfig reads LLM configuration from environment variables,
// falling back to defaults for any unset values.
func LoadConfig() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("CADENCE_LLM_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv("CADENCE_LLM_LOG_CALLS"); v != "" {
		cfg.LogCalls, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("CADENCE_LLM_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv("CADENCE_LLM_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("CADENCE_LLM_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("CADENCE_LLM_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TimeoutMs = n
		}
	}
	if v := os.Getenv("CADENCE_LLM_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.MaxRetries = n
		}
	}

	return cfg
}

// TaskTimeout returns the effective timeout for a given task type.
// Uses the task-specific timeout if set, otherwise the global timeout.
func (c Config) TaskTimeout(task TaskType) int {
	if tc, ok := c.Tasks[task]; ok && tc.TimeoutMs > 0 {
		return tc.TimeoutMs
	}
	return c.TimeoutMs
}
