package llm

import (
	"context"
	"errors"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// openaiClient implements Client using the OpenAI chat completions API.
type openaiClient struct {
	cfg      Config
	api      openai.Client
	observer Observer
}

// NewOpenAIClient creates a Client backed by the OpenAI API. An empty
// endpoint uses the SDK default base URL.
func NewOpenAIClient(cfg Config, observer Observer) Client {
	if observer == nil {
		observer = NoopObserver{}
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" && cfg.Endpoint != DefaultConfig().Endpoint {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}
	return &openaiClient{
		cfg:      cfg,
		api:      openai.NewClient(opts...),
		observer: observer,
	}
}

func (c *openaiClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	start := time.Now()

	taskCfg := c.cfg.Tasks[req.Task]
	temp := taskCfg.Temperature
	if req.Temperature != nil {
		temp = *req.Temperature
	}
	maxTok := taskCfg.MaxTokens
	if req.MaxTokens != nil {
		maxTok = *req.MaxTokens
	}

	timeoutMs := c.cfg.TaskTimeout(req.Task)
	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond)
	defer cancel()

	var messages []openai.ChatCompletionMessageParamUnion
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(req.UserPrompt))

	params := openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(c.cfg.Model),
		Messages:            messages,
		Temperature:         openai.Float(temp),
		MaxCompletionTokens: openai.Int(int64(maxTok)),
	}

	var lastErr error
	attempts := 1 + c.cfg.MaxRetries

	for i := 0; i < attempts; i++ {
		completion, err := c.api.Chat.Completions.New(ctx, params)
		if err == nil && len(completion.Choices) > 0 {
			latency := time.Since(start).Milliseconds()
			c.observer.OnCallComplete(CallEvent{
				Task:      req.Task,
				Model:     c.cfg.Model,
				LatencyMs: latency,
				Success:   true,
			})
			return &GenerateResponse{
				Text:      completion.Choices[0].Message.Content,
				Model:     completion.Model,
				LatencyMs: latency,
			}, nil
		}
		if err == nil {
			err = errors.New("completion returned no choices")
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
	}

	latency := time.Since(start).Milliseconds()
	c.observer.OnCallComplete(CallEvent{
		Task:      req.Task,
		Model:     c.cfg.Model,
		LatencyMs: latency,
		Success:   false,
		ErrorCode: errorCode(lastErr),
	})

	if ctx.Err() != nil {
		return nil, ErrTimeout
	}
	return nil, errors.Join(ErrRetryExhausted, lastErr)
}

func (c *openaiClient) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	// A models listing is the cheapest authenticated probe the API offers.
	_, err := c.api.Models.List(ctx)
	return err == nil
}
