package orchestrator

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"cadence/internal/domain"
	"cadence/internal/llm"
	"cadence/internal/retrieval"
	"cadence/internal/tools"
)

const (
	// maxRounds is a hard cap, not a tunable: the loop is two rounds of
	// propose-execute, never open-ended recursion.
	maxRounds = 2

	// maxCallsPerRound bounds a single model response.
	maxCallsPerRound = 4
)

type modelToolCall struct {
	Name   string          `json:"name"`
	Params json.RawMessage `json:"params"`
}

type modelTurn struct {
	ToolCalls []modelToolCall `json:"tool_calls"`
	Done      bool            `json:"done"`
}

// runToolLoop drives the model through at most two propose-execute
// rounds. Tool names cross the model boundary in underscore form and are
// translated back before dispatch. Model failure mid-loop degrades to
// whatever has already executed; it never aborts completed side effects.
func (o *Orchestrator) runToolLoop(ctx context.Context, msg domain.Message, timezone string, participants []string, rag *retrieval.Context, run tools.Run, outcome *Outcome) {
	prompt := buildRoundOnePrompt(promptInput{
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Text:           msg.Text,
		Timezone:       timezone,
		Reference:      o.now(),
		Participants:   participants,
		Context:        rag,
	})

	for round := 1; round <= maxRounds; round++ {
		turn, ok := o.modelTurn(ctx, prompt)
		if !ok {
			return
		}

		var executed []Invocation
		calls := turn.ToolCalls
		if len(calls) > maxCallsPerRound {
			calls = calls[:maxCallsPerRound]
		}
		for _, call := range calls {
			name, err := toolNameFromWire(call.Name)
			if err != nil {
				o.logger.Warn("model proposed unknown tool",
					zap.String("tool", call.Name),
					zap.Int("round", round))
				continue
			}
			if len(call.Params) == 0 {
				call.Params = json.RawMessage("{}")
			}
			result := o.executeRaw(ctx, name, call.Params, run, outcome)
			executed = append(executed, Invocation{Name: name, Params: call.Params, Result: result})
		}

		if turn.Done || len(executed) == 0 {
			return
		}
		prompt = buildRoundTwoPrompt(executed)
	}
}

// modelTurn asks the orchestration model for one round of tool calls.
func (o *Orchestrator) modelTurn(ctx context.Context, prompt string) (*modelTurn, bool) {
	resp, err := o.deps.Client.Generate(ctx, llm.GenerateRequest{
		Task:         llm.TaskOrchestrate,
		SystemPrompt: toolLoopSystemPrompt,
		UserPrompt:   prompt,
	})
	if err != nil {
		o.logger.Warn("orchestration model unavailable", zap.Error(err))
		return nil, false
	}
	turn, err := llm.ExtractJSON[modelTurn](resp.Text, nil)
	if err != nil {
		o.logger.Warn("orchestration model produced invalid output", zap.Error(err))
		return nil, false
	}
	return &turn, true
}

// execute with a raw params payload, recording into the outcome.
func (o *Orchestrator) executeRaw(ctx context.Context, name tools.Name, params json.RawMessage, run tools.Run, outcome *Outcome) tools.Result {
	result := o.deps.Executor.Execute(ctx, name, params, run)
	outcome.Invocations = append(outcome.Invocations, Invocation{Name: name, Params: params, Result: result})
	return result
}
