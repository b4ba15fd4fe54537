// Package orchestrator ties the pipeline together: gating, parallel
// enrichment (urgency, extraction, context), and a bounded tool-calling
// loop that turns model intent into idempotent tool executions.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"go.uber.org/zap"

	"cadence/internal/classify"
	"cadence/internal/domain"
	"cadence/internal/llm"
	"cadence/internal/retrieval"
	"cadence/internal/tools"
)

// Invocation is one executed tool call with its outcome, accumulated
// across loop rounds.
type Invocation struct {
	Name   tools.Name
	Params json.RawMessage
	Result tools.Result
}

// Summary renders the invocation outcome for the round-two prompt.
func (i Invocation) Summary() string {
	if i.Result.Error != nil {
		return describeError(i.Result.Error)
	}
	data, err := json.Marshal(i.Result.Data)
	if err != nil {
		return "success"
	}
	return string(data)
}

// Outcome reports what one message's orchestration run did. Silence means
// the pipeline deliberately took no action and posted nothing.
type Outcome struct {
	Category    domain.TaskCategory
	Confidence  float64
	Silence     bool
	Urgency     *classify.UrgencyResult
	Invocations []Invocation
}

// Deps bundles the orchestrator's collaborators.
type Deps struct {
	Gating    *classify.GatingClassifier
	Urgency   *classify.UrgencyClassifier
	Extractor *classify.TaskExtractor
	RSVP      *classify.RSVPInterpreter
	Retriever retrieval.Retriever
	Executor  *tools.Executor
	Client    llm.Client
	Logger    *zap.Logger
}

type Orchestrator struct {
	deps   Deps
	logger *zap.Logger
	now    func() time.Time
}

func New(deps Deps) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		deps:   deps,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ProcessMessage runs the full pipeline for one inbound message. The
// message's own id is the correlation id for write deduplication; the
// guard state is always released when the run ends.
func (o *Orchestrator) ProcessMessage(ctx context.Context, msg domain.Message, timezone string, participants []string) (*Outcome, error) {
	correlationID := msg.ID
	defer o.deps.Executor.Guard().Release(correlationID)

	gate := o.deps.Gating.Classify(ctx, msg.Text)
	outcome := &Outcome{Category: gate.Task, Confidence: gate.Confidence}
	if !gate.ShouldProcess() {
		outcome.Silence = true
		o.logger.Debug("message below processing threshold",
			zap.String("message_id", msg.ID),
			zap.String("category", string(gate.Task)),
			zap.Float64("confidence", gate.Confidence))
		return outcome, nil
	}

	enrich, err := o.enrich(ctx, msg, gate.Task)
	if err != nil {
		return nil, err
	}
	outcome.Urgency = enrich.urgency

	run := tools.Run{CorrelationID: correlationID}
	switch gate.Task {
	case domain.CategoryRSVP:
		o.handleRSVP(ctx, msg, enrich.rsvp, run, outcome)
	case domain.CategoryTask, domain.CategoryDeadline:
		o.handleTask(ctx, msg, enrich.extraction, run, outcome)
	case domain.CategoryUrgent:
		o.handleUrgent(ctx, msg, enrich.urgency, run, outcome)
	case domain.CategoryScheduling, domain.CategoryReminder:
		o.runToolLoop(ctx, msg, timezone, participants, enrich.context, run, outcome)
	default:
		outcome.Silence = true
	}

	if len(outcome.Invocations) == 0 && outcome.Urgency == nil {
		outcome.Silence = true
	}
	return outcome, nil
}

type enrichment struct {
	urgency    *classify.UrgencyResult
	extraction *classify.TaskExtraction
	rsvp       *classify.RSVPResult
	context    *retrieval.Context
}

// enrich fans out the stage-two classifiers relevant to the category.
// Stages are independent, so they run concurrently; none of them writes.
func (o *Orchestrator) enrich(ctx context.Context, msg domain.Message, category domain.TaskCategory) (*enrichment, error) {
	var result enrichment
	g, gctx := errgroup.WithContext(ctx)

	if category == domain.CategoryUrgent {
		g.Go(func() error {
			u := o.deps.Urgency.Assess(gctx, msg.Text)
			result.urgency = &u
			return nil
		})
	}
	if category == domain.CategoryTask || category == domain.CategoryDeadline {
		g.Go(func() error {
			e := o.deps.Extractor.Extract(gctx, msg.Text)
			result.extraction = &e
			return nil
		})
	}
	if category == domain.CategoryRSVP {
		g.Go(func() error {
			r := o.deps.RSVP.Interpret(gctx, msg.Text)
			result.rsvp = &r
			return nil
		})
	}
	if category == domain.CategoryScheduling || category == domain.CategoryReminder {
		g.Go(func() error {
			c, err := retrieval.BuildContext(gctx, msg.Text, msg.ConversationID, o.deps.Retriever, retrieval.Options{Now: o.now()})
			if err != nil {
				// Context is an enrichment, not a prerequisite.
				o.logger.Warn("context retrieval failed", zap.Error(err))
				return nil
			}
			result.context = c
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("enrichment: %w", err)
	}
	return &result, nil
}

func (o *Orchestrator) execute(ctx context.Context, name tools.Name, params any, run tools.Run, outcome *Outcome) tools.Result {
	raw, err := json.Marshal(params)
	if err != nil {
		result := tools.Result{Error: &tools.ToolError{Code: tools.CodeValidation, Message: err.Error()}}
		outcome.Invocations = append(outcome.Invocations, Invocation{Name: name, Result: result})
		return result
	}
	result := o.deps.Executor.Execute(ctx, name, raw, run)
	outcome.Invocations = append(outcome.Invocations, Invocation{Name: name, Params: raw, Result: result})
	if result.Error != nil {
		o.logger.Warn("tool call failed",
			zap.String("tool", string(name)),
			zap.String("code", string(result.Error.Code)),
			zap.String("message", result.Error.Message))
	}
	return result
}

func (o *Orchestrator) handleRSVP(ctx context.Context, msg domain.Message, rsvp *classify.RSVPResult, run tools.Run, outcome *Outcome) {
	if rsvp == nil || !rsvp.ShouldAutoRecord {
		outcome.Silence = true
		return
	}
	o.execute(ctx, tools.NameRecordRSVP, map[string]any{
		"event_id":        msg.Metadata["entity_id"],
		"conversation_id": msg.ConversationID,
		"user_id":         msg.SenderID,
		"response":        string(rsvp.Response),
	}, run, outcome)
}

func (o *Orchestrator) handleTask(ctx context.Context, msg domain.Message, extraction *classify.TaskExtraction, run tools.Run, outcome *Outcome) {
	if extraction == nil || !extraction.Found {
		outcome.Silence = true
		return
	}
	params := map[string]any{
		"conversation_id": msg.ConversationID,
		"title":           extraction.Title,
		"assignee_id":     msg.SenderID,
		"task_type":       extraction.TaskType,
	}
	if extraction.DueDate != nil {
		params["due_date"] = extraction.DueDate.Format("2006-01-02")
	}
	o.execute(ctx, tools.NameCreateTask, params, run, outcome)
}

func (o *Orchestrator) handleUrgent(ctx context.Context, msg domain.Message, urgency *classify.UrgencyResult, run tools.Run, outcome *Outcome) {
	if urgency == nil || !urgency.IsUrgent {
		outcome.Silence = true
		return
	}
	// The urgency flag itself is surfaced via the outcome; the visible
	// side effect here is a system note so the thread records why the
	// product escalated.
	o.execute(ctx, tools.NamePostMessage, map[string]any{
		"conversation_id": msg.ConversationID,
		"text":            "Flagged as urgent. Everyone in this conversation will be notified.",
		"entity_id":       msg.ID,
		"kind":            "urgency_notice",
	}, run, outcome)
}
