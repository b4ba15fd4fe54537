package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"cadence/internal/domain"
	"cadence/internal/repository"
)

const (
	maxAttempts    = 3
	initialBackoff = time.Second
)

// Run carries the per-invocation context shared by all tool calls in one
// orchestration pass.
type Run struct {
	CorrelationID string
}

// Result is the outcome of one tool invocation. Deduped successes and
// domain-signaled outcomes are modeled here, never as errors.
type Result struct {
	Success    bool
	Data       map[string]any
	Error      *ToolError
	Attempts   int
	DurationMs int64
	Deduped    bool
}

// Executor validates, deduplicates, retries, and audits tool calls.
type Executor struct {
	events    repository.EventRepo
	deadlines repository.DeadlineRepo
	outbox    repository.OutboxRepo
	messages  repository.MessageRepo
	failed    repository.FailedOpRepo
	guard     *WriteGuard
	logger    *zap.Logger

	now   func() time.Time
	sleep func(context.Context, time.Duration)
}

// Deps bundles the executor's dependencies.
type Deps struct {
	Events    repository.EventRepo
	Deadlines repository.DeadlineRepo
	Outbox    repository.OutboxRepo
	Messages  repository.MessageRepo
	Failed    repository.FailedOpRepo
	Guard     *WriteGuard
	Logger    *zap.Logger
}

func NewExecutor(deps Deps) *Executor {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	guard := deps.Guard
	if guard == nil {
		guard = NewWriteGuard()
	}
	return &Executor{
		events:    deps.Events,
		deadlines: deps.Deadlines,
		outbox:    deps.Outbox,
		messages:  deps.Messages,
		failed:    deps.Failed,
		guard:     guard,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		sleep:     sleepCtx,
	}
}

// Guard exposes the write guard so the orchestrator can release a run.
func (e *Executor) Guard() *WriteGuard { return e.guard }

// Execute runs one tool call: write-once guard, timezone precondition,
// then the retry loop around the handler. Validation failures return
// immediately; transient failures retry with 1s/2s/4s backoff and end in
// a FailedOperation record.
func (e *Executor) Execute(ctx context.Context, name Name, params json.RawMessage, run Run) Result {
	started := time.Now()

	if _, err := ParseName(string(name)); err != nil {
		return Result{
			Error:      &ToolError{Code: CodeUnknownTool, Message: err.Error()},
			DurationMs: time.Since(started).Milliseconds(),
		}
	}

	if cat := name.Category(); e.guard.Executed(run.CorrelationID, cat) {
		e.logger.Info("tool call deduplicated by write guard",
			zap.String("tool", string(name)),
			zap.String("correlation_id", run.CorrelationID))
		return Result{
			Success:    true,
			Deduped:    true,
			Data:       map[string]any{"wasDeduped": true},
			DurationMs: time.Since(started).Milliseconds(),
		}
	}

	if name.RequiresTimezone() {
		if terr := checkTimezone(params); terr != nil {
			return Result{
				Error:      terr,
				DurationMs: time.Since(started).Milliseconds(),
			}
		}
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		data, err := e.dispatch(ctx, name, params, run)
		if err == nil {
			e.guard.MarkExecuted(run.CorrelationID, name.Category())
			return Result{
				Success:    true,
				Data:       data,
				Attempts:   attempt,
				DurationMs: time.Since(started).Milliseconds(),
			}
		}
		if te, ok := isValidation(err); ok {
			return Result{
				Error:      te,
				Attempts:   attempt,
				DurationMs: time.Since(started).Milliseconds(),
			}
		}
		lastErr = err
		e.logger.Warn("tool attempt failed",
			zap.String("tool", string(name)),
			zap.Int("attempt", attempt),
			zap.Error(err))
		e.sleep(ctx, initialBackoff<<(attempt-1))
	}

	e.recordFailure(ctx, name, params, lastErr)
	return Result{
		Error:      &ToolError{Code: CodeRetryExhausted, Message: lastErr.Error()},
		Attempts:   maxAttempts,
		DurationMs: time.Since(started).Milliseconds(),
	}
}

// dispatch is the exhaustive mapping from tool name to handler.
func (e *Executor) dispatch(ctx context.Context, name Name, params json.RawMessage, run Run) (map[string]any, error) {
	switch name {
	case NameTimeParse:
		return e.handleTimeParse(ctx, params)
	case NameCreateEvent:
		return e.handleCreateEvent(ctx, params)
	case NameCheckConflicts:
		return e.handleCheckConflicts(ctx, params)
	case NameRecordRSVP:
		return e.handleRecordRSVP(ctx, params)
	case NameCreateInvite:
		return e.handleCreateInvite(ctx, params)
	case NameCreateTask:
		return e.handleCreateTask(ctx, params)
	case NameScheduleReminder:
		return e.handleScheduleReminder(ctx, params)
	case NamePostMessage:
		return e.handlePostMessage(ctx, params)
	}
	return nil, validationErr(CodeUnknownTool, "unknown tool %q", name)
}

func (e *Executor) recordFailure(ctx context.Context, name Name, params json.RawMessage, err error) {
	op := &domain.FailedOperation{
		ID:        uuid.NewString(),
		Tool:      string(name),
		Params:    RedactParams(params),
		Error:     err.Error(),
		Attempts:  maxAttempts,
		CreatedAt: e.now(),
	}
	if appendErr := e.failed.Append(ctx, op); appendErr != nil {
		e.logger.Error("recording failed operation",
			zap.String("tool", string(name)),
			zap.Error(appendErr))
	}
}

func checkTimezone(params json.RawMessage) *ToolError {
	tz := gjson.GetBytes(params, "timezone")
	if !tz.Exists() || tz.Str == "" {
		return validationErr(CodeTimezoneRequired, "timezone is required")
	}
	if _, err := time.LoadLocation(tz.Str); err != nil {
		return validationErr(CodeInvalidTimezone, "invalid timezone %q", tz.Str)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
