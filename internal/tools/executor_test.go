package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cadence/internal/domain"
	"cadence/internal/repository"
	"cadence/internal/testutil"
)

type testEnv struct {
	executor *Executor
	events   repository.EventRepo
	messages repository.MessageRepo
	failed   repository.FailedOpRepo
	sleeps   *[]time.Duration
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	database := testutil.NewTestDB(t)

	events := repository.NewSQLiteEventRepo(database)
	deadlines := repository.NewSQLiteDeadlineRepo(database)
	outbox := repository.NewSQLiteOutboxRepo(database)
	messages := repository.NewSQLiteMessageRepo(database)
	failed := repository.NewSQLiteFailedOpRepo(database)

	executor := NewExecutor(Deps{
		Events:    events,
		Deadlines: deadlines,
		Outbox:    outbox,
		Messages:  messages,
		Failed:    failed,
	})

	sleeps := &[]time.Duration{}
	executor.sleep = func(_ context.Context, d time.Duration) {
		*sleeps = append(*sleeps, d)
	}
	executor.now = func() time.Time {
		return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	}

	return &testEnv{
		executor: executor,
		events:   events,
		messages: messages,
		failed:   failed,
		sleeps:   sleeps,
	}
}

func raw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

type failingDeadlineRepo struct{}

func (failingDeadlineRepo) CreateIfAbsent(context.Context, *domain.Deadline) (bool, *domain.Deadline, error) {
	return false, nil, errors.New("storage unavailable")
}
func (failingDeadlineRepo) GetByID(context.Context, string) (*domain.Deadline, error) {
	return nil, errors.New("storage unavailable")
}
func (failingDeadlineRepo) ListDueBetween(context.Context, time.Time, time.Time) ([]*domain.Deadline, error) {
	return nil, errors.New("storage unavailable")
}
func (failingDeadlineRepo) ListOverdue(context.Context, time.Time) ([]*domain.Deadline, error) {
	return nil, errors.New("storage unavailable")
}
func (failingDeadlineRepo) Update(context.Context, *domain.Deadline) error {
	return errors.New("storage unavailable")
}

func TestExecute_RetryBoundAndFailedOperation(t *testing.T) {
	env := newTestEnv(t)
	env.executor.deadlines = failingDeadlineRepo{}

	params := raw(t, map[string]any{
		"conversation_id": "conv-1",
		"title":           "math homework ch 4",
	})
	result := env.executor.Execute(context.Background(), NameCreateTask, params, Run{CorrelationID: "run-1"})

	assert.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Equal(t, CodeRetryExhausted, result.Error.Code)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, *env.sleeps)

	ops, err := env.failed.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, string(NameCreateTask), ops[0].Tool)
	assert.Equal(t, 3, ops[0].Attempts)
	// Free-text params are reduced to length placeholders.
	assert.NotContains(t, ops[0].Params, "math homework ch 4")
	assert.Contains(t, ops[0].Params, "redacted")
	assert.Contains(t, ops[0].Params, "conv-1")
}

func TestExecute_ValidationErrorIsNotRetried(t *testing.T) {
	env := newTestEnv(t)

	params := raw(t, map[string]any{"conversation_id": "conv-1"}) // missing title
	result := env.executor.Execute(context.Background(), NameCreateTask, params, Run{CorrelationID: "run-1"})

	assert.False(t, result.Success)
	assert.Equal(t, CodeValidation, result.Error.Code)
	assert.Equal(t, 1, result.Attempts)
	assert.Empty(t, *env.sleeps)
}

func TestExecute_TimezonePrecondition(t *testing.T) {
	env := newTestEnv(t)

	missing := env.executor.Execute(context.Background(), NameTimeParse,
		raw(t, map[string]any{"text": "tomorrow at 3pm"}), Run{CorrelationID: "run-1"})
	require.NotNil(t, missing.Error)
	assert.Equal(t, CodeTimezoneRequired, missing.Error.Code)
	assert.Zero(t, missing.Attempts)

	invalid := env.executor.Execute(context.Background(), NameTimeParse,
		raw(t, map[string]any{"text": "tomorrow at 3pm", "timezone": "Mars/Olympus"}), Run{CorrelationID: "run-1"})
	require.NotNil(t, invalid.Error)
	assert.Equal(t, CodeInvalidTimezone, invalid.Error.Code)
}

func TestExecute_UnknownTool(t *testing.T) {
	env := newTestEnv(t)
	result := env.executor.Execute(context.Background(), Name("schedule.destroy_event"), raw(t, map[string]any{}), Run{})
	require.NotNil(t, result.Error)
	assert.Equal(t, CodeUnknownTool, result.Error.Code)
}

func TestExecute_WriteGuardDeduplicatesSameRun(t *testing.T) {
	env := newTestEnv(t)
	params := raw(t, map[string]any{
		"conversation_id": "conv-1",
		"title":           "science project",
	})

	first := env.executor.Execute(context.Background(), NameCreateTask, params, Run{CorrelationID: "run-1"})
	require.True(t, first.Success)
	assert.False(t, first.Deduped)

	second := env.executor.Execute(context.Background(), NameCreateTask, params, Run{CorrelationID: "run-1"})
	require.True(t, second.Success)
	assert.True(t, second.Deduped)

	// A different run is not affected.
	other := env.executor.Execute(context.Background(), NameCreateTask, params, Run{CorrelationID: "run-2"})
	require.True(t, other.Success)
	assert.False(t, other.Deduped)
	assert.Equal(t, true, other.Data["was_deduped"], "storage-level key dedup still applies across runs")

	env.executor.Guard().Release("run-1")
	env.executor.Guard().Release("run-2")
	assert.Zero(t, env.executor.Guard().ActiveRuns())
}

func TestExecute_CreateEventIdempotency(t *testing.T) {
	env := newTestEnv(t)
	params := raw(t, map[string]any{
		"conversation_id": "conv-1",
		"title":           "Math Lesson",
		"start":           "2024-06-02T15:00:00Z",
		"timezone":        "America/New_York",
		"participant_ids": []string{"user-1", "user-2"},
	})

	first := env.executor.Execute(context.Background(), NameCreateEvent, params, Run{CorrelationID: "run-1"})
	require.True(t, first.Success, "error: %v", first.Error)
	assert.Equal(t, false, first.Data["was_deduped"])
	assert.Equal(t, false, first.Data["has_conflict"])
	assert.Equal(t, "pending", first.Data["status"])
	eventID := first.Data["event_id"].(string)

	// Same semantic parameters in a fresh run: storage-level dedup.
	second := env.executor.Execute(context.Background(), NameCreateEvent, params, Run{CorrelationID: "run-2"})
	require.True(t, second.Success)
	assert.Equal(t, true, second.Data["was_deduped"])
	assert.Equal(t, eventID, second.Data["event_id"])

	// Exactly one confirmation message references the event.
	msgs, err := env.messages.ListByConversation(context.Background(), "conv-1", 50)
	require.NoError(t, err)
	var confirmations int
	for _, m := range msgs {
		if m.ReferencesEntity(eventID) {
			confirmations++
			assert.Equal(t, "confirmation", m.Metadata["kind"])
		}
	}
	assert.Equal(t, 1, confirmations)
}

func TestExecute_CreateEventPostsConflictCard(t *testing.T) {
	env := newTestEnv(t)

	existing := testutil.NewEvent("conv-1", "piano lesson",
		time.Date(2024, 6, 2, 15, 0, 0, 0, time.UTC), "user-1")
	created, _, err := env.events.CreateIfAbsent(context.Background(), existing)
	require.NoError(t, err)
	require.True(t, created)

	params := raw(t, map[string]any{
		"conversation_id": "conv-1",
		"title":           "math lesson",
		"start":           "2024-06-02T15:30:00Z",
		"timezone":        "UTC",
		"participant_ids": []string{"user-1"},
	})
	result := env.executor.Execute(context.Background(), NameCreateEvent, params, Run{CorrelationID: "run-1"})
	require.True(t, result.Success, "error: %v", result.Error)
	assert.Equal(t, true, result.Data["has_conflict"])

	msgs, err := env.messages.ListByConversation(context.Background(), "conv-1", 50)
	require.NoError(t, err)
	require.NotEmpty(t, msgs)
	var card *domain.Message
	for _, m := range msgs {
		if m.Metadata["kind"] == "conflict_card" {
			card = m
		}
	}
	require.NotNil(t, card, "expected a conflict card instead of a plain confirmation")
	assert.Contains(t, card.Text, "conflicts")
}

func TestExecute_RecordRSVPConfirmsWhenAllAccept(t *testing.T) {
	env := newTestEnv(t)

	event := testutil.NewEvent("conv-1", "recital",
		time.Date(2024, 6, 5, 18, 0, 0, 0, time.UTC), "user-1", "user-2")
	_, _, err := env.events.CreateIfAbsent(context.Background(), event)
	require.NoError(t, err)

	record := func(userID string) Result {
		return env.executor.Execute(context.Background(), NameRecordRSVP, raw(t, map[string]any{
			"event_id":        event.ID,
			"conversation_id": "conv-1",
			"user_id":         userID,
			"response":        "accept",
		}), Run{CorrelationID: "run-" + userID})
	}

	first := record("user-1")
	require.True(t, first.Success, "error: %v", first.Error)
	assert.Equal(t, "pending", first.Data["status"])

	second := record("user-2")
	require.True(t, second.Success)
	assert.Equal(t, "confirmed", second.Data["status"])
}

func TestExecute_RecordRSVPRecoversSinglePendingEvent(t *testing.T) {
	env := newTestEnv(t)

	event := testutil.NewEvent("conv-1", "recital",
		time.Date(2024, 6, 5, 18, 0, 0, 0, time.UTC), "user-1")
	_, _, err := env.events.CreateIfAbsent(context.Background(), event)
	require.NoError(t, err)

	result := env.executor.Execute(context.Background(), NameRecordRSVP, raw(t, map[string]any{
		"event_id":        "stale-id",
		"conversation_id": "conv-1",
		"user_id":         "user-1",
		"response":        "decline",
	}), Run{CorrelationID: "run-1"})

	require.True(t, result.Success, "error: %v", result.Error)
	assert.Equal(t, event.ID, result.Data["event_id"])
	assert.Equal(t, true, result.Data["substituted"])
	assert.Equal(t, "declined", result.Data["status"])
}

func TestExecute_RecordRSVPRefusesAmbiguousRecovery(t *testing.T) {
	env := newTestEnv(t)

	for _, title := range []string{"recital", "practice"} {
		ev := testutil.NewEvent("conv-1", title,
			time.Date(2024, 6, 5, 18, 0, 0, 0, time.UTC), "user-1")
		_, _, err := env.events.CreateIfAbsent(context.Background(), ev)
		require.NoError(t, err)
	}

	result := env.executor.Execute(context.Background(), NameRecordRSVP, raw(t, map[string]any{
		"event_id":        "stale-id",
		"conversation_id": "conv-1",
		"user_id":         "user-1",
		"response":        "accept",
	}), Run{CorrelationID: "run-1"})

	assert.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Equal(t, CodeAmbiguousEvent, result.Error.Code)
	assert.Empty(t, *env.sleeps, "ambiguity is a validation outcome, not a retryable failure")
}

func TestExecute_CreateInvitePostsOncePerEvent(t *testing.T) {
	env := newTestEnv(t)

	event := testutil.NewEvent("conv-1", "recital",
		time.Date(2024, 6, 5, 18, 0, 0, 0, time.UTC), "user-1", "user-2")
	_, _, err := env.events.CreateIfAbsent(context.Background(), event)
	require.NoError(t, err)

	invite := func(run string) Result {
		return env.executor.Execute(context.Background(), NameCreateInvite, raw(t, map[string]any{
			"conversation_id": "conv-1",
			"event_id":        event.ID,
		}), Run{CorrelationID: run})
	}

	first := invite("run-1")
	require.True(t, first.Success, "error: %v", first.Error)
	assert.Equal(t, false, first.Data["was_deduped"])

	msgs, err := env.messages.ListByConversation(context.Background(), "conv-1", 50)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "invite", msgs[0].Metadata["kind"])
	assert.Equal(t, event.ID, msgs[0].Metadata["entity_id"])
	assert.Contains(t, msgs[0].Text, "recital")

	second := invite("run-2")
	require.True(t, second.Success)
	assert.Equal(t, true, second.Data["was_deduped"])
	assert.Equal(t, first.Data["message_id"], second.Data["message_id"])

	msgs, err = env.messages.ListByConversation(context.Background(), "conv-1", 50)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestExecute_CreateInviteUnknownEvent(t *testing.T) {
	env := newTestEnv(t)

	result := env.executor.Execute(context.Background(), NameCreateInvite, raw(t, map[string]any{
		"conversation_id": "conv-1",
		"event_id":        "no-such-event",
	}), Run{CorrelationID: "run-1"})

	assert.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Equal(t, CodeNotFound, result.Error.Code)
	assert.Empty(t, *env.sleeps)
}

func TestExecute_PostMessageDeduplicatesByEntity(t *testing.T) {
	env := newTestEnv(t)

	params := raw(t, map[string]any{
		"conversation_id": "conv-1",
		"text":            "Scheduled your lesson.",
		"entity_id":       "ev-42",
	})
	first := env.executor.Execute(context.Background(), NamePostMessage, params, Run{CorrelationID: "run-1"})
	require.True(t, first.Success)
	assert.Equal(t, false, first.Data["was_deduped"])

	second := env.executor.Execute(context.Background(), NamePostMessage, params, Run{CorrelationID: "run-2"})
	require.True(t, second.Success)
	assert.Equal(t, true, second.Data["was_deduped"])
}

func TestExecute_ScheduleReminderIdempotent(t *testing.T) {
	env := newTestEnv(t)

	params := raw(t, map[string]any{
		"entity_type":    "event",
		"entity_id":      "ev-1",
		"target_user_id": "user-1",
		"reminder_type":  "event_24h",
		"title":          "Upcoming: recital",
		"body":           "Tomorrow at 6pm",
		"scheduled_for":  "2024-06-04T18:00:00Z",
	})

	first := env.executor.Execute(context.Background(), NameScheduleReminder, params, Run{CorrelationID: "run-1"})
	require.True(t, first.Success, "error: %v", first.Error)
	assert.Equal(t, false, first.Data["was_deduped"])

	second := env.executor.Execute(context.Background(), NameScheduleReminder, params, Run{CorrelationID: "run-2"})
	require.True(t, second.Success)
	assert.Equal(t, true, second.Data["was_deduped"])
}

func TestExecute_TimeParseTool(t *testing.T) {
	env := newTestEnv(t)

	result := env.executor.Execute(context.Background(), NameTimeParse, raw(t, map[string]any{
		"text":      "3pm",
		"timezone":  "America/New_York",
		"reference": "2024-03-10T00:00:00Z",
	}), Run{CorrelationID: "run-1"})

	require.True(t, result.Success, "error: %v", result.Error)
	assert.Equal(t, true, result.Data["success"])
	assert.Equal(t, "2024-03-10T19:00:00Z", result.Data["start"])
}

func TestRedactParams(t *testing.T) {
	params := []byte(`{"conversation_id":"conv-1","title":"secret plans","text":"hello world","start":"2024-06-02T15:00:00Z"}`)
	out := RedactParams(params)

	assert.NotContains(t, out, "secret plans")
	assert.NotContains(t, out, "hello world")
	assert.Contains(t, out, `"conversation_id":"conv-1"`)
	assert.Contains(t, out, "<redacted:12 chars>")
	assert.Contains(t, out, "<redacted:11 chars>")
	assert.Contains(t, out, "2024-06-02T15:00:00Z")

	assert.Equal(t, fmt.Sprintf(`{"_redacted":"non-object params, %d bytes"}`, 7), RedactParams([]byte(`"hello"`)))
}
