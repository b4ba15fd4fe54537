package outbox

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"cadence/internal/domain"
	"cadence/internal/repository"
)

const (
	maxDeliveryAttempts = 3
	deliveryBackoff     = time.Second

	// DefaultBatchSize bounds one worker pass.
	DefaultBatchSize = 50
)

// Worker delivers pending outbox entries that are due. State machine per
// entry: pending -> sent on success; pending -> pending with bumped
// attempts and a pushed-out scheduled_for on failure, until the attempt
// budget is spent and the entry goes to failed. Only ManualRetry moves a
// failed entry back to pending.
type Worker struct {
	outbox   repository.OutboxRepo
	provider PushProvider
	logger   *zap.Logger
	now      func() time.Time
}

func NewWorker(outbox repository.OutboxRepo, provider PushProvider, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		outbox:   outbox,
		provider: provider,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ProcessDue handles one batch of due pending entries and returns how
// many were delivered. A failing entry never aborts the batch.
func (w *Worker) ProcessDue(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = DefaultBatchSize
	}
	entries, err := w.outbox.ListDue(ctx, w.now(), limit)
	if err != nil {
		return 0, fmt.Errorf("listing due entries: %w", err)
	}

	sent := 0
	for _, entry := range entries {
		if err := w.processEntry(ctx, entry); err != nil {
			w.logger.Error("outbox entry update failed",
				zap.String("entry_id", entry.ID),
				zap.Error(err))
			continue
		}
		if entry.Status == domain.OutboxSent {
			sent++
		}
	}
	return sent, nil
}

func (w *Worker) processEntry(ctx context.Context, entry *domain.OutboxEntry) error {
	sendErr := w.provider.Send(ctx, Notification{
		TargetUserID: entry.TargetUserID,
		Title:        entry.Title,
		Body:         entry.Body,
		Data:         entry.Payload,
		ScheduledFor: entry.ScheduledFor,
	})

	entry.Attempts++
	if sendErr == nil {
		entry.Status = domain.OutboxSent
		entry.LastError = ""
		w.logger.Info("notification sent",
			zap.String("entry_id", entry.ID),
			zap.String("reminder_type", string(entry.ReminderType)),
			zap.Int("attempts", entry.Attempts))
		return w.outbox.Update(ctx, entry)
	}

	entry.LastError = sendErr.Error()
	if entry.Attempts >= maxDeliveryAttempts {
		entry.Status = domain.OutboxFailed
		w.logger.Warn("notification failed permanently",
			zap.String("entry_id", entry.ID),
			zap.Int("attempts", entry.Attempts),
			zap.Error(sendErr))
		return w.outbox.Update(ctx, entry)
	}

	entry.ScheduledFor = w.now().Add(deliveryBackoff << (entry.Attempts - 1))
	w.logger.Warn("notification delivery failed, rescheduled",
		zap.String("entry_id", entry.ID),
		zap.Int("attempts", entry.Attempts),
		zap.Time("next_attempt", entry.ScheduledFor),
		zap.Error(sendErr))
	return w.outbox.Update(ctx, entry)
}

// ManualRetry resets a failed entry to pending with scheduled_for=now.
func (w *Worker) ManualRetry(ctx context.Context, entryID string) error {
	entry, err := w.outbox.GetByID(ctx, entryID)
	if err != nil {
		return fmt.Errorf("loading entry: %w", err)
	}
	if entry.Status != domain.OutboxFailed {
		return fmt.Errorf("entry %s is %s, only failed entries can be retried", entryID, entry.Status)
	}
	entry.Status = domain.OutboxPending
	entry.Attempts = 0
	entry.LastError = ""
	entry.ScheduledFor = w.now()
	return w.outbox.Update(ctx, entry)
}
