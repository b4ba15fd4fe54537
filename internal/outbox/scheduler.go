package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"cadence/internal/domain"
	"cadence/internal/repository"
)

// DefaultCronSpec is the scheduler cadence when none is configured.
const DefaultCronSpec = "@hourly"

// eventLookahead bounds the event scan: anything starting within 25h gets
// its 24h and 2h reminders materialized; the worker holds them until due.
const eventLookahead = 25 * time.Hour

// Scheduler scans events and deadlines and materializes outbox entries by
// composite idempotency key. Running it twice over an unchanged data set
// creates nothing new.
type Scheduler struct {
	events    repository.EventRepo
	deadlines repository.DeadlineRepo
	outbox    repository.OutboxRepo
	logger    *zap.Logger
	now       func() time.Time
}

func NewScheduler(events repository.EventRepo, deadlines repository.DeadlineRepo, outbox repository.OutboxRepo, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		events:    events,
		deadlines: deadlines,
		outbox:    outbox,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Start registers the scheduler on a cron loop and starts it. The caller
// owns the returned cron and stops it on shutdown.
func (s *Scheduler) Start(spec string) (*cron.Cron, error) {
	if spec == "" {
		spec = DefaultCronSpec
	}
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if _, err := s.Run(context.Background()); err != nil {
			s.logger.Error("outbox scheduler run failed", zap.Error(err))
		}
	}); err != nil {
		return nil, fmt.Errorf("registering scheduler cron %q: %w", spec, err)
	}
	c.Start()
	s.logger.Info("outbox scheduler started", zap.String("cron", spec))
	return c, nil
}

// Run performs one scan and returns the number of entries created.
func (s *Scheduler) Run(ctx context.Context) (int, error) {
	now := s.now()
	created := 0

	n, err := s.scanEvents(ctx, now)
	if err != nil {
		return created, err
	}
	created += n

	n, err = s.scanDeadlines(ctx, now)
	if err != nil {
		return created, err
	}
	created += n

	s.logger.Info("outbox scheduler run complete", zap.Int("created", created))
	return created, nil
}

// eventWindows are the reminder offsets before an event's start, ordered
// farthest first.
var eventWindows = []struct {
	typ    domain.ReminderType
	offset time.Duration
}{
	{domain.ReminderEvent24h, 24 * time.Hour},
	{domain.ReminderEvent2h, 2 * time.Hour},
}

func (s *Scheduler) scanEvents(ctx context.Context, now time.Time) (int, error) {
	events, err := s.events.ListStartingBetween(ctx, now, now.Add(eventLookahead))
	if err != nil {
		return 0, fmt.Errorf("scanning upcoming events: %w", err)
	}

	created := 0
	for _, ev := range events {
		if ev.Status == domain.EventCancelled || ev.Status == domain.EventDeclined {
			continue
		}
		for _, userID := range ev.ParticipantIDs {
			for i, reminder := range eventWindows {
				scheduledFor := ev.Start.Add(-reminder.offset)
				if scheduledFor.Before(now) {
					// A missed window is delivered immediately, but only
					// the closest one: when a later window is also past,
					// this one would just double the same push.
					if i+1 < len(eventWindows) && ev.Start.Add(-eventWindows[i+1].offset).Before(now) {
						continue
					}
					scheduledFor = now
				}
				entry := &domain.OutboxEntry{
					ID:           uuid.NewString(),
					EntityType:   domain.EntityEvent,
					EntityID:     ev.ID,
					TargetUserID: userID,
					ReminderType: reminder.typ,
					Title:        fmt.Sprintf("Upcoming: %s", ev.Title),
					Body:         fmt.Sprintf("%q starts at %s.", ev.Title, ev.Start.Format(time.RFC1123)),
					Payload:      map[string]string{"event_id": ev.ID},
					ScheduledFor: scheduledFor,
					Status:       domain.OutboxPending,
					CreatedAt:    now,
					UpdatedAt:    now,
				}
				ok, err := s.outbox.CreateIfAbsent(ctx, entry)
				if err != nil {
					return created, fmt.Errorf("creating event reminder: %w", err)
				}
				if ok {
					created++
				}
			}
		}
	}
	return created, nil
}

func (s *Scheduler) scanDeadlines(ctx context.Context, now time.Time) (int, error) {
	created := 0

	endOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	dueToday, err := s.deadlines.ListDueBetween(ctx, now, endOfDay)
	if err != nil {
		return 0, fmt.Errorf("scanning deadlines due today: %w", err)
	}
	n, err := s.deadlineEntries(ctx, dueToday, domain.ReminderDeadlineToday, now)
	if err != nil {
		return created, err
	}
	created += n

	overdue, err := s.deadlines.ListOverdue(ctx, now)
	if err != nil {
		return created, fmt.Errorf("scanning overdue deadlines: %w", err)
	}
	n, err = s.deadlineEntries(ctx, overdue, domain.ReminderDeadlineOverdue, now)
	if err != nil {
		return created, err
	}
	created += n

	return created, nil
}

func (s *Scheduler) deadlineEntries(ctx context.Context, deadlines []*domain.Deadline, typ domain.ReminderType, now time.Time) (int, error) {
	created := 0
	for _, d := range deadlines {
		title := fmt.Sprintf("Due: %s", d.Title)
		if typ == domain.ReminderDeadlineOverdue {
			title = fmt.Sprintf("Overdue: %s", d.Title)
		}
		entry := &domain.OutboxEntry{
			ID:           uuid.NewString(),
			EntityType:   domain.EntityDeadline,
			EntityID:     d.ID,
			TargetUserID: d.AssigneeID,
			ReminderType: typ,
			Title:        title,
			Body:         deadlineBody(d),
			Payload:      map[string]string{"deadline_id": d.ID},
			ScheduledFor: now,
			Status:       domain.OutboxPending,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		ok, err := s.outbox.CreateIfAbsent(ctx, entry)
		if err != nil {
			return created, fmt.Errorf("creating deadline reminder: %w", err)
		}
		if ok {
			created++
		}
	}
	return created, nil
}

func deadlineBody(d *domain.Deadline) string {
	if d.DueAt == nil {
		return d.Title
	}
	return fmt.Sprintf("%q is due %s.", d.Title, d.DueAt.Format("Mon Jan 2"))
}
