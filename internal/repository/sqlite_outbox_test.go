package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cadence/internal/domain"
	"cadence/internal/repository"
	"cadence/internal/testutil"
)

func TestOutboxRepo_CreateIfAbsent_CompositeKey(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := repository.NewSQLiteOutboxRepo(database)
	ctx := context.Background()

	when := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	entry := testutil.NewOutboxEntry(domain.EntityEvent, "ev-1", "alice", domain.ReminderEvent24h, when)

	created, err := repo.CreateIfAbsent(ctx, entry)
	require.NoError(t, err)
	assert.True(t, created)

	dup := testutil.NewOutboxEntry(domain.EntityEvent, "ev-1", "alice", domain.ReminderEvent24h, when.Add(time.Hour))
	created, err = repo.CreateIfAbsent(ctx, dup)
	require.NoError(t, err)
	assert.False(t, created, "same (entity, user, reminder) key must not duplicate")

	// Different reminder type under the same entity is a distinct entry.
	other := testutil.NewOutboxEntry(domain.EntityEvent, "ev-1", "alice", domain.ReminderEvent2h, when)
	created, err = repo.CreateIfAbsent(ctx, other)
	require.NoError(t, err)
	assert.True(t, created)
}

func TestOutboxRepo_ListDue_OnlyPendingAndDue(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := repository.NewSQLiteOutboxRepo(database)
	ctx := context.Background()

	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	due := testutil.NewOutboxEntry(domain.EntityEvent, "ev-1", "alice", domain.ReminderEvent24h, now.Add(-time.Minute))
	future := testutil.NewOutboxEntry(domain.EntityEvent, "ev-2", "alice", domain.ReminderEvent24h, now.Add(time.Hour))
	sent := testutil.NewOutboxEntry(domain.EntityEvent, "ev-3", "alice", domain.ReminderEvent24h, now.Add(-time.Hour))
	sent.Status = domain.OutboxSent

	for _, e := range []*domain.OutboxEntry{due, future, sent} {
		created, err := repo.CreateIfAbsent(ctx, e)
		require.NoError(t, err)
		require.True(t, created)
	}

	entries, err := repo.ListDue(ctx, now, 50)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, due.ID, entries[0].ID)
}

func TestOutboxRepo_Update_Transitions(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := repository.NewSQLiteOutboxRepo(database)
	ctx := context.Background()

	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	entry := testutil.NewOutboxEntry(domain.EntityDeadline, "dl-1", "bob", domain.ReminderDeadlineToday, now)
	_, err := repo.CreateIfAbsent(ctx, entry)
	require.NoError(t, err)

	entry.Status = domain.OutboxFailed
	entry.Attempts = 3
	entry.LastError = "provider unreachable"
	require.NoError(t, repo.Update(ctx, entry))

	got, err := repo.GetByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OutboxFailed, got.Status)
	assert.Equal(t, 3, got.Attempts)
	assert.Equal(t, "provider unreachable", got.LastError)
	assert.Equal(t, "dl-1", got.Payload["entity_id"])
}
