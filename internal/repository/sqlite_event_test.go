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

func TestEventRepo_CreateIfAbsent_Deduplicates(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := repository.NewSQLiteEventRepo(database)
	ctx := context.Background()

	start := time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC)
	first := testutil.NewEvent("conv-1", "Math Lesson", start)

	created, existing, err := repo.CreateIfAbsent(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, first.ID, existing.ID)

	// Same semantic content, different id and clock time on the same day.
	second := testutil.NewEvent("conv-1", "math lesson!", start.Add(3*time.Hour))
	created, existing, err = repo.CreateIfAbsent(ctx, second)
	require.NoError(t, err)
	assert.False(t, created, "same idempotency key must not create a second event")
	assert.Equal(t, first.ID, existing.ID, "existing event is returned")
}

func TestEventRepo_GetByID_NotFound(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := repository.NewSQLiteEventRepo(database)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestEventRepo_RoundTrip(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := repository.NewSQLiteEventRepo(database)
	ctx := context.Background()

	start := time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC)
	ev := testutil.NewEvent("conv-1", "Math Lesson", start, "alice", "bob")
	ev.Timezone = "America/New_York"
	ev.RSVPs["alice"] = domain.RSVPEntry{Response: domain.RSVPAccept, RespondedAt: start}

	_, _, err := repo.CreateIfAbsent(ctx, ev)
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, ev.Title, got.Title)
	assert.Equal(t, "America/New_York", got.Timezone)
	assert.Equal(t, []string{"alice", "bob"}, got.ParticipantIDs)
	assert.True(t, ev.Start.Equal(got.Start))
	assert.Equal(t, domain.RSVPAccept, got.RSVPs["alice"].Response)
	assert.False(t, got.HasConflict)
}

func TestEventRepo_Update_RSVPAndStatus(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := repository.NewSQLiteEventRepo(database)
	ctx := context.Background()

	start := time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC)
	ev := testutil.NewEvent("conv-1", "Math Lesson", start, "alice")
	_, _, err := repo.CreateIfAbsent(ctx, ev)
	require.NoError(t, err)

	ev.RSVPs["alice"] = domain.RSVPEntry{Response: domain.RSVPAccept, RespondedAt: start}
	ev.RecomputeStatus()
	require.NoError(t, repo.Update(ctx, ev))

	got, err := repo.GetByID(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EventConfirmed, got.Status)
}

func TestEventRepo_ListUpcomingByConversation(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := repository.NewSQLiteEventRepo(database)
	ctx := context.Background()

	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	past := testutil.NewEvent("conv-1", "Old Session", now.Add(-48*time.Hour))
	soon := testutil.NewEvent("conv-1", "Next Session", now.Add(2*time.Hour))
	other := testutil.NewEvent("conv-2", "Elsewhere", now.Add(2*time.Hour))

	for _, e := range []*domain.Event{past, soon, other} {
		_, _, err := repo.CreateIfAbsent(ctx, e)
		require.NoError(t, err)
	}

	events, err := repo.ListUpcomingByConversation(ctx, "conv-1", now, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, soon.ID, events[0].ID)
}

func TestEventRepo_ListOverlapping_FiltersParticipant(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := repository.NewSQLiteEventRepo(database)
	ctx := context.Background()

	start := time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC)
	mine := testutil.NewEvent("conv-1", "Math Lesson", start, "alice")
	theirs := testutil.NewEvent("conv-1", "Piano Lesson", start, "bob")
	for _, e := range []*domain.Event{mine, theirs} {
		_, _, err := repo.CreateIfAbsent(ctx, e)
		require.NoError(t, err)
	}

	events, err := repo.ListOverlapping(ctx, "alice", start, start.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, mine.ID, events[0].ID)

	// Disjoint window finds nothing.
	events, err = repo.ListOverlapping(ctx, "alice", start.Add(2*time.Hour), start.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, events)
}
