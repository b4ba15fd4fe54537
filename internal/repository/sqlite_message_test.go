package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cadence/internal/domain"
	"cadence/internal/repository"
	"cadence/internal/testutil"
)

func TestMessageRepo_ExistsReferencing(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := repository.NewSQLiteMessageRepo(database)
	ctx := context.Background()

	msg := &domain.Message{
		ID:             uuid.NewString(),
		ConversationID: "conv-1",
		SenderID:       "assistant",
		Text:           "Scheduled: Math Lesson on Monday at 3pm.",
		Role:           "assistant",
		Metadata:       map[string]string{"entity_id": "ev-1", "entity_type": "event"},
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, msg))

	found, err := repo.ExistsReferencing(ctx, "conv-1", "ev-1")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = repo.ExistsReferencing(ctx, "conv-1", "ev-2")
	require.NoError(t, err)
	assert.False(t, found)

	found, err = repo.ExistsReferencing(ctx, "conv-2", "ev-1")
	require.NoError(t, err)
	assert.False(t, found, "reference check is conversation-scoped")
}

func TestMessageRepo_ListByConversation_NewestFirst(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := repository.NewSQLiteMessageRepo(database)
	ctx := context.Background()

	base := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, &domain.Message{
			ID:             uuid.NewString(),
			ConversationID: "conv-1",
			SenderID:       "alice",
			Text:           "hello",
			Role:           "user",
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		}))
	}

	messages, err := repo.ListByConversation(ctx, "conv-1", 2)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.True(t, messages[0].CreatedAt.After(messages[1].CreatedAt))
}

func TestFailedOpRepo_AppendAndList(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := repository.NewSQLiteFailedOpRepo(database)
	ctx := context.Background()

	op := &domain.FailedOperation{
		ID:        uuid.NewString(),
		Tool:      "schedule.create_event",
		Params:    `{"title":"[redacted:11]"}`,
		Error:     "store unavailable",
		Attempts:  3,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Append(ctx, op))

	ops, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, "schedule.create_event", ops[0].Tool)
	assert.Equal(t, 3, ops[0].Attempts)
}
