package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quebec-alerts/alerts-api/internal/models"
	"github.com/quebec-alerts/alerts-api/internal/repository/sqlite"
)

func TestReminderRepository_RecordAndQuery(t *testing.T) {
	repo := sqlite.NewReminderRepository(newTestDB(t), testLogger())
	ctx := context.Background()
	refDate := time.Date(2025, time.January, 7, 0, 0, 0, 0, time.UTC)

	sent, err := repo.WasSent(ctx, 1, models.AlertGarbage, refDate)
	require.NoError(t, err)
	assert.False(t, sent)

	require.NoError(t, repo.RecordSent(ctx, 1, models.AlertGarbage, refDate))

	sent, err = repo.WasSent(ctx, 1, models.AlertGarbage, refDate)
	require.NoError(t, err)
	assert.True(t, sent)
}

func TestReminderRepository_DuplicateIsDistinguishable(t *testing.T) {
	repo := sqlite.NewReminderRepository(newTestDB(t), testLogger())
	ctx := context.Background()
	refDate := time.Date(2025, time.January, 7, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.RecordSent(ctx, 7, models.AlertRecycling, refDate))

	err := repo.RecordSent(ctx, 7, models.AlertRecycling, refDate)
	assert.ErrorIs(t, err, sqlite.ErrDuplicateReminder)

	// The first record stands.
	sent, err := repo.WasSent(ctx, 7, models.AlertRecycling, refDate)
	require.NoError(t, err)
	assert.True(t, sent)
}

func TestReminderRepository_KeyIsComposite(t *testing.T) {
	repo := sqlite.NewReminderRepository(newTestDB(t), testLogger())
	ctx := context.Background()
	refDate := time.Date(2025, time.January, 7, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.RecordSent(ctx, 1, models.AlertGarbage, refDate))

	// Different subscriber, type or date never collides.
	assert.NoError(t, repo.RecordSent(ctx, 2, models.AlertGarbage, refDate))
	assert.NoError(t, repo.RecordSent(ctx, 1, models.AlertRecycling, refDate))
	assert.NoError(t, repo.RecordSent(ctx, 1, models.AlertGarbage, refDate.AddDate(0, 0, 7)))

	sent, err := repo.WasSent(ctx, 2, models.AlertRecycling, refDate)
	require.NoError(t, err)
	assert.False(t, sent)
}
