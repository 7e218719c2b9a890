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

func boolPtr(b bool) *bool { return &b }

func TestSubscriberRepository_CreateAndGet(t *testing.T) {
	repo := sqlite.NewSubscriberRepository(newTestDB(t), testLogger())
	ctx := context.Background()

	id, err := repo.Create(ctx, models.Subscriber{
		Email:      "  User@Example.COM ",
		PostalCode: "g1r 2k8",
		Lat:        46.81,
		Lon:        -71.21,
		Active:     true,
		SnowAlerts: true,
	})
	require.NoError(t, err)
	assert.Positive(t, id)

	got, err := repo.GetByEmail(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", got.Email)
	assert.Equal(t, "G1R2K8", got.PostalCode)
	assert.True(t, got.Active)
	assert.True(t, got.SnowAlerts)
	assert.False(t, got.GarbageAlerts)
	assert.Nil(t, got.WasteZoneID)
}

func TestSubscriberRepository_DuplicateEmail(t *testing.T) {
	repo := sqlite.NewSubscriberRepository(newTestDB(t), testLogger())
	ctx := context.Background()

	_, err := repo.Create(ctx, models.Subscriber{Email: "a@b.com", PostalCode: "G1R2K8", Active: true, SnowAlerts: true})
	require.NoError(t, err)

	_, err = repo.Create(ctx, models.Subscriber{Email: "A@B.com", PostalCode: "G1R2K8", Active: true, SnowAlerts: true})
	assert.ErrorIs(t, err, sqlite.ErrSubscriberExists)
}

func TestSubscriberRepository_CreateStoresActiveFlag(t *testing.T) {
	repo := sqlite.NewSubscriberRepository(newTestDB(t), testLogger())
	ctx := context.Background()

	_, err := repo.Create(ctx, models.Subscriber{
		Email: "paused@a.com", PostalCode: "G1R2K8", GarbageAlerts: true,
	})
	require.NoError(t, err)

	got, err := repo.GetByEmail(ctx, "paused@a.com")
	require.NoError(t, err)
	assert.False(t, got.Active)

	listed, err := repo.ListWithAlert(ctx, models.AlertGarbage)
	require.NoError(t, err)
	assert.Empty(t, listed, "inactive subscribers never receive reminders")
}

func TestSubscriberRepository_GetByEmail_NotFound(t *testing.T) {
	repo := sqlite.NewSubscriberRepository(newTestDB(t), testLogger())

	_, err := repo.GetByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, sqlite.ErrSubscriberNotFound)
}

func TestSubscriberRepository_ListWithAlert(t *testing.T) {
	repo := sqlite.NewSubscriberRepository(newTestDB(t), testLogger())
	ctx := context.Background()

	_, err := repo.Create(ctx, models.Subscriber{Email: "snow@a.com", PostalCode: "G1R2K8", Active: true, SnowAlerts: true})
	require.NoError(t, err)
	_, err = repo.Create(ctx, models.Subscriber{Email: "garbage@a.com", PostalCode: "G1R2K8", Active: true, GarbageAlerts: true})
	require.NoError(t, err)
	_, err = repo.Create(ctx, models.Subscriber{
		Email: "both@a.com", PostalCode: "G1R2K8", Active: true,
		GarbageAlerts: true, RecyclingAlerts: true,
	})
	require.NoError(t, err)

	garbage, err := repo.ListWithAlert(ctx, models.AlertGarbage)
	require.NoError(t, err)
	assert.Len(t, garbage, 2)

	recycling, err := repo.ListWithAlert(ctx, models.AlertRecycling)
	require.NoError(t, err)
	require.Len(t, recycling, 1)
	assert.Equal(t, "both@a.com", recycling[0].Email)

	_, err = repo.ListWithAlert(ctx, "parking")
	assert.Error(t, err)
}

func TestSubscriberRepository_UpdatePreferences(t *testing.T) {
	repo := sqlite.NewSubscriberRepository(newTestDB(t), testLogger())
	ctx := context.Background()

	_, err := repo.Create(ctx, models.Subscriber{
		Email: "merge@a.com", PostalCode: "G1R2K8", Active: true, SnowAlerts: true,
	})
	require.NoError(t, err)

	zoneID := int64(12)
	ok, err := repo.UpdatePreferences(ctx, "merge@a.com", models.PreferencesUpdate{
		GarbageAlerts: boolPtr(true),
		WasteZoneID:   &zoneID,
	})
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.GetByEmail(ctx, "merge@a.com")
	require.NoError(t, err)
	assert.True(t, got.SnowAlerts, "unset field keeps its value")
	assert.True(t, got.GarbageAlerts)
	require.NotNil(t, got.WasteZoneID)
	assert.Equal(t, int64(12), *got.WasteZoneID)

	ok, err = repo.UpdatePreferences(ctx, "ghost@a.com", models.PreferencesUpdate{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSubscriberRepository_RemoveCascadesReminders(t *testing.T) {
	db := newTestDB(t)
	subs := sqlite.NewSubscriberRepository(db, testLogger())
	reminders := sqlite.NewReminderRepository(db, testLogger())
	ctx := context.Background()
	refDate := time.Date(2025, time.January, 7, 0, 0, 0, 0, time.UTC)

	id, err := subs.Create(ctx, models.Subscriber{Email: "gone@a.com", PostalCode: "G1R2K8", Active: true, GarbageAlerts: true})
	require.NoError(t, err)
	require.NoError(t, reminders.RecordSent(ctx, id, models.AlertGarbage, refDate))

	removed, err := subs.Remove(ctx, "gone@a.com")
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = subs.GetByEmail(ctx, "gone@a.com")
	assert.ErrorIs(t, err, sqlite.ErrSubscriberNotFound)

	sent, err := reminders.WasSent(ctx, id, models.AlertGarbage, refDate)
	require.NoError(t, err)
	assert.False(t, sent, "ledger rows must go with their subscriber")

	removed, err = subs.Remove(ctx, "gone@a.com")
	require.NoError(t, err)
	assert.False(t, removed)
}
