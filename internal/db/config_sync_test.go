package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"torbook/internal/config"
)

func seedConfig() *config.BusinessesConfig {
	return &config.BusinessesConfig{
		Businesses: []config.BusinessConfig{
			{
				Slug:     "studio",
				Name:     "Studio",
				IsActive: true,
				Hours: []config.HourConfig{
					{Day: 2, Start: "09:00", End: "18:00"},
				},
				Breaks: []config.HourConfig{
					{Day: 2, Start: "13:00", End: "13:30"},
				},
				Closures: []config.ClosureConfig{
					{StartDate: "2026-08-01", EndDate: "2026-08-05", Reason: "vacation"},
				},
				Services: []config.ServiceConfig{
					{Name: "Consult", DurationMinutes: 30, Price: 15000},
					{Name: "Full", DurationMinutes: 90, Price: 45000},
				},
			},
		},
	}
}

func TestSyncBusinessesFromConfig(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, database.SyncBusinessesFromConfig(ctx, seedConfig()))

	biz, err := database.GetBusinessBySlug(ctx, "studio")
	require.NoError(t, err)
	require.NotNil(t, biz)
	assert.True(t, biz.IsActive)

	hours, err := database.GetWeeklyHours(ctx, biz.ID)
	require.NoError(t, err)
	require.Len(t, hours, 1)
	assert.Equal(t, time.Tuesday, hours[0].DayOfWeek)

	services, err := database.ListActiveServices(ctx, biz.ID)
	require.NoError(t, err)
	assert.Len(t, services, 2)

	t.Run("resync is idempotent and keeps IDs", func(t *testing.T) {
		require.NoError(t, database.SyncBusinessesFromConfig(ctx, seedConfig()))

		again, err := database.GetBusinessBySlug(ctx, "studio")
		require.NoError(t, err)
		assert.Equal(t, biz.ID, again.ID)

		services2, err := database.ListActiveServices(ctx, biz.ID)
		require.NoError(t, err)
		require.Len(t, services2, 2)
		ids := map[string]bool{}
		for _, s := range services {
			ids[s.ID] = true
		}
		for _, s := range services2 {
			assert.True(t, ids[s.ID], "service IDs must be stable across syncs")
		}
	})

	t.Run("removed service is deactivated", func(t *testing.T) {
		cfg := seedConfig()
		cfg.Businesses[0].Services = cfg.Businesses[0].Services[:1]
		require.NoError(t, database.SyncBusinessesFromConfig(ctx, cfg))

		services, err := database.ListActiveServices(ctx, biz.ID)
		require.NoError(t, err)
		require.Len(t, services, 1)
		assert.Equal(t, "Consult", services[0].Name)
	})

	t.Run("removed business is deactivated", func(t *testing.T) {
		cfg := seedConfig()
		cfg.Businesses[0].Slug = "other"
		cfg.Businesses[0].Name = "Other"
		require.NoError(t, database.SyncBusinessesFromConfig(ctx, cfg))

		biz, err := database.GetBusinessBySlug(ctx, "studio")
		require.NoError(t, err)
		assert.False(t, biz.IsActive)
	})

	t.Run("calendar rules replaced wholesale", func(t *testing.T) {
		cfg := seedConfig()
		cfg.Businesses[0].Hours = []config.HourConfig{
			{Day: 3, Start: "10:00", End: "16:00"},
		}
		cfg.Businesses[0].Breaks = nil
		cfg.Businesses[0].Closures = nil
		require.NoError(t, database.SyncBusinessesFromConfig(ctx, cfg))

		biz, err := database.GetBusinessBySlug(ctx, "studio")
		require.NoError(t, err)

		hours, err := database.GetWeeklyHours(ctx, biz.ID)
		require.NoError(t, err)
		require.Len(t, hours, 1)
		assert.Equal(t, time.Wednesday, hours[0].DayOfWeek)

		breaks, err := database.GetBreaks(ctx, biz.ID)
		require.NoError(t, err)
		assert.Empty(t, breaks)

		closures, err := database.GetClosures(ctx, biz.ID)
		require.NoError(t, err)
		assert.Empty(t, closures)
	})
}
