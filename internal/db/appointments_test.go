package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"torbook/internal/model"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func seedBusiness(t *testing.T, database *DB) (*model.Business, *model.Service) {
	t.Helper()
	ctx := context.Background()

	biz := &model.Business{
		ID:       uuid.NewString(),
		Name:     "Studio One",
		Slug:     "studio-one",
		IsActive: true,
	}
	require.NoError(t, database.CreateBusiness(ctx, biz))

	svc := &model.Service{
		ID:              uuid.NewString(),
		BusinessID:      biz.ID,
		Name:            "Haircut",
		DurationMinutes: 30,
		IsActive:        true,
	}
	require.NoError(t, database.CreateService(ctx, svc))
	return biz, svc
}

func testAppointment(biz *model.Business, svc *model.Service, start time.Time, minutes int, status model.Status) *model.Appointment {
	return &model.Appointment{
		ID:         uuid.NewString(),
		BusinessID: biz.ID,
		ServiceID:  svc.ID,
		GuestName:  "Dana",
		GuestPhone: "050-0000000",
		StartTime:  start,
		EndTime:    start.Add(time.Duration(minutes) * time.Minute),
		Status:     status,
	}
}

func TestCreateAppointmentIfFree(t *testing.T) {
	database := newTestDB(t)
	biz, svc := seedBusiness(t, database)
	ctx := context.Background()
	start := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	first := testAppointment(biz, svc, start, 30, model.StatusConfirmed)
	require.NoError(t, database.CreateAppointmentIfFree(ctx, first))

	t.Run("identical interval rejected", func(t *testing.T) {
		dup := testAppointment(biz, svc, start, 30, model.StatusPending)
		err := database.CreateAppointmentIfFree(ctx, dup)
		assert.ErrorIs(t, err, ErrSlotTaken)
	})

	t.Run("partial overlap rejected", func(t *testing.T) {
		overlapping := testAppointment(biz, svc, start.Add(15*time.Minute), 30, model.StatusPending)
		err := database.CreateAppointmentIfFree(ctx, overlapping)
		assert.ErrorIs(t, err, ErrSlotTaken)
	})

	t.Run("touching endpoint allowed", func(t *testing.T) {
		adjacent := testAppointment(biz, svc, start.Add(30*time.Minute), 30, model.StatusPending)
		assert.NoError(t, database.CreateAppointmentIfFree(ctx, adjacent))
	})

	t.Run("cancelled appointment does not block", func(t *testing.T) {
		blockedStart := start.Add(2 * time.Hour)
		cancelled := testAppointment(biz, svc, blockedStart, 30, model.StatusConfirmed)
		require.NoError(t, database.CreateAppointmentIfFree(ctx, cancelled))
		require.NoError(t, database.UpdateAppointmentStatus(ctx, cancelled.ID, model.StatusCancelled))

		replacement := testAppointment(biz, svc, blockedStart, 30, model.StatusPending)
		assert.NoError(t, database.CreateAppointmentIfFree(ctx, replacement))
	})
}

func TestRescheduleAppointmentIfFree(t *testing.T) {
	database := newTestDB(t)
	biz, svc := seedBusiness(t, database)
	ctx := context.Background()
	start := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	a := testAppointment(biz, svc, start, 45, model.StatusConfirmed)
	require.NoError(t, database.CreateAppointmentIfFree(ctx, a))

	t.Run("move overlapping own old interval succeeds", func(t *testing.T) {
		newStart := start.Add(15 * time.Minute)
		err := database.RescheduleAppointmentIfFree(ctx, a.ID, newStart, newStart.Add(45*time.Minute))
		assert.NoError(t, err)

		got, err := database.GetAppointment(ctx, a.ID)
		require.NoError(t, err)
		assert.True(t, got.StartTime.Equal(newStart))
		assert.Equal(t, model.StatusConfirmed, got.Status, "reschedule must not change status")
	})

	t.Run("move onto another appointment rejected", func(t *testing.T) {
		otherStart := start.Add(3 * time.Hour)
		other := testAppointment(biz, svc, otherStart, 30, model.StatusPending)
		require.NoError(t, database.CreateAppointmentIfFree(ctx, other))

		err := database.RescheduleAppointmentIfFree(ctx, a.ID, otherStart, otherStart.Add(45*time.Minute))
		assert.ErrorIs(t, err, ErrSlotTaken)
	})

	t.Run("unknown appointment", func(t *testing.T) {
		err := database.RescheduleAppointmentIfFree(ctx, "missing", start, start.Add(time.Hour))
		assert.Error(t, err)
	})
}

func TestGetOccupyingAppointmentsOnDate(t *testing.T) {
	database := newTestDB(t)
	biz, svc := seedBusiness(t, database)
	ctx := context.Background()
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	occupying := testAppointment(biz, svc, day.Add(10*time.Hour), 30, model.StatusConfirmed)
	require.NoError(t, database.CreateAppointmentIfFree(ctx, occupying))

	rejected := testAppointment(biz, svc, day.Add(12*time.Hour), 30, model.StatusPending)
	require.NoError(t, database.CreateAppointmentIfFree(ctx, rejected))
	require.NoError(t, database.UpdateAppointmentStatus(ctx, rejected.ID, model.StatusRejected))

	otherDay := testAppointment(biz, svc, day.Add(34*time.Hour), 30, model.StatusConfirmed)
	require.NoError(t, database.CreateAppointmentIfFree(ctx, otherDay))

	got, err := database.GetOccupyingAppointmentsOnDate(ctx, biz.ID, day)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, occupying.ID, got[0].ID)
}

func TestAppointmentMediaRefsRoundTrip(t *testing.T) {
	database := newTestDB(t)
	biz, svc := seedBusiness(t, database)
	ctx := context.Background()

	a := testAppointment(biz, svc, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), 30, model.StatusPending)
	a.MediaRefs = []string{"uploads/a.jpg", "uploads/b.jpg"}
	a.ClientNotes = "please be gentle"
	require.NoError(t, database.CreateAppointmentIfFree(ctx, a))

	got, err := database.GetAppointment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.MediaRefs, got.MediaRefs)
	assert.Equal(t, "please be gentle", got.ClientNotes)
	assert.True(t, got.IsGuest())
}

func TestCalendarRulesRoundTrip(t *testing.T) {
	database := newTestDB(t)
	biz, _ := seedBusiness(t, database)
	ctx := context.Background()

	require.NoError(t, database.SetWeeklyHours(ctx, &model.WeeklyHourRule{
		BusinessID: biz.ID, DayOfWeek: time.Tuesday, StartTime: "09:00", EndTime: "18:00",
	}))
	// Replacing the same day keeps a single rule.
	require.NoError(t, database.SetWeeklyHours(ctx, &model.WeeklyHourRule{
		BusinessID: biz.ID, DayOfWeek: time.Tuesday, StartTime: "10:00", EndTime: "17:00",
	}))

	hours, err := database.GetWeeklyHours(ctx, biz.ID)
	require.NoError(t, err)
	require.Len(t, hours, 1)
	assert.Equal(t, "10:00", hours[0].StartTime)

	br := &model.BreakRule{BusinessID: biz.ID, DayOfWeek: time.Tuesday, StartTime: "13:00", EndTime: "13:30"}
	require.NoError(t, database.AddBreak(ctx, br))
	breaks, err := database.GetBreaks(ctx, biz.ID)
	require.NoError(t, err)
	require.Len(t, breaks, 1)

	require.NoError(t, database.DeleteBreak(ctx, br.ID))
	breaks, err = database.GetBreaks(ctx, biz.ID)
	require.NoError(t, err)
	assert.Empty(t, breaks)

	closure := &model.ClosureRange{
		BusinessID: biz.ID,
		StartDate:  time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2025, 8, 5, 0, 0, 0, 0, time.UTC),
		Reason:     "vacation",
	}
	require.NoError(t, database.AddClosure(ctx, closure))
	closures, err := database.GetClosures(ctx, biz.ID)
	require.NoError(t, err)
	require.Len(t, closures, 1)
	assert.True(t, closures[0].Covers(time.Date(2025, 8, 3, 0, 0, 0, 0, time.UTC)))

	// Inverted range is rejected.
	err = database.AddClosure(ctx, &model.ClosureRange{
		BusinessID: biz.ID,
		StartDate:  time.Date(2025, 8, 5, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
	})
	assert.Error(t, err)
}

func TestMembershipFlow(t *testing.T) {
	database := newTestDB(t)
	biz, _ := seedBusiness(t, database)
	ctx := context.Background()
	clientID := uuid.NewString()

	status, err := database.GetMembershipStatus(ctx, biz.ID, clientID)
	require.NoError(t, err)
	assert.Equal(t, model.MembershipNone, status)

	_, err = database.RequestMembership(ctx, biz.ID, clientID)
	require.NoError(t, err)
	status, err = database.GetMembershipStatus(ctx, biz.ID, clientID)
	require.NoError(t, err)
	assert.Equal(t, model.MembershipPending, status)

	require.NoError(t, database.SetMembershipStatus(ctx, biz.ID, clientID, model.MembershipApproved))
	status, err = database.GetMembershipStatus(ctx, biz.ID, clientID)
	require.NoError(t, err)
	assert.Equal(t, model.MembershipApproved, status)

	// A rejected client may re-request.
	require.NoError(t, database.SetMembershipStatus(ctx, biz.ID, clientID, model.MembershipRejected))
	m, err := database.RequestMembership(ctx, biz.ID, clientID)
	require.NoError(t, err)
	assert.Equal(t, model.MembershipPending, m.Status)

	// A blocked client may not.
	require.NoError(t, database.SetMembershipStatus(ctx, biz.ID, clientID, model.MembershipBlocked))
	_, err = database.RequestMembership(ctx, biz.ID, clientID)
	assert.Error(t, err)
}
