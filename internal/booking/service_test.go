package booking

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"torbook/internal/calendar"
	"torbook/internal/db"
	"torbook/internal/model"
)

// testNow is well before the seeded calendar dates so the same-day cutoff
// never interferes unless a test wants it to.
var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// tuesday has weekly hours 09:00-18:00 and a 13:00-13:30 break.
var tuesday = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

type fixture struct {
	db  *db.DB
	svc *Service
	biz *model.Business
	srv *model.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	database, err := db.NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	biz := &model.Business{ID: uuid.NewString(), Name: "Studio", Slug: "studio", IsActive: true}
	require.NoError(t, database.CreateBusiness(ctx, biz))

	require.NoError(t, database.SetWeeklyHours(ctx, &model.WeeklyHourRule{
		BusinessID: biz.ID, DayOfWeek: time.Tuesday, StartTime: "09:00", EndTime: "18:00",
	}))
	require.NoError(t, database.AddBreak(ctx, &model.BreakRule{
		BusinessID: biz.ID, DayOfWeek: time.Tuesday, StartTime: "13:00", EndTime: "13:30",
	}))

	srv := &model.Service{
		ID: uuid.NewString(), BusinessID: biz.ID, Name: "Consult",
		DurationMinutes: 30, IsActive: true,
	}
	require.NoError(t, database.CreateService(ctx, srv))

	logger := zerolog.New(io.Discard)
	guard := NewGuard(database, nil, logger)
	svc := NewService(database, calendar.NewLoader(database), guard, nil, logger)
	svc.now = func() time.Time { return testNow }

	return &fixture{db: database, svc: svc, biz: biz, srv: srv}
}

func (f *fixture) bookRequest(start time.Time) BookRequest {
	return BookRequest{
		BusinessID: f.biz.ID,
		ServiceID:  f.srv.ID,
		GuestName:  "Dana",
		GuestPhone: "050-0000000",
		Start:      start,
	}
}

func TestBookGuestGetsPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.Book(ctx, f.bookRequest(tuesday.Add(10*time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, a.Status)
	assert.True(t, a.IsGuest())
}

func TestBookApprovedMemberGetsConfirmed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	clientID := uuid.NewString()

	_, err := f.db.RequestMembership(ctx, f.biz.ID, clientID)
	require.NoError(t, err)
	require.NoError(t, f.db.SetMembershipStatus(ctx, f.biz.ID, clientID, model.MembershipApproved))

	req := f.bookRequest(tuesday.Add(10 * time.Hour))
	req.ClientID = clientID
	req.GuestName, req.GuestPhone = "", ""

	a, err := f.svc.Book(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, a.Status)
}

func TestBookMembershipGating(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	gated := &model.Business{
		ID: uuid.NewString(), Name: "Members Only", Slug: "members-only",
		RequiresMembership: true, IsActive: true,
	}
	require.NoError(t, f.db.CreateBusiness(ctx, gated))
	require.NoError(t, f.db.SetWeeklyHours(ctx, &model.WeeklyHourRule{
		BusinessID: gated.ID, DayOfWeek: time.Tuesday, StartTime: "09:00", EndTime: "18:00",
	}))
	gatedSvc := &model.Service{
		ID: uuid.NewString(), BusinessID: gated.ID, Name: "Session",
		DurationMinutes: 30, IsActive: true,
	}
	require.NoError(t, f.db.CreateService(ctx, gatedSvc))

	req := BookRequest{
		BusinessID: gated.ID,
		ServiceID:  gatedSvc.ID,
		Start:      tuesday.Add(10 * time.Hour),
	}

	t.Run("guest rejected", func(t *testing.T) {
		req := req
		req.GuestName = "Walk In"
		_, err := f.svc.Book(ctx, req)
		assert.ErrorIs(t, err, ErrMembershipRequired)
	})

	t.Run("pending member rejected", func(t *testing.T) {
		clientID := uuid.NewString()
		_, err := f.db.RequestMembership(ctx, gated.ID, clientID)
		require.NoError(t, err)

		req := req
		req.ClientID = clientID
		_, err = f.svc.Book(ctx, req)
		assert.ErrorIs(t, err, ErrMembershipRequired)
	})

	t.Run("blocked client rejected everywhere", func(t *testing.T) {
		clientID := uuid.NewString()
		_, err := f.db.RequestMembership(ctx, f.biz.ID, clientID)
		require.NoError(t, err)
		require.NoError(t, f.db.SetMembershipStatus(ctx, f.biz.ID, clientID, model.MembershipBlocked))

		open := f.bookRequest(tuesday.Add(11 * time.Hour))
		open.ClientID = clientID
		open.GuestName, open.GuestPhone = "", ""
		_, err = f.svc.Book(ctx, open)
		assert.ErrorIs(t, err, ErrMembershipRequired)
	})
}

func TestBookClosedDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Monday has no weekly hours rule.
	monday := tuesday.AddDate(0, 0, -1)
	_, err := f.svc.Book(ctx, f.bookRequest(monday.Add(10*time.Hour)))
	assert.True(t, IsClosed(err), "expected closed error, got %v", err)

	require.NoError(t, f.db.AddClosure(ctx, &model.ClosureRange{
		BusinessID: f.biz.ID,
		StartDate:  tuesday,
		EndDate:    tuesday,
		Reason:     "inventory",
	}))
	_, err = f.svc.Book(ctx, f.bookRequest(tuesday.Add(10*time.Hour)))
	assert.True(t, IsClosed(err))
	assert.Contains(t, err.Error(), "inventory")
}

func TestBookBreakOverlapRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 12:45 + 30min runs into the 13:00-13:30 break.
	_, err := f.svc.Book(ctx, f.bookRequest(tuesday.Add(12*time.Hour+45*time.Minute)))
	assert.Error(t, err)

	// 13:30 starts exactly at the break's end.
	_, err = f.svc.Book(ctx, f.bookRequest(tuesday.Add(13*time.Hour+30*time.Minute)))
	assert.NoError(t, err)
}

func TestConcurrentCommitsExactlyOneWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := tuesday.Add(10 * time.Hour)

	const attempts = 2
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Book(ctx, f.bookRequest(start))
		}(i)
	}
	wg.Wait()

	succeeded, lost := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case assert.ErrorIs(t, err, ErrSlotNoLongerAvailable):
			lost++
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one commit must win")
	assert.Equal(t, attempts-1, lost)
}

func TestReschedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.Book(ctx, f.bookRequest(tuesday.Add(10*time.Hour)))
	require.NoError(t, err)

	t.Run("own interval does not block the move", func(t *testing.T) {
		moved, err := f.svc.Reschedule(ctx, a.ID, tuesday.Add(10*time.Hour+15*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, a.Status, moved.Status)
		assert.True(t, moved.StartTime.Equal(tuesday.Add(10*time.Hour+15*time.Minute)))
	})

	t.Run("taken target rejected", func(t *testing.T) {
		_, err := f.svc.Book(ctx, f.bookRequest(tuesday.Add(15*time.Hour)))
		require.NoError(t, err)

		_, err = f.svc.Reschedule(ctx, a.ID, tuesday.Add(15*time.Hour))
		assert.ErrorIs(t, err, ErrSlotNoLongerAvailable)
	})

	t.Run("completed appointment cannot move", func(t *testing.T) {
		require.NoError(t, f.svc.Approve(ctx, a.ID))
		require.NoError(t, f.svc.Complete(ctx, a.ID))
		_, err := f.svc.Reschedule(ctx, a.ID, tuesday.Add(16*time.Hour))
		assert.ErrorIs(t, err, ErrNotReschedulable)
	})
}

func TestStaffLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.Book(ctx, f.bookRequest(tuesday.Add(10*time.Hour)))
	require.NoError(t, err)

	require.NoError(t, f.svc.Approve(ctx, a.ID))
	got, err := f.db.GetAppointment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, got.Status)

	// Confirmed cannot be rejected.
	assert.ErrorIs(t, f.svc.Reject(ctx, a.ID), ErrInvalidTransition)

	require.NoError(t, f.svc.Cancel(ctx, a.ID))

	t.Run("restore into a free slot", func(t *testing.T) {
		require.NoError(t, f.svc.Restore(ctx, a.ID))
		got, err := f.db.GetAppointment(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusPending, got.Status)
	})

	t.Run("restore into a taken slot fails", func(t *testing.T) {
		require.NoError(t, f.svc.Cancel(ctx, a.ID))
		_, err := f.svc.Book(ctx, f.bookRequest(a.StartTime))
		require.NoError(t, err)

		assert.ErrorIs(t, f.svc.Restore(ctx, a.ID), ErrSlotNoLongerAvailable)
	})
}

func TestManualBookAlwaysConfirmed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.ManualBook(ctx, ManualBookRequest{
		BusinessID: f.biz.ID,
		ServiceID:  f.srv.ID,
		GuestName:  "Walk In",
		GuestPhone: "050-1111111",
		Start:      tuesday.Add(11 * time.Hour),
		StaffNotes: "phone booking",
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, a.Status)
	assert.Equal(t, "phone booking", a.StaffNotes)
}

func TestAvailabilityExcludesOwnAppointment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.Book(ctx, f.bookRequest(tuesday.Add(10*time.Hour)))
	require.NoError(t, err)

	res, err := f.svc.Availability(ctx, f.biz.ID, f.srv.ID, tuesday, "")
	require.NoError(t, err)
	assert.NotContains(t, res.StartTimes(), "10:00")

	res, err = f.svc.Availability(ctx, f.biz.ID, f.srv.ID, tuesday, a.ID)
	require.NoError(t, err)
	assert.Contains(t, res.StartTimes(), "10:00")
}

func TestSessionFlow(t *testing.T) {
	s := NewSession("biz", "client")
	assert.Equal(t, StepBrowsing, s.Step)

	assert.ErrorIs(t, s.SelectDate(tuesday), ErrInvalidTransition)
	assert.ErrorIs(t, s.SelectSlot(tuesday.Add(10*time.Hour)), ErrInvalidTransition)
	assert.ErrorIs(t, s.Submit(), ErrInvalidTransition)

	require.NoError(t, s.SelectService("svc"))
	require.NoError(t, s.SelectDate(tuesday))
	require.NoError(t, s.SelectSlot(tuesday.Add(10*time.Hour)))

	// Changing the service discards the later choices.
	require.NoError(t, s.SelectService("other"))
	assert.True(t, s.Date.IsZero())
	assert.True(t, s.SlotStart.IsZero())
	assert.ErrorIs(t, s.Submit(), ErrInvalidTransition)

	require.NoError(t, s.SelectDate(tuesday))
	require.NoError(t, s.SelectSlot(tuesday.Add(11*time.Hour)))
	require.NoError(t, s.Submit())
	assert.ErrorIs(t, s.SelectService("again"), ErrInvalidTransition)

	require.NoError(t, s.Resolve(true, "appt-1"))
	assert.Equal(t, StepCommitted, s.Step)
	assert.Equal(t, "appt-1", s.AppointmentID)
	assert.ErrorIs(t, s.Resolve(false, ""), ErrInvalidTransition)
}

func TestSessionStoreTTL(t *testing.T) {
	store := NewSessionStore(50 * time.Millisecond)
	s := NewSession("biz", "")
	store.Put(s)

	require.NotNil(t, store.Get(s.ID))

	s.UpdatedAt = time.Now().Add(-time.Minute)
	store.Put(s)
	assert.Nil(t, store.Get(s.ID))
	assert.Nil(t, store.Get(s.ID))

	expired := NewSession("biz", "")
	expired.UpdatedAt = time.Now().Add(-time.Minute)
	store.Put(expired)
	assert.Equal(t, 1, store.Sweep())
}

func TestSessionStoreCopies(t *testing.T) {
	store := NewSessionStore(time.Minute)
	s := NewSession("biz", "client")
	require.NoError(t, s.SelectService("svc"))
	store.Put(s)

	// Mutating the caller's session after Put must not leak into the store.
	s.ServiceID = "changed"
	got := store.Get(s.ID)
	require.NotNil(t, got)
	assert.Equal(t, "svc", got.ServiceID)

	// Each Get hands out an independent copy.
	got.ServiceID = "scribbled"
	again := store.Get(s.ID)
	require.NotNil(t, again)
	assert.Equal(t, "svc", again.ServiceID)
}
