package booking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"torbook/internal/db"
	"torbook/internal/metrics"
	"torbook/internal/model"
)

// Committer is the storage surface the guard serializes writes through.
type Committer interface {
	CreateAppointmentIfFree(ctx context.Context, a *model.Appointment) error
	RescheduleAppointmentIfFree(ctx context.Context, id string, start, end time.Time) error
	RestoreAppointmentIfFree(ctx context.Context, id string) error
}

const (
	commitAttempts = 3
	retryDelay     = 50 * time.Millisecond
)

// Guard serializes slot commits per business so the conflict check and the
// insert observe a consistent calendar. The SQL transaction is the real
// arbiter; the lock only keeps concurrent commits from thrashing on busy
// errors.
type Guard struct {
	store   Committer
	metrics *metrics.Metrics
	logger  zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewGuard creates a commit guard over the given store.
func NewGuard(store Committer, m *metrics.Metrics, logger zerolog.Logger) *Guard {
	return &Guard{
		store:   store,
		metrics: m,
		logger:  logger.With().Str("component", "commit_guard").Logger(),
		locks:   make(map[string]*sync.Mutex),
	}
}

func (g *Guard) lockFor(businessID string) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.locks[businessID]
	if !ok {
		l = &sync.Mutex{}
		g.locks[businessID] = l
	}
	return l
}

// Commit atomically re-checks the interval and inserts the appointment.
// Returns ErrSlotNoLongerAvailable when a concurrent booking won the slot.
func (g *Guard) Commit(ctx context.Context, a *model.Appointment) error {
	l := g.lockFor(a.BusinessID)
	l.Lock()
	defer l.Unlock()

	err := g.withRetry(ctx, func() error {
		return g.store.CreateAppointmentIfFree(ctx, a)
	})
	if errors.Is(err, db.ErrSlotTaken) {
		g.metrics.IncConflict()
		g.logger.Info().
			Str("business_id", a.BusinessID).
			Time("start", a.StartTime).
			Msg("commit lost slot race")
		return ErrSlotNoLongerAvailable
	}
	return err
}

// Reschedule atomically re-checks the new interval, ignoring the
// appointment's own current interval, and moves it. Status is unchanged.
func (g *Guard) Reschedule(ctx context.Context, businessID, appointmentID string, start, end time.Time) error {
	l := g.lockFor(businessID)
	l.Lock()
	defer l.Unlock()

	err := g.withRetry(ctx, func() error {
		return g.store.RescheduleAppointmentIfFree(ctx, appointmentID, start, end)
	})
	if errors.Is(err, db.ErrSlotTaken) {
		g.metrics.IncConflict()
		return ErrSlotNoLongerAvailable
	}
	return err
}

// Restore atomically re-checks a lapsed appointment's interval and returns
// it to the calendar as PENDING.
func (g *Guard) Restore(ctx context.Context, businessID, appointmentID string) error {
	l := g.lockFor(businessID)
	l.Lock()
	defer l.Unlock()

	err := g.withRetry(ctx, func() error {
		return g.store.RestoreAppointmentIfFree(ctx, appointmentID)
	})
	if errors.Is(err, db.ErrSlotTaken) {
		g.metrics.IncConflict()
		return ErrSlotNoLongerAvailable
	}
	return err
}

// withRetry retries a commit a bounded number of times on transient
// storage contention. Conflicts are definitive and never retried.
func (g *Guard) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= commitAttempts; attempt++ {
		err = fn()
		if err == nil || errors.Is(err, db.ErrSlotTaken) || !isTransient(err) {
			return err
		}
		g.metrics.IncCommitRetry()
		g.logger.Warn().Err(err).Int("attempt", attempt).Msg("transient commit error, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryDelay * time.Duration(attempt)):
		}
	}
	return err
}

// isTransient reports whether the error is SQLite lock contention worth
// retrying. Anything else is definitive.
func isTransient(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.Code == sqlite3.ErrBusy || serr.Code == sqlite3.ErrLocked
	}
	return false
}
