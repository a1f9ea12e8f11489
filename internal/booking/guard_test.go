package booking

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"torbook/internal/db"
)

func TestConcurrentRestoreAndBookExactlyOneWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := tuesday.Add(10 * time.Hour)

	a, err := f.svc.Book(ctx, f.bookRequest(start))
	require.NoError(t, err)
	require.NoError(t, f.svc.Cancel(ctx, a.ID))

	var restoreErr, bookErr error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		restoreErr = f.svc.Restore(ctx, a.ID)
	}()
	go func() {
		defer wg.Done()
		_, bookErr = f.svc.Book(ctx, f.bookRequest(start))
	}()
	wg.Wait()

	succeeded := 0
	for _, err := range []error{restoreErr, bookErr} {
		switch {
		case err == nil:
			succeeded++
		default:
			assert.ErrorIs(t, err, ErrSlotNoLongerAvailable)
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one of restore and book may take the slot")
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"busy", sqlite3.Error{Code: sqlite3.ErrBusy}, true},
		{"locked", sqlite3.Error{Code: sqlite3.ErrLocked}, true},
		{"wrapped busy", fmt.Errorf("commit: %w", sqlite3.Error{Code: sqlite3.ErrBusy}), true},
		{"constraint", sqlite3.Error{Code: sqlite3.ErrConstraint}, false},
		{"slot taken", db.ErrSlotTaken, false},
		{"plain", fmt.Errorf("database is locked"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, isTransient(tc.err))
		})
	}
}

// Restores share the per-business commit lock with bookings.
func TestGuardRestoreMapsSlotTaken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := tuesday.Add(14 * time.Hour)

	a, err := f.svc.Book(ctx, f.bookRequest(start))
	require.NoError(t, err)
	require.NoError(t, f.svc.Cancel(ctx, a.ID))
	_, err = f.svc.Book(ctx, f.bookRequest(start))
	require.NoError(t, err)

	guard := NewGuard(f.db, nil, zerolog.New(io.Discard))
	assert.ErrorIs(t, guard.Restore(ctx, a.BusinessID, a.ID), ErrSlotNoLongerAvailable)
}
