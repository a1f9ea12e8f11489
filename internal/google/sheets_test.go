package google

import (
	"context"
	"testing"
	"time"

	"torbook/internal/model"
)

func TestFilterOccupying(t *testing.T) {
	appointments := []model.Appointment{
		{ID: "1", Status: model.StatusPending},
		{ID: "2", Status: model.StatusConfirmed},
		{ID: "3", Status: model.StatusCancelled},
		{ID: "4", Status: model.StatusRejected},
		{ID: "5", Status: model.StatusCompleted},
	}

	active := filterOccupying(appointments)
	if len(active) != 3 {
		t.Fatalf("expected 3 occupying appointments, got %d", len(active))
	}
	for _, a := range active {
		if a.Status == model.StatusCancelled || a.Status == model.StatusRejected {
			t.Errorf("non-occupying appointment %s in filtered list", a.ID)
		}
	}
}

func TestAppointmentRowValues(t *testing.T) {
	start := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	a := &model.Appointment{
		ID:         "abc",
		GuestName:  "Dana",
		GuestPhone: "050-0000000",
		StartTime:  start,
		EndTime:    start.Add(30 * time.Minute),
		Status:     model.StatusConfirmed,
	}

	values := appointmentRowValues(a, "Studio", "Consult")

	expected := []interface{}{
		"abc", "Studio", "Consult", "Dana", "050-0000000",
		"2026-03-10", "10:00", "10:30", "CONFIRMED",
	}
	if len(values) != len(expected) {
		t.Fatalf("expected %d values, got %d", len(expected), len(values))
	}
	for i, v := range values {
		if v != expected[i] {
			t.Errorf("at index %d: expected %v, got %v", i, expected[i], v)
		}
	}
}

func TestUpdateAppointmentUncachedRequestsResync(t *testing.T) {
	s := &SheetsService{rowCache: make(map[string]int)}

	a := &model.Appointment{ID: "abc", Status: model.StatusConfirmed}
	updated, err := s.UpdateAppointment(context.Background(), a, "Studio", "Consult")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated {
		t.Error("expected uncached appointment to fall back to full sync")
	}
}

func TestUpdateAppointmentCancelledDropsRow(t *testing.T) {
	s := &SheetsService{rowCache: map[string]int{"abc": 4}}

	a := &model.Appointment{ID: "abc", Status: model.StatusCancelled}
	updated, err := s.UpdateAppointment(context.Background(), a, "Studio", "Consult")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated {
		t.Error("expected cancelled appointment to fall back to full sync")
	}
	if _, ok := s.getCachedRow("abc"); ok {
		t.Error("expected cached row to be dropped for cancelled appointment")
	}
}
