package events

import "testing"

func TestPublishRoutesByType(t *testing.T) {
	bus := NewBus()

	var booked, status int
	bus.Subscribe(TypeBooked, func(Event) { booked++ })
	bus.Subscribe(TypeStatus, func(Event) { status++ })

	bus.Publish(Event{Type: TypeBooked, AppointmentID: "a1"})
	bus.Publish(Event{Type: TypeBooked, AppointmentID: "a2"})
	bus.Publish(Event{Type: TypeStatus, AppointmentID: "a1", Status: "confirmed"})

	if booked != 2 {
		t.Errorf("booked handler calls = %d, want 2", booked)
	}
	if status != 1 {
		t.Errorf("status handler calls = %d, want 1", status)
	}
}

func TestWildcardReceivesEverything(t *testing.T) {
	bus := NewBus()

	var got []string
	bus.Subscribe("", func(e Event) { got = append(got, e.Type) })

	bus.Publish(Event{Type: TypeBooked})
	bus.Publish(Event{Type: TypeRescheduled})

	if len(got) != 2 || got[0] != TypeBooked || got[1] != TypeRescheduled {
		t.Errorf("wildcard received %v", got)
	}
}

func TestPublishSetsTimestamp(t *testing.T) {
	bus := NewBus()

	var e Event
	bus.Subscribe(TypeBooked, func(ev Event) { e = ev })
	bus.Publish(Event{Type: TypeBooked})

	if e.At.IsZero() {
		t.Error("expected At to be set on publish")
	}
}

func TestNilBusPublishIsNoOp(t *testing.T) {
	var bus *Bus
	bus.Publish(Event{Type: TypeBooked})
}
