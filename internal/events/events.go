// Package events provides in-process pub/sub for appointment lifecycle
// events.
package events

import (
	"sync"
	"time"
)

// Event types published by the booking service.
const (
	TypeBooked      = "appointment.booked"
	TypeRescheduled = "appointment.rescheduled"
	TypeStatus      = "appointment.status_changed"
)

// Event is a lightweight appointment lifecycle notification.
type Event struct {
	Type          string
	AppointmentID string
	BusinessID    string
	Status        string
	At            time.Time
}

// Handler reacts to an event. Handlers run synchronously on the publishing
// goroutine and must not block.
type Handler func(event Event)

// Bus provides in-process pub/sub.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]Handler
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[string][]Handler)}
}

// Subscribe registers a handler for an event type. An empty type receives
// every event.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event's type, then wildcard
// subscribers. A nil bus is a no-op so publishing stays optional.
func (b *Bus) Publish(event Event) {
	if b == nil {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now()
	}

	b.mu.RLock()
	handlers := append([]Handler{}, b.subscribers[event.Type]...)
	handlers = append(handlers, b.subscribers[""]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}
