package booking

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Step is a stage of the booking flow.
type Step string

const (
	StepBrowsing        Step = "browsing"
	StepServiceSelected Step = "service_selected"
	StepDateSelected    Step = "date_selected"
	StepSlotSelected    Step = "slot_selected"
	StepSubmitted       Step = "submitted"
	StepCommitted       Step = "committed"
	StepRejected        Step = "rejected"
)

// Terminal reports whether no further transitions are allowed.
func (s Step) Terminal() bool {
	return s == StepCommitted || s == StepRejected
}

// Session tracks one client's progress through the booking flow.
type Session struct {
	ID         string
	BusinessID string
	ClientID   string
	GuestName  string
	GuestPhone string

	Step      Step
	ServiceID string
	Date      time.Time
	SlotStart time.Time

	AppointmentID string
	UpdatedAt     time.Time
}

// NewSession starts a browsing session for a business.
func NewSession(businessID, clientID string) *Session {
	return &Session{
		ID:         uuid.NewString(),
		BusinessID: businessID,
		ClientID:   clientID,
		Step:       StepBrowsing,
		UpdatedAt:  time.Now(),
	}
}

// SelectService picks a service and discards any later choices. Allowed from
// any non-terminal step so a client can change their mind before submitting.
func (s *Session) SelectService(serviceID string) error {
	if s.Step.Terminal() || s.Step == StepSubmitted {
		return fmt.Errorf("%w: cannot select service at step %s", ErrInvalidTransition, s.Step)
	}
	s.ServiceID = serviceID
	s.Date = time.Time{}
	s.SlotStart = time.Time{}
	s.Step = StepServiceSelected
	s.UpdatedAt = time.Now()
	return nil
}

// SelectDate picks a date. Requires a selected service.
func (s *Session) SelectDate(date time.Time) error {
	switch s.Step {
	case StepServiceSelected, StepDateSelected, StepSlotSelected:
	default:
		return fmt.Errorf("%w: cannot select date at step %s", ErrInvalidTransition, s.Step)
	}
	s.Date = date
	s.SlotStart = time.Time{}
	s.Step = StepDateSelected
	s.UpdatedAt = time.Now()
	return nil
}

// SelectSlot picks a start time on the selected date.
func (s *Session) SelectSlot(start time.Time) error {
	switch s.Step {
	case StepDateSelected, StepSlotSelected:
	default:
		return fmt.Errorf("%w: cannot select slot at step %s", ErrInvalidTransition, s.Step)
	}
	s.SlotStart = start
	s.Step = StepSlotSelected
	s.UpdatedAt = time.Now()
	return nil
}

// Submit marks the session as waiting for the commit outcome.
func (s *Session) Submit() error {
	if s.Step != StepSlotSelected {
		return fmt.Errorf("%w: cannot submit at step %s", ErrInvalidTransition, s.Step)
	}
	s.Step = StepSubmitted
	s.UpdatedAt = time.Now()
	return nil
}

// Resolve records the commit outcome. Only valid once, after Submit.
func (s *Session) Resolve(committed bool, appointmentID string) error {
	if s.Step != StepSubmitted {
		return fmt.Errorf("%w: cannot resolve at step %s", ErrInvalidTransition, s.Step)
	}
	if committed {
		s.Step = StepCommitted
		s.AppointmentID = appointmentID
	} else {
		s.Step = StepRejected
	}
	s.UpdatedAt = time.Now()
	return nil
}

// SessionStore keeps booking sessions in memory with a TTL.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
}

// NewSessionStore creates a store. Sessions idle longer than ttl are dropped
// on access and by Sweep.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
	}
}

// Put stores a snapshot of the session. The store never aliases caller
// memory, so concurrent handlers cannot race on a shared Session.
func (st *SessionStore) Put(s *Session) {
	snapshot := *s
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[s.ID] = &snapshot
}

// Get returns a copy of the session, or nil if unknown or expired. Callers
// mutate their copy and Put it back; the last write wins.
func (st *SessionStore) Get(id string) *Session {
	st.mu.RLock()
	stored, ok := st.sessions[id]
	var s Session
	if ok {
		s = *stored
	}
	st.mu.RUnlock()
	if !ok {
		return nil
	}
	if time.Since(s.UpdatedAt) > st.ttl {
		st.Delete(id)
		return nil
	}
	return &s
}

// Delete removes a session.
func (st *SessionStore) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

// Sweep removes expired sessions and returns how many were dropped.
func (st *SessionStore) Sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	dropped := 0
	for id, s := range st.sessions {
		if time.Since(s.UpdatedAt) > st.ttl {
			delete(st.sessions, id)
			dropped++
		}
	}
	return dropped
}
