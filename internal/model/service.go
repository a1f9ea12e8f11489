package model

import "time"

// Service represents a bookable service offered by a business.
// DurationMinutes is the sole driver of slot length; price has no effect
// on scheduling.
type Service struct {
	ID              string    `json:"id"`
	BusinessID      string    `json:"business_id"`
	Name            string    `json:"name"`
	DurationMinutes int       `json:"duration_minutes"`
	Price           int64     `json:"price"` // smallest currency unit, >= 0
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Duration returns the service duration.
func (s *Service) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

// HidePrice reports whether the price should be hidden from clients.
// A zero price means "free/hidden price"; this is presentation metadata
// only and never affects slot computation.
func (s *Service) HidePrice() bool {
	return s.Price == 0
}
