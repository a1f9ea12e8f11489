// Package reminders sends next-day appointment notices through a pluggable
// sender, once per day at a configured local time.
package reminders

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"torbook/internal/model"
)

// Store provides the appointment reads the scheduler needs.
type Store interface {
	ListActiveBusinesses(ctx context.Context) ([]model.Business, error)
	ListAppointmentsRange(ctx context.Context, businessID string, from, to time.Time) ([]model.Appointment, error)
	GetService(ctx context.Context, id string) (*model.Service, error)
}

// Sender delivers one reminder. Implementations decide the channel.
type Sender interface {
	Send(ctx context.Context, a model.Appointment, serviceName string) error
}

// Config holds scheduler settings.
type Config struct {
	// Timezone for scheduling, e.g. "Asia/Jerusalem".
	Timezone string
	// DailyHour is the local hour (0-23) reminders go out.
	DailyHour int
	// CheckInterval is how often the scheduler checks the clock.
	CheckInterval time.Duration
	// RatePerSecond throttles outgoing sends.
	RatePerSecond float64
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() Config {
	return Config{
		Timezone:      "UTC",
		DailyHour:     9,
		CheckInterval: time.Minute,
		RatePerSecond: 10,
	}
}

// Scheduler sends reminders for tomorrow's confirmed appointments once per
// day. A date guard keeps restarts within the same day from re-sending.
type Scheduler struct {
	config   Config
	store    Store
	sender   Sender
	limiter  *rate.Limiter
	location *time.Location
	logger   zerolog.Logger

	mu          sync.Mutex
	lastRunDate string // YYYY-MM-DD of last completed run
	running     bool
	stopCh      chan struct{}
	wg          sync.WaitGroup
}

// NewScheduler creates a reminder scheduler.
func NewScheduler(config Config, store Store, sender Sender, logger zerolog.Logger) (*Scheduler, error) {
	if config.Timezone == "" {
		config.Timezone = "UTC"
	}
	loc, err := time.LoadLocation(config.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}
	if config.RatePerSecond <= 0 {
		config.RatePerSecond = 10
	}

	return &Scheduler{
		config:   config,
		store:    store,
		sender:   sender,
		limiter:  rate.NewLimiter(rate.Limit(config.RatePerSecond), 1),
		location: loc,
		logger:   logger.With().Str("component", "reminders").Logger(),
		stopCh:   make(chan struct{}),
	}, nil
}

// Start runs the scheduler loop.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop()
	s.logger.Info().Int("hour", s.config.DailyHour).Msg("reminder scheduler started")
}

// Stop waits for the loop to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			now := time.Now().In(s.location)
			if s.shouldRun(now) {
				s.runOnce(now)
			}
		}
	}
}

// shouldRun reports whether the daily send is due and not yet done today.
func (s *Scheduler) shouldRun(now time.Time) bool {
	if now.Hour() < s.config.DailyHour {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRunDate != now.Format("2006-01-02")
}

func (s *Scheduler) runOnce(now time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	sent, failed := s.SendTomorrowReminders(ctx, now)

	s.mu.Lock()
	s.lastRunDate = now.Format("2006-01-02")
	s.mu.Unlock()

	s.logger.Info().Int("sent", sent).Int("failed", failed).Msg("daily reminders processed")
}

// SendTomorrowReminders sends a notice for every confirmed appointment
// happening the day after now. Returns sent and failed counts.
func (s *Scheduler) SendTomorrowReminders(ctx context.Context, now time.Time) (sent, failed int) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location).AddDate(0, 0, 1)
	dayEnd := dayStart.AddDate(0, 0, 1)

	businesses, err := s.store.ListActiveBusinesses(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("list businesses")
		return 0, 0
	}

	for _, biz := range businesses {
		appointments, err := s.store.ListAppointmentsRange(ctx, biz.ID, dayStart, dayEnd)
		if err != nil {
			s.logger.Error().Err(err).Str("business_id", biz.ID).Msg("list appointments")
			continue
		}

		for _, a := range appointments {
			if a.Status != model.StatusConfirmed {
				continue
			}
			if err := s.limiter.Wait(ctx); err != nil {
				return sent, failed
			}

			serviceName := a.ServiceID
			if svc, err := s.store.GetService(ctx, a.ServiceID); err == nil && svc != nil {
				serviceName = svc.Name
			}

			if err := s.sender.Send(ctx, a, serviceName); err != nil {
				failed++
				s.logger.Error().Err(err).Str("appointment_id", a.ID).Msg("send reminder")
				continue
			}
			sent++
		}
	}
	return sent, failed
}

// LogSender writes reminders to the log. Used when no delivery channel is
// configured.
type LogSender struct {
	Logger zerolog.Logger
}

func (l *LogSender) Send(_ context.Context, a model.Appointment, serviceName string) error {
	l.Logger.Info().
		Str("appointment_id", a.ID).
		Str("service", serviceName).
		Time("start", a.StartTime).
		Msg("reminder due")
	return nil
}
