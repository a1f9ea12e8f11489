// Package api exposes the scheduling engine over HTTP JSON endpoints.
package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"torbook/internal/booking"
	"torbook/internal/db"
)

// HTTPServer serves the booking API.
type HTTPServer struct {
	booking    *booking.Service
	db         *db.DB
	sessions   *booking.SessionStore
	invalidate func(ctx context.Context, businessID string)
	logger     zerolog.Logger
	apiKey     string

	server *http.Server

	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter
	rateLimit rate.Limit
	rateBurst int
}

// Options configures the HTTP server.
type Options struct {
	Address       string
	APIKey        string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	RatePerSecond float64
	RateBurst     int
	SessionTTL    time.Duration

	// InvalidateCalendar, when set, is called after staff edit a
	// business's calendar rules.
	InvalidateCalendar func(ctx context.Context, businessID string)
}

// NewHTTPServer creates the API server. APIKey guards staff endpoints; when
// empty they are disabled.
func NewHTTPServer(bookingSvc *booking.Service, database *db.DB, opts Options, logger zerolog.Logger) *HTTPServer {
	if opts.Address == "" {
		opts.Address = ":8080"
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 10 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 30 * time.Second
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 10
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 20
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 30 * time.Minute
	}

	s := &HTTPServer{
		booking:    bookingSvc,
		db:         database,
		sessions:   booking.NewSessionStore(opts.SessionTTL),
		invalidate: opts.InvalidateCalendar,
		logger:     logger.With().Str("component", "api").Logger(),
		apiKey:     opts.APIKey,
		limiters:   make(map[string]*rate.Limiter),
		rateLimit:  rate.Limit(opts.RatePerSecond),
		rateBurst:  opts.RateBurst,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/businesses", s.handleListBusinesses)
	mux.HandleFunc("GET /api/businesses/{slug}/services", s.handleListServices)
	mux.HandleFunc("GET /api/availability", s.handleAvailability)

	mux.HandleFunc("POST /api/appointments", s.handleBook)
	mux.HandleFunc("GET /api/appointments/{id}", s.handleGetAppointment)
	mux.HandleFunc("POST /api/appointments/{id}/reschedule", s.handleReschedule)
	mux.HandleFunc("POST /api/appointments/{id}/cancel", s.handleCancel)

	mux.HandleFunc("POST /api/sessions", s.handleStartSession)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("POST /api/sessions/{id}/service", s.handleSessionService)
	mux.HandleFunc("POST /api/sessions/{id}/date", s.handleSessionDate)
	mux.HandleFunc("POST /api/sessions/{id}/slot", s.handleSessionSlot)
	mux.HandleFunc("POST /api/sessions/{id}/submit", s.handleSessionSubmit)

	mux.HandleFunc("POST /api/memberships/request", s.handleMembershipRequest)

	// Staff endpoints.
	mux.HandleFunc("POST /api/appointments/manual", s.staffOnly(s.handleManualBook))
	mux.HandleFunc("POST /api/appointments/{id}/approve", s.staffOnly(s.handleApprove))
	mux.HandleFunc("POST /api/appointments/{id}/reject", s.staffOnly(s.handleReject))
	mux.HandleFunc("POST /api/appointments/{id}/complete", s.staffOnly(s.handleComplete))
	mux.HandleFunc("POST /api/appointments/{id}/restore", s.staffOnly(s.handleRestore))
	mux.HandleFunc("POST /api/memberships/decide", s.staffOnly(s.handleMembershipDecide))
	mux.HandleFunc("GET /api/appointments", s.staffOnly(s.handleListAppointments))
	mux.HandleFunc("POST /api/appointments/{id}/notes", s.staffOnly(s.handleSetNotes))
	mux.HandleFunc("GET /api/memberships", s.staffOnly(s.handleListMemberships))
	mux.HandleFunc("GET /api/clients/{id}/appointments", s.staffOnly(s.handleClientAppointments))

	// Staff calendar and catalog administration.
	mux.HandleFunc("PUT /api/businesses/{slug}/hours", s.staffOnly(s.handleSetHours))
	mux.HandleFunc("POST /api/businesses/{slug}/breaks", s.staffOnly(s.handleAddBreak))
	mux.HandleFunc("DELETE /api/businesses/{slug}/breaks/{id}", s.staffOnly(s.handleDeleteBreak))
	mux.HandleFunc("POST /api/businesses/{slug}/closures", s.staffOnly(s.handleAddClosure))
	mux.HandleFunc("DELETE /api/businesses/{slug}/closures/{id}", s.staffOnly(s.handleDeleteClosure))
	mux.HandleFunc("POST /api/businesses/{slug}/services", s.staffOnly(s.handleCreateService))
	mux.HandleFunc("PUT /api/services/{id}", s.staffOnly(s.handleUpdateService))
	mux.HandleFunc("POST /api/services/{id}/deactivate", s.staffOnly(s.handleDeactivateService))

	s.server = &http.Server{
		Addr:         opts.Address,
		Handler:      s.rateLimited(mux),
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}

	return s
}

// Start runs the server until Shutdown is called.
func (s *HTTPServer) Start() error {
	s.logger.Info().Str("address", s.server.Addr).Msg("API server listening")
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler returns the full middleware-wrapped handler, used by tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// rateLimited applies a per-client token bucket to every request.
func (s *HTTPServer) rateLimited(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if !s.limiterFor(host).Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) limiterFor(host string) *rate.Limiter {
	s.limiterMu.Lock()
	defer s.limiterMu.Unlock()
	l, ok := s.limiters[host]
	if !ok {
		l = rate.NewLimiter(s.rateLimit, s.rateBurst)
		s.limiters[host] = l
	}
	return l
}

// staffOnly requires the X-API-Key header to match the configured key.
func (s *HTTPServer) staffOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" || r.Header.Get("X-API-Key") != s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
