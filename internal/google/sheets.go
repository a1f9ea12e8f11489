// Package google mirrors the appointment book to a Google Sheet so staff
// can see the schedule without touching the service.
package google

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"torbook/internal/model"
)

// SheetsService pushes appointment rows to a spreadsheet. Row positions are
// cached per appointment ID so updates rewrite in place.
type SheetsService struct {
	srv           *sheets.Service
	spreadsheetID string
	sheetName     string
	logger        zerolog.Logger

	mu       sync.Mutex
	rowCache map[string]int
}

// NewSheetsService authenticates with a service account key file and
// returns a client bound to one spreadsheet.
func NewSheetsService(ctx context.Context, credentialsPath, spreadsheetID, sheetName string, logger zerolog.Logger) (*SheetsService, error) {
	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	conf, err := google.JWTConfigFromJSON(data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(conf.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}

	if sheetName == "" {
		sheetName = "Appointments"
	}

	return &SheetsService{
		srv:           srv,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		logger:        logger.With().Str("component", "sheets").Logger(),
		rowCache:      make(map[string]int),
	}, nil
}

var sheetHeaders = []interface{}{
	"ID", "Business", "Service", "Client", "Phone", "Date", "Start", "End", "Status",
}

// SyncAppointments rewrites the sheet with the given appointments. Cancelled
// and rejected entries are skipped; the sheet shows the live calendar.
func (s *SheetsService) SyncAppointments(ctx context.Context, appointments []model.Appointment, names func(a model.Appointment) (business, service string)) error {
	active := filterOccupying(appointments)

	values := make([][]interface{}, 0, len(active)+1)
	values = append(values, sheetHeaders)

	s.mu.Lock()
	s.rowCache = make(map[string]int, len(active))
	for i, a := range active {
		biz, svc := names(a)
		values = append(values, appointmentRowValues(&a, biz, svc))
		// Row 1 is the header.
		s.rowCache[a.ID] = i + 2
	}
	s.mu.Unlock()

	clearReq := &sheets.ClearValuesRequest{}
	if _, err := s.srv.Spreadsheets.Values.Clear(s.spreadsheetID, s.sheetName, clearReq).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear sheet: %w", err)
	}

	vr := &sheets.ValueRange{Values: values}
	_, err := s.srv.Spreadsheets.Values.
		Update(s.spreadsheetID, s.sheetName+"!A1", vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("write sheet: %w", err)
	}

	s.logger.Info().Int("rows", len(active)).Msg("sheet synced")
	return nil
}

// UpdateAppointment rewrites a single appointment's row in place. It reports
// false when the row cannot be patched, either because the appointment left
// the calendar or because its position is not cached; the caller should run
// a full sync then.
func (s *SheetsService) UpdateAppointment(ctx context.Context, a *model.Appointment, business, service string) (bool, error) {
	if !a.Status.OccupiesCalendar() {
		// The row has to disappear, which a single-cell patch cannot do.
		s.deleteCachedRow(a.ID)
		return false, nil
	}

	row, ok := s.getCachedRow(a.ID)
	if !ok {
		return false, nil
	}

	vr := &sheets.ValueRange{Values: [][]interface{}{appointmentRowValues(a, business, service)}}
	rangeRef := fmt.Sprintf("%s!A%d", s.sheetName, row)
	_, err := s.srv.Spreadsheets.Values.
		Update(s.spreadsheetID, rangeRef, vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return false, fmt.Errorf("update row %d: %w", row, err)
	}

	s.logger.Debug().Str("appointment_id", a.ID).Int("row", row).Msg("sheet row updated")
	return true, nil
}

func appointmentRowValues(a *model.Appointment, business, service string) []interface{} {
	client := a.ClientID
	phone := ""
	if a.IsGuest() {
		client = a.GuestName
		phone = a.GuestPhone
	}
	return []interface{}{
		a.ID,
		business,
		service,
		client,
		phone,
		a.StartTime.Format("2006-01-02"),
		a.StartTime.Format("15:04"),
		a.EndTime.Format("15:04"),
		string(a.Status),
	}
}

func filterOccupying(appointments []model.Appointment) []model.Appointment {
	out := make([]model.Appointment, 0, len(appointments))
	for _, a := range appointments {
		if a.Status.OccupiesCalendar() {
			out = append(out, a)
		}
	}
	return out
}

func (s *SheetsService) getCachedRow(id string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rowCache[id]
	return row, ok
}

func (s *SheetsService) deleteCachedRow(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rowCache, id)
}
