// Package audit produces monthly appointment reports as Excel workbooks.
package audit

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"torbook/internal/model"
)

// AppointmentSource provides the data the exporter reads.
type AppointmentSource interface {
	ListActiveBusinesses(ctx context.Context) ([]model.Business, error)
	ListAppointmentsRange(ctx context.Context, businessID string, from, to time.Time) ([]model.Appointment, error)
	GetService(ctx context.Context, id string) (*model.Service, error)
}

// Config holds exporter settings.
type Config struct {
	// OutputDir is where workbooks are written.
	OutputDir string

	// ExportOnStart runs an export for the previous month immediately.
	ExportOnStart bool
}

// Exporter writes one workbook per month with a sheet per business.
type Exporter struct {
	config Config
	source AppointmentSource
	logger zerolog.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
	run    bool
}

// NewExporter creates a monthly report exporter.
func NewExporter(config Config, source AppointmentSource, logger zerolog.Logger) *Exporter {
	if config.OutputDir == "" {
		config.OutputDir = "."
	}
	return &Exporter{
		config: config,
		source: source,
		logger: logger.With().Str("component", "audit").Logger(),
		stopCh: make(chan struct{}),
	}
}

// Filename returns the workbook name for a month, e.g. "appointments_2026-02.xlsx".
func Filename(month time.Time) string {
	return fmt.Sprintf("appointments_%s.xlsx", month.Format("2006-01"))
}

var reportColumns = []interface{}{
	"ID", "Service", "Client", "Phone", "Start", "End", "Status", "Staff notes",
}

// report accumulates one sheet of appointment rows per business.
type report struct {
	file        *excelize.File
	headerStyle int
	sheets      int
}

func newReport() (*report, error) {
	f := excelize.NewFile()
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	return &report{file: f, headerStyle: style}, nil
}

// addBusinessSheet writes the header and all appointment rows for one
// business. The first business reuses the workbook's default sheet.
func (r *report) addBusinessSheet(business string, rows [][]interface{}) error {
	name := sheetName(business)
	if r.sheets == 0 {
		r.file.SetSheetName("Sheet1", name)
	} else if _, err := r.file.NewSheet(name); err != nil {
		return fmt.Errorf("sheet %s: %w", name, err)
	}
	r.sheets++

	if err := r.file.SetSheetRow(name, "A1", &reportColumns); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(reportColumns), 1)
	if err := r.file.SetCellStyle(name, "A1", last, r.headerStyle); err != nil {
		return err
	}

	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := r.file.SetSheetRow(name, cell, &rows[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *report) save(path string) error {
	return r.file.SaveAs(path)
}

func (r *report) close() error {
	return r.file.Close()
}

// sheetName trims a business name to Excel's 31 character sheet limit.
func sheetName(business string) string {
	if len(business) > 31 {
		return business[:31]
	}
	return business
}

// ExportMonth writes the report for the month containing t and returns the
// file path.
func (e *Exporter) ExportMonth(ctx context.Context, t time.Time) (string, error) {
	monthStart := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	monthEnd := monthStart.AddDate(0, 1, 0)

	businesses, err := e.source.ListActiveBusinesses(ctx)
	if err != nil {
		return "", fmt.Errorf("list businesses: %w", err)
	}

	rep, err := newReport()
	if err != nil {
		return "", err
	}
	defer rep.close()

	for _, biz := range businesses {
		appointments, err := e.source.ListAppointmentsRange(ctx, biz.ID, monthStart, monthEnd)
		if err != nil {
			return "", fmt.Errorf("list appointments for %s: %w", biz.ID, err)
		}

		rows := make([][]interface{}, 0, len(appointments))
		for _, a := range appointments {
			rows = append(rows, e.reportRow(ctx, a))
		}
		if err := rep.addBusinessSheet(biz.Name, rows); err != nil {
			return "", err
		}
	}

	path := filepath.Join(e.config.OutputDir, Filename(monthStart))
	if err := rep.save(path); err != nil {
		return "", fmt.Errorf("save report: %w", err)
	}

	e.logger.Info().Str("path", path).Int("businesses", len(businesses)).Msg("monthly report written")
	return path, nil
}

func (e *Exporter) reportRow(ctx context.Context, a model.Appointment) []interface{} {
	serviceName := a.ServiceID
	if svc, err := e.source.GetService(ctx, a.ServiceID); err == nil && svc != nil {
		serviceName = svc.Name
	}

	client := a.ClientID
	if a.IsGuest() {
		client = a.GuestName + " (guest)"
	}

	return []interface{}{
		a.ID,
		serviceName,
		client,
		a.GuestPhone,
		a.StartTime.Format("2006-01-02 15:04"),
		a.EndTime.Format("15:04"),
		string(a.Status),
		a.StaffNotes,
	}
}

// Start schedules an export for the previous month at each month boundary.
func (e *Exporter) Start() {
	e.mu.Lock()
	if e.run {
		e.mu.Unlock()
		return
	}
	e.run = true
	e.mu.Unlock()

	if e.config.ExportOnStart {
		go e.exportPrevious()
	}

	e.wg.Add(1)
	go e.loop()
}

// Stop waits for the scheduler to exit.
func (e *Exporter) Stop() {
	e.mu.Lock()
	if !e.run {
		e.mu.Unlock()
		return
	}
	e.run = false
	e.mu.Unlock()

	close(e.stopCh)
	e.wg.Wait()
}

func (e *Exporter) loop() {
	defer e.wg.Done()

	for {
		next := nextFirstOfMonth(time.Now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-e.stopCh:
			timer.Stop()
			return
		case <-timer.C:
			e.exportPrevious()
		}
	}
}

func (e *Exporter) exportPrevious() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if _, err := e.ExportMonth(ctx, time.Now().AddDate(0, -1, 0)); err != nil {
		e.logger.Error().Err(err).Msg("monthly export failed")
	}
}

func nextFirstOfMonth(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, 1, 0)
}
