package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"torbook/internal/api"
	"torbook/internal/audit"
	"torbook/internal/booking"
	"torbook/internal/calendar"
	"torbook/internal/config"
	"torbook/internal/db"
	"torbook/internal/events"
	"torbook/internal/google"
	"torbook/internal/metrics"
	"torbook/internal/model"
	"torbook/internal/reminders"
)

func main() {
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("TORBOOK_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	database, err := db.NewDB(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	cachedCalendar := calendar.NewCachedLoader(calendar.NewLoader(database), rdb, cfg.CacheTTL())

	// Seed businesses from config and keep watching the file.
	err = config.WatchBusinesses(ctx, os.Getenv("TORBOOK_BUSINESSES_PATH"), 30*time.Second, func(bc *config.BusinessesConfig) {
		syncCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := database.SyncBusinessesFromConfig(syncCtx, bc); err != nil {
			logger.Error().Err(err).Msg("business config sync failed")
			return
		}
		for _, biz := range bc.Businesses {
			if b, err := database.GetBusinessBySlug(syncCtx, biz.Slug); err == nil && b != nil {
				cachedCalendar.Invalidate(syncCtx, b.ID)
			}
		}
		logger.Info().Int("businesses", len(bc.Businesses)).Msg("business config synced")
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("load businesses config")
	}

	m := metrics.NewMetrics("torbook")
	bus := events.NewBus()
	guard := booking.NewGuard(database, m, logger)
	bookingSvc := booking.NewService(database, cachedCalendar, guard, m, logger).WithBus(bus)

	if cfg.Audit.Enabled {
		exporter := audit.NewExporter(audit.Config{
			OutputDir:     cfg.Audit.OutputDir,
			ExportOnStart: cfg.Audit.ExportOnStart,
		}, database, logger)
		exporter.Start()
		defer exporter.Stop()
	}

	if cfg.Sheets.Enabled {
		// Lifecycle events drive the sheet: status changes patch the row in
		// place, everything else triggers a resync ahead of the ticker. A
		// full channel is fine to drop on; the ticker reconciles.
		evts := make(chan events.Event, 16)
		bus.Subscribe("", func(e events.Event) {
			select {
			case evts <- e:
			default:
			}
		})
		go runSheetsSync(ctx, cfg, database, evts, logger)
	}

	if cfg.Reminders.Enabled {
		remCfg := reminders.DefaultConfig()
		if cfg.Reminders.Timezone != "" {
			remCfg.Timezone = cfg.Reminders.Timezone
		}
		if cfg.Reminders.DailyHour > 0 {
			remCfg.DailyHour = cfg.Reminders.DailyHour
		}
		scheduler, err := reminders.NewScheduler(remCfg, database, &reminders.LogSender{Logger: logger}, logger)
		if err != nil {
			logger.Error().Err(err).Msg("reminders disabled: bad config")
		} else {
			scheduler.Start()
			defer scheduler.Stop()
		}
	}

	if cfg.Backup.Enabled {
		go runBackups(ctx, cfg, database, logger)
	}

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, database, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	server := api.NewHTTPServer(bookingSvc, database, api.Options{
		Address:       cfg.Server.Address,
		APIKey:        os.Getenv("TORBOOK_API_KEY"),
		ReadTimeout:   time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:  time.Duration(cfg.Server.WriteTimeout) * time.Second,
		RatePerSecond: cfg.Server.RateLimit.PerSecond,
		RateBurst:     cfg.Server.RateLimit.Burst,
		SessionTTL:    cfg.SessionTTL(),
		InvalidateCalendar: func(ctx context.Context, businessID string) {
			cachedCalendar.Invalidate(ctx, businessID)
		},
	}, logger)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info().Msg("scheduling engine started")
	if err := server.Start(); err != nil {
		logger.Fatal().Err(err).Msg("API server error")
	}
}

func runSheetsSync(ctx context.Context, cfg *config.Config, database *db.DB, evts <-chan events.Event, logger zerolog.Logger) {
	sheetsSvc, err := google.NewSheetsService(ctx, cfg.Sheets.CredentialsPath, cfg.Sheets.SpreadsheetID, cfg.Sheets.SheetName, logger)
	if err != nil {
		logger.Error().Err(err).Msg("sheets disabled: client init failed")
		return
	}

	ticker := time.NewTicker(cfg.SheetsSyncInterval())
	defer ticker.Stop()

	sync := func() {
		syncCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()

		businesses, err := database.ListActiveBusinesses(syncCtx)
		if err != nil {
			logger.Error().Err(err).Msg("sheets sync: list businesses")
			return
		}

		bizNames := make(map[string]string, len(businesses))
		var all []model.Appointment
		from := time.Now().AddDate(0, 0, -7)
		to := time.Now().AddDate(0, 1, 0)
		for _, biz := range businesses {
			bizNames[biz.ID] = biz.Name
			appointments, err := database.ListAppointmentsRange(syncCtx, biz.ID, from, to)
			if err != nil {
				logger.Error().Err(err).Str("business_id", biz.ID).Msg("sheets sync: list appointments")
				continue
			}
			all = append(all, appointments...)
		}

		names := func(a model.Appointment) (string, string) {
			serviceName := a.ServiceID
			if svc, err := database.GetService(syncCtx, a.ServiceID); err == nil && svc != nil {
				serviceName = svc.Name
			}
			return bizNames[a.BusinessID], serviceName
		}
		if err := sheetsSvc.SyncAppointments(syncCtx, all, names); err != nil {
			logger.Error().Err(err).Msg("sheets sync failed")
		}
	}

	// patchRow rewrites one appointment's row after a status change. Falls
	// back to a full sync when the row cannot be patched in place.
	patchRow := func(appointmentID string) {
		upCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		a, err := database.GetAppointment(upCtx, appointmentID)
		if err != nil || a == nil {
			sync()
			return
		}
		bizName := a.BusinessID
		if biz, err := database.GetBusiness(upCtx, a.BusinessID); err == nil && biz != nil {
			bizName = biz.Name
		}
		svcName := a.ServiceID
		if svc, err := database.GetService(upCtx, a.ServiceID); err == nil && svc != nil {
			svcName = svc.Name
		}

		updated, err := sheetsSvc.UpdateAppointment(upCtx, a, bizName, svcName)
		if err != nil {
			logger.Error().Err(err).Str("appointment_id", appointmentID).Msg("sheet row update failed")
			return
		}
		if !updated {
			sync()
		}
	}

	sync()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sync()
		case e := <-evts:
			switch e.Type {
			case events.TypeStatus, events.TypeRescheduled:
				patchRow(e.AppointmentID)
			default:
				sync()
			}
		}
	}
}

func runBackups(ctx context.Context, cfg *config.Config, database *db.DB, logger zerolog.Logger) {
	interval := time.Duration(cfg.Backup.IntervalHours) * time.Hour
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := database.Backup(cfg.Backup.Path); err != nil {
				logger.Error().Err(err).Msg("backup failed")
				continue
			}
			retention := time.Duration(cfg.Backup.RetentionDays) * 24 * time.Hour
			removed, err := database.CleanupBackups(cfg.Backup.Path, retention)
			if err != nil {
				logger.Error().Err(err).Msg("backup cleanup failed")
			}
			logger.Info().Int("removed", removed).Msg("backup completed")
		}
	}
}

func startHealthServer(ctx context.Context, port int, database *db.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := database.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
