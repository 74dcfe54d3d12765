package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"childcare/internal/cli"
	apphttp "childcare/internal/http"
	"childcare/internal/log"
	"childcare/internal/services"
	"childcare/internal/sheets"
	gsheet "childcare/internal/sheets/google"
	"childcare/internal/worker"
	"childcare/internal/xero"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	logger.Info("Starting childcare server",
		log.FieldOperation, log.OpStartup,
		"port", cfg.Port,
		"backend", cfg.DataBackend)

	repo := cli.OpenStore(context.Background(), logger, cfg)

	tokens := xero.NewMemoryTokenStore()
	var oauth *xero.OAuth
	if cfg.XeroConfigured() {
		oauth = xero.NewOAuth(xero.OAuthConfig{
			ClientID:     cfg.XeroClientID,
			ClientSecret: cfg.XeroClientSecret,
			RedirectURL:  cfg.XeroRedirectURI,
			Scopes:       cfg.XeroScopes,
		})
		logger.Info("Xero OAuth enabled", "redirect_uri", cfg.XeroRedirectURI)
	} else {
		logger.Warn("Xero OAuth disabled - XERO_CLIENT_ID and XERO_CLIENT_SECRET not set")
	}

	fetcher := xero.NewFetcher(cfg.XeroAPIBaseURL, cfg.XeroRequestTimeout,
		xero.WithCallsPerMinute(cfg.XeroRatePerMinute))
	actuals := services.NewActualsService(tokens, fetcher, repo, repo, cfg.ActualsYear)

	var exporter sheets.ActualsExporter
	if cfg.ExportConfigured() {
		e, err := gsheet.NewExporter(context.Background(), cfg.GoogleSpreadsheetID, cfg.GoogleActualsSheetName)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets exporter", log.FieldError, err.Error())
			os.Exit(1)
		}
		exporter = e
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}
	export := services.NewExportService(actuals, exporter)

	scheduler := worker.NewScheduler(logger)
	if cfg.ExportSchedule != "" && export.Enabled() {
		job := worker.ExportJob(export, actuals, logger.WithComponent(log.ComponentSheets))
		if err := scheduler.Add(worker.JobExportActuals, cfg.ExportSchedule, job); err != nil {
			logger.Error("Failed to schedule actuals export", log.FieldError, err.Error())
			os.Exit(1)
		}
	}
	scheduler.Start()

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Store:          repo,
		Tokens:         tokens,
		OAuth:          oauth,
		Actuals:        actuals,
		Occupancy:      services.NewOccupancyService(repo),
		Overdue:        services.NewOverdueService(repo),
		Export:         export,
		Logger:         logger.WithComponent(log.ComponentHTTP),
		RatePerMinute:  cfg.HTTPRatePerMinute,
		TrustedProxies: cfg.TrustedProxies,
	})
	srv.ReadTimeout = 10 * time.Second
	// Actuals requests wait on two upstream calls.
	srv.WriteTimeout = 2*cfg.XeroRequestTimeout + 10*time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
		scheduler.Stop(ctx)
		if err := repo.Close(); err != nil {
			logger.Error("Failed to close store", log.FieldError, err.Error())
		}
	})

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully", log.FieldOperation, log.OpShutdown)
}
