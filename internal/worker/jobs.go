package worker

import (
	"context"
	"fmt"

	"childcare/internal/log"
	"childcare/internal/scraper"
	"childcare/internal/services"
	"childcare/internal/store"
)

const (
	JobScrapeOverdue = "scrape-overdue-invoices"
	JobExportActuals = "export-actuals"
)

// ScrapeJob scrapes every stored centre and publishes the amounts.
func ScrapeJob(centres store.CentreReader, runner *scraper.Runner) Job {
	return func(ctx context.Context) error {
		list, err := centres.ListCentres(ctx)
		if err != nil {
			return fmt.Errorf("list centres: %w", err)
		}
		_, err = runner.Run(ctx, list)
		return err
	}
}

// ExportJob writes the actuals of the resolved year to the spreadsheet.
func ExportJob(export *services.ExportService, actuals *services.ActualsService, logger *log.Logger) Job {
	return func(ctx context.Context) error {
		year := actuals.ResolveYear(0)
		ref, err := export.Export(ctx, year)
		if err != nil {
			return fmt.Errorf("export actuals %d: %w", year, err)
		}
		if logger != nil {
			logger.InfoContext(ctx, "Actuals exported",
				log.FieldOperation, log.OpExport,
				log.FieldYear, year,
				log.FieldSheetsRef, ref)
		}
		return nil
	}
}
