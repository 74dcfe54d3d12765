package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"childcare/internal/log"
	"childcare/internal/sheets"
)

var ErrExportNotConfigured = errors.New("export not configured")

// ExportService writes budget-vs-actuals tables through an exporter.
type ExportService struct {
	actuals  *ActualsService
	exporter sheets.ActualsExporter
}

// NewExportService returns a service that reports ErrExportNotConfigured
// when exporter is nil.
func NewExportService(actuals *ActualsService, exporter sheets.ActualsExporter) *ExportService {
	return &ExportService{actuals: actuals, exporter: exporter}
}

func (s *ExportService) Enabled() bool {
	return s != nil && s.exporter != nil
}

// Export reconciles year and writes one row per budget line with an
// account code.
func (s *ExportService) Export(ctx context.Context, year int) (string, error) {
	if !s.Enabled() {
		return "", ErrExportNotConfigured
	}
	year = s.actuals.ResolveYear(year)

	pairs, err := s.actuals.BudgetVsActuals(ctx, year)
	if err != nil {
		return "", err
	}

	rows := make([]sheets.ActualsRow, 0, len(pairs))
	for _, p := range pairs {
		rows = append(rows, sheets.ActualsRow{
			Centre:      p.Line.CentreName,
			Category:    string(p.Line.Category),
			AccountCode: p.Line.AccountCode,
			Budget:      p.Line.Monthly(),
			Actual:      p.Actual,
		})
	}

	ref, err := s.exporter.ExportActuals(ctx, year, rows)
	if err != nil {
		return "", fmt.Errorf("export actuals: %w", err)
	}
	slog.InfoContext(ctx, "Budget vs actuals exported",
		log.FieldComponent, log.ComponentSheets,
		"year", year,
		"rows", len(rows),
		"range", ref)
	return ref, nil
}
