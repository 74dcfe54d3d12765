package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"childcare/internal/core"
	"childcare/internal/log"
	"childcare/internal/store"
)

var ErrMissingMonthYear = errors.New("month_year parameter is required")

// OccupancyService looks up occupancy rows by month.
type OccupancyService struct {
	occupancy store.OccupancyReader
}

func NewOccupancyService(occupancy store.OccupancyReader) *OccupancyService {
	return &OccupancyService{occupancy: occupancy}
}

// ByMonth returns the rows stored under monthYear.
//
// Rows have been imported in both MM-YYYY and YYYY-MM form. When an exact
// lookup of an MM-YYYY value finds nothing, the same month is looked up
// once more as YYYY-MM. No other rewriting is attempted, and a YYYY-MM
// query is never rewritten to MM-YYYY.
func (s *OccupancyService) ByMonth(ctx context.Context, monthYear string) ([]core.Occupancy, error) {
	monthYear = strings.TrimSpace(monthYear)
	if monthYear == "" {
		return nil, ErrMissingMonthYear
	}

	rows, err := s.occupancy.ListOccupancy(ctx, monthYear)
	if err != nil {
		return nil, fmt.Errorf("list occupancy: %w", err)
	}
	if len(rows) > 0 {
		return rows, nil
	}

	alt, ok := core.SwapMonthYear(monthYear)
	if !ok {
		return rows, nil
	}
	slog.DebugContext(ctx, "No occupancy for month, retrying as YEAR-MONTH",
		log.FieldComponent, log.ComponentOccupancy,
		log.FieldMonthYear, monthYear,
		"alternate", alt)

	rows, err = s.occupancy.ListOccupancy(ctx, alt)
	if err != nil {
		return nil, fmt.Errorf("list occupancy: %w", err)
	}
	return rows, nil
}
