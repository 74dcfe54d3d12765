package store

import (
	"context"
	"errors"

	"childcare/internal/core"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// BudgetFilter selects budget lines. Zero values match everything.
type BudgetFilter struct {
	CentreID   *int64
	CentreName string
	Year       int
}

// Ports for persistence adapters.
type (
	CentreReader interface {
		ListCentres(ctx context.Context) ([]core.Centre, error)
		// GetCentre returns ErrNotFound for an unknown id.
		GetCentre(ctx context.Context, id int64) (core.Centre, error)
	}

	CentreWriter interface {
		// EnsureCentre returns the centre with c.Name, creating it when
		// missing. Non-empty fields of c overwrite the stored ones.
		EnsureCentre(ctx context.Context, c core.Centre) (core.Centre, error)
		SetOverdueInvoiceAmount(ctx context.Context, centreID int64, amount string) error
	}

	OccupancyReader interface {
		// ListOccupancy returns the rows whose month_year equals monthYear
		// exactly.
		ListOccupancy(ctx context.Context, monthYear string) ([]core.Occupancy, error)
	}

	OccupancyWriter interface {
		// UpsertOccupancy inserts or replaces the row for (centre, month_year).
		UpsertOccupancy(ctx context.Context, o core.Occupancy) (core.Occupancy, error)
	}

	BudgetLister interface {
		// ListBudgets returns lines ordered by category, year and centre.
		ListBudgets(ctx context.Context, f BudgetFilter) ([]core.BudgetLine, error)
	}

	BudgetWriter interface {
		// UpsertBudget inserts or replaces the line for (centre, category, year).
		UpsertBudget(ctx context.Context, b core.BudgetLine) (core.BudgetLine, error)
	}

	Pinger interface {
		Ping(ctx context.Context) error
	}

	// Repository is the full persistence surface used by the binaries.
	Repository interface {
		CentreReader
		CentreWriter
		OccupancyReader
		OccupancyWriter
		BudgetLister
		BudgetWriter
		Pinger
		Close() error
	}
)
