package sheets

import (
	"context"

	"github.com/shopspring/decimal"
)

// ActualsRow is one budget line with its budget and actual amounts per
// month, index 0 = January.
type ActualsRow struct {
	Centre      string
	Category    string
	AccountCode string
	Budget      [12]decimal.Decimal
	Actual      [12]float64
}

// Ports for outbound adapters.
type (
	// ActualsExporter writes a budget-vs-actuals table for a year.
	ActualsExporter interface {
		ExportActuals(ctx context.Context, year int, rows []ActualsRow) (rangeRef string, err error)
	}
)
