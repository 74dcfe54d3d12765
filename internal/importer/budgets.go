package importer

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"childcare/internal/core"
	"childcare/internal/log"
)

var monthColumns = [12]string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}

// ImportBudgets reads rows of centre, category, year, account_code,
// monthly_budget and optional jan..dec overrides. A blank month column
// keeps the monthly default. Header names are case-insensitive.
func (im *Importer) ImportBudgets(ctx context.Context, r io.Reader) (Result, error) {
	var res Result
	err := readRows(r, foldHeader, func(rw row) error {
		line, reason := parseBudgetRow(rw)
		if reason != "" {
			res.Skipped++
			im.skip(ctx, "budget", rw.line, reason)
			return nil
		}

		centre, err := im.repo.EnsureCentre(ctx, core.Centre{Name: rw.get("centre", "centrename")})
		if err != nil {
			if isRowError(err) {
				res.Skipped++
				im.skip(ctx, "budget", rw.line, err)
				return nil
			}
			return fmt.Errorf("line %d: ensure centre: %w", rw.line, err)
		}
		line.CentreID = centre.ID

		if _, err := im.repo.UpsertBudget(ctx, line); err != nil {
			if isRowError(err) {
				res.Skipped++
				im.skip(ctx, "budget", rw.line, err)
				return nil
			}
			return fmt.Errorf("line %d: save budget: %w", rw.line, err)
		}
		res.Imported++
		return nil
	})
	if err != nil {
		return res, err
	}

	im.logger.InfoContext(ctx, "Budget import finished",
		log.FieldOperation, log.OpImport,
		"imported", res.Imported,
		"skipped", res.Skipped)
	return res, nil
}

// parseBudgetRow returns the line without its centre id, or a skip reason.
func parseBudgetRow(rw row) (core.BudgetLine, string) {
	if rw.get("centre", "centrename") == "" {
		return core.BudgetLine{}, "missing centre"
	}
	category := core.Category(rw.get("category"))
	if !category.Valid() {
		return core.BudgetLine{}, fmt.Sprintf("unknown category %q", category)
	}
	year, err := strconv.Atoi(rw.get("year"))
	if err != nil {
		return core.BudgetLine{}, fmt.Sprintf("invalid year %q", rw.get("year"))
	}

	line := core.BudgetLine{
		Category:    category,
		Year:        year,
		AccountCode: rw.get("account_code", "accountcode", "xero_account_code"),
	}
	if s := rw.get("monthly_budget", "monthlybudget"); s != "" {
		d, err := core.ParseCurrency(s)
		if err != nil {
			return core.BudgetLine{}, fmt.Sprintf("invalid monthly_budget %q", s)
		}
		line.MonthlyBudget = d
	}
	for i, col := range monthColumns {
		s := rw.get(col)
		if s == "" {
			continue
		}
		d, err := core.ParseCurrency(s)
		if err != nil {
			return core.BudgetLine{}, fmt.Sprintf("invalid %s %q", col, s)
		}
		line.Overrides[i] = decimalPtr(d)
	}
	return line, ""
}

func foldHeader(h string) string {
	return strings.ToLower(strings.TrimPrefix(h, "\ufeff"))
}

func decimalPtr(d decimal.Decimal) *decimal.Decimal { return &d }
