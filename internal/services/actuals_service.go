package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"childcare/internal/core"
	"childcare/internal/log"
	"childcare/internal/store"
	"childcare/internal/xero"
)

// ReportFetcher retrieves the two raw ProfitAndLoss documents for a year.
type ReportFetcher interface {
	Fetch(ctx context.Context, accessToken, tenantID string, year int) (*xero.Documents, error)
}

// BudgetActuals pairs a budget line with the actuals of its account.
type BudgetActuals struct {
	Line   core.BudgetLine
	Actual xero.MonthlySeries
}

// ActualsService reconciles Xero ProfitAndLoss actuals against stored
// budget lines. Every call fetches and reconciles from scratch.
type ActualsService struct {
	tokens      xero.TokenProvider
	fetcher     ReportFetcher
	centres     store.CentreReader
	budgets     store.BudgetLister
	defaultYear int
	now         func() time.Time
}

func NewActualsService(tokens xero.TokenProvider, fetcher ReportFetcher, centres store.CentreReader, budgets store.BudgetLister, defaultYear int) *ActualsService {
	return &ActualsService{
		tokens:      tokens,
		fetcher:     fetcher,
		centres:     centres,
		budgets:     budgets,
		defaultYear: defaultYear,
		now:         time.Now,
	}
}

// ResolveYear returns year when set, otherwise the configured default,
// otherwise the current calendar year.
func (s *ActualsService) ResolveYear(year int) int {
	switch {
	case year > 0:
		return year
	case s.defaultYear > 0:
		return s.defaultYear
	default:
		return s.now().Year()
	}
}

// Actuals returns the twelve-month actuals for every account code used by
// the budget lines of year, optionally restricted to one centre.
//
// Errors: xero.ErrUnauthenticated before any outbound call when no
// connection exists, store.ErrNotFound for an unknown centre,
// *xero.UpstreamError and *xero.ParseError from the report stages.
func (s *ActualsService) Actuals(ctx context.Context, centreID *int64, year int) (xero.ReconciledActuals, error) {
	year = s.ResolveYear(year)

	token, tenant, err := s.credentials()
	if err != nil {
		return nil, err
	}
	if centreID != nil {
		if _, err := s.centres.GetCentre(ctx, *centreID); err != nil {
			return nil, err
		}
	}

	actuals, err := s.reconcile(ctx, token, tenant, year)
	if err != nil {
		return nil, err
	}

	lines, err := s.budgets.ListBudgets(ctx, store.BudgetFilter{CentreID: centreID, Year: year})
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}

	mapped := xero.MapToBudgets(actuals, lines)
	slog.InfoContext(ctx, "Xero actuals reconciled",
		log.FieldComponent, log.ComponentXero,
		"year", year,
		"report_codes", len(actuals),
		"budget_codes", len(mapped))
	return mapped, nil
}

// BudgetVsActuals returns every budget line of year that carries an account
// code together with its actuals.
func (s *ActualsService) BudgetVsActuals(ctx context.Context, year int) ([]BudgetActuals, error) {
	year = s.ResolveYear(year)

	token, tenant, err := s.credentials()
	if err != nil {
		return nil, err
	}
	actuals, err := s.reconcile(ctx, token, tenant, year)
	if err != nil {
		return nil, err
	}
	lines, err := s.budgets.ListBudgets(ctx, store.BudgetFilter{Year: year})
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}

	out := make([]BudgetActuals, 0, len(lines))
	for _, line := range lines {
		code, ok := xero.LineCode(line)
		if !ok {
			continue
		}
		out = append(out, BudgetActuals{Line: line, Actual: actuals[code]})
	}
	return out, nil
}

func (s *ActualsService) credentials() (string, string, error) {
	token, ok := s.tokens.AccessToken()
	if !ok {
		return "", "", xero.ErrUnauthenticated
	}
	tenant, ok := s.tokens.TenantID()
	if !ok {
		return "", "", xero.ErrUnauthenticated
	}
	return token, tenant, nil
}

func (s *ActualsService) reconcile(ctx context.Context, token, tenant string, year int) (xero.ReconciledActuals, error) {
	docs, err := s.fetcher.Fetch(ctx, token, tenant, year)
	if err != nil {
		return nil, err
	}
	return xero.Reconcile(docs.JanNov, docs.December)
}
