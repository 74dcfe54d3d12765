package http

import (
	"errors"
	"net/http"
	"strings"

	"childcare/internal/core"
	"childcare/internal/services"
	"childcare/internal/store"
)

type occupancyResponse struct {
	ID          int64  `json:"id"`
	CentreName  string `json:"centre_name"`
	DiscoverAPI string `json:"discover_api"`
	MonthYear   string `json:"month_year"`
	U2          int    `json:"u2"`
	O2          int    `json:"o2"`
	Total       int    `json:"total"`
}

type centreResponse struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	APIID         string `json:"api_id"`
	MOENumber     string `json:"moe_number"`
	U2Licensed    int    `json:"u2_licensed"`
	TotalLicensed int    `json:"total_licensed"`
	NZBN          string `json:"nzbn"`
}

type budgetResponse struct {
	ID              int64      `json:"id"`
	CentreName      string     `json:"centre_name"`
	Category        string     `json:"category"`
	Year            int        `json:"year"`
	XeroAccountCode string     `json:"xero_account_code"`
	MonthlyBudget   string     `json:"monthly_budget"`
	Months          [12]string `json:"months"`
}

func (s *Server) handleOccupancy(w http.ResponseWriter, r *http.Request) {
	rows, err := s.deps.Occupancy.ByMonth(r.Context(), r.URL.Query().Get("month_year"))
	if errors.Is(err, services.ErrMissingMonthYear) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Occupancy lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load occupancy")
		return
	}

	out := make([]occupancyResponse, 0, len(rows))
	for _, o := range rows {
		out = append(out, occupancyResponse{
			ID:          o.ID,
			CentreName:  o.CentreName,
			DiscoverAPI: o.DiscoverAPI,
			MonthYear:   o.MonthYear,
			U2:          o.U2,
			O2:          o.O2,
			Total:       o.Total,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleOverdueInvoices(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Overdue.List(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Overdue invoice listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load overdue invoices")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCentres(w http.ResponseWriter, r *http.Request) {
	centres, err := s.deps.Store.ListCentres(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Centre listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load centres")
		return
	}
	out := make([]centreResponse, 0, len(centres))
	for _, c := range centres {
		out = append(out, centreResponse{
			ID:            c.ID,
			Name:          c.Name,
			APIID:         c.APIID,
			MOENumber:     c.MOENumber,
			U2Licensed:    c.U2Licensed,
			TotalLicensed: c.TotalLicensed,
			NZBN:          c.NZBN,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBudgets(w http.ResponseWriter, r *http.Request) {
	year, err := queryYear(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter := store.BudgetFilter{
		CentreName: strings.TrimSpace(r.URL.Query().Get("centre")),
		Year:       year,
	}
	lines, err := s.deps.Store.ListBudgets(r.Context(), filter)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Budget listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load budgets")
		return
	}

	out := make([]budgetResponse, 0, len(lines))
	for _, l := range lines {
		out = append(out, newBudgetResponse(l))
	}
	writeJSON(w, http.StatusOK, out)
}

func newBudgetResponse(l core.BudgetLine) budgetResponse {
	resp := budgetResponse{
		ID:              l.ID,
		CentreName:      l.CentreName,
		Category:        string(l.Category),
		Year:            l.Year,
		XeroAccountCode: l.AccountCode,
		MonthlyBudget:   core.FormatAmount(l.MonthlyBudget),
	}
	for i, amount := range l.Monthly() {
		resp.Months[i] = core.FormatAmount(amount)
	}
	return resp
}
