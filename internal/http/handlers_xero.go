package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"childcare/internal/log"
	"childcare/internal/services"
	"childcare/internal/store"
	"childcare/internal/xero"
)

type actualsResponse struct {
	Actuals xero.ReconciledActuals `json:"actuals"`
}

type exportResponse struct {
	Year  int    `json:"year"`
	Range string `json:"range"`
}

type xeroStatusResponse struct {
	Configured bool       `json:"configured"`
	Connected  bool       `json:"connected"`
	TenantID   string     `json:"tenant_id,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// handleXeroActuals serves GET /api/xero-actuals/?centre_id=&year=.
func (s *Server) handleXeroActuals(w http.ResponseWriter, r *http.Request) {
	s.countActuals()

	centreID := queryCentreID(r)
	year, err := queryYear(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	actuals, err := s.deps.Actuals.Actuals(r.Context(), centreID, year)
	if err != nil {
		s.writeActualsError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, actualsResponse{Actuals: actuals})
}

// handleXeroExport serves POST /api/xero-actuals/export?year=.
func (s *Server) handleXeroExport(w http.ResponseWriter, r *http.Request) {
	if !s.deps.Export.Enabled() {
		writeError(w, http.StatusServiceUnavailable, services.ErrExportNotConfigured.Error())
		return
	}
	year, err := queryYear(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	year = s.deps.Actuals.ResolveYear(year)

	ref, err := s.deps.Export.Export(r.Context(), year)
	if err != nil {
		s.writeActualsError(w, r, err)
		return
	}
	s.countExport()
	writeJSON(w, http.StatusOK, exportResponse{Year: year, Range: ref})
}

// writeActualsError maps reconciliation failures to status codes: 401 with
// no Xero connection, 404 for an unknown centre, 400 when Xero rejects or
// never answers a report request, 500 for a malformed report.
func (s *Server) writeActualsError(w http.ResponseWriter, r *http.Request, err error) {
	var upstream *xero.UpstreamError
	var parse *xero.ParseError

	switch {
	case errors.Is(err, xero.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "Not authenticated with Xero")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Centre not found")
	case errors.As(err, &upstream):
		s.countUpstream()
		s.structured.LogUpstreamFailure(r.Context(), string(upstream.Stage), upstream.StatusCode, err)
		writeError(w, http.StatusBadRequest, upstream.Error())
	case errors.As(err, &parse):
		s.countParse()
		s.structured.LogError(r.Context(), "Xero report could not be parsed", err, log.OpReconcile,
			log.NewFields().WithUpstream(string(parse.Stage), 0))
		writeError(w, http.StatusInternalServerError, "Parse error: "+parse.Error())
	default:
		s.structured.LogError(r.Context(), "Xero actuals failed", err, log.OpReconcile, nil)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) handleXeroLogin(w http.ResponseWriter, r *http.Request) {
	if s.deps.OAuth == nil {
		writeError(w, http.StatusServiceUnavailable, "Xero OAuth not configured")
		return
	}
	http.Redirect(w, r, s.deps.OAuth.AuthCodeURL(), http.StatusFound)
}

func (s *Server) handleXeroCallback(w http.ResponseWriter, r *http.Request) {
	if s.deps.OAuth == nil {
		writeError(w, http.StatusServiceUnavailable, "Xero OAuth not configured")
		return
	}
	q := r.URL.Query()
	conn, err := s.deps.OAuth.Exchange(r.Context(), q.Get("state"), q.Get("code"))
	if err != nil {
		s.logger.WarnContext(r.Context(), "Xero callback rejected", "error", err)
		msg := err.Error()
		if errors.Is(err, xero.ErrMissingCode) {
			msg = "Missing code parameter"
		}
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	s.deps.Tokens.Set(conn.AccessToken, conn.TenantID, conn.Expiry)
	s.logger.InfoContext(r.Context(), "Xero connected",
		log.FieldTenantID, conn.TenantID,
		"tenant_name", conn.TenantName)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, "Xero connected! You can now fetch actuals from the API.")
}

func (s *Server) handleXeroLogout(w http.ResponseWriter, r *http.Request) {
	s.deps.Tokens.Clear()
	s.logger.InfoContext(r.Context(), "Xero disconnected")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleXeroStatus(w http.ResponseWriter, r *http.Request) {
	connected, tenant, expires := s.deps.Tokens.Status()
	resp := xeroStatusResponse{
		Configured: s.deps.OAuth != nil,
		Connected:  connected,
		TenantID:   tenant,
	}
	if connected && !expires.IsZero() {
		resp.ExpiresAt = &expires
	}
	writeJSON(w, http.StatusOK, resp)
}
