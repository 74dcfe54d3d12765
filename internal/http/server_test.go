package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"childcare/internal/core"
	"childcare/internal/log"
	"childcare/internal/services"
	sheetsmem "childcare/internal/sheets/memory"
	"childcare/internal/store/memory"
	"childcare/internal/xero"
)

const (
	testJanNov = `{"Reports":[{"Rows":[{"RowType":"Header","Cells":[{"Value":""}]},{"RowType":"Section","Title":"Expenses","Rows":[
		{"RowType":"Row","Cells":[{"Value":"Food","Attributes":[{"Name":"AccountCode","Value":"200"}]},
			{"Value":"10"},{"Value":"20"},{"Value":"30"},{"Value":"40"},{"Value":"50"},{"Value":"60"},
			{"Value":"70"},{"Value":"80"},{"Value":"90"},{"Value":"100"},{"Value":"110"}]}
	]}]}]}`
	testDec = `{"Reports":[{"Rows":[{"RowType":"Section","Rows":[
		{"RowType":"Row","Cells":[{"Value":"Food","Attributes":[{"Name":"AccountCode","Value":"200"}]},{"Value":"120"}]}
	]}]}]}`
)

// fakeXero serves the two ProfitAndLoss documents; janNovStatus and decBody
// can be changed per test.
type fakeXero struct {
	srv          *httptest.Server
	calls        atomic.Int32
	janNovStatus int
	janNovBody   string
	decBody      string
}

func newFakeXero(t *testing.T) *fakeXero {
	t.Helper()
	f := &fakeXero{janNovStatus: http.StatusOK, janNovBody: testJanNov, decBody: testDec}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		if r.URL.Query().Get("periods") == "11" {
			w.WriteHeader(f.janNovStatus)
			io.WriteString(w, f.janNovBody)
			return
		}
		io.WriteString(w, f.decBody)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

type testEnv struct {
	server   *Server
	store    *memory.Store
	tokens   *xero.MemoryTokenStore
	xero     *fakeXero
	exporter *sheetsmem.Exporter
	centreA  core.Centre
}

type envOption func(*Deps, *testEnv)

func withExporter() envOption {
	return func(d *Deps, e *testEnv) {
		e.exporter = sheetsmem.New()
		d.Export = services.NewExportService(d.Actuals, e.exporter)
	}
}

func withOAuth(o *xero.OAuth) envOption {
	return func(d *Deps, _ *testEnv) { d.OAuth = o }
}

func withRate(n int) envOption {
	return func(d *Deps, _ *testEnv) { d.RatePerMinute = n }
}

func withTrustedProxies(cidrs ...string) envOption {
	return func(d *Deps, _ *testEnv) { d.TrustedProxies = cidrs }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	ctx := context.Background()

	st := memory.New()
	a, _ := st.EnsureCentre(ctx, core.Centre{Name: "Aroha", APIID: "1001"})
	b, _ := st.EnsureCentre(ctx, core.Centre{Name: "Kowhai", APIID: "1002"})
	st.UpsertOccupancy(ctx, core.Occupancy{CentreID: a.ID, MonthYear: "2025-08", U2: 80, O2: 90, Total: 85})
	st.UpsertOccupancy(ctx, core.Occupancy{CentreID: b.ID, MonthYear: "07-2025", U2: 70, O2: 75, Total: 72})
	dec := decimal.RequireFromString("150")
	st.UpsertBudget(ctx, core.BudgetLine{CentreID: a.ID, Category: core.CategoryFoodCosts, Year: 2025, AccountCode: "200",
		MonthlyBudget: decimal.RequireFromString("100"), Overrides: [12]*decimal.Decimal{11: &dec}})
	st.UpsertBudget(ctx, core.BudgetLine{CentreID: b.ID, Category: core.CategoryFirstAid, Year: 2025, AccountCode: "310",
		MonthlyBudget: decimal.RequireFromString("25")})

	fx := newFakeXero(t)
	tokens := xero.NewMemoryTokenStore()
	fetcher := xero.NewFetcher(fx.srv.URL, 5*time.Second, xero.WithCallsPerMinute(0))

	deps := Deps{
		Store:         st,
		Tokens:        tokens,
		Actuals:       services.NewActualsService(tokens, fetcher, st, st, 2025),
		Occupancy:     services.NewOccupancyService(st),
		Overdue:       services.NewOverdueService(st),
		Logger:        log.New(log.Config{Handler: log.NewHandler(io.Discard, "text", slog.LevelInfo)}),
		RatePerMinute: 1000,
	}
	env := &testEnv{store: st, tokens: tokens, xero: fx, centreA: a}
	for _, opt := range opts {
		opt(&deps, env)
	}
	env.server = NewServer(":0", deps)
	t.Cleanup(func() { env.server.Shutdown(context.Background()) })
	return env
}

func (e *testEnv) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	e.server.Handler.ServeHTTP(rr, httptest.NewRequest(method, target, nil))
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorResponse
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body %q: %v", rr.Body.String(), err)
	}
	return body.Error
}

func TestHealthReadyMetrics(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := env.do(t, http.MethodGet, path)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Errorf("%s missing security headers", path)
		}
	}

	rr := env.do(t, http.MethodGet, "/readyz")
	var ready struct {
		Checks map[string]string `json:"checks"`
	}
	json.NewDecoder(rr.Body).Decode(&ready)
	if ready.Checks["store"] != "ok" || ready.Checks["xero"] != "not_configured" || ready.Checks["export"] != "not_configured" {
		t.Errorf("checks = %v", ready.Checks)
	}

	env.do(t, http.MethodGet, "/api/xero-actuals/")
	rr = env.do(t, http.MethodGet, "/metrics")
	for _, want := range []string{"http_requests_total", "xero_actuals_requests_total 1", "rate_limit_hits_total 0"} {
		if !strings.Contains(rr.Body.String(), want) {
			t.Errorf("metrics missing %q:\n%s", want, rr.Body.String())
		}
	}
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodGet, "/nope")
	if rr.Code != http.StatusNotFound || decodeError(t, rr) != "not found" {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	rr = env.do(t, http.MethodDelete, "/api/budgets/")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, withRate(2))
	for i := 0; i < 2; i++ {
		if rr := env.do(t, http.MethodGet, "/api/centres/"); rr.Code != http.StatusOK {
			t.Fatalf("request %d status=%d", i+1, rr.Code)
		}
	}
	rr := env.do(t, http.MethodGet, "/api/centres/")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr := env.do(t, http.MethodGet, "/healthz"); rr.Code != http.StatusOK {
		t.Fatalf("health must not be rate limited, got %d", rr.Code)
	}
}

func TestRateLimitTrustedProxies(t *testing.T) {
	// httptest requests arrive from 192.0.2.1.
	tests := []struct {
		name       string
		proxies    []string
		wantSecond int
	}{
		{"forwarded clients behind a trusted proxy are limited separately", []string{"192.0.2.0/24"}, http.StatusOK},
		{"forwarding headers from an untrusted peer are ignored", nil, http.StatusTooManyRequests},
		{"invalid CIDR is skipped", []string{"not-a-cidr"}, http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, withRate(1), withTrustedProxies(tt.proxies...))
			request := func(forwardedFor string) int {
				rr := httptest.NewRecorder()
				req := httptest.NewRequest(http.MethodGet, "/api/centres/", nil)
				req.Header.Set("X-Forwarded-For", forwardedFor)
				env.server.Handler.ServeHTTP(rr, req)
				return rr.Code
			}

			if code := request("198.51.100.1"); code != http.StatusOK {
				t.Fatalf("first request status=%d", code)
			}
			if code := request("198.51.100.2"); code != tt.wantSecond {
				t.Fatalf("second client status=%d, want %d", code, tt.wantSecond)
			}
			if code := request("198.51.100.1"); code != http.StatusTooManyRequests {
				t.Fatalf("repeat client status=%d, want 429", code)
			}
		})
	}
}

func TestRecoverer(t *testing.T) {
	env := newTestEnv(t)
	env.server.deps.Store = nil
	rr := env.do(t, http.MethodGet, "/api/centres/")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 from recovered panic, got %d", rr.Code)
	}
}
