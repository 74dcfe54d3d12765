package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"childcare/internal/log"
	"childcare/internal/middleware/ratelimit"
	"childcare/internal/middleware/security"
	"childcare/internal/middleware/trace"
	"childcare/internal/services"
	"childcare/internal/store"
	"childcare/internal/xero"
)

// Deps are the collaborators the server routes to. OAuth and Export may be
// nil; the corresponding endpoints then report that they are not configured.
type Deps struct {
	Store     store.Repository
	Tokens    *xero.MemoryTokenStore
	OAuth     *xero.OAuth
	Actuals   *services.ActualsService
	Occupancy *services.OccupancyService
	Overdue   *services.OverdueService
	Export    *services.ExportService
	Logger    *log.Logger

	RatePerMinute  int
	TrustedProxies []string
}

type appMetrics struct {
	actualsRequests  int64
	upstreamFailures int64
	parseFailures    int64
	exports          int64
	uptime           time.Time
}

type Server struct {
	http.Server
	deps Deps

	logger          *log.Logger
	structured      *log.StructuredLogger
	rateLimiter     *ratelimit.Limiter
	traceMiddleware *trace.Middleware
	appMetrics      *appMetrics

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	clientIP := security.NewClientIP()
	for _, cidr := range deps.TrustedProxies {
		if err := clientIP.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", log.FieldError, err.Error())
		}
	}
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		deps:            deps,
		logger:          logger,
		structured:      log.NewStructuredLogger(logger),
		rateLimiter:     ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RatePerMinute}),
		traceMiddleware: trace.NewMiddleware(logger, clientIP.Extract),
		appMetrics:      &appMetrics{uptime: time.Now()},
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.traceMiddleware.Middleware)
	r.Use(log.Middleware(logger))
	r.Use(log.RequestIDMiddleware(trace.RequestIDFromRequest))
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimiter.Middleware(clientIP.Extract, s.handleRateLimited))

		r.Route("/api", func(r chi.Router) {
			r.Get("/occupancy/", s.handleOccupancy)
			r.Get("/overdue-invoices/", s.handleOverdueInvoices)
			r.Get("/budgets/", s.handleBudgets)
			r.Get("/centres/", s.handleCentres)
			r.Get("/xero-actuals/", s.handleXeroActuals)
			r.Post("/xero-actuals/export", s.handleXeroExport)
		})

		r.Route("/xero", func(r chi.Router) {
			r.Get("/login", s.handleXeroLogin)
			r.Get("/callback", s.handleXeroCallback)
			r.Post("/logout", s.handleXeroLogout)
			r.Get("/status", s.handleXeroStatus)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	s.Handler = r
	return s
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded", log.FieldPath, r.URL.Path)
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
}

// Shutdown gracefully shuts down the server and the limiter cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) countActuals()  { atomic.AddInt64(&s.appMetrics.actualsRequests, 1) }
func (s *Server) countUpstream() { atomic.AddInt64(&s.appMetrics.upstreamFailures, 1) }
func (s *Server) countParse()    { atomic.AddInt64(&s.appMetrics.parseFailures, 1) }
func (s *Server) countExport()   { atomic.AddInt64(&s.appMetrics.exports, 1) }
