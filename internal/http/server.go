package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"consigli/internal/core"
	"consigli/internal/log"
	"consigli/internal/middleware/cors"
	"consigli/internal/middleware/ratelimit"
	"consigli/internal/middleware/security"
	"consigli/internal/middleware/trace"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

// ExpenseService is the expense ingestion surface the handlers need.
type ExpenseService interface {
	RecordExpense(ctx context.Context, description string, amount decimal.Decimal) (core.Expense, error)
	ListExpenses(ctx context.Context) ([]core.Expense, error)
	OverrideCategory(ctx context.Context, id int64, category string) (core.Expense, error)
}

// Advisor generates advisories and records feedback on them.
type Advisor interface {
	Analyze(ctx context.Context) (core.Advice, error)
	GetAdvice(ctx context.Context, id int64) (core.Advice, error)
	SubmitFeedback(ctx context.Context, id int64, f core.Feedback) (core.Advice, error)
}

// SummaryProvider computes the read-only spending summary.
type SummaryProvider interface {
	Summary(ctx context.Context) (core.SpendingSummary, error)
}

// Deps collects what the server routes to. Ready and Logger may be nil.
type Deps struct {
	Expenses ExpenseService
	Advisor  Advisor
	Summary  SummaryProvider
	// Ready backs /readyz; typically the storage ping.
	Ready  func(ctx context.Context) error
	Logger *log.Logger
	// RateLimitPerMinute bounds write requests per client address.
	RateLimitPerMinute int
	// TrustedProxies are CIDRs allowed to set the client address headers.
	TrustedProxies []string
	// CORS answers preflights ahead of the router. No allowed origins
	// disables it.
	CORS cors.Config
}

type Server struct {
	http.Server
	deps         Deps
	logger       *log.Logger
	limiter      *ratelimit.Limiter
	detector     *security.Detector
	tracer       *trace.Middleware
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = log.Discard()
	}
	logger := deps.Logger.WithComponent(log.ComponentHTTP)
	detector := security.NewDetector()
	for _, cidr := range deps.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", "cidr", cidr, log.FieldError, err)
		}
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		deps:     deps,
		logger:   logger,
		detector: detector,
		tracer:   trace.NewMiddleware(deps.Logger, detector.ExtractClientIP),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: deps.RateLimitPerMinute,
		}),
	}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		NotFoundError("no such route").Write(w)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/expenses", s.handleListExpenses).Methods(http.MethodGet)
	api.Handle("/expenses", s.limited(s.handleCreateExpense)).Methods(http.MethodPost)
	api.Handle("/expenses/{id:[0-9]+}/final-category", s.limited(s.handleOverrideCategory)).Methods(http.MethodPut)

	// analyze persists a record on GET too, so both methods count as writes.
	api.Handle("/advisor/analyze", s.limited(s.handleAnalyze)).Methods(http.MethodGet, http.MethodPost)
	api.HandleFunc("/advisor/{id:[0-9]+}", s.handleGetAdvice).Methods(http.MethodGet)
	api.Handle("/advisor/{id:[0-9]+}/feedback", s.limited(s.handleFeedback)).Methods(http.MethodPut)

	api.HandleFunc("/analysis/summary", s.handleSummary).Methods(http.MethodGet)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	withCORS := cors.Middleware(deps.CORS)
	s.Handler = s.tracer.Middleware(withCORS(headers.Middleware(detector.Middleware(logger)(r))))

	return s
}

// limited applies the per-client rate limit to a write handler.
func (s *Server) limited(h http.HandlerFunc) http.Handler {
	onLimit := func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ExtractClientIP(r),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later").Write(w)
	}
	return s.limiter.Middleware(s.detector.ExtractClientIP, onLimit)(h)
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		shutdownErr = s.Server.Shutdown(ctx)
		s.limiter.Stop()

		metrics := s.tracer.GetMetrics()
		s.logger.Info("HTTP server stopped",
			"requests", metrics.TotalRequests,
			"rate_limited", s.limiter.Rejected(),
			"rate_limit_clients", s.limiter.ActiveClients(),
			"suspicious", s.detector.SuspiciousCount())
	})
	return shutdownErr
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Ready(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			ServiceUnavailableError("storage unavailable").Write(w)
			return
		}
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}
