package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"fintrack/internal/analytics"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/storage"
)

// Reports is the analytics engine behind the /api/analytics endpoints.
type Reports interface {
	Quarterly(ctx context.Context, accountID string, now time.Time) (analytics.QuarterlyReport, error)
	Summary(ctx context.Context, accountID string, now time.Time) (analytics.SummaryReport, error)
	Location() *time.Location
}

// Ledger performs transaction writes and announces them to the mirror.
type Ledger interface {
	CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
}

// Options configures NewServer. Store, Reports and Ledger are required.
type Options struct {
	Addr               string
	Store              *storage.SQLiteRepository
	Reports            Reports
	Ledger             Ledger
	Logger             *applog.Logger
	DefaultAccountID   string
	CacheTTL           time.Duration
	RateLimitPerMinute int
	Now                func() time.Time
}

type Server struct {
	http.Server

	store            *storage.SQLiteRepository
	reports          Reports
	ledger           Ledger
	logger           *applog.Logger
	structured       *applog.StructuredLogger
	defaultAccountID string
	now              func() time.Time

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	quarterlyCache *cache.LRUCache[analytics.QuarterlyReport]
	summaryCache   *cache.LRUCache[analytics.SummaryReport]
	cacheManager   *cache.Manager

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	logger := opts.Logger.WithComponent(applog.ComponentHTTP)
	s := &Server{
		store:            opts.Store,
		reports:          opts.Reports,
		ledger:           opts.Ledger,
		logger:           logger,
		structured:       applog.NewStructuredLogger(opts.Logger),
		defaultAccountID: opts.DefaultAccountID,
		now:              opts.Now,
		limiter:          ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:         security.NewDetector(),
		quarterlyCache:   cache.NewLRUCache[analytics.QuarterlyReport](100, opts.CacheTTL),
		summaryCache:     cache.NewLRUCache[analytics.SummaryReport](100, opts.CacheTTL),
		cacheManager:     cache.NewManager(),
	}
	s.tracer = trace.NewMiddleware(opts.Logger, s.detector.ExtractClientIP)

	s.cacheManager.Register(s.quarterlyCache)
	s.cacheManager.Register(s.summaryCache)
	if opts.CacheTTL > 0 {
		s.cacheManager.StartCleanup(5 * opts.CacheTTL)
	}

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(applog.Middleware(s.logger))
	r.Use(s.tracer.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("route not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	writeLimit := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(),
			"Rate limit exceeded",
			applog.FieldClientIP, s.detector.ExtractClientIP(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		TooManyRequestsError().Write(w)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(s.authenticate)

		// the summary falls back to the default account without a session
		r.Get("/analytics/summary", s.handleSummary)

		r.Group(func(r chi.Router) {
			r.Use(requireUser)

			r.Get("/analytics/quarterly", s.handleQuarterly)
			r.Get("/accounts", s.handleListAccounts)
			r.Get("/categories", s.handleListCategories)
			r.Get("/transactions", s.handleListTransactions)
			r.Get("/budgets", s.handleListBudgets)
			r.Get("/goals", s.handleListGoals)
			r.Get("/recurring", s.handleListRecurring)

			r.Group(func(r chi.Router) {
				r.Use(writeLimit)

				r.Post("/accounts", s.handleCreateAccount)
				r.Post("/categories", s.handleCreateCategory)
				r.Post("/transactions", s.handleCreateTransaction)
				r.Delete("/transactions/{id}", s.handleDeleteTransaction)
				r.Put("/budgets", s.handleUpsertBudget)
				r.Post("/goals", s.handleCreateGoal)
				r.Post("/goals/{id}/contribute", s.handleContributeGoal)
				r.Post("/recurring", s.handleCreateRecurring)
				r.Post("/recurring/{id}/skip", s.handleSkipRecurring)
			})
		})
	})
	return r
}

// Shutdown stops background routines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		s.logger.ErrorContext(r.Context(), "Readiness check failed", applog.FieldError, err)
		ErrorResponse(http.StatusServiceUnavailable, "database unavailable").Write(w)
		return
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}

type metricsJSON struct {
	Requests struct {
		Total          int64 `json:"total"`
		ServerErrors   int64 `json:"serverErrors"`
		LastDurationUs int64 `json:"lastDurationUs"`
	} `json:"requests"`
	RateLimit struct {
		Hits    int64 `json:"hits"`
		Clients int64 `json:"clients"`
	} `json:"rateLimit"`
	Security struct {
		SuspiciousRequests int64 `json:"suspiciousRequests"`
		InvalidIPAttempts  int64 `json:"invalidIpAttempts"`
	} `json:"security"`
	Cache struct {
		Quarterly int `json:"quarterly"`
		Summary   int `json:"summary"`
	} `json:"cache"`
}

// handleMetrics reports the middleware counters and analytics cache sizes.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var m metricsJSON
	tm := s.tracer.GetMetrics()
	m.Requests.Total, m.Requests.ServerErrors, m.Requests.LastDurationUs = tm.TotalRequests, tm.ServerErrors, tm.LastDurationUs
	rm := s.limiter.GetMetrics()
	m.RateLimit.Hits, m.RateLimit.Clients = rm.TotalHits, rm.ClientCount
	dm := s.detector.GetMetrics()
	m.Security.SuspiciousRequests, m.Security.InvalidIPAttempts = dm.SuspiciousRequests, dm.InvalidIPAttempts
	m.Cache.Quarterly = s.quarterlyCache.Size()
	m.Cache.Summary = s.summaryCache.Size()
	NewJSONResponse().Body(m).Write(w)
}
