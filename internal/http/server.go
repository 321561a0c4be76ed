package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fintrack/internal/auth"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

// Pinger reports whether a dependency can serve requests.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services groups the application services behind the API.
type Services struct {
	Accounts     *services.AccountService
	Transactions *services.TransactionService
	Summaries    *services.SummaryService
	Reports      *services.ReportService
}

// Options configures the router.
type Options struct {
	Issuer             *auth.Issuer
	CORSAllowedOrigins []string
	RateLimitRPM       int
	TrustedProxies     []string
	// Ready is pinged by /readyz. Nil reports ready.
	Ready  Pinger
	Logger *log.Logger
	// Metrics serves /metrics; defaults to the global Prometheus registry.
	Metrics http.Handler
}

// Server is the JSON API.
type Server struct {
	http.Server

	svc      Services
	issuer   *auth.Issuer
	ready    Pinger
	logger   *log.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	metrics  http.Handler
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc Services, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		svc:      svc,
		issuer:   opts.Issuer,
		ready:    opts.Ready,
		logger:   logger.WithComponent(log.ComponentHTTP),
		detector: security.NewDetector(),
		metrics:  opts.Metrics,
		started:  time.Now(),
	}
	if s.metrics == nil {
		s.metrics = promhttp.Handler()
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			s.logger.Warn("Ignoring invalid trusted proxy", "cidr", cidr, log.FieldError, err)
		}
	}

	rl := ratelimit.DefaultConfig()
	if opts.RateLimitRPM > 0 {
		rl.RequestsPerMinute = opts.RateLimitRPM
	}
	s.limiter = ratelimit.NewLimiter(rl)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(opts.CORSAllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(origins []string) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(trace.NewMiddleware(s.logger, s.detector.ExtractClientIP).Handler)
	r.Use(security.Headers(security.DefaultHeadersConfig()))
	r.Use(s.detector.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", trace.RequestIDHeader},
		ExposedHeaders:   []string{"Content-Disposition", headerExportSkipped, trace.RequestIDHeader},
		AllowCredentials: !containsWildcard(origins),
		MaxAge:           300,
	}))
	r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", s.metrics)

	r.Get("/categories", s.handleCategories)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)
		r.With(s.authenticated).Get("/me", s.handleMe)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.authenticated)
		r.Use(security.NoStore)

		r.Put("/profile", s.handleUpdateProfile)
		r.Delete("/profile", s.handleDeleteProfile)

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", s.handleListTransactions)
			r.Post("/", s.handleCreateTransaction)
			r.Get("/{id}", s.handleGetTransaction)
			r.Put("/{id}", s.handleUpdateTransaction)
			r.Patch("/{id}", s.handleUpdateTransaction)
			r.Delete("/{id}", s.handleDeleteTransaction)
		})

		r.Get("/summary", s.handleSummary)
		r.Get("/export/excel", s.handleExport(exportExcel))
		r.Get("/export/pdf", s.handleExport(exportPDF))
	})

	return r
}

func (s *Server) authenticated(next http.Handler) http.Handler {
	return auth.Middleware(s.issuer, func(w http.ResponseWriter, r *http.Request, err error) {
		writeServiceError(w, r, err)
	})(next)
}

// Shutdown stops background routines and drains the listener. Safe to call
// more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
