package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"expensely/internal/auth"
	applog "expensely/internal/log"
	"expensely/internal/middleware/ratelimit"
	"expensely/internal/middleware/security"
	"expensely/internal/middleware/trace"
	"expensely/internal/services"
	"expensely/internal/session"
	appweb "expensely/web"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services the handlers call.
type Deps struct {
	Store     Pinger
	Auth      *auth.Service
	Sessions  *session.Manager
	Expenses  *services.ExpenseService
	Dashboard *services.DashboardService
	Export    *services.ExportService
	Activity  *services.ActivityService
}

// Options tune the HTTP surface.
type Options struct {
	CookieSecure       bool
	RateLimitPerMinute int
	CORSAllowedOrigins []string
	Logger             *applog.Logger
}

// Server wraps http.Server with the application's routes and middleware.
type Server struct {
	http.Server

	deps      Deps
	opts      Options
	templates *template.Template
	logger    *applog.Logger
	startedAt time.Time

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
}

// NewServer parses the embedded templates and configures routes.
func NewServer(addr string, deps Deps, opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	t, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	detector := security.NewDetector(opts.Logger)
	s := &Server{
		deps:             deps,
		opts:             opts,
		templates:        t,
		logger:           opts.Logger.WithComponent(applog.ComponentHTTP),
		startedAt:        time.Now(),
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(detector.ExtractClientIP, opts.Logger),
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func parseTemplates() (*template.Template, error) {
	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return t, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(s.securityDetector.Middleware)
	r.Use(s.traceMiddleware.Middleware)
	r.Use(applog.Middleware(s.logger))
	r.Use(applog.RequestIDMiddleware(trace.RequestIDFromRequest))
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.limitWrites)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.With(security.StaticAssetMiddleware(3600)).Handle("/static/*", static)
	} else {
		s.logger.Warn("Failed to mount embedded static FS", "error", err)
	}

	// Pages
	r.Group(func(r chi.Router) {
		r.Use(security.NoStore)

		r.Get("/register", s.handleRegisterForm)
		r.Post("/register", s.handleRegister)
		r.Get("/login", s.handleLoginForm)
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.requirePageSession)
			r.Get("/", s.handleDashboard)
			r.Post("/expenses", s.handleCreateExpense)
			r.Post("/expenses/{id}", s.handleUpdateExpense)
			r.Post("/expenses/{id}/delete", s.handleDeleteExpense)
			r.Get("/export.csv", s.handleExport)
		})
	})

	// JSON API
	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.opts.CORSAllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", trace.HeaderRequestID},
			ExposedHeaders:   []string{trace.HeaderRequestID},
			AllowCredentials: false,
			MaxAge:           300,
		}))
		r.Use(security.NoStore)
		r.Use(s.requireAPISession)

		r.Get("/expenses", s.handleAPIListExpenses)
		r.Post("/expenses", s.handleAPICreateExpense)
		r.Get("/expenses/{id}", s.handleAPIGetExpense)
		r.Put("/expenses/{id}", s.handleAPIUpdateExpense)
		r.Delete("/expenses/{id}", s.handleAPIDeleteExpense)
		r.Get("/dashboard", s.handleAPIDashboard)
		r.Get("/activity", s.handleAPIActivity)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})
	return r
}

// limitWrites applies the per-client rate limit to state-changing requests.
func (s *Server) limitWrites(next http.Handler) http.Handler {
	limited := s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, s.securityDetector.ExtractClientIP(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		if isAPI(r) {
			ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded").Write(w)
			return
		}
		http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
	})(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
		default:
			limited.ServeHTTP(w, r)
		}
	})
}

// Shutdown stops background work and drains connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.rateLimiter.Stop()
	return s.Server.Shutdown(ctx)
}
