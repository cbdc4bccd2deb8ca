package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	applog "spending/internal/log"
	"spending/internal/middleware/ratelimit"
	"spending/internal/middleware/security"
	"spending/internal/services"
	"spending/internal/store"
)

// Dependencies are the collaborators the handlers call. Snapshots, Health and
// Metrics are optional.
type Dependencies struct {
	Activities *services.ActivityService
	Spending   *services.SpendingService
	Snapshots  store.SnapshotReader
	Health     store.Pinger
	Metrics    http.Handler
	// RateLimited is told about every write rejected by the rate limit.
	RateLimited func()
}

type Config struct {
	Addr string
	// WritesPerMinute bounds activity creation per client IP; 0 disables it.
	WritesPerMinute int
	// Now supplies the reference date for spending queries. Defaults to time.Now.
	Now    func() time.Time
	Logger *applog.Logger
}

type Server struct {
	http.Server
	deps    Dependencies
	now     func() time.Time
	limiter *ratelimit.Limiter

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(cfg Config, deps Dependencies) *Server {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)
	}

	s := &Server{deps: deps, now: cfg.Now}
	if cfg.WritesPerMinute > 0 {
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.WritesPerMinute})
	}

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(cfg.Logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes(logger *applog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(applog.RequestIDMiddleware(logger))
	r.Use(applog.RequestLogger)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	if s.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.deps.Metrics)
	}

	r.Route("/activity", func(r chi.Router) {
		r.With(s.writeLimit()).Post("/", s.handleCreateActivity)
		r.Get("/{account_id}", s.handleListActivities)
		r.Get("/snapshot/{account_id}", s.handleLatestSnapshot)

		r.Route("/spending", func(r chi.Router) {
			r.Get("/year/{account_id}", s.handleSpend(granularityYear))
			r.Get("/month/{account_id}", s.handleSpend(granularityMonth))
			r.Get("/date/{account_id}", s.handleSpend(granularityDay))
			r.Get("/breakdown/{account_id}", s.handleBreakdown)
			r.Get("/trends/{account_id}", s.handleTrends)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("route not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		NewJSONResponse().Status(http.StatusMethodNotAllowed).
			Body(errorBody{Error: "method not allowed"}).Write(w)
	})
	return r
}

func (s *Server) writeLimit() func(http.Handler) http.Handler {
	if s.limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return s.limiter.Middleware(ratelimit.ClientIP, func(r *http.Request) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, ratelimit.ClientIP(r),
			applog.FieldPath, r.URL.Path)
		if s.deps.RateLimited != nil {
			s.deps.RateLimited()
		}
	})
}

// Shutdown stops background routines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports whether storage answers within two seconds.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Health.Ping(ctx); err != nil {
			applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("storage unavailable"))
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
