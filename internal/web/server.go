// Package web provides the HTTP server for member registration.
package web

import (
	"context"
	"embed"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/JonMunkholm/richway/internal/config"
	"github.com/JonMunkholm/richway/internal/core"
	"github.com/JonMunkholm/richway/internal/metrics"
	"github.com/JonMunkholm/richway/internal/web/middleware"
)

//go:embed static
var staticFiles embed.FS

// Server is the HTTP server for the registration application.
type Server struct {
	cfg     *config.Config
	store   core.Store
	submit  *core.SubmissionService
	admin   *core.AdminService // nil unless the store can list records
	limiter *middleware.RateLimiter
	static  fs.FS
	router  *chi.Mux
	server  *http.Server
	stop    context.CancelFunc
}

// NewServer creates a Server around the active store. The admin surface is
// mounted only when the store implements core.Lister.
func NewServer(cfg *config.Config, store core.Store, submit *core.SubmissionService) *Server {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}

	s := &Server{
		cfg:    cfg,
		store:  store,
		submit: submit,
		static: staticFS,
		router: chi.NewRouter(),
	}
	if admin, ok := core.NewAdminService(store); ok {
		s.admin = admin
	}
	if cfg.Rate.Enabled {
		s.limiter = middleware.NewRateLimiter(cfg.Rate.RequestsPerMinute)
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// AdminEnabled reports whether /api/admin/* is served.
func (s *Server) AdminEnabled() bool {
	return s.admin != nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Proxy.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-API-Key"},
		MaxAge:         300,
	}))
	s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(securityHeaders)
}

func (s *Server) setupRoutes() {
	var submit chi.Router = s.router
	if s.limiter != nil {
		submit = s.router.With(s.limiter.Handler)
	}
	submit.Post("/submit", s.handleSubmit)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", metrics.Handler())

	if s.admin != nil {
		s.router.Route("/api/admin", func(r chi.Router) {
			r.Use(middleware.APIKeyAuth(&s.cfg.Admin))
			r.Get("/data", s.handleAdminData)
			r.Get("/download", s.handleAdminDownload)
		})
		s.router.Get("/admin", s.handleAdminPage)
	}

	// Everything else: embedded assets with index.html as the fallback.
	s.router.Get("/*", s.handleStatic)
	s.router.NotFound(s.handleNotFound)
}

// Start listens on addr and blocks until the server stops.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:        addr,
		Handler:     s.router,
		ReadTimeout: s.cfg.Server.ReadTimeout,
		IdleTimeout: s.cfg.Server.IdleTimeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.stop = cancel
	if s.limiter != nil {
		go s.limiter.Run(ctx, time.Minute)
	}

	slog.Info("starting server", "addr", addr, "store", s.store.Backend(), "admin", s.AdminEnabled())
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.stop != nil {
		s.stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		// Pages carry their scripts and styles inline.
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
		next.ServeHTTP(w, r)
	})
}
