// Package server exposes accounts, races and leaderboards over JSON HTTP.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/verte-zerg/typerush/internal/auth"
	"github.com/verte-zerg/typerush/internal/leaderboard"
	"github.com/verte-zerg/typerush/internal/store"
)

// Request body limits.
const (
	MaxBodySize   = 1 << 20
	MaxImportSize = 16 << 20
)

// Config wires the server to its dependencies.
type Config struct {
	Store          *store.Store
	Authority      *auth.Authority
	Ranker         *leaderboard.Ranker
	Logger         *zap.Logger
	AllowedOrigins []string
}

// Server routes API requests.
type Server struct {
	store     *store.Store
	authority *auth.Authority
	ranker    *leaderboard.Ranker
	logger    *zap.SugaredLogger
	router    *chi.Mux
	origins   []string
}

// New creates a Server with all routes configured.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	ranker := cfg.Ranker
	if ranker == nil {
		ranker = leaderboard.New(cfg.Store, cfg.Store, nil)
	}
	s := &Server{
		store:     cfg.Store,
		authority: cfg.Authority,
		ranker:    ranker,
		logger:    cfg.Logger.Sugar(),
		router:    chi.NewRouter(),
		origins:   cfg.AllowedOrigins,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupMiddleware() {
	origins := s.origins
	if len(origins) == 0 {
		origins = []string{"http://localhost:*"}
	}
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
			r.Post("/logout", s.handleLogout)
			r.With(s.requireAuth).Get("/me", s.handleMe)
		})

		r.Route("/users", func(r chi.Router) {
			r.With(s.requireAuth).Put("/me", s.handleUpdateProfile)
			r.Get("/{id}", s.handlePublicProfile)
		})

		r.Route("/races", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/", s.handleCreateRace)
			r.Post("/import", s.handleImportRaces)
			r.Get("/", s.handleListRaces)
			r.Get("/stats", s.handleRaceStats)
			r.Get("/{id}", s.handleGetRace)
		})

		r.Route("/leaderboard", func(r chi.Router) {
			r.Get("/", s.handleGlobalLeaderboard)
			r.With(s.requireAuth).Get("/me", s.handleMyRank)
			r.Get("/user/{userId}", s.handleUserRank)
			r.Get("/quote/{quoteId}", s.handleQuoteLeaderboard)
		})
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		requestDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())
		s.logger.Debugw("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", elapsed,
			"requestId", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	state := "ok"
	if err := s.store.Ping(r.Context()); err != nil {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}
	s.jsonResponse(w, status, map[string]any{
		"status":    state,
		"timestamp": time.Now().UTC(),
	})
}
