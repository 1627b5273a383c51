package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/pantrylabs/pantry/internal/repository"
)

// Router assembles the HTTP surface: the JSON API, the media files, and
// the admin console.
type Router struct {
	userHandler       *UserHandler
	recipeHandler     *RecipeHandler
	tagHandler        *TagHandler
	ingredientHandler *IngredientHandler
	adminHandler      *AdminHandler
	authMiddleware    func(http.Handler) http.Handler
	metricsMiddleware func(http.Handler) http.Handler
	rateLimiter       *RateLimiter
	health            repository.DatabaseHealth
	logger            zerolog.Logger
}

// RouterConfig contains configuration for the router. MetricsMiddleware,
// RateLimiter, and Health may be nil when those features are disabled.
type RouterConfig struct {
	UserHandler       *UserHandler
	RecipeHandler     *RecipeHandler
	TagHandler        *TagHandler
	IngredientHandler *IngredientHandler
	AdminHandler      *AdminHandler
	AuthMiddleware    func(http.Handler) http.Handler
	MetricsMiddleware func(http.Handler) http.Handler
	RateLimiter       *RateLimiter
	Health            repository.DatabaseHealth
	Logger            zerolog.Logger
}

// NewRouter creates a new Router.
func NewRouter(config RouterConfig) *Router {
	return &Router{
		userHandler:       config.UserHandler,
		recipeHandler:     config.RecipeHandler,
		tagHandler:        config.TagHandler,
		ingredientHandler: config.IngredientHandler,
		adminHandler:      config.AdminHandler,
		authMiddleware:    config.AuthMiddleware,
		metricsMiddleware: config.MetricsMiddleware,
		rateLimiter:       config.RateLimiter,
		health:            config.Health,
		logger:            config.Logger.With().Str("component", "router").Logger(),
	}
}

// Handler returns the main HTTP handler.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(rt.requestLogger)
	r.Use(middleware.Recoverer)
	if rt.rateLimiter != nil {
		r.Use(rt.rateLimiter.Middleware)
	}
	if rt.metricsMiddleware != nil {
		r.Use(rt.metricsMiddleware)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(writeMethodNotAllowed)

	// Health check (no auth)
	r.Get("/health", rt.handleHealth)

	// Media files (no auth, keys are unguessable)
	r.Get("/media/*", rt.recipeHandler.ServeMedia)

	// JSON API behind bearer token auth; the middleware skips the
	// registration and token endpoints.
	r.Route("/api", func(api chi.Router) {
		api.Use(rt.authMiddleware)
		api.Route("/user", rt.userHandler.RegisterRoutes)
		api.Route("/recipes", rt.recipeHandler.RegisterRoutes)
		api.Route("/tags", rt.tagHandler.RegisterRoutes)
		api.Route("/ingredients", rt.ingredientHandler.RegisterRoutes)
	})

	// Admin console with its own cookie sessions.
	r.Route("/admin", rt.adminHandler.RegisterRoutes)

	return r
}

// handleHealth handles health check requests, including a database
// round trip when a health checker is configured.
func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	if rt.health != nil {
		if err := rt.health.Health(r.Context()); err != nil {
			rt.logger.Error().Err(err).Msg("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// requestLogger logs one line per request.
func (rt *Router) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		rt.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Msg("request")
	})
}
