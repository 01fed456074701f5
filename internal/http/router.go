package http

import (
	"net/http"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"bookshell/internal/config"
	"bookshell/internal/metrics"
)

// RouterDeps carries the wired handlers and shared infrastructure the
// router needs. cmd/api assembles it once at startup.
type RouterDeps struct {
	Bridge     *BridgeHandler
	Federation *FederationHandler
	Session    *SessionHandler
	Metrics    *metrics.Collector
	Logger     *slog.Logger
}

// NewRouter wires application routes and middleware using chi. The returned
// stop function releases the login rate limiter's background goroutine.
func NewRouter(cfg config.Config, deps RouterDeps) (http.Handler, func()) {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(newSlogMiddleware(deps.Logger))
	r.Use(newMetricsMiddleware(deps.Metrics))
	r.Use(newSecurityHeadersMiddleware(cfg.Environment))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "ok",
			"environment": cfg.Environment,
		})
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	limiter := newLoginRateLimiter(cfg.LoginRateLimit, cfg.LoginRateBurst)

	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(limiter.Middleware())
			r.Post("/naver", deps.Bridge.Exchange)
			r.Post("/token", deps.Federation.SignIn)
		})

		r.Route("/session", func(r chi.Router) {
			r.Get("/", deps.Session.Status)
			r.Delete("/", deps.Session.SignOut)
		})
		r.Delete("/account", deps.Session.DeleteAccount)
	})

	r.NotFound(http.NotFoundHandler().ServeHTTP)

	return r, limiter.Stop
}
