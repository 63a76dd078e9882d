package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/drmweyers/evofithealthprotocol-sub012/internal/domain"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/infrastructure/http/handlers"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/infrastructure/http/middleware"
)

type RouterConfig struct {
	AuthHandler      *handlers.AuthHandler
	HealthHandler    *handlers.HealthHandler
	UsersHandler     *handlers.UsersHandler
	CustomersHandler *handlers.CustomersHandler
	RequireAuth      func(http.Handler) http.Handler // Authenticator gate for protected routes
	OAuthBegin       http.HandlerFunc                // GET /auth/{provider}
	OAuthCallback    http.HandlerFunc                // GET /auth/{provider}/callback
	Log              zerolog.Logger
	Secure           func(http.Handler) http.Handler
	IPRateLimit      func(http.Handler) http.Handler
	Metrics          bool // expose /metrics
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimid.RequestID)
	r.Use(chimid.RealIP)
	r.Use(loggerMiddleware(cfg.Log))
	r.Use(chimid.Recoverer)
	if cfg.Metrics {
		r.Use(middleware.PrometheusMiddleware)
	}
	if cfg.Secure != nil {
		r.Use(cfg.Secure)
	}
	r.Use(chimid.AllowContentType("application/json"))
	if cfg.IPRateLimit != nil {
		r.Use(cfg.IPRateLimit)
	}

	if cfg.HealthHandler != nil {
		r.Get("/health", cfg.HealthHandler.ServeHTTP)
	} else {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
	}
	if cfg.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", cfg.AuthHandler.Register)
		r.Post("/login", cfg.AuthHandler.Login)
		r.Post("/refresh", cfg.AuthHandler.Refresh)
		r.Post("/logout", cfg.AuthHandler.Logout)
		if cfg.RequireAuth != nil {
			r.Group(func(r chi.Router) {
				r.Use(cfg.RequireAuth)
				r.Post("/logout-all", cfg.AuthHandler.LogoutAll)
			})
		}
		if cfg.OAuthBegin != nil {
			r.Get("/{provider}", cfg.OAuthBegin)
		}
		if cfg.OAuthCallback != nil {
			r.Get("/{provider}/callback", cfg.OAuthCallback)
		}
	})

	if cfg.UsersHandler != nil && cfg.RequireAuth != nil {
		r.Route("/users", func(r chi.Router) {
			r.Use(cfg.RequireAuth)
			r.Get("/me", cfg.UsersHandler.Me)
			r.Patch("/me", cfg.UsersHandler.UpdateMe)
			r.Post("/me/password", cfg.UsersHandler.ChangePassword)
		})
	}

	if cfg.CustomersHandler != nil && cfg.RequireAuth != nil {
		r.Route("/customers", func(r chi.Router) {
			r.Use(cfg.RequireAuth)
			r.Use(middleware.RequireRoles(domain.RoleTrainer, domain.RoleAdmin))
			r.Get("/", cfg.CustomersHandler.List)
			r.Get("/{id}", cfg.CustomersHandler.Get)
		})
	}

	if cfg.UsersHandler != nil && cfg.RequireAuth != nil {
		r.Route("/admin", func(r chi.Router) {
			r.Use(cfg.RequireAuth)
			r.Use(middleware.RequireRoles(domain.RoleAdmin))
			r.Get("/users", cfg.UsersHandler.List)
		})
	}

	return r
}

func loggerMiddleware(log zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := chimid.GetReqID(r.Context())
			log.Info().
				Str("request_id", reqID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Msg("request")
			next.ServeHTTP(w, r)
		})
	}
}
