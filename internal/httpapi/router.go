package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/MrEthical07/gatekeeper"
	"github.com/MrEthical07/gatekeeper/middleware"
)

// Options tunes the router. Zero values are usable.
type Options struct {
	// TrustProxy reads the client IP from X-Forwarded-For / X-Real-IP.
	TrustProxy   bool
	MaxBodyBytes int64
	// AdminRole may suspend and reinstate accounts. Empty disables the admin routes.
	AdminRole string
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	// Health backs /healthz. Nil always reports healthy.
	Health func(ctx context.Context) error
}

// Handler is the HTTP adapter over an Engine.
type Handler struct {
	engine *gatekeeper.Engine
	logger *zap.Logger
	opts   Options
}

// NewHandler binds an engine. A nil logger is replaced by a no-op logger.
func NewHandler(engine *gatekeeper.Engine, logger *zap.Logger, opts Options) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		engine: engine,
		logger: logger.With(zap.String("component", "httpapi")),
		opts:   opts,
	}
}

// NewRouter registers every route behind the shared middleware chain.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(h.recoverMiddleware)
	r.Use(middleware.ClientMetadata(h.opts.TrustProxy))
	r.Use(h.loggingMiddleware)

	r.Get("/healthz", h.healthz)
	if h.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.opts.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.WAF(h.engine, h.opts.MaxBodyBytes, h.middlewareError("waf")))

		byIP := func(route string) func(http.Handler) http.Handler {
			return middleware.RateLimit(h.engine, route, middleware.IdentityByClientIP, h.middlewareError("rate_limit"))
		}
		byAccount := func(route string) func(http.Handler) http.Handler {
			return middleware.RateLimit(h.engine, route, middleware.IdentityByAccount, h.middlewareError("rate_limit"))
		}

		r.Route("/auth", func(r chi.Router) {
			r.With(byIP(gatekeeper.RouteRegister)).Post("/register", h.register)
			r.With(byIP(gatekeeper.RouteLogin)).Post("/login", h.login)
			r.With(byIP(gatekeeper.RouteRefresh)).Post("/refresh", h.refresh)
			r.With(byIP(gatekeeper.RouteExternalLogin)).Post("/external", h.externalLogin)
			r.With(byIP(gatekeeper.RoutePasswordForgot)).Post("/password/forgot", h.passwordForgot)
			r.With(byIP(gatekeeper.RoutePasswordReset)).Post("/password/reset", h.passwordReset)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Guard(h.engine, h.middlewareError("authenticate")))
				r.With(byAccount(gatekeeper.RouteDefault)).Get("/me", h.me)
				r.With(byAccount(gatekeeper.RouteDefault)).Post("/logout", h.logout)
				r.With(byAccount(gatekeeper.RouteDefault)).Post("/logout-all", h.logoutAll)
				r.With(byAccount(gatekeeper.RoutePasswordChange)).Post("/password/change", h.passwordChange)
				r.With(byAccount(gatekeeper.RouteEmailVerification)).Post("/email/verification", h.emailVerificationSend)
				r.With(byAccount(gatekeeper.RouteEmailVerification)).Post("/email/verification/confirm", h.emailVerificationConfirm)
			})
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Use(middleware.Guard(h.engine, h.middlewareError("authenticate")))
			r.Use(byAccount(gatekeeper.RouteDefault))
			r.Get("/", h.listSessions)
			r.Delete("/", h.revokeOtherSessions)
			r.Delete("/{session_id}", h.revokeSession)
		})

		r.Route("/files", func(r chi.Router) {
			r.With(byIP(gatekeeper.RouteDownload)).Get("/{token}", h.download)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Guard(h.engine, h.middlewareError("authenticate")))
				r.Use(byAccount(gatekeeper.RouteDefault))
				r.Post("/links", h.grantDownload)
				r.Get("/links/{token}", h.validateDownload)
			})
		})

		if h.opts.AdminRole != "" {
			r.Route("/admin/accounts/{account_id}", func(r chi.Router) {
				r.Use(middleware.Guard(h.engine, h.middlewareError("authenticate")))
				r.Use(middleware.RequireRole(h.middlewareError("authorize"), h.opts.AdminRole))
				r.Get("/", h.adminAccount)
				r.Post("/suspend", h.adminSuspend)
				r.Post("/reinstate", h.adminReinstate)
			})
		}
	})

	return r
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.opts.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := h.opts.Health(ctx); err != nil {
			h.logger.Warn("health check failed", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "UNHEALTHY", "unhealthy")
			return
		}
	}
	writeMessage(w, http.StatusOK, "ok")
}
