package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dtroode/fintrack-server/internal/api/http/handler"
	"github.com/dtroode/fintrack-server/internal/api/http/middleware"
	"github.com/dtroode/fintrack-server/internal/logger"
	"github.com/dtroode/fintrack-server/internal/model"
)

// Router builds the chi handlers of the fintrack services.
type Router struct {
	tokenManager   model.TokenManager
	contextManager model.ContextManager
	pinger         handler.Pinger
	corsOrigins    []string
	logger         *logger.Logger
}

// New creates new HTTP Router instance. pinger backs /healthz and may be nil.
func New(
	tokenManager model.TokenManager,
	contextManager model.ContextManager,
	pinger handler.Pinger,
	corsOrigins []string,
	logger *logger.Logger,
) *Router {
	return &Router{
		tokenManager:   tokenManager,
		contextManager: contextManager,
		pinger:         pinger,
		corsOrigins:    corsOrigins,
		logger:         logger,
	}
}

// NewBase returns a chi router with recovery, CORS, request logging,
// /healthz and JSON fallbacks installed.
func NewBase(corsOrigins []string, pinger handler.Pinger, logger *logger.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.NewLogging(logger).Handle)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/healthz", handler.NewHealth(pinger).Check)
	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)
	return r
}

// Auth returns the handler of the auth service.
func (rt *Router) Auth(svc handler.AuthService) http.Handler {
	h := handler.NewAuth(svc, rt.contextManager, rt.logger)
	authenticate := middleware.NewAuthenticate(rt.tokenManager, rt.contextManager, rt.logger)

	r := NewBase(rt.corsOrigins, rt.pinger, rt.logger)
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.With(authenticate.Handle).Get("/me", h.Me)
	})
	return r
}

// Budget returns the handler of the budget service.
func (rt *Router) Budget(svc handler.BudgetService) http.Handler {
	h := handler.NewBudget(svc, rt.contextManager, rt.logger)
	authenticate := middleware.NewAuthenticate(rt.tokenManager, rt.contextManager, rt.logger)

	r := NewBase(rt.corsOrigins, rt.pinger, rt.logger)
	r.Route("/api/budgets", func(r chi.Router) {
		r.Use(authenticate.Handle)
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
	return r
}

// Payment returns the handler of the payment service.
func (rt *Router) Payment(svc handler.PaymentService, maxUpload int64) http.Handler {
	h := handler.NewPayment(svc, rt.contextManager, rt.logger, maxUpload)
	authenticate := middleware.NewAuthenticate(rt.tokenManager, rt.contextManager, rt.logger)

	r := NewBase(rt.corsOrigins, rt.pinger, rt.logger)
	r.Route("/api/payments", func(r chi.Router) {
		r.Use(authenticate.Handle)
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Post("/bulk-delete", h.BulkDelete)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/attachments", h.AddAttachment)
		r.Get("/{id}/attachments", h.GetAttachment)
	})
	return r
}
