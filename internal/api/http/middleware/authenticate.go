package middleware

import (
	"net/http"
	"strings"

	"github.com/dtroode/fintrack-server/internal/api/http/handler"
	"github.com/dtroode/fintrack-server/internal/logger"
	"github.com/dtroode/fintrack-server/internal/model"
)

const bearerPrefix = "Bearer "

// Authenticate validates bearer tokens and injects the caller identity into context.
type Authenticate struct {
	tokenManager   model.TokenManager
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(tokenManager model.TokenManager, contextManager model.ContextManager, logger *logger.Logger) *Authenticate {
	return &Authenticate{tokenManager: tokenManager, contextManager: contextManager, logger: logger}
}

// Handle rejects requests without a valid "Authorization: Bearer" token.
func (m *Authenticate) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			handler.WriteError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		identity, err := m.tokenManager.Parse(strings.TrimPrefix(header, bearerPrefix))
		if err != nil {
			m.logger.Debug("HTTP request rejected", "path", r.URL.Path, "error", err.Error())
			handler.WriteError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		next.ServeHTTP(w, r.WithContext(m.contextManager.SetIdentityToContext(r.Context(), identity)))
	})
}
