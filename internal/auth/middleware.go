package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/distribusi/internal/platform/httpx"
	"github.com/odyssey-erp/distribusi/internal/shared"
)

const realm = `Basic realm="distribusi"`

// Middleware authenticates every request and stores the actor in context.
func Middleware(service *Service, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, password, ok := r.BasicAuth()
			if !ok {
				w.Header().Set("WWW-Authenticate", realm)
				httpx.RespondError(w, shared.ErrInvalidCredentials)
				return
			}
			user, err := service.Authenticate(r.Context(), username, password)
			if err != nil {
				if errors.Is(err, shared.ErrInvalidCredentials) {
					logger.Warn("authentication failed", slog.String("username", username))
					w.Header().Set("WWW-Authenticate", realm)
				} else {
					logger.Error("authentication lookup", slog.Any("error", err))
				}
				httpx.RespondError(w, err)
				return
			}
			actor := shared.Actor{ID: user.ID, Username: user.Username, Role: user.Role}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithActor(r.Context(), actor)))
		})
	}
}

// RequireRole rejects actors whose role is not one of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := shared.ActorFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, shared.ErrInvalidCredentials)
				return
			}
			for _, role := range roles {
				if actor.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			httpx.RespondError(w, shared.ErrForbidden)
		})
	}
}

// Me returns the authenticated actor.
func Me(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	httpx.JSON(w, http.StatusOK, actor)
}
