package middleware

import (
	"context"
	"net/http"

	"tienda-be/internal/admin"
	"tienda-be/internal/auth"
	"tienda-be/internal/logger"
	"tienda-be/internal/utils"

	"go.uber.org/zap"
)

// SessionChecker resolves a session token; *admin.Gate implements it.
type SessionChecker interface {
	Check(ctx context.Context, token string) (admin.Status, error)
}

// AdminOnly lets a request through only with a live admin session.
func AdminOnly(gate SessionChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			status, err := gate.Check(r.Context(), auth.ExtractSessionToken(r))
			if err != nil {
				logger.FromCtx(r.Context()).Error("session check failed", zap.Error(err))
				utils.WriteJSONError(w, err.Error(), http.StatusInternalServerError)
				return
			}
			if !status.LoggedIn {
				utils.WriteJSONError(w, "No autorizado", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
