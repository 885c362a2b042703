package middleware

import (
	"net/http"

	"github.com/angelmondragon/pharmacy-backend/api/responses"
	"github.com/angelmondragon/pharmacy-backend/internal/authz"
	"github.com/angelmondragon/pharmacy-backend/pkg/logger"
)

// RequireCapability rejects callers whose role lacks capability before the
// handler runs. Services repeat the check; this keeps whole route groups closed.
func RequireCapability(capability authz.Capability, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := authz.RequireFromContext(r.Context(), capability); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
