package middleware

import (
	"net/http"
	"time"

	"github.com/angelmondragon/pharmacy-backend/api/responses"
	"github.com/angelmondragon/pharmacy-backend/internal/authz"
	pkgerrors "github.com/angelmondragon/pharmacy-backend/pkg/errors"
	"github.com/angelmondragon/pharmacy-backend/pkg/logger"
	"github.com/go-chi/httprate"
)

// Throttle limits authenticated traffic per account, falling back to the
// client IP when no caller is attached. A non-positive limit disables it.
func Throttle(requestsPerMinute int, logg *logger.Logger) func(http.Handler) http.Handler {
	if requestsPerMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(requestsPerMinute, time.Minute,
		httprate.WithKeyFuncs(throttleKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests"))
		}),
	)
}

func throttleKey(r *http.Request) (string, error) {
	if p, ok := authz.FromContext(r.Context()); ok {
		return "account:" + p.AccountID.String(), nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
