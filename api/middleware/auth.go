package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/angelmondragon/pharmacy-backend/api/responses"
	"github.com/angelmondragon/pharmacy-backend/api/validators"
	"github.com/angelmondragon/pharmacy-backend/internal/authz"
	pkgAuth "github.com/angelmondragon/pharmacy-backend/pkg/auth"
	"github.com/angelmondragon/pharmacy-backend/pkg/auth/session"
	"github.com/angelmondragon/pharmacy-backend/pkg/config"
	"github.com/angelmondragon/pharmacy-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pharmacy-backend/pkg/errors"
	"github.com/angelmondragon/pharmacy-backend/pkg/logger"
	"github.com/google/uuid"
)

// SessionLookup resolves the account bound to a token's jti.
type SessionLookup interface {
	Lookup(ctx context.Context, accessID string) (uuid.UUID, error)
}

// AccountResolver loads an account that may act on the API right now.
type AccountResolver interface {
	Authenticate(ctx context.Context, accountID uuid.UUID) (*models.Account, error)
}

// Auth validates the access token (bearer header or session cookie), checks
// that its Redis session is still live and seeds the request with the caller.
// The role is read from the stored account so demotions and suspensions take
// effect without waiting for the token to expire.
func Auth(jwtCfg config.JWTConfig, cookieName string, sessions SessionLookup, accounts AccountResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := validators.AccessToken(r, cookieName)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(jwtCfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			if claims.ID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id"))
				return
			}

			owner, err := sessions.Lookup(r.Context(), claims.ID)
			if err != nil {
				if errors.Is(err, session.ErrSessionNotFound) {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable"))
					return
				}
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session"))
				return
			}
			if owner != claims.AccountID {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable"))
				return
			}

			account, err := accounts.Authenticate(r.Context(), claims.AccountID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := authz.WithPrincipal(r.Context(), authz.Principal{
				AccountID: account.ID,
				Role:      account.Role,
				SessionID: claims.ID,
			})
			if logg != nil {
				ctx = logg.WithAccountID(ctx, account.ID.String())
				ctx = logg.WithActorRole(ctx, string(account.Role))
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
