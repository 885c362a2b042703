// Package auth mints and verifies the HS256 access tokens handed out at
// login. Each token's jti names the redis session that keeps it alive.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/pharmacy-backend/pkg/config"
	"github.com/angelmondragon/pharmacy-backend/pkg/enums"
)

var signingMethod = jwt.SigningMethodHS256

// AccessTokenPayload is what login knows when it mints a token. An empty JTI
// gets a fresh uuid.
type AccessTokenPayload struct {
	AccountID uuid.UUID
	Username  string
	Role      enums.Role
	JTI       string
}

type AccessTokenClaims struct {
	AccountID uuid.UUID  `json:"account_id"`
	Username  string     `json:"username,omitempty"`
	Role      enums.Role `json:"role"`
	jwt.RegisteredClaims
}

// Validate runs after the registered-claim checks during parsing.
func (c AccessTokenClaims) Validate() error {
	if c.AccountID == uuid.Nil {
		return errors.New("token has no account id")
	}
	if !c.Role.IsValid() {
		return fmt.Errorf("invalid role claim %q", c.Role)
	}
	return nil
}

func checkSigningConfig(cfg config.JWTConfig) error {
	switch {
	case cfg.Secret == "":
		return errors.New("jwt secret is required")
	case cfg.Issuer == "":
		return errors.New("jwt issuer is required")
	}
	return nil
}

func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	if err := checkSigningConfig(cfg); err != nil {
		return "", err
	}
	ttl := cfg.AccessTTL()
	if ttl <= 0 {
		return "", errors.New("jwt expiration minutes must be positive")
	}

	jti := strings.TrimSpace(payload.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}
	claims := AccessTokenClaims{
		AccountID: payload.AccountID,
		Username:  payload.Username,
		Role:      payload.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    cfg.Issuer,
			Subject:   payload.AccountID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if err := claims.Validate(); err != nil {
		return "", err
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseAccessToken verifies signature, issuer and expiry.
func ParseAccessToken(cfg config.JWTConfig, token string) (*AccessTokenClaims, error) {
	return parseToken(cfg, token, true)
}

// ParseAccessTokenAllowExpired skips time-based checks so logout can revoke
// the session behind an expired token. Signature and issuer still apply.
func ParseAccessTokenAllowExpired(cfg config.JWTConfig, token string) (*AccessTokenClaims, error) {
	return parseToken(cfg, token, false)
}

func parseToken(cfg config.JWTConfig, token string, checkTimes bool) (*AccessTokenClaims, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{signingMethod.Alg()})}
	if !checkTimes {
		// also disables the issuer and Validate hooks, so both are run by hand
		opts = append(opts, jwt.WithoutClaimsValidation())
	} else {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer), jwt.WithExpirationRequired())
	}

	claims := &AccessTokenClaims{}
	if _, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	}, opts...); err != nil {
		return nil, err
	}
	if !checkTimes {
		if claims.Issuer != cfg.Issuer {
			return nil, fmt.Errorf("%w: unexpected issuer %q", jwt.ErrTokenInvalidIssuer, claims.Issuer)
		}
		if err := claims.Validate(); err != nil {
			return nil, err
		}
	}
	return claims, nil
}
