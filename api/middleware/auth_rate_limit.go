package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/pharmacy-backend/api/responses"
	pkgerrors "github.com/angelmondragon/pharmacy-backend/pkg/errors"
	"github.com/angelmondragon/pharmacy-backend/pkg/logger"
)

type rateLimiterStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// AuthRateLimitPolicy caps attempts per client IP and per submitted
// identifier within one window. A zero limit disables that counter.
type AuthRateLimitPolicy struct {
	name            string
	window          time.Duration
	ipLimit         int
	identifierLimit int
}

func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, identifierLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	return AuthRateLimitPolicy{name: name, window: window, ipLimit: ipLimit, identifierLimit: identifierLimit}
}

func (p AuthRateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.identifierLimit > 0)
}

// counter is one fixed-window bucket a request is charged against.
type counter struct {
	kind  string
	value string
	limit int
}

func (p AuthRateLimitPolicy) scope(c counter) string {
	return p.name + ":" + c.kind + ":" + c.value
}

// AuthRateLimit guards the login and register endpoints. The identifier is
// read from the JSON body and only its hash reaches redis or the logs.
func AuthRateLimit(policy AuthRateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			counters, err := policy.countersFor(r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request"))
				return
			}
			for _, c := range counters {
				allowed, hits, err := store.FixedWindowAllow(r.Context(), policy.scope(c), int64(c.limit), policy.window)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if !allowed {
					policy.reject(r.Context(), logg, w, c, hits)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// countersFor reads the body when an identifier counter is configured and
// restores it for the handler.
func (p AuthRateLimitPolicy) countersFor(r *http.Request) ([]counter, error) {
	var out []counter
	if ip := clientIP(r); p.ipLimit > 0 && ip != "" {
		out = append(out, counter{kind: "ip", value: ip, limit: p.ipLimit})
	}
	if p.identifierLimit <= 0 {
		return out, nil
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	if id := identifierOf(body); id != "" {
		sum := sha256.Sum256([]byte(id))
		out = append(out, counter{kind: "id", value: hex.EncodeToString(sum[:]), limit: p.identifierLimit})
	}
	return out, nil
}

func (p AuthRateLimitPolicy) reject(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, c counter, hits int64) {
	if logg != nil {
		field := "ip"
		if c.kind == "id" {
			field = "identifier_hash"
		}
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"policy":         p.name,
			"scope":          c.kind,
			field:            c.value,
			"attempts":       hits,
			"limit":          c.limit,
			"window_seconds": int(p.window.Seconds()),
		}), "auth.rate_limit.blocked")
	}
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
}

// clientIP trusts the first X-Forwarded-For hop, then X-Real-IP, then the
// socket peer.
func clientIP(r *http.Request) string {
	if first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ","); strings.TrimSpace(first) != "" {
		return strings.TrimSpace(first)
	}
	if xr := strings.TrimSpace(r.Header.Get("X-Real-IP")); xr != "" {
		return xr
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// identifierOf returns the normalised identifier, username or email of an
// auth payload, whichever is set first.
func identifierOf(payload []byte) string {
	var body struct {
		Identifier string `json:"identifier"`
		Username   string `json:"username"`
		Email      string `json:"email"`
	}
	if json.Unmarshal(payload, &body) != nil {
		return ""
	}
	for _, v := range [...]string{body.Identifier, body.Username, body.Email} {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			return v
		}
	}
	return ""
}
