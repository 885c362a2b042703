package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/pharmacy-backend/api/responses"
	"github.com/angelmondragon/pharmacy-backend/internal/authz"
	pkgerrors "github.com/angelmondragon/pharmacy-backend/pkg/errors"
	"github.com/angelmondragon/pharmacy-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/pharmacy-backend/pkg/redis"
)

const (
	idempotencyHeader      = "Idempotency-Key"
	replayedHeader         = "Idempotent-Replayed"
	defaultIdempotencyTTL  = 24 * time.Hour
	maxIdempotencyKeyBytes = 128
)

// Retried POSTs carrying the same Idempotency-Key get the first response back
// instead of creating a second record. Requests without the header run as-is.
var idempotentRoutes = map[string]struct{}{
	"POST /api/v1/sales":         {},
	"POST /api/v1/prescriptions": {},
	"POST /api/v1/discounts":     {},
	"POST /api/v1/inventory":     {},
}

// storedResponse is the JSON value kept in redis for one key.
type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
	BodySHA256  string `json:"body_sha256"`
}

type idempotencyGuard struct {
	store pkgredis.IdempotencyStore
	ttl   time.Duration
	logg  *logger.Logger
}

// Idempotency replays the stored response for a repeated Idempotency-Key on
// the routes in idempotentRoutes. Responses of 500 and above are not stored,
// so those requests can be retried.
func Idempotency(store pkgredis.IdempotencyStore, ttl time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	g := &idempotencyGuard{store: store, ttl: ttl, logg: logg}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !matchRoute(r.Method, routePattern(r)) || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			if err := g.serve(w, r, next); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
			}
		})
	}
}

// serve returns an error only when nothing has been written to w yet.
func (g *idempotencyGuard) serve(w http.ResponseWriter, r *http.Request, next http.Handler) error {
	clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	switch {
	case clientKey == "":
		next.ServeHTTP(w, r)
		return nil
	case len(clientKey) > maxIdempotencyKeyBytes:
		return pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header too long")
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request")
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	sum := sha256.Sum256(body)
	digest := hex.EncodeToString(sum[:])
	key := g.store.IdempotencyKey(buildScope(r), clientKey)

	prior, err := g.lookup(r.Context(), key)
	if err != nil {
		return err
	}
	if prior != nil {
		if prior.BodySHA256 != digest {
			return pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body")
		}
		if g.logg != nil {
			g.logg.Info(g.logg.WithField(r.Context(), "idempotency_key", clientKey), "idempotency.replay")
		}
		prior.replay(w)
		return nil
	}

	capture := &responseCapture{ResponseWriter: w}
	next.ServeHTTP(capture, r)
	g.persist(r.Context(), key, capture, digest)
	return nil
}

// lookup returns nil when no usable record exists. Records that no longer
// decode are deleted and treated as absent.
func (g *idempotencyGuard) lookup(ctx context.Context, key string) (*storedResponse, error) {
	raw, err := g.store.Get(ctx, key)
	if errors.Is(err, redis.Nil) || (err == nil && raw == "") {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency")
	}

	var rec storedResponse
	if err := json.Unmarshal([]byte(raw), &rec); err == nil && rec.Status != 0 {
		return &rec, nil
	}
	g.logFailure(ctx, "discard corrupt idempotency record", errors.New("undecodable idempotency record"))
	if err := g.store.Del(ctx, key); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset idempotency record")
	}
	return nil, nil
}

func (g *idempotencyGuard) persist(ctx context.Context, key string, capture *responseCapture, digest string) {
	status := capture.status
	if status == 0 {
		status = http.StatusOK
	}
	if status >= http.StatusInternalServerError {
		return
	}
	payload, err := json.Marshal(storedResponse{
		Status:      status,
		ContentType: capture.Header().Get("Content-Type"),
		Body:        capture.body.Bytes(),
		BodySHA256:  digest,
	})
	if err != nil {
		g.logFailure(ctx, "marshal idempotency record", err)
		return
	}
	if _, err := g.store.SetNX(ctx, key, string(payload), g.ttl); err != nil {
		g.logFailure(ctx, "persist idempotency record", err)
	}
}

func (g *idempotencyGuard) logFailure(ctx context.Context, msg string, err error) {
	if g.logg != nil {
		g.logg.Error(ctx, msg, err)
	}
}

func (s *storedResponse) replay(w http.ResponseWriter) {
	if s.ContentType != "" {
		w.Header().Set("Content-Type", s.ContentType)
	}
	w.Header().Set(replayedHeader, "true")
	w.WriteHeader(s.Status)
	_, _ = w.Write(s.Body)
}

// buildScope keys records per caller so two accounts cannot collide on a
// client-chosen key.
func buildScope(r *http.Request) string {
	account := "anonymous"
	if p, ok := authz.FromContext(r.Context()); ok {
		account = p.AccountID.String()
	}
	return account + "|" + r.Method + "|" + r.URL.Path
}

// routePattern falls back to the raw path while chi only knows the
// group's wildcard pattern.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" && !strings.HasSuffix(p, "*") {
			return p
		}
	}
	return r.URL.Path
}

func matchRoute(method, pattern string) bool {
	pattern = strings.TrimSuffix(pattern, "/")
	_, ok := idempotentRoutes[method+" "+pattern]
	return ok
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}
