package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	pkgerrors "github.com/angelmondragon/pharmacy-backend/pkg/errors"
	pkgredis "github.com/angelmondragon/pharmacy-backend/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*pkgredis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := pkgredis.NewFromClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func loginRequest(body, remote string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.RemoteAddr = remote
	return req
}

func TestAuthRateLimit_AllowsUnderLimitAndPreservesBody(t *testing.T) {
	store, _ := newRedisStore(t)
	policy := NewAuthRateLimitPolicy("login", time.Minute, 2, 2)
	handler := AuthRateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), `"identifier":"pharmacist1"`)
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest(`{"identifier":"pharmacist1","password":"secret"}`, "1.2.3.4:5678"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRateLimit_IdentifierLimitTriggers(t *testing.T) {
	store, _ := newRedisStore(t)
	policy := NewAuthRateLimitPolicy("login", time.Minute, 0, 2)
	handler := AuthRateLimit(policy, store, nil)(okHandler())

	for i := 0; i < 3; i++ {
		// different IPs, same identifier with varying case
		body := `{"identifier":"Blocked@Example.com","password":"secret"}`
		if i == 1 {
			body = `{"identifier":"blocked@example.com ","password":"secret"}`
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, loginRequest(body, "10.0.0."+string(rune('1'+i))+":5678"))

		if i < 2 {
			assert.Equal(t, http.StatusOK, rec.Code, "attempt %d", i)
			continue
		}
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		var payload struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
		assert.Equal(t, string(pkgerrors.CodeRateLimit), payload.Error.Code)
	}
}

func TestAuthRateLimit_IPLimitTriggers(t *testing.T) {
	store, _ := newRedisStore(t)
	policy := NewAuthRateLimitPolicy("register", time.Minute, 1, 0)
	handler := AuthRateLimit(policy, store, nil)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest(`{"username":"a","email":"a@example.com"}`, "5.6.7.8:1234"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest(`{"username":"b","email":"b@example.com"}`, "5.6.7.8:1234"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestAuthRateLimit_WindowExpires(t *testing.T) {
	store, mr := newRedisStore(t)
	policy := NewAuthRateLimitPolicy("login", time.Minute, 1, 0)
	handler := AuthRateLimit(policy, store, nil)(okHandler())

	for _, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, loginRequest(`{}`, "9.9.9.9:1"))
		assert.Equal(t, want, rec.Code)
	}

	mr.FastForward(time.Minute + time.Second)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest(`{}`, "9.9.9.9:1"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRateLimit_StoreFailureIsDependencyError(t *testing.T) {
	store, mr := newRedisStore(t)
	mr.Close()
	policy := NewAuthRateLimitPolicy("login", time.Minute, 1, 1)
	handler := AuthRateLimit(policy, store, nil)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest(`{"identifier":"x"}`, "1.1.1.1:1"))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAuthRateLimit_DisabledPolicyPassesThrough(t *testing.T) {
	policy := NewAuthRateLimitPolicy("login", 0, 5, 5)
	handler := AuthRateLimit(policy, nil, nil)(okHandler())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest(`{}`, "1.1.1.1:1"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	assert.Equal(t, "10.0.0.1", clientIP(req))

	req.Header.Set("X-Real-IP", "172.16.0.1")
	assert.Equal(t, "172.16.0.1", clientIP(req))

	req.Header.Set("X-Forwarded-For", " 203.0.113.5, 10.0.0.1")
	assert.Equal(t, "203.0.113.5", clientIP(req))
}
