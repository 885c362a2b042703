package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/pharmacy-backend/internal/authz"
	"github.com/angelmondragon/pharmacy-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pharmacy-backend/pkg/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requestWithPattern(method, url, pattern string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, url, body)
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{pattern}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func asCaller(req *http.Request, id uuid.UUID) *http.Request {
	ctx := authz.WithPrincipal(req.Context(), authz.Principal{AccountID: id, Role: enums.RolePharmacist, SessionID: "s"})
	return req.WithContext(ctx)
}

func saleRequest(body, key string, caller uuid.UUID) *http.Request {
	req := requestWithPattern(http.MethodPost, "/api/v1/sales", "/api/v1/sales", strings.NewReader(body))
	if key != "" {
		req.Header.Set(idempotencyHeader, key)
	}
	return asCaller(req, caller)
}

func TestMatchRoute(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		pattern string
		ok      bool
	}{
		{"create sale", http.MethodPost, "/api/v1/sales", true},
		{"trailing slash", http.MethodPost, "/api/v1/sales/", true},
		{"create prescription", http.MethodPost, "/api/v1/prescriptions", true},
		{"list sales", http.MethodGet, "/api/v1/sales", false},
		{"update sale", http.MethodPut, "/api/v1/sales/{id}", false},
		{"login", http.MethodPost, "/api/v1/auth/login", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.ok, matchRoute(tt.method, tt.pattern), tt.name)
	}
}

func TestIdempotencyWithoutHeaderPassesThrough(t *testing.T) {
	store, mr := newRedisStore(t)
	var calls int
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	caller := uuid.New()
	for i := 0; i < 2; i++ {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, saleRequest(`{"saleNumber":"S-1"}`, "", caller))
		assert.Equal(t, http.StatusCreated, resp.Code)
		assert.Empty(t, resp.Header().Get(replayedHeader))
	}
	assert.Equal(t, 2, calls)
	assert.Empty(t, mr.Keys())
}

func TestIdempotencyRejectsOversizedKey(t *testing.T) {
	store, _ := newRedisStore(t)
	handlerCalled := false
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusCreated)
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, saleRequest(`{}`, strings.Repeat("k", maxIdempotencyKeyBytes+1), uuid.New()))

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.False(t, handlerCalled)
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store, mr := newRedisStore(t)
	caller := uuid.New()
	var calls int
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"saleId":"abc"}}`))
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, saleRequest(`{"saleNumber":"S-1"}`, "abc", caller))
	require.Equal(t, http.StatusCreated, resp.Code)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, saleRequest(`{"saleNumber":"S-1"}`, "abc", caller))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "true", rec.Header().Get("Idempotent-Replayed"))
	assert.JSONEq(t, `{"data":{"saleId":"abc"}}`, rec.Body.String())
	assert.Equal(t, 1, calls)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], "rx:idempotency:"+caller.String()))
	assert.Equal(t, time.Hour, mr.TTL(keys[0]))
}

func TestIdempotencyScopesKeysPerCaller(t *testing.T) {
	store, _ := newRedisStore(t)
	var calls int
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), saleRequest(`{}`, "same", uuid.New()))
	handler.ServeHTTP(httptest.NewRecorder(), saleRequest(`{}`, "same", uuid.New()))
	assert.Equal(t, 2, calls)
}

func TestIdempotencyDetectsBodyChange(t *testing.T) {
	store, _ := newRedisStore(t)
	caller := uuid.New()
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), saleRequest(`{"saleNumber":"S-1"}`, "xyz", caller))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, saleRequest(`{"saleNumber":"S-2"}`, "xyz", caller))

	require.Equal(t, http.StatusConflict, resp.Code)
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	assert.Equal(t, string(pkgerrors.CodeIdempotency), payload.Error.Code)
}

func TestIdempotencySkipsServerFailures(t *testing.T) {
	store, _ := newRedisStore(t)
	caller := uuid.New()
	var calls int
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, saleRequest(`{}`, "retry", caller))
	assert.Equal(t, http.StatusServiceUnavailable, first.Code)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, saleRequest(`{}`, "retry", caller))
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, 2, calls)
}

func TestIdempotencyDiscardsCorruptRecord(t *testing.T) {
	store, mr := newRedisStore(t)
	caller := uuid.New()
	req := saleRequest(`{}`, "bad", caller)
	require.NoError(t, mr.Set(store.IdempotencyKey(buildScope(req), "bad"), "not-json"))

	var calls int
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, 1, calls)
}
