package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/pharmacy-backend/internal/authz"
	pkgerrors "github.com/angelmondragon/pharmacy-backend/pkg/errors"
	"github.com/google/uuid"
)

// caller returns the principal attached by the auth middleware.
func caller(r *http.Request) (authz.Principal, error) {
	p, ok := authz.FromContext(r.Context())
	if !ok {
		return authz.Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return p, nil
}

func unavailable(name string) error {
	return pkgerrors.Newf(pkgerrors.CodeInternal, "%s service unavailable", name)
}

// parseDate accepts a calendar day or a full RFC 3339 timestamp and returns UTC.
func parseDate(field, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{"2006-01-02", time.RFC3339Nano} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid date").
		WithDetails(map[string]string{field: "must be YYYY-MM-DD or RFC 3339"})
}

func parseOptionalDate(field string, raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	t, err := parseDate(field, *raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseOptionalUUID(field string, raw *string) (*uuid.UUID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(*raw))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid id").
			WithDetails(map[string]string{field: "must be a valid uuid"})
	}
	return &id, nil
}
