package validators

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/pharmacy-backend/pkg/errors"
)

const dateLayout = "2006-01-02"

func badParam(field, msg string, extra ...any) error {
	details := map[string]any{"field": field}
	for i := 0; i+1 < len(extra); i += 2 {
		details[extra[i].(string)] = extra[i+1]
	}
	return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(details)
}

// optionalQuery parses the trimmed query value for key with parse. An
// absent or blank value yields nil.
func optionalQuery[T any](r *http.Request, key, msg string, parse func(string) (T, error)) (*T, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := parse(raw)
	if err != nil {
		return nil, badParam(key, msg)
	}
	return &v, nil
}

// ParseQueryInt returns defaultVal when key is absent and rejects values
// outside [min, max].
func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	v, err := optionalQuery(r, key, "query parameter must be numeric", strconv.Atoi)
	switch {
	case err != nil:
		return 0, err
	case v == nil:
		return defaultVal, nil
	case *v < min || *v > max:
		return 0, badParam(key, "query parameter out of range", "min", min, "max", max)
	}
	return *v, nil
}

func ParseQueryUUID(r *http.Request, key string) (*uuid.UUID, error) {
	return optionalQuery(r, key, "query parameter must be a uuid", uuid.Parse)
}

// ParseQueryDate reads YYYY-MM-DD as midnight UTC.
func ParseQueryDate(r *http.Request, key string) (*time.Time, error) {
	return optionalQuery(r, key, "query parameter must be a date (YYYY-MM-DD)", func(s string) (time.Time, error) {
		return time.ParseInLocation(dateLayout, s, time.UTC)
	})
}

// ParseQueryBool defaults to false.
func ParseQueryBool(r *http.Request, key string) (bool, error) {
	v, err := optionalQuery(r, key, "query parameter must be a boolean", strconv.ParseBool)
	if err != nil || v == nil {
		return false, err
	}
	return *v, nil
}

// ParseUUIDParam reads a chi route parameter such as {id}.
func ParseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, name)))
	if err != nil {
		return uuid.Nil, badParam(name, "invalid id")
	}
	return id, nil
}
