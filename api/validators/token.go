package validators

import (
	"net/http"
	"strings"
)

// AccessToken returns the bearer token from the Authorization header, falling
// back to the session cookie. An empty string means no credentials were sent.
func AccessToken(r *http.Request, cookieName string) string {
	if r == nil {
		return ""
	}
	if raw := strings.TrimSpace(r.Header.Get("Authorization")); raw != "" {
		if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
			return strings.TrimSpace(raw[7:])
		}
		return ""
	}
	if cookieName == "" {
		return ""
	}
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}
