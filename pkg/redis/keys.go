package redis

import "strings"

// Every key lives under "rx:" followed by its purpose.
const (
	keyNamespace      = "rx"
	idempotencyPrefix = "idempotency"
	rateLimitPrefix   = "rate_limit"
	sessionPrefix     = "session"
)

func (c *Client) IdempotencyKey(scope, id string) string {
	return joinKey(idempotencyPrefix, scope, id)
}

func (c *Client) RateLimitKey(scope string) string {
	return joinKey(rateLimitPrefix, scope)
}

// AccessSessionKey is where the account id behind an access token's jti is
// stored.
func (c *Client) AccessSessionKey(accessID string) string {
	return joinKey(sessionPrefix, "access", accessID)
}

// joinKey drops blank segments so "rx::x" never appears.
func joinKey(parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			b.WriteByte(':')
			b.WriteString(part)
		}
	}
	return b.String()
}
