// Package authz maps account roles to the capabilities each request needs.
// Every handler asks one question, Principal.Require(capability), instead of
// comparing role strings.
package authz

import (
	"context"

	pkgerrors "github.com/angelmondragon/pharmacy-backend/pkg/errors"
	"github.com/angelmondragon/pharmacy-backend/pkg/enums"
	"github.com/google/uuid"
)

// Capability names one permission checked at the request boundary.
type Capability string

const (
	SalesRead          Capability = "sales:read"
	SalesWrite         Capability = "sales:write"
	InventoryRead      Capability = "inventory:read"
	InventoryWrite     Capability = "inventory:write"
	CatalogWrite       Capability = "catalog:write"
	PrescriptionsRead  Capability = "prescriptions:read"
	PrescriptionsWrite Capability = "prescriptions:write"
	DiscountsWrite     Capability = "discounts:write"
	AccountsManage     Capability = "accounts:manage"
	CustomersRead      Capability = "customers:read"
	DashboardRead      Capability = "dashboard:read"
)

var staffCapabilities = []Capability{
	SalesRead,
	SalesWrite,
	InventoryRead,
	InventoryWrite,
	CatalogWrite,
	PrescriptionsRead,
	PrescriptionsWrite,
	DiscountsWrite,
	CustomersRead,
	DashboardRead,
}

var grants = map[enums.Role]map[Capability]struct{}{
	enums.RoleAdmin:      setOf(append([]Capability{AccountsManage}, staffCapabilities...)...),
	enums.RolePharmacist: setOf(staffCapabilities...),
	enums.RoleCustomer:   setOf(PrescriptionsRead),
}

func setOf(caps ...Capability) map[Capability]struct{} {
	out := make(map[Capability]struct{}, len(caps))
	for _, c := range caps {
		out[c] = struct{}{}
	}
	return out
}

// Allows reports whether role carries capability.
func Allows(role enums.Role, capability Capability) bool {
	_, ok := grants[role][capability]
	return ok
}

// Principal is the authenticated caller resolved once per request.
type Principal struct {
	AccountID uuid.UUID
	Role      enums.Role
	SessionID string
}

// Can reports whether the principal holds capability.
func (p Principal) Can(capability Capability) bool {
	return Allows(p.Role, capability)
}

// Require returns a FORBIDDEN error when the principal lacks capability.
func (p Principal) Require(capability Capability) error {
	if p.Can(capability) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "insufficient permissions").
		WithDetails(map[string]any{"capability": string(capability), "role": string(p.Role)})
}

type principalKey struct{}

// WithPrincipal stores p on ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal attached by the auth middleware.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.AccountID != uuid.Nil
}

// RequireFromContext resolves the caller and checks capability in one step.
// A missing caller is UNAUTHORIZED; a caller without the capability is FORBIDDEN.
func RequireFromContext(ctx context.Context, capability Capability) (Principal, error) {
	p, ok := FromContext(ctx)
	if !ok {
		return Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if err := p.Require(capability); err != nil {
		return Principal{}, err
	}
	return p, nil
}
