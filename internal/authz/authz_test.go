package authz

import (
	"context"
	"testing"

	pkgerrors "github.com/angelmondragon/pharmacy-backend/pkg/errors"
	"github.com/angelmondragon/pharmacy-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapabilityMatrix(t *testing.T) {
	tests := []struct {
		role  enums.Role
		cap   Capability
		allow bool
	}{
		{enums.RoleAdmin, SalesWrite, true},
		{enums.RoleAdmin, AccountsManage, true},
		{enums.RolePharmacist, SalesWrite, true},
		{enums.RolePharmacist, SalesRead, true},
		{enums.RolePharmacist, AccountsManage, false},
		{enums.RolePharmacist, CustomersRead, true},
		{enums.RoleCustomer, SalesWrite, false},
		{enums.RoleCustomer, SalesRead, false},
		{enums.RoleCustomer, InventoryRead, false},
		{enums.RoleCustomer, PrescriptionsRead, true},
		{enums.Role("ghost"), SalesRead, false},
	}
	for _, tt := range tests {
		assert.Equalf(t, tt.allow, Allows(tt.role, tt.cap), "%s/%s", tt.role, tt.cap)
	}
}

func TestPrincipalRequire(t *testing.T) {
	p := Principal{AccountID: uuid.New(), Role: enums.RoleCustomer}
	err := p.Require(SalesWrite)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
	assert.NoError(t, p.Require(PrescriptionsRead))
}

func TestRequireFromContext(t *testing.T) {
	_, err := RequireFromContext(context.Background(), SalesRead)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())

	ctx := WithPrincipal(context.Background(), Principal{AccountID: uuid.New(), Role: enums.RolePharmacist})
	p, err := RequireFromContext(ctx, SalesWrite)
	require.NoError(t, err)
	assert.Equal(t, enums.RolePharmacist, p.Role)

	ctx = WithPrincipal(context.Background(), Principal{AccountID: uuid.New(), Role: enums.RoleCustomer})
	_, err = RequireFromContext(ctx, SalesWrite)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}
