package seed

import (
	"context"
	"testing"

	"github.com/angelmondragon/pharmacy-backend/pkg/config"
	"github.com/angelmondragon/pharmacy-backend/pkg/db/dbtest"
	"github.com/angelmondragon/pharmacy-backend/pkg/db/models"
	"github.com/angelmondragon/pharmacy-backend/pkg/enums"
	"github.com/angelmondragon/pharmacy-backend/pkg/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastPassword = config.PasswordConfig{ArgonMemoryKB: 8192, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	conn := dbtest.Open(t).DB()
	s, err := New(conn, config.SeedConfig{
		AdminUsername: "admin",
		AdminEmail:    "admin@pharmacy.local",
		AdminPassword: "admin12345",
		SampleData:    true,
	}, fastPassword, nil)
	require.NoError(t, err)

	require.NoError(t, s.Run(ctx))
	require.NoError(t, s.Run(ctx))

	count := func(model any) int64 {
		var n int64
		require.NoError(t, conn.Model(model).Count(&n).Error)
		return n
	}
	assert.Equal(t, int64(4), count(&models.Category{}))
	assert.Equal(t, int64(5), count(&models.Medicine{}))
	assert.Equal(t, int64(5), count(&models.InventoryRecord{}))
	assert.Equal(t, int64(3), count(&models.Account{}))

	var admin models.Account
	require.NoError(t, conn.Where("username = ?", "admin").First(&admin).Error)
	assert.Equal(t, enums.RoleAdmin, admin.Role)
	ok, err := security.VerifyPassword("admin12345", admin.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	var amox models.Medicine
	require.NoError(t, conn.Where("sku = ?", "MED003").First(&amox).Error)
	assert.True(t, amox.RequiresPrescription)
	require.NotNil(t, amox.CategoryID)
}

func TestRunWithoutSampleData(t *testing.T) {
	conn := dbtest.Open(t).DB()
	s, err := New(conn, config.SeedConfig{SampleData: false}, fastPassword, nil)
	require.NoError(t, err)
	require.NoError(t, s.Run(context.Background()))

	var n int64
	require.NoError(t, conn.Model(&models.Account{}).Count(&n).Error)
	assert.Zero(t, n)
}
