package sales

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/pharmacy-backend/pkg/db/dbtest"
	"github.com/angelmondragon/pharmacy-backend/pkg/db/models"
	"github.com/angelmondragon/pharmacy-backend/pkg/enums"
	"github.com/angelmondragon/pharmacy-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryListPagesByCreatedAt(t *testing.T) {
	ctx := context.Background()
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, client.DB().Create(&models.Sale{
			SaleNumber:    fmt.Sprintf("S-%d", i),
			PharmacistID:  uuid.New(),
			Subtotal:      decimal.Zero,
			TotalAmount:   decimal.Zero,
			PaymentMethod: enums.PaymentMethodCard,
			CreatedAt:     base.Add(time.Duration(i) * time.Hour),
		}).Error)
	}
	require.NoError(t, client.DB().Create(&models.Sale{
		SaleNumber:    "S-next-day",
		PharmacistID:  uuid.New(),
		PaymentMethod: enums.PaymentMethodCash,
		CreatedAt:     base.AddDate(0, 0, 1),
	}).Error)

	from := base.Truncate(24 * time.Hour)
	to := from.AddDate(0, 0, 1)
	rows, err := repo.List(ctx, listQuery{Limit: 2, From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, rows, 3, "limit is buffered by one to detect the next page")

	page := pagination.Paginate(rows, 2, summaryCursor)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "S-2", page.Items[0].SaleNumber)
	assert.Equal(t, "S-1", page.Items[1].SaleNumber)
	require.NotEmpty(t, page.NextCursor)

	cursor, err := pagination.ParseCursor(page.NextCursor)
	require.NoError(t, err)
	rows, err = repo.List(ctx, listQuery{Limit: 2, Cursor: cursor, From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "S-0", rows[0].SaleNumber)
	assert.Equal(t, enums.SaleStatusCompleted, rows[0].Status)
}

func TestRepositoryDeleteSaleRemovesItems(t *testing.T) {
	ctx := context.Background()
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())

	sale := &models.Sale{SaleNumber: "S-1", PharmacistID: uuid.New(), PaymentMethod: enums.PaymentMethodCash}
	require.NoError(t, repo.CreateSale(ctx, sale))
	require.NoError(t, repo.CreateItems(ctx, []models.SaleItem{
		{SaleID: sale.ID, MedicineID: uuid.New(), Quantity: 1, UnitPrice: decimal.NewFromInt(1), TotalPrice: decimal.NewFromInt(1)},
		{SaleID: sale.ID, MedicineID: uuid.New(), Quantity: 2, UnitPrice: decimal.NewFromInt(1), TotalPrice: decimal.NewFromInt(2)},
	}))

	locked, err := repo.LockSale(ctx, sale.ID)
	require.NoError(t, err)
	assert.Len(t, locked.Items, 2)

	require.NoError(t, repo.DeleteSale(ctx, sale.ID))
	var n int64
	require.NoError(t, client.DB().Model(&models.SaleItem{}).Count(&n).Error)
	assert.Zero(t, n)
	assert.Error(t, repo.DeleteSale(ctx, sale.ID))
}

func TestRepositorySumTotalsSkipsRefunded(t *testing.T) {
	ctx := context.Background()
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	day := time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)

	for i, s := range []struct {
		total  string
		status enums.SaleStatus
		at     time.Time
	}{
		{"10.50", enums.SaleStatusCompleted, day.Add(time.Hour)},
		{"4.25", enums.SaleStatusPending, day.Add(2 * time.Hour)},
		{"99.00", enums.SaleStatusRefunded, day.Add(3 * time.Hour)},
		{"50.00", enums.SaleStatusCompleted, day.AddDate(0, 0, 1)},
	} {
		require.NoError(t, client.DB().Create(&models.Sale{
			SaleNumber:    fmt.Sprintf("S-%d", i),
			PharmacistID:  uuid.New(),
			TotalAmount:   decimal.RequireFromString(s.total),
			PaymentMethod: enums.PaymentMethodCash,
			Status:        s.status,
			CreatedAt:     s.at,
		}).Error)
	}

	total, err := repo.SumTotalsBetween(ctx, day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.RequireFromString("14.75")), total.String())

	total, err = repo.SumTotalsBetween(ctx, day.AddDate(0, 0, 5), day.AddDate(0, 0, 6))
	require.NoError(t, err)
	assert.True(t, total.IsZero())
}
