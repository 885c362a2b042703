package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/pharmacy-backend/pkg/db/dbtest"
	"github.com/angelmondragon/pharmacy-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pharmacy-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedMedicine(t *testing.T, conn *gorm.DB, sku string, qty int) models.Medicine {
	t.Helper()
	med := models.Medicine{
		Name:     "Medicine " + sku,
		SKU:      sku,
		Price:    decimal.RequireFromString("2.00"),
		IsActive: true,
	}
	require.NoError(t, conn.Create(&med).Error)
	if qty >= 0 {
		require.NoError(t, conn.Create(&models.InventoryRecord{
			MedicineID:    med.ID,
			Quantity:      qty,
			MinStockLevel: DefaultMinStockLevel,
		}).Error)
	}
	return med
}

func quantityOf(t *testing.T, conn *gorm.DB, medicineID uuid.UUID) int {
	t.Helper()
	var rec models.InventoryRecord
	require.NoError(t, conn.Where("medicine_id = ?", medicineID).First(&rec).Error)
	return rec.Quantity
}

func TestLedgerLockReturnsExistingRecords(t *testing.T) {
	client := dbtest.Open(t)
	conn := client.DB()
	a := seedMedicine(t, conn, "MED-A", 5)
	b := seedMedicine(t, conn, "MED-B", -1)

	l := NewLedger()
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		locked, err := l.Lock(context.Background(), tx, []uuid.UUID{b.ID, a.ID})
		require.NoError(t, err)
		assert.Len(t, locked, 1)
		assert.Equal(t, 5, locked[a.ID].Quantity)
		_, ok := locked[b.ID]
		assert.False(t, ok)
		return nil
	})
	require.NoError(t, err)
}

func TestLedgerDecrementIsGuarded(t *testing.T) {
	client := dbtest.Open(t)
	conn := client.DB()
	med := seedMedicine(t, conn, "MED-A", 3)

	var before models.InventoryRecord
	require.NoError(t, conn.Where("medicine_id = ?", med.ID).First(&before).Error)
	time.Sleep(5 * time.Millisecond)

	l := NewLedger()
	ctx := context.Background()
	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return l.Decrement(ctx, tx, med.ID, 2)
	}))
	assert.Equal(t, 1, quantityOf(t, conn, med.ID))

	var after models.InventoryRecord
	require.NoError(t, conn.Where("medicine_id = ?", med.ID).First(&after).Error)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt), "timestamp should be refreshed")

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return l.Decrement(ctx, tx, med.ID, 2)
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficient))
	assert.Equal(t, 1, quantityOf(t, conn, med.ID))
}

func TestLedgerDecrementRefusesOverdrawWithoutLock(t *testing.T) {
	client := dbtest.Open(t)
	conn := client.DB()
	med := seedMedicine(t, conn, "MED-A", 1)

	l := NewLedger()
	ctx := context.Background()
	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return l.Decrement(ctx, tx, med.ID, 2)
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficient))
	assert.Equal(t, 1, quantityOf(t, conn, med.ID))

	// two buyers of the last unit, neither holding the row lock
	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return l.Decrement(ctx, tx, med.ID, 1)
	}))
	err = client.WithTx(ctx, func(tx *gorm.DB) error {
		return l.Decrement(ctx, tx, med.ID, 1)
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficient))
	assert.Equal(t, 0, quantityOf(t, conn, med.ID))
}

func TestLedgerRestock(t *testing.T) {
	client := dbtest.Open(t)
	conn := client.DB()
	med := seedMedicine(t, conn, "MED-A", 6)
	orphan := seedMedicine(t, conn, "MED-B", -1)

	l := NewLedger()
	ctx := context.Background()
	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := l.Restock(ctx, tx, med.ID, 4); err != nil {
			return err
		}
		return l.Restock(ctx, tx, orphan.ID, 2)
	}))
	assert.Equal(t, 10, quantityOf(t, conn, med.ID))

	var count int64
	require.NoError(t, conn.Model(&models.InventoryRecord{}).Where("medicine_id = ?", orphan.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestLedgerRequiresTransaction(t *testing.T) {
	l := NewLedger()
	ctx := context.Background()
	assert.Error(t, l.Decrement(ctx, nil, uuid.New(), 1))
	assert.Error(t, l.Restock(ctx, nil, uuid.New(), 1))
	_, err := l.Lock(ctx, nil, []uuid.UUID{uuid.New()})
	assert.Error(t, err)
	assert.NoError(t, l.Decrement(ctx, nil, uuid.New(), 0), "zero quantity is a no-op")
}
