package inventory

import (
	"bytes"
	"context"
	"sort"
	"time"

	"github.com/angelmondragon/pharmacy-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pharmacy-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ledger struct {
	now func() time.Time
}

// NewLedger returns the row-locking inventory ledger.
func NewLedger() Ledger {
	return ledger{now: func() time.Time { return time.Now().UTC() }}
}

// Lock selects the inventory rows for medicineIDs with FOR UPDATE. Rows are
// locked in ascending medicine id order so two sales touching the same
// medicines cannot deadlock. Medicines without a record are absent from the map.
func (l ledger) Lock(ctx context.Context, tx *gorm.DB, medicineIDs []uuid.UUID) (map[uuid.UUID]models.InventoryRecord, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for inventory lock")
	}
	out := make(map[uuid.UUID]models.InventoryRecord, len(medicineIDs))
	if len(medicineIDs) == 0 {
		return out, nil
	}

	ids := append([]uuid.UUID(nil), medicineIDs...)
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })

	var records []models.InventoryRecord
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("medicine_id IN ?", ids).
		Order("medicine_id ASC").
		Find(&records).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock inventory")
	}
	for _, rec := range records {
		out[rec.MedicineID] = rec
	}
	return out, nil
}

// Decrement removes qty units. The guarded update refuses to drive quantity
// below zero even if the caller skipped Lock.
func (l ledger) Decrement(ctx context.Context, tx *gorm.DB, medicineID uuid.UUID, qty int) error {
	if qty <= 0 {
		return nil
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for inventory decrement")
	}

	res := tx.WithContext(ctx).
		Model(&models.InventoryRecord{}).
		Where("medicine_id = ? AND quantity >= ?", medicineID, qty).
		Updates(map[string]any{
			"quantity":   gorm.Expr("quantity - ?", qty),
			"updated_at": l.now(),
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "decrement inventory")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeInsufficient, "insufficient stock").
			WithDetails(map[string]any{"medicineId": medicineID.String(), "required": qty})
	}
	return nil
}

// Restock returns qty units and refreshes the record timestamp. Medicines
// without an inventory record are skipped.
func (l ledger) Restock(ctx context.Context, tx *gorm.DB, medicineID uuid.UUID, qty int) error {
	if qty <= 0 {
		return nil
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for inventory restock")
	}

	err := tx.WithContext(ctx).
		Model(&models.InventoryRecord{}).
		Where("medicine_id = ?", medicineID).
		Updates(map[string]any{
			"quantity":   gorm.Expr("quantity + ?", qty),
			"updated_at": l.now(),
		}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restock inventory")
	}
	return nil
}
