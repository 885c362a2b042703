package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InventoryRecord tracks on-hand quantity for exactly one medicine.
type InventoryRecord struct {
	ID            uuid.UUID           `gorm:"type:uuid;primaryKey"`
	MedicineID    uuid.UUID           `gorm:"column:medicine_id;type:uuid;not null;uniqueIndex"`
	Quantity      int                 `gorm:"column:quantity;not null"`
	MinStockLevel int                 `gorm:"column:min_stock_level;not null"`
	BatchNumber   *string             `gorm:"column:batch_number"`
	Supplier      *string             `gorm:"column:supplier"`
	ExpiryDate    *time.Time          `gorm:"column:expiry_date"`
	CostPrice     decimal.NullDecimal `gorm:"column:cost_price;type:numeric(10,2)"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (InventoryRecord) TableName() string { return "inventory_records" }

func (r *InventoryRecord) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// IsLow reports whether the record is at or below its reorder threshold.
func (r InventoryRecord) IsLow() bool {
	return r.Quantity <= r.MinStockLevel
}
