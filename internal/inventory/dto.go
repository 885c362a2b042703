package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockView is an inventory record joined with its medicine.
type StockView struct {
	ID            uuid.UUID           `json:"id"`
	MedicineID    uuid.UUID           `json:"medicineId"`
	MedicineName  string              `json:"medicineName"`
	SKU           string              `json:"sku"`
	Quantity      int                 `json:"quantity"`
	MinStockLevel int                 `json:"minStockLevel"`
	BatchNumber   *string             `json:"batchNumber,omitempty"`
	Supplier      *string             `json:"supplier,omitempty"`
	ExpiryDate    *time.Time          `json:"expiryDate,omitempty"`
	CostPrice     decimal.NullDecimal `json:"costPrice"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

// CreateInput registers stock for a medicine that has none yet.
type CreateInput struct {
	MedicineID    uuid.UUID
	Quantity      int
	MinStockLevel *int
	BatchNumber   *string
	Supplier      *string
	ExpiryDate    *time.Time
	CostPrice     *decimal.Decimal
}

// UpdateInput adjusts an existing record. Nil fields are left untouched.
type UpdateInput struct {
	MedicineID    uuid.UUID
	Quantity      *int
	MinStockLevel *int
	BatchNumber   *string
	Supplier      *string
	ExpiryDate    *time.Time
	CostPrice     *decimal.Decimal
}

// DefaultMinStockLevel is the reorder threshold applied when none is given.
const DefaultMinStockLevel = 10
