package inventory

import (
	"context"

	"github.com/angelmondragon/pharmacy-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for inventory_records.
type Repository interface {
	List(ctx context.Context, lowStockOnly bool) ([]StockView, error)
	FindByMedicine(ctx context.Context, medicineID uuid.UUID) (*models.InventoryRecord, error)
	Create(ctx context.Context, record *models.InventoryRecord) error
	Update(ctx context.Context, medicineID uuid.UUID, updates map[string]any) error
	CountLowStock(ctx context.Context) (int64, error)
}

// Ledger moves stock inside a caller-owned transaction. Sales use it to lock,
// decrement and restock inventory rows atomically with their own writes.
type Ledger interface {
	Lock(ctx context.Context, tx *gorm.DB, medicineIDs []uuid.UUID) (map[uuid.UUID]models.InventoryRecord, error)
	Decrement(ctx context.Context, tx *gorm.DB, medicineID uuid.UUID, qty int) error
	Restock(ctx context.Context, tx *gorm.DB, medicineID uuid.UUID, qty int) error
}
