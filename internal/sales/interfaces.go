package sales

import (
	"context"
	"time"

	"github.com/angelmondragon/pharmacy-backend/pkg/db/models"
	"github.com/angelmondragon/pharmacy-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository defines persistence operations for sales and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	AccountHasRole(ctx context.Context, accountID uuid.UUID, role enums.Role) (bool, error)
	SaleNumberExists(ctx context.Context, saleNumber string) (bool, error)
	PrescriptionExists(ctx context.Context, id uuid.UUID) (bool, error)
	FindMedicines(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Medicine, error)

	CreateSale(ctx context.Context, sale *models.Sale) error
	CreateItems(ctx context.Context, items []models.SaleItem) error
	LockSale(ctx context.Context, id uuid.UUID) (*models.Sale, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.SaleStatus) error
	DeleteSale(ctx context.Context, id uuid.UUID) error

	List(ctx context.Context, q listQuery) ([]SaleSummary, error)
	FindSummary(ctx context.Context, id uuid.UUID) (*SaleSummary, error)
	ListItems(ctx context.Context, saleID uuid.UUID) ([]SaleItemView, error)
	SumTotalsBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, error)
}
