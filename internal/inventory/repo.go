package inventory

import (
	"context"

	"github.com/angelmondragon/pharmacy-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an inventory repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context, lowStockOnly bool) ([]StockView, error) {
	q := r.db.WithContext(ctx).
		Table("inventory_records AS i").
		Select(`i.id, i.medicine_id, COALESCE(m.name, '') AS medicine_name, COALESCE(m.sku, '') AS sku,
			i.quantity, i.min_stock_level, i.batch_number, i.supplier, i.expiry_date, i.cost_price, i.updated_at`).
		Joins("LEFT JOIN medicines AS m ON m.id = i.medicine_id")
	if lowStockOnly {
		q = q.Where("i.quantity <= i.min_stock_level").Order("i.quantity ASC")
	} else {
		q = q.Order("m.name ASC")
	}

	var rows []StockView
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []StockView{}
	}
	return rows, nil
}

func (r *repository) FindByMedicine(ctx context.Context, medicineID uuid.UUID) (*models.InventoryRecord, error) {
	var record models.InventoryRecord
	if err := r.db.WithContext(ctx).Where("medicine_id = ?", medicineID).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) Create(ctx context.Context, record *models.InventoryRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) Update(ctx context.Context, medicineID uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&models.InventoryRecord{}).
		Where("medicine_id = ?", medicineID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) CountLowStock(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.InventoryRecord{}).
		Where("quantity <= min_stock_level").
		Count(&count).Error
	return count, err
}
