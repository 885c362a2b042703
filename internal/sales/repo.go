package sales

import (
	"context"
	"time"

	"github.com/angelmondragon/pharmacy-backend/pkg/db/models"
	"github.com/angelmondragon/pharmacy-backend/pkg/enums"
	"github.com/angelmondragon/pharmacy-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const summaryColumns = `s.id, s.sale_number, s.customer_id, COALESCE(c.full_name, '') AS customer_name,
	s.pharmacist_id, COALESCE(p.full_name, '') AS pharmacist_name, s.prescription_id,
	s.subtotal, s.discount_amount, s.tax_amount, s.total_amount,
	s.payment_method, s.status, s.notes, s.created_at`

type repository struct {
	db *gorm.DB
}

// NewRepository builds a sales repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) AccountHasRole(ctx context.Context, accountID uuid.UUID, role enums.Role) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ? AND role = ?", accountID, role).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) SaleNumberExists(ctx context.Context, saleNumber string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("sale_number = ?", saleNumber).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) PrescriptionExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Prescription{}).
		Where("id = ?", id).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) FindMedicines(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Medicine, error) {
	out := make(map[uuid.UUID]models.Medicine, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Medicine
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, m := range rows {
		out[m.ID] = m
	}
	return out, nil
}

func (r *repository) CreateSale(ctx context.Context, sale *models.Sale) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(sale).Error
}

func (r *repository) CreateItems(ctx context.Context, items []models.SaleItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

// LockSale reads the sale row FOR UPDATE along with its items.
func (r *repository) LockSale(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&sale).Error
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).
		Where("sale_id = ?", id).
		Order("medicine_id ASC").
		Find(&sale.Items).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.SaleStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteSale removes the items explicitly before the sale so engines without
// enforced cascades end up in the same state.
func (r *repository) DeleteSale(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Where("sale_id = ?", id).Delete(&models.SaleItem{}).Error; err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Sale{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) summaries(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("sales AS s").
		Select(summaryColumns).
		Joins("LEFT JOIN accounts AS c ON c.id = s.customer_id").
		Joins("LEFT JOIN accounts AS p ON p.id = s.pharmacist_id")
}

func (r *repository) List(ctx context.Context, q listQuery) ([]SaleSummary, error) {
	query := r.summaries(ctx)
	if q.Status != nil {
		query = query.Where("s.status = ?", *q.Status)
	}
	if q.CustomerID != nil {
		query = query.Where("s.customer_id = ?", *q.CustomerID)
	}
	if q.From != nil {
		query = query.Where("s.created_at >= ?", *q.From)
	}
	if q.To != nil {
		query = query.Where("s.created_at < ?", *q.To)
	}
	if q.Cursor != nil {
		query = query.Where("(s.created_at < ?) OR (s.created_at = ? AND s.id < ?)",
			q.Cursor.CreatedAt, q.Cursor.CreatedAt, q.Cursor.ID)
	}

	var rows []SaleSummary
	err := query.
		Order("s.created_at DESC").
		Order("s.id DESC").
		Limit(pagination.LimitWithBuffer(q.Limit)).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) FindSummary(ctx context.Context, id uuid.UUID) (*SaleSummary, error) {
	var rows []SaleSummary
	if err := r.summaries(ctx).Where("s.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &rows[0], nil
}

func (r *repository) ListItems(ctx context.Context, saleID uuid.UUID) ([]SaleItemView, error) {
	var rows []SaleItemView
	err := r.db.WithContext(ctx).
		Table("sale_items AS si").
		Select(`si.id, si.medicine_id, COALESCE(m.name, '') AS medicine_name,
			si.quantity, si.unit_price, si.total_price`).
		Joins("LEFT JOIN medicines AS m ON m.id = si.medicine_id").
		Where("si.sale_id = ?", saleID).
		Order("si.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []SaleItemView{}
	}
	return rows, nil
}

// SumTotalsBetween adds up the total of every sale in [from, to) that still
// counts as revenue.
func (r *repository) SumTotalsBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.WithContext(ctx).
		Model(&models.Sale{}).
		Select("COALESCE(SUM(total_amount), 0)").
		Where("created_at >= ? AND created_at < ? AND status <> ?", from, to, enums.SaleStatusRefunded).
		Row().
		Scan(&total)
	return total, err
}
