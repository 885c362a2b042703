package catalog

import (
	"context"
	"strings"

	"github.com/angelmondragon/pharmacy-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists categories and medicines.
type Repository interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	CreateCategory(ctx context.Context, category *models.Category) error
	CategoryExists(ctx context.Context, id uuid.UUID) (bool, error)

	ListMedicines(ctx context.Context, filter MedicineFilter) ([]MedicineView, error)
	FindMedicineView(ctx context.Context, id uuid.UUID) (*MedicineView, error)
	FindMedicine(ctx context.Context, id uuid.UUID) (*models.Medicine, error)
	CreateMedicine(ctx context.Context, medicine *models.Medicine) error
	UpdateMedicine(ctx context.Context, id uuid.UUID, updates map[string]any) error
	CountActiveMedicines(ctx context.Context) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var rows []models.Category
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CreateCategory(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *repository) CategoryExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *repository) medicineViews(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("medicines AS m").
		Select(`m.id, m.name, m.sku, m.category_id, c.name AS category_name, m.description, m.dosage,
			m.manufacturer, m.price, m.requires_prescription, m.is_active, m.created_at, m.updated_at`).
		Joins("LEFT JOIN categories AS c ON c.id = m.category_id")
}

func (r *repository) ListMedicines(ctx context.Context, filter MedicineFilter) ([]MedicineView, error) {
	q := r.medicineViews(ctx)
	if !filter.IncludeInactive {
		q = q.Where("m.is_active = ?", true)
	}
	if filter.CategoryID != nil {
		q = q.Where("m.category_id = ?", *filter.CategoryID)
	}
	if term := strings.ToLower(strings.TrimSpace(filter.Search)); term != "" {
		like := "%" + term + "%"
		q = q.Where("(LOWER(m.name) LIKE ? OR LOWER(m.sku) LIKE ?)", like, like)
	}

	var rows []MedicineView
	if err := q.Order("m.name ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []MedicineView{}
	}
	return rows, nil
}

func (r *repository) FindMedicineView(ctx context.Context, id uuid.UUID) (*MedicineView, error) {
	var rows []MedicineView
	if err := r.medicineViews(ctx).Where("m.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &rows[0], nil
}

func (r *repository) FindMedicine(ctx context.Context, id uuid.UUID) (*models.Medicine, error) {
	var medicine models.Medicine
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&medicine).Error; err != nil {
		return nil, err
	}
	return &medicine, nil
}

func (r *repository) CreateMedicine(ctx context.Context, medicine *models.Medicine) error {
	return r.db.WithContext(ctx).Create(medicine).Error
}

func (r *repository) UpdateMedicine(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Medicine{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) CountActiveMedicines(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Medicine{}).Where("is_active = ?", true).Count(&count).Error
	return count, err
}
