package prescriptions

import (
	"context"
	"time"

	"github.com/angelmondragon/pharmacy-backend/pkg/db/models"
	"github.com/angelmondragon/pharmacy-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists prescriptions and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	List(ctx context.Context, customerID *uuid.UUID) ([]models.Prescription, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Prescription, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.Prescription, error)
	Create(ctx context.Context, p *models.Prescription) error
	AccountHasRole(ctx context.Context, id uuid.UUID, role enums.Role) (bool, error)
	CountMedicines(ctx context.Context, ids []uuid.UUID) (int64, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	MarkItemsDispensed(ctx context.Context, prescriptionID uuid.UUID) error
	CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a prescriptions repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) List(ctx context.Context, customerID *uuid.UUID) ([]models.Prescription, error) {
	q := r.db.WithContext(ctx).Preload("Items").Order("created_at DESC")
	if customerID != nil {
		q = q.Where("customer_id = ?", *customerID)
	}
	var rows []models.Prescription
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Prescription, error) {
	var p models.Prescription
	if err := r.db.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Prescription, error) {
	var p models.Prescription
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts the prescription and its items in one statement set.
func (r *repository) Create(ctx context.Context, p *models.Prescription) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *repository) AccountHasRole(ctx context.Context, id uuid.UUID, role enums.Role) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Account{}).Where("id = ? AND role = ?", id, role).Count(&count).Error
	return count > 0, err
}

func (r *repository) CountMedicines(ctx context.Context, ids []uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Medicine{}).Where("id IN ?", ids).Count(&count).Error
	return count, err
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.Prescription{}).Where("id = ?", id).Updates(updates).Error
}

func (r *repository) MarkItemsDispensed(ctx context.Context, prescriptionID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.PrescriptionItem{}).
		Where("prescription_id = ?", prescriptionID).
		Update("dispensed_quantity", gorm.Expr("quantity")).Error
}

func (r *repository) CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Prescription{}).
		Where("created_at >= ? AND created_at < ?", from, to).
		Count(&count).Error
	return count, err
}
