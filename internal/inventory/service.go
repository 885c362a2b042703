package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/pharmacy-backend/internal/authz"
	"github.com/angelmondragon/pharmacy-backend/pkg/db"
	"github.com/angelmondragon/pharmacy-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pharmacy-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type medicineFinder interface {
	FindMedicine(ctx context.Context, id uuid.UUID) (*models.Medicine, error)
}

// Service exposes inventory management to staff.
type Service interface {
	List(ctx context.Context, actor authz.Principal) ([]StockView, error)
	LowStock(ctx context.Context, actor authz.Principal) ([]StockView, error)
	Create(ctx context.Context, actor authz.Principal, input CreateInput) (*models.InventoryRecord, error)
	Update(ctx context.Context, actor authz.Principal, input UpdateInput) (*models.InventoryRecord, error)
}

type service struct {
	repo      Repository
	medicines medicineFinder
}

// NewService builds the inventory service.
func NewService(repo Repository, medicines medicineFinder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if medicines == nil {
		return nil, fmt.Errorf("medicine finder required")
	}
	return &service{repo: repo, medicines: medicines}, nil
}

func (s *service) List(ctx context.Context, actor authz.Principal) ([]StockView, error) {
	if err := actor.Require(authz.InventoryRead); err != nil {
		return nil, err
	}
	rows, err := s.repo.List(ctx, false)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory")
	}
	return rows, nil
}

func (s *service) LowStock(ctx context.Context, actor authz.Principal) ([]StockView, error) {
	if err := actor.Require(authz.InventoryRead); err != nil {
		return nil, err
	}
	rows, err := s.repo.List(ctx, true)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list low stock")
	}
	return rows, nil
}

func (s *service) Create(ctx context.Context, actor authz.Principal, input CreateInput) (*models.InventoryRecord, error) {
	if err := actor.Require(authz.InventoryWrite); err != nil {
		return nil, err
	}
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	if input.MinStockLevel != nil && *input.MinStockLevel < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "minimum stock level cannot be negative")
	}
	if _, err := s.medicines.FindMedicine(ctx, input.MedicineID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "medicine not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load medicine")
	}

	record := &models.InventoryRecord{
		MedicineID:    input.MedicineID,
		Quantity:      input.Quantity,
		MinStockLevel: DefaultMinStockLevel,
		BatchNumber:   input.BatchNumber,
		Supplier:      input.Supplier,
		ExpiryDate:    input.ExpiryDate,
	}
	if input.MinStockLevel != nil {
		record.MinStockLevel = *input.MinStockLevel
	}
	if input.CostPrice != nil {
		record.CostPrice.Decimal = *input.CostPrice
		record.CostPrice.Valid = true
	}

	if err := s.repo.Create(ctx, record); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "inventory record already exists for medicine")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create inventory record")
	}
	return record, nil
}

func (s *service) Update(ctx context.Context, actor authz.Principal, input UpdateInput) (*models.InventoryRecord, error) {
	if err := actor.Require(authz.InventoryWrite); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Quantity != nil {
		if *input.Quantity < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
		}
		updates["quantity"] = *input.Quantity
	}
	if input.MinStockLevel != nil {
		if *input.MinStockLevel < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "minimum stock level cannot be negative")
		}
		updates["min_stock_level"] = *input.MinStockLevel
	}
	if input.BatchNumber != nil {
		updates["batch_number"] = *input.BatchNumber
	}
	if input.Supplier != nil {
		updates["supplier"] = *input.Supplier
	}
	if input.ExpiryDate != nil {
		updates["expiry_date"] = *input.ExpiryDate
	}
	if input.CostPrice != nil {
		updates["cost_price"] = *input.CostPrice
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	if err := s.repo.Update(ctx, input.MedicineID, updates); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory record not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update inventory record")
	}

	record, err := s.repo.FindByMedicine(ctx, input.MedicineID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload inventory record")
	}
	return record, nil
}
