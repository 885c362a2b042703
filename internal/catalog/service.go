package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/pharmacy-backend/internal/authz"
	"github.com/angelmondragon/pharmacy-backend/pkg/db"
	"github.com/angelmondragon/pharmacy-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pharmacy-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service manages categories and medicines.
type Service interface {
	ListCategories(ctx context.Context) ([]CategoryView, error)
	CreateCategory(ctx context.Context, actor authz.Principal, input CreateCategoryInput) (*CategoryView, error)
	ListMedicines(ctx context.Context, filter MedicineFilter) ([]MedicineView, error)
	GetMedicine(ctx context.Context, id uuid.UUID) (*MedicineView, error)
	CreateMedicine(ctx context.Context, actor authz.Principal, input CreateMedicineInput) (*MedicineView, error)
	UpdateMedicine(ctx context.Context, actor authz.Principal, id uuid.UUID, input UpdateMedicineInput) (*MedicineView, error)
	DeactivateMedicine(ctx context.Context, actor authz.Principal, id uuid.UUID) error
}

type service struct {
	repo Repository
}

// NewService builds the catalog service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListCategories(ctx context.Context) ([]CategoryView, error) {
	rows, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	out := make([]CategoryView, 0, len(rows))
	for _, c := range rows {
		out = append(out, categoryView(c))
	}
	return out, nil
}

func (s *service) CreateCategory(ctx context.Context, actor authz.Principal, input CreateCategoryInput) (*CategoryView, error) {
	if err := actor.Require(authz.CatalogWrite); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category name is required")
	}
	category := &models.Category{Name: name, Description: input.Description}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "category already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create category")
	}
	view := categoryView(*category)
	return &view, nil
}

func (s *service) ListMedicines(ctx context.Context, filter MedicineFilter) ([]MedicineView, error) {
	rows, err := s.repo.ListMedicines(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list medicines")
	}
	return rows, nil
}

func (s *service) GetMedicine(ctx context.Context, id uuid.UUID) (*MedicineView, error) {
	view, err := s.repo.FindMedicineView(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "medicine not found", "load medicine")
	}
	return view, nil
}

func (s *service) CreateMedicine(ctx context.Context, actor authz.Principal, input CreateMedicineInput) (*MedicineView, error) {
	if err := actor.Require(authz.CatalogWrite); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	sku := strings.TrimSpace(input.SKU)
	if name == "" || sku == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name and sku are required")
	}
	if !input.Price.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	if err := s.ensureCategory(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	medicine := &models.Medicine{
		Name:                 name,
		SKU:                  sku,
		CategoryID:           input.CategoryID,
		Description:          input.Description,
		Dosage:               input.Dosage,
		Manufacturer:         input.Manufacturer,
		Price:                input.Price.Round(2),
		RequiresPrescription: input.RequiresPrescription,
		IsActive:             true,
	}
	if err := s.repo.CreateMedicine(ctx, medicine); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "sku already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create medicine")
	}
	return s.GetMedicine(ctx, medicine.ID)
}

func (s *service) UpdateMedicine(ctx context.Context, actor authz.Principal, id uuid.UUID, input UpdateMedicineInput) (*MedicineView, error) {
	if err := actor.Require(authz.CatalogWrite); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		updates["name"] = name
	}
	if input.SKU != nil {
		sku := strings.TrimSpace(*input.SKU)
		if sku == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku cannot be empty")
		}
		updates["sku"] = sku
	}
	if input.CategoryID != nil {
		if err := s.ensureCategory(ctx, input.CategoryID); err != nil {
			return nil, err
		}
		updates["category_id"] = *input.CategoryID
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Dosage != nil {
		updates["dosage"] = *input.Dosage
	}
	if input.Manufacturer != nil {
		updates["manufacturer"] = *input.Manufacturer
	}
	if input.Price != nil {
		if !input.Price.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
		}
		updates["price"] = input.Price.Round(2)
	}
	if input.RequiresPrescription != nil {
		updates["requires_prescription"] = *input.RequiresPrescription
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	if err := s.repo.UpdateMedicine(ctx, id, updates); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "sku already exists")
		}
		return nil, notFoundOr(err, "medicine not found", "update medicine")
	}
	return s.GetMedicine(ctx, id)
}

// DeactivateMedicine hides a medicine from the catalog. Sales history keeps
// referencing it.
func (s *service) DeactivateMedicine(ctx context.Context, actor authz.Principal, id uuid.UUID) error {
	if err := actor.Require(authz.CatalogWrite); err != nil {
		return err
	}
	if err := s.repo.UpdateMedicine(ctx, id, map[string]any{"is_active": false}); err != nil {
		return notFoundOr(err, "medicine not found", "deactivate medicine")
	}
	return nil
}

func (s *service) ensureCategory(ctx context.Context, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	ok, err := s.repo.CategoryExists(ctx, *id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
	}
	return nil
}

func notFoundOr(err error, notFound, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
