package discounts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/pharmacy-backend/internal/authz"
	"github.com/angelmondragon/pharmacy-backend/pkg/db/models"
	"github.com/angelmondragon/pharmacy-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pharmacy-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

// DiscountDTO is the public shape of a discount.
type DiscountDTO struct {
	ID                     uuid.UUID           `json:"id"`
	Name                   string              `json:"name"`
	Description            *string             `json:"description"`
	Type                   enums.DiscountType  `json:"type"`
	Value                  decimal.Decimal     `json:"value"`
	ApplicableToMedicineID *uuid.UUID          `json:"applicableToMedicineId"`
	MinOrderAmount         decimal.NullDecimal `json:"minOrderAmount"`
	MaxDiscountAmount      decimal.NullDecimal `json:"maxDiscountAmount"`
	ValidFrom              time.Time           `json:"validFrom"`
	ValidTo                time.Time           `json:"validTo"`
	IsActive               bool                `json:"isActive"`
}

// CreateInput describes a new discount.
type CreateInput struct {
	Name                   string
	Description            *string
	Type                   enums.DiscountType
	Value                  decimal.Decimal
	ApplicableToMedicineID *uuid.UUID
	MinOrderAmount         *decimal.Decimal
	MaxDiscountAmount      *decimal.Decimal
	ValidFrom              time.Time
	ValidTo                time.Time
	IsActive               *bool
}

// Service lists and creates discounts.
type Service interface {
	List(ctx context.Context) ([]DiscountDTO, error)
	Active(ctx context.Context) ([]DiscountDTO, error)
	Create(ctx context.Context, actor authz.Principal, input CreateInput) (*DiscountDTO, error)
}

type service struct {
	db  *gorm.DB
	now func() time.Time
}

// NewService builds the discounts service over db.
func NewService(db *gorm.DB) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	return &service{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *service) List(ctx context.Context) ([]DiscountDTO, error) {
	var rows []models.Discount
	if err := s.db.WithContext(ctx).Order("valid_from DESC").Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list discounts")
	}
	return toDTOs(rows), nil
}

// Active returns discounts flagged active whose validity window contains now.
func (s *service) Active(ctx context.Context) ([]DiscountDTO, error) {
	now := s.now()
	var rows []models.Discount
	err := s.db.WithContext(ctx).
		Where("is_active = ? AND valid_from <= ? AND valid_to >= ?", true, now, now).
		Order("valid_to ASC").
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active discounts")
	}
	return toDTOs(rows), nil
}

func (s *service) Create(ctx context.Context, actor authz.Principal, input CreateInput) (*DiscountDTO, error) {
	if err := actor.Require(authz.DiscountsWrite); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "type must be percentage or fixed")
	}
	if !input.Value.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "value must be positive")
	}
	if input.Type == enums.DiscountTypePercentage && input.Value.GreaterThan(hundred) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "percentage cannot exceed 100")
	}
	if input.ValidFrom.IsZero() || input.ValidTo.IsZero() || !input.ValidTo.After(input.ValidFrom) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validTo must be after validFrom")
	}

	d := models.Discount{
		Name:                   name,
		Description:            input.Description,
		Type:                   input.Type,
		Value:                  input.Value,
		ApplicableToMedicineID: input.ApplicableToMedicineID,
		ValidFrom:              input.ValidFrom.UTC(),
		ValidTo:                input.ValidTo.UTC(),
		IsActive:               true,
	}
	if input.MinOrderAmount != nil {
		d.MinOrderAmount = decimal.NewNullDecimal(*input.MinOrderAmount)
	}
	if input.MaxDiscountAmount != nil {
		d.MaxDiscountAmount = decimal.NewNullDecimal(*input.MaxDiscountAmount)
	}
	if input.IsActive != nil {
		d.IsActive = *input.IsActive
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if d.ApplicableToMedicineID != nil {
			var count int64
			if err := tx.Model(&models.Medicine{}).Where("id = ?", *d.ApplicableToMedicineID).Count(&count).Error; err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load medicine")
			}
			if count == 0 {
				return pkgerrors.New(pkgerrors.CodeNotFound, "medicine not found")
			}
		}
		if err := tx.Create(&d).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create discount")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := toDTO(d)
	return &dto, nil
}

func toDTO(d models.Discount) DiscountDTO {
	return DiscountDTO{
		ID:                     d.ID,
		Name:                   d.Name,
		Description:            d.Description,
		Type:                   d.Type,
		Value:                  d.Value,
		ApplicableToMedicineID: d.ApplicableToMedicineID,
		MinOrderAmount:         d.MinOrderAmount,
		MaxDiscountAmount:      d.MaxDiscountAmount,
		ValidFrom:              d.ValidFrom,
		ValidTo:                d.ValidTo,
		IsActive:               d.IsActive,
	}
}

func toDTOs(rows []models.Discount) []DiscountDTO {
	out := make([]DiscountDTO, 0, len(rows))
	for _, d := range rows {
		out = append(out, toDTO(d))
	}
	return out
}
