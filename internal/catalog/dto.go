package catalog

import (
	"time"

	"github.com/angelmondragon/pharmacy-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CategoryView is the public shape of a category.
type CategoryView struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// MedicineView is a medicine with its category name.
type MedicineView struct {
	ID                   uuid.UUID       `json:"id"`
	Name                 string          `json:"name"`
	SKU                  string          `json:"sku"`
	CategoryID           *uuid.UUID      `json:"categoryId"`
	CategoryName         *string         `json:"categoryName"`
	Description          *string         `json:"description"`
	Dosage               *string         `json:"dosage"`
	Manufacturer         *string         `json:"manufacturer"`
	Price                decimal.Decimal `json:"price"`
	RequiresPrescription bool            `json:"requiresPrescription"`
	IsActive             bool            `json:"isActive"`
	CreatedAt            time.Time       `json:"createdAt"`
	UpdatedAt            time.Time       `json:"updatedAt"`
}

// CreateCategoryInput names a new category.
type CreateCategoryInput struct {
	Name        string
	Description *string
}

// MedicineFilter narrows the medicine listing.
type MedicineFilter struct {
	Search          string
	CategoryID      *uuid.UUID
	IncludeInactive bool
}

// CreateMedicineInput describes a new catalog entry.
type CreateMedicineInput struct {
	Name                 string
	SKU                  string
	CategoryID           *uuid.UUID
	Description          *string
	Dosage               *string
	Manufacturer         *string
	Price                decimal.Decimal
	RequiresPrescription bool
}

// UpdateMedicineInput patches a medicine. Nil fields are left untouched.
type UpdateMedicineInput struct {
	Name                 *string
	SKU                  *string
	CategoryID           *uuid.UUID
	Description          *string
	Dosage               *string
	Manufacturer         *string
	Price                *decimal.Decimal
	RequiresPrescription *bool
	IsActive             *bool
}

func categoryView(c models.Category) CategoryView {
	return CategoryView{ID: c.ID, Name: c.Name, Description: c.Description, CreatedAt: c.CreatedAt}
}
