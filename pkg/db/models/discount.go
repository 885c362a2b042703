package models

import (
	"time"

	"github.com/angelmondragon/pharmacy-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Discount struct {
	ID                     uuid.UUID           `gorm:"type:uuid;primaryKey"`
	Name                   string              `gorm:"column:name;not null"`
	Description            *string             `gorm:"column:description"`
	Type                   enums.DiscountType  `gorm:"column:type;not null"`
	Value                  decimal.Decimal     `gorm:"column:value;type:numeric(10,2);not null"`
	ApplicableToMedicineID *uuid.UUID          `gorm:"column:applicable_to_medicine_id;type:uuid"`
	MinOrderAmount         decimal.NullDecimal `gorm:"column:min_order_amount;type:numeric(10,2)"`
	MaxDiscountAmount      decimal.NullDecimal `gorm:"column:max_discount_amount;type:numeric(10,2)"`
	ValidFrom              time.Time           `gorm:"column:valid_from;not null"`
	ValidTo                time.Time           `gorm:"column:valid_to;not null"`
	IsActive               bool                `gorm:"column:is_active;not null"`
	CreatedAt              time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (Discount) TableName() string { return "discounts" }

func (d *Discount) BeforeCreate(*gorm.DB) error {
	ensureID(&d.ID)
	return nil
}

// ActiveAt reports whether the discount applies at t.
func (d Discount) ActiveAt(t time.Time) bool {
	return d.IsActive && !t.Before(d.ValidFrom) && !t.After(d.ValidTo)
}
