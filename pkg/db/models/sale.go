package models

import (
	"time"

	"github.com/angelmondragon/pharmacy-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Sale is a committed point-of-sale transaction. A nil CustomerID marks a
// walk-in sale.
type Sale struct {
	ID             uuid.UUID           `gorm:"type:uuid;primaryKey"`
	SaleNumber     string              `gorm:"column:sale_number;not null;uniqueIndex"`
	CustomerID     *uuid.UUID          `gorm:"column:customer_id;type:uuid;index"`
	PharmacistID   uuid.UUID           `gorm:"column:pharmacist_id;type:uuid;not null"`
	PrescriptionID *uuid.UUID          `gorm:"column:prescription_id;type:uuid"`
	Subtotal       decimal.Decimal     `gorm:"column:subtotal;type:numeric(10,2);not null"`
	DiscountAmount decimal.Decimal     `gorm:"column:discount_amount;type:numeric(10,2);not null"`
	TaxAmount      decimal.Decimal     `gorm:"column:tax_amount;type:numeric(10,2);not null"`
	TotalAmount    decimal.Decimal     `gorm:"column:total_amount;type:numeric(10,2);not null"`
	PaymentMethod  enums.PaymentMethod `gorm:"column:payment_method;not null"`
	Status         enums.SaleStatus    `gorm:"column:status;not null;index"`
	Notes          *string             `gorm:"column:notes"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime;index"`
	Items          []SaleItem          `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
}

func (Sale) TableName() string { return "sales" }

func (s *Sale) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	if s.Status == "" {
		s.Status = enums.SaleStatusCompleted
	}
	return nil
}

// SaleItem snapshots the unit price at the time of sale.
type SaleItem struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SaleID     uuid.UUID       `gorm:"column:sale_id;type:uuid;not null;index"`
	MedicineID uuid.UUID       `gorm:"column:medicine_id;type:uuid;not null"`
	Quantity   int             `gorm:"column:quantity;not null"`
	UnitPrice  decimal.Decimal `gorm:"column:unit_price;type:numeric(10,2);not null"`
	TotalPrice decimal.Decimal `gorm:"column:total_price;type:numeric(10,2);not null"`
}

func (SaleItem) TableName() string { return "sale_items" }

func (i *SaleItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
