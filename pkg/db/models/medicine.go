package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Medicine is a sellable catalog entry. Price is the current shelf price;
// sale items snapshot it at the time of sale.
type Medicine struct {
	ID                   uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Name                 string          `gorm:"column:name;not null"`
	SKU                  string          `gorm:"column:sku;not null;uniqueIndex"`
	CategoryID           *uuid.UUID      `gorm:"column:category_id;type:uuid;index"`
	Description          *string         `gorm:"column:description"`
	Dosage               *string         `gorm:"column:dosage"`
	Manufacturer         *string         `gorm:"column:manufacturer"`
	Price                decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	RequiresPrescription bool            `gorm:"column:requires_prescription;not null"`
	IsActive             bool            `gorm:"column:is_active;not null"`
	CreatedAt            time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Medicine) TableName() string { return "medicines" }

func (m *Medicine) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
