package models

import (
	"time"

	"github.com/angelmondragon/pharmacy-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Account is a person who can sign in: staff or customer.
type Account struct {
	ID           uuid.UUID           `gorm:"type:uuid;primaryKey"`
	Username     string              `gorm:"column:username;not null;uniqueIndex"`
	Email        string              `gorm:"column:email;not null;uniqueIndex"`
	PasswordHash string              `gorm:"column:password_hash;not null"`
	FullName     string              `gorm:"column:full_name;not null"`
	Phone        *string             `gorm:"column:phone"`
	Address      *string             `gorm:"column:address"`
	Role         enums.Role          `gorm:"column:role;not null;index"`
	Status       enums.AccountStatus `gorm:"column:status;not null"`
	LastLoginAt  *time.Time          `gorm:"column:last_login_at"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (Account) TableName() string { return "accounts" }

func (a *Account) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	if a.Status == "" {
		a.Status = enums.AccountStatusActive
	}
	return nil
}

// IsActive reports whether the account may authenticate.
func (a Account) IsActive() bool {
	return a.Status == enums.AccountStatusActive
}
