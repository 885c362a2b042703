package models

import (
	"time"

	"github.com/angelmondragon/pharmacy-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Prescription struct {
	ID                 uuid.UUID                `gorm:"type:uuid;primaryKey"`
	PrescriptionNumber string                   `gorm:"column:prescription_number;not null;uniqueIndex"`
	CustomerID         uuid.UUID                `gorm:"column:customer_id;type:uuid;not null;index"`
	PharmacistID       *uuid.UUID               `gorm:"column:pharmacist_id;type:uuid"`
	DoctorName         string                   `gorm:"column:doctor_name;not null"`
	Status             enums.PrescriptionStatus `gorm:"column:status;not null"`
	Notes              *string                  `gorm:"column:notes"`
	IssuedDate         time.Time                `gorm:"column:issued_date;not null"`
	VerifiedAt         *time.Time               `gorm:"column:verified_at"`
	DispensedAt        *time.Time               `gorm:"column:dispensed_at"`
	CreatedAt          time.Time                `gorm:"column:created_at;autoCreateTime"`
	Items              []PrescriptionItem       `gorm:"foreignKey:PrescriptionID"`
}

func (Prescription) TableName() string { return "prescriptions" }

func (p *Prescription) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	if p.Status == "" {
		p.Status = enums.PrescriptionStatusPending
	}
	return nil
}

type PrescriptionItem struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	PrescriptionID     uuid.UUID `gorm:"column:prescription_id;type:uuid;not null;index"`
	MedicineID         uuid.UUID `gorm:"column:medicine_id;type:uuid;not null"`
	Quantity           int       `gorm:"column:quantity;not null"`
	DosageInstructions string    `gorm:"column:dosage_instructions;not null"`
	DispensedQuantity  int       `gorm:"column:dispensed_quantity;not null"`
}

func (PrescriptionItem) TableName() string { return "prescription_items" }

func (i *PrescriptionItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
