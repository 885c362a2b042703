package prescriptions

import (
	"time"

	"github.com/angelmondragon/pharmacy-backend/pkg/db/models"
	"github.com/angelmondragon/pharmacy-backend/pkg/enums"
	"github.com/google/uuid"
)

// ItemInput is one prescribed medicine.
type ItemInput struct {
	MedicineID         uuid.UUID
	Quantity           int
	DosageInstructions string
}

// CreateInput records a prescription brought in by a customer.
type CreateInput struct {
	PrescriptionNumber string
	CustomerID         uuid.UUID
	DoctorName         string
	Notes              *string
	IssuedDate         time.Time
	Items              []ItemInput
}

// ItemDTO is the public shape of a prescription line.
type ItemDTO struct {
	ID                 uuid.UUID `json:"id"`
	MedicineID         uuid.UUID `json:"medicineId"`
	Quantity           int       `json:"quantity"`
	DosageInstructions string    `json:"dosageInstructions"`
	DispensedQuantity  int       `json:"dispensedQuantity"`
}

// PrescriptionDTO is the public shape of a prescription.
type PrescriptionDTO struct {
	ID                 uuid.UUID                `json:"id"`
	PrescriptionNumber string                   `json:"prescriptionNumber"`
	CustomerID         uuid.UUID                `json:"customerId"`
	PharmacistID       *uuid.UUID               `json:"pharmacistId"`
	DoctorName         string                   `json:"doctorName"`
	Status             enums.PrescriptionStatus `json:"status"`
	Notes              *string                  `json:"notes"`
	IssuedDate         time.Time                `json:"issuedDate"`
	VerifiedAt         *time.Time               `json:"verifiedAt"`
	DispensedAt        *time.Time               `json:"dispensedAt"`
	CreatedAt          time.Time                `json:"createdAt"`
	Items              []ItemDTO                `json:"items"`
}

func fromModel(p models.Prescription) PrescriptionDTO {
	items := make([]ItemDTO, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, ItemDTO{
			ID:                 it.ID,
			MedicineID:         it.MedicineID,
			Quantity:           it.Quantity,
			DosageInstructions: it.DosageInstructions,
			DispensedQuantity:  it.DispensedQuantity,
		})
	}
	return PrescriptionDTO{
		ID:                 p.ID,
		PrescriptionNumber: p.PrescriptionNumber,
		CustomerID:         p.CustomerID,
		PharmacistID:       p.PharmacistID,
		DoctorName:         p.DoctorName,
		Status:             p.Status,
		Notes:              p.Notes,
		IssuedDate:         p.IssuedDate,
		VerifiedAt:         p.VerifiedAt,
		DispensedAt:        p.DispensedAt,
		CreatedAt:          p.CreatedAt,
		Items:              items,
	}
}
