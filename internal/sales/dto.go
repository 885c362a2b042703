package sales

import (
	"time"

	"github.com/angelmondragon/pharmacy-backend/pkg/enums"
	"github.com/angelmondragon/pharmacy-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// WalkInCustomerName is shown for sales without a customer account.
	WalkInCustomerName = "Walk-in Customer"
	// UnknownName replaces a pharmacist or medicine that no longer resolves.
	UnknownName = "Unknown"
)

// ItemInput is one requested line of a sale.
type ItemInput struct {
	MedicineID uuid.UUID
	Quantity   int
}

// CreateInput carries a sale as submitted at the counter. Monetary totals are
// recorded as given; line totals are computed from current medicine prices.
type CreateInput struct {
	SaleNumber     string
	CustomerID     *uuid.UUID
	PharmacistID   uuid.UUID
	PrescriptionID *uuid.UUID
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	TotalAmount    decimal.Decimal
	PaymentMethod  enums.PaymentMethod
	Status         enums.SaleStatus
	Notes          *string
	Items          []ItemInput
}

// CreateResult is returned once a sale commits.
type CreateResult struct {
	SaleID uuid.UUID `json:"saleId"`
}

// ListParams filters and pages the sales listing.
type ListParams struct {
	pagination.Params
	Status     *enums.SaleStatus
	CustomerID *uuid.UUID
	// Date selects sales created on that UTC calendar day.
	Date *time.Time
}

// listQuery is ListParams after cursor decoding.
type listQuery struct {
	Limit      int
	Cursor     *pagination.Cursor
	Status     *enums.SaleStatus
	CustomerID *uuid.UUID
	From       *time.Time
	To         *time.Time
}

// SaleSummary is a sale joined with customer and pharmacist display names.
type SaleSummary struct {
	ID             uuid.UUID           `json:"id"`
	SaleNumber     string              `json:"saleNumber"`
	CustomerID     *uuid.UUID          `json:"customerId"`
	CustomerName   string              `json:"customerName"`
	PharmacistID   uuid.UUID           `json:"pharmacistId"`
	PharmacistName string              `json:"pharmacistName"`
	PrescriptionID *uuid.UUID          `json:"prescriptionId"`
	Subtotal       decimal.Decimal     `json:"subtotal"`
	DiscountAmount decimal.Decimal     `json:"discountAmount"`
	TaxAmount      decimal.Decimal     `json:"taxAmount"`
	TotalAmount    decimal.Decimal     `json:"totalAmount"`
	PaymentMethod  enums.PaymentMethod `json:"paymentMethod"`
	Status         enums.SaleStatus    `json:"status"`
	Notes          *string             `json:"notes"`
	CreatedAt      time.Time           `json:"createdAt"`
}

// SaleItemView is a sale line joined with its medicine name.
type SaleItemView struct {
	ID           uuid.UUID       `json:"id"`
	MedicineID   uuid.UUID       `json:"medicineId"`
	MedicineName string          `json:"medicineName"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	TotalPrice   decimal.Decimal `json:"totalPrice"`
}

// SaleDetail is a sale with its lines.
type SaleDetail struct {
	SaleSummary
	Items []SaleItemView `json:"items"`
}

func (s *SaleSummary) applyFallbacks() {
	if s.CustomerID == nil || s.CustomerName == "" {
		s.CustomerName = WalkInCustomerName
	}
	if s.PharmacistName == "" {
		s.PharmacistName = UnknownName
	}
}

func (v *SaleItemView) applyFallbacks() {
	if v.MedicineName == "" {
		v.MedicineName = UnknownName
	}
}

func summaryCursor(s SaleSummary) pagination.Cursor {
	return pagination.Cursor{CreatedAt: s.CreatedAt, ID: s.ID}
}
