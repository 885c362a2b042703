package controllers

import (
	"net/http"
	"time"

	"github.com/angelmondragon/pharmacy-backend/api/responses"
	"github.com/angelmondragon/pharmacy-backend/api/validators"
	"github.com/angelmondragon/pharmacy-backend/internal/inventory"
	"github.com/angelmondragon/pharmacy-backend/pkg/db/models"
	"github.com/angelmondragon/pharmacy-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type createInventoryRequest struct {
	MedicineID    string           `json:"medicineId" validate:"required,uuid"`
	Quantity      int              `json:"quantity" validate:"min=0"`
	MinStockLevel *int             `json:"minStockLevel,omitempty" validate:"omitempty,min=0"`
	BatchNumber   *string          `json:"batchNumber,omitempty" validate:"omitempty,max=50"`
	Supplier      *string          `json:"supplier,omitempty" validate:"omitempty,max=200"`
	ExpiryDate    *string          `json:"expiryDate,omitempty"`
	CostPrice     *decimal.Decimal `json:"costPrice,omitempty"`
}

type updateInventoryRequest struct {
	Quantity      *int             `json:"quantity,omitempty" validate:"omitempty,min=0"`
	MinStockLevel *int             `json:"minStockLevel,omitempty" validate:"omitempty,min=0"`
	BatchNumber   *string          `json:"batchNumber,omitempty" validate:"omitempty,max=50"`
	Supplier      *string          `json:"supplier,omitempty" validate:"omitempty,max=200"`
	ExpiryDate    *string          `json:"expiryDate,omitempty"`
	CostPrice     *decimal.Decimal `json:"costPrice,omitempty"`
}

type inventoryRecordResponse struct {
	ID            uuid.UUID           `json:"id"`
	MedicineID    uuid.UUID           `json:"medicineId"`
	Quantity      int                 `json:"quantity"`
	MinStockLevel int                 `json:"minStockLevel"`
	BatchNumber   *string             `json:"batchNumber,omitempty"`
	Supplier      *string             `json:"supplier,omitempty"`
	ExpiryDate    *time.Time          `json:"expiryDate,omitempty"`
	CostPrice     decimal.NullDecimal `json:"costPrice"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

func inventoryResponse(rec *models.InventoryRecord) inventoryRecordResponse {
	return inventoryRecordResponse{
		ID:            rec.ID,
		MedicineID:    rec.MedicineID,
		Quantity:      rec.Quantity,
		MinStockLevel: rec.MinStockLevel,
		BatchNumber:   rec.BatchNumber,
		Supplier:      rec.Supplier,
		ExpiryDate:    rec.ExpiryDate,
		CostPrice:     rec.CostPrice,
		UpdatedAt:     rec.UpdatedAt,
	}
}

func InventoryList(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return inventoryListing(svc, logg, false)
}

// InventoryLowStock lists records at or below their reorder threshold.
func InventoryLowStock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return inventoryListing(svc, logg, true)
}

func inventoryListing(svc inventory.Service, logg *logger.Logger, lowOnly bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("inventory"))
			return
		}
		actor, err := caller(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var items []inventory.StockView
		if lowOnly {
			items, err = svc.LowStock(r.Context(), actor)
		} else {
			items, err = svc.List(r.Context(), actor)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func InventoryCreate(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("inventory"))
			return
		}
		actor, err := caller(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body createInventoryRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		expiry, err := parseOptionalDate("expiryDate", body.ExpiryDate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rec, err := svc.Create(r.Context(), actor, inventory.CreateInput{
			MedicineID:    uuid.MustParse(body.MedicineID),
			Quantity:      body.Quantity,
			MinStockLevel: body.MinStockLevel,
			BatchNumber:   body.BatchNumber,
			Supplier:      body.Supplier,
			ExpiryDate:    expiry,
			CostPrice:     body.CostPrice,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, inventoryResponse(rec))
	}
}

// InventoryUpdate sets quantity or metadata for the medicine's record.
func InventoryUpdate(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("inventory"))
			return
		}
		actor, err := caller(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		medicineID, err := validators.ParseUUIDParam(r, "medicineId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateInventoryRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		expiry, err := parseOptionalDate("expiryDate", body.ExpiryDate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rec, err := svc.Update(r.Context(), actor, inventory.UpdateInput{
			MedicineID:    medicineID,
			Quantity:      body.Quantity,
			MinStockLevel: body.MinStockLevel,
			BatchNumber:   body.BatchNumber,
			Supplier:      body.Supplier,
			ExpiryDate:    expiry,
			CostPrice:     body.CostPrice,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, inventoryResponse(rec))
	}
}
