package controllers

import (
	"net/http"

	"github.com/angelmondragon/pharmacy-backend/api/responses"
	"github.com/angelmondragon/pharmacy-backend/api/validators"
	"github.com/angelmondragon/pharmacy-backend/internal/prescriptions"
	"github.com/angelmondragon/pharmacy-backend/pkg/logger"
	"github.com/google/uuid"
)

type prescriptionItemRequest struct {
	MedicineID         string `json:"medicineId" validate:"required,uuid"`
	Quantity           int    `json:"quantity" validate:"gt=0"`
	DosageInstructions string `json:"dosageInstructions" validate:"required"`
}

type createPrescriptionRequest struct {
	PrescriptionNumber string                    `json:"prescriptionNumber" validate:"required,max=50"`
	CustomerID         string                    `json:"customerId" validate:"required,uuid"`
	DoctorName         string                    `json:"doctorName" validate:"required,max=100"`
	Notes              *string                   `json:"notes,omitempty"`
	IssuedDate         string                    `json:"issuedDate" validate:"required"`
	Items              []prescriptionItemRequest `json:"items" validate:"required,min=1,dive"`
}

func (r createPrescriptionRequest) toInput() (prescriptions.CreateInput, error) {
	issued, err := parseDate("issuedDate", r.IssuedDate)
	if err != nil {
		return prescriptions.CreateInput{}, err
	}
	items := make([]prescriptions.ItemInput, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, prescriptions.ItemInput{
			MedicineID:         uuid.MustParse(it.MedicineID),
			Quantity:           it.Quantity,
			DosageInstructions: it.DosageInstructions,
		})
	}
	return prescriptions.CreateInput{
		PrescriptionNumber: r.PrescriptionNumber,
		CustomerID:         uuid.MustParse(r.CustomerID),
		DoctorName:         r.DoctorName,
		Notes:              r.Notes,
		IssuedDate:         issued,
		Items:              items,
	}, nil
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

// PrescriptionsList returns every prescription to staff and only their own to customers.
func PrescriptionsList(svc prescriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("prescriptions"))
			return
		}
		actor, err := caller(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.List(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func PrescriptionsGet(svc prescriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("prescriptions"))
			return
		}
		actor, err := caller(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.Get(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func PrescriptionsCreate(svc prescriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("prescriptions"))
			return
		}
		actor, err := caller(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body createPrescriptionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.Create(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

// PrescriptionsUpdateStatus moves a prescription through its review states.
func PrescriptionsUpdateStatus(svc prescriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("prescriptions"))
			return
		}
		actor, err := caller(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body statusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.UpdateStatus(r.Context(), actor, id, body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}
