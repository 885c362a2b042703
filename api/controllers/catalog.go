package controllers

import (
	"net/http"

	"github.com/angelmondragon/pharmacy-backend/api/responses"
	"github.com/angelmondragon/pharmacy-backend/api/validators"
	"github.com/angelmondragon/pharmacy-backend/internal/catalog"
	"github.com/angelmondragon/pharmacy-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

const maxSearchLen = 100

type createCategoryRequest struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Description *string `json:"description,omitempty"`
}

type createMedicineRequest struct {
	Name                 string          `json:"name" validate:"required,max=200"`
	SKU                  string          `json:"sku" validate:"required,max=50"`
	CategoryID           *string         `json:"categoryId,omitempty"`
	Description          *string         `json:"description,omitempty"`
	Dosage               *string         `json:"dosage,omitempty" validate:"omitempty,max=100"`
	Manufacturer         *string         `json:"manufacturer,omitempty" validate:"omitempty,max=200"`
	Price                decimal.Decimal `json:"price"`
	RequiresPrescription bool            `json:"requiresPrescription"`
}

func (r createMedicineRequest) toInput() (catalog.CreateMedicineInput, error) {
	categoryID, err := parseOptionalUUID("categoryId", r.CategoryID)
	if err != nil {
		return catalog.CreateMedicineInput{}, err
	}
	return catalog.CreateMedicineInput{
		Name:                 r.Name,
		SKU:                  r.SKU,
		CategoryID:           categoryID,
		Description:          r.Description,
		Dosage:               r.Dosage,
		Manufacturer:         r.Manufacturer,
		Price:                r.Price,
		RequiresPrescription: r.RequiresPrescription,
	}, nil
}

type updateMedicineRequest struct {
	Name                 *string          `json:"name,omitempty" validate:"omitempty,max=200"`
	SKU                  *string          `json:"sku,omitempty" validate:"omitempty,max=50"`
	CategoryID           *string          `json:"categoryId,omitempty"`
	Description          *string          `json:"description,omitempty"`
	Dosage               *string          `json:"dosage,omitempty" validate:"omitempty,max=100"`
	Manufacturer         *string          `json:"manufacturer,omitempty" validate:"omitempty,max=200"`
	Price                *decimal.Decimal `json:"price,omitempty"`
	RequiresPrescription *bool            `json:"requiresPrescription,omitempty"`
	IsActive             *bool            `json:"isActive,omitempty"`
}

func (r updateMedicineRequest) toInput() (catalog.UpdateMedicineInput, error) {
	categoryID, err := parseOptionalUUID("categoryId", r.CategoryID)
	if err != nil {
		return catalog.UpdateMedicineInput{}, err
	}
	return catalog.UpdateMedicineInput{
		Name:                 r.Name,
		SKU:                  r.SKU,
		CategoryID:           categoryID,
		Description:          r.Description,
		Dosage:               r.Dosage,
		Manufacturer:         r.Manufacturer,
		Price:                r.Price,
		RequiresPrescription: r.RequiresPrescription,
		IsActive:             r.IsActive,
	}, nil
}

func CategoriesList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("catalog"))
			return
		}
		items, err := svc.ListCategories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func CategoriesCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("catalog"))
			return
		}
		actor, err := caller(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body createCategoryRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		category, err := svc.CreateCategory(r.Context(), actor, catalog.CreateCategoryInput{Name: body.Name, Description: body.Description})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, category)
	}
}

// MedicinesList supports ?search=, ?categoryId= and ?includeInactive=true.
func MedicinesList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("catalog"))
			return
		}
		categoryID, err := validators.ParseQueryUUID(r, "categoryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		includeInactive, err := validators.ParseQueryBool(r, "includeInactive")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.ListMedicines(r.Context(), catalog.MedicineFilter{
			Search:          validators.SanitizeString(r.URL.Query().Get("search"), maxSearchLen),
			CategoryID:      categoryID,
			IncludeInactive: includeInactive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func MedicinesGet(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("catalog"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		medicine, err := svc.GetMedicine(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, medicine)
	}
}

func MedicinesCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("catalog"))
			return
		}
		actor, err := caller(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body createMedicineRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		medicine, err := svc.CreateMedicine(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, medicine)
	}
}

func MedicinesUpdate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("catalog"))
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
		var body updateMedicineRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		medicine, err := svc.UpdateMedicine(r.Context(), actor, id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, medicine)
	}
}

// MedicinesDelete deactivates the medicine; sales history keeps referencing it.
func MedicinesDelete(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("catalog"))
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
		if err := svc.DeactivateMedicine(r.Context(), actor, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
