package controllers

import (
	"net/http"

	"github.com/angelmondragon/pharmacy-backend/api/responses"
	"github.com/angelmondragon/pharmacy-backend/api/validators"
	"github.com/angelmondragon/pharmacy-backend/internal/discounts"
	"github.com/angelmondragon/pharmacy-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pharmacy-backend/pkg/errors"
	"github.com/angelmondragon/pharmacy-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

type createDiscountRequest struct {
	Name                   string           `json:"name" validate:"required,max=100"`
	Description            *string          `json:"description,omitempty"`
	Type                   string           `json:"type" validate:"required,oneof=percentage fixed"`
	Value                  decimal.Decimal  `json:"value"`
	ApplicableToMedicineID *string          `json:"applicableToMedicineId,omitempty"`
	MinOrderAmount         *decimal.Decimal `json:"minOrderAmount,omitempty"`
	MaxDiscountAmount      *decimal.Decimal `json:"maxDiscountAmount,omitempty"`
	ValidFrom              string           `json:"validFrom" validate:"required"`
	ValidTo                string           `json:"validTo" validate:"required"`
	IsActive               *bool            `json:"isActive,omitempty"`
}

func (r createDiscountRequest) toInput() (discounts.CreateInput, error) {
	kind, err := enums.ParseDiscountType(r.Type)
	if err != nil {
		return discounts.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discount type")
	}
	medicineID, err := parseOptionalUUID("applicableToMedicineId", r.ApplicableToMedicineID)
	if err != nil {
		return discounts.CreateInput{}, err
	}
	from, err := parseDate("validFrom", r.ValidFrom)
	if err != nil {
		return discounts.CreateInput{}, err
	}
	to, err := parseDate("validTo", r.ValidTo)
	if err != nil {
		return discounts.CreateInput{}, err
	}
	return discounts.CreateInput{
		Name:                   r.Name,
		Description:            r.Description,
		Type:                   kind,
		Value:                  r.Value,
		ApplicableToMedicineID: medicineID,
		MinOrderAmount:         r.MinOrderAmount,
		MaxDiscountAmount:      r.MaxDiscountAmount,
		ValidFrom:              from,
		ValidTo:                to,
		IsActive:               r.IsActive,
	}, nil
}

func DiscountsList(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("discounts"))
			return
		}
		items, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func DiscountsActive(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("discounts"))
			return
		}
		items, err := svc.Active(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func DiscountsCreate(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("discounts"))
			return
		}
		actor, err := caller(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body createDiscountRequest
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
