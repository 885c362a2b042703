package sales

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pharmacy-backend/api/responses"
	"github.com/angelmondragon/pharmacy-backend/api/validators"
	"github.com/angelmondragon/pharmacy-backend/internal/authz"
	internalsales "github.com/angelmondragon/pharmacy-backend/internal/sales"
	"github.com/angelmondragon/pharmacy-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pharmacy-backend/pkg/errors"
	"github.com/angelmondragon/pharmacy-backend/pkg/logger"
	"github.com/angelmondragon/pharmacy-backend/pkg/pagination"
)

type itemRequest struct {
	MedicineID string `json:"medicineId" validate:"required,uuid"`
	Quantity   int    `json:"quantity"`
}

type createRequest struct {
	SaleNumber     string          `json:"saleNumber" validate:"required,max=50"`
	CustomerID     *string         `json:"customerId,omitempty" validate:"omitempty,uuid"`
	PharmacistID   *string         `json:"pharmacistId,omitempty" validate:"omitempty,uuid"`
	PrescriptionID *string         `json:"prescriptionId,omitempty" validate:"omitempty,uuid"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	TaxAmount      decimal.Decimal `json:"taxAmount"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	PaymentMethod  string          `json:"paymentMethod" validate:"required"`
	Status         string          `json:"status,omitempty"`
	Notes          *string         `json:"notes,omitempty"`
	Items          []itemRequest   `json:"items" validate:"required,min=1,dive"`
}

// toInput converts the body; quantities and enum values are checked by the
// service so that its validation order holds for every transport.
func (r createRequest) toInput(actor authz.Principal) internalsales.CreateInput {
	input := internalsales.CreateInput{
		SaleNumber:     r.SaleNumber,
		CustomerID:     optionalUUID(r.CustomerID),
		PharmacistID:   actor.AccountID,
		PrescriptionID: optionalUUID(r.PrescriptionID),
		Subtotal:       r.Subtotal,
		DiscountAmount: r.DiscountAmount,
		TaxAmount:      r.TaxAmount,
		TotalAmount:    r.TotalAmount,
		PaymentMethod:  enums.PaymentMethod(strings.TrimSpace(r.PaymentMethod)),
		Status:         enums.SaleStatus(strings.TrimSpace(r.Status)),
		Notes:          r.Notes,
		Items:          make([]internalsales.ItemInput, 0, len(r.Items)),
	}
	if id := optionalUUID(r.PharmacistID); id != nil {
		input.PharmacistID = *id
	}
	for _, it := range r.Items {
		input.Items = append(input.Items, internalsales.ItemInput{
			MedicineID: uuid.MustParse(it.MedicineID),
			Quantity:   it.Quantity,
		})
	}
	return input
}

// optionalUUID expects a value already checked by the uuid validate tag.
func optionalUUID(raw *string) *uuid.UUID {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil
	}
	id := uuid.MustParse(strings.TrimSpace(*raw))
	return &id
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

func principal(r *http.Request) (authz.Principal, error) {
	p, ok := authz.FromContext(r.Context())
	if !ok {
		return authz.Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return p, nil
}

// Create records a sale and answers 201 with its id. The pharmacist defaults
// to the caller when the body leaves it out.
func Create(svc internalsales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}
		actor, err := principal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Create(r.Context(), actor, body.toInput(actor))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// List pages sales newest first. Filters: status, customerId, date (YYYY-MM-DD).
func List(svc internalsales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}
		actor, err := principal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := parseListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), actor, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func parseListParams(r *http.Request) (internalsales.ListParams, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return internalsales.ListParams{}, err
	}
	params := internalsales.ListParams{
		Params: pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		},
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseSaleStatus(raw)
		if err != nil {
			return params, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status").
				WithDetails(map[string]any{"field": "status"})
		}
		params.Status = &status
	}
	if params.CustomerID, err = validators.ParseQueryUUID(r, "customerId"); err != nil {
		return params, err
	}
	if params.Date, err = validators.ParseQueryDate(r, "date"); err != nil {
		return params, err
	}
	return params, nil
}

func Get(svc internalsales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}
		actor, err := principal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		detail, err := svc.Get(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

// Delete removes a sale and returns its stock unless it was refunded.
func Delete(svc internalsales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}
		actor, err := principal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), actor, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func UpdateStatus(svc internalsales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}
		actor, err := principal(r)
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
		detail, err := svc.UpdateStatus(r.Context(), actor, id, body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}
