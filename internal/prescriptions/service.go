package prescriptions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/pharmacy-backend/internal/authz"
	"github.com/angelmondragon/pharmacy-backend/pkg/db"
	"github.com/angelmondragon/pharmacy-backend/pkg/db/models"
	"github.com/angelmondragon/pharmacy-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pharmacy-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages prescription intake and the verify/dispense workflow.
type Service interface {
	List(ctx context.Context, actor authz.Principal) ([]PrescriptionDTO, error)
	Get(ctx context.Context, actor authz.Principal, id uuid.UUID) (*PrescriptionDTO, error)
	Create(ctx context.Context, actor authz.Principal, input CreateInput) (*PrescriptionDTO, error)
	UpdateStatus(ctx context.Context, actor authz.Principal, id uuid.UUID, status string) (*PrescriptionDTO, error)
}

type service struct {
	tx   txRunner
	repo Repository
	now  func() time.Time
}

// NewService builds the prescriptions service.
func NewService(tx txRunner, repo Repository) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("prescriptions repository required")
	}
	return &service{tx: tx, repo: repo, now: func() time.Time { return time.Now().UTC() }}, nil
}

// List returns every prescription to staff and only their own to customers.
func (s *service) List(ctx context.Context, actor authz.Principal) ([]PrescriptionDTO, error) {
	if err := actor.Require(authz.PrescriptionsRead); err != nil {
		return nil, err
	}
	var owner *uuid.UUID
	if !actor.Role.IsStaff() {
		owner = &actor.AccountID
	}
	rows, err := s.repo.List(ctx, owner)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list prescriptions")
	}
	out := make([]PrescriptionDTO, 0, len(rows))
	for _, p := range rows {
		out = append(out, fromModel(p))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, actor authz.Principal, id uuid.UUID) (*PrescriptionDTO, error) {
	if err := actor.Require(authz.PrescriptionsRead); err != nil {
		return nil, err
	}
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "load prescription")
	}
	// Customers cannot probe for other customers' prescriptions.
	if !actor.Role.IsStaff() && p.CustomerID != actor.AccountID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "prescription not found")
	}
	dto := fromModel(*p)
	return &dto, nil
}

func (s *service) Create(ctx context.Context, actor authz.Principal, input CreateInput) (*PrescriptionDTO, error) {
	if err := actor.Require(authz.PrescriptionsWrite); err != nil {
		return nil, err
	}
	number := strings.TrimSpace(input.PrescriptionNumber)
	doctor := strings.TrimSpace(input.DoctorName)
	if number == "" || doctor == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "prescription number and doctor name are required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	seen := map[uuid.UUID]struct{}{}
	ids := make([]uuid.UUID, 0, len(input.Items))
	items := make([]models.PrescriptionItem, 0, len(input.Items))
	for i, it := range input.Items {
		if it.Quantity <= 0 {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "item %d: quantity must be positive", i)
		}
		if _, ok := seen[it.MedicineID]; !ok {
			seen[it.MedicineID] = struct{}{}
			ids = append(ids, it.MedicineID)
		}
		items = append(items, models.PrescriptionItem{
			MedicineID:         it.MedicineID,
			Quantity:           it.Quantity,
			DosageInstructions: strings.TrimSpace(it.DosageInstructions),
		})
	}
	issued := input.IssuedDate
	if issued.IsZero() {
		issued = s.now()
	}

	p := &models.Prescription{
		PrescriptionNumber: number,
		CustomerID:         input.CustomerID,
		DoctorName:         doctor,
		Notes:              input.Notes,
		IssuedDate:         issued.UTC(),
		Items:              items,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ok, err := repo.AccountHasRole(ctx, input.CustomerID, enums.RoleCustomer)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		found, err := repo.CountMedicines(ctx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load medicines")
		}
		if int(found) != len(ids) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "medicine not found")
		}
		if err := repo.Create(ctx, p); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "prescription number already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create prescription")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, p.ID)
}

// UpdateStatus moves a prescription one step along
// pending -> verified -> dispensed, with rejection allowed before dispensing.
func (s *service) UpdateStatus(ctx context.Context, actor authz.Principal, id uuid.UUID, status string) (*PrescriptionDTO, error) {
	if err := actor.Require(authz.PrescriptionsWrite); err != nil {
		return nil, err
	}
	next, err := enums.ParsePrescriptionStatus(strings.TrimSpace(status))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be one of pending, verified, dispensed, rejected")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.LockByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "load prescription")
		}
		if !current.Status.CanTransitionTo(next) {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot move prescription from %s to %s", current.Status, next).
				WithDetails(map[string]any{"from": string(current.Status), "to": string(next)})
		}

		now := s.now()
		updates := map[string]any{"status": next}
		switch next {
		case enums.PrescriptionStatusVerified:
			updates["verified_at"] = now
			updates["pharmacist_id"] = actor.AccountID
		case enums.PrescriptionStatusDispensed:
			updates["dispensed_at"] = now
			if err := repo.MarkItemsDispensed(ctx, id); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark items dispensed")
			}
		}
		if err := repo.Update(ctx, id, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update prescription")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, id)
}

func notFoundOr(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "prescription not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
