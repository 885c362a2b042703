package sales

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/angelmondragon/pharmacy-backend/internal/authz"
	"github.com/angelmondragon/pharmacy-backend/internal/inventory"
	"github.com/angelmondragon/pharmacy-backend/pkg/db"
	"github.com/angelmondragon/pharmacy-backend/pkg/db/models"
	"github.com/angelmondragon/pharmacy-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pharmacy-backend/pkg/errors"
	"github.com/angelmondragon/pharmacy-backend/pkg/logger"
	"github.com/angelmondragon/pharmacy-backend/pkg/metrics"
	"github.com/angelmondragon/pharmacy-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service is the sale processor: it records sales and keeps inventory in
// step with them.
type Service interface {
	Create(ctx context.Context, actor authz.Principal, input CreateInput) (*CreateResult, error)
	Delete(ctx context.Context, actor authz.Principal, id uuid.UUID) error
	UpdateStatus(ctx context.Context, actor authz.Principal, id uuid.UUID, status string) (*SaleDetail, error)
	List(ctx context.Context, actor authz.Principal, params ListParams) (pagination.Page[SaleSummary], error)
	Get(ctx context.Context, actor authz.Principal, id uuid.UUID) (*SaleDetail, error)
}

type service struct {
	tx      txRunner
	repo    Repository
	ledger  inventory.Ledger
	metrics *metrics.SaleMetrics
	logg    *logger.Logger
}

// NewService builds the sale processor.
func NewService(tx txRunner, repo Repository, ledger inventory.Ledger, m *metrics.SaleMetrics, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{tx: tx, repo: repo, ledger: ledger, metrics: m, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, actor authz.Principal, input CreateInput) (*CreateResult, error) {
	if err := actor.Require(authz.SalesWrite); err != nil {
		return nil, err
	}
	result, err := s.create(ctx, input)
	if err != nil {
		s.metrics.SaleRejected(string(rejectionCode(err)))
		return nil, err
	}

	units := 0
	for _, item := range input.Items {
		units += item.Quantity
	}
	s.metrics.SaleCreated(string(input.PaymentMethod), units)

	logCtx := s.logg.WithSaleID(ctx, result.SaleID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"sale_number": input.SaleNumber,
		"items":       len(input.Items),
		"units":       units,
	})
	s.logg.Info(logCtx, "sale created")
	return result, nil
}

func (s *service) create(ctx context.Context, input CreateInput) (*CreateResult, error) {
	input, err := normalizeCreate(input)
	if err != nil {
		return nil, err
	}

	var saleID uuid.UUID
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if input.CustomerID != nil {
			ok, err := repo.AccountHasRole(ctx, *input.CustomerID, enums.RoleCustomer)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
			}
		}

		ok, err := repo.AccountHasRole(ctx, input.PharmacistID, enums.RolePharmacist)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pharmacist")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeNotFound, "pharmacist not found")
		}

		taken, err := repo.SaleNumberExists(ctx, input.SaleNumber)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check sale number")
		}
		if taken {
			return pkgerrors.New(pkgerrors.CodeConflict, "sale number already exists")
		}

		if input.PrescriptionID != nil {
			ok, err := repo.PrescriptionExists(ctx, *input.PrescriptionID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load prescription")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound, "prescription not found")
			}
		}

		medicines, err := repo.FindMedicines(ctx, distinctMedicineIDs(input.Items))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load medicines")
		}
		lockIDs := make([]uuid.UUID, 0, len(medicines))
		for id := range medicines {
			lockIDs = append(lockIDs, id)
		}
		stock, err := s.ledger.Lock(ctx, tx, lockIDs)
		if err != nil {
			return err
		}

		if err := checkAvailability(input.Items, medicines, stock); err != nil {
			return err
		}

		sale := &models.Sale{
			SaleNumber:     input.SaleNumber,
			CustomerID:     input.CustomerID,
			PharmacistID:   input.PharmacistID,
			PrescriptionID: input.PrescriptionID,
			Subtotal:       input.Subtotal,
			DiscountAmount: input.DiscountAmount,
			TaxAmount:      input.TaxAmount,
			TotalAmount:    input.TotalAmount,
			PaymentMethod:  input.PaymentMethod,
			Status:         input.Status,
			Notes:          input.Notes,
		}
		if err := repo.CreateSale(ctx, sale); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "sale number already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create sale")
		}

		items := make([]models.SaleItem, 0, len(input.Items))
		for _, line := range input.Items {
			price := medicines[line.MedicineID].Price
			items = append(items, models.SaleItem{
				SaleID:     sale.ID,
				MedicineID: line.MedicineID,
				Quantity:   line.Quantity,
				UnitPrice:  price,
				TotalPrice: price.Mul(decimal.NewFromInt(int64(line.Quantity))),
			})
		}
		if err := repo.CreateItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create sale items")
		}

		for _, line := range input.Items {
			if err := s.ledger.Decrement(ctx, tx, line.MedicineID, line.Quantity); err != nil {
				return err
			}
		}

		saleID = sale.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &CreateResult{SaleID: saleID}, nil
}

// checkAvailability walks the lines in request order. Repeated lines for the
// same medicine are compared against the stock cumulatively.
func checkAvailability(items []ItemInput, medicines map[uuid.UUID]models.Medicine, stock map[uuid.UUID]models.InventoryRecord) error {
	required := make(map[uuid.UUID]int, len(items))
	for _, line := range items {
		med, ok := medicines[line.MedicineID]
		if !ok {
			return pkgerrors.New(pkgerrors.CodeNotFound, "medicine not found").
				WithDetails(map[string]any{"medicineId": line.MedicineID.String()})
		}
		record, ok := stock[line.MedicineID]
		if !ok {
			return pkgerrors.Newf(pkgerrors.CodeNotFound, "inventory not found for %s", med.Name).
				WithDetails(map[string]any{"medicineId": line.MedicineID.String()})
		}
		// compared against what is left so the running sum never overflows
		taken := required[line.MedicineID]
		if line.Quantity > record.Quantity-taken {
			need := uint64(taken) + uint64(line.Quantity)
			return pkgerrors.Newf(pkgerrors.CodeInsufficient,
				"Insufficient stock for %s. Available: %d, Required: %d",
				med.Name, record.Quantity, need).
				WithDetails(map[string]any{
					"medicineId": line.MedicineID.String(),
					"available":  record.Quantity,
					"required":   need,
				})
		}
		required[line.MedicineID] = taken + line.Quantity
	}
	return nil
}

func (s *service) Delete(ctx context.Context, actor authz.Principal, id uuid.UUID) error {
	if err := actor.Require(authz.SalesWrite); err != nil {
		return err
	}

	restocked := 0
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		sale, err := lockSale(ctx, repo, id)
		if err != nil {
			return err
		}
		if sale.Status.HoldsStock() {
			if restocked, err = s.restock(ctx, tx, sale.Items); err != nil {
				return err
			}
		}
		if err := repo.DeleteSale(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete sale")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.Restocked("delete", restocked)
	s.logg.Info(s.logg.WithField(s.logg.WithSaleID(ctx, id.String()), "restocked_units", restocked), "sale deleted")
	return nil
}

func (s *service) UpdateStatus(ctx context.Context, actor authz.Principal, id uuid.UUID, status string) (*SaleDetail, error) {
	if err := actor.Require(authz.SalesWrite); err != nil {
		return nil, err
	}

	restocked := 0
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		sale, err := lockSale(ctx, repo, id)
		if err != nil {
			return err
		}
		next, err := enums.ParseSaleStatus(strings.TrimSpace(status))
		if err != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "status must be one of completed, pending, refunded").
				WithDetails(map[string]any{"status": status})
		}

		if next == enums.SaleStatusRefunded && sale.Status != enums.SaleStatusRefunded {
			if restocked, err = s.restock(ctx, tx, sale.Items); err != nil {
				return err
			}
		}
		if next == sale.Status {
			return nil
		}
		if err := repo.UpdateStatus(ctx, id, next); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update sale status")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Restocked("refund", restocked)
	s.logg.Info(s.logg.WithField(s.logg.WithSaleID(ctx, id.String()), "status", status), "sale status updated")
	return s.detail(ctx, id)
}

func (s *service) List(ctx context.Context, actor authz.Principal, params ListParams) (pagination.Page[SaleSummary], error) {
	if err := actor.Require(authz.SalesRead); err != nil {
		return pagination.Page[SaleSummary]{}, err
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[SaleSummary]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	q := listQuery{
		Limit:      params.Limit,
		Cursor:     cursor,
		Status:     params.Status,
		CustomerID: params.CustomerID,
	}
	if params.Date != nil {
		d := params.Date.UTC()
		from := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		to := from.AddDate(0, 0, 1)
		q.From, q.To = &from, &to
	}

	rows, err := s.repo.List(ctx, q)
	if err != nil {
		return pagination.Page[SaleSummary]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sales")
	}
	for i := range rows {
		rows[i].applyFallbacks()
	}
	return pagination.Paginate(rows, params.Limit, summaryCursor), nil
}

func (s *service) Get(ctx context.Context, actor authz.Principal, id uuid.UUID) (*SaleDetail, error) {
	if err := actor.Require(authz.SalesRead); err != nil {
		return nil, err
	}
	return s.detail(ctx, id)
}

func (s *service) detail(ctx context.Context, id uuid.UUID) (*SaleDetail, error) {
	summary, err := s.repo.FindSummary(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
	}
	items, err := s.repo.ListItems(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale items")
	}
	summary.applyFallbacks()
	for i := range items {
		items[i].applyFallbacks()
	}
	return &SaleDetail{SaleSummary: *summary, Items: items}, nil
}

func (s *service) restock(ctx context.Context, tx *gorm.DB, items []models.SaleItem) (int, error) {
	units := 0
	for _, item := range items {
		if err := s.ledger.Restock(ctx, tx, item.MedicineID, item.Quantity); err != nil {
			return 0, err
		}
		units += item.Quantity
	}
	return units, nil
}

func lockSale(ctx context.Context, repo Repository, id uuid.UUID) (*models.Sale, error) {
	sale, err := repo.LockSale(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
	}
	return sale, nil
}

// maxLineQuantity matches the integer column sale_items.quantity is stored in.
const maxLineQuantity = math.MaxInt32

func normalizeCreate(input CreateInput) (CreateInput, error) {
	input.SaleNumber = strings.TrimSpace(input.SaleNumber)
	if input.SaleNumber == "" {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "sale number is required")
	}
	if input.PharmacistID == uuid.Nil {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "pharmacist id is required")
	}
	if len(input.Items) == 0 {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	for i, item := range input.Items {
		if item.MedicineID == uuid.Nil {
			return input, pkgerrors.Newf(pkgerrors.CodeValidation, "item %d: medicine id is required", i)
		}
		if item.Quantity <= 0 {
			return input, pkgerrors.Newf(pkgerrors.CodeValidation, "item %d: quantity must be positive", i)
		}
		if item.Quantity > maxLineQuantity {
			return input, pkgerrors.Newf(pkgerrors.CodeValidation, "item %d: quantity cannot exceed %d", i, maxLineQuantity)
		}
	}
	for _, amount := range []struct {
		name  string
		value decimal.Decimal
	}{
		{"subtotal", input.Subtotal},
		{"discountAmount", input.DiscountAmount},
		{"taxAmount", input.TaxAmount},
		{"totalAmount", input.TotalAmount},
	} {
		if amount.value.IsNegative() {
			return input, pkgerrors.Newf(pkgerrors.CodeValidation, "%s cannot be negative", amount.name)
		}
	}
	if !input.PaymentMethod.IsValid() {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "payment method must be one of cash, card, insurance")
	}
	switch input.Status {
	case "":
		input.Status = enums.SaleStatusCompleted
	case enums.SaleStatusCompleted, enums.SaleStatusPending:
	default:
		return input, pkgerrors.New(pkgerrors.CodeValidation, "a new sale must be completed or pending")
	}
	return input, nil
}

func distinctMedicineIDs(items []ItemInput) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(items))
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.MedicineID]; ok {
			continue
		}
		seen[item.MedicineID] = struct{}{}
		ids = append(ids, item.MedicineID)
	}
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })
	return ids
}

func rejectionCode(err error) pkgerrors.Code {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Code()
	}
	return pkgerrors.CodeInternal
}
