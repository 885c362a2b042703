package sales

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/angelmondragon/pharmacy-backend/internal/authz"
	"github.com/angelmondragon/pharmacy-backend/internal/inventory"
	"github.com/angelmondragon/pharmacy-backend/pkg/db"
	"github.com/angelmondragon/pharmacy-backend/pkg/db/dbtest"
	"github.com/angelmondragon/pharmacy-backend/pkg/db/models"
	"github.com/angelmondragon/pharmacy-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pharmacy-backend/pkg/errors"
	"github.com/angelmondragon/pharmacy-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	client     *db.Client
	svc        Service
	pharmacist models.Account
	customer   models.Account
	actor      authz.Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client := dbtest.Open(t)
	svc, err := NewService(client, NewRepository(client.DB()), inventory.NewLedger(), nil, nil)
	require.NoError(t, err)

	f := &fixture{client: client, svc: svc}
	f.pharmacist = f.account(t, "pharm", enums.RolePharmacist)
	f.customer = f.account(t, "cust", enums.RoleCustomer)
	f.actor = authz.Principal{AccountID: f.pharmacist.ID, Role: enums.RolePharmacist}
	return f
}

func (f *fixture) account(t *testing.T, username string, role enums.Role) models.Account {
	t.Helper()
	acc := models.Account{
		Username:     username,
		Email:        username + "@pharmacy.test",
		PasswordHash: "x",
		FullName:     "Full " + username,
		Role:         role,
	}
	require.NoError(t, f.client.DB().Create(&acc).Error)
	return acc
}

func (f *fixture) medicine(t *testing.T, name, price string, qty int) models.Medicine {
	t.Helper()
	med := models.Medicine{
		Name:     name,
		SKU:      "SKU-" + name,
		Price:    decimal.RequireFromString(price),
		IsActive: true,
	}
	require.NoError(t, f.client.DB().Create(&med).Error)
	if qty >= 0 {
		require.NoError(t, f.client.DB().Create(&models.InventoryRecord{
			MedicineID:    med.ID,
			Quantity:      qty,
			MinStockLevel: inventory.DefaultMinStockLevel,
		}).Error)
	}
	return med
}

func (f *fixture) quantity(t *testing.T, medicineID uuid.UUID) int {
	t.Helper()
	var rec models.InventoryRecord
	require.NoError(t, f.client.DB().Where("medicine_id = ?", medicineID).First(&rec).Error)
	return rec.Quantity
}

func (f *fixture) input(number string, items ...ItemInput) CreateInput {
	return CreateInput{
		SaleNumber:    number,
		PharmacistID:  f.pharmacist.ID,
		Subtotal:      decimal.RequireFromString("8.00"),
		TotalAmount:   decimal.RequireFromString("8.00"),
		PaymentMethod: enums.PaymentMethodCash,
		Items:         items,
	}
}

func (f *fixture) countSales(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.client.DB().Model(&models.Sale{}).Count(&n).Error)
	return n
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	assert.Equal(t, code, typed.Code(), typed.Message())
}

func TestCreateSaleDecrementsStockAndSnapshotsPrice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	med := f.medicine(t, "Paracetamol", "2.00", 10)

	res, err := f.svc.Create(ctx, f.actor, f.input("S-1", ItemInput{MedicineID: med.ID, Quantity: 4}))
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, res.SaleID)
	assert.Equal(t, 6, f.quantity(t, med.ID))

	detail, err := f.svc.Get(ctx, f.actor, res.SaleID)
	require.NoError(t, err)
	assert.Equal(t, enums.SaleStatusCompleted, detail.Status)
	assert.Equal(t, WalkInCustomerName, detail.CustomerName)
	assert.Equal(t, "Full pharm", detail.PharmacistName)
	require.Len(t, detail.Items, 1)
	assert.Equal(t, "Paracetamol", detail.Items[0].MedicineName)
	assert.True(t, detail.Items[0].UnitPrice.Equal(decimal.RequireFromString("2.00")))
	assert.True(t, detail.Items[0].TotalPrice.Equal(decimal.RequireFromString("8.00")))

	// A later price change must not touch the recorded line.
	require.NoError(t, f.client.DB().Model(&models.Medicine{}).Where("id = ?", med.ID).
		Update("price", decimal.RequireFromString("5.00")).Error)
	detail, err = f.svc.Get(ctx, f.actor, res.SaleID)
	require.NoError(t, err)
	assert.True(t, detail.Items[0].UnitPrice.Equal(decimal.RequireFromString("2.00")))

	_, err = f.svc.Create(ctx, f.actor, f.input("S-2", ItemInput{MedicineID: med.ID, Quantity: 8}))
	assertCode(t, err, pkgerrors.CodeInsufficient)
	assert.Contains(t, err.Error(), "Available: 6, Required: 8")
	assert.Equal(t, 6, f.quantity(t, med.ID))

	require.NoError(t, f.svc.Delete(ctx, f.actor, res.SaleID))
	assert.Equal(t, 10, f.quantity(t, med.ID))
	_, err = f.svc.Get(ctx, f.actor, res.SaleID)
	assertCode(t, err, pkgerrors.CodeNotFound)

	var items int64
	require.NoError(t, f.client.DB().Model(&models.SaleItem{}).Where("sale_id = ?", res.SaleID).Count(&items).Error)
	assert.Zero(t, items)
}

func TestCreateSaleIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.medicine(t, "A", "1.00", 5)
	b := f.medicine(t, "B", "1.00", 1)

	_, err := f.svc.Create(ctx, f.actor, f.input("S-1",
		ItemInput{MedicineID: a.ID, Quantity: 2},
		ItemInput{MedicineID: b.ID, Quantity: 3},
	))
	assertCode(t, err, pkgerrors.CodeInsufficient)
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, b.ID.String(), details["medicineId"])
	assert.Equal(t, 1, details["available"])
	assert.Equal(t, uint64(3), details["required"])

	assert.Equal(t, 5, f.quantity(t, a.ID))
	assert.Equal(t, 1, f.quantity(t, b.ID))
	assert.Zero(t, f.countSales(t))
}

func TestCreateSaleSumsRepeatedLines(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	med := f.medicine(t, "A", "1.00", 5)

	_, err := f.svc.Create(ctx, f.actor, f.input("S-1",
		ItemInput{MedicineID: med.ID, Quantity: 3},
		ItemInput{MedicineID: med.ID, Quantity: 3},
	))
	assertCode(t, err, pkgerrors.CodeInsufficient)
	assert.Contains(t, err.Error(), "Available: 5, Required: 6")

	_, err = f.svc.Create(ctx, f.actor, f.input("S-2",
		ItemInput{MedicineID: med.ID, Quantity: 2},
		ItemInput{MedicineID: med.ID, Quantity: 3},
	))
	require.NoError(t, err)
	assert.Equal(t, 0, f.quantity(t, med.ID))
}

func TestCreateSaleValidationOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	med := f.medicine(t, "A", "1.00", 5)
	noStock := f.medicine(t, "NoStock", "1.00", -1)
	line := ItemInput{MedicineID: med.ID, Quantity: 1}

	_, err := f.svc.Create(ctx, authz.Principal{AccountID: f.customer.ID, Role: enums.RoleCustomer}, f.input("S-1", line))
	assertCode(t, err, pkgerrors.CodeForbidden)

	in := f.input("S-1", line)
	in.CustomerID = &f.pharmacist.ID
	_, err = f.svc.Create(ctx, f.actor, in)
	assertCode(t, err, pkgerrors.CodeNotFound)
	assert.Contains(t, err.Error(), "customer")

	in = f.input("S-1", line)
	in.PharmacistID = f.customer.ID
	_, err = f.svc.Create(ctx, f.actor, in)
	assertCode(t, err, pkgerrors.CodeNotFound)
	assert.Contains(t, err.Error(), "pharmacist")

	_, err = f.svc.Create(ctx, f.actor, f.input("S-1", line))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.actor, f.input("S-1", line))
	assertCode(t, err, pkgerrors.CodeConflict)

	in = f.input("S-2", line)
	missing := uuid.New()
	in.PrescriptionID = &missing
	_, err = f.svc.Create(ctx, f.actor, in)
	assertCode(t, err, pkgerrors.CodeNotFound)
	assert.Contains(t, err.Error(), "prescription")

	_, err = f.svc.Create(ctx, f.actor, f.input("S-3", line, ItemInput{MedicineID: uuid.New(), Quantity: 1}))
	assertCode(t, err, pkgerrors.CodeNotFound)
	assert.Contains(t, err.Error(), "medicine not found")

	_, err = f.svc.Create(ctx, f.actor, f.input("S-4", ItemInput{MedicineID: noStock.ID, Quantity: 1}))
	assertCode(t, err, pkgerrors.CodeNotFound)
	assert.Contains(t, err.Error(), "inventory not found for NoStock")

	assert.Equal(t, 4, f.quantity(t, med.ID))
	assert.Equal(t, int64(1), f.countSales(t))
}

func TestCreateSaleRejectsMalformedInput(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	med := f.medicine(t, "A", "1.00", 5)

	_, err := f.svc.Create(ctx, f.actor, f.input("S-1"))
	assertCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.Create(ctx, f.actor, f.input("S-1", ItemInput{MedicineID: med.ID, Quantity: 0}))
	assertCode(t, err, pkgerrors.CodeValidation)

	in := f.input("S-1", ItemInput{MedicineID: med.ID, Quantity: 1})
	in.Status = enums.SaleStatusRefunded
	_, err = f.svc.Create(ctx, f.actor, in)
	assertCode(t, err, pkgerrors.CodeValidation)

	in = f.input("S-1", ItemInput{MedicineID: med.ID, Quantity: 1})
	in.PaymentMethod = "barter"
	_, err = f.svc.Create(ctx, f.actor, in)
	assertCode(t, err, pkgerrors.CodeValidation)

	assert.Equal(t, 5, f.quantity(t, med.ID))
}

func TestCreateSaleRejectsOversizedQuantities(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	med := f.medicine(t, "A", "1.00", 5)

	_, err := f.svc.Create(ctx, f.actor, f.input("S-1",
		ItemInput{MedicineID: med.ID, Quantity: 1},
		ItemInput{MedicineID: med.ID, Quantity: math.MaxInt64},
	))
	assertCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.Create(ctx, f.actor, f.input("S-2",
		ItemInput{MedicineID: med.ID, Quantity: 1},
		ItemInput{MedicineID: med.ID, Quantity: math.MaxInt32},
	))
	assertCode(t, err, pkgerrors.CodeInsufficient)
	assert.Contains(t, err.Error(), "Available: 5, Required: 2147483648")
	assert.Equal(t, 5, f.quantity(t, med.ID))
}

func TestCheckAvailabilityDoesNotOverflow(t *testing.T) {
	id := uuid.New()
	medicines := map[uuid.UUID]models.Medicine{id: {Name: "A"}}
	stock := map[uuid.UUID]models.InventoryRecord{id: {MedicineID: id, Quantity: 5}}

	err := checkAvailability([]ItemInput{
		{MedicineID: id, Quantity: 1},
		{MedicineID: id, Quantity: math.MaxInt64},
	}, medicines, stock)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficient))
	assert.Contains(t, err.Error(), "Available: 5, Required: 9223372036854775808")

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 5, details["available"])
}

func TestRefundRestocksOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	med := f.medicine(t, "A", "1.00", 10)

	res, err := f.svc.Create(ctx, f.actor, f.input("S-1", ItemInput{MedicineID: med.ID, Quantity: 4}))
	require.NoError(t, err)
	assert.Equal(t, 6, f.quantity(t, med.ID))

	detail, err := f.svc.UpdateStatus(ctx, f.actor, res.SaleID, "refunded")
	require.NoError(t, err)
	assert.Equal(t, enums.SaleStatusRefunded, detail.Status)
	assert.Equal(t, 10, f.quantity(t, med.ID))

	_, err = f.svc.UpdateStatus(ctx, f.actor, res.SaleID, "refunded")
	require.NoError(t, err)
	assert.Equal(t, 10, f.quantity(t, med.ID))

	// Leaving refunded does not take the stock again.
	_, err = f.svc.UpdateStatus(ctx, f.actor, res.SaleID, "completed")
	require.NoError(t, err)
	assert.Equal(t, 10, f.quantity(t, med.ID))
}

func TestDeleteRefundedSaleDoesNotRestock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	med := f.medicine(t, "A", "1.00", 10)

	res, err := f.svc.Create(ctx, f.actor, f.input("S-1", ItemInput{MedicineID: med.ID, Quantity: 4}))
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, f.actor, res.SaleID, "refunded")
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, f.actor, res.SaleID))
	assert.Equal(t, 10, f.quantity(t, med.ID))
	assert.Zero(t, f.countSales(t))
}

func TestUpdateStatusErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	med := f.medicine(t, "A", "1.00", 10)

	_, err := f.svc.UpdateStatus(ctx, f.actor, uuid.New(), "refunded")
	assertCode(t, err, pkgerrors.CodeNotFound)

	res, err := f.svc.Create(ctx, f.actor, f.input("S-1", ItemInput{MedicineID: med.ID, Quantity: 4}))
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, f.actor, res.SaleID, "cancelled")
	assertCode(t, err, pkgerrors.CodeValidation)
	assert.Equal(t, 6, f.quantity(t, med.ID))

	_, err = f.svc.UpdateStatus(ctx, authz.Principal{AccountID: f.customer.ID, Role: enums.RoleCustomer}, res.SaleID, "refunded")
	assertCode(t, err, pkgerrors.CodeForbidden)

	err = f.svc.Delete(ctx, f.actor, uuid.New())
	assertCode(t, err, pkgerrors.CodeNotFound)
}

// The sqlite test database runs on a single connection and ignores FOR UPDATE,
// so this covers the end-to-end outcome. The guarded decrement that holds
// without the row lock is covered in internal/inventory/ledger_test.go.
func TestConcurrentSalesForLastUnit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	med := f.medicine(t, "A", "1.00", 1)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Create(ctx, f.actor, f.input("S-"+string(rune('A'+i)), ItemInput{MedicineID: med.ID, Quantity: 1}))
		}(i)
	}
	wg.Wait()

	var succeeded, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case pkgerrors.IsCode(err, pkgerrors.CodeInsufficient):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, insufficient)
	assert.Equal(t, 0, f.quantity(t, med.ID))
	assert.Equal(t, int64(1), f.countSales(t))
}

func TestListAndGetFallbackNames(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	med := f.medicine(t, "Ibuprofen", "3.50", 10)

	withCustomer := f.input("S-1", ItemInput{MedicineID: med.ID, Quantity: 1})
	withCustomer.CustomerID = &f.customer.ID
	first, err := f.svc.Create(ctx, f.actor, withCustomer)
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.actor, f.input("S-2", ItemInput{MedicineID: med.ID, Quantity: 2}))
	require.NoError(t, err)

	page, err := f.svc.List(ctx, f.actor, ListParams{})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	names := map[string]string{}
	for _, s := range page.Items {
		names[s.SaleNumber] = s.CustomerName
	}
	assert.Equal(t, "Full cust", names["S-1"])
	assert.Equal(t, WalkInCustomerName, names["S-2"])

	customerID := f.customer.ID
	page, err = f.svc.List(ctx, f.actor, ListParams{CustomerID: &customerID})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, first.SaleID, page.Items[0].ID)

	require.NoError(t, f.client.DB().Where("id = ?", f.pharmacist.ID).Delete(&models.Account{}).Error)
	require.NoError(t, f.client.DB().Where("id = ?", med.ID).Delete(&models.Medicine{}).Error)

	detail, err := f.svc.Get(ctx, f.actor, first.SaleID)
	require.NoError(t, err)
	assert.Equal(t, UnknownName, detail.PharmacistName)
	require.Len(t, detail.Items, 1)
	assert.Equal(t, UnknownName, detail.Items[0].MedicineName)

	_, err = f.svc.List(ctx, authz.Principal{AccountID: f.customer.ID, Role: enums.RoleCustomer}, ListParams{})
	assertCode(t, err, pkgerrors.CodeForbidden)
}

func TestListFiltersAndPages(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	med := f.medicine(t, "A", "1.00", 10)

	for _, n := range []string{"S-1", "S-2", "S-3"} {
		_, err := f.svc.Create(ctx, f.actor, f.input(n, ItemInput{MedicineID: med.ID, Quantity: 1}))
		require.NoError(t, err)
	}
	var pending models.Sale
	require.NoError(t, f.client.DB().Where("sale_number = ?", "S-2").First(&pending).Error)
	_, err := f.svc.UpdateStatus(ctx, f.actor, pending.ID, "pending")
	require.NoError(t, err)

	status := enums.SaleStatusPending
	page, err := f.svc.List(ctx, f.actor, ListParams{Status: &status})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "S-2", page.Items[0].SaleNumber)

	page, err = f.svc.List(ctx, f.actor, ListParams{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)
	assert.Empty(t, page.NextCursor)

	_, err = f.svc.List(ctx, f.actor, ListParams{Params: pagination.Params{Cursor: "%%%"}})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestServiceRequiresCollaborators(t *testing.T) {
	client := dbtest.Open(t)
	_, err := NewService(nil, NewRepository(client.DB()), inventory.NewLedger(), nil, nil)
	assert.Error(t, err)
	_, err = NewService(client, nil, inventory.NewLedger(), nil, nil)
	assert.Error(t, err)
	_, err = NewService(client, NewRepository(client.DB()), nil, nil, nil)
	assert.Error(t, err)
}
