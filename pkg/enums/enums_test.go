package enums

import "testing"

func TestParseSaleStatus(t *testing.T) {
	for _, raw := range []string{"completed", "pending", "refunded"} {
		got, err := ParseSaleStatus(raw)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", raw, err)
		}
		if got.String() != raw {
			t.Fatalf("expected %q got %q", raw, got)
		}
	}
	if _, err := ParseSaleStatus("cancelled"); err == nil {
		t.Fatal("expected error for unknown status")
	}
	if SaleStatusRefunded.HoldsStock() {
		t.Fatal("refunded sales must not hold stock")
	}
	if !SaleStatusPending.HoldsStock() || !SaleStatusCompleted.HoldsStock() {
		t.Fatal("pending and completed sales hold stock")
	}
}

func TestRoleHelpers(t *testing.T) {
	if _, err := ParseRole("superuser"); err == nil {
		t.Fatal("expected error for unknown role")
	}
	if !RoleAdmin.IsStaff() || !RolePharmacist.IsStaff() {
		t.Fatal("admin and pharmacist are staff")
	}
	if RoleCustomer.IsStaff() {
		t.Fatal("customer is not staff")
	}
}

func TestPrescriptionTransitions(t *testing.T) {
	tests := []struct {
		from PrescriptionStatus
		to   PrescriptionStatus
		ok   bool
	}{
		{PrescriptionStatusPending, PrescriptionStatusVerified, true},
		{PrescriptionStatusPending, PrescriptionStatusRejected, true},
		{PrescriptionStatusPending, PrescriptionStatusDispensed, false},
		{PrescriptionStatusVerified, PrescriptionStatusDispensed, true},
		{PrescriptionStatusDispensed, PrescriptionStatusPending, false},
		{PrescriptionStatusRejected, PrescriptionStatusVerified, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.ok {
			t.Fatalf("%s -> %s: expected %v got %v", tt.from, tt.to, tt.ok, got)
		}
	}
}

func TestParseIsExactMatch(t *testing.T) {
	if _, err := ParsePaymentMethod("Cash"); err == nil {
		t.Fatal("payment methods are case sensitive")
	}
	got, err := ParsePaymentMethod("insurance")
	if err != nil || got != PaymentMethodInsurance {
		t.Fatalf("expected insurance, got %q (%v)", got, err)
	}
	if _, err := ParseDiscountType(""); err == nil {
		t.Fatal("empty discount type must be rejected")
	}
	if AccountStatus("closed").IsValid() {
		t.Fatal("closed is not an account status")
	}
}
