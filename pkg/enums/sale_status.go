package enums

import "slices"

// SaleStatus is the lifecycle state of a point-of-sale transaction. Refunded
// is terminal.
type SaleStatus string

const (
	SaleStatusCompleted SaleStatus = "completed"
	SaleStatusPending   SaleStatus = "pending"
	SaleStatusRefunded  SaleStatus = "refunded"
)

var saleStatuses = []SaleStatus{SaleStatusCompleted, SaleStatusPending, SaleStatusRefunded}

func (s SaleStatus) String() string { return string(s) }

func (s SaleStatus) IsValid() bool { return slices.Contains(saleStatuses, s) }

// HoldsStock reports whether a sale in this status still owns the stock it
// decremented. Refunded sales have already returned theirs.
func (s SaleStatus) HoldsStock() bool {
	return s != SaleStatusRefunded
}

func ParseSaleStatus(value string) (SaleStatus, error) {
	return parse(saleStatuses, "sale status", value)
}
