package enums

import "slices"

// DiscountType selects whether Value is a percentage of the total or a fixed
// amount off it.
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

var discountTypes = []DiscountType{DiscountTypePercentage, DiscountTypeFixed}

func (d DiscountType) String() string { return string(d) }

func (d DiscountType) IsValid() bool { return slices.Contains(discountTypes, d) }

func ParseDiscountType(value string) (DiscountType, error) {
	return parse(discountTypes, "discount type", value)
}
