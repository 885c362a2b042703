package enums

import "slices"

// PaymentMethod is how a sale was settled at the counter.
type PaymentMethod string

const (
	PaymentMethodCash      PaymentMethod = "cash"
	PaymentMethodCard      PaymentMethod = "card"
	PaymentMethodInsurance PaymentMethod = "insurance"
)

var paymentMethods = []PaymentMethod{PaymentMethodCash, PaymentMethodCard, PaymentMethodInsurance}

func (p PaymentMethod) String() string { return string(p) }

func (p PaymentMethod) IsValid() bool { return slices.Contains(paymentMethods, p) }

func ParsePaymentMethod(value string) (PaymentMethod, error) {
	return parse(paymentMethods, "payment method", value)
}
