package enums

import (
	"fmt"
	"strings"
)

// PaymentMethod is how the customer chose to settle a parent order.
type PaymentMethod string

const (
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentMethodCard           PaymentMethod = "card"
)

// IsValid reports whether the method is a known value.
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCashOnDelivery, PaymentMethodCard:
		return true
	default:
		return false
	}
}

// ParsePaymentMethod normalizes and validates a raw method string.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	method := PaymentMethod(strings.ToLower(strings.TrimSpace(raw)))
	if !method.IsValid() {
		return "", fmt.Errorf("unknown payment method %q", raw)
	}
	return method, nil
}
