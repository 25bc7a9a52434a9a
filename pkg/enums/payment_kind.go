package enums

import "fmt"

// PaymentKind identifies which processor API owns a payment's status.
type PaymentKind string

const (
	PaymentKindCard   PaymentKind = "card"
	PaymentKindBank   PaymentKind = "bank"
	PaymentKindPayout PaymentKind = "payout"
)

var validPaymentKinds = []PaymentKind{
	PaymentKindCard,
	PaymentKindBank,
	PaymentKindPayout,
}

func (k PaymentKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known PaymentKind.
func (k PaymentKind) IsValid() bool {
	for _, candidate := range validPaymentKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParsePaymentKind converts raw input into a PaymentKind.
func ParsePaymentKind(value string) (PaymentKind, error) {
	for _, candidate := range validPaymentKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment kind %q", value)
}
