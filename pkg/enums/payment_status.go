package enums

// PaymentStatus tracks a payment as reported by the processor.
type PaymentStatus string

const (
	PaymentStatusPending        PaymentStatus = "pending"
	PaymentStatusActionRequired PaymentStatus = "action_required"
	PaymentStatusConfirmed      PaymentStatus = "confirmed"
	PaymentStatusPaid           PaymentStatus = "paid"
	PaymentStatusFailed         PaymentStatus = "failed"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusActionRequired,
	PaymentStatusConfirmed,
	PaymentStatusPaid,
	PaymentStatusFailed,
}

// NonTerminalPaymentStatuses lists the statuses the reconciler still polls.
var NonTerminalPaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusActionRequired,
	PaymentStatusConfirmed,
}

// String implements fmt.Stringer.
func (p PaymentStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentStatus.
func (p PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (p PaymentStatus) IsTerminal() bool {
	return p == PaymentStatusPaid || p == PaymentStatusFailed
}

