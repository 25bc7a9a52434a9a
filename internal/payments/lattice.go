package payments

import "github.com/angelmondragon/packdrop-engine/pkg/enums"

// rank orders the forward path Pending -> ActionRequired -> Confirmed -> Paid.
// Failed sits outside the path and is reachable from any non-terminal status.
func rank(status enums.PaymentStatus) int {
	switch status {
	case enums.PaymentStatusPending:
		return 0
	case enums.PaymentStatusActionRequired:
		return 1
	case enums.PaymentStatusConfirmed:
		return 2
	case enums.PaymentStatusPaid:
		return 3
	default:
		return -1
	}
}

// CanAdvance reports whether moving from current to next is a forward step.
// Repeats and regressions return false.
func CanAdvance(current, next enums.PaymentStatus) bool {
	if !current.IsValid() || !next.IsValid() || current.IsTerminal() {
		return false
	}
	if next == enums.PaymentStatusFailed {
		return true
	}
	return rank(next) > rank(current)
}

// ReachesConfirmed reports whether the step crosses into Confirmed or beyond,
// which is when the pack is handed to the payer.
func ReachesConfirmed(current, next enums.PaymentStatus) bool {
	if next == enums.PaymentStatusFailed {
		return false
	}
	return rank(current) < rank(enums.PaymentStatusConfirmed) && rank(next) >= rank(enums.PaymentStatusConfirmed)
}
