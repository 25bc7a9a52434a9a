package enums

import "fmt"

// LedgerTransactionStatus tracks a submitted ledger operation.
type LedgerTransactionStatus string

const (
	LedgerTransactionStatusPending   LedgerTransactionStatus = "pending"
	LedgerTransactionStatusConfirmed LedgerTransactionStatus = "confirmed"
	LedgerTransactionStatusFailed    LedgerTransactionStatus = "failed"
)

var validLedgerTransactionStatuses = []LedgerTransactionStatus{
	LedgerTransactionStatusPending,
	LedgerTransactionStatusConfirmed,
	LedgerTransactionStatusFailed,
}

func (s LedgerTransactionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known LedgerTransactionStatus.
func (s LedgerTransactionStatus) IsValid() bool {
	for _, candidate := range validLedgerTransactionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseLedgerTransactionStatus converts raw input into a LedgerTransactionStatus.
func ParseLedgerTransactionStatus(value string) (LedgerTransactionStatus, error) {
	for _, candidate := range validLedgerTransactionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger transaction status %q", value)
}
