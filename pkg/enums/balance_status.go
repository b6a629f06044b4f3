package enums

import "fmt"

// BalanceStatus is the derived settlement state of an order's ledger summary.
type BalanceStatus string

const (
	BalanceStatusPaid      BalanceStatus = "paid"
	BalanceStatusUnderpaid BalanceStatus = "underpaid"
	BalanceStatusOverpaid  BalanceStatus = "overpaid"
	BalanceStatusPending   BalanceStatus = "pending"
)

var validBalanceStatuses = []BalanceStatus{
	BalanceStatusPaid,
	BalanceStatusUnderpaid,
	BalanceStatusOverpaid,
	BalanceStatusPending,
}

// IsValid reports whether the value is a known BalanceStatus.
func (b BalanceStatus) IsValid() bool {
	for _, candidate := range validBalanceStatuses {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBalanceStatus converts raw input into a BalanceStatus.
func ParseBalanceStatus(value string) (BalanceStatus, error) {
	for _, candidate := range validBalanceStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid balance status %q", value)
}
