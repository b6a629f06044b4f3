package enums

import "fmt"

// TransactionType maps to the transaction_type_enum enum in Postgres.
// Direction is carried by the type; amounts are always non-negative.
type TransactionType string

const (
	TransactionTypePayment         TransactionType = "payment"
	TransactionTypeRefund          TransactionType = "refund"
	TransactionTypeDepositIncrease TransactionType = "deposit_increase"
	TransactionTypeDepositDecrease TransactionType = "deposit_decrease"
)

var validTransactionTypes = []TransactionType{
	TransactionTypePayment,
	TransactionTypeRefund,
	TransactionTypeDepositIncrease,
	TransactionTypeDepositDecrease,
}

// IsValid reports whether the value matches the canonical transaction type enum.
func (t TransactionType) IsValid() bool {
	for _, candidate := range validTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// IsDepositAdjustment reports whether the type changes the required deposit.
func (t TransactionType) IsDepositAdjustment() bool {
	return t == TransactionTypeDepositIncrease || t == TransactionTypeDepositDecrease
}

// ParseTransactionType converts raw input into TransactionType.
func ParseTransactionType(value string) (TransactionType, error) {
	for _, candidate := range validTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction type %q", value)
}
