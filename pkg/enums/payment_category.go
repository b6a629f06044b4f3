package enums

import "fmt"

// PaymentCategory classifies what a ledger entry pays for.
type PaymentCategory string

const (
	PaymentCategoryInitialDeposit  PaymentCategory = "initial_deposit"
	PaymentCategoryProgressPayment PaymentCategory = "progress_payment"
	PaymentCategoryFinalPayment    PaymentCategory = "final_payment"
	PaymentCategoryChangeOrder     PaymentCategory = "change_order"
	PaymentCategoryAdjustment      PaymentCategory = "adjustment"
	PaymentCategoryOther           PaymentCategory = "other"
)

var validPaymentCategories = []PaymentCategory{
	PaymentCategoryInitialDeposit,
	PaymentCategoryProgressPayment,
	PaymentCategoryFinalPayment,
	PaymentCategoryChangeOrder,
	PaymentCategoryAdjustment,
	PaymentCategoryOther,
}

// IsValid reports whether the value is a known PaymentCategory.
func (c PaymentCategory) IsValid() bool {
	for _, candidate := range validPaymentCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParsePaymentCategory converts raw input into a PaymentCategory.
func ParsePaymentCategory(value string) (PaymentCategory, error) {
	for _, candidate := range validPaymentCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment category %q", value)
}
