package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	sq "github.com/square/square-go-sdk"

	pkgerrors "github.com/rcavanagh/orderdesk-backend/pkg/errors"
)

// VerificationResult is the adapter's answer for a processor transaction.
// Verified is definitive; a transport failure never produces a result.
type VerificationResult struct {
	Verified     bool
	Amount       decimal.Decimal
	Status       string
	ErrorMessage *string
}

// PaymentFetcher is the slice of the Square client the adapter needs.
type PaymentFetcher interface {
	GetPayment(ctx context.Context, paymentID string) (*sq.Payment, error)
}

// Verifier checks a processor transaction id against the payment processor.
type Verifier interface {
	Verify(ctx context.Context, processorTxID string) (*VerificationResult, error)
}

type squareVerifier struct {
	payments PaymentFetcher
}

// NewVerifier wraps a Square client as the ledger's verification adapter.
func NewVerifier(payments PaymentFetcher) (Verifier, error) {
	if payments == nil {
		return nil, fmt.Errorf("payment fetcher required")
	}
	return &squareVerifier{payments: payments}, nil
}

// squareConfirmedStatuses are the processor states that count as settled
// money. APPROVED is authorization only and does not confirm capture.
var squareConfirmedStatuses = map[string]bool{
	"COMPLETED": true,
}

// Verify distinguishes three outcomes: a definitive yes, a definitive no
// (unknown id or non-settled status), and processor-unreachable. Only the
// last one is retryable and it is surfaced as an error, never as a result.
func (v *squareVerifier) Verify(ctx context.Context, processorTxID string) (*VerificationResult, error) {
	trimmed := strings.TrimSpace(processorTxID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "processor transaction id required")
	}

	payment, err := v.payments.GetPayment(ctx, trimmed)
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			msg := "payment not found at processor"
			return &VerificationResult{Verified: false, ErrorMessage: &msg}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeVerificationUnavailable, err, "processor unreachable")
	}
	if payment == nil {
		msg := "payment not found at processor"
		return &VerificationResult{Verified: false, ErrorMessage: &msg}, nil
	}

	status := strings.ToUpper(stringOrEmpty(payment.GetStatus()))
	result := &VerificationResult{
		Verified: squareConfirmedStatuses[status],
		Status:   status,
		Amount:   normalizeAmount(payment.GetAmountMoney()),
	}
	if !result.Verified {
		msg := fmt.Sprintf("payment status %q is not a settled state", status)
		result.ErrorMessage = &msg
	}
	return result, nil
}

// normalizeAmount converts Square's minor-unit money into decimal currency
// units before it enters the ledger.
func normalizeAmount(money *sq.Money) decimal.Decimal {
	if money == nil || money.Amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromInt(*money.Amount).Shift(-2)
}

func stringOrEmpty(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
