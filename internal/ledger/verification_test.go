package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	sq "github.com/square/square-go-sdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/rcavanagh/orderdesk-backend/pkg/errors"
)

type stubPaymentFetcher struct {
	getPayment func(ctx context.Context, paymentID string) (*sq.Payment, error)
}

func (s *stubPaymentFetcher) GetPayment(ctx context.Context, paymentID string) (*sq.Payment, error) {
	return s.getPayment(ctx, paymentID)
}

func squarePayment(status string, amountCents int64) *sq.Payment {
	return &sq.Payment{
		Status: &status,
		AmountMoney: &sq.Money{
			Amount: &amountCents,
		},
	}
}

func TestVerifier_CompletedPaymentVerifies(t *testing.T) {
	verifier, err := NewVerifier(&stubPaymentFetcher{
		getPayment: func(ctx context.Context, id string) (*sq.Payment, error) {
			return squarePayment("COMPLETED", 350000), nil
		},
	})
	require.NoError(t, err)

	result, err := verifier.Verify(context.Background(), "sq-pay-1")
	require.NoError(t, err)
	assert.True(t, result.Verified)
	assert.Equal(t, "COMPLETED", result.Status)
	assert.True(t, result.Amount.Equal(decimal.RequireFromString("3500")), "minor units become currency units")
}

func TestVerifier_ApprovedIsNotSettled(t *testing.T) {
	verifier, err := NewVerifier(&stubPaymentFetcher{
		getPayment: func(ctx context.Context, id string) (*sq.Payment, error) {
			return squarePayment("APPROVED", 350000), nil
		},
	})
	require.NoError(t, err)

	result, err := verifier.Verify(context.Background(), "sq-pay-2")
	require.NoError(t, err)
	assert.False(t, result.Verified)
	require.NotNil(t, result.ErrorMessage)
	assert.Contains(t, *result.ErrorMessage, "not a settled state")
}

func TestVerifier_UnknownPaymentIsDefinitiveNegative(t *testing.T) {
	verifier, err := NewVerifier(&stubPaymentFetcher{
		getPayment: func(ctx context.Context, id string) (*sq.Payment, error) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		},
	})
	require.NoError(t, err)

	result, err := verifier.Verify(context.Background(), "sq-pay-3")
	require.NoError(t, err, "an unknown id is an answer, not a failure")
	assert.False(t, result.Verified)
	require.NotNil(t, result.ErrorMessage)
	assert.Equal(t, "payment not found at processor", *result.ErrorMessage)
}

func TestVerifier_TransportFailureIsRetryable(t *testing.T) {
	verifier, err := NewVerifier(&stubPaymentFetcher{
		getPayment: func(ctx context.Context, id string) (*sq.Payment, error) {
			return nil, errors.New("dial tcp: connection refused")
		},
	})
	require.NoError(t, err)

	result, err := verifier.Verify(context.Background(), "sq-pay-4")
	assert.Nil(t, result)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeVerificationUnavailable))
}

func TestVerifier_BlankIDRejected(t *testing.T) {
	verifier, err := NewVerifier(&stubPaymentFetcher{
		getPayment: func(ctx context.Context, id string) (*sq.Payment, error) {
			t.Fatal("processor must not be called")
			return nil, nil
		},
	})
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), "   ")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestNormalizeAmount(t *testing.T) {
	cents := int64(123)
	assert.True(t, normalizeAmount(&sq.Money{Amount: &cents}).Equal(decimal.RequireFromString("1.23")))
	assert.True(t, normalizeAmount(nil).IsZero())
	assert.True(t, normalizeAmount(&sq.Money{}).IsZero())
}
