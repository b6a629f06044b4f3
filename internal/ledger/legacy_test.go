package ledger

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rcavanagh/orderdesk-backend/pkg/db/models"
	"github.com/rcavanagh/orderdesk-backend/pkg/enums"
)

type stubLegacyRepo struct {
	record *models.LegacyPaymentRecord
}

func (s *stubLegacyRepo) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.LegacyPaymentRecord, error) {
	if s.record == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.record, nil
}

func legacyOrder() *models.Order {
	return &models.Order{
		ID:          uuid.New(),
		OrderNumber: "ORD-0042",
		Deposit:     decimal.RequireFromString("4000"),
	}
}

func TestLegacyAdapter_SynthesizesFromFlatRecord(t *testing.T) {
	order := legacyOrder()
	paidAt := time.Date(2023, 4, 12, 10, 0, 0, 0, time.UTC)
	adapter, err := NewLegacyAdapter(newStubLedgerRepo(), &stubLegacyRepo{
		record: &models.LegacyPaymentRecord{
			OrderID: order.ID,
			Amount:  decimal.RequireFromString("4000"),
			Method:  "check",
			PaidAt:  &paidAt,
		},
	})
	require.NoError(t, err)

	view, err := adapter.View(context.Background(), order)
	require.NoError(t, err)
	assert.True(t, view.Synthesized)
	require.Len(t, view.Entries, 1)

	entry := view.Entries[0]
	assert.Equal(t, "LEGACY-00001", entry.PaymentNumber)
	assert.Equal(t, enums.EntryStatusApproved, entry.Status)
	assert.Equal(t, enums.PaymentCategoryInitialDeposit, entry.Category)
	assert.Equal(t, enums.PaymentMethodCheck, entry.Method)
	assert.Equal(t, paidAt, entry.CreatedAt)

	assert.Equal(t, enums.BalanceStatusPaid, view.Summary.BalanceStatus)
	assert.True(t, view.Summary.Balance.IsZero())
}

func TestLegacyAdapter_SynthesizesFromInlineBlob(t *testing.T) {
	order := legacyOrder()
	blob, err := json.Marshal(map[string]any{
		"amount": "2500",
		"method": "wire",
	})
	require.NoError(t, err)
	order.LegacyPayment = blob

	adapter, err := NewLegacyAdapter(newStubLedgerRepo(), &stubLegacyRepo{})
	require.NoError(t, err)

	view, err := adapter.View(context.Background(), order)
	require.NoError(t, err)
	assert.True(t, view.Synthesized)
	require.Len(t, view.Entries, 1)
	assert.True(t, view.Entries[0].Amount.Equal(decimal.RequireFromString("2500")))
	assert.Equal(t, enums.PaymentMethodWire, view.Entries[0].Method)
	assert.Equal(t, enums.BalanceStatusUnderpaid, view.Summary.BalanceStatus)
}

func TestLegacyAdapter_UnknownMethodFallsBackToOther(t *testing.T) {
	order := legacyOrder()
	adapter, err := NewLegacyAdapter(newStubLedgerRepo(), &stubLegacyRepo{
		record: &models.LegacyPaymentRecord{
			OrderID: order.ID,
			Amount:  decimal.RequireFromString("100"),
			Method:  "carrier pigeon",
		},
	})
	require.NoError(t, err)

	view, err := adapter.View(context.Background(), order)
	require.NoError(t, err)
	require.Len(t, view.Entries, 1)
	assert.Equal(t, enums.PaymentMethodOther, view.Entries[0].Method)
}

func TestLegacyAdapter_RealEntriesWin(t *testing.T) {
	order := legacyOrder()
	repo := newStubLedgerRepo()
	entry := &models.LedgerEntry{
		ID:              uuid.New(),
		OrderID:         order.ID,
		TransactionType: enums.TransactionTypePayment,
		Status:          enums.EntryStatusPending,
	}
	require.NoError(t, repo.Create(context.Background(), entry))

	adapter, err := NewLegacyAdapter(repo, &stubLegacyRepo{
		record: &models.LegacyPaymentRecord{
			OrderID: order.ID,
			Amount:  decimal.RequireFromString("4000"),
			Method:  "check",
		},
	})
	require.NoError(t, err)

	view, err := adapter.View(context.Background(), order)
	require.NoError(t, err)
	assert.False(t, view.Synthesized, "real entries suppress the legacy view")
	assert.Empty(t, view.Entries)
}

func TestLegacyAdapter_DropsDoubleCountedProcessorTransaction(t *testing.T) {
	order := legacyOrder()
	txID := "sq-legacy-1"
	repo := newStubLedgerRepo()
	// The same processor transaction was re-entered as a real ledger entry
	// on a different order.
	require.NoError(t, repo.Create(context.Background(), &models.LedgerEntry{
		ID:                     uuid.New(),
		OrderID:                uuid.New(),
		TransactionType:        enums.TransactionTypePayment,
		Status:                 enums.EntryStatusVerified,
		ProcessorTransactionID: &txID,
	}))

	adapter, err := NewLegacyAdapter(repo, &stubLegacyRepo{
		record: &models.LegacyPaymentRecord{
			OrderID:                order.ID,
			Amount:                 decimal.RequireFromString("4000"),
			Method:                 "card",
			ProcessorTransactionID: &txID,
		},
	})
	require.NoError(t, err)

	view, err := adapter.View(context.Background(), order)
	require.NoError(t, err)
	assert.False(t, view.Synthesized)
}

func TestLegacyAdapter_NoLegacyData(t *testing.T) {
	adapter, err := NewLegacyAdapter(newStubLedgerRepo(), &stubLegacyRepo{})
	require.NoError(t, err)

	view, err := adapter.View(context.Background(), legacyOrder())
	require.NoError(t, err)
	assert.False(t, view.Synthesized)
	assert.Empty(t, view.Entries)
}
