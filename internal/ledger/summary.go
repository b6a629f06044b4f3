package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rcavanagh/orderdesk-backend/pkg/db/models"
	"github.com/rcavanagh/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/rcavanagh/orderdesk-backend/pkg/errors"
)

// OrderLedgerSummary is a derived projection of the non-voided entries for
// an order plus its original deposit. It is recomputed from scratch after
// every mutation, never patched incrementally, so it can always be rebuilt
// by replaying the entry list.
type OrderLedgerSummary struct {
	OriginalDeposit    decimal.Decimal     `json:"original_deposit"`
	DepositAdjustments decimal.Decimal     `json:"deposit_adjustments"`
	DepositRequired    decimal.Decimal     `json:"deposit_required"`
	TotalReceived      decimal.Decimal     `json:"total_received"`
	TotalRefunded      decimal.Decimal     `json:"total_refunded"`
	NetReceived        decimal.Decimal     `json:"net_received"`
	PendingReceived    decimal.Decimal     `json:"pending_received"`
	PendingRefunds     decimal.Decimal     `json:"pending_refunds"`
	Balance            decimal.Decimal     `json:"balance"`
	BalanceStatus      enums.BalanceStatus `json:"balance_status"`
	EntryCount         int                 `json:"entry_count"`
	LastEntryAt        *time.Time          `json:"last_entry_at,omitempty"`
	CalculatedAt       time.Time           `json:"calculated_at"`
}

// ComputeSummary folds the entry list into an OrderLedgerSummary. Voided
// entries contribute nothing; rejected entries are excluded from totals;
// only verified and approved entries move confirmed amounts, pending
// entries only feed the informational pending buckets.
func ComputeSummary(originalDeposit decimal.Decimal, entries []models.LedgerEntry, now time.Time) (OrderLedgerSummary, error) {
	summary := OrderLedgerSummary{
		OriginalDeposit: originalDeposit,
		CalculatedAt:    now,
	}

	hasPending := false
	hasConfirmed := false
	var lastEntryAt *time.Time

	for i := range entries {
		entry := &entries[i]
		if entry.Status == enums.EntryStatusVoided {
			continue
		}
		if entry.Amount.IsNegative() {
			return OrderLedgerSummary{}, pkgerrors.New(pkgerrors.CodeInvariantViolation,
				"ledger entry carries a negative amount")
		}

		summary.EntryCount++
		if lastEntryAt == nil || entry.CreatedAt.After(*lastEntryAt) {
			createdAt := entry.CreatedAt
			lastEntryAt = &createdAt
		}

		switch entry.Status {
		case enums.EntryStatusVerified, enums.EntryStatusApproved:
			hasConfirmed = true
			switch entry.TransactionType {
			case enums.TransactionTypePayment:
				summary.TotalReceived = summary.TotalReceived.Add(entry.Amount)
			case enums.TransactionTypeRefund:
				summary.TotalRefunded = summary.TotalRefunded.Add(entry.Amount)
			case enums.TransactionTypeDepositIncrease:
				summary.DepositAdjustments = summary.DepositAdjustments.Add(entry.Amount)
			case enums.TransactionTypeDepositDecrease:
				summary.DepositAdjustments = summary.DepositAdjustments.Sub(entry.Amount)
			}
		case enums.EntryStatusPending:
			hasPending = true
			switch entry.TransactionType {
			case enums.TransactionTypePayment:
				summary.PendingReceived = summary.PendingReceived.Add(entry.Amount)
			case enums.TransactionTypeRefund:
				summary.PendingRefunds = summary.PendingRefunds.Add(entry.Amount)
			}
		}
	}

	if summary.TotalReceived.IsNegative() || summary.TotalRefunded.IsNegative() {
		return OrderLedgerSummary{}, pkgerrors.New(pkgerrors.CodeInvariantViolation,
			"confirmed totals went negative during summary recompute")
	}

	summary.DepositRequired = originalDeposit.Add(summary.DepositAdjustments)
	summary.NetReceived = summary.TotalReceived.Sub(summary.TotalRefunded)
	summary.Balance = summary.DepositRequired.Sub(summary.NetReceived)
	summary.LastEntryAt = lastEntryAt

	// Pending only while nothing has been confirmed yet. Once any entry is
	// confirmed the status reflects the sign of the confirmed balance, with
	// in-flight amounts reported separately in the pending buckets.
	switch {
	case hasPending && !hasConfirmed:
		summary.BalanceStatus = enums.BalanceStatusPending
	case summary.Balance.IsZero():
		summary.BalanceStatus = enums.BalanceStatusPaid
	case summary.Balance.IsPositive():
		summary.BalanceStatus = enums.BalanceStatusUnderpaid
	default:
		summary.BalanceStatus = enums.BalanceStatusOverpaid
	}

	return summary, nil
}
