package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/rcavanagh/orderdesk-backend/internal/orders"
	"github.com/rcavanagh/orderdesk-backend/pkg/config"
	dbpkg "github.com/rcavanagh/orderdesk-backend/pkg/db"
	"github.com/rcavanagh/orderdesk-backend/pkg/db/models"
	"github.com/rcavanagh/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/rcavanagh/orderdesk-backend/pkg/errors"
	"github.com/rcavanagh/orderdesk-backend/pkg/logger"
	"github.com/rcavanagh/orderdesk-backend/pkg/metrics"
	"github.com/rcavanagh/orderdesk-backend/pkg/outbox"
	"github.com/rcavanagh/orderdesk-backend/pkg/pagination"
	"github.com/rcavanagh/orderdesk-backend/pkg/types"
)

// RoleAdmin may approve manual payments without a one-time code and run
// repairs.
const RoleAdmin = "admin"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service is the single writer path for the payment ledger. Every entry is
// created and moved through its state machine here and nowhere else.
type Service interface {
	CreateEntry(ctx context.Context, input CreateEntryInput) (*models.LedgerEntry, error)
	GetEntry(ctx context.Context, entryID uuid.UUID) (*models.LedgerEntry, error)
	ListEntries(ctx context.Context, orderID uuid.UUID, includeVoided bool) (*EntryList, error)
	GetSummary(ctx context.Context, orderID uuid.UUID) (*OrderLedgerSummary, error)
	Verify(ctx context.Context, input VerifyInput) (*models.LedgerEntry, error)
	VerifyByProcessorTransactionID(ctx context.Context, processorTxID string, actorUserID uuid.UUID) (*models.LedgerEntry, error)
	Approve(ctx context.Context, input ApproveInput) (*models.LedgerEntry, error)
	Reject(ctx context.Context, input RejectInput) (*models.LedgerEntry, error)
	Void(ctx context.Context, input VoidInput) (*models.LedgerEntry, error)
	Repair(ctx context.Context, orderID uuid.UUID) (*OrderLedgerSummary, error)
	RepairAll(ctx context.Context) error
	Query(ctx context.Context, filters ListFilters, page pagination.Params) ([]models.LedgerEntry, int64, error)
	AuditByEntry(ctx context.Context, entryID uuid.UUID) ([]models.PaymentAuditEntry, error)
	AuditByOrder(ctx context.Context, orderID uuid.UUID) ([]models.PaymentAuditEntry, error)
	IssueApprovalCode(ctx context.Context, entryID uuid.UUID, actorUserID uuid.UUID) (string, error)
}

// ServiceParams wires the reconciliation service dependencies.
type ServiceParams struct {
	Repo              Repository
	Orders            orders.Repository
	Audit             AuditRecorder
	Sequences         SequenceAllocator
	Verifier          Verifier
	Legacy            LegacyAdapter
	TransactionRunner txRunner
	Outbox            outboxPublisher
	ApprovalCodes     ApprovalCodeStore
	Metrics           *metrics.LedgerMetrics
	Flags             config.FeatureFlagsConfig
	Logger            *logger.Logger
}

type service struct {
	repo    Repository
	orders  orders.Repository
	audit   AuditRecorder
	seq     SequenceAllocator
	verify  Verifier
	legacy  LegacyAdapter
	tx      txRunner
	outbox  outboxPublisher
	codes   ApprovalCodeStore
	metrics *metrics.LedgerMetrics
	flags   config.FeatureFlagsConfig
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds the reconciliation service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Audit == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	if params.Sequences == nil {
		return nil, fmt.Errorf("sequence allocator required")
	}
	if params.Verifier == nil {
		return nil, fmt.Errorf("verifier required")
	}
	if params.Legacy == nil {
		return nil, fmt.Errorf("legacy adapter required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.ApprovalCodes == nil {
		return nil, fmt.Errorf("approval code store required")
	}
	return &service{
		repo:    params.Repo,
		orders:  params.Orders,
		audit:   params.Audit,
		seq:     params.Sequences,
		verify:  params.Verifier,
		legacy:  params.Legacy,
		tx:      params.TransactionRunner,
		outbox:  params.Outbox,
		codes:   params.ApprovalCodes,
		metrics: params.Metrics,
		flags:   params.Flags,
		logg:    params.Logger,
		now:     time.Now,
	}, nil
}

// EntryList carries the entries for an order plus whether they were
// synthesized from pre-ledger data.
type EntryList struct {
	Entries     []models.LedgerEntry `json:"entries"`
	Synthesized bool                 `json:"synthesized"`
}

// CreateEntryInput captures a payment intent.
type CreateEntryInput struct {
	OrderID                uuid.UUID
	ChangeOrderID          *uuid.UUID
	TransactionType        enums.TransactionType
	Amount                 decimal.Decimal
	Method                 enums.PaymentMethod
	Category               enums.PaymentCategory
	ProcessorTransactionID *string
	ProofFile              *types.FileRef
	Notes                  *string
	// CaptureAsVerified records the entry directly in verified without
	// consulting the processor. Honored only when the unverified-capture
	// feature flag is on, which config validation forbids in prod.
	CaptureAsVerified bool
	ActorUserID       uuid.UUID
}

// VerifyInput identifies the pending entry to check against the processor.
type VerifyInput struct {
	EntryID     uuid.UUID
	ActorUserID uuid.UUID
}

// ApproveInput carries the manual approval request. Callers without the
// admin role must supply a one-time approval code.
type ApproveInput struct {
	EntryID      uuid.UUID
	ActorUserID  uuid.UUID
	ActorRole    string
	ApprovalCode string
}

// RejectInput carries the terminal rejection of a pending entry.
type RejectInput struct {
	EntryID     uuid.UUID
	ActorUserID uuid.UUID
	Reason      string
}

// VoidInput excludes an entry from all future summaries without deleting it.
type VoidInput struct {
	EntryID     uuid.UUID
	ActorUserID uuid.UUID
	Reason      string
}

// entryEvent is the outbox payload for entry lifecycle events.
type entryEvent struct {
	EntryID         uuid.UUID             `json:"entry_id"`
	OrderID         uuid.UUID             `json:"order_id"`
	PaymentNumber   string                `json:"payment_number"`
	TransactionType enums.TransactionType `json:"transaction_type"`
	Amount          decimal.Decimal       `json:"amount"`
	Status          enums.EntryStatus     `json:"status"`
}

// summaryEvent is the outbox payload for summary recomputes.
type summaryEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	Balance       decimal.Decimal     `json:"balance"`
	BalanceStatus enums.BalanceStatus `json:"balance_status"`
	CalculatedAt  time.Time           `json:"calculated_at"`
}

func (s *service) CreateEntry(ctx context.Context, input CreateEntryInput) (*models.LedgerEntry, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.TransactionType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid transaction type")
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if input.Category == "" {
		input.Category = enums.PaymentCategoryOther
	}
	if !input.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment category")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero")
	}
	if input.CaptureAsVerified && !s.flags.AllowUnverifiedCapture {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "unverified capture is not enabled")
	}

	// Idempotent create: a repeated intent for the same processor
	// transaction returns the entry the first call produced.
	if txID := trimmedPtr(input.ProcessorTransactionID); txID != nil {
		existing, err := s.repo.FindByProcessorTransactionID(ctx, *txID)
		if err != nil && !dbpkg.IsNotFound(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check processor transaction id")
		}
		if existing != nil {
			if existing.OrderID != input.OrderID {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "processor transaction already recorded for another order")
			}
			return existing, nil
		}
	}

	status := enums.EntryStatusPending
	var processorAmount *decimal.Decimal
	var processorStatus *string
	var verifiedAt *time.Time
	processorVerified := false

	// Creation lands directly in verified only when the processor confirms
	// the transaction in the same call. An unreachable processor leaves the
	// entry pending rather than failing the intent.
	if txID := trimmedPtr(input.ProcessorTransactionID); txID != nil {
		result, err := s.verify.Verify(ctx, *txID)
		if err != nil {
			if !pkgerrors.HasCode(err, pkgerrors.CodeVerificationUnavailable) {
				return nil, err
			}
			s.warn(ctx, "processor unreachable at create, entry stays pending", err)
		} else if result != nil {
			amt := result.Amount
			processorAmount = &amt
			if result.Status != "" {
				st := result.Status
				processorStatus = &st
			}
			if result.Verified && result.Amount.Equal(input.Amount) {
				status = enums.EntryStatusVerified
				processorVerified = true
				now := s.now()
				verifiedAt = &now
			}
		}
	} else if input.CaptureAsVerified {
		status = enums.EntryStatusVerified
		now := s.now()
		verifiedAt = &now
	}

	var created *models.LedgerEntry
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ordersRepo := s.orders.WithTx(tx)

		order, err := ordersRepo.FindByID(ctx, input.OrderID)
		if err != nil {
			if dbpkg.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		seq, err := s.seq.Next(ctx, tx, paymentSequenceName)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate payment number")
		}

		entry := &models.LedgerEntry{
			OrderID:                order.ID,
			OrderNumber:            order.OrderNumber,
			ChangeOrderID:          input.ChangeOrderID,
			PaymentNumber:          FormatPaymentNumber(seq),
			TransactionType:        input.TransactionType,
			Amount:                 input.Amount,
			Method:                 input.Method,
			Category:               input.Category,
			Status:                 status,
			ProcessorTransactionID: trimmedPtr(input.ProcessorTransactionID),
			ProcessorVerified:      processorVerified,
			ProcessorAmount:        processorAmount,
			ProcessorStatus:        processorStatus,
			VerifiedAt:             verifiedAt,
			ProofFile:              input.ProofFile,
			Notes:                  input.Notes,
			CreatedBy:              input.ActorUserID,
		}

		if err := repo.Create(ctx, entry); err != nil {
			if dbpkg.IsUniqueViolation(err) {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "entry already recorded")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create ledger entry")
		}

		newStatus := entry.Status
		if err := s.audit.WithTx(tx).Record(ctx, AuditRecord{
			EntryID:     entry.ID,
			OrderID:     entry.OrderID,
			Action:      enums.AuditActionCreated,
			NewStatus:   &newStatus,
			ActorUserID: input.ActorUserID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record audit entry")
		}

		if _, err := s.recomputeTx(ctx, tx, entry.OrderID, "create"); err != nil {
			return err
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventLedgerEntryCreated,
			AggregateType: enums.AggregateLedgerEntry,
			AggregateID:   entry.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID},
			Data:          eventFor(entry),
		}); err != nil {
			return err
		}

		created = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTransition("created")
	return created, nil
}

func (s *service) GetEntry(ctx context.Context, entryID uuid.UUID) (*models.LedgerEntry, error) {
	if entryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entry id required")
	}
	entry, err := s.repo.FindByID(ctx, entryID)
	if err != nil {
		if dbpkg.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ledger entry not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ledger entry")
	}
	return entry, nil
}

func (s *service) ListEntries(ctx context.Context, orderID uuid.UUID, includeVoided bool) (*EntryList, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	entries, err := s.repo.ListByOrderID(ctx, orderID, includeVoided)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger entries")
	}
	if len(entries) > 0 {
		return &EntryList{Entries: entries}, nil
	}

	view, err := s.legacyView(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if view != nil && view.Synthesized {
		return &EntryList{Entries: view.Entries, Synthesized: true}, nil
	}
	return &EntryList{Entries: entries}, nil
}

func (s *service) GetSummary(ctx context.Context, orderID uuid.UUID) (*OrderLedgerSummary, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if dbpkg.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	entries, err := s.repo.ListByOrderID(ctx, orderID, true)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger entries")
	}

	if len(entries) == 0 {
		view, err := s.legacy.View(ctx, order)
		if err != nil {
			return nil, err
		}
		if view.Synthesized {
			return &view.Summary, nil
		}
	}

	summary, err := ComputeSummary(order.Deposit, entries, s.now())
	if err != nil {
		return nil, s.invariantFailure(ctx, orderID, err)
	}
	return &summary, nil
}

func (s *service) Verify(ctx context.Context, input VerifyInput) (*models.LedgerEntry, error) {
	if input.EntryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entry id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	entry, err := s.GetEntry(ctx, input.EntryID)
	if err != nil {
		return nil, err
	}
	if entry.Status != enums.EntryStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "only pending entries can be verified")
	}
	txID := trimmedPtr(entry.ProcessorTransactionID)
	if txID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entry has no processor transaction id")
	}

	result, err := s.verify.Verify(ctx, *txID)
	if err != nil {
		return nil, err
	}
	if !result.Verified {
		detail := "processor did not confirm the payment"
		if result.ErrorMessage != nil {
			detail = *result.ErrorMessage
		}
		return nil, pkgerrors.New(pkgerrors.CodeVerificationFailed, "verification failed").
			WithDetails(map[string]any{"reason": detail, "processor_status": result.Status})
	}
	if !result.Amount.Equal(entry.Amount) {
		return nil, pkgerrors.New(pkgerrors.CodeVerificationFailed, "processor amount does not match entry").
			WithDetails(map[string]any{
				"entry_amount":     entry.Amount.String(),
				"processor_amount": result.Amount.String(),
			})
	}

	now := s.now()
	updates := map[string]any{
		"status":             enums.EntryStatusVerified,
		"processor_verified": true,
		"processor_amount":   result.Amount,
		"verified_at":        now,
		"updated_at":         now,
	}
	if result.Status != "" {
		updates["processor_status"] = result.Status
	}

	return s.transition(ctx, entry, transitionSpec{
		to:      enums.EntryStatusVerified,
		updates: updates,
		action:  enums.AuditActionVerified,
		event:   enums.EventLedgerEntryVerified,
		actor:   input.ActorUserID,
	})
}

func (s *service) VerifyByProcessorTransactionID(ctx context.Context, processorTxID string, actorUserID uuid.UUID) (*models.LedgerEntry, error) {
	entry, err := s.repo.FindByProcessorTransactionID(ctx, processorTxID)
	if err != nil {
		if dbpkg.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no ledger entry for processor transaction")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find entry by processor transaction id")
	}
	if entry.Status != enums.EntryStatusPending {
		return entry, nil
	}
	return s.Verify(ctx, VerifyInput{EntryID: entry.ID, ActorUserID: actorUserID})
}

func (s *service) Approve(ctx context.Context, input ApproveInput) (*models.LedgerEntry, error) {
	if input.EntryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entry id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	entry, err := s.GetEntry(ctx, input.EntryID)
	if err != nil {
		return nil, err
	}
	if entry.Status != enums.EntryStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "only pending entries can be approved")
	}
	if !entry.Method.RequiresManualApproval() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entry method is processor-verified, not manually approved")
	}

	if input.ActorRole != RoleAdmin {
		if err := s.codes.Consume(ctx, entry.ID, input.ApprovalCode); err != nil {
			return nil, err
		}
	}

	now := s.now()
	return s.transition(ctx, entry, transitionSpec{
		to: enums.EntryStatusApproved,
		updates: map[string]any{
			"status":      enums.EntryStatusApproved,
			"approved_by": input.ActorUserID,
			"approved_at": now,
			"updated_at":  now,
		},
		action: enums.AuditActionApproved,
		event:  enums.EventLedgerEntryApproved,
		actor:  input.ActorUserID,
		role:   input.ActorRole,
	})
}

func (s *service) Reject(ctx context.Context, input RejectInput) (*models.LedgerEntry, error) {
	if input.EntryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entry id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason required")
	}

	entry, err := s.GetEntry(ctx, input.EntryID)
	if err != nil {
		return nil, err
	}
	if entry.Status != enums.EntryStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "only pending entries can be rejected")
	}

	now := s.now()
	reason := input.Reason
	return s.transition(ctx, entry, transitionSpec{
		to: enums.EntryStatusRejected,
		updates: map[string]any{
			"status":        enums.EntryStatusRejected,
			"rejected_by":   input.ActorUserID,
			"rejected_at":   now,
			"reject_reason": reason,
			"updated_at":    now,
		},
		action:  enums.AuditActionRejected,
		event:   enums.EventLedgerEntryRejected,
		actor:   input.ActorUserID,
		details: &reason,
	})
}

func (s *service) Void(ctx context.Context, input VoidInput) (*models.LedgerEntry, error) {
	if input.EntryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entry id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "void reason required")
	}

	entry, err := s.GetEntry(ctx, input.EntryID)
	if err != nil {
		return nil, err
	}
	if !entry.Status.CanVoid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entry cannot be voided in its current state")
	}

	now := s.now()
	reason := input.Reason
	return s.transition(ctx, entry, transitionSpec{
		to: enums.EntryStatusVoided,
		updates: map[string]any{
			"status":      enums.EntryStatusVoided,
			"voided_by":   input.ActorUserID,
			"voided_at":   now,
			"void_reason": reason,
			"updated_at":  now,
		},
		action:  enums.AuditActionVoided,
		event:   enums.EventLedgerEntryVoided,
		actor:   input.ActorUserID,
		details: &reason,
	})
}

// Repair recomputes and re-persists the summary for one order. It is safe
// to run any number of times.
func (s *service) Repair(ctx context.Context, orderID uuid.UUID) (*OrderLedgerSummary, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var summary *OrderLedgerSummary
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		recomputed, err := s.recomputeTx(ctx, tx, orderID, "repair")
		if err != nil {
			return err
		}
		summary = recomputed
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventLedgerSummaryRecomputed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Version:       1,
			Data: summaryEvent{
				OrderID:       orderID,
				Balance:       recomputed.Balance,
				BalanceStatus: recomputed.BalanceStatus,
				CalculatedAt:  recomputed.CalculatedAt,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// RepairAll sweeps every order that has ledger entries. Per-order failures
// are collected so one poisoned order does not stop the sweep.
func (s *service) RepairAll(ctx context.Context) error {
	orderIDs, err := s.repo.DistinctOrderIDs(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order ids")
	}

	var errs error
	for _, orderID := range orderIDs {
		if _, err := s.Repair(ctx, orderID); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("repair order %s: %w", orderID, err))
		}
	}
	return errs
}

func (s *service) Query(ctx context.Context, filters ListFilters, page pagination.Params) ([]models.LedgerEntry, int64, error) {
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	if filters.TransactionType != nil && !filters.TransactionType.IsValid() {
		return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid transaction type filter")
	}
	if filters.From != nil && filters.To != nil && filters.To.Before(*filters.From) {
		return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "date range is inverted")
	}

	entries, total, err := s.repo.List(ctx, filters, page)
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query ledger entries")
	}
	return entries, total, nil
}

func (s *service) AuditByEntry(ctx context.Context, entryID uuid.UUID) ([]models.PaymentAuditEntry, error) {
	if entryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entry id required")
	}
	rows, err := s.audit.ListByEntryID(ctx, entryID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load audit trail")
	}
	return rows, nil
}

func (s *service) AuditByOrder(ctx context.Context, orderID uuid.UUID) ([]models.PaymentAuditEntry, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	rows, err := s.audit.ListByOrderID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load audit trail")
	}
	return rows, nil
}

func (s *service) IssueApprovalCode(ctx context.Context, entryID uuid.UUID, actorUserID uuid.UUID) (string, error) {
	if actorUserID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	entry, err := s.GetEntry(ctx, entryID)
	if err != nil {
		return "", err
	}
	if entry.Status != enums.EntryStatusPending {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "approval codes are only issued for pending entries")
	}
	if !entry.Method.RequiresManualApproval() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "entry method is processor-verified, not manually approved")
	}

	code, err := s.codes.Issue(ctx, entry.ID)
	if err != nil {
		return "", err
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithEntryID(ctx, entry.ID.String()), "approval code issued")
	}
	return code, nil
}

// transitionSpec describes one guarded status move and its side effects.
type transitionSpec struct {
	to      enums.EntryStatus
	updates map[string]any
	action  enums.AuditAction
	event   enums.OutboxEventType
	actor   uuid.UUID
	role    string
	details *string
}

// transition is the shared mutation path: a status-guarded UPDATE, a full
// summary recompute, one audit row, and one outbox event, all in a single
// transaction. The guard makes concurrent writers explicit: whoever loses
// the conditional update gets a concurrency conflict, not a lost update.
func (s *service) transition(ctx context.Context, entry *models.LedgerEntry, spec transitionSpec) (*models.LedgerEntry, error) {
	from := entry.Status
	var updated *models.LedgerEntry

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		rows, err := repo.Transition(ctx, entry.ID, from, spec.updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transition ledger entry")
		}
		if rows == 0 {
			s.metrics.IncConcurrencyConflict()
			return pkgerrors.New(pkgerrors.CodeConcurrency, "entry was modified concurrently").
				WithDetails(map[string]any{"expected_status": from})
		}

		reloaded, err := repo.FindByID(ctx, entry.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload ledger entry")
		}

		prev := from
		next := reloaded.Status
		if err := s.audit.WithTx(tx).Record(ctx, AuditRecord{
			EntryID:        reloaded.ID,
			OrderID:        reloaded.OrderID,
			Action:         spec.action,
			PreviousStatus: &prev,
			NewStatus:      &next,
			ActorUserID:    spec.actor,
			Details:        spec.details,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record audit entry")
		}

		if _, err := s.recomputeTx(ctx, tx, reloaded.OrderID, string(spec.action)); err != nil {
			return err
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     spec.event,
			AggregateType: enums.AggregateLedgerEntry,
			AggregateID:   reloaded.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: spec.actor, Role: spec.role},
			Data:          eventFor(reloaded),
		}); err != nil {
			return err
		}

		updated = reloaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTransition(string(spec.action))
	return updated, nil
}

// recomputeTx rebuilds the order summary from the full persisted entry set
// inside the caller's transaction and writes it onto the order row.
func (s *service) recomputeTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, trigger string) (*OrderLedgerSummary, error) {
	repo := s.repo.WithTx(tx)
	ordersRepo := s.orders.WithTx(tx)

	order, err := ordersRepo.FindByID(ctx, orderID)
	if err != nil {
		if dbpkg.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	entries, err := repo.ListByOrderID(ctx, orderID, true)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger entries")
	}

	start := s.now()
	summary, err := ComputeSummary(order.Deposit, entries, start)
	if err != nil {
		return nil, s.invariantFailure(ctx, orderID, err)
	}
	s.metrics.ObserveRecompute(trigger, time.Since(start))

	raw, err := json.Marshal(summary)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode summary")
	}
	if err := ordersRepo.UpdateLedgerSummary(ctx, orderID, raw); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist summary")
	}
	return &summary, nil
}

// invariantFailure surfaces an impossible ledger state loudly. The caller's
// transaction rolls back so the automated path stops for this order until a
// human reconciles it.
func (s *service) invariantFailure(ctx context.Context, orderID uuid.UUID, err error) error {
	s.metrics.IncInvariantViolation("summary_recompute")
	if s.logg != nil {
		s.logg.Error(s.logg.WithOrderID(ctx, orderID.String()), "ledger invariant violation detected", err)
	}
	return err
}

func (s *service) legacyView(ctx context.Context, orderID uuid.UUID) (*LegacyView, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if dbpkg.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return s.legacy.View(ctx, order)
}

func (s *service) warn(ctx context.Context, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), msg)
}

func eventFor(entry *models.LedgerEntry) entryEvent {
	return entryEvent{
		EntryID:         entry.ID,
		OrderID:         entry.OrderID,
		PaymentNumber:   entry.PaymentNumber,
		TransactionType: entry.TransactionType,
		Amount:          entry.Amount,
		Status:          entry.Status,
	}
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := *value
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
