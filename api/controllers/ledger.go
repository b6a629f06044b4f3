package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rcavanagh/orderdesk-backend/api/middleware"
	"github.com/rcavanagh/orderdesk-backend/api/responses"
	"github.com/rcavanagh/orderdesk-backend/api/validators"
	"github.com/rcavanagh/orderdesk-backend/internal/ledger"
	"github.com/rcavanagh/orderdesk-backend/pkg/db/models"
	"github.com/rcavanagh/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/rcavanagh/orderdesk-backend/pkg/errors"
	"github.com/rcavanagh/orderdesk-backend/pkg/logger"
	"github.com/rcavanagh/orderdesk-backend/pkg/pagination"
	"github.com/rcavanagh/orderdesk-backend/pkg/types"
)

type ledgerService interface {
	CreateEntry(ctx context.Context, input ledger.CreateEntryInput) (*models.LedgerEntry, error)
	GetEntry(ctx context.Context, entryID uuid.UUID) (*models.LedgerEntry, error)
	ListEntries(ctx context.Context, orderID uuid.UUID, includeVoided bool) (*ledger.EntryList, error)
	GetSummary(ctx context.Context, orderID uuid.UUID) (*ledger.OrderLedgerSummary, error)
	Verify(ctx context.Context, input ledger.VerifyInput) (*models.LedgerEntry, error)
	Approve(ctx context.Context, input ledger.ApproveInput) (*models.LedgerEntry, error)
	Reject(ctx context.Context, input ledger.RejectInput) (*models.LedgerEntry, error)
	Void(ctx context.Context, input ledger.VoidInput) (*models.LedgerEntry, error)
	Repair(ctx context.Context, orderID uuid.UUID) (*ledger.OrderLedgerSummary, error)
	RepairAll(ctx context.Context) error
	Query(ctx context.Context, filters ledger.ListFilters, page pagination.Params) ([]models.LedgerEntry, int64, error)
	AuditByEntry(ctx context.Context, entryID uuid.UUID) ([]models.PaymentAuditEntry, error)
	AuditByOrder(ctx context.Context, orderID uuid.UUID) ([]models.PaymentAuditEntry, error)
	IssueApprovalCode(ctx context.Context, entryID uuid.UUID, actorUserID uuid.UUID) (string, error)
}

type createEntryRequest struct {
	TransactionType        string          `json:"transaction_type" validate:"required"`
	Amount                 decimal.Decimal `json:"amount" validate:"required"`
	Method                 string          `json:"method" validate:"required"`
	Category               string          `json:"category"`
	ChangeOrderID          *uuid.UUID      `json:"change_order_id"`
	ProcessorTransactionID *string         `json:"processor_transaction_id"`
	ProofFile              *types.FileRef  `json:"proof_file"`
	Notes                  *string         `json:"notes"`
	CaptureAsVerified      bool            `json:"capture_as_verified"`
}

type approveEntryRequest struct {
	ApprovalCode string `json:"approval_code"`
}

type reasonRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

type entryListResponse struct {
	Entries     []models.LedgerEntry `json:"entries"`
	Synthesized bool                 `json:"synthesized"`
}

type entryPageResponse struct {
	Entries []models.LedgerEntry `json:"entries"`
	Total   int64                `json:"total"`
	Limit   int                  `json:"limit"`
	Offset  int                  `json:"offset"`
}

type approvalCodeResponse struct {
	ApprovalCode string `json:"approval_code"`
}

func actorFromContext(ctx context.Context) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(ctx)
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user identity")
	}
	return id, nil
}

// CreateLedgerEntry records a payment intent against an order.
func CreateLedgerEntry(svc ledgerService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req createEntryRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := ledger.CreateEntryInput{
			OrderID:                orderID,
			ChangeOrderID:          req.ChangeOrderID,
			TransactionType:        enums.TransactionType(strings.ToLower(req.TransactionType)),
			Amount:                 req.Amount,
			Method:                 enums.PaymentMethod(strings.ToLower(req.Method)),
			Category:               enums.PaymentCategory(strings.ToLower(req.Category)),
			ProcessorTransactionID: req.ProcessorTransactionID,
			ProofFile:              req.ProofFile,
			Notes:                  req.Notes,
			CaptureAsVerified:      req.CaptureAsVerified,
			ActorUserID:            actor,
		}

		entry, err := svc.CreateEntry(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, entry)
	}
}

// ListLedgerEntries returns the entries for one order, newest first.
func ListLedgerEntries(svc ledgerService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		includeVoided, err := validators.ParseQueryBool(r, "include_voided")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListEntries(r.Context(), orderID, includeVoided)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entryListResponse{Entries: list.Entries, Synthesized: list.Synthesized})
	}
}

// GetLedgerSummary returns the computed balance summary for an order.
func GetLedgerSummary(svc ledgerService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.GetSummary(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// RepairLedger recomputes and persists the summary for an order.
func RepairLedger(svc ledgerService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.Repair(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// RepairAllLedgers recomputes summaries for every order with ledger
// activity. Failures are collected per order and do not stop the sweep.
func RepairAllLedgers(svc ledgerService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		if err := svc.RepairAll(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "repaired"})
	}
}

// GetLedgerEntry returns a single entry by id.
func GetLedgerEntry(svc ledgerService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		entryID, err := validators.ParseURLUUID(r, "entryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.GetEntry(r.Context(), entryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entry)
	}
}

// VerifyLedgerEntry checks a pending entry against the payment processor.
func VerifyLedgerEntry(svc ledgerService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		entryID, err := validators.ParseURLUUID(r, "entryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.Verify(r.Context(), ledger.VerifyInput{EntryID: entryID, ActorUserID: actor})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entry)
	}
}

// ApproveLedgerEntry confirms a manual payment. Non-admin callers must
// supply a one-time approval code.
func ApproveLedgerEntry(svc ledgerService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		entryID, err := validators.ParseURLUUID(r, "entryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req approveEntryRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.Approve(r.Context(), ledger.ApproveInput{
			EntryID:      entryID,
			ActorUserID:  actor,
			ActorRole:    middleware.RoleFromContext(r.Context()),
			ApprovalCode: req.ApprovalCode,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entry)
	}
}

// RejectLedgerEntry terminally rejects a pending entry.
func RejectLedgerEntry(svc ledgerService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		entryID, err := validators.ParseURLUUID(r, "entryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req reasonRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.Reject(r.Context(), ledger.RejectInput{
			EntryID:     entryID,
			ActorUserID: actor,
			Reason:      req.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entry)
	}
}

// VoidLedgerEntry excludes an entry from all summaries while keeping it
// queryable.
func VoidLedgerEntry(svc ledgerService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		entryID, err := validators.ParseURLUUID(r, "entryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req reasonRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.Void(r.Context(), ledger.VoidInput{
			EntryID:     entryID,
			ActorUserID: actor,
			Reason:      req.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entry)
	}
}

// QueryLedgerEntries is the cross-order reporting endpoint.
func QueryLedgerEntries(svc ledgerService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1<<30)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := ledger.ListFilters{
			Search: strings.TrimSpace(r.URL.Query().Get("search")),
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseEntryStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			filters.Status = &status
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("transaction_type")); raw != "" {
			txType, err := enums.ParseTransactionType(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid transaction type filter"))
				return
			}
			filters.TransactionType = &txType
		}
		if filters.From, err = validators.ParseQueryTime(r, "from"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filters.To, err = validators.ParseQueryTime(r, "to"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page := pagination.Params{Limit: limit, Offset: offset}
		entries, total, err := svc.Query(r.Context(), filters, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entryPageResponse{
			Entries: entries,
			Total:   total,
			Limit:   page.Limit,
			Offset:  page.Offset,
		})
	}
}

// LedgerEntryAudit returns the append-only trail for one entry.
func LedgerEntryAudit(svc ledgerService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		entryID, err := validators.ParseURLUUID(r, "entryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		trail, err := svc.AuditByEntry(r.Context(), entryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, trail)
	}
}

// LedgerOrderAudit returns the append-only trail for all of an order's entries.
func LedgerOrderAudit(svc ledgerService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		trail, err := svc.AuditByOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, trail)
	}
}

// IssueLedgerApprovalCode mints a one-time approval code for a pending
// manual entry. Admin only; the code is returned exactly once.
func IssueLedgerApprovalCode(svc ledgerService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		entryID, err := validators.ParseURLUUID(r, "entryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		code, err := svc.IssueApprovalCode(r.Context(), entryID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, approvalCodeResponse{ApprovalCode: code})
	}
}
