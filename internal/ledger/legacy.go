package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/rcavanagh/orderdesk-backend/pkg/db"
	"github.com/rcavanagh/orderdesk-backend/pkg/db/models"
	"github.com/rcavanagh/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/rcavanagh/orderdesk-backend/pkg/errors"
)

// LegacyRepository reads the flat payment rows carried over from the old
// system. There is deliberately no write surface.
type LegacyRepository interface {
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.LegacyPaymentRecord, error)
}

type legacyRepository struct {
	db *gorm.DB
}

// NewLegacyRepository returns a read-only legacy payment repository.
func NewLegacyRepository(db *gorm.DB) LegacyRepository {
	return &legacyRepository{db: db}
}

func (r *legacyRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.LegacyPaymentRecord, error) {
	var record models.LegacyPaymentRecord
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// inlineLegacyPayment is the shape of the legacy blob stored directly on
// the order row for orders migrated before the flat table existed.
type inlineLegacyPayment struct {
	Amount                 decimal.Decimal `json:"amount"`
	Method                 string          `json:"method"`
	ProcessorTransactionID *string         `json:"processor_transaction_id"`
	PaidAt                 *time.Time      `json:"paid_at"`
	Notes                  *string         `json:"notes"`
}

// LegacyView is the synthesized, display-only projection for orders that
// predate the ledger. Entries are never persisted from here.
type LegacyView struct {
	Synthesized bool
	Entries     []models.LedgerEntry
	Summary     OrderLedgerSummary
}

// LegacyAdapter projects pre-ledger payment data into a ledger-compatible
// view without touching ledger storage. It can be dropped once every order
// has real entries, with no backfill step.
type LegacyAdapter interface {
	View(ctx context.Context, order *models.Order) (*LegacyView, error)
}

type legacyAdapter struct {
	entries Repository
	legacy  LegacyRepository
	now     func() time.Time
}

// NewLegacyAdapter builds the read-only migration adapter.
func NewLegacyAdapter(entries Repository, legacy LegacyRepository) (LegacyAdapter, error) {
	if entries == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if legacy == nil {
		return nil, fmt.Errorf("legacy repository required")
	}
	return &legacyAdapter{entries: entries, legacy: legacy, now: time.Now}, nil
}

// View synthesizes a single confirmed initial-deposit payment for orders
// with no ledger entries. If a real entry already references the same
// processor transaction id the legacy amount is dropped so it is never
// counted twice.
func (a *legacyAdapter) View(ctx context.Context, order *models.Order) (*LegacyView, error) {
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}

	count, err := a.entries.CountByOrderID(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count ledger entries")
	}
	if count > 0 {
		return &LegacyView{Synthesized: false}, nil
	}

	amount, method, processorTxID, paidAt, notes, found, err := a.loadLegacyPayment(ctx, order)
	if err != nil {
		return nil, err
	}
	if !found {
		return &LegacyView{Synthesized: false}, nil
	}

	if processorTxID != nil && *processorTxID != "" {
		existing, err := a.entries.FindByProcessorTransactionID(ctx, *processorTxID)
		if err != nil && !dbpkg.IsNotFound(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check processor transaction id")
		}
		if existing != nil {
			return &LegacyView{Synthesized: false}, nil
		}
	}

	createdAt := a.now()
	if paidAt != nil {
		createdAt = *paidAt
	}

	entry := models.LedgerEntry{
		ID:                     uuid.New(),
		OrderID:                order.ID,
		OrderNumber:            order.OrderNumber,
		PaymentNumber:          "LEGACY-00001",
		TransactionType:        enums.TransactionTypePayment,
		Amount:                 amount,
		Method:                 parseLegacyMethod(method),
		Category:               enums.PaymentCategoryInitialDeposit,
		Status:                 enums.EntryStatusApproved,
		ProcessorTransactionID: processorTxID,
		Notes:                  notes,
		CreatedAt:              createdAt,
	}

	summary, err := ComputeSummary(order.Deposit, []models.LedgerEntry{entry}, a.now())
	if err != nil {
		return nil, err
	}

	return &LegacyView{
		Synthesized: true,
		Entries:     []models.LedgerEntry{entry},
		Summary:     summary,
	}, nil
}

func (a *legacyAdapter) loadLegacyPayment(ctx context.Context, order *models.Order) (decimal.Decimal, string, *string, *time.Time, *string, bool, error) {
	record, err := a.legacy.FindByOrderID(ctx, order.ID)
	if err != nil && !dbpkg.IsNotFound(err) {
		return decimal.Zero, "", nil, nil, nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load legacy payment record")
	}
	if record != nil {
		return record.Amount, record.Method, record.ProcessorTransactionID, record.PaidAt, record.Notes, true, nil
	}

	if len(order.LegacyPayment) == 0 {
		return decimal.Zero, "", nil, nil, nil, false, nil
	}
	var inline inlineLegacyPayment
	if err := json.Unmarshal(order.LegacyPayment, &inline); err != nil {
		return decimal.Zero, "", nil, nil, nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode inline legacy payment")
	}
	if inline.Amount.IsZero() {
		return decimal.Zero, "", nil, nil, nil, false, nil
	}
	return inline.Amount, inline.Method, inline.ProcessorTransactionID, inline.PaidAt, inline.Notes, true, nil
}

func parseLegacyMethod(raw string) enums.PaymentMethod {
	method, err := enums.ParsePaymentMethod(raw)
	if err != nil {
		return enums.PaymentMethodOther
	}
	return method
}
