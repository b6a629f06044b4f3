package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rcavanagh/orderdesk-backend/pkg/db/models"
	"github.com/rcavanagh/orderdesk-backend/pkg/enums"
)

// AuditRecord captures one ledger mutation for the append-only trail.
type AuditRecord struct {
	EntryID        uuid.UUID
	OrderID        uuid.UUID
	Action         enums.AuditAction
	PreviousStatus *enums.EntryStatus
	NewStatus      *enums.EntryStatus
	ActorUserID    uuid.UUID
	Details        *string
}

// AuditRecorder writes and reads the payment audit trail. Rows are write
// once; there is no update or delete surface.
type AuditRecorder interface {
	WithTx(tx *gorm.DB) AuditRecorder
	Record(ctx context.Context, record AuditRecord) error
	ListByEntryID(ctx context.Context, entryID uuid.UUID) ([]models.PaymentAuditEntry, error)
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.PaymentAuditEntry, error)
}

type auditRecorder struct {
	db *gorm.DB
}

// NewAuditRecorder returns a repo-backed audit recorder.
func NewAuditRecorder(db *gorm.DB) AuditRecorder {
	return &auditRecorder{db: db}
}

func (r *auditRecorder) WithTx(tx *gorm.DB) AuditRecorder {
	if tx == nil {
		return r
	}
	return &auditRecorder{db: tx}
}

func (r *auditRecorder) Record(ctx context.Context, record AuditRecord) error {
	row := models.PaymentAuditEntry{
		EntryID:        record.EntryID,
		OrderID:        record.OrderID,
		Action:         record.Action,
		PreviousStatus: record.PreviousStatus,
		NewStatus:      record.NewStatus,
		ActorUserID:    record.ActorUserID,
		Details:        record.Details,
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *auditRecorder) ListByEntryID(ctx context.Context, entryID uuid.UUID) ([]models.PaymentAuditEntry, error) {
	var rows []models.PaymentAuditEntry
	if err := r.db.WithContext(ctx).
		Where("entry_id = ?", entryID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *auditRecorder) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.PaymentAuditEntry, error) {
	var rows []models.PaymentAuditEntry
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
