package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rcavanagh/orderdesk-backend/pkg/enums"
	"github.com/rcavanagh/orderdesk-backend/pkg/types"
)

// LedgerEntry is a single money movement against an order. Amount and
// transaction type are immutable after creation; only status and the
// transition metadata columns ever change.
type LedgerEntry struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID  `gorm:"column:order_id;type:uuid;not null;index"`
	OrderNumber   string     `gorm:"column:order_number;not null"`
	ChangeOrderID *uuid.UUID `gorm:"column:change_order_id;type:uuid"`
	PaymentNumber string     `gorm:"column:payment_number;not null;unique"`

	TransactionType enums.TransactionType `gorm:"column:transaction_type;type:transaction_type;not null"`
	Amount          decimal.Decimal       `gorm:"column:amount;type:numeric(12,2);not null"`
	Method          enums.PaymentMethod   `gorm:"column:method;type:payment_method;not null"`
	Category        enums.PaymentCategory `gorm:"column:category;type:payment_category;not null;default:'other'"`
	Status          enums.EntryStatus     `gorm:"column:status;type:entry_status;not null;default:'pending'"`

	ProcessorTransactionID *string          `gorm:"column:processor_transaction_id;index"`
	ProcessorVerified      bool             `gorm:"column:processor_verified;not null;default:false"`
	ProcessorAmount        *decimal.Decimal `gorm:"column:processor_amount;type:numeric(12,2)"`
	ProcessorStatus        *string          `gorm:"column:processor_status"`
	VerifiedAt             *time.Time       `gorm:"column:verified_at"`

	ProofFile *types.FileRef `gorm:"column:proof_file;type:jsonb"`
	Notes     *string        `gorm:"column:notes"`

	ApprovedBy *uuid.UUID `gorm:"column:approved_by;type:uuid"`
	ApprovedAt *time.Time `gorm:"column:approved_at"`

	RejectedBy   *uuid.UUID `gorm:"column:rejected_by;type:uuid"`
	RejectedAt   *time.Time `gorm:"column:rejected_at"`
	RejectReason *string    `gorm:"column:reject_reason"`

	VoidedBy   *uuid.UUID `gorm:"column:voided_by;type:uuid"`
	VoidedAt   *time.Time `gorm:"column:voided_at"`
	VoidReason *string    `gorm:"column:void_reason"`

	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
