package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LegacyPaymentRecord is the flat "already paid" row carried over from the
// system that predates the ledger. It is read-only here; the migration
// adapter projects it into a synthesized entry view without ever writing
// ledger rows from it.
type LegacyPaymentRecord struct {
	ID                     uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID                uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	Amount                 decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	Method                 string          `gorm:"column:method;not null;default:'other'"`
	ProcessorTransactionID *string         `gorm:"column:processor_transaction_id"`
	PaidAt                 *time.Time      `gorm:"column:paid_at"`
	Notes                  *string         `gorm:"column:notes"`
	CreatedAt              time.Time       `gorm:"column:created_at;autoCreateTime"`
}
