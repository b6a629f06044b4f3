package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is the collaborator record the ledger hangs off. The ledger reads
// Deposit and LegacyPayment and writes LedgerSummary; the rest belongs to
// the order service.
type Order struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber   string          `gorm:"column:order_number;not null;unique"`
	Deposit       decimal.Decimal `gorm:"column:deposit;type:numeric(12,2);not null;default:0"`
	LedgerSummary json.RawMessage `gorm:"column:ledger_summary;type:jsonb"`
	LegacyPayment json.RawMessage `gorm:"column:legacy_payment;type:jsonb"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
