package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rcavanagh/orderdesk-backend/pkg/enums"
)

// PaymentAuditEntry is an append-only record of a single ledger mutation.
// Rows are never updated or deleted.
type PaymentAuditEntry struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EntryID        uuid.UUID          `gorm:"column:entry_id;type:uuid;not null;index"`
	OrderID        uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	Action         enums.AuditAction  `gorm:"column:action;type:audit_action;not null"`
	PreviousStatus *enums.EntryStatus `gorm:"column:previous_status;type:entry_status"`
	NewStatus      *enums.EntryStatus `gorm:"column:new_status;type:entry_status"`
	ActorUserID    uuid.UUID          `gorm:"column:actor_user_id;type:uuid;not null"`
	Details        *string            `gorm:"column:details"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
}
