package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type_enum enum in Postgres.
type OutboxAggregateType string

const (
	AggregateLedgerEntry OutboxAggregateType = "ledger_entry"
	AggregateOrder       OutboxAggregateType = "order"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateLedgerEntry,
	AggregateOrder,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type_enum enum in Postgres.
type OutboxEventType string

const (
	EventLedgerEntryCreated       OutboxEventType = "ledger_entry_created"
	EventLedgerEntryVerified      OutboxEventType = "ledger_entry_verified"
	EventLedgerEntryApproved      OutboxEventType = "ledger_entry_approved"
	EventLedgerEntryRejected      OutboxEventType = "ledger_entry_rejected"
	EventLedgerEntryVoided        OutboxEventType = "ledger_entry_voided"
	EventLedgerSummaryRecomputed  OutboxEventType = "ledger_summary_recomputed"
	EventLedgerInvariantViolation OutboxEventType = "ledger_invariant_violation"
)

var validOutboxEventTypes = []OutboxEventType{
	EventLedgerEntryCreated,
	EventLedgerEntryVerified,
	EventLedgerEntryApproved,
	EventLedgerEntryRejected,
	EventLedgerEntryVoided,
	EventLedgerSummaryRecomputed,
	EventLedgerInvariantViolation,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
