package enums

import "fmt"

// EntryStatus tracks the lifecycle of a ledger entry.
type EntryStatus string

const (
	EntryStatusPending  EntryStatus = "pending"
	EntryStatusVerified EntryStatus = "verified"
	EntryStatusApproved EntryStatus = "approved"
	EntryStatusRejected EntryStatus = "rejected"
	EntryStatusVoided   EntryStatus = "voided"
)

var validEntryStatuses = []EntryStatus{
	EntryStatusPending,
	EntryStatusVerified,
	EntryStatusApproved,
	EntryStatusRejected,
	EntryStatusVoided,
}

// String implements fmt.Stringer.
func (s EntryStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known EntryStatus.
func (s EntryStatus) IsValid() bool {
	for _, candidate := range validEntryStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsConfirmed reports whether the entry counts toward confirmed totals.
func (s EntryStatus) IsConfirmed() bool {
	return s == EntryStatusVerified || s == EntryStatusApproved
}

// IsTerminal reports whether no further transition is allowed.
func (s EntryStatus) IsTerminal() bool {
	return s == EntryStatusRejected || s == EntryStatusVoided
}

// CanVoid reports whether an entry in this status may still be voided.
// Rejected entries are already terminal and excluded from totals.
func (s EntryStatus) CanVoid() bool {
	switch s {
	case EntryStatusPending, EntryStatusVerified, EntryStatusApproved:
		return true
	default:
		return false
	}
}

// ParseEntryStatus converts raw input into an EntryStatus.
func ParseEntryStatus(value string) (EntryStatus, error) {
	for _, candidate := range validEntryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid entry status %q", value)
}
