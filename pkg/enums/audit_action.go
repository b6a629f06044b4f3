package enums

import "fmt"

// AuditAction maps to the audit_action_enum enum in Postgres.
type AuditAction string

const (
	AuditActionCreated       AuditAction = "created"
	AuditActionVerified      AuditAction = "verified"
	AuditActionApproved      AuditAction = "approved"
	AuditActionRejected      AuditAction = "rejected"
	AuditActionVoided        AuditAction = "voided"
	AuditActionStatusChanged AuditAction = "status_changed"
)

var validAuditActions = []AuditAction{
	AuditActionCreated,
	AuditActionVerified,
	AuditActionApproved,
	AuditActionRejected,
	AuditActionVoided,
	AuditActionStatusChanged,
}

// IsValid reports whether the value matches the canonical audit action enum.
func (a AuditAction) IsValid() bool {
	for _, candidate := range validAuditActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAuditAction converts raw input into an AuditAction.
func ParseAuditAction(value string) (AuditAction, error) {
	for _, candidate := range validAuditActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit action %q", value)
}
