package models

import "time"

// AssignmentAction is the kind of role mutation an audit entry records.
type AssignmentAction string

const (
	// ActionAssigned records a role grant.
	ActionAssigned AssignmentAction = "assigned"
	// ActionRevoked records a role revocation.
	ActionRevoked AssignmentAction = "revoked"
)

// RoleAssignmentLog is one append-only audit record of a role grant or
// revocation. Each entry snapshots the member's full effective permission
// set before and after the mutation (not just the single role's
// permissions), which is what makes the ledger authoritative for "what could
// this member do at time T". Entries are never mutated or deleted.
type RoleAssignmentLog struct {
	// ID is the unique identifier for the log entry.
	ID uint64 `gorm:"primaryKey"`
	// RoleID is the role that was granted or revoked.
	RoleID uint `gorm:"index;not null"`
	// MemberID is the member whose role set changed.
	MemberID uint64 `gorm:"index;not null"`
	// ModifiedBy is the acting member who performed the mutation.
	ModifiedBy uint64 `gorm:"not null"`
	// Action is either "assigned" or "revoked".
	Action AssignmentAction `gorm:"type:varchar(20);not null"`
	// PreviousPermissions snapshots the member's effective permission
	// codenames immediately before the mutation.
	PreviousPermissions StringList `gorm:"type:text"`
	// NewPermissions snapshots the member's effective permission codenames
	// immediately after the mutation.
	NewPermissions StringList `gorm:"type:text"`
	// Reason is the free-text justification supplied by the actor.
	Reason string `gorm:"size:255"`
	// EffectiveDate is when the grant took effect; nil means immediately.
	EffectiveDate *time.Time
	// ExpiryDate is when the grant lapses; nil means never.
	ExpiryDate *time.Time
	// CreatedAt is the timestamp when the entry was written (managed by GORM).
	CreatedAt time.Time
}

// TableName specifies the database table name for the RoleAssignmentLog model.
func (RoleAssignmentLog) TableName() string {
	return "role_assignment_logs"
}
