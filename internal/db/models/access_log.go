package models

import "time"

// AccessLog is a generic append-only record of a security-relevant request
// outcome, written by the access control façade for denied permission checks
// and other notable events. Downstream security monitoring reads this table
// alongside the role assignment ledger.
type AccessLog struct {
	// ID is the unique identifier for the entry.
	ID uint64 `gorm:"primaryKey"`
	// MemberID is the acting member; nil for unauthenticated requests.
	MemberID *uint64 `gorm:"index"`
	// PermissionCode is the permission that was checked, if any.
	PermissionCode string `gorm:"size:100"`
	// Granted records the outcome of the check.
	Granted bool
	// Method is the HTTP method of the request.
	Method string `gorm:"size:10"`
	// Path is the request path.
	Path string `gorm:"size:255"`
	// IPAddress is the client address.
	IPAddress string `gorm:"size:45"`
	// Detail carries an optional free-text annotation.
	Detail string `gorm:"size:255"`
	// CreatedAt is the timestamp when the entry was written (managed by GORM).
	CreatedAt time.Time
}

// TableName specifies the database table name for the AccessLog model.
func (AccessLog) TableName() string {
	return "access_logs"
}
