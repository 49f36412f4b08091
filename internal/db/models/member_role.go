package models

import "time"

// MemberRole represents the many-to-many relationship between members and roles.
// The composite primary key doubles as the race arbiter for concurrent
// assignment: two simultaneous grants of the same (member, role) pair cannot
// both insert, so the loser surfaces as an already-assigned failure.
type MemberRole struct {
	// MemberID is the ID of the member holding the role.
	MemberID uint64 `gorm:"primaryKey;column:member_id"`
	// RoleID is the ID of the held role.
	RoleID uint `gorm:"primaryKey;column:role_id"`
	// Member is the associated member (loaded via foreign key).
	Member Member `gorm:"foreignKey:MemberID;constraint:OnDelete:CASCADE"`
	// Role is the associated role (loaded via foreign key).
	Role Role `gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE"`
	// AssignedBy is the acting member who granted the role.
	AssignedBy uint64 `gorm:"not null;default:0"`
	// EffectiveDate is when the grant takes effect; zero means immediately.
	EffectiveDate *time.Time
	// ExpiryDate is when the grant lapses; nil means never.
	ExpiryDate *time.Time
	// CreatedAt is the timestamp when the role was granted (managed by GORM).
	CreatedAt time.Time
}

// TableName specifies the database table name for the MemberRole model.
func (MemberRole) TableName() string {
	return "member_roles"
}
