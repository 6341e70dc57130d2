package models

import (
	"time"
)

// Role defines a user's permission class in the marketplace.
type Role string

const (
	RoleBuyer           Role = "buyer"
	RoleSeller          Role = "seller"
	RoleServiceProvider Role = "service_provider"
	RoleAdmin           Role = "admin"
	RoleSuperAdmin      Role = "super_admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleSeller, RoleServiceProvider, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// IsAdmin reports whether r grants administrative privileges.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// CanCreateListings reports whether r may create listings at all.
func (r Role) CanCreateListings() bool {
	return r == RoleSeller || r == RoleServiceProvider || r.IsAdmin()
}

// Rank orders roles for elevation checks. A role change is an elevation when
// the new rank is not below the old one; roles are never silently downgraded.
func (r Role) Rank() int {
	switch r {
	case RoleBuyer:
		return 0
	case RoleSeller, RoleServiceProvider:
		return 1
	case RoleAdmin:
		return 2
	case RoleSuperAdmin:
		return 3
	}
	return -1
}

// NotificationPreferences allows users to control email notifications.
type NotificationPreferences struct {
	Inquiry          bool `bson:"inquiry" json:"inquiry"`
	InquiryReply     bool `bson:"inquiry_reply" json:"inquiry_reply"`
	ListingLifecycle bool `bson:"listing_lifecycle" json:"listing_lifecycle"`
	Verification     bool `bson:"verification" json:"verification"`
}

// User represents a registered account. Email is the unique login identifier.
type User struct {
	Base                    `bson:",inline"`
	Email                   string                   `bson:"email" json:"email"`
	Name                    string                   `bson:"name" json:"name"`
	PasswordHash            string                   `bson:"password" json:"-"`
	Role                    Role                     `bson:"role" json:"role"`
	Verified                bool                     `bson:"verified" json:"verified"` // service provider verification
	Company                 string                   `bson:"company,omitempty" json:"company,omitempty"`
	Phone                   string                   `bson:"phone,omitempty" json:"phone,omitempty"`
	Location                string                   `bson:"location,omitempty" json:"location,omitempty"`
	NotificationPreferences *NotificationPreferences `bson:"notification_preferences,omitempty" json:"notification_preferences,omitempty"`
	Suspended               bool                     `bson:"suspended" json:"suspended"`
	Deleted                 bool                     `bson:"deleted" json:"-"`
	CreatedAt               time.Time                `bson:"created_at" json:"created_at"`
	UpdatedAt               time.Time                `bson:"updated_at" json:"updated_at"`
}

// CanManage reports whether u may administer the target user: super admins
// manage everyone, admins manage non-admins, nobody else manages anyone.
func (u *User) CanManage(target *User) bool {
	if u.Role == RoleSuperAdmin {
		return true
	}
	if u.Role == RoleAdmin {
		return !target.Role.IsAdmin()
	}
	return false
}

// VerificationStatus enumerates verification request review states.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
)

// VerificationRequest is a service provider's application to become verified.
// Approving one sets the user's Verified flag.
type VerificationRequest struct {
	Base           `bson:",inline"`
	UserID         string             `bson:"user_id" json:"user_id"`
	CompanyName    string             `bson:"company_name" json:"company_name"`
	DocumentKeys   []string           `bson:"document_keys" json:"document_keys"` // S3 keys: license, insurance, etc.
	Certifications string             `bson:"certifications,omitempty" json:"certifications,omitempty"`
	References     string             `bson:"references,omitempty" json:"references,omitempty"`
	Status         VerificationStatus `bson:"status" json:"status"`
	ReviewedBy     string             `bson:"reviewed_by,omitempty" json:"reviewed_by,omitempty"`
	AdminNotes     string             `bson:"admin_notes,omitempty" json:"admin_notes,omitempty"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	ReviewedAt     *time.Time         `bson:"reviewed_at,omitempty" json:"reviewed_at,omitempty"`
}
