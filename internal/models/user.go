package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role codes carried by users and grants.
const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

// User describes platform users with relationships to companies and teams.
type User struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Avatar    string `json:"avatar"`

	// RoleCode distinguishes company owners from invited members; see
	// ActorContext.ResolveCompanyID for how the tenant id is derived.
	RoleCode         string  `gorm:"default:member" json:"role_code"`
	CompanyID        string  `gorm:"type:uuid;index" json:"company_id"`
	Company          *Company `json:"company,omitempty"`
	InvitedCompanyID *string `gorm:"type:uuid" json:"invited_company_id,omitempty"`

	// PrivateBrainVisible gates read/mutate access to private brains the
	// user holds a grant for.
	PrivateBrainVisible bool `gorm:"default:true" json:"private_brain_visible"`

	IsActive bool `gorm:"default:true" json:"is_active"`

	Teams []Team `gorm:"many2many:team_members;" json:"teams,omitempty"`

	LastLoginAt *time.Time `json:"last_login_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// DisplayName composes a human readable name for grant snapshots.
func (u *User) DisplayName() string {
	first := strings.TrimSpace(u.FirstName)
	last := strings.TrimSpace(u.LastName)
	switch {
	case first != "" && last != "":
		return first + " " + last
	case first != "":
		return first
	case last != "":
		return last
	case u.Username != "":
		return u.Username
	default:
		return u.Email
	}
}
