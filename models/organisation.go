package models

import (
	"time"

	"gorm.io/gorm"
)

// Membership roles. The set is a convention rather than a database
// constraint: promotion writes whatever role string the caller supplies.
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Organisation groups users and tasks for collaboration
type Organisation struct {
	gorm.Model
	Name string `gorm:"not null" json:"name"`

	// CreatorID is the founding user; immutable after creation.
	CreatorID uint `gorm:"not null;index" json:"creator_id"`

	// Relations
	Creator *User        `gorm:"foreignKey:CreatorID" json:"-"`
	Members []Membership `gorm:"foreignKey:OrganisationID" json:"members,omitempty"`
}

// Membership links a user to an organisation with a role. At most one
// row exists per (user, organisation) pair.
type Membership struct {
	UserID         uint `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	OrganisationID uint `gorm:"primaryKey;autoIncrement:false" json:"organisation_id"`

	Role      string    `gorm:"not null;default:'member'" json:"role"` // owner, admin, member
	CreatedAt time.Time `json:"created_at"`

	// Relations
	User         User         `json:"-"`
	Organisation Organisation `json:"-"`
}
