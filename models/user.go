package models

import (
	"gorm.io/gorm"
)

// User represents a user account in the system
type User struct {
	gorm.Model

	// Authentication fields
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`

	// Profile information
	Name string `json:"name"`

	// ActiveOrganisationID is the organisation context the user last
	// selected. It persists across sessions and scopes the org-filtered
	// task views.
	ActiveOrganisationID *uint `json:"active_organisation_id,omitempty"`

	// Relations
	Memberships []Membership `gorm:"foreignKey:UserID" json:"memberships,omitempty"`
}
