package models

import "gorm.io/gorm"

// Invite is a pending offer of membership tied to an email address. The
// address does not have to belong to a registered user yet; acceptance
// matches on the accepting user's email.
//
// A partial unique index (see config.migrateDB) guarantees at most one
// unaccepted invite per (email, organisation) pair. Accepted rows are
// kept as an audit trail and never flip back.
type Invite struct {
	gorm.Model
	Email          string `gorm:"not null;index" json:"email"`
	OrganisationID uint   `gorm:"not null;index" json:"organisation_id"`
	InviterID      uint   `gorm:"not null" json:"inviter_id"`
	Accepted       bool   `gorm:"not null;default:false" json:"accepted"`

	// Relations
	Organisation Organisation `json:"-"`
	Inviter      User         `gorm:"foreignKey:InviterID" json:"-"`
}
