package models

import "gorm.io/gorm"

// Task is a unit of work. A task with no TaskOrganisation links is
// "personal"; sharing it into organisations only ever grows the link set.
type Task struct {
	gorm.Model
	Title       string `gorm:"not null" json:"title"`
	Description string `json:"description"`
	Completed   bool   `gorm:"not null;default:false" json:"completed"`
}

// TaskOrganisation records that a task is shared into an organisation.
// The composite primary key rejects duplicate links at the storage layer.
type TaskOrganisation struct {
	TaskID         uint `gorm:"primaryKey;autoIncrement:false" json:"task_id"`
	OrganisationID uint `gorm:"primaryKey;autoIncrement:false" json:"organisation_id"`

	// Relations
	Task         Task         `json:"-"`
	Organisation Organisation `json:"-"`
}
