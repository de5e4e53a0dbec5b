package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Well-known event types. EventType is free text so clients can record their
// own milestones, but these are the values the backend itself writes.
const (
	EventTypeStatusChange = "status_change"
	EventTypeEmailUpdate  = "email_update"
	EventTypeNote         = "note"
)

// ApplicationEvent is an append-only audit entry attached to an Application.
// Events are never mutated; they are deleted only by cascade when the parent
// Application is deleted. Status may hold a raw, unnormalized value: the
// canonical map is applied when a status lands on the Application, not here.
type ApplicationEvent struct {
	ID            string    `gorm:"type:uuid;primaryKey" json:"id"`
	ApplicationID string    `gorm:"type:uuid;not null;index" json:"application_id"`
	EventType     string    `gorm:"not null;size:64" json:"event_type"`
	Status        string    `gorm:"size:64" json:"status,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	Metadata      JSONMap   `gorm:"type:text" json:"metadata,omitempty"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`

	Application Application `gorm:"foreignKey:ApplicationID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name for ApplicationEvent
func (ApplicationEvent) TableName() string {
	return "application_events"
}

// BeforeCreate assigns a UUID primary key when none is set
func (e *ApplicationEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
