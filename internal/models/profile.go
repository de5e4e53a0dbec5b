package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Profile is the per-user owner record. Its ID is the opaque user identifier
// issued by the external identity provider, so it is assigned by the caller
// rather than generated. Ingestion ensures a profile exists before creating
// any dependent rows.
type Profile struct {
	ID                string    `gorm:"type:uuid;primaryKey" json:"id"`
	Email             string    `gorm:"size:255" json:"email,omitempty"`
	FullName          string    `gorm:"size:255" json:"full_name,omitempty"`
	Profession        string    `gorm:"size:255" json:"profession,omitempty"`
	NotificationEmail string    `gorm:"size:255" json:"notification_email,omitempty"`
	IngestToken       string    `gorm:"type:uuid;uniqueIndex;not null" json:"ingest_token"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for Profile
func (Profile) TableName() string {
	return "profiles"
}

// BeforeCreate assigns the SMTP ingest token when none is set
func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.IngestToken == "" {
		p.IngestToken = uuid.NewString()
	}
	return nil
}
