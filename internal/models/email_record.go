package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ParsedData keys stored on an EmailRecord. The dedup hash is the lookup key
// for duplicate detection; the rest is extraction output kept for triage.
const (
	ParsedKeyEmailHash  = "email_hash"
	ParsedKeyCompany    = "company"
	ParsedKeyPosition   = "position"
	ParsedKeyStatus     = "status"
	ParsedKeyConfidence = "confidence"
	ParsedKeySourceURL  = "source_url"
	ParsedKeyDetection  = "status_detection"
)

// EmailRecord is the persisted form of an ingested email. Exactly one row
// exists per (sender, subject, received_at) fingerprint; re-submissions of the
// same email merge their parsed metadata into the existing row instead of
// inserting. ApplicationID is nil for emails stored for manual triage.
type EmailRecord struct {
	ID            string     `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        string     `gorm:"type:uuid;not null;index" json:"user_id"`
	ApplicationID *string    `gorm:"type:uuid;index" json:"application_id,omitempty"`
	Sender        string     `gorm:"not null;size:255" json:"sender"`
	Subject       string     `gorm:"size:998" json:"subject"`
	TextBody      string     `json:"text_body,omitempty"`
	HTMLBody      string     `json:"html_body,omitempty"`
	ReceivedAt    *time.Time `json:"received_at,omitempty"`
	ParsedData    JSONMap    `gorm:"type:text" json:"parsed_data,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Application *Application `gorm:"foreignKey:ApplicationID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name for EmailRecord
func (EmailRecord) TableName() string {
	return "email_records"
}

// BeforeCreate assigns a UUID primary key when none is set
func (e *EmailRecord) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// Fingerprint returns the dedup hash stored in ParsedData, or "" if absent.
func (e *EmailRecord) Fingerprint() string {
	if e.ParsedData == nil {
		return ""
	}
	hash, _ := e.ParsedData[ParsedKeyEmailHash].(string)
	return hash
}
