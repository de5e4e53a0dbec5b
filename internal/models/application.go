package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Canonical application statuses. Every raw status a classifier or client
// produces is normalized onto one of these five before it is persisted on an
// Application (see ingest.NormalizeStatus).
const (
	StatusApplied      = "applied"
	StatusInterviewing = "interviewing"
	StatusOffer        = "offer"
	StatusRejected     = "rejected"
	StatusWithdrawn    = "withdrawn"
)

// CanonicalStatuses lists the five statuses an Application may carry.
var CanonicalStatuses = []string{
	StatusApplied,
	StatusInterviewing,
	StatusOffer,
	StatusRejected,
	StatusWithdrawn,
}

// IsCanonicalStatus reports whether s is one of the five canonical statuses.
func IsCanonicalStatus(s string) bool {
	for _, c := range CanonicalStatuses {
		if s == c {
			return true
		}
	}
	return false
}

// Application represents a tracked job application owned by a single user.
// The (user_id, company, position) triple is the natural duplicate key:
// ingestion never creates a second row for the same triple, and the composite
// unique index makes a concurrent insert surface as a duplicate-entry error.
type Application struct {
	ID        string     `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string     `gorm:"type:uuid;not null;index;uniqueIndex:idx_app_user_company_position" json:"user_id"`
	Company   string     `gorm:"not null;size:255;uniqueIndex:idx_app_user_company_position" json:"company"`
	Position  string     `gorm:"not null;size:255;uniqueIndex:idx_app_user_company_position" json:"position"`
	Status    string     `gorm:"not null;size:32;default:applied;index" json:"status"`
	SourceURL string     `gorm:"size:2048" json:"source_url,omitempty"`
	Location  string     `gorm:"size:255" json:"location,omitempty"`
	Notes     string     `json:"notes,omitempty"`
	SortIndex int        `gorm:"default:0" json:"sort_index"`
	AppliedAt *time.Time `json:"applied_at,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Events []ApplicationEvent `gorm:"foreignKey:ApplicationID;constraint:OnDelete:CASCADE" json:"events,omitempty"`
	Emails []EmailRecord      `gorm:"foreignKey:ApplicationID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name for Application
func (Application) TableName() string {
	return "applications"
}

// BeforeCreate assigns a UUID primary key when none is set
func (a *Application) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
