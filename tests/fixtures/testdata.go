package fixtures

import (
	"time"

	"github.com/trackmail/trackmail-backend/internal/models"
)

// ProfileBuilder creates test Profile instances with fluent API
type ProfileBuilder struct {
	profile models.Profile
}

// NewProfileBuilder creates a new ProfileBuilder with sensible defaults
func NewProfileBuilder() *ProfileBuilder {
	now := time.Now()
	return &ProfileBuilder{
		profile: models.Profile{
			ID:          "11111111-1111-1111-1111-111111111111",
			Email:       "user@example.com",
			IngestToken: "aaaaaaaa-aaaa-4aaa-8aaa-aaaaaaaaaaaa",
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}
}

// WithID sets the profile ID (the external user identifier)
func (b *ProfileBuilder) WithID(id string) *ProfileBuilder {
	b.profile.ID = id
	return b
}

// WithEmail sets the account email
func (b *ProfileBuilder) WithEmail(email string) *ProfileBuilder {
	b.profile.Email = email
	return b
}

// WithFullName sets the display name
func (b *ProfileBuilder) WithFullName(name string) *ProfileBuilder {
	b.profile.FullName = name
	return b
}

// WithIngestToken sets the SMTP ingest token
func (b *ProfileBuilder) WithIngestToken(token string) *ProfileBuilder {
	b.profile.IngestToken = token
	return b
}

// Build returns the constructed Profile
func (b *ProfileBuilder) Build() *models.Profile {
	return &b.profile
}

// BuildValue returns the constructed Profile as a value (not pointer)
func (b *ProfileBuilder) BuildValue() models.Profile {
	return b.profile
}

// ApplicationBuilder creates test Application instances with fluent API
type ApplicationBuilder struct {
	application models.Application
}

// NewApplicationBuilder creates a new ApplicationBuilder with sensible
// defaults. The ID is left empty so the gorm hook assigns one on insert.
func NewApplicationBuilder() *ApplicationBuilder {
	now := time.Now()
	return &ApplicationBuilder{
		application: models.Application{
			UserID:    "11111111-1111-1111-1111-111111111111",
			Company:   "Acme",
			Position:  "Software Engineer",
			Status:    models.StatusApplied,
			AppliedAt: &now,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

// WithID sets the application ID
func (b *ApplicationBuilder) WithID(id string) *ApplicationBuilder {
	b.application.ID = id
	return b
}

// WithUserID sets the owning user
func (b *ApplicationBuilder) WithUserID(userID string) *ApplicationBuilder {
	b.application.UserID = userID
	return b
}

// WithCompany sets the company name
func (b *ApplicationBuilder) WithCompany(company string) *ApplicationBuilder {
	b.application.Company = company
	return b
}

// WithPosition sets the position title
func (b *ApplicationBuilder) WithPosition(position string) *ApplicationBuilder {
	b.application.Position = position
	return b
}

// WithStatus sets the application status
func (b *ApplicationBuilder) WithStatus(status string) *ApplicationBuilder {
	b.application.Status = status
	return b
}

// WithSourceURL sets the job posting URL
func (b *ApplicationBuilder) WithSourceURL(url string) *ApplicationBuilder {
	b.application.SourceURL = url
	return b
}

// WithLocation sets the job location
func (b *ApplicationBuilder) WithLocation(location string) *ApplicationBuilder {
	b.application.Location = location
	return b
}

// WithNotes sets the free-form notes
func (b *ApplicationBuilder) WithNotes(notes string) *ApplicationBuilder {
	b.application.Notes = notes
	return b
}

// WithAppliedAt sets the applied timestamp
func (b *ApplicationBuilder) WithAppliedAt(t time.Time) *ApplicationBuilder {
	b.application.AppliedAt = &t
	return b
}

// Build returns the constructed Application
func (b *ApplicationBuilder) Build() *models.Application {
	return &b.application
}

// BuildValue returns the constructed Application as a value (not pointer)
func (b *ApplicationBuilder) BuildValue() models.Application {
	return b.application
}

// EventBuilder creates test ApplicationEvent instances with fluent API
type EventBuilder struct {
	event models.ApplicationEvent
}

// NewEventBuilder creates a new EventBuilder with sensible defaults
func NewEventBuilder() *EventBuilder {
	return &EventBuilder{
		event: models.ApplicationEvent{
			EventType: models.EventTypeStatusChange,
			Status:    models.StatusApplied,
			CreatedAt: time.Now(),
		},
	}
}

// WithApplicationID sets the parent application
func (b *EventBuilder) WithApplicationID(id string) *EventBuilder {
	b.event.ApplicationID = id
	return b
}

// WithEventType sets the event type
func (b *EventBuilder) WithEventType(eventType string) *EventBuilder {
	b.event.EventType = eventType
	return b
}

// WithStatus sets the raw status carried by the event
func (b *EventBuilder) WithStatus(status string) *EventBuilder {
	b.event.Status = status
	return b
}

// WithNotes sets the event notes
func (b *EventBuilder) WithNotes(notes string) *EventBuilder {
	b.event.Notes = notes
	return b
}

// WithMetadata sets the event metadata
func (b *EventBuilder) WithMetadata(meta models.JSONMap) *EventBuilder {
	b.event.Metadata = meta
	return b
}

// Build returns the constructed ApplicationEvent
func (b *EventBuilder) Build() *models.ApplicationEvent {
	return &b.event
}

// EmailRecordBuilder creates test EmailRecord instances with fluent API
type EmailRecordBuilder struct {
	record models.EmailRecord
}

// NewEmailRecordBuilder creates a new EmailRecordBuilder with sensible defaults
func NewEmailRecordBuilder() *EmailRecordBuilder {
	now := time.Now()
	return &EmailRecordBuilder{
		record: models.EmailRecord{
			UserID:     "11111111-1111-1111-1111-111111111111",
			Sender:     "jobs@acme.com",
			Subject:    "Application Received - Software Engineer",
			TextBody:   "Thank you for applying to Acme.",
			ReceivedAt: &now,
		},
	}
}

// WithUserID sets the owning user
func (b *EmailRecordBuilder) WithUserID(userID string) *EmailRecordBuilder {
	b.record.UserID = userID
	return b
}

// WithApplicationID links the record to an application
func (b *EmailRecordBuilder) WithApplicationID(id string) *EmailRecordBuilder {
	b.record.ApplicationID = &id
	return b
}

// WithSender sets the sender address
func (b *EmailRecordBuilder) WithSender(sender string) *EmailRecordBuilder {
	b.record.Sender = sender
	return b
}

// WithSubject sets the subject line
func (b *EmailRecordBuilder) WithSubject(subject string) *EmailRecordBuilder {
	b.record.Subject = subject
	return b
}

// WithBody sets the plain-text body
func (b *EmailRecordBuilder) WithBody(text string) *EmailRecordBuilder {
	b.record.TextBody = text
	return b
}

// WithFingerprint stores the dedup hash in the parsed metadata
func (b *EmailRecordBuilder) WithFingerprint(hash string) *EmailRecordBuilder {
	if b.record.ParsedData == nil {
		b.record.ParsedData = models.JSONMap{}
	}
	b.record.ParsedData[models.ParsedKeyEmailHash] = hash
	return b
}

// WithParsedData sets the full parsed metadata map
func (b *EmailRecordBuilder) WithParsedData(data models.JSONMap) *EmailRecordBuilder {
	b.record.ParsedData = data
	return b
}

// WithReceivedAt sets the received timestamp
func (b *EmailRecordBuilder) WithReceivedAt(t time.Time) *EmailRecordBuilder {
	b.record.ReceivedAt = &t
	return b
}

// Build returns the constructed EmailRecord
func (b *EmailRecordBuilder) Build() *models.EmailRecord {
	return &b.record
}

// Helper functions for creating multiple test entities

// CreateApplications creates a slice of applications for a given user with
// distinct (company, position) pairs
func CreateApplications(userID string, count int) []models.Application {
	apps := make([]models.Application, count)
	for i := 0; i < count; i++ {
		apps[i] = NewApplicationBuilder().
			WithUserID(userID).
			WithCompany(generateCompany(i)).
			WithPosition(generatePosition(i)).
			WithStatus(models.CanonicalStatuses[i%len(models.CanonicalStatuses)]).
			BuildValue()
	}
	return apps
}

// Helper functions for generating test data
func generateCompany(index int) string {
	companies := []string{"Acme", "Globex", "Initech", "Umbrella", "Hooli"}
	if index < len(companies) {
		return companies[index]
	}
	return companies[index%len(companies)] + string(rune('0'+index/len(companies)))
}

func generatePosition(index int) string {
	positions := []string{
		"Software Engineer",
		"Backend Developer",
		"Platform Engineer",
		"Data Engineer",
		"Site Reliability Engineer",
	}
	return positions[index%len(positions)]
}
