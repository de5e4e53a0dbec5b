package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/trackmail/trackmail-backend/internal/ai"
	"github.com/trackmail/trackmail-backend/internal/models"
	"github.com/trackmail/trackmail-backend/internal/repository"
)

// Result reasons. Recoverable outcomes are surfaced in the Result, never as
// errors; only profile bootstrap and Application-insert failures escape as
// errors from Ingest.
const (
	ReasonCreated              = "created"
	ReasonDuplicateEmail       = "duplicate_email"
	ReasonDuplicateApplication = "duplicate_application"
	ReasonInsufficientData     = "insufficient_data"
	ReasonNotJobRelated        = "not_job_related"
)

// Result is the outcome of one ingestion request.
type Result struct {
	Success         bool             `json:"success"`
	ApplicationID   *string          `json:"application_id"`
	Message         string           `json:"message"`
	Duplicate       bool             `json:"duplicate"`
	StatusDetection *StatusDetection `json:"status_detection,omitempty"`
	Reason          string           `json:"-"`
}

// Preview is the dry-run outcome for the test endpoint: extraction plus the
// dedup lookup, with no writes.
type Preview struct {
	Parsed                ParsedFields `json:"parsed"`
	EmailHash             string       `json:"email_hash"`
	WouldCreateDuplicate  bool         `json:"would_create_duplicate"`
	ExistingApplicationID *string      `json:"existing_application_id"`
}

// Notifier pushes application changes to connected clients. Implementations
// must not block.
type Notifier interface {
	NotifyApplication(userID, event string, app *models.Application)
}

// Pipeline is the ingestion orchestrator. Each call runs the strictly
// sequential flow of dedup check, relevance gate, extraction, and
// merge-or-create; there is no shared mutable state beyond the store.
type Pipeline struct {
	profiles repository.ProfileRepository
	emails   repository.EmailRepository
	apps     repository.ApplicationRepository
	events   repository.EventRepository
	detector ai.Detector // nil disables AI assistance
	notifier Notifier    // nil disables realtime pushes
	logger   *slog.Logger
}

// PipelineConfig holds dependencies for the Pipeline.
type PipelineConfig struct {
	Profiles repository.ProfileRepository
	Emails   repository.EmailRepository
	Apps     repository.ApplicationRepository
	Events   repository.EventRepository
	Detector ai.Detector
	Notifier Notifier
	Logger   *slog.Logger
}

// NewPipeline creates a Pipeline.
func NewPipeline(cfg *PipelineConfig) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		profiles: cfg.Profiles,
		emails:   cfg.Emails,
		apps:     cfg.Apps,
		events:   cfg.Events,
		detector: cfg.Detector,
		notifier: cfg.Notifier,
		logger:   logger,
	}
}

// Ingest processes one inbound email for a user. Recoverable conditions
// (duplicates, insufficient data, non-job mail) come back in the Result; an
// error return means profile bootstrap or the Application insert failed.
func (p *Pipeline) Ingest(ctx context.Context, userID string, email *InboundEmail) (*Result, error) {
	// Step 1: tenant bootstrap. Fatal on failure.
	if _, err := p.profiles.Ensure(ctx, userID); err != nil {
		return nil, fmt.Errorf("profile bootstrap failed: %w", err)
	}

	// Step 2: dedup check.
	hash := Fingerprint(email)
	existing, err := p.emails.FindByFingerprint(ctx, userID, hash)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		// A failed lookup must not lose the email; proceed as if new.
		p.logger.Error("fingerprint lookup failed", slog.String("error", err.Error()))
		existing = nil
	}
	if existing != nil && existing.ApplicationID != nil {
		return p.handleDuplicate(ctx, userID, email, existing), nil
	}
	// A matching record without an application falls through to normal
	// processing and is re-linked at persist time.

	// Step 3: relevance gate. Nothing is stored for unrelated mail.
	p.runDetector(ctx, email)
	if !p.isJobRelated(email) {
		return &Result{
			Success: false,
			Message: "Email does not appear to be job-related; nothing was stored.",
			Reason:  ReasonNotJobRelated,
		}, nil
	}

	// Step 4: extraction.
	parsed := Extract(email)
	if parsed.Company == "" || parsed.Position == "" {
		p.storeEmail(ctx, userID, email, hash, parsed, nil, existing)
		return &Result{
			Success: false,
			Message: fmt.Sprintf(
				"Could not extract sufficient information from email. Company: %q, Position: %q. Email saved for manual review.",
				parsed.Company, parsed.Position),
			Reason:          ReasonInsufficientData,
			StatusDetection: email.Detection,
		}, nil
	}

	// Step 5: existing-application check. Repeated forwarding of the same
	// thread under a new message ID must not create a second row.
	if app, err := p.apps.FindByCompanyPosition(ctx, userID, parsed.Company, parsed.Position); err == nil {
		p.storeEmail(ctx, userID, email, hash, parsed, &app.ID, existing)
		return &Result{
			Success:         true,
			ApplicationID:   &app.ID,
			Message:         "Application already exists for this company and position.",
			Duplicate:       true,
			Reason:          ReasonDuplicateApplication,
			StatusDetection: email.Detection,
		}, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		p.logger.Error("existing-application lookup failed", slog.String("error", err.Error()))
	}

	// Step 6: create. Status is normalized at the moment it lands on the
	// Application; applied_at defaults to the email's received time.
	appliedAt := email.ReceivedAt
	if appliedAt == nil {
		now := time.Now().UTC()
		appliedAt = &now
	}

	app := &models.Application{
		UserID:    userID,
		Company:   parsed.Company,
		Position:  parsed.Position,
		Status:    NormalizeStatus(parsed.Status),
		SourceURL: parsed.SourceURL,
		Notes:     fmt.Sprintf("Auto-created from email. Confidence: %.2f", parsed.Confidence),
		AppliedAt: appliedAt,
	}

	if err := p.apps.Create(ctx, app); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			// Lost a race with a concurrent ingestion for the same triple;
			// the unique index is the authoritative duplicate signal.
			if winner, ferr := p.apps.FindByCompanyPosition(ctx, userID, parsed.Company, parsed.Position); ferr == nil {
				p.storeEmail(ctx, userID, email, hash, parsed, &winner.ID, existing)
				return &Result{
					Success:         true,
					ApplicationID:   &winner.ID,
					Message:         "Application already exists for this company and position.",
					Duplicate:       true,
					Reason:          ReasonDuplicateApplication,
					StatusDetection: email.Detection,
				}, nil
			}
		}
		return nil, fmt.Errorf("failed to create application: %w", err)
	}

	p.appendEvent(ctx, app.ID, models.EventTypeStatusChange, parsed.Status,
		"Application created from ingested email")

	// The Application is the primary artifact; failing to persist the raw
	// email must not fail the response.
	p.storeEmail(ctx, userID, email, hash, parsed, &app.ID, existing)

	if p.notifier != nil {
		p.notifier.NotifyApplication(userID, "application_created", app)
	}

	return &Result{
		Success:         true,
		ApplicationID:   &app.ID,
		Message:         fmt.Sprintf("Application created successfully from email (confidence: %.2f)", parsed.Confidence),
		Reason:          ReasonCreated,
		StatusDetection: email.Detection,
	}, nil
}

// PreviewIngest runs extraction and the dedup lookup without persisting
// anything. It backs the /ingest/email/test endpoint.
func (p *Pipeline) PreviewIngest(ctx context.Context, userID string, email *InboundEmail) (*Preview, error) {
	parsed := Extract(email)
	hash := Fingerprint(email)

	preview := &Preview{
		Parsed:    parsed,
		EmailHash: hash,
	}

	existing, err := p.emails.FindByFingerprint(ctx, userID, hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return preview, nil
		}
		return nil, fmt.Errorf("fingerprint lookup failed: %w", err)
	}

	preview.WouldCreateDuplicate = true
	preview.ExistingApplicationID = existing.ApplicationID
	return preview, nil
}

// handleDuplicate processes a re-submitted email whose record already links
// to an application: re-extract, compare, and conditionally update. Update
// failures are swallowed; the caller always gets a duplicate result.
func (p *Pipeline) handleDuplicate(ctx context.Context, userID string, email *InboundEmail, record *models.EmailRecord) *Result {
	result := &Result{
		Success:       true,
		ApplicationID: record.ApplicationID,
		Message:       "Duplicate email detected, using existing application",
		Duplicate:     true,
		Reason:        ReasonDuplicateEmail,
	}

	p.runDetector(ctx, email)
	parsed := Extract(email)

	app, err := p.apps.GetByID(ctx, userID, *record.ApplicationID)
	if err != nil {
		p.logger.Warn("duplicate email references unknown application",
			slog.String("application_id", *record.ApplicationID),
			slog.String("error", err.Error()))
		return result
	}

	updates := map[string]any{}
	normalized := NormalizeStatus(parsed.Status)
	// Never downgrade an established status back to the uninformative
	// default on the strength of a repeated email.
	if normalized != app.Status && normalized != models.StatusApplied {
		updates["status"] = normalized
	}
	if parsed.SourceURL != "" && parsed.SourceURL != app.SourceURL {
		updates["source_url"] = parsed.SourceURL
	}

	if len(updates) == 0 {
		result.Message = "Duplicate email detected, no changes to apply"
		return result
	}

	updated, err := p.apps.Update(ctx, userID, app.ID, updates)
	if err != nil {
		p.logger.Error("duplicate-path update failed",
			slog.String("application_id", app.ID),
			slog.String("error", err.Error()))
		return result
	}

	if _, ok := updates["status"]; ok {
		p.appendEvent(ctx, app.ID, models.EventTypeEmailUpdate, parsed.Status,
			"Status updated from re-ingested email")
	}
	p.mergeParsedData(ctx, record, Fingerprint(email), parsed, email.Detection)

	if p.notifier != nil {
		p.notifier.NotifyApplication(userID, "application_updated", updated)
	}

	result.Message = "Duplicate email detected, existing application updated"
	return result
}

// runDetector fills in AI-detection metadata when a detector is configured
// and the payload did not already carry a verdict. Detector failures only
// mean falling back to keyword heuristics.
func (p *Pipeline) runDetector(ctx context.Context, email *InboundEmail) {
	if p.detector == nil || email.Detection != nil {
		return
	}

	detection, err := p.detector.Detect(ctx, email.Subject, email.Sender, email.TextBody)
	if err != nil {
		p.logger.Warn("ai detection failed, using keyword heuristics", slog.String("error", err.Error()))
		return
	}

	isJobRelated := detection.IsJobApplication
	email.Detection = &StatusDetection{
		DetectedStatus: detection.Status,
		Confidence:     detection.Confidence,
		Indicators:     detection.Indicators,
		Reasoning:      detection.Reasoning,
		IsJobRelated:   &isJobRelated,
	}
}

// isJobRelated resolves the relevance gate: an explicit payload flag wins,
// then the detector's verdict, then the keyword heuristic.
func (p *Pipeline) isJobRelated(email *InboundEmail) bool {
	if email.Detection != nil && email.Detection.IsJobRelated != nil {
		return *email.Detection.IsJobRelated
	}
	return LooksJobRelated(email.Subject, email.TextBody)
}

// storeEmail persists the email record, linked to applicationID when given.
// When an unlinked record already exists for the fingerprint its metadata is
// merged instead of inserting a second row. Failures are logged, never
// returned: by this point the caller's outcome is already decided.
func (p *Pipeline) storeEmail(ctx context.Context, userID string, email *InboundEmail, hash string, parsed ParsedFields, applicationID *string, existing *models.EmailRecord) {
	if existing != nil {
		p.mergeParsedData(ctx, existing, hash, parsed, email.Detection)
		if applicationID != nil {
			if err := p.emails.LinkToApplication(ctx, existing.ID, *applicationID); err != nil {
				p.logger.Error("failed to link email record", slog.String("error", err.Error()))
			}
		}
		return
	}

	record := &models.EmailRecord{
		UserID:        userID,
		ApplicationID: applicationID,
		Sender:        email.Sender,
		Subject:       email.Subject,
		TextBody:      email.TextBody,
		HTMLBody:      email.HTMLBody,
		ReceivedAt:    email.ReceivedAt,
		ParsedData:    buildParsedData(hash, parsed, email.Detection),
	}
	if err := p.emails.Create(ctx, record); err != nil {
		p.logger.Error("failed to store email record", slog.String("error", err.Error()))
	}
}

// mergeParsedData refreshes the stored metadata blob on a duplicate record.
func (p *Pipeline) mergeParsedData(ctx context.Context, record *models.EmailRecord, hash string, parsed ParsedFields, detection *StatusDetection) {
	merged := models.JSONMap{}
	for k, v := range record.ParsedData {
		merged[k] = v
	}
	for k, v := range buildParsedData(hash, parsed, detection) {
		merged[k] = v
	}
	if err := p.emails.UpdateParsedData(ctx, record.ID, merged); err != nil {
		p.logger.Error("failed to update email parsed data", slog.String("error", err.Error()))
	}
}

// appendEvent records an audit entry; failures are logged, never fatal.
func (p *Pipeline) appendEvent(ctx context.Context, applicationID, eventType, status, notes string) {
	event := &models.ApplicationEvent{
		ApplicationID: applicationID,
		EventType:     eventType,
		Status:        status,
		Notes:         notes,
	}
	if err := p.events.Create(ctx, event); err != nil {
		p.logger.Error("failed to append application event",
			slog.String("application_id", applicationID),
			slog.String("error", err.Error()))
	}
}

// buildParsedData assembles the metadata blob stored on an EmailRecord.
func buildParsedData(hash string, parsed ParsedFields, detection *StatusDetection) models.JSONMap {
	data := models.JSONMap{
		models.ParsedKeyEmailHash:  hash,
		models.ParsedKeyCompany:    parsed.Company,
		models.ParsedKeyPosition:   parsed.Position,
		models.ParsedKeyStatus:     parsed.Status,
		models.ParsedKeyConfidence: parsed.Confidence,
	}
	if parsed.SourceURL != "" {
		data[models.ParsedKeySourceURL] = parsed.SourceURL
	}
	if detection != nil {
		data[models.ParsedKeyDetection] = map[string]any{
			"detected_status": detection.DetectedStatus,
			"confidence":      detection.Confidence,
			"indicators":      detection.Indicators,
			"reasoning":       detection.Reasoning,
			"urgency":         detection.Urgency,
		}
	}
	return data
}
