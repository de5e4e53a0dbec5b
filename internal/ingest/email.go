// Package ingest implements the email ingestion and classification pipeline:
// deduplication, field extraction, status classification, and the idempotent
// merge-or-create flow against existing applications.
package ingest

import (
	"time"
)

// StatusDetection carries AI-detection metadata supplied by an upstream
// add-on or produced by the configured detector. Confidence is 0-100 as
// reported by the detector, not the extraction confidence score.
type StatusDetection struct {
	DetectedStatus string   `json:"detected_status"`
	Confidence     float64  `json:"confidence,omitempty"`
	Indicators     []string `json:"indicators,omitempty"`
	Reasoning      string   `json:"reasoning,omitempty"`
	IsJobRelated   *bool    `json:"is_job_related,omitempty"`
	Urgency        string   `json:"urgency,omitempty"`
}

// InboundEmail is the single well-typed representation of an email entering
// the pipeline, whether it arrived over HTTP or SMTP. It is ephemeral: only
// its fingerprint and a derived EmailRecord are ever persisted. Optional
// fields are resolved once at the transport boundary; the pipeline never
// probes for missing attributes.
type InboundEmail struct {
	Sender     string
	Subject    string
	TextBody   string
	HTMLBody   string
	ReceivedAt *time.Time

	// Forwarding-service identifiers, kept for reference only.
	MessageID string
	ThreadID  string

	// Pre-parsed override fields from an upstream add-on. When present they
	// take precedence over locally derived values.
	ParsedCompany  string
	ParsedPosition string
	ParsedStatus   string
	ParsedJobURL   string

	// AI-detection metadata, either supplied with the payload or filled in
	// by the pipeline's detector.
	Detection *StatusDetection
}

// ParsedFields is the extraction result for one email. Empty strings mean
// the field could not be derived; callers treat missing company or position
// as the insufficient-data case.
type ParsedFields struct {
	Company    string  `json:"company"`
	Position   string  `json:"position"`
	Status     string  `json:"status"`
	SourceURL  string  `json:"source_url,omitempty"`
	Confidence float64 `json:"confidence"`
}
