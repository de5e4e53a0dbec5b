package ingest

import (
	"strings"

	"github.com/trackmail/trackmail-backend/internal/models"
)

// Keyword sets checked in priority order: a rejection phrase outranks an
// offer phrase, which outranks an interview phrase, and so on. Matching is
// over the lower-cased concatenation of subject and body.
var (
	rejectionKeywords = []string{
		"unfortunately", "not moving forward", "not selected",
		"decided not to", "other candidates", "not the right fit",
	}
	offerKeywords = []string{
		"congratulations", "pleased to offer", "offer letter",
		"accept the position", "job offer",
	}
	interviewKeywords = []string{
		"interview", "schedule a call", "meet with", "next steps",
		"phone screen", "technical assessment",
	}
	screeningKeywords = []string{
		"initial call", "brief chat", "screening",
	}
)

// ClassifyStatus maps email content onto a raw status using ordered keyword
// matching, defaulting to "applied" when nothing matches. The value it
// returns is a raw status; NormalizeStatus collapses it onto the canonical
// vocabulary when it is about to be persisted on an Application.
func ClassifyStatus(subject, body string) string {
	content := strings.ToLower(subject + " " + body)

	for _, keyword := range rejectionKeywords {
		if strings.Contains(content, keyword) {
			return models.StatusRejected
		}
	}
	for _, keyword := range offerKeywords {
		if strings.Contains(content, keyword) {
			return models.StatusOffer
		}
	}
	for _, keyword := range interviewKeywords {
		if strings.Contains(content, keyword) {
			return models.StatusInterviewing
		}
	}
	for _, keyword := range screeningKeywords {
		if strings.Contains(content, keyword) {
			return "screening"
		}
	}

	return models.StatusApplied
}

// statusAliases collapses the historical status vocabulary onto the five
// canonical values. This table is the single source of truth; a totality
// test asserts that every alias resolves to a canonical status.
var statusAliases = map[string]string{
	// applied
	"applied":   models.StatusApplied,
	"wishlist":  models.StatusApplied,
	"submitted": models.StatusApplied,
	"received":  models.StatusApplied,

	// interviewing
	"interviewing":        models.StatusInterviewing,
	"interview":           models.StatusInterviewing,
	"interview_scheduled": models.StatusInterviewing,
	"interview_completed": models.StatusInterviewing,
	"screening":           models.StatusInterviewing,
	"screen":              models.StatusInterviewing,
	"phone_screen":        models.StatusInterviewing,

	// offer
	"offer":          models.StatusOffer,
	"offer_received": models.StatusOffer,
	"offer_extended": models.StatusOffer,
	"accepted":       models.StatusOffer,

	// rejected
	"rejected":     models.StatusRejected,
	"declined":     models.StatusRejected,
	"denied":       models.StatusRejected,
	"not_selected": models.StatusRejected,

	// withdrawn
	"withdrawn": models.StatusWithdrawn,
	"withdrew":  models.StatusWithdrawn,
	"cancelled": models.StatusWithdrawn,
}

// NormalizeStatus maps any raw status string onto one of the five canonical
// statuses. The function is total: unrecognized input, including the empty
// string, normalizes to "applied". It is also idempotent, since each
// canonical status maps to itself.
func NormalizeStatus(raw string) string {
	canonical, _ := LookupStatus(raw)
	return canonical
}

// LookupStatus normalizes like NormalizeStatus but also reports whether the
// input was recognized. API handlers use the flag to reject garbage statuses
// that ingestion would silently fold into "applied".
func LookupStatus(raw string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if canonical, ok := statusAliases[key]; ok {
		return canonical, true
	}
	return models.StatusApplied, false
}
