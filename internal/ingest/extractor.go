package ingest

import (
	"regexp"
	"strings"
)

// Applicant-tracking systems and webmail providers whose domains never name
// the hiring company.
var platformDomains = map[string]struct{}{
	"greenhouse":      {},
	"lever":           {},
	"workday":         {},
	"taleo":           {},
	"smartrecruiters": {},
	"indeed":          {},
	"linkedin":        {},
	"glassdoor":       {},
	"monster":         {},
	"gmail":           {},
	"outlook":         {},
}

var (
	senderDomainPattern = regexp.MustCompile(`@([^.@\s]+)`)

	// Ordered subject-line rules; the first match wins.
	positionDashPattern = regexp.MustCompile(` - ([A-Z][A-Za-z\s]+)$`)
	positionForPattern  = regexp.MustCompile(` for ([A-Z][A-Za-z\s]+)`)
	positionToPattern   = regexp.MustCompile(`(?i) to ([A-Za-z][A-Za-z\s]+) position`)
)

// ExtractCompany derives a company name from the sender's domain label (the
// text between "@" and the first "."), capitalized. Returns "" for known
// ATS/webmail domains, where the domain names the platform, not the company.
func ExtractCompany(sender string) string {
	match := senderDomainPattern.FindStringSubmatch(strings.ToLower(sender))
	if match == nil {
		return ""
	}

	domain := match[1]
	if _, ok := platformDomains[domain]; ok {
		return ""
	}

	return strings.ToUpper(domain[:1]) + domain[1:]
}

// ExtractPosition pulls a position title out of the subject line using the
// ordered pattern rules ("... - Title", "... for Title", "... to Title
// position"). Returns "" when no rule matches.
func ExtractPosition(subject string) string {
	for _, pattern := range []*regexp.Regexp{positionDashPattern, positionForPattern, positionToPattern} {
		if match := pattern.FindStringSubmatch(subject); match != nil {
			return strings.TrimSpace(match[1])
		}
	}
	return ""
}

// Extract produces the structured fields for an email, preferring pre-parsed
// override fields over locally derived ones and an AI-detected status over
// local keyword matching.
func Extract(email *InboundEmail) ParsedFields {
	parsed := ParsedFields{
		Company:   email.ParsedCompany,
		Position:  email.ParsedPosition,
		Status:    email.ParsedStatus,
		SourceURL: email.ParsedJobURL,
	}

	if parsed.Company == "" {
		parsed.Company = ExtractCompany(email.Sender)
	}
	if parsed.Position == "" {
		parsed.Position = ExtractPosition(email.Subject)
	}
	if parsed.Status == "" && email.Detection != nil {
		parsed.Status = email.Detection.DetectedStatus
	}
	if parsed.Status == "" {
		parsed.Status = ClassifyStatus(email.Subject, email.TextBody)
	}

	parsed.Confidence = Score(parsed)
	return parsed
}
