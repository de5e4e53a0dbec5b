package smtp

import (
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"
)

// ParsedEmail represents a parsed email message
type ParsedEmail struct {
	Sender     string
	SenderName string
	Subject    string
	TextBody   string
	HTMLBody   string
	ReceivedAt *time.Time
	MessageID  string
}

// ParseEmail parses an RFC 822 message from an io.Reader. Attachments are
// ignored; only the headers and body matter for classification.
func ParseEmail(r io.Reader) (*ParsedEmail, error) {
	env, err := enmime.ReadEnvelope(r)
	if err != nil {
		return nil, err
	}

	parsed := &ParsedEmail{
		Subject:   env.GetHeader("Subject"),
		TextBody:  env.Text,
		HTMLBody:  env.HTML,
		MessageID: strings.Trim(env.GetHeader("Message-Id"), "<>"),
	}

	parsed.SenderName, parsed.Sender = parseFromHeader(env.GetHeader("From"))

	if date := env.GetHeader("Date"); date != "" {
		if t, err := time.Parse(time.RFC1123Z, date); err == nil {
			utc := t.UTC()
			parsed.ReceivedAt = &utc
		} else if t, err := time.Parse(time.RFC1123, date); err == nil {
			utc := t.UTC()
			parsed.ReceivedAt = &utc
		}
	}

	// HTML-only messages still need text for keyword classification.
	if parsed.TextBody == "" && parsed.HTMLBody != "" {
		parsed.TextBody = stripHTMLTags(parsed.HTMLBody)
	}

	return parsed, nil
}

// parseFromHeader extracts name and email from a From header
func parseFromHeader(from string) (name, email string) {
	from = strings.TrimSpace(from)
	if from == "" {
		return "", ""
	}

	// Pattern: "Name" <email@example.com> or Name <email@example.com>
	re := regexp.MustCompile(`^(?:"?([^"<]*)"?\s*)?<?([^<>]+@[^<>]+)>?$`)
	matches := re.FindStringSubmatch(from)

	if len(matches) >= 3 {
		name = strings.TrimSpace(matches[1])
		email = strings.TrimSpace(matches[2])
		// Remove quotes from name
		name = strings.Trim(name, `"`)
	} else {
		// Fallback: treat entire string as email
		email = from
	}

	return name, email
}

// stripHTMLTags removes HTML tags from a string
func stripHTMLTags(html string) string {
	// Remove script and style elements
	re := regexp.MustCompile(`(?i)<(script|style)[^>]*>[\s\S]*?</\1>`)
	html = re.ReplaceAllString(html, "")

	// Remove HTML tags
	re = regexp.MustCompile(`<[^>]*>`)
	html = re.ReplaceAllString(html, " ")

	// Decode common HTML entities
	html = strings.ReplaceAll(html, "&nbsp;", " ")
	html = strings.ReplaceAll(html, "&amp;", "&")
	html = strings.ReplaceAll(html, "&lt;", "<")
	html = strings.ReplaceAll(html, "&gt;", ">")
	html = strings.ReplaceAll(html, "&quot;", `"`)
	html = strings.ReplaceAll(html, "&#39;", "'")

	return strings.Join(strings.Fields(html), " ")
}
