package smtp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/emersion/go-smtp"
	"github.com/trackmail/trackmail-backend/internal/ingest"
	"github.com/trackmail/trackmail-backend/internal/models"
	"github.com/trackmail/trackmail-backend/internal/repository"
)

// Session implements the go-smtp Session interface
type Session struct {
	backend    *Backend
	remoteAddr string
	from       string
	profiles   []*models.Profile
}

// NewSession creates a new SMTP session
func NewSession(backend *Backend, remoteAddr string) *Session {
	return &Session{
		backend:    backend,
		remoteAddr: remoteAddr,
		profiles:   make([]*models.Profile, 0),
	}
}

// AuthPlain handles PLAIN authentication (not required for receiving)
func (s *Session) AuthPlain(username, password string) error {
	// No authentication required for receiving emails
	return nil
}

// Mail handles the MAIL FROM command
func (s *Session) Mail(from string, opts *smtp.MailOptions) error {
	s.from = from
	if s.backend.logger != nil {
		s.backend.logger.Debug("MAIL FROM", slog.String("from", from))
	}
	return nil
}

// Rcpt handles the RCPT TO command. The local part of the recipient address
// is a user's ingest token; unknown tokens are rejected before DATA.
func (s *Session) Rcpt(to string, opts *smtp.RcptOptions) error {
	token, _, err := parseEmailAddress(to)
	if err != nil {
		return &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 1, 1},
			Message:      "Invalid recipient address",
		}
	}

	ctx := context.Background()
	profile, err := s.backend.profileRepo.GetByIngestToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			if s.backend.secLogger != nil {
				s.backend.secLogger.UnknownIngestToken(s.remoteAddr)
			}
			return &smtp.SMTPError{
				Code:         550,
				EnhancedCode: smtp.EnhancedCode{5, 1, 1},
				Message:      "Unknown recipient",
			}
		}
		return &smtp.SMTPError{
			Code:         451,
			EnhancedCode: smtp.EnhancedCode{4, 3, 0},
			Message:      "Temporary error",
		}
	}

	s.profiles = append(s.profiles, profile)
	return nil
}

// Data handles the DATA command: parse the message and run it through the
// ingestion pipeline for every resolved recipient.
func (s *Session) Data(r io.Reader) error {
	if len(s.profiles) == 0 {
		return &smtp.SMTPError{
			Code:         503,
			EnhancedCode: smtp.EnhancedCode{5, 5, 1},
			Message:      "No recipients specified",
		}
	}

	parsed, err := ParseEmail(r)
	if err != nil {
		if s.backend.logger != nil {
			s.backend.logger.Error("failed to parse email", slog.Any("error", err))
		}
		return &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 6, 0},
			Message:      "Failed to parse email",
		}
	}

	// Fall back to the envelope sender when the From header is unusable.
	if parsed.Sender == "" {
		parsed.Sender = s.from
	}

	ctx := context.Background()
	for _, profile := range s.profiles {
		email := &ingest.InboundEmail{
			Sender:     parsed.Sender,
			Subject:    parsed.Subject,
			TextBody:   parsed.TextBody,
			HTMLBody:   parsed.HTMLBody,
			ReceivedAt: parsed.ReceivedAt,
			MessageID:  parsed.MessageID,
		}

		result, err := s.backend.pipeline.Ingest(ctx, profile.ID, email)
		if err != nil {
			if s.backend.logger != nil {
				s.backend.logger.Error("smtp ingestion failed",
					slog.String("user_id", profile.ID),
					slog.Any("error", err))
			}
			// Continue processing other recipients
			continue
		}

		if s.backend.logger != nil {
			s.backend.logger.Info("smtp email ingested",
				slog.String("user_id", profile.ID),
				slog.Bool("success", result.Success),
				slog.Bool("duplicate", result.Duplicate),
				slog.String("reason", result.Reason))
		}
	}

	return nil
}

// Reset resets the session state
func (s *Session) Reset() {
	s.from = ""
	s.profiles = make([]*models.Profile, 0)
}

// Logout handles the end of the session
func (s *Session) Logout() error {
	return nil
}

// parseEmailAddress parses an email address into local part and domain
func parseEmailAddress(address string) (localPart, domain string, err error) {
	// Remove angle brackets if present
	address = strings.TrimPrefix(address, "<")
	address = strings.TrimSuffix(address, ">")
	address = strings.TrimSpace(address)

	parts := strings.Split(address, "@")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid email address: %s", address)
	}

	localPart = strings.ToLower(parts[0])
	domain = strings.ToLower(parts[1])

	if localPart == "" || domain == "" {
		return "", "", fmt.Errorf("invalid email address: %s", address)
	}

	return localPart, domain, nil
}
