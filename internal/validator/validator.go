// Package validator provides input validation and sanitization functions
// for the TrackMail backend security layer.
package validator

import (
	"errors"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Validation errors
var (
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrInvalidIngestToken = errors.New("invalid ingest token format")
	ErrInvalidURL         = errors.New("invalid url format")
	ErrInputTooLong       = errors.New("input exceeds maximum length")
	ErrEmptyInput         = errors.New("input cannot be empty")
)

// Ingest token regex: UUIDs without hyphens or with hyphens, lowercase hex.
// Tokens double as the local part of an ingestion address, so the character
// set must stay safe for SMTP.
var ingestTokenRegex = regexp.MustCompile(`^[a-f0-9][a-f0-9-]{6,62}[a-f0-9]$`)

// ValidateEmail validates email address format according to RFC 5322.
// Returns nil if valid, or an appropriate error.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(strings.ToLower(email))

	if email == "" {
		return ErrEmptyInput
	}

	// RFC 5321 specifies max email length of 254 characters
	if utf8.RuneCountInString(email) > 254 {
		return ErrInputTooLong
	}

	// Use Go's mail package for RFC 5322 validation
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidEmail
	}

	return nil
}

// ValidateIngestToken validates the local part of an ingestion address.
// Returns nil if valid, or an appropriate error.
func ValidateIngestToken(token string) error {
	token = strings.TrimSpace(strings.ToLower(token))

	if token == "" {
		return ErrEmptyInput
	}

	// RFC 5321 specifies max local part length of 64 characters
	if len(token) > 64 {
		return ErrInputTooLong
	}

	if !ingestTokenRegex.MatchString(token) {
		return ErrInvalidIngestToken
	}

	return nil
}

// ValidateJobURL validates an optional job posting link. Only absolute
// http(s) URLs are accepted.
func ValidateJobURL(raw string) error {
	raw = strings.TrimSpace(raw)

	if raw == "" {
		return ErrEmptyInput
	}

	if utf8.RuneCountInString(raw) > 2048 {
		return ErrInputTooLong
	}

	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidURL
	}

	return nil
}

// Pagination constants
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ValidatePagination validates and sanitizes pagination parameters.
// Returns sanitized limit and offset values.
func ValidatePagination(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}

// SanitizeString removes potentially dangerous characters and enforces length limits.
// Removes control characters and trims whitespace.
func SanitizeString(input string, maxLength int) string {
	// Remove control characters (ASCII 0-31 and 127)
	input = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, input)

	// Trim whitespace
	input = strings.TrimSpace(input)

	// Enforce maximum length if specified
	if maxLength > 0 && utf8.RuneCountInString(input) > maxLength {
		runes := []rune(input)
		input = string(runes[:maxLength])
	}

	return input
}
