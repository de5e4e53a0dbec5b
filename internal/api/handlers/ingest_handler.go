package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/trackmail/trackmail-backend/internal/api/middleware"
	"github.com/trackmail/trackmail-backend/internal/api/response"
	"github.com/trackmail/trackmail-backend/internal/ingest"
	"github.com/trackmail/trackmail-backend/internal/smtp"
)

// IngestHandler handles email ingestion HTTP requests
type IngestHandler struct {
	pipeline *ingest.Pipeline
}

// NewIngestHandler creates a new IngestHandler
func NewIngestHandler(pipeline *ingest.Pipeline) *IngestHandler {
	return &IngestHandler{pipeline: pipeline}
}

// IngestEmailRequest is the payload accepted by the ingestion endpoints.
// Either the structured fields or RawRFC822 must be present; when both are
// given the structured fields win. Optional attributes are resolved here, at
// the boundary, into a single well-typed record for the pipeline.
type IngestEmailRequest struct {
	Sender     string     `json:"sender"`
	Subject    string     `json:"subject"`
	TextBody   string     `json:"text_body,omitempty"`
	HTMLBody   string     `json:"html_body,omitempty"`
	ReceivedAt *time.Time `json:"received_at,omitempty"`
	MessageID  string     `json:"message_id,omitempty"`
	ThreadID   string     `json:"thread_id,omitempty"`

	// RawRFC822 carries a full MIME message as an alternative to the
	// structured fields, for forwarding services that relay verbatim.
	RawRFC822 string `json:"raw_rfc822,omitempty"`

	// Pre-parsed override fields from an upstream add-on.
	ParsedCompany  string `json:"parsed_company,omitempty"`
	ParsedPosition string `json:"parsed_position,omitempty"`
	ParsedStatus   string `json:"parsed_status,omitempty"`
	ParsedJobURL   string `json:"parsed_job_url,omitempty"`

	Detection *ingest.StatusDetection `json:"status_detection,omitempty"`
}

// toInboundEmail resolves the request into the pipeline's boundary record.
func (r *IngestEmailRequest) toInboundEmail() (*ingest.InboundEmail, error) {
	email := &ingest.InboundEmail{
		Sender:         strings.TrimSpace(r.Sender),
		Subject:        strings.TrimSpace(r.Subject),
		TextBody:       r.TextBody,
		HTMLBody:       r.HTMLBody,
		ReceivedAt:     r.ReceivedAt,
		MessageID:      r.MessageID,
		ThreadID:       r.ThreadID,
		ParsedCompany:  r.ParsedCompany,
		ParsedPosition: r.ParsedPosition,
		ParsedStatus:   r.ParsedStatus,
		ParsedJobURL:   r.ParsedJobURL,
		Detection:      r.Detection,
	}

	if r.RawRFC822 != "" {
		parsed, err := smtp.ParseEmail(strings.NewReader(r.RawRFC822))
		if err != nil {
			return nil, err
		}
		if email.Sender == "" {
			email.Sender = parsed.Sender
		}
		if email.Subject == "" {
			email.Subject = parsed.Subject
		}
		if email.TextBody == "" {
			email.TextBody = parsed.TextBody
		}
		if email.HTMLBody == "" {
			email.HTMLBody = parsed.HTMLBody
		}
		if email.ReceivedAt == nil {
			email.ReceivedAt = parsed.ReceivedAt
		}
		if email.MessageID == "" {
			email.MessageID = parsed.MessageID
		}
	}

	return email, nil
}

// Ingest handles POST /api/ingest/email
func (h *IngestHandler) Ingest(c echo.Context) error {
	userID := middleware.UserID(c)

	var req IngestEmailRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	email, err := req.toInboundEmail()
	if err != nil {
		return response.BadRequest(c, "could not parse raw message")
	}
	if email.Sender == "" || email.Subject == "" {
		return response.BadRequest(c, "sender and subject are required")
	}

	result, err := h.pipeline.Ingest(c.Request().Context(), userID, email)
	if err != nil {
		return response.InternalError(c, "ingestion failed")
	}

	// Recoverable rejections still answer 200; the body carries the verdict.
	return c.JSON(http.StatusOK, result)
}

// Preview handles POST /api/ingest/email/test. It runs extraction and the
// dedup lookup without writing anything, for add-on development.
func (h *IngestHandler) Preview(c echo.Context) error {
	userID := middleware.UserID(c)

	var req IngestEmailRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	email, err := req.toInboundEmail()
	if err != nil {
		return response.BadRequest(c, "could not parse raw message")
	}
	if email.Sender == "" || email.Subject == "" {
		return response.BadRequest(c, "sender and subject are required")
	}

	preview, err := h.pipeline.PreviewIngest(c.Request().Context(), userID, email)
	if err != nil {
		return response.InternalError(c, "preview failed")
	}

	return response.Success(c, preview)
}
