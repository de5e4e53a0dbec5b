package handlers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/trackmail/trackmail-backend/internal/api/middleware"
	"github.com/trackmail/trackmail-backend/internal/api/response"
	"github.com/trackmail/trackmail-backend/internal/ingest"
	"github.com/trackmail/trackmail-backend/internal/models"
	"github.com/trackmail/trackmail-backend/internal/repository"
)

// ApplicationHandler handles application-related HTTP requests
type ApplicationHandler struct {
	appRepo   repository.ApplicationRepository
	eventRepo repository.EventRepository
	emailRepo repository.EmailRepository
}

// NewApplicationHandler creates a new ApplicationHandler
func NewApplicationHandler(appRepo repository.ApplicationRepository, eventRepo repository.EventRepository, emailRepo repository.EmailRepository) *ApplicationHandler {
	return &ApplicationHandler{
		appRepo:   appRepo,
		eventRepo: eventRepo,
		emailRepo: emailRepo,
	}
}

// CreateApplicationRequest is the payload for manual application creation
type CreateApplicationRequest struct {
	Company   string     `json:"company"`
	Position  string     `json:"position"`
	Status    string     `json:"status,omitempty"`
	SourceURL string     `json:"source_url,omitempty"`
	Location  string     `json:"location,omitempty"`
	Notes     string     `json:"notes,omitempty"`
	AppliedAt *time.Time `json:"applied_at,omitempty"`
}

// UpdateApplicationRequest is the payload for partial application updates.
// Pointer fields distinguish "absent" from "set to empty".
type UpdateApplicationRequest struct {
	Company   *string    `json:"company,omitempty"`
	Position  *string    `json:"position,omitempty"`
	Status    *string    `json:"status,omitempty"`
	SourceURL *string    `json:"source_url,omitempty"`
	Location  *string    `json:"location,omitempty"`
	Notes     *string    `json:"notes,omitempty"`
	SortIndex *int       `json:"sort_index,omitempty"`
	AppliedAt *time.Time `json:"applied_at,omitempty"`
}

// List handles GET /api/applications
func (h *ApplicationHandler) List(c echo.Context) error {
	userID := middleware.UserID(c)

	filter := repository.ApplicationFilter{
		Company: c.QueryParam("company"),
		Search:  c.QueryParam("search"),
	}

	if status := c.QueryParam("status"); status != "" {
		canonical, ok := ingest.LookupStatus(status)
		if !ok {
			return response.BadRequest(c, fmt.Sprintf("unknown status %q", status))
		}
		filter.Status = canonical
	}

	if l := c.QueryParam("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			filter.Limit = parsed
		}
	}
	if o := c.QueryParam("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			filter.Offset = parsed
		}
	}

	apps, total, err := h.appRepo.List(c.Request().Context(), userID, filter)
	if err != nil {
		return response.InternalError(c, "failed to list applications")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = repository.DefaultListLimit
	}
	return response.Paginated(c, apps, total, limit, filter.Offset)
}

// Create handles POST /api/applications
func (h *ApplicationHandler) Create(c echo.Context) error {
	userID := middleware.UserID(c)

	var req CreateApplicationRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if req.Company == "" || req.Position == "" {
		return response.BadRequest(c, "company and position are required")
	}

	status := models.StatusApplied
	if req.Status != "" {
		canonical, ok := ingest.LookupStatus(req.Status)
		if !ok {
			return response.BadRequest(c, fmt.Sprintf("unknown status %q", req.Status))
		}
		status = canonical
	}

	appliedAt := req.AppliedAt
	if appliedAt == nil {
		now := time.Now().UTC()
		appliedAt = &now
	}

	app := &models.Application{
		UserID:    userID,
		Company:   req.Company,
		Position:  req.Position,
		Status:    status,
		SourceURL: req.SourceURL,
		Location:  req.Location,
		Notes:     req.Notes,
		AppliedAt: appliedAt,
	}

	if err := h.appRepo.Create(c.Request().Context(), app); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return response.Conflict(c, "an application for this company and position already exists")
		}
		return response.InternalError(c, "failed to create application")
	}

	h.recordEvent(c, app.ID, models.EventTypeStatusChange, status, "Application created manually")

	return response.Created(c, app)
}

// Get handles GET /api/applications/:id
func (h *ApplicationHandler) Get(c echo.Context) error {
	userID := middleware.UserID(c)
	id := c.Param("id")

	app, err := h.appRepo.GetByID(c.Request().Context(), userID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "application not found")
		}
		return response.InternalError(c, "failed to get application")
	}

	return response.Success(c, app)
}

// Update handles PATCH /api/applications/:id
func (h *ApplicationHandler) Update(c echo.Context) error {
	userID := middleware.UserID(c)
	id := c.Param("id")

	var req UpdateApplicationRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	current, err := h.appRepo.GetByID(c.Request().Context(), userID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "application not found")
		}
		return response.InternalError(c, "failed to get application")
	}

	updates := map[string]any{}
	var statusChange string

	if req.Company != nil {
		if *req.Company == "" {
			return response.BadRequest(c, "company cannot be empty")
		}
		updates["company"] = *req.Company
	}
	if req.Position != nil {
		if *req.Position == "" {
			return response.BadRequest(c, "position cannot be empty")
		}
		updates["position"] = *req.Position
	}
	if req.Status != nil {
		canonical, ok := ingest.LookupStatus(*req.Status)
		if !ok {
			return response.BadRequest(c, fmt.Sprintf("unknown status %q", *req.Status))
		}
		updates["status"] = canonical
		if canonical != current.Status {
			statusChange = canonical
		}
	}
	if req.SourceURL != nil {
		updates["source_url"] = *req.SourceURL
	}
	if req.Location != nil {
		updates["location"] = *req.Location
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if req.SortIndex != nil {
		updates["sort_index"] = *req.SortIndex
	}
	if req.AppliedAt != nil {
		updates["applied_at"] = *req.AppliedAt
	}

	if len(updates) == 0 {
		return response.Success(c, current)
	}

	updated, err := h.appRepo.Update(c.Request().Context(), userID, id, updates)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "application not found")
		}
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return response.Conflict(c, "an application for this company and position already exists")
		}
		return response.InternalError(c, "failed to update application")
	}

	if statusChange != "" {
		h.recordEvent(c, id, models.EventTypeStatusChange, statusChange,
			fmt.Sprintf("Status changed from %s to %s", current.Status, statusChange))
	}

	return response.Success(c, updated)
}

// Delete handles DELETE /api/applications/:id
func (h *ApplicationHandler) Delete(c echo.Context) error {
	userID := middleware.UserID(c)
	id := c.Param("id")

	if err := h.appRepo.Delete(c.Request().Context(), userID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "application not found")
		}
		return response.InternalError(c, "failed to delete application")
	}

	return response.NoContent(c)
}

// ListEvents handles GET /api/applications/:id/events
func (h *ApplicationHandler) ListEvents(c echo.Context) error {
	userID := middleware.UserID(c)
	id := c.Param("id")

	// Ownership check before exposing the timeline.
	if _, err := h.appRepo.GetByID(c.Request().Context(), userID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "application not found")
		}
		return response.InternalError(c, "failed to get application")
	}

	events, err := h.eventRepo.ListByApplication(c.Request().Context(), id)
	if err != nil {
		return response.InternalError(c, "failed to list events")
	}

	return response.Success(c, events)
}

// CreateEventRequest is the payload for manual timeline entries
type CreateEventRequest struct {
	EventType string         `json:"event_type,omitempty"`
	Status    string         `json:"status,omitempty"`
	Notes     string         `json:"notes,omitempty"`
	Metadata  models.JSONMap `json:"metadata,omitempty"`
}

// CreateEvent handles POST /api/applications/:id/events. Clients use it to
// record their own milestones; the entry never changes the application status.
func (h *ApplicationHandler) CreateEvent(c echo.Context) error {
	userID := middleware.UserID(c)
	id := c.Param("id")

	var req CreateEventRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if req.Notes == "" && req.Status == "" {
		return response.BadRequest(c, "notes or status is required")
	}

	if _, err := h.appRepo.GetByID(c.Request().Context(), userID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "application not found")
		}
		return response.InternalError(c, "failed to get application")
	}

	eventType := req.EventType
	if eventType == "" {
		eventType = models.EventTypeNote
	}

	event := &models.ApplicationEvent{
		ApplicationID: id,
		EventType:     eventType,
		Status:        req.Status,
		Notes:         req.Notes,
		Metadata:      req.Metadata,
	}
	if err := h.eventRepo.Create(c.Request().Context(), event); err != nil {
		return response.InternalError(c, "failed to create event")
	}

	return response.Created(c, event)
}

// ListEmails handles GET /api/applications/:id/emails
func (h *ApplicationHandler) ListEmails(c echo.Context) error {
	userID := middleware.UserID(c)
	id := c.Param("id")

	if _, err := h.appRepo.GetByID(c.Request().Context(), userID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "application not found")
		}
		return response.InternalError(c, "failed to get application")
	}

	emails, err := h.emailRepo.ListByApplication(c.Request().Context(), userID, id)
	if err != nil {
		return response.InternalError(c, "failed to list emails")
	}

	return response.Success(c, emails)
}

// StatusGroups handles GET /api/applications/status-groups. It returns every
// application bucketed by canonical status for board-style clients, ordered by
// sort index within each bucket.
func (h *ApplicationHandler) StatusGroups(c echo.Context) error {
	userID := middleware.UserID(c)

	apps, err := h.appRepo.ListAll(c.Request().Context(), userID)
	if err != nil {
		return response.InternalError(c, "failed to list applications")
	}

	groups := make(map[string][]models.Application, len(models.CanonicalStatuses))
	for _, status := range models.CanonicalStatuses {
		groups[status] = []models.Application{}
	}
	for _, app := range apps {
		groups[app.Status] = append(groups[app.Status], app)
	}

	return response.Success(c, groups)
}

// AnalyticsOverview summarizes the funnel for GET /api/analytics/overview.
type AnalyticsOverview struct {
	Total         int64            `json:"total"`
	ByStatus      map[string]int64 `json:"by_status"`
	InterviewRate float64          `json:"interview_rate"`
	OfferRate     float64          `json:"offer_rate"`
	RejectionRate float64          `json:"rejection_rate"`
}

// Analytics handles GET /api/analytics/overview
func (h *ApplicationHandler) Analytics(c echo.Context) error {
	userID := middleware.UserID(c)

	counts, err := h.appRepo.CountByStatus(c.Request().Context(), userID)
	if err != nil {
		return response.InternalError(c, "failed to compute analytics")
	}

	overview := AnalyticsOverview{ByStatus: make(map[string]int64, len(models.CanonicalStatuses))}
	for _, status := range models.CanonicalStatuses {
		overview.ByStatus[status] = counts[status]
		overview.Total += counts[status]
	}

	if overview.Total > 0 {
		total := float64(overview.Total)
		// Offers imply having interviewed; count them in the interview funnel.
		overview.InterviewRate = round2(float64(counts[models.StatusInterviewing]+counts[models.StatusOffer]) / total)
		overview.OfferRate = round2(float64(counts[models.StatusOffer]) / total)
		overview.RejectionRate = round2(float64(counts[models.StatusRejected]) / total)
	}

	return response.Success(c, overview)
}

// Export handles GET /api/applications/export and streams the user's
// applications as CSV.
func (h *ApplicationHandler) Export(c echo.Context) error {
	userID := middleware.UserID(c)

	apps, err := h.appRepo.ListAll(c.Request().Context(), userID)
	if err != nil {
		return response.InternalError(c, "failed to list applications")
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	res.Header().Set(echo.HeaderContentDisposition, `attachment; filename="applications.csv"`)
	res.WriteHeader(http.StatusOK)

	w := csv.NewWriter(res)
	if err := w.Write([]string{"company", "position", "status", "location", "source_url", "applied_at", "created_at", "notes"}); err != nil {
		return err
	}
	for _, app := range apps {
		appliedAt := ""
		if app.AppliedAt != nil {
			appliedAt = app.AppliedAt.UTC().Format(time.RFC3339)
		}
		row := []string{
			app.Company,
			app.Position,
			app.Status,
			app.Location,
			app.SourceURL,
			appliedAt,
			app.CreatedAt.UTC().Format(time.RFC3339),
			app.Notes,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// recordEvent appends an audit entry; a failed write never fails the request.
func (h *ApplicationHandler) recordEvent(c echo.Context, applicationID, eventType, status, notes string) {
	event := &models.ApplicationEvent{
		ApplicationID: applicationID,
		EventType:     eventType,
		Status:        status,
		Notes:         notes,
	}
	_ = h.eventRepo.Create(c.Request().Context(), event)
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
