package handlers

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/trackmail/trackmail-backend/internal/api/middleware"
	"github.com/trackmail/trackmail-backend/internal/api/response"
	"github.com/trackmail/trackmail-backend/internal/models"
	"github.com/trackmail/trackmail-backend/internal/repository"
	"github.com/trackmail/trackmail-backend/internal/validator"
)

// ProfileHandler handles profile-related HTTP requests
type ProfileHandler struct {
	profileRepo repository.ProfileRepository
	smtpDomain  string
}

// NewProfileHandler creates a new ProfileHandler
func NewProfileHandler(profileRepo repository.ProfileRepository, smtpDomain string) *ProfileHandler {
	return &ProfileHandler{
		profileRepo: profileRepo,
		smtpDomain:  smtpDomain,
	}
}

// UpdateProfileRequest is the payload for partial profile updates.
// Pointer fields distinguish "absent" from "set to empty".
type UpdateProfileRequest struct {
	FullName          *string `json:"full_name,omitempty"`
	Profession        *string `json:"profession,omitempty"`
	NotificationEmail *string `json:"notification_email,omitempty"`
}

// ProfileResponse decorates the profile with its derived ingestion address.
type ProfileResponse struct {
	*models.Profile
	IngestAddress string `json:"ingest_address"`
}

func (h *ProfileHandler) toResponse(profile *models.Profile) *ProfileResponse {
	return &ProfileResponse{
		Profile:       profile,
		IngestAddress: fmt.Sprintf("%s@%s", profile.IngestToken, h.smtpDomain),
	}
}

// Get handles GET /api/profile. A first request lazily creates the profile so
// clients never see a 404 for their own record.
func (h *ProfileHandler) Get(c echo.Context) error {
	userID := middleware.UserID(c)

	profile, err := h.profileRepo.Ensure(c.Request().Context(), userID)
	if err != nil {
		return response.InternalError(c, "failed to get profile")
	}

	return response.Success(c, h.toResponse(profile))
}

// Update handles PATCH /api/profile
func (h *ProfileHandler) Update(c echo.Context) error {
	userID := middleware.UserID(c)

	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	if _, err := h.profileRepo.Ensure(c.Request().Context(), userID); err != nil {
		return response.InternalError(c, "failed to get profile")
	}

	updates := map[string]any{}
	if req.FullName != nil {
		updates["full_name"] = validator.SanitizeString(*req.FullName, 255)
	}
	if req.Profession != nil {
		updates["profession"] = validator.SanitizeString(*req.Profession, 255)
	}
	if req.NotificationEmail != nil {
		if *req.NotificationEmail != "" {
			if err := validator.ValidateEmail(*req.NotificationEmail); err != nil {
				return response.BadRequest(c, "invalid notification email")
			}
		}
		updates["notification_email"] = *req.NotificationEmail
	}

	if len(updates) == 0 {
		profile, err := h.profileRepo.GetByID(c.Request().Context(), userID)
		if err != nil {
			return response.InternalError(c, "failed to get profile")
		}
		return response.Success(c, h.toResponse(profile))
	}

	profile, err := h.profileRepo.Update(c.Request().Context(), userID, updates)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "profile not found")
		}
		return response.InternalError(c, "failed to update profile")
	}

	return response.Success(c, h.toResponse(profile))
}

// RotateIngestToken handles POST /api/profile/rotate-token. The old ingestion
// address stops working immediately; mail sent to it bounces with 550.
func (h *ProfileHandler) RotateIngestToken(c echo.Context) error {
	userID := middleware.UserID(c)

	if _, err := h.profileRepo.Ensure(c.Request().Context(), userID); err != nil {
		return response.InternalError(c, "failed to get profile")
	}

	profile, err := h.profileRepo.Update(c.Request().Context(), userID, map[string]any{
		"ingest_token": uuid.NewString(),
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "profile not found")
		}
		return response.InternalError(c, "failed to rotate ingest token")
	}

	return response.SuccessWithMessage(c, h.toResponse(profile), "ingest token rotated")
}
