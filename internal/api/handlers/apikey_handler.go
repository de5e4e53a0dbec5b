package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/trackmail/trackmail-backend/internal/api/middleware"
	"github.com/trackmail/trackmail-backend/internal/api/response"
	"github.com/trackmail/trackmail-backend/internal/models"
	"github.com/trackmail/trackmail-backend/internal/repository"
	"github.com/trackmail/trackmail-backend/internal/validator"
)

// apiKeyPrefix marks key material so leaked credentials are recognizable in
// logs and secret scanners.
const apiKeyPrefix = "tm_"

// APIKeyHandler handles API key management requests
type APIKeyHandler struct {
	keyRepo repository.APIKeyRepository
}

// NewAPIKeyHandler creates a new APIKeyHandler
func NewAPIKeyHandler(keyRepo repository.APIKeyRepository) *APIKeyHandler {
	return &APIKeyHandler{keyRepo: keyRepo}
}

// IssueAPIKeyRequest is the payload for issuing a new key
type IssueAPIKeyRequest struct {
	Name string `json:"name,omitempty"`
}

// IssuedAPIKey carries the plaintext key exactly once, at issue time. Only the
// hash is stored; the key cannot be recovered later.
type IssuedAPIKey struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Key       string `json:"key"`
	CreatedAt string `json:"created_at"`
}

// Issue handles POST /api/api-keys
func (h *APIKeyHandler) Issue(c echo.Context) error {
	userID := middleware.UserID(c)

	var req IssueAPIKeyRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return response.InternalError(c, "failed to generate key material")
	}
	plaintext := apiKeyPrefix + hex.EncodeToString(raw)

	key := &models.APIKey{
		UserID:  userID,
		Name:    validator.SanitizeString(req.Name, 255),
		KeyHash: models.HashAPIKey(plaintext),
	}

	if err := h.keyRepo.Create(c.Request().Context(), key); err != nil {
		return response.InternalError(c, "failed to create api key")
	}

	return response.Created(c, &IssuedAPIKey{
		ID:        key.ID,
		Name:      key.Name,
		Key:       plaintext,
		CreatedAt: key.CreatedAt.UTC().Format(time.RFC3339),
	})
}

// List handles GET /api/api-keys. Key material is never returned here.
func (h *APIKeyHandler) List(c echo.Context) error {
	userID := middleware.UserID(c)

	keys, err := h.keyRepo.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return response.InternalError(c, "failed to list api keys")
	}

	return response.Success(c, keys)
}

// Revoke handles DELETE /api/api-keys/:id
func (h *APIKeyHandler) Revoke(c echo.Context) error {
	userID := middleware.UserID(c)
	id := c.Param("id")

	if err := h.keyRepo.Revoke(c.Request().Context(), userID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, fmt.Sprintf("api key %s not found", id))
		}
		return response.InternalError(c, "failed to revoke api key")
	}

	return response.NoContent(c)
}
