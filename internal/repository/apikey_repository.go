package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/trackmail/trackmail-backend/internal/models"
	"gorm.io/gorm"
)

// APIKeyRepository defines the interface for API key data access
type APIKeyRepository interface {
	Create(ctx context.Context, key *models.APIKey) error
	FindActiveByHash(ctx context.Context, hash string) (*models.APIKey, error)
	ListByUser(ctx context.Context, userID string) ([]models.APIKey, error)
	Revoke(ctx context.Context, userID, id string) error
	TouchLastUsed(ctx context.Context, id string) error
}

// apiKeyRepository implements APIKeyRepository using GORM
type apiKeyRepository struct {
	db *gorm.DB
}

// NewAPIKeyRepository creates a new APIKeyRepository instance
func NewAPIKeyRepository(db *gorm.DB) APIKeyRepository {
	return &apiKeyRepository{db: db}
}

// Create stores a new API key (hash only)
func (r *apiKeyRepository) Create(ctx context.Context, key *models.APIKey) error {
	result := r.db.WithContext(ctx).Create(key)
	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			return ErrDuplicateEntry
		}
		return fmt.Errorf("failed to create api key: %w", result.Error)
	}
	return nil
}

// FindActiveByHash resolves a non-revoked key by its SHA-256 hash
func (r *apiKeyRepository) FindActiveByHash(ctx context.Context, hash string) (*models.APIKey, error) {
	var key models.APIKey
	result := r.db.WithContext(ctx).
		Where("key_hash = ? AND revoked_at IS NULL", hash).
		First(&key)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find api key: %w", result.Error)
	}
	return &key, nil
}

// ListByUser retrieves all keys for a user, including revoked ones
func (r *apiKeyRepository) ListByUser(ctx context.Context, userID string) ([]models.APIKey, error) {
	var keys []models.APIKey
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&keys)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", result.Error)
	}
	return keys, nil
}

// Revoke marks a key as revoked; revoked keys no longer authenticate
func (r *apiKeyRepository) Revoke(ctx context.Context, userID, id string) error {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).Model(&models.APIKey{}).
		Where("id = ? AND user_id = ? AND revoked_at IS NULL", id, userID).
		Update("revoked_at", now)
	if result.Error != nil {
		return fmt.Errorf("failed to revoke api key: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchLastUsed records key usage; failures are not interesting to callers
func (r *apiKeyRepository) TouchLastUsed(ctx context.Context, id string) error {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).Model(&models.APIKey{}).
		Where("id = ?", id).
		Update("last_used_at", now)
	if result.Error != nil {
		return fmt.Errorf("failed to touch api key: %w", result.Error)
	}
	return nil
}
