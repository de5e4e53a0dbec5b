package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/trackmail/trackmail-backend/internal/models"
	"gorm.io/gorm"
)

// ProfileRepository defines the interface for profile data access
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	GetByIngestToken(ctx context.Context, token string) (*models.Profile, error)
	Create(ctx context.Context, profile *models.Profile) error
	Update(ctx context.Context, id string, updates map[string]any) (*models.Profile, error)
	Ensure(ctx context.Context, userID string) (*models.Profile, error)
}

// profileRepository implements ProfileRepository using GORM
type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new ProfileRepository instance
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

// GetByID retrieves a profile by its user ID
func (r *profileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	result := r.db.WithContext(ctx).First(&profile, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", result.Error)
	}
	return &profile, nil
}

// GetByIngestToken resolves the profile owning an SMTP ingest token
func (r *profileRepository) GetByIngestToken(ctx context.Context, token string) (*models.Profile, error) {
	var profile models.Profile
	result := r.db.WithContext(ctx).First(&profile, "ingest_token = ?", token)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile by ingest token: %w", result.Error)
	}
	return &profile, nil
}

// Create creates a new profile
func (r *profileRepository) Create(ctx context.Context, profile *models.Profile) error {
	result := r.db.WithContext(ctx).Create(profile)
	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			return ErrDuplicateEntry
		}
		return fmt.Errorf("failed to create profile: %w", result.Error)
	}
	return nil
}

// Update applies a partial update and returns the refreshed profile
func (r *profileRepository) Update(ctx context.Context, id string, updates map[string]any) (*models.Profile, error) {
	result := r.db.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update profile: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// Ensure returns the profile for userID, creating a default one if absent.
// A concurrent create by another request is folded into a re-read.
func (r *profileRepository) Ensure(ctx context.Context, userID string) (*models.Profile, error) {
	profile, err := r.GetByID(ctx, userID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	profile = &models.Profile{ID: userID}
	if err := r.Create(ctx, profile); err != nil {
		if errors.Is(err, ErrDuplicateEntry) {
			return r.GetByID(ctx, userID)
		}
		return nil, err
	}
	return profile, nil
}
