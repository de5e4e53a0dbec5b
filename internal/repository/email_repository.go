package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/trackmail/trackmail-backend/internal/models"
	"gorm.io/gorm"
)

// EmailRepository defines the interface for email record data access
type EmailRepository interface {
	Create(ctx context.Context, record *models.EmailRecord) error
	FindByFingerprint(ctx context.Context, userID, hash string) (*models.EmailRecord, error)
	ListByApplication(ctx context.Context, userID, applicationID string) ([]models.EmailRecord, error)
	UpdateParsedData(ctx context.Context, id string, parsed models.JSONMap) error
	LinkToApplication(ctx context.Context, id, applicationID string) error
}

// emailRepository implements EmailRepository using GORM
type emailRepository struct {
	db *gorm.DB
}

// NewEmailRepository creates a new EmailRepository instance
func NewEmailRepository(db *gorm.DB) EmailRepository {
	return &emailRepository{db: db}
}

// Create creates a new email record
func (r *emailRepository) Create(ctx context.Context, record *models.EmailRecord) error {
	result := r.db.WithContext(ctx).Create(record)
	if result.Error != nil {
		return fmt.Errorf("failed to create email record: %w", result.Error)
	}
	return nil
}

// FindByFingerprint looks up an email record by its dedup hash. The hash
// lives inside the parsed_data JSON blob, so the match is on the serialized
// key/value pair; hashes are hex strings, so no escaping can break the match.
func (r *emailRepository) FindByFingerprint(ctx context.Context, userID, hash string) (*models.EmailRecord, error) {
	var record models.EmailRecord
	pattern := "%" + `"` + models.ParsedKeyEmailHash + `":"` + hash + `"` + "%"
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND parsed_data LIKE ?", userID, pattern).
		First(&record)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find email by fingerprint: %w", result.Error)
	}
	return &record, nil
}

// ListByApplication retrieves emails linked to an application, newest first
func (r *emailRepository) ListByApplication(ctx context.Context, userID, applicationID string) ([]models.EmailRecord, error) {
	var records []models.EmailRecord
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND application_id = ?", userID, applicationID).
		Order("received_at DESC").
		Find(&records)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list emails: %w", result.Error)
	}
	return records, nil
}

// UpdateParsedData replaces the parsed metadata blob on an email record
func (r *emailRepository) UpdateParsedData(ctx context.Context, id string, parsed models.JSONMap) error {
	result := r.db.WithContext(ctx).Model(&models.EmailRecord{}).
		Where("id = ?", id).
		Update("parsed_data", parsed)
	if result.Error != nil {
		return fmt.Errorf("failed to update parsed data: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// LinkToApplication attaches an unlinked email record to an application
func (r *emailRepository) LinkToApplication(ctx context.Context, id, applicationID string) error {
	result := r.db.WithContext(ctx).Model(&models.EmailRecord{}).
		Where("id = ?", id).
		Update("application_id", applicationID)
	if result.Error != nil {
		return fmt.Errorf("failed to link email to application: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
