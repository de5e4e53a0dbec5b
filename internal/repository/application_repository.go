package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/trackmail/trackmail-backend/internal/models"
	"gorm.io/gorm"
)

// DefaultListLimit is the page size used when a filter carries no limit.
const DefaultListLimit = 20

// ApplicationFilter narrows List results. Zero values mean "no filter".
type ApplicationFilter struct {
	Status  string
	Company string
	Search  string // matches company or position, case-insensitive substring
	Limit   int
	Offset  int
}

// ApplicationRepository defines the interface for application data access.
// Every operation is scoped by the owning user ID.
type ApplicationRepository interface {
	Create(ctx context.Context, app *models.Application) error
	GetByID(ctx context.Context, userID, id string) (*models.Application, error)
	FindByCompanyPosition(ctx context.Context, userID, company, position string) (*models.Application, error)
	List(ctx context.Context, userID string, filter ApplicationFilter) ([]models.Application, int64, error)
	ListAll(ctx context.Context, userID string) ([]models.Application, error)
	Update(ctx context.Context, userID, id string, updates map[string]any) (*models.Application, error)
	Delete(ctx context.Context, userID, id string) error
	CountByStatus(ctx context.Context, userID string) (map[string]int64, error)
}

// applicationRepository implements ApplicationRepository using GORM
type applicationRepository struct {
	db *gorm.DB
}

// NewApplicationRepository creates a new ApplicationRepository instance
func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

// Create creates a new application. A violation of the
// (user_id, company, position) unique index is returned as ErrDuplicateEntry
// so callers can treat the conflict as the duplicate signal.
func (r *applicationRepository) Create(ctx context.Context, app *models.Application) error {
	result := r.db.WithContext(ctx).Create(app)
	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			return ErrDuplicateEntry
		}
		return fmt.Errorf("failed to create application: %w", result.Error)
	}
	return nil
}

// GetByID retrieves an application owned by userID
func (r *applicationRepository) GetByID(ctx context.Context, userID, id string) (*models.Application, error) {
	var app models.Application
	result := r.db.WithContext(ctx).First(&app, "id = ? AND user_id = ?", id, userID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get application: %w", result.Error)
	}
	return &app, nil
}

// FindByCompanyPosition looks up the application matching the natural
// duplicate key, case-insensitively.
func (r *applicationRepository) FindByCompanyPosition(ctx context.Context, userID, company, position string) (*models.Application, error) {
	var app models.Application
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND LOWER(company) = ? AND LOWER(position) = ?",
			userID, strings.ToLower(company), strings.ToLower(position)).
		First(&app)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find application: %w", result.Error)
	}
	return &app, nil
}

// List retrieves applications with pagination, newest first
func (r *applicationRepository) List(ctx context.Context, userID string, filter ApplicationFilter) ([]models.Application, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Application{}).Where("user_id = ?", userID)

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Company != "" {
		query = query.Where("LOWER(company) = ?", strings.ToLower(filter.Company))
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(company) LIKE ? OR LOWER(position) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count applications: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	var apps []models.Application
	if err := query.Order("created_at DESC").Limit(limit).Offset(filter.Offset).Find(&apps).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list applications: %w", err)
	}
	return apps, total, nil
}

// ListAll retrieves every application for a user, newest first (CSV export)
func (r *applicationRepository) ListAll(ctx context.Context, userID string) ([]models.Application, error) {
	var apps []models.Application
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&apps)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list applications: %w", result.Error)
	}
	return apps, nil
}

// Update applies a partial update and returns the refreshed application
func (r *applicationRepository) Update(ctx context.Context, userID, id string, updates map[string]any) (*models.Application, error) {
	result := r.db.WithContext(ctx).Model(&models.Application{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(updates)
	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			return nil, ErrDuplicateEntry
		}
		return nil, fmt.Errorf("failed to update application: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, userID, id)
}

// Delete deletes an application (cascade deletes events and email links)
func (r *applicationRepository) Delete(ctx context.Context, userID, id string) error {
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Application{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete application: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByStatus returns application counts grouped by status
func (r *applicationRepository) CountByStatus(ctx context.Context, userID string) (map[string]int64, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&models.Application{}).
		Select("status, COUNT(*) as count").
		Where("user_id = ?", userID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count applications by status: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}
