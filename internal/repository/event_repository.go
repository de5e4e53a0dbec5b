package repository

import (
	"context"
	"fmt"

	"github.com/trackmail/trackmail-backend/internal/models"
	"gorm.io/gorm"
)

// EventRepository defines the interface for application event data access.
// Events are append-only; there is no update or single-row delete.
type EventRepository interface {
	Create(ctx context.Context, event *models.ApplicationEvent) error
	ListByApplication(ctx context.Context, applicationID string) ([]models.ApplicationEvent, error)
}

// eventRepository implements EventRepository using GORM
type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new EventRepository instance
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

// Create appends an event
func (r *eventRepository) Create(ctx context.Context, event *models.ApplicationEvent) error {
	result := r.db.WithContext(ctx).Create(event)
	if result.Error != nil {
		return fmt.Errorf("failed to create event: %w", result.Error)
	}
	return nil
}

// ListByApplication retrieves events for an application, newest first
func (r *eventRepository) ListByApplication(ctx context.Context, applicationID string) ([]models.ApplicationEvent, error) {
	var events []models.ApplicationEvent
	result := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("created_at DESC").
		Find(&events)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list events: %w", result.Error)
	}
	return events, nil
}
