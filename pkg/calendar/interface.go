package calendar

import (
	"context"

	"github.com/venkytv/gcal-events/internal/models"
)

// EventService defines the event operations a calendar backend must satisfy
type EventService interface {
	// CreateEvent validates event and creates it in the given calendar,
	// returning the event as stored by the server
	CreateEvent(ctx context.Context, calendarID string, event *models.Event) (*models.Event, error)

	// GetEvent retrieves a single event by ID
	GetEvent(ctx context.Context, calendarID, eventID string) (*models.Event, error)
}
