package google

import (
	"fmt"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/venkytv/gcal-events/internal/models"
)

// toAPIEvent converts our internal Event model to the Google Calendar payload
func toAPIEvent(event *models.Event) *calendar.Event {
	item := &calendar.Event{
		Id:          event.ID,
		Status:      event.Status,
		Summary:     event.Summary,
		Description: event.Description,
		Location:    event.Location,
		Start:       toAPIDateTime(event.Start),
		End:         toAPIDateTime(event.End),
		Recurrence:  event.Recurrence,
	}
	return item
}

func toAPIDateTime(dt *models.EventDateTime) *calendar.EventDateTime {
	if dt == nil {
		return nil
	}
	return &calendar.EventDateTime{
		DateTime: dt.DateTime,
		TimeZone: dt.TimeZone,
		Date:     dt.Date,
	}
}

// convertEvent converts a Google Calendar event to our internal Event model
func (c *Client) convertEvent(item *calendar.Event) (*models.Event, error) {
	if item == nil {
		return nil, fmt.Errorf("event is nil")
	}

	event := &models.Event{
		ID:          item.Id,
		Status:      item.Status,
		Summary:     item.Summary,
		Description: item.Description,
		Location:    item.Location,
		Start:       fromAPIDateTime(item.Start),
		End:         fromAPIDateTime(item.End),
		Recurrence:  item.Recurrence,
		HTMLLink:    item.HtmlLink,
	}

	// Parse created time
	if item.Created != "" {
		createdAt, err := time.Parse(time.RFC3339, item.Created)
		if err != nil {
			c.logger.Warn("failed to parse created time, using zero value",
				"event_id", item.Id,
				"error", err)
		} else {
			event.Created = createdAt
		}
	}

	// Parse updated time
	if item.Updated != "" {
		updatedAt, err := time.Parse(time.RFC3339, item.Updated)
		if err != nil {
			c.logger.Warn("failed to parse updated time, using zero value",
				"event_id", item.Id,
				"error", err)
		} else {
			event.Updated = updatedAt
		}
	}

	return event, nil
}

func fromAPIDateTime(dt *calendar.EventDateTime) *models.EventDateTime {
	if dt == nil {
		return nil
	}
	return &models.EventDateTime{
		DateTime: dt.DateTime,
		TimeZone: dt.TimeZone,
		Date:     dt.Date,
	}
}
