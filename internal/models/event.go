package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// DefaultTimeZone is used when an event is created without a time zone
const DefaultTimeZone = "UTC"

// ErrValidation matches any *ValidationError
var ErrValidation = errors.New("validation failed")

// ValidationError reports an event that breaks a business rule
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Is reports whether target is ErrValidation
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// EventDateTime is one endpoint of an event as sent on the wire
type EventDateTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`

	// Date is set instead of DateTime for all-day events read from the server
	Date string `json:"date,omitempty"`
}

// Event represents a calendar event as exchanged with the calendar API
type Event struct {
	ID          string         `json:"id,omitempty"`
	Status      string         `json:"status,omitempty"`
	Summary     string         `json:"summary"`
	Description string         `json:"description,omitempty"`
	Location    string         `json:"location,omitempty"`
	Start       *EventDateTime `json:"start,omitempty"`
	End         *EventDateTime `json:"end,omitempty"`
	Recurrence  []string       `json:"recurrence,omitempty"`
	HTMLLink    string         `json:"htmlLink,omitempty"`
	Created     time.Time      `json:"created,omitzero"`
	Updated     time.Time      `json:"updated,omitzero"`
}

// Encoder turns an instant into the dateTime string for a time zone designator
type Encoder interface {
	Encode(t time.Time, designator string) (string, error)
}

// EventInput holds the parameters used to build a new event
type EventInput struct {
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	TimeZone    string // empty means UTC
	Recurrence  []string
}

// NewEvent builds an event whose start and end are encoded for the input's
// time zone
func NewEvent(enc Encoder, input EventInput) (*Event, error) {
	tz := input.TimeZone
	if tz == "" {
		tz = DefaultTimeZone
	}

	if input.End.Before(input.Start) {
		return nil, &ValidationError{Field: "end", Message: "end time must not be before start time"}
	}

	start, err := enc.Encode(input.Start, tz)
	if err != nil {
		return nil, fmt.Errorf("failed to encode start time: %w", err)
	}
	end, err := enc.Encode(input.End, tz)
	if err != nil {
		return nil, fmt.Errorf("failed to encode end time: %w", err)
	}

	return &Event{
		Summary:     input.Summary,
		Description: input.Description,
		Location:    input.Location,
		Start:       &EventDateTime{DateTime: start, TimeZone: tz},
		End:         &EventDateTime{DateTime: end, TimeZone: tz},
		Recurrence:  input.Recurrence,
	}, nil
}

// Validate checks the event before it is sent to the server
func (e *Event) Validate() error {
	if strings.TrimSpace(e.Summary) == "" {
		return &ValidationError{Field: "summary", Message: "event title is required"}
	}

	for i, line := range e.Recurrence {
		if err := validateRecurrence(line); err != nil {
			return &ValidationError{
				Field:   fmt.Sprintf("recurrence[%d]", i),
				Message: err.Error(),
			}
		}
	}

	return nil
}

// validateRecurrence checks a single RFC 5545 recurrence line
func validateRecurrence(line string) error {
	name, value, found := strings.Cut(line, ":")
	if !found || value == "" {
		return fmt.Errorf("malformed recurrence line %q", line)
	}

	// Properties may carry parameters, e.g. EXDATE;TZID=Asia/Tokyo
	property, _, _ := strings.Cut(strings.ToUpper(name), ";")

	switch property {
	case "RRULE", "EXRULE":
		if _, err := rrule.StrToRRule(value); err != nil {
			return fmt.Errorf("invalid rule %q: %v", value, err)
		}
	case "RDATE", "EXDATE":
		// dates are interpreted by the server
	default:
		return fmt.Errorf("unsupported recurrence property %q", name)
	}
	return nil
}

// IsRecurring returns true if the event carries recurrence rules
func (e *Event) IsRecurring() bool {
	return len(e.Recurrence) > 0
}

// EventCreated is the message announced after an event has been created
type EventCreated struct {
	ID         string    `json:"id"`
	CalendarID string    `json:"calendar_id"`
	Summary    string    `json:"summary"`
	Start      string    `json:"start,omitempty"`
	End        string    `json:"end,omitempty"`
	TimeZone   string    `json:"time_zone,omitempty"`
	HTMLLink   string    `json:"html_link,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewEventCreated creates an EventCreated notice for a stored event
func NewEventCreated(calendarID string, event *Event, now time.Time) *EventCreated {
	notice := &EventCreated{
		ID:         event.ID,
		CalendarID: calendarID,
		Summary:    event.Summary,
		HTMLLink:   event.HTMLLink,
		CreatedAt:  event.Created,
	}
	if notice.CreatedAt.IsZero() {
		notice.CreatedAt = now
	}
	if event.Start != nil {
		notice.Start = event.Start.DateTime
		notice.TimeZone = event.Start.TimeZone
	}
	if event.End != nil {
		notice.End = event.End.DateTime
	}
	return notice
}
