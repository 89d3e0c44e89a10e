package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

// stubEncoder formats UTC for any designator except "bad"
type stubEncoder struct {
	calls []string
}

func (s *stubEncoder) Encode(t time.Time, designator string) (string, error) {
	s.calls = append(s.calls, designator)
	if designator == "bad" {
		return "", fmt.Errorf("invalid timezone designator: %q", designator)
	}
	return t.UTC().Format("2006-01-02T15:04:05Z"), nil
}

func TestNewEvent_DefaultsToUTC(t *testing.T) {
	enc := &stubEncoder{}
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	event, err := NewEvent(enc, EventInput{
		Summary: "Planning",
		Start:   start,
		End:     start.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("NewEvent() error = %v", err)
	}

	if event.Start.TimeZone != DefaultTimeZone || event.End.TimeZone != DefaultTimeZone {
		t.Errorf("Expected default time zone %q, got %q/%q", DefaultTimeZone, event.Start.TimeZone, event.End.TimeZone)
	}
	if event.Start.DateTime != "2024-01-01T10:00:00Z" {
		t.Errorf("Unexpected start dateTime %q", event.Start.DateTime)
	}
	if event.End.DateTime != "2024-01-01T11:00:00Z" {
		t.Errorf("Unexpected end dateTime %q", event.End.DateTime)
	}
	if len(enc.calls) != 2 {
		t.Errorf("Expected both endpoints to be encoded, got %d calls", len(enc.calls))
	}
}

func TestNewEvent_KeepsFields(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	event, err := NewEvent(&stubEncoder{}, EventInput{
		Summary:     "Standup",
		Description: "Daily sync",
		Location:    "Tokyo",
		Start:       start,
		End:         start.Add(15 * time.Minute),
		TimeZone:    "Asia/Tokyo",
		Recurrence:  []string{"RRULE:FREQ=DAILY;COUNT=5"},
	})
	if err != nil {
		t.Fatalf("NewEvent() error = %v", err)
	}

	if event.Summary != "Standup" || event.Description != "Daily sync" || event.Location != "Tokyo" {
		t.Errorf("Unexpected event fields: %+v", event)
	}
	if event.Start.TimeZone != "Asia/Tokyo" {
		t.Errorf("Expected Asia/Tokyo, got %q", event.Start.TimeZone)
	}
	if !event.IsRecurring() {
		t.Error("Expected event to be recurring")
	}
}

func TestNewEvent_EncoderError(t *testing.T) {
	start := time.Now()
	_, err := NewEvent(&stubEncoder{}, EventInput{
		Summary:  "x",
		Start:    start,
		End:      start,
		TimeZone: "bad",
	})
	if err == nil {
		t.Fatal("Expected error for invalid time zone")
	}
	if !strings.Contains(err.Error(), "failed to encode start time") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestNewEvent_EndBeforeStart(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	_, err := NewEvent(&stubEncoder{}, EventInput{
		Summary: "Backwards",
		Start:   start,
		End:     start.Add(-time.Minute),
	})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("Expected *ValidationError, got %v", err)
	}
	if vErr.Field != "end" {
		t.Errorf("Expected field 'end', got %q", vErr.Field)
	}
}

func TestEvent_Validate(t *testing.T) {
	tests := []struct {
		name      string
		event     Event
		wantErr   bool
		wantField string
	}{
		{
			name:  "valid",
			event: Event{Summary: "Meeting", Status: "confirmed"},
		},
		{
			name:      "missing summary",
			event:     Event{},
			wantErr:   true,
			wantField: "summary",
		},
		{
			name:      "blank summary",
			event:     Event{Summary: "   "},
			wantErr:   true,
			wantField: "summary",
		},
		{
			name: "valid recurrence",
			event: Event{
				Summary: "Weekly",
				Recurrence: []string{
					"RRULE:FREQ=WEEKLY;BYDAY=MO,WE",
					"EXDATE;TZID=Asia/Tokyo:20240108T100000",
					"RDATE:20240120T100000Z",
				},
			},
		},
		{
			name:      "bad rule",
			event:     Event{Summary: "Weekly", Recurrence: []string{"RRULE:FREQ=SOMETIMES"}},
			wantErr:   true,
			wantField: "recurrence[0]",
		},
		{
			name:      "unknown property",
			event:     Event{Summary: "Weekly", Recurrence: []string{"RRULE:FREQ=DAILY", "VALARM:PT5M"}},
			wantErr:   true,
			wantField: "recurrence[1]",
		},
		{
			name:      "missing value",
			event:     Event{Summary: "Weekly", Recurrence: []string{"RRULE"}},
			wantErr:   true,
			wantField: "recurrence[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if !tt.wantErr {
				if err != nil {
					t.Errorf("Expected no error, got: %v", err)
				}
				return
			}

			if !errors.Is(err, ErrValidation) {
				t.Fatalf("Expected ErrValidation, got: %v", err)
			}
			var vErr *ValidationError
			if errors.As(err, &vErr) && vErr.Field != tt.wantField {
				t.Errorf("Expected field %q, got %q", tt.wantField, vErr.Field)
			}
		})
	}
}

func TestEvent_JSONFieldNames(t *testing.T) {
	event := &Event{
		Summary: "Meeting",
		Start:   &EventDateTime{DateTime: "2024-01-01T00:00:00", TimeZone: "Asia/Tokyo"},
	}

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("Failed to marshal event: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Failed to unmarshal event: %v", err)
	}

	start, ok := raw["start"].(map[string]any)
	if !ok {
		t.Fatalf("Expected start object, got %v", raw["start"])
	}
	if start["dateTime"] != "2024-01-01T00:00:00" || start["timeZone"] != "Asia/Tokyo" {
		t.Errorf("Unexpected start payload: %v", start)
	}
	if _, exists := raw["id"]; exists {
		t.Error("Expected empty id to be omitted")
	}
}

func TestNewEventCreated(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	event := &Event{
		ID:       "evt-1",
		Summary:  "Launch",
		Start:    &EventDateTime{DateTime: "2025-01-02T09:00:00+09:00", TimeZone: "GMT+09:00"},
		End:      &EventDateTime{DateTime: "2025-01-02T10:00:00+09:00", TimeZone: "GMT+09:00"},
		HTMLLink: "https://calendar.google.com/event?eid=abc",
	}

	notice := NewEventCreated("team@group.calendar.google.com", event, now)

	if notice.ID != "evt-1" || notice.Summary != "Launch" {
		t.Errorf("Unexpected notice: %+v", notice)
	}
	if notice.CalendarID != "team@group.calendar.google.com" {
		t.Errorf("Unexpected calendar ID %q", notice.CalendarID)
	}
	if notice.Start != event.Start.DateTime || notice.End != event.End.DateTime {
		t.Errorf("Expected start/end to be copied, got %q/%q", notice.Start, notice.End)
	}
	if notice.TimeZone != "GMT+09:00" {
		t.Errorf("Expected time zone GMT+09:00, got %q", notice.TimeZone)
	}
	if !notice.CreatedAt.Equal(now) {
		t.Errorf("Expected CreatedAt to fall back to now, got %v", notice.CreatedAt)
	}

	event.Created = now.Add(-time.Minute)
	notice = NewEventCreated("primary", event, now)
	if !notice.CreatedAt.Equal(event.Created) {
		t.Errorf("Expected server creation time, got %v", notice.CreatedAt)
	}
}

func TestNewEventCreated_NoTimes(t *testing.T) {
	notice := NewEventCreated("primary", &Event{ID: "x", Summary: "All day"}, time.Now())
	if notice.Start != "" || notice.End != "" || notice.TimeZone != "" {
		t.Errorf("Expected empty times, got %+v", notice)
	}
}
