package ical

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/venkytv/gcal-events/internal/models"
)

const (
	productID = "-//venkytv//gcal-events//EN"

	localLayout = "2006-01-02T15:04:05"
	dateLayout  = "2006-01-02"

	icalLocalLayout = "20060102T150405"
	icalDateLayout  = "20060102"
)

// Export renders events as an iCalendar document. Events without an ID get
// a random UID.
func Export(events []*models.Event, now time.Time) (string, error) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)

	for _, event := range events {
		if event == nil {
			continue
		}
		if err := addEvent(cal, event, now); err != nil {
			return "", err
		}
	}

	return cal.Serialize(), nil
}

func addEvent(cal *ics.Calendar, event *models.Event, now time.Time) error {
	uid := event.ID
	if uid == "" {
		uid = uuid.NewString()
	}

	vevent := cal.AddEvent(uid)
	vevent.SetDtStampTime(now)
	vevent.SetSummary(event.Summary)
	if event.Description != "" {
		vevent.SetDescription(event.Description)
	}
	if event.Location != "" {
		vevent.SetLocation(event.Location)
	}

	if err := setTime(vevent, ics.ComponentPropertyDtStart, event.Start); err != nil {
		return fmt.Errorf("event %s: failed to export start: %w", uid, err)
	}
	if err := setTime(vevent, ics.ComponentPropertyDtEnd, event.End); err != nil {
		return fmt.Errorf("event %s: failed to export end: %w", uid, err)
	}

	for _, line := range event.Recurrence {
		name, value, found := strings.Cut(line, ":")
		if !found {
			return fmt.Errorf("event %s: malformed recurrence line %q", uid, line)
		}
		property, params, _ := strings.Cut(name, ";")
		vevent.AddProperty(ics.ComponentProperty(strings.ToUpper(property)), value, parameters(params)...)
	}

	return nil
}

// setTime writes a DTSTART or DTEND property. Values with an offset are
// written in UTC, local values carry a TZID and dates are written as DATE.
func setTime(vevent *ics.VEvent, property ics.ComponentProperty, dt *models.EventDateTime) error {
	if dt == nil {
		return nil
	}

	if dt.DateTime == "" {
		if dt.Date == "" {
			return nil
		}
		d, err := time.Parse(dateLayout, dt.Date)
		if err != nil {
			return err
		}
		vevent.SetProperty(property, d.Format(icalDateLayout),
			&ics.KeyValues{Key: string(ics.ParameterValue), Value: []string{"DATE"}})
		return nil
	}

	if t, err := time.Parse(time.RFC3339, dt.DateTime); err == nil {
		vevent.SetProperty(property, t.UTC().Format(icalLocalLayout)+"Z")
		return nil
	}

	t, err := time.Parse(localLayout, dt.DateTime)
	if err != nil {
		return err
	}
	if dt.TimeZone == "" || dt.TimeZone == models.DefaultTimeZone {
		vevent.SetProperty(property, t.Format(icalLocalLayout)+"Z")
		return nil
	}
	vevent.SetProperty(property, t.Format(icalLocalLayout),
		&ics.KeyValues{Key: string(ics.ParameterTzid), Value: []string{dt.TimeZone}})
	return nil
}

// parameters converts "TZID=Asia/Tokyo;VALUE=DATE" into property parameters
func parameters(s string) []ics.PropertyParameter {
	if s == "" {
		return nil
	}
	var params []ics.PropertyParameter
	for _, part := range strings.Split(s, ";") {
		key, value, found := strings.Cut(part, "=")
		if !found {
			continue
		}
		params = append(params, &ics.KeyValues{Key: strings.ToUpper(key), Value: strings.Split(value, ",")})
	}
	return params
}
