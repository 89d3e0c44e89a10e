package ical

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/venkytv/gcal-events/internal/models"
	"github.com/venkytv/gcal-events/pkg/timezone"
)

const (
	utcTimeLayout       = "20060102T150405Z"
	localTimeLayout     = "20060102T150405"
	icalDateValueLayout = "20060102"
)

// defaultDuration is applied to events that carry neither DTEND nor DURATION
const defaultDuration = time.Hour

// recurrenceProperties are the VEVENT properties copied into Event.Recurrence
var recurrenceProperties = map[string]bool{
	"RRULE":  true,
	"EXRULE": true,
	"RDATE":  true,
	"EXDATE": true,
}

// ParseEvents reads an iCalendar stream and returns one EventInput per VEVENT.
// Events that cannot be converted are logged and skipped.
func ParseEvents(r io.Reader, logger *slog.Logger) ([]models.EventInput, error) {
	if logger == nil {
		logger = slog.Default()
	}

	calendar, err := ics.ParseCalendar(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse iCal data: %w", err)
	}

	var inputs []models.EventInput
	for _, event := range calendar.Events() {
		input, err := ConvertVEvent(event)
		if err != nil {
			logger.Warn("Failed to convert iCal event", "error", err, "uid", event.Id())
			continue
		}
		inputs = append(inputs, *input)
	}

	logger.Debug("Parsed iCal data", "events", len(inputs))
	return inputs, nil
}

// ConvertVEvent converts a single VEVENT into an EventInput
func ConvertVEvent(event *ics.VEvent) (*models.EventInput, error) {
	input := &models.EventInput{}

	if summary := event.GetProperty(ics.ComponentPropertySummary); summary != nil {
		input.Summary = summary.Value
	}
	if description := event.GetProperty(ics.ComponentPropertyDescription); description != nil {
		input.Description = description.Value
	}
	if location := event.GetProperty(ics.ComponentPropertyLocation); location != nil {
		input.Location = location.Value
	}

	dtStart := event.GetProperty(ics.ComponentPropertyDtStart)
	if dtStart == nil {
		return nil, fmt.Errorf("failed to parse start time: property DTSTART not found")
	}
	start, err := eventTime(dtStart)
	if err != nil {
		return nil, fmt.Errorf("failed to parse start time: %w", err)
	}
	input.Start = start
	input.TimeZone = timeZoneOf(dtStart)

	dtEnd := event.GetProperty(ics.ComponentPropertyDtEnd)
	duration := event.GetProperty(ics.ComponentPropertyDuration)
	switch {
	case dtEnd != nil:
		end, err := eventTime(dtEnd)
		if err != nil {
			return nil, fmt.Errorf("failed to parse end time: %w", err)
		}
		input.End = end
	case duration != nil:
		d, err := parseICalDuration(duration.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to parse duration: %w", err)
		}
		input.End = start.Add(d)
	default:
		input.End = start.Add(defaultDuration)
	}

	input.Recurrence = recurrenceLines(event)

	return input, nil
}

// timeZoneOf returns the designator for a DTSTART property. Floating and
// UTC times both map to UTC.
func timeZoneOf(prop *ics.IANAProperty) string {
	if prop == nil {
		return models.DefaultTimeZone
	}
	if tzid := prop.ICalParameters[string(ics.ParameterTzid)]; len(tzid) > 0 && tzid[0] != "" {
		return tzid[0]
	}
	return models.DefaultTimeZone
}

// eventTime parses a DTSTART or DTEND value. UTC values keep their instant.
// Floating values and values with a region TZID keep their wall clock,
// stored in UTC, because region and UTC designators encode the UTC fields.
// A GMT offset TZID yields the instant in that fixed zone.
func eventTime(prop *ics.IANAProperty) (time.Time, error) {
	value := strings.TrimSpace(prop.Value)
	if strings.HasSuffix(value, "Z") {
		return time.Parse(utcTimeLayout, value)
	}

	layout := localTimeLayout
	if len(value) == len(icalDateValueLayout) {
		layout = icalDateValueLayout
	}
	wall, err := time.ParseInLocation(layout, value, time.UTC)
	if err != nil {
		return time.Time{}, err
	}

	tzid := timeZoneOf(prop)
	if d, err := timezone.Parse(tzid); err == nil && d.Kind == timezone.KindOffset {
		zone := time.FixedZone(d.Raw, d.OffsetSeconds())
		return time.Date(wall.Year(), wall.Month(), wall.Day(),
			wall.Hour(), wall.Minute(), wall.Second(), 0, zone), nil
	}
	return wall, nil
}

// recurrenceLines rebuilds RRULE, EXRULE, RDATE and EXDATE lines in the
// "NAME;PARAM=VALUE:value" form used by the calendar API
func recurrenceLines(event *ics.VEvent) []string {
	var lines []string
	for _, prop := range event.Properties {
		name := strings.ToUpper(prop.IANAToken)
		if !recurrenceProperties[name] {
			continue
		}

		var b strings.Builder
		b.WriteString(name)

		keys := make([]string, 0, len(prop.ICalParameters))
		for k := range prop.ICalParameters {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString(";")
			b.WriteString(k)
			b.WriteString("=")
			b.WriteString(strings.Join(prop.ICalParameters[k], ","))
		}

		b.WriteString(":")
		b.WriteString(prop.Value)
		lines = append(lines, b.String())
	}
	return lines
}

// parseICalDuration parses an RFC 5545 duration such as "PT1H30M", "P1D"
// or "-P1W"
func parseICalDuration(duration string) (time.Duration, error) {
	s := duration
	negative := false
	switch {
	case strings.HasPrefix(s, "-"):
		negative = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	if !strings.HasPrefix(s, "P") || len(s) < 3 {
		return 0, fmt.Errorf("unsupported duration format: %q", duration)
	}
	s = s[1:]

	var result time.Duration
	inTime := false
	number := ""
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			number += string(r)
			continue
		case r == 'T':
			if inTime || number != "" {
				return 0, fmt.Errorf("unsupported duration format: %q", duration)
			}
			inTime = true
			continue
		}

		n, err := strconv.Atoi(number)
		if err != nil {
			return 0, fmt.Errorf("unsupported duration format: %q", duration)
		}
		number = ""

		switch {
		case r == 'W' && !inTime:
			result += time.Duration(n) * 7 * 24 * time.Hour
		case r == 'D' && !inTime:
			result += time.Duration(n) * 24 * time.Hour
		case r == 'H' && inTime:
			result += time.Duration(n) * time.Hour
		case r == 'M' && inTime:
			result += time.Duration(n) * time.Minute
		case r == 'S' && inTime:
			result += time.Duration(n) * time.Second
		default:
			return 0, fmt.Errorf("unsupported duration format: %q", duration)
		}
	}
	if number != "" {
		return 0, fmt.Errorf("unsupported duration format: %q", duration)
	}

	if negative {
		result = -result
	}
	return result, nil
}
