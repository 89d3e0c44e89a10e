package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/venkytv/gcal-events/internal/models"
	"github.com/venkytv/gcal-events/pkg/calendar/ical"
)

type createOptions struct {
	calendarID  string
	summary     string
	description string
	location    string
	start       string
	end         string
	duration    time.Duration
	timeZone    string
	rrules      []string
	fromICS     string
	publish     bool
	dryRun      bool
}

func newCreateCmd(root *rootOptions) *cobra.Command {
	opts := &createOptions{}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an event",
		Long: `Create an event from flags, or one event per VEVENT in an iCalendar file.

Start and end are RFC 3339 timestamps. They are encoded for the event's
time zone designator, which defaults to the configured default time zone.`,
		Example: `  gcal-events create --summary "Standup" --start 2025-01-06T00:00:00Z --timezone Asia/Tokyo
  gcal-events create --summary "Sync" --start 2025-01-06T00:00:00Z --duration 30m --timezone GMT+09:00
  gcal-events create --from-ics meetings.ics --publish`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(cmd, root, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.calendarID, "calendar", "primary", "Calendar ID")
	flags.StringVar(&opts.summary, "summary", "", "Event title")
	flags.StringVar(&opts.description, "description", "", "Event description")
	flags.StringVar(&opts.location, "location", "", "Event location")
	flags.StringVar(&opts.start, "start", "", "Start time (RFC 3339)")
	flags.StringVar(&opts.end, "end", "", "End time (RFC 3339), overrides --duration")
	flags.DurationVar(&opts.duration, "duration", time.Hour, "Event duration when --end is not given")
	flags.StringVar(&opts.timeZone, "timezone", "", "Time zone designator (UTC, Region/City or GMT+HH:MM)")
	flags.StringArrayVar(&opts.rrules, "rrule", nil, "Recurrence rule, for example FREQ=WEEKLY;COUNT=4 (repeatable)")
	flags.StringVar(&opts.fromICS, "from-ics", "", "Create the events found in an iCalendar file or http(s) URL")
	flags.BoolVar(&opts.publish, "publish", false, "Announce created events on NATS")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "Log event notices instead of publishing them")

	cmd.MarkFlagsMutuallyExclusive("from-ics", "summary")
	cmd.MarkFlagsMutuallyExclusive("from-ics", "start")

	return cmd
}

func runCreate(cmd *cobra.Command, root *rootOptions, opts *createOptions) error {
	app, err := NewApp(root, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer app.Close()

	if opts.publish || opts.dryRun {
		if err := app.EnablePublishing(opts.dryRun); err != nil {
			return err
		}
	}

	var inputs []models.EventInput
	if opts.fromICS != "" {
		inputs, err = inputsFromICS(cmd, opts.fromICS, app)
	} else {
		var input models.EventInput
		input, err = inputFromFlags(opts)
		inputs = []models.EventInput{input}
	}
	if err != nil {
		return err
	}

	// Times read with a TZID are wall clocks in that zone and keep it.
	tzOverride := cmd.Flags().Changed("timezone")
	for i := range inputs {
		ownZone := opts.fromICS != "" && inputs[i].TimeZone != models.DefaultTimeZone
		if (tzOverride && !ownZone) || inputs[i].TimeZone == "" {
			inputs[i].TimeZone = opts.timeZone
		}
		if inputs[i].TimeZone == "" {
			inputs[i].TimeZone = app.config.Timezone.Default
		}
	}

	ctx := cmd.Context()
	for _, input := range inputs {
		event, err := models.NewEvent(app.codec, input)
		if err != nil {
			return fmt.Errorf("failed to build event %q: %w", input.Summary, err)
		}

		created, err := app.client.CreateEvent(ctx, opts.calendarID, event)
		if err != nil {
			return err
		}

		if err := writeJSON(cmd.OutOrStdout(), created); err != nil {
			return err
		}

		if app.publisher != nil {
			if err := app.publisher.PublishEventCreated(ctx, opts.calendarID, created); err != nil {
				return fmt.Errorf("failed to publish event %s: %w", created.ID, err)
			}
		}
	}

	return nil
}

func inputFromFlags(opts *createOptions) (models.EventInput, error) {
	if opts.start == "" {
		return models.EventInput{}, fmt.Errorf("--start is required")
	}
	start, err := time.Parse(time.RFC3339, opts.start)
	if err != nil {
		return models.EventInput{}, fmt.Errorf("invalid --start: %w", err)
	}

	end := start.Add(opts.duration)
	if opts.end != "" {
		end, err = time.Parse(time.RFC3339, opts.end)
		if err != nil {
			return models.EventInput{}, fmt.Errorf("invalid --end: %w", err)
		}
	}

	var recurrence []string
	for _, rule := range opts.rrules {
		if !strings.Contains(rule, ":") {
			rule = "RRULE:" + rule
		}
		recurrence = append(recurrence, rule)
	}

	return models.EventInput{
		Summary:     opts.summary,
		Description: opts.description,
		Location:    opts.location,
		Start:       start,
		End:         end,
		TimeZone:    opts.timeZone,
		Recurrence:  recurrence,
	}, nil
}

func inputsFromICS(cmd *cobra.Command, location string, app *App) ([]models.EventInput, error) {
	inputs, err := ical.NewSource(nil, app.logger).Load(cmd.Context(), location)
	if err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no events found in %s", location)
	}

	app.logger.Info("Loaded events from iCal source", "location", location, "count", len(inputs))
	return inputs, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
