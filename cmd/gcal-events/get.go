package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/venkytv/gcal-events/internal/models"
	"github.com/venkytv/gcal-events/pkg/calendar/ical"
)

func newGetCmd(root *rootOptions) *cobra.Command {
	var (
		calendarID string
		format     string
	)

	cmd := &cobra.Command{
		Use:   "get EVENT_ID",
		Short: "Fetch an event by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "ics" {
				return fmt.Errorf("unsupported format %q (use json or ics)", format)
			}

			app, err := NewApp(root, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer app.Close()

			event, err := app.client.GetEvent(cmd.Context(), calendarID, args[0])
			if err != nil {
				return err
			}

			return writeEvent(cmd.OutOrStdout(), event, format)
		},
	}

	cmd.Flags().StringVar(&calendarID, "calendar", "primary", "Calendar ID")
	cmd.Flags().StringVar(&format, "format", "json", "Output format: json or ics")

	return cmd
}

func writeEvent(w io.Writer, event *models.Event, format string) error {
	if format == "ics" {
		out, err := ical.Export([]*models.Event{event}, time.Now())
		if err != nil {
			return fmt.Errorf("failed to export event: %w", err)
		}
		_, err = io.WriteString(w, out)
		return err
	}
	return writeJSON(w, event)
}
