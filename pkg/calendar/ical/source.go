package ical

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/venkytv/gcal-events/internal/models"
	calendarPkg "github.com/venkytv/gcal-events/pkg/calendar"
)

// Source loads iCalendar data from a local file or an http(s) URL
type Source struct {
	client *http.Client
	logger *slog.Logger
}

// NewSource creates a Source. A nil client gets a 30 second timeout.
func NewSource(client *http.Client, logger *slog.Logger) *Source {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{client: client, logger: logger}
}

// Load reads location, which is a file path or an http(s) URL, and parses
// the events it contains
func (s *Source) Load(ctx context.Context, location string) ([]models.EventInput, error) {
	if location == "" {
		return nil, fmt.Errorf("iCal location is required")
	}

	var data []byte
	var err error
	if isURL(location) {
		data, err = s.fetch(ctx, location)
	} else {
		data, err = os.ReadFile(location)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read iCal data from %s: %w", location, err)
	}

	return ParseEvents(bytes.NewReader(data), s.logger)
}

func (s *Source) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "text/calendar,application/calendar")
	req.Header.Set("User-Agent", "gcal-events/1.0")

	s.logger.Debug("Fetching iCal data", "url", url)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("HTTP error when fetching iCal data",
			"url", url,
			"status_code", resp.StatusCode,
			"status", resp.Status)
		return nil, calendarPkg.NewAPIError(resp.StatusCode, resp.Status, url, string(body))
	}

	s.logger.Debug("Successfully fetched iCal data",
		"url", url,
		"content_length", len(body))

	return body, nil
}

func isURL(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}
