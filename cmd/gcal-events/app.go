package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/venkytv/gcal-events/internal/models"
	"github.com/venkytv/gcal-events/pkg/calendar"
	"github.com/venkytv/gcal-events/pkg/calendar/google"
	"github.com/venkytv/gcal-events/pkg/config"
	"github.com/venkytv/gcal-events/pkg/nats"
	"github.com/venkytv/gcal-events/pkg/timezone"
)

// EventPublisher announces events after they have been created
type EventPublisher interface {
	PublishEventCreated(ctx context.Context, calendarID string, event *models.Event) error
	Close() error
}

var (
	_ EventPublisher = (*nats.Publisher)(nil)
	_ EventPublisher = (*DryRunPublisher)(nil)
)

// App holds the components a command works with
type App struct {
	config    *config.Config
	logger    *slog.Logger
	codec     *timezone.Codec
	client    calendar.EventService
	publisher EventPublisher
}

// NewApp loads configuration and credentials and builds the calendar client
func NewApp(opts *rootOptions, logOutput io.Writer) (*App, error) {
	cfg, logger, err := loadConfig(opts, logOutput)
	if err != nil {
		return nil, err
	}

	creds, err := loadCredentials(cfg.Credentials, logger)
	if err != nil {
		return nil, err
	}

	client, err := google.NewClient(google.ClientConfig{
		BaseURL:     cfg.API.BaseURL,
		TokenURL:    cfg.API.TokenURL,
		Transport:   google.NewHTTPTransport(cfg.API.Timeout, logger),
		Credentials: creds,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar client: %w", err)
	}

	logger.Debug("Calendar client configured",
		"version", Version,
		"base_url", client.BaseURL(),
		"authorized", client.Authorized(),
		"any_region", cfg.Codec().AllowsAnyRegion())

	return &App{
		config: cfg,
		logger: logger,
		codec:  cfg.Codec(),
		client: client,
	}, nil
}

// EnablePublishing sets up the event-created publisher. In dry-run mode
// notices are logged instead of sent.
func (a *App) EnablePublishing(dryRun bool) error {
	if dryRun {
		a.publisher = &DryRunPublisher{logger: a.logger}
		a.logger.Info("Running in dry-run mode - event notices will not be published")
		return nil
	}

	if a.config.NATS.URL == "" {
		return fmt.Errorf("publishing requested but nats.url is not configured")
	}

	publisher, err := nats.NewPublisher(&nats.Config{
		URL:     a.config.NATS.URL,
		Subject: a.config.NATS.Subject,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create NATS publisher: %w", err)
	}
	if err := publisher.IsHealthy(); err != nil {
		publisher.Close()
		return fmt.Errorf("NATS publisher is not ready: %w", err)
	}
	a.publisher = publisher
	return nil
}

// Close releases the publisher, if any
func (a *App) Close() {
	if a.publisher == nil {
		return
	}
	if err := a.publisher.Close(); err != nil {
		a.logger.Error("Error closing publisher", "error", err)
	}
}

// loadCredentials reads the service account key from the configured file or
// environment variable. No credentials means requests go out unauthorized.
func loadCredentials(cfg config.CredentialsConfig, logger *slog.Logger) (*google.ServiceAccountCredentials, error) {
	if cfg.File != "" {
		creds, err := google.LoadCredentialsFile(cfg.File)
		if err != nil {
			return nil, fmt.Errorf("failed to load credentials: %w", err)
		}
		logger.Debug("Loaded credentials from file", "path", cfg.File, "client_email", creds.ClientEmail)
		return creds, nil
	}

	if cfg.EnvVar != "" && os.Getenv(cfg.EnvVar) != "" {
		creds, err := google.LoadCredentialsFromEnv(cfg.EnvVar)
		if err != nil {
			return nil, fmt.Errorf("failed to load credentials: %w", err)
		}
		logger.Debug("Loaded credentials from environment", "env_var", cfg.EnvVar, "client_email", creds.ClientEmail)
		return creds, nil
	}

	logger.Warn("No credentials configured, requests will be sent without authorization",
		"env_var", cfg.EnvVar)
	return nil, nil
}

// DryRunPublisher logs event notices instead of publishing them
type DryRunPublisher struct {
	logger *slog.Logger
}

// PublishEventCreated logs the notice that would have been published
func (p *DryRunPublisher) PublishEventCreated(ctx context.Context, calendarID string, event *models.Event) error {
	p.logger.Info("[DRY RUN] Would publish event notice",
		"calendar_id", calendarID,
		"event_id", event.ID,
		"summary", event.Summary)
	return nil
}

// Close is a no-op for the dry-run publisher
func (p *DryRunPublisher) Close() error {
	return nil
}
