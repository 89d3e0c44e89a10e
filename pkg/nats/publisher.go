package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/venkytv/gcal-events/internal/models"
)

// Publisher announces created calendar events on a NATS subject
type Publisher struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

// Config holds NATS publisher configuration
type Config struct {
	URL            string        `yaml:"url"`
	Subject        string        `yaml:"subject"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	ReconnectWait  time.Duration `yaml:"reconnect_wait"`
	MaxReconnects  int           `yaml:"max_reconnects"`
}

// DefaultConfig returns a default NATS configuration
func DefaultConfig() *Config {
	return &Config{
		URL:            nats.DefaultURL,
		Subject:        "calendar.events.created",
		ConnectTimeout: 5 * time.Second,
		ReconnectWait:  2 * time.Second,
		MaxReconnects:  10,
	}
}

// NewPublisher connects to NATS and returns a publisher for config.Subject
func NewPublisher(config *Config, logger *slog.Logger) (*Publisher, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if config.Subject == "" {
		return nil, fmt.Errorf("NATS subject is required")
	}

	defaults := DefaultConfig()
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = defaults.ConnectTimeout
	}
	if config.ReconnectWait == 0 {
		config.ReconnectWait = defaults.ReconnectWait
	}
	if config.MaxReconnects == 0 {
		config.MaxReconnects = defaults.MaxReconnects
	}

	options := []nats.Option{
		nats.Name("gcal-events"),
		nats.Timeout(config.ConnectTimeout),
		nats.ReconnectWait(config.ReconnectWait),
		nats.MaxReconnects(config.MaxReconnects),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Debug("NATS connection closed")
		}),
	}

	conn, err := nats.Connect(config.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", config.URL, err)
	}

	logger.Info("NATS publisher initialized",
		"url", config.URL,
		"subject", config.Subject,
		"connected_url", conn.ConnectedUrl())

	return &Publisher{
		conn:    conn,
		subject: config.Subject,
		logger:  logger,
	}, nil
}

// Subject returns the subject events are published on
func (p *Publisher) Subject() string {
	return p.subject
}

// PublishEventCreated publishes a notice for an event created in calendarID
func (p *Publisher) PublishEventCreated(ctx context.Context, calendarID string, event *models.Event) error {
	if p.conn == nil || p.conn.IsClosed() {
		return fmt.Errorf("NATS connection is not available")
	}

	notice := models.NewEventCreated(calendarID, event, time.Now())
	data, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("failed to marshal event notice: %w", err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish event notice: %w", err)
	}

	p.logger.Debug("Published event notice",
		"subject", p.subject,
		"event_id", notice.ID,
		"calendar_id", calendarID)

	return nil
}

// Flush ensures all published messages have been sent
func (p *Publisher) Flush(timeout time.Duration) error {
	if p.conn == nil || p.conn.IsClosed() {
		return fmt.Errorf("NATS connection is not available")
	}

	if err := p.conn.FlushTimeout(timeout); err != nil {
		return fmt.Errorf("failed to flush NATS messages: %w", err)
	}

	return nil
}

// IsHealthy checks if the NATS connection is healthy
func (p *Publisher) IsHealthy() error {
	if p.conn == nil {
		return fmt.Errorf("NATS connection is nil")
	}
	if p.conn.IsClosed() {
		return fmt.Errorf("NATS connection is closed")
	}
	if !p.conn.IsConnected() {
		return fmt.Errorf("NATS is not connected")
	}
	return nil
}

// Close flushes pending messages and closes the NATS connection
func (p *Publisher) Close() error {
	if p.conn != nil && !p.conn.IsClosed() {
		if err := p.Flush(5 * time.Second); err != nil {
			p.logger.Warn("Failed to flush messages on close", "error", err)
		}

		p.conn.Close()
		p.logger.Info("NATS publisher closed")
	}
	return nil
}
