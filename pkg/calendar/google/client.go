package google

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"google.golang.org/api/calendar/v3"

	"github.com/venkytv/gcal-events/internal/models"
	calendarPkg "github.com/venkytv/gcal-events/pkg/calendar"
)

// DefaultBaseURL is the root of the Google Calendar v3 REST API
const DefaultBaseURL = "https://www.googleapis.com/calendar/v3"

// ClientConfig holds everything needed to build a Client
type ClientConfig struct {
	// BaseURL defaults to DefaultBaseURL
	BaseURL string

	// TokenURL defaults to DefaultTokenURL
	TokenURL string

	// Transport defaults to an HTTPTransport with DefaultTimeout
	Transport Transport

	// Credentials enables authorized requests. Requests are sent without an
	// Authorization header when nil.
	Credentials *ServiceAccountCredentials

	Logger *slog.Logger
}

// Client creates and retrieves events through the Google Calendar REST API
type Client struct {
	baseURL   string
	transport Transport
	tokens    *TokenManager
	logger    *slog.Logger
}

var _ calendarPkg.EventService = (*Client)(nil)

// NewClient creates a new Google Calendar client
func NewClient(cfg ClientConfig) (*Client, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	transport := cfg.Transport
	if transport == nil {
		transport = NewHTTPTransport(DefaultTimeout, logger)
	}

	c := &Client{
		baseURL:   baseURL,
		transport: transport,
		logger:    logger,
	}

	if cfg.Credentials != nil {
		tokens, err := NewTokenManager(cfg.Credentials, transport, cfg.TokenURL, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create token manager: %w", err)
		}
		c.tokens = tokens
	}

	return c, nil
}

// BaseURL returns the API root the client sends requests to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Authorized reports whether requests carry a bearer token
func (c *Client) Authorized() bool {
	return c.tokens != nil
}

// CreateEvent validates event and creates it in the given calendar
func (c *Client) CreateEvent(ctx context.Context, calendarID string, event *models.Event) (*models.Event, error) {
	if event == nil {
		return nil, &models.ValidationError{Field: "event", Message: "event is required"}
	}
	if err := event.Validate(); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(toAPIEvent(event))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	c.logger.Debug("creating event",
		"calendar_id", calendarID,
		"summary", event.Summary,
		"payload", string(payload))

	body, err := c.do(ctx, http.MethodPost, c.eventsURL(calendarID), payload)
	if err != nil {
		return nil, fmt.Errorf("failed to create event in calendar %s: %w", calendarID, err)
	}

	created, err := c.decodeEvent(body)
	if err != nil {
		return nil, err
	}

	c.logger.Info("created event",
		"calendar_id", calendarID,
		"event_id", created.ID)

	return created, nil
}

// GetEvent retrieves a single event by ID
func (c *Client) GetEvent(ctx context.Context, calendarID, eventID string) (*models.Event, error) {
	if eventID == "" {
		return nil, &models.ValidationError{Field: "event_id", Message: "event ID is required"}
	}

	eventURL := c.eventsURL(calendarID) + "/" + url.PathEscape(eventID)
	body, err := c.do(ctx, http.MethodGet, eventURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get event %s: %w", eventID, err)
	}

	return c.decodeEvent(body)
}

func (c *Client) eventsURL(calendarID string) string {
	return fmt.Sprintf("%s/calendars/%s/events", c.baseURL, url.PathEscape(calendarID))
}

// do sends a request, attaching a bearer token when credentials are
// configured, and returns the body of a 2xx response
func (c *Client) do(ctx context.Context, method, target string, payload []byte) ([]byte, error) {
	req := &Request{
		Method: method,
		URL:    target,
		Body:   payload,
		Header: http.Header{"Accept": {"application/json"}},
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", token.Type()+" "+token.AccessToken)
	} else {
		c.logger.Debug("no credentials configured, sending unauthorized request", "url", target)
	}

	resp, err := c.transport.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, calendarPkg.NewAPIError(resp.StatusCode, resp.Status, target, string(resp.Body))
	}
	return resp.Body, nil
}

func (c *Client) decodeEvent(body []byte) (*models.Event, error) {
	var item calendar.Event
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}
	return c.convertEvent(&item)
}
