package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"

	calendarPkg "github.com/venkytv/gcal-events/pkg/calendar"
)

const (
	// CalendarScope grants read/write access to calendars
	CalendarScope = calendar.CalendarScope

	// DefaultTokenURL is the OAuth2 token endpoint and assertion audience
	DefaultTokenURL = "https://oauth2.googleapis.com/token"

	// AssertionLifetime is the validity window of a signed assertion
	AssertionLifetime = time.Hour

	jwtBearerGrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"
)

// AssertionBuilder signs the JWT assertions exchanged for access tokens
type AssertionBuilder struct {
	Scope    string
	Audience string
	Lifetime time.Duration
	Now      func() time.Time
}

// NewAssertionBuilder returns a builder for the calendar scope and the
// default token endpoint
func NewAssertionBuilder() *AssertionBuilder {
	return &AssertionBuilder{
		Scope:    CalendarScope,
		Audience: DefaultTokenURL,
		Lifetime: AssertionLifetime,
		Now:      time.Now,
	}
}

// Claims returns the claim set for an assertion issued at now
func (b *AssertionBuilder) Claims(creds *ServiceAccountCredentials, now time.Time) jwt.MapClaims {
	iat := now.Unix()
	return jwt.MapClaims{
		"iss":   creds.ClientEmail,
		"scope": b.Scope,
		"aud":   b.Audience,
		"iat":   iat,
		"exp":   iat + int64(b.Lifetime/time.Second),
	}
}

// Build returns a signed RS256 assertion for creds
func (b *AssertionBuilder) Build(creds *ServiceAccountCredentials) (string, error) {
	if creds == nil {
		return "", calendarPkg.NewAuthError("no credentials provided", nil)
	}
	if creds.ClientEmail == "" {
		return "", calendarPkg.NewAuthError("build assertion", errors.New("client_email is required"))
	}
	if creds.PrivateKey == "" {
		return "", calendarPkg.NewAuthError("build assertion", errors.New("private_key is required"))
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(creds.PrivateKey))
	if err != nil {
		return "", calendarPkg.NewAuthError("parse private key", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, b.Claims(creds, b.Now()))
	if creds.PrivateKeyID != "" {
		token.Header["kid"] = creds.PrivateKeyID
	}

	signed, err := token.SignedString(key)
	if err != nil {
		return "", calendarPkg.NewAuthError("sign assertion", err)
	}
	return signed, nil
}

// tokenResponse is the body returned by the token endpoint
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// TokenManager exchanges signed assertions for access tokens. Every call to
// Token performs a fresh exchange.
type TokenManager struct {
	creds     *ServiceAccountCredentials
	builder   *AssertionBuilder
	transport Transport
	tokenURL  string
	logger    *slog.Logger
}

// NewTokenManager creates a new token manager
func NewTokenManager(creds *ServiceAccountCredentials, transport Transport, tokenURL string, logger *slog.Logger) (*TokenManager, error) {
	if creds == nil {
		return nil, calendarPkg.NewAuthError("no credentials provided", nil)
	}
	if transport == nil {
		return nil, fmt.Errorf("transport cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}

	builder := NewAssertionBuilder()
	builder.Audience = tokenURL

	return &TokenManager{
		creds:     creds,
		builder:   builder,
		transport: transport,
		tokenURL:  tokenURL,
		logger:    logger,
	}, nil
}

// Token signs a new assertion and exchanges it for an access token
func (tm *TokenManager) Token(ctx context.Context) (*oauth2.Token, error) {
	assertion, err := tm.builder.Build(tm.creds)
	if err != nil {
		return nil, err
	}

	form := url.Values{
		"grant_type": {jwtBearerGrantType},
		"assertion":  {assertion},
	}
	req := &Request{
		Method: http.MethodPost,
		URL:    tm.tokenURL,
		Body:   []byte(form.Encode()),
		Header: http.Header{
			"Content-Type": {"application/x-www-form-urlencoded"},
			"Accept":       {"application/json"},
		},
	}

	resp, err := tm.transport.Send(ctx, req)
	if err != nil {
		return nil, calendarPkg.NewAuthError("exchange assertion", err)
	}
	if !resp.IsSuccess() {
		return nil, calendarPkg.NewAuthError("exchange assertion",
			calendarPkg.NewAPIError(resp.StatusCode, resp.Status, tm.tokenURL, string(resp.Body)))
	}

	var body tokenResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, calendarPkg.NewAuthError("decode token response", err)
	}
	if body.AccessToken == "" {
		return nil, calendarPkg.NewAuthError("failed to get access token", errors.New("access_token missing from response"))
	}

	token := &oauth2.Token{
		AccessToken: body.AccessToken,
		TokenType:   body.TokenType,
	}
	if body.ExpiresIn > 0 {
		token.Expiry = time.Now().Add(time.Duration(body.ExpiresIn) * time.Second)
	}

	tm.logger.Debug("obtained access token",
		"issuer", tm.creds.ClientEmail,
		"expiry", token.Expiry)

	return token, nil
}

// TokenSource adapts the manager to oauth2.TokenSource using ctx for every
// exchange
func (tm *TokenManager) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &tokenSource{ctx: ctx, tm: tm}
}

type tokenSource struct {
	ctx context.Context
	tm  *TokenManager
}

func (s *tokenSource) Token() (*oauth2.Token, error) {
	return s.tm.Token(s.ctx)
}
