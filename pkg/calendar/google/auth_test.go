package google

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	calendarPkg "github.com/venkytv/gcal-events/pkg/calendar"
)

func TestNewAssertionBuilder_Defaults(t *testing.T) {
	b := NewAssertionBuilder()

	assert.Equal(t, "https://www.googleapis.com/auth/calendar", b.Scope)
	assert.Equal(t, "https://oauth2.googleapis.com/token", b.Audience)
	assert.Equal(t, time.Hour, b.Lifetime)
	assert.NotNil(t, b.Now)
}

func TestAssertionBuilder_Claims(t *testing.T) {
	creds, _ := testCredentials(t)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	claims := NewAssertionBuilder().Claims(creds, now)

	assert.Equal(t, creds.ClientEmail, claims["iss"])
	assert.Equal(t, CalendarScope, claims["scope"])
	assert.Equal(t, DefaultTokenURL, claims["aud"])
	assert.Equal(t, now.Unix(), claims["iat"])
	assert.Equal(t, now.Unix()+3600, claims["exp"])
}

func TestAssertionBuilder_Build(t *testing.T) {
	creds, key := testCredentials(t)
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	b := NewAssertionBuilder()
	b.Now = func() time.Time { return issued }

	signed, err := b.Build(creds)
	require.NoError(t, err)

	segments := strings.Split(signed, ".")
	require.Len(t, segments, 3)
	for i, s := range segments {
		assert.NotEmpty(t, s, "segment %d is empty", i)
	}

	parsed, err := jwt.Parse(signed, func(tok *jwt.Token) (any, error) {
		return &key.PublicKey, nil
	}, jwt.WithValidMethods([]string{"RS256"}), jwt.WithoutClaimsValidation())
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	assert.Equal(t, "key-1", parsed.Header["kid"])

	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, creds.ClientEmail, claims["iss"])
	assert.Equal(t, CalendarScope, claims["scope"])
	assert.Equal(t, DefaultTokenURL, claims["aud"])
	assert.EqualValues(t, issued.Unix(), claims["iat"])
	assert.EqualValues(t, issued.Add(time.Hour).Unix(), claims["exp"])
}

func TestAssertionBuilder_Build_Errors(t *testing.T) {
	creds, _ := testCredentials(t)

	tests := []struct {
		name  string
		creds *ServiceAccountCredentials
	}{
		{name: "nil credentials", creds: nil},
		{name: "missing client email", creds: &ServiceAccountCredentials{PrivateKey: creds.PrivateKey}},
		{name: "missing private key", creds: &ServiceAccountCredentials{ClientEmail: creds.ClientEmail}},
		{name: "garbage private key", creds: &ServiceAccountCredentials{ClientEmail: creds.ClientEmail, PrivateKey: "not a pem"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signed, err := NewAssertionBuilder().Build(tt.creds)
			assert.Empty(t, signed)
			require.Error(t, err)
			assert.ErrorIs(t, err, calendarPkg.ErrAuth)

			var authErr *calendarPkg.AuthError
			assert.ErrorAs(t, err, &authErr)
		})
	}
}

func TestTokenManager_Token(t *testing.T) {
	creds, key := testCredentials(t)

	transport := &fakeTransport{handler: func(req *Request) (*Response, error) {
		return jsonResponse(200, `{"access_token":"ya29.token","token_type":"Bearer","expires_in":3599}`), nil
	}}

	tm, err := NewTokenManager(creds, transport, "", discardLogger())
	require.NoError(t, err)

	token, err := tm.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ya29.token", token.AccessToken)
	assert.Equal(t, "Bearer", token.Type())
	assert.WithinDuration(t, time.Now().Add(3599*time.Second), token.Expiry, time.Minute)

	reqs := transport.recorded()
	require.Len(t, reqs, 1)
	req := reqs[0]
	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, DefaultTokenURL, req.URL)
	assert.Equal(t, "application/x-www-form-urlencoded", req.Header.Get("Content-Type"))

	form, err := url.ParseQuery(string(req.Body))
	require.NoError(t, err)
	assert.Equal(t, "urn:ietf:params:oauth:grant-type:jwt-bearer", form.Get("grant_type"))

	_, err = jwt.Parse(form.Get("assertion"), func(tok *jwt.Token) (any, error) {
		return &key.PublicKey, nil
	}, jwt.WithValidMethods([]string{"RS256"}), jwt.WithAudience(DefaultTokenURL), jwt.WithIssuer(creds.ClientEmail))
	assert.NoError(t, err)
}

func TestTokenManager_FreshTokenEveryCall(t *testing.T) {
	creds, _ := testCredentials(t)

	transport := &fakeTransport{handler: func(req *Request) (*Response, error) {
		return jsonResponse(200, `{"access_token":"abc"}`), nil
	}}
	tm, err := NewTokenManager(creds, transport, "", discardLogger())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := tm.Token(context.Background())
		require.NoError(t, err)
	}
	assert.Len(t, transport.recorded(), 3)
}

func TestTokenManager_CustomTokenURL(t *testing.T) {
	creds, key := testCredentials(t)
	const tokenURL = "http://127.0.0.1:9999/token"

	transport := &fakeTransport{handler: func(req *Request) (*Response, error) {
		return jsonResponse(200, `{"access_token":"abc"}`), nil
	}}
	tm, err := NewTokenManager(creds, transport, tokenURL, discardLogger())
	require.NoError(t, err)

	_, err = tm.Token(context.Background())
	require.NoError(t, err)

	req := transport.recorded()[0]
	assert.Equal(t, tokenURL, req.URL)

	form, err := url.ParseQuery(string(req.Body))
	require.NoError(t, err)
	_, err = jwt.Parse(form.Get("assertion"), func(tok *jwt.Token) (any, error) {
		return &key.PublicKey, nil
	}, jwt.WithAudience(tokenURL))
	assert.NoError(t, err, "assertion audience should follow the token URL")
}

func TestTokenManager_Errors(t *testing.T) {
	creds, _ := testCredentials(t)

	tests := []struct {
		name     string
		response *Response
		sendErr  error
		contains string
	}{
		{
			name:     "missing access token",
			response: jsonResponse(200, `{"token_type":"Bearer"}`),
			contains: "access_token missing",
		},
		{
			name:     "rejected grant",
			response: jsonResponse(400, `{"error":"invalid_grant"}`),
			contains: "invalid_grant",
		},
		{
			name:     "malformed body",
			response: jsonResponse(200, `not json`),
			contains: "decode token response",
		},
		{
			name:     "transport failure",
			sendErr:  errors.New("connection refused"),
			contains: "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := &fakeTransport{handler: func(req *Request) (*Response, error) {
				return tt.response, tt.sendErr
			}}
			tm, err := NewTokenManager(creds, transport, "", discardLogger())
			require.NoError(t, err)

			token, err := tm.Token(context.Background())
			assert.Nil(t, token)
			require.Error(t, err)
			assert.ErrorIs(t, err, calendarPkg.ErrAuth)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestNewTokenManager_Validation(t *testing.T) {
	creds, _ := testCredentials(t)

	_, err := NewTokenManager(nil, &fakeTransport{}, "", nil)
	assert.ErrorIs(t, err, calendarPkg.ErrAuth)

	_, err = NewTokenManager(creds, nil, "", nil)
	assert.Error(t, err)
}

func TestTokenManager_TokenSource(t *testing.T) {
	creds, _ := testCredentials(t)

	transport := &fakeTransport{handler: func(req *Request) (*Response, error) {
		return jsonResponse(200, `{"access_token":"from-source"}`), nil
	}}
	tm, err := NewTokenManager(creds, transport, "", discardLogger())
	require.NoError(t, err)

	token, err := tm.TokenSource(context.Background()).Token()
	require.NoError(t, err)
	assert.Equal(t, "from-source", token.AccessToken)
}
