package google

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	calendarPkg "github.com/venkytv/gcal-events/pkg/calendar"
)

// ServiceAccountCredentials represents the JSON key file of a Google service
// account
type ServiceAccountCredentials struct {
	Type         string `json:"type"`
	ProjectID    string `json:"project_id"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	ClientEmail  string `json:"client_email"`
	ClientID     string `json:"client_id"`
	TokenURI     string `json:"token_uri"`
}

// ParseCredentials parses and validates a service account key document
func ParseCredentials(data []byte) (*ServiceAccountCredentials, error) {
	var creds ServiceAccountCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, calendarPkg.NewAuthError("parse credentials", err)
	}

	if err := creds.Validate(); err != nil {
		return nil, err
	}

	return &creds, nil
}

// LoadCredentialsFile reads service account credentials from a file
func LoadCredentialsFile(path string) (*ServiceAccountCredentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, calendarPkg.NewAuthError("read credentials file", err)
	}
	return ParseCredentials(data)
}

// LoadCredentialsFromEnv reads service account credentials from the JSON
// document held in the named environment variable
func LoadCredentialsFromEnv(name string) (*ServiceAccountCredentials, error) {
	value, ok := os.LookupEnv(name)
	if !ok || strings.TrimSpace(value) == "" {
		return nil, calendarPkg.NewAuthError("read credentials", fmt.Errorf("environment variable %s is not set", name))
	}
	return ParseCredentials([]byte(value))
}

// Validate checks that the fields needed to sign an assertion are present
// and that the private key parses
func (c *ServiceAccountCredentials) Validate() error {
	if c.Type != "" && c.Type != "service_account" {
		return calendarPkg.NewAuthError("validate credentials", fmt.Errorf("unsupported credentials type %q", c.Type))
	}
	if c.ClientEmail == "" {
		return calendarPkg.NewAuthError("validate credentials", errors.New("client_email is required"))
	}
	if c.PrivateKey == "" {
		return calendarPkg.NewAuthError("validate credentials", errors.New("private_key is required"))
	}
	if _, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(c.PrivateKey)); err != nil {
		return calendarPkg.NewAuthError("parse private key", err)
	}
	return nil
}
