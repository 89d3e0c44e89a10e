package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env"
	"gopkg.in/yaml.v3"

	"github.com/venkytv/gcal-events/pkg/timezone"
)

const (
	DefaultBaseURL        = "https://www.googleapis.com/calendar/v3"
	DefaultTokenURL       = "https://oauth2.googleapis.com/token"
	DefaultTimeout        = 30 * time.Second
	DefaultCredentialsEnv = "GCAL_CREDENTIALS"
	DefaultNATSSubject    = "calendar.events.created"
)

type Config struct {
	API         APIConfig         `yaml:"api"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Timezone    TimezoneConfig    `yaml:"timezone"`
	NATS        NATSConfig        `yaml:"nats"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type APIConfig struct {
	BaseURL  string        `yaml:"base_url"`
	TokenURL string        `yaml:"token_url"`
	Timeout  time.Duration `yaml:"timeout"`
}

// CredentialsConfig locates the service account key. File takes precedence
// over EnvVar.
type CredentialsConfig struct {
	File   string `yaml:"file"`
	EnvVar string `yaml:"env_var"`
}

type TimezoneConfig struct {
	Default string `yaml:"default"`

	// AllowedRegions restricts Region/City designators. Nil means
	// timezone.DefaultRegions, an explicit empty list accepts any region.
	AllowedRegions []string `yaml:"allowed_regions"`
}

// NATSConfig enables event-created announcements when URL is set
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// environment holds overrides read from the process environment
type environment struct {
	BaseURL         string `env:"GCAL_API_BASE_URL"`
	TokenURL        string `env:"GCAL_TOKEN_URL"`
	TimeoutSeconds  int    `env:"GCAL_TIMEOUT_SECONDS"`
	CredentialsFile string `env:"GCAL_CREDENTIALS_FILE"`
	CredentialsEnv  string `env:"GCAL_CREDENTIALS_ENV"`
	DefaultTimezone string `env:"GCAL_DEFAULT_TIMEZONE"`
	NATSURL         string `env:"GCAL_NATS_URL"`
	LogLevel        string `env:"GCAL_LOG_LEVEL"`
}

// Load reads the YAML file at configPath, applies environment overrides
// and validates the result. An empty path yields the defaults.
func Load(configPath string) (*Config, error) {
	var config Config

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := config.applyEnv(); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns a configuration with every default applied
func Default() *Config {
	var config Config
	config.applyDefaults()
	return &config
}

func (c *Config) applyEnv() error {
	var e environment
	if err := env.Parse(&e); err != nil {
		return err
	}

	if e.BaseURL != "" {
		c.API.BaseURL = e.BaseURL
	}
	if e.TokenURL != "" {
		c.API.TokenURL = e.TokenURL
	}
	if e.TimeoutSeconds != 0 {
		c.API.Timeout = time.Duration(e.TimeoutSeconds) * time.Second
	}
	if e.CredentialsFile != "" {
		c.Credentials.File = e.CredentialsFile
	}
	if e.CredentialsEnv != "" {
		c.Credentials.EnvVar = e.CredentialsEnv
	}
	if e.DefaultTimezone != "" {
		c.Timezone.Default = e.DefaultTimezone
	}
	if e.NATSURL != "" {
		c.NATS.URL = e.NATSURL
	}
	if e.LogLevel != "" {
		c.Logging.Level = e.LogLevel
	}
	return nil
}

func (c *Config) validate() error {
	c.applyDefaults()

	if c.API.Timeout < 0 {
		return fmt.Errorf("api timeout must be positive, got %v", c.API.Timeout)
	}
	if !c.Codec().Validate(c.Timezone.Default) {
		return fmt.Errorf("default timezone %q is not a valid designator", c.Timezone.Default)
	}
	return nil
}

// applyDefaults fills every unset field. A NATS URL without a subject
// publishes on DefaultNATSSubject.
func (c *Config) applyDefaults() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	if c.API.TokenURL == "" {
		c.API.TokenURL = DefaultTokenURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultTimeout
	}

	if c.Credentials.EnvVar == "" {
		c.Credentials.EnvVar = DefaultCredentialsEnv
	}

	if c.Timezone.AllowedRegions == nil {
		c.Timezone.AllowedRegions = append([]string(nil), timezone.DefaultRegions...)
	}
	if c.Timezone.Default == "" {
		c.Timezone.Default = timezone.UTC
	}

	if c.NATS.URL != "" && c.NATS.Subject == "" {
		c.NATS.Subject = DefaultNATSSubject
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// Codec returns the timezone codec for the configured region policy
func (c *Config) Codec() *timezone.Codec {
	return timezone.NewCodec(timezone.Policy{AllowedRegions: c.Timezone.AllowedRegions})
}
