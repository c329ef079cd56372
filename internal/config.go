package internal

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App          ApplicationConfig  `yaml:"app"`
	USAJobs      USAJobsConfig      `yaml:"usajobs"`
	Cache        CacheConfig        `yaml:"cache"`
	Store        StoreConfig        `yaml:"store"`
	Export       ExportConfig       `yaml:"export"`
	Alerts       AlertsConfig       `yaml:"alerts"`
	Connectivity ConnectivityConfig `yaml:"connectivity"`
	Auth         AuthConfig         `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.USAJobs.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if err := c.Export.Validate(); err != nil {
		return err
	}
	if err := c.Alerts.Validate(); err != nil {
		return err
	}
	if err := c.Connectivity.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// USAJobsConfig holds the upstream API configuration. The API key and a
// descriptive user agent (the registered email) are required by USAJOBS.
type USAJobsConfig struct {
	BaseURL   string        `yaml:"base_url"`
	APIKey    string        `yaml:"api_key"`
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Validate validates the USAJOBS configuration.
func (c *USAJobsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required),
		validation.Field(&c.APIKey, validation.Required),
		validation.Field(&c.UserAgent, validation.Required),
	)
}

// CacheConfig holds the offline cache configuration.
type CacheConfig struct {
	Path string `yaml:"path"`
	// SearchMaxAge bounds how long a cached search result is considered
	// fresh; DetailMaxAge does the same for individual postings.
	SearchMaxAge time.Duration `yaml:"search_max_age"`
	DetailMaxAge time.Duration `yaml:"detail_max_age"`
	// Retention bounds how long entries survive at all before the
	// periodic sweep removes them.
	Retention     time.Duration `yaml:"retention"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// Validate validates the cache configuration.
func (c *CacheConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// StoreConfig holds the entity database configuration.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// ExportConfig holds the Markdown export configuration.
type ExportConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the export configuration.
func (c *ExportConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AlertsConfig holds the background alert checker configuration.
type AlertsConfig struct {
	CheckInterval time.Duration `yaml:"check_interval"`
}

// Validate validates the alerts configuration.
func (c *AlertsConfig) Validate() error {
	if c.CheckInterval < 0 {
		return fmt.Errorf("alerts: check_interval must not be negative")
	}
	return nil
}

// ConnectivityConfig holds the reachability probe configuration.
type ConnectivityConfig struct {
	ProbeAddr string        `yaml:"probe_addr"`
	Interval  time.Duration `yaml:"interval"`
}

// Validate validates the connectivity configuration.
func (c *ConnectivityConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ProbeAddr, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		USAJobs: USAJobsConfig{
			BaseURL: "https://data.usajobs.gov",
			// Secrets default from the environment (godotenv loads .env)
			// so the daemon can run without a config file.
			APIKey:    os.Getenv("USAJOBS_API_KEY"),
			UserAgent: os.Getenv("USAJOBS_USER_AGENT"),
			Timeout:   30 * time.Second,
		},
		Cache: CacheConfig{
			Path:          "./fedscout-cache.db",
			SearchMaxAge:  time.Hour,
			DetailMaxAge:  24 * time.Hour,
			Retention:     7 * 24 * time.Hour,
			SweepInterval: time.Hour,
		},
		Store: StoreConfig{
			Path: "./fedscout.db",
		},
		Export: ExportConfig{
			Path: "./exports",
		},
		Alerts: AlertsConfig{
			CheckInterval: 30 * time.Minute,
		},
		Connectivity: ConnectivityConfig{
			ProbeAddr: "data.usajobs.gov:443",
			Interval:  30 * time.Second,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
