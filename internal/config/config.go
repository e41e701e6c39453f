package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/p-blackswan/inactivity-report/internal/activity"
	perrors "github.com/p-blackswan/inactivity-report/internal/errors"
)

// Prefix is prepended to every environment variable name.
const Prefix = "AUSC"

// Config holds all run configuration loaded from environment variables.
// Keys are derived from the field names (APIRoot reads AUSC_API_ROOT) and are
// only ever looked up with the prefix. Command-line flags override
// individual fields after loading.
type Config struct {
	// General
	Environment string `split_words:"true" default:"production"`
	LogLevel    string `split_words:"true" default:"info"`

	// Wiki
	APIRoot           string        `split_words:"true" default:"en.wikipedia.org/w/api.php"`
	UserAgent         string        `split_words:"true" default:"AUSCReport/0.1 b.t.y.b. LFaraone@enwiki"`
	Username          string        `split_words:"true"`
	Password          string        `split_words:"true"`
	RequestsPerSecond float64       `split_words:"true" default:"5"`
	RequestBurst      int           `split_words:"true" default:"1"`
	HTTPTimeout       time.Duration `split_words:"true" default:"30s"`

	// Report
	ExemptionsPath string `split_words:"true" default:"excuses.yaml"`
	CutoffDays     int    `split_words:"true" default:"90"`
	MWTable        bool   `split_words:"true" default:"false"`
	Roles          string `split_words:"true" default:"checkuser,oversight"` // comma-separated user groups
	RecentCount    int    `split_words:"true" default:"1"`
	Concurrency    int    `split_words:"true" default:"1"`
	SkipPreflight  bool   `split_words:"true" default:"false"`

	// Metrics export (both optional)
	MetricsFile    string `split_words:"true"`
	PushgatewayURL string `split_words:"true"`
}

// RoleNames returns the configured role names, trimmed, empties dropped.
func (c *Config) RoleNames() []string {
	if c.Roles == "" {
		return nil
	}
	parts := strings.Split(c.Roles, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			names = append(names, p)
		}
	}
	return names
}

// RoleList resolves the configured roles.
func (c *Config) RoleList() ([]activity.Role, error) {
	return activity.ParseRoles(c.RoleNames())
}

// Cutoff returns the inactivity cutoff as a duration.
func (c *Config) Cutoff() time.Duration {
	return time.Duration(c.CutoffDays) * 24 * time.Hour
}

// HasCredentials reports whether both username and password are set.
func (c *Config) HasCredentials() bool {
	return c.Username != "" && c.Password != ""
}

// MetricsEnabled reports whether any metrics export is configured.
func (c *Config) MetricsEnabled() bool {
	return c.MetricsFile != "" || c.PushgatewayURL != ""
}

// Development reports whether the run is in a development environment.
func (c *Config) Development() bool {
	return strings.EqualFold(c.Environment, "development")
}

// Validate checks values that envconfig cannot.
func (c *Config) Validate() error {
	if c.CutoffDays <= 0 {
		return perrors.InvalidInput("cutoff must be a positive number of days, got %d", c.CutoffDays)
	}
	if c.Concurrency < 1 {
		return perrors.InvalidInput("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.RecentCount < 1 {
		return perrors.InvalidInput("recent count must be at least 1, got %d", c.RecentCount)
	}
	if c.RequestsPerSecond < 0 {
		return perrors.InvalidInput("requests per second must not be negative")
	}
	if strings.TrimSpace(c.APIRoot) == "" {
		return perrors.InvalidInput("api root is required")
	}
	if _, err := c.RoleList(); err != nil {
		return err
	}
	return nil
}

// Load reads configuration from AUSC_* environment variables.
func Load() (*Config, error) {
	return LoadWithPrefix(Prefix)
}

// LoadWithPrefix reads configuration with a prefix.
func LoadWithPrefix(prefix string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return nil, fmt.Errorf("%w: loading config with prefix %s: %w", perrors.ErrConfiguration, prefix, err)
	}
	return &cfg, nil
}
