// Package config loads qapages settings from defaults, a config file,
// .env and QAPAGES_* environment variables.
package config

import (
	"fmt"
	"time"

	"qapages/errors"
)

// EnvPrefix is the prefix for environment variable overrides (QAPAGES_ENV, QAPAGES_SLACK_TOKEN, ...).
const EnvPrefix = "QAPAGES"

// Config is the full runtime configuration.
type Config struct {
	Env          string                       `mapstructure:"env"`
	ProjectName  string                       `mapstructure:"project_name"`
	APIBaseURL   string                       `mapstructure:"api_base_url"`
	APIToken     string                       `mapstructure:"api_token"`
	Environments map[string]EnvironmentConfig `mapstructure:"environments"`
	SuitesFile   string                       `mapstructure:"suites_file"`
	DataDir      string                       `mapstructure:"data_dir"`
	ArtifactsDir string                       `mapstructure:"artifacts_dir"`
	// RetentionDays bounds the age of loose artifacts and published run folders.
	RetentionDays int `mapstructure:"retention_days"`

	Site    SiteConfig    `mapstructure:"site"`
	Health  HealthConfig  `mapstructure:"health"`
	Slack   SlackConfig   `mapstructure:"slack"`
	Email   EmailConfig   `mapstructure:"email"`
	Browser BrowserConfig `mapstructure:"browser"`
	Runner  RunnerConfig  `mapstructure:"runner"`
	Server  ServerConfig  `mapstructure:"server"`
}

// EnvironmentConfig holds the URLs of one target environment.
type EnvironmentConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	APIBaseURL string `mapstructure:"api_base_url"`
}

// SiteConfig describes the published site root.
type SiteConfig struct {
	Root     string `mapstructure:"root"`
	Title    string `mapstructure:"title"`
	KeepRuns int    `mapstructure:"keep_runs"`
	// PublicURL is where the gh-pages site is served; used for links in notifications.
	PublicURL string `mapstructure:"public_url"`
}

// HealthConfig tunes environment checks.
type HealthConfig struct {
	Attempts int           `mapstructure:"attempts"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Backoff  time.Duration `mapstructure:"backoff"`
	// Endpoint is the API path probed before API suites.
	Endpoint  string            `mapstructure:"endpoint"`
	Endpoints map[string]string `mapstructure:"endpoints"`
}

// SlackConfig configures Slack notifications.
type SlackConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
	Token      string `mapstructure:"token"`
	Channel    string `mapstructure:"channel"`
	Username   string `mapstructure:"username"`
	IconEmoji  string `mapstructure:"icon_emoji"`
}

// EmailConfig configures SMTP notifications.
type EmailConfig struct {
	SMTPServer string `mapstructure:"smtp_server"`
	Port       int    `mapstructure:"port"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
	To         string `mapstructure:"to"`
}

// BrowserConfig configures page probes.
type BrowserConfig struct {
	Bin      string        `mapstructure:"bin"`
	Headless bool          `mapstructure:"headless"`
	Window   string        `mapstructure:"window"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// RunnerConfig configures suite execution.
type RunnerConfig struct {
	// Parallelism caps how many suites of one run execute at once.
	Parallelism int `mapstructure:"parallelism"`
	// StepTimeout bounds a single command step; zero means no limit.
	StepTimeout time.Duration `mapstructure:"step_timeout"`
}

// ServerConfig configures the dashboard server.
type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// Environment returns the active environment's URLs. An explicit
// api_base_url overrides the table entry.
func (c *Config) Environment() (EnvironmentConfig, error) {
	env, ok := c.Environments[c.Env]
	if !ok {
		return EnvironmentConfig{}, fmt.Errorf("%w: unknown env %q", errors.ErrInvalidConfig, c.Env)
	}
	if c.APIBaseURL != "" {
		env.APIBaseURL = c.APIBaseURL
	}
	return env, nil
}

// Retention returns RetentionDays as a duration.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// Validate checks the configuration for values that cannot work.
func Validate(c *Config) error {
	if c == nil {
		return fmt.Errorf("%w: config is nil", errors.ErrInvalidConfig)
	}
	if _, err := c.Environment(); err != nil {
		return err
	}
	if c.RetentionDays < 0 {
		return fmt.Errorf("%w: retention_days must not be negative", errors.ErrInvalidConfig)
	}
	if c.Site.KeepRuns < 1 {
		return fmt.Errorf("%w: site.keep_runs must be at least 1", errors.ErrInvalidConfig)
	}
	if c.Site.Root == "" {
		return fmt.Errorf("%w: site.root is required", errors.ErrInvalidConfig)
	}
	if c.Health.Attempts < 1 {
		return fmt.Errorf("%w: health.attempts must be at least 1", errors.ErrInvalidConfig)
	}
	if c.Runner.Parallelism < 1 {
		return fmt.Errorf("%w: runner.parallelism must be at least 1", errors.ErrInvalidConfig)
	}
	return nil
}
