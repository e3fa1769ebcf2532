// Package config handles Valet configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for Valet.
type Config struct {
	Version    int              `yaml:"version"`
	Assistant  AssistantConfig  `yaml:"assistant"`
	Session    SessionConfig    `yaml:"session"`
	Scheduling SchedulingConfig `yaml:"scheduling"`
	Calendar   CalendarConfig   `yaml:"calendar"`
	Travel     TravelConfig     `yaml:"travel"`
	Email      EmailConfig      `yaml:"email"`
	Channels   ChannelsConfig   `yaml:"channels"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// AssistantConfig defines the conversation service connection.
type AssistantConfig struct {
	BaseURL      string `yaml:"base_url"`
	APIKey       string `yaml:"api_key"`
	Model        string `yaml:"model"`
	PollInterval string `yaml:"poll_interval"`
	RunTimeout   string `yaml:"run_timeout"`
	HTTPTimeout  string `yaml:"http_timeout"`
}

// GetPollInterval returns the run poll interval as a duration.
func (a *AssistantConfig) GetPollInterval() time.Duration {
	return parseDuration(a.PollInterval, 500*time.Millisecond)
}

// GetRunTimeout returns the run deadline as a duration.
func (a *AssistantConfig) GetRunTimeout() time.Duration {
	return parseDuration(a.RunTimeout, 2*time.Minute)
}

// GetHTTPTimeout returns the per-request HTTP timeout.
func (a *AssistantConfig) GetHTTPTimeout() time.Duration {
	return parseDuration(a.HTTPTimeout, 30*time.Second)
}

// SessionConfig defines conversation session persistence.
type SessionConfig struct {
	DBPath        string `yaml:"db_path"`
	TTL           string `yaml:"ttl"`
	SweepSchedule string `yaml:"sweep_schedule"`
}

// GetTTL returns the session inactivity TTL.
func (s *SessionConfig) GetTTL() time.Duration {
	return parseDuration(s.TTL, 24*time.Hour)
}

// SchedulingConfig defines availability search defaults.
type SchedulingConfig struct {
	Timezone     string `yaml:"timezone"`
	WorkdayStart int    `yaml:"workday_start"`
	WorkdayEnd   int    `yaml:"workday_end"`
}

// CalendarConfig defines the calendar backend connection.
type CalendarConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

// GetTimeout returns the calendar request timeout.
func (c *CalendarConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 15*time.Second)
}

// TravelConfig defines the flight/hotel search backend.
type TravelConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// EmailConfig defines the mail backend connection.
type EmailConfig struct {
	BaseURL string `yaml:"base_url"`
}

// ChannelsConfig defines messaging front-end settings.
type ChannelsConfig struct {
	Slack SlackConfig `yaml:"slack"`
}

// SlackConfig defines the Slack channel settings.
type SlackConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Token    string `yaml:"token"`
	AppToken string `yaml:"app_token"`
}

// MetricsConfig defines the Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Version: 1,
		Assistant: AssistantConfig{
			BaseURL:      "https://api.openai.com/v1",
			Model:        "gpt-4o-2024-08-06",
			PollInterval: "500ms",
			RunTimeout:   "2m",
			HTTPTimeout:  "30s",
		},
		Session: SessionConfig{
			DBPath:        defaultDBPath(),
			TTL:           "24h",
			SweepSchedule: "@every 1h",
		},
		Scheduling: SchedulingConfig{
			Timezone:     "America/New_York",
			WorkdayStart: 9,
			WorkdayEnd:   17,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:18900",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from path, falling back to the default
// location when path is empty. Secrets can be supplied via environment
// variables and override file values.
func Load(path string) (*Config, error) {
	if path == "" {
		path = defaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Assistant.BaseURL == "" {
		return fmt.Errorf("assistant.base_url is required")
	}
	if c.Scheduling.WorkdayStart < 0 || c.Scheduling.WorkdayStart > 23 {
		return fmt.Errorf("scheduling.workday_start must be 0-23, got %d", c.Scheduling.WorkdayStart)
	}
	if c.Scheduling.WorkdayEnd < 1 || c.Scheduling.WorkdayEnd > 24 {
		return fmt.Errorf("scheduling.workday_end must be 1-24, got %d", c.Scheduling.WorkdayEnd)
	}
	if c.Scheduling.WorkdayEnd <= c.Scheduling.WorkdayStart {
		return fmt.Errorf("scheduling.workday_end must be after workday_start")
	}
	if _, err := time.LoadLocation(c.Scheduling.Timezone); err != nil {
		return fmt.Errorf("scheduling.timezone %q is invalid: %w", c.Scheduling.Timezone, err)
	}
	if c.Channels.Slack.Enabled {
		if c.Channels.Slack.Token == "" {
			return fmt.Errorf("channels.slack.token is required when slack is enabled")
		}
		if c.Channels.Slack.AppToken == "" {
			return fmt.Errorf("channels.slack.app_token is required when slack is enabled")
		}
	}
	return nil
}

// applyEnv overrides secret-bearing fields from the environment.
func (c *Config) applyEnv() {
	if v := os.Getenv("VALET_ASSISTANT_API_KEY"); v != "" {
		c.Assistant.APIKey = v
	}
	if v := os.Getenv("VALET_SLACK_TOKEN"); v != "" {
		c.Channels.Slack.Token = v
	}
	if v := os.Getenv("VALET_SLACK_APP_TOKEN"); v != "" {
		c.Channels.Slack.AppToken = v
	}
	if v := os.Getenv("VALET_TRAVEL_API_KEY"); v != "" {
		c.Travel.APIKey = v
	}
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".valet", "config.yaml")
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "valet.db"
	}
	return filepath.Join(home, ".valet", "valet.db")
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
