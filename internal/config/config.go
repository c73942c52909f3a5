package config

import (
	"fmt"
	"strings"
	"time"
)

// Config represents the complete application configuration.
type Config struct {
	Version    string           `yaml:"version"`
	Server     ServerConfig     `yaml:"server"`
	API        APIConfig        `yaml:"api"`
	Property   PropertyConfig   `yaml:"property"`
	Token      TokenConfig      `yaml:"token"`
	Cache      CacheConfig      `yaml:"cache"`
	Inspection InspectionConfig `yaml:"inspection"`
	Alerts     AlertsConfig     `yaml:"alerts"`
}

// ServerConfig contains server-related configuration.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	HTTPPort        int           `yaml:"http_port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	LogLevel        string        `yaml:"log_level"`
	LogFormat       string        `yaml:"log_format"`
}

// APIConfig contains HTTP API configuration.
type APIConfig struct {
	Enabled   bool            `yaml:"enabled"`
	BasePath  string          `yaml:"base_path"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// AuthConfig contains API authentication configuration.
type AuthConfig struct {
	Enabled    bool     `yaml:"enabled"`
	APIKeys    []string `yaml:"api_keys"`
	HeaderName string   `yaml:"header_name"`
}

// RateLimitConfig contains API rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	Burst             int `yaml:"burst"`
}

// PropertyConfig identifies the Search Console property this instance reports
// on. This is a single-tenant dashboard: exactly one property.
type PropertyConfig struct {
	SiteURL    string `yaml:"site_url"`
	SearchType string `yaml:"search_type"`
	RowLimit   int    `yaml:"row_limit"`
}

// TokenConfig contains OAuth token storage configuration.
type TokenConfig struct {
	// File is the JSON token file path. Environment sources
	// (GOOGLE_TOKEN_JSON, GOOGLE_REFRESH_TOKEN/...) are consulted when the
	// file is missing or unreadable.
	File string `yaml:"file"`
	// RefreshTimeout bounds the token refresh HTTP call.
	RefreshTimeout time.Duration `yaml:"refresh_timeout"`
}

// CacheConfig contains report cache configuration.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Path    string        `yaml:"path"`
	TTL     time.Duration `yaml:"ttl"`
}

// InspectionConfig contains URL inspection configuration.
type InspectionConfig struct {
	// RateLimit is the pause between consecutive URLs in a batch inspection.
	RateLimit time.Duration `yaml:"rate_limit"`
	// DailyQuota is informational; the API enforces it server-side.
	DailyQuota int `yaml:"daily_quota"`
}

// AlertsConfig contains traffic alert configuration.
type AlertsConfig struct {
	Enabled bool `yaml:"enabled"`
	// DropThresholdPct triggers an alert when clicks fall by at least this
	// percentage versus the previous period.
	DropThresholdPct float64        `yaml:"drop_threshold_pct"`
	CheckInterval    time.Duration  `yaml:"check_interval"`
	PeriodDays       int            `yaml:"period_days"`
	Debounce         time.Duration  `yaml:"debounce"`
	Telegram         TelegramConfig `yaml:"telegram"`
}

// TelegramConfig contains Telegram notification configuration.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("version is required")
	}

	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	if err := c.API.Validate(); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	if err := c.Property.Validate(); err != nil {
		return fmt.Errorf("property: %w", err)
	}

	c.Token.applyDefaults()
	c.Cache.applyDefaults()
	c.Inspection.applyDefaults()

	if err := c.Alerts.Validate(); err != nil {
		return fmt.Errorf("alerts: %w", err)
	}

	return nil
}

// Validate validates server configuration.
func (s *ServerConfig) Validate() error {
	if s.Host == "" {
		return fmt.Errorf("host is required")
	}
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("http_port must be between 1 and 65535")
	}
	if s.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdown_timeout must be positive")
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = 30 * time.Second
	}
	if s.LogLevel == "" {
		s.LogLevel = "info"
	}
	if s.LogFormat == "" {
		s.LogFormat = "json"
	}
	return nil
}

// Validate validates API configuration.
func (a *APIConfig) Validate() error {
	if a.BasePath == "" {
		a.BasePath = "/api/v1"
	}
	if a.Auth.Enabled && len(a.Auth.APIKeys) == 0 {
		return fmt.Errorf("auth: api_keys is required when auth is enabled")
	}
	if a.Auth.HeaderName == "" {
		a.Auth.HeaderName = "X-API-Key"
	}
	if a.RateLimit.RequestsPerMinute <= 0 {
		a.RateLimit.RequestsPerMinute = 600
	}
	if a.RateLimit.RequestsPerMinute > 100000 {
		a.RateLimit.RequestsPerMinute = 100000
	}
	if a.RateLimit.Burst <= 0 {
		a.RateLimit.Burst = 50
	}
	return nil
}

// Validate validates property configuration.
func (p *PropertyConfig) Validate() error {
	if p.SiteURL == "" {
		return fmt.Errorf("site_url is required")
	}
	if p.SearchType == "" {
		p.SearchType = "web"
	}
	if _, ok := validSearchTypes[strings.ToLower(p.SearchType)]; !ok {
		return fmt.Errorf("search_type must be one of: web, image, video, news, discover, googleNews")
	}
	if p.RowLimit <= 0 {
		p.RowLimit = 25000
	}
	return nil
}

var validSearchTypes = map[string]struct{}{
	"web":        {},
	"image":      {},
	"video":      {},
	"news":       {},
	"discover":   {},
	"googlenews": {},
}

func (t *TokenConfig) applyDefaults() {
	if t.File == "" {
		t.File = "tokens/token.json"
	}
	if t.RefreshTimeout <= 0 {
		t.RefreshTimeout = 15 * time.Second
	}
}

func (c *CacheConfig) applyDefaults() {
	if c.Path == "" {
		c.Path = "./data/gsclens.db"
	}
	if c.TTL <= 0 {
		c.TTL = 5 * time.Minute
	}
}

func (i *InspectionConfig) applyDefaults() {
	if i.RateLimit <= 0 {
		i.RateLimit = 100 * time.Millisecond
	}
	if i.DailyQuota <= 0 {
		i.DailyQuota = 2000
	}
}

// Validate validates alerts configuration and applies defaults.
func (a *AlertsConfig) Validate() error {
	if a.DropThresholdPct <= 0 {
		a.DropThresholdPct = 30.0
	}
	if a.DropThresholdPct > 100 {
		a.DropThresholdPct = 100
	}
	if a.CheckInterval <= 0 {
		a.CheckInterval = 6 * time.Hour
	}
	if a.PeriodDays <= 0 {
		a.PeriodDays = 7
	}
	if a.Debounce <= 0 {
		a.Debounce = 24 * time.Hour
	}
	if a.Enabled && a.Telegram.BotToken == "" {
		return fmt.Errorf("telegram bot_token is required when alerts are enabled")
	}
	return nil
}
