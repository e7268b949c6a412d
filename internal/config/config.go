// Package config loads service configuration from a YAML file with
// environment variable overrides. A .env file, when present, is loaded
// before overrides are applied so local development matches deployment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/CurationsLA/lemon/internal/domain"
	"github.com/CurationsLA/lemon/internal/logger"
)

// Default values applied when the config file leaves fields unset.
const (
	DefaultPort          = 8080
	DefaultReadTimeout   = 15 * time.Second
	DefaultWriteTimeout  = 30 * time.Second
	DefaultFetchTimeout  = 8 * time.Second
	DefaultMaxConcurrent = 6
	DefaultMaxItems      = 40
	DefaultMinScore      = 2
	DefaultRetention     = 7 * 24 * time.Hour
	DefaultCronSpec      = "0 7 * * *"
)

// ServiceConfig identifies the running service.
type ServiceConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	Debug        bool          `yaml:"debug"`
}

// RedisConfig holds content store connection settings.
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// FilterConfig holds the good-vibes classifier keyword sets and threshold.
// All matching is case-insensitive substring containment.
type FilterConfig struct {
	BannedKeywords   []string `yaml:"banned_keywords"`
	PositiveKeywords []string `yaml:"positive_keywords"`
	LocalityKeywords []string `yaml:"locality_keywords"`
	MinScore         int      `yaml:"min_score"`
	MaxItems         int      `yaml:"max_items"`
}

// FetchConfig bounds outbound feed fetching.
type FetchConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	MaxConcurrent int           `yaml:"max_concurrent"`
}

// CMSConfig holds Ghost admin API settings. AdminKey is the
// "<id>:<hex secret>" credential issued by the CMS.
type CMSConfig struct {
	APIURL       string   `yaml:"api_url"`
	AdminKey     string   `yaml:"admin_key"`
	DefaultTitle string   `yaml:"default_title"`
	DefaultTags  []string `yaml:"default_tags"`
}

// ScheduleConfig controls the daily sourcing run.
type ScheduleConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`
}

// StoreConfig holds batch persistence settings.
type StoreConfig struct {
	Retention time.Duration `yaml:"retention"`
}

// Config is the complete service configuration, loaded once at startup and
// passed explicitly into components.
type Config struct {
	Service  ServiceConfig       `yaml:"service"`
	Server   ServerConfig        `yaml:"server"`
	Logging  logger.Config       `yaml:"logging"`
	Redis    RedisConfig         `yaml:"redis"`
	Store    StoreConfig         `yaml:"store"`
	Feeds    []domain.FeedSource `yaml:"feeds"`
	Filter   FilterConfig        `yaml:"filter"`
	Fetch    FetchConfig         `yaml:"fetch"`
	CMS      CMSConfig           `yaml:"cms"`
	Schedule ScheduleConfig      `yaml:"schedule"`
}

// Load reads the YAML config at path, applies defaults, then applies
// environment variable overrides (env always wins).
func Load(path string) (*Config, error) {
	// Non-fatal when the file does not exist.
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Path returns the config path from CONFIG_PATH or the default.
func Path(defaultPath string) string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return defaultPath
}

func (c *Config) setDefaults() {
	if c.Service.Name == "" {
		c.Service.Name = "lemon"
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = DefaultReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = DefaultWriteTimeout
	}
	if c.Fetch.Timeout == 0 {
		c.Fetch.Timeout = DefaultFetchTimeout
	}
	if c.Fetch.MaxConcurrent == 0 {
		c.Fetch.MaxConcurrent = DefaultMaxConcurrent
	}
	if c.Filter.MaxItems == 0 {
		c.Filter.MaxItems = DefaultMaxItems
	}
	if c.Filter.MinScore == 0 {
		c.Filter.MinScore = DefaultMinScore
	}
	if c.Store.Retention == 0 {
		c.Store.Retention = DefaultRetention
	}
	if c.Schedule.Cron == "" {
		c.Schedule.Cron = DefaultCronSpec
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("REDIS_ADDRESS"); v != "" {
		c.Redis.Address = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("GHOST_API_URL"); v != "" {
		c.CMS.APIURL = v
	}
	if v := os.Getenv("GHOST_ADMIN_API_KEY"); v != "" {
		c.CMS.AdminKey = v
	}
}

// Validation errors.
var (
	ErrNoFeeds          = errors.New("config: at least one feed is required")
	ErrNoLocality       = errors.New("config: at least one locality keyword is required")
	ErrNoRedisAddress   = errors.New("config: redis address is required")
	ErrInvalidAdminKey  = errors.New("config: cms admin key must be in id:secret form")
	ErrInvalidMaxItems  = errors.New("config: filter max_items must be positive")
	ErrInvalidRetention = errors.New("config: store retention must be positive")
)

// Validate checks that the configuration is usable. The admin key is only
// validated for shape when set; a missing key disables publishing but not
// sourcing.
func (c *Config) Validate() error {
	if len(c.Feeds) == 0 {
		return ErrNoFeeds
	}
	if len(c.Filter.LocalityKeywords) == 0 {
		return ErrNoLocality
	}
	if c.Redis.Address == "" {
		return ErrNoRedisAddress
	}
	if c.Filter.MaxItems <= 0 {
		return ErrInvalidMaxItems
	}
	if c.Store.Retention <= 0 {
		return ErrInvalidRetention
	}
	if c.CMS.AdminKey != "" && !validAdminKey(c.CMS.AdminKey) {
		return ErrInvalidAdminKey
	}
	return nil
}

// PublishingEnabled reports whether draft creation is configured.
func (c *Config) PublishingEnabled() bool {
	return c.CMS.APIURL != "" && c.CMS.AdminKey != ""
}

func validAdminKey(key string) bool {
	for i, r := range key {
		if r == ':' {
			return i > 0 && i < len(key)-1
		}
	}
	return false
}
