// Package config loads runtime settings from the environment, an optional
// .env file and an optional config.yaml. Environment variables win.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kibsywow/recruit-bot/armory"
	"github.com/kibsywow/recruit-bot/scraper"
	"github.com/kibsywow/recruit-bot/storage"
)

// Config holds all runtime configuration.
type Config struct {
	BnetID          string
	BnetSecret      string
	BnetAPIURL      string
	BnetTokenURL    string
	WebhookURL      string
	ListingURL      string
	ProfileURL      string
	StateKey        string
	StorageBucket   string
	LocalStorage    string
	RedisURL        string
	CredentialsJSON string
	Port            string
	Schedule        string // cron spec; empty means external trigger only
	LogFormat       string // json or text
	LogLevel        slog.Level
	HTTPTimeout     time.Duration
	RunTimeout      time.Duration
	StoreAttempts   uint
	DryRun          bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bnet_api_url", armory.DefaultAPIURL)
	v.SetDefault("bnet_token_url", armory.DefaultTokenURL)
	v.SetDefault("listing_url", scraper.DefaultListingURL)
	v.SetDefault("profile_url", scraper.DefaultBaseURL)
	v.SetDefault("state_key", "prev")
	v.SetDefault("local_storage", "./data")
	v.SetDefault("port", "8080")
	v.SetDefault("log_format", "json")
	v.SetDefault("log_level", "info")
	v.SetDefault("http_timeout", 30*time.Second)
	v.SetDefault("run_timeout", 10*time.Minute)
	v.SetDefault("store_attempts", 1)
}

// Load reads .env and config.yaml from the working directory, then the
// environment, and validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}
	return load(viper.New(), ".")
}

func load(v *viper.Viper, dir string) (*Config, error) {
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		BnetID:          v.GetString("bnet_id"),
		BnetSecret:      v.GetString("bnet_secret"),
		BnetAPIURL:      v.GetString("bnet_api_url"),
		BnetTokenURL:    v.GetString("bnet_token_url"),
		WebhookURL:      v.GetString("discord_webhook"),
		ListingURL:      v.GetString("listing_url"),
		ProfileURL:      v.GetString("profile_url"),
		StateKey:        v.GetString("state_key"),
		StorageBucket:   v.GetString("storage_bucket"),
		LocalStorage:    v.GetString("local_storage"),
		RedisURL:        v.GetString("redis_url"),
		CredentialsJSON: v.GetString("google_credentials_json"),
		Port:            v.GetString("port"),
		Schedule:        v.GetString("schedule"),
		LogFormat:       v.GetString("log_format"),
		HTTPTimeout:     v.GetDuration("http_timeout"),
		RunTimeout:      v.GetDuration("run_timeout"),
		StoreAttempts:   v.GetUint("store_attempts"),
		DryRun:          v.GetBool("dry_run"),
	}

	var errs []error
	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString("log_level"))); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	errs = append(errs, cfg.validate()...)
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() []error {
	var errs []error
	if !c.DryRun {
		if c.WebhookURL == "" {
			errs = append(errs, errors.New("DISCORD_WEBHOOK is required unless DRY_RUN is set"))
		}
		if c.BnetID == "" || c.BnetSecret == "" {
			errs = append(errs, errors.New("BNET_ID and BNET_SECRET are required unless DRY_RUN is set"))
		}
	}
	if c.WebhookURL != "" {
		if u, err := url.Parse(c.WebhookURL); err != nil || u.Scheme != "https" && u.Scheme != "http" {
			errs = append(errs, fmt.Errorf("DISCORD_WEBHOOK %q is not an http(s) URL", c.WebhookURL))
		}
	}
	if storage.Key(c.StateKey) == "" {
		errs = append(errs, fmt.Errorf("STATE_KEY %q may only contain letters, digits, '-' and '_'", c.StateKey))
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.LogFormat))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, errors.New("HTTP_TIMEOUT must be positive"))
	}
	if c.RunTimeout <= 0 {
		errs = append(errs, errors.New("RUN_TIMEOUT must be positive"))
	}
	return errs
}

// Backend names the state store the config selects.
func (c *Config) Backend() string {
	switch {
	case c.RedisURL != "":
		return "redis"
	case c.StorageBucket != "":
		return "gcs"
	default:
		return "local"
	}
}
