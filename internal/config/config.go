// Package config loads service settings from defaults, an optional config
// file and EVENTBOARD_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "EVENTBOARD"

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Log       LogConfig       `mapstructure:"log"`
	Auth      AuthConfig      `mapstructure:"auth"`
	OAuth     OAuthConfig     `mapstructure:"oauth"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Events    EventsConfig    `mapstructure:"events"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	BaseURL        string        `mapstructure:"base_url"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type AuthConfig struct {
	TokenSecret     string        `mapstructure:"token_secret"`
	TokenTTL        time.Duration `mapstructure:"token_ttl"`
	AdminEmails     []string      `mapstructure:"admin_emails"`
	ReminderKeyHash string        `mapstructure:"reminder_key_hash"`
}

type OAuthConfig struct {
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	AuthURL      string   `mapstructure:"auth_url"`
	TokenURL     string   `mapstructure:"token_url"`
	UserInfoURL  string   `mapstructure:"userinfo_url"`
	RedirectURL  string   `mapstructure:"redirect_url"`
	Scopes       []string `mapstructure:"scopes"`
}

type NotifyConfig struct {
	// SkipDisabled excludes disabled subscriptions from update and reminder
	// fan-out. Off by default: disabled subscribers are still notified.
	SkipDisabled bool   `mapstructure:"skip_disabled"`
	Concurrency  int    `mapstructure:"concurrency"`
	Retries      uint64 `mapstructure:"retries"`
}

type EventsConfig struct {
	DefaultTimezone string `mapstructure:"default_timezone"`
}

type RateLimitConfig struct {
	RedisURL string        `mapstructure:"redis_url"`
	Limit    int           `mapstructure:"limit"`
	Window   time.Duration `mapstructure:"window"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.allowed_origins", []string{})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "eventboard.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("auth.token_secret", "")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.admin_emails", []string{})
	v.SetDefault("auth.reminder_key_hash", "")

	v.SetDefault("oauth.client_id", "")
	v.SetDefault("oauth.client_secret", "")
	v.SetDefault("oauth.auth_url", "")
	v.SetDefault("oauth.token_url", "")
	v.SetDefault("oauth.userinfo_url", "")
	v.SetDefault("oauth.redirect_url", "")
	v.SetDefault("oauth.scopes", []string{"openid", "email", "profile"})

	v.SetDefault("notify.skip_disabled", false)
	v.SetDefault("notify.concurrency", 8)
	v.SetDefault("notify.retries", 0)

	v.SetDefault("events.default_timezone", "UTC")

	v.SetDefault("ratelimit.redis_url", "")
	v.SetDefault("ratelimit.limit", 120)
	v.SetDefault("ratelimit.window", time.Minute)
}

// Load reads configuration. path may be empty, in which case only defaults
// and the environment apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Auth.AdminEmails = normalizeEmails(cfg.Auth.AdminEmails)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings every command depends on.
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	if _, err := time.LoadLocation(c.Events.DefaultTimezone); err != nil {
		errs = append(errs, fmt.Errorf("events.default_timezone: %w", err))
	}
	if c.Notify.Concurrency < 0 {
		errs = append(errs, errors.New("notify.concurrency must not be negative"))
	}
	if c.RateLimit.Limit < 0 || (c.RateLimit.Limit > 0 && c.RateLimit.Window <= 0) {
		errs = append(errs, errors.New("ratelimit.window must be positive when ratelimit.limit is set"))
	}
	return errors.Join(errs...)
}

// ValidateServe checks the extra settings the HTTP server needs.
func (c *Config) ValidateServe() error {
	var errs []error
	if len(c.Auth.TokenSecret) < 16 {
		errs = append(errs, errors.New("auth.token_secret must be at least 16 characters"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	return errors.Join(errs...)
}

// DefaultLocation is the zone used for events without a valid timezone.
func (c *Config) DefaultLocation() *time.Location {
	loc, err := time.LoadLocation(c.Events.DefaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsAdminEmail reports whether email is listed in auth.admin_emails.
func (c *Config) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, e := range c.Auth.AdminEmails {
		if e == email {
			return true
		}
	}
	return false
}

func normalizeEmails(in []string) []string {
	out := make([]string, 0, len(in))
	for _, e := range in {
		for _, part := range strings.Split(e, ",") {
			if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
