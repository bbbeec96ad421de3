package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Metadata  MetadataConfig  `mapstructure:"metadata"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Content   ContentConfig   `mapstructure:"content"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// SecureCookies marks session cookies Secure; enable behind HTTPS.
	SecureCookies bool `mapstructure:"secure_cookies"`
}

// DatabaseConfig holds database configuration.
// Driver is "sqlite" (Path is used) or "postgres" (DSN is used).
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
	DSN    string `mapstructure:"dsn"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// AuthConfig holds session and password configuration.
type AuthConfig struct {
	JWTSecret  string        `mapstructure:"jwt_secret"`
	BcryptCost int           `mapstructure:"bcrypt_cost"`
	CookieName string        `mapstructure:"cookie_name"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

// MetadataConfig holds upstream metadata provider configuration.
type MetadataConfig struct {
	TMDB TMDBConfig `mapstructure:"tmdb"`
}

// TMDBConfig holds TMDB API settings. Timeout is in seconds.
type TMDBConfig struct {
	APIKey       string `mapstructure:"api_key"`
	BaseURL      string `mapstructure:"base_url"`
	ImageBaseURL string `mapstructure:"image_base_url"`
	Timeout      int    `mapstructure:"timeout"`
	MaxRetries   uint   `mapstructure:"max_retries"`
	Language     string `mapstructure:"language"`
}

// CacheConfig selects the upstream response cache.
// Driver is "memory" or "redis".
type CacheConfig struct {
	Driver   string        `mapstructure:"driver"`
	TTL      time.Duration `mapstructure:"ttl"`
	MaxItems int           `mapstructure:"max_items"`
	Redis    RedisConfig   `mapstructure:"redis"`

	// MaxVisitors bounds the number of per-visitor browse caches kept in memory.
	MaxVisitors int `mapstructure:"max_visitors"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RateLimitConfig configures the per-client request limiter.
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// ContentConfig configures the content blocklist.
type ContentConfig struct {
	BlocklistPath string   `mapstructure:"blocklist_path"`
	Blocklist     []string `mapstructure:"blocklist"`
}

// SchedulerConfig holds cron expressions for background tasks.
type SchedulerConfig struct {
	GenreRefreshCron string `mapstructure:"genre_refresh_cron"`
	CleanupCron      string `mapstructure:"cleanup_cron"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   "./data/reelscout.db",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		Auth: AuthConfig{
			BcryptCost: 12,
			CookieName: "reelscout_session",
			SessionTTL: 7 * 24 * time.Hour,
		},
		Metadata: MetadataConfig{
			TMDB: TMDBConfig{
				APIKey:       EmbeddedTMDBKey,
				BaseURL:      "https://api.themoviedb.org/3",
				ImageBaseURL: "https://image.tmdb.org/t/p",
				Timeout:      15,
				MaxRetries:   3,
				Language:     "en-US",
			},
		},
		Cache: CacheConfig{
			Driver:      "memory",
			TTL:         time.Hour,
			MaxItems:    2000,
			MaxVisitors: 1024,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 10,
			Burst:             30,
		},
		Scheduler: SchedulerConfig{
			GenreRefreshCron: "0 4 * * *",
			CleanupCron:      "*/10 * * * *",
		},
	}
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > .env > config file > defaults
func Load(configPath string) (*Config, error) {
	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.reelscout")
	}

	v.SetEnvPrefix("REELSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// TMDB_API_KEY is the conventional name used by most tooling.
	if cfg.Metadata.TMDB.APIKey == "" {
		cfg.Metadata.TMDB.APIKey = v.GetString("tmdb_api_key")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setDefaults mirrors Default so every key is known to viper for env binding.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.secure_cookies", d.Server.SecureCookies)

	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("database.dsn", "")

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.max_size_mb", d.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)
	v.SetDefault("logging.max_age_days", d.Logging.MaxAgeDays)
	v.SetDefault("logging.compress", false)

	v.SetDefault("auth.jwt_secret", "") // generated if empty
	v.SetDefault("auth.bcrypt_cost", d.Auth.BcryptCost)
	v.SetDefault("auth.cookie_name", d.Auth.CookieName)
	v.SetDefault("auth.session_ttl", d.Auth.SessionTTL)

	v.SetDefault("metadata.tmdb.api_key", d.Metadata.TMDB.APIKey)
	v.SetDefault("metadata.tmdb.base_url", d.Metadata.TMDB.BaseURL)
	v.SetDefault("metadata.tmdb.image_base_url", d.Metadata.TMDB.ImageBaseURL)
	v.SetDefault("metadata.tmdb.timeout", d.Metadata.TMDB.Timeout)
	v.SetDefault("metadata.tmdb.max_retries", d.Metadata.TMDB.MaxRetries)
	v.SetDefault("metadata.tmdb.language", d.Metadata.TMDB.Language)
	v.SetDefault("tmdb_api_key", "")

	v.SetDefault("cache.driver", d.Cache.Driver)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.max_items", d.Cache.MaxItems)
	v.SetDefault("cache.max_visitors", d.Cache.MaxVisitors)
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)

	v.SetDefault("ratelimit.enabled", d.RateLimit.Enabled)
	v.SetDefault("ratelimit.requests_per_second", d.RateLimit.RequestsPerSecond)
	v.SetDefault("ratelimit.burst", d.RateLimit.Burst)

	v.SetDefault("content.blocklist_path", "")
	v.SetDefault("content.blocklist", []string{})

	v.SetDefault("scheduler.genre_refresh_cron", d.Scheduler.GenreRefreshCron)
	v.SetDefault("scheduler.cleanup_cron", d.Scheduler.CleanupCron)
}

// Validate checks values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New("database.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return errors.New("database.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	switch c.Cache.Driver {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported cache driver %q", c.Cache.Driver)
	}

	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("auth.bcrypt_cost must be between 4 and 31, got %d", c.Auth.BcryptCost)
	}

	return nil
}

// Address returns the server address string.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
