package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "DISPATCH"

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Geocoder GeocoderConfig `mapstructure:"geocoder"`
	Cache    CacheConfig    `mapstructure:"cache"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
	// Seconds. Route planning on a cold cache is bounded by external API latency.
	ReadTimeout    int `mapstructure:"read_timeout"`
	WriteTimeout   int `mapstructure:"write_timeout"`
	RequestTimeout int `mapstructure:"request_timeout"`
	MaxUploadBytes int `mapstructure:"max_upload_bytes"`
}

func (s ServerConfig) Addr() string { return fmt.Sprintf(":%d", s.Port) }

func (s ServerConfig) RequestTimeoutDuration() time.Duration {
	return time.Duration(s.RequestTimeout) * time.Second
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type GeocoderConfig struct {
	Provider       string `mapstructure:"provider"` // nominatim | ors
	NominatimURL   string `mapstructure:"nominatim_url"`
	UserAgent      string `mapstructure:"user_agent"`
	RegionSuffix   string `mapstructure:"region_suffix"`
	ORSAPIKey      string `mapstructure:"ors_api_key"`
	ORSURL         string `mapstructure:"ors_url"`
	Country        string `mapstructure:"country"`
	Concurrency    int    `mapstructure:"concurrency"`
	RetryBackoffMS int    `mapstructure:"retry_backoff_ms"`
}

func (g GeocoderConfig) RetryBackoff() time.Duration {
	return time.Duration(g.RetryBackoffMS) * time.Millisecond
}

type CacheConfig struct {
	Backend    string `mapstructure:"backend"` // postgres | sqlite | redis | none
	SqlitePath string `mapstructure:"sqlite_path"`
	RedisAddr  string `mapstructure:"redis_addr"`
	TTLHours   int    `mapstructure:"ttl_hours"`
}

func (c CacheConfig) TTL() time.Duration { return time.Duration(c.TTLHours) * time.Hour }

// NATSConfig: an empty URL disables status events.
type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type StorageConfig struct {
	ProofDir string `mapstructure:"proof_dir"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from .env, an optional YAML file and environment variables,
// in increasing order of precedence. configFile, when non-empty, must exist; otherwise
// config.yaml is looked up in . and ./configs and skipped if missing.
//
// Environment variables use the DISPATCH_ prefix: DISPATCH_CACHE_BACKEND -> cache.backend.
// DATABASE_URL and ORS_API_KEY are honoured without the prefix.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found (using environment variables)")
	}

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %q: %w", configFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("database.url", envPrefix+"_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("geocoder.ors_api_key", envPrefix+"_GEOCODER_ORS_API_KEY", "ORS_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 120)
	v.SetDefault("server.request_timeout", 60)
	v.SetDefault("server.max_upload_bytes", 10<<20)
	v.SetDefault("database.url", "")
	v.SetDefault("geocoder.provider", "nominatim")
	v.SetDefault("geocoder.nominatim_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocoder.user_agent", "parcel-dispatch-service/1.0")
	v.SetDefault("geocoder.region_suffix", ", Tamil Nadu, India")
	v.SetDefault("geocoder.ors_api_key", "")
	v.SetDefault("geocoder.ors_url", "https://api.openrouteservice.org")
	v.SetDefault("geocoder.country", "IN")
	v.SetDefault("geocoder.concurrency", 4)
	v.SetDefault("geocoder.retry_backoff_ms", 250)
	v.SetDefault("cache.backend", "postgres")
	v.SetDefault("cache.sqlite_path", "data/geocode_cache.db")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.ttl_hours", 24*30)
	v.SetDefault("nats.url", "")
	v.SetDefault("storage.proof_dir", "uploads")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, "server.request_timeout must be positive")
	}
	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, "server.max_upload_bytes must be positive")
	}
	if strings.TrimSpace(c.Database.URL) == "" {
		errs = append(errs, "database.url (or DATABASE_URL) is required")
	}

	switch c.Geocoder.Provider {
	case "nominatim":
	case "ors":
		if strings.TrimSpace(c.Geocoder.ORSAPIKey) == "" {
			errs = append(errs, "geocoder.ors_api_key (or ORS_API_KEY) is required for the ors provider")
		}
	default:
		errs = append(errs, fmt.Sprintf("geocoder.provider must be nominatim or ors, got %q", c.Geocoder.Provider))
	}
	if c.Geocoder.Concurrency <= 0 {
		errs = append(errs, "geocoder.concurrency must be positive")
	}
	if c.Geocoder.RetryBackoffMS < 0 {
		errs = append(errs, "geocoder.retry_backoff_ms must not be negative")
	}

	switch c.Cache.Backend {
	case "postgres", "none":
	case "sqlite":
		if c.Cache.SqlitePath == "" {
			errs = append(errs, "cache.sqlite_path is required for the sqlite backend")
		}
	case "redis":
		if c.Cache.RedisAddr == "" {
			errs = append(errs, "cache.redis_addr is required for the redis backend")
		}
		if c.Cache.TTLHours <= 0 {
			errs = append(errs, "cache.ttl_hours must be positive for the redis backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("cache.backend must be postgres, sqlite, redis or none, got %q", c.Cache.Backend))
	}

	if c.Storage.ProofDir == "" {
		errs = append(errs, "storage.proof_dir is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
