package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the ARITANA server and CLI.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Gateway   GatewayConfig
	Tracking  TrackingConfig
	Timeline  TimelineConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// GatewayConfig configures the external classification service client.
type GatewayConfig struct {
	BaseURL         string
	APIKey          string
	SubmitTimeout   time.Duration
	PollTimeout     time.Duration
	FetchTimeout    time.Duration
	HealthTimeout   time.Duration
	CatalogTimeout  time.Duration
	MaxRetries      int
	RetryInterval   time.Duration
	CatalogPageSize int
	CatalogMaxPages int
}

type TrackingConfig struct {
	MaxPollAttempts int
}

type TimelineConfig struct {
	PageSize    int
	MaxPageSize int
	// RemoteTimezone is the IANA zone of catalog timestamps that carry no offset.
	RemoteTimezone string
}

// Location resolves RemoteTimezone, defaulting to UTC. validate rejects unknown zones.
func (t TimelineConfig) Location() *time.Location {
	loc, err := time.LoadLocation(t.RemoteTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type CacheConfig struct {
	CatalogTTL time.Duration
	ListingTTL time.Duration
	StatsTTL   time.Duration
}

type RateLimitConfig struct {
	PerMinute int
	// TrustProxy takes the client address from X-Forwarded-For/X-Real-IP. Enable it only
	// behind a reverse proxy that overwrites those headers.
	TrustProxy bool
}

type LogConfig struct {
	Level  string
	Format string
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// Load reads configuration from environment variables and returns a validated Config.
// A .env file (or the file named by ENV_FILE) is loaded first when present; variables
// already set in the environment take precedence over it.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	return LoadFrom(envString("ENV_FILE", ".env"))
}

// LoadFrom is Load with an explicit env file path.
func LoadFrom(envFile string) (*Config, error) {
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("ARITANA_PORT", 8080),
			Env:  envString("ARITANA_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Gateway: gatewayFromEnv(),
		Tracking: TrackingConfig{
			MaxPollAttempts: envInt("TRACKING_MAX_POLL_ATTEMPTS", 30),
		},
		Timeline: TimelineConfig{
			PageSize:       envInt("TIMELINE_PAGE_SIZE", 20),
			MaxPageSize:    envInt("TIMELINE_MAX_PAGE_SIZE", 100),
			RemoteTimezone: envString("TIMELINE_REMOTE_TIMEZONE", "UTC"),
		},
		Cache: CacheConfig{
			CatalogTTL: envDuration("CACHE_CATALOG_TTL", 10*time.Minute),
			ListingTTL: envDuration("CACHE_LISTING_TTL", 5*time.Minute),
			StatsTTL:   envDuration("CACHE_STATS_TTL", 5*time.Minute),
		},
		RateLimit: RateLimitConfig{
			PerMinute:  envInt("RATE_LIMIT_PER_MINUTE", 120),
			TrustProxy: envBool("RATE_LIMIT_TRUST_PROXY", false),
		},
		Log: LogConfig{
			Level:  envString("LOG_LEVEL", "info"),
			Format: strings.ToLower(envString("LOG_FORMAT", "json")),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadGateway reads only the gateway settings, for tools that talk to the gateway alone.
func LoadGateway(envFile string) (GatewayConfig, error) {
	if err := loadEnvFile(envFile); err != nil {
		return GatewayConfig{}, err
	}
	g := gatewayFromEnv()
	if err := g.validate(); err != nil {
		return GatewayConfig{}, err
	}
	return g, nil
}

func gatewayFromEnv() GatewayConfig {
	return GatewayConfig{
		BaseURL:         strings.TrimRight(os.Getenv("GATEWAY_BASE_URL"), "/"),
		APIKey:          os.Getenv("GATEWAY_API_KEY"),
		SubmitTimeout:   envDuration("GATEWAY_SUBMIT_TIMEOUT", 180*time.Second),
		PollTimeout:     envDuration("GATEWAY_POLL_TIMEOUT", 15*time.Second),
		FetchTimeout:    envDuration("GATEWAY_FETCH_TIMEOUT", 15*time.Second),
		HealthTimeout:   envDuration("GATEWAY_HEALTH_TIMEOUT", 5*time.Second),
		CatalogTimeout:  envDuration("GATEWAY_CATALOG_TIMEOUT", 15*time.Second),
		MaxRetries:      envInt("GATEWAY_MAX_RETRIES", 2),
		RetryInterval:   envDuration("GATEWAY_RETRY_INTERVAL", time.Second),
		CatalogPageSize: envInt("GATEWAY_CATALOG_PAGE_SIZE", 100),
		CatalogMaxPages: envInt("GATEWAY_CATALOG_MAX_PAGES", 10),
	}
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if err := c.Gateway.validate(); err != nil {
		return err
	}

	if c.Tracking.MaxPollAttempts <= 0 {
		return fmt.Errorf("TRACKING_MAX_POLL_ATTEMPTS must be positive, got %d", c.Tracking.MaxPollAttempts)
	}

	if c.Timeline.PageSize <= 0 {
		return fmt.Errorf("TIMELINE_PAGE_SIZE must be positive, got %d", c.Timeline.PageSize)
	}
	if c.Timeline.MaxPageSize < c.Timeline.PageSize {
		return fmt.Errorf("TIMELINE_MAX_PAGE_SIZE (%d) must not be below TIMELINE_PAGE_SIZE (%d)",
			c.Timeline.MaxPageSize, c.Timeline.PageSize)
	}
	if _, err := time.LoadLocation(c.Timeline.RemoteTimezone); err != nil {
		return fmt.Errorf("TIMELINE_REMOTE_TIMEZONE must be an IANA zone name, got %q", c.Timeline.RemoteTimezone)
	}

	if !validLogFormats[c.Log.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of json, console; got %q", c.Log.Format)
	}

	return nil
}

func (g GatewayConfig) validate() error {
	if g.BaseURL == "" {
		return fmt.Errorf("GATEWAY_BASE_URL is required")
	}
	if !strings.HasPrefix(g.BaseURL, "http://") && !strings.HasPrefix(g.BaseURL, "https://") {
		return fmt.Errorf("GATEWAY_BASE_URL must start with http:// or https://, got %q", g.BaseURL)
	}
	if g.APIKey == "" {
		return fmt.Errorf("GATEWAY_API_KEY is required")
	}
	if g.MaxRetries < 0 {
		return fmt.Errorf("GATEWAY_MAX_RETRIES must not be negative, got %d", g.MaxRetries)
	}
	if g.CatalogPageSize <= 0 {
		return fmt.Errorf("GATEWAY_CATALOG_PAGE_SIZE must be positive, got %d", g.CatalogPageSize)
	}
	if g.CatalogMaxPages <= 0 {
		return fmt.Errorf("GATEWAY_CATALOG_MAX_PAGES must be positive, got %d", g.CatalogMaxPages)
	}
	return nil
}

// loadEnvFile loads path when it exists. A missing file is not an error.
func loadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

// envDuration accepts Go duration strings ("15s", "10m") or a bare number of seconds.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
