package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server    ServerConfig
	App       AppConfig
	Store     StoreConfig
	MasterDB  MasterDBConfig
	Mongo     MongoConfig
	Cache     CacheConfig
	Scanner   ScannerConfig
	Retention RetentionConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"scanhub-api"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Debug       bool   `envconfig:"APP_DEBUG" default:"false"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
	APIKey      string `envconfig:"API_KEY" default:""`   // client API key, empty disables auth
	LoginKey    string `envconfig:"LOGIN_KEY" default:""` // admin stats login key
}

// StoreConfig holds primary store settings (products, scan logs, sessions).
type StoreConfig struct {
	Type string `envconfig:"STORE_TYPE" default:"sqlite"` // sqlite or postgres
	Path string `envconfig:"STORE_PATH" default:"./data/scanhub.db"`
	// PostgreSQL settings
	Host     string `envconfig:"STORE_HOST" default:"localhost"`
	Port     int    `envconfig:"STORE_PORT" default:"5432"`
	Name     string `envconfig:"STORE_NAME" default:"scanhub"`
	User     string `envconfig:"STORE_USER" default:"postgres"`
	Password string `envconfig:"STORE_PASS" default:""`
	SSLMode  string `envconfig:"STORE_SSLMODE" default:"disable"`
}

// MasterDBConfig holds MySQL settings for the shared master product catalog.
// Master lookups run in degraded mode when Enabled is false.
type MasterDBConfig struct {
	Enabled  bool   `envconfig:"MASTER_DB_ENABLED" default:"false"`
	Host     string `envconfig:"MASTER_DB_HOST" default:"localhost"`
	Port     int    `envconfig:"MASTER_DB_PORT" default:"3306"`
	Name     string `envconfig:"MASTER_DB_NAME" default:"master_catalog"`
	User     string `envconfig:"MASTER_DB_USER" default:"root"`
	Password string `envconfig:"MASTER_DB_PASS" default:""`
}

// MongoConfig holds the optional scan-log telemetry sink settings.
type MongoConfig struct {
	URI        string `envconfig:"MONGODB_URI" default:""`
	Database   string `envconfig:"MONGODB_DATABASE" default:"scanhub"`
	Collection string `envconfig:"MONGODB_COLLECTION" default:"scan_logs"`
}

// CacheConfig holds lookup cache and scan-log buffer settings.
type CacheConfig struct {
	LookupTTL time.Duration `envconfig:"CACHE_LOOKUP_TTL" default:"30s"`

	BufferEnabled       bool          `envconfig:"BUFFER_ENABLED" default:"false"`
	BufferFlushInterval time.Duration `envconfig:"BUFFER_FLUSH_INTERVAL" default:"10s"`
	RedisHost           string        `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort           int           `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword       string        `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB             int           `envconfig:"REDIS_DB" default:"0"`
}

// ScannerConfig holds scan loop settings for the live camera pipeline.
type ScannerConfig struct {
	TickInterval time.Duration `envconfig:"SCANNER_TICK_INTERVAL" default:"300ms"`
	Cooldown     time.Duration `envconfig:"SCANNER_COOLDOWN" default:"1500ms"`
	BackURL      string        `envconfig:"SCANNER_BACK_URL" default:""`
	FrontURL     string        `envconfig:"SCANNER_FRONT_URL" default:""`
	TorchOnURL   string        `envconfig:"SCANNER_TORCH_ON_URL" default:""`
	TorchOffURL  string        `envconfig:"SCANNER_TORCH_OFF_URL" default:""`
}

// RetentionConfig holds scan log retention settings.
type RetentionConfig struct {
	MaxAge   time.Duration `envconfig:"RETENTION_MAX_AGE" default:"2160h"` // 90 days
	Interval time.Duration `envconfig:"RETENTION_INTERVAL" default:"24h"`
}

// PostgresDSN returns the PostgreSQL connection string.
func (s *StoreConfig) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		s.User, s.Password, s.Host, s.Port, s.Name, s.SSLMode)
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// DSN returns the MySQL data source name for the master catalog.
func (d *MasterDBConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
