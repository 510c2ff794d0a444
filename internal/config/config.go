package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/R3E-Network/app_registry/pkg/logger"
)

// Storage drivers understood by the factory.
const (
	DriverFile     = "file"
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Config is the configuration shared by the backend, gateway and CLI.
type Config struct {
	Server    ServerConfig         `yaml:"server"`
	Storage   StorageConfig        `yaml:"storage"`
	Gateway   GatewayConfig        `yaml:"gateway"`
	Logging   logger.LoggingConfig `yaml:"logging"`
	CORS      CORSConfig           `yaml:"cors"`
	RateLimit RateLimitConfig      `yaml:"rate_limit"`
	Audit     AuditConfig          `yaml:"audit"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host            string        `yaml:"host" env:"HOST"`
	Port            int           `yaml:"port" env:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig selects and configures the collection backend.
type StorageConfig struct {
	Driver   string `yaml:"driver" env:"STORAGE_DRIVER"`
	DataFile string `yaml:"data_file" env:"DATA_FILE"`
	// Document names the postgres row or redis key holding the collection.
	Document      string `yaml:"document" env:"STORAGE_DOCUMENT"`
	DatabaseURL   string `yaml:"database_url" env:"DATABASE_URL"`
	Migrate       bool   `yaml:"migrate" env:"DATABASE_MIGRATE"`
	RedisAddr     string `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"REDIS_DB"`
}

// GatewayConfig configures the API gateway's upstream.
type GatewayConfig struct {
	Port       int           `yaml:"port" env:"GATEWAY_PORT"`
	BackendURL string        `yaml:"backend_url" env:"BACKEND_URL"`
	Timeout    time.Duration `yaml:"timeout" env:"BACKEND_TIMEOUT"`
	MaxRetries int           `yaml:"max_retries" env:"BACKEND_MAX_RETRIES"`
}

// CORSConfig lists allowed origins; "*" allows any.
type CORSConfig struct {
	AllowedOrigins string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
}

// Origins splits AllowedOrigins on commas.
func (c CORSConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// RateLimitConfig configures per-client request limiting. Zero RPS disables
// it.
type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second" env:"RATE_LIMIT_RPS"`
	Burst             int `yaml:"burst" env:"RATE_LIMIT_BURST"`
}

// AuditConfig schedules the background collection audit. An empty schedule
// disables it.
type AuditConfig struct {
	Schedule string `yaml:"schedule" env:"AUDIT_SCHEDULE"`
}

// Default returns the configuration used when nothing else is supplied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            3000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Driver:   DriverFile,
			DataFile: "EKSdetUseCase.json",
		},
		Gateway: GatewayConfig{
			Port:       8080,
			BackendURL: "http://localhost:3000",
			Timeout:    10 * time.Second,
			MaxRetries: 2,
		},
		Logging: logger.LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		CORS:  CORSConfig{AllowedOrigins: "*"},
		Audit: AuditConfig{Schedule: "@every 5m"},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is non-empty), then a .env file in the working directory (if present),
// then environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	// an empty file decodes to io.EOF and leaves the defaults in place
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

// Validate reports configuration that cannot work.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server: invalid port %d", c.Server.Port)
	}
	switch c.Storage.Driver {
	case DriverFile:
		if strings.TrimSpace(c.Storage.DataFile) == "" {
			return errors.New("storage: data_file is required for the file driver")
		}
	case DriverMemory:
	case DriverPostgres:
		if strings.TrimSpace(c.Storage.DatabaseURL) == "" {
			return errors.New("storage: database_url is required for the postgres driver")
		}
	case DriverRedis:
		if strings.TrimSpace(c.Storage.RedisAddr) == "" {
			return errors.New("storage: redis_addr is required for the redis driver")
		}
	default:
		return fmt.Errorf("storage: unknown driver %q", c.Storage.Driver)
	}
	if c.Gateway.Port <= 0 || c.Gateway.Port > 65535 {
		return fmt.Errorf("gateway: invalid port %d", c.Gateway.Port)
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		return errors.New("rate_limit: values must not be negative")
	}
	return nil
}
