// Package config loads tunevault settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Storage drivers.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Cache drivers.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Security SecurityConfig
	CORS     CORSConfig
	Logging  LoggingConfig
	Storage  StorageConfig
	Cache    CacheConfig

	// PublicBaseURL is the origin used in share links.
	PublicBaseURL string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL      string // Full PostgreSQL URL
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port int
	Host string
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type SecurityConfig struct {
	JWTSecret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// StorageConfig selects the playlist store.
type StorageConfig struct {
	Driver      string
	AutoMigrate bool
	SeedDemo    bool
}

// CacheConfig selects the read cache backend.
type CacheConfig struct {
	Driver   string
	RedisURL string
	Prefix   string
}

// Load reads config/local.env and .env when present, then the environment.
// Variables already set in the environment win over file values.
func Load() (*Config, error) {
	_ = godotenv.Load("config/local.env")
	_ = godotenv.Load(".env")
	return FromEnv()
}

// FromEnv builds a Config from the current environment without touching
// dotenv files.
func FromEnv() (*Config, error) {
	cfg := &Config{}

	if err := cfg.loadDatabase(); err != nil {
		return nil, fmt.Errorf("load database config: %w", err)
	}
	if err := cfg.loadServer(); err != nil {
		return nil, fmt.Errorf("load server config: %w", err)
	}
	cfg.Security.JWTSecret = os.Getenv("JWT_SECRET")
	cfg.loadCORS()
	cfg.loadLogging()
	if err := cfg.loadStorage(); err != nil {
		return nil, fmt.Errorf("load storage config: %w", err)
	}
	cfg.loadCache()
	cfg.PublicBaseURL = strings.TrimRight(
		getEnvOrDefault("PUBLIC_BASE_URL", fmt.Sprintf("http://localhost:%d", cfg.Server.Port)), "/")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// DatabaseURL loads the dotenv files and resolves only the database
// settings. Tools that just need a connection use it instead of Load.
func DatabaseURL() (string, error) {
	_ = godotenv.Load("config/local.env")
	_ = godotenv.Load(".env")

	cfg := &Config{}
	if err := cfg.loadDatabase(); err != nil {
		return "", err
	}
	if cfg.Database.URL == "" {
		return "", errors.New("DATABASE_URL is required (or DB_HOST, DB_USER, DB_NAME)")
	}
	return cfg.Database.URL, nil
}

func (c *Config) loadDatabase() error {
	c.Database.URL = os.Getenv("DATABASE_URL")
	if c.Database.URL != "" {
		return nil
	}

	c.Database.Host = getEnvOrDefault("DB_HOST", "localhost")
	c.Database.User = os.Getenv("DB_USER")
	c.Database.Password = os.Getenv("DB_PASSWORD")
	c.Database.Name = os.Getenv("DB_NAME")
	c.Database.SSLMode = getEnvOrDefault("DB_SSLMODE", "disable")

	port, err := strconv.Atoi(getEnvOrDefault("DB_PORT", "5432"))
	if err != nil {
		return fmt.Errorf("invalid DB_PORT: %w", err)
	}
	c.Database.Port = port

	if c.Database.User != "" && c.Database.Name != "" {
		c.Database.URL = fmt.Sprintf(
			"postgresql://%s:%s@%s:%d/%s?sslmode=%s",
			c.Database.User,
			c.Database.Password,
			c.Database.Host,
			c.Database.Port,
			c.Database.Name,
			c.Database.SSLMode,
		)
	}
	return nil
}

func (c *Config) loadServer() error {
	port, err := strconv.Atoi(getEnvOrDefault("PORT", "8080"))
	if err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}
	c.Server.Port = port
	c.Server.Host = getEnvOrDefault("HOST", "0.0.0.0")
	return nil
}

func (c *Config) loadCORS() {
	raw := getEnvOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")
	for _, origin := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			c.CORS.AllowedOrigins = append(c.CORS.AllowedOrigins, trimmed)
		}
	}
}

func (c *Config) loadLogging() {
	c.Logging.Level = strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info"))
	c.Logging.Format = strings.ToLower(getEnvOrDefault("LOG_FORMAT", "json"))
}

func (c *Config) loadStorage() error {
	c.Storage.Driver = strings.ToLower(getEnvOrDefault("STORAGE_DRIVER", StoragePostgres))

	var err error
	if c.Storage.AutoMigrate, err = getBool("AUTO_MIGRATE", false); err != nil {
		return err
	}
	if c.Storage.SeedDemo, err = getBool("SEED_DEMO", false); err != nil {
		return err
	}
	return nil
}

func (c *Config) loadCache() {
	c.Cache.Driver = strings.ToLower(getEnvOrDefault("CACHE_DRIVER", CacheMemory))
	c.Cache.RedisURL = os.Getenv("REDIS_URL")
	c.Cache.Prefix = getEnvOrDefault("CACHE_PREFIX", "tunevault:cache")
}

// Validate checks that all required configuration is present and valid
func (c *Config) Validate() error {
	var problems []string

	switch c.Storage.Driver {
	case StoragePostgres:
		if c.Database.URL == "" {
			problems = append(problems, "DATABASE_URL is required (or DB_HOST, DB_USER, DB_NAME)")
		}
	case StorageMemory:
	default:
		problems = append(problems, "STORAGE_DRIVER must be one of: postgres, memory")
	}

	switch c.Cache.Driver {
	case CacheRedis:
		if c.Cache.RedisURL == "" {
			problems = append(problems, "REDIS_URL is required when CACHE_DRIVER=redis")
		}
	case CacheMemory:
	default:
		problems = append(problems, "CACHE_DRIVER must be one of: memory, redis")
	}

	if len(c.Security.JWTSecret) < 16 {
		problems = append(problems, "JWT_SECRET must be at least 16 characters")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		problems = append(problems, "PORT must be between 1 and 65535")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		problems = append(problems, "LOG_LEVEL must be one of: debug, info, warn, error")
	}
	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		problems = append(problems, "LOG_FORMAT must be one of: json, text")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
