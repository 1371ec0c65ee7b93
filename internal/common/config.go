package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Storage  StorageConfig
	Engine   EngineConfig
	Auth     AuthConfig
	Jobs     JobsConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr           string
	AllowedOrigins string
}

// StorageConfig holds object-storage (S3-compatible) configuration
type StorageConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PresignExpiry time.Duration
	MaxFileSizeMB int64
}

// EngineConfig holds comparison-engine (LLM) configuration
type EngineConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// AuthConfig holds identity-provider configuration.
// Mode "static" uses StaticUserID for every request (dev/test);
// mode "jwt" verifies bearer tokens against JWKSURL.
type AuthConfig struct {
	Mode         string
	StaticUserID string
	JWKSURL      string
	Issuer       string
	JWKSRefresh  time.Duration
}

// JobsConfig holds background processing configuration
type JobsConfig struct {
	Timeout            time.Duration
	PDFRetentionHours  int
	ResultRetentionDay int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:             getEnv("DB_URL", ""),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Server: ServerConfig{
			Addr:           getEnv("HTTP_ADDR", ":3001"),
			AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),
		},
		Storage: StorageConfig{
			Endpoint:      getEnv("STORAGE_ENDPOINT", ""),
			AccessKey:     getEnv("STORAGE_ACCESS_KEY", ""),
			SecretKey:     getEnv("STORAGE_SECRET_KEY", ""),
			Bucket:        getEnv("STORAGE_BUCKET", "prisere-policies"),
			UseSSL:        getEnvAsBool("STORAGE_USE_SSL", true),
			PresignExpiry: getEnvAsDuration("STORAGE_PRESIGN_EXPIRY", time.Hour),
			MaxFileSizeMB: int64(getEnvAsInt("MAX_FILE_SIZE_MB", 25)),
		},
		Engine: EngineConfig{
			BaseURL:     getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
			APIKey:      getEnv("LLM_API_KEY", ""),
			Model:       getEnv("LLM_MODEL", "gpt-4o-mini"),
			Temperature: getEnvAsFloat32("LLM_TEMPERATURE", 0.2),
			MaxTokens:   getEnvAsInt("LLM_MAX_TOKENS", 4096),
			Timeout:     getEnvAsDuration("LLM_TIMEOUT", 90*time.Second),
		},
		Auth: AuthConfig{
			Mode:         getEnv("AUTH_MODE", "static"),
			StaticUserID: getEnv("AUTH_STATIC_USER_ID", "dev_user"),
			JWKSURL:      getEnv("AUTH_JWKS_URL", ""),
			Issuer:       getEnv("AUTH_ISSUER", ""),
			JWKSRefresh:  getEnvAsDuration("AUTH_JWKS_REFRESH", 15*time.Minute),
		},
		Jobs: JobsConfig{
			Timeout:            getEnvAsDuration("JOB_TIMEOUT", 2*time.Minute),
			PDFRetentionHours:  getEnvAsInt("PDF_RETENTION_HOURS", 24),
			ResultRetentionDay: getEnvAsInt("RESULT_RETENTION_DAYS", 365),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Storage.Endpoint == "" {
		return NewAppError("CONFIG_ERROR", "STORAGE_ENDPOINT is required", ErrInvalidInput)
	}
	if c.Engine.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "LLM_API_KEY is required", ErrInvalidInput)
	}
	if c.Auth.Mode == "jwt" && c.Auth.JWKSURL == "" {
		return NewAppError("CONFIG_ERROR", "AUTH_JWKS_URL is required in jwt mode", ErrInvalidInput)
	}
	if mode := c.Auth.Mode; mode != "static" && mode != "jwt" {
		return NewAppError("CONFIG_ERROR", "AUTH_MODE must be static or jwt", ErrInvalidInput)
	}
	return nil
}

// CORSOrigins returns the configured origins as a comma-trimmed list.
func (c *ServerConfig) CORSOrigins() []string {
	parts := strings.Split(c.AllowedOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// MaxFileSizeBytes converts the configured upload cap from MB to bytes.
func (c *StorageConfig) MaxFileSizeBytes() int64 {
	return c.MaxFileSizeMB * 1024 * 1024
}
