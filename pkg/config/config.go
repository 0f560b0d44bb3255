package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends accepted by CLINIC_STORE
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	OTEL     OTELConfig
	Clinic   ClinicConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string
	Port int
	Env  string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	StatementTimeout time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	Enabled  bool
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// ClinicConfig holds workflow settings
type ClinicConfig struct {
	Store              string
	TimeZone           string
	Location           *time.Location
	DefaultRegion      string
	LowStockThreshold  int
	TokenMaxAttempts   int
	DoctorCacheSeconds int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
			Env:  getEnv("APP_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:             getEnv("DB_HOST", "localhost"),
			Port:             getEnvAsInt("DB_PORT", 5432),
			User:             getEnv("DB_USER", "postgres"),
			Password:         getEnv("DB_PASSWORD", ""),
			Database:         getEnv("DB_NAME", "clinicflow"),
			SSLMode:          getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 5*time.Second),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "clinicflow"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		Clinic: ClinicConfig{
			Store:              strings.ToLower(getEnv("CLINIC_STORE", StorePostgres)),
			TimeZone:           getEnv("CLINIC_TIMEZONE", "Local"),
			DefaultRegion:      strings.ToUpper(getEnv("CLINIC_DEFAULT_REGION", "IN")),
			LowStockThreshold:  getEnvAsInt("CLINIC_LOW_STOCK_THRESHOLD", 20),
			TokenMaxAttempts:   getEnvAsInt("CLINIC_TOKEN_MAX_ATTEMPTS", 5),
			DoctorCacheSeconds: getEnvAsInt("CLINIC_DOCTOR_CACHE_SECONDS", 300),
		},
	}

	loc, err := time.LoadLocation(cfg.Clinic.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid CLINIC_TIMEZONE %q: %w", cfg.Clinic.TimeZone, err)
	}
	cfg.Clinic.Location = loc

	switch cfg.Clinic.Store {
	case StorePostgres, StoreMemory:
	default:
		return nil, fmt.Errorf("invalid CLINIC_STORE %q: want %s or %s", cfg.Clinic.Store, StorePostgres, StoreMemory)
	}

	return cfg, nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
