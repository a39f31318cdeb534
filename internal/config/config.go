package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Kafka struct {
		Broker  string
		Topic   string
		GroupID string
	}
	DB struct {
		Driver string
		DSN    string
	}
	API struct {
		Port     string
		BasePath string
	}
	Auth struct {
		JWTSecret string
	}
	Logging struct {
		Dir   string
		Level string
	}
	Notification struct {
		MaxConnections int
		WriteTimeout   time.Duration
	}
}

// RelayEnabled reports whether live fan-out goes through Kafka.
func (c Config) RelayEnabled() bool {
	return c.Kafka.Broker != ""
}

// Load reads environment variables, applies defaults, and returns a Config.
func Load() (Config, error) {
	// Load .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from the given lookup function.
func FromEnv(getenv func(string) string) (Config, error) {
	var cfg Config

	// Kafka settings
	cfg.Kafka.Broker = getenv("KAFKA_BROKER")
	cfg.Kafka.Topic = getenv("KAFKA_TOPIC")
	cfg.Kafka.GroupID = getenv("KAFKA_GROUP_ID")

	// Database
	cfg.DB.Driver = getenv("DB_DRIVER")
	cfg.DB.DSN = getenv("DB_DSN")

	// API settings
	cfg.API.Port = getenv("API_PORT")
	cfg.API.BasePath = getenv("API_BASE_PATH")

	cfg.Auth.JWTSecret = getenv("JWT_SECRET")

	cfg.Logging.Dir = getenv("LOG_DIR")
	cfg.Logging.Level = getenv("LOG_LEVEL")

	// Live connection settings
	if mc, err := strconv.Atoi(getenv("NOTIFICATION_MAX_CONNECTIONS")); err == nil {
		cfg.Notification.MaxConnections = mc
	}
	if wt, err := strconv.Atoi(getenv("WS_WRITE_TIMEOUT_SECONDS")); err == nil {
		cfg.Notification.WriteTimeout = time.Duration(wt) * time.Second
	}

	// Apply defaults
	if cfg.DB.Driver == "" {
		cfg.DB.Driver = "postgres"
	}
	if cfg.API.Port == "" {
		cfg.API.Port = ":8080"
	}
	if cfg.API.BasePath == "" {
		cfg.API.BasePath = "/api/v0"
	}
	if cfg.Logging.Dir == "" {
		cfg.Logging.Dir = "logs"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "org_notifications"
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "volunteer-service"
	}
	if cfg.Notification.MaxConnections <= 0 {
		cfg.Notification.MaxConnections = 10
	}
	if cfg.Notification.WriteTimeout <= 0 {
		cfg.Notification.WriteTimeout = 10 * time.Second
	}

	// Validate required settings
	missing := []string{}
	if cfg.DB.Driver == "postgres" && cfg.DB.DSN == "" {
		missing = append(missing, "DB_DSN")
	}
	if cfg.Auth.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configurations: %v", missing)
	}
	if cfg.DB.Driver != "postgres" && cfg.DB.Driver != "memory" {
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DB.Driver)
	}

	return cfg, nil
}
