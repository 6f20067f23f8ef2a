package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds all configuration for the application
type Config struct {
	App      AppConfig
	Reddit   RedditConfig
	Database DatabaseConfig
	Server   ServerConfig
}

// AppConfig holds application-level configuration
type AppConfig struct {
	Name    string
	Version string
}

// RedditConfig holds Reddit API configuration
type RedditConfig struct {
	ClientID             string
	ClientSecret         string
	UserAgent            string
	CommentLimit         int
	MaxRequestsPerMinute int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port              int
	AllowOrigins      []string
	RequestsPerMinute int
}

// LoadConfig loads configuration from a .env file and the environment.
// A missing .env file is not an error; variables may come from the environment alone.
func LoadConfig(envPath string, log *logrus.Logger) (*Config, error) {
	if envPath == "" {
		envPath = ".env"
	}

	if err := godotenv.Load(envPath); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
		log.WithField("file", envPath).Debug("No .env file found, using environment only")
	}

	config := &Config{
		App: AppConfig{
			Name:    getEnv("APP_NAME", "Thread Analyzer"),
			Version: getEnv("APP_VERSION", "1.0.0"),
		},
		Reddit: RedditConfig{
			ClientID:             getEnv("REDDIT_CLIENT_ID", ""),
			ClientSecret:         getEnv("REDDIT_CLIENT_SECRET", ""),
			UserAgent:            getEnv("REDDIT_USER_AGENT", "RedditAnalyzer/1.0"),
			CommentLimit:         getEnvAsInt("REDDIT_COMMENT_LIMIT", 500),
			MaxRequestsPerMinute: getEnvAsInt("REDDIT_MAX_REQUESTS_PER_MINUTE", 100),
		},
		Database: DatabaseConfig{
			Path: getEnv("DATABASE_PATH", "./reddit.db"),
		},
		Server: ServerConfig{
			Port:              getEnvAsInt("SERVER_PORT", 3000),
			AllowOrigins:      parseList(getEnv("CORS_ALLOW_ORIGINS", "*")),
			RequestsPerMinute: getEnvAsInt("SERVER_REQUESTS_PER_MINUTE", 120),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	log.WithField("file", envPath).Info("Config loaded successfully")
	return config, nil
}

// parseList parses a comma-separated list, dropping empty entries
func parseList(value string) []string {
	parts := strings.Split(value, ",")

	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}

	return items
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt gets an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(strings.TrimSpace(valueStr)); err == nil {
		return value
	}
	return defaultValue
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	// OAuth is optional, but a half configured pair is almost certainly a mistake
	if (config.Reddit.ClientID == "") != (config.Reddit.ClientSecret == "") {
		return fmt.Errorf("REDDIT_CLIENT_ID and REDDIT_CLIENT_SECRET must be set together")
	}

	// Reddit rejects requests with generic user agents
	if strings.TrimSpace(config.Reddit.UserAgent) == "" {
		return fmt.Errorf("REDDIT_USER_AGENT environment variable is required")
	}
	if config.Reddit.CommentLimit < 1 {
		return fmt.Errorf("REDDIT_COMMENT_LIMIT must be positive")
	}
	if config.Reddit.MaxRequestsPerMinute < 1 {
		return fmt.Errorf("REDDIT_MAX_REQUESTS_PER_MINUTE must be positive")
	}
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535")
	}
	if len(config.Server.AllowOrigins) == 0 {
		return fmt.Errorf("CORS_ALLOW_ORIGINS must list at least one origin")
	}

	// if we are storing the db in a nested directory, create the directory
	dbDir := filepath.Dir(config.Database.Path)
	if config.Database.Path != ":memory:" && dbDir != "." && dbDir != "" {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	return nil
}
