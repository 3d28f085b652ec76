package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// apiPresets maps each deployment environment to its gameplay service address.
var apiPresets = map[string]string{
	"development": "http://localhost:7001",
	"test":        "https://api.jingpersonal.click:6001",
	"production":  "https://api.jingpersonal.click:6001",
}

type Config struct {
	Environment string
	APIBaseURL  string // preset address unless BOARDGAME_API_URL is set
	HTTPTimeout time.Duration
	LogLevel    slog.Level
	LogFile     string
	Port        string
	RedisURL    string
	RandomSeed  uint64
}

// LoadDotEnv reads KEY=value pairs from the given files into the process
// environment without overriding variables that are already set. Missing files
// are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

func Load() (*Config, error) {
	env := strings.ToLower(getEnv("ENVIRONMENT", "development"))
	presetURL, ok := apiPresets[env]
	if !ok {
		return nil, fmt.Errorf("unknown ENVIRONMENT %q (want development, test or production)", env)
	}

	timeout, err := time.ParseDuration(getEnv("HTTP_TIMEOUT", "60s"))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: must be positive, got %s", timeout)
	}

	seed, err := strconv.ParseUint(getEnv("RANDOM_SEED", "0"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RANDOM_SEED: %w", err)
	}

	return &Config{
		Environment: env,
		APIBaseURL:  getEnv("BOARDGAME_API_URL", presetURL),
		HTTPTimeout: timeout,
		LogLevel:    parseLogLevel(getEnv("LOG_LEVEL", "info")),
		LogFile:     getEnv("LOG_FILE", "boardgame-console.log"),
		Port:        getEnv("PORT", "7001"),
		RedisURL:    getEnv("REDIS_URL", "localhost:6379"),
		RandomSeed:  seed,
	}, nil
}

// IsProduction reports whether logs should be machine-readable.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
