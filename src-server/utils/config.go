package utils

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

type Config struct {
	port string
	dev  bool

	sessionExpire time.Duration

	location     *time.Location
	openaiApiKey string

	metricCollectionInterval time.Duration

	staticWebClientDir string
}

func NewConfig() *Config {
	return &Config{
		port: func() string {
			port := os.Getenv("PORT")
			if port == "" {
				port = "8080"
			}
			slog.Debug("env", "PORT", port)
			return port
		}(),
		dev: func() bool {
			dev := os.Getenv("DEV") == "true"
			slog.Debug("env", "DEV", dev)
			return dev
		}(),

		sessionExpire: func() time.Duration {
			sessionExpire := os.Getenv("SESSION_EXPIRE")
			if sessionExpire == "" {
				slog.Warn("SESSION_EXPIRE is not set")
				sessionExpire = "168h" // 1 week
			}
			duration, err := time.ParseDuration(sessionExpire)
			if err != nil {
				slog.Error("invalid SESSION_EXPIRE", "error", err)
				os.Exit(1)
			}
			slog.Debug("env", "SESSION_EXPIRE", sessionExpire, "duration", duration)
			return duration
		}(),

		location: func() *time.Location {
			timezoneStr := os.Getenv("TIMEZONE")
			var loc *time.Location
			var err error
			switch timezoneStr {
			case "":
				slog.Warn("TIMEZONE is not set, using local timezone", "timezone", time.Local)
				loc = time.Local
			case "UTC":
				loc = time.UTC
			default:
				loc, err = time.LoadLocation(timezoneStr)
				if err != nil {
					slog.Error("invalid timezone", "timezone", timezoneStr, "error", err)
					os.Exit(1)
				}
			}
			slog.Debug("env", "TIMEZONE", timezoneStr)
			return loc
		}(),
		openaiApiKey: func() string {
			openaiApiKey := os.Getenv("OPENAI_API_KEY")
			if openaiApiKey == "" {
				slog.Error("OPENAI_API_KEY is not set")
				os.Exit(1)
			}
			slog.Debug("env", "OPENAI_API_KEY", openaiApiKey[:min(3, len(openaiApiKey))]+"...")
			return openaiApiKey
		}(),

		metricCollectionInterval: func() time.Duration {
			interval := os.Getenv("METRIC_COLLECTION_INTERVAL")
			if interval == "" {
				interval = "5m"
			}
			duration, err := time.ParseDuration(interval)
			if err != nil {
				slog.Error("invalid METRIC_COLLECTION_INTERVAL", "error", err)
				os.Exit(1)
			}
			slog.Debug("env", "METRIC_COLLECTION_INTERVAL", interval, "duration", duration)
			return duration
		}(),

		staticWebClientDir: func() string {
			staticWebClientDir := os.Getenv("STATIC_WEB_CLIENT_DIR")
			if staticWebClientDir == "" {
				slog.Error("STATIC_WEB_CLIENT_DIR is not set")
				os.Exit(1)
			}
			info, err := os.Stat(staticWebClientDir)
			if err != nil {
				slog.Error("can't get info of STATIC_WEB_CLIENT_DIR", "error", err)
				os.Exit(1)
			}
			if !info.IsDir() {
				slog.Error("STATIC_WEB_CLIENT_DIR is not a directory", "error", err)
				os.Exit(1)
			}

			slog.Debug("env", "STATIC_WEB_CLIENT_DIR", staticWebClientDir)
			return filepath.Clean(staticWebClientDir)
		}(),
	}
}

// Get PORT env, default to 8080
func (c *Config) GetPort() string {
	return c.port
}

// Get DEV env
func (c *Config) GetDev() bool {
	return c.dev
}

// Get SESSION_EXPIRE env, default to a week
func (c *Config) GetSessionExpire() time.Duration {
	return c.sessionExpire
}

// Get TIMEZONE env
func (c *Config) GetLocation() *time.Location {
	return c.location
}

// Get OPENAI_API_KEY env
func (c *Config) GetOpenaiApiKey() string {
	return c.openaiApiKey
}

// Get METRIC_COLLECTION_INTERVAL env, default to 5m
func (c *Config) GetMetricCollectionInterval() time.Duration {
	return c.metricCollectionInterval
}

// Get STATIC_WEB_CLIENT_DIR env
func (c *Config) GetStaticWebClientDir() string {
	return c.staticWebClientDir
}
