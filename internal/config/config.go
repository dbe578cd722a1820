package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Cycle scheduling.
	CycleInterval time.Duration
	SourceTimeout time.Duration

	// Monitored location (fixed per deployment).
	LocationLat float64
	LocationLng float64

	// Signal providers.
	OpenMeteoURL  string
	RiverGaugeURL string

	// Persistence.
	SQLitePath string

	// Broadcast.
	KafkaBrokers []string
	KafkaTopic   string

	// Model artifact directory (topology.json + weights.json).
	ModelDir string

	// Push notification gateway. An empty URL disables alert delivery.
	PushGatewayURL string
	PushAPIKey     string
	PushEnabled    bool

	// Minimum gap between consecutive alerts at the same risk level.
	// Zero disables the cooldown (the default: dedup is per record only).
	AlertCooldown time.Duration
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	cycleInterval, err := parseDuration("CYCLE_INTERVAL", "10m")
	if err != nil {
		return nil, err
	}
	sourceTimeout, err := parseDuration("SOURCE_TIMEOUT", "9s")
	if err != nil {
		return nil, err
	}
	cooldown, err := parseDuration("ALERT_COOLDOWN", "0s")
	if err != nil {
		return nil, err
	}

	lat, err := parseFloat("LOCATION_LAT", -6.2088)
	if err != nil {
		return nil, err
	}
	lng, err := parseFloat("LOCATION_LNG", 106.8456)
	if err != nil {
		return nil, err
	}

	pushURL := os.Getenv("PUSH_GATEWAY_URL")

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		CycleInterval: cycleInterval,
		SourceTimeout: sourceTimeout,

		LocationLat: lat,
		LocationLng: lng,

		OpenMeteoURL:  envOrDefault("OPEN_METEO_URL", "https://api.open-meteo.com/v1/forecast"),
		RiverGaugeURL: envOrDefault("RIVER_GAUGE_URL", "http://localhost:8091/v1/level"),

		SQLitePath: envOrDefault("SQLITE_PATH", "flood.db"),

		KafkaBrokers: parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "flood-updates"),

		ModelDir: envOrDefault("MODEL_DIR", "model"),

		PushGatewayURL: pushURL,
		PushAPIKey:     os.Getenv("PUSH_API_KEY"),
		PushEnabled:    pushURL != "",

		AlertCooldown: cooldown,
	}

	if cfg.CycleInterval <= 0 {
		return nil, errors.New("CYCLE_INTERVAL must be positive")
	}
	if cfg.SourceTimeout <= 0 || cfg.SourceTimeout > 30*time.Second {
		return nil, errors.New("SOURCE_TIMEOUT must be in (0s, 30s]")
	}
	if cfg.AlertCooldown < 0 {
		return nil, errors.New("ALERT_COOLDOWN must not be negative")
	}
	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required")
	}
	if cfg.SQLitePath == "" {
		return nil, errors.New("SQLITE_PATH is required")
	}
	if cfg.PushEnabled && cfg.PushAPIKey == "" {
		return nil, errors.New("PUSH_GATEWAY_URL is set but PUSH_API_KEY is not")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(key, def string) (time.Duration, error) {
	s := envOrDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return d, nil
}

func parseFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return v, nil
}

func parseBrokers(s string) []string {
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
