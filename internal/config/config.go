package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig captures all tunable parameters for the driver API process.
// Defaults come first, then an optional YAML file named by CONFIG_FILE, then
// environment variables, so the binary runs locally without any setup.
type ServerConfig struct {
	HTTPAddr        string        `yaml:"http_addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	RedisAddr       string        `yaml:"redis_addr"`
	RedisPassword   string        `yaml:"redis_password"`
	GeocodeCacheTTL time.Duration `yaml:"geocode_cache_ttl"`

	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`

	OSRMEndpoint  string        `yaml:"osrm_endpoint"`
	RouteCacheTTL time.Duration `yaml:"route_cache_ttl"`

	GoogleMapsAPIKey string `yaml:"google_maps_api_key"`

	DeviceLat               float64       `yaml:"device_lat"`
	DeviceLon               float64       `yaml:"device_lon"`
	DevicePermissionGranted bool          `yaml:"device_permission_granted"`
	LocationTimeout         time.Duration `yaml:"location_timeout"`

	DriverID          string `yaml:"driver_id"`
	WebhookURL        string `yaml:"webhook_url"`
	EnrichConcurrency int    `yaml:"enrich_concurrency"`

	LogLevel string `yaml:"log_level"`
}

func defaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPAddr:                ":8080",
		ReadTimeout:             5 * time.Second,
		WriteTimeout:            10 * time.Second,
		IdleTimeout:             120 * time.Second,
		ShutdownTimeout:         15 * time.Second,
		GeocodeCacheTTL:         24 * time.Hour,
		KafkaTopic:              "driver-notifications",
		RouteCacheTTL:           5 * time.Minute,
		DeviceLat:               37.7749,
		DeviceLon:               -122.4194,
		DevicePermissionGranted: true,
		LocationTimeout:         10 * time.Second,
		DriverID:                "current driver",
		EnrichConcurrency:       4,
		LogLevel:                "info",
	}
}

func LoadServerConfig() (ServerConfig, error) {
	cfg := defaultServerConfig()
	var errs []error

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadFile(&cfg, path); err != nil {
			errs = append(errs, err)
		}
	}

	setStringFromEnv(&cfg.HTTPAddr, "HTTP_ADDR")
	setDurationFromEnv(&cfg.ReadTimeout, "HTTP_READ_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.WriteTimeout, "HTTP_WRITE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.IdleTimeout, "HTTP_IDLE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.ShutdownTimeout, "HTTP_SHUTDOWN_TIMEOUT", &errs)

	setStringFromEnv(&cfg.RedisAddr, "REDIS_ADDR")
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	setDurationFromEnv(&cfg.GeocodeCacheTTL, "GEOCODE_CACHE_TTL", &errs)

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaTopic, "KAFKA_TOPIC")

	setStringFromEnv(&cfg.OSRMEndpoint, "OSRM_ENDPOINT")
	setDurationFromEnv(&cfg.RouteCacheTTL, "ROUTE_CACHE_TTL", &errs)

	setStringFromEnv(&cfg.GoogleMapsAPIKey, "GOOGLE_MAPS_API_KEY")

	setFloatFromEnv(&cfg.DeviceLat, "DEVICE_LAT", &errs)
	setFloatFromEnv(&cfg.DeviceLon, "DEVICE_LON", &errs)
	setBoolFromEnv(&cfg.DevicePermissionGranted, "DEVICE_PERMISSION_GRANTED", &errs)
	setDurationFromEnv(&cfg.LocationTimeout, "LOCATION_TIMEOUT", &errs)

	setStringFromEnv(&cfg.DriverID, "DRIVER_ID")
	setStringFromEnv(&cfg.WebhookURL, "WEBHOOK_URL")
	setIntFromEnv(&cfg.EnrichConcurrency, "ENRICH_CONCURRENCY", &errs)

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	if cfg.EnrichConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("ENRICH_CONCURRENCY must be > 0"))
	}
	if cfg.DeviceLat < -90 || cfg.DeviceLat > 90 {
		errs = append(errs, fmt.Errorf("DEVICE_LAT out of range: %f", cfg.DeviceLat))
	}
	if cfg.DeviceLon < -180 || cfg.DeviceLon > 180 {
		errs = append(errs, fmt.Errorf("DEVICE_LON out of range: %f", cfg.DeviceLon))
	}
	if cfg.LocationTimeout <= 0 {
		errs = append(errs, fmt.Errorf("LOCATION_TIMEOUT must be > 0"))
	}

	return cfg, errors.Join(errs...)
}

func loadFile(cfg *ServerConfig, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func setDurationFromEnv(target *time.Duration, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = d
	}
}

func setFloatFromEnv(target *float64, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = f
	}
}

func setIntFromEnv(target *int, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = i
	}
}

func setBoolFromEnv(target *bool, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = b
	}
}

func setStringFromEnv(target *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

func splitAndTrim(v string) []string {
	raw := strings.Split(v, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
