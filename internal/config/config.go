// Package config loads and validates process configuration from the
// environment. Signing keys are injected here, never compiled in.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	AppPort      string
	DatabaseDSN  string
	RedisAddr    string
	RedisDB      int
	KafkaBrokers []string

	JWT   JWTConfig
	Store StoreConfig
}

// JWTConfig carries the signing secrets and lifetimes for both token
// classes. Access and refresh tokens are signed with distinct keys so one
// leaked key cannot mint the other class. The Previous fields enable key
// rotation: tokens signed by the previous key remain verifiable until it
// is dropped from the environment.
type JWTConfig struct {
	AccessSecret          []byte
	AccessSecretPrevious  []byte
	RefreshSecret         []byte
	RefreshSecretPrevious []byte
	AccessTTL             time.Duration
	RefreshTTL            time.Duration
	Leeway                time.Duration
}

// StoreConfig bounds every revocation-store round trip.
type StoreConfig struct {
	Timeout time.Duration
}

const (
	defaultAccessTTL    = 15 * time.Minute
	defaultRefreshTTL   = 15 * 24 * time.Hour
	defaultLeeway       = 30 * time.Second
	maxLeeway           = time.Minute
	defaultStoreTimeout = 3 * time.Second
)

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		AppPort:     getenv("APP_PORT", "8080"),
		DatabaseDSN: os.Getenv("DATABASE_DSN"),
		RedisAddr:   getenv("REDIS_ADDR", "127.0.0.1:6379"),
	}
	if cfg.DatabaseDSN == "" {
		return nil, fmt.Errorf("DATABASE_DSN environment variable not set")
	}

	if v := os.Getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB %q: %w", v, err)
		}
		cfg.RedisDB = db
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitComma(brokers)
	}

	accessSecret := os.Getenv("JWT_ACCESS_SECRET")
	if accessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET environment variable not set")
	}
	refreshSecret := os.Getenv("JWT_REFRESH_SECRET")
	if refreshSecret == "" {
		return nil, fmt.Errorf("JWT_REFRESH_SECRET environment variable not set")
	}
	if accessSecret == refreshSecret {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}

	cfg.JWT = JWTConfig{
		AccessSecret:  []byte(accessSecret),
		RefreshSecret: []byte(refreshSecret),
		AccessTTL:     defaultAccessTTL,
		RefreshTTL:    defaultRefreshTTL,
		Leeway:        defaultLeeway,
	}
	if v := os.Getenv("JWT_ACCESS_SECRET_PREVIOUS"); v != "" {
		cfg.JWT.AccessSecretPrevious = []byte(v)
	}
	if v := os.Getenv("JWT_REFRESH_SECRET_PREVIOUS"); v != "" {
		cfg.JWT.RefreshSecretPrevious = []byte(v)
	}

	var err error
	if cfg.JWT.AccessTTL, err = getduration("JWT_ACCESS_TTL", defaultAccessTTL); err != nil {
		return nil, err
	}
	if cfg.JWT.RefreshTTL, err = getduration("JWT_REFRESH_TTL", defaultRefreshTTL); err != nil {
		return nil, err
	}
	if cfg.JWT.Leeway, err = getduration("JWT_LEEWAY", defaultLeeway); err != nil {
		return nil, err
	}
	if cfg.JWT.Leeway < 0 || cfg.JWT.Leeway > maxLeeway {
		return nil, fmt.Errorf("JWT_LEEWAY must be between 0 and %s", maxLeeway)
	}
	if cfg.JWT.AccessTTL <= 0 || cfg.JWT.RefreshTTL <= 0 {
		return nil, fmt.Errorf("token TTLs must be positive")
	}
	if cfg.JWT.AccessTTL >= cfg.JWT.RefreshTTL {
		return nil, fmt.Errorf("JWT_ACCESS_TTL must be shorter than JWT_REFRESH_TTL")
	}

	if cfg.Store.Timeout, err = getduration("STORE_TIMEOUT", defaultStoreTimeout); err != nil {
		return nil, err
	}
	if cfg.Store.Timeout <= 0 {
		return nil, fmt.Errorf("STORE_TIMEOUT must be positive")
	}

	return cfg, nil
}

// NotifierConfig is the subset the notification worker needs. It has no
// business with signing keys or Redis.
type NotifierConfig struct {
	DatabaseDSN   string
	KafkaBrokers  []string
	ConsumerGroup string
}

// LoadNotifier reads the worker's configuration from the environment.
func LoadNotifier() (*NotifierConfig, error) {
	cfg := &NotifierConfig{
		DatabaseDSN:   os.Getenv("DATABASE_DSN"),
		ConsumerGroup: getenv("KAFKA_CONSUMER_GROUP", "taskmaster-notifier"),
	}
	if cfg.DatabaseDSN == "" {
		return nil, fmt.Errorf("DATABASE_DSN environment variable not set")
	}
	cfg.KafkaBrokers = splitComma(os.Getenv("KAFKA_BROKERS"))
	if len(cfg.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS environment variable not set")
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getduration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

func splitComma(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
