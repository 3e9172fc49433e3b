// Package config loads the service configuration from the environment.
// A .env file in the working directory is read first; variables already set in the
// environment take precedence over it.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/layer-3/walletauth/core"
	"github.com/redis/go-redis/v9"
)

const (
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Config captures environment-driven settings
type Config struct {
	HTTPAddr     string
	StoreBackend string

	RedisURL      string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	ChallengeTTL           time.Duration
	ResultTTL              time.Duration
	DefaultChain           core.Chain
	RequireIssuedChallenge bool
	ChallengePrefix        string
	EventsTopic            string

	// memory backend only
	MemoryRetention time.Duration
	MemoryMaxSizeMB int

	LogLevel       string
	LogDevelopment bool
}

const (
	defaultHTTPAddr        = ":9000"
	defaultRedisHost       = "localhost"
	defaultRedisPort       = "6379"
	defaultChallengeTTL    = time.Minute
	defaultResultTTL       = time.Hour
	defaultChallengePrefix = "Sign this message to prove you own this wallet."
	defaultEventsTopic     = "walletauth.verification"
	defaultMemoryRetention = 24 * time.Hour
	defaultMemoryMaxSizeMB = 64
)

// Load reads .env if present, then the environment
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		HTTPAddr:        stringOr(getenv("HTTP_ADDR"), defaultHTTPAddr),
		StoreBackend:    strings.ToLower(stringOr(getenv("STORE_BACKEND"), StoreRedis)),
		RedisURL:        getenv("REDIS_URL"),
		RedisHost:       stringOr(getenv("REDIS_HOST"), defaultRedisHost),
		RedisPort:       stringOr(getenv("REDIS_PORT"), defaultRedisPort),
		RedisPassword:   getenv("REDIS_PASSWORD"),
		DefaultChain:    core.ParseChain(stringOr(getenv("DEFAULT_CHAIN"), string(core.DefaultChain))),
		ChallengePrefix: stringOr(getenv("CHALLENGE_PREFIX"), defaultChallengePrefix),
		EventsTopic:     stringOr(getenv("EVENTS_TOPIC"), defaultEventsTopic),
		LogLevel:        stringOr(getenv("LOG_LEVEL"), "info"),
	}

	var err error
	if cfg.RedisDB, err = intOr(getenv("REDIS_DB"), 0); err != nil {
		return nil, fmt.Errorf("REDIS_DB: %w", err)
	}
	if cfg.ChallengeTTL, err = durationOr(getenv("CACHE_TTL"), defaultChallengeTTL); err != nil {
		return nil, fmt.Errorf("CACHE_TTL: %w", err)
	}
	if cfg.ResultTTL, err = durationOr(getenv("RESULT_TTL"), defaultResultTTL); err != nil {
		return nil, fmt.Errorf("RESULT_TTL: %w", err)
	}
	if cfg.MemoryRetention, err = durationOr(getenv("MEMORY_RETENTION"), defaultMemoryRetention); err != nil {
		return nil, fmt.Errorf("MEMORY_RETENTION: %w", err)
	}
	if cfg.MemoryMaxSizeMB, err = intOr(getenv("MEMORY_MAX_SIZE_MB"), defaultMemoryMaxSizeMB); err != nil {
		return nil, fmt.Errorf("MEMORY_MAX_SIZE_MB: %w", err)
	}
	if cfg.RequireIssuedChallenge, err = boolOr(getenv("REQUIRE_ISSUED_CHALLENGE"), true); err != nil {
		return nil, fmt.Errorf("REQUIRE_ISSUED_CHALLENGE: %w", err)
	}
	if cfg.LogDevelopment, err = boolOr(getenv("LOG_DEVELOPMENT"), false); err != nil {
		return nil, fmt.Errorf("LOG_DEVELOPMENT: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that cannot be defaulted
func (c *Config) Validate() error {
	if c.StoreBackend != StoreRedis && c.StoreBackend != StoreMemory {
		return fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}
	if c.ChallengeTTL <= 0 {
		return errors.New("challenge ttl must be positive")
	}
	if c.ResultTTL < 0 {
		return errors.New("result ttl must not be negative")
	}
	if c.StoreBackend == StoreMemory {
		if c.MemoryMaxSizeMB <= 0 {
			return errors.New("memory max size must be positive")
		}
		if c.ResultTTL > c.MemoryRetention || c.ChallengeTTL > c.MemoryRetention {
			return fmt.Errorf("ttls must not exceed memory retention %s", c.MemoryRetention)
		}
	}
	return nil
}

// RedisOptions returns client options. REDIS_URL wins over host and port.
func (c *Config) RedisOptions() (*redis.Options, error) {
	if c.RedisURL != "" {
		opts, err := redis.ParseURL(c.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		return opts, nil
	}

	return &redis.Options{
		Addr:     net.JoinHostPort(c.RedisHost, c.RedisPort),
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}, nil
}

func stringOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func intOr(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func boolOr(v string, def bool) (bool, error) {
	if v == "" {
		return def, nil
	}
	return strconv.ParseBool(v)
}

// durationOr accepts Go durations ("90s") or bare seconds ("90")
func durationOr(v string, def time.Duration) (time.Duration, error) {
	if v == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v)
}
