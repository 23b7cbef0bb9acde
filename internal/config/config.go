// Package config reads environment-style settings for the service and the traffic generator.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Service struct {
	Port        string
	ServiceName string
	Version     string
	LogLevel    string
	// RandomSeed is nil when outcomes should be unseeded.
	RandomSeed  *uint64
	RedisAddr   string
	RedisStream string
}

type Generator struct {
	PaymentServiceURL string
	RequestsPerMinute int
	RunForever        bool
	Duration          time.Duration
	HealthInterval    time.Duration
	RequestTimeout    time.Duration
	LogLevel          string
	RandomSeed        *uint64
}

// LoadDotEnv loads a .env file when one exists. Real environment variables win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load env files %v: %w", existing, err)
	}
	return nil
}

func LoadService() (Service, error) {
	seed, err := getSeed("RANDOM_SEED")
	if err != nil {
		return Service{}, err
	}
	return Service{
		Port:        getString("PORT", "3000"),
		ServiceName: getString("SERVICE_NAME", "payment-service"),
		Version:     getString("SERVICE_VERSION", "1.0.0"),
		LogLevel:    getString("LOG_LEVEL", "info"),
		RandomSeed:  seed,
		RedisAddr:   getString("REDIS_ADDR", ""),
		RedisStream: getString("REDIS_STREAM", "telemetry:events"),
	}, nil
}

// LoadGenerator reads generator settings. Call Validate once overrides are applied.
func LoadGenerator() (Generator, error) {
	seed, err := getSeed("RANDOM_SEED")
	if err != nil {
		return Generator{}, err
	}
	cfg := Generator{
		PaymentServiceURL: strings.TrimRight(getString("PAYMENT_SERVICE_URL", "http://localhost:3000"), "/"),
		RequestsPerMinute: getInt("REQUESTS_PER_MINUTE", 30),
		RunForever:        getBool("RUN_FOREVER", false),
		Duration:          time.Duration(getInt("DURATION_MINUTES", 5)) * time.Minute,
		HealthInterval:    time.Duration(getInt("HEALTH_INTERVAL_SECONDS", 60)) * time.Second,
		RequestTimeout:    time.Duration(getInt("REQUEST_TIMEOUT_SECONDS", 10)) * time.Second,
		LogLevel:          getString("LOG_LEVEL", "info"),
		RandomSeed:        seed,
	}
	return cfg, nil
}

func (g Generator) Validate() error {
	if g.RequestsPerMinute <= 0 {
		return fmt.Errorf("requests per minute must be positive, got %d", g.RequestsPerMinute)
	}
	if !g.RunForever && g.Duration <= 0 {
		return fmt.Errorf("duration must be positive unless running forever, got %s", g.Duration)
	}
	if g.HealthInterval <= 0 {
		return fmt.Errorf("health interval must be positive, got %s", g.HealthInterval)
	}
	if g.PaymentServiceURL == "" {
		return fmt.Errorf("payment service url is required")
	}
	return nil
}

func getString(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getSeed(key string) (*uint64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return nil, nil
	}
	seed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return &seed, nil
}
