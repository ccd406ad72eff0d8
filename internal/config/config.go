package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port        string
	Environment string

	// Database
	DatabaseURL string

	// Background Workers
	WorkerCount int

	// CORS
	AllowedOrigins []string

	// Sentry
	SentryDSN string

	// Engine policy
	AllocationOrder  []string // repayment waterfall, e.g. penalties,fees,interest,principal
	BasePD           float64  // reference probability of default
	LGD              float64  // reference loss given default
	PenaltyRate      float64  // annual overdue penalty rate, percent
	RepaymentRetries int      // conflict/unavailability retry budget
	PARThresholdDays int      // default portfolio-at-risk threshold
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		Environment:      getEnv("ENVIRONMENT", "development"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		WorkerCount:      getEnvAsInt("WORKER_COUNT", 5),
		AllowedOrigins:   getEnvAsSlice("ALLOWED_ORIGINS", []string{"*"}),
		SentryDSN:        getEnv("SENTRY_DSN", ""),
		AllocationOrder:  getEnvAsSlice("ALLOCATION_ORDER", nil),
		BasePD:           getEnvAsFloat("BASE_PD", 0.05),
		LGD:              getEnvAsFloat("LGD", 0.45),
		PenaltyRate:      getEnvAsFloat("PENALTY_RATE", 0),
		RepaymentRetries: getEnvAsInt("REPAYMENT_RETRIES", 3),
		PARThresholdDays: getEnvAsInt("PAR_THRESHOLD_DAYS", 30),
	}

	// Validate required configuration
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.BasePD <= 0 || cfg.BasePD > 1 {
		return nil, fmt.Errorf("BASE_PD must be within (0, 1]")
	}
	if cfg.LGD <= 0 || cfg.LGD > 1 {
		return nil, fmt.Errorf("LGD must be within (0, 1]")
	}

	return cfg, nil
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt reads an environment variable as integer
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat reads an environment variable as float
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsSlice reads an environment variable as comma-separated slice
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
