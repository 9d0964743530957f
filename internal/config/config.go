// Package config loads server configuration from environment variables and
// optimization scenario profiles from YAML.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/shopspring/decimal"
)

// Config holds server configuration.
// Empty DatabaseURL selects the in-memory store with sample data; empty
// RedisAddr selects the in-process cache; empty APIToken disables auth.
type Config struct {
	Port               string
	DatabaseURL        string
	RedisAddr          string
	RedisPassword      string
	APIToken           string
	DefaultCashBalance decimal.Decimal
	ScenarioProfiles   string
	LogLevel           string
	OTLPEndpoint       string
	RateLimitRPS       int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	port := os.Getenv("CAPFLOW_PORT")
	if port == "" {
		port = "8080"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	balanceStr := os.Getenv("DEFAULT_CASH_BALANCE")
	if balanceStr == "" {
		balanceStr = "100000"
	}
	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_CASH_BALANCE %q: %w", balanceStr, err)
	}

	rps := 20
	if rpsStr := os.Getenv("RATE_LIMIT_RPS"); rpsStr != "" {
		rps, err = strconv.Atoi(rpsStr)
		if err != nil || rps < 0 {
			return nil, fmt.Errorf("invalid RATE_LIMIT_RPS %q", rpsStr)
		}
	}

	return &Config{
		Port:               port,
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		APIToken:           os.Getenv("API_TOKEN"),
		DefaultCashBalance: balance,
		ScenarioProfiles:   os.Getenv("SCENARIO_PROFILES"),
		LogLevel:           logLevel,
		OTLPEndpoint:       os.Getenv("OTLP_ENDPOINT"),
		RateLimitRPS:       rps,
	}, nil
}
