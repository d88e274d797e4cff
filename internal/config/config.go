// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing, the process exits.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all runtime configuration for the pipeline service.
type Config struct {
	Port                string
	DatabaseURL         string // PostgreSQL — canonical offer store
	MongoURL            string // MongoDB — raw staging store
	MongoDatabase       string
	RedisURL            string
	ScrapeIntervalHours int    // how often the scrape+parse cron fires
	MatchingCronSpec    string // cron spec for the matching cycle
	NotifyChannel       string // Redis channel for notification events
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	mongoURL := os.Getenv("MONGO_URL")
	if mongoURL == "" {
		return nil, fmt.Errorf("MONGO_URL is required")
	}

	mongoDB := os.Getenv("MONGO_DATABASE")
	if mongoDB == "" {
		mongoDB = "staging"
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	interval := 6
	if s := os.Getenv("SCRAPE_INTERVAL_HOURS"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			return nil, fmt.Errorf("SCRAPE_INTERVAL_HOURS must be a positive integer, got %q", s)
		}
		interval = v
	}

	// Daily at midnight, matching the original digest cadence.
	matchingSpec := os.Getenv("MATCHING_CRON_SPEC")
	if matchingSpec == "" {
		matchingSpec = "0 0 * * *"
	}

	channel := os.Getenv("NOTIFY_CHANNEL")
	if channel == "" {
		channel = "EVENT_NOTIFICATION_CREATED"
	}

	port := os.Getenv("PIPELINE_PORT")
	if port == "" {
		port = "8083"
	}

	return &Config{
		Port:                port,
		DatabaseURL:         dbURL,
		MongoURL:            mongoURL,
		MongoDatabase:       mongoDB,
		RedisURL:            redisURL,
		ScrapeIntervalHours: interval,
		MatchingCronSpec:    matchingSpec,
		NotifyChannel:       channel,
	}, nil
}
