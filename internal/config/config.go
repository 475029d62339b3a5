package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIBaseURL   string
	WSURL        string
	RestaurantID string
	Email        string
	Password     string
	PollInterval time.Duration
	HTTPTimeout  time.Duration
}

func Load() *Config {
	// Optional .env for local development; real deployments set env vars.
	_ = godotenv.Load()

	return &Config{
		APIBaseURL:   getEnv("API_BASE_URL", "http://localhost:8081"),
		WSURL:        getEnv("WS_URL", "ws://localhost:8081/ws"),
		RestaurantID: getEnv("RESTAURANT_ID", ""),
		Email:        getEnv("POS_EMAIL", ""),
		Password:     getEnv("POS_PASSWORD", ""),
		PollInterval: getDuration("POLL_INTERVAL", 3*time.Second),
		HTTPTimeout:  getDuration("HTTP_TIMEOUT", 10*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
