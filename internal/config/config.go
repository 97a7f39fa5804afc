// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the server needs at startup.
type Config struct {
	Port        string
	DatabaseURL string
	JWTSecret   string

	// Payment provider
	StripeSecretKey     string
	StripeWebhookSecret string
	Currency            string

	// Settlement
	CommissionRate float64

	// Cleanup scheduler
	ReservationExpiry time.Duration
	SweepInterval     time.Duration

	// Notifications
	SendGridAPIKey   string
	SendGridFrom     string
	SendGridFromName string
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
}

const (
	DefaultPort              = "8080"
	DefaultCurrency          = "eur"
	DefaultCommissionRate    = 0.15
	DefaultReservationExpiry = 15 * time.Minute
	DefaultSweepInterval     = 5 * time.Minute
)

// Load reads configuration from the environment. A .env file is loaded first
// if present (local development).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnv("PORT", DefaultPort),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		Currency:            getEnv("CURRENCY", DefaultCurrency),
		CommissionRate:      getEnvFloat("COMMISSION_RATE", DefaultCommissionRate),
		ReservationExpiry:   getEnvMinutes("RESERVATION_EXPIRY_MINUTES", DefaultReservationExpiry),
		SweepInterval:       getEnvMinutes("SWEEP_INTERVAL_MINUTES", DefaultSweepInterval),
		SendGridAPIKey:      os.Getenv("SENDGRID_API_KEY"),
		SendGridFrom:        os.Getenv("SENDGRID_FROM_EMAIL"),
		SendGridFromName:    getEnv("SENDGRID_FROM_NAME", "Parkly"),
		TwilioAccountSID:    os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:     os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber:    os.Getenv("TWILIO_FROM_NUMBER"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL not set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET not set")
	}
	if cfg.CommissionRate < 0 || cfg.CommissionRate >= 1 {
		return nil, fmt.Errorf("COMMISSION_RATE must be in [0, 1), got %v", cfg.CommissionRate)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvMinutes(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Minute
}
