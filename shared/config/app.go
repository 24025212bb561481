package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/sirupsen/logrus"
)

// AppConfig holds the settings shared by every service
type AppConfig struct {
	Port              string
	Env               string
	TimeZone          string
	KafkaBroker       string
	KafkaTopic        string
	AWSRegion         string
	CognitoUserPoolID string
	WebhookEndpoint   string
	MaxRetries        int
	RateLimitPerSec   float64
	RateLimitBurst    int
}

// Load reads the application config from the environment.
// defaultPort is used when PORT is unset.
func Load(defaultPort string) AppConfig {
	return AppConfig{
		Port:              getEnv("PORT", defaultPort),
		Env:               getEnv("APP_ENV", "dev"),
		TimeZone:          getEnv("BUSINESS_TZ", "Asia/Kolkata"),
		KafkaBroker:       getEnv("KAFKA_BROKER", "localhost:9092"),
		KafkaTopic:        getEnv("KAFKA_TOPIC", "rental-events"),
		AWSRegion:         getEnv("AWS_REGION", "us-east-1"),
		CognitoUserPoolID: os.Getenv("COGNITO_USER_POOL_ID"),
		WebhookEndpoint:   getEnv("WEBHOOK_ENDPOINT", "http://localhost:9000"),
		MaxRetries:        getEnvInt("MAX_RETRIES", 8),
		RateLimitPerSec:   getEnvFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst:    getEnvInt("RATE_LIMIT_BURST", 40),
	}
}

// Validate rejects configs a service cannot start with
func Validate(cfg AppConfig) error {
	if cfg.Port == "" {
		return errors.New("PORT is required")
	}
	if _, err := time.LoadLocation(cfg.TimeZone); err != nil {
		return fmt.Errorf("invalid BUSINESS_TZ %q: %w", cfg.TimeZone, err)
	}
	if cfg.MaxRetries < 1 {
		return fmt.Errorf("MAX_RETRIES must be positive, got %d", cfg.MaxRetries)
	}
	if cfg.RateLimitPerSec <= 0 || cfg.RateLimitBurst < 1 {
		return errors.New("rate limit must allow at least one request")
	}
	if cfg.Env != "dev" && cfg.CognitoUserPoolID == "" {
		return errors.New("COGNITO_USER_POOL_ID is required outside dev")
	}
	return nil
}

// Location returns the business timezone, UTC if it cannot be loaded
func (c AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// InitLogger configures the global logrus logger for env
func InitLogger(env string) {
	logrus.SetOutput(os.Stdout)
	if env == "dev" {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
		logrus.SetLevel(logrus.DebugLevel)
		return
	}
	logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	logrus.SetLevel(logrus.InfoLevel)
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v < 0 {
		return defaultValue
	}
	return v
}

func getEnvFloat(key string, defaultValue float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || v <= 0 {
		return defaultValue
	}
	return v
}
