package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Sink drivers accepted in SINK_DRIVER.
const (
	SinkREST     = "rest"
	SinkPostgres = "postgres"
	SinkDynamoDB = "dynamodb"
	SinkMemory   = "memory"
)

var (
	// ErrMissingSinkURL is returned when the REST sink has no endpoint configured.
	ErrMissingSinkURL = errors.New("config: SINK_URL is required")

	// ErrMissingDatabaseURL is returned when the postgres sink has no DSN.
	ErrMissingDatabaseURL = errors.New("config: DATABASE_URL is required for the postgres sink")

	// ErrMissingDynamoTable is returned when the dynamodb sink has no table.
	ErrMissingDynamoTable = errors.New("config: DYNAMODB_TABLE is required for the dynamodb sink")
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	PublicBaseURL      string
	LogLevel           string
	ContactURL         string
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int

	// Remote sink
	SinkDriver  string
	SinkURL     string
	SinkKey     string
	SinkTable   string
	SinkTimeout time.Duration

	DatabaseURL   string
	DynamoDBTable string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Session state
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	SessionSecret string
	SessionTTL    time.Duration

	// Owner notification
	EmailProvider     string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	NotifyEmail       string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		PublicBaseURL:      getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		ContactURL:         getEnv("CONTACT_URL", "https://instagram.com/lightbounty"),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 1),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 5),

		SinkDriver:  strings.ToLower(strings.TrimSpace(getEnv("SINK_DRIVER", SinkREST))),
		SinkURL:     strings.TrimSpace(getEnv("SINK_URL", "")),
		SinkKey:     strings.TrimSpace(getEnv("SINK_KEY", "")),
		SinkTable:   getEnv("SINK_TABLE", "bookings"),
		SinkTimeout: getEnvAsDuration("SINK_TIMEOUT", 15*time.Second),

		DatabaseURL:   getEnv("DATABASE_URL", ""),
		DynamoDBTable: getEnv("DYNAMODB_TABLE", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		SessionSecret: getEnv("SESSION_SECRET", ""),
		SessionTTL:    getEnvAsDuration("SESSION_TTL", 24*time.Hour),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "none"))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Light Bounty Studio"),
		NotifyEmail:       getEnv("NOTIFY_EMAIL", ""),
	}
}

// Validate reports configuration that must stop the process at start-up.
func (c *Config) Validate() error {
	switch c.SinkDriver {
	case SinkREST:
		if c.SinkURL == "" {
			return ErrMissingSinkURL
		}
	case SinkPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return ErrMissingDatabaseURL
		}
	case SinkDynamoDB:
		if strings.TrimSpace(c.DynamoDBTable) == "" {
			return ErrMissingDynamoTable
		}
	case SinkMemory:
	default:
		return fmt.Errorf("config: unknown SINK_DRIVER %q", c.SinkDriver)
	}
	return nil
}

// IsProduction reports whether ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
