package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Guard behaviour
	DefaultCountry        string
	CooldownWindow        time.Duration
	CooldownBackend       string
	CooldownSweepInterval time.Duration
	CooldownTable         string
	FailMode              string

	// Remote helpline directory. File wins over S3 when both are set.
	HelplineDirectoryFile   string
	HelplineDirectoryBucket string
	HelplineDirectoryKey    string
	HelplineRefreshInterval time.Duration

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Audit sinks
	DatabaseURL    string
	AuditQueueURL  string
	AdminJWTSecret string

	// Audit worker (drains the audit queue into Postgres)
	AuditWorkerCount        int
	AuditReceiveWaitSeconds int

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DefaultCountry:        strings.ToUpper(strings.TrimSpace(getEnv("CRISIS_DEFAULT_COUNTRY", "IN"))),
		CooldownWindow:        getEnvAsDuration("CRISIS_COOLDOWN_WINDOW", 90*time.Second),
		CooldownBackend:       strings.ToLower(strings.TrimSpace(getEnv("CRISIS_COOLDOWN_BACKEND", "memory"))),
		CooldownSweepInterval: getEnvAsDuration("CRISIS_COOLDOWN_SWEEP_INTERVAL", 5*time.Minute),
		CooldownTable:         getEnv("CRISIS_COOLDOWN_TABLE", "crisis_cooldowns"),
		FailMode:              strings.ToLower(strings.TrimSpace(getEnv("CRISIS_FAIL_MODE", "open"))),

		HelplineDirectoryFile:   getEnv("HELPLINE_DIRECTORY_FILE", ""),
		HelplineDirectoryBucket: getEnv("HELPLINE_DIRECTORY_BUCKET", ""),
		HelplineDirectoryKey:    getEnv("HELPLINE_DIRECTORY_KEY", "helplines/directory.json"),
		HelplineRefreshInterval: getEnvAsDuration("HELPLINE_REFRESH_INTERVAL", 15*time.Minute),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		DatabaseURL:    getEnv("DATABASE_URL", ""),
		AuditQueueURL:  getEnv("CRISIS_AUDIT_QUEUE_URL", ""),
		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		AuditWorkerCount:        getEnvAsInt("AUDIT_WORKER_COUNT", 2),
		AuditReceiveWaitSeconds: getEnvAsInt("AUDIT_RECEIVE_WAIT_SECONDS", 10),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
	}
}

// UsesS3Directory reports whether the remote helpline directory lives in S3.
func (c *Config) UsesS3Directory() bool {
	return c.HelplineDirectoryFile == "" && c.HelplineDirectoryBucket != ""
}

// NeedsAWS reports whether any configured component talks to AWS.
func (c *Config) NeedsAWS() bool {
	return c.UsesS3Directory() || c.AuditQueueURL != "" || c.CooldownBackend == "dynamodb"
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
	if value, err := time.ParseDuration(valueStr); err == nil && value > 0 {
		return value
	}
	return defaultValue
}
