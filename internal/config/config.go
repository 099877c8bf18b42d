package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wolfman30/landlead-crm/internal/dedupe"
)

// Config holds application configuration
type Config struct {
	Port      string
	Env       string
	LogLevel  string
	LogFormat string

	DatabaseURL string

	RedisAddr         string
	RedisPassword     string
	RedisTLS          bool
	MatchCacheEnabled bool
	MatchCacheTTL     time.Duration

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	ScanQueueURL   string
	ScanJobsTable  string
	UseMemoryQueue bool
	WorkerCount    int
	ScanBatchSize  int
	ScanRateLimit  float64
	ScanRateBurst  int

	AdminJWTSecret     string
	CORSAllowedOrigins []string

	// Scoring policy overrides
	DedupePhoneWeight     float64
	DedupeEmailWeight     float64
	DedupeNameWeight      float64
	DedupeAddressWeight   float64
	DedupeNameGate        float64
	DedupeAddressGate     float64
	DedupeThreshold       float64
	DedupeStrictThreshold float64
	DedupeRecencyDays     int
}

// Load reads configuration from environment variables
func Load() *Config {
	policy := dedupe.DefaultPolicy()
	return &Config{
		Port:      getEnv("PORT", "8080"),
		Env:       getEnv("ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "json")),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisTLS:          getEnvAsBool("REDIS_TLS", false),
		MatchCacheEnabled: getEnvAsBool("MATCH_CACHE_ENABLED", true),
		MatchCacheTTL:     getEnvAsDuration("MATCH_CACHE_TTL", 10*time.Minute),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		ScanQueueURL:   getEnv("SCAN_QUEUE_URL", ""),
		ScanJobsTable:  getEnv("SCAN_JOBS_TABLE", "lead_scan_jobs"),
		UseMemoryQueue: getEnvAsBool("USE_MEMORY_QUEUE", false),
		WorkerCount:    getEnvAsInt("WORKER_COUNT", 2),
		ScanBatchSize:  getEnvAsInt("SCAN_BATCH_SIZE", 200),
		ScanRateLimit:  getEnvAsFloat("SCAN_RATE_LIMIT", 1),
		ScanRateBurst:  getEnvAsInt("SCAN_RATE_BURST", 5),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),

		DedupePhoneWeight:     getEnvAsFloat("DEDUPE_PHONE_WEIGHT", policy.PhoneWeight),
		DedupeEmailWeight:     getEnvAsFloat("DEDUPE_EMAIL_WEIGHT", policy.EmailWeight),
		DedupeNameWeight:      getEnvAsFloat("DEDUPE_NAME_WEIGHT", policy.NameWeight),
		DedupeAddressWeight:   getEnvAsFloat("DEDUPE_ADDRESS_WEIGHT", policy.AddressWeight),
		DedupeNameGate:        getEnvAsFloat("DEDUPE_NAME_GATE", policy.NameGate),
		DedupeAddressGate:     getEnvAsFloat("DEDUPE_ADDRESS_GATE", policy.AddressGate),
		DedupeThreshold:       getEnvAsFloat("DEDUPE_THRESHOLD", policy.Threshold),
		DedupeStrictThreshold: getEnvAsFloat("DEDUPE_STRICT_THRESHOLD", policy.StrictThreshold),
		DedupeRecencyDays:     getEnvAsInt("DEDUPE_RECENCY_DAYS", int(policy.RecencyWindow/(24*time.Hour))),
	}
}

// DedupePolicy builds the scoring policy from the DEDUPE_* settings.
// Callers should Validate the result before use.
func (c *Config) DedupePolicy() dedupe.Policy {
	return dedupe.Policy{
		PhoneWeight:     c.DedupePhoneWeight,
		EmailWeight:     c.DedupeEmailWeight,
		NameWeight:      c.DedupeNameWeight,
		AddressWeight:   c.DedupeAddressWeight,
		NameGate:        c.DedupeNameGate,
		AddressGate:     c.DedupeAddressGate,
		Threshold:       c.DedupeThreshold,
		StrictThreshold: c.DedupeStrictThreshold,
		RecencyWindow:   time.Duration(c.DedupeRecencyDays) * 24 * time.Hour,
	}
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
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

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
