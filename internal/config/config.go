package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port           string
	Env            string
	LogLevel       string
	UseMemoryQueue bool
	WorkerCount    int

	DatabaseURL string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	DispatchQueueURL  string
	DispatchJobsTable string

	// Fast backend (Bedrock) configuration.
	BedrockModelID          string
	BedrockEmergencyModelID string

	// Deep backend (Gemini) configuration.
	GeminiAPIKey  string
	GeminiModelID string

	// Optional secondary completion provider used when a primary backend fails.
	OpenAIAPIKey  string
	OpenAIModelID string

	BackendTimeout time.Duration
	HistoryTurns   int

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Booking handoff notification targets.
	HandoffEmail     string
	EmergencyContact string

	SESFromEmail string
	SESFromName  string

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		Env:            getEnv("ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		UseMemoryQueue: getEnvAsBool("USE_MEMORY_QUEUE", false),
		WorkerCount:    getEnvAsInt("WORKER_COUNT", 2),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		AWSRegion:           getEnv("AWS_REGION", "eu-west-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		DispatchQueueURL:  getEnv("DISPATCH_QUEUE_URL", ""),
		DispatchJobsTable: getEnv("DISPATCH_JOBS_TABLE", "dispatch_jobs"),

		BedrockModelID:          getEnv("BEDROCK_MODEL_ID", "anthropic.claude-3-haiku-20240307-v1:0"),
		BedrockEmergencyModelID: getEnv("BEDROCK_EMERGENCY_MODEL_ID", ""),

		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModelID: getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIModelID: getEnv("OPENAI_MODEL_ID", "gpt-4o-mini"),

		BackendTimeout: getEnvAsDuration("BACKEND_TIMEOUT", 25*time.Second),
		HistoryTurns:   getEnvAsInt("HISTORY_TURNS", 12),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		HandoffEmail:     getEnv("HANDOFF_EMAIL", ""),
		EmergencyContact: getEnv("EMERGENCY_CONTACT", "088-1234567"),

		SESFromEmail: getEnv("SES_FROM_EMAIL", ""),
		SESFromName:  getEnv("SES_FROM_NAME", "Loodlijn Dispatch"),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
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

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
