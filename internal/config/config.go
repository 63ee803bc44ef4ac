package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values
type Config struct {
	// Server configuration
	Port        int    `json:"port"`
	Environment string `json:"environment"`

	// MongoDB configuration
	MongoURI      string `json:"mongo_uri"`
	MongoDatabase string `json:"mongo_database"`

	// Redis configuration
	RedisURI        string        `json:"redis_uri"`
	RedisPassword   string        `json:"redis_password"`
	RedisDB         int           `json:"redis_db"`
	ProfileCacheTTL time.Duration `json:"profile_cache_ttl"`

	// Collection names
	AccountCollection string `json:"mongo_account_collection"`
	SessionCollection string `json:"mongo_session_collection"`
	AttemptCollection string `json:"mongo_attempt_collection"`

	// Verification session configuration
	SessionTTL               time.Duration `json:"session_ttl"`
	IndexMaintenanceInterval time.Duration `json:"index_maintenance_interval"`

	// Phone validation policy: "il" or "generic"
	PhonePolicy string `json:"phone_policy"`

	// Sandbox bypass for integration testing
	SandboxEnabled bool   `json:"sandbox_enabled"`
	SandboxPhone   string `json:"sandbox_phone"`
	SandboxCode    string `json:"sandbox_code"`

	// OTP delivery gateway (Verify-style REST API)
	VerifyBaseURL    string `json:"verify_base_url"`
	VerifyAccountSID string `json:"verify_account_sid"`
	VerifyAuthToken  string `json:"-"`
	VerifyServiceSID string `json:"verify_service_sid"`

	// JWT configuration
	JWTSecret     string        `json:"-"`
	JWTIssuer     string        `json:"jwt_issuer"`
	JWTAudience   string        `json:"jwt_audience"`
	JWTExpiration time.Duration `json:"jwt_expiration"`

	// Tracing configuration
	TracingEnabled  bool   `json:"tracing_enabled"`
	TracingEndpoint string `json:"tracing_endpoint"`
}

var (
	AppConfig *Config
)

// LoadConfig loads configuration from environment variables
func LoadConfig() error {
	port, err := strconv.Atoi(getEnvOrDefault("PORT", "8080"))
	if err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}

	redisDB, err := strconv.Atoi(getEnvOrDefault("REDIS_DB", "0"))
	if err != nil {
		return fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	profileCacheTTL, err := time.ParseDuration(getEnvOrDefault("PROFILE_CACHE_TTL", "10m"))
	if err != nil {
		return fmt.Errorf("invalid PROFILE_CACHE_TTL: %w", err)
	}

	sessionTTL, err := time.ParseDuration(getEnvOrDefault("VERIFICATION_SESSION_TTL", "10m"))
	if err != nil {
		return fmt.Errorf("invalid VERIFICATION_SESSION_TTL: %w", err)
	}

	indexInterval, err := time.ParseDuration(getEnvOrDefault("INDEX_MAINTENANCE_INTERVAL", "1h"))
	if err != nil {
		return fmt.Errorf("invalid INDEX_MAINTENANCE_INTERVAL: %w", err)
	}

	jwtExpiration, err := time.ParseDuration(getEnvOrDefault("JWT_EXPIRATION", "24h"))
	if err != nil {
		return fmt.Errorf("invalid JWT_EXPIRATION: %w", err)
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}

	sandboxEnabled, err := strconv.ParseBool(getEnvOrDefault("SANDBOX_ENABLED", "false"))
	if err != nil {
		return fmt.Errorf("invalid SANDBOX_ENABLED: %w", err)
	}

	tracingEnabled, err := strconv.ParseBool(getEnvOrDefault("TRACING_ENABLED", "false"))
	if err != nil {
		return fmt.Errorf("invalid TRACING_ENABLED: %w", err)
	}

	AppConfig = &Config{
		// Server configuration
		Port:        port,
		Environment: getEnvOrDefault("ENVIRONMENT", "development"),

		// MongoDB configuration
		MongoURI:      getEnvOrDefault("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnvOrDefault("MONGODB_DATABASE", "shiftwise_auth"),

		// Redis configuration
		RedisURI:        getEnvOrDefault("REDIS_URI", "redis://localhost:6379"),
		RedisPassword:   getEnvOrDefault("REDIS_PASSWORD", ""),
		RedisDB:         redisDB,
		ProfileCacheTTL: profileCacheTTL,

		// Collection names
		AccountCollection: getEnvOrDefault("MONGODB_ACCOUNT_COLLECTION", "accounts"),
		SessionCollection: getEnvOrDefault("MONGODB_SESSION_COLLECTION", "verification_sessions"),
		AttemptCollection: getEnvOrDefault("MONGODB_ATTEMPT_COLLECTION", "login_attempts"),

		// Verification session configuration
		SessionTTL:               sessionTTL,
		IndexMaintenanceInterval: indexInterval,

		// Phone validation policy
		PhonePolicy: getEnvOrDefault("PHONE_POLICY", "il"),

		// Sandbox bypass
		SandboxEnabled: sandboxEnabled,
		SandboxPhone:   getEnvOrDefault("SANDBOX_PHONE", "0500000000"),
		SandboxCode:    getEnvOrDefault("SANDBOX_CODE", "123456"),

		// OTP delivery gateway
		VerifyBaseURL:    getEnvOrDefault("VERIFY_BASE_URL", "https://verify.twilio.com"),
		VerifyAccountSID: getEnvOrDefault("VERIFY_ACCOUNT_SID", ""),
		VerifyAuthToken:  getEnvOrDefault("VERIFY_AUTH_TOKEN", ""),
		VerifyServiceSID: getEnvOrDefault("VERIFY_SERVICE_SID", ""),

		// JWT configuration
		JWTSecret:     jwtSecret,
		JWTIssuer:     getEnvOrDefault("JWT_ISSUER", "shiftwise-auth"),
		JWTAudience:   getEnvOrDefault("JWT_AUDIENCE", "shiftwise"),
		JWTExpiration: jwtExpiration,

		// Tracing configuration
		TracingEnabled:  tracingEnabled,
		TracingEndpoint: getEnvOrDefault("TRACING_ENDPOINT", "localhost:4317"),
	}

	return nil
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
