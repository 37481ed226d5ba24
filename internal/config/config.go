package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        string
	Environment string
	DatabaseURL string
	CORSOrigins string
	TablePrefix string
	Timezone    string

	// Auth
	JWTSecretKey   string
	JWTJWKSURL     string
	AuthAPIBaseURL string

	// Key-value store
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Object store (S3-compatible)
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	R2AccountID        string
	R2BucketName       string
	R2EndpointURL      string

	// Learning ledger
	PointDuration      time.Duration
	CompletionDuration time.Duration

	// Notifications
	PushMessageLimit int
	PushCacheTTL     time.Duration
	SSEKeepAlive     time.Duration
	WSClientTimeout  time.Duration
	WSPingInterval   time.Duration
	WSCheckInterval  time.Duration
	WSMaxMessageSize int64
	CacheTTL         time.Duration
	PresenceCacheTTL time.Duration

	// Scheduler
	GeneratedDir    string
	CleanupInterval time.Duration
	CleanupMaxAge   time.Duration
	CleanupLockKey  int64
	RollupSchedule  string

	// Logging
	LogDir      string
	LogMaxFiles int
	Debug       bool
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: env,
		DatabaseURL: getEnv("DATABASE_URL", ""),
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
		TablePrefix: getTablePrefix(env),
		Timezone:    getEnv("TIMEZONE", "Local"),

		JWTSecretKey:   getEnv("JWT_SECRET_KEY", ""),
		JWTJWKSURL:     getEnv("JWT_JWKS_URL", ""),
		AuthAPIBaseURL: getEnv("AUTH_API_BASE_URL", ""),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		R2AccountID:        getEnv("R2_ACCOUNT_ID", ""),
		R2BucketName:       getEnv("R2_BUCKET_NAME", ""),
		R2EndpointURL:      getEnv("R2_ENDPOINT_URL", ""),

		PointDuration:      getEnvSeconds("POINT_DURATION_SECONDS", 30),
		CompletionDuration: time.Duration(getEnvInt("LEARNING_COMPLETED_MINUTES", 1)) * time.Minute,

		PushMessageLimit: getEnvInt("PUSH_MESSAGE_LIMIT", 5),
		PushCacheTTL:     getEnvSeconds("PUSH_CACHE_TTL_SECONDS", 600),
		SSEKeepAlive:     getEnvSeconds("SSE_KEEPALIVE_SECONDS", 15),
		WSClientTimeout:  getEnvSeconds("WS_CLIENT_TIMEOUT_SECONDS", 40),
		WSPingInterval:   getEnvSeconds("WS_PING_INTERVAL_SECONDS", 10),
		WSCheckInterval:  getEnvSeconds("WS_CHECK_INTERVAL_SECONDS", 20),
		WSMaxMessageSize: int64(getEnvInt("WS_MAX_MESSAGE_SIZE", 1<<20)),
		CacheTTL:         getEnvSeconds("CACHE_DEFAULT_TIMEOUT", 3600),
		PresenceCacheTTL: getEnvSeconds("PRESENCE_CACHE_TTL_SECONDS", 300),

		GeneratedDir:    getEnv("GENERATED_DIR", "/tmp/generated_excels"),
		CleanupInterval: time.Duration(getEnvInt("CLEANUP_INTERVAL_MINUTES", 65)) * time.Minute,
		CleanupMaxAge:   time.Duration(getEnvInt("CLEANUP_MAX_AGE_MINUTES", 60)) * time.Minute,
		CleanupLockKey:  int64(getEnvInt("CLEANUP_LOCK_KEY", 1234567890)),
		RollupSchedule:  getEnv("ROLLUP_SCHEDULE", "30 2 * * *"),

		LogDir:      getEnv("LOG_DIR", "./logs"),
		LogMaxFiles: getEnvInt("LOG_MAX_FILES", 5),
		// Debug flags - default to true in dev/test, false in production
		Debug: getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}
}

// Location resolves the configured timezone, falling back to the server's local zone.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// ObjectStoreConfigured reports whether every object store credential is present.
func (c *Config) ObjectStoreConfigured() bool {
	return c.AWSAccessKeyID != "" && c.AWSSecretAccessKey != "" && c.R2BucketName != "" &&
		(c.R2EndpointURL != "" || c.R2AccountID != "")
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

// getTablePrefix returns the table prefix based on environment.
// Production tables carry no prefix so the schema matches existing deployments.
func getTablePrefix(env string) string {
	if prefix, ok := os.LookupEnv("TABLE_PREFIX"); ok {
		return prefix
	}

	switch env {
	case "prod":
		return ""
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvSeconds(key string, defaultSeconds int) time.Duration {
	return time.Duration(getEnvInt(key, defaultSeconds)) * time.Second
}
