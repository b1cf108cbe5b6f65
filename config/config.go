package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration; the listen address comes from `serve --http`
	Environment string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string
	PubNubUserID       string

	// Venue defaults
	DefaultRatingThreshold int
	VenueTimezone          string

	// Gate timing
	WeddingLookupTimeout    time.Duration
	PasscodeValidationDelay time.Duration
	PasscodeRejectDisplay   time.Duration
	PersistenceTimeout      time.Duration

	// Session lifecycle
	SessionTTL             time.Duration
	SessionCleanupInterval time.Duration

	// Gallery handoff; %s is replaced with the wedding id
	GalleryURLTemplate string

	// Staff access to review summaries (bcrypt hash)
	StaffKeyHash string

	// Monitoring
	EnableMetrics bool
	LogLevel      string
}

// LoadConfig reads the environment, after loading a .env file if one exists.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		// Server
		Environment: getEnv("ENVIRONMENT", "development"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),
		PubNubUserID:       getEnv("PUBNUB_USER_ID", "wedding-gate-server"),

		// Venue
		DefaultRatingThreshold: getEnvAsInt("DEFAULT_RATING_THRESHOLD", 4),
		VenueTimezone:          getEnv("VENUE_TIMEZONE", "UTC"),

		// Timing
		WeddingLookupTimeout:    getEnvAsDuration("WEDDING_LOOKUP_TIMEOUT", "3s"),
		PasscodeValidationDelay: getEnvAsDuration("PASSCODE_VALIDATION_DELAY", "300ms"),
		PasscodeRejectDisplay:   getEnvAsDuration("PASSCODE_REJECT_DISPLAY", "1500ms"),
		PersistenceTimeout:      getEnvAsDuration("PERSISTENCE_TIMEOUT", "5s"),

		// Sessions
		SessionTTL:             getEnvAsDuration("SESSION_TTL", "30m"),
		SessionCleanupInterval: getEnvAsDuration("SESSION_CLEANUP_INTERVAL", "1m"),

		GalleryURLTemplate: getEnv("GALLERY_URL_TEMPLATE", "/gallery/%s"),
		StaffKeyHash:       getEnv("STAFF_KEY_HASH", ""),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}
}

// Location resolves VenueTimezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.VenueTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
