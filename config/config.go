package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Optional rotating log file, written in addition to stderr.
	LogFile        string `mapstructure:"LOG_FILE"`
	LogMaxSizeMB   int    `mapstructure:"LOG_MAX_SIZE_MB"`
	LogMaxBackups  int    `mapstructure:"LOG_MAX_BACKUPS"`
	LogMaxAgeDays  int    `mapstructure:"LOG_MAX_AGE_DAYS"`
	LogCompress    bool   `mapstructure:"LOG_COMPRESS"`
	MetricsEnabled bool   `mapstructure:"METRICS_ENABLED"`

	// Record store. STORE_BACKEND selects firestore, mongo or memory.
	StoreBackend        string `mapstructure:"STORE_BACKEND"`
	DatabaseURL         string `mapstructure:"DATABASE_URL"`
	DatabaseName        string `mapstructure:"DATABASE_NAME"`
	MerchantsCollection string `mapstructure:"MERCHANTS_COLLECTION"`
	ReviewsCollection   string `mapstructure:"REVIEWS_COLLECTION"`

	// Firebase project, credentials and the storage bucket media references live in.
	FirebaseProjectID        string `mapstructure:"FIREBASE_PROJECT_ID"`
	FirebaseCredentialsFile  string `mapstructure:"FIREBASE_CREDENTIALS_FILE"`
	FirebaseBucketName       string `mapstructure:"FIREBASE_BUCKET_NAME"`
	MediaSignedURLTTLMinutes int    `mapstructure:"MEDIA_SIGNED_URL_TTL_MINUTES"`

	// Cloudinary, for media stored as cloudinary public ids.
	CloudinaryCloudName string `mapstructure:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `mapstructure:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `mapstructure:"CLOUDINARY_API_SECRET"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// Google Maps API Key, used for geocoding.
	GoogleAPIKey          string  `mapstructure:"GOOGLE_API_KEY"`
	GeocodeRequestsPerSec float64 `mapstructure:"GEOCODE_REQUESTS_PER_SEC"`
	GeocodeConcurrency    int     `mapstructure:"GEOCODE_CONCURRENCY"`

	RemoteTimeoutSeconds     int    `mapstructure:"REMOTE_TIMEOUT_SECONDS"`
	SearchDebounceMs         int    `mapstructure:"SEARCH_DEBOUNCE_MS"`
	SearchPageSize           int    `mapstructure:"SEARCH_PAGE_SIZE"`
	SearchSessionIdleMinutes int    `mapstructure:"SEARCH_SESSION_IDLE_MINUTES"`
	ReconcileSchedule        string `mapstructure:"RECONCILE_SCHEDULE"`
}

var AppConfig Config

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("LOG_MAX_SIZE_MB", 100)
	v.SetDefault("LOG_MAX_BACKUPS", 5)
	v.SetDefault("LOG_MAX_AGE_DAYS", 28)
	v.SetDefault("LOG_COMPRESS", true)
	v.SetDefault("METRICS_ENABLED", true)

	v.SetDefault("STORE_BACKEND", "firestore")
	v.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	v.SetDefault("DATABASE_NAME", "venuedir")
	v.SetDefault("MERCHANTS_COLLECTION", "merchants")
	v.SetDefault("REVIEWS_COLLECTION", "reviews")

	v.SetDefault("FIREBASE_PROJECT_ID", "")
	v.SetDefault("FIREBASE_CREDENTIALS_FILE", "")
	v.SetDefault("FIREBASE_BUCKET_NAME", "")
	v.SetDefault("MEDIA_SIGNED_URL_TTL_MINUTES", 0)

	v.SetDefault("CLOUDINARY_CLOUD_NAME", "")
	v.SetDefault("CLOUDINARY_API_KEY", "")
	v.SetDefault("CLOUDINARY_API_SECRET", "")

	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_CACHE_DB", 0)
	v.SetDefault("REDIS_QUEUE_DB", 1)

	v.SetDefault("GOOGLE_API_KEY", "")
	v.SetDefault("GEOCODE_REQUESTS_PER_SEC", 10.0)
	v.SetDefault("GEOCODE_CONCURRENCY", 4)

	v.SetDefault("REMOTE_TIMEOUT_SECONDS", 10)
	v.SetDefault("SEARCH_DEBOUNCE_MS", 300)
	v.SetDefault("SEARCH_PAGE_SIZE", 10)
	v.SetDefault("SEARCH_SESSION_IDLE_MINUTES", 30)
	v.SetDefault("RECONCILE_SCHEDULE", "@every 1h")
}

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	SetDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}

// RemoteTimeout bounds every call to the record store and the geocoding provider.
func (c Config) RemoteTimeout() time.Duration {
	if c.RemoteTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.RemoteTimeoutSeconds) * time.Second
}

func (c Config) SearchDebounce() time.Duration {
	if c.SearchDebounceMs <= 0 {
		return 300 * time.Millisecond
	}
	return time.Duration(c.SearchDebounceMs) * time.Millisecond
}

func (c Config) SearchSessionIdle() time.Duration {
	if c.SearchSessionIdleMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.SearchSessionIdleMinutes) * time.Minute
}

func (c Config) MediaSignedURLTTL() time.Duration {
	return time.Duration(c.MediaSignedURLTTLMinutes) * time.Minute
}
