// Package config loads service settings from an env file and the process environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends for recipe images.
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

// Database drivers.
const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

// Config holds runtime settings for the API.
type Config struct {
	// Application
	AppHost  string
	AppPort  string
	LogLevel string
	Debug    bool
	BaseURL  string

	// Database
	DBDriver       string
	SQLitePath     string
	PGHost         string
	PGPort         int
	PGUser         string
	PGPassword     string
	PGDB           string
	PGMaxOpenConns int
	PGMaxIdleConns int

	// Redis
	RedisEnabled      bool
	RedisHost         string
	RedisPort         int
	RedisDB           int
	RedisPassword     string
	RedisPoolSize     int
	RedisMinIdleConns int
	TokenCacheTTL     time.Duration
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Kafka
	KafkaBrokers []string
	KafkaTopic   string

	// Image storage
	StorageBackend string
	MediaRoot      string
	MediaURL       string
	S3AccessKey    string
	S3SecretKey    string
	S3Region       string
	S3Bucket       string
	S3CustomDomain string
	S3Endpoint     string
	MaxBodyBytes   int64
	MaxUploadBytes int64
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.AppHost, c.AppPort)
}

// DSN returns the data source name for the configured driver.
func (c *Config) DSN() string {
	if c.DBDriver == DriverSQLite {
		return c.SQLitePath
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDB)
}

// RedisAddr returns host:port of the Redis server.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// Load reads environment variables from an optional file and
// returns the application configuration with defaults applied.
func Load(path string) (*Config, error) {
	_ = godotenv.Load(path)

	c := &Config{}
	var err error

	// Application config
	c.AppHost = getEnv("APP_HOST", "localhost")
	c.AppPort = getEnv("APP_PORT", "8080")
	c.LogLevel = getEnv("APP_LOG_LEVEL", "info")
	if c.Debug, err = strconv.ParseBool(getEnv("APP_DEBUG", "false")); err != nil {
		return nil, fmt.Errorf("APP_DEBUG: %w", err)
	}
	c.BaseURL = strings.TrimSuffix(getEnv("APP_BASE_URL", "http://"+c.Addr()), "/")

	// Database config
	c.DBDriver = getEnv("DB_DRIVER", DriverPostgres)
	if c.DBDriver != DriverPostgres && c.DBDriver != DriverSQLite {
		return nil, fmt.Errorf("DB_DRIVER: unsupported driver %q", c.DBDriver)
	}
	c.SQLitePath = getEnv("SQLITE_PATH", "culinary.db")
	c.PGHost = getEnv("POSTGRES_HOST", "localhost")
	c.PGUser = getEnv("POSTGRES_USER", "user")
	c.PGPassword = getEnv("POSTGRES_PASSWORD", "password")
	c.PGDB = getEnv("POSTGRES_DB", "database")
	if c.PGPort, err = getInt("POSTGRES_PORT", 5432); err != nil {
		return nil, err
	}
	if c.PGMaxOpenConns, err = getInt("POSTGRES_MAX_OPEN_CONNS", 16); err != nil {
		return nil, err
	}
	if c.PGMaxIdleConns, err = getInt("POSTGRES_MAX_IDLE_CONNS", 8); err != nil {
		return nil, err
	}

	// Redis config
	if c.RedisEnabled, err = strconv.ParseBool(getEnv("REDIS_ENABLED", "false")); err != nil {
		return nil, fmt.Errorf("REDIS_ENABLED: %w", err)
	}
	c.RedisHost = getEnv("REDIS_HOST", "localhost")
	c.RedisPassword = getEnv("REDIS_PASSWORD", "")
	if c.RedisPort, err = getInt("REDIS_PORT", 6379); err != nil {
		return nil, err
	}
	if c.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if c.RedisPoolSize, err = getInt("REDIS_POOL_SIZE", 10); err != nil {
		return nil, err
	}
	if c.RedisMinIdleConns, err = getInt("REDIS_MIN_IDLE_CONNS", 2); err != nil {
		return nil, err
	}
	ttl, err := getInt("TOKEN_CACHE_TTL_SECOND", 300)
	if err != nil {
		return nil, err
	}
	c.TokenCacheTTL = time.Duration(ttl) * time.Second
	if c.RateLimitRequests, err = getInt("RATE_LIMIT_REQUESTS", 20); err != nil {
		return nil, err
	}
	window, err := getInt("RATE_LIMIT_WINDOW_SECOND", 60)
	if err != nil {
		return nil, err
	}
	c.RateLimitWindow = time.Duration(window) * time.Second

	// Kafka config
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				c.KafkaBrokers = append(c.KafkaBrokers, b)
			}
		}
	}
	c.KafkaTopic = getEnv("KAFKA_TOPIC", "recipe-events")

	// Image storage config
	c.StorageBackend = getEnv("STORAGE_BACKEND", StorageLocal)
	if c.StorageBackend != StorageLocal && c.StorageBackend != StorageS3 {
		return nil, fmt.Errorf("STORAGE_BACKEND: unsupported backend %q", c.StorageBackend)
	}
	c.MediaRoot = getEnv("MEDIA_ROOT", "media")
	c.MediaURL = getEnv("MEDIA_URL", "/media/")
	if !strings.HasSuffix(c.MediaURL, "/") {
		c.MediaURL += "/"
	}
	c.S3AccessKey = getEnv("AWS_ACCESS_KEY_ID", "")
	c.S3SecretKey = getEnv("AWS_SECRET_ACCESS_KEY", "")
	c.S3Region = getEnv("AWS_S3_REGION_NAME", "us-east-1")
	c.S3Bucket = getEnv("AWS_STORAGE_BUCKET_NAME", "")
	c.S3CustomDomain = getEnv("AWS_S3_CUSTOM_DOMAIN", "")
	c.S3Endpoint = getEnv("AWS_S3_ENDPOINT", "")
	if c.StorageBackend == StorageS3 && c.S3Bucket == "" {
		return nil, fmt.Errorf("AWS_STORAGE_BUCKET_NAME is required for s3 storage")
	}

	maxBody, err := getInt("MAX_BODY_MB", 12)
	if err != nil {
		return nil, err
	}
	c.MaxBodyBytes = int64(maxBody) << 20
	maxUpload, err := getInt("MAX_UPLOAD_MB", 10)
	if err != nil {
		return nil, err
	}
	c.MaxUploadBytes = int64(maxUpload) << 20

	return c, nil
}

func getEnv(key, defaultValue string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	v, err := strconv.Atoi(getEnv(key, strconv.Itoa(defaultValue)))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}
