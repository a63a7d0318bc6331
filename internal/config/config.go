package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"taskhub-service/internal/pkg/jwt"
)

type AppConfig struct {
	// Server
	HTTPAddr   string
	AppEnv     string
	LogLevel   string
	CORSOrigin []string

	// Storage
	DatabaseURL string
	RedisAddr   string
	RedisPass   string
	RedisDB     int

	// JWT
	JWT                  jwt.Config
	RefreshTTL           time.Duration
	RefreshSweepInterval time.Duration

	// Files
	UploadDir     string
	MaxFileSize   int64
	StorageDriver string
	S3            S3Config

	// Realtime
	WSAuthTimeout time.Duration

	// Seed admin
	AdminEmail    string
	AdminPassword string
	AdminName     string
}

type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// IsProduction reports whether APP_ENV selects production behaviour.
func (c AppConfig) IsProduction() bool {
	return c.AppEnv == "production"
}

// Load loads environment variables into AppConfig.
func Load() AppConfig {
	return AppConfig{
		HTTPAddr:   getEnv("HTTP_ADDR", ":3001"),
		AppEnv:     getEnv("APP_ENV", "development"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		CORSOrigin: getEnvSlice("CORS_ORIGIN", []string{"http://localhost:5173"}),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:   getEnv("REDIS_PASS", ""),
		RedisDB:     getEnvInt("REDIS_DB", 0),

		JWT: jwt.Config{
			Secret:    getEnv("JWT_SECRET", ""),
			Issuer:    getEnv("JWT_ISSUER", "taskhub"),
			AccessTTL: getEnvDuration("JWT_ACCESS_TTL", 15*time.Minute),
		},
		RefreshTTL:           getEnvDuration("JWT_REFRESH_TTL", 7*24*time.Hour),
		RefreshSweepInterval: getEnvDuration("REFRESH_SWEEP_INTERVAL", time.Hour),

		UploadDir:     getEnv("UPLOAD_DIR", "./uploads"),
		MaxFileSize:   int64(getEnvInt("MAX_FILE_SIZE", 10*1024*1024)),
		StorageDriver: strings.ToLower(getEnv("STORAGE_DRIVER", "local")),
		S3: S3Config{
			Bucket:    getEnv("S3_BUCKET", ""),
			Region:    getEnv("S3_REGION", "us-east-1"),
			Endpoint:  getEnv("S3_ENDPOINT", ""),
			AccessKey: getEnv("S3_ACCESS_KEY", ""),
			SecretKey: getEnv("S3_SECRET_KEY", ""),
		},

		WSAuthTimeout: getEnvDuration("WS_AUTH_TIMEOUT", 10*time.Second),

		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		AdminName:     getEnv("ADMIN_NAME", "Administrator"),
	}
}

// Validate rejects configurations the server cannot start with.
func (c AppConfig) Validate() error {
	if len(c.JWT.Secret) < jwt.MinSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", jwt.MinSecretLength)
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.RefreshTTL <= c.JWT.AccessTTL {
		return fmt.Errorf("JWT_REFRESH_TTL must be longer than JWT_ACCESS_TTL")
	}
	switch c.StorageDriver {
	case "local":
	case "s3":
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when STORAGE_DRIVER=s3")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	return nil
}

// --- Helper functions ---

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
