package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("JWT_ACCESS_TTL", "")
	t.Setenv("STORAGE_DRIVER", "")

	cfg := Load()
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, int64(10*1024*1024), cfg.MaxFileSize)
	assert.Equal(t, "local", cfg.StorageDriver)
	assert.Equal(t, 10*time.Second, cfg.WSAuthTimeout)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_ACCESS_TTL", "5m")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("CORS_ORIGIN", "https://a.example, https://b.example")
	t.Setenv("STORAGE_DRIVER", "S3")

	cfg := Load()
	assert.Equal(t, 5*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigin)
	assert.Equal(t, "s3", cfg.StorageDriver)
}

func TestLoad_BadNumbersFallBack(t *testing.T) {
	t.Setenv("REDIS_DB", "x")
	t.Setenv("WS_AUTH_TIMEOUT", "soon")

	cfg := Load()
	assert.Equal(t, 0, cfg.RedisDB)
	assert.Equal(t, 10*time.Second, cfg.WSAuthTimeout)
}

func TestValidate(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("DATABASE_URL", "postgres://localhost/taskhub")
	t.Setenv("STORAGE_DRIVER", "local")

	cfg := Load()
	require.NoError(t, cfg.Validate())

	short := cfg
	short.JWT.Secret = "too-short"
	assert.Error(t, short.Validate())

	noDB := cfg
	noDB.DatabaseURL = ""
	assert.Error(t, noDB.Validate())

	s3 := cfg
	s3.StorageDriver = "s3"
	assert.Error(t, s3.Validate())
	s3.S3.Bucket = "uploads"
	assert.NoError(t, s3.Validate())

	ttl := cfg
	ttl.RefreshTTL = time.Minute
	assert.Error(t, ttl.Validate())
}
