package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:5001", cfg.Server.Addr())
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, "memory", cfg.Assets.Backend)
	assert.Equal(t, "", cfg.Redis.Addr())
	assert.Equal(t, 10*time.Second, cfg.MongoDB.Timeout)
	assert.Equal(t, time.Hour, cfg.JWT.AccessTokenTTL)
	assert.Equal(t, "http://localhost:5001", cfg.Client.APIURL)
}

func TestLoadConfig_FromEnvAndDotenv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("STORE_BACKEND=redis\nREDIS_HOST=cache\nSITEADMIN_TOKEN=from-dotenv\n"), 0o600))
	t.Setenv("ENV_FILE", envFile)
	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("ASSETS_BACKEND", "MinIO")
	t.Setenv("MINIO_ENDPOINT", "minio:9000")
	t.Setenv("JWT_SECRET", "testsecret123456789012345678901234")
	t.Cleanup(func() {
		os.Unsetenv("STORE_BACKEND")
		os.Unsetenv("REDIS_HOST")
		os.Unsetenv("SITEADMIN_TOKEN")
	})

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr())
	assert.Equal(t, "from-dotenv", cfg.Client.Token)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 2.5, cfg.RateLimit.RPS)
	assert.Equal(t, "minio", cfg.Assets.Backend)
	assert.Equal(t, "minio:9000", cfg.MinIO.Endpoint)
}

func TestLoadConfig_RejectsUnusableBackends(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	t.Setenv("STORE_BACKEND", "postgres")
	_, err := LoadConfig()
	assert.Error(t, err)

	t.Setenv("STORE_BACKEND", "mongo")
	t.Setenv("MONGODB_URI", "")
	_, err = LoadConfig()
	assert.ErrorContains(t, err, "MONGODB_URI")
}
