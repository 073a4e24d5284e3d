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
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "mongo", cfg.Database.Backend)
	assert.Equal(t, "none", cfg.Storage.Backend)
	assert.Equal(t, "memory", cfg.Lock.Backend)
	assert.Equal(t, 30*time.Second, cfg.Lock.TTL)
	assert.Equal(t, 350*1024, cfg.Archive.OverflowBytes)
	assert.Equal(t, 15*time.Minute, cfg.Archive.DownloadExpiry)
	assert.Equal(t, time.Hour, cfg.JWT.Expiration)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  address: ":9090"
database:
  backend: memory
storage:
  backend: s3
s3:
  bucket_name: plans
  region: eu-west-1
archive:
  overflow_bytes: 1024
lock:
  backend: redis
  ttl: 5s
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	t.Setenv("ARCHIVE_OVERFLOW_BYTES", "2048")
	t.Setenv("JWT_SECRET", "s3cr3t")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, "memory", cfg.Database.Backend)
	assert.Equal(t, "plans", cfg.S3.BucketName)
	assert.Equal(t, "eu-west-1", cfg.S3.Region)
	assert.Equal(t, 2048, cfg.Archive.OverflowBytes, "environment wins over file")
	assert.Equal(t, "s3cr3t", cfg.JWT.Secret)
	assert.Equal(t, "redis", cfg.Lock.Backend)
	assert.Equal(t, 5*time.Second, cfg.Lock.TTL)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := map[string]string{
		"unknown database": "database:\n  backend: postgres\n",
		"s3 without bucket": "storage:\n  backend: s3\n",
		"unknown lock":      "lock:\n  backend: etcd\n",
		"zero overflow":     "archive:\n  overflow_bytes: 0\n",
	}
	for name, yaml := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
			_, err := LoadConfig(dir)
			assert.Error(t, err)
		})
	}
}
