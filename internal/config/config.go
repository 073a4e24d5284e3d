package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the plan service.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	S3       S3Config       `mapstructure:"s3"`
	Storage  StorageConfig  `mapstructure:"storage"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Log      LogConfig      `mapstructure:"log"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Lock     LockConfig     `mapstructure:"lock"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig selects the repository backend: "mongo" or "memory".
type DatabaseConfig struct {
	Backend string `mapstructure:"backend"`
	URI     string `mapstructure:"uri"`
	Name    string `mapstructure:"name"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// StorageConfig selects where oversized archive snapshots go: "s3", "memory" or "none".
// With "none" every snapshot is stored inline regardless of size.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
}

// JWTConfig defines JWT specific configuration
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	// Expiration applies to development tokens minted by plancli.
	Expiration time.Duration `mapstructure:"expiration"`
}

type LogConfig struct {
	Mode  string `mapstructure:"mode"`  // development | production
	Level string `mapstructure:"level"` // zap level name
}

type ArchiveConfig struct {
	// OverflowBytes is the JSON size above which a snapshot is offloaded to blob storage.
	OverflowBytes  int           `mapstructure:"overflow_bytes"`
	DownloadExpiry time.Duration `mapstructure:"download_expiry"`
}

// LockConfig selects the per-athlete update lock: "memory" (single process) or "redis".
type LockConfig struct {
	Backend string        `mapstructure:"backend"`
	TTL     time.Duration `mapstructure:"ttl"`
	Wait    time.Duration `mapstructure:"wait"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LoadConfig reads configuration from path/config.yaml and environment variables
// (nested keys use "_", e.g. ARCHIVE_OVERFLOW_BYTES).
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	setDefaults(v)

	err = v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		// No file; defaults and environment only.
		err = nil
	} else if err != nil {
		return
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}
	if err = config.Validate(); err != nil {
		return
	}
	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("database.backend", "mongo")
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "kaizencoach")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket_name", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")
	v.SetDefault("s3.use_ssl", true)
	v.SetDefault("storage.backend", "none")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiration", "1h")
	v.SetDefault("log.mode", "development")
	v.SetDefault("log.level", "")
	v.SetDefault("archive.overflow_bytes", 350*1024)
	v.SetDefault("archive.download_expiry", "15m")
	v.SetDefault("lock.backend", "memory")
	v.SetDefault("lock.ttl", "30s")
	v.SetDefault("lock.wait", "10s")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
}

// Validate rejects unknown backends and inconsistent settings.
func (c Config) Validate() error {
	switch c.Database.Backend {
	case "mongo", "memory":
	default:
		return fmt.Errorf("database.backend must be mongo or memory, got %q", c.Database.Backend)
	}
	switch c.Storage.Backend {
	case "none", "memory":
	case "s3":
		if c.S3.BucketName == "" {
			return errors.New("s3.bucket_name is required when storage.backend is s3")
		}
	default:
		return fmt.Errorf("storage.backend must be s3, memory or none, got %q", c.Storage.Backend)
	}
	switch c.Lock.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("lock.backend must be memory or redis, got %q", c.Lock.Backend)
	}
	if c.Lock.TTL <= 0 {
		return errors.New("lock.ttl must be positive")
	}
	if c.Archive.OverflowBytes <= 0 {
		return errors.New("archive.overflow_bytes must be positive")
	}
	return nil
}
