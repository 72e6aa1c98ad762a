package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPListenAddr string
	DatabaseURL    string
	LogLevel       string
	ServiceName    string

	// Executor selects the storage backend: "local" or "s3".
	Executor string
	// SourceDir holds the logical partitions being backed up, one
	// top-level entry per table.
	SourceDir string
	// BackupDir is where the local executor writes archives.
	BackupDir string
	// EncryptionKey is the passphrase for encrypted archives.
	EncryptionKey string

	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3Prefix    string
	S3AccessKey string
	S3SecretKey string

	SchedulerTick    time.Duration
	CleanupInterval  time.Duration
	ScheduleSeedFile string
}

func Load() (*Config, error) {
	cfg := &Config{
		HTTPListenAddr:   getEnv("HTTP_LISTEN_ADDR", ":8090"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		ServiceName:      getEnv("SERVICE_NAME", "backupd"),
		Executor:         getEnv("EXECUTOR", "local"),
		SourceDir:        getEnv("SOURCE_DIR", "/var/lib/backupd/data"),
		BackupDir:        getEnv("BACKUP_DIR", "/var/lib/backupd/backups"),
		EncryptionKey:    getEnv("BACKUP_ENCRYPTION_KEY", ""),
		S3Endpoint:       getEnv("S3_ENDPOINT", ""),
		S3Region:         getEnv("S3_REGION", "us-east-1"),
		S3Bucket:         getEnv("S3_BUCKET", ""),
		S3Prefix:         getEnv("S3_PREFIX", "backups"),
		S3AccessKey:      getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:      getEnv("S3_SECRET_KEY", ""),
		SchedulerTick:    getDuration("SCHEDULER_TICK_SECONDS", 60),
		CleanupInterval:  getDuration("CLEANUP_INTERVAL_SECONDS", 3600),
		ScheduleSeedFile: getEnv("SCHEDULE_SEED_FILE", ""),
	}

	switch cfg.Executor {
	case "local":
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET is required when EXECUTOR=s3")
		}
	default:
		return nil, fmt.Errorf("unknown EXECUTOR %q, want local or s3", cfg.Executor)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallbackSeconds int) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return time.Duration(fallbackSeconds) * time.Second
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return time.Duration(fallbackSeconds) * time.Second
	}
	return time.Duration(secs) * time.Second
}
