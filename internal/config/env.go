package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable read by parseEnv.
const EnvPrefix = "GOPHSHARE_"

// parseEnv overlays GOPHSHARE_* variables. A .env file in the working
// directory is loaded first; variables already set in the environment win.
func parseEnv(c *Config) error {
	_ = godotenv.Load()

	c.ListenAddr = getEnv("LISTEN_ADDR", c.ListenAddr)
	c.ServerURL = getEnv("SERVER_URL", c.ServerURL)
	c.LedgerBackend = getEnv("LEDGER_BACKEND", c.LedgerBackend)
	c.LedgerDSN = getEnv("LEDGER_DSN", c.LedgerDSN)
	c.BlobBackend = getEnv("BLOB_BACKEND", c.BlobBackend)
	c.BlobDSN = getEnv("BLOB_DSN", c.BlobDSN)
	c.S3RootUser = getEnv("S3_ROOT_USER", c.S3RootUser)
	c.S3RootPassword = getEnv("S3_ROOT_PASSWORD", c.S3RootPassword)
	c.S3Bucket = getEnv("S3_BUCKET", c.S3Bucket)
	c.S3Region = getEnv("S3_REGION", c.S3Region)
	c.S3BaseEndpoint = getEnv("S3_BASE_ENDPOINT", c.S3BaseEndpoint)
	c.KeyFile = getEnv("KEY_FILE", c.KeyFile)
	c.DataDir = getEnv("DATA_DIR", c.DataDir)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	chunk, err := getEnvAsInt("CHUNK_SIZE", c.ChunkSize)
	if err != nil {
		return err
	}
	c.ChunkSize = chunk

	timeout, err := getEnvAsDuration("SHUTDOWN_TIMEOUT", c.ShutdownTimeout)
	if err != nil {
		return err
	}
	c.ShutdownTimeout = timeout

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s%s: %w", EnvPrefix, key, err)
	}
	return value, nil
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s%s: %w", EnvPrefix, key, err)
	}
	return value, nil
}
