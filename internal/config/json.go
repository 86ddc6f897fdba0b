package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gophshare/internal/flagx"
	"github.com/dmitrijs2005/gophshare/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations
// accept "10s" strings or integer nanoseconds via timex.Duration.
type JsonConfig struct {
	ListenAddr      string         `json:"listen_addr"`
	ServerURL       string         `json:"server_url"`
	LedgerBackend   string         `json:"ledger_backend"`
	LedgerDSN       string         `json:"ledger_dsn"`
	BlobBackend     string         `json:"blob_backend"`
	BlobDSN         string         `json:"blob_dsn"`
	S3RootUser      string         `json:"s3_root_user"`
	S3RootPassword  string         `json:"s3_root_password"`
	S3Bucket        string         `json:"s3_bucket"`
	S3Region        string         `json:"s3_region"`
	S3BaseEndpoint  string         `json:"s3_base_endpoint"`
	ChunkSize       int            `json:"chunk_size"`
	KeyFile         string         `json:"key_file"`
	DataDir         string         `json:"data_dir"`
	ShutdownTimeout timex.Duration `json:"shutdown_timeout"`
	LogLevel        string         `json:"log_level"`
}

// parseJson overlays the file named by -c/-config (or $GOPHSHARE_CONFIG).
// Only keys present with a non-zero value replace the current setting.
func parseJson(config *Config) error {
	path := flagx.ConfigPath()
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&config.ListenAddr, c.ListenAddr)
	setString(&config.ServerURL, c.ServerURL)
	setString(&config.LedgerBackend, c.LedgerBackend)
	setString(&config.LedgerDSN, c.LedgerDSN)
	setString(&config.BlobBackend, c.BlobBackend)
	setString(&config.BlobDSN, c.BlobDSN)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.KeyFile, c.KeyFile)
	setString(&config.DataDir, c.DataDir)
	setString(&config.LogLevel, c.LogLevel)
	if c.ChunkSize != 0 {
		config.ChunkSize = c.ChunkSize
	}
	if c.ShutdownTimeout.Duration != 0 {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
