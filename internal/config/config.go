// Package config assembles runtime settings for the gophshare server and
// CLI. Layers apply in order: defaults, environment (and .env), an
// optional JSON file, then command-line flags.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
)

// Backend names accepted by LedgerBackend and BlobBackend.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendS3       = "s3"
	BackendRemote   = "remote"
)

// Config holds runtime settings.
//
// Fields:
//   - ListenAddr: bind address of the replication server.
//   - ServerURL: base URL the CLI uses for the remote backends.
//   - LedgerBackend / LedgerDSN: where ledger entries live.
//   - BlobBackend / BlobDSN: where ciphertext lives.
//   - S3RootUser / S3RootPassword / S3Bucket / S3Region / S3BaseEndpoint:
//     object storage settings for the s3 blob backend.
//   - ChunkSize: chunk length of blob reads.
//   - KeyFile: private JWK of the CLI identity; relative to DataDir.
//   - DataDir: directory for key files and SQLite databases.
type Config struct {
	ListenAddr      string        `validate:"required"`
	ServerURL       string        `validate:"required,url"`
	LedgerBackend   string        `validate:"oneof=memory sqlite postgres remote"`
	LedgerDSN       string        `validate:"required_if=LedgerBackend postgres"`
	BlobBackend     string        `validate:"oneof=memory sqlite s3 remote"`
	BlobDSN         string
	S3RootUser      string        `validate:"required_if=BlobBackend s3"`
	S3RootPassword  string        `validate:"required_if=BlobBackend s3"`
	S3Bucket        string        `validate:"required_if=BlobBackend s3"`
	S3Region        string
	S3BaseEndpoint  string
	ChunkSize       int           `validate:"gt=0"`
	KeyFile         string
	DataDir         string        `validate:"required"`
	ShutdownTimeout time.Duration `validate:"gt=0"`
	LogLevel        string        `validate:"oneof=debug info warn error"`
}

// LoadDefaults populates Config with development defaults.
// NOTE: the S3 credentials match a local MinIO and must be overridden.
func (c *Config) LoadDefaults() {
	c.ListenAddr = ":8080"
	c.ServerURL = "http://127.0.0.1:8080"
	c.LedgerBackend = BackendMemory
	c.BlobBackend = BackendMemory
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "gophshare"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.ChunkSize = 256 * 1024
	c.KeyFile = "identity.json"
	c.DataDir = ".gophshare"
	c.ShutdownTimeout = 10 * time.Second
	c.LogLevel = "info"
}

// Load builds a Config from all layers and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseJson(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// KeyPath resolves KeyFile against DataDir.
func (c *Config) KeyPath() string {
	if filepath.IsAbs(c.KeyFile) {
		return c.KeyFile
	}
	return filepath.Join(c.DataDir, c.KeyFile)
}

// SQLitePath returns dsn, or the default database file in DataDir.
func (c *Config) SQLitePath(dsn string) string {
	if dsn != "" {
		return dsn
	}
	return filepath.Join(c.DataDir, "gophshare.db")
}
