package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/gophshare/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   server bind address (e.g., ":8080")
//	-s string   server URL for remote backends
//	-l string   ledger backend: memory, sqlite, postgres, remote
//	-d string   ledger DSN
//	-o string   blob backend: memory, sqlite, s3, remote
//	-f string   blob DSN (SQLite file)
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-n int      blob chunk size in bytes
//	-k string   key file
//	-w string   data directory
//	-t int      shutdown timeout, seconds
//	-v string   log level
func parseFlags(config *Config) error {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-s", "-l", "-d", "-o", "-f", "-u", "-p", "-b", "-g", "-e", "-n", "-k", "-w", "-t", "-v",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.ListenAddr, "a", config.ListenAddr, "address and port to run server")
	fs.StringVar(&config.ServerURL, "s", config.ServerURL, "server URL")
	fs.StringVar(&config.LedgerBackend, "l", config.LedgerBackend, "ledger backend")
	fs.StringVar(&config.LedgerDSN, "d", config.LedgerDSN, "ledger DSN")
	fs.StringVar(&config.BlobBackend, "o", config.BlobBackend, "blob backend")
	fs.StringVar(&config.BlobDSN, "f", config.BlobDSN, "blob DSN")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.IntVar(&config.ChunkSize, "n", config.ChunkSize, "blob chunk size")
	fs.StringVar(&config.KeyFile, "k", config.KeyFile, "key file")
	fs.StringVar(&config.DataDir, "w", config.DataDir, "data directory")
	shutdown := fs.Int("t", int(config.ShutdownTimeout.Seconds()), "shutdown timeout (in seconds)")
	fs.StringVar(&config.LogLevel, "v", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			config.ShutdownTimeout = time.Duration(*shutdown) * time.Second
		}
	})
	return nil
}
