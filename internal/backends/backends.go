// Package backends turns configuration into a concrete blob store and
// ledger, owning whatever connections they need.
package backends

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/gophshare/internal/blobstore"
	"github.com/dmitrijs2005/gophshare/internal/config"
	"github.com/dmitrijs2005/gophshare/internal/dbx"
	"github.com/dmitrijs2005/gophshare/internal/filex"
	"github.com/dmitrijs2005/gophshare/internal/ledger"
	"github.com/dmitrijs2005/gophshare/internal/logging"
	"github.com/dmitrijs2005/gophshare/internal/remote"
	"github.com/dmitrijs2005/gophshare/internal/repomanager"
	"github.com/dmitrijs2005/gophshare/internal/sharing"
)

// Backends bundles the storage a sharing.Service runs on.
type Backends struct {
	Store  blobstore.Store
	Ledger sharing.Ledger
	// Log is the local ledger; nil when the ledger is remote.
	Log *ledger.Log

	closers []func() error
}

// newS3Client is a seam for tests.
var newS3Client = func(ctx context.Context, c blobstore.S3Config) (blobstore.S3API, error) {
	return blobstore.NewS3Client(ctx, c)
}

// Open builds the backends selected by cfg. On error everything opened so
// far is closed.
func Open(ctx context.Context, cfg *config.Config, logger logging.Logger) (_ *Backends, err error) {
	logger = logging.OrNop(logger)
	b := &Backends{}
	defer func() {
		if err != nil {
			_ = b.Close()
		}
	}()

	managers := map[string]*repomanager.Manager{}
	sqlManager := func(dialect dbx.Dialect, dsn string) (*repomanager.Manager, error) {
		if dialect == dbx.DialectSQLite {
			if _, err := filex.EnsureDir(cfg.DataDir); err != nil {
				return nil, err
			}
			dsn = cfg.SQLitePath(dsn)
		}
		key := string(dialect) + "|" + dsn
		if m, ok := managers[key]; ok {
			return m, nil
		}
		m, err := repomanager.Open(ctx, dialect, dsn)
		if err != nil {
			return nil, err
		}
		managers[key] = m
		b.closers = append(b.closers, m.Close)
		return m, nil
	}

	var client *remote.Client
	remoteClient := func() (*remote.Client, error) {
		if client != nil {
			return client, nil
		}
		c, err := remote.NewClient(cfg.ServerURL, &http.Client{}, logger)
		if err != nil {
			return nil, err
		}
		client = c
		return c, nil
	}

	switch cfg.LedgerBackend {
	case config.BackendMemory:
		b.Log = ledger.New(ledger.NewMemoryRepository(), logger)
	case config.BackendSQLite, config.BackendPostgres:
		dialect := dbx.DialectSQLite
		if cfg.LedgerBackend == config.BackendPostgres {
			dialect = dbx.DialectPostgres
		}
		m, err := sqlManager(dialect, cfg.LedgerDSN)
		if err != nil {
			return nil, fmt.Errorf("ledger backend: %w", err)
		}
		b.Log = ledger.New(m.Ledger(), logger)
	case config.BackendRemote:
		c, err := remoteClient()
		if err != nil {
			return nil, fmt.Errorf("ledger backend: %w", err)
		}
		b.Ledger = remote.NewLedger(c)
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.LedgerBackend)
	}
	if b.Log != nil {
		b.Ledger = b.Log
	}

	switch cfg.BlobBackend {
	case config.BackendMemory:
		b.Store = blobstore.NewMemoryStore(cfg.ChunkSize)
	case config.BackendSQLite:
		m, err := sqlManager(dbx.DialectSQLite, cfg.BlobDSN)
		if err != nil {
			return nil, fmt.Errorf("blob backend: %w", err)
		}
		if b.Store, err = m.Blobs(cfg.ChunkSize); err != nil {
			return nil, err
		}
	case config.BackendS3:
		s3c, err := newS3Client(ctx, blobstore.S3Config{
			AccessKey:    cfg.S3RootUser,
			SecretKey:    cfg.S3RootPassword,
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("blob backend: %w", err)
		}
		b.Store = blobstore.NewS3Store(s3c, cfg.S3Bucket, "", cfg.ChunkSize)
	case config.BackendRemote:
		c, err := remoteClient()
		if err != nil {
			return nil, fmt.Errorf("blob backend: %w", err)
		}
		b.Store = remote.NewBlobStore(c, cfg.ChunkSize)
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
	}

	logger.Info(ctx, "backends ready", "ledger", cfg.LedgerBackend, "blobs", cfg.BlobBackend)
	return b, nil
}

// Close releases database handles.
func (b *Backends) Close() error {
	if b == nil {
		return nil
	}
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	b.closers = nil
	return errors.Join(errs...)
}
