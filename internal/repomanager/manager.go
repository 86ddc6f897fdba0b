// Package repomanager opens SQL databases, applies the embedded goose
// migrations and vends the repositories bound to the connection.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/gophshare/internal/blobstore"
	"github.com/dmitrijs2005/gophshare/internal/dbx"
	"github.com/dmitrijs2005/gophshare/internal/ledger"
	"github.com/dmitrijs2005/gophshare/internal/migrations"
)

// Manager owns one database handle of a given dialect.
type Manager struct {
	db      *sql.DB
	dialect dbx.Dialect
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// New wraps an already opened handle.
func New(db *sql.DB, dialect dbx.Dialect) (*Manager, error) {
	switch dialect {
	case dbx.DialectPostgres, dbx.DialectSQLite:
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}
	return &Manager{db: db, dialect: dialect}, nil
}

// Open connects to dsn, verifies the connection and migrates the schema.
func Open(ctx context.Context, dialect dbx.Dialect, dsn string) (*Manager, error) {
	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if dialect == dbx.DialectSQLite {
		// ":memory:" databases are per-connection.
		db.SetMaxOpenConns(1)
	}

	m, err := New(db, dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}
	if err := m.RunMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate %s: %w", dialect, err)
	}
	return m, nil
}

// RunMigrations points goose at the embedded migrations of the manager's
// dialect and applies every pending one.
func (m *Manager) RunMigrations(ctx context.Context) error {
	var (
		fsys fs.FS
		dir  string
	)
	switch m.dialect {
	case dbx.DialectPostgres:
		fsys, dir = migrations.Postgres, "postgres"
	default:
		fsys, dir = migrations.SQLite, "sqlite"
	}

	goose.SetBaseFS(fsys)
	if err := goose.SetDialect(string(m.dialect)); err != nil {
		return err
	}
	return gooseUpContext(ctx, m.db, dir)
}

func (m *Manager) DB() *sql.DB { return m.db }

func (m *Manager) Dialect() dbx.Dialect { return m.dialect }

// Ledger returns the ledger repository bound to the handle.
func (m *Manager) Ledger() ledger.Repository {
	if m.dialect == dbx.DialectPostgres {
		return ledger.NewPostgresRepository(m.db)
	}
	return ledger.NewSQLiteRepository(m.db)
}

// Blobs returns a blob store over the blobs table. Only SQLite carries one.
func (m *Manager) Blobs(chunkSize int) (blobstore.Store, error) {
	if m.dialect != dbx.DialectSQLite {
		return nil, fmt.Errorf("blob storage is not available for %s", m.dialect)
	}
	return blobstore.NewSQLiteStore(m.db, chunkSize), nil
}

func (m *Manager) Close() error {
	return m.db.Close()
}
