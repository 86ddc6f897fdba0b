package blobstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophshare/internal/common"
	"github.com/dmitrijs2005/gophshare/internal/dbx"
)

// SQLiteStore keeps blobs in the blobs table of a local SQLite database.
// Reads are chunked with substr so large blobs are never loaded whole.
type SQLiteStore struct {
	db        dbx.DBTX
	chunkSize int
}

// NewSQLiteStore returns a store bound to db. The schema is created by the
// repomanager migrations.
func NewSQLiteStore(db dbx.DBTX, chunkSize int) *SQLiteStore {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &SQLiteStore{db: db, chunkSize: chunkSize}
}

func (s *SQLiteStore) Put(ctx context.Context, data []byte) (string, error) {
	id, err := ComputeCID(data)
	if err != nil {
		return "", err
	}

	query := `INSERT INTO blobs (cid, data, size) VALUES (?, ?, ?)
		ON CONFLICT(cid) DO NOTHING`
	if data == nil {
		data = []byte{}
	}
	if _, err := s.db.ExecContext(ctx, query, id, data, len(data)); err != nil {
		return "", fmt.Errorf("failed to insert blob: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) Get(ctx context.Context, cid string) (Chunks, error) {
	var size int64
	err := s.db.QueryRowContext(ctx, `SELECT size FROM blobs WHERE cid = ?`, cid).Scan(&size)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("blob %s: %w", cid, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select blob: %w", err)
	}

	return func(yield func([]byte, error) bool) {
		for off := int64(0); off < size; off += int64(s.chunkSize) {
			var chunk []byte
			// substr on a BLOB is 1-indexed and byte-based.
			err := s.db.QueryRowContext(ctx,
				`SELECT substr(data, ?, ?) FROM blobs WHERE cid = ?`,
				off+1, s.chunkSize, cid).Scan(&chunk)
			if err != nil {
				yield(nil, fmt.Errorf("failed to read blob chunk: %w", err))
				return
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}, nil
}
