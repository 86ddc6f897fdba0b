package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophshare/internal/common"
	"github.com/dmitrijs2005/gophshare/internal/dbx"
	"github.com/dmitrijs2005/gophshare/internal/models"
)

// SQLRepository stores entries in the ledger_entries table. The payload
// column holds the record's interchange JSON verbatim.
type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

// NewPostgresRepository binds a repository to a PostgreSQL handle (pgx).
func NewPostgresRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, dialect: dbx.DialectPostgres}
}

// NewSQLiteRepository binds a repository to a SQLite handle.
func NewSQLiteRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, dialect: dbx.DialectSQLite}
}

func (r *SQLRepository) Insert(ctx context.Context, e *models.Entry) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	query := r.dialect.Rebind(`INSERT INTO ledger_entries (id, payload) VALUES (?, ?) RETURNING seq`)
	if err := r.db.QueryRowContext(ctx, query, e.ID, string(payload)).Scan(&e.Seq); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) SelectAll(ctx context.Context) ([]models.Entry, error) {
	query := `SELECT seq, id, payload FROM ledger_entries ORDER BY seq`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select entries: %w", err)
	}
	return scanEntries(rows)
}

func (r *SQLRepository) SelectLatest(ctx context.Context, limit int) ([]models.Entry, error) {
	query := r.dialect.Rebind(`SELECT seq, id, payload FROM (
			SELECT seq, id, payload FROM ledger_entries ORDER BY seq DESC LIMIT ?
		) AS latest ORDER BY seq`)
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select entries: %w", err)
	}
	return scanEntries(rows)
}

func (r *SQLRepository) GetByID(ctx context.Context, id string) (*models.Entry, error) {
	query := r.dialect.Rebind(`SELECT seq, id, payload FROM ledger_entries WHERE id = ?`)

	var (
		e       models.Entry
		payload []byte
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(&e.Seq, &e.ID, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entry %s: %w", id, common.ErrRecordNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select entry: %w", err)
	}
	if err := json.Unmarshal(payload, &e.Payload); err != nil {
		return nil, fmt.Errorf("decode payload %s: %w", id, err)
	}
	return &e, nil
}

func scanEntries(rows *sql.Rows) ([]models.Entry, error) {
	defer rows.Close()

	result := make([]models.Entry, 0)
	for rows.Next() {
		var (
			e       models.Entry
			payload []byte
		)
		if err := rows.Scan(&e.Seq, &e.ID, &payload); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(payload, &e.Payload); err != nil {
			return nil, fmt.Errorf("decode payload %s: %w", e.ID, err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
