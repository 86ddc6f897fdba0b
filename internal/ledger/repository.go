package ledger

import (
	"context"

	"github.com/dmitrijs2005/gophshare/internal/models"
)

// Repository persists ledger entries. It deliberately offers no update or
// delete: once inserted, an entry is permanent.
type Repository interface {
	// Insert stores e and sets e.Seq to its insertion position. Inserting an
	// ID that already exists is an error.
	Insert(ctx context.Context, e *models.Entry) error

	// SelectAll returns every entry in insertion order.
	SelectAll(ctx context.Context) ([]models.Entry, error)

	// SelectLatest returns the most recent limit entries in insertion order.
	SelectLatest(ctx context.Context, limit int) ([]models.Entry, error)

	// GetByID returns one entry or common.ErrRecordNotFound.
	GetByID(ctx context.Context, id string) (*models.Entry, error)
}
