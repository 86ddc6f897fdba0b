package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/gophshare/internal/common"
	"github.com/dmitrijs2005/gophshare/internal/models"
)

// MemoryRepository is an arena of entries addressed by ID.
type MemoryRepository struct {
	mu      sync.RWMutex
	entries []models.Entry
	index   map[string]int
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{index: make(map[string]int)}
}

func (r *MemoryRepository) Insert(ctx context.Context, e *models.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.index[e.ID]; ok {
		return fmt.Errorf("duplicate entry id %s", e.ID)
	}
	e.Seq = int64(len(r.entries) + 1)
	r.index[e.ID] = len(r.entries)
	r.entries = append(r.entries, e.Clone())
	return nil
}

func (r *MemoryRepository) SelectAll(ctx context.Context) ([]models.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return models.CloneEntries(r.entries), nil
}

func (r *MemoryRepository) SelectLatest(ctx context.Context, limit int) ([]models.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	start := max(len(r.entries)-limit, 0)
	return models.CloneEntries(r.entries[start:]), nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*models.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[id]
	if !ok {
		return nil, fmt.Errorf("entry %s: %w", id, common.ErrRecordNotFound)
	}
	e := r.entries[i].Clone()
	return &e, nil
}
