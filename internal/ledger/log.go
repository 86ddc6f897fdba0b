// Package ledger implements the append-only metadata ledger. Entries are
// immutable once appended and every subscriber observes full snapshots in
// append order.
package ledger

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/gophshare/internal/logging"
	"github.com/dmitrijs2005/gophshare/internal/models"
)

// Callback receives the complete list of entries, oldest first. The slice
// is owned by the callback.
type Callback func(entries []models.Entry)

// Unsubscribe stops delivery to one subscriber. Calling it more than once
// is a no-op.
type Unsubscribe func()

type subscription struct {
	id     uint64
	cb     Callback
	active atomic.Bool
}

// Log is the ledger front: it assigns ids, persists entries through a
// Repository and fans snapshots out to subscribers.
//
// Appends and deliveries share one mutex, so every snapshot a subscriber
// sees is a prefix of completed appends and snapshot lengths never shrink.
// Callbacks run under that mutex and must not call Append synchronously.
type Log struct {
	repo   Repository
	logger logging.Logger
	newID  func() string

	mu     sync.Mutex
	subs   []*subscription
	nextID uint64
}

func New(repo Repository, logger logging.Logger) *Log {
	return &Log{
		repo:   repo,
		logger: logging.OrNop(logger),
		newID:  uuid.NewString,
	}
}

// Append validates rec, stores a deep copy under a fresh id and delivers
// the refreshed snapshot to all active subscribers before returning.
func (l *Log) Append(ctx context.Context, rec models.FileRecord) (string, error) {
	if err := rec.Validate(); err != nil {
		return "", err
	}

	e := models.Entry{ID: l.newID(), Payload: rec.Clone()}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.repo.Insert(ctx, &e); err != nil {
		l.logger.Error(ctx, "ledger append failed", "fileName", rec.FileName, "error", err)
		return "", fmt.Errorf("append: %w", err)
	}
	l.logger.Info(ctx, "ledger entry appended", "recordId", e.ID, "seq", e.Seq, "cid", rec.CID)

	l.compactLocked()
	if len(l.subs) == 0 {
		return e.ID, nil
	}

	snapshot, err := l.repo.SelectAll(ctx)
	if err != nil {
		// The entry is durable; subscribers catch up on the next append.
		l.logger.Error(ctx, "snapshot read failed", "recordId", e.ID, "error", err)
		return e.ID, nil
	}
	l.deliverLocked(snapshot)

	return e.ID, nil
}

// Subscribe registers cb and delivers the current snapshot to it before
// returning. Delivery stops when the returned Unsubscribe is called or ctx
// is done, whichever comes first.
func (l *Log) Subscribe(ctx context.Context, cb Callback) (Unsubscribe, error) {
	if cb == nil {
		return nil, fmt.Errorf("nil callback")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	snapshot, err := l.repo.SelectAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("initial snapshot: %w", err)
	}

	l.nextID++
	s := &subscription{id: l.nextID, cb: cb}
	s.active.Store(true)
	l.subs = append(l.subs, s)

	cb(snapshot)

	stop := context.AfterFunc(ctx, func() { s.active.Store(false) })
	unsubscribe := func() {
		stop()
		if s.active.Swap(false) {
			l.logger.Debug(context.Background(), "ledger subscriber removed", "subscriber", s.id)
		}
	}
	l.logger.Debug(ctx, "ledger subscriber added", "subscriber", s.id, "entries", len(snapshot))

	return unsubscribe, nil
}

// List returns all entries when limit <= 0, otherwise the most recent
// limit entries. Both are in insertion order.
func (l *Log) List(ctx context.Context, limit int) ([]models.Entry, error) {
	if limit <= 0 {
		return l.repo.SelectAll(ctx)
	}
	return l.repo.SelectLatest(ctx, limit)
}

func (l *Log) Get(ctx context.Context, id string) (*models.Entry, error) {
	return l.repo.GetByID(ctx, id)
}

// Subscribers reports the number of active subscriptions.
func (l *Log) Subscribers() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.compactLocked()
	return len(l.subs)
}

func (l *Log) deliverLocked(snapshot []models.Entry) {
	for i, s := range l.subs {
		if !s.active.Load() {
			continue
		}
		if i == len(l.subs)-1 {
			s.cb(snapshot)
			continue
		}
		s.cb(models.CloneEntries(snapshot))
	}
}

func (l *Log) compactLocked() {
	l.subs = slices.DeleteFunc(l.subs, func(s *subscription) bool {
		return !s.active.Load()
	})
}
