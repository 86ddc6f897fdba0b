package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dmitrijs2005/gophshare/internal/common"
	"github.com/dmitrijs2005/gophshare/internal/ledger"
	"github.com/dmitrijs2005/gophshare/internal/models"
)

// Ledger is the metadata ledger of a replication server.
type Ledger struct {
	c      *Client
	dialer *websocket.Dialer
}

func NewLedger(c *Client) *Ledger {
	return &Ledger{c: c, dialer: websocket.DefaultDialer}
}

func (l *Ledger) Append(ctx context.Context, rec models.FileRecord) (string, error) {
	if err := rec.Validate(); err != nil {
		return "", err
	}

	var created models.RecordCreated
	err := l.c.doJSON(ctx, http.MethodPost, l.c.endpoint("/records", nil), rec, http.StatusCreated, &created)
	if err != nil {
		return "", mapError(err, common.ErrRecordNotFound)
	}
	return created.ID, nil
}

func (l *Ledger) List(ctx context.Context, limit int) ([]models.Entry, error) {
	var q url.Values
	if limit > 0 {
		q = url.Values{"limit": []string{strconv.Itoa(limit)}}
	}

	var entries []models.Entry
	if err := l.c.doJSON(ctx, http.MethodGet, l.c.endpoint("/records", q), nil, http.StatusOK, &entries); err != nil {
		return nil, mapError(err, common.ErrRecordNotFound)
	}
	return entries, nil
}

func (l *Ledger) Get(ctx context.Context, id string) (*models.Entry, error) {
	var e models.Entry
	err := l.c.doJSON(ctx, http.MethodGet, l.c.endpoint("/records/"+url.PathEscape(id), nil), nil, http.StatusOK, &e)
	if err != nil {
		return nil, mapError(err, common.ErrRecordNotFound)
	}
	return &e, nil
}

// Subscribe opens the snapshot feed. The first snapshot is delivered to cb
// before Subscribe returns; later ones arrive on a reader goroutine, in
// order, until Unsubscribe is called, ctx is done or the server closes.
func (l *Ledger) Subscribe(ctx context.Context, cb ledger.Callback) (ledger.Unsubscribe, error) {
	if cb == nil {
		return nil, fmt.Errorf("nil callback")
	}

	conn, _, err := l.dialer.DialContext(ctx, l.c.wsEndpoint("/records/ws"), nil)
	if err != nil {
		return nil, fmt.Errorf("dial snapshot feed: %w", err)
	}

	first, err := readSnapshot(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("initial snapshot: %w", err)
	}
	cb(first)

	var (
		active atomic.Bool
		once   sync.Once
	)
	active.Store(true)
	closeConn := func() {
		once.Do(func() {
			active.Store(false)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			conn.Close()
		})
	}
	stop := context.AfterFunc(ctx, closeConn)

	go func() {
		defer closeConn()
		for {
			entries, err := readSnapshot(conn)
			if err != nil {
				if active.Load() {
					l.c.logger.Warn(ctx, "snapshot feed closed", "error", err)
				}
				return
			}
			if !active.Load() {
				return
			}
			cb(entries)
		}
	}()

	return func() {
		stop()
		closeConn()
	}, nil
}

func readSnapshot(conn *websocket.Conn) ([]models.Entry, error) {
	for {
		var msg models.SnapshotMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return nil, err
		}
		if msg.Type != models.MessageTypeSnapshot {
			continue
		}
		if msg.Entries == nil {
			msg.Entries = []models.Entry{}
		}
		return msg.Entries, nil
	}
}
