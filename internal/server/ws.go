package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dmitrijs2005/gophshare/internal/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// subscribe upgrades the connection and streams ledger snapshots until the
// peer goes away. A slow peer only ever receives the newest snapshot.
func (h *Handler) subscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(h.closed)
	defer cancel()

	pending := make(chan []models.Entry, 1)
	unsubscribe, err := h.ledger.Subscribe(ctx, func(entries []models.Entry) {
		// Deliveries are serialized by the ledger, so this is the only sender.
		select {
		case <-pending:
		default:
		}
		pending <- entries
	})
	if err != nil {
		h.logger.Error(ctx, "subscribe failed", "error", err)
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscribe failed"))
		return
	}
	defer unsubscribe()

	h.logger.Info(ctx, "subscriber connected", "remote", r.RemoteAddr)
	go h.readPump(conn, cancel)
	h.writePump(ctx, conn, pending)
	h.logger.Info(ctx, "subscriber disconnected", "remote", r.RemoteAddr)
}

// readPump drains control frames so pongs are processed; it cancels ctx
// when the peer closes or stops answering pings.
func (h *Handler) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug(context.Background(), "websocket read error", "error", err)
			}
			return
		}
	}
}

func (h *Handler) writePump(ctx context.Context, conn *websocket.Conn, pending <-chan []models.Entry) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return

		case entries := <-pending:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			msg := models.SnapshotMessage{Type: models.MessageTypeSnapshot, Entries: entries}
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug(ctx, "websocket write failed", "error", err)
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
