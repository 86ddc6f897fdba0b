package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/dmitrijs2005/gophshare/internal/blobstore"
	"github.com/dmitrijs2005/gophshare/internal/logging"
	"github.com/dmitrijs2005/gophshare/internal/models"
	"github.com/dmitrijs2005/gophshare/internal/sharing"
)

// DefaultMaxBlobSize bounds the body of a blob upload.
const DefaultMaxBlobSize = 64 << 20

// Handler serves the replication API: ciphertext blobs, ledger records and
// the snapshot feed.
type Handler struct {
	// closed ends every WebSocket subscription on Close.
	closed context.Context
	close  context.CancelFunc

	store       blobstore.Store
	ledger      sharing.Ledger
	logger      logging.Logger
	upgrader    websocket.Upgrader
	maxBlobSize int64
}

func NewHandler(store blobstore.Store, l sharing.Ledger, logger logging.Logger) *Handler {
	closed, close := context.WithCancel(context.Background())
	return &Handler{
		closed: closed,
		close:  close,
		store:  store,
		ledger: l,
		logger: logging.OrNop(logger).With("module", "http_server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		maxBlobSize: DefaultMaxBlobSize,
	}
}

// Close disconnects all WebSocket subscribers. Hijacked connections are
// not covered by http.Server.Shutdown.
func (h *Handler) Close() {
	h.close()
}

// Router registers every route on a gorilla/mux router.
func (h *Handler) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(loggerMiddleware(h.logger))

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/blobs", h.putBlob).Methods(http.MethodPost)
	api.HandleFunc("/blobs/{cid}", h.getBlob).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/records", h.appendRecord).Methods(http.MethodPost)
	api.HandleFunc("/records", h.listRecords).Methods(http.MethodGet)
	// ws must precede {id}.
	api.HandleFunc("/records/ws", h.subscribe).Methods(http.MethodGet)
	api.HandleFunc("/records/{id}", h.getRecord).Methods(http.MethodGet)

	return r
}

func (h *Handler) putBlob(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBlobSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "blob too large")
			return
		}
		writeError(w, http.StatusBadRequest, "read body")
		return
	}

	cid, err := h.store.Put(r.Context(), data)
	if err != nil {
		h.logger.Error(r.Context(), "blob put failed", "error", err)
		writeError(w, statusFor(err), "store blob")
		return
	}

	writeJSON(w, http.StatusCreated, models.BlobCreated{CID: cid})
}

func (h *Handler) getBlob(w http.ResponseWriter, r *http.Request) {
	cid := mux.Vars(r)["cid"]
	if !blobstore.ValidCID(cid) {
		writeError(w, http.StatusBadRequest, "invalid cid")
		return
	}

	chunks, err := h.store.Get(r.Context(), cid)
	if err != nil {
		if status := statusFor(err); status != http.StatusNotFound {
			h.logger.Error(r.Context(), "blob get failed", "cid", cid, "error", err)
		}
		writeError(w, statusFor(err), "blob not available")
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	for chunk, err := range chunks {
		if err != nil {
			// Headers are gone; abort the connection so the client sees a
			// truncated body instead of a clean end.
			h.logger.Error(r.Context(), "blob stream failed", "cid", cid, "error", err)
			panic(http.ErrAbortHandler)
		}
		if _, err := w.Write(chunk); err != nil {
			return
		}
	}
}

func (h *Handler) appendRecord(w http.ResponseWriter, r *http.Request) {
	var rec models.FileRecord
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid record json")
		return
	}
	if err := rec.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.ledger.Append(r.Context(), rec)
	if err != nil {
		h.logger.Error(r.Context(), "append failed", "error", err)
		writeError(w, statusFor(err), "append record")
		return
	}

	writeJSON(w, http.StatusCreated, models.RecordCreated{ID: id})
}

func (h *Handler) listRecords(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	entries, err := h.ledger.List(r.Context(), limit)
	if err != nil {
		h.logger.Error(r.Context(), "list failed", "error", err)
		writeError(w, statusFor(err), "list records")
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) getRecord(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	entry, err := h.ledger.Get(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), "record not available")
		return
	}

	writeJSON(w, http.StatusOK, entry)
}
