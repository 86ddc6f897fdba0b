package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophshare/internal/logging"
)

type capturedLog struct {
	msg  string
	args []any
}

type captureLogger struct {
	logging.Nop
	mu      sync.Mutex
	entries []capturedLog
}

func (l *captureLogger) Info(ctx context.Context, msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, capturedLog{msg: msg, args: args})
}

func argValue(args []any, key string) any {
	for i := 0; i+1 < len(args); i += 2 {
		if args[i] == key {
			return args[i+1]
		}
	}
	return nil
}

func TestLoggerMiddleware(t *testing.T) {
	logger := &captureLogger{}
	h := loggerMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/records", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	require.Len(t, logger.entries, 1)
	e := logger.entries[0]
	assert.Equal(t, "request", e.msg)
	assert.Equal(t, http.MethodGet, argValue(e.args, "method"))
	assert.Equal(t, "/api/v1/records", argValue(e.args, "path"))
	assert.Equal(t, http.StatusTeapot, argValue(e.args, "status"))
	assert.Equal(t, len("short and stout"), argValue(e.args, "size"))
}

func TestResponseWriter_HijackUnsupported(t *testing.T) {
	rw := &responseWriter{ResponseWriter: httptest.NewRecorder()}
	_, _, err := rw.Hijack()
	assert.ErrorIs(t, err, http.ErrNotSupported)
}

func TestResponseWriter_DefaultStatus(t *testing.T) {
	logger := &captureLogger{}
	h := loggerMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
		w.(http.Flusher).Flush()
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Len(t, logger.entries, 1)
	assert.Equal(t, http.StatusOK, argValue(logger.entries[0].args, "status"))
	assert.True(t, rec.Flushed)
}
