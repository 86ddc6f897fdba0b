package netx

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSendBytes(t *testing.T) {
	file := []byte("ciphertext")

	t.Run("sends body and content type", func(t *testing.T) {
		var gotBody []byte
		var gotCT string
		var gotMethod string

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotCT = r.Header.Get("Content-Type")
			body, _ := io.ReadAll(r.Body)
			_ = r.Body.Close()
			gotBody = body
			w.WriteHeader(http.StatusCreated)
		}))
		defer ts.Close()

		resp, err := SendBytes(context.Background(), ts.Client(), http.MethodPost, ts.URL+"/api/v1/blobs", file, "application/octet-stream")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer resp.Body.Close()

		if err := ExpectStatus(resp, http.StatusCreated); err != nil {
			t.Fatalf("unexpected status error: %v", err)
		}
		if gotMethod != http.MethodPost {
			t.Fatalf("method = %q, want POST", gotMethod)
		}
		if gotCT != "application/octet-stream" {
			t.Fatalf("Content-Type = %q, want application/octet-stream", gotCT)
		}
		if !bytes.Equal(gotBody, file) {
			t.Fatalf("body = %q, want %q", string(gotBody), string(file))
		}
	})

	t.Run("nil body, default client", func(t *testing.T) {
		var gotLen int64 = -2
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotLen = r.ContentLength
			w.WriteHeader(http.StatusOK)
		}))
		defer ts.Close()

		resp, err := SendBytes(context.Background(), nil, http.MethodGet, ts.URL, nil, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		resp.Body.Close()
		if gotLen != 0 {
			t.Fatalf("ContentLength = %d, want 0", gotLen)
		}
	})

	t.Run("bad url", func(t *testing.T) {
		_, err := SendBytes(context.Background(), nil, http.MethodGet, "://bad", nil, "")
		if err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestExpectStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("nope"))
	}))
	defer ts.Close()

	resp, err := SendBytes(context.Background(), ts.Client(), http.MethodGet, ts.URL+"/x", nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = ExpectStatus(resp, http.StatusOK, http.StatusCreated)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("want *StatusError, got %T", err)
	}
	if se.StatusCode != http.StatusForbidden {
		t.Fatalf("StatusCode = %d, want 403", se.StatusCode)
	}
	if se.Method != http.MethodGet || !strings.HasSuffix(se.URL, "/x") {
		t.Fatalf("unexpected request info: %s %s", se.Method, se.URL)
	}
	if !strings.Contains(err.Error(), "403") || !strings.Contains(err.Error(), "nope") {
		t.Fatalf("error should mention status and body, got: %v", err)
	}
}
