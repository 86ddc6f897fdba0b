// Package netx holds small HTTP helpers shared by the remote client.
package netx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"slices"
)

// StatusError reports a response whose status was not expected. Body holds
// at most the first 4 KiB of the response body.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s failed: %s; body: %s", e.Method, e.URL, e.Status, e.Body)
}

// SendBytes issues method to url with body and the given content type.
// A nil body sends no payload.
func SendBytes(ctx context.Context, client *http.Client, method, url string, body []byte, contentType string) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, r)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	if client == nil {
		client = http.DefaultClient
	}
	return client.Do(req)
}

// ExpectStatus returns nil when resp has one of want. Otherwise it drains
// and closes the body and returns a *StatusError.
func ExpectStatus(resp *http.Response, want ...int) error {
	if slices.Contains(want, resp.StatusCode) {
		return nil
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	e := &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(b)}
	if resp.Request != nil {
		e.Method = resp.Request.Method
		e.URL = resp.Request.URL.String()
	}
	return e
}
