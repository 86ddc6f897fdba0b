// Package remote implements the blob store and ledger contracts against a
// gophshare replication server over HTTP and WebSocket.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/gophshare/internal/common"
	"github.com/dmitrijs2005/gophshare/internal/logging"
	"github.com/dmitrijs2005/gophshare/internal/models"
	"github.com/dmitrijs2005/gophshare/internal/netx"
)

const apiPrefix = "/api/v1"

// Client holds the server location and the HTTP client shared by
// BlobStore and Ledger.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger logging.Logger
}

// NewClient validates baseURL. A nil httpClient means http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client, logger logging.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url %q: scheme must be http or https", baseURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		base:   u,
		http:   httpClient,
		logger: logging.OrNop(logger).With("module", "remote"),
	}, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = c.base.Path + apiPrefix + path
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// wsEndpoint is endpoint with the scheme switched to ws/wss.
func (c *Client) wsEndpoint(path string) string {
	u := *c.base
	u.Path = c.base.Path + apiPrefix + path
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	return u.String()
}

// doJSON sends in (if non-nil) as JSON and decodes a want-status response
// into out (if non-nil).
func (c *Client) doJSON(ctx context.Context, method, url string, in any, want int, out any) error {
	var body []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = b
	}

	resp, err := netx.SendBytes(ctx, c.http, method, url, body, "application/json")
	if err != nil {
		return err
	}
	if err := netx.ExpectStatus(resp, want); err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// mapError turns status errors into domain sentinels; notFound is used for
// 404 responses.
func mapError(err error, notFound error) error {
	var se *netx.StatusError
	if !errors.As(err, &se) {
		return err
	}
	switch se.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", notFound, serverMessage(se.Body))
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", common.ErrorIncorrectMetadata, serverMessage(se.Body))
	default:
		return err
	}
}

func serverMessage(body string) string {
	var e models.ErrorResponse
	if json.Unmarshal([]byte(body), &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(body)
}
