package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/gophshare/internal/blobstore"
	"github.com/dmitrijs2005/gophshare/internal/common"
	"github.com/dmitrijs2005/gophshare/internal/models"
	"github.com/dmitrijs2005/gophshare/internal/netx"
)

// BlobStore is a blobstore.Store served by a replication server.
type BlobStore struct {
	c         *Client
	chunkSize int
}

func NewBlobStore(c *Client, chunkSize int) *BlobStore {
	if chunkSize <= 0 {
		chunkSize = blobstore.DefaultChunkSize
	}
	return &BlobStore{c: c, chunkSize: chunkSize}
}

// Put uploads data and checks the server-assigned CID against the local
// computation.
func (s *BlobStore) Put(ctx context.Context, data []byte) (string, error) {
	want, err := blobstore.ComputeCID(data)
	if err != nil {
		return "", err
	}
	if data == nil {
		data = []byte{}
	}

	resp, err := netx.SendBytes(ctx, s.c.http, http.MethodPost, s.c.endpoint("/blobs", nil), data, "application/octet-stream")
	if err != nil {
		return "", fmt.Errorf("upload blob: %w", err)
	}
	if err := netx.ExpectStatus(resp, http.StatusCreated); err != nil {
		return "", mapError(err, common.ErrNotFound)
	}
	defer resp.Body.Close()

	var created models.BlobCreated
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if created.CID != want {
		return "", fmt.Errorf("server cid %s does not match content cid %s", created.CID, want)
	}
	return created.CID, nil
}

// Get checks that cid exists and returns a sequence that issues a fresh
// GET on every iteration and streams the body in chunkSize pieces.
func (s *BlobStore) Get(ctx context.Context, cid string) (blobstore.Chunks, error) {
	u := s.c.endpoint("/blobs/"+url.PathEscape(cid), nil)

	resp, err := netx.SendBytes(ctx, s.c.http, http.MethodHead, u, nil, "")
	if err != nil {
		return nil, fmt.Errorf("head blob: %w", err)
	}
	if err := netx.ExpectStatus(resp, http.StatusOK); err != nil {
		return nil, mapError(err, common.ErrNotFound)
	}
	resp.Body.Close()

	return func(yield func([]byte, error) bool) {
		resp, err := netx.SendBytes(ctx, s.c.http, http.MethodGet, u, nil, "")
		if err != nil {
			yield(nil, fmt.Errorf("get blob: %w", err))
			return
		}
		if err := netx.ExpectStatus(resp, http.StatusOK); err != nil {
			yield(nil, mapError(err, common.ErrNotFound))
			return
		}
		defer resp.Body.Close()

		for {
			buf := make([]byte, s.chunkSize)
			n, err := fill(resp.Body, buf)
			if n > 0 && !yield(buf[:n], nil) {
				return
			}
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, fmt.Errorf("read blob %s: %w", cid, err))
				return
			}
		}
	}, nil
}

// fill reads until buf is full or r fails. Unlike io.ReadFull it passes a
// clean io.EOF through unchanged, so a truncated stream (which surfaces as
// io.ErrUnexpectedEOF from the transport) stays distinguishable.
func fill(r io.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
