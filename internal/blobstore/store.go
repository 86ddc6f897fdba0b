// Package blobstore defines the content-addressed storage contract for
// ciphertext and its backends.
//
// A store never inspects what it holds; everything put here is already
// encrypted, which is what lets the store be untrusted. Identifiers are
// computed by the store from the bytes (CIDv1, raw codec, sha2-256), never
// supplied by callers.
package blobstore

import (
	"bytes"
	"context"
	"iter"
)

// DefaultChunkSize is the chunk length Get implementations yield unless
// configured otherwise.
const DefaultChunkSize = 256 * 1024

// Chunks is a lazy, finite sequence of byte chunks. Ranging over it again
// reads the blob again from the backend.
type Chunks = iter.Seq2[[]byte, error]

// Store is content-addressed storage of opaque bytes.
//
// Put may return the same CID for identical bytes; callers must not rely on
// deduplication. A Get issued after Put returned a CID always finds the blob.
// Get of an unknown CID fails with common.ErrNotFound.
type Store interface {
	Put(ctx context.Context, data []byte) (string, error)
	Get(ctx context.Context, cid string) (Chunks, error)
}

// ReadAll drains chunks into a single buffer.
func ReadAll(chunks Chunks) ([]byte, error) {
	var buf bytes.Buffer
	for chunk, err := range chunks {
		if err != nil {
			return nil, err
		}
		buf.Write(chunk)
	}
	return buf.Bytes(), nil
}

// sliceChunks yields data in chunkSize pieces, copying each so consumers
// cannot mutate the stored blob.
func sliceChunks(ctx context.Context, data []byte, chunkSize int) Chunks {
	return func(yield func([]byte, error) bool) {
		if len(data) == 0 {
			return
		}
		for off := 0; off < len(data); off += chunkSize {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			end := min(off+chunkSize, len(data))
			if !yield(bytes.Clone(data[off:end]), nil) {
				return
			}
		}
	}
}
