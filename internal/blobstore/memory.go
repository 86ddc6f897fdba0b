package blobstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/gophshare/internal/common"
)

// MemoryStore keeps blobs in a map. It backs tests and single-process use.
type MemoryStore struct {
	mu        sync.RWMutex
	blobs     map[string][]byte
	chunkSize int
}

func NewMemoryStore(chunkSize int) *MemoryStore {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &MemoryStore{blobs: make(map[string][]byte), chunkSize: chunkSize}
}

func (s *MemoryStore) Put(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id, err := ComputeCID(data)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[id]; !ok {
		s.blobs[id] = common.CloneBytes(data)
	}
	return id, nil
}

func (s *MemoryStore) Get(ctx context.Context, cid string) (Chunks, error) {
	s.mu.RLock()
	data, ok := s.blobs[cid]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("blob %s: %w", cid, common.ErrNotFound)
	}
	return sliceChunks(ctx, data, s.chunkSize), nil
}

// Len returns the number of stored blobs.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
