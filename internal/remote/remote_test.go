package remote_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophshare/internal/blobstore"
	"github.com/dmitrijs2005/gophshare/internal/common"
	"github.com/dmitrijs2005/gophshare/internal/identity"
	"github.com/dmitrijs2005/gophshare/internal/ledger"
	"github.com/dmitrijs2005/gophshare/internal/models"
	"github.com/dmitrijs2005/gophshare/internal/remote"
	"github.com/dmitrijs2005/gophshare/internal/server"
	"github.com/dmitrijs2005/gophshare/internal/sharing"
)

const (
	timeout = 5 * time.Second
	tick    = 10 * time.Millisecond
)

type fixture struct {
	ts     *httptest.Server
	log    *ledger.Log
	store  *blobstore.MemoryStore
	client *remote.Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := blobstore.NewMemoryStore(0)
	l := ledger.New(ledger.NewMemoryRepository(), nil)
	h := server.NewHandler(store, l, nil)
	ts := httptest.NewServer(h.Router())
	t.Cleanup(func() {
		h.Close()
		ts.Close()
	})

	c, err := remote.NewClient(ts.URL+"/", ts.Client(), nil)
	require.NoError(t, err)
	return &fixture{ts: ts, log: l, store: store, client: c}
}

func passwordRecord(name string) models.FileRecord {
	return models.FileRecord{
		FileName:   name,
		Protection: models.ProtectionPassword,
		CID:        "bafkreitest",
		IV:         make(models.ByteArray, 12),
		Timestamp:  time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		Salt:       make(models.ByteArray, 16),
	}
}

func TestNewClient_RejectsBadURLs(t *testing.T) {
	for _, u := range []string{"ftp://example.com", "example.com", "://"} {
		_, err := remote.NewClient(u, nil, nil)
		assert.Error(t, err, u)
	}
}

func TestBlobStore_RoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := remote.NewBlobStore(f.client, 4)

	cid, err := s.Put(ctx, []byte("0123456789"))
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.Len())

	chunks, err := s.Get(ctx, cid)
	require.NoError(t, err)

	var sizes []int
	for chunk, err := range chunks {
		require.NoError(t, err)
		sizes = append(sizes, len(chunk))
	}
	assert.Equal(t, []int{4, 4, 2}, sizes)

	// The sequence can be read again.
	data, err := blobstore.ReadAll(chunks)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(data))
}

func TestBlobStore_EmptyAndMissing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := remote.NewBlobStore(f.client, 0)

	cid, err := s.Put(ctx, nil)
	require.NoError(t, err)
	data, err := blobstore.ReadAll(mustGet(t, s, cid))
	require.NoError(t, err)
	assert.Empty(t, data)

	missing, err := blobstore.ComputeCID([]byte("missing"))
	require.NoError(t, err)
	_, err = s.Get(ctx, missing)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func mustGet(t *testing.T, s *remote.BlobStore, cid string) blobstore.Chunks {
	t.Helper()
	chunks, err := s.Get(context.Background(), cid)
	require.NoError(t, err)
	return chunks
}

func TestBlobStore_CIDMismatch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"cid":"bafkreifzjut3te2nhyekklss27nh3k72ysco7y32koao5eei66wof36n5e"}`))
	}))
	defer ts.Close()

	c, err := remote.NewClient(ts.URL, nil, nil)
	require.NoError(t, err)
	_, err = remote.NewBlobStore(c, 0).Put(context.Background(), []byte("not hello world"))
	assert.ErrorContains(t, err, "does not match")
}

func TestLedger_AppendListGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := remote.NewLedger(f.client)

	var ids []string
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		id, err := l.Append(ctx, passwordRecord(name))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	all, err := l.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, e := range all {
		assert.Equal(t, ids[i], e.ID)
	}

	latest, err := l.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "c.txt", latest[0].Payload.FileName)

	e, err := l.Get(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, "b.txt", e.Payload.FileName)
	assert.Equal(t, passwordRecord("b.txt").Timestamp, e.Payload.Timestamp)

	_, err = l.Get(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrRecordNotFound)
}

func TestLedger_AppendRejected(t *testing.T) {
	f := newFixture(t)
	l := remote.NewLedger(f.client)

	rec := passwordRecord("x")
	rec.IV = nil
	_, err := l.Append(context.Background(), rec)
	assert.ErrorIs(t, err, common.ErrorIncorrectMetadata)

	all, err := f.log.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, all)
}

type recorder struct {
	mu        sync.Mutex
	snapshots [][]models.Entry
}

func (r *recorder) callback(entries []models.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, entries)
}

func (r *recorder) lens() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, len(r.snapshots))
	for i, s := range r.snapshots {
		out[i] = len(s)
	}
	return out
}

func TestLedger_Subscribe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := remote.NewLedger(f.client)

	_, err := l.Append(ctx, passwordRecord("first.txt"))
	require.NoError(t, err)

	rec := &recorder{}
	unsubscribe, err := l.Subscribe(ctx, rec.callback)
	require.NoError(t, err)

	// The initial snapshot arrives before Subscribe returns.
	assert.Equal(t, []int{1}, rec.lens())

	_, err = l.Append(ctx, passwordRecord("second.txt"))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		lens := rec.lens()
		return len(lens) == 2 && lens[1] == 2
	}, timeout, tick)

	unsubscribe()
	unsubscribe()
	require.Eventually(t, func() bool { return f.log.Subscribers() == 0 }, timeout, tick)

	_, err = l.Append(ctx, passwordRecord("third.txt"))
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, rec.lens(), 2)
}

func TestLedger_SubscribeEndsWithContext(t *testing.T) {
	f := newFixture(t)
	l := remote.NewLedger(f.client)

	ctx, cancel := context.WithCancel(context.Background())
	rec := &recorder{}
	_, err := l.Subscribe(ctx, rec.callback)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return f.log.Subscribers() == 1 }, timeout, tick)

	cancel()
	require.Eventually(t, func() bool { return f.log.Subscribers() == 0 }, timeout, tick)
}

func TestLedger_SubscribeErrors(t *testing.T) {
	f := newFixture(t)
	l := remote.NewLedger(f.client)

	_, err := l.Subscribe(context.Background(), nil)
	assert.Error(t, err)

	down, err := remote.NewClient("http://127.0.0.1:1", nil, nil)
	require.NoError(t, err)
	_, err = remote.NewLedger(down).Subscribe(context.Background(), func([]models.Entry) {})
	assert.Error(t, err)
}

func TestSharingOverRemote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice, err := identity.GenerateKeypair()
	require.NoError(t, err)
	bob, err := identity.GenerateKeypair()
	require.NoError(t, err)

	svc := sharing.NewService(remote.NewBlobStore(f.client, 3), remote.NewLedger(f.client), nil)

	root, err := svc.Upload(ctx, []byte("quarterly numbers"), "report.csv", alice, sharing.UploadOptions{})
	require.NoError(t, err)

	bobKey, err := bob.PublicJWK().JSON()
	require.NoError(t, err)
	shared, err := svc.Share(ctx, root.ID, bobKey, alice)
	require.NoError(t, err)

	entries, err := svc.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	res, err := svc.Download(ctx, *shared, bob, sharing.DownloadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "quarterly numbers", string(res.Data))
	assert.Equal(t, "report.csv", res.FileName)

	_, err = svc.Download(ctx, *root, bob, sharing.DownloadOptions{})
	assert.ErrorIs(t, err, common.ErrAccessDenied)
}
