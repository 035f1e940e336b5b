package preview

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chinmay706/Secure-vault-frontend/internal/api"
	"github.com/chinmay706/Secure-vault-frontend/internal/model"
)

// fakeStore counts Put/Revoke calls and flags double revocation.
type fakeStore struct {
	mu      sync.Mutex
	next    int
	live    map[string]bool
	puts    int
	revokes int
	defects int // revokes of unknown or already-revoked URLs
}

func newFakeStore() *fakeStore {
	return &fakeStore{live: make(map[string]bool)}
}

func (f *fakeStore) Put(data []byte, contentType string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	f.puts++
	url := fmt.Sprintf("blob://%d", f.next)
	f.live[url] = true
	return url
}

func (f *fakeStore) Revoke(url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.live[url] {
		f.defects++
		return fmt.Errorf("unknown blob %s", url)
	}
	delete(f.live, url)
	f.revokes++
	return nil
}

func (f *fakeStore) liveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.live)
}

func (f *fakeStore) stats() (puts, revokes, defects int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.puts, f.revokes, f.defects
}

// fakeFetcher serves canned bytes and counts fetches. A per-file gate can
// hold a fetch open until the test releases it.
type fakeFetcher struct {
	mu      sync.Mutex
	fetches int
	public  int
	gates   map[string]chan struct{}
	errs    map[string]error
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{gates: make(map[string]chan struct{}), errs: make(map[string]error)}
}

func (f *fakeFetcher) gate(id string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[id] = ch
	return ch
}

func (f *fakeFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

func (f *fakeFetcher) open(ctx context.Context, key string) (*api.FileStream, error) {
	f.mu.Lock()
	f.fetches++
	gate := f.gates[key]
	err := f.errs[key]
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return &api.FileStream{
		Body:        io.NopCloser(strings.NewReader("bytes of " + key)),
		ContentType: "application/octet-stream",
	}, nil
}

func (f *fakeFetcher) OpenDownload(ctx context.Context, fileID string) (*api.FileStream, error) {
	return f.open(ctx, fileID)
}

func (f *fakeFetcher) OpenPublic(ctx context.Context, shareToken string) (*api.FileStream, error) {
	f.mu.Lock()
	f.public++
	f.mu.Unlock()
	return f.open(ctx, shareToken)
}

func textFile(id string, size int64) *model.FileDescriptor {
	return &model.FileDescriptor{ID: id, OriginalFilename: id + ".txt", MimeType: "text/plain", SizeBytes: size}
}

func TestResolveUnsupportedTypeSkipsNetwork(t *testing.T) {
	fetcher := newFakeFetcher()
	r := NewResolver(fetcher, newFakeStore())

	file := &model.FileDescriptor{ID: "f1", MimeType: "application/zip", SizeBytes: 10}
	_, err := r.Resolve(context.Background(), file, false)

	assert.ErrorIs(t, err, api.ErrUnsupportedType)
	assert.Equal(t, 0, fetcher.count())
}

func TestResolveTooLargeSkipsNetwork(t *testing.T) {
	fetcher := newFakeFetcher()
	r := NewResolver(fetcher, newFakeStore())

	// 600 KB plain text is over the 500,000 byte ceiling.
	_, err := r.Resolve(context.Background(), textFile("f1", 600_000), false)

	assert.ErrorIs(t, err, api.ErrTooLarge)
	assert.Equal(t, 0, fetcher.count())
}

func TestResolveCeilings(t *testing.T) {
	tests := []struct {
		mime string
		size int64
		ok   bool
	}{
		{"text/plain", 499_999, true},
		{"text/plain", 500_001, false},
		{"video/mp4", 99_999_999, true},
		{"video/mp4", 100_000_001, false},
		{"application/pdf", 10_000_000, true},
		{"application/pdf", 50_000_001, false},
		{"image/png", 500_000_000, true}, // images have no ceiling
	}

	for _, tt := range tests {
		r := NewResolver(newFakeFetcher(), newFakeStore())
		file := &model.FileDescriptor{ID: "f", OriginalFilename: "f", MimeType: tt.mime, SizeBytes: tt.size}
		_, err := r.Resolve(context.Background(), file, false)
		if tt.ok {
			assert.NoError(t, err, "%s %d", tt.mime, tt.size)
		} else {
			assert.ErrorIs(t, err, api.ErrTooLarge, "%s %d", tt.mime, tt.size)
		}
	}
}

func TestResolvePublicContextWithoutShare(t *testing.T) {
	fetcher := newFakeFetcher()
	r := NewResolver(fetcher, newFakeStore())

	_, err := r.Resolve(context.Background(), textFile("f1", 10), true)
	assert.ErrorIs(t, err, api.ErrAuthRequired)
	assert.Equal(t, 0, fetcher.count())
}

func TestResolveUsesPublicEndpointForSharedFile(t *testing.T) {
	fetcher := newFakeFetcher()
	r := NewResolver(fetcher, newFakeStore())

	file := &model.FileDescriptor{
		ID:               "f1",
		OriginalFilename: "doc.pdf",
		MimeType:         "application/pdf",
		SizeBytes:        10_000_000,
		ShareLink:        &model.ShareLink{Token: "tok", IsActive: true},
	}

	session, err := r.Resolve(context.Background(), file, true)
	require.NoError(t, err)
	assert.Equal(t, model.KindPDF, session.Kind)
	assert.NotEmpty(t, session.URL)
	assert.Equal(t, 1, fetcher.public)
}

func TestSupersessionRevokesExactlyOnce(t *testing.T) {
	fetcher := newFakeFetcher()
	store := newFakeStore()
	r := NewResolver(fetcher, store)

	a, err := r.Resolve(context.Background(), textFile("a", 10), false)
	require.NoError(t, err)

	b, err := r.Resolve(context.Background(), textFile("b", 10), false)
	require.NoError(t, err)
	assert.NotEqual(t, a.URL, b.URL)

	puts, revokes, defects := store.stats()
	assert.Equal(t, 2, puts)
	assert.Equal(t, 1, revokes, "exactly one revocation of a's URL")
	assert.Equal(t, 0, defects, "no double revocation")
	assert.Equal(t, 1, store.liveCount(), "only b's URL is live")

	// Disposing a again must not reach the store a second time.
	a.Dispose()
	_, revokes, defects = store.stats()
	assert.Equal(t, 1, revokes)
	assert.Equal(t, 0, defects)
}

func TestResolveSameIDIsIdempotent(t *testing.T) {
	fetcher := newFakeFetcher()
	r := NewResolver(fetcher, newFakeStore())

	first, err := r.Resolve(context.Background(), textFile("a", 10), false)
	require.NoError(t, err)

	second, err := r.Resolve(context.Background(), textFile("a", 10), false)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, fetcher.count(), "second resolve must not fetch")
}

func TestConcurrentResolveSameIDFetchesOnce(t *testing.T) {
	fetcher := newFakeFetcher()
	gate := fetcher.gate("a")
	r := NewResolver(fetcher, newFakeStore())

	results := make(chan *Session, 2)
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			s, err := r.Resolve(context.Background(), textFile("a", 10), false)
			results <- s
			errs <- err
		}()
	}

	// Let both callers reach the resolver before releasing the fetch.
	time.Sleep(50 * time.Millisecond)
	close(gate)

	first, second := <-results, <-results
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)

	assert.Same(t, first, second)
	assert.Equal(t, 1, fetcher.count(), "exactly one network fetch")
}

func TestStaleResponseNeverCommits(t *testing.T) {
	fetcher := newFakeFetcher()
	gate := fetcher.gate("a")
	store := newFakeStore()
	r := NewResolver(fetcher, store)

	done := make(chan error, 1)
	go func() {
		_, err := r.Resolve(context.Background(), textFile("a", 10), false)
		done <- err
	}()

	// Wait until a's fetch is in flight, then supersede it with b.
	require.Eventually(t, func() bool { return fetcher.count() == 1 }, time.Second, 5*time.Millisecond)

	b, err := r.Resolve(context.Background(), textFile("b", 10), false)
	require.NoError(t, err)

	close(gate)
	assert.Error(t, <-done, "superseded resolve must not succeed")

	assert.Same(t, b, r.Current(), "b stays current")
	assert.Equal(t, 1, store.liveCount(), "a's bytes were never materialized")
}

func TestTimeoutIsDistinctError(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.gate("a") // never released: fetch blocks until the deadline
	r := NewResolver(fetcher, newFakeStore())
	r.timeoutFor = func(model.PreviewKind) time.Duration { return 30 * time.Millisecond }

	_, err := r.Resolve(context.Background(), textFile("a", 10), false)
	assert.ErrorIs(t, err, api.ErrTimeout)

	// The resolver must be usable again after a timeout.
	s, err := r.Resolve(context.Background(), textFile("b", 10), false)
	require.NoError(t, err)
	assert.Equal(t, "b", s.FileID)
}

func TestAuthErrorPropagates(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.errs["a"] = api.ErrAuthRequired
	r := NewResolver(fetcher, newFakeStore())

	_, err := r.Resolve(context.Background(), textFile("a", 10), false)
	assert.ErrorIs(t, err, api.ErrAuthRequired)
}

func TestCloseRevokesOnce(t *testing.T) {
	store := newFakeStore()
	r := NewResolver(newFakeFetcher(), store)

	session, err := r.Resolve(context.Background(), textFile("a", 10), false)
	require.NoError(t, err)

	r.Close()
	assert.Nil(t, r.Current())

	// Close again, then dispose the session directly: still one revocation.
	r.Close()
	session.Dispose()

	_, revokes, defects := store.stats()
	assert.Equal(t, 1, revokes)
	assert.Equal(t, 0, defects)
}

func TestCloseAbortsInFlight(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.gate("a") // held open; only the abort can finish the fetch
	r := NewResolver(fetcher, newFakeStore())

	done := make(chan error, 1)
	go func() {
		_, err := r.Resolve(context.Background(), textFile("a", 10), false)
		done <- err
	}()

	require.Eventually(t, func() bool { return fetcher.count() == 1 }, time.Second, 5*time.Millisecond)
	r.Close()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("resolve did not return after Close")
	}
}
