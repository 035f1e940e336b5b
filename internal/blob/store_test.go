package blob

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestStore(t *testing.T) *Store {
	t.Helper()

	s := NewStore()
	require.NoError(t, s.Start("127.0.0.1:0"))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.Shutdown(ctx)
	})
	return s
}

func TestPutAndServe(t *testing.T) {
	s := startTestStore(t)

	url := s.Put([]byte("pixel data"), "image/png")
	assert.Contains(t, url, s.Addr())

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "pixel data", string(body))
}

func TestPutDefaultsContentType(t *testing.T) {
	s := startTestStore(t)

	url := s.Put([]byte{0x1, 0x2}, "")
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "application/octet-stream", resp.Header.Get("Content-Type"))
}

func TestRevokeStopsServing(t *testing.T) {
	s := startTestStore(t)

	url := s.Put([]byte("transient"), "text/plain")
	require.NoError(t, s.Revoke(url))

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDoubleRevokeIsAnError(t *testing.T) {
	s := startTestStore(t)

	url := s.Put([]byte("once"), "text/plain")
	require.NoError(t, s.Revoke(url))

	err := s.Revoke(url)
	assert.ErrorIs(t, err, ErrUnknownBlob)
}

func TestLen(t *testing.T) {
	s := startTestStore(t)
	assert.Equal(t, 0, s.Len())

	a := s.Put([]byte("a"), "text/plain")
	s.Put([]byte("b"), "text/plain")
	assert.Equal(t, 2, s.Len())

	require.NoError(t, s.Revoke(a))
	assert.Equal(t, 1, s.Len())
}
