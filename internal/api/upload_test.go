package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/files", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "notes.txt", header.Filename)
		assert.Equal(t, "text/plain", header.Header.Get("Content-Type"))

		body, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, "file contents", string(body))

		assert.Equal(t, []string{"work", "drafts"}, r.MultipartForm.Value["tags"])

		json.NewEncoder(w).Encode(map[string]any{
			"file": map[string]any{
				"id":                "new-id",
				"original_filename": "notes.txt",
				"size_bytes":        13,
			},
			"hash":         "abc",
			"is_duplicate": false,
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, "", StaticCredentials("secret"))
	content := strings.NewReader("file contents")

	var lastSent, lastTotal int64
	result, err := c.Upload(context.Background(), "notes.txt", int64(content.Len()), content, "text/plain", []string{"work", "drafts"}, func(sent, total int64) {
		assert.GreaterOrEqual(t, sent, lastSent, "progress must be monotonic")
		lastSent, lastTotal = sent, total
	})
	require.NoError(t, err)

	assert.Equal(t, "new-id", result.File.ID)
	assert.Equal(t, "abc", result.Hash)
	assert.False(t, result.IsDuplicate)
	assert.Equal(t, int64(13), lastSent)
	assert.Equal(t, int64(13), lastTotal)
}

func TestUploadWithoutCredential(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer server.Close()

	c := NewClient(server.URL, "", StaticCredentials(""))
	_, err := c.Upload(context.Background(), "a.txt", 1, strings.NewReader("x"), "", nil, nil)
	assert.ErrorIs(t, err, ErrAuthRequired)
	assert.Equal(t, 0, hits)
}

func TestUploadServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusInsufficientStorage)
		json.NewEncoder(w).Encode(map[string]string{"error": "storage quota exceeded"})
	}))
	defer server.Close()

	c := NewClient(server.URL, "", StaticCredentials("secret"))
	_, err := c.Upload(context.Background(), "a.txt", 1, strings.NewReader("x"), "", nil, nil)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, "storage quota exceeded", statusErr.Message)
}

func TestUploadTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := NewClient(server.URL, "", StaticCredentials("secret"))
	_, err := c.Upload(ctx, "a.txt", 1, strings.NewReader("x"), "", nil, nil)
	assert.ErrorIs(t, err, ErrTimeout)
}
