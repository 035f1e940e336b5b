package download

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chinmay706/Secure-vault-frontend/internal/api"
	"github.com/chinmay706/Secure-vault-frontend/internal/model"
)

type fakeFetcher struct {
	stream    *api.FileStream
	err       error
	downloads []string
	publics   []string
}

func (f *fakeFetcher) OpenDownload(ctx context.Context, fileID string) (*api.FileStream, error) {
	f.downloads = append(f.downloads, fileID)
	return f.stream, f.err
}

func (f *fakeFetcher) OpenPublic(ctx context.Context, shareToken string) (*api.FileStream, error) {
	f.publics = append(f.publics, shareToken)
	return f.stream, f.err
}

func streamOf(name, content string) *api.FileStream {
	return &api.FileStream{
		Body:      io.NopCloser(strings.NewReader(content)),
		Filename:  name,
		SizeBytes: int64(len(content)),
	}
}

func TestDownloadUsesDispositionFilename(t *testing.T) {
	fetcher := &fakeFetcher{stream: streamOf("report-final.pdf", "pdf bytes")}
	trigger := NewTrigger(fetcher, t.TempDir())

	path, err := trigger.Download(context.Background(), &model.FileDescriptor{
		ID:               "f1",
		OriginalFilename: "report.pdf",
	})
	require.NoError(t, err)

	assert.Equal(t, "report-final.pdf", filepath.Base(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "pdf bytes", string(data))
	assert.Equal(t, []string{"f1"}, fetcher.downloads)
	assert.Empty(t, fetcher.publics)
}

func TestDownloadFallsBackToStoredName(t *testing.T) {
	fetcher := &fakeFetcher{stream: streamOf("", "hello")}
	trigger := NewTrigger(fetcher, t.TempDir())

	path, err := trigger.Download(context.Background(), &model.FileDescriptor{
		ID:               "f1",
		OriginalFilename: "notes.txt",
	})
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", filepath.Base(path))
}

func TestDownloadStripsDirectoryComponents(t *testing.T) {
	fetcher := &fakeFetcher{stream: streamOf("../../etc/passwd", "x")}
	dir := t.TempDir()
	trigger := NewTrigger(fetcher, dir)

	path, err := trigger.Download(context.Background(), &model.FileDescriptor{ID: "f1"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "passwd"), path)
}

func TestDownloadSharedFileUsesPublicEndpoint(t *testing.T) {
	fetcher := &fakeFetcher{stream: streamOf("pic.png", "png")}
	trigger := NewTrigger(fetcher, t.TempDir())

	_, err := trigger.Download(context.Background(), &model.FileDescriptor{
		ID:               "f1",
		OriginalFilename: "pic.png",
		ShareLink:        &model.ShareLink{Token: "tok", IsActive: true},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"tok"}, fetcher.publics)
	assert.Empty(t, fetcher.downloads)
}

func TestDownloadPropagatesFetchError(t *testing.T) {
	fetcher := &fakeFetcher{err: fmt.Errorf("backend says: %w", api.ErrAuthRequired)}
	dir := t.TempDir()
	trigger := NewTrigger(fetcher, dir)

	_, err := trigger.Download(context.Background(), &model.FileDescriptor{
		ID:               "f1",
		OriginalFilename: "notes.txt",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrAuthRequired)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing is written on a failed fetch")
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, fmt.Errorf("connection reset") }
func (failingReader) Close() error             { return nil }

func TestDownloadCleansUpOnCopyFailure(t *testing.T) {
	fetcher := &fakeFetcher{stream: &api.FileStream{Body: failingReader{}, Filename: "big.bin"}}
	dir := t.TempDir()
	trigger := NewTrigger(fetcher, dir)

	_, err := trigger.Download(context.Background(), &model.FileDescriptor{ID: "f1"})
	require.Error(t, err)

	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Empty(t, entries, "partial file is removed")
}
