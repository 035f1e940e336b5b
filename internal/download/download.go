// Package download saves backend files to local disk, the client-side
// analog of the browser's save-as flow.
package download

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/chinmay706/Secure-vault-frontend/internal/api"
	"github.com/chinmay706/Secure-vault-frontend/internal/model"
)

// Fetcher retrieves file bytes from the backend. *api.Client satisfies it.
type Fetcher interface {
	OpenDownload(ctx context.Context, fileID string) (*api.FileStream, error)
	OpenPublic(ctx context.Context, shareToken string) (*api.FileStream, error)
}

// Trigger downloads files into a destination directory.
type Trigger struct {
	fetcher Fetcher
	destDir string
}

// NewTrigger creates a trigger writing into destDir.
func NewTrigger(fetcher Fetcher, destDir string) *Trigger {
	return &Trigger{fetcher: fetcher, destDir: destDir}
}

// Download streams the file to disk and returns the saved path. The name
// comes from the response's Content-Disposition when present, falling back
// to the descriptor's stored filename. Failures are terminal; there is no
// partial-download retry.
func (t *Trigger) Download(ctx context.Context, file *model.FileDescriptor) (string, error) {
	var stream *api.FileStream
	var err error
	if file.HasActiveShare() {
		stream, err = t.fetcher.OpenPublic(ctx, file.ShareLink.Token)
	} else {
		stream, err = t.fetcher.OpenDownload(ctx, file.ID)
	}
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", file.OriginalFilename, err)
	}
	defer stream.Body.Close()

	name := stream.Filename
	if name == "" {
		name = file.OriginalFilename
	}
	// The header is untrusted input; never let it point outside destDir.
	name = filepath.Base(name)
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = file.ID
	}

	if err := os.MkdirAll(t.destDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}

	path := filepath.Join(t.destDir, name)
	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(dst, stream.Body); err != nil {
		dst.Close()
		os.Remove(path)
		return "", fmt.Errorf("saving %s: %w", name, err)
	}

	return path, dst.Close()
}
