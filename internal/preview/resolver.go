// Package preview resolves remote files into transient local preview
// sessions. Each consumer owns one Resolver; the resolver owns at most one
// live session at a time and guarantees its blob URL is released exactly
// once when superseded, closed, or disposed.
package preview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/chinmay706/Secure-vault-frontend/internal/api"
	"github.com/chinmay706/Secure-vault-frontend/internal/model"
)

// Size ceilings enforced before any fetch, per preview kind. Images carry no
// explicit ceiling.
const (
	MaxTextBytes  = 500_000
	MaxVideoBytes = 100_000_000
	MaxPDFBytes   = 50_000_000
)

const (
	videoTimeout   = 60 * time.Second
	defaultTimeout = 30 * time.Second
)

// ObjectStore materializes fetched bytes as transient local URLs.
type ObjectStore interface {
	Put(data []byte, contentType string) string
	Revoke(url string) error
}

// Fetcher retrieves file bytes from the backend. *api.Client satisfies it.
type Fetcher interface {
	OpenDownload(ctx context.Context, fileID string) (*api.FileStream, error)
	OpenPublic(ctx context.Context, shareToken string) (*api.FileStream, error)
}

// Session is a resolved preview: the file it belongs to, the local URL
// holding its bytes, and how to render them.
type Session struct {
	FileID      string
	Kind        model.PreviewKind
	URL         string
	ContentType string

	once  sync.Once
	store ObjectStore
}

// Dispose releases the session's URL. Repeated calls are safe; only the
// first one reaches the store.
func (s *Session) Dispose() {
	s.once.Do(func() {
		if err := s.store.Revoke(s.URL); err != nil {
			log.Printf("Warning: failed to revoke preview URL: %v", err)
		}
	})
}

type state int

const (
	stateIdle state = iota
	stateResolving
	stateResolved
)

type outcome struct {
	session *Session
	err     error
}

// Resolver resolves previews for a single consumer. Transitions follow
// Idle -> Resolving(target) -> Resolved(target) -> Idle; a request for a
// different target first cancels and disposes the current state.
type Resolver struct {
	fetcher Fetcher
	store   ObjectStore

	mu      sync.Mutex
	state   state
	target  string
	cancel  context.CancelFunc
	session *Session
	waiters []chan outcome

	// timeoutFor is swappable in tests.
	timeoutFor func(model.PreviewKind) time.Duration
}

// NewResolver creates a resolver bound to one consumer.
func NewResolver(fetcher Fetcher, store ObjectStore) *Resolver {
	return &Resolver{
		fetcher:    fetcher,
		store:      store,
		timeoutFor: kindTimeout,
	}
}

func kindTimeout(kind model.PreviewKind) time.Duration {
	if kind == model.KindVideo {
		return videoTimeout
	}
	return defaultTimeout
}

// ceilingFor returns the byte ceiling for a kind, 0 meaning unbounded.
func ceilingFor(kind model.PreviewKind) int64 {
	switch kind {
	case model.KindText:
		return MaxTextBytes
	case model.KindVideo:
		return MaxVideoBytes
	case model.KindPDF:
		return MaxPDFBytes
	default:
		return 0
	}
}

// Resolve produces a preview session for file. Ineligible types and
// over-ceiling sizes fail before any network traffic. Resolving the id that
// is already resolved or in flight joins the existing work; resolving a
// different id supersedes it.
func (r *Resolver) Resolve(ctx context.Context, file *model.FileDescriptor, publicContext bool) (*Session, error) {
	kind := model.KindOf(file.MimeType)
	if kind == model.KindNone {
		return nil, api.ErrUnsupportedType
	}
	if limit := ceilingFor(kind); limit > 0 && file.SizeBytes > limit {
		return nil, fmt.Errorf("%s (%d bytes): %w", file.OriginalFilename, file.SizeBytes, api.ErrTooLarge)
	}
	if publicContext && !file.HasActiveShare() {
		// Nothing to authenticate with in a public context.
		return nil, api.ErrAuthRequired
	}

	r.mu.Lock()
	switch {
	case r.state == stateResolved && r.target == file.ID:
		session := r.session
		r.mu.Unlock()
		return session, nil

	case r.state == stateResolving && r.target == file.ID:
		ch := make(chan outcome, 1)
		r.waiters = append(r.waiters, ch)
		r.mu.Unlock()
		select {
		case out := <-ch:
			return out.session, out.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	// Different target: cancel and dispose the current state first.
	r.resetLocked()
	fetchCtx, cancel := context.WithTimeout(ctx, r.timeoutFor(kind))
	r.state = stateResolving
	r.target = file.ID
	r.cancel = cancel
	r.mu.Unlock()

	data, contentType, err := r.fetch(fetchCtx, file)
	return r.commit(file, kind, data, contentType, err, cancel)
}

func (r *Resolver) fetch(ctx context.Context, file *model.FileDescriptor) ([]byte, string, error) {
	var stream *api.FileStream
	var err error
	if file.HasActiveShare() {
		stream, err = r.fetcher.OpenPublic(ctx, file.ShareLink.Token)
	} else {
		stream, err = r.fetcher.OpenDownload(ctx, file.ID)
	}
	if err != nil {
		return nil, "", err
	}
	defer stream.Body.Close()

	data, err := io.ReadAll(stream.Body)
	if err != nil {
		return nil, "", err
	}

	contentType := stream.ContentType
	if contentType == "" {
		contentType = file.MimeType
	}
	return data, contentType, nil
}

// commit settles a finished fetch, discarding it when superseded so a stale
// response never overwrites the current session.
func (r *Resolver) commit(file *model.FileDescriptor, kind model.PreviewKind, data []byte, contentType string, err error, cancel context.CancelFunc) (*Session, error) {
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("previewing %s: %w", file.OriginalFilename, api.ErrTimeout)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != stateResolving || r.target != file.ID {
		// Superseded while in flight; waiters were already answered by the
		// reset. The fetched bytes are never materialized.
		cancel()
		if err == nil {
			err = context.Canceled
		}
		return nil, err
	}

	var out outcome
	if err != nil {
		out.err = err
		r.state = stateIdle
		r.target = ""
	} else {
		session := &Session{
			FileID:      file.ID,
			Kind:        kind,
			ContentType: contentType,
			store:       r.store,
		}
		session.URL = r.store.Put(data, contentType)
		r.session = session
		r.state = stateResolved
		out.session = session
	}

	r.cancel = nil
	cancel()

	for _, ch := range r.waiters {
		ch <- out
	}
	r.waiters = nil

	return out.session, out.err
}

// resetLocked cancels any in-flight fetch and disposes the current session.
// The caller holds r.mu.
func (r *Resolver) resetLocked() {
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	if r.session != nil {
		r.session.Dispose()
		r.session = nil
	}
	for _, ch := range r.waiters {
		ch <- outcome{err: context.Canceled}
	}
	r.waiters = nil
	r.state = stateIdle
	r.target = ""
}

// Close aborts any in-flight resolution and releases the current session.
// The consumer calls it when it closes or unmounts.
func (r *Resolver) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetLocked()
}

// Current returns the resolved session, or nil when none is live.
func (r *Resolver) Current() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != stateResolved {
		return nil
	}
	return r.session
}
