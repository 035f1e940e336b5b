// Package blob serves transient in-memory payloads over the loopback
// interface. A Store plays the role object URLs play for the web client:
// Put materializes a short-lived URL for fetched bytes, Revoke releases it,
// and revoked URLs stop resolving immediately.
package blob

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"path"
	"sync"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// ErrUnknownBlob is returned when revoking a URL the store does not hold,
// including URLs that were already revoked. Double revocation is a caller
// defect and must stay visible.
var ErrUnknownBlob = errors.New("unknown or already revoked blob")

type entry struct {
	data        []byte
	contentType string
}

// Store is a loopback blob server.
type Store struct {
	server *echo.Echo
	addr   string

	mu    sync.Mutex
	blobs map[string]*entry
}

// NewStore creates a store. Start must be called before Put so URLs carry a
// real address.
func NewStore() *Store {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(blobHeaders())

	s := &Store{server: e, blobs: make(map[string]*entry)}
	e.GET("/b/:id", s.handleGet)
	return s
}

// Start binds the listener and begins serving. An empty addr binds an
// ephemeral loopback port.
func (s *Store) Start(addr string) error {
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind blob listener: %w", err)
	}
	s.addr = ln.Addr().String()
	s.server.Listener = ln

	go func() {
		if err := s.server.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Blob server stopped: %v", err)
		}
	}()
	return nil
}

// Addr returns the bound address, empty before Start.
func (s *Store) Addr() string { return s.addr }

// Shutdown gracefully stops the server.
func (s *Store) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Put registers data under a fresh id and returns its loopback URL.
func (s *Store) Put(data []byte, contentType string) string {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	id := uuid.NewString()

	s.mu.Lock()
	s.blobs[id] = &entry{data: data, contentType: contentType}
	s.mu.Unlock()

	return fmt.Sprintf("http://%s/b/%s", s.addr, id)
}

// Revoke releases the blob behind url. Unknown and already-revoked URLs
// return ErrUnknownBlob so callers can assert exactly-once disposal.
func (s *Store) Revoke(url string) error {
	id := path.Base(url)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[id]; !ok {
		return fmt.Errorf("blob %s: %w", id, ErrUnknownBlob)
	}
	delete(s.blobs, id)
	return nil
}

// Len reports how many blobs are currently live.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}

func (s *Store) handleGet(c echo.Context) error {
	id := c.Param("id")

	s.mu.Lock()
	e, ok := s.blobs[id]
	s.mu.Unlock()

	if !ok {
		return c.String(http.StatusNotFound, "blob not found")
	}
	return c.Blob(http.StatusOK, e.contentType, e.data)
}

// blobHeaders keeps blob responses out of caches; a revoked blob must not
// survive in an intermediary.
func blobHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set("Cache-Control", "no-store")
			c.Response().Header().Set("X-Content-Type-Options", "nosniff")
			c.Response().Header().Set("Referrer-Policy", "no-referrer")
			c.Response().Header().Del("Server")

			return next(c)
		}
	}
}
