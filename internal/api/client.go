// Package api is the REST and GraphQL client for the Secure Vault backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/chinmay706/Secure-vault-frontend/internal/model"
)

// CredentialProvider supplies the bearer token for authenticated calls. It
// is injected explicitly so nothing in the client reads ambient storage.
type CredentialProvider interface {
	Token() string
}

// StaticCredentials is a CredentialProvider around a fixed token. The empty
// string means "no credential".
type StaticCredentials string

func (s StaticCredentials) Token() string { return string(s) }

// Client talks to the Secure Vault backend.
type Client struct {
	BaseURL    string
	GraphQLURL string
	HTTPClient *http.Client
	creds      CredentialProvider
}

// NewClient creates a client for the given REST base URL and GraphQL
// endpoint. Request deadlines come from the per-call contexts, so the
// underlying http.Client carries no global timeout.
func NewClient(baseURL, graphqlURL string, creds CredentialProvider) *Client {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if creds == nil {
		creds = StaticCredentials("")
	}
	return &Client{
		BaseURL:    baseURL,
		GraphQLURL: graphqlURL,
		HTTPClient: &http.Client{},
		creds:      creds,
	}
}

// authorize attaches the bearer credential, or fails with ErrAuthRequired
// before the request leaves the client.
func (c *Client) authorize(req *http.Request) error {
	token := c.creds.Token()
	if token == "" {
		return ErrAuthRequired
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// FileStream is an open byte stream for a remote file. The caller owns Body
// and must close it.
type FileStream struct {
	Body        io.ReadCloser
	ContentType string
	Filename    string // from Content-Disposition; empty when absent
	SizeBytes   int64  // -1 when the backend did not say
}

// OpenDownload fetches a file's bytes through the authenticated per-id
// download endpoint.
func (c *Client) OpenDownload(ctx context.Context, fileID string) (*FileStream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"files/"+fileID+"/download", nil)
	if err != nil {
		return nil, err
	}
	if err := c.authorize(req); err != nil {
		return nil, err
	}
	return c.openStream(req)
}

// OpenPublic fetches a file's bytes through the unauthenticated public
// byte-serving endpoint using its share token.
func (c *Client) OpenPublic(ctx context.Context, shareToken string) (*FileStream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"p/"+shareToken, nil)
	if err != nil {
		return nil, err
	}
	return c.openStream(req)
}

func (c *Client) openStream(req *http.Request) (*FileStream, error) {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, mapTransportError(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}

	stream := &FileStream{
		Body:        resp.Body,
		ContentType: resp.Header.Get("Content-Type"),
		SizeBytes:   resp.ContentLength,
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			stream.Filename = params["filename"]
		}
	}
	return stream, nil
}

// Move relocates a file into a folder.
func (c *Client) Move(ctx context.Context, fileID, folderID string) error {
	body := map[string]string{"folder_id": folderID}
	return c.doJSON(ctx, http.MethodPatch, "files/"+fileID+"/move", body, nil)
}

// SetVisibility flips a file's public flag.
func (c *Client) SetVisibility(ctx context.Context, fileID string, public bool) error {
	body := map[string]bool{"is_public": public}
	return c.doJSON(ctx, http.MethodPatch, "files/"+fileID+"/visibility", body, nil)
}

// ShareFile creates a public share link for a file.
func (c *Client) ShareFile(ctx context.Context, fileID string) (*model.ShareLink, error) {
	var link model.ShareLink
	if err := c.doJSON(ctx, http.MethodPost, "files/"+fileID+"/public", nil, &link); err != nil {
		return nil, err
	}
	return &link, nil
}

// UnshareFile revokes a file's public share link.
func (c *Client) UnshareFile(ctx context.Context, fileID string) error {
	return c.doJSON(ctx, http.MethodDelete, "files/"+fileID+"/public", nil, nil)
}

// ShareFolder creates a public share link for a folder.
func (c *Client) ShareFolder(ctx context.Context, folderID string) (*model.ShareLink, error) {
	var link model.ShareLink
	if err := c.doJSON(ctx, http.MethodPost, "folders/"+folderID+"/share", nil, &link); err != nil {
		return nil, err
	}
	return &link, nil
}

// UnshareFolder revokes a folder's public share link.
func (c *Client) UnshareFolder(ctx context.Context, folderID string) error {
	return c.doJSON(ctx, http.MethodDelete, "folders/"+folderID+"/share", nil, nil)
}

// doJSON runs an authenticated JSON request against the REST surface and
// decodes the response into out when out is non-nil.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, payload)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if err := c.authorize(req); err != nil {
		return err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return mapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// mapTransportError keeps deadline expiry distinct from other transport
// failures.
func mapTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}
