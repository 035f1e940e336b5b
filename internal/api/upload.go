package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
)

// UploadResult is the backend's response to a successful upload.
type UploadResult struct {
	File struct {
		ID               string `json:"id"`
		OriginalFilename string `json:"original_filename"`
		SizeBytes        int64  `json:"size_bytes"`
	} `json:"file"`
	Hash        string `json:"hash"`
	IsDuplicate bool   `json:"is_duplicate"`
}

// ProgressFunc receives the number of file bytes handed to the transport so
// far, plus the expected total.
type ProgressFunc func(sent, total int64)

// progressReader counts bytes as they are pulled out of the file. Because
// the multipart body is piped, not buffered, a read here means the transport
// has consumed the previous write, so the count tracks bytes actually on the
// wire.
type progressReader struct {
	reader   io.Reader
	total    int64
	sent     int64
	onChange ProgressFunc
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.sent += int64(n)
		if pr.onChange != nil {
			pr.onChange(pr.sent, pr.total)
		}
	}
	return n, err
}

// Upload posts one file as a multipart form. Tags go in as repeated "tags"
// fields. Progress, when non-nil, is reported as the body streams out.
func (c *Client) Upload(ctx context.Context, name string, size int64, content io.Reader, contentType string, tags []string, progress ProgressFunc) (*UploadResult, error) {
	token := c.creds.Token()
	if token == "" {
		return nil, ErrAuthRequired
	}

	counted := &progressReader{reader: content, total: size, onChange: progress}

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		err := writeUploadForm(writer, name, contentType, counted, tags)
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"files", pr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", name, mapTransportError(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeError(resp)
	}

	var result UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}
	return &result, nil
}

func writeUploadForm(writer *multipart.Writer, name, contentType string, content io.Reader, tags []string) error {
	var part io.Writer
	var err error
	if contentType != "" {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
		header.Set("Content-Type", contentType)
		part, err = writer.CreatePart(header)
	} else {
		part, err = writer.CreateFormFile("file", name)
	}
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := io.Copy(part, content); err != nil {
		return fmt.Errorf("failed to copy file: %w", err)
	}

	for _, tag := range tags {
		if tag == "" {
			continue
		}
		if err := writer.WriteField("tags", tag); err != nil {
			return fmt.Errorf("failed to write tag: %w", err)
		}
	}

	return writer.Close()
}
