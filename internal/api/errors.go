package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Failure states surfaced to consumers. Callers match them with errors.Is.
var (
	// ErrAuthRequired means no credential was available in a context that
	// needs one. It is returned before any request is issued.
	ErrAuthRequired = errors.New("authentication required")

	// ErrTooLarge means a file exceeds the preview ceiling for its kind.
	ErrTooLarge = errors.New("file too large to preview")

	// ErrTimeout means the per-kind timer won the race against the fetch.
	ErrTimeout = errors.New("request timed out")

	// ErrUnsupportedType is the terminal "no preview" state, not a fault.
	ErrUnsupportedType = errors.New("no preview available for this type")

	// ErrRelocationFailed means a file uploaded fine but the follow-up move
	// into its destination folder did not.
	ErrRelocationFailed = errors.New("uploaded file could not be moved to folder")
)

// StatusError is a non-2xx response. Message holds the text parsed from the
// backend's structured error body when one was present, otherwise the
// standard status text.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// errorBody is the backend's structured error envelope.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// decodeError turns a non-2xx response into a StatusError, preferring the
// structured body over the status text.
func decodeError(resp *http.Response) error {
	msg := http.StatusText(resp.StatusCode)
	if body, err := io.ReadAll(io.LimitReader(resp.Body, 4096)); err == nil {
		var parsed errorBody
		if json.Unmarshal(body, &parsed) == nil {
			if parsed.Error != "" {
				msg = parsed.Error
			} else if parsed.Message != "" {
				msg = parsed.Message
			}
		}
	}
	return &StatusError{StatusCode: resp.StatusCode, Message: msg}
}
