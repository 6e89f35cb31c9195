package gdrive

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors.
var (
	ErrInvalidIdentifier = errors.New("gdrive: invalid file identifier")
	ErrTokenNotFound     = errors.New("gdrive: confirmation token not found")
	ErrNotFound          = errors.New("gdrive: file not found")
	ErrForbidden         = errors.New("gdrive: access forbidden")
	ErrMetadataNotFound  = errors.New("gdrive: metadata not found")
	ErrExists            = errors.New("gdrive: destination already exists")
	ErrAPIKeyRequired    = errors.New("gdrive: API key required")
	ErrIsFolder          = errors.New("gdrive: identifier points to a folder")
)

// StatusError is returned when Drive answers with a non-2xx status.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gdrive: unexpected status %d %s", e.Code, e.Status)
}

// Unwrap maps well-known status codes to their sentinel errors so that
// callers can use errors.Is without inspecting the code.
func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusForbidden:
		return ErrForbidden
	}
	return nil
}

// statusError builds a StatusError from a response.
func statusError(res *http.Response) error {
	return &StatusError{Code: res.StatusCode, Status: http.StatusText(res.StatusCode)}
}
