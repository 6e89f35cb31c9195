package gdrive

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	gapi "google.golang.org/api/googleapi"
)

// FileMetadata describes a file on Drive. Size is zero when Drive does not
// report one (folders, native Docs types).
type FileMetadata struct {
	ID           string
	Name         string
	Size         int64
	MimeType     string
	ModifiedTime string
	Owners       []string
	Shared       bool

	// Skipped is set when Download left an existing destination in place.
	Skipped bool
}

// Format renders the metadata as a human-readable block.
func (m *FileMetadata) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "File Name: %s\n", m.Name)
	fmt.Fprintf(&b, "Type: %s\n", m.MimeType)
	fmt.Fprintf(&b, "Size: %s\n", FormatBytes(m.Size))
	if m.ModifiedTime != "" {
		fmt.Fprintf(&b, "Modified: %s\n", m.ModifiedTime)
	}
	if len(m.Owners) > 0 {
		fmt.Fprintf(&b, "Owner(s): %s\n", strings.Join(m.Owners, ", "))
	}
	shared := "No"
	if m.Shared {
		shared = "Yes"
	}
	fmt.Fprintf(&b, "Shared: %s", shared)
	return b.String()
}

// GetMetadata looks up name, size and mime type for a file through the Drive
// API. Requires an API key.
func (c *Client) GetMetadata(ctx context.Context, fileID string) (*FileMetadata, error) {
	if !rawIDRe.MatchString(fileID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidIdentifier, fileID)
	}
	svc, err := c.driveService(ctx)
	if err != nil {
		return nil, err
	}
	f, err := svc.Files.Get(fileID).
		Fields("id, name, mimeType, size, modifiedTime, owners, shared").
		Context(ctx).
		Do()
	if err != nil {
		var gerr *gapi.Error
		if errors.As(err, &gerr) {
			switch gerr.Code {
			case http.StatusNotFound:
				return nil, fmt.Errorf("%w: %s", ErrMetadataNotFound, fileID)
			case http.StatusForbidden:
				return nil, fmt.Errorf("%w: %s", ErrForbidden, fileID)
			}
		}
		return nil, fmt.Errorf("gdrive: get metadata: %w", err)
	}
	meta := &FileMetadata{
		ID:           f.Id,
		Name:         f.Name,
		Size:         f.Size,
		MimeType:     f.MimeType,
		ModifiedTime: f.ModifiedTime,
		Shared:       f.Shared,
	}
	for _, owner := range f.Owners {
		meta.Owners = append(meta.Owners, owner.DisplayName)
	}
	return meta, nil
}
