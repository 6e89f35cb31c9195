package gdrive

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// warning pages are small; cap how much of one we are willing to parse.
const maxWarningPage = 1 << 20

// DownloadRequest describes a single file download.
type DownloadRequest struct {
	// URL is a share URL or a raw file ID.
	URL string

	// Output is the destination path. When empty the filename from the
	// Content-Disposition header is used, placed inside Dir.
	Output string

	// Dir is the directory for downloads without an explicit Output.
	// Default: current working directory.
	Dir string

	// Overwrite replaces an existing destination file. Skip silently leaves
	// it alone. When neither is set an existing destination is an error.
	Overwrite bool
	Skip      bool

	// Format selects the export format for Docs, Sheets and Slides links
	// (e.g. pdf, docx, xlsx, pptx, or "ms" for the matching Office format).
	Format string

	// Progress, when set, is invoked after every chunk written.
	Progress ProgressFunc
}

// Download fetches a shared file and streams it to the destination path.
//
// Small files are served directly by the export endpoint. Large files come
// back as a virus-scan warning page instead; in that case the confirmation
// token is extracted from the response cookies or the embedded form and the
// request is re-issued exactly once with the token attached.
func (c *Client) Download(ctx context.Context, req DownloadRequest) (*FileMetadata, error) {
	link, err := ParseLink(req.URL)
	if err != nil {
		return nil, err
	}
	dlURL, err := link.downloadURL(c.exportBase, c.docsBase, req.Format)
	if err != nil {
		return nil, err
	}
	res, err := c.fetch(ctx, dlURL)
	if err != nil {
		return nil, err
	}
	if res.StatusCode != http.StatusOK {
		res.Body.Close()
		return nil, statusError(res)
	}
	if !isWarningPage(res) {
		return c.saveFile(res, link, req)
	}

	confirmed, err := c.confirmedURL(res, dlURL)
	res.Body.Close()
	if err != nil {
		return nil, err
	}
	res, err = c.fetch(ctx, confirmed)
	if err != nil {
		return nil, err
	}
	if res.StatusCode != http.StatusOK {
		res.Body.Close()
		return nil, statusError(res)
	}
	if isWarningPage(res) {
		// The token is attempted once; a second warning page means the
		// format changed under us.
		res.Body.Close()
		return nil, fmt.Errorf("%w: warning page returned twice", ErrTokenNotFound)
	}
	return c.saveFile(res, link, req)
}

// isWarningPage reports whether the response is the large-file virus-scan
// warning instead of file content. Real file responses always carry a
// Content-Disposition header.
func isWarningPage(res *http.Response) bool {
	if res.Header.Get("Content-Disposition") != "" {
		return false
	}
	return strings.Contains(res.Header.Get("Content-Type"), "text/html")
}

// confirmedURL derives the confirmed download URL from a warning page,
// preferring the download-warning cookie over scraping the form.
func (c *Client) confirmedURL(res *http.Response, dlURL string) (string, error) {
	if token := tokenFromCookies(res.Cookies()); token != "" {
		return dlURL + "&confirm=" + url.QueryEscape(token), nil
	}
	confirmed, err := confirmURLFromHTML(io.LimitReader(res.Body, maxWarningPage))
	if err != nil {
		return "", err
	}
	u, err := url.Parse(confirmed)
	if err != nil {
		return "", ErrTokenNotFound
	}
	if !u.IsAbs() && res.Request != nil && res.Request.URL != nil {
		u = res.Request.URL.ResolveReference(u)
	}
	return u.String(), nil
}

// saveFile streams the response body to the destination. The data goes to a
// .part file first and is renamed once the body has been fully written, so a
// failed download never leaves a truncated file at the destination path.
func (c *Client) saveFile(res *http.Response, link *Link, req DownloadRequest) (*FileMetadata, error) {
	defer res.Body.Close()

	name := filenameFromResponse(res)
	if name == "" {
		name = link.ID
	}
	dest := req.Output
	if dest == "" {
		dest = filepath.Join(req.Dir, name)
	}

	if st, err := os.Stat(dest); err == nil {
		if req.Skip {
			return &FileMetadata{Name: filepath.Base(dest), Size: st.Size(), MimeType: res.Header.Get("Content-Type"), Skipped: true}, nil
		}
		if !req.Overwrite {
			return nil, fmt.Errorf("%w: %s", ErrExists, dest)
		}
	}

	var total uint64
	if res.ContentLength > 0 {
		total = uint64(res.ContentLength)
	}
	part := dest + ".part"
	file, err := os.Create(part)
	if err != nil {
		return nil, fmt.Errorf("gdrive: create %s: %w", part, err)
	}
	// The bare writer hides the file's ReaderFrom; io.CopyBuffer would
	// otherwise delegate to it and ignore the sized buffer.
	written, err := io.CopyBuffer(struct{ io.Writer }{file}, &chunks{
		Reader: res.Body,
		size:   total,
		fn:     req.Progress,
	}, make([]byte, c.chunkSize))
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("gdrive: write %s: %w", part, err)
	}
	if err := os.Rename(part, dest); err != nil {
		return nil, fmt.Errorf("gdrive: rename %s: %w", part, err)
	}
	return &FileMetadata{
		ID:       link.ID,
		Name:     filepath.Base(dest),
		Size:     written,
		MimeType: res.Header.Get("Content-Type"),
	}, nil
}

// filenameFromResponse extracts the original filename from the
// Content-Disposition header.
func filenameFromResponse(res *http.Response) string {
	cd := res.Header.Get("Content-Disposition")
	if cd == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(cd)
	if err != nil || params["filename"] == "" {
		return ""
	}
	// Guard against path traversal in server-supplied names.
	return filepath.Base(params["filename"])
}
