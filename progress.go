package gdrive

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// ProgressEvent reports cumulative transfer progress. TotalBytes is zero
// when the server did not announce a Content-Length.
type ProgressEvent struct {
	BytesTransferred uint64
	TotalBytes       uint64
}

// ProgressFunc receives a ProgressEvent after every chunk written.
type ProgressFunc func(ProgressEvent)

// chunks wraps the response body and reports cumulative bytes after each
// read.
type chunks struct {
	io.Reader
	cChunk uint64
	size   uint64
	fn     ProgressFunc
}

func (c *chunks) Read(dat []byte) (int, error) {
	n, err := c.Reader.Read(dat)
	if n > 0 {
		c.cChunk += uint64(n)
		if c.fn != nil {
			c.fn(ProgressEvent{BytesTransferred: c.cChunk, TotalBytes: c.size})
		}
	}
	return n, err
}

// ConsoleProgress returns a ProgressFunc that renders a single updating line
// on w.
func ConsoleProgress(w io.Writer) ProgressFunc {
	if w == nil {
		w = os.Stdout
	}
	return func(ev ProgressEvent) {
		if ev.TotalBytes > 0 {
			fmt.Fprintf(w, "\rDownloading... %s / %s", FormatBytes(int64(ev.BytesTransferred)), FormatBytes(int64(ev.TotalBytes)))
		} else {
			fmt.Fprintf(w, "\rDownloading... %s", FormatBytes(int64(ev.BytesTransferred)))
		}
	}
}

// FormatBytes formats a byte count as a human-readable string.
func FormatBytes(b int64) string {
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
		tb = gb * 1024
	)
	switch {
	case b >= tb:
		return fmt.Sprintf("%.2f TB", float64(b)/float64(tb))
	case b >= gb:
		return fmt.Sprintf("%.2f GB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.2f MB", float64(b)/float64(mb))
	case b >= kb:
		return fmt.Sprintf("%.2f KB", float64(b)/float64(kb))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// ParseBytes parses a human-readable byte string (e.g. "256MB", "32 KB").
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	var multiplier int64 = 1
	upper := strings.ToUpper(s)
	switch {
	case strings.HasSuffix(upper, "TB"):
		multiplier = 1024 * 1024 * 1024 * 1024
		s = s[:len(s)-2]
	case strings.HasSuffix(upper, "GB"):
		multiplier = 1024 * 1024 * 1024
		s = s[:len(s)-2]
	case strings.HasSuffix(upper, "MB"):
		multiplier = 1024 * 1024
		s = s[:len(s)-2]
	case strings.HasSuffix(upper, "KB"):
		multiplier = 1024
		s = s[:len(s)-2]
	case strings.HasSuffix(upper, "B"):
		s = s[:len(s)-1]
	}
	var value float64
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%f", &value); err != nil {
		return 0, fmt.Errorf("invalid byte string: %s", s)
	}
	return int64(value * float64(multiplier)), nil
}
