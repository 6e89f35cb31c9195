package gdrive

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const defaultChunkSize = 32 * 1024

// Options configures a Client.
type Options struct {
	// APIKey enables the metadata and folder operations. It can also be
	// supplied through the GDRIVE_APIKEY environment variable by the CLI.
	APIKey string

	// UserAgent overrides the User-Agent header on export requests.
	UserAgent string

	// Proxy is an optional proxy URL (e.g. http://host:port).
	Proxy string

	// Timeout for a whole download. Zero means no timeout; large files can
	// legitimately take a long time.
	Timeout time.Duration

	// ChunkSize is the copy buffer size used while streaming. Progress is
	// reported once per chunk. Default: 32KB.
	ChunkSize int64

	// ExportEndpoint and DocsEndpoint override the Drive endpoints that
	// serve raw file bytes. Used by tests.
	ExportEndpoint string
	DocsEndpoint   string

	// APIEndpoint overrides the Drive API base URL. Used by tests.
	APIEndpoint string
}

// Client downloads shared files from Google Drive. Each Client owns its own
// cookie jar; the confirmation-token exchange for large files depends on it.
type Client struct {
	hc         *http.Client
	apiKey     string
	userAgent  string
	chunkSize  int64
	exportBase string
	docsBase   string
	apiBase    string

	svc *drive.Service
}

// NewClient creates a Client.
func NewClient(opts Options) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	transport := http.DefaultTransport
	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, fmt.Errorf("gdrive: invalid proxy url: %w", err)
		}
		transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	}
	c := &Client{
		hc: &http.Client{
			Jar:       jar,
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		apiKey:     opts.APIKey,
		userAgent:  opts.UserAgent,
		chunkSize:  opts.ChunkSize,
		exportBase: opts.ExportEndpoint,
		docsBase:   opts.DocsEndpoint,
		apiBase:    opts.APIEndpoint,
	}
	if c.chunkSize <= 0 {
		c.chunkSize = defaultChunkSize
	}
	if c.exportBase == "" {
		c.exportBase = exportURL
	}
	if c.docsBase == "" {
		c.docsBase = docsURL
	}
	return c, nil
}

// fetch issues a GET against a Drive endpoint.
func (c *Client) fetch(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	res, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gdrive: request failed: %w", err)
	}
	return res, nil
}

// driveService lazily builds the Drive API service used for metadata and
// folder operations.
func (c *Client) driveService(ctx context.Context) (*drive.Service, error) {
	if c.svc != nil {
		return c.svc, nil
	}
	if c.apiKey == "" && c.apiBase == "" {
		return nil, ErrAPIKeyRequired
	}
	var copts []option.ClientOption
	if c.apiBase != "" {
		copts = append(copts, option.WithEndpoint(c.apiBase), option.WithoutAuthentication())
	} else {
		copts = append(copts, option.WithAPIKey(c.apiKey))
	}
	svc, err := drive.NewService(ctx, copts...)
	if err != nil {
		return nil, fmt.Errorf("gdrive: create drive service: %w", err)
	}
	c.svc = svc
	return svc, nil
}
