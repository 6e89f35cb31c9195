package gdrive

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

const testFileID = "1Abc_DEF-ghi234567890"

// newTestClient points a Client at a test server's export endpoint.
func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	client, err := NewClient(Options{
		ExportEndpoint: srv.URL + "/uc?export=download",
		DocsEndpoint:   srv.URL + "/docs/",
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func serveFile(w http.ResponseWriter, name string, data []byte) {
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	w.Write(data)
}

func TestDownloadDirect(t *testing.T) {
	data := make([]byte, 200*1024)
	for i := range data {
		data[i] = byte(i % 251)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") != testFileID {
			http.NotFound(w, r)
			return
		}
		serveFile(w, "hello.bin", data)
	}))
	defer srv.Close()

	var events []ProgressEvent
	client := newTestClient(t, srv)
	dest := filepath.Join(t.TempDir(), "out.bin")
	meta, err := client.Download(context.Background(), DownloadRequest{
		URL:    testFileID,
		Output: dest,
		Progress: func(ev ProgressEvent) {
			events = append(events, ev)
		},
	})
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if meta.Size != int64(len(data)) {
		t.Errorf("meta.Size = %d, want %d", meta.Size, len(data))
	}
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(data) {
		t.Fatalf("file size = %d, want Content-Length %d", len(got), len(data))
	}
	for i := range data {
		if got[i] != data[i] {
			t.Fatalf("data mismatch at byte %d", i)
		}
	}

	if len(events) == 0 {
		t.Fatal("no progress events")
	}
	var prev uint64
	for _, ev := range events {
		if ev.BytesTransferred < prev {
			t.Fatalf("progress went backwards: %d after %d", ev.BytesTransferred, prev)
		}
		if ev.TotalBytes != uint64(len(data)) {
			t.Fatalf("TotalBytes = %d, want %d", ev.TotalBytes, len(data))
		}
		prev = ev.BytesTransferred
	}
	if final := events[len(events)-1].BytesTransferred; final != uint64(len(data)) {
		t.Errorf("final progress = %d, want %d", final, len(data))
	}
}

func TestDownloadChunkSize(t *testing.T) {
	const chunkSize = 1024
	data := make([]byte, 64*1024)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serveFile(w, "chunky.bin", data)
	}))
	defer srv.Close()

	client, err := NewClient(Options{
		ExportEndpoint: srv.URL + "/uc?export=download",
		ChunkSize:      chunkSize,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	var events []ProgressEvent
	_, err = client.Download(context.Background(), DownloadRequest{
		URL:    testFileID,
		Output: filepath.Join(t.TempDir(), "chunky.bin"),
		Progress: func(ev ProgressEvent) {
			events = append(events, ev)
		},
	})
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	// Each event covers at most one chunk; a copy that ignores the
	// configured size would report in far fewer, larger steps.
	if min := len(data) / chunkSize; len(events) < min {
		t.Errorf("got %d progress events, want at least %d", len(events), min)
	}
	var prev uint64
	for _, ev := range events {
		if step := ev.BytesTransferred - prev; step > chunkSize {
			t.Fatalf("progress step of %d bytes exceeds chunk size %d", step, chunkSize)
		}
		prev = ev.BytesTransferred
	}
}

func TestDownloadConfirmationForm(t *testing.T) {
	data := []byte("large file content")
	var requests int
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		switch r.URL.Path {
		case "/uc":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprintf(w, `<html><body><form id="download-form" action="%s/confirmed" method="get">
<input type="hidden" name="id" value="%s">
<input type="hidden" name="confirm" value="t">
<input type="hidden" name="uuid" value="abc-def">
</form></body></html>`, srv.URL, testFileID)
		case "/confirmed":
			if r.URL.Query().Get("confirm") != "t" {
				http.Error(w, "missing confirm", http.StatusBadRequest)
				return
			}
			serveFile(w, "big.bin", data)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv)
	dest := filepath.Join(t.TempDir(), "big.bin")
	meta, err := client.Download(context.Background(), DownloadRequest{URL: testFileID, Output: dest})
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if requests != 2 {
		t.Errorf("requests = %d, want exactly 2", requests)
	}
	if meta.Size == 0 {
		t.Error("downloaded file is empty")
	}
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(data) {
		t.Errorf("content = %q, want %q", got, data)
	}
}

func TestDownloadConfirmationCookie(t *testing.T) {
	data := []byte("cookie confirmed content")
	var confirmSeen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if confirm := r.URL.Query().Get("confirm"); confirm != "" {
			confirmSeen = confirm
			serveFile(w, "big.bin", data)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "download_warning_1234_" + testFileID, Value: "tok42"})
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html><body>scan warning</body></html>")
	}))
	defer srv.Close()

	client := newTestClient(t, srv)
	dest := filepath.Join(t.TempDir(), "big.bin")
	if _, err := client.Download(context.Background(), DownloadRequest{URL: testFileID, Output: dest}); err != nil {
		t.Fatalf("Download: %v", err)
	}
	if confirmSeen != "tok42" {
		t.Errorf("confirm token sent = %q, want %q", confirmSeen, "tok42")
	}
}

func TestDownloadWarningTwice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "download_warning_x", Value: "tok"})
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body>still warning</body></html>")
	}))
	defer srv.Close()

	client := newTestClient(t, srv)
	_, err := client.Download(context.Background(), DownloadRequest{
		URL:    testFileID,
		Output: filepath.Join(t.TempDir(), "x.bin"),
	})
	if !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("err = %v, want ErrTokenNotFound", err)
	}
}

func TestDownloadTokenMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body>no form, no cookie</body></html>")
	}))
	defer srv.Close()

	client := newTestClient(t, srv)
	_, err := client.Download(context.Background(), DownloadRequest{
		URL:    testFileID,
		Output: filepath.Join(t.TempDir(), "x.bin"),
	})
	if !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("err = %v, want ErrTokenNotFound", err)
	}
}

func TestDownloadNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client := newTestClient(t, srv)
	_, err := client.Download(context.Background(), DownloadRequest{
		URL:    testFileID,
		Output: filepath.Join(t.TempDir(), "x.bin"),
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	var serr *StatusError
	if !errors.As(err, &serr) || serr.Code != http.StatusNotFound {
		t.Errorf("err = %v, want StatusError with code 404", err)
	}
}

func TestDownloadInvalidIdentifier(t *testing.T) {
	client, err := NewClient(Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := client.Download(context.Background(), DownloadRequest{URL: "!!"}); !errors.Is(err, ErrInvalidIdentifier) {
		t.Errorf("err = %v, want ErrInvalidIdentifier", err)
	}
}

func TestDownloadExisting(t *testing.T) {
	data := []byte("fresh content")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serveFile(w, "hello.bin", data)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "hello.bin")
	if err := os.WriteFile(dest, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	client := newTestClient(t, srv)
	ctx := context.Background()

	if _, err := client.Download(ctx, DownloadRequest{URL: testFileID, Output: dest}); !errors.Is(err, ErrExists) {
		t.Fatalf("err = %v, want ErrExists", err)
	}

	meta, err := client.Download(ctx, DownloadRequest{URL: testFileID, Output: dest, Skip: true})
	if err != nil {
		t.Fatalf("Download with Skip: %v", err)
	}
	if !meta.Skipped {
		t.Error("meta.Skipped = false, want true")
	}
	if got, _ := os.ReadFile(dest); string(got) != "old" {
		t.Errorf("skip rewrote the file: %q", got)
	}

	if _, err := client.Download(ctx, DownloadRequest{URL: testFileID, Output: dest, Overwrite: true}); err != nil {
		t.Fatalf("Download with Overwrite: %v", err)
	}
	if got, _ := os.ReadFile(dest); string(got) != string(data) {
		t.Errorf("overwrite left %q, want %q", got, data)
	}
}

func TestDownloadUsesHeaderFilename(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serveFile(w, "report final.pdf", []byte("%PDF"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	client := newTestClient(t, srv)
	meta, err := client.Download(context.Background(), DownloadRequest{URL: testFileID, Dir: dir})
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if meta.Name != "report final.pdf" {
		t.Errorf("meta.Name = %q", meta.Name)
	}
	if _, err := os.Stat(filepath.Join(dir, "report final.pdf")); err != nil {
		t.Errorf("expected file in dir: %v", err)
	}
}
