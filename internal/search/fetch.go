package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Fetcher downloads a result URL into dir and returns the local path.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL, dir string) (string, error)
}

// HTTPFetcher downloads with a bounded body size.
type HTTPFetcher struct {
	Client   *http.Client
	MaxBytes int64
}

const defaultMaxDownload = 20 << 20

func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		Client:   &http.Client{Timeout: 60 * time.Second},
		MaxBytes: defaultMaxDownload,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL, dir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; papergen/1.0)")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("download %s: status %d", rawURL, resp.StatusCode)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, downloadName(rawURL, resp.Header.Get("Content-Type")))
	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	limit := f.MaxBytes
	if limit <= 0 {
		limit = defaultMaxDownload
	}
	if _, err := io.Copy(out, io.LimitReader(resp.Body, limit)); err != nil {
		out.Close()
		return "", fmt.Errorf("download %s: %w", rawURL, err)
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return path, nil
}

// downloadName is stable per URL; the extension follows the content type.
func downloadName(rawURL, contentType string) string {
	sum := sha256.Sum256([]byte(rawURL))
	name := hex.EncodeToString(sum[:8])
	ext := ".html"
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		switch {
		case mt == "application/pdf":
			ext = ".pdf"
		case strings.Contains(mt, "wordprocessingml"):
			ext = ".docx"
		case mt == "text/plain":
			ext = ".txt"
		}
	} else if strings.HasSuffix(strings.ToLower(rawURL), ".pdf") {
		ext = ".pdf"
	}
	return name + ext
}
