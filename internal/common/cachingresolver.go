package common

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dionysius/drepo/repository"
)

// CachingResolver adapts Downloader into a repository.Resolver backed by a
// local disk cache: GetPath serves an already-cached file directly, and on
// a miss downloads baseURL+path through Downloader (so its in-flight
// deduplication still applies) before serving it from the now-populated
// cache. The download request carries no checksum, so no digest is checked
// here. The application uses it for every APT feed, rooted under the
// configured cache directory - repeated runs against the same upstream
// skip re-fetching files the cache already has.
type CachingResolver struct {
	Downloader *Downloader
	BaseURL    string
	CacheRoot  string
}

// GetPath implements repository.Resolver.
func (c *CachingResolver) GetPath(ctx context.Context, path string) (io.ReadCloser, error) {
	cachedPath := filepath.Join(c.CacheRoot, filepath.FromSlash(path))

	if f, err := os.Open(cachedPath); err == nil {
		return f, nil
	}

	url := strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
	group := c.Downloader.Download(ctx, &DownloadRequest{URL: url, Destination: cachedPath})
	if _, err := group.Wait(); err != nil {
		if isNotFoundDownloadError(err) {
			return nil, &repository.NotFoundError{Path: path}
		}
		return nil, &repository.IoPathError{Path: path, Err: err}
	}

	f, err := os.Open(cachedPath)
	if err != nil {
		return nil, &repository.IoPathError{Path: path, Err: err}
	}
	return f, nil
}

// isNotFoundDownloadError recognizes grab's HTTP-status-in-error-text
// convention for a 404 response, since grab doesn't expose a typed
// not-found error.
func isNotFoundDownloadError(err error) bool {
	return strings.Contains(err.Error(), fmt.Sprintf("%d", http.StatusNotFound))
}
