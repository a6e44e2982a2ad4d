// Package httpbackend backs the repository Resolver capability over
// HTTP(S), the transport a majority of public Debian mirrors are served
// over.
package httpbackend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dionysius/drepo/repository"
)

// Root is a repository.Resolver rooted at a base URL. It does not
// implement repository.Writer: publishing over HTTP is not a supported
// repository target in this scheme set.
type Root struct {
	Base   *url.URL
	Client *http.Client
}

// New constructs a Root over base, using client if non-nil or
// http.DefaultClient otherwise.
func New(base *url.URL, client *http.Client) *Root {
	if client == nil {
		client = http.DefaultClient
	}
	return &Root{Base: base, Client: client}
}

// GetPath implements repository.Resolver.
func (r *Root) GetPath(ctx context.Context, path string) (io.ReadCloser, error) {
	target := r.Base.JoinPath(strings.TrimPrefix(path, "/"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, &repository.IoPathError{Path: path, Err: err}
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, &repository.IoPathError{Path: path, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_ = resp.Body.Close()
		return nil, &repository.NotFoundError{Path: path}
	case resp.StatusCode >= 300:
		_ = resp.Body.Close()
		return nil, &repository.IoPathError{Path: path, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	default:
		return resp.Body, nil
	}
}
