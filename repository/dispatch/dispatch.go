// Package dispatch implements the URL Dispatcher: turning a user-supplied
// string into the concrete backend it names. It is kept separate from
// package repository (which defines the Resolver/Writer interfaces) so
// that the backend packages can depend on repository without repository
// having to depend back on them.
package dispatch

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/dionysius/drepo/repository"
	"github.com/dionysius/drepo/repository/filesystem"
	"github.com/dionysius/drepo/repository/httpbackend"
	"github.com/dionysius/drepo/repository/nullbackend"
	"github.com/dionysius/drepo/repository/s3backend"
)

// ReaderFromString parses s into a repository.Resolver.
//
// If s contains "://" it is parsed as a URL: "file" maps to a filesystem
// reader rooted at the URL's path, "http"/"https" to an HTTP reader.
// Any other scheme fails with ReaderUnrecognizedURLError. Without "://",
// s is treated as a bare filesystem path (no existence check performed
// here — a missing root surfaces lazily as NotFoundError on first read).
func ReaderFromString(s string, httpClient *http.Client) (repository.Resolver, error) {
	if !strings.Contains(s, "://") {
		return filesystem.New(s), nil
	}

	u, err := url.Parse(s)
	if err != nil {
		return nil, &repository.ReaderUnrecognizedURLError{Value: s}
	}

	switch u.Scheme {
	case "file":
		return filesystem.New(u.Path), nil
	case "http", "https":
		return httpbackend.New(u, httpClient), nil
	default:
		return nil, &repository.ReaderUnrecognizedURLError{Value: s}
	}
}

// WriterFromString parses s into a repository.Writer. Schemes: "file"
// (local directory), "null" (sink; verify behavior encoded in the host —
// see nullbackend), "s3" (bucket split from prefix on the first "/" in
// the path). Any other scheme, or an unrecognized null:// host, fails.
func WriterFromString(ctx context.Context, s string) (repository.Writer, error) {
	if !strings.Contains(s, "://") {
		return filesystem.New(s), nil
	}

	u, err := url.Parse(s)
	if err != nil {
		return nil, &repository.WriterUnrecognizedURLError{Value: s}
	}

	switch u.Scheme {
	case "file":
		return filesystem.New(u.Path), nil
	case "null":
		behavior, err := nullbackend.ParseBehavior(u.Host)
		if err != nil {
			return nil, err
		}
		return nullbackend.New(behavior), nil
	case "s3":
		bucketAndPrefix := strings.TrimPrefix(u.Host+u.Path, "/")
		return s3backend.NewFromBucketURL(ctx, bucketAndPrefix)
	default:
		return nil, &repository.WriterUnrecognizedURLError{Value: s}
	}
}
