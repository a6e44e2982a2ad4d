package httpbackend_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/dionysius/drepo/repository"
	"github.com/dionysius/drepo/repository/httpbackend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPathSuccessAndNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/dists/stable/InRelease" {
			_, _ = w.Write([]byte("release-bytes"))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	base, err := url.Parse(srv.URL)
	require.NoError(t, err)
	root := httpbackend.New(base, srv.Client())

	rc, err := root.GetPath(context.Background(), "dists/stable/InRelease")
	require.NoError(t, err)
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "release-bytes", string(data))

	_, err = root.GetPath(context.Background(), "missing")
	require.Error(t, err)
	var notFound *repository.NotFoundError
	require.ErrorAs(t, err, &notFound)
}
