package filesystem_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/dionysius/drepo/digest"
	"github.com/dionysius/drepo/repository"
	"github.com/dionysius/drepo/repository/filesystem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPathNotFound(t *testing.T) {
	root := filesystem.New(t.TempDir())
	_, err := root.GetPath(context.Background(), "missing")
	require.Error(t, err)
	var notFound *repository.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestWriteThenVerifyIntegrity(t *testing.T) {
	root := filesystem.New(t.TempDir())
	ctx := context.Background()

	content := []byte("hello world")
	_, err := root.WritePath(ctx, "pool/main/h/hello.txt", bytes.NewReader(content))
	require.NoError(t, err)

	h := digest.NewHasher(digest.SHA256)
	_, _ = h.Write(content)
	d := digest.FromHasher(digest.SHA256, h)

	verification, err := root.VerifyPath(ctx, "pool/main/h/hello.txt", &repository.ExpectedContent{Size: int64(len(content)), Digest: d})
	require.NoError(t, err)
	assert.Equal(t, repository.PathExistsIntegrityVerified, verification.State)

	rc, err := root.GetPath(ctx, "pool/main/h/hello.txt")
	require.NoError(t, err)
	defer func() { _ = rc.Close() }()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestVerifyPathMismatchAndMissing(t *testing.T) {
	root := filesystem.New(t.TempDir())
	ctx := context.Background()

	v, err := root.VerifyPath(ctx, "nope", nil)
	require.NoError(t, err)
	assert.Equal(t, repository.PathMissing, v.State)

	_, err = root.WritePath(ctx, "a/b.txt", bytes.NewReader([]byte("xyz")))
	require.NoError(t, err)

	v, err = root.VerifyPath(ctx, "a/b.txt", &repository.ExpectedContent{Size: 99, Digest: digest.Digest{Algorithm: digest.SHA256}})
	require.NoError(t, err)
	assert.Equal(t, repository.PathExistsIntegrityMismatch, v.State)
}

func TestWritePathIsAtomicOnFailure(t *testing.T) {
	dir := t.TempDir()
	root := filesystem.New(dir)
	ctx := context.Background()

	_, err := root.WritePath(ctx, "a.txt", bytes.NewReader([]byte("first")))
	require.NoError(t, err)

	_, err = root.WritePath(ctx, "a.txt", errReader{})
	require.Error(t, err)

	// Original content must survive a failed overwrite attempt.
	data, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }
