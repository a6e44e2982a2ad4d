package repository_test

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dionysius/drepo/compression"
	"github.com/dionysius/drepo/digest"
	"github.com/dionysius/drepo/repository"
)

type fixedResolver struct{ data []byte }

func (f *fixedResolver) GetPath(_ context.Context, _ string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

func digestOf(content []byte) digest.Digest {
	sum := sha256.Sum256(content)
	d, _ := digest.New(digest.SHA256, hex.EncodeToString(sum[:]))
	return d
}

func TestGetPathWithDigestVerificationSucceedsOnMatch(t *testing.T) {
	content := []byte("hello, repository")
	resolver := &fixedResolver{data: content}

	rc, err := repository.GetPathWithDigestVerification(context.Background(), resolver, "p", int64(len(content)), digestOf(content))
	require.NoError(t, err)

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, content, got)
	require.NoError(t, rc.Close())
}

func TestGetPathWithDigestVerificationFailsOnMutatedByte(t *testing.T) {
	content := []byte("hello, repository")
	expected := digestOf(content)

	mutated := append([]byte(nil), content...)
	mutated[0] ^= 0xff
	resolver := &fixedResolver{data: mutated}

	rc, err := repository.GetPathWithDigestVerification(context.Background(), resolver, "p", int64(len(content)), expected)
	require.NoError(t, err)

	_, err = io.ReadAll(rc)
	require.Error(t, err)
	var mismatch *repository.IntegrityMismatchError
	require.ErrorAs(t, err, &mismatch)
}

func TestGetPathWithDigestVerificationFailsOnSizeMismatch(t *testing.T) {
	content := []byte("hello, repository")
	resolver := &fixedResolver{data: content}

	// Claim a size longer than what the backend actually serves.
	rc, err := repository.GetPathWithDigestVerification(context.Background(), resolver, "p", int64(len(content))+1, digestOf(content))
	require.NoError(t, err)

	_, err = io.ReadAll(rc)
	require.Error(t, err)
	var mismatch *repository.IntegrityMismatchError
	require.ErrorAs(t, err, &mismatch)
}

func TestVerificationResultIsMemoizedAcrossReadAndClose(t *testing.T) {
	content := []byte("hello, repository")
	mutated := append([]byte(nil), content...)
	mutated[0] ^= 0xff
	resolver := &fixedResolver{data: mutated}

	rc, err := repository.GetPathWithDigestVerification(context.Background(), resolver, "p", int64(len(content)), digestOf(content))
	require.NoError(t, err)

	_, readErr := io.ReadAll(rc)
	closeErr := rc.Close()

	require.Error(t, readErr)
	require.Error(t, closeErr)
	assert.Equal(t, readErr.Error(), closeErr.Error())
}

func TestGetPathDecodedWithDigestVerificationLayersDecompression(t *testing.T) {
	plain := []byte("Package: example\n\n")
	resolver := &fixedGzipResolver{t: t, plain: plain}

	compressed, size, d := resolver.fixture()
	fixed := &fixedResolver{data: compressed}

	rc, err := repository.GetPathDecodedWithDigestVerification(context.Background(), fixed, "p", compression.Gzip, size, d)
	require.NoError(t, err)
	defer func() { _ = rc.Close() }()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, plain, got)
}

type fixedGzipResolver struct {
	t     *testing.T
	plain []byte
}

func (f *fixedGzipResolver) fixture() (compressed []byte, size int64, d digest.Digest) {
	f.t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write(f.plain)
	require.NoError(f.t, err)
	require.NoError(f.t, gz.Close())
	return buf.Bytes(), int64(buf.Len()), digestOf(buf.Bytes())
}
