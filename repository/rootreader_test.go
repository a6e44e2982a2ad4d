package repository_test

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/aptly-dev/aptly/pgp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dionysius/drepo/digest"
	"github.com/dionysius/drepo/repository"
	"github.com/dionysius/drepo/repository/filesystem"
)

// noopVerifier is a pgp.Verifier stub that treats everything as unsigned,
// so tests exercise RootReader's fetch logic without a real keyring.
type noopVerifier struct{}

func (noopVerifier) IsClearSigned(r io.Reader) (bool, error)          { return false, nil }
func (noopVerifier) ExtractClearsigned(r io.Reader) (*os.File, error) { return nil, nil }
func (noopVerifier) VerifyDetachedSignature(signature, text io.Reader, showKeyInfo bool) error {
	return nil
}
func (noopVerifier) VerifyClearsigned(clearsigned io.Reader, showKeyTip bool) (*pgp.KeyInfo, error) {
	return nil, nil
}
func (noopVerifier) InitKeyring(bool) error    { return nil }
func (noopVerifier) AddKeyring(keyring string) {}

func testVerifier() *repository.Verifier {
	return &repository.Verifier{Verifier: noopVerifier{}, AcceptUnsigned: true, IgnoreSignatures: true}
}

const minimalRelease = `Origin: Test
Label: Test
Suite: test
Codename: test
Components: main
Architectures: amd64
Date: Mon, 01 Jan 2024 00:00:00 UTC
SHA256:
 ` + sha256OfEmptyXz + ` 0 main/binary-amd64/Packages.xz
`

// sha256OfEmptyXz is the digest of a zero-byte file, used as a stand-in
// entry so minimalRelease parses without needing a real xz fixture.
const sha256OfEmptyXz = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

func writeFile(t *testing.T, root *filesystem.Root, path string, content []byte) {
	t.Helper()
	_, err := root.WritePath(context.Background(), path, bytesReader(content))
	require.NoError(t, err)
}

func bytesReader(b []byte) io.Reader { return &byteReader{data: b} }

type byteReader struct {
	data []byte
	pos  int
}

func (r *byteReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}

func TestFetchReleaseParsesPlainManifest(t *testing.T) {
	dir := t.TempDir()
	root := filesystem.New(dir)
	writeFile(t, root, "dists/test/Release", []byte(minimalRelease))

	rr := repository.NewRootReader(dir, root, nil)
	f, err := rr.FetchRelease(context.Background(), "dists/test/Release")
	require.NoError(t, err)
	assert.Equal(t, "test", f.Suite)
	assert.Equal(t, []string{"main"}, f.Components)
}

func TestFetchInReleaseOrReleaseFallsBackOnNotFound(t *testing.T) {
	dir := t.TempDir()
	root := filesystem.New(dir)
	writeFile(t, root, "dists/test/Release", []byte(minimalRelease))

	rr := repository.NewRootReader(dir, root, testVerifier())
	f, err := rr.FetchInReleaseOrRelease(context.Background(), "dists/test/InRelease", "dists/test/Release")
	require.NoError(t, err)
	assert.Equal(t, "test", f.Codename)
}

func TestFetchInReleaseWithoutVerifierFails(t *testing.T) {
	dir := t.TempDir()
	root := filesystem.New(dir)
	writeFile(t, root, "dists/test/InRelease", []byte(minimalRelease))

	rr := repository.NewRootReader(dir, root, nil)
	_, err := rr.FetchInRelease(context.Background(), "dists/test/InRelease")
	assert.Error(t, err)
}

func TestReleaseReaderBindsDistributionPath(t *testing.T) {
	dir := t.TempDir()
	root := filesystem.New(dir)
	writeFile(t, root, "dists/test/Release", []byte(minimalRelease))

	rr := repository.NewRootReader(dir, root, nil)
	reader, err := rr.ReleaseReader(context.Background(), "/test/")
	require.NoError(t, err)

	entry, err := reader.PackagesEntry("main", "amd64", false)
	require.NoError(t, err)
	assert.Equal(t, "main/binary-amd64/Packages.xz", entry.Path)
	assert.True(t, entry.Digest.Algorithm == digest.SHA256)
}
