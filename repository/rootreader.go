package repository

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/dionysius/drepo/release"
)

// RootReader is bound to a repository root and opens a ReleaseReader per
// distribution, on top of a plain Resolver. It owns the one bit of
// signature policy a repository root needs: whether (and how) an
// InRelease envelope is verified before its contents are trusted.
type RootReader struct {
	Base     string
	Resolver Resolver
	Verifier *Verifier // nil means: fetch_inrelease is unavailable, use fetch_release instead
}

// NewRootReader binds a Resolver to a repository root URL/path.
func NewRootReader(base string, resolver Resolver, verifier *Verifier) *RootReader {
	return &RootReader{Base: base, Resolver: resolver, Verifier: verifier}
}

// URL returns the root's base URL or path, as supplied at construction.
func (r *RootReader) URL() string { return r.Base }

// FetchRelease reads path as a plain (unsigned) Release manifest.
func (r *RootReader) FetchRelease(ctx context.Context, path string) (*release.File, error) {
	raw, err := r.readAll(ctx, path)
	if err != nil {
		return nil, err
	}
	return release.Parse(path, raw)
}

// FetchInRelease reads path as an InRelease manifest: a Release file
// wrapped in an OpenPGP cleartext signature. The signature envelope is
// verified (or stripped, per r.Verifier's policy) before the cleartext
// body is handed to release.Parse.
func (r *RootReader) FetchInRelease(ctx context.Context, path string) (*release.File, error) {
	raw, err := r.readAll(ctx, path)
	if err != nil {
		return nil, err
	}

	if r.Verifier == nil {
		return nil, errors.New("repository: no verifier configured for InRelease")
	}

	rc, _, err := r.Verifier.VerifyAndClear(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	cleartext, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}

	return release.Parse(path, cleartext)
}

// FetchInReleaseOrRelease tries InRelease first; only when that fails with
// a NotFoundError does it fall back to the plain Release file. Any other
// error (malformed signature, transport failure) is surfaced immediately —
// some mirrors serve detached signatures only, but a non-NotFound failure
// on InRelease is never silently papered over by trusting the unsigned
// fallback. A nil Verifier means InRelease is unavailable entirely, per
// RootReader's doc - go straight to Release rather than trying and failing.
func (r *RootReader) FetchInReleaseOrRelease(ctx context.Context, inReleasePath, releasePath string) (*release.File, error) {
	if r.Verifier == nil {
		return r.FetchRelease(ctx, releasePath)
	}

	f, err := r.FetchInRelease(ctx, inReleasePath)
	if err == nil {
		return f, nil
	}

	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		return nil, err
	}

	return r.FetchRelease(ctx, releasePath)
}

// ReleaseReader computes dists/{distribution} (surrounding slashes
// stripped), fetches its InRelease or Release manifest, and returns a
// ReleaseReader bound to that distribution path.
func (r *RootReader) ReleaseReader(ctx context.Context, distribution string) (*ReleaseReader, error) {
	distribution = strings.Trim(distribution, "/")
	dir := "dists/" + distribution

	f, err := r.FetchInReleaseOrRelease(ctx, dir+"/InRelease", dir+"/Release")
	if err != nil {
		return nil, err
	}

	return NewReleaseReader(r.Resolver, dir, f), nil
}

// FetchBinaryPackageGeneric executes a BinaryPackageFetch against
// get_path_with_digest_verification, returning a verified stream of the
// pool artifact's bytes.
func (r *RootReader) FetchBinaryPackageGeneric(ctx context.Context, fetch BinaryPackageFetch) (io.ReadCloser, error) {
	return GetPathWithDigestVerification(ctx, r.Resolver, fetch.Path, fetch.Size, fetch.Digest)
}

// FetchSourcePackageGeneric is the Sources-file analogue of
// FetchBinaryPackageGeneric.
func (r *RootReader) FetchSourcePackageGeneric(ctx context.Context, fetch SourcePackageFetch) (io.ReadCloser, error) {
	return GetPathWithDigestVerification(ctx, r.Resolver, fetch.Path, fetch.Size, fetch.Digest)
}

// FetchBinaryPackageBytes reads an entire binary package fetch into
// memory, for callers that want in-memory access to a .deb's bytes (e.g.
// to hand to an external ar/deb unpacker) rather than building one here.
func (r *RootReader) FetchBinaryPackageBytes(ctx context.Context, fetch BinaryPackageFetch) ([]byte, error) {
	stream, err := r.FetchBinaryPackageGeneric(ctx, fetch)
	if err != nil {
		return nil, err
	}
	defer func() { _ = stream.Close() }()
	return io.ReadAll(stream)
}

func (r *RootReader) readAll(ctx context.Context, path string) ([]byte, error) {
	rc, err := r.Resolver.GetPath(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}
