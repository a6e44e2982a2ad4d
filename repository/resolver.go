package repository

import (
	"context"
	"errors"
	"hash"
	"io"

	"github.com/dionysius/drepo/compression"
	"github.com/dionysius/drepo/digest"
)

// Resolver is the polymorphic capability a RootReader/ReleaseReader is
// built on: fetch a blob by repository-relative path, with optional
// end-to-end size/digest verification and optional transparent
// decompression. Concrete backends (filesystem, HTTP, S3) each implement
// this once; everything above it is transport-agnostic.
type Resolver interface {
	// GetPath fetches a blob by repository-relative path. Implementations
	// must return a *NotFoundError (wrapped or bare, checked with
	// errors.As) when the key is absent, and an *IoPathError for any other
	// backend failure.
	GetPath(ctx context.Context, path string) (io.ReadCloser, error)
}

// GetPathWithDigestVerification fetches path and wraps the resulting
// stream so that, at end-of-stream, it fails with IntegrityMismatchError
// if either the observed byte count doesn't match size or the final hash
// doesn't match expected. The check runs regardless of how the caller
// drains the stream — it is impossible to obtain bytes claimed "verified"
// without the terminal check having executed.
func GetPathWithDigestVerification(ctx context.Context, r Resolver, path string, size int64, expected digest.Digest) (io.ReadCloser, error) {
	rc, err := r.GetPath(ctx, path)
	if err != nil {
		return nil, err
	}
	return newVerifiedStream(rc, path, size, expected), nil
}

// GetPathDecodedWithDigestVerification is GetPathWithDigestVerification
// layered behind a compression.NewReader for format. Per Release-file
// semantics, the digest check covers the compressed bytes on the wire —
// decoding happens downstream of (not in place of) verification.
func GetPathDecodedWithDigestVerification(ctx context.Context, r Resolver, path string, format compression.Compression, size int64, expected digest.Digest) (io.ReadCloser, error) {
	verified, err := GetPathWithDigestVerification(ctx, r, path, size, expected)
	if err != nil {
		return nil, err
	}
	decoded, err := compression.NewReader(format, verified)
	if err != nil {
		_ = verified.Close()
		return nil, err
	}
	return &decodedStream{Reader: decoded, inner: verified}, nil
}

// decodedStream wires a decompressing reader's lifetime to its underlying
// verified stream, so closing it still runs (and enforces) the terminal
// integrity check on the compressed bytes, and closes the decompressor
// itself when it implements io.Closer.
type decodedStream struct {
	io.Reader
	inner io.ReadCloser
}

func (d *decodedStream) Close() error {
	var decodeErr error
	if closer, ok := d.Reader.(io.Closer); ok {
		decodeErr = closer.Close()
	}
	innerErr := d.inner.Close()
	if innerErr != nil {
		return innerErr
	}
	return decodeErr
}

// verifiedStream is the non-negotiable primitive of the read path: a
// decorator over a backend's byte stream that counts bytes, feeds an
// incremental hasher, and performs the terminal size/digest check exactly
// once, at the first EOF or explicit Close.
type verifiedStream struct {
	inner    io.ReadCloser
	path     string
	wantSize int64
	expected digest.Digest
	hasher   hash.Hash
	seen     int64
	checked  bool
	checkErr error
}

func newVerifiedStream(inner io.ReadCloser, path string, size int64, expected digest.Digest) *verifiedStream {
	return &verifiedStream{
		inner:    inner,
		path:     path,
		wantSize: size,
		expected: expected,
		hasher:   digest.NewHasher(expected.Algorithm),
	}
}

func (v *verifiedStream) Read(p []byte) (int, error) {
	n, err := v.inner.Read(p)
	if n > 0 {
		v.seen += int64(n)
		if v.hasher != nil {
			v.hasher.Write(p[:n])
		}
	}
	if err == io.EOF {
		if verifyErr := v.verify(); verifyErr != nil {
			return n, verifyErr
		}
	}
	return n, err
}

// verify performs the terminal check exactly once and memoizes the
// outcome, so a caller that calls Read repeatedly past EOF, or Close after
// EOF, observes a consistent result.
func (v *verifiedStream) verify() error {
	if v.checked {
		return v.checkErr
	}
	v.checked = true

	if v.wantSize >= 0 && v.seen != v.wantSize {
		v.checkErr = &IntegrityMismatchError{Path: v.path, SizeWant: v.wantSize, SizeGot: v.seen}
		return v.checkErr
	}
	if v.hasher != nil {
		actual := digest.FromHasher(v.expected.Algorithm, v.hasher)
		if !actual.Equal(v.expected) {
			v.checkErr = &IntegrityMismatchError{Path: v.path, Expected: v.expected, Actual: actual}
			return v.checkErr
		}
	}
	return nil
}

// Close runs the terminal verification (in case the caller never drained
// to EOF) and then closes the underlying stream.
func (v *verifiedStream) Close() error {
	verifyErr := v.verify()
	closeErr := v.inner.Close()
	if verifyErr != nil {
		return verifyErr
	}
	return closeErr
}

// drainReader reads r to exhaustion and discards the bytes, so a reader
// wrapping a shared transport connection (and the terminal digest check of
// any verifiedStream beneath it) completes even when a structured consumer
// (e.g. a control-paragraph iterator) stopped short of EOF on its own.
func drainReader(r io.Reader) error {
	_, err := io.Copy(io.Discard, r)
	if err != nil && !errors.Is(err, io.ErrClosedPipe) {
		return err
	}
	return nil
}
