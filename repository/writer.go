package repository

import (
	"context"
	"io"

	"github.com/dionysius/drepo/digest"
)

// PathState classifies what verify_path observed about a destination
// path's existing content.
type PathState int

// Recognized path verification states. ExistsIntegrityVerified is only
// ever legitimate when both size and digest were supplied to verify_path
// AND the backend actually checked them — a writer that doesn't hash
// existing content must report ExistsNoIntegrityCheck instead, never
// falsely claim verification.
const (
	PathMissing PathState = iota
	PathExistsNoIntegrityCheck
	PathExistsIntegrityVerified
	PathExistsIntegrityMismatch
)

// PathVerification is the outcome of Writer.VerifyPath.
type PathVerification struct {
	Path  string
	State PathState
	Size  int64
}

// ExpectedContent is the (size, digest) pair a caller supplies to
// VerifyPath/CopyFrom when it wants integrity-checked verification,
// rather than mere existence.
type ExpectedContent struct {
	Size   int64
	Digest digest.Digest
}

// Write is the outcome of Writer.WritePath.
type Write struct {
	Path         string
	BytesWritten int64
}

// Writer is the write-side capability a repository backend implements.
// Writing is expected to be atomic from the caller's perspective: a
// partial write must not be observable at Path if WritePath returns an
// error. A backend unable to guarantee this must document the exception.
type Writer interface {
	// VerifyPath reports what currently exists at path, optionally
	// checked against expected. expected == nil means "just tell me
	// existence," not "treat content as unverified."
	VerifyPath(ctx context.Context, path string, expected *ExpectedContent) (PathVerification, error)

	// WritePath writes the entirety of r to path.
	WritePath(ctx context.Context, path string, r io.Reader) (Write, error)
}

// CopyFrom performs the verified copy between a reader and a writer that
// is the core of mirroring a repository: verify the destination first: if
// it already satisfies expected, short-circuit with zero writes (the
// cache-hit fast path); otherwise fetch sourcePath from resolver (verified
// against expected when given) and stream it into destPath.
//
// Verification always precedes any write; the no-op branch performs zero
// writes; onProgress, when non-nil, is invoked synchronously and in causal
// order for this one copy operation.
func CopyFrom(ctx context.Context, resolver Resolver, sourcePath string, expected *ExpectedContent, writer Writer, destPath string, onProgress ProgressFunc) (Write, error) {
	emit := func(e PublishEvent) {
		if onProgress != nil {
			onProgress(e)
		}
	}

	emit(PublishEvent{Kind: EventVerifyingDestinationPath, Path: destPath})

	verification, err := writer.VerifyPath(ctx, destPath, expected)
	if err != nil {
		return Write{}, err
	}

	if verification.State == PathExistsIntegrityVerified {
		size := verification.Size
		if expected != nil {
			size = expected.Size
		}
		emit(PublishEvent{Kind: EventPathCopyNoop, Path: destPath})
		return Write{Path: destPath, BytesWritten: size}, nil
	}

	emit(PublishEvent{Kind: EventCopyingPath, Path: sourcePath, Dest: destPath})

	var stream io.ReadCloser
	if expected != nil {
		stream, err = GetPathWithDigestVerification(ctx, resolver, sourcePath, expected.Size, expected.Digest)
	} else {
		stream, err = resolver.GetPath(ctx, sourcePath)
	}
	if err != nil {
		return Write{}, err
	}
	defer func() { _ = stream.Close() }()

	result, err := writer.WritePath(ctx, destPath, stream)
	if err != nil {
		return Write{}, err
	}

	emit(PublishEvent{Kind: EventPathCopied, Path: destPath, Size: result.BytesWritten})

	return result, nil
}

// ProxyWriter decorates an inner Writer, letting callers override
// individual operations while falling back to the wrapped writer for
// anything not overridden. A dry run is a ProxyWriter whose WritePath
// override counts bytes without ever touching the real destination; no
// command of this module exposes a dry-run flag.
type ProxyWriter struct {
	Inner Writer

	VerifyPathFunc func(ctx context.Context, path string, expected *ExpectedContent) (PathVerification, error)
	WritePathFunc  func(ctx context.Context, path string, r io.Reader) (Write, error)
}

// VerifyPath implements Writer.
func (p *ProxyWriter) VerifyPath(ctx context.Context, path string, expected *ExpectedContent) (PathVerification, error) {
	if p.VerifyPathFunc != nil {
		return p.VerifyPathFunc(ctx, path, expected)
	}
	return p.Inner.VerifyPath(ctx, path, expected)
}

// WritePath implements Writer.
func (p *ProxyWriter) WritePath(ctx context.Context, path string, r io.Reader) (Write, error) {
	if p.WritePathFunc != nil {
		return p.WritePathFunc(ctx, path, r)
	}
	return p.Inner.WritePath(ctx, path, r)
}
