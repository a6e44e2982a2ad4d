package repository

import (
	"fmt"

	"github.com/dionysius/drepo/digest"
)

// IoPathError wraps a transport-level failure with the repository-relative
// path that was being accessed when it occurred. Transport timeouts are
// surfaced through this type without special-casing — the core doesn't
// define its own timeout policy.
type IoPathError struct {
	Path string
	Err  error
}

func (e *IoPathError) Error() string {
	return fmt.Sprintf("repository I/O error on path %s: %v", e.Path, e.Err)
}

func (e *IoPathError) Unwrap() error { return e.Err }

// NotFoundError reports that a path does not exist in a DataResolver's
// backing store. FetchInReleaseOrRelease falls back to the plain Release
// file on this kind, and on no other.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s", e.Path)
}

// IntegrityMismatchError reports that a verified stream's observed size or
// digest didn't match what was expected, discovered only at end-of-stream.
type IntegrityMismatchError struct {
	Path     string
	Expected digest.Digest
	Actual   digest.Digest
	SizeWant int64
	SizeGot  int64
}

func (e *IntegrityMismatchError) Error() string {
	if e.Expected.Algorithm != "" && !e.Expected.Equal(e.Actual) {
		return fmt.Sprintf("integrity mismatch for %s: expected %s, got %s", e.Path, e.Expected, e.Actual)
	}
	return fmt.Sprintf("integrity mismatch for %s: expected %d bytes, got %d", e.Path, e.SizeWant, e.SizeGot)
}

// ReaderUnrecognizedURLError reports a URL/path string that ReaderFromString
// couldn't map to any known backend scheme.
type ReaderUnrecognizedURLError struct {
	Value string
}

func (e *ReaderUnrecognizedURLError) Error() string {
	return fmt.Sprintf("do not know how to construct repository reader from URL: %s", e.Value)
}

// WriterUnrecognizedURLError is the writer-side analogue of
// ReaderUnrecognizedURLError.
type WriterUnrecognizedURLError struct {
	Value string
}

func (e *WriterUnrecognizedURLError) Error() string {
	return fmt.Sprintf("do not know how to construct repository writer from URL: %s", e.Value)
}

// SinkWriterVerifyBehaviorUnknownError reports an unrecognized null://
// host, which is supposed to encode the sink's canned verify_path
// response.
type SinkWriterVerifyBehaviorUnknownError struct {
	Host string
}

func (e *SinkWriterVerifyBehaviorUnknownError) Error() string {
	return fmt.Sprintf("unknown verify behavior for null:// destination: %s", e.Host)
}

// EntryKind names which classified-entry family an EntryNotFoundError
// concerns.
type EntryKind string

// The three families the preferred-compression collapse operates over.
const (
	EntryKindPackages EntryKind = "packages"
	EntryKindSources  EntryKind = "sources"
	EntryKindContents EntryKind = "contents"
)

// EntryNotFoundError is raised the first time a caller asks for a
// (component, architecture) combination that the preferred-compression
// collapse could not resolve under any compression — neither the reader's
// preference nor the default fallback order.
type EntryNotFoundError struct {
	Kind EntryKind
	Key  string
}

func (e *EntryNotFoundError) Error() string {
	switch e.Kind {
	case EntryKindPackages:
		return "could not find packages indices entry in Release file: " + e.Key
	case EntryKindSources:
		return "could not find Sources indices entry in Release file: " + e.Key
	case EntryKindContents:
		return "could not find Contents indices entry in Release file: " + e.Key
	default:
		return "could not find indices entry in Release file: " + e.Key
	}
}

// CouldNotDeterminePackageDigestError reports a Packages/Sources paragraph
// whose checksum fields, under the negotiated checksum flavor's preferred
// order, yielded no usable digest.
type CouldNotDeterminePackageDigestError struct {
	Filename string
}

func (e *CouldNotDeterminePackageDigestError) Error() string {
	return "could not determine content digest of binary package: " + e.Filename
}

// ControlFieldIntParseError reports a control field that was expected to
// parse as an integer (e.g. Size) and didn't.
type ControlFieldIntParseError struct {
	Field string
	Value string
	Err   error
}

func (e *ControlFieldIntParseError) Error() string {
	return fmt.Sprintf("control field %s (%q) can not be parsed as an integer: %v", e.Field, e.Value, e.Err)
}

func (e *ControlFieldIntParseError) Unwrap() error { return e.Err }

// NoSignaturesError reports an InRelease file with no PGP signatures at
// all, raised by the caller's verifier rather than the control-file
// parser itself.
type NoSignaturesError struct{}

func (e *NoSignaturesError) Error() string { return "no PGP signatures found" }

// NoSignaturesByKeyError reports an InRelease file signed, but not by any
// of the keys the caller required.
type NoSignaturesByKeyError struct{}

func (e *NoSignaturesByKeyError) Error() string {
	return "no PGP signatures found from the specified key"
}
