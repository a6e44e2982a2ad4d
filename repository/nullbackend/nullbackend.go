// Package nullbackend implements the null:// sink RepositoryWriter: a
// destination that discards all bytes written to it, with its canned
// VerifyPath response encoded in the URL host.
package nullbackend

import (
	"context"
	"io"

	"github.com/dionysius/drepo/repository"
)

// Behavior names the canned PathState a Sink's VerifyPath always returns.
type Behavior string

// Recognized null:// host tokens.
const (
	Missing                 Behavior = "missing"
	ExistsNoIntegrityCheck  Behavior = "exists-no-integrity-check"
	ExistsIntegrityVerified Behavior = "exists-integrity-verified"
	ExistsIntegrityMismatch Behavior = "exists-integrity-mismatch"
)

func (b Behavior) state() repository.PathState {
	switch b {
	case Missing:
		return repository.PathMissing
	case ExistsNoIntegrityCheck:
		return repository.PathExistsNoIntegrityCheck
	case ExistsIntegrityVerified:
		return repository.PathExistsIntegrityVerified
	case ExistsIntegrityMismatch:
		return repository.PathExistsIntegrityMismatch
	default:
		return repository.PathMissing
	}
}

// ParseBehavior maps a null:// URL's host component to a Behavior.
func ParseBehavior(host string) (Behavior, error) {
	switch Behavior(host) {
	case Missing, ExistsNoIntegrityCheck, ExistsIntegrityVerified, ExistsIntegrityMismatch:
		return Behavior(host), nil
	default:
		return "", &repository.SinkWriterVerifyBehaviorUnknownError{Host: host}
	}
}

// Sink is a repository.Writer that discards everything written to it and
// always reports the configured Behavior from VerifyPath. It exists
// primarily for testing copy_from's branches without a real destination.
type Sink struct {
	Behavior Behavior
}

// New constructs a Sink with the given canned behavior.
func New(behavior Behavior) *Sink {
	return &Sink{Behavior: behavior}
}

// VerifyPath implements repository.Writer.
func (s *Sink) VerifyPath(_ context.Context, path string, expected *repository.ExpectedContent) (repository.PathVerification, error) {
	v := repository.PathVerification{Path: path, State: s.Behavior.state()}
	if v.State == repository.PathExistsIntegrityVerified && expected != nil {
		v.Size = expected.Size
	}
	return v, nil
}

// WritePath implements repository.Writer by discarding r.
func (s *Sink) WritePath(_ context.Context, path string, r io.Reader) (repository.Write, error) {
	n, err := io.Copy(io.Discard, r)
	if err != nil {
		return repository.Write{}, &repository.IoPathError{Path: path, Err: err}
	}
	return repository.Write{Path: path, BytesWritten: n}, nil
}
