// Package filesystem backs the repository Resolver/Writer capabilities
// with a local directory tree — the "file://" and bare-path schemes.
package filesystem

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dionysius/drepo/digest"
	"github.com/dionysius/drepo/repository"
)

// Root is a repository.Resolver and repository.Writer rooted at a local
// directory. Repository-relative paths are joined onto Dir with
// filepath.Join and must not escape it.
type Root struct {
	Dir string
}

// New constructs a Root rooted at dir.
func New(dir string) *Root {
	return &Root{Dir: dir}
}

func (r *Root) resolve(path string) (string, error) {
	full := filepath.Join(r.Dir, filepath.FromSlash(path))
	rel, err := filepath.Rel(r.Dir, full)
	if err != nil || rel == ".." || len(rel) >= 2 && rel[:2] == ".." {
		return "", fmt.Errorf("path escapes repository root: %s", path)
	}
	return full, nil
}

// GetPath implements repository.Resolver.
func (r *Root) GetPath(_ context.Context, path string) (io.ReadCloser, error) {
	full, err := r.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &repository.NotFoundError{Path: path}
		}
		return nil, &repository.IoPathError{Path: path, Err: err}
	}
	return f, nil
}

// VerifyPath implements repository.Writer. It always performs full
// content verification when expected is supplied — a local disk is cheap
// to hash — so it reports ExistsIntegrityVerified whenever both the size
// and the digest of the existing file match.
func (r *Root) VerifyPath(_ context.Context, path string, expected *repository.ExpectedContent) (repository.PathVerification, error) {
	full, err := r.resolve(path)
	if err != nil {
		return repository.PathVerification{}, err
	}

	info, err := os.Stat(full)
	if errors.Is(err, os.ErrNotExist) {
		return repository.PathVerification{Path: path, State: repository.PathMissing}, nil
	}
	if err != nil {
		return repository.PathVerification{}, &repository.IoPathError{Path: path, Err: err}
	}

	if expected == nil {
		return repository.PathVerification{Path: path, State: repository.PathExistsNoIntegrityCheck, Size: info.Size()}, nil
	}

	if info.Size() != expected.Size {
		return repository.PathVerification{Path: path, State: repository.PathExistsIntegrityMismatch, Size: info.Size()}, nil
	}

	f, err := os.Open(full)
	if err != nil {
		return repository.PathVerification{}, &repository.IoPathError{Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()

	hasher := digest.NewHasher(expected.Digest.Algorithm)
	if hasher == nil {
		hasher = sha256.New()
	}
	if _, err := io.Copy(hasher, f); err != nil {
		return repository.PathVerification{}, &repository.IoPathError{Path: path, Err: err}
	}
	actual := digest.FromHasher(expected.Digest.Algorithm, hasher)

	if !actual.Equal(expected.Digest) {
		return repository.PathVerification{Path: path, State: repository.PathExistsIntegrityMismatch, Size: info.Size()}, nil
	}

	return repository.PathVerification{Path: path, State: repository.PathExistsIntegrityVerified, Size: info.Size()}, nil
}

// WritePath implements repository.Writer. It writes to a sibling temp file
// and renames into place, so a write failure never leaves a partial file
// observable at path.
func (r *Root) WritePath(_ context.Context, path string, src io.Reader) (repository.Write, error) {
	full, err := r.resolve(path)
	if err != nil {
		return repository.Write{}, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return repository.Write{}, &repository.IoPathError{Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".tmp-*")
	if err != nil {
		return repository.Write{}, &repository.IoPathError{Path: path, Err: err}
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	n, err := io.Copy(tmp, src)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return repository.Write{}, &repository.IoPathError{Path: path, Err: err}
	}

	if err := os.Rename(tmpName, full); err != nil {
		return repository.Write{}, &repository.IoPathError{Path: path, Err: err}
	}

	return repository.Write{Path: path, BytesWritten: n}, nil
}

// ReadFile is a convenience for small, whole-file reads (e.g. InRelease)
// that avoids the repository.Resolver indirection when the caller already
// knows it wants the entire contents in memory.
func (r *Root) ReadFile(path string) ([]byte, error) {
	full, err := r.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &repository.NotFoundError{Path: path}
	}
	if err != nil {
		return nil, &repository.IoPathError{Path: path, Err: err}
	}
	return data, nil
}
