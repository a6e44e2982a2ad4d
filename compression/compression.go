// Package compression provides the set of compression formats used by
// Debian repository index files, and streaming decoder/encoder adapters
// over the concrete codec libraries.
package compression

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"
)

// Compression identifies how an index file's bytes are encoded on the wire.
type Compression string

// Supported compression variants.
const (
	None  Compression = ""
	Gzip  Compression = "gz"
	Xz    Compression = "xz"
	Bzip2 Compression = "bz2"
	Lzma  Compression = "lzma"
	Zstd  Compression = "zst"
)

// DefaultPreferredOrder is the order repository clients prefer compression
// variants in when several are published for the same logical file, absent
// an explicit reader preference. Zstd sorts last: it is the newest format
// and not yet universally mirrored, so it's a fallback rather than a
// first choice.
var DefaultPreferredOrder = []Compression{Xz, Bzip2, Gzip, Lzma, None, Zstd}

// Suffix returns the filename suffix (including the leading dot, empty for
// None) conventionally used for this compression variant.
func (c Compression) Suffix() string {
	if c == None {
		return ""
	}
	return "." + string(c)
}

// DetectFromFilename infers a Compression from a filename's suffix. It
// returns None if no recognized suffix is present.
func DetectFromFilename(filename string) Compression {
	switch {
	case strings.HasSuffix(filename, ".gz"):
		return Gzip
	case strings.HasSuffix(filename, ".xz"):
		return Xz
	case strings.HasSuffix(filename, ".bz2"):
		return Bzip2
	case strings.HasSuffix(filename, ".lzma"):
		return Lzma
	case strings.HasSuffix(filename, ".zst"):
		return Zstd
	default:
		return None
	}
}

// TrimSuffix removes this compression variant's filename suffix, if present.
func (c Compression) TrimSuffix(filename string) string {
	return strings.TrimSuffix(filename, c.Suffix())
}

// UnrecognizedError is returned when a compression token (e.g. parsed from
// repository metadata or a CLI flag) doesn't match a known variant.
type UnrecognizedError struct {
	Value string
}

func (e *UnrecognizedError) Error() string {
	return fmt.Sprintf("unrecognized compression format: %q", e.Value)
}

// Parse maps a token (a bare compression name, not a filename) to a
// Compression value.
func Parse(value string) (Compression, error) {
	switch Compression(value) {
	case None, Gzip, Xz, Bzip2, Lzma, Zstd:
		return Compression(value), nil
	default:
		return "", &UnrecognizedError{Value: value}
	}
}

// NewReader wraps r with a decompressing reader for the given variant. For
// None it returns r unchanged. The returned io.Reader should be fully read
// (or explicitly closed, where it implements io.Closer) by the caller.
func NewReader(c Compression, r io.Reader) (io.Reader, error) {
	switch c {
	case None:
		return r, nil
	case Gzip:
		return gzip.NewReader(bufio.NewReader(r))
	case Bzip2:
		return bzip2.NewReader(r, nil)
	case Xz:
		return xz.NewReader(bufio.NewReader(r))
	case Lzma:
		return lzma.NewReader(bufio.NewReader(r))
	case Zstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return &zstdReadCloser{Decoder: dec}, nil
	default:
		return nil, &UnrecognizedError{Value: string(c)}
	}
}

// NewWriter wraps w with a compressing WriteCloser for the given variant.
// For None it returns a no-op-close wrapper around w.
func NewWriter(c Compression, w io.Writer) (io.WriteCloser, error) {
	switch c {
	case None:
		return nopWriteCloser{w}, nil
	case Gzip:
		return gzip.NewWriter(w), nil
	case Bzip2:
		return bzip2.NewWriter(w, nil)
	case Xz:
		return xz.NewWriter(w)
	case Lzma:
		return lzma.NewWriter(w)
	case Zstd:
		return zstd.NewWriter(w)
	default:
		return nil, &UnrecognizedError{Value: string(c)}
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// zstdReadCloser adapts klauspost/compress/zstd.Decoder (which exposes
// Close with no error return) to io.ReadCloser.
type zstdReadCloser struct{ *zstd.Decoder }

func (z *zstdReadCloser) Close() error {
	z.Decoder.Close()
	return nil
}
