// Package digest provides content digests (checksums) used to verify
// repository artifacts against the hashes published in Debian repository
// metadata.
package digest

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"hash"
)

// Algorithm identifies a supported checksum flavor.
type Algorithm string

// Supported checksum algorithms, in the order Debian repository clients
// should prefer them when more than one is published for the same file.
const (
	SHA256 Algorithm = "sha256"
	SHA1   Algorithm = "sha1"
	MD5    Algorithm = "md5"
)

// PreferredOrder lists the supported algorithms from strongest to weakest.
// ReleaseFile checksum negotiation walks this list and uses the first
// algorithm that is actually present.
var PreferredOrder = []Algorithm{SHA256, SHA1, MD5}

// BadHexError is returned when a digest's hex-encoded value fails to decode.
type BadHexError struct {
	Algorithm Algorithm
	Value     string
	Err       error
}

func (e *BadHexError) Error() string {
	return fmt.Sprintf("invalid hex string (%q) for %s digest: %v", e.Value, e.Algorithm, e.Err)
}

func (e *BadHexError) Unwrap() error { return e.Err }

// Digest is a single named checksum value: an algorithm and its raw bytes.
type Digest struct {
	Algorithm Algorithm
	Value     []byte
}

// New constructs a Digest from a hex-encoded checksum string, validating
// that it decodes and has the length expected for the given algorithm.
func New(algorithm Algorithm, hexValue string) (Digest, error) {
	raw, err := hex.DecodeString(hexValue)
	if err != nil {
		return Digest{}, &BadHexError{Algorithm: algorithm, Value: hexValue, Err: err}
	}
	if want := Size(algorithm); want > 0 && len(raw) != want {
		return Digest{}, &BadHexError{
			Algorithm: algorithm,
			Value:     hexValue,
			Err:       fmt.Errorf("expected %d bytes, got %d", want, len(raw)),
		}
	}
	return Digest{Algorithm: algorithm, Value: raw}, nil
}

// Size returns the expected raw byte length for an algorithm, or 0 if the
// algorithm is unrecognized.
func Size(algorithm Algorithm) int {
	switch algorithm {
	case SHA256:
		return sha256.Size
	case SHA1:
		return sha1.Size
	case MD5:
		return md5.Size
	default:
		return 0
	}
}

// Hex returns the lowercase hex encoding of the digest value.
func (d Digest) Hex() string {
	return hex.EncodeToString(d.Value)
}

// String implements fmt.Stringer.
func (d Digest) String() string {
	return fmt.Sprintf("%s:%s", d.Algorithm, d.Hex())
}

// Equal reports whether two digests have the same algorithm and value,
// comparing the value in constant time.
func (d Digest) Equal(other Digest) bool {
	if d.Algorithm != other.Algorithm {
		return false
	}
	return subtle.ConstantTimeCompare(d.Value, other.Value) == 1
}

// IsZero reports whether d is the zero Digest.
func (d Digest) IsZero() bool {
	return d.Algorithm == "" && len(d.Value) == 0
}

// NewHasher returns a fresh hash.Hash for the given algorithm, or nil if the
// algorithm is unrecognized.
func NewHasher(algorithm Algorithm) hash.Hash {
	switch algorithm {
	case SHA256:
		return sha256.New()
	case SHA1:
		return sha1.New()
	case MD5:
		return md5.New()
	default:
		return nil
	}
}

// FromHasher builds a Digest from the current sum of a running hash.Hash.
func FromHasher(algorithm Algorithm, h hash.Hash) Digest {
	return Digest{Algorithm: algorithm, Value: h.Sum(nil)}
}

// Preferred picks the strongest algorithm present in a set of candidates,
// per PreferredOrder. It reports false if none of the candidates are
// recognized algorithms.
func Preferred(available map[Algorithm]string) (Algorithm, string, bool) {
	for _, algo := range PreferredOrder {
		if v, ok := available[algo]; ok {
			return algo, v, true
		}
	}
	return "", "", false
}
