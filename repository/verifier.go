package repository

import (
	"errors"
	"io"

	"github.com/aptly-dev/aptly/pgp"
)

// Sentinel signature errors, surfaced by the caller's verifier rather than
// by the control-file parser itself — per spec, NoSignatures/
// NoSignaturesByKey describe policy decisions a verifier makes, not a
// parse failure.
var (
	ErrSignatureVerificationFailed = errors.New("signature verification failed")
	ErrMissingSignature            = errors.New("file is not signed")
)

// Verifier wraps aptly's black-box PGP verifier with the InRelease
// acceptance policy (accept unsigned manifests, or skip verification
// entirely) a caller configures per repository.
type Verifier struct {
	pgp.Verifier
	AcceptUnsigned   bool
	IgnoreSignatures bool
}

// VerifyAndClear verifies an (optionally) cleartext-signed file and
// returns a reader over its cleartext body along with the signing keys
// that were confirmed, if any.
//
//   - Not clearsigned and AcceptUnsigned is false: ErrMissingSignature.
//   - IgnoreSignatures is true: cleartext is extracted without
//     verification.
//   - Otherwise, a clearsigned file is verified; failure surfaces as
//     ErrSignatureVerificationFailed.
func (v *Verifier) VerifyAndClear(file io.ReadSeeker) (io.ReadCloser, []pgp.Key, error) {
	isClearSigned, err := v.IsClearSigned(file)
	if err != nil {
		return nil, nil, err
	}
	_, _ = file.Seek(0, 0)

	if !isClearSigned && !v.AcceptUnsigned {
		return nil, nil, ErrMissingSignature
	}

	if v.IgnoreSignatures {
		if isClearSigned {
			rc, err := v.ExtractClearsigned(file)
			return rc, nil, err
		}
		return io.NopCloser(file), nil, nil
	}

	if isClearSigned {
		keyInfo, err := v.VerifyClearsigned(file, false)
		if err != nil {
			return nil, nil, ErrSignatureVerificationFailed
		}
		_, _ = file.Seek(0, 0)

		rc, err := v.ExtractClearsigned(file)
		return rc, keyInfo.GoodKeys, err
	}

	return io.NopCloser(file), nil, nil
}
