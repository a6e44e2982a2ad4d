// Package release models a parsed Debian repository Release file: the
// top-level manifest that names every index file in a distribution along
// with its size and digest, and classifies those index entries by the
// canonical Debian path grammar (component/architecture/kind/compression).
package release

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dionysius/drepo/control"
	"github.com/dionysius/drepo/digest"
)

// dateFormats mirrors the tolerant Release "Date" parsing used across real
// mirrors: the spec (RFC 1123 with a named or numeric zone) first, then the
// handful of non-conformant forms seen in the wild.
var dateFormats = []string{
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon Jan _2 15:04:05 2006",
	"Mon Jan _2 15:04:05 2006 MST",
	time.RFC1123Z,
	time.RFC1123,
}

// ChecksumEntry is a single row of a Release file's checksum table: a
// (digest, size, path) triple.
type ChecksumEntry struct {
	Digest digest.Digest
	Size   int64
	Path   string
}

// File is the parsed, immutable representation of a Release or InRelease
// manifest.
type File struct {
	Origin        string
	Label         string
	Suite         string
	Codename      string
	Description   string
	Components    []string
	Architectures []string
	Date          time.Time
	ValidUntil    *time.Time
	AcquireByHash bool

	// Checksums holds one table per algorithm that was present in the file.
	// Per the format's invariant, every algorithm present enumerates the
	// same set of paths; only the digest and size columns may legitimately
	// differ in strength, never in membership.
	Checksums map[digest.Algorithm][]ChecksumEntry
}

// PathWithSpacesError reports a checksum table row whose path field
// contained internal whitespace, which the format forbids.
type PathWithSpacesError struct {
	Line string
}

func (e *PathWithSpacesError) Error() string {
	return fmt.Sprintf("index entry path unexpectedly has spaces: %q", e.Line)
}

// MissingFieldError reports a checksum table row missing its digest or size
// column.
type MissingFieldError struct {
	Field string
	Line  string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s missing from index entry: %q", e.Field, e.Line)
}

// NoKnownChecksumError is raised lazily, the first time checksum selection
// is attempted against a Release file with none of the recognized
// algorithms populated.
type NoKnownChecksumError struct{}

func (e *NoKnownChecksumError) Error() string {
	return "release file does not contain supported checksum flavor"
}

// Parse builds a File from a paragraph (already PGP-verified/stripped, if
// applicable) and the raw bytes it was parsed from. The raw bytes are
// needed, in addition to the paragraph, because aptly's control-file
// tokenizer joins multiline field continuations with a single space,
// erasing the line boundaries PathWithSpaces detection depends on; the
// three checksum tables are therefore re-scanned directly from raw.
func Parse(source string, raw []byte) (*File, error) {
	paragraph, err := control.ReadSingle(bytes.NewReader(raw), source)
	if err != nil {
		return nil, err
	}

	f := &File{
		Origin:        paragraph["Origin"],
		Label:         paragraph["Label"],
		Suite:         paragraph["Suite"],
		Codename:      paragraph["Codename"],
		Description:   paragraph["Description"],
		Components:    strings.Fields(paragraph["Components"]),
		Architectures: strings.Fields(paragraph["Architectures"]),
		AcquireByHash: strings.EqualFold(strings.TrimSpace(paragraph["Acquire-By-Hash"]), "yes"),
		Checksums:     make(map[digest.Algorithm][]ChecksumEntry),
	}

	if dateStr, ok := paragraph["Date"]; ok && dateStr != "" {
		date, err := parseDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid Date: %w", source, err)
		}
		f.Date = date
	}
	if vu, ok := paragraph["Valid-Until"]; ok && vu != "" {
		date, err := parseDate(vu)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid Valid-Until: %w", source, err)
		}
		f.ValidUntil = &date
	}

	tables, err := scanChecksumTables(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	f.Checksums = tables

	return f, nil
}

func parseDate(value string) (time.Time, error) {
	var lastErr error
	for _, format := range dateFormats {
		t, err := time.Parse(format, value)
		if err == nil {
			if t.Location() == time.UTC {
				t = t.UTC()
			}
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// fieldToAlgorithm maps a Release file field name to the algorithm it
// carries a checksum table for.
var fieldToAlgorithm = map[string]digest.Algorithm{
	"MD5Sum": digest.MD5,
	"SHA1":   digest.SHA1,
	"SHA256": digest.SHA256,
}

// scanChecksumTables re-reads the raw control-paragraph bytes line by line
// to recover the MD5Sum/SHA1/SHA256 multiline field bodies with their
// original line boundaries intact, so a path containing embedded
// whitespace can be distinguished from the ordinary "hash size path"
// triple and rejected with PathWithSpacesError.
func scanChecksumTables(raw []byte) (map[digest.Algorithm][]ChecksumEntry, error) {
	tables := make(map[digest.Algorithm][]ChecksumEntry)

	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var current digest.Algorithm
	var inTable bool

	for scanner.Scan() {
		line := scanner.Text()

		if len(line) > 0 && (line[0] == ' ' || line[0] == '\t') {
			if !inTable {
				continue
			}
			entry, err := parseChecksumLine(line)
			if err != nil {
				return nil, err
			}
			tables[current] = append(tables[current], entry)
			continue
		}

		// A new unindented line starts a new field; stop consuming the
		// previous multiline table regardless of what this field is.
		inTable = false

		field, _, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if algo, ok := fieldToAlgorithm[field]; ok {
			current = algo
			inTable = true
			if _, exists := tables[current]; !exists {
				tables[current] = nil
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return tables, nil
}

func parseChecksumLine(line string) (ChecksumEntry, error) {
	trimmed := strings.TrimLeft(line, " \t")
	fields := strings.Fields(trimmed)

	switch {
	case len(fields) == 0:
		return ChecksumEntry{}, &MissingFieldError{Field: "digest", Line: line}
	case len(fields) == 1:
		return ChecksumEntry{}, &MissingFieldError{Field: "size", Line: line}
	case len(fields) == 2:
		return ChecksumEntry{}, &MissingFieldError{Field: "path", Line: line}
	}

	hexDigest, sizeStr := fields[0], fields[1]

	if len(fields) > 3 {
		return ChecksumEntry{}, &PathWithSpacesError{Line: strings.TrimSpace(line)}
	}

	size, err := strconv.ParseInt(sizeStr, 10, 64)
	if err != nil {
		return ChecksumEntry{}, fmt.Errorf("invalid size %q: %w", sizeStr, err)
	}

	algo := algorithmForHexLength(len(hexDigest))
	d, err := digest.New(algo, hexDigest)
	if err != nil {
		return ChecksumEntry{}, err
	}

	return ChecksumEntry{Digest: d, Size: size, Path: fields[2]}, nil
}

func algorithmForHexLength(n int) digest.Algorithm {
	switch n {
	case 64:
		return digest.SHA256
	case 40:
		return digest.SHA1
	default:
		return digest.MD5
	}
}

// RetrieveChecksum walks the supported algorithms from strongest to
// weakest and returns the first one whose table is populated in this
// Release file. The result is stable for the lifetime of the File, since
// File is immutable once parsed.
func (f *File) RetrieveChecksum() (digest.Algorithm, []ChecksumEntry, error) {
	for _, algo := range digest.PreferredOrder {
		if entries, ok := f.Checksums[algo]; ok && len(entries) > 0 {
			return algo, entries, nil
		}
	}
	return "", nil, &NoKnownChecksumError{}
}
