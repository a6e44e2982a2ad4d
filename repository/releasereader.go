package repository

import (
	"context"
	"errors"
	"path"
	"strconv"
	"strings"

	"github.com/alitto/pond/v2"

	"github.com/dionysius/drepo/compression"
	"github.com/dionysius/drepo/control"
	"github.com/dionysius/drepo/digest"
	"github.com/dionysius/drepo/release"
)

// ReleaseReader is bound to one distribution's parsed Release file. The
// release.File itself is immutable; PreferredCompression is the only
// mutable state in the read path, and must not be mutated while the
// reader is in concurrent use.
type ReleaseReader struct {
	resolver             Resolver
	file                 *release.File
	rootRelativePath     string
	PreferredCompression compression.Compression
}

// NewReleaseReader binds resolver, the dists/{distribution} path the
// Release file was fetched from, and the parsed file itself. The reader's
// preferred compression defaults to compression.DefaultPreferredOrder's
// first entry.
func NewReleaseReader(resolver Resolver, rootRelativePath string, file *release.File) *ReleaseReader {
	return &ReleaseReader{
		resolver:             resolver,
		file:                 file,
		rootRelativePath:     strings.Trim(rootRelativePath, "/"),
		PreferredCompression: compression.DefaultPreferredOrder[0],
	}
}

// File returns the underlying parsed Release file.
func (rr *ReleaseReader) File() *release.File { return rr.file }

// RetrieveChecksum walks SHA256/SHA1/MD5 and returns the first table that
// is populated in this distribution's Release file. The result is
// invariant across the reader's lifetime.
func (rr *ReleaseReader) RetrieveChecksum() (digest.Algorithm, []release.ChecksumEntry, error) {
	return rr.file.RetrieveChecksum()
}

// ClassifiedEntries classifies every row of the negotiated checksum table.
// Entries that fail to classify come back as release.KindOther and do not
// abort iteration of the rest of the table.
func (rr *ReleaseReader) ClassifiedEntries() ([]release.ClassifiedEntry, error) {
	_, entries, err := rr.RetrieveChecksum()
	if err != nil {
		return nil, err
	}

	out := make([]release.ClassifiedEntry, len(entries))
	for i, e := range entries {
		out[i] = release.Classify(e)
	}
	return out, nil
}

func (rr *ReleaseReader) entriesOfKind(kind release.EntryKind) ([]release.ClassifiedEntry, error) {
	entries, err := rr.ClassifiedEntries()
	if err != nil {
		return nil, err
	}
	var out []release.ClassifiedEntry
	for _, e := range entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out, nil
}

// PackagesEntriesPreferredCompression collapses every Packages entry in
// the negotiated checksum table to one winner per (component, arch,
// is_installer), under PreferredCompression with fallback to
// compression.DefaultPreferredOrder.
func (rr *ReleaseReader) PackagesEntriesPreferredCompression() (map[release.PackagesKey]release.ClassifiedEntry, error) {
	entries, err := rr.entriesOfKind(release.KindPackages)
	if err != nil {
		return nil, err
	}
	return release.CollapsePreferred(entries, func(e release.ClassifiedEntry) release.PackagesKey {
		return release.PackagesKey{Component: e.Component, Architecture: e.Architecture, IsInstaller: e.IsInstaller}
	}, rr.PreferredCompression), nil
}

// SourcesEntriesPreferredCompression is the Sources analogue of
// PackagesEntriesPreferredCompression.
func (rr *ReleaseReader) SourcesEntriesPreferredCompression() (map[release.SourcesKey]release.ClassifiedEntry, error) {
	entries, err := rr.entriesOfKind(release.KindSources)
	if err != nil {
		return nil, err
	}
	return release.CollapsePreferred(entries, func(e release.ClassifiedEntry) release.SourcesKey {
		return release.SourcesKey{Component: e.Component}
	}, rr.PreferredCompression), nil
}

// ContentsEntriesPreferredCompression is the Contents analogue.
func (rr *ReleaseReader) ContentsEntriesPreferredCompression() (map[release.ContentsKey]release.ClassifiedEntry, error) {
	entries, err := rr.entriesOfKind(release.KindContents)
	if err != nil {
		return nil, err
	}
	return release.CollapsePreferred(entries, func(e release.ClassifiedEntry) release.ContentsKey {
		return release.ContentsKey{Component: e.Component, Architecture: e.Architecture, IsInstaller: e.IsInstaller}
	}, rr.PreferredCompression), nil
}

// PackagesEntry resolves one (component, architecture, is_installer)
// Packages entry under the negotiated checksum and preferred compression,
// failing with EntryNotFoundError if no variant of it is published.
func (rr *ReleaseReader) PackagesEntry(component, architecture string, isInstaller bool) (release.ClassifiedEntry, error) {
	winners, err := rr.PackagesEntriesPreferredCompression()
	if err != nil {
		return release.ClassifiedEntry{}, err
	}
	key := release.PackagesKey{Component: component, Architecture: architecture, IsInstaller: isInstaller}
	entry, ok := winners[key]
	if !ok {
		return release.ClassifiedEntry{}, &EntryNotFoundError{Kind: EntryKindPackages, Key: packagesKeyString(key)}
	}
	return entry, nil
}

func packagesKeyString(k release.PackagesKey) string {
	if k.IsInstaller {
		return k.Component + "/debian-installer/binary-" + k.Architecture
	}
	return k.Component + "/binary-" + k.Architecture
}

// SourcesEntry resolves one component's Sources entry under the
// negotiated checksum and preferred compression.
func (rr *ReleaseReader) SourcesEntry(component string) (release.ClassifiedEntry, error) {
	winners, err := rr.SourcesEntriesPreferredCompression()
	if err != nil {
		return release.ClassifiedEntry{}, err
	}
	key := release.SourcesKey{Component: component}
	entry, ok := winners[key]
	if !ok {
		return release.ClassifiedEntry{}, &EntryNotFoundError{Kind: EntryKindSources, Key: component + "/source"}
	}
	return entry, nil
}

// ContentsEntry resolves one (component, architecture, is_installer)
// Contents entry under the negotiated checksum and preferred compression.
func (rr *ReleaseReader) ContentsEntry(component, architecture string, isInstaller bool) (release.ClassifiedEntry, error) {
	winners, err := rr.ContentsEntriesPreferredCompression()
	if err != nil {
		return release.ClassifiedEntry{}, err
	}
	key := release.ContentsKey{Component: component, Architecture: architecture, IsInstaller: isInstaller}
	entry, ok := winners[key]
	if !ok {
		return release.ClassifiedEntry{}, &EntryNotFoundError{Kind: EntryKindContents, Key: packagesKeyString(release.PackagesKey(key))}
	}
	return entry, nil
}

// effectivePath applies by-hash URL rewriting: when Acquire-By-Hash is
// "yes", the entry's nominal path is replaced with
// {dir}/by-hash/{ALGO}/{hex}. It never falls back to the nominal path
// within a single resolution — a by-hash entry with no recognized digest
// is a Release-file inconsistency that must surface, not be papered over.
func (rr *ReleaseReader) effectivePath(entry release.ClassifiedEntry) (string, error) {
	fullPath := rr.rootRelativePath + "/" + entry.Path
	if !rr.file.AcquireByHash {
		return fullPath, nil
	}

	if entry.Digest.IsZero() {
		return "", &release.NoKnownChecksumError{}
	}

	dir := rr.rootRelativePath
	if i := strings.LastIndex(entry.Path, "/"); i >= 0 {
		dir = rr.rootRelativePath + "/" + entry.Path[:i]
	}

	algoField := byHashField(entry.Digest.Algorithm)
	return dir + "/by-hash/" + algoField + "/" + entry.Digest.Hex(), nil
}

func byHashField(algo digest.Algorithm) string {
	switch algo {
	case digest.SHA256:
		return "SHA256"
	case digest.SHA1:
		return "SHA1"
	case digest.MD5:
		return "MD5Sum"
	default:
		return strings.ToUpper(string(algo))
	}
}

// resolveParagraphs fetches, decodes, and verifies entry's content, then
// accumulates every control paragraph found in it. Parsing errors abort
// the whole file.
func (rr *ReleaseReader) resolveParagraphs(ctx context.Context, entry release.ClassifiedEntry) ([]control.Paragraph, error) {
	path, err := rr.effectivePath(entry)
	if err != nil {
		return nil, err
	}

	stream, err := GetPathDecodedWithDigestVerification(ctx, rr.resolver, path, entry.Compression, entry.Size, entry.Digest)
	if err != nil {
		return nil, err
	}
	defer func() { _ = stream.Close() }()

	reader := control.NewReader(stream, path)
	paragraphs, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	// Drain any trailing bytes the paragraph reader didn't need, so a
	// terminal digest mismatch the paragraph reader stopped short of
	// still surfaces here rather than being silently missed.
	if err := drainReader(stream); err != nil {
		return nil, err
	}

	return paragraphs, nil
}

// ResolvePackagesFromEntry expands a Packages index entry into its
// constituent binary package control paragraphs.
func (rr *ReleaseReader) ResolvePackagesFromEntry(ctx context.Context, entry release.ClassifiedEntry) ([]control.Paragraph, error) {
	return rr.resolveParagraphs(ctx, entry)
}

// ResolveSourcesFromEntry expands a Sources index entry into its
// constituent source package control paragraphs.
func (rr *ReleaseReader) ResolveSourcesFromEntry(ctx context.Context, entry release.ClassifiedEntry) ([]control.Paragraph, error) {
	return rr.resolveParagraphs(ctx, entry)
}

// digestFromParagraph walks a Packages paragraph's SHA256/SHA1/MD5sum
// fields in digest.PreferredOrder and returns the first one present,
// parsed as hex. The Checksums-* fields of a Sources paragraph are not
// consulted.
func digestFromParagraph(p control.Paragraph, filename string) (digest.Digest, error) {
	fields := map[digest.Algorithm]string{
		digest.SHA256: "SHA256",
		digest.SHA1:   "SHA1",
		digest.MD5:    "MD5sum",
	}
	for _, algo := range digest.PreferredOrder {
		if v, ok := p.Get(fields[algo]); ok && v != "" {
			return digest.New(algo, strings.Fields(v)[0])
		}
	}
	return digest.Digest{}, &CouldNotDeterminePackageDigestError{Filename: filename}
}

// PackagesFileFilter decides which classified Packages index entries
// resolve_package_fetches should dereference.
type PackagesFileFilter func(release.ClassifiedEntry) bool

// BinaryPackageFilter decides which binary package paragraphs within a
// dereferenced Packages file should be emitted as fetches.
type BinaryPackageFilter func(control.Paragraph) bool

// ResolvePackageFetches selects every Packages entry under the negotiated
// preferred compression, keeps those packagesFileFilter accepts,
// concurrently resolves up to threads of them in parallel, and for every
// paragraph binaryPackageFilter accepts, extracts a BinaryPackageFetch.
// Output order is unspecified.
func (rr *ReleaseReader) ResolvePackageFetches(ctx context.Context, packagesFileFilter PackagesFileFilter, binaryPackageFilter BinaryPackageFilter, threads int) ([]BinaryPackageFetch, error) {
	winners, err := rr.PackagesEntriesPreferredCompression()
	if err != nil {
		return nil, err
	}

	var selected []release.ClassifiedEntry
	for _, entry := range winners {
		if packagesFileFilter == nil || packagesFileFilter(entry) {
			selected = append(selected, entry)
		}
	}

	pool := pond.NewResultPool[[]control.Paragraph](threads, pond.WithContext(ctx), pond.WithoutPanicRecovery())
	group := pool.NewGroupContext(ctx)

	for _, entry := range selected {
		entry := entry
		group.SubmitErr(func() ([]control.Paragraph, error) {
			return rr.ResolvePackagesFromEntry(ctx, entry)
		})
	}

	perFile, err := group.Wait()
	if err != nil {
		return nil, err
	}

	var fetches []BinaryPackageFetch
	for _, paragraphs := range perFile {
		for _, p := range paragraphs {
			if binaryPackageFilter != nil && !binaryPackageFilter(p) {
				continue
			}

			fetch, err := binaryPackageFetchFromParagraph(p)
			if err != nil {
				return nil, err
			}
			fetches = append(fetches, fetch)
		}
	}

	return fetches, nil
}

func binaryPackageFetchFromParagraph(p control.Paragraph) (BinaryPackageFetch, error) {
	path, err := p.Require("Filename")
	if err != nil {
		return BinaryPackageFetch{}, err
	}

	sizeStr, err := p.Require("Size")
	if err != nil {
		return BinaryPackageFetch{}, err
	}
	size, err := strconv.ParseInt(strings.TrimSpace(sizeStr), 10, 64)
	if err != nil {
		return BinaryPackageFetch{}, &ControlFieldIntParseError{Field: "Size", Value: sizeStr, Err: err}
	}

	d, err := digestFromParagraph(p, path)
	if err != nil {
		return BinaryPackageFetch{}, err
	}

	return BinaryPackageFetch{Path: path, Size: size, Digest: d, Paragraph: p}, nil
}

// sourceFileField names, per digest.Algorithm, the Sources-paragraph field
// holding that algorithm's per-file checksum table ("Files" itself is the
// MD5 table; the stronger algorithms get a Checksums-* field of their
// own).
var sourceFileField = map[digest.Algorithm]string{
	digest.SHA256: "Checksums-Sha256",
	digest.SHA1:   "Checksums-Sha1",
	digest.MD5:    "Files",
}

// ResolveSourceFetches mirrors ResolvePackageFetches, but each source
// paragraph expands into multiple file fetches — one per file named in
// the table selected by the negotiated checksum flavor (RetrieveChecksum).
func (rr *ReleaseReader) ResolveSourceFetches(ctx context.Context, sourcesFileFilter PackagesFileFilter, sourcePackageFilter BinaryPackageFilter, threads int) ([]SourcePackageFetch, error) {
	winners, err := rr.SourcesEntriesPreferredCompression()
	if err != nil {
		return nil, err
	}

	algo, _, err := rr.RetrieveChecksum()
	if err != nil {
		return nil, err
	}

	var selected []release.ClassifiedEntry
	for _, entry := range winners {
		if sourcesFileFilter == nil || sourcesFileFilter(entry) {
			selected = append(selected, entry)
		}
	}

	pool := pond.NewResultPool[[]control.Paragraph](threads, pond.WithContext(ctx), pond.WithoutPanicRecovery())
	group := pool.NewGroupContext(ctx)

	for _, entry := range selected {
		entry := entry
		group.SubmitErr(func() ([]control.Paragraph, error) {
			return rr.ResolveSourcesFromEntry(ctx, entry)
		})
	}

	perFile, err := group.Wait()
	if err != nil {
		return nil, err
	}

	var fetches []SourcePackageFetch
	for _, paragraphs := range perFile {
		for _, p := range paragraphs {
			if sourcePackageFilter != nil && !sourcePackageFilter(p) {
				continue
			}

			pkgFetches, err := sourcePackageFetchesFromParagraph(p, algo)
			if err != nil {
				return nil, err
			}
			fetches = append(fetches, pkgFetches...)
		}
	}

	return fetches, nil
}

// sourcePackageFetchesFromParagraph reads a Sources paragraph's Files/
// Checksums-* table: a flat "{hex_digest} {size} {path}" triple repeated
// for every file in the source package. Unlike a Release file's checksum
// table, paths here are never ambiguous with whitespace-joined
// continuation lines — aptly's tokenizer joins a multiline field's
// continuations with a single space, but since a triple is always exactly
// three whitespace-separated tokens, the joined value can be re-chunked
// into triples with no loss of information.
func sourcePackageFetchesFromParagraph(p control.Paragraph, algo digest.Algorithm) ([]SourcePackageFetch, error) {
	field := sourceFileField[algo]
	raw, ok := p.Get(field)
	if !ok {
		return nil, &CouldNotDeterminePackageDigestError{Filename: p["Package"]}
	}

	// Files/Checksums-* list filenames relative to Directory, not full
	// pool paths - unlike a .deb's Filename field, which is already
	// pool-relative on its own.
	directory, _ := p.Get("Directory")

	tokens := strings.Fields(raw)
	if len(tokens)%3 != 0 {
		return nil, &ControlFieldIntParseError{Field: field, Value: raw, Err: errors.New("malformed checksum table")}
	}

	var fetches []SourcePackageFetch
	for i := 0; i < len(tokens); i += 3 {
		hexDigest, sizeStr, filename := tokens[i], tokens[i+1], tokens[i+2]

		size, err := strconv.ParseInt(sizeStr, 10, 64)
		if err != nil {
			return nil, &ControlFieldIntParseError{Field: field, Value: sizeStr, Err: err}
		}
		d, err := digest.New(algo, hexDigest)
		if err != nil {
			return nil, err
		}

		fetches = append(fetches, SourcePackageFetch{Path: path.Join(directory, filename), Size: size, Digest: d, Paragraph: p})
	}

	return fetches, nil
}
