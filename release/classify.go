package release

import (
	"path"
	"strings"

	"github.com/dionysius/drepo/compression"
	"github.com/dionysius/drepo/digest"
)

// EntryKind identifies which role a classified Release file entry plays.
type EntryKind int

// Recognized entry kinds, classified from the canonical Debian index path
// grammar.
const (
	KindPackages EntryKind = iota
	KindSources
	KindContents
	KindTranslation
	KindDiffIndex
	KindOther
)

// ClassifiedEntry is a checksum-table row annotated with its parsed role.
// Fields not meaningful to a given Kind are left zero.
type ClassifiedEntry struct {
	Kind          EntryKind
	Path          string
	Size          int64
	Digest        digest.Digest
	Compression   compression.Compression
	Component     string
	Architecture  string
	IsInstaller   bool
	Language      string // Translation only
}

// PackagesKey groups Packages entries that are republished copies of the
// same logical file under different compressions.
type PackagesKey struct {
	Component    string
	Architecture string
	IsInstaller  bool
}

// SourcesKey groups Sources entries.
type SourcesKey struct {
	Component string
}

// ContentsKey groups Contents entries.
type ContentsKey struct {
	Component    string
	Architecture string
	IsInstaller  bool
}

const installerInfix = "debian-installer"

// Classify annotates a single checksum entry with its parsed role by
// matching the canonical Debian index path grammar:
//
//	{component}/binary-{arch}/Packages{.ext}
//	{component}/debian-installer/binary-{arch}/Packages{.ext}
//	{component}/source/Sources{.ext}
//	{component}/Contents-{arch}{.ext}
//	{component}/debian-installer/Contents-{arch}{.ext}
//	{component}/i18n/Translation-{lang}{.ext}
//	{component}/binary-{arch}/Packages.diff/Index
//
// Paths that don't match any of the above classify as KindOther without
// aborting iteration of the surrounding table — an unrecognized file
// doesn't invalidate the rest of the Release file.
func Classify(entry ChecksumEntry) ClassifiedEntry {
	out := ClassifiedEntry{
		Path:   entry.Path,
		Size:   entry.Size,
		Digest: entry.Digest,
		Kind:   KindOther,
	}

	segments := strings.Split(entry.Path, "/")
	if len(segments) < 2 {
		return out
	}

	component := segments[0]
	rest := segments[1:]

	// Packages.diff/Index — diff index for pdiff-based incremental updates.
	if len(rest) >= 2 && rest[len(rest)-1] == "Index" && strings.HasSuffix(rest[len(rest)-2], ".diff") {
		base := rest[:len(rest)-2]
		arch, isInstaller, ok := matchBinaryDir(base)
		if ok {
			out.Kind = KindDiffIndex
			out.Component = component
			out.Architecture = arch
			out.IsInstaller = isInstaller
		}
		return out
	}

	base := path.Base(entry.Path)
	dir := rest[:len(rest)-1]

	switch {
	case matchesStem(base, "Packages"):
		if arch, isInstaller, ok := matchBinaryDir(dir); ok {
			out.Kind = KindPackages
			out.Component = component
			out.Architecture = arch
			out.IsInstaller = isInstaller
			out.Compression = compression.DetectFromFilename(base)
			return out
		}
	case matchesStem(base, "Sources"):
		if len(dir) == 1 && dir[0] == "source" {
			out.Kind = KindSources
			out.Component = component
			out.Compression = compression.DetectFromFilename(base)
			return out
		}
	case strings.HasPrefix(base, "Contents-"):
		archPart := strings.TrimPrefix(base, "Contents-")
		arch := trimCompressionSuffix(archPart)
		isInstaller := len(dir) == 1 && dir[0] == installerInfix
		if len(dir) == 0 || isInstaller {
			out.Kind = KindContents
			out.Component = component
			out.Architecture = arch
			out.IsInstaller = isInstaller
			out.Compression = compression.DetectFromFilename(base)
			return out
		}
	case strings.HasPrefix(base, "Translation-"):
		if len(dir) == 1 && dir[0] == "i18n" {
			langPart := strings.TrimPrefix(base, "Translation-")
			out.Kind = KindTranslation
			out.Component = component
			out.Language = trimCompressionSuffix(langPart)
			out.Compression = compression.DetectFromFilename(base)
			return out
		}
	}

	return out
}

// matchBinaryDir recognizes "binary-{arch}" and
// "debian-installer/binary-{arch}" directory suffixes.
func matchBinaryDir(dir []string) (arch string, isInstaller bool, ok bool) {
	switch len(dir) {
	case 1:
		if strings.HasPrefix(dir[0], "binary-") {
			return strings.TrimPrefix(dir[0], "binary-"), false, true
		}
	case 2:
		if dir[0] == installerInfix && strings.HasPrefix(dir[1], "binary-") {
			return strings.TrimPrefix(dir[1], "binary-"), true, true
		}
	}
	return "", false, false
}

// matchesStem reports whether base is stem or stem followed by a known
// compression suffix.
func matchesStem(base, stem string) bool {
	if base == stem {
		return true
	}
	trimmed := strings.TrimPrefix(base, stem+".")
	if trimmed == base {
		return false
	}
	_, err := compression.Parse(trimmed)
	return err == nil
}

func trimCompressionSuffix(s string) string {
	for _, c := range []compression.Compression{compression.Gzip, compression.Xz, compression.Bzip2, compression.Lzma, compression.Zstd} {
		if trimmed := c.TrimSuffix(s); trimmed != s {
			return trimmed
		}
	}
	return s
}

// CollapsePreferred implements the preferred-compression collapse shared by
// Packages/Sources/Contents resolution: group entries by key, then within
// each group pick the entry matching preferred, falling back through
// compression.DefaultPreferredOrder when preferred isn't published.
func CollapsePreferred[K comparable](entries []ClassifiedEntry, keyOf func(ClassifiedEntry) K, preferred compression.Compression) map[K]ClassifiedEntry {
	groups := make(map[K][]ClassifiedEntry)
	for _, e := range entries {
		k := keyOf(e)
		groups[k] = append(groups[k], e)
	}

	winners := make(map[K]ClassifiedEntry, len(groups))
	order := append([]compression.Compression{preferred}, compression.DefaultPreferredOrder...)

	for k, group := range groups {
		byCompression := make(map[compression.Compression]ClassifiedEntry, len(group))
		for _, e := range group {
			byCompression[e.Compression] = e
		}
		for _, c := range order {
			if e, ok := byCompression[c]; ok {
				winners[k] = e
				break
			}
		}
	}

	return winners
}
