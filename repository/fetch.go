package repository

import (
	"github.com/dionysius/drepo/control"
	"github.com/dionysius/drepo/digest"
)

// BinaryPackageFetch is an inert descriptor of one binary package artifact
// to retrieve from the pool: everything needed to fetch and verify it,
// plus the control paragraph it was extracted from.
type BinaryPackageFetch struct {
	Path      string
	Size      int64
	Digest    digest.Digest
	Paragraph control.Paragraph
}

// SourcePackageFetch is the Sources-file analogue of BinaryPackageFetch.
// A single source package paragraph expands into one SourcePackageFetch
// per file named in its Files/Checksums-* tables (the .dsc, .orig.tar.*,
// .debian.tar.* members).
type SourcePackageFetch struct {
	Path      string
	Size      int64
	Digest    digest.Digest
	Paragraph control.Paragraph
}
