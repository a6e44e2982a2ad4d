// Package control adapts aptly's RFC-822-like control-paragraph tokenizer
// into the narrow surface the repository packages need: read one paragraph
// (a Debian control stanza) at a time from a byte stream, preserving
// unrecognized fields verbatim.
package control

import (
	"fmt"
	"io"

	"github.com/aptly-dev/aptly/deb"
)

// Paragraph is a single RFC-822-like control stanza: a case-sensitive
// key→value map. Continuation lines have already been joined (with a
// single space) by the underlying tokenizer.
type Paragraph map[string]string

// Get returns a field's value and whether it was present.
func (p Paragraph) Get(key string) (string, bool) {
	v, ok := p[key]
	return v, ok
}

// Require returns a field's value, or a RequiredFieldMissingError if absent.
func (p Paragraph) Require(key string) (string, error) {
	v, ok := p[key]
	if !ok {
		return "", &RequiredFieldMissingError{Field: key}
	}
	return v, nil
}

// RequiredFieldMissingError reports a mandatory control field that was not
// present in a parsed paragraph.
type RequiredFieldMissingError struct {
	Field string
}

func (e *RequiredFieldMissingError) Error() string {
	return fmt.Sprintf("required control paragraph field not found: %s", e.Field)
}

// ParseError wraps a failure from the underlying control-file tokenizer with
// the source it was reading, so callers can report which file/offset failed.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("control file parse error: %v", e.Err)
	}
	return fmt.Sprintf("control file parse error (%s): %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Reader reads successive Paragraphs from an RFC-822-like byte stream. It is
// a thin adapter over aptly's deb.ControlFileReader — the low-level
// tokenizer itself is treated as an external collaborator.
type Reader struct {
	inner  *deb.ControlFileReader
	source string
}

// NewReader constructs a Reader over r. source is used only to annotate
// ParseError messages (typically a filename or URL).
func NewReader(r io.Reader, source string) *Reader {
	return &Reader{
		inner:  deb.NewControlFileReader(r, false, false),
		source: source,
	}
}

// ReadParagraph returns the next paragraph, or (nil, nil) at end of stream.
func (r *Reader) ReadParagraph() (Paragraph, error) {
	stanza, err := r.inner.ReadStanza()
	if err != nil {
		return nil, &ParseError{Source: r.source, Err: err}
	}
	if stanza == nil {
		return nil, nil
	}
	return Paragraph(stanza), nil
}

// ReadAll drains the reader, returning every paragraph encountered.
func (r *Reader) ReadAll() ([]Paragraph, error) {
	var out []Paragraph
	for {
		p, err := r.ReadParagraph()
		if err != nil {
			return nil, err
		}
		if p == nil {
			return out, nil
		}
		out = append(out, p)
	}
}

// ReadSingle reads the first paragraph and fails with NoParagraphError if
// there is none. It does not check whether further paragraphs follow.
// It's used for single-stanza control files (Release, .dsc).
func ReadSingle(r io.Reader, source string) (Paragraph, error) {
	reader := NewReader(r, source)
	first, err := reader.ReadParagraph()
	if err != nil {
		return nil, err
	}
	if first == nil {
		return nil, &NoParagraphError{Source: source}
	}
	return first, nil
}

// NoParagraphError reports a control file that contained zero paragraphs
// where exactly one was required.
type NoParagraphError struct {
	Source string
}

func (e *NoParagraphError) Error() string {
	if e.Source == "" {
		return "control file lacks a paragraph"
	}
	return fmt.Sprintf("control file lacks a paragraph: %s", e.Source)
}
