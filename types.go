package epubclean

// Document is a content document of a book.
type Document struct {
	// Name identifies the document, usually its ZIP-internal path
	// (e.g., "OEBPS/Text/chapter01.xhtml").
	Name string

	// Markup is the raw XHTML of the document.
	Markup []byte
}

// ProcessResult is the outcome of processing one document.
type ProcessResult struct {
	// Markup is the rewritten document. It is the input slice itself when
	// nothing changed.
	Markup []byte

	// Counter is the chapter counter after this document: the input value
	// plus one when a heading was rendered.
	Counter int

	// Merged is the number of elements removed by style-run merging.
	Merged int

	// Marker is the heading marker found by the heading pass.
	// Its Kind is MarkerNone when the pass did not run.
	Marker MarkerKind

	// Headed reports whether a heading was rendered.
	Headed bool

	// Changed reports whether Markup differs from the input.
	Changed bool
}

// DocumentResult is the per-document output of a batch run.
type DocumentResult struct {
	// Name is the document's identifier as given in the input.
	Name string

	// Markup is the replacement markup, or the original bytes when the
	// document was unchanged, skipped or failed.
	Markup []byte

	// Changed reports whether Markup should be written back.
	Changed bool

	// Merged is the number of elements removed by style-run merging.
	Merged int

	// Headed reports whether this document received a heading.
	Headed bool

	// Chapter is the chapter number rendered into this document,
	// zero when Headed is false.
	Chapter int
}

// BatchResult is the outcome of a batch run.
type BatchResult struct {
	// Documents holds one entry per input document, in input order.
	Documents []DocumentResult

	// Start is the chapter number the run started from, after detection.
	Start int

	// Counter is the chapter counter after the last document.
	Counter int

	// Report lists the documents that failed. The run continued past them.
	Report []*DocumentError
}

// Changed returns the documents whose markup was rewritten.
func (r *BatchResult) Changed() []DocumentResult {
	var out []DocumentResult
	for _, d := range r.Documents {
		if d.Changed {
			out = append(out, d)
		}
	}
	return out
}

// Headed returns the number of documents that received a heading.
func (r *BatchResult) Headed() int {
	n := 0
	for _, d := range r.Documents {
		if d.Headed {
			n++
		}
	}
	return n
}
