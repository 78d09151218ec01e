// Package epubclean tidies the XHTML content documents of ePub books.
//
// It applies two rewrites to each document:
//
//   - style-run merging: adjacent inline elements with the same tag and
//     style attribute, such as the span soup left behind by word processors,
//     are collapsed into one element;
//   - chapter headings: the first element of each document body is filled
//     with, or renumbered to, a heading such as "Chapter 5", "Chapter Five"
//     or "Chapter V".
//
// # Documents
//
// The engine works on markup handed in as bytes. [Parse] builds a [Node]
// tree and [Render] writes it back; nodes that were not touched are
// rendered exactly as they appeared in the input, so a document that needs
// no change round-trips byte-for-byte.
//
//	res, err := epubclean.Process(markup, 1, epubclean.DefaultNumberingConfig(), true, true)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.Counter) // 2 if a heading was rendered
//
// # Books
//
// [RunBatch] processes a book's documents in reading order, threading the
// chapter counter through them. Each pass has its own [Scope]: every
// document, the current document only, or the current document onward.
//
//	book, err := epubclean.Open("book.epub")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer book.Close()
//
//	docs, _ := book.Documents()
//	res, err := epubclean.RunBatch(docs, 0, epubclean.BatchOptions{
//	    Merge:     epubclean.Operation{Enabled: true, Scope: epubclean.ScopeAll},
//	    Headings:  epubclean.Operation{Enabled: true, Scope: epubclean.ScopeAll},
//	    Numbering: epubclean.DefaultNumberingConfig(),
//	})
//
// [CleanFile] wraps opening, processing and repacking a book file.
//
// # Error Handling
//
// The package defines sentinel errors for common failure cases:
//   - [ErrMalformedMarkup] – a document is not well-formed; it is left as is
//   - [ErrUnsupportedNumber] – a chapter number is outside a style's range
//   - [ErrConfiguration] – batch options are invalid; nothing is processed
//   - [ErrDRMProtected] – the book is encrypted
//   - [ErrInvalidEPub] – structural validation failed
//   - [ErrFileNotFound] – a requested file is not in the archive
//
// Per-document failures do not stop a batch; they are collected in
// [BatchResult.Report].
package epubclean
