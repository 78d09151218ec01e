package epubclean

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the epubclean package.
var (
	// ErrMalformedMarkup indicates a content document could not be parsed as
	// well-formed XHTML. The document is left unmodified.
	ErrMalformedMarkup = errors.New("epubclean: malformed markup")

	// ErrUnsupportedNumber indicates a chapter number lies outside the range
	// a numbering style can render (Words: 1-99, Roman: 1-3999).
	ErrUnsupportedNumber = errors.New("epubclean: unsupported chapter number")

	// ErrConfiguration indicates invalid batch options. Nothing is processed.
	ErrConfiguration = errors.New("epubclean: invalid configuration")

	// ErrDRMProtected indicates the ePub file is protected by DRM
	// (e.g., Adobe ADEPT, Apple FairPlay, Readium LCP) and cannot be rewritten.
	ErrDRMProtected = errors.New("epubclean: file is DRM protected")

	// ErrInvalidEPub indicates the file is not a valid ePub
	// (e.g., missing container.xml and no .opf file found).
	ErrInvalidEPub = errors.New("epubclean: invalid ePub file")

	// ErrFileNotFound indicates the requested file does not exist
	// in the ePub archive.
	ErrFileNotFound = errors.New("epubclean: file not found in archive")
)

// MarkupError reports where parsing a content document failed.
type MarkupError struct {
	Line int
	Err  error
}

func (e *MarkupError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("epubclean: malformed markup at line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("epubclean: malformed markup: %v", e.Err)
}

func (e *MarkupError) Unwrap() []error { return []error{ErrMalformedMarkup, e.Err} }

// UnsupportedNumberError reports a chapter number a style cannot render.
type UnsupportedNumberError struct {
	Number int
	Style  Style
}

func (e *UnsupportedNumberError) Error() string {
	return fmt.Sprintf("epubclean: chapter number %d cannot be rendered in %s style", e.Number, e.Style)
}

func (e *UnsupportedNumberError) Unwrap() error { return ErrUnsupportedNumber }

// DocumentError ties a per-document failure to the document it occurred in.
// Batch runs collect these instead of aborting.
type DocumentError struct {
	Index int
	Name  string
	Err   error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("%s (document %d): %v", e.Name, e.Index, e.Err)
}

func (e *DocumentError) Unwrap() error { return e.Err }

// configError wraps a validation message with ErrConfiguration.
func configError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
