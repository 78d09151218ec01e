package epubclean

import (
	"errors"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Scope selects which documents of a book an operation applies to,
// relative to the current document.
type Scope int

const (
	// ScopeAll applies to every document.
	ScopeAll Scope = iota
	// ScopeCurrentOnly applies to the current document only.
	ScopeCurrentOnly
	// ScopeCurrentOnward applies to the current document and all after it.
	ScopeCurrentOnward
)

func (s Scope) String() string {
	switch s {
	case ScopeAll:
		return "all"
	case ScopeCurrentOnly:
		return "current"
	case ScopeCurrentOnward:
		return "onward"
	}
	return "Scope(" + strconv.Itoa(int(s)) + ")"
}

func (s Scope) valid() bool {
	return s >= ScopeAll && s <= ScopeCurrentOnward
}

// ParseScope parses a scope name: "all", "current" or "onward". The labels
// of the editor dialog ("All Text Files", "Current File Only",
// "Current File Onwards") are accepted too.
func ParseScope(s string) (Scope, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.NewReplacer("_", "-", " ", "-").Replace(v)
	switch v {
	case "all", "all-text-files", "all-files":
		return ScopeAll, nil
	case "current", "current-only", "current-file-only":
		return ScopeCurrentOnly, nil
	case "onward", "onwards", "current-onward", "current-onwards", "current-file-onward", "current-file-onwards":
		return ScopeCurrentOnward, nil
	}
	return 0, configError("unknown scope %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Scope) MarshalText() ([]byte, error) {
	if !s.valid() {
		return nil, configError("unknown scope %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Scope) UnmarshalText(text []byte) error {
	v, err := ParseScope(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Includes reports whether the document at index i is in scope when the
// current document is at index current.
func (s Scope) Includes(i, current int) bool {
	switch s {
	case ScopeAll:
		return true
	case ScopeCurrentOnly:
		return i == current
	case ScopeCurrentOnward:
		return i >= current
	}
	return false
}

// Operation enables a pass and sets its scope.
type Operation struct {
	Enabled bool  `toml:"enabled" yaml:"enabled"`
	Scope   Scope `toml:"scope" yaml:"scope"`
}

// BatchOptions configures a batch run.
type BatchOptions struct {
	// Merge controls style-run merging.
	Merge Operation

	// Headings controls the chapter heading pass.
	Headings Operation

	// Numbering holds the heading settings.
	Numbering NumberingConfig

	// DetectStart replaces Numbering.Start with a number detected from the
	// first document in heading scope (see DetectStartNumber).
	DetectStart bool

	// Logger receives per-document debug events. Nil discards them.
	Logger *zerolog.Logger
}

func (o BatchOptions) validate(numDocs, current int) error {
	for _, op := range []struct {
		name string
		op   Operation
	}{{"merge", o.Merge}, {"headings", o.Headings}} {
		if !op.op.Enabled {
			continue
		}
		if !op.op.Scope.valid() {
			return configError("unknown %s scope %d", op.name, int(op.op.Scope))
		}
		if op.op.Scope != ScopeAll && (current < 0 || current >= numDocs) {
			return configError("%s scope %s needs a current document, got index %d of %d", op.name, op.op.Scope, current, numDocs)
		}
	}
	if o.Headings.Enabled {
		if err := o.Numbering.Validate(!o.DetectStart); err != nil {
			return err
		}
	}
	return nil
}

// RunBatch processes docs in order. current is the index of the current
// document and only matters for current-relative scopes.
//
// The chapter counter starts at the configured (or detected) number and is
// threaded through the documents in index order; it only advances for
// documents that receive a heading. Invalid options fail the whole run with
// an error wrapping ErrConfiguration before anything is processed.
// Per-document failures are collected in BatchResult.Report and the failing
// document is returned with whatever could still be applied.
func RunBatch(docs []Document, current int, opts BatchOptions) (*BatchResult, error) {
	if err := opts.validate(len(docs), current); err != nil {
		return nil, err
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}

	cfg := opts.Numbering
	if opts.Headings.Enabled && opts.DetectStart {
		cfg.Start = 1
		for i, doc := range docs {
			if opts.Headings.Scope.Includes(i, current) {
				cfg.Start = DetectStartNumber(doc, cfg)
				log.Debug().Str("doc", doc.Name).Int("start", cfg.Start).Msg("detected start number")
				break
			}
		}
	}

	res := &BatchResult{
		Documents: make([]DocumentResult, 0, len(docs)),
		Start:     cfg.Start,
	}
	counter := cfg.Start

	for i, doc := range docs {
		dr := DocumentResult{Name: doc.Name, Markup: doc.Markup}
		doMerge := opts.Merge.Enabled && opts.Merge.Scope.Includes(i, current)
		doHeadings := opts.Headings.Enabled && opts.Headings.Scope.Includes(i, current)
		if !doMerge && !doHeadings {
			res.Documents = append(res.Documents, dr)
			continue
		}

		pr, err := Process(doc.Markup, counter, cfg, doMerge, doHeadings)
		if err != nil {
			res.Report = append(res.Report, &DocumentError{Index: i, Name: doc.Name, Err: err})
			ev := log.Warn().Err(err).Str("doc", doc.Name).Int("index", i)
			if errors.Is(err, ErrMalformedMarkup) {
				ev.Msg("document left unchanged")
			} else {
				ev.Msg("heading skipped")
			}
		}

		dr.Markup = pr.Markup
		dr.Changed = pr.Changed
		dr.Merged = pr.Merged
		dr.Headed = pr.Headed
		if pr.Headed {
			dr.Chapter = counter
		}
		log.Debug().
			Str("doc", doc.Name).
			Int("index", i).
			Bool("merge", doMerge).
			Bool("headings", doHeadings).
			Int("merged", pr.Merged).
			Stringer("marker", pr.Marker).
			Int("counter", pr.Counter).
			Msg("processed document")

		counter = pr.Counter
		res.Documents = append(res.Documents, dr)
	}

	res.Counter = counter
	return res, nil
}
