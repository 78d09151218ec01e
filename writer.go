package epubclean

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"
)

// Rewrite writes a copy of the book to w with the documents named in
// replacements swapped for the given markup. The "mimetype" entry is written
// first and uncompressed; every other entry keeps its position, and entries
// without a replacement are copied byte-for-byte without recompression.
func (b *Book) Rewrite(w io.Writer, replacements map[string][]byte) error {
	zw := zip.NewWriter(w)

	hdr := &zip.FileHeader{Name: "mimetype", Method: zip.Store}
	mw, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("epubclean: create mimetype: %w", err)
	}
	if _, err := io.WriteString(mw, expectedMimetype); err != nil {
		return fmt.Errorf("epubclean: write mimetype: %w", err)
	}

	used := 0
	for _, f := range b.zip.File {
		if f.Name == "mimetype" {
			continue
		}
		if data, ok := replacements[f.Name]; ok {
			used++
			err = writeZipEntry(zw, f, data)
		} else {
			err = copyZipEntry(zw, f)
		}
		if err != nil {
			return err
		}
	}
	if used != len(replacements) {
		for name := range replacements {
			if b.zipExact[name] == nil {
				return fmt.Errorf("epubclean: replacement %s: %w", name, ErrFileNotFound)
			}
		}
	}
	return zw.Close()
}

// CleanOptions configures CleanFile.
type CleanOptions struct {
	BatchOptions

	// Current names the current document (see FindDocument) or gives its
	// zero-based index in reading order. Empty selects the first document.
	Current string

	// DryRun runs the batch without writing any output.
	DryRun bool
}

// CleanFile runs a batch over the content documents of the ePub at inPath
// and writes the result to outPath. An empty outPath, or one equal to
// inPath, replaces the input file; it is left alone when nothing changed.
// The output is written to a temporary file and renamed into place.
func CleanFile(inPath, outPath string, opts CleanOptions) (*BatchResult, error) {
	book, err := Open(inPath)
	if err != nil {
		return nil, err
	}
	defer book.Close()

	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}

	docs, err := book.Documents()
	if err != nil {
		return nil, err
	}
	// Documents adds warnings for skipped spine items.
	for _, w := range book.Warnings() {
		log.Warn().Str("file", inPath).Msg(w)
	}

	current := 0
	if opts.Current != "" {
		current = FindDocument(docs, opts.Current)
		if current < 0 {
			if n, err := strconv.Atoi(opts.Current); err == nil && n >= 0 && n < len(docs) {
				current = n
			}
		}
		if current < 0 {
			return nil, configError("current document %q not found in %s", opts.Current, inPath)
		}
	}

	res, err := RunBatch(docs, current, opts.BatchOptions)
	if err != nil {
		return nil, err
	}
	if opts.DryRun {
		return res, nil
	}

	if outPath == "" {
		outPath = inPath
	}
	changed := res.Changed()
	if len(changed) == 0 && sameFile(inPath, outPath) {
		log.Info().Str("file", inPath).Msg("nothing to change")
		return res, nil
	}

	replacements := make(map[string][]byte, len(changed))
	for _, d := range changed {
		replacements[d.Name] = d.Markup
	}
	if err := writeAtomic(outPath, func(w io.Writer) error {
		return book.Rewrite(w, replacements)
	}); err != nil {
		return nil, err
	}
	log.Info().Str("file", outPath).Int("changed", len(changed)).Msg("wrote book")
	return res, nil
}

func sameFile(a, b string) bool {
	if filepath.Clean(a) == filepath.Clean(b) {
		return true
	}
	ia, errA := os.Stat(a)
	ib, errB := os.Stat(b)
	return errA == nil && errB == nil && os.SameFile(ia, ib)
}

// writeAtomic writes to a temporary file next to path and renames it over
// path once write succeeded.
func writeAtomic(path string, write func(io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".epubclean-*")
	if err != nil {
		return fmt.Errorf("epubclean: create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = write(tmp); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("epubclean: close temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("epubclean: replace %s: %w", path, err)
	}
	return nil
}
