package epubclean

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"strings"
)

// expectedMimetype is the required content of the "mimetype" file in a valid ePub.
const expectedMimetype = "application/epub+zip"

// Book is an opened ePub whose content documents can be cleaned and
// written back. Use Open or NewReader to create a Book instance.
//
// A Book is not safe for concurrent use by multiple goroutines.
type Book struct {
	zip      *zip.Reader
	zipExact map[string]*zip.File // exact-match ZIP file index
	zipLower map[string]*zip.File // lowercase ZIP file index
	closer   io.Closer            // non-nil only when created via Open()
	opfPath  string
	opfDir   string
	spine    []spineItem
	info     Info
	warnings []string
}

// spineItem is an entry of the OPF spine resolved against the manifest.
type spineItem struct {
	ID        string
	Href      string
	MediaType string
	Linear    bool
}

// Open opens an ePub file at the given path.
// The caller must call Close when done with the book.
func Open(path string) (*Book, error) {
	zrc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("epubclean: open %s: %w", path, err)
	}

	b, err := initBook(&zrc.Reader, zrc)
	if err != nil {
		zrc.Close()
		return nil, err
	}
	return b, nil
}

// NewReader creates a Book from an io.ReaderAt with the given size.
// The caller is responsible for the lifetime of r; Close only cleans
// up internal state.
func NewReader(r io.ReaderAt, size int64) (*Book, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("epubclean: open zip: %w", err)
	}
	return initBook(zr, nil)
}

// initBook validates the mimetype, rejects DRM-protected books and reads
// the spine from the package file.
func initBook(zr *zip.Reader, closer io.Closer) (*Book, error) {
	b := &Book{
		zip:    zr,
		closer: closer,
	}
	b.buildZipIndex()
	b.validateMimetype()

	opfPath, err := locatePackage(zr)
	if err != nil {
		return nil, err
	}
	b.opfPath = opfPath
	b.opfDir = path.Dir(opfPath)

	enc, err := inspectEncryption(zr)
	if err != nil {
		return nil, err
	}
	if len(enc.obfuscatedFonts) > 0 {
		b.warn(fmt.Sprintf("%d obfuscated font(s) will be copied unchanged", len(enc.obfuscatedFonts)))
	}

	opfFile := b.findFile(opfPath)
	if opfFile == nil {
		return nil, fmt.Errorf("epubclean: OPF file not found in archive: %s: %w", opfPath, ErrInvalidEPub)
	}
	opfData, err := readZipFile(opfFile)
	if err != nil {
		return nil, fmt.Errorf("epubclean: read OPF file: %w", err)
	}
	pkg, err := parseOPF(opfData)
	if err != nil {
		return nil, err
	}
	b.spine = buildSpine(pkg, b.warn)
	b.info = extractInfo(pkg)
	return b, nil
}

func (b *Book) warn(msg string) {
	b.warnings = append(b.warnings, msg)
}

// validateMimetype checks that the first ZIP entry is named "mimetype" and
// contains "application/epub+zip". Deviations are recorded as warnings;
// Rewrite always writes a correct mimetype entry.
func (b *Book) validateMimetype() {
	if len(b.zip.File) == 0 {
		b.warn("empty ZIP archive; mimetype entry missing")
		return
	}
	first := b.zip.File[0]
	if first.Name != "mimetype" {
		b.warn("first ZIP entry is not \"mimetype\"")
		return
	}
	data, err := readZipFile(first)
	if err != nil {
		b.warn(fmt.Sprintf("cannot read mimetype entry: %v", err))
		return
	}
	if strings.TrimSpace(string(data)) != expectedMimetype {
		b.warn(fmt.Sprintf("unexpected mimetype: %q", string(data)))
	}
}

// Close releases resources held by the Book. When the Book was created via
// Open, Close closes the underlying file. Close is idempotent.
func (b *Book) Close() error {
	if b.closer != nil {
		err := b.closer.Close()
		b.closer = nil
		return err
	}
	return nil
}

// ReadFile reads a file from the ePub archive by its ZIP-internal path.
// The lookup is case-insensitive as a fallback.
func (b *Book) ReadFile(name string) ([]byte, error) {
	f := b.findFile(name)
	if f == nil {
		return nil, fmt.Errorf("%s: %w", name, ErrFileNotFound)
	}
	return readZipFile(f)
}

// Warnings returns the non-fatal problems found while reading the book.
func (b *Book) Warnings() []string {
	return append([]string(nil), b.warnings...)
}

// PackagePath returns the ZIP-internal path of the OPF package file.
func (b *Book) PackagePath() string {
	return b.opfPath
}

// Documents reads the XHTML content documents in spine (reading) order.
// Document names are ZIP-internal paths. Spine entries that are not XHTML,
// appear twice, or are missing from the archive are skipped with a warning.
func (b *Book) Documents() ([]Document, error) {
	docs := make([]Document, 0, len(b.spine))
	seen := make(map[string]bool, len(b.spine))
	for _, si := range b.spine {
		if !contentMediaTypes[si.MediaType] {
			continue
		}
		name := resolveOPFPath(b.opfDir, si.Href)
		if name == "" {
			b.warn(fmt.Sprintf("spine item %q has an unsafe href %q", si.ID, si.Href))
			continue
		}
		f := b.findFile(name)
		if f == nil {
			b.warn(fmt.Sprintf("spine item %q: %s missing from archive", si.ID, name))
			continue
		}
		if seen[f.Name] {
			continue
		}
		seen[f.Name] = true

		data, err := readZipFile(f)
		if err != nil {
			return nil, err
		}
		docs = append(docs, Document{Name: f.Name, Markup: data})
	}
	return docs, nil
}

// buildZipIndex builds exact-match and lowercase ZIP file indexes for O(1) lookups.
func (b *Book) buildZipIndex() {
	b.zipExact = make(map[string]*zip.File, len(b.zip.File))
	b.zipLower = make(map[string]*zip.File, len(b.zip.File))
	for _, f := range b.zip.File {
		if _, exists := b.zipExact[f.Name]; !exists {
			b.zipExact[f.Name] = f
		}
		lower := strings.ToLower(f.Name)
		if _, exists := b.zipLower[lower]; !exists {
			b.zipLower[lower] = f
		}
	}
}

// findFile looks up a ZIP entry by path using the pre-built index.
// It tries an exact match first, then falls back to a case-insensitive match.
func (b *Book) findFile(name string) *zip.File {
	if f, ok := b.zipExact[name]; ok {
		return f
	}
	if f, ok := b.zipLower[strings.ToLower(name)]; ok {
		return f
	}
	return nil
}

// FindDocument returns the index of the document called name, or -1.
// It matches the full path first, then case-insensitively, then by base
// name when that is unambiguous.
func FindDocument(docs []Document, name string) int {
	for i, d := range docs {
		if d.Name == name {
			return i
		}
	}
	for i, d := range docs {
		if strings.EqualFold(d.Name, name) {
			return i
		}
	}
	found := -1
	for i, d := range docs {
		if strings.EqualFold(path.Base(d.Name), path.Base(name)) {
			if found >= 0 {
				return -1
			}
			found = i
		}
	}
	return found
}
