package epubclean

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// validContainerXML is a well-formed META-INF/container.xml pointing to an OPF.
const validContainerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

// xhtmlDoc wraps body in a complete XHTML content document.
func xhtmlDoc(body string) string {
	return `<?xml version="1.0" encoding="utf-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>Test</title></head>
<body>` + body + `</body>
</html>
`
}

// mustParse parses markup or fails the test.
func mustParse(t *testing.T, markup string) *Node {
	t.Helper()
	root, err := Parse([]byte(markup))
	if err != nil {
		t.Fatalf("Parse(%q) error: %v", markup, err)
	}
	return root
}

// mustRender renders n or fails the test.
func mustRender(t *testing.T, n *Node) string {
	t.Helper()
	s, err := RenderString(n)
	if err != nil {
		t.Fatalf("RenderString() error: %v", err)
	}
	return s
}

// testEntry is a single ZIP entry. Entries are written in slice order.
type testEntry struct {
	name    string
	content string
	method  uint16
}

// bookEntries returns the entries of a valid ePub whose spine lists the
// given OEBPS-relative documents, each wrapped with xhtmlDoc.
func bookEntries(docs ...string) []testEntry {
	var manifest, spine strings.Builder
	for i := 0; i+1 < len(docs); i += 2 {
		fmt.Fprintf(&manifest, "\n    <item id=\"d%d\" href=\"%s\" media-type=\"application/xhtml+xml\"/>", i/2, docs[i])
		fmt.Fprintf(&spine, "\n    <itemref idref=\"d%d\"/>", i/2)
	}
	entries := []testEntry{
		{name: "mimetype", content: "application/epub+zip", method: zip.Store},
		{name: "META-INF/container.xml", content: validContainerXML, method: zip.Deflate},
		{name: "OEBPS/content.opf", method: zip.Deflate, content: `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/"><dc:title>Test</dc:title></metadata>
  <manifest>` + manifest.String() + `
    <item id="css" href="style.css" media-type="text/css"/>
  </manifest>
  <spine>` + spine.String() + `
  </spine>
</package>`},
		{name: "OEBPS/style.css", content: "p { margin: 0 }", method: zip.Deflate},
	}
	for i := 0; i+1 < len(docs); i += 2 {
		entries = append(entries, testEntry{name: "OEBPS/" + docs[i], content: xhtmlDoc(docs[i+1]), method: zip.Deflate})
	}
	return entries
}

// buildEntries writes entries into an in-memory ZIP archive.
func buildEntries(t testing.TB, entries []testEntry) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	for _, e := range entries {
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: e.name, Method: e.method})
		if err != nil {
			t.Fatalf("buildEntries: create %s: %v", e.name, err)
		}
		if _, err := io.WriteString(fw, e.content); err != nil {
			t.Fatalf("buildEntries: write %s: %v", e.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("buildEntries: close writer: %v", err)
	}
	return buf.Bytes()
}

// writeTestFile writes data to a temporary file and returns its path.
func writeTestFile(t *testing.T, data []byte) string {
	t.Helper()
	fp := filepath.Join(t.TempDir(), "test.epub")
	if err := os.WriteFile(fp, data, 0644); err != nil {
		t.Fatalf("writeTestFile: %v", err)
	}
	return fp
}

// buildTestZip creates an in-memory ZIP archive from the provided files map
// (path → content) and returns a *zip.Reader over the resulting bytes.
func buildTestZip(t *testing.T, files map[string]string) *zip.Reader {
	t.Helper()
	data := buildTestEPubBytes(t, files)
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("buildTestZip: open reader: %v", err)
	}
	return r
}

// buildTestEPubBytes creates an in-memory ZIP archive with "mimetype" as
// the first entry when present.
func buildTestEPubBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var entries []testEntry
	if mt, ok := files["mimetype"]; ok {
		entries = append(entries, testEntry{name: "mimetype", content: mt, method: zip.Store})
	}
	for name, content := range files {
		if name != "mimetype" {
			entries = append(entries, testEntry{name: name, content: content, method: zip.Deflate})
		}
	}
	return buildEntries(t, entries)
}

// buildTestEPubFile writes the files to a temporary ePub and returns its path.
func buildTestEPubFile(t *testing.T, files map[string]string) string {
	t.Helper()
	return writeTestFile(t, buildTestEPubBytes(t, files))
}

// readZipEntries returns the entry names and contents of a ZIP archive in
// archive order.
func readZipEntries(t *testing.T, data []byte) ([]*zip.File, map[string]string) {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("readZipEntries: %v", err)
	}
	contents := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("readZipEntries: open %s: %v", f.Name, err)
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("readZipEntries: read %s: %v", f.Name, err)
		}
		contents[f.Name] = string(b)
	}
	return zr.File, contents
}
