package main

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type testDoc struct {
	name string // relative to OEBPS/
	body string
}

// writeTestBook writes a minimal ePub holding docs in spine order and
// returns its path.
func writeTestBook(t *testing.T, docs ...testDoc) string {
	t.Helper()
	var manifest, spine strings.Builder
	for i, d := range docs {
		fmt.Fprintf(&manifest, `<item id="d%d" href="%s" media-type="application/xhtml+xml"/>`, i, d.name)
		fmt.Fprintf(&spine, `<itemref idref="d%d"/>`, i)
	}

	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	write := func(name, content string, method uint16) {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: method})
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	write("mimetype", "application/epub+zip", zip.Store)
	write("META-INF/container.xml", `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles><rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/></rootfiles>
</container>`, zip.Deflate)
	write("OEBPS/content.opf", `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Test Book</dc:title>
    <dc:creator>A. Writer</dc:creator>
  </metadata>
  <manifest>`+manifest.String()+`</manifest>
  <spine>`+spine.String()+`</spine>
</package>`, zip.Deflate)
	for _, d := range docs {
		write("OEBPS/"+d.name, xhtml(d.body), zip.Deflate)
	}
	require.NoError(t, zw.Close())

	path := filepath.Join(t.TempDir(), "book.epub")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func xhtml(body string) string {
	return `<?xml version="1.0" encoding="utf-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><head><title>t</title></head>
<body>` + body + `</body></html>`
}

// readEntry returns one entry of the ePub at path.
func readEntry(t *testing.T, path, name string) string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			require.NoError(t, err)
			defer rc.Close()
			var b bytes.Buffer
			_, err = b.ReadFrom(rc)
			require.NoError(t, err)
			return b.String()
		}
	}
	t.Fatalf("entry %s not found in %s", name, path)
	return ""
}

// execute runs the command line args against a fresh root command with
// preferences kept in a temporary directory.
func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	prefsPath := filepath.Join(t.TempDir(), "prefs.toml")
	return executeWithPrefs(t, prefsPath, args...)
}

func executeWithPrefs(t *testing.T, prefsPath string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	out, errBuf := new(bytes.Buffer), new(bytes.Buffer)
	root := newRootCmd()
	root.SetOut(out)
	root.SetErr(errBuf)
	root.SetArgs(append([]string{"--prefs", prefsPath}, args...))
	err = root.Execute()
	return out.String(), errBuf.String(), err
}
