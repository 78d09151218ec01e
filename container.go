package epubclean

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"strings"
)

// containerXML models the META-INF/container.xml file used to locate the OPF.
type containerXML struct {
	XMLName   xml.Name   `xml:"container"`
	RootFiles []rootFile `xml:"rootfiles>rootfile"`
}

// rootFile represents a single <rootfile> element inside container.xml.
type rootFile struct {
	FullPath  string `xml:"full-path,attr"`
	MediaType string `xml:"media-type,attr"`
}

const (
	containerPath  = "META-INF/container.xml"
	opfContentType = "application/oebps-package+xml"
)

// locatePackage finds the OPF path of the book: the first package rootfile
// listed in META-INF/container.xml, or, without a container file, the first
// ".opf" entry of the archive.
func locatePackage(zr *zip.Reader) (string, error) {
	f := findFileInsensitive(zr, containerPath)
	if f == nil {
		for _, f := range zr.File {
			if strings.HasSuffix(strings.ToLower(f.Name), ".opf") {
				return f.Name, nil
			}
		}
		return "", fmt.Errorf("epubclean: no OPF file found in archive: %w", ErrInvalidEPub)
	}

	data, err := readZipFile(f)
	if err != nil {
		return "", fmt.Errorf("epubclean: read container.xml: %w", err)
	}
	var c containerXML
	if err := decodeXML(data, &c); err != nil {
		return "", fmt.Errorf("epubclean: parse container.xml: %w", err)
	}

	var first string
	for _, rf := range c.RootFiles {
		p := strings.TrimSpace(rf.FullPath)
		if p == "" {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(rf.MediaType), opfContentType) {
			return p, nil
		}
		if first == "" {
			first = p
		}
	}
	if first == "" {
		return "", fmt.Errorf("epubclean: container.xml names no package file: %w", ErrInvalidEPub)
	}
	return first, nil
}
