package epubclean

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

// opfPackage represents the root <package> element of an OPF file. Only the
// parts needed to find content documents in reading order and to label the
// book are decoded.
type opfPackage struct {
	XMLName  xml.Name    `xml:"package"`
	Version  string      `xml:"version,attr"`
	Metadata opfMetadata `xml:"metadata"`
	Manifest opfManifest `xml:"manifest"`
	Spine    opfSpine    `xml:"spine"`
}

// opfMetadata holds the Dublin Core elements used by Info.
type opfMetadata struct {
	Titles    []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ title"`
	Creators  []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ creator"`
	Languages []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ language"`
	Metas     []opfMeta      `xml:"meta"`
}

// opfDCElement is a Dublin Core element. ePub 2 sets the role as an
// opf:role attribute, ePub 3 through a refining <meta>.
type opfDCElement struct {
	Value string `xml:",chardata"`
	ID    string `xml:"id,attr"`
	Role  string `xml:"role,attr"`
}

// opfMeta is an ePub 3 <meta property="..." refines="#id">value</meta>.
type opfMeta struct {
	Property string `xml:"property,attr"`
	Refines  string `xml:"refines,attr"`
	Value    string `xml:",chardata"`
}

// opfManifest wraps the <manifest> element.
type opfManifest struct {
	Items []opfManifestItem `xml:"item"`
}

// opfManifestItem represents a single <item> in the manifest.
type opfManifestItem struct {
	ID        string `xml:"id,attr"`
	Href      string `xml:"href,attr"`
	MediaType string `xml:"media-type,attr"`
}

// opfSpine wraps the <spine> element.
type opfSpine struct {
	ItemRefs []opfSpineItemRef `xml:"itemref"`
}

// opfSpineItemRef represents a single <itemref> in the spine.
type opfSpineItemRef struct {
	IDRef  string `xml:"idref,attr"`
	Linear string `xml:"linear,attr"`
}

// contentMediaTypes are the manifest media types of content documents.
var contentMediaTypes = map[string]bool{
	"application/xhtml+xml": true,
	"text/html":             true,
}

// decodeXML unmarshals data into v, accepting HTML named entities that
// ePub authoring tools leave in package files.
func decodeXML(data []byte, v any) error {
	d := xml.NewDecoder(bytes.NewReader(stripBOM(data)))
	d.Entity = xml.HTMLEntity
	d.CharsetReader = utf8CharsetReader
	return d.Decode(v)
}

// parseOPF parses the OPF file content and returns the parsed package structure.
func parseOPF(data []byte) (*opfPackage, error) {
	var pkg opfPackage
	if err := decodeXML(data, &pkg); err != nil {
		return nil, fmt.Errorf("epubclean: parse OPF: %w", err)
	}
	if pkg.Version == "" {
		pkg.Version = "2.0"
	}
	return &pkg, nil
}

// buildSpine resolves spine itemrefs against the manifest. Itemrefs that
// point nowhere are reported through warn and skipped.
func buildSpine(pkg *opfPackage, warn func(string)) []spineItem {
	byID := make(map[string]opfManifestItem, len(pkg.Manifest.Items))
	for _, item := range pkg.Manifest.Items {
		byID[item.ID] = item
	}

	items := make([]spineItem, 0, len(pkg.Spine.ItemRefs))
	for _, ref := range pkg.Spine.ItemRefs {
		mi, ok := byID[ref.IDRef]
		if !ok {
			warn(fmt.Sprintf("spine itemref %q has no manifest item", ref.IDRef))
			continue
		}
		items = append(items, spineItem{
			ID:        mi.ID,
			Href:      mi.Href,
			MediaType: strings.ToLower(strings.TrimSpace(mi.MediaType)),
			Linear:    ref.Linear != "no",
		})
	}
	return items
}
