package epubclean

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// blockTags is the set of structural elements that end a style run and may
// never be merged with their siblings.
var blockTags = map[atom.Atom]bool{
	atom.Address:    true,
	atom.Article:    true,
	atom.Aside:      true,
	atom.Blockquote: true,
	atom.Body:       true,
	atom.Caption:    true,
	atom.Dd:         true,
	atom.Details:    true,
	atom.Div:        true,
	atom.Dl:         true,
	atom.Dt:         true,
	atom.Fieldset:   true,
	atom.Figcaption: true,
	atom.Figure:     true,
	atom.Footer:     true,
	atom.Form:       true,
	atom.H1:         true,
	atom.H2:         true,
	atom.H3:         true,
	atom.H4:         true,
	atom.H5:         true,
	atom.H6:         true,
	atom.Head:       true,
	atom.Header:     true,
	atom.Hr:         true,
	atom.Html:       true,
	atom.Li:         true,
	atom.Main:       true,
	atom.Nav:        true,
	atom.Ol:         true,
	atom.P:          true,
	atom.Pre:        true,
	atom.Section:    true,
	atom.Table:      true,
	atom.Tbody:      true,
	atom.Td:         true,
	atom.Tfoot:      true,
	atom.Th:         true,
	atom.Thead:      true,
	atom.Tr:         true,
	atom.Ul:         true,
}

// embeddedTags is the set of elements that carry content without text.
// A heading marker holding any of them is not blank.
var embeddedTags = map[atom.Atom]bool{
	atom.Audio:  true,
	atom.Canvas: true,
	atom.Embed:  true,
	atom.Hr:     true,
	atom.Iframe: true,
	atom.Image:  true,
	atom.Img:    true,
	atom.Math:   true,
	atom.Object: true,
	atom.Svg:    true,
	atom.Table:  true,
	atom.Video:  true,
}

// voidTags is the set of elements that never have content.
var voidTags = map[atom.Atom]bool{
	atom.Area:   true,
	atom.Base:   true,
	atom.Br:     true,
	atom.Col:    true,
	atom.Embed:  true,
	atom.Hr:     true,
	atom.Img:    true,
	atom.Input:  true,
	atom.Link:   true,
	atom.Meta:   true,
	atom.Param:  true,
	atom.Source: true,
	atom.Track:  true,
	atom.Wbr:    true,
}

// skipTags is the set of tags whose content should be skipped during text extraction.
var skipTags = map[atom.Atom]bool{
	atom.Head:   true,
	atom.Script: true,
	atom.Style:  true,
}

func tagAtom(n *Node) atom.Atom {
	return atom.Lookup([]byte(strings.ToLower(n.LocalName())))
}

func isBlockElement(n *Node) bool {
	return n.Type == ElementNode && blockTags[tagAtom(n)]
}

func isVoidElement(n *Node) bool {
	return n.Type == ElementNode && voidTags[tagAtom(n)]
}

func isEmbeddedElement(n *Node) bool {
	return n.Type == ElementNode && embeddedTags[tagAtom(n)]
}

// hasBlockDescendant reports whether any element below n is block-level.
func hasBlockDescendant(n *Node) bool {
	for _, c := range n.Children {
		if c.Type != ElementNode {
			continue
		}
		if isBlockElement(c) || hasBlockDescendant(c) {
			return true
		}
	}
	return false
}

// hasEmbeddedContent reports whether n or a descendant is an embedded
// content element such as an image.
func hasEmbeddedContent(n *Node) bool {
	if isEmbeddedElement(n) {
		return true
	}
	for _, c := range n.Children {
		if hasEmbeddedContent(c) {
			return true
		}
	}
	return false
}

// extractText extracts the plain text content from HTML data with the
// lenient HTML tokenizer, so it also works on documents Parse rejects.
// Block-level elements produce line breaks. The document head and content
// inside <script> and <style> tags are skipped.
func extractText(htmlData []byte) (string, error) {
	tokenizer := html.NewTokenizer(bytes.NewReader(htmlData))

	var buf strings.Builder
	skipDepth := 0
	lastWasNewline := true

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			err := tokenizer.Err()
			if errors.Is(err, io.EOF) {
				return strings.TrimSpace(buf.String()), nil
			}
			return "", err

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, _ := tokenizer.TagName()
			a := atom.Lookup(tn)
			if tt == html.StartTagToken && skipTags[a] {
				skipDepth++
				continue
			}
			if skipDepth > 0 {
				continue
			}
			if blockTags[a] || a == atom.Br {
				if buf.Len() > 0 && !lastWasNewline {
					buf.WriteByte('\n')
					lastWasNewline = true
				}
			}

		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			if skipTags[atom.Lookup(tn)] && skipDepth > 0 {
				skipDepth--
			}

		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			text := collapseWhitespace(string(tokenizer.Text()))
			if text != "" {
				buf.WriteString(text)
				lastWasNewline = strings.HasSuffix(text, "\n")
			}
		}
	}
}

// collapseWhitespace replaces runs of whitespace characters (spaces, tabs,
// newlines) with a single space. Returns empty string if the input is all whitespace.
// Leading and trailing whitespace is preserved as a single space so that
// inter-element spacing (e.g., between inline tags) is maintained.
func collapseWhitespace(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	result := strings.Join(fields, " ")
	if isWhitespace(rune(s[0])) {
		result = " " + result
	}
	if isWhitespace(rune(s[len(s)-1])) {
		result += " "
	}
	return result
}

// isWhitespace returns true if r is a whitespace character.
func isWhitespace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// lenientFirstBodyText returns the text of the first element inside <body>
// using the forgiving HTML parser. It backs start-number detection for
// documents that are not well-formed XML.
func lenientFirstBodyText(data []byte) (string, bool) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", false
	}
	body := findHTMLElement(doc, atom.Body)
	if body == nil {
		return "", false
	}
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return strings.TrimSpace(htmlTextContent(c)), true
		}
		if c.Type == html.TextNode && strings.TrimSpace(c.Data) != "" {
			return strings.TrimSpace(c.Data), true
		}
	}
	return "", false
}

// findHTMLElement performs a depth-first search for a node with the given atom tag.
func findHTMLElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if result := findHTMLElement(c, a); result != nil {
			return result
		}
	}
	return nil
}

func htmlTextContent(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return buf.String()
}

// TextPreview returns up to max runes of a document's plain text on one
// line. It works on malformed documents too.
func TextPreview(markup []byte, max int) string {
	text, err := extractText(markup)
	if err != nil {
		return ""
	}
	text = strings.Join(strings.Fields(text), " ")
	if r := []rune(text); max > 0 && len(r) > max {
		return string(r[:max]) + "…"
	}
	return text
}
