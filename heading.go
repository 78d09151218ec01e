package epubclean

import (
	"path"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MarkerKind classifies the first substantive child of a document body.
type MarkerKind int

const (
	// MarkerNone means the document has no body or an empty body.
	MarkerNone MarkerKind = iota
	// MarkerBlank is an element without text or embedded content that
	// can hold text, i.e. not a void element such as <br/>.
	MarkerBlank
	// MarkerExistingHeading is text that already reads like "Chapter 3".
	MarkerExistingHeading
	// MarkerOther is any other content.
	MarkerOther
)

func (k MarkerKind) String() string {
	switch k {
	case MarkerNone:
		return "none"
	case MarkerBlank:
		return "blank"
	case MarkerExistingHeading:
		return "heading"
	case MarkerOther:
		return "other"
	}
	return "MarkerKind(" + strconv.Itoa(int(k)) + ")"
}

// Marker is the heading insertion point of a document.
type Marker struct {
	Kind MarkerKind

	// Node is the marker itself: an element, or a text node when the body
	// starts with bare text. Nil for MarkerNone.
	Node *Node

	// Body is the body element and Index the marker's position among its
	// children.
	Body  *Node
	Index int

	// Number and Style describe the number of an existing heading.
	Number int
	Style  Style

	// start and end delimit the matched heading in the marker's text.
	start, end int
}

// DetectMarker locates and classifies the heading marker of a parsed
// document: the first child of <body> that is not whitespace-only text, a
// comment or a processing instruction.
func DetectMarker(root *Node, cfg NumberingConfig) Marker {
	body := findElement(root, "body")
	if body == nil {
		return Marker{Kind: MarkerNone}
	}
	for i, c := range body.Children {
		switch c.Type {
		case CommentNode, ProcInstNode, DirectiveNode:
			continue
		case TextNode:
			if strings.TrimSpace(c.Data) == "" {
				continue
			}
		}
		m := Marker{Node: c, Body: body, Index: i}
		classify(&m, cfg)
		return m
	}
	return Marker{Kind: MarkerNone, Body: body}
}

func classify(m *Marker, cfg NumberingConfig) {
	if isVoidElement(m.Node) {
		m.Kind = MarkerOther
		return
	}
	text := m.Node.TextContent()
	if strings.TrimSpace(text) == "" && !hasEmbeddedContent(m.Node) {
		m.Kind = MarkerBlank
		return
	}
	if h, ok := matchHeading(text, cfg); ok {
		m.Kind = MarkerExistingHeading
		m.Number = h.token.value
		m.Style = h.token.style
		m.start, m.end = h.start, h.end
		return
	}
	m.Kind = MarkerOther
}

// headingMatch locates a heading inside a text.
type headingMatch struct {
	start, end int
	token      numberToken
}

// matchHeading reports whether text, once trimmed, starts with the prefix,
// whitespace and a number in any supported style (the configured style is
// tried first). The match covers the prefix, the number and, when present
// right after the number, the configured trailing text.
func matchHeading(text string, cfg NumberingConfig) (headingMatch, bool) {
	if cfg.Prefix == "" {
		return headingMatch{}, false
	}
	start := len(text) - len(strings.TrimLeftFunc(text, unicode.IsSpace))
	rest := text[start:]
	if !strings.HasPrefix(rest, cfg.Prefix) {
		return headingMatch{}, false
	}
	pos := start + len(cfg.Prefix)
	ws := 0
	for pos+ws < len(text) {
		r, size := utf8.DecodeRuneInString(text[pos+ws:])
		if !unicode.IsSpace(r) {
			break
		}
		ws += size
	}
	if ws == 0 {
		return headingMatch{}, false
	}
	pos += ws

	tok, ok := scanNumber(text[pos:], cfg.stylesFor()...)
	if !ok {
		return headingMatch{}, false
	}
	end := pos + len(tok.text)
	if cfg.Trailing != "" {
		after := text[end:]
		trimmed := strings.TrimLeftFunc(after, unicode.IsSpace)
		if len(trimmed) < len(after) && strings.HasPrefix(trimmed, cfg.Trailing) {
			end += len(after) - len(trimmed) + len(cfg.Trailing)
		}
	}
	return headingMatch{start: start, end: end, token: tok}, true
}

// MatchHeading reports the chapter number of text when it reads as an
// existing heading for cfg's prefix.
func MatchHeading(text string, cfg NumberingConfig) (int, bool) {
	h, ok := matchHeading(text, cfg)
	if !ok {
		return 0, false
	}
	return h.token.value, true
}

// ApplyHeading renders the heading for chapter number into the document:
// blank markers are filled, existing headings renumbered, and, when
// cfg.InsertIfNotBlank is set, a new heading is inserted before any other
// marker. It reports whether a heading was rendered.
func ApplyHeading(root *Node, cfg NumberingConfig, number int) (Marker, bool, error) {
	m := DetectMarker(root, cfg)
	switch m.Kind {
	case MarkerNone:
		return m, false, nil
	case MarkerOther:
		if !cfg.InsertIfNotBlank {
			return m, false, nil
		}
	}

	text, err := cfg.Heading(number)
	if err != nil {
		return m, false, err
	}

	switch m.Kind {
	case MarkerBlank:
		m.Node.SetText(text)
	case MarkerExistingHeading:
		renumber(m, text)
	case MarkerOther:
		insertHeading(m, text)
	}
	return m, true, nil
}

// renumber replaces the matched heading. When the match lies inside one
// text node only that range changes and the surrounding markup survives;
// otherwise the marker's whole content is replaced.
func renumber(m Marker, heading string) {
	if m.Node.Type == TextNode {
		m.Node.Data = m.Node.Data[:m.start] + heading + m.Node.Data[m.end:]
		return
	}
	offset := 0
	for _, t := range textNodes(m.Node, nil) {
		next := offset + len(t.Data)
		if offset <= m.start && m.end <= next {
			t.Data = t.Data[:m.start-offset] + heading + t.Data[m.end-offset:]
			return
		}
		offset = next
	}
	m.Node.SetText(heading)
}

// textNodes collects the text descendants of n in document order, the same
// nodes TextContent concatenates.
func textNodes(n *Node, out []*Node) []*Node {
	for _, c := range n.Children {
		switch c.Type {
		case TextNode:
			out = append(out, c)
		case ElementNode:
			out = textNodes(c, out)
		}
	}
	return out
}

// insertHeading places a new element holding heading right before the
// marker. The element copies the marker's tag; bare text and void elements
// get a <p>.
func insertHeading(m Marker, heading string) {
	name := "p"
	if m.Node.Type == ElementNode && !isVoidElement(m.Node) && !isEmbeddedElement(m.Node) {
		name = m.Node.Data
	}
	el := NewElement(name)
	el.SetText(heading)

	inserted := []*Node{el}
	// Repeat the indentation in front of the marker so the new element sits
	// on its own line.
	if m.Index > 0 {
		if prev := m.Body.Children[m.Index-1]; isWhitespaceText(prev) {
			inserted = append(inserted, NewText(prev.Data))
		}
	}

	children := make([]*Node, 0, len(m.Body.Children)+len(inserted))
	children = append(children, m.Body.Children[:m.Index]...)
	children = append(children, inserted...)
	children = append(children, m.Body.Children[m.Index:]...)
	m.Body.Children = children
}

// DetectStartNumber guesses the first chapter number of a run from the
// first document in heading scope: the last run of digits in its file name,
// then the number of an existing heading at its start, then 1.
//
// The last digit run is used rather than the first so that names like
// "part2_chapter07.xhtml" yield 7, not the part number.
func DetectStartNumber(doc Document, cfg NumberingConfig) int {
	if n := numberFromName(doc.Name); n > 0 {
		return n
	}
	if n := numberFromHeading(doc.Markup, cfg); n > 0 {
		return n
	}
	return 1
}

func numberFromName(name string) int {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	end := -1
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] >= '0' && base[i] <= '9' {
			end = i + 1
			break
		}
	}
	if end < 0 {
		return 0
	}
	start := end
	for start > 0 && base[start-1] >= '0' && base[start-1] <= '9' {
		start--
	}
	n, err := strconv.Atoi(base[start:end])
	if err != nil {
		return 0
	}
	return n
}

func numberFromHeading(markup []byte, cfg NumberingConfig) int {
	if root, err := Parse(markup); err == nil {
		if m := DetectMarker(root, cfg); m.Kind == MarkerExistingHeading {
			return m.Number
		}
		return 0
	}
	// Not well-formed; the forgiving HTML parser still finds the body.
	if text, ok := lenientFirstBodyText(markup); ok {
		if n, ok := MatchHeading(text, cfg); ok {
			return n
		}
	}
	return 0
}
