package epubclean

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// NodeType identifies the kind of a Node.
type NodeType uint8

const (
	// DocumentNode is the root of a parsed document. Its children are the
	// prolog (declaration, doctype, comments), the root element and any
	// whitespace around them.
	DocumentNode NodeType = iota
	ElementNode
	TextNode
	CommentNode
	ProcInstNode
	DirectiveNode
)

// Attribute is an element attribute. Key keeps its namespace prefix
// verbatim, e.g. "xml:lang" or "epub:type".
type Attribute struct {
	Key string
	Val string
}

// Node is a node of a parsed content document.
//
// Data holds the tag name (with prefix) for elements, the decoded text for
// text nodes, and the inner content for comments, processing instructions
// and directives. Children are ordered; nodes have no parent pointers.
type Node struct {
	Type     NodeType
	Data     string
	Attr     []Attribute
	Children []*Node

	src *nodeSource
}

// nodeSource remembers how a node looked in the parsed input. A node whose
// Data and Attr still match is rendered from these bytes verbatim.
type nodeSource struct {
	data        string
	attr        []Attribute
	start       string // start tag, text, or whole token
	end         string // end tag; empty for self-closing elements
	selfClosing bool
	bom         bool // DocumentNode only
}

// NewElement returns a detached element node.
func NewElement(name string, attr ...Attribute) *Node {
	return &Node{Type: ElementNode, Data: name, Attr: attr}
}

// NewText returns a detached text node.
func NewText(s string) *Node {
	return &Node{Type: TextNode, Data: s}
}

// LocalName returns the element name without its namespace prefix.
func (n *Node) LocalName() string {
	if i := strings.IndexByte(n.Data, ':'); i >= 0 {
		return n.Data[i+1:]
	}
	return n.Data
}

// AttrVal returns the value of the attribute with the given key.
func (n *Node) AttrVal(key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// TextContent returns the concatenated text of n and its descendants.
func (n *Node) TextContent() string {
	if n.Type == TextNode {
		return n.Data
	}
	var b strings.Builder
	n.writeText(&b)
	return b.String()
}

func (n *Node) writeText(b *strings.Builder) {
	for _, c := range n.Children {
		switch c.Type {
		case TextNode:
			b.WriteString(c.Data)
		case ElementNode:
			c.writeText(b)
		}
	}
}

// SetText replaces all children of n with a single text node.
func (n *Node) SetText(s string) {
	n.Children = []*Node{NewText(s)}
}

// pristine reports whether a text-like node still matches its source.
func (n *Node) pristine() bool {
	return n.src != nil && n.src.data == n.Data
}

// Equal reports whether a and b are structurally identical trees.
// Source positions are ignored.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Type != b.Type || a.Data != b.Data || !attrsEqual(a.Attr, b.Attr) || len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if !Equal(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}

func attrsEqual(a, b []Attribute) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Parse parses a content document into a tree. The input must be well-formed
// XML; HTML named entities such as &nbsp; are accepted. Malformed input
// yields an error wrapping ErrMalformedMarkup.
func Parse(markup []byte) (*Node, error) {
	bom := len(markup) >= 3 && markup[0] == 0xEF && markup[1] == 0xBB && markup[2] == 0xBF
	data := stripBOM(markup)

	d := xml.NewDecoder(bytes.NewReader(data))
	d.Strict = true
	d.Entity = xml.HTMLEntity
	d.CharsetReader = utf8CharsetReader

	doc := &Node{Type: DocumentNode, src: &nodeSource{bom: bom}}
	stack := []*Node{doc}
	sawRoot := false
	prev := int64(0)

	fail := func(off int64, err error) (*Node, error) {
		var se *xml.SyntaxError
		if errors.As(err, &se) {
			return nil, &MarkupError{Line: se.Line, Err: err}
		}
		return nil, &MarkupError{Line: lineAt(data, off), Err: err}
	}

	for {
		tok, err := d.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fail(prev, err)
		}
		cur := d.InputOffset()
		raw := string(data[prev:cur])
		top := stack[len(stack)-1]

		switch t := tok.(type) {
		case xml.StartElement:
			if top.Type == DocumentNode {
				if sawRoot {
					return fail(prev, fmt.Errorf("second root element <%s>", qualified(t.Name)))
				}
				sawRoot = true
			}
			el := &Node{Type: ElementNode, Data: qualified(t.Name)}
			for _, a := range t.Attr {
				el.Attr = append(el.Attr, Attribute{Key: qualified(a.Name), Val: a.Value})
			}
			el.src = &nodeSource{
				data:  el.Data,
				attr:  append([]Attribute(nil), el.Attr...),
				start: raw,
			}
			top.Children = append(top.Children, el)
			stack = append(stack, el)

		case xml.EndElement:
			name := qualified(t.Name)
			if top.Type != ElementNode {
				return fail(prev, fmt.Errorf("unexpected end tag </%s>", name))
			}
			if top.Data != name {
				return fail(prev, fmt.Errorf("end tag </%s> does not match <%s>", name, top.Data))
			}
			// A self-closing tag produces an end token that consumes no input.
			if raw == "" {
				top.src.selfClosing = true
			} else {
				top.src.end = raw
			}
			stack = stack[:len(stack)-1]

		case xml.CharData:
			text := string(t)
			if top.Type == DocumentNode && strings.TrimSpace(text) != "" {
				return fail(prev, errors.New("text outside the root element"))
			}
			top.Children = append(top.Children, &Node{
				Type: TextNode,
				Data: text,
				src:  &nodeSource{data: text, start: raw},
			})

		case xml.Comment:
			top.Children = append(top.Children, rawNode(CommentNode, string(t), raw))

		case xml.ProcInst:
			inst := t.Target
			if len(t.Inst) > 0 {
				inst += " " + string(t.Inst)
			}
			top.Children = append(top.Children, rawNode(ProcInstNode, inst, raw))

		case xml.Directive:
			top.Children = append(top.Children, rawNode(DirectiveNode, string(t), raw))
		}
		prev = cur
	}

	if len(stack) > 1 {
		return fail(prev, fmt.Errorf("unclosed element <%s>", stack[len(stack)-1].Data))
	}
	if !sawRoot {
		return fail(prev, errors.New("no root element"))
	}
	return doc, nil
}

func rawNode(typ NodeType, data, raw string) *Node {
	return &Node{Type: typ, Data: data, src: &nodeSource{data: data, start: raw}}
}

func qualified(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return name.Space + ":" + name.Local
}

// utf8CharsetReader accepts the encodings whose bytes are already valid
// UTF-8 input; anything else is reported as malformed.
func utf8CharsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "utf-8", "utf8", "us-ascii", "ascii":
		return input, nil
	}
	return nil, fmt.Errorf("unsupported encoding %q", label)
}

func lineAt(data []byte, off int64) int {
	if off > int64(len(data)) {
		off = int64(len(data))
	}
	return bytes.Count(data[:off], []byte{'\n'}) + 1
}

// Render writes the markup of n to w. Nodes that were not modified since
// Parse are written byte-for-byte as they appeared in the input; modified or
// new nodes are written in canonical form (double-quoted attributes,
// minimal escaping).
func Render(w io.Writer, n *Node) error {
	bw := &errWriter{w: w}
	render(bw, n)
	return bw.err
}

// RenderBytes renders n into a byte slice.
func RenderBytes(n *Node) ([]byte, error) {
	var buf bytes.Buffer
	if err := Render(&buf, n); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderString renders n into a string.
func RenderString(n *Node) (string, error) {
	b, err := RenderBytes(n)
	return string(b), err
}

type errWriter struct {
	w   io.Writer
	err error
}

// write appends s unless an earlier write failed.
func (e *errWriter) write(s string) {
	if e.err != nil || s == "" {
		return
	}
	_, e.err = io.WriteString(e.w, s)
}

func render(w *errWriter, n *Node) {
	switch n.Type {
	case DocumentNode:
		if n.src != nil && n.src.bom {
			w.write("\xEF\xBB\xBF")
		}
		for _, c := range n.Children {
			render(w, c)
		}
	case TextNode:
		if n.pristine() {
			w.write(n.src.start)
			return
		}
		w.write(escapeText(n.Data))
	case CommentNode:
		if n.pristine() {
			w.write(n.src.start)
			return
		}
		w.write("<!--" + n.Data + "-->")
	case ProcInstNode:
		if n.pristine() {
			w.write(n.src.start)
			return
		}
		w.write("<?" + n.Data + "?>")
	case DirectiveNode:
		if n.pristine() {
			w.write(n.src.start)
			return
		}
		w.write("<!" + n.Data + ">")
	case ElementNode:
		renderElement(w, n)
	default:
		if w.err == nil {
			w.err = fmt.Errorf("epubclean: cannot render node type %d", n.Type)
		}
	}
}

func renderElement(w *errWriter, n *Node) {
	src := n.src
	unchanged := src != nil && src.data == n.Data && attrsEqual(src.attr, n.Attr)
	selfClosing := src != nil && src.selfClosing

	if selfClosing && len(n.Children) == 0 {
		if unchanged {
			w.write(src.start)
		} else {
			w.write(startTag(n, true))
		}
		return
	}

	if unchanged && !selfClosing {
		w.write(src.start)
	} else {
		w.write(startTag(n, false))
	}
	for _, c := range n.Children {
		render(w, c)
	}
	if src != nil && src.end != "" && src.data == n.Data {
		w.write(src.end)
	} else {
		w.write("</" + n.Data + ">")
	}
}

func startTag(n *Node, empty bool) string {
	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(n.Data)
	for _, a := range n.Attr {
		b.WriteByte(' ')
		b.WriteString(a.Key)
		b.WriteString(`="`)
		b.WriteString(attrEscaper.Replace(a.Val))
		b.WriteByte('"')
	}
	if empty {
		b.WriteString("/>")
	} else {
		b.WriteByte('>')
	}
	return b.String()
}

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
)

func escapeText(s string) string {
	return textEscaper.Replace(s)
}

// findElement performs a depth-first search for an element with the given
// local name, ignoring namespace prefixes.
func findElement(n *Node, local string) *Node {
	if n.Type == ElementNode && strings.EqualFold(n.LocalName(), local) {
		return n
	}
	for _, c := range n.Children {
		if found := findElement(c, local); found != nil {
			return found
		}
	}
	return nil
}
