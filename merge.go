package epubclean

import (
	"sort"
	"strings"
)

// MergeStyleRuns collapses runs of adjacent sibling inline elements that
// share a tag, a style attribute and all other attributes into the first
// element of the run. It returns the number of elements removed.
//
// Whitespace-only text between run members is kept inside the merged
// element, with line breaks turned into a single space. Any other text or
// element ends the run, as does block-level content below a member.
// Merging is idempotent.
func MergeStyleRuns(root *Node) int {
	removed := 0
	mergeChildren(root, &removed)
	return removed
}

func mergeChildren(parent *Node, removed *int) {
	if len(parent.Children) > 1 {
		parent.Children = mergeLevel(parent.Children, removed)
	}
	for _, c := range parent.Children {
		if c.Type == ElementNode {
			mergeChildren(c, removed)
		}
	}
}

// mergeLevel merges style runs among one parent's children, left to right.
func mergeLevel(children []*Node, removed *int) []*Node {
	out := make([]*Node, 0, len(children))
	for i := 0; i < len(children); {
		first := children[i]
		if !styleRunCandidate(first) {
			out = append(out, first)
			i++
			continue
		}

		merged := append([]*Node(nil), first.Children...)
		last := i
		for {
			next := last + 1
			for next < len(children) && isWhitespaceText(children[next]) {
				next++
			}
			if next >= len(children) || !sameStyleRun(first, children[next]) {
				break
			}
			for _, sep := range children[last+1 : next] {
				merged = append(merged, normalizeSeparator(sep))
			}
			merged = append(merged, children[next].Children...)
			*removed++
			last = next
		}

		if last > i {
			first.Children = coalesceText(merged)
		}
		out = append(out, first)
		// Whitespace after the run's last member stays a sibling.
		i = last + 1
	}
	return out
}

// styleRunCandidate reports whether n may take part in a style run: an
// inline element holding text. Void and embedded elements carry no text to
// concatenate, so merging them would drop all but the first.
func styleRunCandidate(n *Node) bool {
	if n.Type != ElementNode || isBlockElement(n) || isVoidElement(n) || isEmbeddedElement(n) {
		return false
	}
	if _, ok := n.AttrVal("style"); !ok {
		return false
	}
	return !hasBlockDescendant(n)
}

// sameStyleRun reports whether b continues the run started by a.
func sameStyleRun(a, b *Node) bool {
	if !styleRunCandidate(b) || a.Data != b.Data {
		return false
	}
	sa, _ := a.AttrVal("style")
	sb, _ := b.AttrVal("style")
	if strings.TrimSpace(sa) != strings.TrimSpace(sb) {
		return false
	}
	return attrsEqual(otherAttrs(a), otherAttrs(b))
}

// otherAttrs returns the non-style attributes of n sorted by key.
func otherAttrs(n *Node) []Attribute {
	out := make([]Attribute, 0, len(n.Attr))
	for _, a := range n.Attr {
		if a.Key != "style" {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func isWhitespaceText(n *Node) bool {
	return n.Type == TextNode && strings.TrimSpace(n.Data) == ""
}

// normalizeSeparator turns whitespace containing a line break into a single
// space; hard returns have no effect on rendering.
func normalizeSeparator(n *Node) *Node {
	if !strings.ContainsAny(n.Data, "\r\n") {
		return n
	}
	return NewText(" ")
}

// coalesceText joins adjacent text nodes. Joined nodes that were both
// untouched keep their combined source bytes.
func coalesceText(nodes []*Node) []*Node {
	out := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		if n.Type == TextNode && len(out) > 0 && out[len(out)-1].Type == TextNode {
			prev := out[len(out)-1]
			joined := &Node{Type: TextNode, Data: prev.Data + n.Data}
			if prev.pristine() && n.pristine() {
				joined.src = &nodeSource{data: joined.Data, start: prev.src.start + n.src.start}
			}
			out[len(out)-1] = joined
			continue
		}
		out = append(out, n)
	}
	return out
}
