package epubclean

import (
	"sort"
	"strconv"
	"strings"
)

// Info labels a book in listings and logs.
type Info struct {
	// Title is the main title: the first dc:title, or the one with the
	// lowest display-seq in ePub 3.
	Title string

	// Authors lists dc:creator names whose role is "aut" or unset.
	Authors []string

	// Language is the first dc:language.
	Language string

	// Version is the package version, "2.0" when the OPF omits it.
	Version string
}

// Info returns the book's descriptive metadata.
func (b *Book) Info() Info {
	return b.info
}

func extractInfo(pkg *opfPackage) Info {
	info := Info{Version: pkg.Version}
	md := &pkg.Metadata
	refines := buildRefinesMap(md.Metas)

	info.Title = mainTitle(md.Titles, refines)

	for _, c := range md.Creators {
		name := strings.TrimSpace(c.Value)
		if name == "" {
			continue
		}
		role := c.Role
		if role == "" && c.ID != "" {
			role, _ = findRefine(refines, c.ID, "role")
		}
		if role == "" || role == "aut" {
			info.Authors = append(info.Authors, name)
		}
	}

	for _, l := range md.Languages {
		if v := strings.TrimSpace(l.Value); v != "" {
			info.Language = v
			break
		}
	}
	return info
}

// buildRefinesMap maps an element id (without "#") to the metas refining it.
func buildRefinesMap(metas []opfMeta) map[string][]opfMeta {
	m := make(map[string][]opfMeta)
	for _, meta := range metas {
		if id, ok := strings.CutPrefix(meta.Refines, "#"); ok && id != "" {
			m[id] = append(m[id], meta)
		}
	}
	return m
}

func findRefine(refines map[string][]opfMeta, id, property string) (string, bool) {
	for _, m := range refines[id] {
		if m.Property == property {
			if v := strings.TrimSpace(m.Value); v != "" {
				return v, true
			}
		}
	}
	return "", false
}

// mainTitle picks the title to display. Titles with a display-seq sort
// before those without; ties keep document order.
func mainTitle(titles []opfDCElement, refines map[string][]opfMeta) string {
	type entry struct {
		value string
		seq   int
	}
	var entries []entry
	for _, t := range titles {
		v := strings.TrimSpace(t.Value)
		if v == "" {
			continue
		}
		e := entry{value: v}
		if s, ok := findRefine(refines, t.ID, "display-seq"); ok && t.ID != "" {
			if n, err := strconv.Atoi(s); err == nil && n > 0 {
				e.seq = n
			}
		}
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		return ""
	}
	sort.SliceStable(entries, func(i, j int) bool {
		si, sj := entries[i].seq, entries[j].seq
		switch {
		case si == 0:
			return false
		case sj == 0:
			return true
		}
		return si < sj
	})
	return entries[0].value
}
