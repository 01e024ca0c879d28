// Package render turns prerendered pages into output files. Two
// renderers are provided: markdown pages (one file per page) and a
// single JSON dump of the whole documentation graph.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mvp-joe/luadox/internal/content"
	"github.com/mvp-joe/luadox/internal/prerender"
	"github.com/mvp-joe/luadox/internal/refs"
)

// linkPrefix is the scheme used by deferred reference links emitted
// during content resolution. Renderers rewrite these into final URLs.
const linkPrefix = "luadox:"

// pageFile returns the output filename for a page.
func pageFile(kind refs.Kind, name string) string {
	return fmt.Sprintf("%s_%s.md", kind, sanitizeName(name))
}

func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// anchor derives the fragment identifier for an entity name.
func anchor(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		case r == '.' || r == ':':
			b.WriteByte('-')
		}
	}
	return b.String()
}

// resolveLinks rewrites every deferred luadox: link in the text into a
// relative URL to the target's page and anchor. Identifiers that no
// longer resolve are left as plain text so broken links stay visible.
func resolveLinks(text string, res *prerender.Result) string {
	for {
		start := strings.Index(text, "("+linkPrefix)
		if start < 0 {
			return text
		}
		end := strings.Index(text[start:], ")")
		if end < 0 {
			return text
		}
		id := text[start+1+len(linkPrefix) : start+end]
		text = text[:start+1] + linkTarget(id, res) + text[start+end:]
	}
}

// linkTarget maps a stable identifier (kind#page#name) to a URL.
func linkTarget(id string, res *prerender.Result) string {
	parts := strings.SplitN(id, "#", 3)
	if len(parts) != 3 {
		return id
	}
	kind, page, name := refs.Kind(parts[0]), parts[1], parts[2]
	file := pageFile(kind, page)
	if ref, ok := res.Index[id]; ok && ref.Kind.IsPage() {
		return file
	}
	return file + "#" + anchor(name)
}

// ContentText flattens parsed content back into markdown.
func ContentText(c content.Content, res *prerender.Result) string {
	var b strings.Builder
	for _, frag := range c {
		switch v := frag.(type) {
		case *content.Markdown:
			b.WriteString(v.Text())
			b.WriteString("\n")
		case *content.Admonition:
			fmt.Fprintf(&b, "\n> **%s**\n", v.Title)
			body := ContentText(v.Body, res)
			for _, line := range strings.Split(strings.TrimRight(body, "\n"), "\n") {
				b.WriteString("> " + line + "\n")
			}
		case *content.SeeAlso:
			links := make([]string, 0, len(v.IDs))
			for _, id := range v.IDs {
				name := id
				if ref, ok := res.Index[id]; ok {
					name = ref.Name()
				}
				links = append(links, fmt.Sprintf("[`%s`](%s%s)", name, linkPrefix, id))
			}
			fmt.Fprintf(&b, "\n**See also:** %s\n", strings.Join(links, ", "))
		}
	}
	return resolveLinks(b.String(), res)
}

// SortPages orders pages for stable output and navigation: manuals
// first in their configured order, then modules and classes by name.
func SortPages(pages []*prerender.Page) []*prerender.Page {
	sorted := make([]*prerender.Page, len(pages))
	copy(sorted, pages)
	rank := func(k refs.Kind) int {
		switch k {
		case refs.KindManual:
			return 0
		case refs.KindModule:
			return 1
		default:
			return 2
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if a, b := rank(sorted[i].Kind), rank(sorted[j].Kind); a != b {
			return a < b
		}
		return sorted[i].Ref.Symbol < sorted[j].Ref.Symbol
	})
	return sorted
}
