package content

import (
	"regexp"
	"strings"

	"github.com/mvp-joe/luadox/internal/refs"
)

// Resolved references become deferred-link markers, not final URLs: a
// markdown link whose target is "luadox:" plus the stable identifier.
// The renderer turns the identifier into a page-relative path.
const linkScheme = "luadox:"

var (
	// `name` runs; a double-backtick match is left untouched.
	reBacktickRef = regexp.MustCompile("``+|`([^` ]+)`")
	// @{name} and @{name|display text}.
	reCurlyRef = regexp.MustCompile("(`)?@\\{([^}|]+)(?:\\|([^}]*))?\\}(`)?")
)

// resolveContent rewrites reference syntax inside markdown fragments to
// deferred links, recursing into admonition bodies.
func (p *Parser) resolveContent(c *Content) {
	for _, f := range *c {
		switch v := f.(type) {
		case *Markdown:
			v.lines = []string{p.ResolveText(v.Text())}
		case *Admonition:
			v.Title = p.ResolveText(v.Title)
			p.resolveContent(&v.Body)
		}
	}
}

// ResolveText replaces `name` and @{name} references in the given
// markdown with deferred links. Backtick refs that do not resolve stay
// as plain code spans; @{} refs that do not resolve are logged and fall
// back to unlinked text.
func (p *Parser) ResolveText(block string) string {
	// Resolve `ref` first so that @{stuff} wrapped in backticks is
	// still seen by the @{} pass.
	block = reBacktickRef.ReplaceAllStringFunc(block, func(m string) string {
		if strings.HasPrefix(m, "``") {
			return m
		}
		name := m[1 : len(m)-1]
		ref := p.reg.Resolve(p.ctx, name)
		if ref == nil {
			return m
		}
		return p.link(p.reg.ID(ref), name, false, true)
	})
	return reCurlyRef.ReplaceAllStringFunc(block, func(m string) string {
		g := reCurlyRef.FindStringSubmatch(m)
		code := g[1] == "`"
		name, text := g[2], g[3]
		ref := p.reg.Resolve(p.ctx, name)
		if ref == nil {
			p.ctx.Warnf("reference %q could not be resolved", name)
			if text != "" {
				return text
			}
			return name
		}
		display := text
		parens := false
		if display == "" {
			display = ref.Name()
			parens = ref.Kind == refs.KindFunction
		}
		return p.link(p.reg.ID(ref), display, parens, code)
	})
}

func (p *Parser) link(id, text string, parens, code bool) string {
	if parens {
		text += "()"
	}
	if code {
		text = "`" + text + "`"
	}
	return "[" + text + "](" + linkScheme + id + ")"
}
