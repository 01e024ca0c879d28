package content

import (
	"strings"

	"github.com/mvp-joe/luadox/internal/refs"
	"github.com/mvp-joe/luadox/internal/tags"
)

// Parser converts an entity's raw comment lines into structured
// fragments. It maintains a stack of open tags; a tag stays open while
// lines are indented strictly deeper than the column the tag appeared
// at, and the first body line under a tag establishes the dedent column
// for the rest of its body.
type Parser struct {
	tags *tags.Parser
	reg  *refs.Registry
	ctx  *refs.Context
}

// NewParser creates a content parser resolving references through reg
// and reporting through ctx.
func NewParser(tp *tags.Parser, reg *refs.Registry, ctx *refs.Context) *Parser {
	return &Parser{tags: tp, reg: reg, ctx: ctx}
}

// entry is one open tag on the parse stack.
type entry struct {
	kind   tags.Kind
	tag    tags.Tag
	indent int
	dedent int // column established by the first body line, -1 until then
	body   *Content
	// md is the shared markdown run for code tags, which write fences
	// and body into the enclosing fragment list directly.
	md    *Markdown
	empty bool
}

// Result is the parsed form of one entity's content.
type Result struct {
	Params  map[string]Param
	Returns []Return
	Body    Content
}

// Parse processes the raw lines of one entity. When stripComments is
// true, lines are comment lines and their leading dashes are removed
// first; manual page content is parsed with stripComments false.
func (p *Parser) Parse(lines []refs.Line, stripComments bool) Result {
	res := Result{Params: make(map[string]Param)}
	if len(lines) == 0 {
		return res
	}

	root := &res.Body
	var stack []*entry

	top := func() *entry { return stack[len(stack)-1] }
	target := func() *Content {
		if len(stack) == 0 {
			return root
		}
		return top().body
	}

	closeTop := func() {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		p.closeEntry(e, &res, target())
	}
	// closeBelow closes open tags, deepest first, until the top entry
	// sits strictly above the given column.
	closeBelow := func(indent int) {
		for len(stack) > 0 && top().indent >= indent {
			closeTop()
		}
	}

	for _, raw := range lines {
		p.ctx.Line = raw.Num
		parsed, err := p.tags.Parse(raw.Text, p.ctx.File, raw.Num, stripComments)
		if err != nil {
			p.ctx.Warnf("%v", err)
			continue
		}
		line := raw.Text
		if stripComments {
			line = strings.TrimRight(strings.TrimLeft(line, "-"), " \t")
		}
		indent := indentLevel(line)

		if len(parsed) > 0 {
			for _, tag := range parsed {
				if tag.Kind == tags.KindUnknown {
					p.ctx.Warnf("unknown tag @%s in content, treating as text", tag.Raw)
					p.appendLine(target(), line, -1)
					continue
				}
				closeBelow(indent)
				p.openTag(tag, indent, target(), &stack)
			}
			continue
		}

		if len(stack) == 0 {
			p.appendLine(root, line, -1)
			continue
		}
		if strings.TrimSpace(line) == "" {
			// Blank lines never close a tag; they belong to its body.
			e := top()
			p.appendLine(e.body, "", e.dedent)
			continue
		}
		if indent > top().indent {
			e := top()
			if e.dedent < 0 {
				e.dedent = indent
			}
			e.empty = false
			p.appendLine(e.body, line, e.dedent)
			continue
		}
		closeBelow(indent)
		if len(stack) > 0 {
			e := top()
			if e.dedent < 0 {
				e.dedent = indent
			}
			e.empty = false
			p.appendLine(e.body, line, e.dedent)
		} else {
			p.appendLine(root, line, -1)
		}
	}
	// Synthetic end-of-input closes whatever is still open.
	for len(stack) > 0 {
		closeTop()
	}

	p.resolveContent(&res.Body)
	for name, param := range res.Params {
		p.resolveContent(&param.Doc)
		res.Params[name] = param
	}
	for i := range res.Returns {
		p.resolveContent(&res.Returns[i].Doc)
	}
	return res
}

// openTag pushes a new stack entry, or emits immediately for tags with
// inline-only effects.
func (p *Parser) openTag(tag tags.Tag, indent int, target *Content, stack *[]*entry) {
	e := &entry{kind: tag.Kind, tag: tag, indent: indent, dedent: -1, empty: true}
	switch tag.Kind {
	case tags.KindTParam, tags.KindTReturn:
		body := Content{}
		if desc := tag.String("desc"); desc != "" {
			body.Markdown().Append(desc)
			e.empty = false
		}
		e.body = &body
	case tags.KindNote, tags.KindWarning:
		e.body = &Content{}
	case tags.KindUsage, tags.KindExample, tags.KindCode:
		// Code tags write into the current fragment list: a fence
		// opener now, body lines as they come, the terminator when the
		// tag closes.
		md := target.Markdown()
		if tag.Kind != tags.KindCode {
			md.Append("##### " + titleCase(string(tag.Kind)))
		}
		lang := tag.String("lang")
		if lang == "" {
			lang = "lua"
		}
		md.Append("```" + lang)
		e.md = md
		e.body = target
	case tags.KindSee:
		// Resolved immediately; unresolvable names are dropped.
		var ids []string
		for _, name := range tag.List("refs") {
			if ref := p.reg.Resolve(p.ctx, name); ref != nil {
				ids = append(ids, p.reg.ID(ref))
			} else {
				p.ctx.Warnf("@see reference %q could not be resolved", name)
			}
		}
		if len(ids) > 0 {
			*target = append(*target, &SeeAlso{IDs: ids})
		}
		e.body = &Content{}
	default:
		p.ctx.Warnf("tag @%s is not valid inside content, ignoring", tag.Kind)
		return
	}
	*stack = append(*stack, e)
}

// closeEntry finalizes a popped tag into its parent fragment list.
func (p *Parser) closeEntry(e *entry, res *Result, parent *Content) {
	if e.empty && e.kind != tags.KindSee {
		p.ctx.Warnf("tag @%s has no content at end of block", e.kind)
	}
	switch e.kind {
	case tags.KindTParam:
		res.Params[e.tag.String("name")] = Param{
			Name:  e.tag.String("name"),
			Types: e.tag.List("types"),
			Doc:   *e.body,
		}
	case tags.KindTReturn:
		res.Returns = append(res.Returns, Return{Types: e.tag.List("types"), Doc: *e.body})
	case tags.KindNote, tags.KindWarning:
		title := e.tag.String("title")
		if title == "" {
			title = titleCase(string(e.kind))
		}
		*parent = append(*parent, &Admonition{Kind: string(e.kind), Title: title, Body: *e.body})
	case tags.KindUsage, tags.KindExample, tags.KindCode:
		e.md.RStrip()
		e.md.Append("```")
	case tags.KindSee:
		// Emitted at open; any indented body lines are discarded.
	}
}

// appendLine stores a line, stripped of up to dedent leading columns.
func (p *Parser) appendLine(target *Content, line string, dedent int) {
	if dedent > 0 {
		n := 0
		for n < len(line) && n < dedent && line[n] == ' ' {
			n++
		}
		line = line[n:]
	}
	target.Markdown().Append(line)
}

func indentLevel(s string) int {
	n := 0
	for n < len(s) && s[n] == ' ' {
		n++
	}
	return n
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
