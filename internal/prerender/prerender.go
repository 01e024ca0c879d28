// Package prerender assembles the finalized symbol table into the
// structures renderers consume: pages ordered by (kind, symbol), each
// carrying ordered collections of documented fields and functions, and
// a global identifier lookup for turning deferred link markers into
// final targets.
package prerender

import (
	"github.com/mvp-joe/luadox/internal/content"
	"github.com/mvp-joe/luadox/internal/refs"
)

// Page is one rendered page: a module, class, or manual.
type Page struct {
	Ref         *refs.Ref
	ID          string
	Kind        refs.Kind
	Heading     string
	Content     content.Content
	Collections []*Collection
	// Empty marks pages with no renderable content at all.
	Empty bool
}

// Collection groups fields and functions under a heading.
type Collection struct {
	Ref     *refs.Ref
	ID      string
	Heading string
	// Level is the heading level for manual sections.
	Level     int
	Content   content.Content
	Compact   []string
	Fields    []*Field
	Functions []*Function
}

// Field is a documented field ready for rendering.
type Field struct {
	Ref     *refs.Ref
	ID      string
	Title   string
	Types   []string
	Meta    string
	Content content.Content
}

// Function extends Field with parameter and return documentation.
type Function struct {
	Field
	Params  []content.Param
	Returns []content.Return
}

// Result is the complete prerendered output.
type Result struct {
	Pages []*Page
	// Index maps stable identifiers to their entities.
	Index map[string]*refs.Ref
}

// Prerenderer walks the registry once the scanners are done, parsing
// every entity's raw content and resolving every embedded reference.
type Prerenderer struct {
	reg *refs.Registry
	ctx *refs.Context
	cp  *content.Parser
}

// New creates a prerenderer over the given registry.
func New(reg *refs.Registry, ctx *refs.Context, cp *content.Parser) *Prerenderer {
	return &Prerenderer{reg: reg, ctx: ctx, cp: cp}
}

// Process assembles all pages, ordered by (kind, symbol).
func (p *Prerenderer) Process() *Result {
	res := &Result{Index: make(map[string]*refs.Ref)}
	for _, topref := range p.reg.TopRefs() {
		var page *Page
		switch topref.Kind {
		case refs.KindClass, refs.KindModule:
			page = p.doClassMod(topref)
		case refs.KindManual:
			page = p.doManual(topref)
		default:
			continue
		}
		res.Pages = append(res.Pages, page)
		p.index(res, page)
	}
	return res
}

func (p *Prerenderer) index(res *Result, page *Page) {
	res.Index[page.ID] = page.Ref
	for _, col := range page.Collections {
		res.Index[col.ID] = col.Ref
		for _, f := range col.Fields {
			res.Index[f.ID] = f.Ref
		}
		for _, fn := range col.Functions {
			res.Index[fn.ID] = fn.Ref
		}
	}
}

func (p *Prerenderer) doClassMod(topref *refs.Ref) *Page {
	page := &Page{
		Ref:  topref,
		ID:   p.reg.ID(topref),
		Kind: topref.Kind,
	}
	hasContent := false
	for _, colref := range p.reg.Collections(topref) {
		p.ctx.SetRef(colref)
		parsed := p.cp.Parse(colref.Raw, true)

		col := &Collection{
			Ref:     colref,
			ID:      p.reg.ID(colref),
			Content: parsed.Body,
			Compact: colref.Flags.Compact,
		}
		if colref.Kind.IsPage() {
			col.Heading = colref.Symbol
			page.Heading = colref.Display()
			page.Content = parsed.Body
		} else {
			// Section headings come from the first sentence, falling
			// back to the section name.
			heading := parsed.Body.FirstSentence(true)
			if heading == "" {
				heading = colref.Name()
			}
			col.Heading = heading
			col.Content = parsed.Body
		}

		for _, ref := range p.reg.ElementsIn(refs.KindField, colref) {
			col.Fields = append(col.Fields, p.doField(ref, colref.Flags.Fullnames))
		}
		for _, ref := range p.reg.ElementsIn(refs.KindFunction, colref) {
			col.Functions = append(col.Functions, p.doFunction(ref))
		}
		hasContent = hasContent || !col.Content.Empty() || len(col.Fields) > 0 || len(col.Functions) > 0

		page.Collections = append(page.Collections, col)
	}
	if page.Heading == "" {
		page.Heading = topref.Display()
	}
	page.Empty = !hasContent
	return page
}

func (p *Prerenderer) doField(ref *refs.Ref, fullnames bool) *Field {
	p.ctx.SetRef(ref)
	parsed := p.cp.Parse(ref.Raw, true)
	title := ref.Flags.Display
	if title == "" {
		if fullnames {
			title = ref.Name()
		} else {
			title = ref.Symbol
		}
	}
	return &Field{
		Ref:     ref,
		ID:      p.reg.ID(ref),
		Title:   title,
		Types:   ref.Flags.Types,
		Meta:    ref.Flags.Meta,
		Content: parsed.Body,
	}
}

func (p *Prerenderer) doFunction(ref *refs.Ref) *Function {
	p.ctx.SetRef(ref)
	parsed := p.cp.Parse(ref.Raw, true)

	// Pair the argument names declared in source with their @tparam
	// docs. An argument without a @tparam only warrants a warning when
	// the function documents at least one parameter.
	params := make([]content.Param, 0, len(ref.Args))
	for _, arg := range ref.Args {
		if doc, ok := parsed.Params[arg]; ok {
			params = append(params, doc)
			continue
		}
		params = append(params, content.Param{Name: arg})
		if len(parsed.Params) > 0 {
			p.ctx.Logger.Warnf("%s:%d: %s() missing @tparam for %q parameter", ref.File, ref.Line, ref.Name(), arg)
		}
	}

	meta := ref.Flags.Meta
	if meta != "" {
		meta = p.cp.ResolveText(meta)
	}
	return &Function{
		Field: Field{
			Ref:     ref,
			ID:      p.reg.ID(ref),
			Title:   ref.Display(),
			Types:   ref.Flags.Types,
			Meta:    meta,
			Content: parsed.Body,
		},
		Params:  params,
		Returns: parsed.Returns,
	}
}

func (p *Prerenderer) doManual(topref *refs.Ref) *Page {
	page := &Page{
		Ref:     topref,
		ID:      p.reg.ID(topref),
		Kind:    topref.Kind,
		Heading: topref.Display(),
	}
	if len(topref.Raw) > 0 {
		p.ctx.SetRef(topref)
		parsed := p.cp.Parse(topref.Raw, false)
		page.Content = parsed.Body
	}
	for _, secref := range p.reg.Collections(topref) {
		if secref == topref {
			continue
		}
		p.ctx.SetRef(secref)
		parsed := p.cp.Parse(secref.Raw, false)
		page.Collections = append(page.Collections, &Collection{
			Ref:     secref,
			ID:      p.reg.ID(secref),
			Heading: p.cp.ResolveText(secref.Display()),
			Level:   secref.Level,
			Content: parsed.Body,
		})
	}
	page.Empty = page.Content.Empty() && len(page.Collections) == 0
	return page
}
