package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mvp-joe/luadox/internal/prerender"
	"github.com/mvp-joe/luadox/internal/refs"
)

// MarkdownRenderer writes one markdown file per page.
type MarkdownRenderer struct {
	outDir string
	ctx    *refs.Context
}

// NewMarkdownRenderer writes pages under outDir, creating it if needed.
func NewMarkdownRenderer(outDir string, ctx *refs.Context) *MarkdownRenderer {
	return &MarkdownRenderer{outDir: outDir, ctx: ctx}
}

// Render writes every non-empty page. Empty pages are skipped with a
// warning so stub modules don't produce blank files.
func (r *MarkdownRenderer) Render(res *prerender.Result) error {
	if err := os.MkdirAll(r.outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	for _, page := range SortPages(res.Pages) {
		if page.Empty {
			r.ctx.Logger.Warnf("%s: page %s has no documented content, skipping", page.Ref.File, page.Heading)
			continue
		}
		path := filepath.Join(r.outDir, pageFile(page.Kind, page.Ref.Symbol))
		if err := os.WriteFile(path, []byte(r.renderPage(page, res)), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	return nil
}

func (r *MarkdownRenderer) renderPage(page *prerender.Page, res *prerender.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", page.Heading)
	if text := ContentText(page.Content, res); strings.TrimSpace(text) != "" {
		b.WriteString(text)
		b.WriteString("\n")
	}

	for _, col := range page.Collections {
		if page.Kind == refs.KindManual {
			r.renderManualSection(&b, col, res)
			continue
		}
		// The page-level collection already rendered its content above.
		if !col.Ref.Kind.IsPage() {
			fmt.Fprintf(&b, "\n## %s\n\n", col.Heading)
			if text := ContentText(col.Content, res); strings.TrimSpace(text) != "" {
				b.WriteString(text)
				b.WriteString("\n")
			}
		}
		r.renderFields(&b, col, res)
		r.renderFunctions(&b, col, res)
	}
	return b.String()
}

func (r *MarkdownRenderer) renderManualSection(b *strings.Builder, col *prerender.Collection, res *prerender.Result) {
	level := col.Level
	if level < 1 || level > 6 {
		level = 2
	}
	fmt.Fprintf(b, "\n%s %s\n\n", strings.Repeat("#", level), col.Heading)
	if text := ContentText(col.Content, res); strings.TrimSpace(text) != "" {
		b.WriteString(text)
		b.WriteString("\n")
	}
}

func (r *MarkdownRenderer) renderFields(b *strings.Builder, col *prerender.Collection, res *prerender.Result) {
	if len(col.Fields) == 0 {
		return
	}
	if compact(col, "fields") {
		b.WriteString("\n| Field | Type | Description |\n|---|---|---|\n")
		for _, f := range col.Fields {
			doc := strings.ReplaceAll(strings.TrimSpace(ContentText(f.Content, res)), "\n", " ")
			fmt.Fprintf(b, "| `%s` | %s | %s |\n", f.Title, strings.Join(f.Types, ", "), doc)
		}
		return
	}
	for _, f := range col.Fields {
		fmt.Fprintf(b, "\n### %s\n\n", f.Title)
		if len(f.Types) > 0 {
			fmt.Fprintf(b, "*Type: `%s`*\n\n", strings.Join(f.Types, "|"))
		}
		if f.Meta != "" {
			fmt.Fprintf(b, "*%s*\n\n", f.Meta)
		}
		if text := ContentText(f.Content, res); strings.TrimSpace(text) != "" {
			b.WriteString(text)
			b.WriteString("\n")
		}
	}
}

func (r *MarkdownRenderer) renderFunctions(b *strings.Builder, col *prerender.Collection, res *prerender.Result) {
	for _, fn := range col.Functions {
		args := make([]string, len(fn.Params))
		for i, p := range fn.Params {
			args[i] = p.Name
		}
		fmt.Fprintf(b, "\n### %s(%s)\n\n", fn.Title, strings.Join(args, ", "))
		if fn.Meta != "" {
			fmt.Fprintf(b, "*%s*\n\n", fn.Meta)
		}
		if text := ContentText(fn.Content, res); strings.TrimSpace(text) != "" {
			b.WriteString(text)
			b.WriteString("\n")
		}
		if len(fn.Params) > 0 {
			b.WriteString("\n**Parameters**\n\n")
			for _, p := range fn.Params {
				doc := strings.TrimSpace(ContentText(p.Doc, res))
				fmt.Fprintf(b, "- `%s` (%s): %s\n", p.Name, strings.Join(p.Types, "|"), doc)
			}
		}
		if len(fn.Returns) > 0 {
			b.WriteString("\n**Returns**\n\n")
			for i, ret := range fn.Returns {
				doc := strings.TrimSpace(ContentText(ret.Doc, res))
				fmt.Fprintf(b, "%d. (%s): %s\n", i+1, strings.Join(ret.Types, "|"), doc)
			}
		}
	}
}

func compact(col *prerender.Collection, what string) bool {
	for _, c := range col.Compact {
		if c == what {
			return true
		}
	}
	return false
}
