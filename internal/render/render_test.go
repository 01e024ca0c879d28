package render

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/luadox/internal/content"
	"github.com/mvp-joe/luadox/internal/parser"
	"github.com/mvp-joe/luadox/internal/prerender"
	"github.com/mvp-joe/luadox/internal/refs"
	"github.com/mvp-joe/luadox/internal/tags"
)

// Test Plan for the renderers:
// - Page filenames and anchors derive deterministically from names
// - Deferred luadox: links rewrite to page-relative URLs; page targets
//   link to the file with no fragment
// - Unresolvable identifiers stay visible instead of vanishing
// - Pages sort manuals first, then modules, then classes
// - The markdown renderer writes one file per non-empty page
// - The JSON renderer emits the full graph under a "pages" key

func prerenderSource(t *testing.T, src string) *prerender.Result {
	t.Helper()
	logger := log.New(io.Discard)
	ctx := refs.NewContext(logger)
	reg := refs.NewRegistry(ctx)
	tp := tags.NewParser(logger)
	sc := parser.NewScanner(tp, reg, ctx)
	_, err := sc.ScanSource("net.lua", strings.NewReader(src))
	require.NoError(t, err)
	return prerender.New(reg, ctx, content.NewParser(tp, reg, ctx)).Process()
}

const netSource = `
--- @module net
--- Networking helpers. See @{net.connect} to get going.
local net = {}

--- Opens a connection. Pairs with ` + "`net.close`" + `.
--- @tparam string host the target host
--- @tparam number timeout seconds before giving up
--- @treturn boolean whether the connection opened
function net.connect(host, timeout)
end

--- Closes the connection.
function net.close()
end
`

func TestPageFile(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "module_net.md", pageFile(refs.KindModule, "net"))
	assert.Equal(t, "class_Animal.md", pageFile(refs.KindClass, "Animal"))
	assert.Equal(t, "manual_getting_started.md", pageFile(refs.KindManual, "getting started"))
}

func TestAnchor(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "net-connect", anchor("net.connect"))
	assert.Equal(t, "animal-speak", anchor("Animal:speak"))
	assert.Equal(t, "with_underscore", anchor("with_underscore"))
}

func TestResolveLinks(t *testing.T) {
	t.Parallel()
	res := prerenderSource(t, netSource)

	t.Run("entity link gains an anchor", func(t *testing.T) {
		got := resolveLinks("see [x](luadox:module#net#net.connect) now", res)
		assert.Equal(t, "see [x](module_net.md#net-connect) now", got)
	})

	t.Run("page link has no fragment", func(t *testing.T) {
		got := resolveLinks("see [net](luadox:module#net#net)", res)
		assert.Equal(t, "see [net](module_net.md)", got)
	})

	t.Run("malformed identifier is left alone", func(t *testing.T) {
		got := resolveLinks("see [x](luadox:garbage)", res)
		assert.Equal(t, "see [x](garbage)", got)
	})
}

func TestSortPages(t *testing.T) {
	t.Parallel()
	mk := func(kind refs.Kind, sym string) *prerender.Page {
		return &prerender.Page{Kind: kind, Ref: &refs.Ref{Kind: kind, Symbol: sym}}
	}
	pages := []*prerender.Page{
		mk(refs.KindClass, "Animal"),
		mk(refs.KindModule, "zlib"),
		mk(refs.KindManual, "guide"),
		mk(refs.KindModule, "net"),
	}
	sorted := SortPages(pages)
	var syms []string
	for _, p := range sorted {
		syms = append(syms, p.Ref.Symbol)
	}
	assert.Equal(t, []string{"guide", "net", "zlib", "Animal"}, syms)
}

func TestMarkdownRender(t *testing.T) {
	t.Parallel()
	res := prerenderSource(t, netSource)
	dir := t.TempDir()
	logger := log.New(io.Discard)

	r := NewMarkdownRenderer(dir, refs.NewContext(logger))
	require.NoError(t, r.Render(res))

	data, err := os.ReadFile(filepath.Join(dir, "module_net.md"))
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, "# net\n")
	assert.Contains(t, out, "[net.connect()](module_net.md#net-connect)")
	assert.Contains(t, out, "### net.connect(host, timeout)")
	assert.Contains(t, out, "[`net.close`](module_net.md#net-close)")
	assert.Contains(t, out, "**Parameters**")
	assert.Contains(t, out, "- `host` (string): the target host")
	assert.Contains(t, out, "**Returns**")
	assert.Contains(t, out, "1. (boolean): whether the connection opened")
	assert.NotContains(t, out, "luadox:")
}

func TestMarkdownRender_SkipsEmptyPages(t *testing.T) {
	t.Parallel()
	res := prerenderSource(t, "--- @module stub\nlocal stub = {}\n")
	dir := t.TempDir()
	logger := log.New(io.Discard)

	r := NewMarkdownRenderer(dir, refs.NewContext(logger))
	require.NoError(t, r.Render(res))

	_, err := os.Stat(filepath.Join(dir, "module_stub.md"))
	assert.True(t, os.IsNotExist(err))
}

func TestJSON(t *testing.T) {
	t.Parallel()
	res := prerenderSource(t, netSource)

	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, res))

	var doc struct {
		Pages []struct {
			ID          string `json:"id"`
			Kind        string `json:"kind"`
			Heading     string `json:"heading"`
			Collections []struct {
				Functions []struct {
					Name   string `json:"name"`
					Params []struct {
						Name string `json:"name"`
					} `json:"params"`
				} `json:"functions"`
			} `json:"collections"`
		} `json:"pages"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	require.Len(t, doc.Pages, 1)
	page := doc.Pages[0]
	assert.Equal(t, "module#net#net", page.ID)
	assert.Equal(t, "module", page.Kind)
	assert.Equal(t, "net", page.Heading)

	require.Len(t, page.Collections, 1)
	fns := page.Collections[0].Functions
	require.Len(t, fns, 2)
	assert.Equal(t, "net.connect", fns[0].Name)
	require.Len(t, fns[0].Params, 2)
	assert.Equal(t, "host", fns[0].Params[0].Name)
}
