package content

import (
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/luadox/internal/refs"
	"github.com/mvp-joe/luadox/internal/tags"
)

// Test Plan for the content parser:
// - Plain comment lines accumulate into markdown runs
// - @tparam/@treturn capture typed parameter and return docs, with
//   indented continuation lines folded into the doc body
// - @note/@warning produce admonition fragments; dedenting back to the
//   tag's column closes the block
// - Blank lines never close an open tag
// - @usage/@example/@code emit fenced lua blocks inline
// - @see resolves immediately to stable identifiers
// - `ref` and @{ref} become deferred luadox: links
// - First-sentence extraction respects abbreviations and blank lines
// - PlainText strips markdown for search indexing

type fixture struct {
	reg *refs.Registry
	ctx *refs.Context
	p   *Parser
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := log.New(io.Discard)
	ctx := refs.NewContext(logger)
	reg := refs.NewRegistry(ctx)
	return &fixture{reg: reg, ctx: ctx, p: NewParser(tags.NewParser(logger), reg, ctx)}
}

// addFunc registers net.connect so references can resolve.
func (f *fixture) addFunc(t *testing.T) *refs.Ref {
	t.Helper()
	mod := refs.NewRef("net.lua", 1, nil)
	mod.Kind = refs.KindModule
	mod.Symbol = "net"
	mod.Collection = "net"
	mod.CollectionRef = mod
	f.reg.Add(mod, nil)

	fn := refs.NewRef("net.lua", 5, []*refs.Ref{mod})
	fn.Kind = refs.KindFunction
	fn.Symbol = "connect"
	fn.Collection = "net"
	fn.CollectionRef = mod
	f.reg.Add(fn, nil)
	return fn
}

func commentLines(src ...string) []refs.Line {
	out := make([]refs.Line, len(src))
	for i, s := range src {
		out[i] = refs.Line{Num: i + 1, Text: s}
	}
	return out
}

func TestParse_MarkdownRun(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	res := f.p.Parse(commentLines(
		"--- Connects to a host.",
		"---",
		"--- Uses a blocking socket.",
	), true)
	require.False(t, res.Body.Empty())
	text := res.Body.Markdown().Text()
	assert.Contains(t, text, "Connects to a host.")
	assert.Contains(t, text, "Uses a blocking socket.")
}

func TestParse_TParamAndTReturn(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	res := f.p.Parse(commentLines(
		"--- @tparam string host the host to dial,",
		"---   with continuation folded in",
		"--- @tparam number|nil port optional port",
		"--- @treturn boolean true on success",
	), true)

	require.Len(t, res.Params, 2)
	host := res.Params["host"]
	assert.Equal(t, []string{"string"}, host.Types)
	doc := host.Doc.Markdown().Text()
	assert.Contains(t, doc, "the host to dial,")
	assert.Contains(t, doc, "with continuation folded in")

	port := res.Params["port"]
	assert.Equal(t, []string{"number", "nil"}, port.Types)

	require.Len(t, res.Returns, 1)
	assert.Equal(t, []string{"boolean"}, res.Returns[0].Types)
	assert.Contains(t, res.Returns[0].Doc.Markdown().Text(), "true on success")
}

func TestParse_AdmonitionDedent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	res := f.p.Parse(commentLines(
		"--- @note Heads up",
		"---   only applies on unix",
		"---",
		"---   even after a blank line",
		"--- back to normal text",
	), true)

	require.GreaterOrEqual(t, len(res.Body), 2)
	adm, ok := res.Body[0].(*Admonition)
	require.True(t, ok, "first fragment should be the admonition")
	assert.Equal(t, "note", adm.Kind)
	assert.Equal(t, "Heads up", adm.Title)
	body := adm.Body.Markdown().Text()
	assert.Contains(t, body, "only applies on unix")
	assert.Contains(t, body, "even after a blank line")
	assert.NotContains(t, body, "back to normal")

	tail := res.Body.Markdown().Text()
	assert.Contains(t, tail, "back to normal text")
}

func TestParse_UsageFence(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	res := f.p.Parse(commentLines(
		"--- @usage",
		"---   local s = net.connect('x')",
	), true)

	text := res.Body.Markdown().Text()
	assert.Contains(t, text, "##### Usage")
	assert.Contains(t, text, "```lua")
	assert.Contains(t, text, "local s = net.connect('x')")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(text), "```"))
}

func TestParse_See(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.addFunc(t)
	res := f.p.Parse(commentLines(
		"--- @see net.connect missing.thing",
	), true)

	var see *SeeAlso
	for _, frag := range res.Body {
		if s, ok := frag.(*SeeAlso); ok {
			see = s
		}
	}
	require.NotNil(t, see)
	// Only the resolvable reference survives.
	require.Len(t, see.IDs, 1)
	assert.Equal(t, "module#net#net.connect", see.IDs[0])
}

func TestResolveText(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.addFunc(t)

	t.Run("backtick ref links when resolvable", func(t *testing.T) {
		got := f.p.ResolveText("see `net.connect` for details")
		assert.Equal(t, "see [`net.connect`](luadox:module#net#net.connect) for details", got)
	})

	t.Run("backtick non-ref stays a code span", func(t *testing.T) {
		got := f.p.ResolveText("set `timeout` accordingly")
		assert.Equal(t, "set `timeout` accordingly", got)
	})

	t.Run("curly ref with display text", func(t *testing.T) {
		got := f.p.ResolveText("read @{net.connect|the connect docs} first")
		assert.Equal(t, "read [the connect docs](luadox:module#net#net.connect) first", got)
	})

	t.Run("curly function ref gains parens", func(t *testing.T) {
		got := f.p.ResolveText("call @{net.connect} first")
		assert.Equal(t, "call [net.connect()](luadox:module#net#net.connect) first", got)
	})

	t.Run("unresolvable curly falls back to text", func(t *testing.T) {
		got := f.p.ResolveText("see @{missing.page|these docs}")
		assert.Equal(t, "see these docs", got)
	})

	t.Run("double backticks untouched", func(t *testing.T) {
		got := f.p.ResolveText("lua ``net.connect`` literal")
		assert.Equal(t, "lua ``net.connect`` literal", got)
	})
}

func TestFirstSentence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Connects to a host. More detail here.", "Connects to a host"},
		{"abbreviation skipped", "Joins parts, e.g. host and port. More.", "Joins parts, e.g. host and port"},
		{"blank line terminates", "A heading line\n\nBody follows.", "A heading line"},
		{"no terminator", "just one line", "just one line"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			first, _ := SplitFirstSentence(tt.in)
			assert.Equal(t, tt.want, strings.TrimSpace(first))
		})
	}
}

func TestFirstSentencePop(t *testing.T) {
	t.Parallel()
	c := Content{}
	c.Markdown().Append("First sentence. And the rest.")
	got := c.FirstSentence(true)
	assert.Equal(t, "First sentence", strings.TrimSpace(got))
	assert.Contains(t, c.Markdown().Text(), "And the rest.")
	assert.NotContains(t, c.Markdown().Text(), "First sentence")
}

func TestPlainText(t *testing.T) {
	t.Parallel()
	c := Content{}
	md := c.Markdown()
	md.Append("# Heading")
	md.Append("Some `inline code` and a [link](luadox:module#net#net.connect).")
	md.Append("```lua")
	md.Append("ignored = true")
	md.Append("```")

	got := c.PlainText()
	assert.Contains(t, got, "Heading")
	assert.Contains(t, got, "inline code")
	assert.Contains(t, got, "link")
	assert.NotContains(t, got, "ignored")
	assert.NotContains(t, got, "luadox:")
}
