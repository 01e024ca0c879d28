package tags

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for the tag parser:
// - Recognize tags behind comment leaders and bare tags in manual content
// - Coerce each argument type: string, rest, pipe list, space list, int
// - Optional arguments may be absent; missing required arguments error
// - Unknown tag names yield a KindUnknown tag, never an error
// - Extra arguments are ignored (with a warning)
// - The LuaCATS "@class Name: Parent" form expands to class + inherits

func newTestParser(opts ...Option) *Parser {
	return NewParser(log.New(io.Discard), opts...)
}

func TestParse_Coercion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		line  string
		check func(*testing.T, []Tag)
	}{
		{
			name: "module name",
			line: "--- @module mymod",
			check: func(t *testing.T, got []Tag) {
				require.Len(t, got, 1)
				assert.Equal(t, KindModule, got[0].Kind)
				assert.Equal(t, "mymod", got[0].String("name"))
			},
		},
		{
			name: "class with optional superclass absent",
			line: "-- @class Animal",
			check: func(t *testing.T, got []Tag) {
				require.Len(t, got, 1)
				assert.Equal(t, "Animal", got[0].String("name"))
				assert.False(t, got[0].Has("superclass"))
			},
		},
		{
			name: "tparam with pipe list and rest",
			line: "--- @tparam string|number id the thing to fetch",
			check: func(t *testing.T, got []Tag) {
				require.Len(t, got, 1)
				assert.Equal(t, []string{"string", "number"}, got[0].List("types"))
				assert.Equal(t, "id", got[0].String("name"))
				assert.Equal(t, "the thing to fetch", got[0].String("desc"))
			},
		},
		{
			name: "treturn desc optional",
			line: "--- @treturn table",
			check: func(t *testing.T, got []Tag) {
				require.Len(t, got, 1)
				assert.Equal(t, []string{"table"}, got[0].List("types"))
				assert.False(t, got[0].Has("desc"))
			},
		},
		{
			name: "see with space list",
			line: "--- @see foo bar.baz",
			check: func(t *testing.T, got []Tag) {
				require.Len(t, got, 1)
				assert.Equal(t, []string{"foo", "bar.baz"}, got[0].List("refs"))
			},
		},
		{
			name: "order before anchor",
			line: "--- @order before connect",
			check: func(t *testing.T, got []Tag) {
				require.Len(t, got, 1)
				assert.Equal(t, "before", got[0].String("whence"))
				assert.Equal(t, "connect", got[0].String("anchor"))
			},
		},
		{
			name: "compact with no elements",
			line: "--- @compact",
			check: func(t *testing.T, got []Tag) {
				require.Len(t, got, 1)
				assert.Empty(t, got[0].List("elements"))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := newTestParser()
			got, err := p.Parse(tt.line, "test.lua", 1, true)
			require.NoError(t, err)
			tt.check(t, got)
		})
	}
}

func TestParse_NoTag(t *testing.T) {
	t.Parallel()
	p := newTestParser()

	got, err := p.Parse("--- just text about @nothing in particular? no, wait", "test.lua", 1, true)
	require.NoError(t, err)
	// The @ is mid-line, not at the start of the comment text.
	assert.Nil(t, got)

	got, err = p.Parse("local x = 1", "test.lua", 1, true)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestParse_UnknownTag(t *testing.T) {
	t.Parallel()
	p := newTestParser()
	got, err := p.Parse("--- @frobnicate all the things", "test.lua", 1, true)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, KindUnknown, got[0].Kind)
	assert.Equal(t, "frobnicate", got[0].Raw)
}

func TestParse_CurlyRefIsNotATag(t *testing.T) {
	t.Parallel()
	p := newTestParser()
	// @{name} is reference syntax, handled by the content parser.
	got, err := p.Parse("--- @{some.ref} explains more", "test.lua", 1, true)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestParse_MissingRequiredArg(t *testing.T) {
	t.Parallel()
	p := newTestParser()
	got, err := p.Parse("--- @module", "test.lua", 1, true)
	require.Error(t, err)
	assert.Nil(t, got)
	var gerr *GrammarError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, KindModule, gerr.Tag)
}

func TestParse_IntArg(t *testing.T) {
	t.Parallel()
	// The built-in grammar has no int-typed tag; extend it the way a
	// dialect would.
	g := Default()
	g[Kind("version")] = []Arg{{Name: "major", Type: ArgInt}}
	p := newTestParser(WithGrammar(g))

	got, err := p.Parse("--- @version 3", "test.lua", 1, true)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].Int("major"))

	_, err = p.Parse("--- @version three", "test.lua", 1, true)
	require.Error(t, err)
}

func TestParse_RequireCommentFalse(t *testing.T) {
	t.Parallel()
	p := newTestParser()
	got, err := p.Parse("@see foo", "manual.md", 1, false)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, KindSee, got[0].Kind)

	// In source mode the same line is plain text.
	got, err = p.Parse("@see foo", "test.lua", 1, true)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLuaCATSTransform(t *testing.T) {
	t.Parallel()
	p := newTestParser()
	got, err := p.Parse("--- @class Dog: Animal", "test.lua", 1, true)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, KindClass, got[0].Kind)
	assert.Equal(t, "Dog", got[0].String("name"))
	assert.Equal(t, KindInherits, got[1].Kind)
	assert.Equal(t, "Animal", got[1].String("superclass"))
}

func TestLuaCATSTransform_DanglingColon(t *testing.T) {
	t.Parallel()
	p := newTestParser()
	_, err := p.Parse("--- @class Dog:", "test.lua", 1, true)
	var gerr *GrammarError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, KindClass, gerr.Tag)
}
