package parser

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

// Test Plan for the source scanner:
// - @module/@class blocks become page refs and head the scope
// - Documented functions and fields attach to the active collection
// - Colon methods, dotted assignments, and ["bracket"] fields probe
// - @table scopes push and pop with brace depth, restoring the
//   enclosing collection
// - Multi-line function signatures collect all parameters
// - require() module names are reported to the caller
// - Files without @module get an implicit module named after the file
// - init.lua takes its directory name
// - Undocumented definitions are not registered
// - LuaCATS class inheritance flows into Flags.Inherits

type scanFixture struct {
	reg *refs.Registry
	ctx *refs.Context
	sc  *Scanner
}

func newScanFixture(t *testing.T) *scanFixture {
	t.Helper()
	logger := log.New(io.Discard)
	ctx := refs.NewContext(logger)
	reg := refs.NewRegistry(ctx)
	return &scanFixture{reg: reg, ctx: ctx, sc: NewScanner(tags.NewParser(logger), reg, ctx)}
}

func (f *scanFixture) scan(t *testing.T, path, src string) []string {
	t.Helper()
	requires, err := f.sc.ScanSource(path, strings.NewReader(src))
	require.NoError(t, err)
	return requires
}

const animalSource = `
--- @class Animal
--- Base class for all animals.
local Animal = {}

--- The animal's given name.
Animal.name = "unnamed"

--- Speaks the given phrase.
--- @tparam string phrase what to say
function Animal:speak(phrase)
end

--- @class Dog: Animal
local Dog = {}

--- Fetches the stick.
function Dog:fetch(stick,
                   speed)
end
`

func TestScanSource_Classes(t *testing.T) {
	t.Parallel()
	f := newScanFixture(t)
	f.scan(t, "animal.lua", animalSource)

	animal := f.reg.Page("Animal")
	require.NotNil(t, animal)
	assert.Equal(t, refs.KindClass, animal.Kind)
	assert.True(t, animal.HasContent(), "class doc text should be captured")

	name := f.reg.Lookup("Animal.name")
	require.NotNil(t, name)
	assert.Equal(t, refs.KindField, name.Kind)

	speak := f.reg.Lookup("Animal.speak")
	require.NotNil(t, speak)
	assert.Equal(t, refs.KindFunction, speak.Kind)
	assert.Equal(t, []string{"phrase"}, speak.Args)
	assert.Equal(t, "Animal:speak", speak.Display())

	dog := f.reg.Page("Dog")
	require.NotNil(t, dog)
	assert.Equal(t, "Animal", dog.Flags.Inherits)

	fetch := f.reg.Lookup("Dog.fetch")
	require.NotNil(t, fetch)
	// Multi-line signature collects both parameters.
	assert.Equal(t, []string{"stick", "speed"}, fetch.Args)
}

func TestScanSource_ResolveAcrossClasses(t *testing.T) {
	t.Parallel()
	f := newScanFixture(t)
	f.scan(t, "animal.lua", animalSource)

	// From Dog's page, an unqualified "speak" resolves through the
	// inheritance chain to Animal.speak.
	ctx := refs.NewContext(log.New(io.Discard))
	ctx.Ref = f.reg.Page("Dog")
	got := f.reg.Resolve(ctx, "speak")
	require.NotNil(t, got)
	assert.Equal(t, "Animal.speak", got.Name())
}

func TestScanSource_ModuleAndTable(t *testing.T) {
	t.Parallel()
	f := newScanFixture(t)
	f.scan(t, "net.lua", `
--- @module net
local net = {}

--- @table defaults
--- Default connection options.
net.defaults = {
    --- Seconds before giving up.
    timeout = 30,

    --- Number of retries.
    retries = 3,
}

--- Opens a connection.
function net.connect(host)
end
`)

	mod := f.reg.Page("net")
	require.NotNil(t, mod)
	assert.False(t, mod.Implicit)

	defaults := f.reg.Lookup("defaults")
	require.NotNil(t, defaults)
	assert.Equal(t, refs.KindTable, defaults.Kind)

	timeout := f.reg.Lookup("defaults.timeout")
	require.NotNil(t, timeout)
	assert.Equal(t, refs.KindField, timeout.Kind)
	assert.Equal(t, "defaults", timeout.Collection)

	// After the closing brace the collection reverts to the page.
	connect := f.reg.Lookup("net.connect")
	require.NotNil(t, connect)
	assert.Equal(t, "net", connect.Collection)

	// The table's documented fields enumerate under it.
	fields := f.reg.ElementsIn(refs.KindField, defaults)
	require.Len(t, fields, 2)
	assert.Equal(t, "defaults.timeout", fields[0].Name())
	assert.Equal(t, "defaults.retries", fields[1].Name())
}

func TestScanSource_Requires(t *testing.T) {
	t.Parallel()
	f := newScanFixture(t)
	requires := f.scan(t, "app.lua", `
--- @module app
local app = {}

local json = require("vendor.json")
local log = require 'app.log'
`)
	assert.Equal(t, []string{"vendor.json", "app.log"}, requires)
}

func TestScanSource_ImplicitModule(t *testing.T) {
	t.Parallel()
	f := newScanFixture(t)
	f.scan(t, "util.lua", `
--- Clamps v between lo and hi.
function clamp(v, lo, hi)
end
`)

	mod := f.reg.Page("util")
	require.NotNil(t, mod)
	assert.True(t, mod.Implicit)
	assert.NotNil(t, f.reg.Lookup("util.clamp"))
}

func TestScanSource_InitLuaModuleName(t *testing.T) {
	t.Parallel()
	f := newScanFixture(t)
	f.scan(t, "mylib/init.lua", `
--- Entry point.
function setup()
end
`)
	require.NotNil(t, f.reg.Page("mylib"))
}

func TestScanSource_UndocumentedSkipped(t *testing.T) {
	t.Parallel()
	f := newScanFixture(t)
	f.scan(t, "quiet.lua", `
--- @module quiet
local quiet = {}

function quiet.hidden()
end
`)
	assert.Nil(t, f.reg.Lookup("quiet.hidden"))
}

func TestScanSource_BracketField(t *testing.T) {
	t.Parallel()
	f := newScanFixture(t)
	f.scan(t, "codes.lua", `
--- @module codes
local codes = {}

--- Not found.
codes["404"] = "not found"
`)
	ref := f.reg.Lookup("codes.404")
	require.NotNil(t, ref)
	assert.Equal(t, refs.KindField, ref.Kind)
}

func TestScanSource_SectionGroups(t *testing.T) {
	t.Parallel()
	f := newScanFixture(t)
	f.scan(t, "net.lua", `
--- @module net
local net = {}

--- @section sockets
--- Socket helpers.

--- Opens a socket.
function net.open()
end

--- Closes a socket.
function net.close()
end
`)

	sec := f.reg.Lookup("sockets")
	require.NotNil(t, sec)
	assert.Equal(t, refs.KindSection, sec.Kind)

	fns := f.reg.ElementsIn(refs.KindFunction, sec)
	require.Len(t, fns, 2)
	assert.Equal(t, "net.open", fns[0].Name())
	assert.Equal(t, "net.close", fns[1].Name())
}
