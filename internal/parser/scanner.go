// Package parser scans raw source lines and manual pages for
// documentation comment blocks, building refs and registering them with
// the symbol table. It is deliberately line-oriented: the host
// language's grammar is never fully parsed, only probed with
// heuristics.
package parser

import (
	"bufio"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mvp-joe/luadox/internal/refs"
	"github.com/mvp-joe/luadox/internal/tags"
)

// Scanner walks source files, tracking nested scope (module, class,
// table) and attaching comment content to the entities it creates.
type Scanner struct {
	tags *tags.Parser
	reg  *refs.Registry
	ctx  *refs.Context
}

// NewScanner creates a scanner registering into reg and reporting
// through ctx.
func NewScanner(tp *tags.Parser, reg *refs.Registry, ctx *refs.Context) *Scanner {
	return &Scanner{tags: tp, reg: reg, ctx: ctx}
}

var (
	reDocComment       = regexp.MustCompile(`^(---[^-]|---+$)`)
	reTrailingComment  = regexp.MustCompile(`--.*`)
	reRequire          = regexp.MustCompile(`\brequire\b *\(?['"]([^'"]+)['"]`)
	reFunctionDecl     = regexp.MustCompile(`\bfunction *([^\s(]+) *\(([^)]*)(\))?`)
	reFunctionAssign   = regexp.MustCompile(`(\S+) *= *function *\(([^)]*)(\))?`)
	reFunctionContinue = regexp.MustCompile(`([^)]*)(\))?`)
	reBracketField     = regexp.MustCompile(`\[([^]]+)\] *=`)
	reDottedField      = regexp.MustCompile(`\b([^\s=]+) *=`)
)

// ScanSource parses one source file, registering every documented
// element it finds. It returns the module names discovered in require()
// calls so the caller can crawl them.
func (s *Scanner) ScanSource(path string, r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, strings.TrimSpace(sc.Text()))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	// The implicit module for this file, registered lazily only if
	// something inside it is registered without an explicit @module.
	modref := refs.NewRef(path, 1, nil)
	modref.Kind = refs.KindModule
	modref.Symbol = moduleNameForPath(path)
	modref.Implicit = true
	modref.Level = -1
	modref.Collection = modref.Symbol
	modref.CollectionRef = modref

	st := &sourceState{
		path:       path,
		lines:      lines,
		modref:     modref,
		scopes:     []*refs.Ref{modref},
		collection: modref.Symbol,
		colRef:     modref,
		capture:    true,
	}

	s.ctx.File = path
	s.ctx.Line = 1
	for st.next() {
		s.scanLine(st)
	}
	// True end of input with a block still open: a governed block is
	// registered, a contentful block with no governing tag is a
	// structural error, an empty stray block is dropped.
	if st.ref != nil {
		switch {
		case st.ref.Symbol != "":
			s.reg.Add(st.ref, st.modref)
		case st.ref.HasContent():
			s.ctx.Fatalf("comment block open at end of file has no governing tag")
		}
	}
	s.ctx.SetRef(nil)
	return st.requires, nil
}

// sourceState is the per-file scanner state machine.
type sourceState struct {
	path  string
	lines []string
	pos   int // 1-based line number of current
	line  string

	modref *refs.Ref
	scopes []*refs.Ref
	// collection names the active collection; colRef is its ref.
	collection string
	colRef     *refs.Ref
	// capture is false while a @class/@module/@table is pending, which
	// suppresses field/function probing of the next code line.
	capture    bool
	tableDepth int
	ref        *refs.Ref
	requires   []string
}

func (st *sourceState) next() bool {
	if st.pos >= len(st.lines) {
		return false
	}
	st.line = st.lines[st.pos]
	st.pos++
	return true
}

func (s *Scanner) scanLine(st *sourceState) {
	n, line := st.pos, st.line
	s.ctx.Line = n

	if reDocComment.MatchString(line) && st.ref == nil {
		// Start of a content block: accumulate comments and modifier
		// tags against a fresh untyped ref until the block terminates.
		st.ref = refs.NewRef(st.path, n, st.scopes)
		s.ctx.SetRef(st.ref)
		s.ctx.Line = n
	}

	if strings.HasPrefix(line, "--") {
		if st.ref != nil {
			s.scanCommentLine(st, n, line)
		}
		return
	}
	s.scanCodeLine(st, n, line)
}

// scanCommentLine interprets one comment line inside an open block.
func (s *Scanner) scanCommentLine(st *sourceState, n int, line string) {
	parsed, err := s.tags.Parse(line, st.path, n, true)
	if err != nil {
		s.ctx.Warnf("%v", err)
		return
	}
	if len(parsed) == 0 {
		st.ref.AppendRaw(n, line)
		return
	}
	for _, tag := range parsed {
		s.applyTag(st, n, line, tag)
	}
}

func (s *Scanner) applyTag(st *sourceState, n int, line string, tag tags.Tag) {
	ref := st.ref
	switch tag.Kind {
	case tags.KindModule, tags.KindClass, tags.KindSection, tags.KindTable:
		name := tag.String("name")
		ref.Kind = refs.Kind(tag.Kind)
		ref.Line = n
		ref.Symbol = name
		ref.Level = st.tableDepth
		ref.Scopes = append([]*refs.Ref(nil), st.scopes...)
		ref.Collection = name
		ref.CollectionRef = ref
		ref.Invalidate()
		st.collection = name
		st.colRef = ref

		switch tag.Kind {
		case tags.KindClass:
			// Nested classes are not supported: a class declared
			// within a class scope displaces it.
			if st.scopes[len(st.scopes)-1].Kind == refs.KindClass {
				st.scopes = st.scopes[:len(st.scopes)-1]
				ref.Scopes = append([]*refs.Ref(nil), st.scopes...)
			}
			st.scopes = []*refs.Ref{st.scopes[0], ref}
			st.capture = false
		case tags.KindModule:
			st.scopes = []*refs.Ref{st.scopes[0], ref}
			st.capture = false
		case tags.KindTable:
			st.scopes = append(st.scopes, ref)
			st.capture = false
		case tags.KindSection:
			// A section registers a heading, not a scope change.
		}

	case tags.KindWithin:
		ref.Within = tag.String("name")

	case tags.KindField:
		// Inject a field ref directly, with a snapshot of the current
		// scope stack so later scope pops do not reparent it.
		f := refs.NewRef(st.path, n, st.scopes)
		f.Kind = refs.KindField
		f.Symbol = tag.String("name")
		f.Collection = st.collection
		f.CollectionRef = st.colRef
		f.AppendRaw(n, tag.String("desc"))
		s.reg.Add(f, st.modref)

	case tags.KindAlias:
		ref.Flags.Alias = tag.String("name")
		s.reg.SetAlias(tag.String("name"), ref)

	case tags.KindCompact:
		ref.Flags.Compact = tag.List("elements")
		if len(ref.Flags.Compact) == 0 {
			ref.Flags.Compact = []string{"fields", "functions"}
		}

	case tags.KindFullnames:
		ref.Flags.Fullnames = true

	case tags.KindMeta:
		ref.Flags.Meta = tag.String("value")
		ref.Invalidate()
	case tags.KindInherits:
		ref.Flags.Inherits = tag.String("superclass")
		ref.Invalidate()
	case tags.KindDisplay:
		ref.Flags.Display = tag.String("name")
		ref.Invalidate()
	case tags.KindScope:
		ref.Flags.Scope = tag.String("name")
		ref.Invalidate()
	case tags.KindRename:
		ref.Flags.Rename = tag.String("name")
		ref.Invalidate()
		// Self-referential rename-the-container idiom: renaming the
		// entity that heads the current scope renames that scope.
		last := st.scopes[len(st.scopes)-1]
		if ref.Kind == last.Kind && ref.Symbol == last.Symbol {
			last.Flags.Rename = tag.String("name")
			last.Invalidate()
		}

	case tags.KindType:
		ref.Flags.Types = tag.List("types")

	case tags.KindOrder:
		ref.Flags.Order = &refs.Order{Whence: tag.String("whence"), Anchor: tag.String("anchor")}

	case tags.KindUnknown:
		// Content parsing decides what to do with unknown tags.
		ref.AppendRaw(n, line)

	default:
		// Content tags (@tparam, @note, @usage, ...) stay raw until
		// the content parser runs.
		ref.AppendRaw(n, line)
	}
}

// scanCodeLine handles a non-comment line: table scope tracking,
// require() discovery, and field/function probing for the open block.
func (s *Scanner) scanCodeLine(st *sourceState, n int, line string) {
	line = reTrailingComment.ReplaceAllString(line, "")
	st.tableDepth += strings.Count(line, "{")
	st.tableDepth -= strings.Count(line, "}")
	for last := st.scopes[len(st.scopes)-1]; last.Kind == refs.KindTable && st.tableDepth <= last.Level; last = st.scopes[len(st.scopes)-1] {
		st.scopes = st.scopes[:len(st.scopes)-1]
		enclosing := st.scopes[len(st.scopes)-1]
		st.collection = enclosing.Collection
		st.colRef = enclosing.CollectionRef
		if st.colRef == nil {
			st.colRef = enclosing
		}
	}

	if !st.capture {
		// A @class/@module/@table block is pending; this line closes
		// and registers it without probing for definitions.
		if st.ref != nil {
			if st.collection == "" {
				s.ctx.Fatalf("preceding comment block has no @section")
			}
			if s.checkDisconnected(st.ref) {
				s.reg.Add(st.ref, st.modref)
			}
			st.ref = nil
			s.ctx.SetRef(nil)
			st.capture = true
		}
		return
	}

	if m := reRequire.FindStringSubmatch(line); m != nil {
		st.requires = append(st.requires, m[1])
	}
	if st.ref == nil {
		return
	}

	// Probe the line for a definition. Inside a table, one-line entries
	// are more likely fields than functions; elsewhere functions win.
	// This ordering is an accepted heuristic against free-form source,
	// not a guaranteed-correct parse.
	scope := st.scopes[len(st.scopes)-1]
	probes := []refs.Kind{refs.KindFunction, refs.KindField}
	if scope.Kind == refs.KindTable {
		probes = []refs.Kind{refs.KindField, refs.KindFunction}
	}
	for _, kind := range probes {
		var name string
		var args []string
		if kind == refs.KindFunction {
			name, args = s.probeFunction(st, line)
		} else {
			name = probeField(line)
		}
		if name == "" {
			continue
		}
		if kind == refs.KindField && scope.Kind == refs.KindModule && scope.Name() == name {
			// A local table named after the module itself; skip it.
			continue
		}
		if st.ref.Symbol != "" {
			s.ctx.Logger.Errorf("%s:%d: %s defined before %s %s has terminated; separate with a blank line",
				st.ref.File, st.ref.Line, kind, st.ref.Kind, st.ref.Name())
		}
		st.ref.Kind = kind
		st.ref.File = st.path
		st.ref.Line = n
		st.ref.Scopes = append([]*refs.Ref(nil), st.scopes...)
		st.ref.Symbol = name
		st.ref.Collection = st.collection
		st.ref.CollectionRef = st.colRef
		st.ref.Args = args
		st.ref.Invalidate()
		break
	}
	if s.checkDisconnected(st.ref) {
		s.reg.Add(st.ref, st.modref)
	}
	st.ref = nil
	s.ctx.SetRef(nil)
}

// checkDisconnected reports whether the open ref should be registered.
// A block that never attached to a symbol is dropped, with a warning
// when it carried actual text.
func (s *Scanner) checkDisconnected(ref *refs.Ref) bool {
	if ref == nil || ref.Meta["added"] != "" {
		return false
	}
	if ref.Symbol != "" {
		return true
	}
	if ref.HasContent() {
		s.ctx.Logger.Warnf("%s:%d: comment block is not connected with any section, ignoring", ref.File, ref.Line)
	}
	return false
}

// probeFunction looks for a function signature, consuming continuation
// lines when the argument list spans several.
func (s *Scanner) probeFunction(st *sourceState, line string) (string, []string) {
	m := reFunctionDecl.FindStringSubmatch(line)
	if m == nil {
		m = reFunctionAssign.FindStringSubmatch(line)
	}
	if m == nil {
		return "", nil
	}
	name, args, terminated := m[1], splitArgs(m[2]), m[3] != ""
	for !terminated {
		if !st.next() {
			s.ctx.Logger.Errorf("%s:%d: function definition is truncated", st.path, st.pos)
			return "", nil
		}
		s.ctx.Line = st.pos
		cont := reTrailingComment.ReplaceAllString(st.line, "")
		cm := reFunctionContinue.FindStringSubmatch(cont)
		if cm != nil {
			args = append(args, splitArgs(cm[1])...)
			terminated = cm[2] != ""
		}
	}
	return name, args
}

// probeField looks for a field assignment: either a ["name"] = form or
// a dotted assignment.
func probeField(line string) string {
	if m := reBracketField.FindStringSubmatch(line); m != nil {
		return strings.NewReplacer(`'`, "", `"`, "").Replace(m[1])
	}
	if m := reDottedField.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	return ""
}

func splitArgs(argstr string) []string {
	var out []string
	for _, a := range strings.Split(strings.ReplaceAll(argstr, " ", ""), ",") {
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

// moduleNameForPath derives the implicit module name for a file:
// init.lua takes its directory's name, anything else its own basename.
func moduleNameForPath(path string) string {
	dir, file := filepath.Split(path)
	if file == "init.lua" {
		return filepath.Base(filepath.Clean(dir))
	}
	return strings.TrimSuffix(file, ".lua")
}
