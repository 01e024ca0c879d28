// Package refs holds the typed model of documentable entities and the
// symbol table built over them. A Ref is anything that can be referenced:
// modules, classes, tables, sections, fields, functions, and manual pages.
//
// Page refs (module, class, manual) own a rendered page. Every other ref
// is traced back to its page through its scope stack, and its name is
// unique within that page.
package refs

// Kind is the type of a documentable entity.
type Kind string

const (
	KindUnknown  Kind = ""
	KindModule   Kind = "module"
	KindClass    Kind = "class"
	KindFunction Kind = "function"
	KindField    Kind = "field"
	KindSection  Kind = "section"
	KindTable    Kind = "table"
	KindManual   Kind = "manual"
)

// IsPage reports whether refs of this kind own their own rendered page.
func (k Kind) IsPage() bool {
	return k == KindModule || k == KindClass || k == KindManual
}

// IsCollection reports whether refs of this kind group fields and
// functions under a heading within a page.
func (k Kind) IsCollection() bool {
	return k == KindSection || k == KindTable || k.IsPage()
}

// Order is a parsed @order flag controlling sibling placement.
type Order struct {
	// Whence is "first", "last", "before" or "after".
	Whence string
	// Anchor is the sibling symbol for before/after.
	Anchor string
}

// Flags holds the modifier tags parsed for a ref. Mutating a field that
// affects naming must be followed by Ref.Invalidate.
type Flags struct {
	Rename    string
	Scope     string
	Display   string
	Alias     string
	Meta      string
	Inherits  string
	Types     []string
	Order     *Order
	Compact   []string
	Fullnames bool
}

// Line is one raw content line awaiting content parsing.
type Line struct {
	Num  int
	Text string
}

// Ref is a documentable entity. Refs begin life untyped (KindUnknown)
// when the scanner opens a comment block, are promoted to a concrete
// kind once their governing tag or code line is seen, and are registered
// into the Registry when the block or scope terminates.
type Ref struct {
	Kind Kind
	// File and Line locate the declaration in source.
	File string
	Line int
	// Symbol is the name as written in source (e.g. Class:method),
	// kept unnormalized for display purposes.
	Symbol string
	// Implicit marks a module ref generated for a file that lacks an
	// explicit @module tag.
	Implicit bool
	// Level is the table nesting depth recorded when a table scope
	// opened, or the heading level for manual sections.
	Level int
	// Scopes is the stack of enclosing refs active at the point this
	// ref was declared, innermost last.
	Scopes []*Ref
	// Within is the unresolved @within collection name, if any.
	Within string
	// Collection is the name of the collection this ref was declared
	// under, and CollectionRef the collection's own ref.
	Collection    string
	CollectionRef *Ref
	// Args holds declared parameter names parsed from a function
	// signature in source.
	Args []string
	// Raw accumulates content lines until the content parser runs.
	Raw []Line
	// Flags are the parsed modifier tags.
	Flags Flags
	// Meta is free-form bookkeeping shared across passes, such as
	// "added" or the resolved @within page symbol.
	Meta map[string]string

	// Derivation caches, populated lazily by name.go.
	name    string
	display string
	topsym  string
}

// NewRef creates an untyped ref at the given location carrying the
// current scope stack. The stack is copied so later scope mutations do
// not retroactively reparent the ref.
func NewRef(file string, line int, scopes []*Ref) *Ref {
	r := &Ref{
		File: file,
		Line: line,
		Meta: make(map[string]string),
	}
	r.Scopes = append(r.Scopes, scopes...)
	return r
}

// Scope is the immediate containing scope, or nil for page refs that
// head their own scope.
func (r *Ref) Scope() *Ref {
	if len(r.Scopes) == 0 {
		return nil
	}
	return r.Scopes[len(r.Scopes)-1]
}

// Invalidate clears the cached derived names. Must be called after any
// flag mutation that affects naming.
func (r *Ref) Invalidate() {
	r.name = ""
	r.display = ""
	r.topsym = ""
}

// AppendRaw adds a raw content line for later content parsing.
func (r *Ref) AppendRaw(num int, text string) {
	r.Raw = append(r.Raw, Line{Num: num, Text: text})
}

// HasContent reports whether any accumulated raw line carries text once
// comment leaders are stripped. Used to decide whether a disconnected
// comment block deserves a warning.
func (r *Ref) HasContent() bool {
	for _, l := range r.Raw {
		if stripCommentLead(l.Text) != "" {
			return true
		}
	}
	return false
}

func stripCommentLead(s string) string {
	i := 0
	for i < len(s) && s[i] == '-' {
		i++
	}
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	j := len(s)
	for j > i && (s[j-1] == ' ' || s[j-1] == '\t') {
		j--
	}
	return s[i:j]
}
