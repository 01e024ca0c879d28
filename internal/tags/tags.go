// Package tags defines the annotation grammar recognized in documentation
// comments. A closed table maps each tag name to an ordered list of typed
// arguments, and Parser coerces the raw token list of an "@tag arg1 arg2"
// line into a typed Tag value.
package tags

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

// Kind identifies a recognized tag.
type Kind string

const (
	KindUnknown Kind = ""

	// Collection-declaring tags.
	KindModule  Kind = "module"
	KindClass   Kind = "class"
	KindSection Kind = "section"
	KindTable   Kind = "table"

	// Modifier tags.
	KindWithin    Kind = "within"
	KindField     Kind = "field"
	KindAlias     Kind = "alias"
	KindCompact   Kind = "compact"
	KindFullnames Kind = "fullnames"
	KindInherits  Kind = "inherits"
	KindMeta      Kind = "meta"
	KindScope     Kind = "scope"
	KindRename    Kind = "rename"
	KindDisplay   Kind = "display"
	KindType      Kind = "type"
	KindOrder     Kind = "order"

	// Content tags.
	KindCode    Kind = "code"
	KindUsage   Kind = "usage"
	KindExample Kind = "example"
	KindWarning Kind = "warning"
	KindNote    Kind = "note"
	KindSee     Kind = "see"
	KindTParam  Kind = "tparam"
	KindTReturn Kind = "treturn"
)

// ArgType describes how positional tokens are coerced into one argument.
type ArgType int

const (
	// ArgString consumes a single token.
	ArgString ArgType = iota
	// ArgInt consumes a single token that must be numeric.
	ArgInt
	// ArgRest consumes all remaining tokens as one space-joined string.
	// Must be the last declared argument.
	ArgRest
	// ArgPipeList consumes a single token and splits it on "|".
	ArgPipeList
	// ArgSpaceList consumes all remaining tokens as a list. Must be the
	// last declared argument.
	ArgSpaceList
)

// Arg is one declared argument of a tag.
type Arg struct {
	Name     string
	Type     ArgType
	Optional bool
}

// Grammar maps tag kinds to their ordered argument declarations.
type Grammar map[Kind][]Arg

// Default is the annotation grammar for documentation comments.
func Default() Grammar {
	return Grammar{
		KindModule:  {{Name: "name", Type: ArgString}},
		KindClass:   {{Name: "name", Type: ArgString}, {Name: "superclass", Type: ArgString, Optional: true}},
		KindSection: {{Name: "name", Type: ArgString}},
		KindTable:   {{Name: "name", Type: ArgString}},

		KindWithin:    {{Name: "name", Type: ArgString}},
		KindField:     {{Name: "name", Type: ArgString}, {Name: "desc", Type: ArgRest}},
		KindAlias:     {{Name: "name", Type: ArgString}},
		KindCompact:   {{Name: "elements", Type: ArgSpaceList, Optional: true}},
		KindFullnames: {},
		KindInherits:  {{Name: "superclass", Type: ArgString}},
		KindMeta:      {{Name: "value", Type: ArgString}},
		KindScope:     {{Name: "name", Type: ArgString}},
		KindRename:    {{Name: "name", Type: ArgString}},
		KindDisplay:   {{Name: "name", Type: ArgString}},
		KindType:      {{Name: "types", Type: ArgPipeList}},
		KindOrder:     {{Name: "whence", Type: ArgString}, {Name: "anchor", Type: ArgString, Optional: true}},

		KindCode:    {{Name: "lang", Type: ArgString, Optional: true}},
		KindUsage:   {{Name: "lang", Type: ArgString, Optional: true}},
		KindExample: {{Name: "lang", Type: ArgString, Optional: true}},
		KindWarning: {{Name: "title", Type: ArgRest, Optional: true}},
		KindNote:    {{Name: "title", Type: ArgRest, Optional: true}},
		KindSee:     {{Name: "refs", Type: ArgSpaceList}},
		KindTParam: {
			{Name: "types", Type: ArgPipeList},
			{Name: "name", Type: ArgString},
			{Name: "desc", Type: ArgRest, Optional: true},
		},
		KindTReturn: {
			{Name: "types", Type: ArgPipeList},
			{Name: "desc", Type: ArgRest, Optional: true},
		},
	}
}

// Tag is a parsed annotation. Arguments are accessed by their declared
// name through the typed accessors.
type Tag struct {
	Kind Kind
	// Raw holds the as-written tag name when Kind is KindUnknown.
	Raw  string
	args map[string]any
}

// NewTag builds a tag programmatically, as transforms do when expanding
// one source tag into several.
func NewTag(kind Kind, args map[string]any) Tag {
	return Tag{Kind: kind, args: args}
}

// Has reports whether the named argument was present in the input.
func (t Tag) Has(name string) bool {
	_, ok := t.args[name]
	return ok
}

// String returns the named string argument, or "" if absent.
func (t Tag) String(name string) string {
	s, _ := t.args[name].(string)
	return s
}

// Int returns the named integer argument, or 0 if absent.
func (t Tag) Int(name string) int {
	n, _ := t.args[name].(int)
	return n
}

// List returns the named list argument, or nil if absent.
func (t Tag) List(name string) []string {
	l, _ := t.args[name].([]string)
	return l
}

// GrammarError reports a malformed tag argument list. It is recoverable:
// callers log it with file/line and treat the tag's effect as absent.
type GrammarError struct {
	Tag Kind
	Msg string
}

func (e *GrammarError) Error() string {
	return fmt.Sprintf("@%s is invalid: %s", e.Tag, e.Msg)
}

// TransformFunc expands one coerced tag into the tags actually emitted.
// It is the extension point for alternate annotation dialects.
type TransformFunc func(Tag) ([]Tag, error)

// LuaCATSTransform supports the "@class name: parent" form used by
// LuaCATS/EmmyLua by synthesizing an implicit @inherits. A trailing
// colon with no superclass is a grammar error, never a symbol.
func LuaCATSTransform(t Tag) ([]Tag, error) {
	if t.Kind == KindClass && strings.HasSuffix(t.String("name"), ":") {
		if !t.Has("superclass") {
			return nil, &GrammarError{Tag: KindClass, Msg: fmt.Sprintf("%q names no superclass", t.String("name"))}
		}
		return []Tag{
			NewTag(KindClass, map[string]any{"name": strings.TrimSuffix(t.String("name"), ":")}),
			NewTag(KindInherits, map[string]any{"superclass": t.String("superclass")}),
		}, nil
	}
	return []Tag{t}, nil
}

var (
	reTag          = regexp.MustCompile(`^ *@([^{\s]\S*) *(.*)`)
	reCommentedTag = regexp.MustCompile(`^--+ *@([^{\s]\S*) *(.*)`)
)

// Parser recognizes @tag annotations in comment lines.
type Parser struct {
	grammar   Grammar
	transform TransformFunc
	logger    *log.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithGrammar replaces the default grammar table.
func WithGrammar(g Grammar) Option {
	return func(p *Parser) { p.grammar = g }
}

// WithTransform replaces the default post-coercion tag transform.
func WithTransform(fn TransformFunc) Option {
	return func(p *Parser) { p.transform = fn }
}

// NewParser creates a tag parser with the default grammar and the
// LuaCATS transform.
func NewParser(logger *log.Logger, opts ...Option) *Parser {
	p := &Parser{
		grammar:   Default(),
		transform: LuaCATSTransform,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse looks for a @tag in the given raw line and returns the emitted
// tags, or nil if the line carries no tag. An unrecognized tag name
// yields a single KindUnknown tag so callers can warn and continue. A
// malformed argument list returns a *GrammarError.
//
// When requireComment is true the tag must appear behind a comment
// leader, which is the case for source files; manual page content is
// scanned with requireComment false.
func (p *Parser) Parse(line, file string, lineno int, requireComment bool) ([]Tag, error) {
	re := reTag
	if requireComment {
		re = reCommentedTag
	}
	m := re.FindStringSubmatch(line)
	if m == nil {
		return nil, nil
	}
	name, rest := m[1], m[2]
	decls, ok := p.grammar[Kind(name)]
	if !ok {
		return []Tag{{Kind: KindUnknown, Raw: name}}, nil
	}
	args := strings.Fields(rest)
	coerced, consumed, err := coerce(Kind(name), args, decls)
	if err != nil {
		return nil, err
	}
	if consumed < len(args) {
		p.logger.Warnf("%s:%d: tag @%s takes %d args but received %d, ignoring extra args",
			file, lineno, name, len(decls), len(args))
	}
	return p.transform(Tag{Kind: Kind(name), args: coerced})
}

// coerce consumes positional tokens left to right per the declarations.
// Returns the coerced arguments and how many tokens were consumed.
func coerce(kind Kind, args []string, decls []Arg) (map[string]any, int, error) {
	out := make(map[string]any, len(decls))
	for n, decl := range decls {
		if n >= len(args) {
			if decl.Optional {
				break
			}
			return nil, 0, &GrammarError{Tag: kind, Msg: fmt.Sprintf("requires at least %d arguments", n+1)}
		}
		switch decl.Type {
		case ArgString:
			out[decl.Name] = args[n]
		case ArgInt:
			v, err := strconv.Atoi(args[n])
			if err != nil {
				return nil, 0, &GrammarError{Tag: kind, Msg: fmt.Sprintf("argument %d must be a number", n)}
			}
			out[decl.Name] = v
		case ArgPipeList:
			out[decl.Name] = strings.Split(args[n], "|")
		case ArgRest:
			out[decl.Name] = strings.Join(args[n:], " ")
			return out, len(args), nil
		case ArgSpaceList:
			out[decl.Name] = args[n:]
			return out, len(args), nil
		}
	}
	return out, len(out), nil
}
