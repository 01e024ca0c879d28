// Package content converts the raw comment lines accumulated for one
// entity into structured fragments: markdown runs, admonitions,
// see-also lists, and fenced code blocks, plus per-parameter and
// per-return documentation for functions.
package content

import (
	"regexp"
	"strings"
)

// Fragment is one element of parsed content. Renderers switch on the
// concrete type to decide how to translate it.
type Fragment interface {
	fragment()
}

// Markdown is a run of markdown text lines.
type Markdown struct {
	lines []string
}

func (*Markdown) fragment() {}

// NewMarkdown creates a markdown fragment from pre-joined text.
func NewMarkdown(text string) *Markdown {
	return &Markdown{lines: []string{text}}
}

// Append adds a line to the run.
func (m *Markdown) Append(line string) {
	m.lines = append(m.lines, line)
}

// Text returns the joined markdown.
func (m *Markdown) Text() string {
	return strings.Join(m.lines, "\n")
}

// RStrip trims trailing whitespace from the accumulated run.
func (m *Markdown) RStrip() {
	m.lines = []string{strings.TrimRight(strings.Join(m.lines, "\n"), " \t\n")}
}

// Admonition is a @note or @warning block with nested content.
type Admonition struct {
	Kind  string
	Title string
	Body  Content
}

func (*Admonition) fragment() {}

// SeeAlso carries the resolved identifiers of a @see tag.
type SeeAlso struct {
	IDs []string
}

func (*SeeAlso) fragment() {}

// Content is an ordered list of fragments.
type Content []Fragment

// Markdown returns the trailing markdown fragment, appending a fresh
// one when the last fragment is of a different type.
func (c *Content) Markdown() *Markdown {
	if n := len(*c); n > 0 {
		if md, ok := (*c)[n-1].(*Markdown); ok {
			return md
		}
	}
	md := &Markdown{}
	*c = append(*c, md)
	return md
}

// Empty reports whether the content carries no text at all.
func (c Content) Empty() bool {
	for _, f := range c {
		if md, ok := f.(*Markdown); ok {
			if strings.TrimSpace(md.Text()) != "" {
				return false
			}
			continue
		}
		return false
	}
	return true
}

// Param is the documentation attached to one function parameter.
type Param struct {
	Name  string
	Types []string
	Doc   Content
}

// Return is the documentation for one return value.
type Return struct {
	Types []string
	Doc   Content
}

// FirstSentence extracts the first sentence from the content. When pop
// is true the sentence is removed from the content in place. Used for
// collection headings.
func (c *Content) FirstSentence(pop bool) string {
	if len(*c) == 0 {
		return ""
	}
	md, ok := (*c)[0].(*Markdown)
	if !ok {
		return ""
	}
	first, remaining := SplitFirstSentence(md.Text())
	if pop {
		if remaining != "" {
			(*c)[0] = NewMarkdown(remaining)
		} else {
			*c = (*c)[1:]
		}
	}
	return first
}

// abbreviations whose trailing periods do not end a sentence, grouped
// by first letter.
var abbrev = map[byte][]string{
	'e': {"e.g.", "eg.", "etc.", "et al."},
	'i': {"i.e.", "ie."},
	'v': {"vs."},
}

// SplitFirstSentence splits markdown into its first sentence and the
// remainder. A blank line also terminates the first sentence.
func SplitFirstSentence(s string) (first, remaining string) {
	l := strings.ToLower(s)
	end := len(l) - 1
	last := byte(0)
	n := 0
	for n <= end {
		c := l[n]
		if c == '\n' && last == '\n' {
			break
		}
		if c == '.' && (n == end || l[n+1] == ' ' || l[n+1] == '\n') {
			break
		}
		if variants, ok := abbrev[c]; ok && !isWordChar(last) {
			for _, ab := range variants {
				if strings.HasPrefix(l[n:], ab) {
					n += len(ab) - 1
					break
				}
			}
		}
		last = l[n]
		n++
	}
	if n > end {
		return s, ""
	}
	return s[:n], strings.TrimSpace(s[n+1:])
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z'
}

var (
	reCodeBlock = regexp.MustCompile(`(?s)` + "```" + `.*?` + "```")
	reInline    = regexp.MustCompile("`([^`]+)`")
	reHeading   = regexp.MustCompile(`#+`)
	reBold      = regexp.MustCompile(`\*([^*]+)\*`)
	reLink      = regexp.MustCompile(`!?\[([^]]*)\]\([^)]+\)`)
	reSpaces    = regexp.MustCompile(`\s+`)
)

// PlainText strips markdown and deferred link markers from the content,
// for search index text extraction.
func (c Content) PlainText() string {
	var parts []string
	for _, f := range c {
		switch v := f.(type) {
		case *Markdown:
			parts = append(parts, v.Text())
		case *Admonition:
			parts = append(parts, v.Title, v.Body.PlainText())
		}
	}
	text := strings.Join(parts, " ")
	text = reCodeBlock.ReplaceAllString(text, "")
	text = reInline.ReplaceAllString(text, "$1")
	text = reHeading.ReplaceAllString(text, "")
	text = reBold.ReplaceAllString(text, "$1")
	text = reLink.ReplaceAllString(text, "$1")
	text = reSpaces.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
