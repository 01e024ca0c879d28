package parser

import (
	"bufio"
	"io"
	"regexp"
	"strings"

	"github.com/mvp-joe/luadox/internal/refs"
)

var (
	reHeading  = regexp.MustCompile(`^(#+) *(.*?) *$`)
	reSlugChar = regexp.MustCompile(`[^a-zA-Z0-9 ]`)
)

// ScanManual parses a markdown file as a manual page. The page's symbol
// is the configured id; markdown headings up to level 3 become section
// refs that can be referenced anywhere a reference is accepted.
// Heading symbols are the heading text lowercased with spaces turned
// into underscores.
func (s *Scanner) ScanManual(id, path string, r io.Reader) error {
	topref := refs.NewRef(path, 1, nil)
	topref.Kind = refs.KindManual
	topref.Symbol = id
	topref.Level = -1
	s.ctx.File = path
	s.ctx.Line = 1
	s.reg.Add(topref, nil)

	ref := topref
	sections := 0
	fences := 0
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for sc.Scan() {
		n++
		line := sc.Text()
		s.ctx.Line = n
		fences += strings.Count(line, "```")
		// A heading inside a fenced code block is just code.
		if m := reHeading.FindStringSubmatch(line); m != nil && fences%2 == 0 {
			level := len(m[1])
			heading := m[2]
			if level <= 3 {
				if ref == topref {
					topref.Flags.Display = heading
					topref.Invalidate()
				}
				sec := refs.NewRef(path, n, []*refs.Ref{topref})
				sec.Kind = refs.KindSection
				sec.Symbol = slugify(heading)
				sec.Level = level
				sec.Flags.Display = heading
				sec.Collection = sec.Symbol
				sec.CollectionRef = topref
				s.reg.Add(sec, nil)
				ref = sec
				sections++
				continue
			}
		}
		ref.AppendRaw(n, line)
	}
	if err := sc.Err(); err != nil {
		return err
	}
	if sections == 0 && !topref.HasContent() {
		s.ctx.Fatalf("manual page %s has no sections and no content", id)
	}
	return nil
}

func slugify(heading string) string {
	s := reSlugChar.ReplaceAllString(strings.ToLower(heading), "")
	return strings.ReplaceAll(s, " ", "_")
}
