package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/luadox/internal/refs"
)

// Test Plan for manual page scanning:
// - The page registers under the configured id
// - Headings h1-h3 become referenceable section refs with slugified
//   symbols; deeper headings stay body text
// - The first heading becomes the page's display title
// - Headings inside fenced code blocks are ignored
// - Body lines accumulate on the most recent section

func TestScanManual(t *testing.T) {
	t.Parallel()
	f := newScanFixture(t)

	src := `# Getting Started

Welcome to the library.

## Quick Install!

Run the usual command.

` + "```" + `
# this is a shell comment, not a heading
` + "```" + `

#### Deep heading stays text
`
	err := f.sc.ScanManual("guide", "guide.md", strings.NewReader(src))
	require.NoError(t, err)

	page := f.reg.Page("guide")
	require.NotNil(t, page)
	assert.Equal(t, refs.KindManual, page.Kind)
	assert.Equal(t, "Getting Started", page.Display())

	intro := f.reg.Lookup("guide.getting_started")
	require.NotNil(t, intro)
	assert.Equal(t, refs.KindSection, intro.Kind)
	assert.Equal(t, 1, intro.Level)
	assert.Equal(t, "Getting Started", intro.Flags.Display)

	install := f.reg.Lookup("guide.quick_install")
	require.NotNil(t, install)
	assert.Equal(t, 2, install.Level)

	// The shell comment inside the fence never became a section.
	assert.Nil(t, f.reg.Lookup("guide.this_is_a_shell_comment_not_a_heading"))

	// Deep headings and body text land on the open section.
	var rawTail string
	for _, l := range install.Raw {
		rawTail += l.Text + "\n"
	}
	assert.Contains(t, rawTail, "Run the usual command.")
	assert.Contains(t, rawTail, "#### Deep heading stays text")
}
