// Package crawler discovers Lua sources under the configured roots and
// feeds them to the scanner, optionally chasing require() statements to
// pull in modules outside the root directories.
package crawler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dominikbraun/graph"
	"github.com/gobwas/glob"
	"github.com/schollz/progressbar/v3"

	"github.com/mvp-joe/luadox/internal/parser"
	"github.com/mvp-joe/luadox/internal/refs"
)

// compiledPattern holds both the pattern string and compiled glob
type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// Options configures a crawl.
type Options struct {
	// Roots are files or directories to scan for Lua sources.
	Roots []string
	// Ignore patterns are matched against slash-normalized paths
	// relative to the root being walked.
	Ignore []string
	// Follow chases require() statements found in scanned sources.
	Follow bool
	// Progress draws a progress bar on stderr.
	Progress bool
}

// Crawler walks source roots and drives the scanner over every
// discovered file. It records the require() dependency graph between
// modules as it goes.
type Crawler struct {
	ctx     *refs.Context
	scanner *parser.Scanner
	opts    Options
	ignore  []compiledPattern

	// deps maps module paths to the modules they require.
	deps graph.Graph[string, string]
	seen map[string]bool
	// files lists every crawled path, in crawl order.
	files []string
}

// New creates a crawler over the given scanner.
func New(sc *parser.Scanner, ctx *refs.Context, opts Options) (*Crawler, error) {
	c := &Crawler{
		ctx:     ctx,
		scanner: sc,
		opts:    opts,
		deps:    graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles()),
		seen:    make(map[string]bool),
	}
	for _, pattern := range opts.Ignore {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", pattern, err)
		}
		c.ignore = append(c.ignore, compiledPattern{pattern: pattern, glob: g})
		// A bare directory name should behave like "dir/**".
		dir, err := glob.Compile(strings.TrimSuffix(pattern, "/")+"/**", '/')
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", pattern, err)
		}
		c.ignore = append(c.ignore, compiledPattern{pattern: pattern, glob: dir})
	}
	return c, nil
}

// Crawl scans every Lua file under the configured roots. When Follow
// is set, modules referenced via require() are resolved against the
// roots and each file's own directory and scanned as well.
func (c *Crawler) Crawl() error {
	queue, err := c.discover()
	if err != nil {
		return err
	}
	if len(queue) == 0 {
		return errors.New("no Lua sources found under the configured roots")
	}

	var bar *progressbar.ProgressBar
	if c.opts.Progress {
		bar = progressbar.NewOptions(len(queue),
			progressbar.OptionSetDescription("Parsing sources"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWriter(os.Stderr),
		)
	}

	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]
		if c.seen[path] {
			continue
		}
		c.seen[path] = true

		requires, err := c.crawlFile(path)
		if err != nil {
			return err
		}
		if c.opts.Follow {
			for _, name := range requires {
				dep, ok := c.resolveRequire(path, name)
				if !ok {
					continue
				}
				c.addDep(path, dep)
				if !c.seen[dep] {
					queue = append(queue, dep)
					if bar != nil {
						bar.ChangeMax(bar.GetMax() + 1)
					}
				}
			}
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}
	return nil
}

// Manual scans a markdown manual page under the given page id.
func (c *Crawler) Manual(id, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open manual page: %w", err)
	}
	defer f.Close()
	return c.scanner.ScanManual(id, path, f)
}

// Files returns every crawled source path, sorted.
func (c *Crawler) Files() []string {
	files := make([]string, len(c.files))
	copy(files, c.files)
	sort.Strings(files)
	return files
}

// Requires returns the modules the given file requires, per the
// dependency graph built during the crawl.
func (c *Crawler) Requires(path string) []string {
	adj, err := c.deps.AdjacencyMap()
	if err != nil {
		return nil
	}
	var out []string
	for dep := range adj[path] {
		out = append(out, dep)
	}
	sort.Strings(out)
	return out
}

func (c *Crawler) crawlFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source file: %w", err)
	}
	defer f.Close()

	requires, err := c.scanner.ScanSource(path, f)
	if err != nil {
		return nil, err
	}
	c.files = append(c.files, path)
	_ = c.deps.AddVertex(path)
	return requires, nil
}

func (c *Crawler) addDep(from, to string) {
	_ = c.deps.AddVertex(to)
	if err := c.deps.AddEdge(from, to); err != nil {
		// Duplicate requires and require cycles are normal in Lua
		// projects. The graph just skips those edges.
		if !errors.Is(err, graph.ErrEdgeAlreadyExists) && !errors.Is(err, graph.ErrEdgeCreatesCycle) {
			c.ctx.Logger.Warnf("dependency edge %s -> %s: %s", from, to, err)
		}
	}
}

// discover walks the roots and collects every non-ignored .lua file.
func (c *Crawler) discover() ([]string, error) {
	var found []string
	for _, root := range c.opts.Roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("source path %q: %w", root, err)
		}
		if !info.IsDir() {
			found = append(found, root)
			continue
		}
		err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return nil
			}
			if filepath.Ext(path) != ".lua" {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			if c.shouldIgnore(filepath.ToSlash(rel)) {
				return nil
			}
			found = append(found, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(found)
	return found, nil
}

func (c *Crawler) shouldIgnore(relPath string) bool {
	for _, cp := range c.ignore {
		if cp.glob.Match(relPath) {
			return true
		}
	}
	return false
}

// resolveRequire maps a dotted require() name to a file on disk,
// checking foo/bar.lua and foo/bar/init.lua relative to the requiring
// file's directory and then each root.
func (c *Crawler) resolveRequire(from, name string) (string, bool) {
	slashed := strings.ReplaceAll(name, ".", "/")
	bases := []string{filepath.Dir(from)}
	bases = append(bases, c.opts.Roots...)
	for _, base := range bases {
		for _, candidate := range []string{slashed + ".lua", slashed + "/init.lua"} {
			path := filepath.Join(base, filepath.FromSlash(candidate))
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, true
			}
		}
	}
	return "", false
}
