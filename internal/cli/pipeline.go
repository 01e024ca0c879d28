package cli

import (
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/mvp-joe/luadox/internal/config"
	"github.com/mvp-joe/luadox/internal/content"
	"github.com/mvp-joe/luadox/internal/crawler"
	"github.com/mvp-joe/luadox/internal/parser"
	"github.com/mvp-joe/luadox/internal/prerender"
	"github.com/mvp-joe/luadox/internal/refs"
	"github.com/mvp-joe/luadox/internal/tags"
)

// runPipeline executes a full documentation build: crawl sources,
// scan comments, resolve references, and assemble pages. Each call
// starts from a fresh registry so rebuilds never see stale entities.
func runPipeline(rootDir string, cfg *config.Config, logger *log.Logger, progress bool) (*prerender.Result, error) {
	ctx := refs.NewContext(logger)
	reg := refs.NewRegistry(ctx)
	tp := tags.NewParser(logger)
	sc := parser.NewScanner(tp, reg, ctx)

	roots := make([]string, len(cfg.Paths.Sources))
	for i, src := range cfg.Paths.Sources {
		if filepath.IsAbs(src) {
			roots[i] = src
		} else {
			roots[i] = filepath.Join(rootDir, src)
		}
	}

	cr, err := crawler.New(sc, ctx, crawler.Options{
		Roots:    roots,
		Ignore:   cfg.Paths.Ignore,
		Follow:   cfg.Paths.Follow,
		Progress: progress,
	})
	if err != nil {
		return nil, err
	}
	if err := cr.Crawl(); err != nil {
		return nil, err
	}
	for _, page := range cfg.Manual {
		path := page.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(rootDir, path)
		}
		if err := cr.Manual(page.ID, path); err != nil {
			return nil, err
		}
	}

	cp := content.NewParser(tp, reg, ctx)
	return prerender.New(reg, ctx, cp).Process(), nil
}
