// Package search provides full-text search over the documented
// entities of a processed project, backed by an in-memory bleve index.
package search

import (
	"context"
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	_ "github.com/blevesearch/bleve/v2/search/highlight/highlighter/ansi"

	"github.com/mvp-joe/luadox/internal/prerender"
	"github.com/mvp-joe/luadox/internal/refs"
)

// Result is a single search hit.
type Result struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Kind       string   `json:"kind"`
	File       string   `json:"file"`
	Score      float64  `json:"score"`
	Highlights []string `json:"highlights"`
}

// document is the indexed shape of one entity.
type document struct {
	id   string
	name string
	kind string
	file string
	text string
}

// Index is an in-memory full-text index over a prerendered project.
type Index struct {
	index bleve.Index
	mu    sync.RWMutex
}

// NewIndex builds the index from prerendered pages. Every page,
// collection, field, and function is indexed by name and by the plain
// text of its documentation.
func NewIndex(ctx context.Context, res *prerender.Result) (*Index, error) {
	index, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create search index: %w", err)
	}
	if err := indexPages(ctx, index, res); err != nil {
		index.Close()
		return nil, fmt.Errorf("failed to index entities: %w", err)
	}
	return &Index{index: index}, nil
}

func buildMapping() *mapping.IndexMappingImpl {
	indexMapping := bleve.NewIndexMapping()

	textMapping := bleve.NewTextFieldMapping()
	textMapping.Analyzer = "standard"
	textMapping.Store = true
	textMapping.IncludeTermVectors = true

	nameMapping := bleve.NewTextFieldMapping()
	nameMapping.Analyzer = "standard"
	nameMapping.Store = true

	kindMapping := bleve.NewTextFieldMapping()
	kindMapping.Analyzer = "keyword"
	kindMapping.Store = true

	fileMapping := bleve.NewTextFieldMapping()
	fileMapping.Analyzer = "standard"
	fileMapping.Store = true

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("name", nameMapping)
	docMapping.AddFieldMappingsAt("kind", kindMapping)
	docMapping.AddFieldMappingsAt("file", fileMapping)
	docMapping.AddFieldMappingsAt("text", textMapping)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

func indexPages(ctx context.Context, index bleve.Index, res *prerender.Result) error {
	const batchSize = 1000

	batch := index.NewBatch()
	add := func(doc document) error {
		if err := batch.Index(doc.id, map[string]interface{}{
			"name": doc.name,
			"kind": doc.kind,
			"file": doc.file,
			"text": doc.text,
		}); err != nil {
			return fmt.Errorf("failed to add %s to batch: %w", doc.id, err)
		}
		if batch.Size() >= batchSize {
			if err := index.Batch(batch); err != nil {
				return fmt.Errorf("failed to execute batch: %w", err)
			}
			batch = index.NewBatch()
		}
		return nil
	}

	for _, page := range res.Pages {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := add(document{
			id:   page.ID,
			name: page.Heading,
			kind: string(page.Kind),
			file: page.Ref.File,
			text: page.Content.PlainText(),
		}); err != nil {
			return err
		}
		for _, col := range page.Collections {
			for _, f := range col.Fields {
				if err := add(entityDoc(f.ID, f.Ref, f.Content.PlainText())); err != nil {
					return err
				}
			}
			for _, fn := range col.Functions {
				if err := add(entityDoc(fn.ID, fn.Ref, fn.Content.PlainText())); err != nil {
					return err
				}
			}
		}
	}

	if batch.Size() > 0 {
		if err := index.Batch(batch); err != nil {
			return fmt.Errorf("failed to execute final batch: %w", err)
		}
	}
	return nil
}

func entityDoc(id string, ref *refs.Ref, text string) document {
	return document{
		id:   id,
		name: ref.Name(),
		kind: string(ref.Kind),
		file: ref.File,
		text: text,
	}
}

// Search runs a bleve query string query over all indexed entities.
func (ix *Index) Search(ctx context.Context, queryStr string, limit int) ([]*Result, error) {
	if limit <= 0 || limit > 100 {
		limit = 15
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	q := bleve.NewQueryStringQuery(queryStr)
	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	highlightStyle := "ansi"
	req.Highlight = bleve.NewHighlight()
	req.Highlight.Style = &highlightStyle
	req.Highlight.Fields = []string{"text"}
	req.Fields = []string{"name", "kind", "file"}

	hits, err := ix.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]*Result, 0, len(hits.Hits))
	for _, hit := range hits.Hits {
		name, _ := hit.Fields["name"].(string)
		kind, _ := hit.Fields["kind"].(string)
		file, _ := hit.Fields["file"].(string)

		var highlights []string
		for _, snippets := range hit.Fragments {
			highlights = append(highlights, snippets...)
		}
		if len(highlights) > 3 {
			highlights = highlights[:3]
		}

		results = append(results, &Result{
			ID:         hit.ID,
			Name:       name,
			Kind:       kind,
			File:       file,
			Score:      hit.Score,
			Highlights: highlights,
		})
	}
	return results, nil
}

// Close releases the underlying index.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.index != nil {
		return ix.index.Close()
	}
	return nil
}
