package render

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/mvp-joe/luadox/internal/prerender"
)

// jsonPage is the serialized form of one page.
type jsonPage struct {
	ID          string           `json:"id"`
	Kind        string           `json:"kind"`
	Name        string           `json:"name"`
	Heading     string           `json:"heading"`
	File        string           `json:"file"`
	Content     string           `json:"content,omitempty"`
	Collections []jsonCollection `json:"collections,omitempty"`
}

type jsonCollection struct {
	ID        string         `json:"id"`
	Heading   string         `json:"heading"`
	Content   string         `json:"content,omitempty"`
	Fields    []jsonField    `json:"fields,omitempty"`
	Functions []jsonFunction `json:"functions,omitempty"`
}

type jsonField struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Types   []string `json:"types,omitempty"`
	Meta    string   `json:"meta,omitempty"`
	Content string   `json:"content,omitempty"`
}

type jsonFunction struct {
	jsonField
	Params  []jsonParam  `json:"params,omitempty"`
	Returns []jsonReturn `json:"returns,omitempty"`
}

type jsonParam struct {
	Name  string   `json:"name"`
	Types []string `json:"types,omitempty"`
	Doc   string   `json:"doc,omitempty"`
}

type jsonReturn struct {
	Types []string `json:"types,omitempty"`
	Doc   string   `json:"doc,omitempty"`
}

// JSON writes the entire documentation graph as a single JSON object.
func JSON(w io.Writer, res *prerender.Result) error {
	pages := make([]jsonPage, 0, len(res.Pages))
	for _, page := range SortPages(res.Pages) {
		jp := jsonPage{
			ID:      page.ID,
			Kind:    string(page.Kind),
			Name:    page.Ref.Symbol,
			Heading: page.Heading,
			File:    page.Ref.File,
			Content: ContentText(page.Content, res),
		}
		for _, col := range page.Collections {
			jc := jsonCollection{
				ID:      col.ID,
				Heading: col.Heading,
				Content: ContentText(col.Content, res),
			}
			for _, f := range col.Fields {
				jc.Fields = append(jc.Fields, jsonField{
					ID:      f.ID,
					Name:    f.Title,
					Types:   f.Types,
					Meta:    f.Meta,
					Content: ContentText(f.Content, res),
				})
			}
			for _, fn := range col.Functions {
				jf := jsonFunction{
					jsonField: jsonField{
						ID:      fn.ID,
						Name:    fn.Title,
						Types:   fn.Types,
						Meta:    fn.Meta,
						Content: ContentText(fn.Content, res),
					},
				}
				for _, p := range fn.Params {
					jf.Params = append(jf.Params, jsonParam{
						Name:  p.Name,
						Types: p.Types,
						Doc:   ContentText(p.Doc, res),
					})
				}
				for _, ret := range fn.Returns {
					jf.Returns = append(jf.Returns, jsonReturn{
						Types: ret.Types,
						Doc:   ContentText(ret.Doc, res),
					})
				}
				jc.Functions = append(jc.Functions, jf)
			}
			jp.Collections = append(jp.Collections, jc)
		}
		pages = append(pages, jp)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]interface{}{"pages": pages}); err != nil {
		return fmt.Errorf("failed to encode documentation graph: %w", err)
	}
	return nil
}
