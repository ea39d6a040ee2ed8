package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Params configures a chapter search.
type Params struct {
	Query  string
	Limit  int
	Offset int
	// SortBy is "relevance" (default), "title", or "recent".
	SortBy string
}

// DefaultParams returns sensible defaults.
func DefaultParams() Params {
	return Params{
		Limit:  20,
		SortBy: "relevance",
	}
}

// Result is the outcome of a search.
type Result struct {
	Query  string `json:"query"`
	Total  uint64 `json:"total"`
	TookMs int64  `json:"took_ms"`
	Hits   []Hit  `json:"hits"`
}

// Hit is one matching chapter.
type Hit struct {
	ID         string            `json:"id"`
	Score      float64           `json:"score"`
	Title      string            `json:"title"`
	WordCount  int               `json:"word_count"`
	Highlights map[string]string `json:"highlights,omitempty"`
}

// Search runs a query against the chapter index.
func (x *Index) Search(ctx context.Context, params Params) (*Result, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if params.Limit <= 0 {
		params.Limit = DefaultParams().Limit
	}

	req := bleve.NewSearchRequestOptions(buildQuery(params), params.Limit, params.Offset, false)
	req.Fields = []string{"id", "title", "word_count"}

	req.Highlight = bleve.NewHighlight()
	req.Highlight.AddField("title")
	req.Highlight.AddField("text")

	switch params.SortBy {
	case "title":
		req.SortBy([]string{"title"})
	case "recent":
		req.SortBy([]string{"-created_at"})
	default:
		req.SortBy([]string{"-_score"})
	}

	res, err := x.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &Result{
		Query:  params.Query,
		Total:  res.Total,
		TookMs: res.Took.Milliseconds(),
		Hits:   make([]Hit, 0, len(res.Hits)),
	}

	for _, hit := range res.Hits {
		h := Hit{
			ID:    hit.ID,
			Score: hit.Score,
		}
		if t, ok := hit.Fields["title"].(string); ok {
			h.Title = t
		}
		if wc, ok := hit.Fields["word_count"].(float64); ok {
			h.WordCount = int(wc)
		}
		if len(hit.Fragments) > 0 {
			h.Highlights = make(map[string]string)
			for field, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					h.Highlights[field] = fragments[0]
				}
			}
		}
		result.Hits = append(result.Hits, h)
	}

	return result, nil
}

// buildQuery combines title and body matches with fuzzy and prefix variants
// so typos and partial words still hit. Title matches outrank body matches.
func buildQuery(params Params) query.Query {
	if params.Query == "" {
		return bleve.NewMatchAllQuery()
	}

	var queries []query.Query

	titleMatch := bleve.NewMatchQuery(params.Query)
	titleMatch.SetField("title")
	titleMatch.SetBoost(3.0)
	queries = append(queries, titleMatch)

	textMatch := bleve.NewMatchQuery(params.Query)
	textMatch.SetField("text")
	queries = append(queries, textMatch)

	fuzzy := bleve.NewFuzzyQuery(params.Query)
	fuzzy.SetFuzziness(1)
	fuzzy.SetField("title")
	fuzzy.SetBoost(0.8)
	queries = append(queries, fuzzy)

	if len(params.Query) >= 2 {
		prefix := bleve.NewPrefixQuery(strings.ToLower(params.Query))
		prefix.SetField("title")
		prefix.SetBoost(0.5)
		queries = append(queries, prefix)
	}

	return bleve.NewDisjunctionQuery(queries...)
}
