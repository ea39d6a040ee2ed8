package search

import (
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/writegeist/readalong-server/internal/domain"
)

// chapterToDoc converts a chapter into the map form Bleve indexes. Field
// names are lowercase to match the index mapping.
func chapterToDoc(c *domain.Chapter) map[string]any {
	return map[string]any{
		"id":         c.ID,
		"title":      c.Title,
		"text":       c.Text,
		"word_count": len(strings.Fields(c.Text)),
		"created_at": c.CreatedAt.UnixMilli(),
		"updated_at": c.UpdatedAt.UnixMilli(),
	}
}

// buildIndexMapping creates the Bleve mapping for chapter documents:
// English-stemmed full text on title and body, keyword-exact IDs, and
// numeric fields for sorting.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	titleMapping := bleve.NewTextFieldMapping()
	titleMapping.Analyzer = en.AnalyzerName
	titleMapping.Store = true
	titleMapping.IncludeTermVectors = true // for highlighting
	docMapping.AddFieldMappingsAt("title", titleMapping)

	// Body text is searchable and highlightable but large, so a match
	// snippet is served from stored text rather than a separate endpoint.
	textMapping := bleve.NewTextFieldMapping()
	textMapping.Analyzer = en.AnalyzerName
	textMapping.Store = true
	textMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("text", textMapping)

	idMapping := bleve.NewTextFieldMapping()
	idMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("id", idMapping)

	wordCountMapping := bleve.NewNumericFieldMapping()
	wordCountMapping.Store = true
	docMapping.AddFieldMappingsAt("word_count", wordCountMapping)

	createdAtMapping := bleve.NewNumericFieldMapping()
	createdAtMapping.Store = true
	docMapping.AddFieldMappingsAt("created_at", createdAtMapping)

	updatedAtMapping := bleve.NewNumericFieldMapping()
	updatedAtMapping.Store = true
	docMapping.AddFieldMappingsAt("updated_at", updatedAtMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}
