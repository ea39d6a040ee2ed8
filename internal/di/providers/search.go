package providers

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/samber/do/v2"

	"github.com/writegeist/readalong-server/internal/config"
	"github.com/writegeist/readalong-server/internal/metadata"
	"github.com/writegeist/readalong-server/internal/search"
)

// SearchIndexHandle wraps the chapter full-text index with shutdown
// capability.
type SearchIndexHandle struct {
	*search.Index
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the chapter full-text index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*slog.Logger](i)

	if err := os.MkdirAll(cfg.Storage.SearchPath, 0o755); err != nil {
		return nil, fmt.Errorf("create search directory: %w", err)
	}

	index, err := search.New(search.Options{
		DataPath: cfg.Storage.SearchPath,
		Logger:   log,
	})
	if err != nil {
		return nil, err
	}

	log.Info("Search index initialized", "path", cfg.Storage.SearchPath)

	return &SearchIndexHandle{Index: index}, nil
}

// MetadataExtractorHandle wraps the chapter analysis backend. Extractor is
// nil when no API key is configured.
type MetadataExtractorHandle struct {
	Extractor metadata.Extractor
}

// ProvideMetadataExtractor provides the chapter metadata extractor.
func ProvideMetadataExtractor(i do.Injector) (*MetadataExtractorHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*slog.Logger](i)

	if cfg.Metadata.APIKey == "" {
		log.Info("Metadata extraction disabled (no API key)")
		return &MetadataExtractorHandle{}, nil
	}

	var opts []metadata.OpenAIOption
	if cfg.Metadata.BaseURL != "" {
		opts = append(opts, metadata.WithBaseURL(cfg.Metadata.BaseURL))
	}
	if cfg.Metadata.Model != "" {
		opts = append(opts, metadata.WithModel(cfg.Metadata.Model))
	}
	extractor, err := metadata.NewOpenAIExtractor(cfg.Metadata.APIKey, opts...)
	if err != nil {
		return nil, err
	}

	log.Info("Metadata extractor configured", "extractor", extractor.Name())
	return &MetadataExtractorHandle{Extractor: extractor}, nil
}
