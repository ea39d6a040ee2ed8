// Package search provides full-text chapter search using Bleve. Chapters are
// indexed on every create and update so manuscript text is searchable by
// title or content with fuzzy matching and highlighting.
package search

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/writegeist/readalong-server/internal/domain"
)

// Index wraps a Bleve index over chapter documents.
//
// All public methods are safe for concurrent use. The mutex guards the
// underlying index handle during rebuilds.
type Index struct {
	index  bleve.Index
	path   string
	logger *slog.Logger
	mu     sync.RWMutex
}

// Options configures the index.
type Options struct {
	// DataPath is the directory the index lives under.
	DataPath string
	// Logger defaults to discard when nil.
	Logger *slog.Logger
}

// mappingVersion is bumped whenever the index mapping changes. A mismatch on
// startup drops the on-disk index; callers reindex from the chapter store.
const mappingVersion = "1"

// New opens the chapter index at opts.DataPath, creating it when missing.
// A corrupt index or a stale mapping version is removed and recreated.
func New(opts Options) (*Index, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	indexPath := filepath.Join(opts.DataPath, "chapters.bleve")
	versionPath := filepath.Join(opts.DataPath, "chapters.version")

	var index bleve.Index
	var err error

	rebuild := false
	if _, statErr := os.Stat(indexPath); statErr == nil {
		version, readErr := os.ReadFile(versionPath)
		if readErr != nil || string(version) != mappingVersion {
			logger.Info("chapter index mapping changed, rebuilding",
				"old_version", string(version),
				"new_version", mappingVersion,
			)
			rebuild = true
		} else {
			index, err = bleve.Open(indexPath)
			if err != nil {
				logger.Warn("failed to open chapter index, recreating",
					"path", indexPath, "error", err)
				rebuild = true
			}
		}
	}

	if rebuild {
		if err := os.RemoveAll(indexPath); err != nil {
			return nil, fmt.Errorf("remove stale index: %w", err)
		}
		index = nil
	}

	if index == nil {
		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		if err := os.WriteFile(versionPath, []byte(mappingVersion), 0o644); err != nil {
			logger.Warn("failed to write index version file", "error", err)
		}
		logger.Info("created chapter index", "path", indexPath)
	} else {
		logger.Info("opened chapter index", "path", indexPath)
	}

	return &Index{
		index:  index,
		path:   indexPath,
		logger: logger,
	}, nil
}

// Close releases the index.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.index.Close()
}

// IndexChapter adds or replaces a chapter document.
func (x *Index) IndexChapter(c *domain.Chapter) error {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.index.Index(c.ID, chapterToDoc(c))
}

// IndexChapters indexes chapters in batches. Used for full reindexes.
func (x *Index) IndexChapters(chapters []*domain.Chapter) error {
	x.mu.RLock()
	defer x.mu.RUnlock()

	const batchSize = 200

	for i := 0; i < len(chapters); i += batchSize {
		end := min(i+batchSize, len(chapters))

		batch := x.index.NewBatch()
		for _, c := range chapters[i:end] {
			if err := batch.Index(c.ID, chapterToDoc(c)); err != nil {
				return fmt.Errorf("batch index %s: %w", c.ID, err)
			}
		}
		if err := x.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

// DeleteChapter removes a chapter document.
func (x *Index) DeleteChapter(id string) error {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.index.Delete(id)
}

// Count returns the number of indexed chapters.
func (x *Index) Count() (uint64, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.index.DocCount()
}
