package service

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/writegeist/readalong-server/internal/domain"
	"github.com/writegeist/readalong-server/internal/readalong"
	"github.com/writegeist/readalong-server/internal/search"
	"github.com/writegeist/readalong-server/internal/sse"
	"github.com/writegeist/readalong-server/internal/store"
	"github.com/writegeist/readalong-server/internal/store/sqlite"
	"github.com/writegeist/readalong-server/internal/tts"
)

// testEnv bundles the shared dependencies of the service layer: a real
// SQLite store in a temp directory, an in-memory calibration backend, and
// a live SSE hub.
type testEnv struct {
	db          *sqlite.Store
	index       *search.Index
	calibration *store.Store
	sessions    *readalong.Manager
	hub         *sse.Hub
	logger      *slog.Logger
	audioDir    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	db, err := sqlite.Open(filepath.Join(dir, "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	index, err := search.New(search.Options{DataPath: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	return &testEnv{
		db:          db,
		index:       index,
		calibration: store.NewWithBackend(newMapBackend(), nil),
		sessions:    readalong.NewManager(nil),
		hub:         sse.NewHub(nil),
		logger:      slog.New(slog.DiscardHandler),
		audioDir:    dir,
	}
}

func (e *testEnv) seedChapter(t *testing.T, id, title, text string) *domain.Chapter {
	t.Helper()
	chapter := domain.NewChapter(id, title, text)
	require.NoError(t, e.db.CreateChapter(context.Background(), chapter))
	return chapter
}

// mapBackend is an in-memory store.Backend for tests.
type mapBackend struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMapBackend() *mapBackend {
	return &mapBackend{data: make(map[string][]byte)}
}

func (b *mapBackend) Get(key []byte) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.data[string(key)]
	if !ok {
		return nil, store.ErrKeyNotFound
	}
	return v, nil
}

func (b *mapBackend) Set(key, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[string(key)] = value
	return nil
}

func (b *mapBackend) Delete(key []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, string(key))
	return nil
}

func (b *mapBackend) Keys(prefix []byte) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var keys []string
	for k := range b.data {
		if strings.HasPrefix(k, string(prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (b *mapBackend) Close() error { return nil }

// fakeTTS is a canned tts.Provider. When blockUntil is set, Generate waits
// on it before returning, which lets tests hold a generation in flight.
type fakeTTS struct {
	audio      tts.Audio
	err        error
	blockUntil chan struct{}
}

func (f *fakeTTS) Name() string { return "fake" }

func (f *fakeTTS) Generate(ctx context.Context, text string) (tts.Audio, error) {
	if f.blockUntil != nil {
		select {
		case <-f.blockUntil:
		case <-ctx.Done():
			return tts.Audio{}, ctx.Err()
		}
	}
	if f.err != nil {
		return tts.Audio{}, f.err
	}
	return f.audio, nil
}
