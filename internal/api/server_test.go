package api

import (
	"context"
	"encoding/json/jsontext"
	"encoding/json/v2"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/writegeist/readalong-server/internal/domain"
	"github.com/writegeist/readalong-server/internal/readalong"
	"github.com/writegeist/readalong-server/internal/search"
	"github.com/writegeist/readalong-server/internal/service"
	"github.com/writegeist/readalong-server/internal/sse"
	"github.com/writegeist/readalong-server/internal/store"
	"github.com/writegeist/readalong-server/internal/store/sqlite"
)

// envelope mirrors the response wrapper for decoding in tests.
type envelope struct {
	Data    jsontext.Value `json:"data"`
	Error   string         `json:"error"`
	Success bool           `json:"success"`
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestServer(t *testing.T) (*Server, *sqlite.Store) {
	t.Helper()

	dir := t.TempDir()
	db, err := sqlite.Open(filepath.Join(dir, "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	calibration, err := store.New(filepath.Join(dir, "calibration"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = calibration.Close() })

	hub := sse.NewHub(nil)
	sessions := readalong.NewManager(nil)

	index, err := search.New(search.Options{DataPath: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	chapterService := service.NewChapterService(db, index, nil, testLogger())
	alignmentService := service.NewAlignmentService(db, calibration, sessions, hub, testLogger())
	narrationService := service.NewNarrationService(db, nil, hub, dir, 20, testLogger())

	srv := NewServer(
		chapterService,
		alignmentService,
		narrationService,
		sse.NewHandler(hub, nil),
		dir,
		6,
		testLogger(),
	)
	return srv, db
}

func doRequest(t *testing.T, srv *Server, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func seedChapter(t *testing.T, db *sqlite.Store, id, title, text string) {
	t.Helper()
	require.NoError(t, db.CreateChapter(context.Background(), domain.NewChapter(id, title, text)))
}

func TestHealthCheck(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, env := doRequest(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)

	var data map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "healthy", data["status"])
}

func TestChapterEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, env := doRequest(t, srv, http.MethodPost, "/api/v1/chapters",
		`{"title":"The Lighthouse","text":"The keeper climbed the stairs. The lamp was burning."}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var chapter domain.Chapter
	require.NoError(t, json.Unmarshal(env.Data, &chapter))
	assert.True(t, strings.HasPrefix(chapter.ID, "chp-"))

	rec, env = doRequest(t, srv, http.MethodGet, "/api/v1/chapters/"+chapter.ID, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = doRequest(t, srv, http.MethodPatch, "/api/v1/chapters/"+chapter.ID, `{"title":"Renamed"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &chapter))
	assert.Equal(t, "Renamed", chapter.Title)

	rec, _ = doRequest(t, srv, http.MethodDelete, "/api/v1/chapters/"+chapter.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, env = doRequest(t, srv, http.MethodGet, "/api/v1/chapters/"+chapter.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)
	assert.NotEmpty(t, env.Error)
}

func TestChapterValidationError(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, env := doRequest(t, srv, http.MethodPost, "/api/v1/chapters", `{"text":"No title."}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Error, "title")
}

func TestSearchChapters(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, _ := doRequest(t, srv, http.MethodPost, "/api/v1/chapters",
		`{"title":"The Lighthouse","text":"The keeper climbed the spiral stairs to light the lamp."}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec, _ = doRequest(t, srv, http.MethodPost, "/api/v1/chapters",
		`{"title":"The Harbor","text":"Boats rocked at their moorings in the fog."}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env := doRequest(t, srv, http.MethodGet, "/api/v1/chapters/search?q=spiral", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var result search.Result
	require.NoError(t, json.Unmarshal(env.Data, &result))
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "The Lighthouse", result.Hits[0].Title)
	assert.Equal(t, uint64(1), result.Total)
}

func TestSearchChaptersBadParams(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, env := doRequest(t, srv, http.MethodGet, "/api/v1/chapters/search", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Error, "query")

	rec, env = doRequest(t, srv, http.MethodGet, "/api/v1/chapters/search?q=x&limit=0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Error, "limit")

	rec, env = doRequest(t, srv, http.MethodGet, "/api/v1/chapters/search?q=x&offset=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Error, "offset")
}

func TestExtractMetadataNotConfigured(t *testing.T) {
	srv, db := newTestServer(t)
	seedChapter(t, db, "chp-1", "The Lighthouse", "The keeper climbed the stairs.")

	// The test server wires no extractor.
	rec, env := doRequest(t, srv, http.MethodPost, "/api/v1/chapters/chp-1/metadata", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, env.Success)
}

func TestSessionEndpoints(t *testing.T) {
	srv, db := newTestServer(t)
	seedChapter(t, db, "chp-1", "The Lighthouse",
		"The keeper climbed the winding stairs. The lamp was already burning when he reached the top.")

	rec, env := doRequest(t, srv, http.MethodPost, "/api/v1/sessions", `{"chapter_id":"chp-1","duration":60}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var info service.SessionInfo
	require.NoError(t, json.Unmarshal(env.Data, &info))
	assert.True(t, strings.HasPrefix(info.SessionID, "ras-"))
	require.NotEmpty(t, info.State.Chunks)

	base := "/api/v1/sessions/" + info.SessionID

	rec, env = doRequest(t, srv, http.MethodPost, base+"/events", `{"type":"time_update","time":2.5}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var state readalong.State
	require.NoError(t, json.Unmarshal(env.Data, &state))
	assert.InDelta(t, 2.5, state.CurrentTime, 1e-9)

	rec, env = doRequest(t, srv, http.MethodPost, base+"/events", `{"type":"levitate"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Error, "levitate")

	rec, _ = doRequest(t, srv, http.MethodGet, base, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doRequest(t, srv, http.MethodDelete, base, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = doRequest(t, srv, http.MethodGet, base, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOpenSessionUnknownChapter(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, _ := doRequest(t, srv, http.MethodPost, "/api/v1/sessions", `{"chapter_id":"chp-nope","duration":60}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNarrationRateLimit(t *testing.T) {
	srv, db := newTestServer(t)
	seedChapter(t, db, "chp-1", "The Lighthouse", "The keeper climbed the winding stairs to the top.")

	// No TTS provider is configured, so permitted requests fail with 500.
	// The limiter's burst admits two before throttling kicks in.
	path := "/api/v1/chapters/chp-1/narration"
	for i := 0; i < 2; i++ {
		rec, _ := doRequest(t, srv, http.MethodPost, path, "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	}

	rec, env := doRequest(t, srv, http.MethodPost, path, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.False(t, env.Success)
}
