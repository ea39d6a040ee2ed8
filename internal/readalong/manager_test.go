package readalong

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/writegeist/readalong-server/internal/errors"
)

func TestNewSessionID(t *testing.T) {
	sid, err := NewSessionID()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sid, "ras-"))
}

func TestManager_OpenGetClose(t *testing.T) {
	m := NewManager(nil)
	ctrl := newTestController(t, nil, nil)

	session := m.Open("ras-abc", "chp-one", ctrl)
	assert.Equal(t, "ras-abc", session.ID)
	assert.Equal(t, "chp-one", session.ChapterID)
	assert.False(t, session.CreatedAt.IsZero())
	assert.Equal(t, 1, m.Len())

	got, err := m.Get("ras-abc")
	require.NoError(t, err)
	assert.Same(t, session, got)

	require.NoError(t, m.Close("ras-abc"))
	assert.Zero(t, m.Len())

	_, err = m.Get("ras-abc")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestManager_CloseUnknownSession(t *testing.T) {
	m := NewManager(nil)
	assert.ErrorIs(t, m.Close("ras-nope"), domainerrors.ErrNotFound)
}

func TestManager_CloseAll(t *testing.T) {
	m := NewManager(nil)
	m.Open("ras-1", "chp-a", newTestController(t, nil, nil))
	m.Open("ras-2", "chp-b", newTestController(t, nil, nil))
	require.Equal(t, 2, m.Len())

	m.CloseAll()
	assert.Zero(t, m.Len())

	_, err := m.Get("ras-1")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}
