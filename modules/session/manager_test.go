package session

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"face-fusion-server/modules/common/model"
)

func newTestManager() *Manager {
	return NewManager(ManagerConfig{
		DefaultLanguage: model.LanguageRussian,
		DefaultRatio:    model.AspectStory,
		IdleTTL:         time.Hour,
		MaxAge:          24 * time.Hour,
	}, &fakeAnalyzer{}, &fakeComposer{}, NewHub(nil, zerolog.Nop()), zerolog.Nop())
}

func TestManager_CreateGetDelete(t *testing.T) {
	m := newTestManager()

	s := m.Create("")
	assert.Equal(t, model.LanguageRussian, s.Snapshot().Language)

	got, err := m.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)

	en := m.Create(model.LanguageEnglish)
	assert.Equal(t, model.LanguageEnglish, en.Snapshot().Language)
	assert.NotEqual(t, s.ID(), en.ID())
	assert.Equal(t, 2, m.Count())

	require.NoError(t, m.Delete(s.ID()))
	_, err = m.Get(s.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, m.Delete(s.ID()), ErrSessionNotFound)

	metrics := m.Metrics()
	assert.Equal(t, 2, metrics.TotalSessions)
	assert.Equal(t, 1, metrics.ActiveSessions)
}

func TestManager_CleanupExpired(t *testing.T) {
	m := newTestManager()
	fresh := m.Create("")
	idle := m.Create("")
	old := m.Create("")

	now := time.Now()
	idle.mutex.Lock()
	idle.lastActivity = now.Add(-2 * time.Hour)
	idle.mutex.Unlock()
	old.mutex.Lock()
	old.createdAt = now.Add(-25 * time.Hour)
	old.mutex.Unlock()

	removed := m.CleanupExpired(now)
	assert.Equal(t, 2, removed)

	_, err := m.Get(fresh.ID())
	assert.NoError(t, err)
	_, err = m.Get(idle.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Get(old.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_CleanupSkipsBusySessions(t *testing.T) {
	m := newTestManager()
	s := m.Create("")

	s.mutex.Lock()
	s.state = StateRendering
	s.createdAt = time.Now().Add(-48 * time.Hour)
	s.mutex.Unlock()

	assert.Zero(t, m.CleanupExpired(time.Now()))
	assert.Equal(t, 1, m.Count())
}
