package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"face-fusion-server/modules/common/model"
)

// ManagerConfig - 매니저 설정
type ManagerConfig struct {
	DefaultLanguage model.Language
	DefaultRatio    model.AspectRatio
	IdleTTL         time.Duration
	MaxAge          time.Duration
}

// Metrics - 서버 메트릭
type Metrics struct {
	TotalSessions    int       `json:"totalSessions"`
	ActiveSessions   int       `json:"activeSessions"`
	TotalConnections int       `json:"totalConnections"`
	StartTime        time.Time `json:"startTime"`
	Uptime           string    `json:"uptime"`
}

// Manager - 메모리 세션 저장소 (영속화 없음)
type Manager struct {
	cfg      ManagerConfig
	analyzer Analyzer
	composer Composer
	hub      *Hub
	log      zerolog.Logger

	mutex         sync.RWMutex
	sessions      map[string]*Session
	totalSessions int
	startTime     time.Time
}

// NewManager - 세션 매니저 생성
func NewManager(cfg ManagerConfig, analyzer Analyzer, composer Composer, hub *Hub, log zerolog.Logger) *Manager {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 2 * time.Hour
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 24 * time.Hour
	}
	return &Manager{
		cfg:       cfg,
		analyzer:  analyzer,
		composer:  composer,
		hub:       hub,
		log:       log.With().Str("component", "session_manager").Logger(),
		sessions:  make(map[string]*Session),
		startTime: time.Now(),
	}
}

// Create - 새 세션 (lang 이 비어 있으면 기본 언어)
func (m *Manager) Create(lang model.Language) *Session {
	if lang == "" {
		lang = m.cfg.DefaultLanguage
	}

	opts := Options{
		ID:           uuid.New().String(),
		Language:     lang,
		DefaultRatio: m.cfg.DefaultRatio,
		Analyzer:     m.analyzer,
		Composer:     m.composer,
		Logger:       m.log,
	}
	if m.hub != nil {
		opts.OnChange = m.hub.Publish
	}
	s := New(opts)

	m.mutex.Lock()
	m.sessions[s.ID()] = s
	m.totalSessions++
	active := len(m.sessions)
	m.mutex.Unlock()

	m.log.Info().Str("session", s.ID()).Int("active", active).Msg("✅ Created new session")
	return s
}

// Get - 세션 조회
func (m *Manager) Get(id string) (*Session, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete - 세션 제거 (에셋도 함께 사라짐)
func (m *Manager) Delete(id string) error {
	m.mutex.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mutex.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	if m.hub != nil {
		m.hub.CloseSession(id)
	}
	m.log.Info().Str("session", id).Msg("🗑️  Session deleted")
	return nil
}

// Count - 활성 세션 수
func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}

// Metrics - 메트릭 스냅샷
func (m *Manager) Metrics() Metrics {
	m.mutex.RLock()
	metrics := Metrics{
		TotalSessions:  m.totalSessions,
		ActiveSessions: len(m.sessions),
		StartTime:      m.startTime,
		Uptime:         time.Since(m.startTime).Round(time.Second).String(),
	}
	m.mutex.RUnlock()

	if m.hub != nil {
		metrics.TotalConnections = m.hub.TotalConnections()
	}
	return metrics
}

// CleanupExpired - max age 초과 또는 구독자 없이 idle TTL 초과 세션 제거
// 처리 중인 세션은 건너뛴다.
func (m *Manager) CleanupExpired(now time.Time) int {
	m.mutex.Lock()
	var removed []string
	for id, s := range m.sessions {
		createdAt, lastActivity, busy := s.activity()
		if busy {
			continue
		}

		isExpired := now.Sub(createdAt) > m.cfg.MaxAge
		isInactive := now.Sub(lastActivity) > m.cfg.IdleTTL && m.subscribers(id) == 0
		if !isExpired && !isInactive {
			continue
		}

		delete(m.sessions, id)
		removed = append(removed, id)

		reason := "expired"
		if !isExpired {
			reason = "inactive"
		}
		m.log.Info().
			Str("session", id).
			Str("reason", reason).
			Dur("age", now.Sub(createdAt)).
			Dur("inactive", now.Sub(lastActivity)).
			Msg("⏰ Cleaned up session")
	}
	active := len(m.sessions)
	m.mutex.Unlock()

	if m.hub != nil {
		for _, id := range removed {
			m.hub.CloseSession(id)
		}
	}
	if len(removed) > 0 {
		m.log.Info().Int("cleaned", len(removed)).Int("active", active).Msg("🧼 Cleaned up expired/inactive sessions")
	}
	return len(removed)
}

func (m *Manager) subscribers(id string) int {
	if m.hub == nil {
		return 0
	}
	return m.hub.Subscribers(id)
}

// StartCleanupRoutine - 주기적 정리 (ctx 종료 시 중단)
func (m *Manager) StartCleanupRoutine(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				m.CleanupExpired(now)
			}
		}
	}()

	m.log.Info().Dur("interval", interval).Msg("🔄 Started session cleanup routine")
}
