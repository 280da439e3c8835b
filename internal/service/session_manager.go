package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/varunmayaluru/soc-nextjs-ui-sub000/config"
	"github.com/varunmayaluru/soc-nextjs-ui-sub000/internal/model"
)

type OpenRequest struct {
	QuizID    int
	SubjectID int
	TopicID   int
}

// SessionManager owns the live quiz sessions. A user has at most one session per quiz topic; opening
// it again replaces the previous one.
type SessionManager interface {
	// Open creates and loads a session. The session is returned even when loading failed so the caller
	// can show the error and offer a reload.
	Open(ctx context.Context, sc model.SessionContext, req OpenRequest) (string, *AnswerSession, error)
	Get(id string, userID int) (*AnswerSession, error)
	Close(id string, userID int) error
}

type managedSession struct {
	id       string
	owner    int
	session  *AnswerSession
	lastSeen time.Time
}

type sessionManager struct {
	mu         sync.Mutex
	provider   BackendProvider
	maxRetries int
	idleLimit  time.Duration
	now        func() time.Time
	sessions   map[string]*managedSession
	byKey      map[string]string
}

func NewSessionManager(cfg *config.Config, provider BackendProvider) SessionManager {
	return newSessionManager(provider, cfg.Tutor.MaxRetries, cfg.Tutor.SessionIdleLimit, time.Now)
}

func newSessionManager(provider BackendProvider, maxRetries int, idleLimit time.Duration, now func() time.Time) *sessionManager {
	return &sessionManager{
		provider:   provider,
		maxRetries: maxRetries,
		idleLimit:  idleLimit,
		now:        now,
		sessions:   map[string]*managedSession{},
		byKey:      map[string]string{},
	}
}

func (m *sessionManager) Open(ctx context.Context, sc model.SessionContext, req OpenRequest) (string, *AnswerSession, error) {
	session := NewAnswerSession(SessionParams{
		Context:         sc,
		QuizID:          req.QuizID,
		SubjectID:       req.SubjectID,
		TopicID:         req.TopicID,
		MaxTutorRetries: m.maxRetries,
		Now:             m.now,
	}, m.provider.ForSession(sc))
	id := uuid.NewString()
	key := session.Key().String()

	m.mu.Lock()
	expired := m.sweepLocked()
	if prevID, ok := m.byKey[key]; ok {
		if prev, ok := m.sessions[prevID]; ok {
			expired = append(expired, prev.session)
			delete(m.sessions, prevID)
		}
	}
	m.sessions[id] = &managedSession{id: id, owner: sc.UserID, session: session, lastSeen: m.now()}
	m.byKey[key] = id
	m.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}

	err := session.Load(ctx)
	log.Info().Str("sessionID", id).Str("progressKey", key).Bool("loaded", err == nil).Msg("Quiz session opened")
	return id, session, err
}

func (m *sessionManager) Get(id string, userID int) (*AnswerSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms, ok := m.sessions[id]
	if !ok || ms.owner != userID {
		return nil, ErrSessionNotFound
	}
	ms.lastSeen = m.now()
	return ms.session, nil
}

func (m *sessionManager) Close(id string, userID int) error {
	m.mu.Lock()
	ms, ok := m.sessions[id]
	if !ok || ms.owner != userID {
		m.mu.Unlock()
		return ErrSessionNotFound
	}
	m.removeLocked(ms)
	m.mu.Unlock()

	ms.session.Close()
	return nil
}

func (m *sessionManager) removeLocked(ms *managedSession) {
	delete(m.sessions, ms.id)
	key := ms.session.Key().String()
	if m.byKey[key] == ms.id {
		delete(m.byKey, key)
	}
}

func (m *sessionManager) sweepLocked() []*AnswerSession {
	if m.idleLimit <= 0 {
		return nil
	}
	var expired []*AnswerSession
	cutoff := m.now().Add(-m.idleLimit)
	for _, ms := range m.sessions {
		if ms.lastSeen.Before(cutoff) {
			m.removeLocked(ms)
			expired = append(expired, ms.session)
		}
	}
	if len(expired) > 0 {
		log.Debug().Int("expired", len(expired)).Msg("Swept idle quiz sessions")
	}
	return expired
}
