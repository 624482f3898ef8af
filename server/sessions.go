package server

import (
	"sync"

	"github.com/google/uuid"
	"github.com/santiagomed/quill/core"
	"github.com/santiagomed/quill/llm"
	"github.com/santiagomed/quill/logger"
)

// SessionStore keeps wizard controllers in memory, keyed by a random id.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*core.Controller
	writer   core.Writer
	logger   logger.Logger
}

func NewSessionStore(w core.Writer, l logger.Logger) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*core.Controller),
		writer:   w,
		logger:   l,
	}
}

func (s *SessionStore) Create(cfg llm.ProviderConfig) (string, *core.Controller) {
	id := uuid.NewString()
	ctrl := core.NewController(s.writer, cfg, s.logger.WithField("session", id))

	s.mu.Lock()
	s.sessions[id] = ctrl
	n := len(s.sessions)
	s.mu.Unlock()

	ActiveSessions.Set(float64(n))
	return id, ctrl
}

func (s *SessionStore) Get(id string) (*core.Controller, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ctrl, ok := s.sessions[id]
	return ctrl, ok
}

func (s *SessionStore) Delete(id string) bool {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	n := len(s.sessions)
	s.mu.Unlock()

	ActiveSessions.Set(float64(n))
	return ok
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
