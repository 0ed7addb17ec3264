package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"litigation-assistant/internal/models"
)

// Registry 以 ID 管理記憶體中的工作階段
type Registry struct {
	analyzer *Analyzer
	log      *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry 建立 Registry 實例
func NewRegistry(analyzer *Analyzer, log *zap.Logger) (*Registry, error) {
	if analyzer == nil {
		return nil, fmt.Errorf("Registry：Analyzer 不得為空")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{analyzer: analyzer, log: log, sessions: make(map[string]*Session)}, nil
}

// Create 建立新工作階段
func (r *Registry) Create(caseType models.CaseType, userSide models.Party) *Session {
	s := r.analyzer.NewSession(uuid.NewString(), caseType, userSide)
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s
}

// Get 依 ID 取得工作階段
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	return s, nil
}

// Delete 移除工作階段，連同其中的證據
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return models.ErrSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}

// Len 回傳目前的工作階段數量
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// PurgeIdle 移除閒置超過 ttl 且沒有進行中操作的工作階段，回傳移除數量
func (r *Registry) PurgeIdle(ttl time.Duration) int {
	cutoff := r.analyzer.now().Add(-ttl)
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, s := range r.sessions {
		if s.Busy() || s.LastActive().After(cutoff) {
			continue
		}
		delete(r.sessions, id)
		removed++
	}
	if removed > 0 {
		r.log.Info("[Registry] 已清除閒置的工作階段", zap.Int("removed", removed), zap.Int("remaining", len(r.sessions)))
	}
	return removed
}
