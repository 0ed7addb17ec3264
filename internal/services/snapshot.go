package services

import (
	"time"

	"litigation-assistant/internal/models"
)

// PartySnapshot 是單方狀態的唯讀副本
type PartySnapshot struct {
	Party      models.Party     `json:"party"`
	Label      string           `json:"label"`
	Argument   string           `json:"argument"`
	Evidence   *models.Evidence `json:"evidence"`
	Summary    string           `json:"summary"`
	Evaluation string           `json:"evaluation"`
	Activity   Activity         `json:"activity"`
	Error      string           `json:"error,omitempty"`
	ErrorKind  string           `json:"error_kind,omitempty"`
}

// SessionSnapshot 是整個工作階段的唯讀副本，供 API 回應使用
type SessionSnapshot struct {
	ID         string          `json:"id"`
	CaseType   models.CaseType `json:"case_type"`
	UserSide   models.Party    `json:"user_side"`
	Phase      Phase           `json:"phase"`
	Ready      bool            `json:"ready"`
	Issues     string          `json:"issues"`
	Parties    []PartySnapshot `json:"parties"`
	Bundle     *models.Bundle  `json:"bundle"`
	Error      string          `json:"error,omitempty"`
	ErrorKind  string          `json:"error_kind,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	LastActive time.Time       `json:"last_active"`
}

// Snapshot 取得目前狀態；就緒與否每次重新計算
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := SessionSnapshot{
		ID:         s.ID,
		CaseType:   s.caseType,
		UserSide:   s.userSide,
		Phase:      s.phaseLocked(),
		Ready:      s.readyLocked(),
		Issues:     s.issues,
		Bundle:     copyBundle(s.bundle),
		CreatedAt:  s.createdAt,
		LastActive: s.lastActive,
	}
	if s.synthErr != nil {
		snap.Error = s.synthErr.Error()
		snap.ErrorKind = models.ErrorKind(s.synthErr)
	}
	for _, p := range models.Parties {
		ps := s.parties[p]
		item := PartySnapshot{
			Party:      p,
			Label:      s.Label(p),
			Argument:   ps.argument,
			Summary:    ps.summary,
			Evaluation: ps.evaluation,
			Activity:   ps.activity,
		}
		if ps.evidence != nil {
			ev := *ps.evidence
			item.Evidence = &ev
		}
		if ps.err != nil {
			item.Error = ps.err.Error()
			item.ErrorKind = models.ErrorKind(ps.err)
		}
		snap.Parties = append(snap.Parties, item)
	}
	return snap
}
