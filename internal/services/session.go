package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"litigation-assistant/internal/evidence"
	"litigation-assistant/internal/models"
	"litigation-assistant/internal/prompts"
)

// Phase 是工作階段目前所處的階段
type Phase string

const (
	PhaseIdle              Phase = "idle"
	PhasePerPartyWork      Phase = "per_party_work"
	PhaseReadyToSynthesize Phase = "ready_to_synthesize"
	PhaseSynthesizing      Phase = "synthesizing"
	PhaseSynthesisComplete Phase = "synthesis_complete"
	PhaseSynthesisFailed   Phase = "synthesis_failed"
)

// Activity 是單方目前進行中的操作
type Activity string

const (
	ActivityIdle        Activity = "idle"
	ActivitySummarizing Activity = "summarizing"
	ActivityEvaluating  Activity = "evaluating"
)

type partyState struct {
	argument   string
	evidence   *models.Evidence
	summary    string
	evaluation string
	activity   Activity
	err        error
}

func (ps *partyState) touched() bool {
	return ps.argument != "" || ps.evidence != nil || ps.summary != "" || ps.evaluation != "" || ps.activity != ActivityIdle
}

// Session 保存一次分析的所有狀態，僅存在於記憶體中。
// 模型呼叫期間不持有鎖；每個操作只寫入自己的輸出欄位。
type Session struct {
	ID string

	caseType models.CaseType
	userSide models.Party
	analyzer *Analyzer

	mu           sync.Mutex
	parties      map[models.Party]*partyState
	issues       string
	bundle       *models.Bundle
	synthesizing bool
	synthErr     error
	createdAt    time.Time
	lastActive   time.Time
}

func (s *Session) party(p models.Party) (*partyState, error) {
	ps, ok := s.parties[p]
	if !ok {
		return nil, models.ErrUnknownParty
	}
	return ps, nil
}

func (s *Session) touchLocked() { s.lastActive = s.analyzer.now() }

// CaseType 回傳案件類型
func (s *Session) CaseType() models.CaseType { return s.caseType }

// Label 回傳當事人在本案的稱謂
func (s *Session) Label(p models.Party) string { return s.caseType.Label(p) }

// SetArgument 以新的文字取代該方論點
func (s *Session) SetArgument(p models.Party, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps, err := s.party(p)
	if err != nil {
		return err
	}
	ps.argument = text
	s.touchLocked()
	return nil
}

// LoadArgumentFile 以拖放的純文字檔內容取代論點；非純文字檔不會改動論點
func (s *Session) LoadArgumentFile(p models.Party, name, mimeType string, r io.Reader) error {
	if err := s.checkParty(p); err != nil {
		return err
	}
	text, err := evidence.LoadArgumentText(name, mimeType, r)
	if err != nil {
		s.analyzer.log.Warn("[Session] 論點檔案被拒絕",
			zap.String("session_id", s.ID), zap.String("party", string(p)),
			zap.String("file", name), zap.String("kind", models.ErrorKind(err)), zap.Error(err))
		return err
	}
	return s.SetArgument(p, text)
}

// UploadEvidence 載入並取代該方證據；類型不符或讀取失敗時保留原證據
func (s *Session) UploadEvidence(p models.Party, name, mimeType string, r io.Reader) (*models.Evidence, error) {
	if err := s.checkParty(p); err != nil {
		return nil, err
	}
	ev, err := evidence.Load(name, mimeType, r)
	if err != nil {
		fields := []zap.Field{zap.String("session_id", s.ID), zap.String("party", string(p)),
			zap.String("file", name), zap.String("kind", models.ErrorKind(err))}
		var re *models.ReadError
		if errors.As(err, &re) {
			fields = append(fields, zap.String("detail", re.Detail()))
		}
		s.analyzer.log.Warn("[Session] 證據上傳失敗", fields...)
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ps, _ := s.party(p)
	ps.evidence = ev
	s.touchLocked()
	s.analyzer.log.Info("[Session] 證據已載入",
		zap.String("session_id", s.ID), zap.String("party", string(p)),
		zap.String("kind", string(ev.Kind)), zap.Int64("size", ev.Size))
	copied := *ev
	return &copied, nil
}

// RemoveEvidence 清除該方證據
func (s *Session) RemoveEvidence(p models.Party) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps, err := s.party(p)
	if err != nil {
		return err
	}
	ps.evidence = nil
	s.touchLocked()
	return nil
}

func (s *Session) checkParty(p models.Party) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.party(p)
	return err
}

// SetIssues 以新的爭點清單取代舊值
func (s *Session) SetIssues(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issues = text
	s.touchLocked()
}

// Summarize 結合該方論點與證據產生摘要；兩者至少需有一項
func (s *Session) Summarize(ctx context.Context, p models.Party) (string, error) {
	return s.runPartyOp(ctx, p, ActivitySummarizing,
		func(ps *partyState) (*prompts.Request, error) {
			return s.analyzer.builder.Summarize(prompts.SummarizeInput{
				SideName: s.Label(p),
				Argument: ps.argument,
				Evidence: ps.evidence,
			})
		},
		func(ps *partyState) *string { return &ps.summary },
	)
}

// Evaluate 評估該方證據對論點的支持程度；兩者缺一不可
func (s *Session) Evaluate(ctx context.Context, p models.Party) (string, error) {
	return s.runPartyOp(ctx, p, ActivityEvaluating,
		func(ps *partyState) (*prompts.Request, error) {
			return s.analyzer.builder.Evaluate(prompts.EvaluateInput{
				SideName: s.Label(p),
				Argument: ps.argument,
				Evidence: ps.evidence,
			})
		},
		func(ps *partyState) *string { return &ps.evaluation },
	)
}

// runPartyOp 同一方一次只能進行一個操作；前置條件不符時不送出請求
func (s *Session) runPartyOp(
	ctx context.Context,
	p models.Party,
	activity Activity,
	build func(*partyState) (*prompts.Request, error),
	slot func(*partyState) *string,
) (string, error) {
	s.mu.Lock()
	ps, err := s.party(p)
	if err != nil {
		s.mu.Unlock()
		return "", err
	}
	if ps.activity != ActivityIdle {
		s.mu.Unlock()
		return "", models.ErrPartyBusy
	}
	req, err := build(ps)
	if err != nil {
		ps.err = err
		s.touchLocked()
		s.mu.Unlock()
		return "", err
	}
	ps.activity = activity
	ps.err = nil
	*slot(ps) = ""
	s.touchLocked()
	s.mu.Unlock()

	text, err := s.analyzer.dispatcher.Text(withScope(ctx, s.ID, p), req)

	s.mu.Lock()
	defer s.mu.Unlock()
	ps.activity = ActivityIdle
	s.touchLocked()
	if err != nil {
		ps.err = err
		return "", err
	}
	*slot(ps) = text
	return text, nil
}

// Ready 回報是否已具備整合分析的條件：雙方摘要與爭點清單
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readyLocked()
}

func (s *Session) readyLocked() bool {
	if strings.TrimSpace(s.issues) == "" {
		return false
	}
	for _, ps := range s.parties {
		if strings.TrimSpace(ps.summary) == "" {
			return false
		}
	}
	return true
}

func (s *Session) phaseLocked() Phase {
	switch {
	case s.synthesizing:
		return PhaseSynthesizing
	case s.bundle != nil:
		return PhaseSynthesisComplete
	case s.synthErr != nil:
		return PhaseSynthesisFailed
	case s.readyLocked():
		return PhaseReadyToSynthesize
	}
	if s.issues != "" {
		return PhasePerPartyWork
	}
	for _, ps := range s.parties {
		if ps.touched() {
			return PhasePerPartyWork
		}
	}
	return PhaseIdle
}

// Phase 回傳目前階段
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phaseLocked()
}

// Bundle 回傳最近一次成功的整合結果；沒有時回傳 nil
func (s *Session) Bundle() *models.Bundle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyBundle(s.bundle)
}

// Busy 回報是否有任何操作正在進行
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.synthesizing {
		return true
	}
	for _, ps := range s.parties {
		if ps.activity != ActivityIdle {
			return true
		}
	}
	return false
}

// LastActive 回傳最後一次操作的時間
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

func copyBundle(b *models.Bundle) *models.Bundle {
	if b == nil {
		return nil
	}
	out := *b
	out.Comparison = append([]models.ComparisonRow(nil), b.Comparison...)
	return &out
}
