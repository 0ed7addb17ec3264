package services

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"litigation-assistant/internal/models"
	"litigation-assistant/internal/prompts"
)

// Analyzer 組合 prompt 產生與模型呼叫，供所有工作階段共用
type Analyzer struct {
	builder    *prompts.Builder
	dispatcher *Dispatcher
	log        *zap.Logger
	now        func() time.Time
}

// NewAnalyzer 建立 Analyzer 實例
func NewAnalyzer(builder *prompts.Builder, dispatcher *Dispatcher, log *zap.Logger) (*Analyzer, error) {
	if builder == nil {
		return nil, fmt.Errorf("Analyzer：prompt Builder 不得為空")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("Analyzer：Dispatcher 不得為空")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Analyzer{builder: builder, dispatcher: dispatcher, log: log, now: time.Now}, nil
}

// NewSession 建立一個新的分析工作階段
func (a *Analyzer) NewSession(id string, caseType models.CaseType, userSide models.Party) *Session {
	parties := make(map[models.Party]*partyState, len(models.Parties))
	for _, p := range models.Parties {
		parties[p] = &partyState{activity: ActivityIdle}
	}
	now := a.now()
	a.log.Info("[Analyzer] 建立分析工作階段",
		zap.String("session_id", id),
		zap.String("case_type", string(caseType)),
		zap.String("user_side", string(userSide)),
	)
	return &Session{
		ID:         id,
		caseType:   caseType,
		userSide:   userSide,
		analyzer:   a,
		parties:    parties,
		createdAt:  now,
		lastActive: now,
	}
}
