package services

import (
	"context"

	"litigation-assistant/internal/models"
)

// Recorder 保存模型呼叫的診斷紀錄
type Recorder interface {
	Record(ctx context.Context, ev models.DiagnosticEvent) error
}

// NopRecorder 不保存任何紀錄，未啟用資料庫時使用
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, models.DiagnosticEvent) error { return nil }

type scopeKey struct{}

type dispatchScope struct {
	sessionID string
	party     models.Party
}

// withScope 將工作階段與當事人附加到 context，供診斷紀錄使用
func withScope(ctx context.Context, sessionID string, party models.Party) context.Context {
	return context.WithValue(ctx, scopeKey{}, dispatchScope{sessionID: sessionID, party: party})
}

func scopeFrom(ctx context.Context) dispatchScope {
	s, _ := ctx.Value(scopeKey{}).(dispatchScope)
	return s
}
