package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SessionPurger 清除閒置的工作階段
type SessionPurger interface {
	PurgeIdle(ttl time.Duration) int
}

// DiagnosticsPurger 刪除過期的診斷紀錄
type DiagnosticsPurger interface {
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// SessionSweepJob 週期性移除閒置過久的工作階段，連同其中的證據
type SessionSweepJob struct {
	registry SessionPurger
	ttl      time.Duration
	log      *zap.Logger
}

func NewSessionSweepJob(r SessionPurger, ttl time.Duration, log *zap.Logger) *SessionSweepJob {
	return &SessionSweepJob{registry: r, ttl: ttl, log: log}
}

// Run 實現 cron.Job 介面 (github.com/robfig/cron/v3)
func (j *SessionSweepJob) Run() {
	removed := j.registry.PurgeIdle(j.ttl)
	j.log.Debug("[Scheduler] 閒置工作階段清理完成", zap.Int("removed", removed), zap.Duration("ttl", j.ttl))
}

// DiagnosticsPurgeJob 刪除超過保留天數的診斷紀錄
type DiagnosticsPurgeJob struct {
	store         DiagnosticsPurger
	retentionDays int
	now           func() time.Time
	log           *zap.Logger
}

func NewDiagnosticsPurgeJob(store DiagnosticsPurger, retentionDays int, log *zap.Logger) *DiagnosticsPurgeJob {
	return &DiagnosticsPurgeJob{store: store, retentionDays: retentionDays, now: time.Now, log: log}
}

// Run 實現 cron.Job 介面
func (j *DiagnosticsPurgeJob) Run() {
	if j.retentionDays <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	cutoff := j.now().AddDate(0, 0, -j.retentionDays)
	n, err := j.store.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		j.log.Error("[Scheduler] 診斷紀錄清理任務執行失敗", zap.Error(err))
		return
	}
	j.log.Info("[Scheduler] 診斷紀錄清理任務執行完成", zap.Int64("deleted", n))
}
