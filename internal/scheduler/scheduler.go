package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"litigation-assistant/internal/config"
)

type Scheduler struct {
	cron *cron.Cron
	log  *zap.Logger
}

// NewScheduler 註冊工作階段清理與診斷紀錄清理任務；store 為 nil 時只註冊前者
func NewScheduler(
	cfg config.SchedulerConfig,
	registry SessionPurger,
	idleTTL time.Duration,
	store DiagnosticsPurger,
	retentionDays int,
	log *zap.Logger,
) (*Scheduler, error) {
	if log == nil {
		log = zap.NewNop()
	}
	c := cron.New(cron.WithSeconds())

	if cfg.SessionSweepCronSpec != "" {
		if _, err := c.AddJob(cfg.SessionSweepCronSpec, NewSessionSweepJob(registry, idleTTL, log)); err != nil {
			return nil, fmt.Errorf("無法新增工作階段清理任務到排程器 (spec: %s): %w", cfg.SessionSweepCronSpec, err)
		}
		log.Info("[Scheduler] 工作階段清理任務已註冊", zap.String("spec", cfg.SessionSweepCronSpec))
	} else {
		log.Warn("[Scheduler] 未提供工作階段清理任務的 Cron 表達式，該任務將不會被排程")
	}

	if store != nil && cfg.DiagnosticsPurgeCronSpec != "" {
		if _, err := c.AddJob(cfg.DiagnosticsPurgeCronSpec, NewDiagnosticsPurgeJob(store, retentionDays, log)); err != nil {
			return nil, fmt.Errorf("無法新增診斷紀錄清理任務到排程器 (spec: %s): %w", cfg.DiagnosticsPurgeCronSpec, err)
		}
		log.Info("[Scheduler] 診斷紀錄清理任務已註冊", zap.String("spec", cfg.DiagnosticsPurgeCronSpec))
	}

	return &Scheduler{cron: c, log: log}, nil
}

// Entries 回傳已註冊的任務數
func (s *Scheduler) Entries() int { return len(s.cron.Entries()) }

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("[Scheduler] 排程器已啟動")
}

func (s *Scheduler) Stop() {
	s.log.Info("[Scheduler] 正在停止排程器")
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
		s.log.Info("[Scheduler] 排程器已優雅停止，所有運行中任務已完成")
	case <-time.After(10 * time.Second):
		s.log.Warn("[Scheduler] 排程器停止超時，可能仍有任務在執行")
	}
}
