package services

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"litigation-assistant/internal/models"
	"litigation-assistant/internal/prompts"
)

type synthesisRequests struct {
	summary    *prompts.Request
	comparison *prompts.Request
	counter    *prompts.Request
	structure  *prompts.Request
}

// buildSynthesisLocked 先完成四個請求的前置條件檢查，任何一項不符就不送出任何請求
func (s *Session) buildSynthesisLocked() (*synthesisRequests, error) {
	b := s.analyzer.builder
	own := s.userSide
	opponent := own.Opponent()
	cross := prompts.CrossPartyInput{
		PlaintiffName:    s.Label(models.Plaintiff),
		DefendantName:    s.Label(models.Defendant),
		PlaintiffSummary: s.parties[models.Plaintiff].summary,
		DefendantSummary: s.parties[models.Defendant].summary,
	}

	var (
		reqs synthesisRequests
		err  error
	)
	if reqs.summary, err = b.CrossPartySummary(cross); err != nil {
		return nil, err
	}
	if reqs.comparison, err = b.ComparisonTable(prompts.ComparisonInput{CrossPartyInput: cross, Issues: s.issues}); err != nil {
		return nil, err
	}
	if reqs.counter, err = b.CounterArguments(prompts.CounterInput{
		SideName:        s.Label(own),
		OpponentName:    s.Label(opponent),
		OpponentSummary: s.parties[opponent].summary,
	}); err != nil {
		return nil, err
	}
	if reqs.structure, err = b.StructureArguments(prompts.StructureInput{
		SideName: s.Label(own),
		Argument: s.parties[own].argument,
		Issues:   s.issues,
	}); err != nil {
		return nil, err
	}
	return &reqs, nil
}

// Synthesize 同時送出四個整合分析請求，全部成功才保存結果。
// 開始前清除舊結果；任何一項失敗時結果維持為空，並回傳最先發生的錯誤。
func (s *Session) Synthesize(ctx context.Context) (*models.Bundle, error) {
	s.mu.Lock()
	if s.synthesizing {
		s.mu.Unlock()
		return nil, models.ErrSynthesisRunning
	}
	s.bundle = nil
	s.synthErr = nil
	reqs, err := s.buildSynthesisLocked()
	if err != nil {
		s.synthErr = err
		s.touchLocked()
		s.mu.Unlock()
		return nil, err
	}
	s.synthesizing = true
	s.touchLocked()
	s.mu.Unlock()

	s.analyzer.log.Info("[Session] 開始整合分析", zap.String("session_id", s.ID))
	bundle, err := s.analyzer.dispatcher.synthesize(withScope(ctx, s.ID, ""), reqs)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.synthesizing = false
	s.touchLocked()
	if err != nil {
		s.synthErr = err
		s.analyzer.log.Warn("[Session] 整合分析失敗，結果已清除",
			zap.String("session_id", s.ID), zap.String("kind", models.ErrorKind(err)))
		return nil, err
	}
	s.bundle = bundle
	s.analyzer.log.Info("[Session] 整合分析完成",
		zap.String("session_id", s.ID), zap.Int("comparison_rows", len(bundle.Comparison)))
	return copyBundle(bundle), nil
}

// synthesize 四個請求各寫入自己的欄位；沒有取消機制，已送出的請求一律跑完
func (d *Dispatcher) synthesize(ctx context.Context, reqs *synthesisRequests) (*models.Bundle, error) {
	var (
		g errgroup.Group
		b models.Bundle
	)
	g.Go(func() (err error) {
		b.Summary, err = d.Text(ctx, reqs.summary)
		return err
	})
	g.Go(func() (err error) {
		b.Comparison, err = d.Rows(ctx, reqs.comparison)
		return err
	})
	g.Go(func() (err error) {
		b.CounterArguments, err = d.Text(ctx, reqs.counter)
		return err
	})
	g.Go(func() (err error) {
		b.StructuredArguments, err = d.Text(ctx, reqs.structure)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &b, nil
}
