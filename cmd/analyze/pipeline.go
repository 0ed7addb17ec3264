package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"litigation-assistant/internal/evidence"
	"litigation-assistant/internal/models"
	"litigation-assistant/internal/services"
)

// partyInput 單方的本機輸入檔，皆可留空
type partyInput struct {
	ArgumentFile string
	EvidenceFile string
}

type pipelineOptions struct {
	CaseType   models.CaseType
	UserSide   models.Party
	Parties    map[models.Party]partyInput
	IssuesFile string
	Evaluate   bool
	ReportPath string
	XLSXPath   string
}

// runPipeline 依序完成載入、雙方摘要 (與評估)、整合分析與匯出
func runPipeline(ctx context.Context, analyzer *services.Analyzer, opts pipelineOptions, log *zap.Logger) (*models.Bundle, error) {
	s := analyzer.NewSession("cli", opts.CaseType, opts.UserSide)

	for _, p := range models.Parties {
		in := opts.Parties[p]
		if in.ArgumentFile != "" {
			if err := loadLocal(in.ArgumentFile, func(name, mt string, f *os.File) error {
				return s.LoadArgumentFile(p, name, mt, f)
			}); err != nil {
				return nil, fmt.Errorf("%s論點檔 '%s': %w", s.Label(p), in.ArgumentFile, err)
			}
		}
		if in.EvidenceFile != "" {
			if err := loadLocal(in.EvidenceFile, func(name, mt string, f *os.File) error {
				_, err := s.UploadEvidence(p, name, mt, f)
				return err
			}); err != nil {
				return nil, fmt.Errorf("%s證據檔 '%s': %w", s.Label(p), in.EvidenceFile, err)
			}
		}
	}

	// 雙方各自獨立，可同時進行
	var g errgroup.Group
	for _, p := range models.Parties {
		g.Go(func() error {
			if _, err := s.Summarize(ctx, p); err != nil {
				return fmt.Errorf("%s摘要: %w", s.Label(p), err)
			}
			if !opts.Evaluate {
				return nil
			}
			if _, err := s.Evaluate(ctx, p); err != nil {
				log.Warn("[Analyze] 證據評估未完成", zap.String("party", string(p)), zap.String("reason", err.Error()))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if opts.IssuesFile != "" {
		data, err := os.ReadFile(opts.IssuesFile)
		if err != nil {
			return nil, fmt.Errorf("讀取爭點清單 '%s' 失敗: %w", opts.IssuesFile, err)
		}
		s.SetIssues(string(data))
	}

	bundle, err := s.Synthesize(ctx)
	if err != nil {
		return nil, fmt.Errorf("整合分析: %w", err)
	}

	if opts.ReportPath != "" {
		report := services.ExportText(bundle, opts.CaseType)
		if err := os.WriteFile(opts.ReportPath, []byte(report+"\n"), 0o644); err != nil {
			return nil, fmt.Errorf("寫入分析報告失敗: %w", err)
		}
		log.Info("[Analyze] 分析報告已寫入", zap.String("path", opts.ReportPath))
	}
	if opts.XLSXPath != "" && len(bundle.Comparison) > 0 {
		f, err := services.ComparisonWorkbook(bundle.Comparison, opts.CaseType)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if err := f.SaveAs(opts.XLSXPath); err != nil {
			return nil, fmt.Errorf("寫入爭點比較表失敗: %w", err)
		}
		log.Info("[Analyze] 爭點比較表已寫入", zap.String("path", opts.XLSXPath))
	}

	for _, ps := range s.Snapshot().Parties {
		if strings.TrimSpace(ps.Evaluation) != "" {
			log.Info("[Analyze] 證據評估", zap.String("party", ps.Label), zap.String("evaluation", ps.Evaluation))
		}
	}
	return bundle, nil
}

// loadLocal 以檔案內容判斷媒體類型後交給 apply
func loadLocal(path string, apply func(name, mediaType string, f *os.File) error) error {
	mt, err := evidence.DetectMediaType(path)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("開啟檔案失敗: %w", err)
	}
	defer f.Close()
	return apply(filepath.Base(path), mt, f)
}
