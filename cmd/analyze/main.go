package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"litigation-assistant/internal/clients/gemini"
	"litigation-assistant/internal/config"
	"litigation-assistant/internal/logger"
	"litigation-assistant/internal/models"
	"litigation-assistant/internal/prompts"
	"litigation-assistant/internal/services"
)

func main() {
	fs := pflag.NewFlagSet("analyze", pflag.ExitOnError)
	configDir := fs.String("config-dir", "./configs", "設定檔目錄")
	caseType := fs.String("case-type", "civil", "案件類型：civil、criminal、administrative")
	side := fs.String("side", "plaintiff", "使用者代表的一方：plaintiff 或 defendant")
	plArg := fs.String("plaintiff-argument", "", "原告方論點純文字檔")
	plEv := fs.String("plaintiff-evidence", "", "原告方證據 (圖片或 PDF)")
	dfArg := fs.String("defendant-argument", "", "被告方論點純文字檔")
	dfEv := fs.String("defendant-evidence", "", "被告方證據 (圖片或 PDF)")
	issues := fs.String("issues", "", "爭點清單純文字檔")
	evaluate := fs.Bool("evaluate", false, "同時進行雙方的證據評估")
	out := fs.String("out", services.ExportFileName, "分析報告輸出路徑")
	xlsx := fs.String("xlsx", "", "爭點比較表 (xlsx) 輸出路徑，留空則不輸出")
	fs.String("api-key", "", "Gemini API Key (預設讀取設定檔或 GEMINICLIENT_APIKEY)")
	fs.String("model", "", "Gemini 模型名稱")
	fs.String("log-level", "", "日誌等級")
	if err := fs.Parse(os.Args[1:]); err != nil {
		log.Fatalf("錯誤：無法解析參數: %v", err)
	}

	v := config.New(*configDir, "config")
	for key, flag := range map[string]string{
		"geminiClient.apiKey": "api-key",
		"geminiClient.model":  "model",
		"logging.level":       "log-level",
	} {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			log.Fatalf("錯誤：無法綁定參數 %s: %v", flag, err)
		}
	}
	cfg, err := config.FromViper(v)
	if err != nil {
		log.Fatalf("錯誤：無法載入設定: %v", err)
	}

	zlog, err := logger.New(logger.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format, OutputPath: "stderr"})
	if err != nil {
		log.Fatalf("錯誤：無法建立日誌: %v", err)
	}
	defer zlog.Sync()

	ct, err := models.ParseCaseType(*caseType)
	if err != nil {
		zlog.Fatal("[Analyze] 參數錯誤", zap.Error(err))
	}
	userSide, err := models.ParseParty(*side)
	if err != nil {
		zlog.Fatal("[Analyze] 參數錯誤", zap.Error(err))
	}

	ctx := context.Background()
	client, err := gemini.NewClient(ctx, cfg.GeminiClient.APIKey, cfg.GeminiClient.Model, zlog)
	if err != nil {
		zlog.Fatal("[Analyze] 初始化 Gemini 客戶端失敗", zap.Error(err))
	}
	defer client.Close()

	analyzer, err := newAnalyzer(client, cfg.Prompts, zlog)
	if err != nil {
		zlog.Fatal("[Analyze] 初始化失敗", zap.Error(err))
	}

	bundle, err := runPipeline(ctx, analyzer, pipelineOptions{
		CaseType: ct,
		UserSide: userSide,
		Parties: map[models.Party]partyInput{
			models.Plaintiff: {ArgumentFile: *plArg, EvidenceFile: *plEv},
			models.Defendant: {ArgumentFile: *dfArg, EvidenceFile: *dfEv},
		},
		IssuesFile: *issues,
		Evaluate:   *evaluate,
		ReportPath: *out,
		XLSXPath:   *xlsx,
	}, zlog)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	zlog.Info("[Analyze] 分析完成", zap.Int("comparison_rows", len(bundle.Comparison)))
}

func newAnalyzer(gen services.Generator, overrides map[string]string, log *zap.Logger) (*services.Analyzer, error) {
	builder, err := prompts.NewBuilder(overrides)
	if err != nil {
		return nil, err
	}
	dispatcher, err := services.NewDispatcher(gen, nil, log)
	if err != nil {
		return nil, err
	}
	return services.NewAnalyzer(builder, dispatcher, log)
}
