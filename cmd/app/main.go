package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"litigation-assistant/internal/clients/gemini"
	"litigation-assistant/internal/config"
	"litigation-assistant/internal/logger"
	"litigation-assistant/internal/prompts"
	"litigation-assistant/internal/scheduler"
	"litigation-assistant/internal/services"
	"litigation-assistant/internal/storage/mysql"
	"litigation-assistant/internal/web"
	"litigation-assistant/internal/web/handlers"
)

func main() {
	cfg, err := config.Load("./configs", "config")
	if err != nil {
		log.Fatalf("錯誤：無法載入設定: %v", err)
	}

	zlog, err := logger.New(logger.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputPath: cfg.Logging.OutputPath,
	})
	if err != nil {
		log.Fatalf("錯誤：無法建立日誌: %v", err)
	}
	defer zlog.Sync()
	zlog.Info("[Main] 應用程式設定載入成功", zap.String("app", cfg.AppName))

	ctx := context.Background()

	// 診斷紀錄為選用功能
	var (
		recorder    services.Recorder
		diagnostics handlers.DiagnosticsReader
		purger      scheduler.DiagnosticsPurger
	)
	if cfg.Database.Enabled {
		if err := mysql.Migrate(cfg.Database, mysql.DefaultMigrationPath, zlog); err != nil {
			zlog.Fatal("[Main] 資料庫遷移失敗", zap.Error(err))
		}
		store, err := mysql.NewMySQLStore(cfg.Database, zlog)
		if err != nil {
			zlog.Fatal("[Main] 初始化 MySQL 資料庫連線失敗", zap.Error(err))
		}
		defer store.Close()
		recorder, diagnostics, purger = store, store, store
	} else {
		zlog.Info("[Main] 診斷紀錄資料庫未啟用")
	}

	geminiClient, err := gemini.NewClient(ctx, cfg.GeminiClient.APIKey, cfg.GeminiClient.Model, zlog)
	if err != nil {
		zlog.Fatal("[Main] 初始化 Gemini 客戶端失敗", zap.Error(err))
	}
	defer geminiClient.Close()

	builder, err := prompts.NewBuilder(cfg.Prompts)
	if err != nil {
		zlog.Fatal("[Main] prompt 範本設定錯誤", zap.Error(err))
	}
	dispatcher, err := services.NewDispatcher(geminiClient, recorder, zlog)
	if err != nil {
		zlog.Fatal("[Main] 初始化 Dispatcher 失敗", zap.Error(err))
	}
	analyzer, err := services.NewAnalyzer(builder, dispatcher, zlog)
	if err != nil {
		zlog.Fatal("[Main] 初始化 Analyzer 失敗", zap.Error(err))
	}
	registry, err := services.NewRegistry(analyzer, zlog)
	if err != nil {
		zlog.Fatal("[Main] 初始化 Registry 失敗", zap.Error(err))
	}

	if cfg.Scheduler.Enabled {
		appScheduler, err := scheduler.NewScheduler(cfg.Scheduler, registry, cfg.Session.IdleTTL, purger, cfg.Diagnostics.RetentionDays, zlog)
		if err != nil {
			zlog.Fatal("[Main] 初始化排程器失敗", zap.Error(err))
		}
		appScheduler.Start()
		defer appScheduler.Stop()
	} else {
		zlog.Info("[Main] 排程器已在設定檔中禁用")
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           web.SetupRouter(cfg, registry, diagnostics, zlog),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zlog.Info("[Main] HTTP 伺服器正在監聽", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("[Main] HTTP 伺服器監聽失敗", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("[Main] 收到關閉訊號，正在關閉應用程式")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error("[Main] HTTP 伺服器優雅關閉失敗", zap.Error(err))
	}
	zlog.Info("[Main] 應用程式已成功關閉")
}
