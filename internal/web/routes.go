package web

import (
	"net/http"

	"go.uber.org/zap"

	"litigation-assistant/internal/config"
	"litigation-assistant/internal/services"
	"litigation-assistant/internal/web/handlers"
)

// SetupRouter 註冊所有 API 路由；diagnostics 為 nil 時診斷端點回報未啟用
func SetupRouter(appConfig *config.Config, registry *services.Registry, diagnostics handlers.DiagnosticsReader, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	mux := http.NewServeMux()
	maxUpload := appConfig.Server.MaxUploadMB << 20

	sessions := handlers.NewSessionHandler(registry, maxUpload, log)
	mux.HandleFunc("POST /api/sessions", sessions.Create)
	mux.HandleFunc("GET /api/sessions/{id}", sessions.Get)
	mux.HandleFunc("DELETE /api/sessions/{id}", sessions.Delete)
	mux.HandleFunc("PUT /api/sessions/{id}/parties/{party}/argument", sessions.SetArgument)
	mux.HandleFunc("POST /api/sessions/{id}/parties/{party}/argument-file", sessions.ArgumentFile)
	mux.HandleFunc("POST /api/sessions/{id}/parties/{party}/evidence", sessions.UploadEvidence)
	mux.HandleFunc("DELETE /api/sessions/{id}/parties/{party}/evidence", sessions.RemoveEvidence)
	mux.HandleFunc("POST /api/sessions/{id}/parties/{party}/summarize", sessions.Summarize)
	mux.HandleFunc("POST /api/sessions/{id}/parties/{party}/evaluate", sessions.Evaluate)
	mux.HandleFunc("PUT /api/sessions/{id}/issues", sessions.SetIssues)
	mux.HandleFunc("POST /api/sessions/{id}/synthesize", sessions.Synthesize)

	exports := handlers.NewExportHandler(registry, log)
	mux.HandleFunc("GET /api/sessions/{id}/export", exports.Text)
	mux.HandleFunc("GET /api/sessions/{id}/export/comparison.xlsx", exports.Comparison)

	mux.Handle("GET /api/diagnostics", handlers.NewDiagnosticsHandler(diagnostics, log))
	mux.HandleFunc("GET /healthz", handlers.Health(registry.Len))

	log.Info("[Router] HTTP 路由設定完成")
	return accessLog(mux, log)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// accessLog 記錄每個請求的方法、路徑與狀態碼
func accessLog(next http.Handler, log *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Debug("[Router] 收到請求",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.String("remote", r.RemoteAddr),
		)
	})
}
