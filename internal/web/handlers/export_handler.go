package handlers

import (
	"mime"
	"net/http"

	"go.uber.org/zap"

	"litigation-assistant/internal/services"
)

// ExportHandler 負責匯出整合分析結果
type ExportHandler struct {
	registry *services.Registry
	log      *zap.Logger
}

// NewExportHandler 建立一個 ExportHandler 實例
func NewExportHandler(registry *services.Registry, log *zap.Logger) *ExportHandler {
	if log == nil {
		log = zap.NewNop()
	}
	if registry == nil {
		log.Panic("ExportHandler：Registry 不得為空")
	}
	return &ExportHandler{registry: registry, log: log}
}

func attachment(w http.ResponseWriter, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
}

// Text GET /api/sessions/{id}/export
func (h *ExportHandler) Text(w http.ResponseWriter, r *http.Request) {
	s, err := h.registry.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	report := services.ExportText(s.Bundle(), s.CaseType())
	if report == "" {
		writeMessage(w, http.StatusNotFound, "not_found", noExportMessage)
		return
	}
	attachment(w, "text/plain; charset=utf-8", services.ExportFileName)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(report)); err != nil {
		h.log.Warn("[ExportHandler] 寫入匯出內容失敗", zap.String("session_id", s.ID), zap.Error(err))
		return
	}
	h.log.Info("[ExportHandler] 已匯出分析報告", zap.String("session_id", s.ID), zap.Int("bytes", len(report)))
}

// Comparison GET /api/sessions/{id}/export/comparison.xlsx
func (h *ExportHandler) Comparison(w http.ResponseWriter, r *http.Request) {
	s, err := h.registry.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	b := s.Bundle()
	if b == nil || len(b.Comparison) == 0 {
		writeMessage(w, http.StatusNotFound, "not_found", noComparisonMessage)
		return
	}
	f, err := services.ComparisonWorkbook(b.Comparison, s.CaseType())
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	defer f.Close()

	attachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", services.ComparisonFileName)
	w.WriteHeader(http.StatusOK)
	if err := f.Write(w); err != nil {
		h.log.Warn("[ExportHandler] 寫入活頁簿失敗", zap.String("session_id", s.ID), zap.Error(err))
	}
}
