package handlers

import (
	"context"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"litigation-assistant/internal/models"
)

// DiagnosticsReader 讀取最近的診斷紀錄
type DiagnosticsReader interface {
	Recent(ctx context.Context, limit int) ([]models.DiagnosticEvent, error)
}

// DiagnosticsHandler GET /api/diagnostics，只回傳技術資訊
type DiagnosticsHandler struct {
	store DiagnosticsReader
	log   *zap.Logger
}

func NewDiagnosticsHandler(store DiagnosticsReader, log *zap.Logger) *DiagnosticsHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &DiagnosticsHandler{store: store, log: log}
}

const maxDiagnosticsLimit = 500

func (h *DiagnosticsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeMessage(w, http.StatusServiceUnavailable, "disabled", "診斷紀錄未啟用。")
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeMessage(w, http.StatusBadRequest, "bad_request", badRequestMessage)
			return
		}
		limit = min(n, maxDiagnosticsLimit)
	}
	events, err := h.store.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	if events == nil {
		events = []models.DiagnosticEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

// Health GET /healthz
func Health(sessions func() int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "sessions": sessions()})
	}
}
