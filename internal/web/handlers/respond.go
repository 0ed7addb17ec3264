package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"litigation-assistant/internal/models"
)

const (
	badRequestMessage   = "請求格式錯誤。"
	tooLargeMessage     = "檔案超過上傳大小限制。"
	internalMessage     = "伺服器內部錯誤，請稍後再試。"
	missingFileMessage  = "請選擇要上傳的檔案。"
	noExportMessage     = "尚無可匯出的整合分析結果。"
	noComparisonMessage = "尚無可匯出的爭點比較表。"
)

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, errorBody{Error: msg, Kind: kind})
}

// writeError 依錯誤種類決定狀態碼；回應只包含使用者訊息，技術細節只寫入日誌
func writeError(w http.ResponseWriter, log *zap.Logger, r *http.Request, err error) {
	status, kind, msg := classify(err)
	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("kind", kind),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		log.Error("[API] 請求處理失敗", fields...)
	} else {
		log.Warn("[API] 請求被拒絕", fields...)
	}
	writeMessage(w, status, kind, msg)
}

func classify(err error) (int, string, string) {
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, models.ErrSessionNotFound), errors.Is(err, models.ErrUnknownParty):
		return http.StatusNotFound, "not_found", err.Error()
	case errors.Is(err, models.ErrPartyBusy), errors.Is(err, models.ErrSynthesisRunning):
		return http.StatusConflict, "busy", err.Error()
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge, "too_large", tooLargeMessage
	}
	switch kind := models.ErrorKind(err); kind {
	case "precondition", "read":
		return http.StatusBadRequest, kind, err.Error()
	case "unsupported_media":
		return http.StatusUnsupportedMediaType, kind, err.Error()
	case "malformed_response", "analysis_failed":
		return http.StatusBadGateway, kind, err.Error()
	}
	return http.StatusInternalServerError, "internal", internalMessage
}

// decodeJSON 讀取 JSON 請求內容，超過 limit 位元組時回傳 *http.MaxBytesError
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}, limit int64) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, limit)).Decode(v)
}
