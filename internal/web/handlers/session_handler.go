package handlers

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"go.uber.org/zap"

	"litigation-assistant/internal/models"
	"litigation-assistant/internal/services"
)

// SessionHandler 處理工作階段與單方操作的 API
type SessionHandler struct {
	registry       *services.Registry
	log            *zap.Logger
	maxUploadBytes int64
}

// NewSessionHandler 建立 SessionHandler 實例
func NewSessionHandler(registry *services.Registry, maxUploadBytes int64, log *zap.Logger) *SessionHandler {
	if log == nil {
		log = zap.NewNop()
	}
	if registry == nil {
		log.Panic("SessionHandler：Registry 不得為空")
	}
	return &SessionHandler{registry: registry, log: log, maxUploadBytes: maxUploadBytes}
}

type createSessionRequest struct {
	CaseType string `json:"caseType"`
	UserSide string `json:"userSide"`
}

type textRequest struct {
	Text string `json:"text"`
}

type resultResponse struct {
	Result  string                   `json:"result"`
	Session services.SessionSnapshot `json:"session"`
}

func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (*services.Session, bool) {
	s, err := h.registry.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, h.log, r, err)
		return nil, false
	}
	return s, true
}

func (h *SessionHandler) sessionAndParty(w http.ResponseWriter, r *http.Request) (*services.Session, models.Party, bool) {
	s, ok := h.session(w, r)
	if !ok {
		return nil, "", false
	}
	p, err := models.ParseParty(r.PathValue("party"))
	if err != nil {
		writeError(w, h.log, r, err)
		return nil, "", false
	}
	return s, p, true
}

// dispatchContext 請求送出後即執行到完成或失敗，不隨用戶端中斷而取消
func dispatchContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

// Create POST /api/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.ContentLength != 0 {
		if !h.decode(w, r, &req) {
			return
		}
	}
	caseType, err := models.ParseCaseType(req.CaseType)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	side := models.Plaintiff
	if req.UserSide != "" {
		if side, err = models.ParseParty(req.UserSide); err != nil {
			writeMessage(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
	}
	s := h.registry.Create(caseType, side)
	h.log.Info("[API] 已建立工作階段", zap.String("session_id", s.ID))
	writeJSON(w, http.StatusCreated, s.Snapshot())
}

// Get GET /api/sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// Delete DELETE /api/sessions/{id}
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Delete(r.PathValue("id")); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetArgument PUT /api/sessions/{id}/parties/{party}/argument
func (h *SessionHandler) SetArgument(w http.ResponseWriter, r *http.Request) {
	s, p, ok := h.sessionAndParty(w, r)
	if !ok {
		return
	}
	var req textRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := s.SetArgument(p, req.Text); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// ArgumentFile POST /api/sessions/{id}/parties/{party}/argument-file
func (h *SessionHandler) ArgumentFile(w http.ResponseWriter, r *http.Request) {
	s, p, ok := h.sessionAndParty(w, r)
	if !ok {
		return
	}
	h.withUpload(w, r, func(name, mimeType string, f io.Reader) error {
		return s.LoadArgumentFile(p, name, mimeType, f)
	}, s)
}

// UploadEvidence POST /api/sessions/{id}/parties/{party}/evidence
func (h *SessionHandler) UploadEvidence(w http.ResponseWriter, r *http.Request) {
	s, p, ok := h.sessionAndParty(w, r)
	if !ok {
		return
	}
	h.withUpload(w, r, func(name, mimeType string, f io.Reader) error {
		_, err := s.UploadEvidence(p, name, mimeType, f)
		return err
	}, s)
}

// RemoveEvidence DELETE /api/sessions/{id}/parties/{party}/evidence
func (h *SessionHandler) RemoveEvidence(w http.ResponseWriter, r *http.Request) {
	s, p, ok := h.sessionAndParty(w, r)
	if !ok {
		return
	}
	if err := s.RemoveEvidence(p); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// Summarize POST /api/sessions/{id}/parties/{party}/summarize
func (h *SessionHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	h.runPartyOp(w, r, (*services.Session).Summarize)
}

// Evaluate POST /api/sessions/{id}/parties/{party}/evaluate
func (h *SessionHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	h.runPartyOp(w, r, (*services.Session).Evaluate)
}

func (h *SessionHandler) runPartyOp(w http.ResponseWriter, r *http.Request,
	op func(*services.Session, context.Context, models.Party) (string, error)) {
	s, p, ok := h.sessionAndParty(w, r)
	if !ok {
		return
	}
	text, err := op(s, dispatchContext(r), p)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resultResponse{Result: text, Session: s.Snapshot()})
}

// SetIssues PUT /api/sessions/{id}/issues
func (h *SessionHandler) SetIssues(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req textRequest
	if !h.decode(w, r, &req) {
		return
	}
	s.SetIssues(req.Text)
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// Synthesize POST /api/sessions/{id}/synthesize
func (h *SessionHandler) Synthesize(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if _, err := s.Synthesize(dispatchContext(r)); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (h *SessionHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	err := decodeJSON(w, r, v, h.maxUploadBytes)
	if err == nil {
		return true
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		writeError(w, h.log, r, err)
	} else {
		writeMessage(w, http.StatusBadRequest, "bad_request", badRequestMessage)
	}
	return false
}

// withUpload 逐段讀取 multipart 內容，找到 file 欄位後直接交給 apply；
// 類型檢查在 apply 內先於讀取檔案內容，不符的檔案不會被讀入
func (h *SessionHandler) withUpload(w http.ResponseWriter, r *http.Request,
	apply func(name, mimeType string, f io.Reader) error, s *services.Session) {
	if r.ContentLength > h.maxUploadBytes {
		writeError(w, h.log, r, &http.MaxBytesError{Limit: h.maxUploadBytes})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	mr, err := r.MultipartReader()
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "bad_request", badRequestMessage)
		return
	}

	var part *multipart.Part
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			writeMessage(w, http.StatusBadRequest, "bad_request", missingFileMessage)
			return
		}
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				writeError(w, h.log, r, err)
				return
			}
			writeMessage(w, http.StatusBadRequest, "bad_request", badRequestMessage)
			return
		}
		if p.FormName() == "file" && p.FileName() != "" {
			part = p
			break
		}
		p.Close()
	}

	if err := apply(part.FileName(), part.Header.Get("Content-Type"), part); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}
