package models

import (
	"errors"
	"fmt"
)

var (
	ErrSessionNotFound  = errors.New("找不到指定的分析工作階段")
	ErrUnknownParty     = errors.New("未知的當事人")
	ErrPartyBusy        = errors.New("該方已有分析正在進行中，請稍候")
	ErrSynthesisRunning = errors.New("整合分析已在進行中，請稍候")
)

// 每種操作固定的使用者訊息
var (
	preconditionMessages = map[Operation]string{
		OpEvaluateEvidence:   "請同時提供論點與證據，才能進行證據評估。",
		OpSummarizeDocument:  "請至少提供論點或證據其中一項，才能產生摘要。",
		OpCrossPartySummary:  "請先完成雙方的摘要，才能產生整合摘要。",
		OpComparisonTable:    "請先完成雙方的摘要並填寫爭點清單，才能產生爭點比較表。",
		OpCounterArguments:   "請先完成對方的摘要，才能產生反駁論點。",
		OpStructureArguments: "請提供己方論點並填寫爭點清單，才能進行論點結構化。",
	}
	failureMessages = map[Operation]string{
		OpEvaluateEvidence:   "證據評估失敗，請稍後再試。",
		OpSummarizeDocument:  "摘要產生失敗，請稍後再試。",
		OpCrossPartySummary:  "雙方論點整合摘要產生失敗，請稍後再試。",
		OpComparisonTable:    "爭點比較表產生失敗，請稍後再試。",
		OpCounterArguments:   "反駁論點產生失敗，請稍後再試。",
		OpStructureArguments: "論點結構化失敗，請稍後再試。",
	}
)

const (
	unsupportedEvidenceMessage = "僅接受圖片或 PDF 檔案。"
	unsupportedTextMessage     = "僅接受純文字檔 (.txt)。"
	readFailureMessage         = "檔案讀取失敗，請重新上傳。"
)

// PreconditionMessage 回傳操作的前置條件訊息
func PreconditionMessage(op Operation) string { return preconditionMessages[op] }

// FailureMessage 回傳操作失敗時顯示給使用者的固定訊息
func FailureMessage(op Operation) string { return failureMessages[op] }

// PreconditionError 表示缺少必要輸入，請求未被送出
type PreconditionError struct {
	Op Operation
}

func NewPreconditionError(op Operation) *PreconditionError { return &PreconditionError{Op: op} }

func (e *PreconditionError) Error() string { return PreconditionMessage(e.Op) }

// UnsupportedMediaError 表示檔案類型不被接受
type UnsupportedMediaError struct {
	MIMEType string
	// TextOnly 為 true 時代表論點欄位只接受純文字檔
	TextOnly bool
}

func (e *UnsupportedMediaError) Error() string {
	if e.TextOnly {
		return unsupportedTextMessage
	}
	return unsupportedEvidenceMessage
}

// ReadError 表示檔案無法讀取或解碼
type ReadError struct {
	Name string
	Err  error
}

func (e *ReadError) Error() string { return readFailureMessage }

func (e *ReadError) Unwrap() error { return e.Err }

// Detail 回傳技術細節，僅供日誌使用
func (e *ReadError) Detail() string {
	return fmt.Sprintf("讀取檔案 '%s' 失敗: %v", e.Name, e.Err)
}

// MalformedResponseError 表示結構化回應無法解析
type MalformedResponseError struct {
	Op  Operation
	Err error
}

func (e *MalformedResponseError) Error() string { return FailureMessage(e.Op) }

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// AnalysisFailedError 表示送出請求後發生的其他失敗
type AnalysisFailedError struct {
	Op  Operation
	Err error
}

func (e *AnalysisFailedError) Error() string { return FailureMessage(e.Op) }

func (e *AnalysisFailedError) Unwrap() error { return e.Err }

// ErrorKind 回傳錯誤種類的名稱，供 API 回應與診斷紀錄使用
func ErrorKind(err error) string {
	var (
		pe *PreconditionError
		ue *UnsupportedMediaError
		re *ReadError
		me *MalformedResponseError
		ae *AnalysisFailedError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &pe):
		return "precondition"
	case errors.As(err, &ue):
		return "unsupported_media"
	case errors.As(err, &re):
		return "read"
	case errors.As(err, &me):
		return "malformed_response"
	case errors.As(err, &ae):
		return "analysis_failed"
	}
	return "internal"
}
