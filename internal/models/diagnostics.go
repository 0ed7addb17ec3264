package models

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// DispatchOutcome 是一次模型呼叫的結果
type DispatchOutcome string

const (
	OutcomeSucceeded DispatchOutcome = "succeeded"
	OutcomeFailed    DispatchOutcome = "failed"
)

// DiagnosticEvent 對應 dispatch_events 資料表。
// 只記錄技術資訊，不包含論點、證據或分析結果。
type DiagnosticEvent struct {
	ID        int64           `json:"id"`
	SessionID string          `json:"session_id"`
	Party     JsonNullString  `json:"party"`
	Operation Operation       `json:"operation"`
	Outcome   DispatchOutcome `json:"outcome"`
	ErrorKind JsonNullString  `json:"error_kind"`
	Detail    JsonNullString  `json:"detail"`
	LatencyMs int64           `json:"latency_ms"`
	CreatedAt time.Time       `json:"created_at"`
}

// JsonNullString 包裝 sql.NullString，無效值輸出為 JSON null
type JsonNullString struct {
	sql.NullString
}

// NewJsonNullString 空字串視為 null
func NewJsonNullString(s string) JsonNullString {
	return JsonNullString{NullString: sql.NullString{String: s, Valid: s != ""}}
}

func (jns JsonNullString) MarshalJSON() ([]byte, error) {
	if !jns.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(jns.String)
}

func (jns *JsonNullString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		jns.String, jns.Valid = "", false
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		jns.String, jns.Valid = "", false
		return fmt.Errorf("JsonNullString: 期望 JSON 字串或 null，但得到 '%s': %w", string(data), err)
	}
	jns.String, jns.Valid = s, true
	return nil
}
