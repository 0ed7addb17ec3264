package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"litigation-assistant/internal/models"
	"litigation-assistant/internal/prompts"
)

// Generator 是模型端點的抽象，測試時可替換
type Generator interface {
	Generate(ctx context.Context, req *prompts.Request) (string, error)
}

// Dispatcher 每次呼叫只對模型送出一個請求，不重試。
// 失敗一律轉為該操作固定的使用者訊息，技術細節只寫入日誌與診斷紀錄。
type Dispatcher struct {
	gen Generator
	rec Recorder
	log *zap.Logger
	now func() time.Time
}

// NewDispatcher 建立 Dispatcher；rec 為 nil 時不寫入診斷紀錄
func NewDispatcher(gen Generator, rec Recorder, log *zap.Logger) (*Dispatcher, error) {
	if gen == nil {
		return nil, fmt.Errorf("Dispatcher：Generator 不得為空")
	}
	if rec == nil {
		rec = NopRecorder{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{gen: gen, rec: rec, log: log, now: time.Now}, nil
}

// Text 送出自由文字的請求
func (d *Dispatcher) Text(ctx context.Context, req *prompts.Request) (string, error) {
	raw, err := d.call(ctx, req, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

// Rows 送出要求結構化輸出的請求，並解析為比較表列
func (d *Dispatcher) Rows(ctx context.Context, req *prompts.Request) ([]models.ComparisonRow, error) {
	if req.Shape == nil {
		return nil, fmt.Errorf("操作 %s 未設定回應格式", req.Op)
	}
	var rows []models.ComparisonRow
	_, err := d.call(ctx, req, func(raw string) error {
		parsed, perr := parseRows(raw, req.Shape.Fields)
		if perr != nil {
			return perr
		}
		rows = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (d *Dispatcher) call(ctx context.Context, req *prompts.Request, parse func(string) error) (string, error) {
	started := d.now()
	raw, err := d.gen.Generate(ctx, req)
	if err != nil {
		err = &models.AnalysisFailedError{Op: req.Op, Err: err}
	} else if parse != nil {
		if perr := parse(raw); perr != nil {
			err = &models.MalformedResponseError{Op: req.Op, Err: perr}
		}
	}
	d.record(ctx, req.Op, d.now().Sub(started), err)
	if err != nil {
		return "", err
	}
	return raw, nil
}

func (d *Dispatcher) record(ctx context.Context, op models.Operation, latency time.Duration, err error) {
	scope := scopeFrom(ctx)
	fields := []zap.Field{
		zap.String("operation", string(op)),
		zap.String("session_id", scope.sessionID),
		zap.String("party", string(scope.party)),
		zap.Duration("latency", latency),
	}
	ev := models.DiagnosticEvent{
		SessionID: scope.sessionID,
		Party:     models.NewJsonNullString(string(scope.party)),
		Operation: op,
		Outcome:   models.OutcomeSucceeded,
		LatencyMs: latency.Milliseconds(),
		CreatedAt: d.now(),
	}
	if err != nil {
		ev.Outcome = models.OutcomeFailed
		ev.ErrorKind = models.NewJsonNullString(models.ErrorKind(err))
		ev.Detail = models.NewJsonNullString(technicalDetail(err))
		d.log.Error("[Dispatcher] 模型呼叫失敗", append(fields, zap.String("kind", models.ErrorKind(err)), zap.Error(errors.Unwrap(err)))...)
	} else {
		d.log.Info("[Dispatcher] 模型呼叫完成", fields...)
	}
	if rerr := d.rec.Record(context.WithoutCancel(ctx), ev); rerr != nil {
		d.log.Warn("[Dispatcher] 寫入診斷紀錄失敗", zap.Error(rerr))
	}
}

func technicalDetail(err error) string {
	if inner := errors.Unwrap(err); inner != nil {
		return inner.Error()
	}
	return err.Error()
}

// stripCodeFence 移除模型可能包上的 markdown 代碼塊標記，不改動其中內容
func stripCodeFence(raw string) string {
	cleaned := strings.TrimSpace(strings.TrimPrefix(raw, "\uFEFF"))
	for _, prefix := range []string{"```json", "```JSON", "```"} {
		if strings.HasPrefix(cleaned, prefix) {
			cleaned = strings.TrimPrefix(cleaned, prefix)
			cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
			break
		}
	}
	return strings.TrimSpace(cleaned)
}

// parseRows 回應必須是物件陣列，每個物件的每個必要欄位都必須是字串
func parseRows(raw string, fields []string) ([]models.ComparisonRow, error) {
	var items []map[string]json.RawMessage
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &items); err != nil {
		return nil, fmt.Errorf("回應不是物件陣列: %w", err)
	}
	if items == nil {
		return nil, fmt.Errorf("回應為 null，而非陣列")
	}
	rows := make([]models.ComparisonRow, 0, len(items))
	for i, item := range items {
		if item == nil {
			return nil, fmt.Errorf("第 %d 個元素不是物件", i)
		}
		values := make(map[string]string, len(fields))
		for _, f := range fields {
			rawValue, ok := item[f]
			if !ok {
				return nil, fmt.Errorf("第 %d 個元素缺少欄位 %s", i, f)
			}
			var s *string
			if err := json.Unmarshal(rawValue, &s); err != nil {
				return nil, fmt.Errorf("第 %d 個元素的欄位 %s 不是字串: %w", i, f, err)
			}
			if s == nil {
				return nil, fmt.Errorf("第 %d 個元素的欄位 %s 為 null", i, f)
			}
			values[f] = *s
		}
		rows = append(rows, models.ComparisonRow{
			Issue:             values["issue"],
			PlaintiffArgument: values["plaintiff_argument"],
			PlaintiffEvidence: values["plaintiff_evidence"],
			DefendantArgument: values["defendant_argument"],
			DefendantEvidence: values["defendant_evidence"],
		})
	}
	return rows, nil
}
