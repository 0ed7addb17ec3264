// Package prompts 依操作種類組出送往模型的多段式請求，並負責前置條件檢查。
package prompts

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"litigation-assistant/internal/models"
)

// PartKind 區分文字段落與內嵌附件
type PartKind int

const (
	PartText PartKind = iota
	PartInline
)

// Part 是請求中的一段內容
type Part struct {
	Kind     PartKind
	Text     string
	MIMEType string
	Base64   string
}

// TextPart 建立文字段落
func TextPart(s string) Part { return Part{Kind: PartText, Text: s} }

// InlinePart 建立內嵌的二進位附件
func InlinePart(mimeType, b64 string) Part {
	return Part{Kind: PartInline, MIMEType: mimeType, Base64: b64}
}

// ResponseShape 要求模型回傳物件陣列，每個物件必須具備 Fields 中的所有字串欄位
type ResponseShape struct {
	Fields []string
}

// Request 是一次模型呼叫的完整內容
type Request struct {
	Op    models.Operation
	Parts []Part
	Shape *ResponseShape
}

// Builder 持有已解析的各操作範本
type Builder struct {
	templates map[models.Operation]*template.Template
}

// NewBuilder 解析內建範本並套用覆寫。覆寫的鍵為操作名稱，不分大小寫。
func NewBuilder(overrides map[string]string) (*Builder, error) {
	sources := make(map[models.Operation]string, len(defaultTemplates))
	for op, src := range defaultTemplates {
		sources[op] = src
	}
	for key, src := range overrides {
		op, ok := lookupOperation(key)
		if !ok {
			return nil, fmt.Errorf("未知的 prompt 操作名稱: %s", key)
		}
		if strings.TrimSpace(src) != "" {
			sources[op] = src
		}
	}

	b := &Builder{templates: make(map[models.Operation]*template.Template, len(sources))}
	for op, src := range sources {
		tpl, err := template.New(string(op)).Option("missingkey=error").Parse(src)
		if err != nil {
			return nil, fmt.Errorf("無法解析 %s 的 prompt 範本: %w", op, err)
		}
		// 提早發現引用不存在欄位的覆寫範本
		if err := tpl.Execute(io.Discard, templateData{}); err != nil {
			return nil, fmt.Errorf("%s 的 prompt 範本無法套用: %w", op, err)
		}
		b.templates[op] = tpl
	}
	return b, nil
}

func lookupOperation(key string) (models.Operation, bool) {
	for _, op := range models.Operations {
		if strings.EqualFold(string(op), key) {
			return op, true
		}
	}
	return "", false
}

type templateData struct {
	SideName         string
	OpponentName     string
	PlaintiffName    string
	DefendantName    string
	Argument         string
	HasEvidence      bool
	PlaintiffSummary string
	DefendantSummary string
	OpponentSummary  string
	Issues           string
}

func (b *Builder) render(op models.Operation, data templateData) (string, error) {
	var sb strings.Builder
	if err := b.templates[op].Execute(&sb, data); err != nil {
		return "", fmt.Errorf("產生 %s 的 prompt 失敗: %w", op, err)
	}
	return strings.TrimSpace(sb.String()), nil
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

// evidenceParts 圖片以內嵌資料附加；PDF 以擷取出的文字附加
func evidenceParts(ev *models.Evidence) []Part {
	if ev.IsEmpty() {
		return nil
	}
	if ev.Kind == models.EvidenceImage {
		return []Part{InlinePart(ev.MIMEType, ev.Base64)}
	}
	return []Part{TextPart(fmt.Sprintf("【證據內容：%s】\n%s", ev.Name, ev.Text))}
}

// SummarizeInput 單方摘要所需的輸入
type SummarizeInput struct {
	SideName string
	Argument string
	Evidence *models.Evidence
}

// Summarize 論點與證據至少需有一項
func (b *Builder) Summarize(in SummarizeInput) (*Request, error) {
	op := models.OpSummarizeDocument
	if blank(in.Argument) && in.Evidence.IsEmpty() {
		return nil, models.NewPreconditionError(op)
	}
	text, err := b.render(op, templateData{
		SideName:    in.SideName,
		Argument:    strings.TrimSpace(in.Argument),
		HasEvidence: !in.Evidence.IsEmpty(),
	})
	if err != nil {
		return nil, err
	}
	parts := append([]Part{TextPart(text)}, evidenceParts(in.Evidence)...)
	return &Request{Op: op, Parts: parts}, nil
}

// EvaluateInput 證據評估所需的輸入
type EvaluateInput struct {
	SideName string
	Argument string
	Evidence *models.Evidence
}

// Evaluate 論點與證據缺一不可
func (b *Builder) Evaluate(in EvaluateInput) (*Request, error) {
	op := models.OpEvaluateEvidence
	if blank(in.Argument) || in.Evidence.IsEmpty() {
		return nil, models.NewPreconditionError(op)
	}
	text, err := b.render(op, templateData{
		SideName:    in.SideName,
		Argument:    strings.TrimSpace(in.Argument),
		HasEvidence: true,
	})
	if err != nil {
		return nil, err
	}
	parts := append([]Part{TextPart(text)}, evidenceParts(in.Evidence)...)
	return &Request{Op: op, Parts: parts}, nil
}

// CrossPartyInput 雙方整合摘要所需的輸入
type CrossPartyInput struct {
	PlaintiffName    string
	DefendantName    string
	PlaintiffSummary string
	DefendantSummary string
}

// CrossPartySummary 雙方摘要皆不得為空
func (b *Builder) CrossPartySummary(in CrossPartyInput) (*Request, error) {
	op := models.OpCrossPartySummary
	if blank(in.PlaintiffSummary) || blank(in.DefendantSummary) {
		return nil, models.NewPreconditionError(op)
	}
	text, err := b.render(op, templateData{
		PlaintiffName:    in.PlaintiffName,
		DefendantName:    in.DefendantName,
		PlaintiffSummary: in.PlaintiffSummary,
		DefendantSummary: in.DefendantSummary,
	})
	if err != nil {
		return nil, err
	}
	return &Request{Op: op, Parts: []Part{TextPart(text)}}, nil
}

// ComparisonInput 爭點比較表所需的輸入
type ComparisonInput struct {
	CrossPartyInput
	Issues string
}

// ComparisonTable 雙方摘要與爭點清單皆不得為空，並附上回應格式限制
func (b *Builder) ComparisonTable(in ComparisonInput) (*Request, error) {
	op := models.OpComparisonTable
	if blank(in.PlaintiffSummary) || blank(in.DefendantSummary) || blank(in.Issues) {
		return nil, models.NewPreconditionError(op)
	}
	text, err := b.render(op, templateData{
		PlaintiffName:    in.PlaintiffName,
		DefendantName:    in.DefendantName,
		PlaintiffSummary: in.PlaintiffSummary,
		DefendantSummary: in.DefendantSummary,
		Issues:           strings.TrimSpace(in.Issues),
	})
	if err != nil {
		return nil, err
	}
	shape := &ResponseShape{Fields: append([]string(nil), models.ComparisonFields...)}
	return &Request{Op: op, Parts: []Part{TextPart(text)}, Shape: shape}, nil
}

// CounterInput 反駁論點所需的輸入
type CounterInput struct {
	SideName        string
	OpponentName    string
	OpponentSummary string
}

// CounterArguments 對方摘要不得為空
func (b *Builder) CounterArguments(in CounterInput) (*Request, error) {
	op := models.OpCounterArguments
	if blank(in.OpponentSummary) {
		return nil, models.NewPreconditionError(op)
	}
	text, err := b.render(op, templateData{
		SideName:        in.SideName,
		OpponentName:    in.OpponentName,
		OpponentSummary: in.OpponentSummary,
	})
	if err != nil {
		return nil, err
	}
	return &Request{Op: op, Parts: []Part{TextPart(text)}}, nil
}

// StructureInput 論點結構化所需的輸入
type StructureInput struct {
	SideName string
	Argument string
	Issues   string
}

// StructureArguments 己方論點與爭點清單皆不得為空
func (b *Builder) StructureArguments(in StructureInput) (*Request, error) {
	op := models.OpStructureArguments
	if blank(in.Argument) || blank(in.Issues) {
		return nil, models.NewPreconditionError(op)
	}
	text, err := b.render(op, templateData{
		SideName: in.SideName,
		Argument: strings.TrimSpace(in.Argument),
		Issues:   strings.TrimSpace(in.Issues),
	})
	if err != nil {
		return nil, err
	}
	return &Request{Op: op, Parts: []Part{TextPart(text)}}, nil
}
