package gemini

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"litigation-assistant/internal/prompts"
)

const defaultModelName = "gemini-2.5-flash"

// Client 結構用於與 Gemini API 互動
type Client struct {
	sdk       *genai.Client
	modelName string
	log       *zap.Logger
}

// NewClient 建立一個 Gemini 客戶端實例，API Key 由呼叫端注入
func NewClient(ctx context.Context, apiKey string, modelName string, log *zap.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API Key 不得為空")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if modelName == "" {
		modelName = defaultModelName
		log.Warn("[Gemini Client] 未提供模型名稱，使用預設值", zap.String("model", modelName))
	}

	sdk, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("無法建立 Gemini GenAI SDK 客戶端: %w", err)
	}
	log.Info("[Gemini Client] 模型初始化成功", zap.String("model", modelName))
	return &Client{sdk: sdk, modelName: modelName, log: log}, nil
}

// Close 釋放 SDK 連線
func (c *Client) Close() error {
	return c.sdk.Close()
}

// Generate 送出一次請求並回傳模型的文字回應。每次呼叫建立獨立的模型設定，
// 因此不同操作可同時使用不同的回應格式限制。
func (c *Client) Generate(ctx context.Context, req *prompts.Request) (string, error) {
	model := c.sdk.GenerativeModel(c.modelName)
	if req.Shape != nil {
		model.ResponseMIMEType = "application/json"
		model.ResponseSchema = toSchema(req.Shape)
	}

	parts, err := toParts(req.Parts)
	if err != nil {
		return "", err
	}
	c.log.Debug("[Gemini Client] 正在向 Gemini API 發送請求",
		zap.String("operation", string(req.Op)),
		zap.Int("parts", len(parts)),
		zap.String("prompt_head", firstNChars(firstText(req.Parts), 100)),
	)

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("Gemini API GenerateContent 失敗: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("Gemini API 回應無效或為空 (nil response or no candidates)")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		if candidate.FinishReason != genai.FinishReasonStop && candidate.FinishReason != genai.FinishReasonUnspecified {
			for _, rating := range candidate.SafetyRatings {
				c.log.Warn("[Gemini Client] 安全評級",
					zap.String("category", rating.Category.String()),
					zap.String("probability", rating.Probability.String()),
				)
			}
			return "", fmt.Errorf("Gemini API 回應內容被阻止，原因: %s", candidate.FinishReason.String())
		}
		return "", fmt.Errorf("Gemini API 回應無內容 (FinishReason: %s)", candidate.FinishReason.String())
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		} else {
			c.log.Warn("[Gemini Client] 收到非預期的 Part 類型", zap.String("type", fmt.Sprintf("%T", part)))
		}
	}
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("Gemini API 回傳的文字內容為空")
	}
	c.log.Debug("[Gemini Client] 收到 API 回應",
		zap.String("operation", string(req.Op)),
		zap.Int("length", len(text)),
	)
	return text, nil
}

// toParts 將請求段落轉為 SDK 的 Part；內嵌附件解碼為位元組
func toParts(parts []prompts.Part) ([]genai.Part, error) {
	out := make([]genai.Part, 0, len(parts))
	for i, p := range parts {
		switch p.Kind {
		case prompts.PartText:
			out = append(out, genai.Text(p.Text))
		case prompts.PartInline:
			data, err := base64.StdEncoding.DecodeString(p.Base64)
			if err != nil {
				return nil, fmt.Errorf("第 %d 段附件無法解碼: %w", i, err)
			}
			out = append(out, genai.Blob{MIMEType: p.MIMEType, Data: data})
		default:
			return nil, fmt.Errorf("第 %d 段的類型未知: %d", i, p.Kind)
		}
	}
	return out, nil
}

// toSchema 物件陣列，每個欄位皆為必填字串
func toSchema(shape *prompts.ResponseShape) *genai.Schema {
	props := make(map[string]*genai.Schema, len(shape.Fields))
	for _, f := range shape.Fields {
		props[f] = &genai.Schema{Type: genai.TypeString}
	}
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type:       genai.TypeObject,
			Properties: props,
			Required:   append([]string(nil), shape.Fields...),
		},
	}
}

func firstText(parts []prompts.Part) string {
	for _, p := range parts {
		if p.Kind == prompts.PartText {
			return p.Text
		}
	}
	return ""
}

// firstNChars 以 rune 為單位截斷，避免切在多位元組字元中間
func firstNChars(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		return string(runes[:n])
	}
	return s
}
