package models

// EvidenceKind 區分證據的載入方式
type EvidenceKind string

const (
	EvidenceImage EvidenceKind = "image"
	EvidencePDF   EvidenceKind = "pdf"
)

// Evidence 是一方目前持有的單一證據檔案，已轉換為可放入 prompt 的形式。
// 圖片保留 base64 內容；PDF 保留逐頁抽出的純文字。
type Evidence struct {
	Name     string       `json:"name"`
	MIMEType string       `json:"mime_type"`
	Kind     EvidenceKind `json:"kind"`
	Size     int64        `json:"size"`
	Base64   string       `json:"-"`
	Text     string       `json:"-"`
}

// IsEmpty 回報證據是否不存在或沒有可用內容
func (e *Evidence) IsEmpty() bool {
	if e == nil {
		return true
	}
	switch e.Kind {
	case EvidenceImage:
		return e.Base64 == ""
	case EvidencePDF:
		return e.Text == ""
	}
	return true
}
