// Package evidence 將上傳的證據與論點檔案轉換為可放入 prompt 的內容。
package evidence

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"strings"

	"litigation-assistant/internal/models"
)

const pdfMediaType = "application/pdf"

// MediaType 去除參數並轉為小寫，例如 "Text/Plain; charset=utf-8" 會得到 "text/plain"
func MediaType(declared string) string {
	mt, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(declared))
	}
	return mt
}

// IsEvidenceType 回報媒體類型是否為可接受的證據 (image/* 或 application/pdf)
func IsEvidenceType(declared string) bool {
	mt := MediaType(declared)
	return strings.HasPrefix(mt, "image/") || mt == pdfMediaType
}

// Load 依宣告的媒體類型載入證據。類型檢查先於任何讀取。
func Load(name string, declaredType string, r io.Reader) (*models.Evidence, error) {
	mt := MediaType(declaredType)
	switch {
	case strings.HasPrefix(mt, "image/"):
		return loadImage(name, mt, r)
	case mt == pdfMediaType:
		return loadPDF(name, r)
	}
	return nil, &models.UnsupportedMediaError{MIMEType: mt}
}

func loadImage(name, mt string, r io.Reader) (*models.Evidence, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &models.ReadError{Name: name, Err: err}
	}
	if len(data) == 0 {
		return nil, &models.ReadError{Name: name, Err: fmt.Errorf("檔案內容為空")}
	}
	return &models.Evidence{
		Name:     name,
		MIMEType: mt,
		Kind:     models.EvidenceImage,
		Size:     int64(len(data)),
		Base64:   base64.StdEncoding.EncodeToString(data),
	}, nil
}

func loadPDF(name string, r io.Reader) (*models.Evidence, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &models.ReadError{Name: name, Err: err}
	}
	text, err := ExtractPDFText(data)
	if err != nil {
		return nil, &models.ReadError{Name: name, Err: err}
	}
	// 掃描檔等沒有文字層的 PDF 無法作為證據內容
	if strings.TrimSpace(text) == "" {
		return nil, &models.ReadError{Name: name, Err: fmt.Errorf("PDF 中沒有可擷取的文字")}
	}
	return &models.Evidence{
		Name:     name,
		MIMEType: pdfMediaType,
		Kind:     models.EvidencePDF,
		Size:     int64(len(data)),
		Text:     text,
	}, nil
}

// LoadArgumentText 讀取拖放到論點欄位的純文字檔，回傳完整內容。
// 非 text/plain 的檔案回傳 UnsupportedMediaError，且不讀取內容。
func LoadArgumentText(name string, declaredType string, r io.Reader) (string, error) {
	mt := MediaType(declaredType)
	if mt != "text/plain" {
		return "", &models.UnsupportedMediaError{MIMEType: mt, TextOnly: true}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", &models.ReadError{Name: name, Err: err}
	}
	return string(data), nil
}
