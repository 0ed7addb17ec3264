package evidence

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PageSource 提供逐頁的文字項目，頁碼從 1 開始
type PageSource interface {
	NumPage() int
	PageItems(page int) ([]string, error)
}

// ExtractPDFText 抽出 PDF 全部頁面的純文字。
// 同一頁的文字項目以單一空白連接，頁與頁之間以換行連接。
func ExtractPDFText(data []byte) (text string, err error) {
	// ledongthuc/pdf 遇到損壞的檔案可能 panic
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("解析 PDF 時發生錯誤: %v", r)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("無法開啟 PDF: %w", err)
	}
	return JoinPages(pdfPages{reader: reader})
}

// JoinPages 依頁碼遞增順序組合各頁文字
func JoinPages(src PageSource) (string, error) {
	n := src.NumPage()
	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		items, err := src.PageItems(i)
		if err != nil {
			return "", fmt.Errorf("讀取第 %d 頁失敗: %w", i, err)
		}
		var nonEmpty []string
		for _, item := range items {
			if item != "" {
				nonEmpty = append(nonEmpty, item)
			}
		}
		pages = append(pages, strings.Join(nonEmpty, " "))
	}
	return strings.Join(pages, "\n"), nil
}

// pdfPages 以 ledongthuc/pdf 的文字列作為文字項目
type pdfPages struct {
	reader *pdf.Reader
}

func (p pdfPages) NumPage() int { return p.reader.NumPage() }

func (p pdfPages) PageItems(n int) ([]string, error) {
	page := p.reader.Page(n)
	if page.V.IsNull() {
		return nil, nil
	}
	rows, err := page.GetTextByRow()
	if err != nil {
		return nil, err
	}
	items := make([]string, 0, len(rows))
	for _, row := range rows {
		var sb strings.Builder
		for _, t := range row.Content {
			sb.WriteString(t.S)
		}
		items = append(items, sb.String())
	}
	return items, nil
}
