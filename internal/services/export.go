package services

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"litigation-assistant/internal/models"
)

// 匯出檔案的固定名稱
const (
	ExportFileName     = "訴訟分析報告.txt"
	ComparisonFileName = "爭點比較表.xlsx"
	comparisonSheet    = "爭點比較表"
)

// ExportText 依固定順序串接整合結果：整合摘要、爭點比較表、反駁論點、論點結構。
// 沒有內容的段落整段省略。
func ExportText(b *models.Bundle, caseType models.CaseType) string {
	if b == nil {
		return ""
	}
	type section struct {
		header string
		body   string
	}
	sections := []section{
		{"【雙方論點摘要】", strings.TrimSpace(b.Summary)},
		{"【爭點比較表】", formatComparison(b.Comparison, caseType)},
		{"【反駁論點】", strings.TrimSpace(b.CounterArguments)},
		{"【論點結構】", strings.TrimSpace(b.StructuredArguments)},
	}
	var out []string
	for _, sec := range sections {
		if sec.body == "" {
			continue
		}
		out = append(out, sec.header+"\n"+sec.body)
	}
	return strings.Join(out, "\n\n")
}

func formatComparison(rows []models.ComparisonRow, caseType models.CaseType) string {
	if len(rows) == 0 {
		return ""
	}
	pl, df := caseType.Label(models.Plaintiff), caseType.Label(models.Defendant)
	var sb strings.Builder
	for i, row := range rows {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%d. %s\n", i+1, row.Issue)
		fmt.Fprintf(&sb, "   %s論點：%s\n", pl, row.PlaintiffArgument)
		fmt.Fprintf(&sb, "   %s證據：%s\n", pl, row.PlaintiffEvidence)
		fmt.Fprintf(&sb, "   %s論點：%s\n", df, row.DefendantArgument)
		fmt.Fprintf(&sb, "   %s證據：%s", df, row.DefendantEvidence)
	}
	return sb.String()
}

// ComparisonWorkbook 將爭點比較表輸出為 Excel 活頁簿，呼叫端負責 Close
func ComparisonWorkbook(rows []models.ComparisonRow, caseType models.CaseType) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", comparisonSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("無法設定工作表名稱: %w", err)
	}
	pl, df := caseType.Label(models.Plaintiff), caseType.Label(models.Defendant)
	header := []interface{}{"爭點", pl + "論點", pl + "證據", df + "論點", df + "證據"}
	if err := f.SetSheetRow(comparisonSheet, "A1", &header); err != nil {
		f.Close()
		return nil, fmt.Errorf("寫入標題列失敗: %w", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		values := []interface{}{row.Issue, row.PlaintiffArgument, row.PlaintiffEvidence, row.DefendantArgument, row.DefendantEvidence}
		if err := f.SetSheetRow(comparisonSheet, cell, &values); err != nil {
			f.Close()
			return nil, fmt.Errorf("寫入第 %d 列失敗: %w", i+1, err)
		}
	}
	if err := f.SetColWidth(comparisonSheet, "A", "E", 40); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}
