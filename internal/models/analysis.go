package models

// Operation 表示六種分析操作之一
type Operation string

const (
	OpEvaluateEvidence   Operation = "evaluateEvidence"
	OpSummarizeDocument  Operation = "summarizeDocument"
	OpCrossPartySummary  Operation = "crossPartySummary"
	OpComparisonTable    Operation = "comparisonTable"
	OpCounterArguments   Operation = "counterArguments"
	OpStructureArguments Operation = "structureArguments"
)

// Operations 依固定順序列出所有操作
var Operations = []Operation{
	OpEvaluateEvidence,
	OpSummarizeDocument,
	OpCrossPartySummary,
	OpComparisonTable,
	OpCounterArguments,
	OpStructureArguments,
}

// ComparisonRow 是爭點比較表中的一列
type ComparisonRow struct {
	Issue             string `json:"issue"`
	PlaintiffArgument string `json:"plaintiff_argument"`
	PlaintiffEvidence string `json:"plaintiff_evidence"`
	DefendantArgument string `json:"defendant_argument"`
	DefendantEvidence string `json:"defendant_evidence"`
}

// ComparisonFields 是比較表每列必須具備的欄位，順序即輸出順序
var ComparisonFields = []string{
	"issue",
	"plaintiff_argument",
	"plaintiff_evidence",
	"defendant_argument",
	"defendant_evidence",
}

// Bundle 是一次整合分析的完整結果，四個欄位只會同時存在
type Bundle struct {
	Summary             string          `json:"summary"`
	Comparison          []ComparisonRow `json:"comparison"`
	CounterArguments    string          `json:"counter_arguments"`
	StructuredArguments string          `json:"structured_arguments"`
}
