package prompts

import (
	"errors"
	"strings"
	"testing"

	"litigation-assistant/internal/models"
)

func newBuilder(t *testing.T) *Builder {
	t.Helper()
	b, err := NewBuilder(nil)
	if err != nil {
		t.Fatalf("NewBuilder returned error: %v", err)
	}
	return b
}

func imageEvidence() *models.Evidence {
	return &models.Evidence{Name: "receipt.png", MIMEType: "image/png", Kind: models.EvidenceImage, Base64: "aGVsbG8="}
}

func pdfEvidence() *models.Evidence {
	return &models.Evidence{Name: "contract.pdf", MIMEType: "application/pdf", Kind: models.EvidencePDF, Text: "第一條 付款"}
}

func assertPrecondition(t *testing.T, err error, op models.Operation) {
	t.Helper()
	var pe *models.PreconditionError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PreconditionError for %s, got %v", op, err)
	}
	if pe.Op != op {
		t.Errorf("PreconditionError.Op = %s, want %s", pe.Op, op)
	}
	if pe.Error() != models.PreconditionMessage(op) {
		t.Errorf("message = %q", pe.Error())
	}
}

func TestPreconditions(t *testing.T) {
	b := newBuilder(t)

	cases := []struct {
		name string
		op   models.Operation
		call func() (*Request, error)
	}{
		{"summarize without anything", models.OpSummarizeDocument, func() (*Request, error) {
			return b.Summarize(SummarizeInput{SideName: "原告", Argument: "   "})
		}},
		{"evaluate without evidence", models.OpEvaluateEvidence, func() (*Request, error) {
			return b.Evaluate(EvaluateInput{SideName: "原告", Argument: "違約"})
		}},
		{"evaluate without argument", models.OpEvaluateEvidence, func() (*Request, error) {
			return b.Evaluate(EvaluateInput{SideName: "原告", Evidence: imageEvidence()})
		}},
		{"cross-party missing defendant", models.OpCrossPartySummary, func() (*Request, error) {
			return b.CrossPartySummary(CrossPartyInput{PlaintiffSummary: "甲"})
		}},
		{"comparison missing issues", models.OpComparisonTable, func() (*Request, error) {
			return b.ComparisonTable(ComparisonInput{CrossPartyInput: CrossPartyInput{PlaintiffSummary: "甲", DefendantSummary: "乙"}})
		}},
		{"counter missing opponent summary", models.OpCounterArguments, func() (*Request, error) {
			return b.CounterArguments(CounterInput{SideName: "原告", OpponentName: "被告"})
		}},
		{"structure missing argument", models.OpStructureArguments, func() (*Request, error) {
			return b.StructureArguments(StructureInput{SideName: "原告", Issues: "爭點一"})
		}},
		{"structure missing issues", models.OpStructureArguments, func() (*Request, error) {
			return b.StructureArguments(StructureInput{SideName: "原告", Argument: "主張"})
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := tc.call()
			if req != nil {
				t.Errorf("request should not be built, got %+v", req)
			}
			assertPrecondition(t, err, tc.op)
		})
	}
}

func TestSummarizeArgumentOnly(t *testing.T) {
	req, err := newBuilder(t).Summarize(SummarizeInput{SideName: "原告", Argument: "breach occurred"})
	if err != nil {
		t.Fatalf("Summarize returned error: %v", err)
	}
	if len(req.Parts) != 1 || req.Parts[0].Kind != PartText {
		t.Fatalf("unexpected parts: %+v", req.Parts)
	}
	if !strings.Contains(req.Parts[0].Text, "breach occurred") {
		t.Errorf("argument not interpolated: %q", req.Parts[0].Text)
	}
	if req.Shape != nil {
		t.Error("summarize should not carry a response shape")
	}
}

func TestSummarizeImageEvidenceIsInline(t *testing.T) {
	req, err := newBuilder(t).Summarize(SummarizeInput{SideName: "被告", Evidence: imageEvidence()})
	if err != nil {
		t.Fatalf("Summarize returned error: %v", err)
	}
	if len(req.Parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(req.Parts))
	}
	att := req.Parts[1]
	if att.Kind != PartInline || att.MIMEType != "image/png" || att.Base64 != "aGVsbG8=" {
		t.Errorf("unexpected attachment: %+v", att)
	}
}

func TestEvaluatePDFEvidenceIsText(t *testing.T) {
	req, err := newBuilder(t).Evaluate(EvaluateInput{SideName: "原告", Argument: "被告未付款", Evidence: pdfEvidence()})
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if len(req.Parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(req.Parts))
	}
	att := req.Parts[1]
	if att.Kind != PartText || !strings.Contains(att.Text, "第一條 付款") {
		t.Errorf("PDF evidence should be a text part, got %+v", att)
	}
}

func TestComparisonTableCarriesShape(t *testing.T) {
	req, err := newBuilder(t).ComparisonTable(ComparisonInput{
		CrossPartyInput: CrossPartyInput{PlaintiffName: "原告", DefendantName: "被告", PlaintiffSummary: "甲", DefendantSummary: "乙"},
		Issues:          "一、是否違約",
	})
	if err != nil {
		t.Fatalf("ComparisonTable returned error: %v", err)
	}
	if req.Shape == nil {
		t.Fatal("comparison request must carry a response shape")
	}
	if strings.Join(req.Shape.Fields, ",") != "issue,plaintiff_argument,plaintiff_evidence,defendant_argument,defendant_evidence" {
		t.Errorf("unexpected fields: %v", req.Shape.Fields)
	}
	if !strings.Contains(req.Parts[0].Text, "一、是否違約") {
		t.Error("issue list not interpolated")
	}
}

func TestTemplatesArePure(t *testing.T) {
	b := newBuilder(t)
	in := CounterInput{SideName: "被告", OpponentName: "原告", OpponentSummary: "原告主張違約"}
	first, err := b.CounterArguments(in)
	if err != nil {
		t.Fatal(err)
	}
	second, _ := b.CounterArguments(in)
	if first.Parts[0].Text != second.Parts[0].Text {
		t.Error("same input produced different prompts")
	}
}

func TestOverrides(t *testing.T) {
	b, err := NewBuilder(map[string]string{"summarizedocument": "SUMMARY {{.SideName}}: {{.Argument}}"})
	if err != nil {
		t.Fatalf("NewBuilder returned error: %v", err)
	}
	req, err := b.Summarize(SummarizeInput{SideName: "原告", Argument: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if req.Parts[0].Text != "SUMMARY 原告: x" {
		t.Errorf("override not applied: %q", req.Parts[0].Text)
	}

	if _, err := NewBuilder(map[string]string{"unknownOp": "x"}); err == nil {
		t.Error("expected error for unknown operation key")
	}
	if _, err := NewBuilder(map[string]string{"counterArguments": "{{.Missing}}"}); err == nil {
		t.Error("expected error for template referencing unknown field")
	}
}
