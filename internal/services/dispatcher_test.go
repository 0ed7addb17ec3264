package services

import (
	"context"
	"errors"
	"testing"

	"litigation-assistant/internal/models"
	"litigation-assistant/internal/prompts"
)

func textRequest(op models.Operation) *prompts.Request {
	return &prompts.Request{Op: op, Parts: []prompts.Part{prompts.TextPart("prompt")}}
}

func rowsRequest() *prompts.Request {
	req := textRequest(models.OpComparisonTable)
	req.Shape = &prompts.ResponseShape{Fields: models.ComparisonFields}
	return req
}

func TestNewDispatcherRequiresGenerator(t *testing.T) {
	if _, err := NewDispatcher(nil, nil, nil); err == nil {
		t.Error("expected error for nil generator")
	}
}

func TestDispatcherTextFailureIsFixedMessage(t *testing.T) {
	gen := newFakeGenerator()
	gen.set(models.OpCounterArguments, "", errTransport)
	rec := &memoryRecorder{}
	d, _ := NewDispatcher(gen, rec, nil)

	ctx := withScope(context.Background(), "session-1", models.Defendant)
	_, err := d.Text(ctx, textRequest(models.OpCounterArguments))

	var ae *models.AnalysisFailedError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AnalysisFailedError, got %v", err)
	}
	if err.Error() != models.FailureMessage(models.OpCounterArguments) {
		t.Errorf("user message = %q", err.Error())
	}
	if !errors.Is(err, errTransport) {
		t.Error("technical cause should remain reachable through Unwrap")
	}
	if gen.count(models.OpCounterArguments) != 1 {
		t.Errorf("expected exactly one call, got %d", gen.count(models.OpCounterArguments))
	}
	if len(rec.events) != 1 {
		t.Fatalf("expected one diagnostic event, got %d", len(rec.events))
	}
	ev := rec.events[0]
	if ev.Outcome != models.OutcomeFailed || ev.SessionID != "session-1" || ev.Party.String != "defendant" {
		t.Errorf("unexpected event: %+v", ev)
	}
	if ev.ErrorKind.String != "analysis_failed" || ev.Detail.String != errTransport.Error() {
		t.Errorf("unexpected error details: %+v", ev)
	}
}

func TestDispatcherRecorderFailureDoesNotFailCall(t *testing.T) {
	gen := newFakeGenerator()
	d, _ := NewDispatcher(gen, &memoryRecorder{err: errors.New("db down")}, nil)
	got, err := d.Text(context.Background(), textRequest(models.OpSummarizeDocument))
	if err != nil {
		t.Fatalf("Text returned error: %v", err)
	}
	if got != "摘要內容" {
		t.Errorf("Text = %q", got)
	}
}

func TestDispatcherRows(t *testing.T) {
	full := `{"issue":"a","plaintiff_argument":"b","plaintiff_evidence":"c","defendant_argument":"d","defendant_evidence":"e"}`
	cases := []struct {
		name      string
		raw       string
		wantRows  int
		malformed bool
	}{
		{"empty array", `[]`, 0, false},
		{"one row", `[` + full + `]`, 1, false},
		{"fenced", "```json\n[" + full + "," + full + "]\n```", 2, false},
		{"empty strings allowed", `[{"issue":"","plaintiff_argument":"","plaintiff_evidence":"","defendant_argument":"","defendant_evidence":""}]`, 1, false},
		{"not json", `以下是比較表`, 0, true},
		{"object instead of array", full, 0, true},
		{"null", `null`, 0, true},
		{"missing field", `[{"issue":"a","plaintiff_argument":"b","plaintiff_evidence":"c","defendant_argument":"d"}]`, 0, true},
		{"null field", `[{"issue":null,"plaintiff_argument":"b","plaintiff_evidence":"c","defendant_argument":"d","defendant_evidence":"e"}]`, 0, true},
		{"number field", `[{"issue":1,"plaintiff_argument":"b","plaintiff_evidence":"c","defendant_argument":"d","defendant_evidence":"e"}]`, 0, true},
		{"null element", `[` + full + `,null]`, 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gen := newFakeGenerator()
			gen.set(models.OpComparisonTable, tc.raw, nil)
			d, _ := NewDispatcher(gen, nil, nil)
			rows, err := d.Rows(context.Background(), rowsRequest())
			if tc.malformed {
				var me *models.MalformedResponseError
				if !errors.As(err, &me) {
					t.Fatalf("expected MalformedResponseError, got %v (rows %v)", err, rows)
				}
				if err.Error() != models.FailureMessage(models.OpComparisonTable) {
					t.Errorf("user message = %q", err.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("Rows returned error: %v", err)
			}
			if rows == nil || len(rows) != tc.wantRows {
				t.Errorf("got %d rows (nil=%v), want %d", len(rows), rows == nil, tc.wantRows)
			}
		})
	}
}

func TestDispatcherRowsMapsFields(t *testing.T) {
	gen := newFakeGenerator()
	d, _ := NewDispatcher(gen, nil, nil)
	rows, err := d.Rows(context.Background(), rowsRequest())
	if err != nil {
		t.Fatalf("Rows returned error: %v", err)
	}
	want := models.ComparisonRow{Issue: "是否違約", PlaintiffArgument: "已違約", PlaintiffEvidence: "契約", DefendantArgument: "未違約", DefendantEvidence: "匯款紀錄"}
	if len(rows) != 1 || rows[0] != want {
		t.Errorf("rows = %+v", rows)
	}
}

func TestDispatcherRowsRequiresShape(t *testing.T) {
	gen := newFakeGenerator()
	d, _ := NewDispatcher(gen, nil, nil)
	if _, err := d.Rows(context.Background(), textRequest(models.OpComparisonTable)); err == nil {
		t.Error("expected error when shape is missing")
	}
	if gen.total() != 0 {
		t.Error("no request should be sent without a shape")
	}
}

func TestStripCodeFence(t *testing.T) {
	cases := map[string]string{
		"```json\n[]\n```": "[]",
		"```\n[1]\n```":    "[1]",
		"  []  ":           "[]",
		"\uFEFF[]":          "[]",
	}
	for in, want := range cases {
		if got := stripCodeFence(in); got != want {
			t.Errorf("stripCodeFence(%q) = %q, want %q", in, got, want)
		}
	}
}
