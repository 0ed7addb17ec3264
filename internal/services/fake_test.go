package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"litigation-assistant/internal/models"
	"litigation-assistant/internal/prompts"
)

type reply struct {
	text string
	err  error
}

// fakeGenerator 依操作回傳預設的回應，並記錄呼叫次數
type fakeGenerator struct {
	mu      sync.Mutex
	replies map[models.Operation]reply
	calls   map[models.Operation]int
	last    map[models.Operation]*prompts.Request
	block   chan struct{}
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{
		replies: map[models.Operation]reply{
			models.OpSummarizeDocument:  {text: "摘要內容"},
			models.OpEvaluateEvidence:   {text: "評估內容"},
			models.OpCrossPartySummary:  {text: "整合摘要"},
			models.OpComparisonTable:    {text: `[{"issue":"是否違約","plaintiff_argument":"已違約","plaintiff_evidence":"契約","defendant_argument":"未違約","defendant_evidence":"匯款紀錄"}]`},
			models.OpCounterArguments:   {text: "反駁內容"},
			models.OpStructureArguments: {text: "結構內容"},
		},
		calls: make(map[models.Operation]int),
		last:  make(map[models.Operation]*prompts.Request),
	}
}

func (f *fakeGenerator) set(op models.Operation, text string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[op] = reply{text: text, err: err}
}

func (f *fakeGenerator) count(op models.Operation) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeGenerator) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeGenerator) Generate(ctx context.Context, req *prompts.Request) (string, error) {
	f.mu.Lock()
	f.calls[req.Op]++
	f.last[req.Op] = req
	r := f.replies[req.Op]
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return r.text, r.err
}

type memoryRecorder struct {
	mu     sync.Mutex
	events []models.DiagnosticEvent
	err    error
}

func (m *memoryRecorder) Record(_ context.Context, ev models.DiagnosticEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return m.err
}

var errTransport = errors.New("rpc error: code = Unavailable")

func newTestAnalyzer(t *testing.T, gen Generator, rec Recorder) *Analyzer {
	t.Helper()
	builder, err := prompts.NewBuilder(nil)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	d, err := NewDispatcher(gen, rec, nil)
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}
	a, err := NewAnalyzer(builder, d, nil)
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}
	return a
}
