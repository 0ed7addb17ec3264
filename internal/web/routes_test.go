package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"testing/iotest"
	"time"

	"litigation-assistant/internal/config"
	"litigation-assistant/internal/models"
	"litigation-assistant/internal/prompts"
	"litigation-assistant/internal/services"
)

type stubGenerator struct {
	mu    sync.Mutex
	fail  map[models.Operation]bool
	calls int
}

func (g *stubGenerator) Generate(_ context.Context, req *prompts.Request) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.fail[req.Op] {
		return "", errors.New("rpc error: code = Unavailable desc = upstream")
	}
	switch req.Op {
	case models.OpComparisonTable:
		return "```json\n[{\"issue\":\"是否違約\",\"plaintiff_argument\":\"a\",\"plaintiff_evidence\":\"b\",\"defendant_argument\":\"c\",\"defendant_evidence\":\"d\"}]\n```", nil
	case models.OpCrossPartySummary:
		return "整合摘要", nil
	}
	return string(req.Op) + " 結果", nil
}

type stubDiagnostics struct{ limit int }

func (s *stubDiagnostics) Recent(_ context.Context, limit int) ([]models.DiagnosticEvent, error) {
	s.limit = limit
	return []models.DiagnosticEvent{{ID: 1, SessionID: "s", Operation: models.OpEvaluateEvidence, Outcome: models.OutcomeSucceeded, CreatedAt: time.Now()}}, nil
}

type testServer struct {
	t       *testing.T
	handler http.Handler
	gen     *stubGenerator
}

func newTestServer(t *testing.T, diag *stubDiagnostics) *testServer {
	t.Helper()
	gen := &stubGenerator{fail: map[models.Operation]bool{}}
	builder, err := prompts.NewBuilder(nil)
	if err != nil {
		t.Fatal(err)
	}
	d, _ := services.NewDispatcher(gen, nil, nil)
	a, _ := services.NewAnalyzer(builder, d, nil)
	reg, _ := services.NewRegistry(a, nil)
	cfg := &config.Config{Server: config.ServerConfig{MaxUploadMB: 1}}
	var reader interface {
		Recent(context.Context, int) ([]models.DiagnosticEvent, error)
	}
	if diag != nil {
		reader = diag
	}
	return &testServer{t: t, handler: SetupRouter(cfg, reg, reader, nil), gen: gen}
}

func (ts *testServer) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	ts.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			ts.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) upload(path, filename, contentType string, data []byte) *httptest.ResponseRecorder {
	ts.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		ts.t.Fatal(err)
	}
	part.Write(data)
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) createSession() string {
	ts.t.Helper()
	rr := ts.do(http.MethodPost, "/api/sessions", map[string]string{"caseType": "civil", "userSide": "plaintiff"})
	if rr.Code != http.StatusCreated {
		ts.t.Fatalf("create session: %d %s", rr.Code, rr.Body.String())
	}
	var snap services.SessionSnapshot
	if err := json.Unmarshal(rr.Body.Bytes(), &snap); err != nil {
		ts.t.Fatal(err)
	}
	return snap.ID
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) (string, string) {
	t.Helper()
	var body struct {
		Error string `json:"error"`
		Kind  string `json:"kind"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body is not JSON: %s", rr.Body.String())
	}
	return body.Error, body.Kind
}

func TestFullFlowAndExport(t *testing.T) {
	ts := newTestServer(t, nil)
	id := ts.createSession()
	base := "/api/sessions/" + id

	for _, p := range []string{"plaintiff", "defendant"} {
		if rr := ts.do(http.MethodPut, base+"/parties/"+p+"/argument", map[string]string{"text": p + " 的論點"}); rr.Code != http.StatusOK {
			t.Fatalf("set argument: %d", rr.Code)
		}
		if rr := ts.do(http.MethodPost, base+"/parties/"+p+"/summarize", nil); rr.Code != http.StatusOK {
			t.Fatalf("summarize %s: %d %s", p, rr.Code, rr.Body.String())
		}
	}
	if rr := ts.do(http.MethodPut, base+"/issues", map[string]string{"text": "一、是否違約"}); rr.Code != http.StatusOK {
		t.Fatalf("set issues: %d", rr.Code)
	}
	rr := ts.do(http.MethodPost, base+"/synthesize", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("synthesize: %d %s", rr.Code, rr.Body.String())
	}
	var snap services.SessionSnapshot
	json.Unmarshal(rr.Body.Bytes(), &snap)
	if snap.Phase != services.PhaseSynthesisComplete || snap.Bundle == nil {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	rr = ts.do(http.MethodGet, base+"/export", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("export: %d", rr.Code)
	}
	_, params, err := mime.ParseMediaType(rr.Header().Get("Content-Disposition"))
	if err != nil || params["filename"] != services.ExportFileName {
		t.Errorf("Content-Disposition = %q", rr.Header().Get("Content-Disposition"))
	}
	if !strings.HasPrefix(rr.Body.String(), "【雙方論點摘要】\n整合摘要") {
		t.Errorf("export body = %q", rr.Body.String())
	}

	rr = ts.do(http.MethodGet, base+"/export/comparison.xlsx", nil)
	if rr.Code != http.StatusOK || rr.Body.Len() == 0 {
		t.Errorf("xlsx export: %d, %d bytes", rr.Code, rr.Body.Len())
	}
}

func TestSynthesisFailureMapsToBadGateway(t *testing.T) {
	ts := newTestServer(t, nil)
	id := ts.createSession()
	base := "/api/sessions/" + id
	for _, p := range []string{"plaintiff", "defendant"} {
		ts.do(http.MethodPut, base+"/parties/"+p+"/argument", map[string]string{"text": "論點"})
		ts.do(http.MethodPost, base+"/parties/"+p+"/summarize", nil)
	}
	ts.do(http.MethodPut, base+"/issues", map[string]string{"text": "爭點"})
	ts.gen.fail[models.OpCounterArguments] = true

	rr := ts.do(http.MethodPost, base+"/synthesize", nil)
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rr.Code)
	}
	msg, kind := decodeError(t, rr)
	if msg != models.FailureMessage(models.OpCounterArguments) || kind != "analysis_failed" {
		t.Errorf("error = %q (%s)", msg, kind)
	}
	if strings.Contains(rr.Body.String(), "rpc error") {
		t.Error("technical detail leaked to the client")
	}
	if rr := ts.do(http.MethodGet, base+"/export", nil); rr.Code != http.StatusNotFound {
		t.Errorf("export after failed synthesis = %d", rr.Code)
	}
}

func TestPreconditionAndUploadErrors(t *testing.T) {
	ts := newTestServer(t, nil)
	id := ts.createSession()
	base := "/api/sessions/" + id

	rr := ts.do(http.MethodPost, base+"/parties/defendant/evaluate", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("evaluate status = %d", rr.Code)
	}
	if msg, kind := decodeError(t, rr); kind != "precondition" || msg != models.PreconditionMessage(models.OpEvaluateEvidence) {
		t.Errorf("error = %q (%s)", msg, kind)
	}
	if ts.gen.calls != 0 {
		t.Error("precondition failure must not reach the model")
	}

	rr = ts.upload(base+"/parties/plaintiff/evidence", "notes.docx", "application/msword", []byte("x"))
	if rr.Code != http.StatusUnsupportedMediaType {
		t.Errorf("docx upload status = %d", rr.Code)
	}
	rr = ts.upload(base+"/parties/plaintiff/evidence", "photo.png", "image/png", []byte("\x89PNG"))
	if rr.Code != http.StatusOK {
		t.Errorf("png upload status = %d %s", rr.Code, rr.Body.String())
	}
	rr = ts.upload(base+"/parties/plaintiff/argument-file", "a.pdf", "application/pdf", []byte("%PDF"))
	if rr.Code != http.StatusUnsupportedMediaType {
		t.Errorf("pdf argument drop status = %d", rr.Code)
	}
	rr = ts.upload(base+"/parties/plaintiff/argument-file", "a.txt", "text/plain; charset=utf-8", []byte("全文"))
	if rr.Code != http.StatusOK {
		t.Errorf("txt argument drop status = %d", rr.Code)
	}
	big := bytes.Repeat([]byte("a"), 2<<20)
	rr = ts.upload(base+"/parties/plaintiff/evidence", "big.png", "image/png", big)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("oversized upload status = %d", rr.Code)
	}
}

func TestNotFound(t *testing.T) {
	ts := newTestServer(t, nil)
	if rr := ts.do(http.MethodGet, "/api/sessions/missing", nil); rr.Code != http.StatusNotFound {
		t.Errorf("missing session = %d", rr.Code)
	}
	id := ts.createSession()
	if rr := ts.do(http.MethodPost, "/api/sessions/"+id+"/parties/judge/summarize", nil); rr.Code != http.StatusNotFound {
		t.Errorf("unknown party = %d", rr.Code)
	}
	if rr := ts.do(http.MethodDelete, "/api/sessions/"+id, nil); rr.Code != http.StatusNoContent {
		t.Errorf("delete = %d", rr.Code)
	}
	if rr := ts.do(http.MethodGet, "/api/sessions/"+id, nil); rr.Code != http.StatusNotFound {
		t.Errorf("deleted session = %d", rr.Code)
	}
}

func TestCreateSessionValidation(t *testing.T) {
	ts := newTestServer(t, nil)
	if rr := ts.do(http.MethodPost, "/api/sessions", map[string]string{"caseType": "maritime"}); rr.Code != http.StatusBadRequest {
		t.Errorf("bad case type = %d", rr.Code)
	}
	rr := ts.do(http.MethodPost, "/api/sessions", nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("empty body = %d", rr.Code)
	}
	var snap services.SessionSnapshot
	json.Unmarshal(rr.Body.Bytes(), &snap)
	if snap.CaseType != models.CaseCivil || snap.UserSide != models.Plaintiff {
		t.Errorf("defaults = %s/%s", snap.CaseType, snap.UserSide)
	}
}

func TestDiagnosticsEndpoint(t *testing.T) {
	if rr := newTestServer(t, nil).do(http.MethodGet, "/api/diagnostics", nil); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("disabled diagnostics = %d", rr.Code)
	}
	diag := &stubDiagnostics{}
	ts := newTestServer(t, diag)
	rr := ts.do(http.MethodGet, "/api/diagnostics?limit=9999", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("diagnostics = %d", rr.Code)
	}
	if diag.limit != 500 {
		t.Errorf("limit = %d, want clamp to 500", diag.limit)
	}
	if rr := ts.do(http.MethodGet, "/api/diagnostics?limit=abc", nil); rr.Code != http.StatusBadRequest {
		t.Errorf("bad limit = %d", rr.Code)
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.createSession()
	rr := ts.do(http.MethodGet, "/healthz", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"sessions":1`) {
		t.Errorf("healthz = %d %s", rr.Code, rr.Body.String())
	}
}

func TestOversizedJSONBodyRejected(t *testing.T) {
	ts := newTestServer(t, nil)
	id := ts.createSession()
	base := "/api/sessions/" + id

	huge := strings.Repeat("論", 1<<19)
	rr := ts.do(http.MethodPut, base+"/parties/plaintiff/argument", map[string]string{"text": huge})
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversized argument status = %d", rr.Code)
	}
	if _, kind := decodeError(t, rr); kind != "too_large" {
		t.Errorf("kind = %q", kind)
	}
	if rr := ts.do(http.MethodPut, base+"/issues", map[string]string{"text": huge}); rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("oversized issues status = %d", rr.Code)
	}

	rr = ts.do(http.MethodGet, base, nil)
	var snap services.SessionSnapshot
	json.Unmarshal(rr.Body.Bytes(), &snap)
	if snap.Issues != "" || snap.Parties[0].Argument != "" {
		t.Error("rejected bodies must not change the session")
	}
}

// 檔案內容一經讀取就會失敗；類型不符時應直接拒絕而不讀取內容
func TestUnsupportedUploadRejectedBeforeReadingFile(t *testing.T) {
	ts := newTestServer(t, nil)
	id := ts.createSession()

	boundary := "litigation-boundary"
	head := "--" + boundary + "\r\n" +
		`Content-Disposition: form-data; name="file"; filename="notes.docx"` + "\r\n" +
		"Content-Type: application/vnd.openxmlformats-officedocument.wordprocessingml.document\r\n\r\n" +
		"PK"
	body := io.MultiReader(strings.NewReader(head), iotest.ErrReader(errors.New("file body must not be read")))
	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/parties/plaintiff/evidence", body)
	req.Header.Set("Content-Type", "multipart/form-data; boundary="+boundary)
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
	if _, kind := decodeError(t, rr); kind != "unsupported_media" {
		t.Errorf("kind = %q", kind)
	}
}
