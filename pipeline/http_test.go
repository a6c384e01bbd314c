package pipeline

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func postJSON(t *testing.T, srv *httptest.Server, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(srv.URL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatal(err)
	}
}

func TestHTTPHealthz(t *testing.T) {
	p := newTestPipeline(t, factsheetCompleter())
	srv := httptest.NewServer(p.Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}
	var body struct {
		Status        string `json:"status"`
		IndexedChunks int    `json:"indexed_chunks"`
	}
	decodeBody(t, resp, &body)
	if body.Status != "ok" || body.IndexedChunks != 0 {
		t.Fatalf("unexpected healthz body: %+v", body)
	}
}

func TestHTTPRequestID(t *testing.T) {
	p := newTestPipeline(t, factsheetCompleter())
	srv := httptest.NewServer(p.Routes())
	defer srv.Close()

	// Generated when absent.
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("response missing generated X-Request-ID")
	}

	// Echoed when supplied.
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("X-Request-ID", "req-42")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("X-Request-ID"); got != "req-42" {
		t.Fatalf("X-Request-ID = %q, want req-42", got)
	}
}

func TestHTTPQuery(t *testing.T) {
	p := newTestPipeline(t, factsheetCompleter())
	srv := httptest.NewServer(p.Routes())
	defer srv.Close()

	path := writeDoc(t, "spy.txt", spySheet)
	resp := postJSON(t, srv, "/v1/query", map[string]string{
		"file": path, "source": "spy.pdf", "q": "What is the expense ratio?",
	})
	if resp.StatusCode != 200 {
		t.Fatalf("query status = %d", resp.StatusCode)
	}
	var body struct {
		AnswerMD string   `json:"answer_md"`
		Metrics  *Metrics `json:"metrics"`
		IndexOK  bool     `json:"index_ok"`
	}
	decodeBody(t, resp, &body)
	if !strings.Contains(body.AnswerMD, "0.03%") {
		t.Fatalf("answer missing ratio: %q", body.AnswerMD)
	}
	if body.Metrics == nil || body.Metrics.ExpenseRatio != "0.03%" {
		t.Fatalf("unexpected metrics: %+v", body.Metrics)
	}
	if !body.IndexOK {
		t.Fatal("index_ok = false")
	}
}

func TestHTTPQueryValidation(t *testing.T) {
	p := newTestPipeline(t, factsheetCompleter())
	srv := httptest.NewServer(p.Routes())
	defer srv.Close()

	// Missing question.
	resp := postJSON(t, srv, "/v1/query", map[string]string{"source": "spy.pdf"})
	if resp.StatusCode != 400 {
		t.Fatalf("missing q: status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()

	// Missing source and file.
	resp = postJSON(t, srv, "/v1/query", map[string]string{"q": "anything"})
	if resp.StatusCode != 400 {
		t.Fatalf("missing source: status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()

	// Body that is not JSON.
	r, err := http.Post(srv.URL+"/v1/query", "application/json", strings.NewReader("not json"))
	if err != nil {
		t.Fatal(err)
	}
	if r.StatusCode != 400 {
		t.Fatalf("bad body: status = %d, want 400", r.StatusCode)
	}
	r.Body.Close()
}

func TestHTTPMetrics(t *testing.T) {
	p := newTestPipeline(t, factsheetCompleter())
	srv := httptest.NewServer(p.Routes())
	defer srv.Close()

	path := writeDoc(t, "spy.txt", spySheet)
	resp := postJSON(t, srv, "/v1/metrics", map[string]string{"file": path, "source": "spy.pdf"})
	if resp.StatusCode != 200 {
		t.Fatalf("metrics status = %d", resp.StatusCode)
	}
	var m Metrics
	decodeBody(t, resp, &m)
	if m.ExpenseRatio != "0.03%" || m.Benchmark != "S&P 500 Index" {
		t.Fatalf("unexpected metrics: %+v", m)
	}
}

func TestHTTPCompare(t *testing.T) {
	p := newTestPipeline(t, factsheetCompleter())
	srv := httptest.NewServer(p.Routes())
	defer srv.Close()

	pathA := writeDoc(t, "spy.txt", spySheet)
	pathB := writeDoc(t, "voo.txt", vooSheet)
	resp := postJSON(t, srv, "/v1/compare", map[string]string{
		"file_a": pathA, "source_a": "spy.pdf",
		"file_b": pathB, "source_b": "voo.pdf",
	})
	if resp.StatusCode != 200 {
		t.Fatalf("compare status = %d", resp.StatusCode)
	}
	var res CompareResult
	decodeBody(t, resp, &res)
	if !strings.Contains(res.SummaryMD, "0.03% vs 0.20%") {
		t.Fatalf("summary missing diff: %q", res.SummaryMD)
	}

	resp = postJSON(t, srv, "/v1/compare", map[string]string{"source_a": "only-one.pdf"})
	if resp.StatusCode != 400 {
		t.Fatalf("missing source_b: status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestHTTPDropIndex(t *testing.T) {
	p := newTestPipeline(t, factsheetCompleter())
	srv := httptest.NewServer(p.Routes())
	defer srv.Close()

	path := writeDoc(t, "spy.txt", spySheet)
	resp := postJSON(t, srv, "/v1/query", map[string]string{
		"file": path, "source": "spy.pdf", "q": "expense ratio?",
	})
	resp.Body.Close()

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/v1/index", nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ { // dropping twice is fine
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != 200 {
			t.Fatalf("drop status = %d", resp.StatusCode)
		}
		resp.Body.Close()
	}

	resp, err = http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	var body struct {
		IndexedChunks int `json:"indexed_chunks"`
	}
	decodeBody(t, resp, &body)
	if body.IndexedChunks != 0 {
		t.Fatalf("index not empty after drop: %d chunks", body.IndexedChunks)
	}
}
