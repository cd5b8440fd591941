package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/techtrends/pkg/adapters/memory"
	"github.com/aretw0/techtrends/pkg/domain"
	"github.com/aretw0/techtrends/pkg/runs"
)

// fakeWorkflow emits progress and finishes with a fixed outcome.
type fakeWorkflow struct {
	mu     sync.Mutex
	params domain.Params
	state  domain.WorkflowState
	err    error
	gate   chan struct{}
}

func (f *fakeWorkflow) Setup(p domain.Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.params = p
	f.state = domain.NewState("run-1", p)
	return nil
}

func (f *fakeWorkflow) Run(ctx context.Context, progress domain.ProgressFunc) (string, error) {
	if f.gate != nil {
		<-f.gate
	}
	progress("Starting workflow...")

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		f.state.Status = domain.StatusError
		f.state.Error = f.err.Error()
		return "", &domain.RunError{RunID: f.state.RunID, Message: f.err.Error()}
	}
	f.state.Status = domain.StatusCompleted
	f.state.OutputPath = "output/report.md"
	progress("Workflow completed: output/report.md")
	return f.state.OutputPath, nil
}

func (f *fakeWorkflow) State() (domain.WorkflowState, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, f.state.RunID != ""
}

func testConfig(wf *fakeWorkflow) Config {
	return Config{
		NewWorkflow: func() Workflow { return wf },
		Defaults: domain.Params{
			Format:   domain.FormatMarkdown,
			Language: domain.LanguageKorean,
			Depth:    domain.DepthStandard,
		},
		Graph: domain.Graph{
			Nodes: []domain.GraphNode{{ID: "start", Kind: domain.NodeStart}, {ID: "plan", Kind: domain.NodeStage}},
			Edges: []domain.GraphEdge{{From: "start", To: "plan"}},
		},
		Stages:  []domain.StageName{domain.StagePlan},
		Version: "1.2.3\n",
	}
}

func postReport(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/reports", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestCreateReport_Sync(t *testing.T) {
	wf := &fakeWorkflow{}
	h := NewHandler(testConfig(wf))

	w := postReport(t, h, `{"fields":["AI","energy"],"language":"en"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp ReportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "run-1", resp.RunID)
	assert.Equal(t, domain.StatusCompleted, resp.Status)
	assert.Equal(t, "output/report.md", resp.OutputPath)

	assert.Equal(t, []domain.Tag{domain.TagAI, domain.TagEnergy}, wf.params.Fields)
	assert.Equal(t, domain.LanguageEnglish, wf.params.Language)
	assert.Equal(t, domain.FormatMarkdown, wf.params.Format, "defaults fill missing values")
}

func TestCreateReport_Validation(t *testing.T) {
	h := NewHandler(testConfig(&fakeWorkflow{}))

	tests := map[string]string{
		"malformed":     `{"fields":`,
		"unknown field": `{"fields":["quantum"]}`,
		"no fields":     `{"fields":[]}`,
		"bad format":    `{"fields":["ai"],"format":"xml"}`,
		"bad depth":     `{"fields":["ai"],"depth":"shallow"}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			w := postReport(t, h, body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestCreateReport_RunError(t *testing.T) {
	wf := &fakeWorkflow{err: errors.New("plan stage: generation: quota exceeded")}
	h := NewHandler(testConfig(wf))

	w := postReport(t, h, `{"fields":["ai"]}`)
	require.Equal(t, http.StatusBadGateway, w.Code)

	var resp ReportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, domain.StatusError, resp.Status)
	assert.Equal(t, "plan stage: generation: quota exceeded", resp.Error)
}

func TestCreateReport_UsesRegisteredDocuments(t *testing.T) {
	wf := &fakeWorkflow{}
	cfg := testConfig(wf)
	cfg.Documents = func() ([]string, error) { return []string{"data/rag/a.pdf"}, nil }
	h := NewHandler(cfg)

	w := postReport(t, h, `{"fields":["ai"],"rag_enabled":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, wf.params.RAGEnabled)
	assert.Equal(t, []string{"data/rag/a.pdf"}, wf.params.RAGDocuments)
}

func TestCreateReport_AsyncStreamsProgress(t *testing.T) {
	wf := &fakeWorkflow{gate: make(chan struct{})}
	srv := NewServer(testConfig(wf))
	h := srv.Routes()

	w := postReport(t, h, `{"fields":["ai"],"async":true}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp ReportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "run-1", resp.RunID)

	sub := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		h.ServeHTTP(sub, httptest.NewRequest(http.MethodGet, "/runs/run-1/events", nil))
		close(done)
	}()

	require.Eventually(t, func() bool {
		srv.Streams.mu.RLock()
		defer srv.Streams.mu.RUnlock()
		return len(srv.Streams.subscribers["run-1"]) == 1
	}, time.Second, 10*time.Millisecond)

	close(wf.gate)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end with the run")
	}

	body := sub.Body.String()
	assert.Contains(t, body, "event: ping")
	assert.Contains(t, body, "data: Starting workflow...")
	assert.Contains(t, body, "data: Workflow completed: output/report.md")
	assert.Contains(t, body, "event: done")
}

func TestRuns(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	s := domain.NewState("run-7", domain.Params{Fields: []domain.Tag{domain.TagAI}, Format: domain.FormatPDF})
	s.Status = domain.StatusPlanDone
	s.History = []domain.StageName{domain.StagePlan}
	require.NoError(t, store.Save(ctx, "run-7", &s))

	cfg := testConfig(&fakeWorkflow{})
	cfg.Runs = runs.NewManager(store)
	h := NewHandler(cfg)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/runs", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var summaries []runs.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, "run-7", summaries[0].RunID)
	assert.Equal(t, domain.StatusPlanDone, summaries[0].Status)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/runs/run-7", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var state domain.WorkflowState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, domain.FormatPDF, state.Format)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/runs/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/graph?run_id=run-7", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "class plan visited;")
}

func TestRuns_Disabled(t *testing.T) {
	h := NewHandler(testConfig(&fakeWorkflow{}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/runs", nil))
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestGraphTagsHealth(t *testing.T) {
	cfg := testConfig(&fakeWorkflow{})
	cfg.Metrics = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("techtrends_workflows_total 0\n"))
	})
	h := NewHandler(cfg)

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	w := get("/graph")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "graph TD\n"))
	assert.Contains(t, w.Body.String(), "start --> plan")

	w = get("/graph?format=json")
	var g domain.Graph
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &g))
	assert.Len(t, g.Nodes, 2)

	w = get("/tags")
	var tags []TagInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tags))
	require.Len(t, tags, 4)
	assert.Equal(t, TagInfo{Tag: domain.TagAI, Label: "Artificial Intelligence"}, tags[0])

	w = get("/healthz")
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = get("/info")
	assert.JSONEq(t, `{"app":"techtrends-http","version":"1.2.3"}`, w.Body.String())

	w = get("/metrics")
	assert.Contains(t, w.Body.String(), "techtrends_workflows_total")
}

func TestCORSPreflight(t *testing.T) {
	h := NewHandler(testConfig(&fakeWorkflow{}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/reports", bytes.NewReader(nil)))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
