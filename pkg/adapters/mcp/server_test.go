package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/techtrends/pkg/domain"
)

type stubWorkflow struct {
	params domain.Params
	state  domain.WorkflowState
	err    error
}

func (w *stubWorkflow) Setup(p domain.Params) error {
	w.params = p
	w.state = domain.NewState("run-9", p)
	return nil
}

func (w *stubWorkflow) Run(ctx context.Context, progress domain.ProgressFunc) (string, error) {
	progress("Starting workflow...")
	if w.err != nil {
		w.state = w.state.Fail(domain.StageResearch, w.err)
		return "", &domain.RunError{RunID: w.state.RunID, Stage: domain.StageResearch, Message: w.err.Error()}
	}
	w.state.Status = domain.StatusCompleted
	w.state.OutputPath = "output/tech_trend_report.pdf"
	return w.state.OutputPath, nil
}

func (w *stubWorkflow) State() (domain.WorkflowState, bool) {
	return w.state, true
}

func newTestServer(wf *stubWorkflow) *Server {
	return NewServer(Config{
		NewWorkflow: func() Workflow { return wf },
		Defaults: domain.Params{
			Format:   domain.FormatMarkdown,
			Language: domain.LanguageKorean,
			Depth:    domain.DepthStandard,
		},
		Documents: func() ([]string, error) { return []string{"data/rag/x.md"}, nil },
		Graph: domain.Graph{
			Nodes: []domain.GraphNode{{ID: "start", Kind: domain.NodeStart}, {ID: "plan", Kind: domain.NodeStage}},
			Edges: []domain.GraphEdge{{From: "start", To: "plan"}},
		},
		Version: "0.1.0",
	})
}

func TestDecodeArguments(t *testing.T) {
	o, err := DecodeArguments(map[string]any{
		"fields":      []any{"ai", "biotech"},
		"format":      "pdf",
		"rag_enabled": "true",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ai", "biotech"}, o.Fields)
	assert.Equal(t, "pdf", o.Format)
	assert.True(t, o.RAGEnabled)

	_, err = DecodeArguments(map[string]any{"fields": []any{"ai"}, "output_dir": "/tmp"})
	assert.ErrorContains(t, err, "invalid arguments")
}

func TestGenerateReport(t *testing.T) {
	wf := &stubWorkflow{}
	s := newTestServer(wf)

	res, err := s.handleGenerateReport(context.Background(), mcp.CallToolRequest{}, map[string]any{
		"fields":      []any{"energy"},
		"format":      "pdf",
		"rag_enabled": true,
	})
	require.NoError(t, err)
	assert.Equal(t, ReportResult{RunID: "run-9", Status: domain.StatusCompleted, OutputPath: "output/tech_trend_report.pdf"}, res)

	assert.Equal(t, []domain.Tag{domain.TagEnergy}, wf.params.Fields)
	assert.Equal(t, domain.FormatPDF, wf.params.Format)
	assert.Equal(t, []string{"data/rag/x.md"}, wf.params.RAGDocuments)
}

func TestGenerateReport_Failures(t *testing.T) {
	t.Run("run error is reported in the result", func(t *testing.T) {
		s := newTestServer(&stubWorkflow{err: errors.New("search: timeout")})
		res, err := s.handleGenerateReport(context.Background(), mcp.CallToolRequest{}, map[string]any{"fields": []any{"ai"}})
		require.NoError(t, err)
		assert.Equal(t, domain.StatusError, res.Status)
		assert.Equal(t, "search: timeout", res.Error)
	})

	t.Run("invalid params", func(t *testing.T) {
		s := newTestServer(&stubWorkflow{})
		_, err := s.handleGenerateReport(context.Background(), mcp.CallToolRequest{}, map[string]any{"fields": []any{"ai"}, "format": "xml"})
		var ufe *domain.UnsupportedFormatError
		assert.ErrorAs(t, err, &ufe)
	})
}

func TestListTags(t *testing.T) {
	s := newTestServer(&stubWorkflow{})
	res, err := s.handleListTags(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	require.Len(t, res.Content, 1)

	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "ai: Artificial Intelligence")
	assert.Contains(t, text.Text, "biotech: Biotechnology")
}

func TestGraphResource(t *testing.T) {
	s := newTestServer(&stubWorkflow{})
	contents, err := s.readGraph(context.Background(), mcp.ReadResourceRequest{})
	require.NoError(t, err)
	require.Len(t, contents, 2)

	j, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, GraphURI, j.URI)
	var g domain.Graph
	require.NoError(t, json.Unmarshal([]byte(j.Text), &g))
	assert.Len(t, g.Nodes, 2)

	m, ok := contents[1].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Contains(t, m.Text, "start --> plan")
}

func TestHandleMessage_ListsTools(t *testing.T) {
	s := newTestServer(&stubWorkflow{})
	resp := s.mcpServer.HandleMessage(context.Background(),
		json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"generate_report"`)
	assert.Contains(t, string(raw), `"list_tags"`)
}
