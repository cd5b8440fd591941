package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/techtrends/internal/logging"
	"github.com/aretw0/techtrends/internal/presentation/graph"
	"github.com/aretw0/techtrends/pkg/domain"
)

// GraphURI is the resource exposing the workflow graph.
const GraphURI = "techtrends://graph"

// Workflow is the part of techtrends.Workflow the MCP server drives.
type Workflow interface {
	Setup(p domain.Params) error
	Run(ctx context.Context, progress domain.ProgressFunc) (string, error)
	State() (domain.WorkflowState, bool)
}

// Config wires the MCP server.
type Config struct {
	NewWorkflow func() Workflow
	Defaults    domain.Params
	// Documents lists the registered reference documents for RAG-enabled runs.
	Documents func() ([]string, error)
	Graph     domain.Graph
	Version   string
	Logger    *slog.Logger
}

// ReportResult aligns with the HTTP ReportResponse.
type ReportResult struct {
	RunID        string        `json:"run_id" jsonschema_description:"Identifier of the run"`
	Status       domain.Status `json:"status" jsonschema_description:"Final workflow status"`
	OutputPath   string        `json:"output_path,omitempty" jsonschema_description:"Path of the produced report file"`
	PublishedURL string        `json:"published_url,omitempty" jsonschema_description:"Blob URL when publishing is enabled"`
	Error        string        `json:"error,omitempty" jsonschema_description:"Failure message of an errored run"`
}

// Server exposes report generation as an MCP server.
type Server struct {
	cfg       Config
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		cfg:    cfg,
		logger: logger.With("component", "mcp"),
		mcpServer: server.NewMCPServer("techtrends-mcp", strings.TrimSpace(cfg.Version),
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{Addr: addr, Handler: mux}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	tags := make([]string, len(domain.Tags))
	for i, t := range domain.Tags {
		tags[i] = string(t)
	}
	formats := make([]string, len(domain.Formats))
	for i, f := range domain.Formats {
		formats[i] = string(f)
	}

	// TOOL: generate_report
	generateTool := mcp.NewTool("generate_report",
		mcp.WithDescription("Plan, research and write a technology trend report, then convert it to the requested format."),
		mcp.WithArray("fields", mcp.Required(), mcp.WithStringEnumItems(tags),
			mcp.Description("One to three technology fields")),
		mcp.WithString("format", mcp.Enum(formats...), mcp.Description("Output format")),
		mcp.WithString("language", mcp.Enum("ko", "en"), mcp.Description("Report language")),
		mcp.WithString("depth", mcp.Enum("standard", "deep"), mcp.Description("Analysis depth")),
		mcp.WithBoolean("rag_enabled", mcp.Description("Use the registered reference documents")),
		mcp.WithOutputSchema[ReportResult](),
	)
	s.mcpServer.AddTool(generateTool, mcp.NewStructuredToolHandler(s.handleGenerateReport))

	// TOOL: list_tags
	s.mcpServer.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List the technology fields a report can cover."),
	), s.handleListTags)
}

// DecodeArguments maps raw tool arguments onto report overrides.
func DecodeArguments(args map[string]any) (domain.Overrides, error) {
	var o domain.Overrides
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &o,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return o, err
	}
	if err := dec.Decode(args); err != nil {
		return o, fmt.Errorf("invalid arguments: %w", err)
	}
	return o, nil
}

func (s *Server) handleGenerateReport(ctx context.Context, _ mcp.CallToolRequest, args map[string]any) (ReportResult, error) {
	overrides, err := DecodeArguments(args)
	if err != nil {
		return ReportResult{}, err
	}

	defaults := s.cfg.Defaults
	if overrides.RAGEnabled && s.cfg.Documents != nil {
		if defaults.RAGDocuments, err = s.cfg.Documents(); err != nil {
			return ReportResult{}, err
		}
	}
	params, err := overrides.Apply(defaults)
	if err != nil {
		return ReportResult{}, err
	}

	wf := s.cfg.NewWorkflow()
	if err := wf.Setup(params); err != nil {
		return ReportResult{}, err
	}

	_, runErr := wf.Run(ctx, func(msg string) {
		s.logger.DebugContext(ctx, "progress", "message", msg)
	})
	final, _ := wf.State()
	result := ReportResult{
		RunID:        final.RunID,
		Status:       final.Status,
		OutputPath:   final.OutputPath,
		PublishedURL: final.PublishedURL,
	}

	var runError *domain.RunError
	switch {
	case runErr == nil:
		return result, nil
	case errors.As(runErr, &runError):
		result.Status = domain.StatusError
		result.Error = runError.Error()
		return result, nil
	default:
		return ReportResult{}, runErr
	}
}

func (s *Server) handleListTags(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var sb strings.Builder
	for _, t := range domain.Tags {
		fmt.Fprintf(&sb, "%s: %s\n", t, t.Label())
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) registerResources() {
	// EXPOSE: techtrends://graph
	s.mcpServer.AddResource(mcp.NewResource(GraphURI, "Workflow Graph",
		mcp.WithResourceDescription("Stages and routes of the report workflow"),
		mcp.WithMIMEType("application/json"),
	), s.readGraph)
}

func (s *Server) readGraph(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	jsonBytes, err := json.Marshal(s.cfg.Graph)
	if err != nil {
		return nil, fmt.Errorf("failed to encode graph: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      GraphURI,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
		mcp.TextResourceContents{
			URI:      GraphURI + "?format=mermaid",
			MIMEType: "text/vnd.mermaid",
			Text:     graph.GenerateMermaid(s.cfg.Graph, nil),
		},
	}, nil
}
