package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aretw0/techtrends/internal/presentation/graph"
	"github.com/aretw0/techtrends/pkg/domain"
	"github.com/aretw0/techtrends/pkg/runs"
)

// Workflow is the part of techtrends.Workflow the server drives.
type Workflow interface {
	Setup(p domain.Params) error
	Run(ctx context.Context, progress domain.ProgressFunc) (string, error)
	State() (domain.WorkflowState, bool)
}

// Config wires the server to its collaborators.
type Config struct {
	// NewWorkflow returns a fresh workflow per request.
	NewWorkflow func() Workflow

	// Runs exposes checkpoints. Optional: /runs answers 501 without it.
	Runs *runs.Manager

	Graph  domain.Graph
	Stages []domain.StageName

	// Defaults fill the format, language and depth a request leaves out.
	Defaults domain.Params

	// Documents lists the registered reference documents used when a
	// request enables RAG. Clients cannot name server paths themselves.
	Documents func() ([]string, error)

	// Metrics is mounted on /metrics when set.
	Metrics http.Handler

	Version string
	Logger  *slog.Logger
}

// Server serves the report API.
type Server struct {
	cfg     Config
	logger  *slog.Logger
	Streams *StreamManager
	// background carries asynchronous runs past the request lifetime.
	background context.Context
}

// NewHandler creates the chi router for the report API.
func NewHandler(cfg Config) http.Handler {
	return NewServer(cfg).Routes()
}

// NewServer creates a server. Asynchronous runs use context.Background.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		cfg:        cfg,
		logger:     logger.With("component", "http"),
		Streams:    NewStreamManager(logger),
		background: context.Background(),
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/healthz", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/tags", s.GetTags)
	r.Get("/graph", s.GetGraph)
	r.Post("/reports", s.CreateReport)
	r.Get("/runs", s.ListRuns)
	r.Get("/runs/{id}", s.GetRun)
	r.Get("/runs/{id}/events", s.SubscribeEvents)
	if s.cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.cfg.Metrics)
	}
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ReportRequest is the body of POST /reports.
type ReportRequest struct {
	domain.Overrides
	// Async returns 202 immediately; progress is streamed on /runs/{id}/events.
	Async bool `json:"async,omitempty"`
}

// ReportResponse describes the outcome of a run.
type ReportResponse struct {
	RunID        string        `json:"run_id"`
	Status       domain.Status `json:"status"`
	OutputPath   string        `json:"output_path,omitempty"`
	PublishedURL string        `json:"published_url,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// CreateReport handles POST /reports.
func (s *Server) CreateReport(w http.ResponseWriter, r *http.Request) {
	var body ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		s.logger.Warn("CreateReport: invalid request body", "error", err)
		return
	}

	defaults := s.cfg.Defaults
	if body.RAGEnabled && s.cfg.Documents != nil {
		docs, err := s.cfg.Documents()
		if err != nil {
			respondError(w, http.StatusInternalServerError, err)
			return
		}
		defaults.RAGDocuments = docs
	}

	params, err := body.Apply(defaults)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	wf := s.cfg.NewWorkflow()
	if err := wf.Setup(params); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	prepared, _ := wf.State()
	runID := prepared.RunID

	progress := func(msg string) { s.Streams.Broadcast(runID, msg) }

	if body.Async {
		go func() {
			if _, err := wf.Run(s.background, progress); err != nil {
				s.logger.Warn("async run failed", "run_id", runID, "error", err)
			}
			s.Streams.Close(runID)
		}()
		respondJSON(w, http.StatusAccepted, ReportResponse{RunID: runID, Status: prepared.Status})
		return
	}

	_, runErr := wf.Run(r.Context(), progress)
	s.Streams.Close(runID)

	final, _ := wf.State()
	resp := ReportResponse{
		RunID:        runID,
		Status:       final.Status,
		OutputPath:   final.OutputPath,
		PublishedURL: final.PublishedURL,
	}

	var (
		runError  *domain.RunError
		confError *domain.ConfigurationError
	)
	switch {
	case runErr == nil:
		respondJSON(w, http.StatusOK, resp)
	case errors.As(runErr, &runError):
		resp.Status = domain.StatusError
		resp.Error = runError.Error()
		respondJSON(w, http.StatusBadGateway, resp)
	case errors.As(runErr, &confError):
		respondError(w, http.StatusServiceUnavailable, runErr)
	default:
		s.logger.Error("CreateReport failed", "run_id", runID, "error", runErr)
		respondError(w, http.StatusInternalServerError, runErr)
	}
}

// ListRuns handles GET /runs.
func (s *Server) ListRuns(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Runs == nil {
		respondError(w, http.StatusNotImplemented, errors.New("checkpoints are disabled"))
		return
	}
	summaries, err := s.cfg.Runs.Summaries(r.Context())
	if err != nil {
		s.logger.Error("ListRuns failed", "error", err)
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, summaries)
}

// GetRun handles GET /runs/{id}.
func (s *Server) GetRun(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Runs == nil {
		respondError(w, http.StatusNotImplemented, errors.New("checkpoints are disabled"))
		return
	}
	state, err := s.cfg.Runs.Load(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, domain.ErrRunNotFound) {
		respondError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.logger.Error("GetRun failed", "error", err)
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

// GetGraph handles GET /graph. It answers Mermaid text unless ?format=json.
// ?run_id= overlays the path a stored run took.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("format") == "json" {
		respondJSON(w, http.StatusOK, s.cfg.Graph)
		return
	}

	var overlay *graph.GraphOverlay
	if runID := r.URL.Query().Get("run_id"); runID != "" && s.cfg.Runs != nil {
		state, err := s.cfg.Runs.Load(r.Context(), runID)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, domain.ErrRunNotFound) {
				status = http.StatusNotFound
			}
			respondError(w, status, err)
			return
		}
		overlay = graph.OverlayFromState(state, s.cfg.Stages)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, graph.GenerateMermaid(s.cfg.Graph, overlay))
}

// TagInfo describes one selectable field.
type TagInfo struct {
	Tag   domain.Tag `json:"tag"`
	Label string     `json:"label"`
}

// GetTags handles GET /tags.
func (s *Server) GetTags(w http.ResponseWriter, r *http.Request) {
	tags := make([]TagInfo, len(domain.Tags))
	for i, t := range domain.Tags {
		tags[i] = TagInfo{Tag: t, Label: t.Label()}
	}
	respondJSON(w, http.StatusOK, tags)
}

// GetHealth handles the GET /healthz request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"app":     "techtrends-http",
		"version": strings.TrimSpace(s.cfg.Version),
	})
}

// SubscribeEvents handles GET /runs/{id}/events (SSE). The stream ends with the run.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, errors.New("streaming not supported"))
		return
	}
	runID := chi.URLParam(r, "id")

	ch, cancel := s.Streams.Subscribe(runID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected", "run_id", runID)
			return
		case msg, ok := <-ch:
			if !ok {
				fmt.Fprintf(w, "event: done\ndata: %s\n\n", runID)
				flusher.Flush()
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]string{"error": err.Error()})
}
