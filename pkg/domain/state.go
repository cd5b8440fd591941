package domain

import (
	"log/slog"
	"time"
)

// Status is the position of a run in the workflow state machine.
type Status string

const (
	StatusInitialized  Status = "initialized"
	StatusPlanDone     Status = "plan_done"
	StatusResearchDone Status = "research_done"
	StatusReportDone   Status = "report_done"
	StatusCompleted    Status = "completed"
	StatusError        Status = "error" // Routed to the error handler
)

// StageName identifies a node of the workflow graph.
type StageName string

const (
	StagePlan        StageName = "plan"
	StageResearch    StageName = "research"
	StageReport      StageName = "report"
	StageConvert     StageName = "convert"
	StageHandleError StageName = "handle_error"
)

// Pipeline is the required stage order.
var Pipeline = []StageName{StagePlan, StageResearch, StageReport, StageConvert}

// Done returns the status a stage sets on success.
func (s StageName) Done() Status {
	switch s {
	case StagePlan:
		return StatusPlanDone
	case StageResearch:
		return StatusResearchDone
	case StageReport:
		return StatusReportDone
	case StageConvert:
		return StatusCompleted
	}
	return ""
}

// ProgressFunc receives human readable progress messages.
type ProgressFunc func(message string)

// AnalysisPlan is the structured outcome of the planning stage.
type AnalysisPlan struct {
	Fields   []Tag    `json:"fields"`
	Language Language `json:"language"`
	Depth    Depth    `json:"depth"`
	Plan     string   `json:"plan"`
}

// WorkflowState represents the snapshot of one workflow run.
// Stages receive it by value and return an updated copy.
type WorkflowState struct {
	RunID string `json:"run_id"`

	// Inputs, immutable after setup.
	Fields       []Tag    `json:"fields"`
	Format       Format   `json:"format"`
	Language     Language `json:"language"`
	Depth        Depth    `json:"depth"`
	RAGEnabled   bool     `json:"rag_enabled"`
	RAGDocuments []string `json:"rag_documents,omitempty"`

	// Stage artifacts, each owned by exactly one stage.
	AnalysisPlan   *AnalysisPlan `json:"analysis_plan,omitempty"`
	ResearchResult string        `json:"research_result,omitempty"`
	Report         string        `json:"report,omitempty"`
	OutputPath     string        `json:"output_path,omitempty"`
	PublishedURL   string        `json:"published_url,omitempty"`

	Status      Status    `json:"status"`
	Error       string    `json:"error,omitempty"`
	FailedStage StageName `json:"failed_stage,omitempty"`

	// History tracks the stages executed so far.
	History []StageName `json:"history,omitempty"`

	// Terminated indicates the run reached COMPLETED or TERMINATED.
	Terminated bool `json:"terminated"`

	// Sealed carries the encrypted form of a checkpoint; see persistence/middleware.
	Sealed string `json:"sealed,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProgressCallback ProgressFunc `json:"-"`
}

// NewState creates a fresh state from validated parameters.
func NewState(runID string, p Params) WorkflowState {
	now := time.Now().UTC()
	s := WorkflowState{
		RunID:            runID,
		Fields:           append([]Tag(nil), p.Fields...),
		Format:           p.Format,
		Language:         p.Language,
		Depth:            p.Depth,
		RAGEnabled:       p.RAGEnabled,
		Status:           StatusInitialized,
		CreatedAt:        now,
		UpdatedAt:        now,
		ProgressCallback: p.Progress,
	}
	if len(p.RAGDocuments) > 0 {
		s.RAGDocuments = append([]string(nil), p.RAGDocuments...)
	}
	return s
}

// HasError reports whether a stage recorded a failure.
func (s WorkflowState) HasError() bool {
	return s.Error != ""
}

// Progress emits a message through the callback, if any.
// A panicking callback drops the message; it never fails the stage.
func (s WorkflowState) Progress(message string) {
	if s.ProgressCallback == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("progress callback panicked", "run_id", s.RunID, "message", message, "panic", r)
		}
	}()
	s.ProgressCallback(message)
}

// Fail records a stage failure.
func (s WorkflowState) Fail(stage StageName, err error) WorkflowState {
	s.Status = StatusError
	s.Error = err.Error()
	s.FailedStage = stage
	return s
}

// Snapshot returns a deep copy that shares no mutable memory with s.
func (s WorkflowState) Snapshot() WorkflowState {
	c := s
	if s.Fields != nil {
		c.Fields = append([]Tag(nil), s.Fields...)
	}
	if s.RAGDocuments != nil {
		c.RAGDocuments = append([]string(nil), s.RAGDocuments...)
	}
	if s.History != nil {
		c.History = append([]StageName(nil), s.History...)
	}
	if s.AnalysisPlan != nil {
		plan := *s.AnalysisPlan
		plan.Fields = append([]Tag(nil), s.AnalysisPlan.Fields...)
		c.AnalysisPlan = &plan
	}
	return c
}
