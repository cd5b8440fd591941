package runtime_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/techtrends/internal/runtime"
	"github.com/aretw0/techtrends/pkg/adapters/memory"
	"github.com/aretw0/techtrends/pkg/domain"
	"github.com/aretw0/techtrends/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStage writes a fixed artifact or fails with the configured error.
type fakeStage struct {
	name  domain.StageName
	err   error
	calls int
}

func (f *fakeStage) Name() domain.StageName { return f.name }

func (f *fakeStage) Run(ctx context.Context, s domain.WorkflowState) domain.WorkflowState {
	f.calls++
	s.Progress("running " + string(f.name))
	if f.err != nil {
		return s.Fail(f.name, &domain.CollaboratorError{Stage: f.name, Collaborator: "fake", Err: f.err})
	}
	switch f.name {
	case domain.StagePlan:
		s.AnalysisPlan = &domain.AnalysisPlan{Fields: s.Fields, Plan: "PLAN"}
	case domain.StageResearch:
		s.ResearchResult = "RESEARCH"
	case domain.StageReport:
		s.Report = "REPORT"
	case domain.StageConvert:
		s.OutputPath = "output/report.md"
	}
	s.Status = f.name.Done()
	s.Error = ""
	return s
}

type pipeline struct {
	plan, research, report, convert *fakeStage
	handler                         *fakeStage
}

func newPipeline() *pipeline {
	return &pipeline{
		plan:     &fakeStage{name: domain.StagePlan},
		research: &fakeStage{name: domain.StageResearch},
		report:   &fakeStage{name: domain.StageReport},
		convert:  &fakeStage{name: domain.StageConvert},
		handler:  &fakeStage{name: domain.StageHandleError},
	}
}

func (p *pipeline) engine(opts ...runtime.EngineOption) *runtime.Engine {
	opts = append([]runtime.EngineOption{runtime.WithErrorHandler(ports.StageFunc{
		ID: domain.StageHandleError,
		Fn: func(ctx context.Context, s domain.WorkflowState) domain.WorkflowState {
			p.handler.calls++
			s.Progress("Error: " + s.Error)
			return s
		},
	})}, opts...)
	return runtime.NewEngine([]ports.Stage{p.plan, p.research, p.report, p.convert}, opts...)
}

func initialState() domain.WorkflowState {
	return domain.NewState("run-1", domain.Params{
		Fields:   []domain.Tag{domain.TagAI},
		Format:   domain.FormatMarkdown,
		Language: domain.LanguageKorean,
		Depth:    domain.DepthStandard,
	})
}

func TestEngine_SuccessPath(t *testing.T) {
	p := newPipeline()
	var messages []string
	state := initialState()
	state.ProgressCallback = func(m string) { messages = append(messages, m) }

	final, err := p.engine().Execute(context.Background(), state)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCompleted, final.Status)
	assert.True(t, final.Terminated)
	assert.Equal(t, "output/report.md", final.OutputPath)
	assert.Equal(t, "REPORT", final.Report)
	assert.Equal(t, domain.Pipeline, final.History)
	assert.Equal(t, 0, p.handler.calls)
	assert.Equal(t, "Starting workflow...", messages[0])
	assert.Equal(t, "Workflow completed: output/report.md", messages[len(messages)-1])

	assert.Equal(t, domain.StatusInitialized, state.Status, "input state must not be mutated")
}

func TestEngine_FailureAtEachStage(t *testing.T) {
	tests := []struct {
		name     string
		fail     func(p *pipeline)
		stage    domain.StageName
		executed []domain.StageName
		check    func(t *testing.T, s domain.WorkflowState)
	}{
		{
			name:     "plan",
			fail:     func(p *pipeline) { p.plan.err = errors.New("quota") },
			stage:    domain.StagePlan,
			executed: []domain.StageName{domain.StagePlan, domain.StageHandleError},
			check: func(t *testing.T, s domain.WorkflowState) {
				assert.Nil(t, s.AnalysisPlan)
				assert.Empty(t, s.ResearchResult)
				assert.Empty(t, s.Report)
				assert.Empty(t, s.OutputPath)
			},
		},
		{
			name:     "research",
			fail:     func(p *pipeline) { p.research.err = errors.New("search down") },
			stage:    domain.StageResearch,
			executed: []domain.StageName{domain.StagePlan, domain.StageResearch, domain.StageHandleError},
			check: func(t *testing.T, s domain.WorkflowState) {
				require.NotNil(t, s.AnalysisPlan)
				assert.Equal(t, "PLAN", s.AnalysisPlan.Plan)
				assert.Empty(t, s.Report)
				assert.Empty(t, s.OutputPath)
			},
		},
		{
			name:     "report",
			fail:     func(p *pipeline) { p.report.err = errors.New("timeout") },
			stage:    domain.StageReport,
			executed: []domain.StageName{domain.StagePlan, domain.StageResearch, domain.StageReport, domain.StageHandleError},
			check: func(t *testing.T, s domain.WorkflowState) {
				assert.Equal(t, "RESEARCH", s.ResearchResult)
				assert.Empty(t, s.Report)
				assert.Empty(t, s.OutputPath)
			},
		},
		{
			name:     "convert",
			fail:     func(p *pipeline) { p.convert.err = errors.New("disk full") },
			stage:    domain.StageConvert,
			executed: []domain.StageName{domain.StagePlan, domain.StageResearch, domain.StageReport, domain.StageConvert, domain.StageHandleError},
			check: func(t *testing.T, s domain.WorkflowState) {
				assert.Equal(t, "REPORT", s.Report)
				assert.Empty(t, s.OutputPath)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPipeline()
			tt.fail(p)

			final, err := p.engine().Execute(context.Background(), initialState())
			require.Error(t, err)

			var runErr *domain.RunError
			require.ErrorAs(t, err, &runErr)
			assert.Equal(t, final.Error, runErr.Error(), "message must be carried verbatim")
			assert.Equal(t, tt.stage, runErr.Stage)
			assert.Contains(t, runErr.Error(), string(tt.stage))

			assert.Equal(t, domain.StatusError, final.Status)
			assert.True(t, final.Terminated)
			assert.Equal(t, tt.executed, final.History)
			assert.Equal(t, 1, p.handler.calls)
			tt.check(t, final)
		})
	}
}

func TestEngine_StagesAfterFailureDoNotRun(t *testing.T) {
	p := newPipeline()
	p.research.err = errors.New("boom")

	_, err := p.engine().Execute(context.Background(), initialState())
	require.Error(t, err)

	assert.Equal(t, 1, p.plan.calls)
	assert.Equal(t, 1, p.research.calls)
	assert.Equal(t, 0, p.report.calls)
	assert.Equal(t, 0, p.convert.calls)
}

func TestEngine_StageCannotRewriteInputs(t *testing.T) {
	rogue := ports.StageFunc{ID: domain.StagePlan, Fn: func(ctx context.Context, s domain.WorkflowState) domain.WorkflowState {
		s.Fields = []domain.Tag{domain.TagBiotech}
		s.Format = domain.FormatPDF
		s.Status = domain.StatusPlanDone
		return s
	}}
	engine := runtime.NewEngine([]ports.Stage{rogue})

	final, err := engine.Execute(context.Background(), initialState())
	require.NoError(t, err)
	assert.Equal(t, []domain.Tag{domain.TagAI}, final.Fields)
	assert.Equal(t, domain.FormatMarkdown, final.Format)
}

func TestEngine_LifecycleHooks(t *testing.T) {
	p := newPipeline()
	p.report.err = errors.New("boom")

	var entered, left []domain.StageName
	var leftWithError []domain.StageName
	var terminated *domain.TerminateEvent

	hooks := domain.LifecycleHooks{
		OnStageEnter: func(ctx context.Context, e *domain.StageEvent) {
			entered = append(entered, e.Stage)
		},
		OnStageLeave: func(ctx context.Context, e *domain.StageEvent) {
			left = append(left, e.Stage)
			if e.IsError {
				leftWithError = append(leftWithError, e.Stage)
			}
		},
		OnTerminate: func(ctx context.Context, e *domain.TerminateEvent) {
			terminated = e
		},
	}

	_, err := p.engine(runtime.WithLifecycleHooks(hooks)).Execute(context.Background(), initialState())
	require.Error(t, err)

	want := []domain.StageName{domain.StagePlan, domain.StageResearch, domain.StageReport, domain.StageHandleError}
	assert.Equal(t, want, entered)
	assert.Equal(t, want, left)
	assert.Equal(t, []domain.StageName{domain.StageReport, domain.StageHandleError}, leftWithError)

	require.NotNil(t, terminated)
	assert.False(t, terminated.Succeeded)
	assert.Equal(t, domain.StageReport, terminated.FailedAt)
	assert.Equal(t, "run-1", terminated.RunID)
}

func TestEngine_Checkpoints(t *testing.T) {
	p := newPipeline()
	store := memory.NewStore()

	_, err := p.engine(runtime.WithCheckpointStore(store)).Execute(context.Background(), initialState())
	require.NoError(t, err)

	saved, err := store.Load(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, saved.Status)
	assert.True(t, saved.Terminated)
	assert.Equal(t, "output/report.md", saved.OutputPath)
}

func TestEngine_ResumeAfterLastCompletedStage(t *testing.T) {
	p := newPipeline()
	store := memory.NewStore()

	// A crashed run: plan and research done, nothing terminated.
	state := initialState()
	state.Status = domain.StatusResearchDone
	state.AnalysisPlan = &domain.AnalysisPlan{Plan: "PLAN"}
	state.ResearchResult = "RESEARCH"
	state.History = []domain.StageName{domain.StagePlan, domain.StageResearch}

	final, err := p.engine(runtime.WithCheckpointStore(store)).Execute(context.Background(), state)
	require.NoError(t, err)

	assert.Equal(t, 0, p.plan.calls)
	assert.Equal(t, 0, p.research.calls)
	assert.Equal(t, 1, p.report.calls)
	assert.Equal(t, 1, p.convert.calls)
	assert.Equal(t, domain.StatusCompleted, final.Status)
	assert.Equal(t, domain.Pipeline, final.History)
}

func TestEngine_ResumeTerminatedRun(t *testing.T) {
	p := newPipeline()
	state := initialState()
	state.Terminated = true

	_, err := p.engine().Execute(context.Background(), state)
	assert.ErrorIs(t, err, domain.ErrRunTerminated)
	assert.Equal(t, 0, p.plan.calls)
}

func TestEngine_ResumeWithPendingError(t *testing.T) {
	p := newPipeline()
	state := initialState().Fail(domain.StageResearch, errors.New("research stage: search: boom"))

	final, err := p.engine().Execute(context.Background(), state)
	require.Error(t, err)
	assert.Equal(t, "research stage: search: boom", err.Error())
	assert.Equal(t, 1, p.handler.calls)
	assert.Equal(t, 0, p.plan.calls)
	assert.True(t, final.Terminated)
}

func TestEngine_UnknownStatus(t *testing.T) {
	p := newPipeline()
	state := initialState()
	state.Status = "bogus"

	_, err := p.engine().Execute(context.Background(), state)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot resume")
}

func TestEngine_Graph(t *testing.T) {
	g := newPipeline().engine().Graph()

	ids := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		ids[i] = n.ID
	}
	assert.Equal(t, []string{"start", "plan", "research", "report", "convert", "handle_error", "end"}, ids)

	assert.Contains(t, g.Edges, domain.GraphEdge{From: "start", To: "plan"})
	assert.Contains(t, g.Edges, domain.GraphEdge{From: "plan", To: "research", Route: domain.RouteContinue})
	assert.Contains(t, g.Edges, domain.GraphEdge{From: "convert", To: "end", Route: domain.RouteContinue})
	assert.Contains(t, g.Edges, domain.GraphEdge{From: "convert", To: "handle_error", Route: domain.RouteError})
	assert.Contains(t, g.Edges, domain.GraphEdge{From: "handle_error", To: "end"})
}
