package stages

import (
	"context"

	"github.com/aretw0/techtrends/internal/prompts"
	"github.com/aretw0/techtrends/pkg/domain"
)

// Report writes the long-form markdown report from the research brief.
type Report struct {
	rt *Runtime
}

// Name implements ports.Stage.
func (s *Report) Name() domain.StageName { return domain.StageReport }

// Run implements ports.Stage.
func (s *Report) Run(ctx context.Context, state domain.WorkflowState) domain.WorkflowState {
	state.Progress("Generating report...")

	vars := baseVars(state)
	vars.ResearchData = state.ResearchResult

	prompt, err := s.rt.render(prompts.ReportSystem, prompts.Report, vars)
	if err != nil {
		return collaboratorFailure(state, domain.StageReport, CollaboratorPrompt, err)
	}

	text, err := s.rt.Generator.Generate(ctx, prompt)
	if err != nil {
		return collaboratorFailure(state, domain.StageReport, CollaboratorGeneration, err)
	}

	state.Report = text
	state.Status = domain.StatusReportDone
	return state
}
