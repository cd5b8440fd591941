package stages

import (
	"context"

	"github.com/aretw0/techtrends/internal/prompts"
	"github.com/aretw0/techtrends/pkg/domain"
)

// Plan drafts the outline of the report.
type Plan struct {
	rt *Runtime
}

// Name implements ports.Stage.
func (s *Plan) Name() domain.StageName { return domain.StagePlan }

// Run implements ports.Stage.
func (s *Plan) Run(ctx context.Context, state domain.WorkflowState) domain.WorkflowState {
	state.Progress("Creating analysis plan...")

	prompt, err := s.rt.render(prompts.PlanSystem, prompts.Plan, baseVars(state))
	if err != nil {
		return collaboratorFailure(state, domain.StagePlan, CollaboratorPrompt, err)
	}

	text, err := s.rt.Generator.Generate(ctx, prompt)
	if err != nil {
		return collaboratorFailure(state, domain.StagePlan, CollaboratorGeneration, err)
	}

	state.AnalysisPlan = &domain.AnalysisPlan{
		Fields:   append([]domain.Tag(nil), state.Fields...),
		Language: state.Language,
		Depth:    state.Depth,
		Plan:     text,
	}
	state.Status = domain.StatusPlanDone
	s.rt.logger().DebugContext(ctx, "analysis plan created", "run_id", state.RunID, "length", len(text))
	return state
}
