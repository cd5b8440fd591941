package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/techtrends/pkg/domain"
	"github.com/aretw0/techtrends/pkg/ports"
)

// Mask replaces every redacted match.
const Mask = "***"

// DefaultSecretPatterns match credentials that providers echo back in error messages.
var DefaultSecretPatterns = []string{
	`sk-[A-Za-z0-9_\-]{16,}`,
	`(?i)bearer\s+[A-Za-z0-9._\-]{16,}`,
	`(?i)AccountKey=[^;]+`,
}

type redactMiddleware struct {
	next     ports.CheckpointStore
	patterns []*regexp.Regexp
}

// NewRedactionMiddleware masks pattern matches in the free text fields of a
// checkpoint before it is stored. The state held by the engine is not touched.
func NewRedactionMiddleware(patterns []string) (Middleware, error) {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		compiled[i] = re
	}
	return func(next ports.CheckpointStore) ports.CheckpointStore {
		return &redactMiddleware{next: next, patterns: compiled}
	}, nil
}

func (m *redactMiddleware) Save(ctx context.Context, runID string, state *domain.WorkflowState) error {
	clean := state.Snapshot()
	clean.Error = m.mask(clean.Error)
	clean.ResearchResult = m.mask(clean.ResearchResult)
	clean.Report = m.mask(clean.Report)
	if clean.AnalysisPlan != nil {
		clean.AnalysisPlan.Plan = m.mask(clean.AnalysisPlan.Plan)
	}
	return m.next.Save(ctx, runID, &clean)
}

func (m *redactMiddleware) mask(s string) string {
	for _, re := range m.patterns {
		s = re.ReplaceAllString(s, Mask)
	}
	return s
}

func (m *redactMiddleware) Load(ctx context.Context, runID string) (*domain.WorkflowState, error) {
	return m.next.Load(ctx, runID)
}

func (m *redactMiddleware) Delete(ctx context.Context, runID string) error {
	return m.next.Delete(ctx, runID)
}

func (m *redactMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}
