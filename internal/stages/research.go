package stages

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/techtrends/internal/prompts"
	"github.com/aretw0/techtrends/pkg/domain"
)

// Aspect is one angle from which a field is searched.
type Aspect struct {
	Name  string
	Query string // %s is replaced by the field label
}

// Aspects are searched for every field, in order.
var Aspects = []Aspect{
	{Name: "research_paper", Query: "latest research papers %s technology 2025 future trends"},
	{Name: "patents", Query: "recent patents %s technology innovation trends"},
	{Name: "news", Query: "recent %s technology news breakthrough development"},
	{Name: "investment", Query: "%s technology venture capital investment trends"},
	{Name: "corporate_rd", Query: "major companies %s technology R&D investment focus"},
}

// ReferenceQueries are asked of the reference documents for every field.
var ReferenceQueries = []string{
	"current state and future direction of %s technology",
	"key innovations and breakthroughs in %s",
	"market outlook and leading companies in %s",
	"social and economic impact of %s",
}

const (
	referenceTopK     = 5
	summaryResults    = 5
	summaryPassages   = 3
	maxPassageExcerpt = 600
)

// Research gathers evidence and synthesizes it into a research brief.
type Research struct {
	rt *Runtime
}

// Name implements ports.Stage.
func (s *Research) Name() domain.StageName { return domain.StageResearch }

// Run implements ports.Stage.
func (s *Research) Run(ctx context.Context, state domain.WorkflowState) domain.WorkflowState {
	state.Progress("Performing research...")
	logger := s.rt.logger().With("run_id", state.RunID)

	results, err := s.search(ctx, state.Fields)
	if err != nil {
		return collaboratorFailure(state, domain.StageResearch, CollaboratorSearch, err)
	}
	logger.DebugContext(ctx, "search complete", "results", len(results))

	var passages map[domain.Tag][]domain.Passage
	if state.RAGEnabled && len(state.RAGDocuments) > 0 && s.rt.Retriever != nil {
		passages, err = s.retrieve(ctx, state.Fields, state.RAGDocuments)
		if err != nil {
			return collaboratorFailure(state, domain.StageResearch, CollaboratorRetrieval, err)
		}
		logger.DebugContext(ctx, "reference lookup complete", "documents", len(state.RAGDocuments))
	}

	vars := baseVars(state)
	vars.SearchSummary = summarizeResults(state.Fields, results)
	vars.RAGSummary = summarizePassages(state.Fields, passages, summaryPassages)
	vars.RAGContext = vars.RAGSummary

	trendPrompt, err := s.rt.render(prompts.ResearchSystem, prompts.Trend, vars)
	if err != nil {
		return collaboratorFailure(state, domain.StageResearch, CollaboratorPrompt, err)
	}
	trend, err := s.rt.Generator.Generate(ctx, trendPrompt)
	if err != nil {
		return collaboratorFailure(state, domain.StageResearch, CollaboratorGeneration, err)
	}
	vars.TrendAnalysis = trend

	synthesis, err := s.rt.render(prompts.ResearchSystem, prompts.Research, vars)
	if err != nil {
		return collaboratorFailure(state, domain.StageResearch, CollaboratorPrompt, err)
	}
	text, err := s.rt.Generator.Generate(ctx, synthesis)
	if err != nil {
		return collaboratorFailure(state, domain.StageResearch, CollaboratorGeneration, err)
	}

	state.ResearchResult = text
	state.Status = domain.StatusResearchDone
	return state
}

// search issues one query per field and aspect, sequentially.
// Pacing between calls belongs to the searcher.
func (s *Research) search(ctx context.Context, fields []domain.Tag) ([]domain.SearchResult, error) {
	var all []domain.SearchResult
	for _, field := range fields {
		for _, aspect := range Aspects {
			query := fmt.Sprintf(aspect.Query, field.Label())
			found, err := s.rt.Searcher.Search(ctx, query, s.rt.searchCount())
			if err != nil {
				return nil, fmt.Errorf("%s/%s: %w", field, aspect.Name, err)
			}
			for _, r := range found {
				r.Field = field
				r.Aspect = aspect.Name
				all = append(all, r)
			}
		}
	}
	return all, nil
}

func (s *Research) retrieve(ctx context.Context, fields []domain.Tag, docs []string) (map[domain.Tag][]domain.Passage, error) {
	if err := s.rt.Retriever.Index(ctx, docs); err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}

	out := make(map[domain.Tag][]domain.Passage, len(fields))
	for _, field := range fields {
		for _, q := range ReferenceQueries {
			found, err := s.rt.Retriever.Query(ctx, docs, fmt.Sprintf(q, field.Label()), referenceTopK)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", field, err)
			}
			out[field] = append(out[field], found...)
		}
	}
	return out, nil
}

func summarizeResults(fields []domain.Tag, results []domain.SearchResult) string {
	var b strings.Builder
	for _, field := range fields {
		fmt.Fprintf(&b, "## %s\n", field.Label())
		n := 0
		for _, r := range results {
			if r.Field != field {
				continue
			}
			if n == summaryResults {
				break
			}
			fmt.Fprintf(&b, "- [%s](%s): %s\n", r.Title, r.URL, r.Description)
			n++
		}
		if n == 0 {
			b.WriteString("- (no results)\n")
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

// summarizePassages keeps the best scored passages of every field.
func summarizePassages(fields []domain.Tag, passages map[domain.Tag][]domain.Passage, limit int) string {
	if len(passages) == 0 {
		return ""
	}
	var b strings.Builder
	for _, field := range fields {
		found := append([]domain.Passage(nil), passages[field]...)
		if len(found) == 0 {
			continue
		}
		sort.SliceStable(found, func(i, j int) bool { return found[i].Score > found[j].Score })
		if len(found) > limit {
			found = found[:limit]
		}
		fmt.Fprintf(&b, "## %s\n", field.Label())
		for _, p := range found {
			source := p.Metadata["source"]
			if source == "" {
				source = "reference"
			}
			fmt.Fprintf(&b, "- (%s, score %.2f) %s\n", source, p.Score, excerpt(p.Content, maxPassageExcerpt))
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

func excerpt(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
