// Package search implements the web search collaborator.
package search

import (
	"context"
	"fmt"

	"github.com/aretw0/techtrends/pkg/domain"
	"github.com/aretw0/techtrends/pkg/ports"
)

// PlaceholderSize is the number of results the placeholder can produce.
const PlaceholderSize = 5

var placeholderTemplates = []struct {
	title, url, description string
}{
	{"Latest research on %s", "https://example.com/research/1", "Recent research results and technical progress related to %s."},
	{"Industry impact of %s", "https://example.com/impact/2", "How %s is expected to change industry and society."},
	{"Patent trends in %s", "https://example.com/patents/3", "An overview of recent patent filings related to %s."},
	{"Investment landscape of %s", "https://example.com/investment/4", "Venture capital and corporate investment flowing into %s."},
	{"Corporate strategy for %s", "https://example.com/strategy/5", "How major companies position their R&D around %s."},
}

// Placeholder returns a deterministic result set. It never fails.
type Placeholder struct{}

var _ ports.Searcher = Placeholder{}

// Search implements ports.Searcher. It returns min(count, PlaceholderSize) results.
func (Placeholder) Search(_ context.Context, query string, count int) ([]domain.SearchResult, error) {
	return PlaceholderResults(query, count), nil
}

// PlaceholderResults builds the deterministic result set for a query.
func PlaceholderResults(query string, count int) []domain.SearchResult {
	n := min(max(count, 0), PlaceholderSize)
	out := make([]domain.SearchResult, n)
	for i := range n {
		t := placeholderTemplates[i]
		out[i] = domain.SearchResult{
			Title:       fmt.Sprintf(t.title, query),
			URL:         t.url,
			Description: fmt.Sprintf(t.description, query),
		}
	}
	return out
}
