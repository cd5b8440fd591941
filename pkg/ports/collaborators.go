package ports

import (
	"context"

	"github.com/aretw0/techtrends/pkg/domain"
)

// Prompt is a single text-generation request.
type Prompt struct {
	System string
	Text   string
}

// Generator produces markdown prose from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
}

// Searcher queries the web. Implementations without credentials must degrade to
// a deterministic placeholder set instead of failing.
type Searcher interface {
	Search(ctx context.Context, query string, count int) ([]domain.SearchResult, error)
}

// Retriever answers similarity queries against a set of reference documents.
// Queries are scoped to the document paths they name.
type Retriever interface {
	// Index builds the index for the given document paths. Calling it again
	// with the same paths is a no-op.
	Index(ctx context.Context, paths []string) error

	// Query returns at most topK passages drawn only from paths; an empty
	// slice when those documents hold no text.
	Query(ctx context.Context, paths []string, text string, topK int) ([]domain.Passage, error)
}

// Converter renders a markdown report into a deliverable file and returns its path.
// It returns *domain.UnsupportedFormatError for formats it cannot produce.
type Converter interface {
	Convert(ctx context.Context, markdown string, format domain.Format, stem string) (string, error)
}

// Publisher ships a produced file to an external location and returns its address.
type Publisher interface {
	Publish(ctx context.Context, path string) (string, error)
}
