package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/techtrends/pkg/domain"
	"github.com/aretw0/techtrends/pkg/ports"
)

const (
	// APIKeyEnv is the variable holding the Brave credential.
	APIKeyEnv = "BRAVE_API_KEY"

	DefaultEndpoint = "https://api.search.brave.com/res/v1/web/search"
)

// Brave queries the Brave web search API.
// Failures and empty answers degrade to the placeholder set unless strict.
type Brave struct {
	apiKey   string
	endpoint string
	strict   bool
	http     *http.Client
	logger   *slog.Logger
}

var _ ports.Searcher = (*Brave)(nil)

// BraveOption configures a Brave searcher.
type BraveOption func(*Brave)

// WithEndpoint overrides the API URL.
func WithEndpoint(endpoint string) BraveOption {
	return func(b *Brave) {
		if endpoint != "" {
			b.endpoint = endpoint
		}
	}
}

// WithStrict makes API failures surface as errors instead of placeholder results.
func WithStrict(strict bool) BraveOption {
	return func(b *Brave) { b.strict = strict }
}

// WithHTTPClient replaces the transport.
func WithHTTPClient(c *http.Client) BraveOption {
	return func(b *Brave) {
		if c != nil {
			b.http = c
		}
	}
}

// WithLogger sets the logger used to report degraded searches.
func WithLogger(l *slog.Logger) BraveOption {
	return func(b *Brave) {
		if l != nil {
			b.logger = l
		}
	}
}

// New returns a Brave searcher, or the placeholder when apiKey is empty.
func New(apiKey string, opts ...BraveOption) ports.Searcher {
	if strings.TrimSpace(apiKey) == "" {
		return Placeholder{}
	}
	b := &Brave{
		apiKey:   apiKey,
		endpoint: DefaultEndpoint,
		http:     &http.Client{Timeout: 30 * time.Second},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

// Search implements ports.Searcher.
func (b *Brave) Search(ctx context.Context, query string, count int) ([]domain.SearchResult, error) {
	results, err := b.query(ctx, query, count)
	if err == nil && len(results) > 0 {
		return results, nil
	}
	if b.strict {
		if err == nil {
			err = fmt.Errorf("no results for %q", query)
		}
		return nil, err
	}
	b.logger.WarnContext(ctx, "search degraded to placeholder results", "query", query, "error", err)
	return PlaceholderResults(query, count), nil
}

func (b *Brave) query(ctx context.Context, query string, count int) ([]domain.SearchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(count))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.apiKey)

	resp, err := b.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("brave search: status %s", resp.Status)
	}

	var decoded braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	out := make([]domain.SearchResult, 0, len(decoded.Web.Results))
	for _, r := range decoded.Web.Results {
		out = append(out, domain.SearchResult{
			Title:       r.Title,
			URL:         r.URL,
			Description: r.Description,
		})
		if len(out) == count {
			break
		}
	}
	return out, nil
}
