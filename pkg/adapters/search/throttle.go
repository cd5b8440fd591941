package search

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/aretw0/techtrends/pkg/domain"
	"github.com/aretw0/techtrends/pkg/ports"
)

// DefaultInterval is the minimum spacing between two external search calls.
const DefaultInterval = time.Second

// Throttled spaces calls to the wrapped searcher by at least the configured interval.
type Throttled struct {
	next    ports.Searcher
	limiter *rate.Limiter
}

var _ ports.Searcher = (*Throttled)(nil)

// Throttle wraps next. Non-positive intervals fall back to DefaultInterval.
func Throttle(next ports.Searcher, interval time.Duration) *Throttled {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Throttled{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Search waits for its turn, then delegates.
func (t *Throttled) Search(ctx context.Context, query string, count int) ([]domain.SearchResult, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.next.Search(ctx, query, count)
}
